package maps

import "errors"

var (
	// ErrMissingCredential means no API key is configured. No request is made.
	ErrMissingCredential = errors.New("maps: missing API key")
	// ErrQuotaExceeded means the provider rate-limited or refused for quota.
	ErrQuotaExceeded = errors.New("maps: quota exceeded")
	// ErrNotFound covers ZERO_RESULTS and NOT_FOUND answers.
	ErrNotFound = errors.New("maps: not found")
	// ErrRequestDenied means the key was rejected (disabled API, bad restrictions).
	ErrRequestDenied = errors.New("maps: request denied")
	// ErrUpstream covers every other provider or transport failure.
	ErrUpstream = errors.New("maps: upstream error")
)

// IsBanner reports whether err should surface as a persistent banner rather than an inline error.
func IsBanner(err error) bool {
	return errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrRequestDenied)
}

// Message returns the user-facing text for a maps error.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "No maps API key is configured. Set MAPS_API_KEY or maps.key in the config file."
	case errors.Is(err, ErrQuotaExceeded):
		return "The maps service quota has been exceeded. Try again later."
	case errors.Is(err, ErrRequestDenied):
		return "The maps service rejected the API key."
	case errors.Is(err, ErrNotFound):
		return "No matching place was found."
	default:
		return "Maps error: " + err.Error()
	}
}
