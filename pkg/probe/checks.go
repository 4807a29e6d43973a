package probe

import (
	"context"
	"errors"
	"fmt"

	"tripreel/pkg/audio"
	"tripreel/pkg/maps"
)

// Pinger is satisfied by *sql.DB and the redis store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Database fails startup when the durable store does not answer.
func Database(p Pinger) Probe {
	return Probe{
		Name:     "Database",
		Critical: true,
		Check: func(ctx context.Context) error {
			if p == nil {
				return errors.New("no database configured")
			}
			return p.Ping(ctx)
		},
	}
}

// MapsCredential reports a missing map key. The app still runs without maps.
func MapsCredential(r interface{ Status() maps.Status }) Probe {
	return Probe{
		Name: "Maps Credential",
		Check: func(context.Context) error {
			if r == nil {
				return maps.ErrMissingCredential
			}
			if st := r.Status(); !st.Available {
				return fmt.Errorf("%w: %s", maps.ErrMissingCredential, st.Message)
			}
			return nil
		},
	}
}

// BGMSource reports when the bundled track is missing and the fallback is in use.
func BGMSource(src audio.Source, enabled bool) Probe {
	return Probe{
		Name: "BGM Source",
		Check: func(context.Context) error {
			switch {
			case !enabled:
				return nil
			case src.Location == "":
				return errors.New("no background music available")
			case src.Fallback:
				return fmt.Errorf("bundled track missing, using %s", src.Location)
			}
			return nil
		},
	}
}
