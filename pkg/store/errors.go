package store

import "errors"

// ErrQuotaExceeded is returned when a write would exceed the store's capacity limit.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")
