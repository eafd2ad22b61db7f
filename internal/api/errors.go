package api

import (
	"errors"
	"fmt"
)

// Kind classifies a request failure.
type Kind int

const (
	// KindTransport means no response was received (network fault, timeout,
	// cancelled context).
	KindTransport Kind = iota
	// KindHTTP means a response was received with a non-2xx status, or a 2xx
	// response whose payload was semantically rejected by the backend.
	KindHTTP
)

// Error is the typed failure raised by the transport client. Stores absorb
// it at their operation boundary; only the 401 teardown escapes as a side
// effect (see Client).
type Error struct {
	Kind    Kind
	Status  int    // HTTP status code, 0 for transport failures
	Message string // human-readable, extracted from the server's error field when present
	cause   error
}

func (e *Error) Error() string {
	if e.Kind == KindTransport {
		return fmt.Sprintf("transport: %s", e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// IsStatus reports whether err is an HTTP failure with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindHTTP && apiErr.Status == status
}

// ErrorMessage extracts the human-readable message from err, falling back
// to the provided default. Stores use this to populate their cached error
// field without leaking transport internals to the UI.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
