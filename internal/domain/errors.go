package domain

import (
	"errors"
	"fmt"
)

// Failure classes shared by every client and view. Views turn them into
// display strings with DisplayMessage and never propagate them further.
var (
	ErrTransport         = errors.New("transport failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyAdvisory     = errors.New("empty advisory response")
)

// UpstreamError is a non-2xx answer from an upstream service. Message holds
// the upstream's own "error" field when it sent one.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Operation, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return ErrTransport }

// DisplayMessage converts err into the text shown to the user. An upstream
// error message wins over the wrapped chain; fallback covers empty messages.
func DisplayMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// UpstreamMessage returns the upstream's own error text, or fallback when err
// did not come from an upstream that explained itself.
func UpstreamMessage(err error, fallback string) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		return upstream.Message
	}
	return fallback
}
