package embedding

import (
	"context"
	"errors"
	"net"
	"strings"
)

var (
	// ErrInputTooLong means the provider rejected the text as exceeding its input window.
	ErrInputTooLong = errors.New("input exceeds model context length")
	// ErrTransient means the call may succeed if repeated unchanged.
	ErrTransient = errors.New("transient embedding failure")
	// ErrExhausted means every allowed attempt failed.
	ErrExhausted = errors.New("embedding attempts exhausted")
	// ErrDimensionMismatch means the provider returned a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

var tooLongMarkers = []string{
	"context_length_exceeded",
	"maximum context length",
	"too many tokens",
	"input is too long",
	"input length exceeds",
	"request_too_large",
	"exceeds model context window",
}

// IsInputTooLong reports whether err means the input must be shortened.
func IsInputTooLong(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrInputTooLong) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range tooLongMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a timeout, connection failure or a retryable status.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
