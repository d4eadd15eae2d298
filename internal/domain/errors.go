package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means check/monitor was requested before setup.
	ErrNotConfigured = errors.New("session not configured, run: setup <application_number> <dob DD-MM-YYYY>")

	// ErrCaptchaTimeout means the user never replied to a manual captcha prompt.
	ErrCaptchaTimeout = errors.New("captcha reply timed out")

	// ErrCaptchaUnsolved means the resolver produced no usable answer.
	ErrCaptchaUnsolved = errors.New("captcha resolution failed")
)

// NetworkError wraps a transport failure against the booking site or the
// AI API. Caught at the tick boundary, never fatal.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UnexpectedResponseError means the site answered with something no known
// pattern matches. Logged with a snippet, handled like a network error.
type UnexpectedResponseError struct {
	Op      string
	Snippet string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response during %s: %q", e.Op, e.Snippet)
}
