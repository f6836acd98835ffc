package domain

import (
	"errors"
	"fmt"
)

// ErrNoCredentials means no credential source produced anything to try.
// It is a precondition failure: no network call was attempted and retrying
// cannot help until the user obtains a credential.
var ErrNoCredentials = errors.New("no credentials available")

// TerminalError is a content-level rejection (HTTP 400 or safety-filter
// phrasing). No credential or server swap changes the outcome, so it is
// surfaced after the first occurrence and never retried.
type TerminalError struct {
	StatusCode int
	Message    string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("request rejected: %s", e.Message)
}

// ExhaustedError means every attempt in the plan failed with a transient
// error. It carries the last transient cause.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all attempts failed: %v", e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
