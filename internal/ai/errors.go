package ai

import (
	"errors"
	"fmt"
)

// ErrQualification matches every failure surfaced by the qualification client.
var ErrQualification = errors.New("qualification failed")

// TransportError is returned once the remote call kept failing for all attempts.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrQualification }

// SchemaError reports a model response that could not be parsed or validated.
type SchemaError struct {
	Field  string
	Reason string
	Raw    string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid response: %s", e.Reason)
	}
	return fmt.Sprintf("invalid response field %q: %s", e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrQualification }

// ValidationError rejects malformed caller-supplied data such as weight configs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}
