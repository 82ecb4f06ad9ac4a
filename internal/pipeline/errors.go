package pipeline

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted means no worker account freed up within the
// acquire budget. Callers retry at a higher level (next scheduled run).
var ErrResourceExhausted = errors.New("no worker account available within wait budget")

// TransientFetchError wraps network or timeout failures from the
// browser collaborator; the run retries these with backoff.
type TransientFetchError struct {
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}
func (e *TransientFetchError) Unwrap() error { return e.Err }

// StructuralFetchError means the page shape was not what the extractor
// expects. Retrying will not help; the run fails and the account is
// released as unsuccessful.
type StructuralFetchError struct {
	Err error
}

func (e *StructuralFetchError) Error() string {
	return fmt.Sprintf("structural fetch error: %v", e.Err)
}
func (e *StructuralFetchError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var t *TransientFetchError
	return errors.As(err, &t)
}

func IsStructural(err error) bool {
	var s *StructuralFetchError
	return errors.As(err, &s)
}
