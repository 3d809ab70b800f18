package application

import (
	"errors"
	"fmt"
	"strings"
)

// Layer-level error kinds. They wrap the underlying cause, so errors.Is
// matches both the kind and the original error.
var (
	// ErrService marks a persistence failure surfaced by AccountService.
	ErrService = errors.New("account service error")

	// ErrStore marks a failure surfaced by Store.
	ErrStore = errors.New("store error")

	// ErrInitialSync is returned by Store.CreateAccount when the account was
	// created and cached but its first sync failed.
	ErrInitialSync = errors.New("initial sync failed")
)

// AccountError is one account's failure within a batch.
type AccountError struct {
	Name string
	Err  error
}

func (e AccountError) Error() string {
	return e.Err.Error()
}

func (e AccountError) Unwrap() error {
	return e.Err
}

// BatchError aggregates per-account failures from a batch fetch. It is only
// returned after every account in the batch was attempted.
type BatchError struct {
	Errors []AccountError
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ae := range e.Errors {
		msgs = append(msgs, ae.Error())
	}
	return fmt.Sprintf("%d of the accounts failed to fetch: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes each account's error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, ae := range e.Errors {
		errs = append(errs, ae)
	}
	return errs
}

// Failed returns the names of the accounts that failed, in batch order.
func (e *BatchError) Failed() []string {
	names := make([]string, 0, len(e.Errors))
	for _, ae := range e.Errors {
		names = append(names, ae.Name)
	}
	return names
}
