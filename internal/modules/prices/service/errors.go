package service

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of a service failure.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindValidation      Kind = "validation_error"
	KindUpstreamTimeout Kind = "upstream_timeout"
	KindUpstreamError   Kind = "upstream_error"
	KindStorageFault    Kind = "storage_fault"
)

// Error carries a Kind and a message that is safe to show to callers.
// Err holds the internal cause and is never exposed over HTTP.
type Error struct {
	Kind    Kind
	Message string
	// Status is the provider status for KindUpstreamError.
	Status string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindStorageFault when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorageFault
}

func invalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func storageFault(msg string, err error) error {
	return &Error{Kind: KindStorageFault, Message: msg, Err: err}
}
