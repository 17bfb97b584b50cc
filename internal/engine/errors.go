package engine

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed request on the wire
type Kind string

const (
	KindInvalidInput         Kind = "InvalidInput"
	KindUnsupportedOperation Kind = "UnsupportedOperation"
	KindDecodeError          Kind = "DecodeError"
	KindInternalError        Kind = "InternalError"
	KindTimeout              Kind = "Timeout"
)

// ErrPoolClosed is returned for requests that reach a stopped pool
var ErrPoolClosed = errors.New("engine pool closed")

// Error is a request-scoped failure carrying its wire classification
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func InvalidInput(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Err: err}
}

func UnsupportedOperation(msg string) *Error {
	return &Error{Kind: KindUnsupportedOperation, Msg: msg}
}

func DecodeError(err error) *Error {
	return &Error{Kind: KindDecodeError, Msg: "failed to decode audio", Err: err}
}

func InternalError(msg string, err error) *Error {
	return &Error{Kind: KindInternalError, Msg: msg, Err: err}
}

func Timeout(err error) *Error {
	return &Error{Kind: KindTimeout, Msg: "request did not complete in time", Err: err}
}

// Classify maps any error onto an *Error. Context expiry becomes Timeout,
// typed errors keep their kind and everything else is internal.
func Classify(err error) *Error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Timeout(err)
	default:
		return InternalError("request failed", err)
	}
}
