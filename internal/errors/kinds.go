package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies failures surfaced by the gateway, the relay and the bridge.
// A Kind is itself an error so it can be used as an errors.Is target.
type Kind string

const (
	PermissionDenied           Kind = "PermissionDenied"
	UnsupportedEnvironment     Kind = "UnsupportedEnvironment"
	MissingConfiguration       Kind = "MissingConfiguration"
	Unregistered               Kind = "Unregistered"
	InvalidNotificationPayload Kind = "InvalidNotificationPayload"
	UnknownRequestType         Kind = "UnknownRequestType"
	BackendRequestFailed       Kind = "BackendRequestFailed"
	TransportParseError        Kind = "TransportParseError"
)

func (k Kind) Error() string {
	return string(k)
}

// Error is a classified error. Message is what gets reported to embedded content.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var classified *Error
	if stderrors.As(err, &classified) {
		return classified.Kind, true
	}
	return "", false
}
