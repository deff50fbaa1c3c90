// Package fwerr provides the structured error taxonomy shared by every
// package in the framework.
package fwerr

import (
	"errors"
	"fmt"
)

// Class identifies which of the framework's five error kinds an Error
// belongs to.
type Class int

const (
	// Unclassified is the zero value; it should not appear in constructed
	// errors but guards against an unset Class being silently treated as
	// one of the five real kinds.
	Unclassified Class = iota

	// InvalidArgument covers malformed filters, empty PIDs, empty class
	// lists, duplicate property keys, and PID/class mismatches.
	InvalidArgument

	// IllegalState covers an operation on an unregistered registration, an
	// unopened tracker, an undefined version, or a closed framework.
	IllegalState

	// NoSuchService covers a tracker asked for the highest-ranked
	// reference that has none.
	NoSuchService

	// ConfigurationError is raised by a managed service that rejects a
	// dictionary. It is logged at error severity and never propagated back
	// to the caller that triggered the update.
	ConfigurationError

	// UserCallbackError covers any fault inside a listener, customizer,
	// configuration-plugin interceptor, or managed-service callback. It is
	// logged, reported via a framework error event for the offending
	// plugin, and isolated from sibling callbacks.
	UserCallbackError
)

// String returns the lower_snake_case name used in log output.
func (c Class) String() string {
	switch c {
	case InvalidArgument:
		return "invalid_argument"
	case IllegalState:
		return "illegal_state"
	case NoSuchService:
		return "no_such_service"
	case ConfigurationError:
		return "configuration_error"
	case UserCallbackError:
		return "user_callback_error"
	default:
		return "unclassified"
	}
}

// Error is the framework's structured error type. It always carries a
// Class from the taxonomy in spec §7, the component that raised it, and
// optionally the cause that triggered it.
type Error struct {
	Class     Class
	Component string
	Operation string
	Message   string
	Cause     error
}

// New constructs an Error of the given class.
func New(class Class, component, operation, message string) *Error {
	return &Error{Class: class, Component: component, Operation: operation, Message: message}
}

// WithCause attaches an underlying error and returns the receiver for
// chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := fmt.Sprintf("%s[%s/%s]: %s", e.Component, e.Operation, e.Class, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", base, e.Cause.Error())
	}
	return base
}

// Unwrap allows errors.Is/errors.As to traverse to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Class, letting
// callers write errors.Is(err, fwerr.New(fwerr.NoSuchService, "", "", "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Class == other.Class
}

// InvalidArgumentf builds an InvalidArgument error.
func InvalidArgumentf(component, operation, format string, args ...any) *Error {
	return New(InvalidArgument, component, operation, fmt.Sprintf(format, args...))
}

// IllegalStatef builds an IllegalState error.
func IllegalStatef(component, operation, format string, args ...any) *Error {
	return New(IllegalState, component, operation, fmt.Sprintf(format, args...))
}

// NoSuchServicef builds a NoSuchService error.
func NoSuchServicef(component, operation, format string, args ...any) *Error {
	return New(NoSuchService, component, operation, fmt.Sprintf(format, args...))
}

// ConfigurationErrorf builds a ConfigurationError error.
func ConfigurationErrorf(component, operation, format string, args ...any) *Error {
	return New(ConfigurationError, component, operation, fmt.Sprintf(format, args...))
}

// UserCallbackErrorf builds a UserCallbackError error.
func UserCallbackErrorf(component, operation, format string, args ...any) *Error {
	return New(UserCallbackError, component, operation, fmt.Sprintf(format, args...))
}

// IsClass reports whether err is (or wraps) an *Error of the given class.
func IsClass(err error, class Class) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Class == class
}
