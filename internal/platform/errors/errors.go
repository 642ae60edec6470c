package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidParameters  Kind = "invalid_parameters"
	KindImageDecode        Kind = "image_decode"
	KindUnsupportedImage   Kind = "unsupported_image"
	KindComputationTimeout Kind = "computation_timeout"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindImageUnavailable   Kind = "image_unavailable"
	KindStorage            Kind = "storage"
	KindConfig             Kind = "config"
	KindBootstrap          Kind = "bootstrap"
	KindTransport          Kind = "transport"
	KindUnknown            Kind = "unknown"
)

// Error is the structured error carried across the validation pipeline. Kind
// identifies the taxonomy entry, Op the failing operation, and Field the
// offending request field when the caller caused the failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// NewField builds a caller error annotated with the offending request field.
func NewField(kind Kind, op, message, field string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Field:   field,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// KindOf returns the kind of the first structured error in the chain, or
// KindUnknown when no structured error is present.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}
