package domain

import "errors"

// Kind classifies a service failure so the transport layer can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a service-level failure with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Fields maps input field names to validation messages. Only set for
	// KindInvalid errors raised at the request boundary.
	Fields map[string][]string
}

func (e *Error) Error() string { return e.Message }

func Invalid(msg string) *Error { return &Error{Kind: KindInvalid, Message: msg} }

func Validation(msg string, fields map[string][]string) *Error {
	return &Error{Kind: KindInvalid, Message: msg, Fields: fields}
}

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

// KindOf returns the classification of err. Unknown errors are internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// FieldsOf returns the validation field map of err, if any.
func FieldsOf(err error) map[string][]string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// ErrDuplicateKey is returned by storage implementations when a uniqueness
// constraint rejects an insert. Services translate it to a Conflict error.
var ErrDuplicateKey = errors.New("duplicate key")
