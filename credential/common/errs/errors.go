// Package errs defines the error taxonomy shared by every iris-go package.
//
// Callers branch on Kind (via IsKind or errors.As) rather than on error strings.
// A failed signature check is never an error: verification reports it as false.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable error category.
type Kind string

const (
	// KindTypeMismatch is returned when a document field is read with the wrong expected shape.
	KindTypeMismatch Kind = "TypeMismatch"
	// KindCanonicalization is returned when a context or term cannot be resolved.
	KindCanonicalization Kind = "CanonicalizationError"
	// KindInvalidKey is returned when key material is malformed or of the wrong family.
	KindInvalidKey Kind = "InvalidKeyError"
	// KindSignature is returned when the signature primitive rejects a signing operation.
	KindSignature Kind = "SignatureError"
	// KindVerification is returned when a proof is missing or structurally malformed.
	KindVerification Kind = "VerificationError"
	// KindSigning wraps any failure surfaced by the sign orchestrator.
	KindSigning Kind = "SigningError"
)

// Error is the structured error type of the module.
type Error struct {
	Kind      Kind
	Field     string
	Algorithm string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Field != "" {
		fmt.Fprintf(&b, " [field %q]", e.Field)
	}
	if e.Algorithm != "" {
		fmt.Fprintf(&b, " [algorithm %q]", e.Algorithm)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind carrying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithField sets the offending field name.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithAlgorithm sets the algorithm label the error relates to.
func (e *Error) WithAlgorithm(alg string) *Error {
	e.Algorithm = alg
	return e
}

// TypeMismatch reports that field holds a value of kind got where want was expected.
func TypeMismatch(field, want, got string) *Error {
	return New(KindTypeMismatch, "expected %s, got %s", want, got).WithField(field)
}

// IsKind reports whether err is, or wraps, an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
