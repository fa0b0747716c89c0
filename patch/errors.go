// Package patch applies declarative, XPath-targeted operations to the XML
// parts of an OOXML package. Operations run inside a transaction with an
// explicit failure policy: strict (first failure rolls everything back) or
// best-effort (failures are recorded and skipped).
package patch

import (
	"errors"
	"fmt"

	"github.com/brandforge/brandforge/ooxml"
)

// ErrorKind is the machine-readable classification of a patch failure.
type ErrorKind string

// Patch error kinds.
const (
	KindPartNotFound        ErrorKind = "part_not_found"
	KindXPathSyntax         ErrorKind = "xpath_syntax"
	KindXPathNoMatch        ErrorKind = "xpath_no_match"
	KindXPathAmbiguity      ErrorKind = "xpath_ambiguity"
	KindNamespaceResolution ErrorKind = "namespace_resolution"
	KindMalformedPart       ErrorKind = "malformed_part"
	KindPayloadToken        ErrorKind = "payload_token"
	KindInvalidPayload      ErrorKind = "invalid_payload"
	KindInvalidState        ErrorKind = "invalid_transaction_state"
)

// Error is a patch failure with enough context to locate the offending
// operation: part path, operation index within the transaction, and XPath.
type Error struct {
	ErrKind ErrorKind
	Part    string
	OpIndex int
	XPath   string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("op %d", e.OpIndex)
	if e.Part != "" {
		s += " on " + e.Part
	}
	if e.XPath != "" {
		s += fmt.Sprintf(" (xpath %s)", e.XPath)
	}
	s += ": " + string(e.ErrKind)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Kind returns the machine-readable error kind.
func (e *Error) Kind() ErrorKind { return e.ErrKind }

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the failure aborts the transaction regardless of
// policy. Malformed parts are input-integrity failures and ambiguous
// single-target XPaths are configuration errors; neither is skippable.
func (e *Error) Fatal() bool {
	return e.ErrKind == KindMalformedPart || e.ErrKind == KindXPathAmbiguity
}

// wrapPartError converts part-level failures into patch Errors, recognizing
// malformed XML as its always-fatal kind.
func wrapPartError(err error, part string, opIndex int) *Error {
	var malformed *ooxml.MalformedPartError
	if errors.As(err, &malformed) {
		return &Error{ErrKind: KindMalformedPart, Part: part, OpIndex: opIndex, Err: err}
	}
	return &Error{ErrKind: KindPartNotFound, Part: part, OpIndex: opIndex, Err: err}
}
