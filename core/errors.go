package core

import (
	"errors"
	"fmt"
)

// Kind classifies a turn-level failure for uniform propagation handling.
type Kind string

const (
	// KindValidation marks empty or missing input, rejected before any
	// model call.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindTool marks a capability failure; converted to an observation and
	// non-fatal to the turn.
	KindTool Kind = "TOOL_ERROR"
	// KindParse marks model output that did not match the expected schema
	// after bounded repair.
	KindParse Kind = "PARSE_ERROR"
	// KindChannel marks an unreachable model or durable store; fatal for
	// the current turn.
	KindChannel Kind = "CHANNEL_ERROR"
	// KindIterationLimit marks a turn that hit the think/act cap; the
	// caller still receives a best-effort partial answer.
	KindIterationLimit Kind = "ITERATION_LIMIT"
)

// Error is a classified docuchat error. The Kind is machine-readable; the
// Message is a human-readable explanation safe to show to users.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a classified error with an optional cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from an error chain, or "" when the error is not
// a classified docuchat error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind anywhere in its chain.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
