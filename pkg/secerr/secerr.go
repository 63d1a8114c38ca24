// Package secerr defines the error taxonomy shared by the fairness core.
//
// Every rejection that crosses a package boundary carries a Kind so the game
// layer can branch on the failure class (retry, disconnect, abort round)
// without matching on message strings.
package secerr

import (
	"fmt"
	"time"
)

// Kind discriminates the failure classes of the fairness core.
type Kind string

const (
	KindInvalidFormat      Kind = "invalid_format"
	KindPhaseViolation     Kind = "phase_violation"
	KindCommitmentMismatch Kind = "commitment_mismatch"
	KindIncompleteReveal   Kind = "incomplete_reveal"
	KindLateReveal         Kind = "late_reveal"
	KindExpired            Kind = "expired"
	KindReplayed           Kind = "replayed"
	KindRateLimited        Kind = "rate_limited"
	KindTamperingDetected  Kind = "tampering_detected"
	KindDecryptionFailed   Kind = "decryption_failed"
)

// Error is a classified failure. RetryAfter is only set for KindRateLimited.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// RateLimited creates a KindRateLimited error carrying the retry hint.
func RateLimited(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: message, RetryAfter: retryAfter}
}

// KindOf returns the kind of err, or "" if err carries no classification.
func KindOf(err error) Kind {
	for err != nil {
		if se, ok := err.(*Error); ok {
			return se.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// IsKind reports whether err (or anything it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
