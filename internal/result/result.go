// Package result defines the tagged success/failure value used by every
// fallible operation in loom. Callers never encode failure in sentinel
// strings or bare errors; they return an *Error with a classified Kind so
// the CLI and the sync lane can branch on what went wrong without parsing
// messages.
package result

import "fmt"

// Kind enumerates the error classes surfaced uniformly across the system.
type Kind string

const (
	NotInRepo          Kind = "NOT_IN_REPO"
	NotInitialized     Kind = "NOT_INITIALIZED"
	CommandFailed      Kind = "COMMAND_FAILED"
	Conflict           Kind = "CONFLICT"
	InvalidRevision    Kind = "INVALID_REVISION"
	InvalidState       Kind = "INVALID_STATE"
	WorkspaceNotFound  Kind = "WORKSPACE_NOT_FOUND"
	WorkspaceExists    Kind = "WORKSPACE_EXISTS"
	ParseError         Kind = "PARSE_ERROR"
	DependencyMissing  Kind = "DEPENDENCY_MISSING"
	NavigationFailed   Kind = "NAVIGATION_FAILED"
	MergeBlocked       Kind = "MERGE_BLOCKED"
	AlreadyMerged      Kind = "ALREADY_MERGED"
	EmptyChange        Kind = "EMPTY_CHANGE"
	MissingMessage     Kind = "MISSING_MESSAGE"
	AmbiguousRevision  Kind = "AMBIGUOUS_REVISION"
	NotFound           Kind = "NOT_FOUND"
	InvalidInput       Kind = "INVALID_INPUT"
)

// Error is the concrete failure value. Command and Stderr are populated
// only when the failure originated from a subprocess invocation.
type Error struct {
	Kind    Kind
	Message string
	Command []string
	Stderr  string
	// Cause chains to an underlying error for %w unwrapping, e.g. when a
	// parser failure wraps a json.Unmarshal error.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Command != nil {
		return fmt.Sprintf("%s: %s (command: %v, stderr: %q)", e.Kind, e.Message, e.Command, e.Stderr)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a plain classified error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, preserving it for errors.Is/As.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// FromCommand builds a COMMAND_FAILED-shaped error carrying the argv and
// captured stderr, used by the executor and VCS runner.
func FromCommand(kind Kind, command []string, stderr, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Command: command, Stderr: stderr}
}

// Enrich returns a new error with the same Kind/Command/Stderr but a
// message prefixed with context. Per the propagation policy, callers may
// enrich an error but never replace its classification.
func Enrich(err *Error, context string) *Error {
	if err == nil {
		return nil
	}
	cp := *err
	cp.Message = context + ": " + err.Message
	return &cp
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e != nil && e.Kind == kind
}

// IsRetryable reports whether retrying the same operation might succeed,
// e.g. transient lock contention already retried at the runner level but
// surfaced anyway, or a subprocess timeout.
func IsRetryable(err *Error) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case CommandFailed:
		return true
	default:
		return false
	}
}

// IsUserActionRequired reports whether the failure needs manual resolution
// (conflicts, merge blocked) rather than automatic retry.
func IsUserActionRequired(err *Error) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case Conflict, MergeBlocked, AmbiguousRevision:
		return true
	default:
		return false
	}
}

// IsFatal reports whether the failure means the current command cannot
// proceed at all, e.g. not being inside a repository.
func IsFatal(err *Error) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case NotInRepo, NotInitialized, DependencyMissing:
		return true
	default:
		return false
	}
}
