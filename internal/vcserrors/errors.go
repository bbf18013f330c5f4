// Package vcserrors defines the structured error taxonomy shared by every
// core component (object store, ref database, wire client, tool loop,
// ledger). Each failure kind gets a typed constructor so callers can branch
// on Kind without string matching, and an optional hint for the few cases
// where there is an obvious next step.
package vcserrors

import "fmt"

// Kind classifies a failure the way the core reports it to callers.
type Kind string

const (
	KindObjectNotFound       Kind = "object_not_found"
	KindCorruptObject        Kind = "corrupt_object"
	KindInvalidHeader        Kind = "invalid_header"
	KindRefConflict          Kind = "ref_conflict"
	KindTransport            Kind = "transport"
	KindProtocolError        Kind = "protocol_error"
	KindAuthDenied           Kind = "auth_denied"
	KindPathOutsideWorkDir   Kind = "path_outside_working_dir"
	KindPathNotAbsolute      Kind = "path_not_absolute"
	KindHunkNotFound         Kind = "hunk_not_found"
	KindHookBlocked          Kind = "hook_blocked"
	KindToolLoopExhausted    Kind = "tool_loop_exhausted"
	KindCancelled            Kind = "cancelled"
	KindValidation           Kind = "validation"
)

// Error is the structured error every core component returns.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, vcserrors.New(kind, "")) to match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error that carries an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func WithHint(err *Error, hint string) *Error {
	err.Hint = hint
	return err
}

// Common constructors, one per failure a caller is likely to branch on.

func ObjectNotFound(id string) *Error {
	return New(KindObjectNotFound, fmt.Sprintf("object %s not found locally or remotely", id))
}

func CorruptObject(id string, err error) *Error {
	return Wrap(KindCorruptObject, fmt.Sprintf("object %s failed to decompress", id), err)
}

func InvalidHeader(id string) *Error {
	return New(KindInvalidHeader, fmt.Sprintf("object %s has a malformed header", id))
}

func RefConflict(name, expectedOld, actualOld string) *Error {
	return WithHint(
		New(KindRefConflict, fmt.Sprintf("ref %s changed concurrently (expected old %s, found %s)", name, expectedOld, actualOld)),
		"re-read the ref and retry the update",
	)
}

func Transport(operation string, err error) *Error {
	return Wrap(KindTransport, fmt.Sprintf("transport failure during %s", operation), err)
}

func ProtocolError(where string) *Error {
	return New(KindProtocolError, fmt.Sprintf("protocol error: %s", where))
}

func AuthDenied(remote string) *Error {
	return WithHint(
		New(KindAuthDenied, fmt.Sprintf("remote %s denied authentication", remote)),
		"check the credentials configured for this remote",
	)
}

func PathOutsideWorkingDir(path string) *Error {
	return New(KindPathOutsideWorkDir, fmt.Sprintf("path %s is outside the sandboxed working directory", path))
}

func PathNotAbsolute(path string) *Error {
	return New(KindPathNotAbsolute, fmt.Sprintf("path %s must be absolute", path))
}

func HunkNotFound(path string, hunkIndex int) *Error {
	return New(KindHunkNotFound, fmt.Sprintf("hunk %d in %s could not be located, even fuzzily", hunkIndex, path))
}

func HookBlocked(reason string) *Error {
	return New(KindHookBlocked, reason)
}

func ToolLoopExhausted(maxSteps int) *Error {
	return New(KindToolLoopExhausted, fmt.Sprintf("tool loop exhausted its %d-step budget", maxSteps))
}

func Cancelled() *Error {
	return New(KindCancelled, "operation cancelled")
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}
