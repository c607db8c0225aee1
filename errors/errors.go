package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseOpen    Phase = "open"    // parsing a dictionary buffer
	PhaseLookup  Phase = "lookup"  // name or id resolution
	PhaseCreate  Phase = "create"  // dynamic type construction
	PhaseUpdate  Phase = "update"  // commit, snapshot, rollback
	PhaseRender  Phase = "render"  // declaration rendering
	PhaseArchive Phase = "archive" // archive member management
)

// Kind categorizes the error
type Kind string

const (
	KindParse          Kind = "parse"
	KindTruncated      Kind = "truncated"
	KindUnsupported    Kind = "unsupported"
	KindCorrupt        Kind = "corrupt"
	KindNotFound       Kind = "not_found"
	KindInvalidID      Kind = "invalid_id"
	KindDuplicateName  Kind = "duplicate_name"
	KindInvalidPayload Kind = "invalid_payload"
	KindInvalidEpoch   Kind = "invalid_epoch"
	KindModelMismatch  Kind = "model_mismatch"
	KindReadOnly       Kind = "read_only"
	KindClosed         Kind = "closed"
	KindOverflow       Kind = "overflow"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the path into the type graph (container name, type name, member)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Parse creates a malformed-input error
func Parse(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindParse,
		Detail: detail,
		Cause:  cause,
	}
}

// Truncated creates a short-buffer error
func Truncated(phase Phase, what string, have, want int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncated,
		Detail: fmt.Sprintf("%s: have %d bytes, want %d", what, have, want),
	}
}

// Unsupported creates an unsupported-version or unsupported-feature error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidID creates an error for an identifier outside any known namespace
func InvalidID(phase Phase, id uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidID,
		Detail: fmt.Sprintf("type id %d outside every known namespace", id),
	}
}

// DuplicateName creates a rejected-mutation error for a name collision
func DuplicateName(name string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindDuplicateName,
		Detail: fmt.Sprintf("type %q already defined", name),
	}
}

// InvalidPayload creates a rejected-mutation error for a bad definition
func InvalidPayload(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindInvalidPayload,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// InvalidEpoch creates a rollback-target error
func InvalidEpoch(detail string) *Error {
	return &Error{
		Phase:  PhaseUpdate,
		Kind:   KindInvalidEpoch,
		Detail: detail,
	}
}

// ModelMismatch creates a data-model incompatibility error
func ModelMismatch(phase Phase, have, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindModelMismatch,
		Detail: fmt.Sprintf("data model %s incompatible with %s", have, want),
	}
}

// ReadOnly creates an error for a mutation on a read-only container
func ReadOnly(op string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindReadOnly,
		Detail: fmt.Sprintf("%s requires a writable container", op),
	}
}

// Closed creates an error for an operation on a released handle
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// Corrupt creates an internal-inconsistency error
func Corrupt(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCorrupt,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Overflow creates a size- or count-limit error
func Overflow(phase Phase, what string, value, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("%s %d exceeds limit %d", what, value, limit),
	}
}
