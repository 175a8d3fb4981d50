package sandbox

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the validation and render pipeline can
// produce. The kinds mirror the phases: file-level checks, static tree
// sweeps, runtime evaluation, and post-render resource limits.
type ErrorKind int

const (
	// ErrFileTooLarge is returned when the template exceeds the configured
	// file-size ceiling.
	ErrFileTooLarge ErrorKind = iota
	// ErrBinaryContent is returned when the template contains a NUL byte.
	ErrBinaryContent
	// ErrInvalidEncoding is returned when the template is not valid UTF-8.
	ErrInvalidEncoding
	// ErrSyntax is returned when the template fails to parse.
	ErrSyntax
	// ErrRestrictedTag is returned when a forbidden tag (macro, include,
	// import, extends, do) appears in the tree.
	ErrRestrictedTag
	// ErrRestrictedAttribute covers attribute and literal-item access on a
	// forbidden name.
	ErrRestrictedAttribute
	// ErrRestrictedVariable covers bare references to a forbidden name.
	ErrRestrictedVariable
	// ErrRestrictedCall covers calls to a forbidden function name.
	ErrRestrictedCall
	// ErrRestrictedAssignment covers assignments of a forbidden name or of a
	// call to a forbidden function.
	ErrRestrictedAssignment
	// ErrLoopRangeExceeded is returned when a literal range loop would
	// iterate more times than the configured bound allows.
	ErrLoopRangeExceeded
	// ErrRecursiveStructure is returned when evaluation builds or encounters
	// a self-referential composite.
	ErrRecursiveStructure
	// ErrDivisionByZero is returned when a division's right operand
	// evaluates to zero against the live context.
	ErrDivisionByZero
	// ErrCannotEvaluate is the fail-closed result for any expression the
	// sandbox has no handler for.
	ErrCannotEvaluate
	// ErrRender wraps failures from the external render primitive, including
	// strict-undefined violations.
	ErrRender
	// ErrUnsupportedFormatType is returned for format types outside [0,4].
	ErrUnsupportedFormatType
	// ErrMemoryLimitExceeded is returned when formatted output exceeds the
	// post-render memory ceiling.
	ErrMemoryLimitExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case ErrFileTooLarge:
		return "file too large"
	case ErrBinaryContent:
		return "binary content detected"
	case ErrInvalidEncoding:
		return "invalid encoding"
	case ErrSyntax:
		return "syntax error"
	case ErrRestrictedTag:
		return "restricted tag"
	case ErrRestrictedAttribute:
		return "restricted attribute"
	case ErrRestrictedVariable:
		return "restricted variable"
	case ErrRestrictedCall:
		return "restricted call"
	case ErrRestrictedAssignment:
		return "restricted assignment"
	case ErrLoopRangeExceeded:
		return "loop range exceeded"
	case ErrRecursiveStructure:
		return "recursive structure"
	case ErrDivisionByZero:
		return "division by zero"
	case ErrCannotEvaluate:
		return "cannot evaluate expression"
	case ErrRender:
		return "render error"
	case ErrUnsupportedFormatType:
		return "unsupported format type"
	case ErrMemoryLimitExceeded:
		return "memory limit exceeded"
	default:
		return "error"
	}
}

// Error carries one classified validation or render failure. Message strings
// are part of the observable contract; callers may compare them verbatim.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a sandbox error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}
