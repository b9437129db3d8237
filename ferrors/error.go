// Package ferrors defines the error taxonomy shared by every subsystem:
// shape resolution, the partial builder, the solver, the coroutine
// deserializer, and the wire-format codecs. Every error surfaced across a
// package boundary is a *Error so callers can switch on Kind instead of
// string-matching messages.
package ferrors

import (
	"fmt"
	"strings"
)

// Kind is a closed set of error categories (§7 of the design spec). Kinds
// are grouped below in the same order as the spec's table so the groups
// stay easy to cross-reference.
type Kind int

const (
	// Lexing
	UnexpectedChar Kind = iota
	UnexpectedEOF
	InvalidUTF8

	// Parser -> deserializer routing
	UnexpectedToken

	// Shape mismatch
	TypeMismatch
	ShapeMismatch
	NumberOutOfRange
	InvalidValue
	CannotBorrow

	// Struct / enum
	UnknownField
	UnknownVariant
	InvalidVariant
	NoMatchingVariant
	MissingField
	DuplicateField

	// Reflection
	Reflect

	// Infrastructure
	Unsupported
	InvalidOperation
	IO
	Solver
	Validation
	Bug
	Alloc
	Materialize
	RawCaptureNotSupported
	TooManyBytes
	TooManyVariants
)

var kindNames = [...]string{
	"unexpected character",
	"unexpected end of input",
	"invalid UTF-8",
	"unexpected token",
	"type mismatch",
	"shape mismatch",
	"number out of range",
	"invalid value",
	"cannot borrow",
	"unknown field",
	"unknown variant",
	"invalid variant",
	"no matching variant",
	"missing field",
	"duplicate field",
	"reflection error",
	"unsupported operation",
	"invalid operation",
	"I/O error",
	"solver error",
	"validation error",
	"internal bug",
	"allocation error",
	"materialization error",
	"raw capture not supported",
	"too many bytes",
	"too many variants",
}

// String renders the kind the way it appears in a formatted error.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "unknown error"
	}
	return kindNames[k]
}

// Span is a byte range into the input a parser was reading when an error
// occurred. End is exclusive; a zero-width span has Start == End.
type Span struct {
	Start int
	End   int
}

// Valid reports whether the span carries real position information.
func (s Span) Valid() bool { return s.End > 0 || s.Start > 0 }

// Error is the error type every package in this module returns. It pairs a
// Kind with a human message, an optional structural path (the dot-separated
// chain of field names/indices from the root, built from the Partial's or
// Peek's frame stack), and an optional byte span.
//
// Error accumulates context the way the teacher's EnhancedError/CompileError
// pair did (chained With* calls), but the payload is a path+span rather than
// a source-file snippet: nothing here ever re-reads a file from disk.
type Error struct {
	Kind       Kind
	Message    string
	Path       string // dot-separated, e.g. "inner.items[2].name"
	Span       Span
	Suggestion string

	// Wrapped is the underlying error this one enriches, if any (e.g. an
	// io.Reader error surfaced as Kind IO).
	Wrapped error
}

// New creates a bare error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under the given kind, preserving it for
// errors.Unwrap.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithPath returns a copy of e with Path set. Building a path is cheap
// enough (string concatenation bounded by nesting depth) that callers
// build it incrementally as an error propagates up the frame stack.
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// PrependField returns a copy of e with a field segment prepended to Path,
// used as an error bubbles up one frame in the Partial/Peek stack.
func (e *Error) PrependField(name string) *Error {
	cp := *e
	if cp.Path == "" {
		cp.Path = name
	} else if strings.HasPrefix(cp.Path, "[") {
		cp.Path = name + cp.Path
	} else {
		cp.Path = name + "." + cp.Path
	}
	return &cp
}

// PrependIndex returns a copy of e with an index segment ("[3]") prepended
// to Path, used when bubbling up out of a list item or map entry frame.
func (e *Error) PrependIndex(idx int) *Error {
	cp := *e
	cp.Path = fmt.Sprintf("[%d]%s", idx, pathSuffix(cp.Path))
	return &cp
}

func pathSuffix(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "[") {
		return path
	}
	return "." + path
}

// WithSpan returns a copy of e with Span set.
func (e *Error) WithSpan(span Span) *Error {
	cp := *e
	cp.Span = span
	return &cp
}

// WithSuggestion returns a copy of e with a suggestion attached.
func (e *Error) WithSuggestion(s string) *Error {
	cp := *e
	cp.Suggestion = s
	return &cp
}

// Error renders "<kind> <message> at <path> at <span>" per §6.5/§7,
// omitting the path/span clauses when they carry no information.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Span.Valid() {
		fmt.Fprintf(&b, " at byte %d..%d", e.Span.Start, e.Span.End)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (%s)", e.Suggestion)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, ": %v", e.Wrapped)
	}
	return b.String()
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, ferrors.New(ferrors.MissingField, "")) style checks
// by kind alone. Only Kind is compared; message/path/span are ignored.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
