package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHeader  Phase = "header"  // magic and version
	PhaseSection Phase = "section" // section framing and section bodies
	PhaseCompose Phase = "compose" // feature set composition
	PhaseEval    Phase = "eval"    // deferred init expression evaluation
	PhaseLoad    Phase = "load"    // hand-off to the execution engine
)

// Error is the structured error type used throughout the decoder.
// It is created at the first violated invariant and never partially populated.
type Error struct {
	Context  Context
	Cause    error
	Phase    Phase
	Section  string
	Detail   string
	Position int
	Code     Code
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(e.Code.String())

	if e.Phase != PhaseCompose {
		fmt.Fprintf(&b, " at offset 0x%x", e.Position)
	}

	if e.Section != "" {
		b.WriteString(" in ")
		b.WriteString(e.Section)
		b.WriteString(" section")
	}

	if e.Context != nil {
		b.WriteString(" (")
		b.WriteString(e.Context.String())
		b.WriteByte(')')
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

// Is reports whether target matches this error.
// A target with an empty Phase matches on Code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the code of the first *Error in err's chain, or CodeNone.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, code Code) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Code:  code,
		},
	}
}

// At sets the byte offset into the input
func (b *Builder) At(pos int) *Builder {
	b.err.Position = pos
	return b
}

// Section sets the diagnostic section name
func (b *Builder) Section(name string) *Builder {
	b.err.Section = name
	return b
}

// Context sets the structured payload
func (b *Builder) Context(c Context) *Builder {
	b.err.Context = c
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

// UnexpectedEnd creates an end-of-input error at pos.
func UnexpectedEnd(pos int) *Error {
	return &Error{
		Phase:    PhaseSection,
		Code:     CodeUnexpectedEndOfInput,
		Position: pos,
	}
}

// IntegerTooLarge creates an integer overflow error for a LEB128 of the given bit width.
func IntegerTooLarge(pos int, bits int) *Error {
	return &Error{
		Phase:    PhaseSection,
		Code:     CodeIntegerTooLarge,
		Position: pos,
		Detail:   fmt.Sprintf("value does not fit in %d bits", bits),
	}
}

// Duplicate creates a duplicate section error pointing at the section id byte.
func Duplicate(pos int, section string, id byte) *Error {
	return &Error{
		Phase:    PhaseSection,
		Code:     CodeDuplicateSection,
		Position: pos,
		Section:  section,
		Context:  SectionID{ID: id},
	}
}

// CountOverflow creates an imported+defined overflow error.
func CountOverflow(pos int, section string, kind byte, defined, imported uint32) *Error {
	return &Error{
		Phase:    PhaseSection,
		Code:     CodeImportDefinedCountOverflow,
		Position: pos,
		Section:  section,
		Context:  ImportDefined{Kind: kind, Defined: defined, Imported: imported},
	}
}

// Compose creates a feature composition error.
func Compose(code Code, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseCompose,
		Code:   code,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Load creates an engine hand-off error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Code:   CodeEngineRejected,
		Detail: detail,
		Cause:  cause,
	}
}

// WithSection returns err with its section name filled in when it is an
// *Error that has none yet. Other errors are returned unchanged.
func WithSection(err error, section string) error {
	var e *Error
	if errors.As(err, &e) && e.Section == "" {
		e.Section = section
	}
	return err
}
