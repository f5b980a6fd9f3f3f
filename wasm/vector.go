package wasm

import (
	stderrors "errors"
	"math"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// SectionContext is what a section handler sees: the module under
// construction and the payload bounds [Begin, End) within Src.
type SectionContext struct {
	Module *Module
	Set    *Set
	Src    []byte
	Name   string
	IDPos  int
	Begin  int
	End    int
	ID     byte
}

// Span returns the payload span.
func (c *SectionContext) Span() Span {
	return Span{Begin: c.Begin, End: c.End}
}

// Fail starts an error for this section at pos.
func (c *SectionContext) Fail(code errors.Code, pos int) *errors.Builder {
	return errors.New(errors.PhaseSection, code).At(pos).Section(c.Name)
}

// Claim records the payload span on s. A section whose span is already
// set has been seen before and fails with a duplicate section error.
func Claim[E any](c *SectionContext, s *Section[E]) error {
	if s.Span.IsSet() {
		return errors.Duplicate(c.IDPos, c.Name, c.ID)
	}
	s.Span = c.Span()
	s.Name = c.Name
	s.ID = c.ID
	return nil
}

// EntryDecoder decodes one vector entry starting at pos and returns the
// offset after it. It must not read at or past c.End.
type EntryDecoder[E any] func(c *SectionContext, pos int) (E, int, error)

// Vector describes a counted-vector section.
type Vector[E any] struct {
	Entry EntryDecoder[E]
	// CountCode is reported when the entry count cannot be decoded.
	CountCode errors.Code
	// Counted sections add their declared count to the imports of Kind.
	Counted bool
	Kind    ExternKind
}

// DecodeVector decodes a counted-vector section into s:
// claim the span, read the count, check it against the platform and the
// imported entities of the same kind, then decode entries until the
// payload is exhausted. The declared count is an upper bound checked
// before each entry and must match exactly at the end.
func DecodeVector[E any](c *SectionContext, s *Section[E], v Vector[E]) error {
	if err := Claim(c, s); err != nil {
		return err
	}

	count, pos, err := binary.U32(c.Src, c.Begin, c.End)
	if err != nil {
		return c.Fail(v.CountCode, errorPos(err, c.Begin)).
			Cause(err).
			Detail("cannot decode entry count").
			Build()
	}

	if uint64(count) > uint64(math.MaxInt) {
		return c.Fail(errors.CodeSizeExceedsPlatformLimit, c.Begin).
			Context(errors.Count{Value: count}).
			Build()
	}

	if v.Counted {
		imported := c.Module.ImportCounts.Of(v.Kind)
		if uint64(count)+uint64(imported) > math.MaxUint32 {
			return errors.CountOverflow(c.Begin, c.Name, byte(v.Kind), count, imported)
		}
	}

	// every entry takes at least one byte
	s.Entries = make([]E, 0, min(int(count), c.End-pos))

	var resolved uint32
	for pos < c.End {
		if resolved == count {
			return c.Fail(errors.CodeResolvedCountExceedsDeclared, pos).
				Context(errors.CountPair{Got: resolved + 1, Want: count}).
				Build()
		}
		resolved++

		e, next, err := v.Entry(c, pos)
		if err != nil {
			return errors.WithSection(err, c.Name)
		}
		s.Entries = append(s.Entries, e)
		pos = next
	}

	if resolved != count {
		return c.Fail(errors.CodeResolvedCountMismatch, c.End).
			Context(errors.CountPair{Got: resolved, Want: count}).
			Build()
	}
	return nil
}

func errorPos(err error, fallback int) int {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Position
	}
	return fallback
}
