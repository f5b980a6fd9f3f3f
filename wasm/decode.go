package wasm

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for section tracing.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		d.log = l
	}
}

// Decoder decodes binary modules with a fixed feature set. The set is
// chosen when the decoder is built and cannot change per call. A Decoder
// holds no per-parse state and is safe for concurrent use.
type Decoder struct {
	set *Set
	log *zap.Logger
}

// NewDecoder creates a decoder for the given feature set.
func NewDecoder(set *Set, opts ...Option) *Decoder {
	d := &Decoder{set: set}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = Logger()
	}
	return d
}

// Features returns the decoder's feature set.
func (d *Decoder) Features() *Set {
	return d.set
}

// Decode parses a complete binary module. On failure it returns an
// *errors.Error and no module. The returned module borrows data.
func (d *Decoder) Decode(data []byte) (*Module, error) {
	m, err := d.decode(data)
	if err != nil {
		d.log.Debug("decode failed", zap.Int("size", len(data)), zap.Error(err))
		return nil, err
	}
	d.log.Debug("decoded module",
		zap.Int("size", len(data)),
		zap.Int("sections", len(m.Layout)))
	return m, nil
}

func (d *Decoder) decode(data []byte) (*Module, error) {
	if err := checkHeader(data); err != nil {
		return nil, err
	}

	m := newModule(d.set, data)
	m.Header = Header{Magic: Magic, Version: Version}

	var (
		seen      [256]bool
		lastOrder int
	)
	pos := HeaderSize
	for pos < len(data) {
		idPos := pos
		id := data[pos]
		pos++

		size, next, err := binary.U32(data, pos, len(data))
		if err != nil {
			return nil, errors.WithSection(err, d.set.SectionName(id))
		}
		if remaining := len(data) - next; uint64(size) > uint64(remaining) {
			return nil, errors.New(errors.PhaseSection, errors.CodeSectionSizeExceedsInput).
				At(pos).
				Section(d.set.SectionName(id)).
				Context(errors.Size{Value: uint64(size), Limit: uint64(remaining)}).
				Build()
		}

		def, ok := d.set.Section(id)
		if !ok {
			return nil, errors.New(errors.PhaseSection, errors.CodeUnknownSectionID).
				At(idPos).
				Context(errors.SectionID{ID: id}).
				Build()
		}
		if id != SectionCustom {
			if seen[id] {
				return nil, errors.Duplicate(idPos, def.Name, id)
			}
			if def.Order < lastOrder {
				return nil, errors.New(errors.PhaseSection, errors.CodeSectionOutOfOrder).
					At(idPos).
					Section(def.Name).
					Context(errors.SectionID{ID: id}).
					Build()
			}
			seen[id] = true
			lastOrder = def.Order
		}

		c := &SectionContext{
			Module: m,
			Set:    d.set,
			Src:    data,
			Name:   def.Name,
			IDPos:  idPos,
			Begin:  next,
			End:    next + int(size),
			ID:     id,
		}
		if ce := d.log.Check(zap.DebugLevel, "section"); ce != nil {
			ce.Write(
				zap.String("name", def.Name),
				zap.Uint8("id", id),
				zap.Int("offset", idPos),
				zap.Uint32("size", size))
		}
		if err := def.Decode(c); err != nil {
			return nil, errors.WithSection(err, def.Name)
		}

		m.Layout = append(m.Layout, SectionHeader{
			Name:   def.Name,
			Span:   c.Span(),
			Offset: idPos,
			ID:     id,
		})
		pos = c.End
	}

	for _, chk := range d.set.checks {
		if err := chk.Check(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// checkHeader reports the exact offset of the first mismatching byte.
func checkHeader(data []byte) error {
	for i, want := range magicBytes {
		if i >= len(data) {
			return headerEnd(len(data))
		}
		if data[i] != want {
			return errors.New(errors.PhaseHeader, errors.CodeInvalidMagic).
				At(i).
				Context(errors.TypeCode{Code: data[i]}).
				Detail("expected \\0asm").
				Build()
		}
	}
	for i, want := range versionBytes {
		off := len(magicBytes) + i
		if off >= len(data) {
			return headerEnd(len(data))
		}
		if data[off] != want {
			return errors.New(errors.PhaseHeader, errors.CodeUnsupportedVersion).
				At(off).
				Context(errors.TypeCode{Code: data[off]}).
				Detail("only version %d is supported", Version).
				Build()
		}
	}
	return nil
}

func headerEnd(pos int) error {
	err := errors.UnexpectedEnd(pos)
	err.Phase = errors.PhaseHeader
	return err
}
