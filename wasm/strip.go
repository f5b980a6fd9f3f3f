package wasm

import (
	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// StripCustomSections re-emits the module without its custom sections.
// Every other section is copied verbatim, so the result decodes to the same
// module minus Customs.
func (m *Module) StripCustomSections() []byte {
	w := binary.NewWriter()
	w.WriteBytes(m.data[:HeaderSize])
	for _, h := range m.Layout {
		if h.ID == SectionCustom {
			continue
		}
		w.WriteSection(h.ID, m.Bytes(h.Span))
	}
	return w.Bytes()
}

// StripCustomSections removes custom sections from a raw module without
// decoding section bodies, so it also works on inputs whose custom
// sections fail to decode. Callers use it to retry such a load.
func StripCustomSections(data []byte) ([]byte, error) {
	if err := checkHeader(data); err != nil {
		return nil, err
	}
	w := binary.NewWriter()
	w.WriteBytes(data[:HeaderSize])
	pos := HeaderSize
	for pos < len(data) {
		id := data[pos]
		size, next, err := binary.U32(data, pos+1, len(data))
		if err != nil {
			return nil, err
		}
		if remaining := len(data) - next; uint64(size) > uint64(remaining) {
			return nil, errors.New(errors.PhaseSection, errors.CodeSectionSizeExceedsInput).
				At(pos + 1).
				Context(errors.Size{Value: uint64(size), Limit: uint64(remaining)}).
				Build()
		}
		end := next + int(size)
		if id != SectionCustom {
			w.WriteSection(id, data[next:end])
		}
		pos = end
	}
	return w.Bytes(), nil
}
