// Package custompagesize accepts memories with a non-default page size.
//
// The page size is encoded as its base-2 logarithm after the bounds and
// may only be 1 byte or 64 KiB.
package custompagesize

import (
	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
)

const name = "custom-page-sizes"

// Feature is the custom-page-sizes proposal.
var Feature = wasm.Feature{
	Name: name,
	LimitFlags: []wasm.LimitFlagDef{{
		Bit:     wasm.LimitsCustomPageSize,
		Name:    "page-size",
		Trailer: decodePageSize,
	}},
}

// PageSizeLog2 returns the declared page size exponent, if any.
func PageSizeLog2(l wasm.Limits) (uint32, bool) {
	v, ok := l.Attrs.Get(name)
	if !ok {
		return 0, false
	}
	log2, ok := v.(uint32)
	return log2, ok
}

// PageSize returns the memory page size in bytes.
func PageSize(l wasm.Limits) uint64 {
	if log2, ok := PageSizeLog2(l); ok {
		return 1 << log2
	}
	return 1 << wasm.DefaultPageSizeLog2
}

func decodePageSize(c *wasm.SectionContext, pos int, l *wasm.Limits, b *wasm.MemoryBounds) (int, error) {
	log2, next, err := wasm.DecodeU32(c, pos)
	if err != nil {
		return pos, err
	}
	if log2 != 0 && log2 != wasm.DefaultPageSizeLog2 {
		return pos, c.Fail(errors.CodeInvalidPageSize, pos).
			Context(errors.Count{Value: log2}).
			Detail("page size must be 1 or 65536 bytes").
			Build()
	}
	l.Attrs.Set(name, log2)
	// a 32-bit memory still addresses at most 4 GiB
	if !b.Wide {
		b.MaxPages = (uint64(1) << 32) >> log2
	}
	return next, nil
}
