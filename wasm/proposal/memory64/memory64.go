// Package memory64 accepts memories indexed by 64-bit addresses.
package memory64

import "github.com/wippyai/wasm-binfmt/wasm"

const name = "memory64"

// Feature is the memory64 proposal. Bounds of a 64-bit memory are read as
// u64 and may reach 2^48 pages.
var Feature = wasm.Feature{
	Name: name,
	LimitFlags: []wasm.LimitFlagDef{{
		Bit:  wasm.LimitsMemory64,
		Name: "memory64",
		Apply: func(l *wasm.Limits, b *wasm.MemoryBounds) {
			l.Attrs.Set(name, true)
			b.Wide = true
			b.MaxPages = wasm.MemoryMaxPages64
		},
	}},
}

// Is64 reports whether the memory limits describe a 64-bit memory.
func Is64(l wasm.Limits) bool {
	v, _ := l.Attrs.Get(name)
	wide, _ := v.(bool)
	return wide
}
