// Package threads accepts shared memories.
package threads

import (
	"github.com/tetratelabs/wazero/experimental"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
)

const name = "threads"

// Feature is the threads proposal. Shared memories must declare a maximum.
var Feature = wasm.Feature{
	Name: name,
	Core: experimental.CoreFeaturesThreads,
	LimitFlags: []wasm.LimitFlagDef{{
		Bit:   wasm.LimitsShared,
		Name:  "shared",
		Apply: func(l *wasm.Limits, _ *wasm.MemoryBounds) { l.Attrs.Set(name, true) },
		Check: checkShared,
	}},
}

// Shared reports whether the memory limits carry the shared flag.
func Shared(l wasm.Limits) bool {
	v, _ := l.Attrs.Get(name)
	shared, _ := v.(bool)
	return shared
}

func checkShared(c *wasm.SectionContext, pos int, l *wasm.Limits) error {
	if l.Max == nil {
		return c.Fail(errors.CodeInvalidLimitsFlags, pos).
			Detail("shared memory must declare a maximum").
			Build()
	}
	return nil
}
