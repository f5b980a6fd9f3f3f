// Package features holds the pre-composed feature sets.
//
// Sets are composed during package initialization: a conflicting or
// incomplete configuration panics before any module is decoded.
package features

import (
	"fmt"
	"sort"

	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/bulkmemory"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/custompagesize"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/exceptions"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/extendedconst"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/memory64"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/multimemory"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/multivalue"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/mutableglobal"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/nontrapping"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/referencetypes"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/signext"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/simd"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/threads"
)

// All lists every known feature in composition order.
var All = []wasm.Feature{
	wasm.Standard,
	mutableglobal.Feature,
	signext.Feature,
	nontrapping.Feature,
	multivalue.Feature,
	bulkmemory.Feature,
	referencetypes.Feature,
	simd.Feature,
	extendedconst.Feature,
	threads.Feature,
	memory64.Feature,
	multimemory.Feature,
	custompagesize.Feature,
	exceptions.Feature,
}

var (
	// Default accepts every supported proposal.
	Default = wasm.MustCompose(All...)

	// MVP accepts WebAssembly 1.0 modules only.
	MVP = wasm.MustCompose(wasm.Standard)
)

var presets = map[string]*wasm.Set{
	"default": Default,
	"mvp":     MVP,
}

// Preset returns the set registered under name.
func Preset(name string) (*wasm.Set, error) {
	if s, ok := presets[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown feature preset %q (want one of %v)", name, PresetNames())
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
