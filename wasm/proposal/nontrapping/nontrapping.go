// Package nontrapping enables the saturating float-to-int conversions.
// Like sign extension it only affects function bodies.
package nontrapping

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/wasm"
)

var Feature = wasm.Feature{
	Name: "nontrapping-float-to-int",
	Core: api.CoreFeatureNonTrappingFloatToIntConversion,
}
