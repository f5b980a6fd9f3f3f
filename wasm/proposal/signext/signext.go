// Package signext enables the sign-extension operators.
//
// The operators only appear in function bodies, which are not decoded
// here, so the feature contributes nothing but its engine flag.
package signext

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/wasm"
)

var Feature = wasm.Feature{
	Name: "sign-extension",
	Core: api.CoreFeatureSignExtensionOps,
}
