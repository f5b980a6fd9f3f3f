// Package multivalue allows function types with more than one result.
package multivalue

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/wasm"
)

// Feature is the multi-value proposal.
var Feature = wasm.Feature{
	Name:     "multi-value",
	Core:     api.CoreFeatureMultiValue,
	Policies: wasm.PolicyMultiValue,
}
