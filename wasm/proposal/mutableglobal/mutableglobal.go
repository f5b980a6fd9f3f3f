// Package mutableglobal allows importing and exporting mutable globals.
package mutableglobal

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/wasm"
)

// Feature is the import/export of mutable globals proposal.
var Feature = wasm.Feature{
	Name:     "mutable-global",
	Core:     api.CoreFeatureMutableGlobal,
	Policies: wasm.PolicyMutableGlobal,
}
