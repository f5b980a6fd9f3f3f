// Package multimemory allows more than one memory per module.
package multimemory

import "github.com/wippyai/wasm-binfmt/wasm"

// Feature is the multi-memory proposal. wazero has no flag for it.
var Feature = wasm.Feature{
	Name:     "multi-memory",
	Policies: wasm.PolicyMultiMemory,
}
