package wasmbinfmt

import (
	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/features"
)

var defaultDecoder = wasm.NewDecoder(features.Default)

// Parse decodes a module with every supported proposal enabled.
func Parse(data []byte) (*wasm.Module, error) {
	return defaultDecoder.Decode(data)
}

// ParseMVP decodes a module accepting WebAssembly 1.0 only.
func ParseMVP(data []byte) (*wasm.Module, error) {
	return wasm.NewDecoder(features.MVP).Decode(data)
}

// ParseStripped decodes a module, retrying once without its custom
// sections when the first attempt fails inside one.
func ParseStripped(data []byte) (*wasm.Module, error) {
	m, err := Parse(data)
	if err == nil {
		return m, nil
	}
	stripped, serr := wasm.StripCustomSections(data)
	if serr != nil || len(stripped) == len(data) {
		return nil, err
	}
	return Parse(stripped)
}
