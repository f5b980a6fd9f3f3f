// Package simd adds the v128 value type and v128.const.
package simd

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// Feature is the fixed-width SIMD proposal.
var Feature = wasm.Feature{
	Name:       "simd",
	Core:       api.CoreFeatureSIMD,
	ValueTypes: []wasm.ValueTypeDef{{Type: wasm.ValV128, Name: "v128"}},
	ConstOps: []wasm.ConstOp{
		{Opcode: wasm.OpPrefixSIMD, Name: "v128.const", Skip: skipV128Const},
	},
}

// skipV128Const steps over the sub-opcode and the 16 byte immediate. Only
// v128.const is a constant instruction under the prefix.
func skipV128Const(src []byte, pos, end int) (int, error) {
	sub, next, err := binary.U32(src, pos, end)
	if err != nil {
		return pos, err
	}
	if sub != wasm.SimdV128Const {
		return pos, errors.New(errors.PhaseSection, errors.CodeInvalidConstOpcode).
			At(pos).
			Context(errors.TypeCode{Code: wasm.OpPrefixSIMD}).
			Detail("simd sub-opcode 0x%x is not constant", sub).
			Build()
	}
	_, next, err = binary.Bytes(src, next, end, 16)
	return next, err
}
