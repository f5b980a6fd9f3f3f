// Package extendedconst allows integer add, sub and mul in constant
// expressions.
package extendedconst

import "github.com/wippyai/wasm-binfmt/wasm"

// Feature is the extended constant expressions proposal.
var Feature = wasm.Feature{
	Name: "extended-const",
	ConstOps: []wasm.ConstOp{
		{Opcode: wasm.OpI32Add, Name: "i32.add"},
		{Opcode: wasm.OpI32Sub, Name: "i32.sub"},
		{Opcode: wasm.OpI32Mul, Name: "i32.mul"},
		{Opcode: wasm.OpI64Add, Name: "i64.add"},
		{Opcode: wasm.OpI64Sub, Name: "i64.sub"},
		{Opcode: wasm.OpI64Mul, Name: "i64.mul"},
	},
}
