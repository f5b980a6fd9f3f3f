// Package wasmtest builds WebAssembly binaries for tests.
//
// Payload helpers return byte slices that compose with Cat and Vec, so a
// section reads close to its binary layout:
//
//	bin := wasmtest.New().
//	    Section(wasm.SectionType, wasmtest.Vec(wasmtest.FuncType(nil, nil))).
//	    Bytes()
package wasmtest

import (
	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// Module accumulates a binary module.
type Module struct {
	w *binary.Writer
}

// New starts a module with a valid header.
func New() *Module {
	w := binary.NewWriter()
	w.WriteBytes(Header())
	return &Module{w: w}
}

// Empty returns a module without a header, for malformed preambles.
func Empty() *Module {
	return &Module{w: binary.NewWriter()}
}

// Bytes returns the encoded module.
func (m *Module) Bytes() []byte {
	return m.w.Bytes()
}

// Section appends a section whose payload is the concatenation of parts.
func (m *Module) Section(id byte, parts ...[]byte) *Module {
	m.w.WriteSection(id, Cat(parts...))
	return m
}

// Custom appends a custom section.
func (m *Module) Custom(name string, payload []byte) *Module {
	return m.Section(wasm.SectionCustom, Name(name), payload)
}

// Raw appends bytes verbatim.
func (m *Module) Raw(b ...byte) *Module {
	m.w.WriteBytes(b)
	return m
}

// Header returns the eight byte module preamble.
func Header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

// Cat concatenates byte slices.
func Cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Vec encodes a vector: the entry count followed by the entries.
func Vec(entries ...[]byte) []byte {
	return Cat(append([][]byte{U32(uint32(len(entries)))}, entries...)...)
}

// U32 encodes an unsigned LEB128 value.
func U32(v uint32) []byte {
	return binary.AppendU32(nil, v)
}

// U64 encodes an unsigned LEB128 value.
func U64(v uint64) []byte {
	w := binary.NewWriter()
	w.WriteU64(v)
	return w.Bytes()
}

// S32 encodes a signed LEB128 value.
func S32(v int32) []byte {
	w := binary.NewWriter()
	w.WriteS32(v)
	return w.Bytes()
}

// S64 encodes a signed LEB128 value.
func S64(v int64) []byte {
	w := binary.NewWriter()
	w.WriteS64(v)
	return w.Bytes()
}

// Name encodes a length-prefixed name.
func Name(s string) []byte {
	w := binary.NewWriter()
	w.WriteName(s)
	return w.Bytes()
}

// ValTypes encodes a vector of value types.
func ValTypes(types ...wasm.ValType) []byte {
	out := U32(uint32(len(types)))
	for _, t := range types {
		out = append(out, byte(t))
	}
	return out
}

// FuncType encodes a function type entry.
func FuncType(params, results []wasm.ValType) []byte {
	return Cat([]byte{wasm.FuncTypeByte}, ValTypes(params...), ValTypes(results...))
}

// Limits encodes table or memory limits. A nil max omits the maximum.
func Limits(lo uint32, hi *uint32) []byte {
	if hi == nil {
		return Cat([]byte{0x00}, U32(lo))
	}
	return Cat([]byte{wasm.LimitsHasMax}, U32(lo), U32(*hi))
}

// Global encodes a global entry: type, mutability and the init expression.
func Global(vt wasm.ValType, mutable bool, init []byte) []byte {
	mut := byte(0)
	if mutable {
		mut = 1
	}
	return Cat([]byte{byte(vt), mut}, init)
}

// Import encodes an import entry with a raw descriptor.
func Import(module, name string, kind wasm.ExternKind, desc ...byte) []byte {
	return Cat(Name(module), Name(name), []byte{byte(kind)}, desc)
}

// Export encodes an export entry.
func Export(name string, kind wasm.ExternKind, idx uint32) []byte {
	return Cat(Name(name), []byte{byte(kind)}, U32(idx))
}

// Body encodes a code entry with no locals and the given instructions
// followed by end.
func Body(instrs ...byte) []byte {
	code := Cat([]byte{0x00}, instrs, []byte{wasm.OpEnd})
	return Cat(U32(uint32(len(code))), code)
}

// I32Const encodes the expression i32.const v; end.
func I32Const(v int32) []byte {
	return Cat([]byte{wasm.OpI32Const}, S32(v), []byte{wasm.OpEnd})
}

// I64Const encodes the expression i64.const v; end.
func I64Const(v int64) []byte {
	return Cat([]byte{wasm.OpI64Const}, S64(v), []byte{wasm.OpEnd})
}

// GlobalGet encodes the expression global.get idx; end.
func GlobalGet(idx uint32) []byte {
	return Cat([]byte{wasm.OpGlobalGet}, U32(idx), []byte{wasm.OpEnd})
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Minimal returns a module with one function of type [] -> [] exported
// as "run".
func Minimal() []byte {
	return New().
		Section(wasm.SectionType, Vec(FuncType(nil, nil))).
		Section(wasm.SectionFunction, Vec(U32(0))).
		Section(wasm.SectionExport, Vec(Export("run", wasm.KindFunc, 0))).
		Section(wasm.SectionCode, Vec(Body())).
		Bytes()
}
