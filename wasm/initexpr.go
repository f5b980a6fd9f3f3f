package wasm

import (
	"bytes"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// ScanConstExpr locates the constant expression starting at pos and
// returns its span, end opcode included, and the offset after it. The
// expression is not evaluated. Opcodes registered in set have their
// immediates stepped over, so an immediate byte equal to the end opcode is
// not mistaken for the terminator. An opcode the set does not know, or an
// immediate its skipper rejects, ends the stepping and the rest is searched
// byte by byte for the end opcode; whether the expression is valid is for
// evaluation to decide. The scan never reads at or past end.
func ScanConstExpr(set *Set, src []byte, pos, end int) (Span, int, error) {
	begin := pos
	for pos < end {
		op := src[pos]
		if op == OpEnd {
			return Span{Begin: begin, End: pos + 1}, pos + 1, nil
		}
		pos++
		def, ok := set.ConstOp(op)
		if !ok {
			return scanForEnd(src, begin, pos, end)
		}
		if def.Skip == nil {
			continue
		}
		next, err := def.Skip(src, pos, end)
		if err != nil {
			return scanForEnd(src, begin, pos, end)
		}
		pos = next
	}
	return Span{}, end, terminatorNotFound(begin, end)
}

func scanForEnd(src []byte, begin, pos, end int) (Span, int, error) {
	if i := bytes.IndexByte(src[pos:end], OpEnd); i >= 0 {
		next := pos + i + 1
		return Span{Begin: begin, End: next}, next, nil
	}
	return Span{}, end, terminatorNotFound(begin, end)
}

func terminatorNotFound(begin, end int) error {
	return errors.New(errors.PhaseSection, errors.CodeTerminatorNotFound).
		At(end).
		Detail("constant expression starting at 0x%x has no end opcode", begin).
		Build()
}

// SkipFixed returns a skipper for n immediate bytes.
func SkipFixed(n int) func(src []byte, pos, end int) (int, error) {
	return func(src []byte, pos, end int) (int, error) {
		_, next, err := binary.Bytes(src, pos, end, n)
		return next, err
	}
}

// SkipLEB returns a skipper for one LEB128 immediate of the given width.
func SkipLEB(bits int) func(src []byte, pos, end int) (int, error) {
	return func(src []byte, pos, end int) (int, error) {
		return binary.Skip(src, pos, end, bits)
	}
}

var standardConstOps = []ConstOp{
	{Opcode: OpI32Const, Name: "i32.const", Skip: SkipLEB(32)},
	{Opcode: OpI64Const, Name: "i64.const", Skip: SkipLEB(64)},
	{Opcode: OpF32Const, Name: "f32.const", Skip: SkipFixed(4)},
	{Opcode: OpF64Const, Name: "f64.const", Skip: SkipFixed(8)},
	{Opcode: OpGlobalGet, Name: "global.get", Skip: SkipLEB(32)},
}
