// Package constexpr evaluates initializer expressions once the values
// they depend on are known.
//
// The decoder records every initializer expression as an unevaluated
// span. Global initializers may read imported globals, so evaluation can
// only happen at instantiation, after imports are resolved:
//
//	globals, err := constexpr.EvalGlobals(m, importedValues)
//
// Only opcodes registered in the module's feature set are accepted.
package constexpr

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
	wbin "github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// Value is the result of a constant expression. Numbers are stored as
// raw bits in Lo; v128 uses Lo and Hi; references store the function index
// in Lo unless Null is set.
type Value struct {
	Lo   uint64
	Hi   uint64
	Type wasm.ValType
	Null bool
}

// I32 returns an i32 value.
func I32(v int32) Value { return Value{Type: wasm.ValI32, Lo: uint64(uint32(v))} }

// I64 returns an i64 value.
func I64(v int64) Value { return Value{Type: wasm.ValI64, Lo: uint64(v)} }

// F32 returns an f32 value.
func F32(v float32) Value { return Value{Type: wasm.ValF32, Lo: uint64(math.Float32bits(v))} }

// F64 returns an f64 value.
func F64(v float64) Value { return Value{Type: wasm.ValF64, Lo: math.Float64bits(v)} }

// FuncRef returns a non-null function reference.
func FuncRef(idx uint32) Value { return Value{Type: wasm.ValFuncRef, Lo: uint64(idx)} }

// NullRef returns the null reference of type t.
func NullRef(t wasm.ValType) Value { return Value{Type: t, Null: true} }

// AsI32 returns the value as int32.
func (v Value) AsI32() int32 { return int32(uint32(v.Lo)) }

// AsI64 returns the value as int64.
func (v Value) AsI64() int64 { return int64(v.Lo) }

// AsF32 returns the value as float32.
func (v Value) AsF32() float32 { return math.Float32frombits(uint32(v.Lo)) }

// AsF64 returns the value as float64.
func (v Value) AsF64() float64 { return math.Float64frombits(v.Lo) }

func (v Value) String() string {
	switch {
	case v.Null:
		return fmt.Sprintf("%s:null", v.Type)
	case v.Type == wasm.ValI32:
		return fmt.Sprintf("i32:%d", v.AsI32())
	case v.Type == wasm.ValI64:
		return fmt.Sprintf("i64:%d", v.AsI64())
	case v.Type == wasm.ValF32:
		return fmt.Sprintf("f32:%g", v.AsF32())
	case v.Type == wasm.ValF64:
		return fmt.Sprintf("f64:%g", v.AsF64())
	case v.Type == wasm.ValV128:
		return fmt.Sprintf("v128:0x%016x%016x", v.Hi, v.Lo)
	default:
		return fmt.Sprintf("%s:%d", v.Type, v.Lo)
	}
}

// Env supplies the globals an expression may read, in index order.
type Env struct {
	Globals []Value
}

func fail(code errors.Code, pos int) *errors.Builder {
	return errors.New(errors.PhaseEval, code).At(pos)
}

// Eval evaluates the expression at span expr of m.
func Eval(m *wasm.Module, expr wasm.Span, env Env) (Value, error) {
	src, set := m.Raw(), m.Features()
	if !expr.IsSet() || expr.End > len(src) {
		return Value{}, fail(errors.CodeTerminatorNotFound, expr.End).Detail("empty expression").Build()
	}

	var stack []Value
	pop2 := func(pos int, t wasm.ValType) (Value, Value, error) {
		if len(stack) < 2 {
			return Value{}, Value{}, fail(errors.CodeConstStackMismatch, pos).
				Context(errors.Depth{Got: uint32(len(stack)), Want: 2}).
				Build()
		}
		a, b := stack[len(stack)-2], stack[len(stack)-1]
		stack = stack[:len(stack)-2]
		if a.Type != t || b.Type != t {
			return Value{}, Value{}, fail(errors.CodeConstTypeMismatch, pos).
				Context(errors.TypeCode{Code: byte(t)}).
				Build()
		}
		return a, b, nil
	}

	pos, end := expr.Begin, expr.End
	for pos < end {
		opPos := pos
		op := src[pos]
		pos++

		if op == wasm.OpEnd {
			if pos != end {
				return Value{}, fail(errors.CodeConstStackMismatch, opPos).
					Detail("end before the last byte of the expression").
					Build()
			}
			if len(stack) != 1 {
				return Value{}, fail(errors.CodeConstStackMismatch, opPos).
					Context(errors.Depth{Got: uint32(len(stack)), Want: 1}).
					Build()
			}
			return stack[0], nil
		}
		if _, ok := set.ConstOp(op); !ok {
			return Value{}, fail(errors.CodeInvalidConstOpcode, opPos).
				Context(errors.TypeCode{Code: op}).
				Build()
		}

		var err error
		switch op {
		case wasm.OpI32Const:
			var v int32
			v, pos, err = wbin.S32(src, pos, end)
			stack = append(stack, I32(v))
		case wasm.OpI64Const:
			var v int64
			v, pos, err = wbin.S64(src, pos, end)
			stack = append(stack, I64(v))
		case wasm.OpF32Const:
			var bits uint32
			bits, pos, err = wbin.U32LE(src, pos, end)
			stack = append(stack, Value{Type: wasm.ValF32, Lo: uint64(bits)})
		case wasm.OpF64Const:
			var raw []byte
			raw, pos, err = wbin.Bytes(src, pos, end, 8)
			if err == nil {
				stack = append(stack, Value{Type: wasm.ValF64, Lo: binary.LittleEndian.Uint64(raw)})
			}
		case wasm.OpGlobalGet:
			var idx uint32
			idx, pos, err = wbin.U32(src, pos, end)
			if err == nil && uint64(idx) >= uint64(len(env.Globals)) {
				return Value{}, fail(errors.CodeGlobalIndexOutOfRange, opPos).
					Context(errors.Index{Index: idx, Limit: uint32(len(env.Globals))}).
					Build()
			}
			if err == nil {
				stack = append(stack, env.Globals[idx])
			}
		case wasm.OpRefNull:
			var heap int64
			heap, pos, err = wbin.S33(src, pos, end)
			if err == nil {
				t, ok := refType(heap)
				if !ok {
					return Value{}, fail(errors.CodeConstTypeMismatch, opPos+1).
						Detail("unknown heap type %d", heap).
						Build()
				}
				stack = append(stack, NullRef(t))
			}
		case wasm.OpRefFunc:
			var idx uint32
			idx, pos, err = wbin.U32(src, pos, end)
			if err == nil && idx >= m.NumFuncs() {
				return Value{}, fail(errors.CodeIndexOutOfRange, opPos).
					Context(errors.Index{Index: idx, Limit: m.NumFuncs()}).
					Build()
			}
			stack = append(stack, FuncRef(idx))
		case wasm.OpI32Add, wasm.OpI32Sub, wasm.OpI32Mul:
			var a, b Value
			if a, b, err = pop2(opPos, wasm.ValI32); err != nil {
				return Value{}, err
			}
			stack = append(stack, I32(arith32(op, a.AsI32(), b.AsI32())))
		case wasm.OpI64Add, wasm.OpI64Sub, wasm.OpI64Mul:
			var a, b Value
			if a, b, err = pop2(opPos, wasm.ValI64); err != nil {
				return Value{}, err
			}
			stack = append(stack, I64(arith64(op, a.AsI64(), b.AsI64())))
		case wasm.OpPrefixSIMD:
			var v Value
			v, pos, err = v128Const(src, pos, end)
			stack = append(stack, v)
		default:
			return Value{}, fail(errors.CodeInvalidConstOpcode, opPos).
				Context(errors.TypeCode{Code: op}).
				Detail("opcode has no evaluator").
				Build()
		}
		if err != nil {
			return Value{}, err
		}
	}
	return Value{}, fail(errors.CodeTerminatorNotFound, end).Build()
}

func refType(heap int64) (wasm.ValType, bool) {
	switch heap {
	case -0x10:
		return wasm.ValFuncRef, true
	case -0x11:
		return wasm.ValExtern, true
	default:
		return 0, false
	}
}

func arith32(op byte, a, b int32) int32 {
	switch op {
	case wasm.OpI32Add:
		return a + b
	case wasm.OpI32Sub:
		return a - b
	default:
		return a * b
	}
}

func arith64(op byte, a, b int64) int64 {
	switch op {
	case wasm.OpI64Add:
		return a + b
	case wasm.OpI64Sub:
		return a - b
	default:
		return a * b
	}
}

func v128Const(src []byte, pos, end int) (Value, int, error) {
	sub, next, err := wbin.U32(src, pos, end)
	if err != nil {
		return Value{}, pos, err
	}
	if sub != wasm.SimdV128Const {
		return Value{}, pos, fail(errors.CodeInvalidConstOpcode, pos).
			Detail("simd sub-opcode 0x%x is not constant", sub).
			Build()
	}
	raw, next, err := wbin.Bytes(src, next, end, 16)
	if err != nil {
		return Value{}, pos, err
	}
	return Value{
		Type: wasm.ValV128,
		Lo:   binary.LittleEndian.Uint64(raw[:8]),
		Hi:   binary.LittleEndian.Uint64(raw[8:]),
	}, next, nil
}

// EvalGlobals evaluates every defined global of m in index order. imported
// holds the values of the imported globals; each initializer sees the
// imports and the globals defined before it. The result covers the whole
// global index space.
func EvalGlobals(m *wasm.Module, imported []Value) ([]Value, error) {
	want := m.ImportedGlobals()
	if len(imported) != len(want) {
		return nil, fail(errors.CodeGlobalIndexOutOfRange, m.Imports.Span.Begin).
			Context(errors.CountPair{Got: uint32(len(imported)), Want: uint32(len(want))}).
			Detail("imported global values").
			Build()
	}
	for i, gt := range want {
		if imported[i].Type != gt.ValType {
			return nil, fail(errors.CodeConstTypeMismatch, m.Imports.Span.Begin).
				Context(errors.TypeCode{Code: byte(imported[i].Type)}).
				Detail("imported global %d is %s, want %s", i, imported[i].Type, gt.ValType).
				Build()
		}
	}

	values := make([]Value, 0, len(imported)+m.Globals.Len())
	values = append(values, imported...)
	for i, g := range m.Globals.Entries {
		v, err := Eval(m, g.Init, Env{Globals: values})
		if err != nil {
			return nil, err
		}
		if v.Type != g.Type.ValType {
			return nil, fail(errors.CodeConstTypeMismatch, g.Init.Begin).
				Context(errors.TypeCode{Code: byte(v.Type)}).
				Detail("global %d is %s, initializer yields %s", len(imported)+i, g.Type.ValType, v.Type).
				Build()
		}
		values = append(values, v)
	}
	return values, nil
}

// Offset evaluates a data or element segment offset.
func Offset(m *wasm.Module, expr wasm.Span, env Env) (uint64, error) {
	v, err := Eval(m, expr, env)
	if err != nil {
		return 0, err
	}
	switch v.Type {
	case wasm.ValI32:
		return uint64(uint32(v.Lo)), nil
	case wasm.ValI64:
		return v.Lo, nil
	default:
		return 0, fail(errors.CodeConstTypeMismatch, expr.Begin).
			Context(errors.TypeCode{Code: byte(v.Type)}).
			Detail("offset must be an integer").
			Build()
	}
}
