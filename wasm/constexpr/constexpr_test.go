package constexpr_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/constexpr"
	"github.com/wippyai/wasm-binfmt/wasm/features"
	. "github.com/wippyai/wasm-binfmt/wasm/wasmtest"
)

func decode(t *testing.T, bin []byte) *wasm.Module {
	t.Helper()
	m, err := wasm.NewDecoder(features.Default).Decode(bin)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return m
}

// globalModule returns a module with one defined global of type vt
// initialized by init, plus one function so ref.func has a target.
func globalModule(t *testing.T, vt wasm.ValType, init []byte) *wasm.Module {
	t.Helper()
	return decode(t, New().
		Section(wasm.SectionType, Vec(FuncType(nil, nil))).
		Section(wasm.SectionFunction, Vec(U32(0))).
		Section(wasm.SectionGlobal, Vec(Global(vt, false, init))).
		Section(wasm.SectionCode, Vec(Body())).
		Bytes())
}

func TestEval(t *testing.T) {
	v128 := make([]byte, 16)
	for i := range v128 {
		v128[i] = byte(i + 1)
	}

	tests := []struct {
		name string
		vt   wasm.ValType
		init []byte
		want constexpr.Value
	}{
		{name: "i32", vt: wasm.ValI32, init: I32Const(-5), want: constexpr.I32(-5)},
		{name: "i64", vt: wasm.ValI64, init: I64Const(1 << 40), want: constexpr.I64(1 << 40)},
		{
			name: "f32",
			vt:   wasm.ValF32,
			init: Cat([]byte{wasm.OpF32Const}, binary.LittleEndian.AppendUint32(nil, math.Float32bits(1.5)), []byte{wasm.OpEnd}),
			want: constexpr.F32(1.5),
		},
		{
			name: "f64",
			vt:   wasm.ValF64,
			init: Cat([]byte{wasm.OpF64Const}, binary.LittleEndian.AppendUint64(nil, math.Float64bits(-0.25)), []byte{wasm.OpEnd}),
			want: constexpr.F64(-0.25),
		},
		{
			name: "i32 arithmetic",
			vt:   wasm.ValI32,
			init: Cat([]byte{wasm.OpI32Const}, S32(6), []byte{wasm.OpI32Const}, S32(7), []byte{wasm.OpI32Mul},
				[]byte{wasm.OpI32Const}, S32(2), []byte{wasm.OpI32Sub, wasm.OpEnd}),
			want: constexpr.I32(40),
		},
		{
			name: "i64 wraps",
			vt:   wasm.ValI64,
			init: Cat([]byte{wasm.OpI64Const}, S64(math.MaxInt64), []byte{wasm.OpI64Const}, S64(1), []byte{wasm.OpI64Add, wasm.OpEnd}),
			want: constexpr.I64(math.MinInt64),
		},
		{
			name: "ref.null func",
			vt:   wasm.ValFuncRef,
			init: []byte{wasm.OpRefNull, byte(wasm.ValFuncRef), wasm.OpEnd},
			want: constexpr.NullRef(wasm.ValFuncRef),
		},
		{
			name: "ref.null extern",
			vt:   wasm.ValExtern,
			init: []byte{wasm.OpRefNull, byte(wasm.ValExtern), wasm.OpEnd},
			want: constexpr.NullRef(wasm.ValExtern),
		},
		{
			name: "ref.func",
			vt:   wasm.ValFuncRef,
			init: Cat([]byte{wasm.OpRefFunc}, U32(0), []byte{wasm.OpEnd}),
			want: constexpr.FuncRef(0),
		},
		{
			name: "v128",
			vt:   wasm.ValV128,
			init: Cat([]byte{wasm.OpPrefixSIMD, byte(wasm.SimdV128Const)}, v128, []byte{wasm.OpEnd}),
			want: constexpr.Value{
				Type: wasm.ValV128,
				Lo:   binary.LittleEndian.Uint64(v128[:8]),
				Hi:   binary.LittleEndian.Uint64(v128[8:]),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := globalModule(t, tt.vt, tt.init)
			got, err := constexpr.Eval(m, m.Globals.Entries[0].Init, constexpr.Env{})
			if err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name string
		init []byte
		code errors.Code
	}{
		{
			name: "operand types differ",
			init: Cat([]byte{wasm.OpI32Const}, S32(1), []byte{wasm.OpI64Const}, S64(2), []byte{wasm.OpI32Add, wasm.OpEnd}),
			code: errors.CodeConstTypeMismatch,
		},
		{
			name: "two values left",
			init: Cat([]byte{wasm.OpI32Const}, S32(1), []byte{wasm.OpI32Const}, S32(2), []byte{wasm.OpEnd}),
			code: errors.CodeConstStackMismatch,
		},
		{
			name: "add with one operand",
			init: Cat([]byte{wasm.OpI32Const}, S32(1), []byte{wasm.OpI32Add, wasm.OpEnd}),
			code: errors.CodeConstStackMismatch,
		},
		{
			name: "global.get without globals",
			init: GlobalGet(5),
			code: errors.CodeGlobalIndexOutOfRange,
		},
		{
			name: "ref.func past the function space",
			init: Cat([]byte{wasm.OpRefFunc}, U32(3), []byte{wasm.OpEnd}),
			code: errors.CodeIndexOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := globalModule(t, wasm.ValI32, tt.init)
			_, err := constexpr.Eval(m, m.Globals.Entries[0].Init, constexpr.Env{})
			if !errors.IsCode(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
			if e, ok := err.(*errors.Error); !ok || e.Phase != errors.PhaseEval {
				t.Errorf("error %v is not an eval error", err)
			}
		})
	}
}

func TestEvalErrorContext(t *testing.T) {
	tests := []struct {
		name string
		init []byte
		want errors.Context
	}{
		{
			name: "ref.func past the function space",
			init: Cat([]byte{wasm.OpRefFunc}, U32(3), []byte{wasm.OpEnd}),
			want: errors.Index{Index: 3, Limit: 1},
		},
		{
			name: "global.get without globals",
			init: GlobalGet(5),
			want: errors.Index{Index: 5, Limit: 0},
		},
		{
			name: "add with one operand",
			init: Cat([]byte{wasm.OpI32Const}, S32(1), []byte{wasm.OpI32Add, wasm.OpEnd}),
			want: errors.Depth{Got: 1, Want: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := globalModule(t, wasm.ValI32, tt.init)
			_, err := constexpr.Eval(m, m.Globals.Entries[0].Init, constexpr.Env{})
			e, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("error = %v", err)
			}
			if diff := cmp.Diff(tt.want, e.Context); diff != "" {
				t.Errorf("context (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvalErrorPosition(t *testing.T) {
	// header 8, section id and size 2, count 1, valtype and mutability 2:
	// the initializer starts at 13 and i32.add sits at 17.
	m := decode(t, New().
		Section(wasm.SectionGlobal, Vec(Global(wasm.ValI32, false,
			Cat([]byte{wasm.OpI32Const}, S32(1), []byte{wasm.OpI64Const}, S64(2), []byte{wasm.OpI32Add, wasm.OpEnd})))).
		Bytes())
	init := m.Globals.Entries[0].Init
	if init.Begin != 13 {
		t.Fatalf("init span = %v", init)
	}
	_, err := constexpr.Eval(m, init, constexpr.Env{})
	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("error = %v", err)
	}
	if e.Position != 17 {
		t.Errorf("position = %d, want 17", e.Position)
	}
}

func TestEvalRejectsNonConstOpcodes(t *testing.T) {
	m := decode(t, New().Custom("x", []byte{0x20, 0x00, wasm.OpEnd}).Bytes())
	_, err := constexpr.Eval(m, m.Customs[0].Payload, constexpr.Env{})
	if !errors.IsCode(err, errors.CodeInvalidConstOpcode) {
		t.Errorf("error = %v", err)
	}

	if _, err := constexpr.Eval(m, wasm.Span{}, constexpr.Env{}); !errors.IsCode(err, errors.CodeTerminatorNotFound) {
		t.Errorf("empty span error = %v", err)
	}
}

func TestEvalRejectsOpcodesOutsideTheSet(t *testing.T) {
	// the decoder records the initializer; i32.add is only constant with
	// extended const, so evaluation under MVP refuses it
	init := Cat([]byte{wasm.OpI32Const}, S32(1), []byte{wasm.OpI32Const}, S32(2), []byte{wasm.OpI32Add, wasm.OpEnd})
	m, err := wasm.NewDecoder(features.MVP).Decode(New().
		Section(wasm.SectionGlobal, Vec(Global(wasm.ValI32, false, init))).
		Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	_, err = constexpr.Eval(m, m.Globals.Entries[0].Init, constexpr.Env{})
	if !errors.IsCode(err, errors.CodeInvalidConstOpcode) {
		t.Fatalf("error = %v, want invalid_const_opcode", err)
	}
	// header 8, section 2, count 1, global type 2, two i32.const 4
	if p := err.(*errors.Error).Position; p != 17 {
		t.Errorf("position = %d, want 17", p)
	}
}

func importedGlobalModule(t *testing.T, vt wasm.ValType) *wasm.Module {
	t.Helper()
	return decode(t, New().
		Section(wasm.SectionImport, Vec(Import("env", "base", wasm.KindGlobal, byte(wasm.ValI32), 0x00))).
		Section(wasm.SectionGlobal, Vec(
			Global(vt, false, Cat([]byte{wasm.OpGlobalGet}, U32(0), []byte{wasm.OpI32Const}, S32(5), []byte{wasm.OpI32Add, wasm.OpEnd})),
			Global(vt, false, GlobalGet(1)),
		)).
		Bytes())
}

func TestEvalGlobals(t *testing.T) {
	m := importedGlobalModule(t, wasm.ValI32)

	got, err := constexpr.EvalGlobals(m, []constexpr.Value{constexpr.I32(10)})
	if err != nil {
		t.Fatalf("EvalGlobals: %v", err)
	}
	want := []constexpr.Value{constexpr.I32(10), constexpr.I32(15), constexpr.I32(15)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("globals (-want +got):\n%s", diff)
	}
}

func TestEvalGlobalsErrors(t *testing.T) {
	m := importedGlobalModule(t, wasm.ValI32)

	if _, err := constexpr.EvalGlobals(m, nil); !errors.IsCode(err, errors.CodeGlobalIndexOutOfRange) {
		t.Errorf("missing import error = %v", err)
	}
	if _, err := constexpr.EvalGlobals(m, []constexpr.Value{constexpr.I64(10)}); !errors.IsCode(err, errors.CodeConstTypeMismatch) {
		t.Errorf("import type error = %v", err)
	}

	declaredI64 := importedGlobalModule(t, wasm.ValI64)
	if _, err := constexpr.EvalGlobals(declaredI64, []constexpr.Value{constexpr.I32(1)}); !errors.IsCode(err, errors.CodeConstTypeMismatch) {
		t.Errorf("declared type error = %v", err)
	}
}

func TestOffset(t *testing.T) {
	m := decode(t, New().
		Section(wasm.SectionMemory, Vec(Limits(1, nil))).
		Section(wasm.SectionGlobal, Vec(Global(wasm.ValF32, false,
			Cat([]byte{wasm.OpF32Const}, make([]byte, 4), []byte{wasm.OpEnd})))).
		Section(wasm.SectionData, Vec(Cat(U32(0), I32Const(-1), Name("hi")))).
		Bytes())

	off, err := constexpr.Offset(m, m.Data.Entries[0].Offset, constexpr.Env{})
	if err != nil {
		t.Fatalf("Offset: %v", err)
	}
	if off != math.MaxUint32 {
		t.Errorf("offset = %d, want i32 -1 read as unsigned", off)
	}

	if _, err := constexpr.Offset(m, m.Globals.Entries[0].Init, constexpr.Env{}); !errors.IsCode(err, errors.CodeConstTypeMismatch) {
		t.Errorf("float offset error = %v", err)
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    constexpr.Value
		want string
	}{
		{constexpr.I32(-3), "i32:-3"},
		{constexpr.I64(9), "i64:9"},
		{constexpr.NullRef(wasm.ValFuncRef), "funcref:null"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
