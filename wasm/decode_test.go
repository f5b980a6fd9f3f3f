package wasm_test

import (
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/features"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/exceptions"
	. "github.com/wippyai/wasm-binfmt/wasm/wasmtest"
)

func decode(t *testing.T, set *wasm.Set, bin []byte) *wasm.Module {
	t.Helper()
	m, err := wasm.NewDecoder(set).Decode(bin)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return m
}

// decodeErr decodes bin expecting a failure and returns the error record.
func decodeErr(t *testing.T, set *wasm.Set, bin []byte) *errors.Error {
	t.Helper()
	m, err := wasm.NewDecoder(set).Decode(bin)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if m != nil {
		t.Error("failed decode returned a module")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("error %v (%T) is not *errors.Error", err, err)
	}
	return e
}

func expectCode(t *testing.T, e *errors.Error, code errors.Code, pos int) {
	t.Helper()
	if e.Code != code {
		t.Fatalf("code = %s, want %s (%v)", e.Code, code, e)
	}
	if e.Position != pos {
		t.Errorf("position = 0x%x, want 0x%x (%v)", e.Position, pos, e)
	}
}

func TestDecodeEmptyModule(t *testing.T) {
	m := decode(t, features.Default, Header())
	if m.Header.Magic != wasm.Magic || m.Header.Version != wasm.Version {
		t.Errorf("header = %+v", m.Header)
	}
	if len(m.Layout) != 0 {
		t.Errorf("layout = %v, want empty", m.Layout)
	}
	if m.Types.Present() {
		t.Error("type section reported present")
	}
	if m.Source != (wasm.Span{Begin: 0, End: 8}) {
		t.Errorf("source = %v", m.Source)
	}
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		code  errors.Code
		pos   int
	}{
		{"asmx magic", []byte("asmx\x01\x00\x00\x00"), errors.CodeInvalidMagic, 0},
		{"third magic byte", []byte{0x00, 0x61, 0x00, 0x6D, 0x01, 0x00, 0x00, 0x00}, errors.CodeInvalidMagic, 2},
		{"version 2", []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}, errors.CodeUnsupportedVersion, 4},
		{"high version byte", []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x01}, errors.CodeUnsupportedVersion, 7},
		{"truncated magic", []byte{0x00, 0x61, 0x73}, errors.CodeUnexpectedEndOfInput, 3},
		{"truncated version", []byte{0x00, 0x61, 0x73, 0x6D, 0x01}, errors.CodeUnexpectedEndOfInput, 5},
		{"empty", nil, errors.CodeUnexpectedEndOfInput, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeErr(t, features.Default, tt.input)
			expectCode(t, e, tt.code, tt.pos)
			if e.Phase != errors.PhaseHeader {
				t.Errorf("phase = %s, want header", e.Phase)
			}
		})
	}
}

func TestDecodeGlobalEntry(t *testing.T) {
	// header(8) | id @8 | size @9 | count @10 | i32 @11 | mut @12 | expr @13..16
	bin := New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x41, 0x05, 0x0B}).Bytes()
	m := decode(t, features.Default, bin)

	want := []wasm.GlobalEntry{{
		Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: false},
		Init: wasm.Span{Begin: 13, End: 16},
	}}
	if diff := cmp.Diff(want, m.Globals.Entries); diff != "" {
		t.Errorf("globals mismatch (-want +got):\n%s", diff)
	}
	if got := m.Bytes(m.Globals.Entries[0].Init); !cmp.Equal(got, []byte{0x41, 0x05, 0x0B}) {
		t.Errorf("init bytes = % x", got)
	}
	if m.Globals.Span != (wasm.Span{Begin: 10, End: 16}) {
		t.Errorf("section span = %v", m.Globals.Span)
	}
	if m.Globals.Span.End != len(bin) {
		t.Errorf("section does not end at input end")
	}
}

func TestDecodeCountMismatchAtSectionEnd(t *testing.T) {
	bin := New().Section(wasm.SectionGlobal, []byte{0x02, 0x7F, 0x00, 0x41, 0x05, 0x0B}).Bytes()
	e := decodeErr(t, features.Default, bin)
	expectCode(t, e, errors.CodeResolvedCountMismatch, 16)
	if diff := cmp.Diff(errors.Context(errors.CountPair{Got: 1, Want: 2}), e.Context); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
	if e.Section != "global" {
		t.Errorf("section = %q", e.Section)
	}
}

func TestDecodeMoreEntriesThanDeclared(t *testing.T) {
	// count 1, two function type indices; the second starts at offset 12
	bin := New().Section(wasm.SectionFunction, []byte{0x01, 0x00, 0x00}).Bytes()
	e := decodeErr(t, features.Default, bin)
	expectCode(t, e, errors.CodeResolvedCountExceedsDeclared, 12)
	if diff := cmp.Diff(errors.Context(errors.CountPair{Got: 2, Want: 1}), e.Context); diff != "" {
		t.Errorf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeHugeCountDoesNotAllocate(t *testing.T) {
	bin := New().Section(wasm.SectionGlobal, U32(math.MaxUint32)).Bytes()
	e := decodeErr(t, features.Default, bin)
	expectCode(t, e, errors.CodeResolvedCountMismatch, len(bin))
}

func TestDecodeImportDefinedOverflow(t *testing.T) {
	tests := []struct {
		name    string
		kind    wasm.ExternKind
		desc    []byte
		section byte
	}{
		{name: "function", kind: wasm.KindFunc, desc: U32(0), section: wasm.SectionFunction},
		{name: "table", kind: wasm.KindTable, desc: Cat([]byte{byte(wasm.ValFuncRef)}, Limits(0, nil)), section: wasm.SectionTable},
		{name: "memory", kind: wasm.KindMemory, desc: Limits(1, nil), section: wasm.SectionMemory},
		{name: "global", kind: wasm.KindGlobal, desc: []byte{byte(wasm.ValI32), 0x00}, section: wasm.SectionGlobal},
		{name: "tag", kind: exceptions.KindTag, desc: []byte{0x00, 0x00}, section: wasm.SectionTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := Import("env", "x", tt.kind, tt.desc...)
			bin := New().
				Section(wasm.SectionImport, Vec(imp)).
				Section(tt.section, U32(math.MaxUint32)).
				Bytes()
			// import section payload starts at 10 and holds the count byte
			// and the entry; the next section's payload follows its id and
			// one-byte size
			payload := 10 + 1 + len(imp) + 2
			e := decodeErr(t, features.Default, bin)
			expectCode(t, e, errors.CodeImportDefinedCountOverflow, payload)
			want := errors.ImportDefined{Kind: byte(tt.kind), Defined: math.MaxUint32, Imported: 1}
			if diff := cmp.Diff(errors.Context(want), e.Context); diff != "" {
				t.Errorf("context mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeImportCounts(t *testing.T) {
	bin := New().
		Section(wasm.SectionType, Vec(FuncType(nil, nil))).
		Section(wasm.SectionImport, Vec(
			Import("env", "f", wasm.KindFunc, 0x00),
			Import("env", "g", wasm.KindFunc, 0x00),
			Import("env", "mem", wasm.KindMemory, Limits(1, nil)...),
			Import("env", "x", wasm.KindGlobal, byte(wasm.ValI64), 0x00),
		)).
		Section(wasm.SectionFunction, Vec(U32(0))).
		Section(wasm.SectionCode, Vec(Body())).
		Bytes()
	m := decode(t, features.MVP, bin)

	want := wasm.ImportCounts{wasm.KindFunc: 2, wasm.KindMemory: 1, wasm.KindGlobal: 1}
	if diff := cmp.Diff(want, m.ImportCounts); diff != "" {
		t.Errorf("import counts mismatch (-want +got):\n%s", diff)
	}
	if m.NumFuncs() != 3 {
		t.Errorf("NumFuncs = %d, want 3", m.NumFuncs())
	}
	if m.NumMemories() != 1 || m.NumTables() != 0 || m.NumGlobals() != 1 {
		t.Errorf("index spaces: memories %d tables %d globals %d", m.NumMemories(), m.NumTables(), m.NumGlobals())
	}
	if ft, ok := m.FuncType(2); !ok || len(ft.Params) != 0 {
		t.Errorf("FuncType(2) = %v, %v", ft, ok)
	}
	if _, ok := m.FuncType(3); ok {
		t.Error("FuncType(3) should be out of range")
	}
}

func TestDecodeSectionFraming(t *testing.T) {
	tests := []struct {
		name string
		set  *wasm.Set
		bin  []byte
		code errors.Code
		pos  int
	}{
		{
			name: "duplicate section",
			set:  features.Default,
			bin:  New().Section(wasm.SectionType, Vec()).Section(wasm.SectionType, Vec()).Bytes(),
			code: errors.CodeDuplicateSection,
			pos:  11,
		},
		{
			name: "out of order",
			set:  features.Default,
			bin:  New().Section(wasm.SectionFunction, Vec()).Section(wasm.SectionType, Vec()).Bytes(),
			code: errors.CodeSectionOutOfOrder,
			pos:  11,
		},
		{
			name: "unknown id",
			set:  features.Default,
			bin:  New().Section(0x20, nil).Bytes(),
			code: errors.CodeUnknownSectionID,
			pos:  8,
		},
		{
			name: "datacount unknown to mvp",
			set:  features.MVP,
			bin:  New().Section(wasm.SectionDataCount, U32(0)).Bytes(),
			code: errors.CodeUnknownSectionID,
			pos:  8,
		},
		{
			name: "size exceeds input",
			set:  features.Default,
			bin:  New().Raw(wasm.SectionType, 0x05).Bytes(),
			code: errors.CodeSectionSizeExceedsInput,
			pos:  9,
		},
		{
			name: "truncated size",
			set:  features.Default,
			bin:  New().Raw(wasm.SectionType, 0x80).Bytes(),
			code: errors.CodeUnexpectedEndOfInput,
			pos:  10,
		},
		{
			name: "start trailing byte",
			set:  features.Default,
			bin:  New().Section(wasm.SectionStart, U32(0), []byte{0x00}).Bytes(),
			code: errors.CodeSectionSizeMismatch,
			pos:  11,
		},
		{
			name: "bad count encoding",
			set:  features.Default,
			bin:  New().Section(wasm.SectionType, []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}).Bytes(),
			code: errors.CodeInvalidTypeCount,
			pos:  14,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeErr(t, tt.set, tt.bin)
			expectCode(t, e, tt.code, tt.pos)
		})
	}
}

func TestDecodeCustomSectionsAnywhere(t *testing.T) {
	bin := New().
		Custom("a", []byte{1}).
		Section(wasm.SectionType, Vec(FuncType(nil, nil))).
		Custom("b", nil).
		Section(wasm.SectionFunction, Vec(U32(0))).
		Custom("a", []byte{2, 3}).
		Section(wasm.SectionCode, Vec(Body())).
		Bytes()
	m := decode(t, features.Default, bin)

	if len(m.Customs) != 3 {
		t.Fatalf("customs = %d, want 3", len(m.Customs))
	}
	var names []string
	for _, cs := range m.Customs {
		names = append(names, cs.Name)
	}
	if diff := cmp.Diff([]string{"a", "b", "a"}, names); diff != "" {
		t.Errorf("custom names (-want +got):\n%s", diff)
	}
	if got := m.Bytes(m.Customs[2].Payload); !cmp.Equal(got, []byte{2, 3}) {
		t.Errorf("payload = % x", got)
	}
	if len(m.Layout) != 6 {
		t.Errorf("layout has %d sections, want 6", len(m.Layout))
	}
}

func TestSpansDoNotOverlap(t *testing.T) {
	bin := New().
		Section(wasm.SectionType, Vec(FuncType([]wasm.ValType{wasm.ValI32}, nil), FuncType(nil, nil))).
		Section(wasm.SectionFunction, Vec(U32(0), U32(1))).
		Section(wasm.SectionMemory, Vec(Limits(1, Ptr[uint32](2)))).
		Section(wasm.SectionGlobal, Vec(Global(wasm.ValI32, true, I32Const(7)))).
		Section(wasm.SectionExport, Vec(Export("main", wasm.KindFunc, 1), Export("mem", wasm.KindMemory, 0))).
		Section(wasm.SectionStart, U32(1)).
		Section(wasm.SectionCode, Vec(Body(), Body(0x01))).
		Section(wasm.SectionData, Vec(Cat(U32(0), I32Const(16), Name("hi")))).
		Custom("trailer", nil).
		Bytes()
	m := decode(t, features.Default, bin)

	prev := wasm.Span{Begin: 0, End: wasm.HeaderSize}
	for _, h := range m.Layout {
		if h.Span.Begin < prev.End || h.Span.Overlaps(prev) {
			t.Errorf("%s section %v overlaps previous %v", h.Name, h.Span, prev)
		}
		if !m.Source.Contains(h.Span) {
			t.Errorf("%s section %v outside input", h.Name, h.Span)
		}
		prev = h.Span
	}

	for _, body := range m.Code.Entries {
		if !m.Code.Span.Contains(body.Span) || !body.Span.Contains(body.Code) {
			t.Errorf("body %v / code %v not nested in %v", body.Span, body.Code, m.Code.Span)
		}
	}
	if idx, ok := m.StartFunction(); !ok || idx != 1 {
		t.Errorf("start = %d, %v", idx, ok)
	}
	if got := m.Bytes(m.Data.Entries[0].Init); string(got) != "hi" {
		t.Errorf("data init = %q", got)
	}
}

func TestConstExprScanning(t *testing.T) {
	t.Run("immediate equal to end opcode", func(t *testing.T) {
		// i32.const 11 encodes its immediate as 0x0B
		bin := New().Section(wasm.SectionGlobal, Vec(Global(wasm.ValI32, false, I32Const(11)))).Bytes()
		m := decode(t, features.Default, bin)
		init := m.Globals.Entries[0].Init
		if got := m.Bytes(init); !cmp.Equal(got, []byte{0x41, 0x0B, 0x0B}) {
			t.Errorf("init = % x", got)
		}
	})

	t.Run("missing end stops at section end", func(t *testing.T) {
		// the following custom section carries 0x0B bytes the scan must not reach
		bin := New().
			Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x41, 0x05}).
			Custom("x", []byte{0x0B, 0x0B}).
			Bytes()
		e := decodeErr(t, features.Default, bin)
		expectCode(t, e, errors.CodeTerminatorNotFound, 15)
	})

	t.Run("truncated immediate", func(t *testing.T) {
		bin := New().Section(wasm.SectionGlobal, []byte{0x01, 0x7E, 0x00, 0x42, 0x80}).Bytes()
		e := decodeErr(t, features.Default, bin)
		expectCode(t, e, errors.CodeTerminatorNotFound, 15)
	})

	t.Run("unregistered opcode is left to evaluation", func(t *testing.T) {
		// i32.add is not a constant opcode without extended const
		bin := New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x6A, 0x0B}).Bytes()
		m := decode(t, features.MVP, bin)
		if got := m.Globals.Entries[0].Init; got != (wasm.Span{Begin: 13, End: 15}) {
			t.Errorf("init span = %v", got)
		}
	})

	t.Run("no end after an unregistered opcode", func(t *testing.T) {
		bin := New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x41, 0x05, 0xFF}).Bytes()
		e := decodeErr(t, features.Default, bin)
		expectCode(t, e, errors.CodeTerminatorNotFound, 16)
	})

	t.Run("malformed immediate falls back to a byte scan", func(t *testing.T) {
		// five continuation bytes never terminate an i32 immediate
		bin := New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x41, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x0B}).Bytes()
		m := decode(t, features.Default, bin)
		if got := m.Globals.Entries[0].Init; got != (wasm.Span{Begin: 13, End: 20}) {
			t.Errorf("init span = %v", got)
		}
	})

	t.Run("malformed immediate without end", func(t *testing.T) {
		bin := New().Section(wasm.SectionGlobal, []byte{0x01, 0x7F, 0x00, 0x41, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}).Bytes()
		e := decodeErr(t, features.Default, bin)
		expectCode(t, e, errors.CodeTerminatorNotFound, 20)
	})
}

func TestDecodeEntryErrors(t *testing.T) {
	tests := []struct {
		name string
		set  *wasm.Set
		bin  []byte
		code errors.Code
	}{
		{
			name: "bad func type form",
			set:  features.Default,
			bin:  New().Section(wasm.SectionType, Vec([]byte{0x61, 0x00, 0x00})).Bytes(),
			code: errors.CodeInvalidFuncTypeForm,
		},
		{
			name: "unknown value type",
			set:  features.Default,
			bin:  New().Section(wasm.SectionType, Vec([]byte{0x60, 0x01, 0x40, 0x00})).Bytes(),
			code: errors.CodeInvalidValueType,
		},
		{
			name: "multi value without proposal",
			set:  features.MVP,
			bin:  New().Section(wasm.SectionType, Vec(FuncType(nil, []wasm.ValType{wasm.ValI32, wasm.ValI32}))).Bytes(),
			code: errors.CodeTooManyResults,
		},
		{
			name: "invalid mutability",
			set:  features.Default,
			bin:  New().Section(wasm.SectionGlobal, Vec([]byte{0x7F, 0x02, 0x41, 0x00, 0x0B})).Bytes(),
			code: errors.CodeInvalidMutability,
		},
		{
			name: "mutable global import without proposal",
			set:  features.MVP,
			bin:  New().Section(wasm.SectionImport, Vec(Import("env", "g", wasm.KindGlobal, 0x7F, 0x01))).Bytes(),
			code: errors.CodeMutableGlobalDisabled,
		},
		{
			name: "unknown extern kind",
			set:  features.Default,
			bin:  New().Section(wasm.SectionImport, Vec(Import("env", "x", 0x09, 0x00))).Bytes(),
			code: errors.CodeInvalidExternKind,
		},
		{
			name: "limits min exceeds max",
			set:  features.Default,
			bin:  New().Section(wasm.SectionMemory, Vec(Limits(2, Ptr[uint32](1)))).Bytes(),
			code: errors.CodeLimitsMinExceedsMax,
		},
		{
			name: "too many pages",
			set:  features.Default,
			bin:  New().Section(wasm.SectionMemory, Vec(Limits(65537, nil))).Bytes(),
			code: errors.CodeMemoryPagesExceedLimit,
		},
		{
			name: "unknown limits flag",
			set:  features.MVP,
			bin:  New().Section(wasm.SectionMemory, Vec([]byte{0x02, 0x01, 0x01})).Bytes(),
			code: errors.CodeInvalidLimitsFlags,
		},
		{
			name: "two memories without proposal",
			set:  features.MVP,
			bin:  New().Section(wasm.SectionMemory, Vec(Limits(1, nil), Limits(1, nil))).Bytes(),
			code: errors.CodeMultipleMemories,
		},
		{
			name: "two tables without proposal",
			set:  features.MVP,
			bin: New().Section(wasm.SectionTable, Vec(
				Cat([]byte{byte(wasm.ValFuncRef)}, Limits(0, nil)),
				Cat([]byte{byte(wasm.ValFuncRef)}, Limits(0, nil)),
			)).Bytes(),
			code: errors.CodeMultipleTables,
		},
		{
			name: "table of i32",
			set:  features.Default,
			bin:  New().Section(wasm.SectionTable, Vec(Cat([]byte{byte(wasm.ValI32)}, Limits(0, nil)))).Bytes(),
			code: errors.CodeInvalidValueType,
		},
		{
			name: "duplicate export name",
			set:  features.Default,
			bin: New().
				Section(wasm.SectionType, Vec(FuncType(nil, nil))).
				Section(wasm.SectionFunction, Vec(U32(0))).
				Section(wasm.SectionExport, Vec(Export("run", wasm.KindFunc, 0), Export("run", wasm.KindFunc, 0))).
				Section(wasm.SectionCode, Vec(Body())).
				Bytes(),
			code: errors.CodeDuplicateExportName,
		},
		{
			name: "body without end",
			set:  features.Default,
			bin: New().
				Section(wasm.SectionType, Vec(FuncType(nil, nil))).
				Section(wasm.SectionFunction, Vec(U32(0))).
				Section(wasm.SectionCode, Vec([]byte{0x02, 0x00, 0x01})).
				Bytes(),
			code: errors.CodeTerminatorNotFound,
		},
		{
			name: "too many locals",
			set:  features.Default,
			bin: New().
				Section(wasm.SectionType, Vec(FuncType(nil, nil))).
				Section(wasm.SectionFunction, Vec(U32(0))).
				Section(wasm.SectionCode, Vec(func() []byte {
					code := Cat(U32(2),
						U32(math.MaxUint32), []byte{byte(wasm.ValI32)},
						U32(1), []byte{byte(wasm.ValI32)},
						[]byte{wasm.OpEnd})
					return Cat(U32(uint32(len(code))), code)
				}())).
				Bytes(),
			code: errors.CodeTooManyLocals,
		},
		{
			name: "passive data without bulk memory",
			set:  features.MVP,
			bin:  New().Section(wasm.SectionData, Vec(Cat(U32(1), Name("x")))).Bytes(),
			code: errors.CodeInvalidDataMode,
		},
		{
			name: "element flags without reference types",
			set:  features.MVP,
			bin:  New().Section(wasm.SectionElement, Vec(Cat(U32(4), I32Const(0), Vec()))).Bytes(),
			code: errors.CodeInvalidElementMode,
		},
		{
			name: "invalid utf-8 name",
			set:  features.Default,
			bin:  New().Section(wasm.SectionExport, Vec([]byte{0x01, 0xFF, 0x00, 0x00})).Bytes(),
			code: errors.CodeInvalidName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeErr(t, tt.set, tt.bin)
			if e.Code != tt.code {
				t.Errorf("code = %s, want %s (%v)", e.Code, tt.code, e)
			}
			if e.Section == "" {
				t.Errorf("error has no section: %v", e)
			}
		})
	}
}

func TestModuleChecks(t *testing.T) {
	typeSec := func(types ...[]byte) []byte { return Vec(types...) }
	tests := []struct {
		name string
		bin  []byte
		code errors.Code
	}{
		{
			name: "function without body",
			bin: New().
				Section(wasm.SectionType, typeSec(FuncType(nil, nil))).
				Section(wasm.SectionFunction, Vec(U32(0))).
				Bytes(),
			code: errors.CodeFunctionCodeCountMismatch,
		},
		{
			name: "body without function",
			bin:  New().Section(wasm.SectionCode, Vec(Body())).Bytes(),
			code: errors.CodeFunctionCodeCountMismatch,
		},
		{
			name: "function type out of range",
			bin: New().
				Section(wasm.SectionFunction, Vec(U32(3))).
				Section(wasm.SectionCode, Vec(Body())).
				Bytes(),
			code: errors.CodeIndexOutOfRange,
		},
		{
			name: "start out of range",
			bin:  New().Section(wasm.SectionStart, U32(0)).Bytes(),
			code: errors.CodeIndexOutOfRange,
		},
		{
			name: "start with params",
			bin: New().
				Section(wasm.SectionType, typeSec(FuncType([]wasm.ValType{wasm.ValI32}, nil))).
				Section(wasm.SectionFunction, Vec(U32(0))).
				Section(wasm.SectionStart, U32(0)).
				Section(wasm.SectionCode, Vec(Body())).
				Bytes(),
			code: errors.CodeInvalidStartSignature,
		},
		{
			name: "export out of range",
			bin:  New().Section(wasm.SectionExport, Vec(Export("f", wasm.KindFunc, 5))).Bytes(),
			code: errors.CodeIndexOutOfRange,
		},
		{
			name: "element function out of range",
			bin: New().
				Section(wasm.SectionTable, Vec(Cat([]byte{byte(wasm.ValFuncRef)}, Limits(1, nil)))).
				Section(wasm.SectionElement, Vec(Cat(U32(0), I32Const(0), Vec(U32(9))))).
				Bytes(),
			code: errors.CodeIndexOutOfRange,
		},
		{
			name: "active data without memory",
			bin:  New().Section(wasm.SectionData, Vec(Cat(U32(0), I32Const(0), Name("x")))).Bytes(),
			code: errors.CodeIndexOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decodeErr(t, features.Default, tt.bin)
			if e.Code != tt.code {
				t.Errorf("code = %s, want %s (%v)", e.Code, tt.code, e)
			}
		})
	}
}

func TestIndexErrorContext(t *testing.T) {
	bin := New().Section(wasm.SectionExport, Vec(Export("f", wasm.KindFunc, 5))).Bytes()
	e := decodeErr(t, features.Default, bin)
	if diff := cmp.Diff(errors.Context(errors.Index{Index: 5, Limit: 0}), e.Context); diff != "" {
		t.Errorf("context (-want +got):\n%s", diff)
	}
	if msg := e.Error(); !strings.Contains(msg, "index 5, limit 0") {
		t.Errorf("message %q does not name the index and limit", msg)
	}
}

func TestErrorsMatchWithIs(t *testing.T) {
	_, err := wasm.NewDecoder(features.Default).Decode([]byte("asmx\x01\x00\x00\x00"))
	if !stderrors.Is(err, &errors.Error{Code: errors.CodeInvalidMagic}) {
		t.Errorf("errors.Is did not match %v", err)
	}
	if !errors.IsCode(err, errors.CodeInvalidMagic) {
		t.Errorf("IsCode did not match %v", err)
	}
}

func TestDecodeElementAndData(t *testing.T) {
	bin := New().
		Section(wasm.SectionType, Vec(FuncType(nil, nil))).
		Section(wasm.SectionFunction, Vec(U32(0), U32(0))).
		Section(wasm.SectionTable, Vec(Cat([]byte{byte(wasm.ValFuncRef)}, Limits(2, nil)))).
		Section(wasm.SectionMemory, Vec(Limits(1, nil))).
		Section(wasm.SectionElement, Vec(Cat(U32(0), I32Const(0), Vec(U32(1), U32(0))))).
		Section(wasm.SectionCode, Vec(Body(), Body())).
		Section(wasm.SectionData, Vec(Cat(U32(0), I32Const(8), Name("abc")))).
		Bytes()
	m := decode(t, features.MVP, bin)

	elem := m.Elements.Entries[0]
	if elem.Mode != wasm.ElemActive || elem.ElemType != wasm.ValFuncRef {
		t.Errorf("element = %+v", elem)
	}
	if diff := cmp.Diff([]uint32{1, 0}, elem.FuncIndices); diff != "" {
		t.Errorf("func indices (-want +got):\n%s", diff)
	}
	if got := m.Bytes(elem.Offset); !cmp.Equal(got, I32Const(0)) {
		t.Errorf("element offset = % x", got)
	}

	seg := m.Data.Entries[0]
	if seg.Mode != wasm.DataActive || seg.Memory != 0 {
		t.Errorf("data = %+v", seg)
	}
	if got := m.Bytes(seg.Offset); !cmp.Equal(got, I32Const(8)) {
		t.Errorf("data offset = % x", got)
	}
	if got := m.Bytes(seg.Init); string(got) != "abc" {
		t.Errorf("data init = %q", got)
	}
}

func TestDecodeLocals(t *testing.T) {
	code := Cat(U32(2), U32(3), []byte{byte(wasm.ValI32)}, U32(1), []byte{byte(wasm.ValF64)}, []byte{0x01, wasm.OpEnd})
	bin := New().
		Section(wasm.SectionType, Vec(FuncType(nil, nil))).
		Section(wasm.SectionFunction, Vec(U32(0))).
		Section(wasm.SectionCode, Vec(Cat(U32(uint32(len(code))), code))).
		Bytes()
	m := decode(t, features.Default, bin)

	body := m.Code.Entries[0]
	want := []wasm.LocalEntry{{Count: 3, ValType: wasm.ValI32}, {Count: 1, ValType: wasm.ValF64}}
	if diff := cmp.Diff(want, body.Locals); diff != "" {
		t.Errorf("locals (-want +got):\n%s", diff)
	}
	if got := m.Bytes(body.Code); !cmp.Equal(got, []byte{0x01, wasm.OpEnd}) {
		t.Errorf("code = % x", got)
	}
}

func TestDecodeConcurrent(t *testing.T) {
	d := wasm.NewDecoder(features.Default)
	bin := Minimal()
	done := make(chan error, 8)
	for range 8 {
		go func() {
			_, err := d.Decode(bin)
			done <- err
		}()
	}
	for range 8 {
		if err := <-done; err != nil {
			t.Errorf("Decode: %v", err)
		}
	}
}
