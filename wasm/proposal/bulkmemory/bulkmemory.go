// Package bulkmemory adds the data count section, passive and explicitly
// indexed data segments, and the function-index element segment modes.
package bulkmemory

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
)

// Feature is the bulk memory operations proposal.
var Feature = wasm.Feature{
	Name: "bulk-memory",
	Core: api.CoreFeatureBulkMemoryOperations,
	Sections: []wasm.SectionDef{{
		ID:     wasm.SectionDataCount,
		Name:   "datacount",
		Order:  wasm.OrderDataCount,
		Decode: decodeDataCount,
	}},
	DataModes: []wasm.DataModeDef{
		{Flags: 1, Name: "passive", Decode: passiveData},
		{Flags: 2, Name: "active explicit", Decode: explicitData},
	},
	ElemModes: []wasm.ElemModeDef{
		{Flags: 1, Name: "passive", Decode: passiveFuncs},
		{Flags: 2, Name: "active explicit", Decode: explicitFuncs},
		{Flags: 3, Name: "declarative", Decode: declarativeFuncs},
	},
	Checks: []wasm.ModuleCheck{{Name: "data count", Check: checkDataCount}},
}

// DataCount returns the data count section of m.
func DataCount(m *wasm.Module) *wasm.Section[uint32] {
	if s, ok := wasm.Lookup[wasm.Section[uint32]](m, wasm.SectionDataCount); ok {
		return s
	}
	return &wasm.Section[uint32]{}
}

func decodeDataCount(c *wasm.SectionContext) error {
	s := wasm.Ext[wasm.Section[uint32]](c.Module, wasm.SectionDataCount)
	if err := wasm.Claim(c, s); err != nil {
		return err
	}
	n, next, err := wasm.DecodeU32(c, c.Begin)
	if err != nil {
		return c.Fail(errors.CodeInvalidDataCount, c.Begin).Cause(err).Build()
	}
	if next != c.End {
		return c.Fail(errors.CodeSectionSizeMismatch, next).
			Context(errors.Size{Value: uint64(c.End - c.Begin), Limit: uint64(next - c.Begin)}).
			Build()
	}
	s.Entries = []uint32{n}
	return nil
}

func checkDataCount(m *wasm.Module) error {
	s := DataCount(m)
	if !s.Present() {
		return nil
	}
	if declared, got := s.Entries[0], uint32(m.Data.Len()); declared != got {
		at := m.Data.Span.Begin
		if !m.Data.Present() {
			at = s.Span.Begin
		}
		return errors.New(errors.PhaseSection, errors.CodeDataCountMismatch).
			At(at).
			Section("data").
			Context(errors.CountPair{Got: got, Want: declared}).
			Build()
	}
	return nil
}

func passiveData(c *wasm.SectionContext, pos int, seg *wasm.DataSegment) (int, error) {
	payload, next, err := wasm.DecodeDataInit(c, pos)
	if err != nil {
		return pos, err
	}
	seg.Mode = wasm.DataPassive
	seg.Init = payload
	return next, nil
}

func explicitData(c *wasm.SectionContext, pos int, seg *wasm.DataSegment) (int, error) {
	mem, next, err := wasm.DecodeU32(c, pos)
	if err != nil {
		return pos, err
	}
	offset, next, err := wasm.ScanConstExpr(c.Set, c.Src, next, c.End)
	if err != nil {
		return pos, err
	}
	payload, next, err := wasm.DecodeDataInit(c, next)
	if err != nil {
		return pos, err
	}
	seg.Mode = wasm.DataActive
	seg.Memory = mem
	seg.Offset = offset
	seg.Init = payload
	return next, nil
}

// elemKindFuncs reads an elemkind byte followed by function indices.
func elemKindFuncs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	kind, next, err := wasm.DecodeByte(c, pos)
	if err != nil {
		return pos, err
	}
	if kind != wasm.ElemKindFuncRef {
		return pos, c.Fail(errors.CodeInvalidElemKind, pos).
			Context(errors.TypeCode{Code: kind}).
			Build()
	}
	funcs, next, err := wasm.DecodeFuncIndices(c, next)
	if err != nil {
		return pos, err
	}
	seg.ElemType = wasm.ValFuncRef
	seg.FuncIndices = funcs
	return next, nil
}

func passiveFuncs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	seg.Mode = wasm.ElemPassive
	return elemKindFuncs(c, pos, seg)
}

func declarativeFuncs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	seg.Mode = wasm.ElemDeclarative
	return elemKindFuncs(c, pos, seg)
}

func explicitFuncs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	table, next, err := wasm.DecodeU32(c, pos)
	if err != nil {
		return pos, err
	}
	offset, next, err := wasm.ScanConstExpr(c.Set, c.Src, next, c.End)
	if err != nil {
		return pos, err
	}
	seg.Mode = wasm.ElemActive
	seg.Table = table
	seg.Offset = offset
	return elemKindFuncs(c, next, seg)
}
