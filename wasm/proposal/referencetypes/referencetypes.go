// Package referencetypes adds externref, reference constant expressions,
// expression-based element segments and multiple tables.
package referencetypes

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/wasm"
)

// Feature is the reference types proposal. Element segments built from
// expressions reuse the passive and declarative modes of bulk memory.
var Feature = wasm.Feature{
	Name:       "reference-types",
	Requires:   []string{"bulk-memory"},
	Core:       api.CoreFeatureReferenceTypes,
	Policies:   wasm.PolicyMultiTable,
	ValueTypes: []wasm.ValueTypeDef{{Type: wasm.ValExtern, Name: "externref"}},
	ConstOps: []wasm.ConstOp{
		{Opcode: wasm.OpRefNull, Name: "ref.null", Skip: wasm.SkipLEB(33)},
		{Opcode: wasm.OpRefFunc, Name: "ref.func", Skip: wasm.SkipLEB(32)},
	},
	ElemModes: []wasm.ElemModeDef{
		{Flags: 4, Name: "active exprs", Decode: activeExprs},
		{Flags: 5, Name: "passive exprs", Decode: passiveExprs},
		{Flags: 6, Name: "active explicit exprs", Decode: explicitExprs},
		{Flags: 7, Name: "declarative exprs", Decode: declarativeExprs},
	},
}

func activeExprs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	offset, next, err := wasm.ScanConstExpr(c.Set, c.Src, pos, c.End)
	if err != nil {
		return pos, err
	}
	exprs, next, err := wasm.DecodeConstExprs(c, next)
	if err != nil {
		return pos, err
	}
	seg.Mode = wasm.ElemActive
	seg.Offset = offset
	seg.ElemType = wasm.ValFuncRef
	seg.Exprs = exprs
	return next, nil
}

// refTypeExprs reads a reference type followed by expressions.
func refTypeExprs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	rt, next, err := wasm.DecodeRefType(c, pos)
	if err != nil {
		return pos, err
	}
	exprs, next, err := wasm.DecodeConstExprs(c, next)
	if err != nil {
		return pos, err
	}
	seg.ElemType = rt
	seg.Exprs = exprs
	return next, nil
}

func passiveExprs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	seg.Mode = wasm.ElemPassive
	return refTypeExprs(c, pos, seg)
}

func declarativeExprs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
	seg.Mode = wasm.ElemDeclarative
	return refTypeExprs(c, pos, seg)
}

func explicitExprs(c *wasm.SectionContext, pos int, seg *wasm.Element) (int, error) {
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
	return refTypeExprs(c, next, seg)
}
