package wasm

import (
	"github.com/wippyai/wasm-binfmt/errors"
)

// Whole-module checks run after the last section has been decoded.
var standardChecks = []ModuleCheck{
	{Name: "code count", Check: checkCodeCount},
	{Name: "type indices", Check: checkTypeIndices},
	{Name: "start function", Check: checkStart},
	{Name: "export indices", Check: checkExportIndices},
	{Name: "element indices", Check: checkElementIndices},
	{Name: "data indices", Check: checkDataIndices},
}

func checkFail(code errors.Code, s Span, section string) *errors.Builder {
	return errors.New(errors.PhaseSection, code).At(s.Begin).Section(section)
}

func indexOutOfRange(s Span, section string, idx, limit uint32, format string, args ...any) error {
	return checkFail(errors.CodeIndexOutOfRange, s, section).
		Context(errors.Index{Index: idx, Limit: limit}).
		Detail(format, args...).
		Build()
}

func checkCodeCount(m *Module) error {
	funcs, bodies := m.Functions.Len(), m.Code.Len()
	if funcs == bodies {
		return nil
	}
	at, name := m.Code.Span, "code"
	if !m.Code.Present() {
		at, name = m.Functions.Span, "function"
	}
	return checkFail(errors.CodeFunctionCodeCountMismatch, at, name).
		Context(errors.CountPair{Got: uint32(bodies), Want: uint32(funcs)}).
		Build()
}

func checkTypeIndices(m *Module) error {
	numTypes := uint32(m.Types.Len())
	for i, typeIdx := range m.Functions.Entries {
		if typeIdx >= numTypes {
			return indexOutOfRange(m.Functions.Span, "function", typeIdx, numTypes,
				"function %d references type %d", i, typeIdx)
		}
	}
	for i, imp := range m.Imports.Entries {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIndex >= numTypes {
			return indexOutOfRange(m.Imports.Span, "import", imp.Desc.TypeIndex, numTypes,
				"import %d (%s.%s) references type %d", i, imp.Module, imp.Name, imp.Desc.TypeIndex)
		}
	}
	return nil
}

func checkStart(m *Module) error {
	idx, ok := m.StartFunction()
	if !ok {
		return nil
	}
	if n := m.NumFuncs(); idx >= n {
		return indexOutOfRange(m.Start.Span, "start", idx, n, "start function %d", idx)
	}
	ft, ok := m.FuncType(idx)
	if ok && (len(ft.Params) != 0 || len(ft.Results) != 0) {
		return checkFail(errors.CodeInvalidStartSignature, m.Start.Span, "start").
			Detail("start function %d has type %s", idx, ft).
			Build()
	}
	return nil
}

func checkExportIndices(m *Module) error {
	for i, exp := range m.Exports.Entries {
		var limit uint32
		switch exp.Kind {
		case KindFunc:
			limit = m.NumFuncs()
		case KindTable:
			limit = m.NumTables()
		case KindMemory:
			limit = m.NumMemories()
		case KindGlobal:
			limit = m.NumGlobals()
		default:
			// proposal kinds check their own index spaces
			continue
		}
		if exp.Index >= limit {
			return indexOutOfRange(m.Exports.Span, "export", exp.Index, limit,
				"export %d (%s) references %s %d", i, exp.Name, exp.Kind, exp.Index)
		}
	}
	return nil
}

func checkElementIndices(m *Module) error {
	numFuncs, numTables := m.NumFuncs(), m.NumTables()
	for i, elem := range m.Elements.Entries {
		if elem.Mode == ElemActive && elem.Table >= numTables {
			return indexOutOfRange(m.Elements.Span, "element", elem.Table, numTables,
				"element %d references table %d", i, elem.Table)
		}
		for j, funcIdx := range elem.FuncIndices {
			if funcIdx >= numFuncs {
				return indexOutOfRange(m.Elements.Span, "element", funcIdx, numFuncs,
					"element %d, entry %d references function %d", i, j, funcIdx)
			}
		}
	}
	return nil
}

func checkDataIndices(m *Module) error {
	numMemories := m.NumMemories()
	for i, seg := range m.Data.Entries {
		if seg.Mode == DataActive && seg.Memory >= numMemories {
			return indexOutOfRange(m.Data.Span, "data", seg.Memory, numMemories,
				"data segment %d references memory %d", i, seg.Memory)
		}
	}
	return nil
}
