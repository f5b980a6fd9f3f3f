package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wippyai/wasm-binfmt/wasm"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/bulkmemory"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/custompagesize"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/exceptions"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/memory64"
	"github.com/wippyai/wasm-binfmt/wasm/proposal/threads"
)

// entryCount returns the number of entries recorded for section id.
func entryCount(m *wasm.Module, id byte) int {
	switch id {
	case wasm.SectionType:
		return m.Types.Len()
	case wasm.SectionImport:
		return m.Imports.Len()
	case wasm.SectionFunction:
		return m.Functions.Len()
	case wasm.SectionTable:
		return m.Tables.Len()
	case wasm.SectionMemory:
		return m.Memories.Len()
	case wasm.SectionGlobal:
		return m.Globals.Len()
	case wasm.SectionExport:
		return m.Exports.Len()
	case wasm.SectionStart:
		return m.Start.Len()
	case wasm.SectionElement:
		return m.Elements.Len()
	case wasm.SectionCode:
		return m.Code.Len()
	case wasm.SectionData:
		return m.Data.Len()
	case wasm.SectionDataCount:
		return bulkmemory.DataCount(m).Len()
	case wasm.SectionTag:
		return exceptions.Tags(m).Len()
	default:
		return 0
	}
}

// describeSection renders one line per entry of the section h points at.
func describeSection(m *wasm.Module, h wasm.SectionHeader) []string {
	var rows []string
	add := func(format string, args ...any) {
		rows = append(rows, fmt.Sprintf(format, args...))
	}

	switch h.ID {
	case wasm.SectionCustom:
		for _, cs := range m.Customs {
			if cs.Span == h.Span {
				add("name %q, %d payload bytes", cs.Name, cs.Payload.Len())
			}
		}
	case wasm.SectionType:
		for i, ft := range m.Types.Entries {
			add("type[%d] %s", i, ft)
		}
	case wasm.SectionImport:
		for i, imp := range m.Imports.Entries {
			add("import[%d] %s.%s %s", i, imp.Module, imp.Name, describeImport(m, imp.Desc))
		}
	case wasm.SectionFunction:
		for i, typeIdx := range m.Functions.Entries {
			add("func[%d] type %d", int(m.ImportCounts.Of(wasm.KindFunc))+i, typeIdx)
		}
	case wasm.SectionTable:
		for i, tt := range m.Tables.Entries {
			add("table[%d] %s %s", i, tt.ElemType, describeLimits(tt.Limits))
		}
	case wasm.SectionMemory:
		for i, mt := range m.Memories.Entries {
			add("memory[%d] %s", i, describeLimits(mt.Limits))
		}
	case wasm.SectionGlobal:
		for i, g := range m.Globals.Entries {
			add("global[%d] %s init %s", int(m.ImportCounts.Of(wasm.KindGlobal))+i,
				describeGlobalType(g.Type), hex.EncodeToString(m.Bytes(g.Init)))
		}
	case wasm.SectionExport:
		for _, exp := range m.Exports.Entries {
			add("%q -> %s %d", exp.Name, m.Features().KindName(exp.Kind), exp.Index)
		}
	case wasm.SectionStart:
		if idx, ok := m.StartFunction(); ok {
			add("start func %d", idx)
		}
	case wasm.SectionElement:
		for i, e := range m.Elements.Entries {
			n := len(e.FuncIndices) + len(e.Exprs)
			add("elem[%d] %s table %d %s, %d items", i, e.Mode, e.Table, e.ElemType, n)
		}
	case wasm.SectionCode:
		for i, body := range m.Code.Entries {
			var locals uint64
			for _, l := range body.Locals {
				locals += uint64(l.Count)
			}
			add("code[%d] %d bytes, %d locals", i, body.Span.Len(), locals)
		}
	case wasm.SectionData:
		for i, d := range m.Data.Entries {
			add("data[%d] %s memory %d, %d bytes", i, d.Mode, d.Memory, d.Init.Len())
		}
	case wasm.SectionDataCount:
		if s := bulkmemory.DataCount(m); s.Len() == 1 {
			add("data count %d", s.Entries[0])
		}
	case wasm.SectionTag:
		for i, t := range exceptions.Tags(m).Entries {
			add("tag[%d] type %d", i, t.TypeIndex)
		}
	}
	return rows
}

func describeImport(m *wasm.Module, d wasm.ImportDesc) string {
	kind := m.Features().KindName(d.Kind)
	switch {
	case d.Kind == wasm.KindFunc:
		return fmt.Sprintf("%s type %d", kind, d.TypeIndex)
	case d.Table != nil:
		return fmt.Sprintf("%s %s %s", kind, d.Table.ElemType, describeLimits(d.Table.Limits))
	case d.Memory != nil:
		return fmt.Sprintf("%s %s", kind, describeLimits(d.Memory.Limits))
	case d.Global != nil:
		return fmt.Sprintf("%s %s", kind, describeGlobalType(*d.Global))
	case d.Ext != nil:
		return fmt.Sprintf("%s %+v", kind, d.Ext)
	default:
		return kind
	}
}

func describeLimits(l wasm.Limits) string {
	var b strings.Builder
	fmt.Fprintf(&b, "min %d", l.Min)
	if l.Max != nil {
		fmt.Fprintf(&b, " max %d", *l.Max)
	}
	if threads.Shared(l) {
		b.WriteString(" shared")
	}
	if memory64.Is64(l) {
		b.WriteString(" i64")
	}
	if _, ok := custompagesize.PageSizeLog2(l); ok {
		fmt.Fprintf(&b, " pagesize %d", custompagesize.PageSize(l))
	}
	return b.String()
}

func describeGlobalType(gt wasm.GlobalType) string {
	if gt.Mutable {
		return "mut " + gt.ValType.String()
	}
	return gt.ValType.String()
}
