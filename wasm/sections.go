package wasm

import (
	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

func decodeTypeSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Types, Vector[FuncType]{
		Entry:     decodeFuncType,
		CountCode: errors.CodeInvalidTypeCount,
	})
}

func decodeImportSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Imports, Vector[Import]{
		Entry:     decodeImport,
		CountCode: errors.CodeInvalidImportCount,
	})
}

func decodeImport(c *SectionContext, pos int) (Import, int, error) {
	module, next, err := binary.Name(c.Src, pos, c.End)
	if err != nil {
		return Import{}, pos, err
	}
	name, next, err := binary.Name(c.Src, next, c.End)
	if err != nil {
		return Import{}, pos, err
	}
	kindPos := next
	kind, next, err := binary.Byte(c.Src, next, c.End)
	if err != nil {
		return Import{}, pos, err
	}
	def, ok := c.Set.ExternKind(ExternKind(kind))
	if !ok || def.Decode == nil {
		return Import{}, pos, c.Fail(errors.CodeInvalidExternKind, kindPos).
			Context(errors.TypeCode{Code: kind}).
			Build()
	}

	desc, next, err := def.Decode(c, next)
	if err != nil {
		return Import{}, pos, err
	}
	desc.Kind = def.Kind

	switch def.Kind {
	case KindTable:
		if err := checkSingleTable(c, kindPos); err != nil {
			return Import{}, pos, err
		}
	case KindMemory:
		if err := checkSingleMemory(c, kindPos); err != nil {
			return Import{}, pos, err
		}
	}
	if def.Counted {
		c.Module.ImportCounts[def.Kind]++
	}
	return Import{Module: module, Name: name, Desc: desc}, next, nil
}

func importFunc(c *SectionContext, pos int) (ImportDesc, int, error) {
	idx, next, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return ImportDesc{}, pos, err
	}
	return ImportDesc{TypeIndex: idx}, next, nil
}

func importTable(c *SectionContext, pos int) (ImportDesc, int, error) {
	tt, next, err := DecodeTableType(c, pos)
	if err != nil {
		return ImportDesc{}, pos, err
	}
	return ImportDesc{Table: &tt}, next, nil
}

func importMemory(c *SectionContext, pos int) (ImportDesc, int, error) {
	mt, next, err := DecodeMemoryType(c, pos)
	if err != nil {
		return ImportDesc{}, pos, err
	}
	return ImportDesc{Memory: &mt}, next, nil
}

func importGlobal(c *SectionContext, pos int) (ImportDesc, int, error) {
	gt, next, err := DecodeGlobalType(c, pos)
	if err != nil {
		return ImportDesc{}, pos, err
	}
	if gt.Mutable && !c.Set.Allows(PolicyMutableGlobal) {
		return ImportDesc{}, pos, c.Fail(errors.CodeMutableGlobalDisabled, pos).
			Detail("importing a mutable global").
			Build()
	}
	return ImportDesc{Global: &gt}, next, nil
}

func decodeFunctionSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Functions, Vector[uint32]{
		Entry:     DecodeU32,
		CountCode: errors.CodeInvalidFunctionCount,
		Counted:   true,
		Kind:      KindFunc,
	})
}

func decodeTableSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Tables, Vector[TableType]{
		Entry: func(c *SectionContext, pos int) (TableType, int, error) {
			if err := checkSingleTable(c, pos); err != nil {
				return TableType{}, pos, err
			}
			return DecodeTableType(c, pos)
		},
		CountCode: errors.CodeInvalidTableCount,
		Counted:   true,
		Kind:      KindTable,
	})
}

func decodeMemorySection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Memories, Vector[MemoryType]{
		Entry: func(c *SectionContext, pos int) (MemoryType, int, error) {
			if err := checkSingleMemory(c, pos); err != nil {
				return MemoryType{}, pos, err
			}
			return DecodeMemoryType(c, pos)
		},
		CountCode: errors.CodeInvalidMemoryCount,
		Counted:   true,
		Kind:      KindMemory,
	})
}

// checkSingleTable fails when adding one more table would exceed the
// single table allowed without the multi-table policy.
func checkSingleTable(c *SectionContext, pos int) error {
	if c.Set.Allows(PolicyMultiTable) || c.Module.NumTables() == 0 {
		return nil
	}
	return c.Fail(errors.CodeMultipleTables, pos).
		Context(errors.Count{Value: c.Module.NumTables() + 1}).
		Build()
}

func checkSingleMemory(c *SectionContext, pos int) error {
	if c.Set.Allows(PolicyMultiMemory) || c.Module.NumMemories() == 0 {
		return nil
	}
	return c.Fail(errors.CodeMultipleMemories, pos).
		Context(errors.Count{Value: c.Module.NumMemories() + 1}).
		Build()
}

func decodeGlobalSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Globals, Vector[GlobalEntry]{
		Entry:     decodeGlobalEntry,
		CountCode: errors.CodeInvalidGlobalCount,
		Counted:   true,
		Kind:      KindGlobal,
	})
}

func decodeExportSection(c *SectionContext) error {
	names := make(map[string]struct{})
	return DecodeVector(c, &c.Module.Exports, Vector[Export]{
		Entry: func(c *SectionContext, pos int) (Export, int, error) {
			exp, next, err := decodeExport(c, pos)
			if err != nil {
				return Export{}, pos, err
			}
			if _, dup := names[exp.Name]; dup {
				return Export{}, pos, c.Fail(errors.CodeDuplicateExportName, pos).
					Detail("export %q", exp.Name).
					Build()
			}
			names[exp.Name] = struct{}{}
			return exp, next, nil
		},
		CountCode: errors.CodeInvalidExportCount,
	})
}

func decodeExport(c *SectionContext, pos int) (Export, int, error) {
	name, next, err := binary.Name(c.Src, pos, c.End)
	if err != nil {
		return Export{}, pos, err
	}
	kindPos := next
	kind, next, err := binary.Byte(c.Src, next, c.End)
	if err != nil {
		return Export{}, pos, err
	}
	if _, ok := c.Set.ExternKind(ExternKind(kind)); !ok {
		return Export{}, pos, c.Fail(errors.CodeInvalidExternKind, kindPos).
			Context(errors.TypeCode{Code: kind}).
			Build()
	}
	idx, next, err := binary.U32(c.Src, next, c.End)
	if err != nil {
		return Export{}, pos, err
	}

	if ExternKind(kind) == KindGlobal && !c.Set.Allows(PolicyMutableGlobal) {
		if gt, ok := c.Module.GlobalType(idx); ok && gt.Mutable {
			return Export{}, pos, c.Fail(errors.CodeMutableGlobalDisabled, kindPos).
				Detail("exporting mutable global %d", idx).
				Build()
		}
	}
	return Export{Name: name, Kind: ExternKind(kind), Index: idx}, next, nil
}

func decodeStartSection(c *SectionContext) error {
	if err := Claim(c, &c.Module.Start); err != nil {
		return err
	}
	idx, next, err := binary.U32(c.Src, c.Begin, c.End)
	if err != nil {
		return err
	}
	if next != c.End {
		return c.Fail(errors.CodeSectionSizeMismatch, next).
			Context(errors.Size{Value: uint64(c.End - c.Begin), Limit: uint64(next - c.Begin)}).
			Build()
	}
	c.Module.Start.Entries = []uint32{idx}
	return nil
}

func decodeElementSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Elements, Vector[Element]{
		Entry:     decodeElement,
		CountCode: errors.CodeInvalidElementCount,
	})
}

func decodeCodeSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Code, Vector[FuncBody]{
		Entry:     decodeFuncBody,
		CountCode: errors.CodeInvalidCodeCount,
	})
}

func decodeDataSection(c *SectionContext) error {
	return DecodeVector(c, &c.Module.Data, Vector[DataSegment]{
		Entry:     decodeDataSegment,
		CountCode: errors.CodeInvalidDataCount,
	})
}
