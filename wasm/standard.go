package wasm

// Standard is the WebAssembly 1.0 feature. It owns the custom section and
// the twelve standard section ids, the numeric value types, the four core
// extern kinds, the numeric constant opcodes and the active data and
// element modes. Every composed Set must include it.
var Standard = Feature{
	Name: "standard",
	Sections: []SectionDef{
		{ID: SectionCustom, Name: "custom", Order: 0, Decode: decodeCustom},
		{ID: SectionType, Name: "type", Order: 1, Decode: decodeTypeSection},
		{ID: SectionImport, Name: "import", Order: 2, Decode: decodeImportSection},
		{ID: SectionFunction, Name: "function", Order: 3, Decode: decodeFunctionSection},
		{ID: SectionTable, Name: "table", Order: 4, Decode: decodeTableSection},
		{ID: SectionMemory, Name: "memory", Order: 5, Decode: decodeMemorySection},
		{ID: SectionGlobal, Name: "global", Order: 7, Decode: decodeGlobalSection},
		{ID: SectionExport, Name: "export", Order: 8, Decode: decodeExportSection},
		{ID: SectionStart, Name: "start", Order: 9, Decode: decodeStartSection},
		{ID: SectionElement, Name: "element", Order: 10, Decode: decodeElementSection},
		{ID: SectionCode, Name: "code", Order: 12, Decode: decodeCodeSection},
		{ID: SectionData, Name: "data", Order: 13, Decode: decodeDataSection},
	},
	ValueTypes: []ValueTypeDef{
		{Type: ValI32, Name: "i32"},
		{Type: ValI64, Name: "i64"},
		{Type: ValF32, Name: "f32"},
		{Type: ValF64, Name: "f64"},
		{Type: ValFuncRef, Name: "funcref"},
	},
	ExternKinds: []ExternKindDef{
		{Kind: KindFunc, Name: "func", Counted: true, Decode: importFunc},
		{Kind: KindTable, Name: "table", Counted: true, Decode: importTable},
		{Kind: KindMemory, Name: "memory", Counted: true, Decode: importMemory},
		{Kind: KindGlobal, Name: "global", Counted: true, Decode: importGlobal},
	},
	ConstOps:   standardConstOps,
	DataModes:  []DataModeDef{{Flags: 0, Name: "active", Decode: activeData}},
	ElemModes:  []ElemModeDef{{Flags: 0, Name: "active", Decode: activeFuncs}},
	LimitFlags: []LimitFlagDef{{Bit: LimitsHasMax, Name: "max"}},
	GlobalFlags: []GlobalFlagDef{{
		Bit:   GlobalMutable,
		Name:  "mut",
		Apply: func(gt *GlobalType) { gt.Mutable = true },
	}},
	Checks: standardChecks,
}

// Order ranks left free for proposal sections: 6 for tags between memory
// and global, 11 for the data count between element and code.
const (
	OrderTag       = 6
	OrderDataCount = 11
)
