package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01

	// HeaderSize is the length of magic plus version.
	HeaderSize = 8
)

var (
	magicBytes   = [4]byte{0x00, 0x61, 0x73, 0x6D}
	versionBytes = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// Section IDs define the binary identifiers for each module section.
// Standard sections must appear in their canonical order (see SectionDef.Order).
const (
	SectionCustom    byte = 0  // Custom section (can appear anywhere)
	SectionType      byte = 1  // Type section (function signatures)
	SectionImport    byte = 2  // Import section
	SectionFunction  byte = 3  // Function section (type indices)
	SectionTable     byte = 4  // Table section
	SectionMemory    byte = 5  // Memory section
	SectionGlobal    byte = 6  // Global section
	SectionExport    byte = 7  // Export section
	SectionStart     byte = 8  // Start section
	SectionElement   byte = 9  // Element section
	SectionCode      byte = 10 // Code section (function bodies)
	SectionData      byte = 11 // Data section
	SectionDataCount byte = 12 // Data count section (bulk memory)
	SectionTag       byte = 13 // Tag section (exception handling)
)

// Import/Export descriptor kinds of core WebAssembly.
// Proposals register further kinds through Feature.ExternKinds.
const (
	KindFunc   ExternKind = 0 // Function import/export
	KindTable  ExternKind = 1 // Table import/export
	KindMemory ExternKind = 2 // Memory import/export
	KindGlobal ExternKind = 3 // Global import/export
)

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32     ValType = 0x7F // 32-bit integer
	ValI64     ValType = 0x7E // 64-bit integer
	ValF32     ValType = 0x7D // 32-bit float
	ValF64     ValType = 0x7C // 64-bit float
	ValV128    ValType = 0x7B // 128-bit vector (SIMD)
	ValFuncRef ValType = 0x70 // Function reference
	ValExtern  ValType = 0x6F // External reference
)

// FuncTypeByte introduces a function type in the type section.
const FuncTypeByte byte = 0x60

// ElemKindFuncRef is the only elemkind of the binary format.
const ElemKindFuncRef byte = 0x00

// Opcodes that may appear in constant expressions.
const (
	OpEnd       byte = 0x0B
	OpGlobalGet byte = 0x23
	OpI32Const  byte = 0x41
	OpI64Const  byte = 0x42
	OpF32Const  byte = 0x43
	OpF64Const  byte = 0x44
	OpI32Add    byte = 0x6A
	OpI32Sub    byte = 0x6B
	OpI32Mul    byte = 0x6C
	OpI64Add    byte = 0x7C
	OpI64Sub    byte = 0x7D
	OpI64Mul    byte = 0x7E
	OpRefNull   byte = 0xD0
	OpRefFunc   byte = 0xD2
)

// Multi-byte opcode prefixes indicate extended instruction sets.
// These are followed by a LEB128-encoded sub-opcode.
const (
	OpPrefixMisc byte = 0xFC // Misc: saturating trunc, bulk memory, table ops
	OpPrefixSIMD byte = 0xFD // SIMD: 128-bit vector operations
)

// SimdV128Const is the v128.const sub-opcode under OpPrefixSIMD.
const SimdV128Const uint32 = 0x0C

// Limits flags. Each bit is owned by exactly one feature.
const (
	LimitsHasMax         byte = 0x01
	LimitsShared         byte = 0x02 // threads
	LimitsMemory64       byte = 0x04 // memory64
	LimitsCustomPageSize byte = 0x08 // custom-page-sizes
)

// Global type flags. Each bit is owned by exactly one feature.
const (
	GlobalMutable byte = 0x01
)

// Memory page limits
const (
	DefaultPageSizeLog2 uint32 = 16
	MemoryMaxPages32    uint64 = 65536           // 2^16 pages (4GB) for 32-bit memory
	MemoryMaxPages64    uint64 = 281474976710656 // 2^48 pages for 64-bit memory
)
