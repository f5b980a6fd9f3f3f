package wasm

import "fmt"

// Span is a half-open range [Begin, End) of absolute offsets into the
// decoded input. It never owns memory: resolve it with Module.Bytes while
// the input buffer is alive. The zero value means unset; no section can
// start at offset 0 because of the module header.
type Span struct {
	Begin int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Begin
}

// IsSet reports whether the span has been recorded.
func (s Span) IsSet() bool {
	return s.End != 0
}

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return o.Begin >= s.Begin && o.End <= s.End
}

// Overlaps reports whether s and o share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Begin < o.End && o.Begin < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[0x%x, 0x%x)", s.Begin, s.End)
}

// Header is the validated module preamble.
type Header struct {
	Magic   uint32
	Version uint32
}

// Section is the record kept for one section kind: the raw region it was
// decoded from and its entries in declaration order.
type Section[E any] struct {
	Entries []E
	Name    string
	Span    Span
	ID      byte
}

// Present reports whether the section appeared in the input.
func (s *Section[E]) Present() bool {
	return s.Span.IsSet()
}

// Len returns the number of decoded entries.
func (s *Section[E]) Len() int {
	return len(s.Entries)
}

// ExternKind is the import/export descriptor tag.
type ExternKind byte

func (k ExternKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindTable:
		return "table"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	default:
		return fmt.Sprintf("kind(0x%02x)", byte(k))
	}
}

// ImportCounts partitions imported entities by kind. Only kinds whose
// descriptor is registered as counted appear.
type ImportCounts map[ExternKind]uint32

// Of returns the number of imports of kind k.
func (c ImportCounts) Of(k ExternKind) uint32 {
	return c[k]
}

// ValType is a value type encoding byte.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(v))
	}
}

// IsRef reports whether v is a reference type.
func (v ValType) IsRef() bool {
	return v == ValFuncRef || v == ValExtern
}

// FuncType represents a function signature
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) String() string {
	return fmt.Sprintf("%v -> %v", f.Params, f.Results)
}

// Import represents an import entry
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes what is imported. Exactly one descriptor is set
// for the standard kinds; proposal kinds store theirs in Ext.
type ImportDesc struct {
	Table     *TableType
	Memory    *MemoryType
	Global    *GlobalType
	Ext       any
	TypeIndex uint32
	Kind      ExternKind
}

// Attrs holds per-entry attributes contributed by features, keyed by
// feature name. The core decoder never interprets them; each feature
// package exports accessors for what it stores.
type Attrs map[string]any

// Get returns the attribute recorded by the named feature.
func (a Attrs) Get(feature string) (any, bool) {
	v, ok := a[feature]
	return v, ok
}

// Set records v for the named feature, allocating the map on first use.
func (a *Attrs) Set(feature string, v any) {
	if *a == nil {
		*a = make(Attrs, 1)
	}
	(*a)[feature] = v
}

// Limits bounds a table or memory.
type Limits struct {
	Max   *uint64
	Attrs Attrs
	Min   uint64
}

// TableType represents a table type
type TableType struct {
	Limits   Limits
	ElemType ValType
}

// MemoryType represents a memory type
type MemoryType struct {
	Limits Limits
}

// GlobalType represents a global variable type
type GlobalType struct {
	Attrs   Attrs
	ValType ValType
	Mutable bool
}

// GlobalEntry is a defined global. Init covers the initializer expression
// including its end opcode and is evaluated only at instantiation.
type GlobalEntry struct {
	Attrs Attrs
	Type  GlobalType
	Init  Span
}

// Export represents an export entry
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// ElementMode is how an element segment is applied.
type ElementMode byte

const (
	ElemActive ElementMode = iota
	ElemPassive
	ElemDeclarative
)

func (m ElementMode) String() string {
	switch m {
	case ElemActive:
		return "active"
	case ElemPassive:
		return "passive"
	case ElemDeclarative:
		return "declarative"
	default:
		return "unknown"
	}
}

// Element represents an element segment. A segment lists either function
// indices or initializer expressions, never both.
type Element struct {
	FuncIndices []uint32
	Exprs       []Span
	Offset      Span
	Flags       uint32
	Table       uint32
	Mode        ElementMode
	ElemType    ValType
}

// FuncBody is one code section entry. Span covers the whole body after
// its size prefix; Code covers the instructions including the final end.
type FuncBody struct {
	Locals []LocalEntry
	Span   Span
	Code   Span
}

// LocalEntry represents a group of locals with the same type
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataMode is how a data segment is applied.
type DataMode byte

const (
	DataActive DataMode = iota
	DataPassive
)

func (m DataMode) String() string {
	if m == DataPassive {
		return "passive"
	}
	return "active"
}

// DataSegment represents a data segment
type DataSegment struct {
	Offset Span
	Init   Span
	Flags  uint32
	Memory uint32
	Mode   DataMode
}

// CustomSection represents a custom section
type CustomSection struct {
	Name    string
	Span    Span
	Payload Span
}

// SectionHeader records one section as it was encountered. Offset is the
// position of the id byte; Span is the payload after the size prefix.
type SectionHeader struct {
	Name   string
	Span   Span
	Offset int
	ID     byte
}
