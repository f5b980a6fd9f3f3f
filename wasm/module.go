package wasm

// Module is a decoded WebAssembly module. It borrows the input buffer it
// was decoded from: every Span resolves against that buffer, so the buffer
// must not be modified while the module is in use.
type Module struct {
	set  *Set
	ext  map[byte]any
	data []byte

	ImportCounts ImportCounts

	Types     Section[FuncType]
	Imports   Section[Import]
	Functions Section[uint32]
	Tables    Section[TableType]
	Memories  Section[MemoryType]
	Globals   Section[GlobalEntry]
	Exports   Section[Export]
	Start     Section[uint32]
	Elements  Section[Element]
	Code      Section[FuncBody]
	Data      Section[DataSegment]

	Customs []CustomSection
	Layout  []SectionHeader

	Header Header
	Source Span
}

func newModule(set *Set, data []byte) *Module {
	return &Module{
		set:          set,
		data:         data,
		ImportCounts: make(ImportCounts),
		Source:       Span{Begin: 0, End: len(data)},
	}
}

// Features returns the feature set the module was decoded with.
func (m *Module) Features() *Set {
	return m.set
}

// Raw returns the input buffer the module was decoded from.
func (m *Module) Raw() []byte {
	return m.data
}

// Bytes resolves a span against the input without copying.
// An unset or out-of-range span yields nil.
func (m *Module) Bytes(s Span) []byte {
	if !s.IsSet() || s.Begin < 0 || s.End > len(m.data) || s.Begin > s.End {
		return nil
	}
	return m.data[s.Begin:s.End:s.End]
}

// StartFunction returns the start function index if a start section exists.
func (m *Module) StartFunction() (uint32, bool) {
	if len(m.Start.Entries) == 0 {
		return 0, false
	}
	return m.Start.Entries[0], true
}

// NumFuncs returns the size of the function index space.
func (m *Module) NumFuncs() uint32 {
	return m.ImportCounts.Of(KindFunc) + uint32(m.Functions.Len())
}

// NumTables returns the size of the table index space.
func (m *Module) NumTables() uint32 {
	return m.ImportCounts.Of(KindTable) + uint32(m.Tables.Len())
}

// NumMemories returns the size of the memory index space.
func (m *Module) NumMemories() uint32 {
	return m.ImportCounts.Of(KindMemory) + uint32(m.Memories.Len())
}

// NumGlobals returns the size of the global index space.
func (m *Module) NumGlobals() uint32 {
	return m.ImportCounts.Of(KindGlobal) + uint32(m.Globals.Len())
}

// ImportedGlobals returns the types of imported globals in index order.
func (m *Module) ImportedGlobals() []GlobalType {
	var out []GlobalType
	for _, imp := range m.Imports.Entries {
		if imp.Desc.Kind == KindGlobal && imp.Desc.Global != nil {
			out = append(out, *imp.Desc.Global)
		}
	}
	return out
}

// GlobalType returns the type of global idx, imports first.
func (m *Module) GlobalType(idx uint32) (GlobalType, bool) {
	imported := m.ImportCounts.Of(KindGlobal)
	if idx < imported {
		globals := m.ImportedGlobals()
		return globals[idx], true
	}
	idx -= imported
	if uint64(idx) < uint64(m.Globals.Len()) {
		return m.Globals.Entries[idx].Type, true
	}
	return GlobalType{}, false
}

// FuncType returns the signature of function funcIdx, imports first.
func (m *Module) FuncType(funcIdx uint32) (*FuncType, bool) {
	typeIdx, ok := m.funcTypeIndex(funcIdx)
	if !ok || uint64(typeIdx) >= uint64(m.Types.Len()) {
		return nil, false
	}
	return &m.Types.Entries[typeIdx], true
}

func (m *Module) funcTypeIndex(funcIdx uint32) (uint32, bool) {
	var n uint32
	for _, imp := range m.Imports.Entries {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if n == funcIdx {
			return imp.Desc.TypeIndex, true
		}
		n++
	}
	local := uint64(funcIdx) - uint64(n)
	if funcIdx < n || local >= uint64(m.Functions.Len()) {
		return 0, false
	}
	return m.Functions.Entries[local], true
}

// Ext returns the storage a proposal keeps under section id, creating it
// on first use. Every caller for a given id must use the same T.
func Ext[T any](m *Module, id byte) *T {
	if v, ok := m.ext[id]; ok {
		return v.(*T)
	}
	if m.ext == nil {
		m.ext = make(map[byte]any)
	}
	v := new(T)
	m.ext[id] = v
	return v
}

// Lookup returns proposal storage under id without creating it.
func Lookup[T any](m *Module, id byte) (*T, bool) {
	v, ok := m.ext[id]
	if !ok {
		return nil, false
	}
	t, ok := v.(*T)
	return t, ok
}
