// Package wasm decodes WebAssembly binary modules.
//
// Decoding is driven by a feature Set composed once from declarative
// Feature values. Each feature contributes section handlers, value types,
// extern kinds, constant opcodes, data and element modes, limits flags and
// whole-module checks. Composition guarantees exactly one owner per
// section id and per key; a configuration that violates this is rejected
// before any module is decoded.
//
// # Decoding
//
//	set := wasm.MustCompose(wasm.Standard)
//	m, err := wasm.NewDecoder(set).Decode(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Errors are *errors.Error values carrying the byte offset, a code and a
// small structured context. Decoding stops at the first violation and
// never returns a partial module.
//
// # Module Structure
//
// Every section kind is a Section record with its raw Span and decoded
// entries:
//
//	m.Types      Section[FuncType]
//	m.Imports    Section[Import]
//	m.Functions  Section[uint32]
//	m.Tables     Section[TableType]
//	m.Memories   Section[MemoryType]
//	m.Globals    Section[GlobalEntry]
//	m.Exports    Section[Export]
//	m.Start      Section[uint32]
//	m.Elements   Section[Element]
//	m.Code       Section[FuncBody]
//	m.Data       Section[DataSegment]
//
// Proposal sections are stored with Ext and read back with Lookup.
//
// Spans borrow the input buffer. Initializer expressions are recorded as
// spans and left unevaluated; see package constexpr.
//
// # Adding a Feature
//
// A feature is a Feature value. It may claim a new section id, register
// handlers for new data or element flags, new value types or constant
// opcodes, and grant policies to the standard decoders. Nothing in the
// decoding loop or in other features changes.
package wasm
