package wasm

import (
	"sort"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-binfmt/errors"
)

// Policy is a set of relaxations a feature grants to standard decoders.
type Policy uint32

const (
	// PolicyMultiValue allows function types with more than one result.
	PolicyMultiValue Policy = 1 << iota
	// PolicyMutableGlobal allows importing and exporting mutable globals.
	PolicyMutableGlobal
	// PolicyMultiTable allows more than one table in the index space.
	PolicyMultiTable
	// PolicyMultiMemory allows more than one memory in the index space.
	PolicyMultiMemory
)

// SectionDecoder decodes one section payload. It must consume the payload
// exactly.
type SectionDecoder func(c *SectionContext) error

// SectionDef registers the handler for one section id. Order is the
// canonical position of the section; custom sections use 0 and are exempt
// from ordering.
type SectionDef struct {
	Decode SectionDecoder
	Name   string
	Order  int
	ID     byte
}

// ValueTypeDef registers a value type encoding.
type ValueTypeDef struct {
	Name string
	Type ValType
}

// ExternKindDef registers an import/export descriptor kind. Counted kinds
// are partitioned in Module.ImportCounts. Decode reads the import
// descriptor that follows the kind byte.
type ExternKindDef struct {
	Decode  func(c *SectionContext, pos int) (ImportDesc, int, error)
	Name    string
	Counted bool
	Kind    ExternKind
}

// ConstOp registers an opcode allowed in constant expressions. Skip steps
// over the immediates that follow the opcode byte and never reads at or
// past end.
type ConstOp struct {
	Skip   func(src []byte, pos, end int) (int, error)
	Name   string
	Opcode byte
}

// DataModeDef decodes the remainder of a data segment with the given flags.
type DataModeDef struct {
	Decode func(c *SectionContext, pos int, seg *DataSegment) (int, error)
	Name   string
	Flags  byte
}

// ElemModeDef decodes the remainder of an element segment with the given flags.
type ElemModeDef struct {
	Decode func(c *SectionContext, pos int, seg *Element) (int, error)
	Name   string
	Flags  byte
}

// MemoryBounds are the decoding parameters of one memory type. Limit flag
// hooks may change them; the core reads the bounds and checks the page
// count against them.
type MemoryBounds struct {
	MaxPages uint64
	Wide     bool
}

// LimitFlagDef registers one memory limits flag bit. Apply runs before the
// bounds are read; Trailer, when set, reads immediates that follow them.
// Check runs once the whole memory type is known.
type LimitFlagDef struct {
	Apply   func(l *Limits, b *MemoryBounds)
	Trailer func(c *SectionContext, pos int, l *Limits, b *MemoryBounds) (int, error)
	Check   func(c *SectionContext, pos int, l *Limits) error
	Name    string
	Bit     byte
}

// GlobalFlagDef registers one bit of the global type flags byte that
// follows the value type. Apply runs for global imports and definitions;
// Trailer runs only for defined globals, after the initializer.
type GlobalFlagDef struct {
	Apply   func(gt *GlobalType)
	Trailer func(c *SectionContext, pos int, g *GlobalEntry) (int, error)
	Name    string
	Bit     byte
}

// ModuleCheck is a whole-module invariant verified after the last section.
type ModuleCheck struct {
	Check func(m *Module) error
	Name  string
}

// Feature is a declarative bundle of contributions for one proposal.
// Adding a feature never requires changing another one.
type Feature struct {
	Name        string
	Requires    []string
	Sections    []SectionDef
	ValueTypes  []ValueTypeDef
	ExternKinds []ExternKindDef
	ConstOps    []ConstOp
	DataModes   []DataModeDef
	ElemModes   []ElemModeDef
	LimitFlags  []LimitFlagDef
	GlobalFlags []GlobalFlagDef
	Checks      []ModuleCheck
	Core        api.CoreFeatures
	Policies    Policy
}

type slot[H any] struct {
	def   H
	owner string
	ok    bool
}

// table maps a one-byte key to exactly one owning feature.
type table[H any] [256]slot[H]

func (t *table[H]) claim(key byte, def H, owner, what string) error {
	s := &t[key]
	if s.ok {
		return errors.Compose(errors.CodeFeatureConflict,
			"%s 0x%02x claimed by both %q and %q", what, key, s.owner, owner)
	}
	*s = slot[H]{def: def, owner: owner, ok: true}
	return nil
}

func (t *table[H]) get(key byte) (H, bool) {
	s := &t[key]
	return s.def, s.ok
}

func (t *table[H]) owner(key byte) string {
	return t[key].owner
}

// Set is an immutable, composed feature set. Every lookup is an array
// index; a Set is safe for concurrent use.
type Set struct {
	names       []string
	checks      []ModuleCheck
	sections    table[SectionDef]
	orders      table[byte]
	valueTypes  table[ValueTypeDef]
	externKinds table[ExternKindDef]
	constOps    table[ConstOp]
	dataModes   table[DataModeDef]
	elemModes   table[ElemModeDef]
	limitFlags  table[LimitFlagDef]
	globalFlags table[GlobalFlagDef]
	core        api.CoreFeatures
	policies    Policy
	limitMask   byte
	globalMask  byte
}

// Compose folds features into a Set. It fails when two features claim the
// same key, when a feature names a dependency that is not part of the set,
// or when any standard section id 0..11 is left without a handler.
func Compose(features ...Feature) (*Set, error) {
	s := &Set{}
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		if seen[f.Name] {
			return nil, errors.Compose(errors.CodeDuplicateFeature, "feature %q listed twice", f.Name)
		}
		seen[f.Name] = true
	}
	for _, f := range features {
		for _, dep := range f.Requires {
			if !seen[dep] {
				return nil, errors.Compose(errors.CodeMissingDependency, "feature %q requires %q", f.Name, dep)
			}
		}
		if err := s.add(f); err != nil {
			return nil, err
		}
	}
	for id := SectionCustom; id <= SectionData; id++ {
		if _, ok := s.sections.get(id); !ok {
			return nil, errors.Compose(errors.CodeMissingSectionHandler, "no feature handles section id %d", id)
		}
	}
	return s, nil
}

// MustCompose is like Compose but panics on error. It is meant for
// package-level sets so a broken configuration fails at initialization.
func MustCompose(features ...Feature) *Set {
	s, err := Compose(features...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Set) add(f Feature) error {
	s.names = append(s.names, f.Name)
	s.core |= f.Core
	s.policies |= f.Policies
	s.checks = append(s.checks, f.Checks...)

	for _, d := range f.Sections {
		if err := s.sections.claim(d.ID, d, f.Name, "section id"); err != nil {
			return err
		}
		if d.ID == SectionCustom {
			continue
		}
		if d.Order <= 0 || d.Order > 255 {
			return errors.Compose(errors.CodeFeatureConflict,
				"section %q in feature %q has invalid order %d", d.Name, f.Name, d.Order)
		}
		if err := s.orders.claim(byte(d.Order), d.ID, f.Name, "section order"); err != nil {
			return err
		}
	}
	for _, d := range f.ValueTypes {
		if err := s.valueTypes.claim(byte(d.Type), d, f.Name, "value type"); err != nil {
			return err
		}
	}
	for _, d := range f.ExternKinds {
		if err := s.externKinds.claim(byte(d.Kind), d, f.Name, "extern kind"); err != nil {
			return err
		}
	}
	for _, d := range f.ConstOps {
		if err := s.constOps.claim(d.Opcode, d, f.Name, "const opcode"); err != nil {
			return err
		}
	}
	for _, d := range f.DataModes {
		if err := s.dataModes.claim(d.Flags, d, f.Name, "data mode"); err != nil {
			return err
		}
	}
	for _, d := range f.ElemModes {
		if err := s.elemModes.claim(d.Flags, d, f.Name, "element mode"); err != nil {
			return err
		}
	}
	for _, d := range f.LimitFlags {
		if d.Bit == 0 || d.Bit&(d.Bit-1) != 0 {
			return errors.Compose(errors.CodeFeatureConflict,
				"limits flag %q in feature %q is not a single bit", d.Name, f.Name)
		}
		if err := s.limitFlags.claim(d.Bit, d, f.Name, "limits flag"); err != nil {
			return err
		}
		s.limitMask |= d.Bit
	}
	for _, d := range f.GlobalFlags {
		if d.Bit == 0 || d.Bit&(d.Bit-1) != 0 {
			return errors.Compose(errors.CodeFeatureConflict,
				"global flag %q in feature %q is not a single bit", d.Name, f.Name)
		}
		if err := s.globalFlags.claim(d.Bit, d, f.Name, "global flag"); err != nil {
			return err
		}
		s.globalMask |= d.Bit
	}
	return nil
}

// Names returns the feature names in composition order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Has reports whether the named feature is part of the set.
func (s *Set) Has(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Allows reports whether the set grants policy p.
func (s *Set) Allows(p Policy) bool {
	return s.policies&p == p
}

// CoreFeatures returns the union of the wazero feature bits of the set.
func (s *Set) CoreFeatures() api.CoreFeatures {
	return s.core
}

// Section returns the handler registered for id.
func (s *Set) Section(id byte) (SectionDef, bool) {
	return s.sections.get(id)
}

// SectionOwner returns the name of the feature handling id.
func (s *Set) SectionOwner(id byte) string {
	return s.sections.owner(id)
}

// SectionName returns the diagnostic name of section id.
func (s *Set) SectionName(id byte) string {
	if d, ok := s.sections.get(id); ok {
		return d.Name
	}
	return "unknown"
}

// Sections returns every registered section in canonical order, custom first.
func (s *Set) Sections() []SectionDef {
	var out []SectionDef
	for i := range s.sections {
		if d, ok := s.sections.get(byte(i)); ok {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ValueType reports whether v is a registered value type.
func (s *Set) ValueType(v ValType) bool {
	_, ok := s.valueTypes.get(byte(v))
	return ok
}

// ExternKind returns the descriptor registered for kind k.
func (s *Set) ExternKind(k ExternKind) (ExternKindDef, bool) {
	return s.externKinds.get(byte(k))
}

// KindName returns the registered name of kind k.
func (s *Set) KindName(k ExternKind) string {
	if d, ok := s.externKinds.get(byte(k)); ok {
		return d.Name
	}
	return k.String()
}

// ConstOp returns the constant expression opcode registered for op.
func (s *Set) ConstOp(op byte) (ConstOp, bool) {
	return s.constOps.get(op)
}

// ConstOps returns the registered constant expression opcodes in opcode order.
func (s *Set) ConstOps() []ConstOp {
	var out []ConstOp
	for i := range s.constOps {
		if d, ok := s.constOps.get(byte(i)); ok {
			out = append(out, d)
		}
	}
	return out
}

// DataMode returns the data segment mode registered for flags.
func (s *Set) DataMode(flags uint32) (DataModeDef, bool) {
	if flags > 0xFF {
		return DataModeDef{}, false
	}
	return s.dataModes.get(byte(flags))
}

// ElemMode returns the element segment mode registered for flags.
func (s *Set) ElemMode(flags uint32) (ElemModeDef, bool) {
	if flags > 0xFF {
		return ElemModeDef{}, false
	}
	return s.elemModes.get(byte(flags))
}

// LimitFlags returns the mask of registered limits flag bits.
func (s *Set) LimitFlags() byte {
	return s.limitMask
}

func (s *Set) limitFlag(bit byte) (LimitFlagDef, bool) {
	return s.limitFlags.get(bit)
}

// GlobalFlags returns the mask of registered global type flag bits.
func (s *Set) GlobalFlags() byte {
	return s.globalMask
}

func (s *Set) globalFlag(bit byte) (GlobalFlagDef, bool) {
	return s.globalFlags.get(bit)
}
