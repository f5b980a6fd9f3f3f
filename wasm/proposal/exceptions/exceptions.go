// Package exceptions adds the tag section and tag imports and exports.
package exceptions

import (
	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm"
)

// KindTag is the extern kind of a tag.
const KindTag wasm.ExternKind = 4

// TagType describes an exception tag. The attribute is always 0
// (exception); the type must have no results.
type TagType struct {
	Attribute byte
	TypeIndex uint32
}

// Feature is the exception handling proposal.
var Feature = wasm.Feature{
	Name: "exception-handling",
	Sections: []wasm.SectionDef{{
		ID:     wasm.SectionTag,
		Name:   "tag",
		Order:  wasm.OrderTag,
		Decode: decodeTagSection,
	}},
	ExternKinds: []wasm.ExternKindDef{{
		Kind:    KindTag,
		Name:    "tag",
		Counted: true,
		Decode:  importTag,
	}},
	Checks: []wasm.ModuleCheck{{Name: "tags", Check: checkTags}},
}

// Tags returns the tag section of m.
func Tags(m *wasm.Module) *wasm.Section[TagType] {
	if s, ok := wasm.Lookup[wasm.Section[TagType]](m, wasm.SectionTag); ok {
		return s
	}
	return &wasm.Section[TagType]{}
}

// ImportedTags returns the tag types of tag imports in index order.
func ImportedTags(m *wasm.Module) []TagType {
	var out []TagType
	for _, imp := range m.Imports.Entries {
		if t, ok := imp.Desc.Ext.(*TagType); ok && imp.Desc.Kind == KindTag {
			out = append(out, *t)
		}
	}
	return out
}

func decodeTagSection(c *wasm.SectionContext) error {
	return wasm.DecodeVector(c, wasm.Ext[wasm.Section[TagType]](c.Module, wasm.SectionTag), wasm.Vector[TagType]{
		Entry:     decodeTagType,
		CountCode: errors.CodeInvalidTagCount,
		Counted:   true,
		Kind:      KindTag,
	})
}

func decodeTagType(c *wasm.SectionContext, pos int) (TagType, int, error) {
	attr, next, err := wasm.DecodeByte(c, pos)
	if err != nil {
		return TagType{}, pos, err
	}
	if attr != 0 {
		return TagType{}, pos, c.Fail(errors.CodeInvalidTagAttribute, pos).
			Context(errors.TypeCode{Code: attr}).
			Build()
	}
	idx, next, err := wasm.DecodeU32(c, next)
	if err != nil {
		return TagType{}, pos, err
	}
	return TagType{Attribute: attr, TypeIndex: idx}, next, nil
}

func importTag(c *wasm.SectionContext, pos int) (wasm.ImportDesc, int, error) {
	tt, next, err := decodeTagType(c, pos)
	if err != nil {
		return wasm.ImportDesc{}, pos, err
	}
	return wasm.ImportDesc{Ext: &tt}, next, nil
}

func checkTags(m *wasm.Module) error {
	tags := Tags(m)
	all := append(ImportedTags(m), tags.Entries...)
	numTypes := uint32(m.Types.Len())
	for i, t := range all {
		if t.TypeIndex >= numTypes {
			return errors.New(errors.PhaseSection, errors.CodeIndexOutOfRange).
				At(tags.Span.Begin).
				Section("tag").
				Context(errors.Index{Index: t.TypeIndex, Limit: numTypes}).
				Detail("tag %d references type %d", i, t.TypeIndex).
				Build()
		}
		if ft := m.Types.Entries[t.TypeIndex]; len(ft.Results) != 0 {
			return errors.New(errors.PhaseSection, errors.CodeInvalidTagAttribute).
				At(tags.Span.Begin).
				Section("tag").
				Detail("tag %d has type %s with results", i, ft).
				Build()
		}
	}

	numTags := uint32(len(all))
	for i, exp := range m.Exports.Entries {
		if exp.Kind == KindTag && exp.Index >= numTags {
			return errors.New(errors.PhaseSection, errors.CodeIndexOutOfRange).
				At(m.Exports.Span.Begin).
				Section("export").
				Context(errors.Index{Index: exp.Index, Limit: numTags}).
				Detail("export %d (%s) references tag %d", i, exp.Name, exp.Index).
				Build()
		}
	}
	return nil
}
