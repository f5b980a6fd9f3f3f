package wasm

import (
	"math"

	"github.com/wippyai/wasm-binfmt/errors"
	"github.com/wippyai/wasm-binfmt/wasm/internal/binary"
)

// DecodeValType reads one value type byte and checks it is registered.
func DecodeValType(c *SectionContext, pos int) (ValType, int, error) {
	b, next, err := binary.Byte(c.Src, pos, c.End)
	if err != nil {
		return 0, pos, err
	}
	if !c.Set.ValueType(ValType(b)) {
		return 0, pos, c.Fail(errors.CodeInvalidValueType, pos).
			Context(errors.TypeCode{Code: b}).
			Build()
	}
	return ValType(b), next, nil
}

// DecodeRefType reads a value type that must be a reference type.
func DecodeRefType(c *SectionContext, pos int) (ValType, int, error) {
	vt, next, err := DecodeValType(c, pos)
	if err != nil {
		return 0, pos, err
	}
	if !vt.IsRef() {
		return 0, pos, c.Fail(errors.CodeInvalidValueType, pos).
			Context(errors.TypeCode{Code: byte(vt)}).
			Detail("expected a reference type").
			Build()
	}
	return vt, next, nil
}

func decodeValTypes(c *SectionContext, pos int) ([]ValType, int, error) {
	count, pos, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return nil, pos, err
	}
	types := make([]ValType, 0, min(uint64(count), uint64(c.End-pos)))
	for i := uint32(0); i < count; i++ {
		var vt ValType
		vt, pos, err = DecodeValType(c, pos)
		if err != nil {
			return nil, pos, err
		}
		types = append(types, vt)
	}
	return types, pos, nil
}

func decodeFuncType(c *SectionContext, pos int) (FuncType, int, error) {
	form, next, err := binary.Byte(c.Src, pos, c.End)
	if err != nil {
		return FuncType{}, pos, err
	}
	if form != FuncTypeByte {
		return FuncType{}, pos, c.Fail(errors.CodeInvalidFuncTypeForm, pos).
			Context(errors.TypeCode{Code: form}).
			Build()
	}

	params, next, err := decodeValTypes(c, next)
	if err != nil {
		return FuncType{}, pos, err
	}
	resultsPos := next
	results, next, err := decodeValTypes(c, next)
	if err != nil {
		return FuncType{}, pos, err
	}
	if len(results) > 1 && !c.Set.Allows(PolicyMultiValue) {
		return FuncType{}, pos, c.Fail(errors.CodeTooManyResults, resultsPos).
			Context(errors.Count{Value: uint32(len(results))}).
			Build()
	}
	return FuncType{Params: params, Results: results}, next, nil
}

// DecodeGlobalType reads a value type followed by the global flags byte.
// Bit 0 is mutability; other bits belong to the features that register
// them.
func DecodeGlobalType(c *SectionContext, pos int) (GlobalType, int, error) {
	gt, _, next, err := decodeGlobalType(c, pos)
	return gt, next, err
}

func decodeGlobalType(c *SectionContext, pos int) (GlobalType, byte, int, error) {
	vt, next, err := DecodeValType(c, pos)
	if err != nil {
		return GlobalType{}, 0, pos, err
	}
	flags, next, err := binary.Byte(c.Src, next, c.End)
	if err != nil {
		return GlobalType{}, 0, pos, err
	}
	if flags&^c.Set.GlobalFlags() != 0 {
		return GlobalType{}, 0, pos, c.Fail(errors.CodeInvalidMutability, next-1).
			Context(errors.TypeCode{Code: flags}).
			Build()
	}
	gt := GlobalType{ValType: vt}
	for bit := byte(1); bit != 0; bit <<= 1 {
		if flags&bit == 0 {
			continue
		}
		if d, ok := c.Set.globalFlag(bit); ok && d.Apply != nil {
			d.Apply(&gt)
		}
	}
	return gt, flags, next, nil
}

func decodeGlobalEntry(c *SectionContext, pos int) (GlobalEntry, int, error) {
	gt, flags, next, err := decodeGlobalType(c, pos)
	if err != nil {
		return GlobalEntry{}, pos, err
	}
	expr, next, err := ScanConstExpr(c.Set, c.Src, next, c.End)
	if err != nil {
		return GlobalEntry{}, pos, err
	}
	g := GlobalEntry{Type: gt, Init: expr}
	for bit := byte(1); bit != 0; bit <<= 1 {
		if flags&bit == 0 {
			continue
		}
		if d, ok := c.Set.globalFlag(bit); ok && d.Trailer != nil {
			next, err = d.Trailer(c, next, &g)
			if err != nil {
				return GlobalEntry{}, pos, err
			}
		}
	}
	return g, next, nil
}

// DecodeTableType reads a reference type and table limits.
func DecodeTableType(c *SectionContext, pos int) (TableType, int, error) {
	elemType, next, err := DecodeRefType(c, pos)
	if err != nil {
		return TableType{}, pos, err
	}
	flagsPos := next
	flags, next, err := binary.Byte(c.Src, next, c.End)
	if err != nil {
		return TableType{}, pos, err
	}
	if flags&^LimitsHasMax != 0 {
		return TableType{}, pos, c.Fail(errors.CodeInvalidLimitsFlags, flagsPos).
			Context(errors.TypeCode{Code: flags}).
			Build()
	}

	var l Limits
	min32, next, err := binary.U32(c.Src, next, c.End)
	if err != nil {
		return TableType{}, pos, err
	}
	l.Min = uint64(min32)
	if flags&LimitsHasMax != 0 {
		var max32 uint32
		max32, next, err = binary.U32(c.Src, next, c.End)
		if err != nil {
			return TableType{}, pos, err
		}
		hi := uint64(max32)
		l.Max = &hi
		if l.Min > hi {
			return TableType{}, pos, c.Fail(errors.CodeLimitsMinExceedsMax, flagsPos).
				Context(errors.Size{Value: l.Min, Limit: hi}).
				Build()
		}
	}
	return TableType{ElemType: elemType, Limits: l}, next, nil
}

// DecodeMemoryType reads memory limits. The accepted flag bits, the width
// of the bounds, the page limit and any immediates after the bounds come
// from the registered limits flags.
func DecodeMemoryType(c *SectionContext, pos int) (MemoryType, int, error) {
	flags, next, err := binary.Byte(c.Src, pos, c.End)
	if err != nil {
		return MemoryType{}, pos, err
	}
	if flags&^c.Set.LimitFlags() != 0 {
		return MemoryType{}, pos, c.Fail(errors.CodeInvalidLimitsFlags, pos).
			Context(errors.TypeCode{Code: flags}).
			Build()
	}

	var l Limits
	bounds := MemoryBounds{MaxPages: MemoryMaxPages32}
	var defs []LimitFlagDef
	for bit := byte(1); bit != 0; bit <<= 1 {
		if flags&bit == 0 {
			continue
		}
		if d, ok := c.Set.limitFlag(bit); ok {
			defs = append(defs, d)
		}
	}
	for _, d := range defs {
		if d.Apply != nil {
			d.Apply(&l, &bounds)
		}
	}

	readBound := func(at int) (uint64, int, error) {
		if bounds.Wide {
			return binary.U64(c.Src, at, c.End)
		}
		v, n, err := binary.U32(c.Src, at, c.End)
		return uint64(v), n, err
	}

	l.Min, next, err = readBound(next)
	if err != nil {
		return MemoryType{}, pos, err
	}
	if flags&LimitsHasMax != 0 {
		var hi uint64
		hi, next, err = readBound(next)
		if err != nil {
			return MemoryType{}, pos, err
		}
		l.Max = &hi
	}

	for _, d := range defs {
		if d.Trailer == nil {
			continue
		}
		next, err = d.Trailer(c, next, &l, &bounds)
		if err != nil {
			return MemoryType{}, pos, err
		}
	}

	if err := checkMemoryLimits(c, pos, l, bounds); err != nil {
		return MemoryType{}, pos, err
	}
	for _, d := range defs {
		if d.Check == nil {
			continue
		}
		if err := d.Check(c, pos, &l); err != nil {
			return MemoryType{}, pos, err
		}
	}
	return MemoryType{Limits: l}, next, nil
}

func checkMemoryLimits(c *SectionContext, pos int, l Limits, b MemoryBounds) error {
	if l.Max != nil && l.Min > *l.Max {
		return c.Fail(errors.CodeLimitsMinExceedsMax, pos).
			Context(errors.Size{Value: l.Min, Limit: *l.Max}).
			Build()
	}
	for _, pages := range []uint64{l.Min, derefOr(l.Max, 0)} {
		if pages > b.MaxPages {
			return c.Fail(errors.CodeMemoryPagesExceedLimit, pos).
				Context(errors.Size{Value: pages, Limit: b.MaxPages}).
				Build()
		}
	}
	return nil
}

func derefOr(p *uint64, def uint64) uint64 {
	if p == nil {
		return def
	}
	return *p
}

// DecodeFuncIndices reads a vector of function indices.
func DecodeFuncIndices(c *SectionContext, pos int) ([]uint32, int, error) {
	count, next, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return nil, pos, err
	}
	out := make([]uint32, 0, min(uint64(count), uint64(c.End-next)))
	for i := uint32(0); i < count; i++ {
		var idx uint32
		idx, next, err = binary.U32(c.Src, next, c.End)
		if err != nil {
			return nil, pos, err
		}
		out = append(out, idx)
	}
	return out, next, nil
}

// DecodeConstExprs reads a vector of constant expressions.
func DecodeConstExprs(c *SectionContext, pos int) ([]Span, int, error) {
	count, next, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return nil, pos, err
	}
	out := make([]Span, 0, min(uint64(count), uint64(c.End-next)))
	for i := uint32(0); i < count; i++ {
		var expr Span
		expr, next, err = ScanConstExpr(c.Set, c.Src, next, c.End)
		if err != nil {
			return nil, pos, err
		}
		out = append(out, expr)
	}
	return out, next, nil
}

// DecodeDataInit reads the byte vector of a data segment and returns its span.
func DecodeDataInit(c *SectionContext, pos int) (Span, int, error) {
	n, next, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return Span{}, pos, err
	}
	if uint64(n) > uint64(c.End-next) {
		return Span{}, pos, errors.UnexpectedEnd(c.End)
	}
	end := next + int(n)
	return Span{Begin: next, End: end}, end, nil
}

// DecodeU32 reads one unsigned LEB128 index.
func DecodeU32(c *SectionContext, pos int) (uint32, int, error) {
	return binary.U32(c.Src, pos, c.End)
}

// DecodeByte reads one byte.
func DecodeByte(c *SectionContext, pos int) (byte, int, error) {
	return binary.Byte(c.Src, pos, c.End)
}

func decodeCustom(c *SectionContext) error {
	name, next, err := binary.Name(c.Src, c.Begin, c.End)
	if err != nil {
		return err
	}
	c.Module.Customs = append(c.Module.Customs, CustomSection{
		Name:    name,
		Span:    c.Span(),
		Payload: Span{Begin: next, End: c.End},
	})
	return nil
}

func decodeFuncBody(c *SectionContext, pos int) (FuncBody, int, error) {
	size, begin, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return FuncBody{}, pos, err
	}
	if uint64(size) > uint64(c.End-begin) {
		return FuncBody{}, pos, c.Fail(errors.CodeUnexpectedEndOfInput, c.End).
			Context(errors.Size{Value: uint64(size), Limit: uint64(c.End - begin)}).
			Detail("function body exceeds section").
			Build()
	}
	end := begin + int(size)

	groups, next, err := binary.U32(c.Src, begin, end)
	if err != nil {
		return FuncBody{}, pos, err
	}
	locals := make([]LocalEntry, 0, min(uint64(groups), uint64(end-next)))
	var total uint64
	for i := uint32(0); i < groups; i++ {
		groupPos := next
		var n uint32
		n, next, err = binary.U32(c.Src, next, end)
		if err != nil {
			return FuncBody{}, pos, err
		}
		total += uint64(n)
		if total > math.MaxUint32 {
			return FuncBody{}, pos, c.Fail(errors.CodeTooManyLocals, groupPos).
				Context(errors.Size{Value: total, Limit: math.MaxUint32}).
				Build()
		}
		var b byte
		b, next, err = binary.Byte(c.Src, next, end)
		if err != nil {
			return FuncBody{}, pos, err
		}
		if !c.Set.ValueType(ValType(b)) {
			return FuncBody{}, pos, c.Fail(errors.CodeInvalidValueType, next-1).
				Context(errors.TypeCode{Code: b}).
				Build()
		}
		locals = append(locals, LocalEntry{Count: n, ValType: ValType(b)})
	}

	if next >= end || c.Src[end-1] != OpEnd {
		return FuncBody{}, pos, c.Fail(errors.CodeTerminatorNotFound, end).
			Detail("function body does not end with the end opcode").
			Build()
	}
	return FuncBody{
		Span:   Span{Begin: begin, End: end},
		Locals: locals,
		Code:   Span{Begin: next, End: end},
	}, end, nil
}

func decodeDataSegment(c *SectionContext, pos int) (DataSegment, int, error) {
	flags, next, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return DataSegment{}, pos, err
	}
	mode, ok := c.Set.DataMode(flags)
	if !ok {
		return DataSegment{}, pos, c.Fail(errors.CodeInvalidDataMode, pos).
			Context(errors.Count{Value: flags}).
			Build()
	}
	seg := DataSegment{Flags: flags}
	next, err = mode.Decode(c, next, &seg)
	if err != nil {
		return DataSegment{}, pos, err
	}
	return seg, next, nil
}

func decodeElement(c *SectionContext, pos int) (Element, int, error) {
	flags, next, err := binary.U32(c.Src, pos, c.End)
	if err != nil {
		return Element{}, pos, err
	}
	mode, ok := c.Set.ElemMode(flags)
	if !ok {
		return Element{}, pos, c.Fail(errors.CodeInvalidElementMode, pos).
			Context(errors.Count{Value: flags}).
			Build()
	}
	seg := Element{Flags: flags}
	next, err = mode.Decode(c, next, &seg)
	if err != nil {
		return Element{}, pos, err
	}
	return seg, next, nil
}

// activeData is data mode 0: memory 0, offset expression, bytes.
func activeData(c *SectionContext, pos int, seg *DataSegment) (int, error) {
	offset, next, err := ScanConstExpr(c.Set, c.Src, pos, c.End)
	if err != nil {
		return pos, err
	}
	payload, next, err := DecodeDataInit(c, next)
	if err != nil {
		return pos, err
	}
	seg.Mode = DataActive
	seg.Offset = offset
	seg.Init = payload
	return next, nil
}

// activeFuncs is element mode 0: table 0, offset expression, function indices.
func activeFuncs(c *SectionContext, pos int, seg *Element) (int, error) {
	offset, next, err := ScanConstExpr(c.Set, c.Src, pos, c.End)
	if err != nil {
		return pos, err
	}
	funcs, next, err := DecodeFuncIndices(c, next)
	if err != nil {
		return pos, err
	}
	seg.Mode = ElemActive
	seg.Offset = offset
	seg.ElemType = ValFuncRef
	seg.FuncIndices = funcs
	return next, nil
}
