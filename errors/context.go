package errors

import "fmt"

// Context is the structured payload attached to an Error. The concrete types
// below are the only implementations.
type Context interface {
	String() string
	isContext()
}

// Count carries a single count, usually the declared one.
type Count struct {
	Value uint32
}

// CountPair carries a resolved count against the declared one.
type CountPair struct {
	Got  uint32
	Want uint32
}

// Index carries an index checked against the size of its index space.
type Index struct {
	Index uint32
	Limit uint32
}

// Depth carries the operand stack depth of a constant expression against
// the depth an instruction needs.
type Depth struct {
	Got  uint32
	Want uint32
}

// TypeCode carries an offending type or tag byte.
type TypeCode struct {
	Code byte
}

// SectionID carries a section id.
type SectionID struct {
	ID byte
}

// Size carries a wide value that failed a platform or limit check.
type Size struct {
	Value uint64
	Limit uint64
}

// ImportDefined carries both operands of an imported+defined overflow.
type ImportDefined struct {
	Kind     byte
	Defined  uint32
	Imported uint32
}

func (c Count) String() string {
	return fmt.Sprintf("count %d", c.Value)
}

func (c CountPair) String() string {
	return fmt.Sprintf("resolved %d, declared %d", c.Got, c.Want)
}

func (c Index) String() string {
	return fmt.Sprintf("index %d, limit %d", c.Index, c.Limit)
}

func (c Depth) String() string {
	return fmt.Sprintf("stack depth %d, want %d", c.Got, c.Want)
}

func (c TypeCode) String() string {
	return fmt.Sprintf("code 0x%02x", c.Code)
}

func (c SectionID) String() string {
	return fmt.Sprintf("section id %d", c.ID)
}

func (c Size) String() string {
	return fmt.Sprintf("value %d exceeds %d", c.Value, c.Limit)
}

func (c ImportDefined) String() string {
	return fmt.Sprintf("kind %d: defined %d + imported %d exceeds u32", c.Kind, c.Defined, c.Imported)
}

func (Count) isContext()         {}
func (CountPair) isContext()     {}
func (Index) isContext()         {}
func (Depth) isContext()         {}
func (TypeCode) isContext()      {}
func (SectionID) isContext()     {}
func (Size) isContext()          {}
func (ImportDefined) isContext() {}
