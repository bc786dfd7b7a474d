// Package types defines the data types of the low-level intermediate representation: fixed-width integers
// and floats, pointers, named structs, arrays and vectors. Lowered language types map onto these via the
// lowering pass's type map.
package types

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind discriminates the LLIR type variants.
type Kind int

const (
	Void Kind = iota
	Int
	Float
	Pointer
	Struct
	Array
	Vector
)

// Type describes one LLIR data type. Exactly the fields relevant to the Kind are meaningful: Bits for Int
// and Float, Signed for Int, Elem for Pointer/Array/Vector, Count for Array/Vector, Name and Fields for
// Struct.
type Type struct {
	kind   Kind
	bits   int
	signed bool
	elem   *Type
	count  int
	name   string
	fields []*Type
}

// ---------------------
// ----- Constants -----
// ---------------------

// Interned scalar types. Identity comparison (==) is valid for these.
var (
	VoidType = &Type{kind: Void}
	I1       = &Type{kind: Int, bits: 1, signed: false}
	I8       = &Type{kind: Int, bits: 8, signed: true}
	I16      = &Type{kind: Int, bits: 16, signed: true}
	I32      = &Type{kind: Int, bits: 32, signed: true}
	I64      = &Type{kind: Int, bits: 64, signed: true}
	U8       = &Type{kind: Int, bits: 8, signed: false}
	U16      = &Type{kind: Int, bits: 16, signed: false}
	U32      = &Type{kind: Int, bits: 32, signed: false}
	U64      = &Type{kind: Int, bits: 64, signed: false}
	F32      = &Type{kind: Float, bits: 32}
	F64      = &Type{kind: Float, bits: 64}
)

// ---------------------
// ----- Functions -----
// ---------------------

// IntType returns the interned integer type of the given width and signedness.
func IntType(bits int, signed bool) *Type {
	switch bits {
	case 1:
		return I1
	case 8:
		if signed {
			return I8
		}
		return U8
	case 16:
		if signed {
			return I16
		}
		return U16
	case 32:
		if signed {
			return I32
		}
		return U32
	case 64:
		if signed {
			return I64
		}
		return U64
	}
	panic(fmt.Sprintf("llir/types: unsupported integer width %d", bits))
}

// FloatType returns the interned floating point type of the given width.
func FloatType(bits int) *Type {
	switch bits {
	case 32:
		return F32
	case 64:
		return F64
	}
	panic(fmt.Sprintf("llir/types: unsupported float width %d", bits))
}

// PointerTo returns a pointer type to elem.
func PointerTo(elem *Type) *Type {
	return &Type{kind: Pointer, elem: elem}
}

// StructOf returns a named struct type over the given field types. Anonymous structs pass an empty name and
// print their field list inline.
func StructOf(name string, fields ...*Type) *Type {
	return &Type{kind: Struct, name: name, fields: fields}
}

// ArrayOf returns an array type of count elements of elem. A count of zero denotes a flexible trailing
// array, as used by the str record's inline byte data.
func ArrayOf(elem *Type, count int) *Type {
	return &Type{kind: Array, elem: elem, count: count}
}

// VectorOf returns a fixed-width vector type, the lowering of the language's multi-types.
func VectorOf(elem *Type, count int) *Type {
	return &Type{kind: Vector, elem: elem, count: count}
}

// Kind returns t's kind tag.
func (t *Type) Kind() Kind { return t.kind }

// Bits returns the bit width of an Int or Float type.
func (t *Type) Bits() int { return t.bits }

// Signed reports whether an Int type is signed.
func (t *Type) Signed() bool { return t.signed }

// Elem returns the element type of a Pointer, Array or Vector.
func (t *Type) Elem() *Type { return t.elem }

// Count returns the element count of an Array or Vector.
func (t *Type) Count() int { return t.count }

// Name returns the name of a named Struct, or the empty string.
func (t *Type) Name() string { return t.name }

// Fields returns the ordered field types of a Struct.
func (t *Type) Fields() []*Type { return t.fields }

// IsInt reports whether t is an integer type, of any width or signedness.
func (t *Type) IsInt() bool { return t != nil && t.kind == Int }

// IsFloat reports whether t is a floating point type.
func (t *Type) IsFloat() bool { return t != nil && t.kind == Float }

// IsPointer reports whether t is a pointer type.
func (t *Type) IsPointer() bool { return t != nil && t.kind == Pointer }

// IsStruct reports whether t is a struct type.
func (t *Type) IsStruct() bool { return t != nil && t.kind == Struct }

// String returns the textual LLIR spelling of t. Named structs print as a %-reference; their field lists
// are printed once in the module header by Module.String.
func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.kind {
	case Void:
		return "void"
	case Int:
		if t.signed {
			return fmt.Sprintf("i%d", t.bits)
		}
		return fmt.Sprintf("u%d", t.bits)
	case Float:
		return fmt.Sprintf("f%d", t.bits)
	case Pointer:
		return t.elem.String() + "*"
	case Struct:
		if t.name != "" {
			return "%" + t.name
		}
		return t.Definition()
	case Array:
		return fmt.Sprintf("[%d x %s]", t.count, t.elem.String())
	case Vector:
		return fmt.Sprintf("<%d x %s>", t.count, t.elem.String())
	}
	return "<unknown type>"
}

// Definition returns the expanded field list of a struct type, used when the module header defines a named
// struct: `%name = type { ... }`.
func (t *Type) Definition() string {
	if t.kind != Struct {
		return t.String()
	}
	sb := strings.Builder{}
	sb.WriteString("{ ")
	for i1, e1 := range t.fields {
		sb.WriteString(e1.String())
		if i1 < len(t.fields)-1 {
			sb.WriteString(", ")
		}
	}
	sb.WriteString(" }")
	return sb.String()
}

// Equal reports whether a and b describe the same LLIR type.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Void:
		return true
	case Int:
		return a.bits == b.bits && a.signed == b.signed
	case Float:
		return a.bits == b.bits
	case Pointer:
		return Equal(a.elem, b.elem)
	case Array, Vector:
		return a.count == b.count && Equal(a.elem, b.elem)
	case Struct:
		if a.name != "" || b.name != "" {
			return a.name == b.name
		}
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i1 := range a.fields {
			if !Equal(a.fields[i1], b.fields[i1]) {
				return false
			}
		}
		return true
	}
	return false
}
