// Package types implements the compiler's type model: a small closed set of tagged type variants with
// equality, a stable string form used as a lowering-cache key, and a stable 32-bit id derived by hashing
// that string form.
package types

import (
	"hash/fnv"
	"strconv"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Variation tags which kind of Type a value represents.
type Variation int

const (
	Primitive Variation = iota
	MultiType
	Data
	Entity
	ErrorSet
	Variant
	Optional
)

// Width is the element count of a MultiType (the language's fixed-width vector types).
type Width int

const (
	Width2 Width = 2
	Width3 Width = 3
	Width4 Width = 4
	Width8 Width = 8
)

// DataNode is the minimal shape of a data-record definition a Data type refers to: enough to derive a
// stable identity and lower its fields in declaration order.
type DataNode struct {
	Name     string
	FileHash uint32
	Fields   []Field
}

// Field is one named, typed member of a DataNode in declaration order.
type Field struct {
	Name string
	Type *Type
}

// EntityNode is the minimal shape of an entity definition an Entity type refers to.
type EntityNode struct {
	Name     string
	FileHash uint32
}

// Type is a tagged variant over the language's type system. Exactly one of the variant-specific fields is
// meaningful for a given Variation; callers switch on Variation before reading them.
type Type struct {
	Variation Variation

	// Primitive
	PrimitiveName string

	// MultiType
	Element *Type
	Width   Width

	// Data
	DataRef *DataNode

	// Entity
	EntityRef *EntityNode

	// ErrorSet
	SetName   string
	SetParent *Type
	Values    []string
	ErrID     uint32

	// Variant
	VariantTag     string
	VariantPayload map[string]*Type

	// Optional
	Inner *Type
}

// --------------------------------
// ----- Primitive memoisation -----
// --------------------------------

var primitiveCache = map[string]*Type{}

// Prim returns the memoised Primitive type named name, constructing it on first use. Primitive type
// instances are interned so identity comparison (==) agrees with name equality.
func Prim(name string) *Type {
	if t, ok := primitiveCache[name]; ok {
		return t
	}
	t := &Type{Variation: Primitive, PrimitiveName: name}
	primitiveCache[name] = t
	return t
}

// Common primitive names recognised by the language.
var (
	I32  = Prim("i32")
	I64  = Prim("i64")
	U8   = Prim("u8")
	U32  = Prim("u32")
	U64  = Prim("u64")
	F32  = Prim("f32")
	F64  = Prim("f64")
	Bool = Prim("bool")
	Str  = Prim("str")
	Void = Prim("void")
)

// ---------------------
// ----- Functions -----
// ---------------------

// NewMultiType builds a MultiType over the given element type and width.
func NewMultiType(element *Type, width Width) *Type {
	return &Type{Variation: MultiType, Element: element, Width: width}
}

// NewDataType builds a Data type referring to node.
func NewDataType(node *DataNode) *Type {
	return &Type{Variation: Data, DataRef: node}
}

// NewEntityType builds an Entity type referring to node.
func NewEntityType(node *EntityNode) *Type {
	return &Type{Variation: Entity, EntityRef: node}
}

// NewErrorSetType builds an ErrorSet type, computing its stable id from the set's canonical name.
func NewErrorSetType(name string, parent *Type, values []string) *Type {
	return &Type{Variation: ErrorSet, SetName: name, SetParent: parent, Values: values, ErrID: HashName(name)}
}

// NewVariantType builds a Variant type for one tag of a larger sum type, carrying the full tag→payload map.
// Equal compares Variant types by identity, not by tag or payload.
func NewVariantType(tag string, payload map[string]*Type) *Type {
	return &Type{Variation: Variant, VariantTag: tag, VariantPayload: payload}
}

// NewOptionalType wraps inner as an Optional.
func NewOptionalType(inner *Type) *Type {
	return &Type{Variation: Optional, Inner: inner}
}

// String returns the stable string form of t, used as the map key for lowered LLIR representations.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Variation {
	case Primitive:
		return t.PrimitiveName
	case MultiType:
		return t.Element.String() + "x" + strconv.Itoa(int(t.Width))
	case Data:
		return "data:" + t.DataRef.Name + "#" + strconv.Itoa(int(t.DataRef.FileHash))
	case Entity:
		return "entity:" + t.EntityRef.Name + "#" + strconv.Itoa(int(t.EntityRef.FileHash))
	case ErrorSet:
		if t.SetParent != nil {
			return "errorset:" + t.SetName + "<" + t.SetParent.String() + ">"
		}
		return "errorset:" + t.SetName
	case Variant:
		return "variant:" + t.VariantTag
	case Optional:
		return "optional<" + t.Inner.String() + ">"
	default:
		return "<unknown type>"
	}
}

// TypeID returns the stable 32-bit id derived from t's canonical string form.
func (t *Type) TypeID() uint32 {
	return HashName(t.String())
}

// HashName derives a stable 32-bit id from a canonical name by FNV-1a hashing. Used for type ids, error-set
// ids, and file-path identity hashes throughout the compiler: the corpus has no dedicated hashing
// dependency for this, and FNV-1a is the stdlib's natural fit for short, stable, non-cryptographic ids.
func HashName(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}

// Equal reports whether a and b denote the same type.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Variation != b.Variation {
		return false
	}
	switch a.Variation {
	case Primitive:
		return a.PrimitiveName == b.PrimitiveName
	case MultiType:
		return a.Width == b.Width && Equal(a.Element, b.Element)
	case Data:
		return a.DataRef == b.DataRef
	case Entity:
		return a.EntityRef == b.EntityRef
	case ErrorSet:
		return a.ErrID == b.ErrID
	case Variant:
		return a == b
	case Optional:
		return Equal(a.Inner, b.Inner)
	default:
		return false
	}
}
