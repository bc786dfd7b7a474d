package lower

import (
	"fmt"
	"strings"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// Type lowering per the data model: primitives map to the obvious fixed-width types, str to a pointer to
// the { len, data } heap record, multi-types to vectors, data records to named structs keyed by field
// order. Function return types become the { err: i32, ... } return struct, memoised by the concatenation
// of the return-type spellings.

// LowerType lowers a language type into its LLIR representation, defining any named struct it needs on m.
// An unknown type is an internal compiler error.
func (ctx *ProgramContext) LowerType(m *llir.Module, t *types.Type) *lt.Type {
	key := t.String()
	ctx.typeMu.Lock()
	if lowered, ok := ctx.typeMap[key]; ok {
		ctx.typeMu.Unlock()
		// Named structs must exist in every module that references them.
		if lowered.IsStruct() || (lowered.IsPointer() && lowered.Elem().IsStruct()) {
			ctx.ensureStructDefined(m, lowered)
		}
		return lowered
	}
	ctx.typeMu.Unlock()

	lowered := ctx.lowerTypeUncached(m, t)

	ctx.typeMu.Lock()
	ctx.typeMap[key] = lowered
	ctx.typeMu.Unlock()
	return lowered
}

// ensureStructDefined registers a named struct (or pointee struct) with m if another module defined it
// first.
func (ctx *ProgramContext) ensureStructDefined(m *llir.Module, lowered *lt.Type) {
	s := lowered
	if s.IsPointer() {
		s = s.Elem()
	}
	if s.Name() != "" && m.GetStruct(s.Name()) == nil {
		m.DefineStruct(s.Name(), s.Fields()...)
	}
}

func (ctx *ProgramContext) lowerTypeUncached(m *llir.Module, t *types.Type) *lt.Type {
	switch t.Variation {
	case types.Primitive:
		return ctx.lowerPrimitive(m, t.PrimitiveName)
	case types.MultiType:
		return lt.VectorOf(ctx.LowerType(m, t.Element), int(t.Width))
	case types.Data:
		node := t.DataRef
		name := fmt.Sprintf("data.%s.%08x", node.Name, node.FileHash)
		if s := m.GetStruct(name); s != nil {
			return s
		}
		fields := make([]*lt.Type, len(node.Fields))
		for i1, e1 := range node.Fields {
			fields[i1] = ctx.LowerType(m, e1.Type)
		}
		return m.DefineStruct(name, fields...)
	case types.Entity:
		// Entities are reference types: a pointer to their named record.
		name := fmt.Sprintf("entity.%s.%08x", t.EntityRef.Name, t.EntityRef.FileHash)
		s := m.GetStruct(name)
		if s == nil {
			s = m.DefineStruct(name, lt.U64)
		}
		return lt.PointerTo(s)
	case types.ErrorSet:
		return lt.I32
	case types.Variant:
		// A variant value is its tag plus a boxed payload.
		name := "variant." + t.VariantTag
		if s := m.GetStruct(name); s != nil {
			return s
		}
		return m.DefineStruct(name, lt.I32, lt.PointerTo(lt.U8))
	case types.Optional:
		inner := ctx.LowerType(m, t.Inner)
		name := "opt." + strings.ReplaceAll(inner.String(), "%", "")
		if s := m.GetStruct(name); s != nil {
			return s
		}
		return m.DefineStruct(name, lt.I1, inner)
	}
	panic(fmt.Sprintf("lower: asked to lower unknown type %s", t.String()))
}

// lowerPrimitive maps a primitive type name onto its LLIR scalar, or the str record pointer.
func (ctx *ProgramContext) lowerPrimitive(m *llir.Module, name string) *lt.Type {
	switch name {
	case "i8":
		return lt.I8
	case "i16":
		return lt.I16
	case "i32", "int":
		return lt.I32
	case "i64":
		return lt.I64
	case "u8", "char":
		return lt.U8
	case "u16":
		return lt.U16
	case "u32":
		return lt.U32
	case "u64":
		return lt.U64
	case "f32":
		return lt.F32
	case "f64", "flint":
		return lt.F64
	case "bool":
		return lt.I1
	case "str":
		return lt.PointerTo(ctx.strType(m))
	case "void":
		return lt.VoidType
	}
	panic(fmt.Sprintf("lower: unknown primitive type %q", name))
}

// strType returns the { len: u64, data: [0 x u8] } record, defining it on m on first use there.
func (ctx *ProgramContext) strType(m *llir.Module) *lt.Type {
	if s := m.GetStruct("str"); s != nil {
		return s
	}
	return m.DefineStruct("str", lt.U64, lt.ArrayOf(lt.U8, 0))
}

// ReturnStruct lowers a function's declared return types into its { err: i32, values... } return struct,
// memoised by the concatenation of the return-type spellings. A void (or empty) return list yields the
// one-field struct { i32 }.
func (ctx *ProgramContext) ReturnStruct(m *llir.Module, rets []*types.Type) *lt.Type {
	fields := make([]*lt.Type, 0, len(rets)+1)
	fields = append(fields, lt.I32)
	parts := []string{"ret"}
	for _, e1 := range rets {
		if e1.Variation == types.Primitive && e1.PrimitiveName == "void" {
			continue
		}
		lowered := ctx.LowerType(m, e1)
		fields = append(fields, lowered)
		parts = append(parts, strings.ReplaceAll(lowered.String(), "%", ""))
	}
	if len(fields) == 1 {
		parts = append(parts, "void")
	}
	name := strings.Join(parts, ".")
	if s := m.GetStruct(name); s != nil {
		return s
	}
	return m.DefineStruct(name, fields...)
}
