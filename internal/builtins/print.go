package builtins

import (
	"fmt"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// The print_<type> family wraps C printf with the appropriate format string per lowered type. Each variant
// is emitted on first use and cached like every other helper.

// printfFormat returns the printf conversion for an integer or float type.
func printfFormat(typ *lt.Type) string {
	if typ.IsFloat() {
		return "%f"
	}
	if !typ.IsInt() {
		panic(fmt.Sprintf("builtins: no printf format for %s", typ.String()))
	}
	switch {
	case typ.Bits() == 64 && typ.Signed():
		return "%lld"
	case typ.Bits() == 64:
		return "%llu"
	case typ.Signed():
		return "%d"
	default:
		return "%u"
	}
}

// printfArg widens v to the type C variadic promotion expects: small integers promote to 32 bits, f32 to
// f64.
func printfArg(b *llir.Block, v llir.Value) llir.Value {
	t := v.Type()
	switch {
	case t.IsInt() && t.Bits() < 32 && t.Signed():
		return b.CreateCast(llir.SExt, v, lt.I32)
	case t.IsInt() && t.Bits() < 32:
		return b.CreateCast(llir.ZExt, v, lt.U32)
	case t == lt.F32:
		return b.CreateCast(llir.FPExt, v, lt.F64)
	}
	return v
}

// PrintScalar emits print_<type> for an integer or float type: printf of the value with the matching
// conversion.
func (r *Registry) PrintScalar(typ *lt.Type) *llir.Function {
	name := "print_" + typ.String()
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, lt.VoidType, p("v", typ))
	b := f.CreateBlock("entry")
	fmtPtr := r.cstr(b, printfFormat(typ))
	b.CreateCall(r.Printf(), fmtPtr, printfArg(b, f.Params()[0]))
	b.CreateRet(nil)
	return f
}

// PrintBool emits print_bool: routes to a "true" or "false" branch.
func (r *Registry) PrintBool() *llir.Function {
	if f, ok := r.cached("print_bool"); ok {
		return f
	}
	f := r.define("print_bool", lt.VoidType, p("v", lt.I1))
	entry := f.CreateBlock("entry")
	t := f.CreateBlock("true")
	fa := f.CreateBlock("false")
	entry.CreateCondBr(f.Params()[0], t, fa)
	t.CreateCall(r.Printf(), r.cstr(t, "true"))
	t.CreateRet(nil)
	fa.CreateCall(r.Printf(), r.cstr(fa, "false"))
	fa.CreateRet(nil)
	return f
}

// PrintStrLit emits print_str_lit(ptr, len): prints a raw literal with a bounded %.*s conversion.
func (r *Registry) PrintStrLit() *llir.Function {
	if f, ok := r.cached("print_str_lit"); ok {
		return f
	}
	f := r.define("print_str_lit", lt.VoidType, p("ptr", bytePtr), p("len", lt.U64))
	b := f.CreateBlock("entry")
	n := b.CreateCast(llir.Trunc, f.Params()[1], lt.I32)
	b.CreateCall(r.Printf(), r.cstr(b, "%.*s"), n, f.Params()[0])
	b.CreateRet(nil)
	return f
}

// PrintStr emits print_str(s): prints the bytes of a str value with a bounded %.*s conversion.
func (r *Registry) PrintStr() *llir.Function {
	if f, ok := r.cached("print_str"); ok {
		return f
	}
	f := r.define("print_str", lt.VoidType, p("s", r.StrPtr()))
	b := f.CreateBlock("entry")
	s := f.Params()[0]
	n := b.CreateCast(llir.Trunc, strLen(b, s), lt.I32)
	b.CreateCall(r.Printf(), r.cstr(b, "%.*s"), n, strData(b, s))
	b.CreateRet(nil)
	return f
}
