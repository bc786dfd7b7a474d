// Package builtins emits the compiler-provided helper library into an LLIR module: string manipulation,
// overflow-checked arithmetic, printing, reading, numeric/string conversion, filesystem, environment, math
// and assert routines. The helpers do not run at compile time; each Registry helper method builds the LLIR body of
// the helper once per module and returns the cached function on every later request, so call sites dedupe.
package builtins

import (
	"fmt"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Registry carries the per-module helper caches. All helpers live under a reserved name prefix derived by
// hashing the module name, so user code can never collide with them.
type Registry struct {
	m      *llir.Module
	prefix string
	funcs  map[string]*llir.Function // Cache of emitted helpers, keyed by unprefixed helper name.
	str    *lt.Type                  // The str record type: { len: u64, data: [0 x u8] }.
}

// ---------------------
// ----- Constants -----
// ---------------------

// strStructName names the str record type in the module header.
const strStructName = "str"

// ---------------------
// ----- Functions -----
// ---------------------

// NewRegistry creates the helper registry for module m, registering the str record type.
func NewRegistry(m *llir.Module) *Registry {
	r := &Registry{
		m:      m,
		prefix: fmt.Sprintf("__flint_%08x_", types.HashName(m.Name)),
		funcs:  make(map[string]*llir.Function, 32),
	}
	r.str = m.DefineStruct(strStructName, lt.U64, lt.ArrayOf(lt.U8, 0))
	return r
}

// Module returns the module the registry emits into.
func (r *Registry) Module() *llir.Module { return r.m }

// StrType returns the str record type.
func (r *Registry) StrType() *lt.Type { return r.str }

// StrPtr returns the type of a str value as it is passed around: a pointer to the heap record.
func (r *Registry) StrPtr() *lt.Type { return lt.PointerTo(r.str) }

// Name returns the reserved, module-hashed symbol name of the helper called name.
func (r *Registry) Name(name string) string { return r.prefix + name }

// cached returns the helper under name if it has already been emitted.
func (r *Registry) cached(name string) (*llir.Function, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// define creates the helper function shell under the registry's reserved prefix and caches it before the
// body is built, so recursive helper references (append_str calling add_str_str) terminate.
func (r *Registry) define(name string, rtyp *lt.Type, params ...param) *llir.Function {
	f := r.m.CreateFunction(r.Name(name), rtyp)
	for _, e1 := range params {
		f.CreateParam(e1.name, e1.typ)
	}
	r.funcs[name] = f
	return f
}

// param pairs a parameter name with its type for define.
type param struct {
	name string
	typ  *lt.Type
}

// p is shorthand for constructing a param.
func p(name string, typ *lt.Type) param { return param{name: name, typ: typ} }

// ---------------------------
// ----- Extern C symbols -----
// ---------------------------

// Byte pointer shorthand used by nearly every helper.
var bytePtr = lt.PointerTo(lt.U8)

// libc declares (once) the C runtime symbol name with the given signature.
func (r *Registry) libc(name string, rtyp *lt.Type, params []*lt.Type, variadic bool) *llir.Function {
	return r.m.DeclareFunction(name, rtyp, params, variadic)
}

// Malloc returns the declaration of C malloc.
func (r *Registry) Malloc() *llir.Function {
	return r.libc("malloc", bytePtr, []*lt.Type{lt.U64}, false)
}

// Free returns the declaration of C free.
func (r *Registry) Free() *llir.Function {
	return r.libc("free", lt.VoidType, []*lt.Type{bytePtr}, false)
}

// Realloc returns the declaration of C realloc.
func (r *Registry) Realloc() *llir.Function {
	return r.libc("realloc", bytePtr, []*lt.Type{bytePtr, lt.U64}, false)
}

// Memcpy returns the declaration of C memcpy.
func (r *Registry) Memcpy() *llir.Function {
	return r.libc("memcpy", bytePtr, []*lt.Type{bytePtr, bytePtr, lt.U64}, false)
}

// Printf returns the declaration of C printf.
func (r *Registry) Printf() *llir.Function {
	return r.libc("printf", lt.I32, []*lt.Type{bytePtr}, true)
}

// Snprintf returns the declaration of C snprintf.
func (r *Registry) Snprintf() *llir.Function {
	return r.libc("snprintf", lt.I32, []*lt.Type{bytePtr, lt.U64, bytePtr}, true)
}

// Getchar returns the declaration of C getchar.
func (r *Registry) Getchar() *llir.Function {
	return r.libc("getchar", lt.I32, nil, false)
}

// Fopen returns the declaration of C fopen.
func (r *Registry) Fopen() *llir.Function {
	return r.libc("fopen", bytePtr, []*lt.Type{bytePtr, bytePtr}, false)
}

// Fclose returns the declaration of C fclose.
func (r *Registry) Fclose() *llir.Function {
	return r.libc("fclose", lt.I32, []*lt.Type{bytePtr}, false)
}

// Fread returns the declaration of C fread.
func (r *Registry) Fread() *llir.Function {
	return r.libc("fread", lt.U64, []*lt.Type{bytePtr, lt.U64, lt.U64, bytePtr}, false)
}

// Fwrite returns the declaration of C fwrite.
func (r *Registry) Fwrite() *llir.Function {
	return r.libc("fwrite", lt.U64, []*lt.Type{bytePtr, lt.U64, lt.U64, bytePtr}, false)
}

// Fseek returns the declaration of C fseek.
func (r *Registry) Fseek() *llir.Function {
	return r.libc("fseek", lt.I32, []*lt.Type{bytePtr, lt.I64, lt.I32}, false)
}

// Ftell returns the declaration of C ftell.
func (r *Registry) Ftell() *llir.Function {
	return r.libc("ftell", lt.I64, []*lt.Type{bytePtr}, false)
}

// Getenv returns the declaration of C getenv.
func (r *Registry) Getenv() *llir.Function {
	return r.libc("getenv", bytePtr, []*lt.Type{bytePtr}, false)
}

// Setenv returns the declaration of C setenv.
func (r *Registry) Setenv() *llir.Function {
	return r.libc("setenv", lt.I32, []*lt.Type{bytePtr, bytePtr, lt.I32}, false)
}

// Strlen returns the declaration of C strlen.
func (r *Registry) Strlen() *llir.Function {
	return r.libc("strlen", lt.U64, []*lt.Type{bytePtr}, false)
}

// LibmUnary returns the declaration of a one-argument libm routine over the given float width.
func (r *Registry) LibmUnary(name string, typ *lt.Type) *llir.Function {
	return r.libc(name, typ, []*lt.Type{typ}, false)
}

// LibmBinary returns the declaration of a two-argument libm routine over the given float width.
func (r *Registry) LibmBinary(name string, typ *lt.Type) *llir.Function {
	return r.libc(name, typ, []*lt.Type{typ, typ}, false)
}

// ---------------------------
// ----- Shared IR idioms -----
// ---------------------------

// bytePtrAt computes base + offset as a u8 pointer: the helpers index heap buffers with run-time offsets,
// which the constant-index getfield cannot express.
func bytePtrAt(b *llir.Block, base, offset llir.Value) llir.Value {
	addr := b.CreateCast(llir.PtrToInt, base, lt.U64)
	sum := b.CreateBinOp(llir.Add, addr, offset)
	return b.CreateCast(llir.IntToPtr, sum, bytePtr)
}

// strData returns a u8 pointer to the inline byte data of the str record s points at.
func strData(b *llir.Block, s llir.Value) llir.Value {
	data := b.CreateGEP(s, 1)
	return b.CreateCast(llir.Bitcast, data, bytePtr)
}

// strLen loads the length field of the str record s points at.
func strLen(b *llir.Block, s llir.Value) llir.Value {
	return b.CreateLoad(b.CreateGEP(s, 0))
}

// nullPtr materialises a null pointer of the given pointer type.
func nullPtr(b *llir.Block, typ *lt.Type) llir.Value {
	return b.CreateCast(llir.IntToPtr, b.CreateConstIntV(lt.U64, 0), typ)
}

// cstr returns a u8 pointer to the first byte of an interned string literal.
func (r *Registry) cstr(b *llir.Block, s string) llir.Value {
	g := r.m.CreateString(s)
	return b.CreateGEP(g, 0)
}
