package builtins

import (
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// The str value type is a heap record { len: u64, data: [len x u8] }. Every helper here deals in pointers
// to that record; ownership stays with the calling scope, which frees at scope exit.

// CreateStr emits create_str(len): allocates an uninitialised str of capacity len and sets the len field.
func (r *Registry) CreateStr() *llir.Function {
	if f, ok := r.cached("create_str"); ok {
		return f
	}
	f := r.define("create_str", r.StrPtr(), p("len", lt.U64))
	b := f.CreateBlock("entry")
	ln := f.Params()[0]
	// Header is 8 bytes; the byte data follows inline.
	size := b.CreateBinOp(llir.Add, ln, b.CreateConstIntV(lt.U64, 8))
	raw := b.CreateCall(r.Malloc(), size)
	s := b.CreateCast(llir.Bitcast, raw, r.StrPtr())
	b.CreateStore(ln, b.CreateGEP(s, 0))
	b.CreateRet(s)
	return f
}

// InitStr emits init_str(ptr, len): copies len bytes from a raw pointer into a fresh str.
func (r *Registry) InitStr() *llir.Function {
	if f, ok := r.cached("init_str"); ok {
		return f
	}
	f := r.define("init_str", r.StrPtr(), p("ptr", bytePtr), p("len", lt.U64))
	b := f.CreateBlock("entry")
	ptr, ln := f.Params()[0], f.Params()[1]
	s := b.CreateCall(r.CreateStr(), ln)
	b.CreateCall(r.Memcpy(), strData(b, s), ptr, ln)
	b.CreateRet(s)
	return f
}

// AssignStr emits assign_str(dst, src): replaces *dst with a deep copy of src, freeing the old value.
func (r *Registry) AssignStr() *llir.Function {
	if f, ok := r.cached("assign_str"); ok {
		return f
	}
	f := r.define("assign_str", lt.VoidType, p("dst", lt.PointerTo(r.StrPtr())), p("src", r.StrPtr()))
	b := f.CreateBlock("entry")
	dst, src := f.Params()[0], f.Params()[1]
	old := b.CreateLoad(dst)
	b.CreateCall(r.Free(), b.CreateCast(llir.Bitcast, old, bytePtr))
	cp := b.CreateCall(r.InitStr(), strData(b, src), strLen(b, src))
	b.CreateStore(cp, dst)
	b.CreateRet(nil)
	return f
}

// AssignLit emits assign_lit(dst, ptr, len): assign_str from a raw literal.
func (r *Registry) AssignLit() *llir.Function {
	if f, ok := r.cached("assign_lit"); ok {
		return f
	}
	f := r.define("assign_lit", lt.VoidType,
		p("dst", lt.PointerTo(r.StrPtr())), p("ptr", bytePtr), p("len", lt.U64))
	b := f.CreateBlock("entry")
	dst, ptr, ln := f.Params()[0], f.Params()[1], f.Params()[2]
	old := b.CreateLoad(dst)
	b.CreateCall(r.Free(), b.CreateCast(llir.Bitcast, old, bytePtr))
	b.CreateStore(b.CreateCall(r.InitStr(), ptr, ln), dst)
	b.CreateRet(nil)
	return f
}

// AddStrStr emits add_str_str(a, b): concatenation into a fresh str.
func (r *Registry) AddStrStr() *llir.Function {
	if f, ok := r.cached("add_str_str"); ok {
		return f
	}
	f := r.define("add_str_str", r.StrPtr(), p("a", r.StrPtr()), p("b", r.StrPtr()))
	b := f.CreateBlock("entry")
	pa, pb := f.Params()[0], f.Params()[1]
	la := strLen(b, pa)
	lb := strLen(b, pb)
	s := b.CreateCall(r.CreateStr(), b.CreateBinOp(llir.Add, la, lb))
	dst := strData(b, s)
	b.CreateCall(r.Memcpy(), dst, strData(b, pa), la)
	b.CreateCall(r.Memcpy(), bytePtrAt(b, dst, la), strData(b, pb), lb)
	b.CreateRet(s)
	return f
}

// AddStrLit emits add_str_lit(a, ptr, len): concatenation of a str and a raw literal.
func (r *Registry) AddStrLit() *llir.Function {
	if f, ok := r.cached("add_str_lit"); ok {
		return f
	}
	f := r.define("add_str_lit", r.StrPtr(), p("a", r.StrPtr()), p("ptr", bytePtr), p("len", lt.U64))
	b := f.CreateBlock("entry")
	pa, ptr, ln := f.Params()[0], f.Params()[1], f.Params()[2]
	la := strLen(b, pa)
	s := b.CreateCall(r.CreateStr(), b.CreateBinOp(llir.Add, la, ln))
	dst := strData(b, s)
	b.CreateCall(r.Memcpy(), dst, strData(b, pa), la)
	b.CreateCall(r.Memcpy(), bytePtrAt(b, dst, la), ptr, ln)
	b.CreateRet(s)
	return f
}

// AddLitStr emits add_lit_str(ptr, len, b): concatenation of a raw literal and a str.
func (r *Registry) AddLitStr() *llir.Function {
	if f, ok := r.cached("add_lit_str"); ok {
		return f
	}
	f := r.define("add_lit_str", r.StrPtr(), p("ptr", bytePtr), p("len", lt.U64), p("b", r.StrPtr()))
	b := f.CreateBlock("entry")
	ptr, ln, pb := f.Params()[0], f.Params()[1], f.Params()[2]
	lb := strLen(b, pb)
	s := b.CreateCall(r.CreateStr(), b.CreateBinOp(llir.Add, ln, lb))
	dst := strData(b, s)
	b.CreateCall(r.Memcpy(), dst, ptr, ln)
	b.CreateCall(r.Memcpy(), bytePtrAt(b, dst, ln), strData(b, pb), lb)
	b.CreateRet(s)
	return f
}

// AppendStr emits append_str(dst, src): in-place append, reallocating *dst.
func (r *Registry) AppendStr() *llir.Function {
	if f, ok := r.cached("append_str"); ok {
		return f
	}
	f := r.define("append_str", lt.VoidType, p("dst", lt.PointerTo(r.StrPtr())), p("src", r.StrPtr()))
	b := f.CreateBlock("entry")
	dst, src := f.Params()[0], f.Params()[1]
	cur := b.CreateLoad(dst)
	grown := b.CreateCall(r.AddStrStr(), cur, src)
	b.CreateCall(r.Free(), b.CreateCast(llir.Bitcast, cur, bytePtr))
	b.CreateStore(grown, dst)
	b.CreateRet(nil)
	return f
}

// AppendLit emits append_lit(dst, ptr, len): in-place append of a raw literal.
func (r *Registry) AppendLit() *llir.Function {
	if f, ok := r.cached("append_lit"); ok {
		return f
	}
	f := r.define("append_lit", lt.VoidType,
		p("dst", lt.PointerTo(r.StrPtr())), p("ptr", bytePtr), p("len", lt.U64))
	b := f.CreateBlock("entry")
	dst, ptr, ln := f.Params()[0], f.Params()[1], f.Params()[2]
	cur := b.CreateLoad(dst)
	grown := b.CreateCall(r.AddStrLit(), cur, ptr, ln)
	b.CreateCall(r.Free(), b.CreateCast(llir.Bitcast, cur, bytePtr))
	b.CreateStore(grown, dst)
	b.CreateRet(nil)
	return f
}

// CompareStr emits compare_str(a, b): byte-wise comparison returning -1, 0 or +1.
func (r *Registry) CompareStr() *llir.Function {
	if f, ok := r.cached("compare_str"); ok {
		return f
	}
	f := r.define("compare_str", lt.I32, p("a", r.StrPtr()), p("b", r.StrPtr()))
	entry := f.CreateBlock("entry")
	cond := f.CreateBlock("cond")
	body := f.CreateBlock("body")
	diff := f.CreateBlock("diff")
	less := f.CreateBlock("less")
	greater := f.CreateBlock("greater")
	inc := f.CreateBlock("inc")
	tail := f.CreateBlock("tail")
	tailLess := f.CreateBlock("tail.less")
	tailGtCheck := f.CreateBlock("tail.gtcheck")
	tailGreater := f.CreateBlock("tail.greater")
	equal := f.CreateBlock("equal")

	pa, pb := f.Params()[0], f.Params()[1]
	iSlot := entry.CreateAlloca("i", lt.U64)
	minSlot := entry.CreateAlloca("min", lt.U64)
	entry.CreateStore(entry.CreateConstIntV(lt.U64, 0), iSlot)
	la := strLen(entry, pa)
	lb := strLen(entry, pb)
	aShorter := entry.CreateCmp(llir.Lt, la, lb)
	useA := f.CreateBlock("min.a")
	useB := f.CreateBlock("min.b")
	entry.CreateCondBr(aShorter, useA, useB)
	useA.CreateStore(la, minSlot)
	useA.CreateBr(cond)
	useB.CreateStore(lb, minSlot)
	useB.CreateBr(cond)

	iv := cond.CreateLoad(iSlot)
	cond.CreateCondBr(cond.CreateCmp(llir.Lt, iv, cond.CreateLoad(minSlot)), body, tail)

	iv2 := body.CreateLoad(iSlot)
	ca := body.CreateLoad(bytePtrAt(body, strData(body, pa), iv2))
	cb := body.CreateLoad(bytePtrAt(body, strData(body, pb), iv2))
	body.CreateCondBr(body.CreateCmp(llir.Eq, ca, cb), inc, diff)

	diff.CreateCondBr(diff.CreateCmp(llir.Lt, ca, cb), less, greater)
	less.CreateRet(less.CreateConstIntV(lt.I32, -1))
	greater.CreateRet(greater.CreateConstIntV(lt.I32, 1))

	iv3 := inc.CreateLoad(iSlot)
	inc.CreateStore(inc.CreateBinOp(llir.Add, iv3, inc.CreateConstIntV(lt.U64, 1)), iSlot)
	inc.CreateBr(cond)

	tla := strLen(tail, pa)
	tlb := strLen(tail, pb)
	tail.CreateCondBr(tail.CreateCmp(llir.Lt, tla, tlb), tailLess, tailGtCheck)
	tailLess.CreateRet(tailLess.CreateConstIntV(lt.I32, -1))
	tailGtCheck.CreateCondBr(tailGtCheck.CreateCmp(llir.Gt, tla, tlb), tailGreater, equal)
	tailGreater.CreateRet(tailGreater.CreateConstIntV(lt.I32, 1))
	equal.CreateRet(equal.CreateConstIntV(lt.I32, 0))
	return f
}

// GetCStr emits get_c_str(s): a freshly allocated NUL-terminated copy of s's bytes. The caller frees.
func (r *Registry) GetCStr() *llir.Function {
	if f, ok := r.cached("get_c_str"); ok {
		return f
	}
	f := r.define("get_c_str", bytePtr, p("s", r.StrPtr()))
	b := f.CreateBlock("entry")
	s := f.Params()[0]
	ln := strLen(b, s)
	buf := b.CreateCall(r.Malloc(), b.CreateBinOp(llir.Add, ln, b.CreateConstIntV(lt.U64, 1)))
	b.CreateCall(r.Memcpy(), buf, strData(b, s), ln)
	b.CreateStore(b.CreateConstIntV(lt.U8, 0), bytePtrAt(b, buf, ln))
	b.CreateRet(buf)
	return f
}

// FreeStr emits free_str(s): releases the heap record of a str value. The end-of-scope pass calls it for
// every str owned by the exiting scope.
func (r *Registry) FreeStr() *llir.Function {
	if f, ok := r.cached("free_str"); ok {
		return f
	}
	f := r.define("free_str", lt.VoidType, p("s", r.StrPtr()))
	b := f.CreateBlock("entry")
	b.CreateCall(r.Free(), b.CreateCast(llir.Bitcast, f.Params()[0], bytePtr))
	b.CreateRet(nil)
	return f
}
