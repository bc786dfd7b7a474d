package builtins

import (
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Standard-input reading. getline owns the low-level doubling buffer; read_str reshapes its result into a
// proper str record.

// initialLineCapacity is the starting buffer size of getline's doubling grow strategy.
const initialLineCapacity = 128

// Getline emits getline(lenp): reads one line from standard input into a freshly allocated buffer, growing
// by doubling, strips the trailing newline and returns the buffer with *lenp set to its final length. A
// clean EOF with nothing read frees the buffer and returns null with *lenp = 0.
func (r *Registry) Getline() *llir.Function {
	if f, ok := r.cached("getline"); ok {
		return f
	}
	f := r.define("getline", bytePtr, p("lenp", lt.PointerTo(lt.U64)))
	entry := f.CreateBlock("entry")
	loop := f.CreateBlock("loop")
	eof := f.CreateBlock("eof")
	eofEmpty := f.CreateBlock("eof.empty")
	store := f.CreateBlock("store")
	grow := f.CreateBlock("grow")
	done := f.CreateBlock("done")

	lenp := f.Params()[0]
	bufSlot := entry.CreateAlloca("buf", bytePtr)
	capSlot := entry.CreateAlloca("cap", lt.U64)
	iSlot := entry.CreateAlloca("i", lt.U64)
	entry.CreateStore(entry.CreateCall(r.Malloc(), entry.CreateConstIntV(lt.U64, initialLineCapacity)), bufSlot)
	entry.CreateStore(entry.CreateConstIntV(lt.U64, initialLineCapacity), capSlot)
	entry.CreateStore(entry.CreateConstIntV(lt.U64, 0), iSlot)
	entry.CreateBr(loop)

	c := loop.CreateCall(r.Getchar())
	isEOF := loop.CreateCmp(llir.Eq, c, loop.CreateConstIntV(lt.I32, -1))
	checkNL := f.CreateBlock("check.nl")
	loop.CreateCondBr(isEOF, eof, checkNL)

	isNL := checkNL.CreateCmp(llir.Eq, c, checkNL.CreateConstIntV(lt.I32, 10))
	checkCap := f.CreateBlock("check.cap")
	checkNL.CreateCondBr(isNL, done, checkCap)

	iv := checkCap.CreateLoad(iSlot)
	cap1 := checkCap.CreateLoad(capSlot)
	need := checkCap.CreateBinOp(llir.Add, iv, checkCap.CreateConstIntV(lt.U64, 1))
	checkCap.CreateCondBr(checkCap.CreateCmp(llir.Ge, need, cap1), grow, store)

	grown := grow.CreateBinOp(llir.Mul, grow.CreateLoad(capSlot), grow.CreateConstIntV(lt.U64, 2))
	grow.CreateStore(grown, capSlot)
	grow.CreateStore(grow.CreateCall(r.Realloc(), grow.CreateLoad(bufSlot), grown), bufSlot)
	grow.CreateBr(store)

	iv2 := store.CreateLoad(iSlot)
	byte1 := store.CreateCast(llir.Trunc, c, lt.U8)
	store.CreateStore(byte1, bytePtrAt(store, store.CreateLoad(bufSlot), iv2))
	store.CreateStore(store.CreateBinOp(llir.Add, iv2, store.CreateConstIntV(lt.U64, 1)), iSlot)
	store.CreateBr(loop)

	// EOF with buffered characters behaves like end of line; a clean EOF yields null.
	readAny := eof.CreateCmp(llir.Gt, eof.CreateLoad(iSlot), eof.CreateConstIntV(lt.U64, 0))
	eof.CreateCondBr(readAny, done, eofEmpty)

	eofEmpty.CreateCall(r.Free(), eofEmpty.CreateLoad(bufSlot))
	eofEmpty.CreateStore(eofEmpty.CreateConstIntV(lt.U64, 0), lenp)
	eofEmpty.CreateRet(nullPtr(eofEmpty, bytePtr))

	done.CreateStore(done.CreateLoad(iSlot), lenp)
	done.CreateRet(done.CreateLoad(bufSlot))
	return f
}

// ReadStr emits read_str(): calls getline, copies the returned bytes into a fresh str through init_str
// and frees getline's buffer; the buffer is not reused in place. EOF yields the empty str.
func (r *Registry) ReadStr() *llir.Function {
	if f, ok := r.cached("read_str"); ok {
		return f
	}
	f := r.define("read_str", r.StrPtr())
	entry := f.CreateBlock("entry")
	empty := f.CreateBlock("empty")
	wrap := f.CreateBlock("wrap")

	lenSlot := entry.CreateAlloca("len", lt.U64)
	buf := entry.CreateCall(r.Getline(), lenSlot)
	isNull := entry.CreateCmp(llir.Eq,
		entry.CreateCast(llir.PtrToInt, buf, lt.U64), entry.CreateConstIntV(lt.U64, 0))
	entry.CreateCondBr(isNull, empty, wrap)

	empty.CreateRet(empty.CreateCall(r.CreateStr(), empty.CreateConstIntV(lt.U64, 0)))

	ln := wrap.CreateLoad(lenSlot)
	s := wrap.CreateCall(r.InitStr(), buf, ln)
	wrap.CreateCall(r.Free(), buf)
	wrap.CreateRet(s)
	return f
}
