package builtins

import (
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Environment variable access over C getenv/setenv, raising ErrEnv members.

// GetEnv emits get_env(name): wraps getenv; an unset variable raises ErrEnv.VarNotFound.
func (r *Registry) GetEnv() *llir.Function {
	if f, ok := r.cached("get_env"); ok {
		return f
	}
	rs := r.RetStruct(r.StrPtr())
	f := r.define("get_env", rs, p("name", r.StrPtr()))
	entry := f.CreateBlock("entry")
	missing := f.CreateBlock("missing")
	found := f.CreateBlock("found")

	cname := entry.CreateCall(r.GetCStr(), f.Params()[0])
	val := entry.CreateCall(r.Getenv(), cname)
	entry.CreateCall(r.Free(), cname)
	entry.CreateCondBr(isNull(entry, val), missing, found)
	missing.CreateRet(retErr(missing, rs, ErrEnv, "VarNotFound"))

	s := found.CreateCall(r.InitStr(), val, found.CreateCall(r.Strlen(), val))
	found.CreateRet(retOk(found, rs, s))
	return f
}

// containsNulByte emits the scan of a str's bytes for an embedded NUL into fresh blocks of f, branching to
// bad when one is found and to ok otherwise.
func containsNulByte(f *llir.Function, from *llir.Block, s llir.Value, iSlot llir.Value, bad, ok *llir.Block) {
	cond := f.CreateBlock("nul.cond")
	body := f.CreateBlock("nul.body")
	next := f.CreateBlock("nul.next")

	from.CreateStore(from.CreateConstIntV(lt.U64, 0), iSlot)
	from.CreateBr(cond)

	iv := cond.CreateLoad(iSlot)
	cond.CreateCondBr(cond.CreateCmp(llir.Lt, iv, strLen(cond, s)), body, ok)
	ch := body.CreateLoad(bytePtrAt(body, strData(body, s), body.CreateLoad(iSlot)))
	body.CreateCondBr(body.CreateCmp(llir.Eq, ch, body.CreateConstIntV(lt.U8, 0)), bad, next)
	next.CreateStore(next.CreateBinOp(llir.Add,
		next.CreateLoad(iSlot), next.CreateConstIntV(lt.U64, 1)), iSlot)
	next.CreateBr(cond)
}

// SetEnv emits set_env(name, value, overwrite): verifies neither argument embeds a NUL byte
// (ErrEnv.InvalidName / ErrEnv.InvalidValue), then calls setenv; a non-zero return raises
// ErrEnv.InvalidValue.
func (r *Registry) SetEnv() *llir.Function {
	if f, ok := r.cached("set_env"); ok {
		return f
	}
	rs := r.RetStruct()
	f := r.define("set_env", rs, p("name", r.StrPtr()), p("value", r.StrPtr()), p("overwrite", lt.I1))
	entry := f.CreateBlock("entry")
	badName := f.CreateBlock("bad.name")
	checkValue := f.CreateBlock("check.value")
	badValue := f.CreateBlock("bad.value")
	apply := f.CreateBlock("apply")
	failed := f.CreateBlock("failed")
	done := f.CreateBlock("done")

	iSlot := entry.CreateAlloca("i", lt.U64)
	containsNulByte(f, entry, f.Params()[0], iSlot, badName, checkValue)
	badName.CreateRet(retErr(badName, rs, ErrEnv, "InvalidName"))
	containsNulByte(f, checkValue, f.Params()[1], iSlot, badValue, apply)
	badValue.CreateRet(retErr(badValue, rs, ErrEnv, "InvalidValue"))

	cname := apply.CreateCall(r.GetCStr(), f.Params()[0])
	cvalue := apply.CreateCall(r.GetCStr(), f.Params()[1])
	ow := apply.CreateCast(llir.ZExt, f.Params()[2], lt.I32)
	rc := apply.CreateCall(r.Setenv(), cname, cvalue, ow)
	apply.CreateCall(r.Free(), cname)
	apply.CreateCall(r.Free(), cvalue)
	apply.CreateCondBr(apply.CreateCmp(llir.Ne, rc, apply.CreateConstIntV(lt.I32, 0)), failed, done)
	failed.CreateRet(retErr(failed, rs, ErrEnv, "InvalidValue"))
	done.CreateRet(retOk(done, rs))
	return f
}
