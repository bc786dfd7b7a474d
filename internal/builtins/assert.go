package builtins

import (
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Assert emits assert(cond): returns the { err: i32 } struct with err = 10 when the condition fails and
// zero otherwise, so call sites propagate the failure through the ordinary rethrow protocol.
func (r *Registry) Assert() *llir.Function {
	if f, ok := r.cached("assert"); ok {
		return f
	}
	rs := r.RetStruct()
	f := r.define("assert", rs, p("cond", lt.I1))
	entry := f.CreateBlock("entry")
	ok := f.CreateBlock("ok")
	failed := f.CreateBlock("failed")
	entry.CreateCondBr(f.Params()[0], ok, failed)
	ok.CreateRet(retOk(ok, rs))
	failed.CreateRet(retErr(failed, rs, ErrAssert, "Failed"))
	return f
}
