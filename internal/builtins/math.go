package builtins

import (
	"fmt"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Math wrappers over libm for both float widths, plus the integer abs/min/max family.

// mathName returns the libm symbol for a routine over the given float width: the f32 variants carry C's
// trailing 'f'.
func mathName(base string, typ *lt.Type) string {
	if typ == lt.F32 {
		return base + "f"
	}
	return base
}

// MathUnary emits the wrapper for a one-argument libm routine (sin, cos, sqrt, abs) over typ.
func (r *Registry) MathUnary(op string, typ *lt.Type) *llir.Function {
	libm := op
	if op == "abs" {
		libm = "fabs"
	}
	name := fmt.Sprintf("%s_%s", op, typ.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, typ, p("v", typ))
	b := f.CreateBlock("entry")
	b.CreateRet(b.CreateCall(r.LibmUnary(mathName(libm, typ), typ), f.Params()[0]))
	return f
}

// MathBinary emits the wrapper for a two-argument libm routine (min, max) over typ.
func (r *Registry) MathBinary(op string, typ *lt.Type) *llir.Function {
	libm := "f" + op // fmin / fmax
	name := fmt.Sprintf("%s_%s", op, typ.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, typ, p("a", typ), p("b", typ))
	b := f.CreateBlock("entry")
	b.CreateRet(b.CreateCall(r.LibmBinary(mathName(libm, typ), typ), f.Params()[0], f.Params()[1]))
	return f
}

// AbsInt emits abs_iN: negation of negatives, with the unrepresentable minimum saturating to the maximum.
func (r *Registry) AbsInt(typ *lt.Type) *llir.Function {
	name := "abs_" + typ.String()
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, typ, p("v", typ))
	entry := f.CreateBlock("entry")
	sat := f.CreateBlock("sat")
	negCheck := f.CreateBlock("neg.check")
	neg := f.CreateBlock("neg")
	pos := f.CreateBlock("pos")
	v := f.Params()[0]
	isMin := entry.CreateCmp(llir.Eq, v, entry.CreateConstInt(typ, intMinSpelling(typ.Bits())))
	entry.CreateCondBr(isMin, sat, negCheck)
	sat.CreateRet(sat.CreateConstInt(typ, intMaxSpelling(typ.Bits(), true)))
	negCheck.CreateCondBr(negCheck.CreateCmp(llir.Lt, v, negCheck.CreateConstIntV(typ, 0)), neg, pos)
	neg.CreateRet(neg.CreateBinOp(llir.Sub, neg.CreateConstIntV(typ, 0), v))
	pos.CreateRet(v)
	return f
}

// MinMaxInt emits min_<t> / max_<t> for an integer type, dispatching on its signedness through the
// ordinary comparison predicates.
func (r *Registry) MinMaxInt(op string, typ *lt.Type) *llir.Function {
	name := fmt.Sprintf("%s_%s", op, typ.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, typ, p("a", typ), p("b", typ))
	entry := f.CreateBlock("entry")
	first := f.CreateBlock("first")
	second := f.CreateBlock("second")
	pred := llir.Lt
	if op == "max" {
		pred = llir.Gt
	}
	a, b := f.Params()[0], f.Params()[1]
	entry.CreateCondBr(entry.CreateCmp(pred, a, b), first, second)
	first.CreateRet(a)
	second.CreateRet(b)
	return f
}
