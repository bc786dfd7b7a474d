package builtins

import (
	"fmt"
	"strings"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Overflow-checked arithmetic for signed integers and saturating arithmetic for unsigned integers. Every
// helper returns the ordinary { err: i32, value } return struct and raises members of ErrOverflow through
// it, so call sites thread failures with the same rethrow protocol as user functions.

// ---------------------
// ----- Functions -----
// ---------------------

// RetStruct returns the memoised return struct type { i32, values... } for the given value types.
func (r *Registry) RetStruct(values ...*lt.Type) *lt.Type {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, "ret")
	for _, e1 := range values {
		parts = append(parts, strings.ReplaceAll(e1.String(), "%", ""))
	}
	fields := append([]*lt.Type{lt.I32}, values...)
	return r.m.DefineStruct(strings.Join(parts, "."), fields...)
}

// retOk stores a zero error code and the given values into a fresh return struct slot and returns the
// loaded struct.
func retOk(b *llir.Block, rs *lt.Type, values ...llir.Value) llir.Value {
	slot := b.CreateAlloca("", rs)
	b.CreateStore(b.CreateConstIntV(lt.I32, 0), b.CreateGEP(slot, 0))
	for i1, e1 := range values {
		b.CreateStore(e1, b.CreateGEP(slot, i1+1))
	}
	return b.CreateLoad(slot)
}

// retErr stores the error code and zero values into a fresh return struct slot and returns the loaded
// struct.
func retErr(b *llir.Block, rs *lt.Type, set, member string) llir.Value {
	slot := b.CreateAlloca("", rs)
	b.CreateStore(errConst(b, set, member), b.CreateGEP(slot, 0))
	for i1, e1 := range rs.Fields()[1:] {
		b.CreateStore(b.CreateZero(e1), b.CreateGEP(slot, i1+1))
	}
	return b.CreateLoad(slot)
}

// intMinSpelling returns the decimal spelling of the minimum value of a signed width.
func intMinSpelling(bits int) string {
	switch bits {
	case 8:
		return "-128"
	case 16:
		return "-32768"
	case 32:
		return "-2147483648"
	case 64:
		return "-9223372036854775808"
	}
	panic(fmt.Sprintf("builtins: unsupported signed width %d", bits))
}

// intMaxSpelling returns the decimal spelling of the maximum value of an integer width and signedness.
func intMaxSpelling(bits int, signed bool) string {
	if signed {
		switch bits {
		case 8:
			return "127"
		case 16:
			return "32767"
		case 32:
			return "2147483647"
		case 64:
			return "9223372036854775807"
		}
	} else {
		switch bits {
		case 8:
			return "255"
		case 16:
			return "65535"
		case 32:
			return "4294967295"
		case 64:
			return "18446744073709551615"
		}
	}
	panic(fmt.Sprintf("builtins: unsupported integer width %d", bits))
}

// SafeAdd emits int_safe_add for signed types (overflow raises ErrOverflow.AddOverflow) or the saturating
// add for unsigned types.
func (r *Registry) SafeAdd(typ *lt.Type) *llir.Function {
	name := fmt.Sprintf("%s_safe_add", typ.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	rs := r.RetStruct(typ)
	f := r.define(name, rs, p("a", typ), p("b", typ))
	entry := f.CreateBlock("entry")
	ok := f.CreateBlock("ok")
	bad := f.CreateBlock("overflow")
	a, b := f.Params()[0], f.Params()[1]
	sum := entry.CreateBinOp(llir.Add, a, b)
	zero := entry.CreateConstIntV(typ, 0)
	if typ.Signed() {
		// Overflow iff both operands share a sign and the result does not.
		sameSign := entry.CreateCmp(llir.Eq,
			entry.CreateCmp(llir.Lt, a, zero), entry.CreateCmp(llir.Lt, b, zero))
		flipped := entry.CreateCmp(llir.Ne,
			entry.CreateCmp(llir.Lt, sum, zero), entry.CreateCmp(llir.Lt, a, zero))
		entry.CreateCondBr(entry.CreateBinOp(llir.And, sameSign, flipped), bad, ok)
		bad.CreateRet(retErr(bad, rs, ErrOverflow, "AddOverflow"))
	} else {
		// Unsigned wrap-around saturates to the maximum.
		entry.CreateCondBr(entry.CreateCmp(llir.Lt, sum, a), bad, ok)
		bad.CreateRet(retOk(bad, rs, bad.CreateConstInt(typ, intMaxSpelling(typ.Bits(), false))))
	}
	ok.CreateRet(retOk(ok, rs, sum))
	return f
}

// SafeSub emits int_safe_sub for signed types (overflow raises ErrOverflow.SubOverflow) or the saturating
// subtract for unsigned types, which clamps at zero.
func (r *Registry) SafeSub(typ *lt.Type) *llir.Function {
	name := fmt.Sprintf("%s_safe_sub", typ.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	rs := r.RetStruct(typ)
	f := r.define(name, rs, p("a", typ), p("b", typ))
	entry := f.CreateBlock("entry")
	ok := f.CreateBlock("ok")
	bad := f.CreateBlock("underflow")
	a, b := f.Params()[0], f.Params()[1]
	if typ.Signed() {
		diff := entry.CreateBinOp(llir.Sub, a, b)
		zero := entry.CreateConstIntV(typ, 0)
		// Overflow iff the operands differ in sign and the result's sign differs from a's.
		diffSign := entry.CreateCmp(llir.Ne,
			entry.CreateCmp(llir.Lt, a, zero), entry.CreateCmp(llir.Lt, b, zero))
		flipped := entry.CreateCmp(llir.Ne,
			entry.CreateCmp(llir.Lt, diff, zero), entry.CreateCmp(llir.Lt, a, zero))
		entry.CreateCondBr(entry.CreateBinOp(llir.And, diffSign, flipped), bad, ok)
		bad.CreateRet(retErr(bad, rs, ErrOverflow, "SubOverflow"))
		ok.CreateRet(retOk(ok, rs, diff))
	} else {
		entry.CreateCondBr(entry.CreateCmp(llir.Lt, a, b), bad, ok)
		bad.CreateRet(retOk(bad, rs, bad.CreateConstIntV(typ, 0)))
		ok.CreateRet(retOk(ok, rs, ok.CreateBinOp(llir.Sub, a, b)))
	}
	return f
}

// SafeMul emits int_safe_mul for signed types (overflow raises ErrOverflow.MulOverflow) or the saturating
// multiply for unsigned types.
func (r *Registry) SafeMul(typ *lt.Type) *llir.Function {
	name := fmt.Sprintf("%s_safe_mul", typ.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	rs := r.RetStruct(typ)
	f := r.define(name, rs, p("a", typ), p("b", typ))
	entry := f.CreateBlock("entry")
	check := f.CreateBlock("check")
	ok := f.CreateBlock("ok")
	bad := f.CreateBlock("overflow")
	a, b := f.Params()[0], f.Params()[1]
	prod := entry.CreateBinOp(llir.Mul, a, b)
	zero := entry.CreateConstIntV(typ, 0)
	// a == 0 can never overflow; otherwise verify the multiplication divides back cleanly.
	entry.CreateCondBr(entry.CreateCmp(llir.Eq, a, zero), ok, check)
	back := check.CreateBinOp(llir.Div, prod, a)
	check.CreateCondBr(check.CreateCmp(llir.Ne, back, b), bad, ok)
	if typ.Signed() {
		bad.CreateRet(retErr(bad, rs, ErrOverflow, "MulOverflow"))
	} else {
		bad.CreateRet(retOk(bad, rs, bad.CreateConstInt(typ, intMaxSpelling(typ.Bits(), false))))
	}
	ok.CreateRet(retOk(ok, rs, prod))
	return f
}

// SafeDiv emits int_safe_div: division by zero raises ErrOverflow.DivByZero for every signedness; the
// signed minimum divided by -1 is unrepresentable and raises ErrOverflow.MulOverflow.
func (r *Registry) SafeDiv(typ *lt.Type) *llir.Function {
	name := fmt.Sprintf("%s_safe_div", typ.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	rs := r.RetStruct(typ)
	f := r.define(name, rs, p("a", typ), p("b", typ))
	entry := f.CreateBlock("entry")
	ok := f.CreateBlock("ok")
	zeroDiv := f.CreateBlock("divzero")
	a, b := f.Params()[0], f.Params()[1]
	zero := entry.CreateConstIntV(typ, 0)
	if typ.Signed() {
		minCheck := f.CreateBlock("mincheck")
		sat := f.CreateBlock("minsat")
		entry.CreateCondBr(entry.CreateCmp(llir.Eq, b, zero), zeroDiv, minCheck)
		isMin := minCheck.CreateCmp(llir.Eq, a, minCheck.CreateConstInt(typ, intMinSpelling(typ.Bits())))
		isNegOne := minCheck.CreateCmp(llir.Eq, b, minCheck.CreateConstIntV(typ, -1))
		minCheck.CreateCondBr(minCheck.CreateBinOp(llir.And, isMin, isNegOne), sat, ok)
		sat.CreateRet(retErr(sat, rs, ErrOverflow, "MulOverflow"))
	} else {
		entry.CreateCondBr(entry.CreateCmp(llir.Eq, b, zero), zeroDiv, ok)
	}
	zeroDiv.CreateRet(retErr(zeroDiv, rs, ErrOverflow, "DivByZero"))
	ok.CreateRet(retOk(ok, rs, ok.CreateBinOp(llir.Div, a, b)))
	return f
}
