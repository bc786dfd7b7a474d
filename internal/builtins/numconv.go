package builtins

import (
	"fmt"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Numeric-to-string conversion and the cross-width numeric conversions backing primitive type casts.

// numToStrBufSize holds the digits of any 64-bit integer plus a sign.
const numToStrBufSize = 24

// floatToStrBufSize holds any fixed or scientific rendering snprintf produces at the widths used here.
const floatToStrBufSize = 64

// truncToU8 narrows an integer value to u8, used for digit bytes.
func truncToU8(b *llir.Block, v llir.Value) llir.Value {
	if v.Type().Bits() == 8 {
		return b.CreateCast(llir.Bitcast, v, lt.U8)
	}
	return b.CreateCast(llir.Trunc, v, lt.U8)
}

// widenToU64 widens an integer offset to u64 for pointer arithmetic.
func widenToU64(b *llir.Block, v llir.Value) llir.Value {
	if v.Type().Bits() == 64 {
		return b.CreateCast(llir.Bitcast, v, lt.U64)
	}
	if v.Type().Signed() {
		return b.CreateCast(llir.SExt, v, lt.U64)
	}
	return b.CreateCast(llir.ZExt, v, lt.U64)
}

// IntToStr emits iN_to_str / uN_to_str: the standard digit = v%10, v /= 10 loop writing right-to-left into
// a stack buffer, with a '-' prepended for negatives. The signed minimum cannot be negated, so it is
// returned from a baked-in literal.
func (r *Registry) IntToStr(typ *lt.Type) *llir.Function {
	name := typ.String() + "_to_str"
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, r.StrPtr(), p("v", typ))
	entry := f.CreateBlock("entry")
	v := f.Params()[0]

	body := entry
	if typ.Signed() {
		minBlock := f.CreateBlock("min")
		rest := f.CreateBlock("rest")
		lit := intMinSpelling(typ.Bits())
		isMin := entry.CreateCmp(llir.Eq, v, entry.CreateConstInt(typ, lit))
		entry.CreateCondBr(isMin, minBlock, rest)
		minBlock.CreateRet(minBlock.CreateCall(r.InitStr(),
			r.cstr(minBlock, lit), minBlock.CreateConstIntV(lt.U64, int64(len(lit)))))
		body = rest
	}

	buf := body.CreateAlloca("buf", lt.ArrayOf(lt.U8, numToStrBufSize))
	bufPtr := body.CreateGEP(buf, 0)
	posSlot := body.CreateAlloca("pos", lt.U64)
	uvSlot := body.CreateAlloca("uv", typ)
	body.CreateStore(body.CreateConstIntV(lt.U64, numToStrBufSize), posSlot)

	loop := f.CreateBlock("loop")
	after := f.CreateBlock("after")
	if typ.Signed() {
		negBlock := f.CreateBlock("neg")
		posBlock := f.CreateBlock("pos")
		zero := body.CreateConstIntV(typ, 0)
		body.CreateCondBr(body.CreateCmp(llir.Lt, v, zero), negBlock, posBlock)
		negBlock.CreateStore(negBlock.CreateBinOp(llir.Sub, negBlock.CreateConstIntV(typ, 0), v), uvSlot)
		negBlock.CreateBr(loop)
		posBlock.CreateStore(v, uvSlot)
		posBlock.CreateBr(loop)
	} else {
		body.CreateStore(v, uvSlot)
		body.CreateBr(loop)
	}

	uv := loop.CreateLoad(uvSlot)
	ten := loop.CreateConstIntV(typ, 10)
	digit := loop.CreateBinOp(llir.Rem, uv, ten)
	pos := loop.CreateBinOp(llir.Sub, loop.CreateLoad(posSlot), loop.CreateConstIntV(lt.U64, 1))
	loop.CreateStore(pos, posSlot)
	ch := loop.CreateBinOp(llir.Add, truncToU8(loop, digit), loop.CreateConstIntV(lt.U8, '0'))
	loop.CreateStore(ch, bytePtrAt(loop, bufPtr, pos))
	rest := loop.CreateBinOp(llir.Div, uv, ten)
	loop.CreateStore(rest, uvSlot)
	loop.CreateCondBr(loop.CreateCmp(llir.Ne, rest, loop.CreateConstIntV(typ, 0)), loop, after)

	finish := f.CreateBlock("finish")
	if typ.Signed() {
		signBlock := f.CreateBlock("sign")
		isNeg := after.CreateCmp(llir.Lt, v, after.CreateConstIntV(typ, 0))
		after.CreateCondBr(isNeg, signBlock, finish)
		spos := signBlock.CreateBinOp(llir.Sub,
			signBlock.CreateLoad(posSlot), signBlock.CreateConstIntV(lt.U64, 1))
		signBlock.CreateStore(spos, posSlot)
		signBlock.CreateStore(signBlock.CreateConstIntV(lt.U8, '-'), bytePtrAt(signBlock, bufPtr, spos))
		signBlock.CreateBr(finish)
	} else {
		after.CreateBr(finish)
	}

	fpos := finish.CreateLoad(posSlot)
	length := finish.CreateBinOp(llir.Sub, finish.CreateConstIntV(lt.U64, numToStrBufSize), fpos)
	start := bytePtrAt(finish, bufPtr, fpos)
	finish.CreateRet(finish.CreateCall(r.InitStr(), start, length))
	return f
}

// floatMaxFinite returns the spelling of the largest finite value of a float width, used to detect
// infinities by magnitude.
func floatMaxFinite(typ *lt.Type) string {
	if typ == lt.F32 {
		return "3.4028234663852886e38"
	}
	return "1.7976931348623157e308"
}

// floatSciBounds returns the squared-magnitude window outside which the conversion switches to scientific
// notation, and the two snprintf formats for the width.
func floatSciBounds(typ *lt.Type) (lo, hi, sci, fixed string) {
	if typ == lt.F32 {
		return "1e-8", "1e12", "%.6e", "%.6f"
	}
	return "1e-8", "1e30", "%.15e", "%.15f"
}

// FloatToStr emits f32_to_str / f64_to_str: NaN and the infinities are detected explicitly, magnitudes
// outside the fixed-notation window render scientifically, and fixed renderings are trimmed of trailing
// zeros and a dangling decimal point.
func (r *Registry) FloatToStr(typ *lt.Type) *llir.Function {
	name := typ.String() + "_to_str"
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, r.StrPtr(), p("v", typ))
	entry := f.CreateBlock("entry")
	nan := f.CreateBlock("nan")
	infCheck := f.CreateBlock("inf.check")
	posInf := f.CreateBlock("inf.pos")
	negInf := f.CreateBlock("inf.neg")
	infSign := f.CreateBlock("inf.sign")
	zeroCheck := f.CreateBlock("zero.check")
	zero := f.CreateBlock("zero")
	rangeCheck := f.CreateBlock("range")
	sci := f.CreateBlock("sci")
	fixed := f.CreateBlock("fixed")
	trimCond := f.CreateBlock("trim.cond")
	trimZero := f.CreateBlock("trim.zero")
	dotCheck := f.CreateBlock("trim.dot")
	dotDrop := f.CreateBlock("trim.dot.drop")
	out := f.CreateBlock("out")

	v := f.Params()[0]
	// NaN is the one value unequal to itself.
	entry.CreateCondBr(entry.CreateCmp(llir.Ne, v, v), nan, infCheck)
	nan.CreateRet(nan.CreateCall(r.InitStr(), r.cstr(nan, "nan"), nan.CreateConstIntV(lt.U64, 3)))

	fabs := r.LibmUnary(mathName("fabs", typ), typ)
	mag := infCheck.CreateCall(fabs, v)
	maxFin := infCheck.CreateConstFloat(typ, floatMaxFinite(typ))
	infCheck.CreateCondBr(infCheck.CreateCmp(llir.Gt, mag, maxFin), infSign, zeroCheck)
	infSign.CreateCondBr(infSign.CreateCmp(llir.Lt, v, infSign.CreateConstFloat(typ, "0")), negInf, posInf)
	posInf.CreateRet(posInf.CreateCall(r.InitStr(), r.cstr(posInf, "inf"), posInf.CreateConstIntV(lt.U64, 3)))
	negInf.CreateRet(negInf.CreateCall(r.InitStr(), r.cstr(negInf, "-inf"), negInf.CreateConstIntV(lt.U64, 4)))

	zeroCheck.CreateCondBr(
		zeroCheck.CreateCmp(llir.Eq, v, zeroCheck.CreateConstFloat(typ, "0")), zero, rangeCheck)
	zero.CreateRet(zero.CreateCall(r.InitStr(), r.cstr(zero, "0"), zero.CreateConstIntV(lt.U64, 1)))

	lo, hi, sciFmt, fixedFmt := floatSciBounds(typ)
	x2 := rangeCheck.CreateBinOp(llir.Mul, v, v)
	below := rangeCheck.CreateCmp(llir.Lt, x2, rangeCheck.CreateConstFloat(typ, lo))
	above := rangeCheck.CreateCmp(llir.Gt, x2, rangeCheck.CreateConstFloat(typ, hi))
	rangeCheck.CreateCondBr(rangeCheck.CreateBinOp(llir.Or, below, above), sci, fixed)

	buf := entry.PrependAlloca("buf", lt.ArrayOf(lt.U8, floatToStrBufSize))
	nSlot := entry.PrependAlloca("n", lt.U64)

	wide := func(b *llir.Block) llir.Value {
		if typ == lt.F32 {
			return b.CreateCast(llir.FPExt, v, lt.F64)
		}
		return v
	}
	sciBuf := sci.CreateGEP(buf, 0)
	sciN := sci.CreateCall(r.Snprintf(), sciBuf,
		sci.CreateConstIntV(lt.U64, floatToStrBufSize), r.cstr(sci, sciFmt), wide(sci))
	sci.CreateRet(sci.CreateCall(r.InitStr(), sciBuf, widenToU64(sci, sciN)))

	fixedBuf := fixed.CreateGEP(buf, 0)
	fixedN := fixed.CreateCall(r.Snprintf(), fixedBuf,
		fixed.CreateConstIntV(lt.U64, floatToStrBufSize), r.cstr(fixed, fixedFmt), wide(fixed))
	fixed.CreateStore(widenToU64(fixed, fixedN), nSlot)
	fixed.CreateBr(trimCond)

	// Strip trailing zeros, then a dangling decimal point.
	n := trimCond.CreateLoad(nSlot)
	gt1 := trimCond.CreateCmp(llir.Gt, n, trimCond.CreateConstIntV(lt.U64, 1))
	trimMore := f.CreateBlock("trim.more")
	trimCond.CreateCondBr(gt1, trimMore, dotCheck)
	last := trimMore.CreateLoad(bytePtrAt(trimMore, trimMore.CreateGEP(buf, 0),
		trimMore.CreateBinOp(llir.Sub, trimMore.CreateLoad(nSlot), trimMore.CreateConstIntV(lt.U64, 1))))
	trimMore.CreateCondBr(
		trimMore.CreateCmp(llir.Eq, last, trimMore.CreateConstIntV(lt.U8, '0')), trimZero, dotCheck)
	trimZero.CreateStore(trimZero.CreateBinOp(llir.Sub,
		trimZero.CreateLoad(nSlot), trimZero.CreateConstIntV(lt.U64, 1)), nSlot)
	trimZero.CreateBr(trimCond)

	dlast := dotCheck.CreateLoad(bytePtrAt(dotCheck, dotCheck.CreateGEP(buf, 0),
		dotCheck.CreateBinOp(llir.Sub, dotCheck.CreateLoad(nSlot), dotCheck.CreateConstIntV(lt.U64, 1))))
	dotCheck.CreateCondBr(
		dotCheck.CreateCmp(llir.Eq, dlast, dotCheck.CreateConstIntV(lt.U8, '.')), dotDrop, out)
	dotDrop.CreateStore(dotDrop.CreateBinOp(llir.Sub,
		dotDrop.CreateLoad(nSlot), dotDrop.CreateConstIntV(lt.U64, 1)), nSlot)
	dotDrop.CreateBr(out)

	out.CreateRet(out.CreateCall(r.InitStr(), out.CreateGEP(buf, 0), out.CreateLoad(nSlot)))
	return f
}

// NumericConv emits the conversion helper between two numeric LLIR types, e.g. i32_to_u32 or u32_to_i64:
// integer narrowings clamp to the target's range, widenings zero- or sign-extend, and float conversions
// route through the corresponding cast instruction.
func (r *Registry) NumericConv(from, to *lt.Type) *llir.Function {
	name := fmt.Sprintf("%s_to_%s", from.String(), to.String())
	if f, ok := r.cached(name); ok {
		return f
	}
	f := r.define(name, to, p("v", from))
	entry := f.CreateBlock("entry")
	v := f.Params()[0]

	switch {
	case from.IsFloat() && to.IsFloat():
		op := llir.FPExt
		if to.Bits() < from.Bits() {
			op = llir.FPTrunc
		}
		entry.CreateRet(entry.CreateCast(op, v, to))
	case from.IsFloat() && to.IsInt():
		op := llir.FPToUI
		if to.Signed() {
			op = llir.FPToSI
		}
		entry.CreateRet(entry.CreateCast(op, v, to))
	case from.IsInt() && to.IsFloat():
		op := llir.UIToFP
		if from.Signed() {
			op = llir.SIToFP
		}
		entry.CreateRet(entry.CreateCast(op, v, to))
	default:
		r.emitIntConvBody(f, entry, v, from, to)
	}
	return f
}

// emitIntConvBody builds the clamp-or-extend body of an integer-to-integer conversion. Minimum checks run
// in the source type; the maximum check runs in the source type for signed narrowing and in a 64-bit
// unsigned domain otherwise.
func (r *Registry) emitIntConvBody(f *llir.Function, entry *llir.Block, v llir.Value, from, to *lt.Type) {
	convert := f.CreateBlock("convert")

	next := entry
	if from.Signed() && !to.Signed() {
		// Negative values clamp to zero on any unsigned target.
		clampZero := f.CreateBlock("clamp.zero")
		check := f.CreateBlock("check.max")
		neg := next.CreateCmp(llir.Lt, v, next.CreateConstIntV(from, 0))
		next.CreateCondBr(neg, clampZero, check)
		clampZero.CreateRet(clampZero.CreateConstIntV(to, 0))
		next = check
	} else if from.Signed() && to.Signed() && to.Bits() < from.Bits() {
		// Narrowing signed targets clamp at their minimum.
		clampMin := f.CreateBlock("clamp.min")
		check := f.CreateBlock("check.max")
		tooSmall := next.CreateCmp(llir.Lt, v, next.CreateConstInt(from, intMinSpelling(to.Bits())))
		next.CreateCondBr(tooSmall, clampMin, check)
		clampMin.CreateRet(clampMin.CreateConstInt(to, intMinSpelling(to.Bits())))
		next = check
	}

	// Clamp at the target maximum whenever the source's non-negative range exceeds it: any narrowing, and
	// same-width unsigned-to-signed. Signed-to-signed narrowing compares in the signed source type so that
	// negative values keep their sign; every other pair compares in the unsigned 64-bit domain, which is
	// safe because negative signed sources on unsigned targets were clamped to zero above.
	needsMax := to.Bits() < from.Bits() || (to.Bits() == from.Bits() && !from.Signed() && to.Signed())
	if needsMax {
		clampMax := f.CreateBlock("clamp.max")
		okBlock := f.CreateBlock("in.range")
		wv := v
		maxConst := next.CreateConstInt(from, intMaxSpelling(to.Bits(), true))
		if !from.Signed() || !to.Signed() {
			wv = widenToU64(next, v)
			maxConst = next.CreateConstInt(lt.U64, intMaxSpelling(to.Bits(), to.Signed()))
		}
		next.CreateCondBr(next.CreateCmp(llir.Gt, wv, maxConst), clampMax, okBlock)
		clampMax.CreateRet(clampMax.CreateConstInt(to, intMaxSpelling(to.Bits(), to.Signed())))
		next = okBlock
	}

	next.CreateBr(convert)
	switch {
	case to.Bits() < from.Bits():
		convert.CreateRet(convert.CreateCast(llir.Trunc, v, to))
	case to.Bits() > from.Bits():
		op := llir.ZExt
		if from.Signed() {
			op = llir.SExt
		}
		convert.CreateRet(convert.CreateCast(op, v, to))
	default:
		convert.CreateRet(convert.CreateCast(llir.Bitcast, v, to))
	}
}
