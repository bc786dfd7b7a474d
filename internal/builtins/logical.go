package builtins

import (
	"fmt"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

// Boolean and string logical operations. Integer `not` is tested-equal-to-zero; boolean `not` inverts bit
// zero; string relational operators dispatch through compare_str.

// GenerateNot emits the inversion of v directly into block b: an i1 is xor'ed with 1, an integer
// is compared equal to zero.
func GenerateNot(b *llir.Block, v llir.Value) llir.Value {
	if v.Type() == lt.I1 {
		return b.CreateBinOp(llir.Xor, v, b.CreateConstIntV(lt.I1, 1))
	}
	if !v.Type().IsInt() {
		panic(fmt.Sprintf("builtins: not over non-integer %s", v.Type().String()))
	}
	return b.CreateCmp(llir.Eq, v, b.CreateConstIntV(v.Type(), 0))
}

// StrCompare emits the comparison of two str values under pred into block b, routing through compare_str
// and testing its -1/0/+1 result against zero.
func (r *Registry) StrCompare(b *llir.Block, pred llir.Pred, a, v llir.Value) llir.Value {
	c := b.CreateCall(r.CompareStr(), a, v)
	return b.CreateCmp(pred, c, b.CreateConstIntV(lt.I32, 0))
}

// StrCompareLit is StrCompare with a literal right operand, materialised first via init_str. The temporary
// is freed before the result is produced.
func (r *Registry) StrCompareLit(b *llir.Block, pred llir.Pred, a llir.Value, lit string) llir.Value {
	tmp := b.CreateCall(r.InitStr(), r.cstr(b, lit), b.CreateConstIntV(lt.U64, int64(len(lit))))
	c := b.CreateCall(r.CompareStr(), a, tmp)
	b.CreateCall(r.FreeStr(), tmp)
	return b.CreateCmp(pred, c, b.CreateConstIntV(lt.I32, 0))
}
