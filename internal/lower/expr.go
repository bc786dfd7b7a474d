package lower

import (
	"fmt"

	"flintc/internal/apnum"
	"flintc/internal/ast"
	"flintc/internal/builtins"
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// Expression lowering. Every expression lowers to a group mapping: an ordered sequence of LLIR values,
// size 1 for simple expressions and size n for multi-valued calls and group expressions.

// ---------------------------
// ----- Type inference ------
// ---------------------------

// typeOf derives the language types an expression produces, using the scope's symbol table for variables.
func (g *funcGen) typeOf(s *ast.Scope, e ast.Expression) []*types.Type {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return []*types.Type{n.Type}
	case *ast.VariableExpr:
		if t, ok := s.Lookup(n.Name); ok {
			return []*types.Type{t}
		}
		panic(fmt.Sprintf("lower: reference to unknown variable %q", n.Name))
	case *ast.CallExpr:
		return g.calleeReturns(s, n)
	case *ast.BinaryExpr:
		if isRelationalOp(n.Op) || isBooleanOp(n.Op) {
			return []*types.Type{types.Bool}
		}
		return g.typeOf(s, n.Left)
	case *ast.UnaryExpr:
		if n.Op == "not" {
			return []*types.Type{types.Bool}
		}
		return g.typeOf(s, n.Operand)
	case *ast.GroupExpr:
		var out []*types.Type
		for _, e1 := range n.Elements {
			out = append(out, g.typeOf(s, e1)...)
		}
		return out
	case *ast.InitializerExpr:
		return []*types.Type{n.Type}
	case *ast.DataAccessExpr:
		base := g.typeOf(s, n.Base)[0]
		return []*types.Type{dataFieldType(base, n.Field)}
	case *ast.GroupedDataAccessExpr:
		base := g.typeOf(s, n.Base)[0]
		out := make([]*types.Type, len(n.Fields))
		for i1, e1 := range n.Fields {
			out[i1] = dataFieldType(base, e1)
		}
		return out
	case *ast.CastExpr:
		return []*types.Type{n.Type}
	}
	panic(fmt.Sprintf("lower: cannot infer type of %T", e))
}

// dataFieldType resolves a named field's type off a Data type.
func dataFieldType(base *types.Type, field string) *types.Type {
	if base.Variation != types.Data {
		panic(fmt.Sprintf("lower: field access %q into non-data type %s", field, base.String()))
	}
	for _, e1 := range base.DataRef.Fields {
		if e1.Name == field {
			return e1.Type
		}
	}
	panic(fmt.Sprintf("lower: data type %s has no field %q", base.String(), field))
}

// dataFieldIndex resolves a named field's declaration-order index off a Data type.
func dataFieldIndex(base *types.Type, field string) int {
	for i1, e1 := range base.DataRef.Fields {
		if e1.Name == field {
			return i1
		}
	}
	panic(fmt.Sprintf("lower: data type %s has no field %q", base.String(), field))
}

// calleeReturns derives the declared return types of a call's target, builtin or user-defined.
func (g *funcGen) calleeReturns(s *ast.Scope, n *ast.CallExpr) []*types.Type {
	def, known := g.ctx.GetFunctionDefinition(n.Callee)
	if !known {
		panic(fmt.Sprintf("lower: call to unknown function %q", n.Callee))
	}
	if def != nil {
		return def.Returns
	}
	return g.builtinReturns(s, n)
}

// ---------------------------
// ----- Operator classes -----
// ---------------------------

func isRelationalOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func isBooleanOp(op string) bool {
	return op == "and" || op == "or"
}

var relationalPreds = map[string]llir.Pred{
	"==": llir.Eq, "!=": llir.Ne, "<": llir.Lt, "<=": llir.Le, ">": llir.Gt, ">=": llir.Ge,
}

// ---------------------------
// ----- Lowering ------------
// ---------------------------

// lowerExprGroup lowers e to its group mapping.
func (g *funcGen) lowerExprGroup(s *ast.Scope, e ast.Expression) []llir.Value {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return []llir.Value{g.lowerLiteral(n)}
	case *ast.VariableExpr:
		return []llir.Value{g.lowerVariable(s, n)}
	case *ast.CallExpr:
		return g.lowerCall(s, n, false)
	case *ast.BinaryExpr:
		return []llir.Value{g.lowerBinary(s, n)}
	case *ast.UnaryExpr:
		return []llir.Value{g.lowerUnary(s, n)}
	case *ast.GroupExpr:
		var out []llir.Value
		for _, e1 := range n.Elements {
			out = append(out, g.lowerExprGroup(s, e1)...)
		}
		return out
	case *ast.InitializerExpr:
		return []llir.Value{g.lowerInitializer(s, n)}
	case *ast.DataAccessExpr:
		base := g.typeOf(s, n.Base)[0]
		ptr := g.lowerAddress(s, n.Base)
		return []llir.Value{g.cur.CreateLoad(g.cur.CreateGEP(ptr, dataFieldIndex(base, n.Field)))}
	case *ast.GroupedDataAccessExpr:
		base := g.typeOf(s, n.Base)[0]
		ptr := g.lowerAddress(s, n.Base)
		out := make([]llir.Value, len(n.Fields))
		for i1, e1 := range n.Fields {
			out[i1] = g.cur.CreateLoad(g.cur.CreateGEP(ptr, dataFieldIndex(base, e1)))
		}
		return out
	case *ast.CastExpr:
		return []llir.Value{g.lowerCast(s, n)}
	}
	panic(fmt.Sprintf("lower: cannot lower expression %T", e))
}

// lowerExprSingle lowers e expecting exactly one value.
func (g *funcGen) lowerExprSingle(s *ast.Scope, e ast.Expression) llir.Value {
	grp := g.lowerExprGroup(s, e)
	if len(grp) != 1 {
		panic(fmt.Sprintf("lower: expected a single value, expression produced %d", len(grp)))
	}
	return grp[0]
}

// lowerLiteral materialises a compile-time constant, narrowing the carried arbitrary-precision value into
// the fixed-width type recorded on the node.
func (g *funcGen) lowerLiteral(n *ast.LiteralExpr) llir.Value {
	lowered := g.ctx.LowerType(g.fg.m, n.Type)
	switch {
	case lowered.IsInt() && lowered == lt.I1:
		v := int64(0)
		if n.Bool {
			v = 1
		}
		return g.cur.CreateConstIntV(lt.I1, v)
	case lowered == lt.U8 && n.Type.PrimitiveName == "char":
		return g.cur.CreateConstIntV(lt.U8, int64(n.Char))
	case lowered.IsInt():
		if !intLiteralFits(n.Int, lowered) {
			panic(fmt.Sprintf("lower: integer literal %s does not fit %s", n.Int.String(), lowered.String()))
		}
		return g.cur.CreateConstInt(lowered, n.Int.String())
	case lowered.IsFloat():
		return g.cur.CreateConstFloat(lowered, n.Float.String())
	case lowered.IsPointer(): // str literal
		return g.materialiseStrLiteral(n.Str)
	}
	panic(fmt.Sprintf("lower: cannot lower literal of type %s", n.Type.String()))
}

// intLiteralFits range-checks an arbitrary-precision literal against its fixed-width target.
func intLiteralFits(v apnum.APInt, lowered *lt.Type) bool {
	var ok bool
	switch {
	case lowered.Signed() && lowered.Bits() == 8:
		_, ok = v.ToI8()
	case lowered.Signed() && lowered.Bits() == 16:
		_, ok = v.ToI16()
	case lowered.Signed() && lowered.Bits() == 32:
		_, ok = v.ToI32()
	case lowered.Signed():
		_, ok = v.ToI64()
	case lowered.Bits() == 8:
		_, ok = v.ToU8()
	case lowered.Bits() == 16:
		_, ok = v.ToU16()
	case lowered.Bits() == 32:
		_, ok = v.ToU32()
	default:
		_, ok = v.ToU64()
	}
	return ok
}

// materialiseStrLiteral interns the literal bytes and wraps them in a fresh heap str via init_str.
func (g *funcGen) materialiseStrLiteral(s string) llir.Value {
	lit := g.fg.m.CreateString(s)
	ptr := g.cur.CreateGEP(lit, 0)
	initStr := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.InitStr() })
	return g.cur.CreateCall(initStr, ptr, g.cur.CreateConstIntV(lt.U64, int64(len(s))))
}

// lowerVariable reads a variable's pre-allocated slot, or produces the slot pointer itself when the node
// is used in a reference (LHS) context.
func (g *funcGen) lowerVariable(s *ast.Scope, n *ast.VariableExpr) llir.Value {
	slot := g.lookupSlot(s, n.Name)
	if n.IsReference {
		return slot
	}
	return g.cur.CreateLoad(slot)
}

// lookupSlot finds the pre-allocated slot of name, walking outward from scope s to the declaring scope.
func (g *funcGen) lookupSlot(s *ast.Scope, name string) *llir.AllocaInst {
	for cur := s; cur != nil; cur = cur.Parent {
		if slot, ok := g.allocs[slotKey(cur.ID, -1, name)]; ok {
			return slot
		}
	}
	panic(fmt.Sprintf("lower: no pre-allocated slot for %q (function %s)", name, g.def.Name))
}

// lowerAddress lowers an expression in address (reference) position.
func (g *funcGen) lowerAddress(s *ast.Scope, e ast.Expression) llir.Value {
	switch n := e.(type) {
	case *ast.VariableExpr:
		return g.lookupSlot(s, n.Name)
	case *ast.DataAccessExpr:
		base := g.typeOf(s, n.Base)[0]
		return g.cur.CreateGEP(g.lowerAddress(s, n.Base), dataFieldIndex(base, n.Field))
	}
	panic(fmt.Sprintf("lower: %T cannot appear in an assignment-target position", e))
}

// lowerBinary lowers a binary operation: overflow-checked helpers on signed integers, saturating helpers
// on unsigned, native instructions on floats, the string library on str.
func (g *funcGen) lowerBinary(s *ast.Scope, n *ast.BinaryExpr) llir.Value {
	operandType := g.typeOf(s, n.Left)[0]

	if isBooleanOp(n.Op) {
		lhs := g.lowerExprSingle(s, n.Left)
		rhs := g.lowerExprSingle(s, n.Right)
		op := llir.And
		if n.Op == "or" {
			op = llir.Or
		}
		return g.cur.CreateBinOp(op, lhs, rhs)
	}

	if types.Equal(operandType, types.Str) {
		return g.lowerStrBinary(s, n)
	}

	lhs := g.lowerExprSingle(s, n.Left)
	rhs := g.lowerExprSingle(s, n.Right)

	if isRelationalOp(n.Op) {
		return g.cur.CreateCmp(relationalPreds[n.Op], lhs, rhs)
	}

	lowered := lhs.Type()
	if lowered.IsFloat() {
		switch n.Op {
		case "+":
			return g.cur.CreateBinOp(llir.Add, lhs, rhs)
		case "-":
			return g.cur.CreateBinOp(llir.Sub, lhs, rhs)
		case "*":
			return g.cur.CreateBinOp(llir.Mul, lhs, rhs)
		case "/":
			return g.cur.CreateBinOp(llir.Div, lhs, rhs)
		case "^":
			pow := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function {
				name := "pow"
				if lowered == lt.F32 {
					name = "powf"
				}
				return r.LibmBinary(name, lowered)
			})
			return g.cur.CreateCall(pow, lhs, rhs)
		}
		panic(fmt.Sprintf("lower: unsupported float operator %q", n.Op))
	}

	var helper *llir.Function
	switch n.Op {
	case "+":
		helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeAdd(lowered) })
	case "-":
		helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeSub(lowered) })
	case "*":
		helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeMul(lowered) })
	case "/":
		helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeDiv(lowered) })
	case "%":
		// Remainder shares the division guards: check via safe div, then take the native remainder.
		div := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeDiv(lowered) })
		res := g.cur.CreateCall(div, lhs, rhs)
		g.rethrow(g.cur.CreateExtract(res, 0))
		return g.cur.CreateBinOp(llir.Rem, lhs, rhs)
	case "^":
		return g.lowerIntPow(lhs, rhs)
	default:
		panic(fmt.Sprintf("lower: unsupported integer operator %q", n.Op))
	}
	res := g.cur.CreateCall(helper, lhs, rhs)
	g.rethrow(g.cur.CreateExtract(res, 0))
	return g.cur.CreateExtract(res, 1)
}

// lowerStrBinary lowers concatenation and the relational operators over str values.
func (g *funcGen) lowerStrBinary(s *ast.Scope, n *ast.BinaryExpr) llir.Value {
	lhs := g.lowerExprSingle(s, n.Left)
	rhs := g.lowerExprSingle(s, n.Right)
	if n.Op == "+" {
		add := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.AddStrStr() })
		return g.cur.CreateCall(add, lhs, rhs)
	}
	if pred, ok := relationalPreds[n.Op]; ok {
		return g.ctx.strCompare(g.cur, pred, lhs, rhs)
	}
	panic(fmt.Sprintf("lower: unsupported str operator %q", n.Op))
}

// lowerIntPow lowers integer exponentiation as an inline multiply loop over the pre-lowered operands.
func (g *funcGen) lowerIntPow(base, exp llir.Value) llir.Value {
	typ := base.Type()
	resSlot := g.entry.PrependAlloca("", typ)
	expSlot := g.entry.PrependAlloca("", exp.Type())
	g.cur.CreateStore(g.cur.CreateConstIntV(typ, 1), resSlot)
	g.cur.CreateStore(exp, expSlot)

	cond := g.newBlock("pow.cond")
	body := g.newBlock("pow.body")
	done := g.newBlock("pow.done")
	g.cur.CreateBr(cond)

	remaining := cond.CreateLoad(expSlot)
	cond.CreateCondBr(cond.CreateCmp(llir.Gt, remaining, cond.CreateConstIntV(exp.Type(), 0)), body, done)

	mul := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeMul(typ) })
	g.cur = body
	res := body.CreateCall(mul, body.CreateLoad(resSlot), base)
	g.rethrow(body.CreateExtract(res, 0))
	g.cur.CreateStore(g.cur.CreateExtract(res, 1), resSlot)
	g.cur.CreateStore(g.cur.CreateBinOp(llir.Sub,
		g.cur.CreateLoad(expSlot), g.cur.CreateConstIntV(exp.Type(), 1)), expSlot)
	g.cur.CreateBr(cond)

	g.cur = done
	return done.CreateLoad(resSlot)
}

// lowerUnary lowers not, numeric negation and the increment/decrement forms.
func (g *funcGen) lowerUnary(s *ast.Scope, n *ast.UnaryExpr) llir.Value {
	switch n.Op {
	case "not":
		v := g.lowerExprSingle(s, n.Operand)
		return builtins.GenerateNot(g.cur, v)
	case "-":
		v := g.lowerExprSingle(s, n.Operand)
		if v.Type().IsFloat() {
			return g.cur.CreateBinOp(llir.Sub, g.cur.CreateConstFloat(v.Type(), "0"), v)
		}
		sub := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeSub(v.Type()) })
		res := g.cur.CreateCall(sub, g.cur.CreateConstIntV(v.Type(), 0), v)
		g.rethrow(g.cur.CreateExtract(res, 0))
		return g.cur.CreateExtract(res, 1)
	case "++", "--":
		// Expression-position increment: update the slot, yield the updated value.
		slot := g.lowerAddress(s, n.Operand)
		v := g.cur.CreateLoad(slot)
		op := "+"
		if n.Op == "--" {
			op = "-"
		}
		var helper *llir.Function
		if op == "+" {
			helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeAdd(v.Type()) })
		} else {
			helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeSub(v.Type()) })
		}
		res := g.cur.CreateCall(helper, v, g.cur.CreateConstIntV(v.Type(), 1))
		g.rethrow(g.cur.CreateExtract(res, 0))
		updated := g.cur.CreateExtract(res, 1)
		g.cur.CreateStore(updated, slot)
		return updated
	}
	panic(fmt.Sprintf("lower: unsupported unary operator %q", n.Op))
}

// lowerInitializer fills the expression's pre-reserved struct slot with the argument values in field
// order and yields the loaded struct value.
func (g *funcGen) lowerInitializer(s *ast.Scope, n *ast.InitializerExpr) llir.Value {
	slot, ok := g.allocs[slotKey(s.ID, -1, fmt.Sprintf("init%d", n.Line))]
	if !ok {
		panic(fmt.Sprintf("lower: initializer at line %d has no pre-allocated slot", n.Line))
	}
	for i1, e1 := range n.Args {
		g.cur.CreateStore(g.lowerExprSingle(s, e1), g.cur.CreateGEP(slot, i1))
	}
	return g.cur.CreateLoad(slot)
}

// lowerCast dispatches a primitive-to-primitive cast to the numeric conversion helpers; str casts route
// through the numeric-to-string family; anything else is fatal.
func (g *funcGen) lowerCast(s *ast.Scope, n *ast.CastExpr) llir.Value {
	from := g.typeOf(s, n.Operand)[0]
	v := g.lowerExprSingle(s, n.Operand)
	if from.Variation != types.Primitive || n.Type.Variation != types.Primitive {
		panic(fmt.Sprintf("lower: unsupported cast %s -> %s", from.String(), n.Type.String()))
	}
	target := g.ctx.LowerType(g.fg.m, n.Type)
	if types.Equal(from, n.Type) {
		return v
	}
	if from.PrimitiveName == "str" {
		panic(fmt.Sprintf("lower: unsupported cast str -> %s", n.Type.String()))
	}
	if n.Type.PrimitiveName == "str" {
		var conv *llir.Function
		if v.Type().IsFloat() {
			conv = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.FloatToStr(v.Type()) })
		} else {
			conv = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.IntToStr(v.Type()) })
		}
		return g.cur.CreateCall(conv, v)
	}
	if v.Type() == lt.I1 {
		// bool widens plainly; there is nothing to clamp.
		return g.cur.CreateCast(llir.ZExt, v, target)
	}
	conv := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function {
		return r.NumericConv(v.Type(), target)
	})
	return g.cur.CreateCall(conv, v)
}

// rethrow emits the automatic error forwarding at a call site outside a catch context: a non-zero error
// code is copied into the enclosing function's return struct and control branches to the function exit.
// Catch-guarded calls skip it at the call site instead (see lowerCall).
func (g *funcGen) rethrow(errCode llir.Value) {
	fail := g.newBlock("rethrow")
	cont := g.newBlock("cont")
	nonZero := g.cur.CreateCmp(llir.Ne, errCode, g.cur.CreateConstIntV(lt.I32, 0))
	g.cur.CreateCondBr(nonZero, fail, cont)
	fail.CreateStore(errCode, fail.CreateGEP(g.retSlot, 0))
	fail.CreateBr(g.exit)
	g.cur = cont
}
