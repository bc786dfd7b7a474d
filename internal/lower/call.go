package lower

import (
	"fmt"

	"flintc/internal/ast"
	"flintc/internal/builtins"
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// Call lowering: compiler builtins dispatch straight to the emitted library; user calls go through the
// pre-reserved return struct slot and the unresolved-call deferral protocol.

// helperFn runs a compiler-library emitter under the shared emission lock: helpers mutate the program
// module, and file tasks run in parallel.
func (ctx *ProgramContext) helperFn(f func(r *builtins.Registry) *llir.Function) *llir.Function {
	ctx.builtinsMu.Lock()
	defer ctx.builtinsMu.Unlock()
	return f(ctx.Reg)
}

// strCompare emits a str relational comparison under the emission lock.
func (ctx *ProgramContext) strCompare(b *llir.Block, pred llir.Pred, lhs, rhs llir.Value) llir.Value {
	ctx.builtinsMu.Lock()
	defer ctx.builtinsMu.Unlock()
	return ctx.Reg.StrCompare(b, pred, lhs, rhs)
}

// builtinNames lists every call name the compiler resolves to its emitted library instead of a user
// function.
var builtinNames = map[string]bool{
	"print": true, "read_str": true, "read_file": true, "write_file": true, "append_file": true,
	"file_exists": true, "is_file": true, "get_env": true, "set_env": true, "assert": true,
	"abs": true, "min": true, "max": true, "sin": true, "cos": true, "sqrt": true,
}

// isBuiltinCall reports whether name is a compiler builtin.
func isBuiltinCall(name string) bool { return builtinNames[name] }

// builtinReturns derives a builtin call's declared return types, which for the math family depend on the
// argument type.
func (g *funcGen) builtinReturns(s *ast.Scope, n *ast.CallExpr) []*types.Type {
	switch n.Callee {
	case "print", "write_file", "append_file", "set_env", "assert":
		return nil
	case "read_str", "read_file", "get_env":
		return []*types.Type{types.Str}
	case "file_exists", "is_file":
		return []*types.Type{types.Bool}
	case "abs", "min", "max", "sin", "cos", "sqrt":
		return []*types.Type{g.typeOf(s, n.Args[0])[0]}
	}
	panic(fmt.Sprintf("lower: builtin %q has no return shape", n.Callee))
}

// lowerCall lowers a call expression to its result group. inCatchCall suppresses the automatic rethrow,
// for the guarded call of a catch statement.
func (g *funcGen) lowerCall(s *ast.Scope, n *ast.CallExpr, inCatchCall bool) []llir.Value {
	def, known := g.ctx.GetFunctionDefinition(n.Callee)
	if !known {
		panic(fmt.Sprintf("lower: call to unknown function %q", n.Callee))
	}
	if def == nil {
		return g.lowerBuiltinCall(s, n, inCatchCall)
	}
	return g.lowerUserCall(s, n, def, inCatchCall)
}

// lowerUserCall emits a user function call: arguments are lowered, the call result lands in the call
// site's pre-reserved return struct slot, field 0 decides the rethrow, and fields 1..n form the result
// group.
func (g *funcGen) lowerUserCall(s *ast.Scope, n *ast.CallExpr, def *ast.FunctionDef, inCatchCall bool) []llir.Value {
	slot, ok := g.allocs[slotKey(n.ScopeID, n.CallID, "call")]
	if !ok {
		panic(fmt.Sprintf("lower: call %s#%d has no pre-allocated return slot", n.Callee, n.CallID))
	}

	args := make([]llir.Value, len(n.Args))
	for i1, e1 := range n.Args {
		args[i1] = g.lowerExprSingle(s, e1)
	}

	target := g.fg.callPlaceholder(def)
	call := g.cur.CreateCall(target, args...)
	g.fg.deferCall(def, call)
	g.cur.CreateStore(call, slot)

	errCode := g.cur.CreateLoad(g.cur.CreateGEP(slot, 0))
	if !inCatchCall {
		g.rethrow(errCode)
	}

	out := make([]llir.Value, 0, len(def.Returns))
	for i1 := range def.Returns {
		if def.Returns[i1].Variation == types.Primitive && def.Returns[i1].PrimitiveName == "void" {
			continue
		}
		out = append(out, g.cur.CreateLoad(g.cur.CreateGEP(slot, i1+1)))
	}
	return out
}

// catchSlot returns the pre-reserved return struct slot of a guarded call, for the catch statement's
// error test.
func (g *funcGen) catchSlot(n *ast.CallExpr) *llir.AllocaInst {
	slot, ok := g.allocs[slotKey(n.ScopeID, n.CallID, "call")]
	if !ok {
		panic(fmt.Sprintf("lower: catch-guarded call %s#%d has no pre-allocated return slot", n.Callee, n.CallID))
	}
	return slot
}

// lowerBuiltinCall dispatches a builtin by name and argument type.
func (g *funcGen) lowerBuiltinCall(s *ast.Scope, n *ast.CallExpr, inCatchCall bool) []llir.Value {
	switch n.Callee {
	case "print":
		g.lowerPrint(s, n)
		return nil
	case "read_str":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.ReadStr() })
		return []llir.Value{g.cur.CreateCall(fn)}
	case "read_file":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.ReadFile() })
		return g.errStructCall(fn, inCatchCall, 1, g.lowerExprSingle(s, n.Args[0]))
	case "write_file":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.WriteFile() })
		return g.errStructCall(fn, inCatchCall, 0,
			g.lowerExprSingle(s, n.Args[0]), g.lowerExprSingle(s, n.Args[1]))
	case "append_file":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.AppendFile() })
		return g.errStructCall(fn, inCatchCall, 0,
			g.lowerExprSingle(s, n.Args[0]), g.lowerExprSingle(s, n.Args[1]))
	case "file_exists":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.FileExists() })
		return []llir.Value{g.cur.CreateCall(fn, g.lowerExprSingle(s, n.Args[0]))}
	case "is_file":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.IsFile() })
		return []llir.Value{g.cur.CreateCall(fn, g.lowerExprSingle(s, n.Args[0]))}
	case "get_env":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.GetEnv() })
		return g.errStructCall(fn, inCatchCall, 1, g.lowerExprSingle(s, n.Args[0]))
	case "set_env":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SetEnv() })
		return g.errStructCall(fn, inCatchCall, 0,
			g.lowerExprSingle(s, n.Args[0]), g.lowerExprSingle(s, n.Args[1]), g.lowerExprSingle(s, n.Args[2]))
	case "assert":
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.Assert() })
		return g.errStructCall(fn, inCatchCall, 0, g.lowerExprSingle(s, n.Args[0]))
	case "abs":
		v := g.lowerExprSingle(s, n.Args[0])
		var fn *llir.Function
		if v.Type().IsFloat() {
			fn = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.MathUnary("abs", v.Type()) })
		} else {
			fn = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.AbsInt(v.Type()) })
		}
		return []llir.Value{g.cur.CreateCall(fn, v)}
	case "min", "max":
		a := g.lowerExprSingle(s, n.Args[0])
		b := g.lowerExprSingle(s, n.Args[1])
		var fn *llir.Function
		if a.Type().IsFloat() {
			fn = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.MathBinary(n.Callee, a.Type()) })
		} else {
			fn = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.MinMaxInt(n.Callee, a.Type()) })
		}
		return []llir.Value{g.cur.CreateCall(fn, a, b)}
	case "sin", "cos", "sqrt":
		v := g.lowerExprSingle(s, n.Args[0])
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.MathUnary(n.Callee, v.Type()) })
		return []llir.Value{g.cur.CreateCall(fn, v)}
	}
	panic(fmt.Sprintf("lower: unhandled builtin %q", n.Callee))
}

// errStructCall calls a fallible helper, runs the rethrow protocol on its error field, and extracts the
// given number of result values.
func (g *funcGen) errStructCall(fn *llir.Function, inCatchCall bool, values int, args ...llir.Value) []llir.Value {
	res := g.cur.CreateCall(fn, args...)
	if !inCatchCall {
		g.rethrow(g.cur.CreateExtract(res, 0))
	}
	out := make([]llir.Value, values)
	for i1 := 0; i1 < values; i1++ {
		out[i1] = g.cur.CreateExtract(res, i1+1)
	}
	return out
}

// lowerPrint dispatches print by its single argument's type: one emitted variant per integer width and
// signedness, one each for the floats, bool, str literals and str variables.
func (g *funcGen) lowerPrint(s *ast.Scope, n *ast.CallExpr) {
	if len(n.Args) != 1 {
		panic("lower: print takes exactly one argument")
	}
	if lit, ok := n.Args[0].(*ast.LiteralExpr); ok && types.Equal(lit.Type, types.Str) {
		g1 := g.fg.m.CreateString(lit.Str)
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.PrintStrLit() })
		g.cur.CreateCall(fn, g.cur.CreateGEP(g1, 0), g.cur.CreateConstIntV(lt.U64, int64(len(lit.Str))))
		return
	}
	v := g.lowerExprSingle(s, n.Args[0])
	switch {
	case v.Type() == lt.I1:
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.PrintBool() })
		g.cur.CreateCall(fn, v)
	case v.Type().IsPointer():
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.PrintStr() })
		g.cur.CreateCall(fn, v)
	default:
		fn := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.PrintScalar(v.Type()) })
		g.cur.CreateCall(fn, v)
	}
}
