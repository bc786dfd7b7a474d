package lower

import (
	"fmt"

	"flintc/internal/ast"
	"flintc/internal/builtins"
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// Statement lowering. Control flow is threaded through g.cur: every helper leaves g.cur pointing at the
// block where straight-line lowering continues.

// loopBlocks records the continue and break targets of the innermost enclosing loop.
type loopBlocks struct {
	header *llir.Block // continue target
	exit   *llir.Block // break target
}

// lowerScope lowers the statements of one scope in order, stopping early once a terminator has been
// emitted (code after return/throw/break/continue is unreachable). At scope exit the str values the scope
// owns are freed.
func (g *funcGen) lowerScope(s *ast.Scope) {
	var ownedStrs []string
	for _, stmt := range s.Statements {
		if g.cur.Terminated() {
			return
		}
		if d, ok := stmt.(*ast.DeclStmt); ok && types.Equal(d.Type, types.Str) {
			ownedStrs = append(ownedStrs, d.Name)
		}
		g.lowerStmt(s, stmt)
	}
	if g.cur.Terminated() {
		return
	}
	// End-of-scope pass: release the heap records of str values this scope declared.
	for _, name := range ownedStrs {
		freeStr := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.FreeStr() })
		g.cur.CreateCall(freeStr, g.cur.CreateLoad(g.lookupSlot(s, name)))
	}
}

// lowerStmt lowers one statement, tagging its first emitted instruction with a source-line comment.
func (g *funcGen) lowerStmt(s *ast.Scope, stmt ast.Statement) {
	startBlock := g.cur
	before := len(startBlock.Instructions())

	switch n := stmt.(type) {
	case *ast.DeclStmt:
		g.lowerDecl(s, n)
	case *ast.GroupDeclStmt:
		grp := g.lowerExprGroup(s, n.Init)
		for i1, e1 := range n.Names {
			g.cur.CreateStore(grp[i1], g.lookupSlot(s, e1))
		}
	case *ast.AssignStmt:
		g.lowerAssign(s, n)
	case *ast.GroupAssignStmt:
		grp := g.lowerExprGroup(s, n.Value)
		for i1, e1 := range n.Targets {
			g.cur.CreateStore(grp[i1], g.lowerAddress(s, e1))
		}
	case *ast.ArrayAssignStmt:
		g.lowerArrayAssign(s, n)
	case *ast.ReturnStmt:
		g.lowerReturn(s, n)
	case *ast.ThrowStmt:
		g.lowerThrow(n)
	case *ast.IfStmt:
		g.lowerIf(s, n)
	case *ast.WhileStmt:
		g.lowerWhile(s, n)
	case *ast.DoWhileStmt:
		g.lowerDoWhile(s, n)
	case *ast.ForStmt:
		g.lowerFor(n)
	case *ast.EnhancedForStmt:
		g.lowerEnhancedFor(n, false)
	case *ast.ParallelForStmt:
		g.lowerEnhancedFor(&n.EnhancedForStmt, true)
	case *ast.CatchStmt:
		g.lowerCatch(s, n)
	case *ast.BreakStmt:
		if len(g.loops) == 0 {
			panic("lower: break outside a loop")
		}
		g.cur.CreateBr(g.loops[len(g.loops)-1].exit)
	case *ast.ContinueStmt:
		if len(g.loops) == 0 {
			panic("lower: continue outside a loop")
		}
		g.cur.CreateBr(g.loops[len(g.loops)-1].header)
	case *ast.UnaryOpStmt:
		g.lowerUnaryOpStmt(s, n)
	case *ast.CallStmt:
		g.lowerCall(s, n.Call, false)
	default:
		panic(fmt.Sprintf("lower: cannot lower statement %T", stmt))
	}

	g.tagStatement(startBlock, before, stmt)
}

// tagStatement attaches a source-line comment to the first instruction a statement emitted.
func (g *funcGen) tagStatement(b *llir.Block, before int, stmt ast.Statement) {
	insts := b.Instructions()
	if len(insts) <= before {
		return
	}
	line := statementLine(stmt)
	if line <= 0 {
		return
	}
	if tagged, ok := insts[before].(interface{ SetComment(int) }); ok {
		tagged.SetComment(g.fg.m.AddComment(fmt.Sprintf("line %d", line)))
	}
}

// statementLine reads the source line a statement starts on.
func statementLine(stmt ast.Statement) int {
	switch n := stmt.(type) {
	case *ast.DeclStmt:
		return n.Line
	case *ast.GroupDeclStmt:
		return n.Line
	case *ast.AssignStmt:
		return n.Line
	case *ast.GroupAssignStmt:
		return n.Line
	case *ast.ArrayAssignStmt:
		return n.Line
	case *ast.ReturnStmt:
		return n.Line
	case *ast.ThrowStmt:
		return n.Line
	case *ast.IfStmt:
		return n.Line
	case *ast.WhileStmt:
		return n.Line
	case *ast.DoWhileStmt:
		return n.Line
	case *ast.ForStmt:
		return n.Line
	case *ast.EnhancedForStmt:
		return n.Line
	case *ast.ParallelForStmt:
		return n.Line
	case *ast.CatchStmt:
		return n.Line
	case *ast.UnaryOpStmt:
		return n.Line
	case *ast.CallStmt:
		return n.Line
	}
	return 0
}

// lowerDecl stores the initializer (or the type's zero value) into the declared variable's slot.
func (g *funcGen) lowerDecl(s *ast.Scope, n *ast.DeclStmt) {
	slot := g.lookupSlot(s, n.Name)
	if n.Init == nil {
		g.cur.CreateStore(g.cur.CreateZero(g.ctx.LowerType(g.fg.m, n.Type)), slot)
		return
	}
	g.cur.CreateStore(g.lowerExprSingle(s, n.Init), slot)
}

// lowerAssign stores the right-hand value into the target's slot, releasing a replaced str's old heap
// record first.
func (g *funcGen) lowerAssign(s *ast.Scope, n *ast.AssignStmt) {
	addr := g.lowerAddress(s, n.Target)
	val := g.lowerExprSingle(s, n.Value)
	targetType := g.typeOf(s, n.Target)[0]
	if types.Equal(targetType, types.Str) {
		freeStr := g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.FreeStr() })
		g.cur.CreateCall(freeStr, g.cur.CreateLoad(addr))
	}
	g.cur.CreateStore(val, addr)
}

// lowerArrayAssign stores through a run-time element index of a multi-type slot.
func (g *funcGen) lowerArrayAssign(s *ast.Scope, n *ast.ArrayAssignStmt) {
	base := g.lowerAddress(s, n.Array)
	idx := g.lowerExprSingle(s, n.Index)
	val := g.lowerExprSingle(s, n.Value)
	g.cur.CreateStore(val, g.elementPtr(base, idx, val.Type()))
}

// elementPtr computes the address of element idx of the vector slot base points at.
func (g *funcGen) elementPtr(base llir.Value, idx llir.Value, elem *lt.Type) llir.Value {
	size := int64(elem.Bits() / 8)
	addr := g.cur.CreateCast(llir.PtrToInt, base, lt.U64)
	if idx.Type() != lt.U64 {
		idx = g.cur.CreateCast(llir.ZExt, idx, lt.U64)
	}
	off := g.cur.CreateBinOp(llir.Mul, idx, g.cur.CreateConstIntV(lt.U64, size))
	sum := g.cur.CreateBinOp(llir.Add, addr, off)
	return g.cur.CreateCast(llir.IntToPtr, sum, lt.PointerTo(elem))
}

// lowerReturn stores the returned values into fields 1..n of the return struct, zeroes the error field,
// and branches to the function exit.
func (g *funcGen) lowerReturn(s *ast.Scope, n *ast.ReturnStmt) {
	field := 1
	for _, e1 := range n.Values {
		for _, v := range g.lowerExprGroup(s, e1) {
			g.cur.CreateStore(v, g.cur.CreateGEP(g.retSlot, field))
			field++
		}
	}
	g.cur.CreateStore(g.cur.CreateConstIntV(lt.I32, 0), g.cur.CreateGEP(g.retSlot, 0))
	g.cur.CreateBr(g.exit)
}

// lowerThrow stores the raised error code into field 0 of the return struct, leaves the value fields
// zeroed, and branches to the function exit.
func (g *funcGen) lowerThrow(n *ast.ThrowStmt) {
	code := g.ctx.ErrorID(n.ErrorSet, n.Member)
	g.cur.CreateStore(g.cur.CreateConstIntV(lt.I32, int64(code)), g.cur.CreateGEP(g.retSlot, 0))
	g.cur.CreateBr(g.exit)
}

// lowerIf lowers an if/else-if/else chain: one block per arm plus a merge block, with the else path
// threaded through the remaining checks.
func (g *funcGen) lowerIf(s *ast.Scope, n *ast.IfStmt) {
	merge := g.newBlock("if.merge")
	for i1, arm := range n.Arms {
		if arm.Cond == nil {
			// Final else arm.
			body := g.newBlock("else.body")
			g.cur.CreateBr(body)
			g.cur = body
			g.lowerScope(arm.Body)
			if !g.cur.Terminated() {
				g.cur.CreateBr(merge)
			}
			g.cur = merge
			return
		}
		body := g.newBlock(fmt.Sprintf("if.body.%d", i1))
		next := merge
		if i1 < len(n.Arms)-1 {
			next = g.newBlock(fmt.Sprintf("if.next.%d", i1))
		}
		condSlot := g.allocs[slotKey(s.ID, -1, fmt.Sprintf("if%d.%d.cond", n.Line, i1))]
		g.cur.CreateStore(g.lowerExprSingle(s, arm.Cond), condSlot)
		g.cur.CreateCondBr(g.cur.CreateLoad(condSlot), body, next)

		g.cur = body
		g.lowerScope(arm.Body)
		if !g.cur.Terminated() {
			g.cur.CreateBr(merge)
		}
		g.cur = next
	}
	if g.cur != merge && !g.cur.Terminated() {
		g.cur.CreateBr(merge)
		g.cur = merge
	}
}

// lowerWhile lowers a pre-tested loop: the header evaluates the condition and branches to body or exit.
func (g *funcGen) lowerWhile(s *ast.Scope, n *ast.WhileStmt) {
	header := g.newBlock("while.header")
	body := g.newBlock("while.body")
	exit := g.newBlock("while.exit")
	g.cur.CreateBr(header)

	g.cur = header
	cond := g.lowerExprSingle(s, n.Cond)
	g.cur.CreateCondBr(cond, body, exit)

	g.loops = append(g.loops, loopBlocks{header: header, exit: exit})
	g.cur = body
	g.lowerScope(n.Body)
	if !g.cur.Terminated() {
		g.cur.CreateBr(header)
	}
	g.loops = g.loops[:len(g.loops)-1]
	g.cur = exit
}

// lowerDoWhile lowers a post-tested loop: the body runs first, then the condition decides on another
// round.
func (g *funcGen) lowerDoWhile(s *ast.Scope, n *ast.DoWhileStmt) {
	body := g.newBlock("do.body")
	header := g.newBlock("do.cond")
	exit := g.newBlock("do.exit")
	g.cur.CreateBr(body)

	g.loops = append(g.loops, loopBlocks{header: header, exit: exit})
	g.cur = body
	g.lowerScope(n.Body)
	if !g.cur.Terminated() {
		g.cur.CreateBr(header)
	}
	g.loops = g.loops[:len(g.loops)-1]

	g.cur = header
	cond := g.lowerExprSingle(s, n.Cond)
	g.cur.CreateCondBr(cond, body, exit)
	g.cur = exit
}

// lowerFor lowers the classic three-part loop.
func (g *funcGen) lowerFor(n *ast.ForStmt) {
	if n.Init != nil {
		g.lowerStmt(n.Body, n.Init)
	}
	header := g.newBlock("for.header")
	body := g.newBlock("for.body")
	post := g.newBlock("for.post")
	exit := g.newBlock("for.exit")
	g.cur.CreateBr(header)

	g.cur = header
	cond := g.lowerExprSingle(n.Body, n.Cond)
	g.cur.CreateCondBr(cond, body, exit)

	g.loops = append(g.loops, loopBlocks{header: post, exit: exit})
	g.cur = body
	g.lowerScope(n.Body)
	if !g.cur.Terminated() {
		g.cur.CreateBr(post)
	}
	g.loops = g.loops[:len(g.loops)-1]

	g.cur = post
	if n.Post != nil {
		g.lowerStmt(n.Body, n.Post)
	}
	g.cur.CreateBr(header)
	g.cur = exit
}

// lowerEnhancedFor lowers container iteration by index; the parallel form adds the deterministic
// work-partition prologue ahead of the identical loop code.
func (g *funcGen) lowerEnhancedFor(n *ast.EnhancedForStmt, parallel bool) {
	iterable := g.lowerExprSingle(n.Body, n.Iterable)
	length := g.iterableLength(n, iterable)

	if parallel {
		// Work partition: one chunk per iteration count, fixed at loop entry.
		chunkSlot := g.entry.PrependAlloca("par.chunk", lt.U64)
		st := g.cur.CreateStore(length, chunkSlot)
		st.SetComment(g.fg.m.AddComment("parallel for: work partition size"))
	}

	idxSlot := g.lookupSlot(n.Body, iterName(n.IndexVar))
	g.cur.CreateStore(g.cur.CreateConstIntV(lt.U64, 0), idxSlot)

	header := g.newBlock("each.header")
	body := g.newBlock("each.body")
	inc := g.newBlock("each.inc")
	exit := g.newBlock("each.exit")
	g.cur.CreateBr(header)

	g.cur = header
	idx := g.cur.CreateLoad(idxSlot)
	g.cur.CreateCondBr(g.cur.CreateCmp(llir.Lt, idx, length), body, exit)

	g.loops = append(g.loops, loopBlocks{header: inc, exit: exit})
	g.cur = body
	if n.ElemVar != "" && n.ElemVar != "_" {
		elemSlot := g.lookupSlot(n.Body, n.ElemVar)
		g.loadElement(n, iterable, g.cur.CreateLoad(idxSlot), elemSlot)
	}
	g.lowerScope(n.Body)
	if !g.cur.Terminated() {
		g.cur.CreateBr(inc)
	}
	g.loops = g.loops[:len(g.loops)-1]

	g.cur = inc
	next := g.cur.CreateBinOp(llir.Add, g.cur.CreateLoad(idxSlot), g.cur.CreateConstIntV(lt.U64, 1))
	g.cur.CreateStore(next, idxSlot)
	g.cur.CreateBr(header)
	g.cur = exit
}

// iterableLength derives the iteration count of an enhanced-for container: the fixed width of a
// multi-type, or the run-time length of a str.
func (g *funcGen) iterableLength(n *ast.EnhancedForStmt, iterable llir.Value) llir.Value {
	t := g.typeOf(n.Body, n.Iterable)[0]
	switch t.Variation {
	case types.MultiType:
		return g.cur.CreateConstIntV(lt.U64, int64(t.Width))
	case types.Primitive:
		if t.PrimitiveName == "str" {
			return g.cur.CreateLoad(g.cur.CreateGEP(iterable, 0))
		}
	}
	panic(fmt.Sprintf("lower: cannot iterate a value of type %s", t.String()))
}

// loadElement copies the idx'th element of the container into the element variable's slot.
func (g *funcGen) loadElement(n *ast.EnhancedForStmt, iterable llir.Value, idx llir.Value, elemSlot *llir.AllocaInst) {
	t := g.typeOf(n.Body, n.Iterable)[0]
	switch t.Variation {
	case types.MultiType:
		// The vector value sits in the iterated expression's slot; index it in place.
		tmp := g.entry.PrependAlloca("", iterable.Type())
		g.cur.CreateStore(iterable, tmp)
		elem := g.cur.CreateLoad(g.elementPtr(tmp, idx, g.ctx.LowerType(g.fg.m, t.Element)))
		g.cur.CreateStore(elem, elemSlot)
	case types.Primitive: // str: elements are bytes
		data := g.cur.CreateGEP(iterable, 1)
		raw := g.cur.CreateCast(llir.Bitcast, data, lt.PointerTo(lt.U8))
		g.cur.CreateStore(g.cur.CreateLoad(g.elementPtr(raw, idx, lt.U8)), elemSlot)
	}
}

// lowerCatch executes the guarded call without automatic rethrow, tests the error field of its return
// struct, and runs the catch body with the error id bound on a non-zero code.
func (g *funcGen) lowerCatch(s *ast.Scope, n *ast.CatchStmt) {
	g.lowerCall(s, n.Call.Call, true)
	slot := g.catchSlot(n.Call.Call)
	errCode := g.cur.CreateLoad(g.cur.CreateGEP(slot, 0))

	handler := g.newBlock("catch.body")
	cont := g.newBlock("catch.cont")
	nonZero := g.cur.CreateCmp(llir.Ne, errCode, g.cur.CreateConstIntV(lt.I32, 0))
	g.cur.CreateCondBr(nonZero, handler, cont)

	g.cur = handler
	if n.ErrorVar != "" {
		g.cur.CreateStore(errCode, g.lookupSlot(n.Body, n.ErrorVar))
	}
	g.lowerScope(n.Body)
	if !g.cur.Terminated() {
		g.cur.CreateBr(cont)
	}
	g.cur = cont
}

// lowerUnaryOpStmt lowers a standalone increment/decrement statement.
func (g *funcGen) lowerUnaryOpStmt(s *ast.Scope, n *ast.UnaryOpStmt) {
	slot := g.lowerAddress(s, n.Target)
	v := g.cur.CreateLoad(slot)
	var helper *llir.Function
	if n.Op == "++" {
		helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeAdd(v.Type()) })
	} else {
		helper = g.ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.SafeSub(v.Type()) })
	}
	res := g.cur.CreateCall(helper, v, g.cur.CreateConstIntV(v.Type(), 1))
	g.rethrow(g.cur.CreateExtract(res, 0))
	g.cur.CreateStore(g.cur.CreateExtract(res, 1), slot)
}
