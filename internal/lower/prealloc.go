package lower

import (
	"fmt"

	"flintc/internal/ast"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// The pre-allocation pass: before any body code is lowered, the function's whole scope tree is traversed
// and every stack slot it will ever need is emitted as an allocation in the entry block. Call sites inside
// loops then reuse their one slot instead of growing the stack per iteration, which keeps deep call trees
// in loops safe.

// slotKey builds the allocation map key "<scope_id>.<call_id?>.<name>".
func slotKey(scopeID int, callID int, name string) string {
	if callID >= 0 {
		return fmt.Sprintf("%d.%d.%s", scopeID, callID, name)
	}
	return fmt.Sprintf("%d.%s", scopeID, name)
}

// preallocate walks the function's scope tree and emits one entry-block allocation per slot: parameter
// shadows, declared variables, call-site return-struct temporaries, if-chain condition temporaries and
// loop iterators.
func (g *funcGen) preallocate() {
	body := g.def.Body

	// The return struct slot, written by return/throw and loaded at the function exit.
	g.retSlot = g.entry.CreateAlloca("ret.slot", g.retType)

	// One slot per parameter, so parameters are addressable like any declared variable.
	for _, e1 := range g.def.Params {
		key := slotKey(body.ID, -1, e1.Name)
		g.allocs[key] = g.entry.CreateAlloca("p."+e1.Name, g.ctx.LowerType(g.fg.m, e1.Type))
	}

	g.preallocateScope(body)
}

// preallocateScope collects the slots of one scope and recurses into nested scopes.
func (g *funcGen) preallocateScope(s *ast.Scope) {
	if s == nil {
		return
	}
	for _, stmt := range s.Statements {
		g.preallocateStmt(s, stmt)
	}
}

func (g *funcGen) preallocateStmt(s *ast.Scope, stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.DeclStmt:
		g.allocNamed(s.ID, n.Name, n.Type)
		g.preallocateExpr(s, n.Init)
	case *ast.GroupDeclStmt:
		for i1, e1 := range n.Names {
			g.allocNamed(s.ID, e1, n.Types[i1])
		}
		g.preallocateExpr(s, n.Init)
	case *ast.AssignStmt:
		g.preallocateExpr(s, n.Target)
		g.preallocateExpr(s, n.Value)
	case *ast.GroupAssignStmt:
		for _, e1 := range n.Targets {
			g.preallocateExpr(s, e1)
		}
		g.preallocateExpr(s, n.Value)
	case *ast.ArrayAssignStmt:
		g.preallocateExpr(s, n.Array)
		g.preallocateExpr(s, n.Index)
		g.preallocateExpr(s, n.Value)
	case *ast.ReturnStmt:
		for _, e1 := range n.Values {
			g.preallocateExpr(s, e1)
		}
	case *ast.IfStmt:
		// One i1 temporary per arm condition, keyed by the chain's line and arm index.
		for i1, arm := range n.Arms {
			if arm.Cond != nil {
				key := slotKey(s.ID, -1, fmt.Sprintf("if%d.%d.cond", n.Line, i1))
				g.allocs[key] = g.entry.CreateAlloca("", lt.I1)
				g.preallocateExpr(s, arm.Cond)
			}
			g.preallocateScope(arm.Body)
		}
	case *ast.WhileStmt:
		g.preallocateExpr(s, n.Cond)
		g.preallocateScope(n.Body)
	case *ast.DoWhileStmt:
		g.preallocateScope(n.Body)
		g.preallocateExpr(s, n.Cond)
	case *ast.ForStmt:
		if n.Init != nil {
			g.preallocateStmt(n.Body, n.Init)
		}
		g.preallocateExpr(n.Body, n.Cond)
		if n.Post != nil {
			g.preallocateStmt(n.Body, n.Post)
		}
		g.preallocateScope(n.Body)
	case *ast.EnhancedForStmt:
		g.preallocateEnhancedFor(n)
	case *ast.ParallelForStmt:
		g.preallocateEnhancedFor(&n.EnhancedForStmt)
	case *ast.CatchStmt:
		g.preallocateStmt(s, n.Call)
		if n.ErrorVar != "" {
			g.allocNamedLowered(n.Body.ID, n.ErrorVar, lt.I32)
		}
		g.preallocateScope(n.Body)
	case *ast.UnaryOpStmt:
		g.preallocateExpr(s, n.Target)
	case *ast.CallStmt:
		g.preallocateExpr(s, n.Call)
	case *ast.ThrowStmt, *ast.BreakStmt, *ast.ContinueStmt:
		// No slots.
	}
}

// preallocateEnhancedFor reserves the index iterator and element slots inside the loop body's scope.
func (g *funcGen) preallocateEnhancedFor(n *ast.EnhancedForStmt) {
	g.allocNamedLowered(n.Body.ID, iterName(n.IndexVar), lt.U64)
	if n.ElemVar != "" && n.ElemVar != "_" {
		elemTypes := g.typeOf(n.Body, n.Iterable)
		elem := elemTypes[0]
		switch {
		case elem.Variation == types.MultiType:
			elem = elem.Element
		case types.Equal(elem, types.Str):
			// Iterating a str yields its bytes.
			elem = types.Prim("char")
		}
		g.allocNamed(n.Body.ID, n.ElemVar, elem)
	}
	g.preallocateExpr(n.Body, n.Iterable)
	g.preallocateScope(n.Body)
}

// iterName names the index slot of an enhanced for loop, substituting for a discarded index variable.
func iterName(indexVar string) string {
	if indexVar == "" || indexVar == "_" {
		return ".idx"
	}
	return indexVar
}

// preallocateExpr reserves the call-site return-struct temporaries of every call nested in e.
func (g *funcGen) preallocateExpr(s *ast.Scope, e ast.Expression) {
	switch n := e.(type) {
	case nil:
		return
	case *ast.CallExpr:
		if _, emitted := g.allocs[slotKey(n.ScopeID, n.CallID, "call")]; !emitted {
			rets := g.calleeReturns(s, n)
			rs := g.ctx.ReturnStruct(g.fg.m, rets)
			g.allocs[slotKey(n.ScopeID, n.CallID, "call")] =
				g.entry.CreateAlloca(fmt.Sprintf("call.%s.%d", n.Callee, n.CallID), rs)
		}
		for _, e1 := range n.Args {
			g.preallocateExpr(s, e1)
		}
	case *ast.BinaryExpr:
		g.preallocateExpr(s, n.Left)
		g.preallocateExpr(s, n.Right)
	case *ast.UnaryExpr:
		g.preallocateExpr(s, n.Operand)
	case *ast.GroupExpr:
		for _, e1 := range n.Elements {
			g.preallocateExpr(s, e1)
		}
	case *ast.InitializerExpr:
		// Initializers fill a pre-reserved struct slot keyed like a call without a call id.
		key := slotKey(s.ID, -1, fmt.Sprintf("init%d", n.Line))
		if _, emitted := g.allocs[key]; !emitted {
			g.allocs[key] = g.entry.CreateAlloca("", g.ctx.LowerType(g.fg.m, n.Type))
		}
		for _, e1 := range n.Args {
			g.preallocateExpr(s, e1)
		}
	case *ast.DataAccessExpr:
		g.preallocateExpr(s, n.Base)
	case *ast.GroupedDataAccessExpr:
		g.preallocateExpr(s, n.Base)
	case *ast.CastExpr:
		g.preallocateExpr(s, n.Operand)
	}
}

// allocNamed reserves the slot of a declared variable in its scope.
func (g *funcGen) allocNamed(scopeID int, name string, t *types.Type) {
	g.allocNamedLowered(scopeID, name, g.ctx.LowerType(g.fg.m, t))
}

// allocNamedLowered is allocNamed for an already-lowered slot type.
func (g *funcGen) allocNamedLowered(scopeID int, name string, typ *lt.Type) {
	key := slotKey(scopeID, -1, name)
	if _, ok := g.allocs[key]; ok {
		return
	}
	g.allocs[key] = g.entry.CreateAlloca(fmt.Sprintf("v.%s", name), typ)
}
