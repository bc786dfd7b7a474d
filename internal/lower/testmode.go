package lower

import (
	"fmt"
	"sort"

	"flintc/internal/ast"
	"flintc/internal/builtins"
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// Test mode: every test definition lowers to its own function contributing a row to the tests registry,
// and the user entry point is replaced by a generated runner that executes the registry, prints a status
// line per test, and exits non-zero if any test failed. A test that throws counts as failed unless it is
// annotated test_should_fail, in which case a clean completion is the failure.

// lowerTest lowers one test definition into a function returning the bare { i32 } struct.
func (fg *fileGen) lowerTest(def *ast.TestDef) {
	fnName := fmt.Sprintf("test.%08x.%08x", fg.file.PathHash, types.HashName(def.Name))
	retStruct := fg.ctx.ReturnStruct(fg.m, nil)
	fn := fg.m.CreateFunction(fnName, retStruct)

	synthetic := &ast.FunctionDef{
		Name: "test " + def.Name,
		Body: def.Body,
		Line: def.Line,
	}
	g := &funcGen{
		fg:      fg,
		ctx:     fg.ctx,
		def:     synthetic,
		fn:      fn,
		retType: retStruct,
		allocs:  make(map[string]*llir.AllocaInst, 16),
	}
	g.lower()

	fg.ctx.testsMu.Lock()
	fg.ctx.tests = append(fg.ctx.tests, testEntry{name: def.Name, shouldFail: def.ShouldFail, fn: fn})
	fg.ctx.testsMu.Unlock()
}

// emitErrorNamePrinter emits a helper that prints "Set.Member" for a runtime error code, backed by an
// if-chain over every known error set, builtin and user-defined.
func (ctx *ProgramContext) emitErrorNamePrinter() *llir.Function {
	printf := ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.Printf() })
	m := ctx.Program
	fn := m.CreateFunction("print_err_name", lt.VoidType)
	fn.CreateParam("err", lt.I32)
	cur := fn.CreateBlock("entry")
	errParam := fn.Params()[0]

	// Deterministic order: sets sorted by name, members in declaration order.
	setNames := make([]string, 0, len(ctx.errorSets))
	for name := range ctx.errorSets {
		setNames = append(setNames, name)
	}
	sort.Strings(setNames)

	done := fn.CreateBlock("done")
	for _, set := range setNames {
		for _, member := range ctx.errorSets[set].Values {
			hit := fn.CreateBlock("hit")
			next := fn.CreateBlock("next")
			id := builtins.ErrorID(set, member)
			match := cur.CreateCmp(llir.Eq, errParam, cur.CreateConstIntV(lt.I32, int64(id)))
			cur.CreateCondBr(match, hit, next)
			lit := m.CreateString(set + "." + member)
			hit.CreateCall(printf, hit.CreateGEP(lit, 0))
			hit.CreateBr(done)
			cur = next
		}
	}
	unknown := m.CreateString("error %d")
	cur.CreateCall(printf, cur.CreateGEP(unknown, 0), errParam)
	cur.CreateBr(done)
	done.CreateRet(nil)
	return fn
}

// emitTestRunner builds the replacement entry point: it runs every registered test, prints PASS/FAIL
// lines, and returns 1 when any test failed.
func (ctx *ProgramContext) emitTestRunner() {
	m := ctx.Program
	printf := ctx.helperFn(func(r *builtins.Registry) *llir.Function { return r.Printf() })
	errName := ctx.emitErrorNamePrinter()

	main := m.CreateFunction("main", lt.I32)
	cur := main.CreateBlock("entry")
	failSlot := cur.CreateAlloca("failed", lt.I32)
	cur.CreateStore(cur.CreateConstIntV(lt.I32, 0), failSlot)

	// Registry rows execute in registration order.
	for _, e1 := range ctx.tests {
		res := cur.CreateCall(e1.fn)
		errCode := cur.CreateExtract(res, 0)
		threw := cur.CreateCmp(llir.Ne, errCode, cur.CreateConstIntV(lt.I32, 0))
		expected := cur.CreateConstIntV(lt.I1, 0)
		if e1.shouldFail {
			expected = cur.CreateConstIntV(lt.I1, 1)
		}
		failed := cur.CreateCmp(llir.Ne, threw, expected)

		failBlock := main.CreateBlock("fail")
		passBlock := main.CreateBlock("pass")
		next := main.CreateBlock("next")
		cur.CreateCondBr(failed, failBlock, passBlock)

		failFmt := m.CreateString(fmt.Sprintf("FAIL %s", e1.name))
		failBlock.CreateCall(printf, failBlock.CreateGEP(failFmt, 0))
		withErr := main.CreateBlock("fail.err")
		bare := main.CreateBlock("fail.bare")
		failBlock.CreateCondBr(threw, withErr, bare)
		open := m.CreateString(" (")
		closeParen := m.CreateString(")")
		withErr.CreateCall(printf, withErr.CreateGEP(open, 0))
		withErr.CreateCall(errName, errCode)
		withErr.CreateCall(printf, withErr.CreateGEP(closeParen, 0))
		withErr.CreateBr(bare)
		nl := m.CreateString("\n")
		bare.CreateCall(printf, bare.CreateGEP(nl, 0))
		bare.CreateStore(bare.CreateConstIntV(lt.I32, 1), failSlot)
		bare.CreateBr(next)

		passFmt := m.CreateString(fmt.Sprintf("PASS %s\n", e1.name))
		passBlock.CreateCall(printf, passBlock.CreateGEP(passFmt, 0))
		passBlock.CreateBr(next)

		cur = next
	}
	cur.CreateRet(cur.CreateLoad(failSlot))
}
