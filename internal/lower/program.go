package lower

import (
	"fmt"

	"flintc/internal/ast"
	"flintc/internal/llir"
	"flintc/internal/pool"
)

// GenerateProgramIR produces one program-level LLIR module by walking the dependency graph leaves-first:
// one module per file, generated on the worker pool, accumulated into the program module, then the
// inter-file unresolved call sites are resolved. is_test swaps the user entry point for the test runner.
func GenerateProgramIR(programName string, root *ast.DepNode, isTest bool, workers *pool.Pool, debug bool) (*llir.Module, *ProgramContext, error) {
	ctx := NewProgramContext(programName, debug)
	ctx.isTest = isTest

	files, err := ast.Order(root)
	if err != nil {
		return nil, nil, err
	}

	// Serial phase: forward declarations and mangle ids for every file, so that cross-file call sites
	// lowered in the parallel phase can already identify their target file.
	fgs := make([]*fileGen, len(files))
	for i1, e1 := range files {
		fgs[i1] = newFileGen(ctx, e1)
		fgs[i1].forwardDeclarations()
	}

	// Parallel phase: per-file body lowering on the persistent worker pool. A lowering panic is an
	// internal compiler error; it is captured per file and reported after the pool drains.
	futures := make([]*pool.Future[error], len(fgs))
	for i1 := range fgs {
		fg := fgs[i1]
		futures[i1] = pool.Enqueue(workers, func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("generating %s: %v", fg.file.Path, r)
				}
			}()
			fg.lowerBodies()
			return nil
		})
	}
	workers.WaitForAllTasks()
	for _, e1 := range futures {
		if err := e1.Get(); err != nil {
			return nil, nil, err
		}
	}

	// Serial phase: intra-file resolution, then accumulation into the program module.
	for _, e1 := range fgs {
		if err := e1.resolveIntraFile(); err != nil {
			return nil, nil, err
		}
	}
	for _, e1 := range fgs {
		ctx.Program.Absorb(e1.m)
	}

	if isTest {
		ctx.emitTestRunner()
	}

	// Program-level fix-up of the cross-file call sites.
	if err := ctx.ResolveProgram(); err != nil {
		return nil, nil, err
	}
	return ctx.Program, ctx, nil
}
