package lower

import (
	"fmt"

	"flintc/internal/ast"
	"flintc/internal/label"
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/types"
)

// Per-file generation. Each source file produces one LLIR module through a fixed protocol: forward
// declarations with per-file mangle ids, per-function lowering (pre-allocation then body), deferral of
// every call whose target is not yet a definition, and an intra-file resolution sweep at file end. The
// driver later absorbs the file modules into the program module and runs the cross-file fix-up.

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// fileGen carries the per-file generation state.
type fileGen struct {
	ctx  *ProgramContext
	file *ast.FileNode
	m    *llir.Module

	labels       *label.Generator            // per-file mangle id service
	fwd          map[string]*llir.Function   // forward declarations by (name, signature) key
	placeholders map[string]*llir.Function   // intra-file call placeholders by key
	unresolved   map[string][]*llir.CallInst // intra-file deferred call sites by key
}

// funcGen carries the per-function lowering state.
type funcGen struct {
	fg  *fileGen
	ctx *ProgramContext
	def *ast.FunctionDef
	fn  *llir.Function

	entry   *llir.Block
	exit    *llir.Block
	cur     *llir.Block
	retType *lt.Type
	retSlot *llir.AllocaInst
	allocs  map[string]*llir.AllocaInst
	loops   []loopBlocks
	isMain  bool
}

// ---------------------
// ----- Functions -----
// ---------------------

// newFileGen prepares the generation state for one file.
func newFileGen(ctx *ProgramContext, file *ast.FileNode) *fileGen {
	return &fileGen{
		ctx:          ctx,
		file:         file,
		m:            llir.CreateModule(fmt.Sprintf("%s.%08x", file.Path, file.PathHash)),
		labels:       label.New(),
		fwd:          make(map[string]*llir.Function, 8),
		placeholders: make(map[string]*llir.Function, 8),
		unresolved:   make(map[string][]*llir.CallInst, 8),
	}
}

// forwardDeclarations runs the serial first phase over the file: data and error definitions are
// registered, and every function definition except the user entry point gets a declaration under a
// monotonic per-file mangle id starting at 1.
func (fg *fileGen) forwardDeclarations() {
	for _, def := range fg.file.Definitions {
		switch n := def.(type) {
		case *ast.DataDef:
			node := &types.DataNode{Name: n.Name, FileHash: fg.file.PathHash}
			for _, e1 := range n.Fields {
				node.Fields = append(node.Fields, types.Field{Name: e1.Name, Type: e1.Type})
			}
			fg.ctx.RegisterDataNode(node)
		case *ast.ErrorSetDef:
			var parent *types.Type
			if n.Parent != "" {
				parent = fg.ctx.errorSets[n.Parent]
			}
			fg.ctx.RegisterErrorSet(types.NewErrorSetType(n.Name, parent, n.Members))
		}
	}

	for _, def := range fg.file.Definitions {
		fn, ok := def.(*ast.FunctionDef)
		if !ok || fn.Name == "main" {
			continue
		}
		id := fg.labels.NextMangleID()
		fg.ctx.recordForwardDeclaration(fg.file.PathHash, fn, id)

		retStruct := fg.ctx.ReturnStruct(fg.m, fn.Returns)
		params := make([]*lt.Type, len(fn.Params))
		for i1, e1 := range fn.Params {
			params[i1] = fg.ctx.LowerType(fg.m, e1.Type)
		}
		decl := fg.m.DeclareFunction(mangledName(fn.Name, fg.file.PathHash, id), retStruct, params, false)
		decl.SetMangleID(id)
		fg.fwd[sigKey(fn)] = decl
	}

	// The entry point is still recorded so its calls into siblings resolve, but it gets no mangle id.
	for _, def := range fg.file.Definitions {
		if fn, ok := def.(*ast.FunctionDef); ok && fn.Name == "main" {
			fg.ctx.recordForwardDeclaration(fg.file.PathHash, fn, 0)
		}
	}
}

// lowerBodies runs the parallel second phase: every function definition (and, in test mode, every test
// definition) is lowered into the file module.
func (fg *fileGen) lowerBodies() {
	for _, def := range fg.file.Definitions {
		switch n := def.(type) {
		case *ast.FunctionDef:
			if n.Name == "main" && fg.ctx.isTest {
				// Test builds replace the user entry point with the generated runner.
				continue
			}
			fg.lowerFunction(n)
		case *ast.TestDef:
			if fg.ctx.isTest {
				fg.lowerTest(n)
			}
		}
	}
}

// lowerFunction lowers one function definition: signature, pre-allocation pass, body, epilogue.
func (fg *fileGen) lowerFunction(def *ast.FunctionDef) {
	isMain := def.Name == "main"

	var fn *llir.Function
	retStruct := fg.ctx.ReturnStruct(fg.m, def.Returns)
	if isMain {
		// The entry point returns the process exit code: field 0 of its return struct.
		fn = fg.m.CreateFunction("main", lt.I32)
	} else {
		fn = fg.fwd[sigKey(def)]
		if fn == nil {
			panic(fmt.Sprintf("lower: function %q has no forward declaration", def.Name))
		}
	}

	g := &funcGen{
		fg:      fg,
		ctx:     fg.ctx,
		def:     def,
		fn:      fn,
		retType: retStruct,
		allocs:  make(map[string]*llir.AllocaInst, 16),
		isMain:  isMain,
	}
	g.lower()
}

// lower drives one function's generation: the entry block gets every stack slot, the parameters are
// spilled into their slots, the body is lowered, and the shared exit block materialises the return.
func (g *funcGen) lower() {
	body := g.def.Body
	if body.Symbols == nil {
		body.Symbols = map[string]*types.Type{}
	}
	for _, e1 := range g.def.Params {
		if _, ok := body.Symbols[e1.Name]; !ok {
			body.Symbols[e1.Name] = e1.Type
		}
	}

	g.entry = g.fn.CreateBlock("entry")
	g.exit = g.fn.CreateBlock("exit")
	g.cur = g.entry

	g.preallocate()

	// Spill parameters into their pre-allocated slots. For the entry point the declaration carries no
	// parameters; its slots keep their zero values.
	if !g.isMain {
		params := g.fn.Params()
		for i1, e1 := range g.def.Params {
			g.cur.CreateStore(params[i1], g.allocs[slotKey(body.ID, -1, e1.Name)])
		}
	}

	g.lowerScope(body)
	if !g.cur.Terminated() {
		// Falling off the end is a normal, error-free completion.
		g.cur.CreateStore(g.cur.CreateConstIntV(lt.I32, 0), g.cur.CreateGEP(g.retSlot, 0))
		g.cur.CreateBr(g.exit)
	}

	if g.isMain {
		// The process exit code is the error field: zero on success, the error id on an uncaught throw.
		g.exit.CreateRet(g.exit.CreateLoad(g.exit.CreateGEP(g.retSlot, 0)))
	} else {
		g.exit.CreateRet(g.exit.CreateLoad(g.retSlot))
	}
}

// newBlock appends a fresh basic block to the function under generation.
func (g *funcGen) newBlock(name string) *llir.Block {
	return g.fn.CreateBlock(name)
}

// callPlaceholder returns the placeholder declaration a call site targets until resolution: intra-file
// calls get a per-file deterministic placeholder from the callee's mangle id, cross-file calls one derived
// from the target file's hash.
func (fg *fileGen) callPlaceholder(def *ast.FunctionDef) *llir.Function {
	key := sigKey(def)
	if ph, ok := fg.placeholders[key]; ok {
		return ph
	}
	targetFile, ok := fg.ctx.FileOfFunction(def.Name)
	if !ok {
		panic(fmt.Sprintf("lower: callee %q belongs to no known file", def.Name))
	}

	retStruct := fg.ctx.ReturnStruct(fg.m, def.Returns)
	params := make([]*lt.Type, len(def.Params))
	for i1, e1 := range def.Params {
		params[i1] = fg.ctx.LowerType(fg.m, e1.Type)
	}

	var name string
	if targetFile == fg.file.PathHash {
		mangle := fg.ctx.fileFunctionMangleIDs[targetFile][key]
		name = fmt.Sprintf("%s.u%d", def.Name, mangle)
	} else {
		name = fmt.Sprintf("%s.x%08x", def.Name, targetFile)
	}
	ph := fg.m.DeclareFunction(name, retStruct, params, false)
	fg.placeholders[key] = ph
	return ph
}

// deferCall records a just-emitted call site in the matching unresolved table.
func (fg *fileGen) deferCall(def *ast.FunctionDef, call *llir.CallInst) {
	key := sigKey(def)
	targetFile, _ := fg.ctx.FileOfFunction(def.Name)
	if targetFile == fg.file.PathHash {
		fg.unresolved[key] = append(fg.unresolved[key], call)
		return
	}
	fg.ctx.recordUnresolvedCall(targetFile, key, call)
}

// resolveIntraFile rewrites every intra-file deferred call to reference the actual definition now present
// in the file module, then drops the placeholders and stops the file's label service.
func (fg *fileGen) resolveIntraFile() error {
	fg.labels.Close()
	for key, calls := range fg.unresolved {
		target := fg.fwd[key]
		if target == nil || target.IsDecl() {
			return fmt.Errorf("intra-file call %q did not resolve to a definition", key)
		}
		for _, e1 := range calls {
			placeholder := e1.Target()
			e1.SetTarget(target)
			fg.m.RemoveFunction(placeholder.BareName())
		}
		delete(fg.unresolved, key)
	}
	fg.placeholders = make(map[string]*llir.Function)
	return nil
}
