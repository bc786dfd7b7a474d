// Package llvmgen is the compiler's alternate lowering path: it walks the same resolved AST the native
// LLIR generator consumes and builds real LLVM IR through the system LLVM runtime, selected with
// --emit-llvm. Function headers and bodies are generated in two phases, each parallelised over the worker
// pool; every worker owns its own llvm.Builder, because interchanging basic blocks on one shared builder
// across goroutines is a data race.
package llvmgen

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

import (
	"tinygo.org/x/go-llvm"
)

import (
	"flintc/internal/ast"
	"flintc/internal/builtins"
	"flintc/internal/cliopts"
	"flintc/internal/pool"
	"flintc/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// symTab is a name-to-value table with a read/write mutex for thread safe access across workers.
type symTab struct {
	m map[string]llvm.Value
	sync.RWMutex
}

func (s *symTab) get(name string) (llvm.Value, bool) {
	s.RLock()
	defer s.RUnlock()
	v, ok := s.m[name]
	return v, ok
}

func (s *symTab) put(name string, v llvm.Value) {
	s.Lock()
	defer s.Unlock()
	s.m[name] = v
}

// typeTab is a name-to-type table with a read/write mutex for thread safe access across workers.
type typeTab struct {
	m map[string]llvm.Type
	sync.RWMutex
}

func (s *typeTab) get(name string) (llvm.Type, bool) {
	s.RLock()
	defer s.RUnlock()
	t, ok := s.m[name]
	return t, ok
}

func (s *typeTab) put(name string, t llvm.Type) {
	s.Lock()
	defer s.Unlock()
	s.m[name] = t
}

// generator carries the per-program LLVM lowering state.
type generator struct {
	ctx       llvm.Context
	m         llvm.Module
	funcs     symTab
	funcTypes typeTab
	defs      map[string]*ast.FunctionDef
	printf    llvm.Value
	printfT   llvm.Type

	// headerMu serialises AddFunction: mutating the module's function list from concurrent header tasks
	// crashes inside LLVM.
	headerMu sync.Mutex
}

// funcWrapper pairs an AST function with its generated LLVM header for the body phase.
type funcWrapper struct {
	ll   llvm.Value
	node *ast.FunctionDef
}

// ---------------------
// ----- Constants -----
// ---------------------

const mapSize = 16

// ---------------------
// ----- Functions -----
// ---------------------

// GenLLVM lowers every function of the ordered files into one LLVM module and returns its textual IR.
func GenLLVM(opt cliopts.Options, files []*ast.FileNode, workers *pool.Pool) (string, error) {
	if len(files) == 0 {
		return "", errors.New("no files to generate")
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	m := ctx.NewModule(filepath.Base(opt.Src))

	g := &generator{
		ctx:       ctx,
		m:         m,
		funcs:     symTab{m: make(map[string]llvm.Value, mapSize)},
		funcTypes: typeTab{m: make(map[string]llvm.Type, mapSize)},
		defs:      make(map[string]*ast.FunctionDef, mapSize),
	}
	printfT := llvm.FunctionType(ctx.Int32Type(),
		[]llvm.Type{llvm.PointerType(ctx.Int8Type(), 0)}, true)
	g.printf = llvm.AddFunction(m, "printf", printfT)
	g.printfT = printfT

	var fns []*ast.FunctionDef
	for _, f := range files {
		for _, def := range f.Definitions {
			if fn, ok := def.(*ast.FunctionDef); ok {
				fns = append(fns, fn)
				g.defs[fn.Name] = fn
			}
		}
	}

	// Phase one: function headers, so that call sites in any body can reference any function.
	headerFutures := make([]*pool.Future[error], len(fns))
	wrappers := make([]funcWrapper, len(fns))
	for i1 := range fns {
		i1 := i1
		headerFutures[i1] = pool.Enqueue(workers, func() error {
			ll, err := g.genFuncHeader(fns[i1])
			if err != nil {
				return err
			}
			wrappers[i1] = funcWrapper{ll: ll, node: fns[i1]}
			return nil
		})
	}
	workers.WaitForAllTasks()
	for _, e1 := range headerFutures {
		if err := e1.Get(); err != nil {
			return "", err
		}
	}

	// Phase two: function bodies. Each task allocates its own builder.
	bodyFutures := make([]*pool.Future[error], len(wrappers))
	for i1 := range wrappers {
		w := wrappers[i1]
		bodyFutures[i1] = pool.Enqueue(workers, func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("llvm generation of %s: %v", w.node.Name, r)
				}
			}()
			b := g.ctx.NewBuilder()
			defer b.Dispose()
			return g.genFuncBody(b, w)
		})
	}
	workers.WaitForAllTasks()
	for _, e1 := range bodyFutures {
		if err := e1.Get(); err != nil {
			return "", err
		}
	}

	return m.String(), nil
}

// lowerType maps a language type onto its LLVM representation.
func (g *generator) lowerType(t *types.Type) llvm.Type {
	if t == nil {
		return g.ctx.Int32Type()
	}
	switch t.Variation {
	case types.Primitive:
		switch t.PrimitiveName {
		case "i8", "u8", "char":
			return g.ctx.Int8Type()
		case "i16", "u16":
			return g.ctx.Int16Type()
		case "i32", "u32", "int":
			return g.ctx.Int32Type()
		case "i64", "u64":
			return g.ctx.Int64Type()
		case "f32":
			return g.ctx.FloatType()
		case "f64", "flint":
			return g.ctx.DoubleType()
		case "bool":
			return g.ctx.Int1Type()
		case "str":
			return llvm.PointerType(g.ctx.Int8Type(), 0)
		case "void":
			return g.ctx.VoidType()
		}
	case types.ErrorSet:
		return g.ctx.Int32Type()
	case types.MultiType:
		return llvm.VectorType(g.lowerType(t.Element), int(t.Width))
	}
	panic(fmt.Sprintf("llvmgen: cannot lower type %s", t.String()))
}

// retStructType builds the { err: i32, values... } return struct of a function.
func (g *generator) retStructType(def *ast.FunctionDef) llvm.Type {
	fields := []llvm.Type{g.ctx.Int32Type()}
	for _, e1 := range def.Returns {
		if e1.Variation == types.Primitive && e1.PrimitiveName == "void" {
			continue
		}
		fields = append(fields, g.lowerType(e1))
	}
	return g.ctx.StructType(fields, false)
}

// genFuncHeader declares one function: its return struct and parameter types.
func (g *generator) genFuncHeader(def *ast.FunctionDef) (llvm.Value, error) {
	var ret llvm.Type
	name := def.Name
	if name == "main" {
		ret = g.ctx.Int32Type()
	} else {
		ret = g.retStructType(def)
	}
	params := make([]llvm.Type, len(def.Params))
	for i1, e1 := range def.Params {
		params[i1] = g.lowerType(e1.Type)
	}
	ft := llvm.FunctionType(ret, params, false)
	g.headerMu.Lock()
	fn := llvm.AddFunction(g.m, name, ft)
	g.headerMu.Unlock()
	for i1, e1 := range def.Params {
		fn.Param(i1).SetName(e1.Name)
	}
	g.funcs.put(name, fn)
	g.funcTypes.put(name, ft)
	return fn, nil
}

// varSlot pairs a variable's stack slot with the type it was allocated with, since CreateLoad
// needs the pointee type explicitly once opaque pointers are in play.
type varSlot struct {
	ptr llvm.Value
	typ llvm.Type
}

// bodyGen carries the state of one function body's generation.
type bodyGen struct {
	g          *generator
	b          llvm.Builder
	fn         llvm.Value
	def        *ast.FunctionDef
	retT       llvm.Type
	retSlot    llvm.Value
	exit       llvm.BasicBlock
	vars       map[string]varSlot
	terminated bool // set when the current block already carries a terminator
}

// genFuncBody lowers one function body into its declared header.
func (g *generator) genFuncBody(b llvm.Builder, w funcWrapper) error {
	def := w.node
	entry := llvm.AddBasicBlock(w.ll, "entry")
	exit := llvm.AddBasicBlock(w.ll, "exit")
	b.SetInsertPointAtEnd(entry)

	bg := &bodyGen{
		g: g, b: b, fn: w.ll, def: def,
		retT: g.retStructType(def),
		exit: exit,
		vars: make(map[string]varSlot, 8),
	}
	bg.retSlot = b.CreateAlloca(bg.retT, "ret.slot")
	b.CreateStore(llvm.ConstNull(bg.retT), bg.retSlot)

	for i1, e1 := range def.Params {
		t := g.lowerType(e1.Type)
		slot := b.CreateAlloca(t, e1.Name)
		b.CreateStore(w.ll.Param(i1), slot)
		bg.vars[e1.Name] = varSlot{ptr: slot, typ: t}
	}

	bg.genScope(def.Body)
	if !bg.terminated {
		b.CreateBr(exit)
	}

	b.SetInsertPointAtEnd(exit)
	errT := bg.retT.StructElementTypes()[0]
	if def.Name == "main" {
		errPtr := b.CreateStructGEP(bg.retT, bg.retSlot, 0, "err.ptr")
		b.CreateRet(b.CreateLoad(errT, errPtr, "err"))
	} else {
		b.CreateRet(b.CreateLoad(bg.retT, bg.retSlot, "ret"))
	}
	return nil
}

// genScope lowers the statements of one scope.
func (bg *bodyGen) genScope(s *ast.Scope) {
	for _, stmt := range s.Statements {
		if bg.terminated {
			return
		}
		bg.genStmt(s, stmt)
	}
}

// genStmt lowers one statement.
func (bg *bodyGen) genStmt(s *ast.Scope, stmt ast.Statement) {
	switch n := stmt.(type) {
	case *ast.DeclStmt:
		t := bg.g.lowerType(n.Type)
		slot := bg.b.CreateAlloca(t, n.Name)
		bg.vars[n.Name] = varSlot{ptr: slot, typ: t}
		if n.Init != nil {
			bg.b.CreateStore(bg.genExpr(s, n.Init), slot)
		} else {
			bg.b.CreateStore(llvm.ConstNull(t), slot)
		}
	case *ast.AssignStmt:
		target, ok := n.Target.(*ast.VariableExpr)
		if !ok {
			panic("llvmgen: only variable assignment targets are supported on this path")
		}
		bg.b.CreateStore(bg.genExpr(s, n.Value), bg.vars[target.Name].ptr)
	case *ast.ReturnStmt:
		for i1, e1 := range n.Values {
			ptr := bg.b.CreateStructGEP(bg.retT, bg.retSlot, i1+1, "ret.val")
			bg.b.CreateStore(bg.genExpr(s, e1), ptr)
		}
		errPtr := bg.b.CreateStructGEP(bg.retT, bg.retSlot, 0, "ret.err")
		bg.b.CreateStore(llvm.ConstInt(bg.g.ctx.Int32Type(), 0, false), errPtr)
		bg.b.CreateBr(bg.exit)
		bg.terminated = true
	case *ast.ThrowStmt:
		id := uint64(uint32(builtins.ErrorID(n.ErrorSet, n.Member)))
		errPtr := bg.b.CreateStructGEP(bg.retT, bg.retSlot, 0, "ret.err")
		bg.b.CreateStore(llvm.ConstInt(bg.g.ctx.Int32Type(), id, false), errPtr)
		bg.b.CreateBr(bg.exit)
		bg.terminated = true
	case *ast.IfStmt:
		bg.genIf(s, n)
	case *ast.WhileStmt:
		bg.genWhile(s, n)
	case *ast.CallStmt:
		bg.genExpr(s, n.Call)
	default:
		panic(fmt.Sprintf("llvmgen: statement %T is not supported on this path", stmt))
	}
}

// genIf lowers an if/else-if/else chain.
func (bg *bodyGen) genIf(s *ast.Scope, n *ast.IfStmt) {
	merge := llvm.AddBasicBlock(bg.fn, "if.merge")
	for _, arm := range n.Arms {
		if arm.Cond == nil {
			bg.genScope(arm.Body)
			break
		}
		body := llvm.AddBasicBlock(bg.fn, "if.body")
		next := llvm.AddBasicBlock(bg.fn, "if.next")
		bg.b.CreateCondBr(bg.genExpr(s, arm.Cond), body, next)
		bg.b.SetInsertPointAtEnd(body)
		bg.genScope(arm.Body)
		if !bg.terminated {
			bg.b.CreateBr(merge)
		}
		bg.terminated = false
		bg.b.SetInsertPointAtEnd(next)
	}
	if !bg.terminated {
		bg.b.CreateBr(merge)
	}
	bg.terminated = false
	bg.b.SetInsertPointAtEnd(merge)
}

// genWhile lowers a pre-tested loop.
func (bg *bodyGen) genWhile(s *ast.Scope, n *ast.WhileStmt) {
	header := llvm.AddBasicBlock(bg.fn, "while.header")
	body := llvm.AddBasicBlock(bg.fn, "while.body")
	exit := llvm.AddBasicBlock(bg.fn, "while.exit")
	bg.b.CreateBr(header)
	bg.b.SetInsertPointAtEnd(header)
	bg.b.CreateCondBr(bg.genExpr(s, n.Cond), body, exit)
	bg.b.SetInsertPointAtEnd(body)
	bg.genScope(n.Body)
	if !bg.terminated {
		bg.b.CreateBr(header)
	}
	bg.terminated = false
	bg.b.SetInsertPointAtEnd(exit)
}

// genExpr lowers one expression to a single LLVM value.
func (bg *bodyGen) genExpr(s *ast.Scope, e ast.Expression) llvm.Value {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return bg.genLiteral(n)
	case *ast.VariableExpr:
		slot, ok := bg.vars[n.Name]
		if !ok {
			panic(fmt.Sprintf("llvmgen: unknown variable %q", n.Name))
		}
		return bg.b.CreateLoad(slot.typ, slot.ptr, n.Name)
	case *ast.BinaryExpr:
		return bg.genBinary(s, n)
	case *ast.UnaryExpr:
		if n.Op == "not" {
			v := bg.genExpr(s, n.Operand)
			return bg.b.CreateICmp(llvm.IntEQ, v, llvm.ConstNull(v.Type()), "not")
		}
		if n.Op == "-" {
			return bg.b.CreateNeg(bg.genExpr(s, n.Operand), "neg")
		}
		panic(fmt.Sprintf("llvmgen: unary %q is not supported on this path", n.Op))
	case *ast.CallExpr:
		return bg.genCall(s, n)
	}
	panic(fmt.Sprintf("llvmgen: expression %T is not supported on this path", e))
}

// genLiteral materialises a constant.
func (bg *bodyGen) genLiteral(n *ast.LiteralExpr) llvm.Value {
	t := bg.g.lowerType(n.Type)
	switch {
	case n.Type.PrimitiveName == "bool":
		v := uint64(0)
		if n.Bool {
			v = 1
		}
		return llvm.ConstInt(t, v, false)
	case n.Type.PrimitiveName == "f32" || n.Type.PrimitiveName == "f64":
		return llvm.ConstFloat(t, n.Float.ToFloat64())
	case n.Type.PrimitiveName == "str":
		return bg.b.CreateGlobalStringPtr(n.Str, "str")
	default:
		v, ok := n.Int.ToI64()
		if !ok {
			panic(fmt.Sprintf("llvmgen: literal %s does not fit a 64-bit lowering", n.Int.String()))
		}
		return llvm.ConstInt(t, uint64(v), true)
	}
}

// genBinary lowers a binary operation with LLVM's native instructions. Unlike the native LLIR path, this
// path leans on LLVM for arithmetic semantics; the overflow-checked helper protocol belongs to the
// primary generator.
func (bg *bodyGen) genBinary(s *ast.Scope, n *ast.BinaryExpr) llvm.Value {
	lhs := bg.genExpr(s, n.Left)
	rhs := bg.genExpr(s, n.Right)
	isFloat := lhs.Type().TypeKind() == llvm.FloatTypeKind || lhs.Type().TypeKind() == llvm.DoubleTypeKind
	switch n.Op {
	case "+":
		if isFloat {
			return bg.b.CreateFAdd(lhs, rhs, "add")
		}
		return bg.b.CreateAdd(lhs, rhs, "add")
	case "-":
		if isFloat {
			return bg.b.CreateFSub(lhs, rhs, "sub")
		}
		return bg.b.CreateSub(lhs, rhs, "sub")
	case "*":
		if isFloat {
			return bg.b.CreateFMul(lhs, rhs, "mul")
		}
		return bg.b.CreateMul(lhs, rhs, "mul")
	case "/":
		if isFloat {
			return bg.b.CreateFDiv(lhs, rhs, "div")
		}
		return bg.b.CreateSDiv(lhs, rhs, "div")
	case "and":
		return bg.b.CreateAnd(lhs, rhs, "and")
	case "or":
		return bg.b.CreateOr(lhs, rhs, "or")
	}
	if isFloat {
		preds := map[string]llvm.FloatPredicate{
			"==": llvm.FloatOEQ, "!=": llvm.FloatONE, "<": llvm.FloatOLT, "<=": llvm.FloatOLE,
			">": llvm.FloatOGT, ">=": llvm.FloatOGE,
		}
		if pred, ok := preds[n.Op]; ok {
			return bg.b.CreateFCmp(pred, lhs, rhs, "cmp")
		}
	}
	preds := map[string]llvm.IntPredicate{
		"==": llvm.IntEQ, "!=": llvm.IntNE, "<": llvm.IntSLT, "<=": llvm.IntSLE,
		">": llvm.IntSGT, ">=": llvm.IntSGE,
	}
	if pred, ok := preds[n.Op]; ok {
		return bg.b.CreateICmp(pred, lhs, rhs, "cmp")
	}
	panic(fmt.Sprintf("llvmgen: operator %q is not supported on this path", n.Op))
}

// genCall lowers a call: print routes through printf, user functions through their headers with the
// error field of the returned struct discarded on this path.
func (bg *bodyGen) genCall(s *ast.Scope, n *ast.CallExpr) llvm.Value {
	if n.Callee == "print" {
		return bg.genPrint(s, n)
	}
	fn, ok := bg.g.funcs.get(n.Callee)
	if !ok {
		panic(fmt.Sprintf("llvmgen: call to unknown function %q", n.Callee))
	}
	ft, ok := bg.g.funcTypes.get(n.Callee)
	if !ok {
		panic(fmt.Sprintf("llvmgen: call to unknown function %q", n.Callee))
	}
	def := bg.g.defs[n.Callee]
	args := make([]llvm.Value, len(n.Args))
	for i1, e1 := range n.Args {
		args[i1] = bg.genExpr(s, e1)
	}
	res := bg.b.CreateCall(ft, fn, args, "")
	if def != nil && len(def.Returns) == 1 {
		return bg.b.CreateExtractValue(res, 1, "val")
	}
	return res
}

// genPrint lowers print by argument type, mirroring the primary path's per-type printf dispatch.
func (bg *bodyGen) genPrint(s *ast.Scope, n *ast.CallExpr) llvm.Value {
	v := bg.genExpr(s, n.Args[0])
	var format string
	args := []llvm.Value{v}
	switch v.Type().TypeKind() {
	case llvm.DoubleTypeKind:
		format = "%f"
	case llvm.FloatTypeKind:
		format = "%f"
		args[0] = bg.b.CreateFPExt(v, bg.g.ctx.DoubleType(), "wide")
	case llvm.PointerTypeKind:
		format = "%s"
	default:
		format = "%d"
		if v.Type().IntTypeWidth() < 32 {
			args[0] = bg.b.CreateSExt(v, bg.g.ctx.Int32Type(), "wide")
		} else if v.Type().IntTypeWidth() == 64 {
			format = "%lld"
		}
	}
	fmtPtr := bg.b.CreateGlobalStringPtr(format, "fmt")
	return bg.b.CreateCall(bg.g.printfT, bg.g.printf, append([]llvm.Value{fmtPtr}, args...), "")
}
