package lower

import (
	"strconv"
	"strings"
	"testing"

	"flintc/internal/apnum"
	"flintc/internal/ast"
	"flintc/internal/llir"
	"flintc/internal/pool"
	"flintc/internal/types"
)

// buildAddFile constructs the AST of `def add(i32 a, i32 b) -> i32: return a + b` in a file of its own.
func buildAddFile(path string) *ast.FileNode {
	body := ast.NewScope(1, nil)
	body.Statements = []ast.Statement{
		&ast.ReturnStmt{
			Values: []ast.Expression{
				&ast.BinaryExpr{
					Op:    "+",
					Left:  &ast.VariableExpr{Name: "a"},
					Right: &ast.VariableExpr{Name: "b"},
				},
			},
			Line: 1,
		},
	}
	def := &ast.FunctionDef{
		Name:    "add",
		Params:  []ast.Param{{Name: "a", Type: types.I32}, {Name: "b", Type: types.I32}},
		Returns: []*types.Type{types.I32},
		Body:    body,
		Line:    1,
	}
	return &ast.FileNode{Path: path, PathHash: types.HashName(path), Definitions: []ast.Definition{def}}
}

func TestAddFunctionShape(t *testing.T) {
	p := pool.New(2)
	defer p.Close()

	file := buildAddFile("add.fl")
	root := &ast.DepNode{File: file}
	prog, _, err := GenerateProgramIR("prog", root, false, p, true)
	if err != nil {
		t.Fatal(err)
	}

	var addFn *llir.Function
	for _, f := range prog.Functions() {
		if strings.HasPrefix(f.BareName(), "add.") && !f.IsDecl() {
			addFn = f
		}
	}
	if addFn == nil {
		t.Fatalf("program module has no definition of add:\n%s", prog.String())
	}

	// Exactly three entry-block allocations: one per parameter slot and one for the return struct.
	allocas := 0
	for _, in := range addFn.EntryBlock().Instructions() {
		if _, ok := in.(*llir.AllocaInst); ok {
			allocas++
		}
	}
	if allocas != 3 {
		t.Fatalf("add entry block has %d allocations, want 3:\n%s", allocas, addFn.String())
	}

	out := addFn.String()
	if !strings.Contains(out, "i32_safe_add") {
		t.Fatalf("add body missing the overflow-checked add call:\n%s", out)
	}
	if strings.Count(out, "i32_safe_add") != 1 {
		t.Fatalf("add body should call the safe add exactly once:\n%s", out)
	}
}

func TestCrossFileCallResolution(t *testing.T) {
	// File B defines helper; file A's main calls it.
	helperBody := ast.NewScope(1, nil)
	helperBody.Statements = []ast.Statement{
		&ast.ReturnStmt{Values: []ast.Expression{
			&ast.LiteralExpr{Type: types.I32, Int: apnum.NewInt(7), Line: 1},
		}, Line: 1},
	}
	helper := &ast.FunctionDef{
		Name:    "helper",
		Returns: []*types.Type{types.I32},
		Body:    helperBody,
		Line:    1,
	}
	fileB := &ast.FileNode{Path: "b.fl", PathHash: types.HashName("b.fl"), Definitions: []ast.Definition{helper}}

	mainBody := ast.NewScope(1, nil)
	mainBody.Symbols["x"] = types.I32
	mainBody.Statements = []ast.Statement{
		&ast.DeclStmt{
			Name: "x", Type: types.I32,
			Init: &ast.CallExpr{Callee: "helper", ScopeID: 1, CallID: 1, Line: 2},
			Line: 2,
		},
		&ast.ReturnStmt{Line: 3},
	}
	mainDef := &ast.FunctionDef{Name: "main", Body: mainBody, Line: 1}
	fileA := &ast.FileNode{Path: "a.fl", PathHash: types.HashName("a.fl"), Definitions: []ast.Definition{mainDef}}

	nodeB := &ast.DepNode{File: fileB}
	nodeA := &ast.DepNode{File: fileA, Depends: []*ast.DepNode{nodeB}}

	// Drive the phases by hand so the deferred-call table is observable between them.
	ctx := NewProgramContext("prog", true)
	files, err := ast.Order(nodeA)
	if err != nil {
		t.Fatal(err)
	}
	if files[0] != fileB {
		t.Fatal("generation order must be leaves-first")
	}
	fgs := make([]*fileGen, len(files))
	for i, f := range files {
		fgs[i] = newFileGen(ctx, f)
		fgs[i].forwardDeclarations()
	}
	for _, fg := range fgs {
		fg.lowerBodies()
	}
	for _, fg := range fgs {
		if err := fg.resolveIntraFile(); err != nil {
			t.Fatal(err)
		}
	}

	pending := ctx.UnresolvedCalls(fileB.PathHash)
	if len(pending) != 1 {
		t.Fatalf("expected exactly one unresolved callee into file B, got %d", len(pending))
	}
	var call *llir.CallInst
	for _, calls := range pending {
		if len(calls) != 1 {
			t.Fatalf("expected exactly one deferred call site, got %d", len(calls))
		}
		call = calls[0]
	}
	if !call.Target().IsDecl() {
		t.Fatal("deferred call should still target a placeholder declaration")
	}

	for _, fg := range fgs {
		ctx.Program.Absorb(fg.m)
	}
	if err := ctx.ResolveProgram(); err != nil {
		t.Fatal(err)
	}
	if len(ctx.UnresolvedCalls(fileB.PathHash)) != 0 {
		t.Fatal("program-level fix-up should clear the unresolved table")
	}
	if call.Target().IsDecl() {
		t.Fatal("call site still targets a declaration after fix-up")
	}
	if !strings.HasPrefix(call.Target().BareName(), "helper.") {
		t.Fatalf("call resolved to %q, want the helper definition", call.Target().BareName())
	}
}

func TestVoidReturnStructIsSingleErrorField(t *testing.T) {
	ctx := NewProgramContext("prog", false)
	rs := ctx.ReturnStruct(ctx.Program, nil)
	if len(rs.Fields()) != 1 {
		t.Fatalf("void return struct has %d fields, want 1", len(rs.Fields()))
	}
	voidRet := ctx.ReturnStruct(ctx.Program, []*types.Type{types.Void})
	if len(voidRet.Fields()) != 1 {
		t.Fatalf("explicit void return struct has %d fields, want 1", len(voidRet.Fields()))
	}
}

func TestThrowStoresErrorCodeAndBranchesToExit(t *testing.T) {
	p := pool.New(1)
	defer p.Close()

	body := ast.NewScope(1, nil)
	body.Statements = []ast.Statement{
		&ast.ThrowStmt{ErrorSet: "ErrIO", Member: "NotFound", Line: 1},
	}
	def := &ast.FunctionDef{Name: "boom", Body: body, Line: 1}
	file := &ast.FileNode{Path: "t.fl", PathHash: types.HashName("t.fl"), Definitions: []ast.Definition{def}}
	prog, ctx, err := GenerateProgramIR("prog", &ast.DepNode{File: file}, false, p, true)
	if err != nil {
		t.Fatal(err)
	}
	id := ctx.ErrorID("ErrIO", "NotFound")
	found := false
	for _, f := range prog.Functions() {
		if strings.HasPrefix(f.BareName(), "boom.") && strings.Contains(f.String(), "i32 "+strconv.FormatInt(int64(id), 10)) {
			found = true
		}
	}
	if !found {
		t.Fatalf("throw should store the ErrIO.NotFound id %d into the return struct:\n%s", id, prog.String())
	}
}

func TestRunnerReplacesMainAndReportsPerTest(t *testing.T) {
	p := pool.New(1)
	defer p.Close()

	okBody := ast.NewScope(1, nil)
	okBody.Statements = []ast.Statement{}
	badBody := ast.NewScope(2, nil)
	badBody.Statements = []ast.Statement{
		&ast.ThrowStmt{ErrorSet: "ErrAssert", Member: "Failed", Line: 2},
	}
	mainBody := ast.NewScope(3, nil)
	file := &ast.FileNode{
		Path:     "tests.fl",
		PathHash: types.HashName("tests.fl"),
		Definitions: []ast.Definition{
			&ast.FunctionDef{Name: "main", Body: mainBody, Line: 1},
			&ast.TestDef{Name: "works", Body: okBody, Line: 2},
			&ast.TestDef{Name: "breaks", Body: badBody, Line: 3},
		},
	}
	prog, _, err := GenerateProgramIR("prog", &ast.DepNode{File: file}, true, p, true)
	if err != nil {
		t.Fatal(err)
	}

	out := prog.String()
	for _, want := range []string{"PASS works", "FAIL breaks", "ErrAssert.Failed", "define i32 @main()"} {
		if !strings.Contains(out, want) {
			t.Fatalf("test-mode program missing %q:\n%s", want, out)
		}
	}
	// The user entry point must have been replaced, not duplicated.
	mains := 0
	for _, f := range prog.Functions() {
		if f.BareName() == "main" && !f.IsDecl() {
			mains++
		}
	}
	if mains != 1 {
		t.Fatalf("program has %d definitions of main, want exactly the runner", mains)
	}
}
