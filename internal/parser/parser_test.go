package parser

import (
	"testing"

	"flintc/internal/ast"
	"flintc/internal/lexer"
	"flintc/internal/types"
)

func parseSource(t *testing.T, src string) *ast.FileNode {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatal(err)
	}
	file, errs := Parse("test.fl", toks)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return file
}

func TestParseAddFunction(t *testing.T) {
	file := parseSource(t, "def add(i32 a, i32 b) -> i32:\n    return a + b;\n")
	if len(file.Definitions) != 1 {
		t.Fatalf("got %d definitions, want 1", len(file.Definitions))
	}
	def, ok := file.Definitions[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("definition is %T, want FunctionDef", file.Definitions[0])
	}
	if def.Name != "add" || len(def.Params) != 2 || len(def.Returns) != 1 {
		t.Fatalf("unexpected header: %+v", def)
	}
	if !types.Equal(def.Returns[0], types.I32) {
		t.Fatalf("return type = %s", def.Returns[0])
	}
	ret, ok := def.Body.Statements[0].(*ast.ReturnStmt)
	if !ok {
		t.Fatalf("body statement is %T, want ReturnStmt", def.Body.Statements[0])
	}
	bin, ok := ret.Values[0].(*ast.BinaryExpr)
	if !ok || bin.Op != "+" {
		t.Fatalf("return value is %T (%+v)", ret.Values[0], ret.Values[0])
	}
}

func TestParseControlFlow(t *testing.T) {
	src := `def main():
    i32 n = 10;
    while n > 0:
        n = n - 1;
    if n == 0:
        print("done");
    else:
        print("odd");
    for i32 i = 0; i < 3; i++:
        print(i);
    return;
`
	file := parseSource(t, src)
	def := file.Definitions[0].(*ast.FunctionDef)
	if len(def.Body.Statements) != 5 {
		t.Fatalf("got %d statements, want 5: %#v", len(def.Body.Statements), def.Body.Statements)
	}
	if _, ok := def.Body.Statements[1].(*ast.WhileStmt); !ok {
		t.Fatalf("statement 1 is %T, want WhileStmt", def.Body.Statements[1])
	}
	ifStmt, ok := def.Body.Statements[2].(*ast.IfStmt)
	if !ok {
		t.Fatalf("statement 2 is %T, want IfStmt", def.Body.Statements[2])
	}
	if len(ifStmt.Arms) != 2 || ifStmt.Arms[1].Cond != nil {
		t.Fatalf("if chain arms: %+v", ifStmt.Arms)
	}
	forStmt, ok := def.Body.Statements[3].(*ast.ForStmt)
	if !ok {
		t.Fatalf("statement 3 is %T, want ForStmt", def.Body.Statements[3])
	}
	if forStmt.Init == nil || forStmt.Cond == nil || forStmt.Post == nil {
		t.Fatal("for loop is missing a clause")
	}
}

func TestParseEnhancedAndParallelFor(t *testing.T) {
	src := `def walk(str xs):
    for i, x in xs:
        print(x);
    parallel for _, y in xs:
        print(y);
`
	file := parseSource(t, src)
	def := file.Definitions[0].(*ast.FunctionDef)
	ef, ok := def.Body.Statements[0].(*ast.EnhancedForStmt)
	if !ok {
		t.Fatalf("statement 0 is %T, want EnhancedForStmt", def.Body.Statements[0])
	}
	if ef.IndexVar != "i" || ef.ElemVar != "x" {
		t.Fatalf("loop vars: %q %q", ef.IndexVar, ef.ElemVar)
	}
	pf, ok := def.Body.Statements[1].(*ast.ParallelForStmt)
	if !ok {
		t.Fatalf("statement 1 is %T, want ParallelForStmt", def.Body.Statements[1])
	}
	if pf.IndexVar != "_" || pf.ElemVar != "y" {
		t.Fatalf("parallel loop vars: %q %q", pf.IndexVar, pf.ElemVar)
	}
}

func TestParseCatchAndThrow(t *testing.T) {
	src := `def risky() -> i32:
    throw ErrIO.NotFound;

def main():
    risky() catch err:
        print(err);
    return;
`
	file := parseSource(t, src)
	risky := file.Definitions[0].(*ast.FunctionDef)
	throw, ok := risky.Body.Statements[0].(*ast.ThrowStmt)
	if !ok || throw.ErrorSet != "ErrIO" || throw.Member != "NotFound" {
		t.Fatalf("throw parse: %+v", risky.Body.Statements[0])
	}
	mainDef := file.Definitions[1].(*ast.FunctionDef)
	catch, ok := mainDef.Body.Statements[0].(*ast.CatchStmt)
	if !ok {
		t.Fatalf("statement is %T, want CatchStmt", mainDef.Body.Statements[0])
	}
	if catch.ErrorVar != "err" || catch.Call.Call.Callee != "risky" {
		t.Fatalf("catch parse: %+v", catch)
	}
}

func TestParseDataAndInitializer(t *testing.T) {
	src := `data Point:
    i32 x;
    i32 y;

def main():
    p := Point{1, 2};
    p.x = 3;
    return;
`
	file := parseSource(t, src)
	data, ok := file.Definitions[0].(*ast.DataDef)
	if !ok || data.Name != "Point" || len(data.Fields) != 2 {
		t.Fatalf("data parse: %+v", file.Definitions[0])
	}
	mainDef := file.Definitions[1].(*ast.FunctionDef)
	decl := mainDef.Body.Statements[0].(*ast.DeclStmt)
	if _, ok := decl.Init.(*ast.InitializerExpr); !ok {
		t.Fatalf("initializer parse: %T", decl.Init)
	}
	if decl.Type.Variation != types.Data {
		t.Fatalf("inferred type: %s", decl.Type)
	}
	assign := mainDef.Body.Statements[1].(*ast.AssignStmt)
	if _, ok := assign.Target.(*ast.DataAccessExpr); !ok {
		t.Fatalf("field assignment target: %T", assign.Target)
	}
}

func TestParseTestDefinitions(t *testing.T) {
	src := `test "works":
    assert(true);

#test_should_fail
test "breaks":
    throw ErrAssert.Failed;
`
	file := parseSource(t, src)
	if len(file.Definitions) != 2 {
		t.Fatalf("got %d definitions, want 2", len(file.Definitions))
	}
	first := file.Definitions[0].(*ast.TestDef)
	second := file.Definitions[1].(*ast.TestDef)
	if first.ShouldFail || !second.ShouldFail {
		t.Fatalf("should-fail flags: %v %v", first.ShouldFail, second.ShouldFail)
	}
	if first.Name != "works" || second.Name != "breaks" {
		t.Fatalf("test names: %q %q", first.Name, second.Name)
	}
}

func TestParseUse(t *testing.T) {
	file := parseSource(t, "use \"lib.fl\";\nuse flint.math;\n\ndef main():\n    return;\n")
	u1 := file.Definitions[0].(*ast.UseDef)
	u2 := file.Definitions[1].(*ast.UseDef)
	if u1.Path != "lib.fl" {
		t.Fatalf("use path = %q", u1.Path)
	}
	if len(u2.Dotted) != 2 || u2.Dotted[0] != "flint" {
		t.Fatalf("dotted use = %v", u2.Dotted)
	}
}

func TestParseErrorRecovery(t *testing.T) {
	toks, err := lexer.Lex("def broken(:\n    return;\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, errs := Parse("bad.fl", toks); len(errs) == 0 {
		t.Fatal("malformed definition should report errors")
	}
}

func TestCallIDsMonotonicPerFunction(t *testing.T) {
	src := `def f() -> i32:
    return 1;

def main():
    a := f();
    b := f();
    c := f();
    return;
`
	file := parseSource(t, src)
	mainDef := file.Definitions[1].(*ast.FunctionDef)
	want := 1
	for _, stmt := range mainDef.Body.Statements {
		decl, ok := stmt.(*ast.DeclStmt)
		if !ok {
			continue
		}
		call := decl.Init.(*ast.CallExpr)
		if call.CallID != want {
			t.Fatalf("call id = %d, want %d", call.CallID, want)
		}
		want++
	}
}
