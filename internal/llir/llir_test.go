package llir

import (
	"strings"
	"testing"

	"flintc/internal/llir/types"
)

func TestFunctionPrintsAllocasAndStores(t *testing.T) {
	m := CreateModule("test")
	ret := m.DefineStruct("ret.i32", types.I32, types.I32)
	f := m.CreateFunction("add", ret)
	f.CreateParam("a", types.I32)
	f.CreateParam("b", types.I32)
	entry := f.CreateBlock("entry")
	slot := entry.CreateAlloca("a.addr", types.I32)
	entry.CreateStore(f.Params()[0], slot)
	v := entry.CreateLoad(slot)
	sum := entry.CreateBinOp(Add, v, f.Params()[1])
	rs := entry.CreateAlloca("ret", ret)
	errField := entry.CreateGEP(rs, 0)
	entry.CreateStore(entry.CreateConstIntV(types.I32, 0), errField)
	valField := entry.CreateGEP(rs, 1)
	entry.CreateStore(sum, valField)
	entry.CreateRet(entry.CreateLoad(rs))

	out := m.String()
	for _, want := range []string{
		"%ret.i32 = type { i32, i32 }",
		"define %ret.i32 @add(i32 %a, i32 %b)",
		"alloca i32",
		"alloca %ret.i32",
		"= add i32",
		"ret %ret.i32",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("module listing missing %q:\n%s", want, out)
		}
	}
}

func TestCallRetargeting(t *testing.T) {
	m := CreateModule("test")
	placeholder := m.DeclareFunction("helper.1", types.I32, nil, false)
	real := m.CreateFunction("helper", types.I32)
	f := m.CreateFunction("caller", types.I32)
	b := f.CreateBlock("entry")
	call := b.CreateCall(placeholder)
	b.CreateRet(call)

	call.SetTarget(real)
	if call.Target() != real {
		t.Fatal("SetTarget did not retarget the call site")
	}
	if !strings.Contains(call.String(), "@helper(") {
		t.Fatalf("retargeted call still references placeholder: %s", call.String())
	}
}

func TestResolveIRComments(t *testing.T) {
	m := CreateModule("test")
	f := m.CreateFunction("main", types.I32)
	b := f.CreateBlock("entry")
	slot := b.CreateAlloca("x", types.I32)
	slot.SetComment(m.AddComment("declaration of x"))
	b.CreateRet(b.CreateConstIntV(types.I32, 0))

	raw := m.String()
	if !strings.Contains(raw, "!c0") {
		t.Fatalf("raw listing missing metadata reference:\n%s", raw)
	}
	resolved := m.ResolveIRComments(raw)
	if strings.Contains(resolved, "!c0") {
		t.Fatalf("resolved listing still has metadata reference:\n%s", resolved)
	}
	if !strings.Contains(resolved, "; declaration of x") {
		t.Fatalf("resolved listing missing comment text:\n%s", resolved)
	}
}

func TestTerminatedBlockRejectsInstructions(t *testing.T) {
	m := CreateModule("test")
	f := m.CreateFunction("main", types.I32)
	b := f.CreateBlock("entry")
	b.CreateRet(b.CreateConstIntV(types.I32, 0))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when emitting into a terminated block")
		}
	}()
	b.CreateAlloca("x", types.I32)
}

func TestStringInterning(t *testing.T) {
	m := CreateModule("test")
	a := m.CreateString("hello")
	b := m.CreateString("hello")
	if a != b {
		t.Fatal("identical string literals should intern to one global")
	}
	if a.Len() != 5 {
		t.Fatalf("Len = %d, want 5", a.Len())
	}
}
