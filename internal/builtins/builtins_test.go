package builtins

import (
	"strings"
	"testing"

	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
)

func TestHelpersEmitOnce(t *testing.T) {
	m := llir.CreateModule("prog")
	r := NewRegistry(m)
	a := r.CreateStr()
	b := r.CreateStr()
	if a != b {
		t.Fatal("create_str emitted twice for one module")
	}
	if r.SafeAdd(lt.I32) != r.SafeAdd(lt.I32) {
		t.Fatal("i32_safe_add emitted twice for one module")
	}
}

func TestHelperNamesCarryModuleHashPrefix(t *testing.T) {
	m := llir.CreateModule("prog")
	r := NewRegistry(m)
	f := r.PrintBool()
	if !strings.HasPrefix(f.BareName(), "__flint_") {
		t.Fatalf("helper name %q lacks the reserved prefix", f.BareName())
	}
	other := NewRegistry(llir.CreateModule("other"))
	if strings.HasPrefix(other.PrintBool().BareName(), r.prefix) {
		t.Fatal("helper prefixes of differently named modules should differ")
	}
}

func TestSafeAddShapes(t *testing.T) {
	m := llir.CreateModule("prog")
	r := NewRegistry(m)
	signed := r.SafeAdd(lt.I32)
	if got := signed.Type().Fields()[0]; got != lt.I32 {
		t.Fatalf("first return struct field should be the i32 error code, got %s", got)
	}
	out := signed.String()
	if !strings.Contains(out, "overflow:") {
		t.Fatalf("signed safe add missing overflow branch:\n%s", out)
	}
	unsigned := r.SafeAdd(lt.U32)
	if !strings.Contains(unsigned.String(), "4294967295") {
		t.Fatalf("unsigned safe add should saturate at the type maximum:\n%s", unsigned.String())
	}
}

func TestIntToStrBakesMinimumLiteral(t *testing.T) {
	m := llir.CreateModule("prog")
	r := NewRegistry(m)
	r.IntToStr(lt.I32)
	if m.String() == "" {
		t.Fatal("module listing empty")
	}
	found := false
	for _, g := range m.Globals() {
		if g.Str() == "-2147483648" {
			found = true
		}
	}
	if !found {
		t.Fatal("i32_to_str should intern the minimum value literal")
	}
}

func TestErrorIDs(t *testing.T) {
	if ErrorID(ErrAssert, "Failed") != AssertFailedID {
		t.Fatal("ErrAssert.Failed must keep its fixed id")
	}
	if ErrorID(ErrIO, "NotFound") == ErrorID(ErrIO, "NotReadable") {
		t.Fatal("distinct members of one set must get distinct ids")
	}
	if ErrorID(ErrIO, "NotFound") == 0 {
		t.Fatal("error ids must be non-zero, zero means success")
	}
}

func TestReadFileRaisesNotFound(t *testing.T) {
	m := llir.CreateModule("prog")
	r := NewRegistry(m)
	f := r.ReadFile()
	out := f.String()
	if !strings.Contains(out, "notfound:") {
		t.Fatalf("read_file missing the NotFound branch:\n%s", out)
	}
	if !strings.Contains(out, "call u8* @fopen") {
		t.Fatalf("read_file should open through fopen:\n%s", out)
	}
}
