package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flintc/internal/cliopts"
)

// writeSource drops a source file into dir and returns its path.
func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompileSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "prog.fl", `def add(i32 a, i32 b) -> i32:
    return a + b;

def main():
    x := add(1, 2);
    print(x);
    return;
`)
	opt := cliopts.Options{Src: src, Out: filepath.Join(dir, "prog"), Threads: 2}
	if err := run(opt); err != nil {
		t.Fatal(err)
	}
	out, err := os.ReadFile(filepath.Join(dir, "prog.lir"))
	if err != nil {
		t.Fatal(err)
	}
	listing := string(out)
	for _, want := range []string{"define i32 @main()", "i32_safe_add", "print_i32"} {
		if !strings.Contains(listing, want) {
			t.Fatalf("listing missing %q:\n%s", want, listing)
		}
	}
}

func TestCompileWithUseImport(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "lib.fl", `def helper() -> i32:
    return 7;
`)
	src := writeSource(t, dir, "prog.fl", `use "lib.fl";

def main():
    x := helper();
    print(x);
    return;
`)
	opt := cliopts.Options{Src: src, Out: filepath.Join(dir, "prog"), Threads: 1}
	if err := run(opt); err != nil {
		t.Fatal(err)
	}
	out, err := os.ReadFile(filepath.Join(dir, "prog.lir"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "helper.f") {
		t.Fatalf("cross-file call did not resolve to the helper definition:\n%s", out)
	}
}

func TestEmitIRResolvesComments(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "prog.fl", `def main():
    i32 x = 1;
    print(x);
    return;
`)
	opt := cliopts.Options{Src: src, Out: filepath.Join(dir, "prog"), EmitIR: true, Threads: 1}
	if err := run(opt); err != nil {
		t.Fatal(err)
	}
	annotated, err := os.ReadFile(filepath.Join(dir, "prog.ir"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(annotated), "!c") {
		t.Fatalf("annotated listing still carries raw metadata references:\n%s", annotated)
	}
	if !strings.Contains(string(annotated), "; line ") {
		t.Fatalf("annotated listing carries no resolved comments:\n%s", annotated)
	}
}

func TestCompileReportsUserErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "bad.fl", "def broken(:\n    return;\n")
	opt := cliopts.Options{Src: src, Out: filepath.Join(dir, "bad"), Threads: 1}
	if err := run(opt); err == nil {
		t.Fatal("malformed source should fail the compilation")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.lir")); err == nil {
		t.Fatal("failed compilation must not leave an artifact")
	}
}

func TestTestModeBuildsRunner(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "prog_test.fl", `def main():
    return;

test "works":
    assert(true);
`)
	opt := cliopts.Options{Src: src, Out: filepath.Join(dir, "prog_test"), Test: true, Threads: 1}
	if err := run(opt); err != nil {
		t.Fatal(err)
	}
	out, err := os.ReadFile(filepath.Join(dir, "prog_test.lir"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "PASS works") {
		t.Fatalf("test runner missing the status line literal:\n%s", out)
	}
}
