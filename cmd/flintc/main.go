// flintc is the compiler driver: it reads a source file, lexes and parses it (and every file it uses),
// lowers the dependency graph to the program LLIR module on a persistent worker pool, and writes the
// output artifacts the external back-end consumes.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"flintc/internal/ast"
	"flintc/internal/cliopts"
	"flintc/internal/diag"
	"flintc/internal/lexer"
	"flintc/internal/llvmgen"
	"flintc/internal/lower"
	"flintc/internal/parser"
	"flintc/internal/pool"
)

func main() {
	opt, err := cliopts.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "flintc: %s\n", err)
		os.Exit(1)
	}
	if err := run(opt); err != nil {
		fmt.Fprintf(os.Stderr, "flintc: %s\n", err)
		os.Exit(1)
	}
}

// run executes the compiler stages. Behaviour is defined by the Options structure. Internal compiler
// inconsistencies surface as panics in the stages below; the recover boundary here turns them into a
// compiler-bug diagnostic instead of a bare stack trace.
func run(opt cliopts.Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = diag.Internalf("%v (this is a compiler bug, please report it)", r)
		}
	}()

	root, files, err := loadProgram(opt)
	if err != nil {
		return err
	}
	if opt.Verbose {
		fmt.Printf("parsed %d file(s)\n", len(files))
	}

	workers := pool.New(opt.Threads)
	defer workers.Close()

	if opt.EmitLLVM {
		ir, err := llvmgen.GenLLVM(opt, files, workers)
		if err != nil {
			return err
		}
		out := opt.Out + ".ll"
		if err := os.WriteFile(out, []byte(ir), 0o644); err != nil {
			return err
		}
		if opt.Verbose {
			fmt.Printf("wrote %s\n", out)
		}
		return nil
	}

	program, _, err := lower.GenerateProgramIR(filepath.Base(opt.Out), root, opt.Test, workers, false)
	if err != nil {
		return err
	}

	listing := program.String()
	out := opt.Out + ".lir"
	if err := os.WriteFile(out, []byte(listing), 0o644); err != nil {
		return err
	}
	if opt.Verbose {
		fmt.Printf("wrote %s\n", out)
	}

	if opt.EmitIR {
		annotated := program.ResolveIRComments(listing)
		irOut := opt.Out + ".ir"
		if err := os.WriteFile(irOut, []byte(annotated), 0o644); err != nil {
			return err
		}
		if opt.Verbose {
			fmt.Printf("wrote %s\n", irOut)
		}
	}
	return nil
}

// loadProgram lexes and parses the main source file and, transitively, every file it uses, building the
// dependency graph generation walks leaves-first. Parse errors from all files are reported together.
func loadProgram(opt cliopts.Options) (*ast.DepNode, []*ast.FileNode, error) {
	collector := diag.NewCollector(16)
	defer collector.Stop()

	nodes := map[string]*ast.DepNode{}
	var files []*ast.FileNode

	var load func(path string) *ast.DepNode
	load = func(path string) *ast.DepNode {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if node, ok := nodes[abs]; ok {
			return node
		}

		src, err := os.ReadFile(path)
		if err != nil {
			collector.Append(diag.Userf(path, 0, 0, "cannot read source: %s", err))
			return nil
		}
		tokens, err := lexer.Lex(string(src))
		if err != nil {
			collector.Append(diag.Userf(path, 0, 0, "%s", err))
			return nil
		}
		file, errs := parser.Parse(abs, tokens)
		for _, e1 := range errs {
			collector.Append(e1)
		}
		if file == nil {
			return nil
		}

		node := &ast.DepNode{File: file}
		nodes[abs] = node
		files = append(files, file)
		for _, def := range file.Definitions {
			use, ok := def.(*ast.UseDef)
			if !ok {
				continue
			}
			target, ok := resolveUse(opt, path, use)
			if !ok {
				continue
			}
			if target == "" {
				collector.Append(diag.Userf(path, use.Line, 0, "cannot resolve use of %q", useName(use)))
				continue
			}
			if dep := load(target); dep != nil {
				node.Depends = append(node.Depends, dep)
			}
		}
		return node
	}

	root := load(opt.Src)
	if collector.Len() > 0 {
		for _, e1 := range collector.Errors() {
			fmt.Fprintln(os.Stderr, e1)
		}
		return nil, nil, fmt.Errorf("%d error(s)", collector.Len())
	}
	return root, files, nil
}

// useName renders a use target for diagnostics.
func useName(use *ast.UseDef) string {
	if use.Path != "" {
		return use.Path
	}
	name := ""
	for i1, e1 := range use.Dotted {
		if i1 > 0 {
			name += "."
		}
		name += e1
	}
	return name
}

// resolveUse locates the file a use statement imports, searching the source's directory and every
// FLINTPATH entry. Modules under the reserved `flint` namespace are compiler-provided and import no file;
// they report false, and the caller skips them. An unresolvable import returns true with an empty target,
// which the caller reports as an error.
func resolveUse(opt cliopts.Options, from string, use *ast.UseDef) (string, bool) {
	if len(use.Dotted) > 0 && use.Dotted[0] == "flint" {
		return "", false
	}
	rel := use.Path
	if rel == "" {
		rel = filepath.Join(use.Dotted...) + ".fl"
	}
	for _, dir := range cliopts.SearchPath(from) {
		candidate := filepath.Join(dir, rel)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", true
}
