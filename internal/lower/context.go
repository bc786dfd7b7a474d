// Package lower translates the fully-resolved abstract syntax graph into LLIR: one module per source file,
// accumulated into a single program module, with forward declarations, a per-function stack pre-allocation
// pass, statement and expression lowering, compiler-library emission on demand, and the two-stage
// unresolved-call fix-up across files.
package lower

import (
	"fmt"
	"strings"
	"sync"

	"flintc/internal/ast"
	"flintc/internal/builtins"
	"flintc/internal/llir"
	lt "flintc/internal/llir/types"
	"flintc/internal/pool"
	"flintc/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// ProgramContext owns every table generation shares across files. The original held these as process-wide
// globals that were never cleared; here the driver constructs one ProgramContext per compilation and passes
// it explicitly through every phase.
type ProgramContext struct {
	Program *llir.Module
	Reg     *builtins.Registry

	// Debug enables the single-executor assertions on the shared tables.
	Debug bool

	// typeMu serialises the type memo; file tasks read and extend it concurrently.
	typeMu  sync.Mutex
	typeMap map[string]*lt.Type

	// builtinsMu serialises compiler-library emission, which mutates the shared program module from
	// parallel file tasks.
	builtinsMu sync.Mutex

	// Shared cross-file tables. The serial phases write them under the single-executor guard, except
	// fileUnresolved, which parallel file tasks append to under builtinsMu.
	guard    pool.SingleExecutorGuard
	guardTok *pool.Token

	// fileUnresolved records, per target file hash and (name, lowered signature) key, every call site
	// emitted against a function that lives in another file.
	fileUnresolved map[uint32]map[string][]*llir.CallInst
	// fileFunctionMangleIDs records the per-file mangle id assigned to every forward-declared function.
	fileFunctionMangleIDs map[uint32]map[string]int
	// fileFunctionNames records each file's function names, in declaration order.
	fileFunctionNames map[uint32][]string
	// functionFile maps a function name to the hash of the file defining it.
	functionFile map[string]uint32
	// functionDefs maps file hash and function name to the definition, for signature derivation.
	functionDefs map[uint32]map[string]*ast.FunctionDef

	// errorSets maps set name to its ErrorSet type, the builtin sets pre-registered.
	errorSets map[string]*types.Type
	// dataNodes maps data type names to their definitions.
	dataNodes map[string]*types.DataNode

	// isTest switches generation into test mode: the user entry point is replaced by the test runner.
	isTest bool
	// testsMu guards the tests registry, appended to by parallel file tasks.
	testsMu sync.Mutex
	// tests is the registry of emitted test functions the runner iterates.
	tests []testEntry
}

// testEntry is one row of the tests registry.
type testEntry struct {
	name       string
	shouldFail bool
	fn         *llir.Function
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewProgramContext constructs the shared generation state for one program module.
func NewProgramContext(programName string, debug bool) *ProgramContext {
	m := llir.CreateModule(programName)
	ctx := &ProgramContext{
		Program:               m,
		Reg:                   builtins.NewRegistry(m),
		Debug:                 debug,
		typeMap:               make(map[string]*lt.Type, 32),
		guardTok:              pool.NewToken(),
		fileUnresolved:        make(map[uint32]map[string][]*llir.CallInst, 8),
		fileFunctionMangleIDs: make(map[uint32]map[string]int, 8),
		fileFunctionNames:     make(map[uint32][]string, 8),
		functionFile:          make(map[string]uint32, 32),
		functionDefs:          make(map[uint32]map[string]*ast.FunctionDef, 8),
		errorSets:             make(map[string]*types.Type, 8),
		dataNodes:             make(map[string]*types.DataNode, 8),
	}
	for set, members := range builtins.BuiltinErrorSets {
		ctx.errorSets[set] = types.NewErrorSetType(set, nil, members)
	}
	return ctx
}

// RegisterErrorSet records a user-defined error set for catch-site dispatch and the test runner's
// error-name table.
func (ctx *ProgramContext) RegisterErrorSet(t *types.Type) {
	defer ctx.guard.Enter(ctx.Debug, ctx.guardTok)()
	ctx.errorSets[t.SetName] = t
}

// RegisterDataNode records a data definition so that Data types can be lowered by name.
func (ctx *ProgramContext) RegisterDataNode(n *types.DataNode) {
	defer ctx.guard.Enter(ctx.Debug, ctx.guardTok)()
	ctx.dataNodes[n.Name] = n
}

// ErrorID resolves the 32-bit error code of set.member, for throw statements and catch comparisons.
func (ctx *ProgramContext) ErrorID(set, member string) int32 {
	return builtins.ErrorID(set, member)
}

// GetFunctionDefinition distinguishes three outcomes the way the call lowering needs them told apart: a
// user-defined function returns (def, true); a compiler builtin returns (nil, true); an unknown name
// returns (nil, false).
func (ctx *ProgramContext) GetFunctionDefinition(name string) (*ast.FunctionDef, bool) {
	if fileHash, ok := ctx.functionFile[name]; ok {
		return ctx.functionDefs[fileHash][name], true
	}
	if isBuiltinCall(name) {
		return nil, true
	}
	return nil, false
}

// FileOfFunction returns the hash of the file defining name.
func (ctx *ProgramContext) FileOfFunction(name string) (uint32, bool) {
	h, ok := ctx.functionFile[name]
	return h, ok
}

// sigKey builds the (name, lowered signature) key the unresolved-call tables use, resolving the original's
// noted collision between same-named functions in different files.
func sigKey(def *ast.FunctionDef) string {
	key := def.Name + "/"
	for i1, e1 := range def.Params {
		key += e1.Type.String()
		if i1 < len(def.Params)-1 {
			key += ","
		}
	}
	key += "->"
	for i1, e1 := range def.Returns {
		key += e1.String()
		if i1 < len(def.Returns)-1 {
			key += ","
		}
	}
	return key
}

// mangledName constructs the program-unique symbol name of a function from its source name, its file's
// hash, and its per-file mangle id. The user entry point keeps its bare name.
func mangledName(name string, fileHash uint32, mangleID int) string {
	if name == "main" {
		return "main"
	}
	return fmt.Sprintf("%s.f%08x.%d", name, fileHash, mangleID)
}

// recordForwardDeclaration registers one function's mangle id and name during the serial
// forward-declaration sweep.
func (ctx *ProgramContext) recordForwardDeclaration(fileHash uint32, def *ast.FunctionDef, mangleID int) {
	defer ctx.guard.Enter(ctx.Debug, ctx.guardTok)()
	if _, ok := ctx.fileFunctionMangleIDs[fileHash]; !ok {
		ctx.fileFunctionMangleIDs[fileHash] = make(map[string]int, 8)
	}
	ctx.fileFunctionMangleIDs[fileHash][sigKey(def)] = mangleID
	ctx.fileFunctionNames[fileHash] = append(ctx.fileFunctionNames[fileHash], def.Name)
	ctx.functionFile[def.Name] = fileHash
	if _, ok := ctx.functionDefs[fileHash]; !ok {
		ctx.functionDefs[fileHash] = make(map[string]*ast.FunctionDef, 8)
	}
	ctx.functionDefs[fileHash][def.Name] = def
}

// recordUnresolvedCall defers a cross-file call site for the program-level fix-up.
func (ctx *ProgramContext) recordUnresolvedCall(targetFile uint32, key string, call *llir.CallInst) {
	ctx.builtinsMu.Lock()
	defer ctx.builtinsMu.Unlock()
	if _, ok := ctx.fileUnresolved[targetFile]; !ok {
		ctx.fileUnresolved[targetFile] = make(map[string][]*llir.CallInst, 8)
	}
	ctx.fileUnresolved[targetFile][key] = append(ctx.fileUnresolved[targetFile][key], call)
}

// UnresolvedCalls exposes the pending cross-file call sites for a target file, for tests and the
// program-level resolution phase.
func (ctx *ProgramContext) UnresolvedCalls(targetFile uint32) map[string][]*llir.CallInst {
	return ctx.fileUnresolved[targetFile]
}

// ResolveProgram rewrites every deferred cross-file call to reference the definition now present in the
// program module, then clears the table. Every entry must resolve; a leftover means the dependency graph
// let an undefined reference through, which is an internal error.
func (ctx *ProgramContext) ResolveProgram() error {
	defer ctx.guard.Enter(ctx.Debug, ctx.guardTok)()
	for fileHash, byKey := range ctx.fileUnresolved {
		for key, calls := range byKey {
			mangleID, ok := ctx.fileFunctionMangleIDs[fileHash][key]
			if !ok {
				return fmt.Errorf("unresolved cross-file call %q into file %08x has no forward declaration",
					key, fileHash)
			}
			name := key[:strings.IndexByte(key, '/')]
			target := ctx.Program.GetFunction(mangledName(name, fileHash, mangleID))
			if target == nil || target.IsDecl() {
				return fmt.Errorf("cross-file call %q resolved to a missing or body-less function", key)
			}
			for _, e1 := range calls {
				placeholder := e1.Target()
				e1.SetTarget(target)
				ctx.Program.RemoveFunction(placeholder.BareName())
			}
			delete(byKey, key)
		}
		if len(byKey) == 0 {
			delete(ctx.fileUnresolved, fileHash)
		}
	}
	return nil
}
