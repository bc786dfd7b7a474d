// Package ast defines the compiler's abstract syntax tree: definitions, statements and expressions, plus
// the surrounding Scope, FileNode and DepNode structures that semantic resolution populates and that LLIR
// lowering walks.
//
// The node hierarchy is closed, so each category is modelled as an interface with an unexported marker
// method (only this package can implement Definition, Statement or Expression) and lowering dispatches on
// a type switch, the same shape Go's own go/ast package uses for its Decl/Stmt/Expr interfaces.
//
// Scope -> Statement -> Scope is naturally cyclic (an if-statement's body is a Scope whose parent is the
// enclosing Scope). Rather than the weak-pointer/arena indirection the original implementation uses to
// break that cycle manually, every back-reference here is a plain pointer: Go's garbage collector traces
// cycles natively, so nothing leaks and nothing needs an arena.
package ast

import "flintc/internal/types"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Definition is any top-level or entity-body declaration: function, data, entity, error set, variant,
// enum, test or use.
type Definition interface {
	definitionNode()
}

// Statement is any statement that can appear in a Scope's body.
type Statement interface {
	statementNode()
}

// Expression is any value-producing syntax node.
type Expression interface {
	expressionNode()
}

// Scope owns an ordered sequence of statements and the symbol table (name -> type) visible within it.
// Parent is the lexically enclosing Scope, or nil for a function's top-level scope.
type Scope struct {
	Statements []Statement
	Symbols    map[string]*types.Type
	Parent     *Scope
	ID         int // unique within the enclosing function; used to key pre-allocated stack slots
}

// NewScope returns an empty Scope nested under parent (nil for a top-level function scope).
func NewScope(id int, parent *Scope) *Scope {
	return &Scope{Symbols: map[string]*types.Type{}, Parent: parent, ID: id}
}

// Lookup searches s and its ancestor scopes for name, returning its declared type.
func (s *Scope) Lookup(name string) (*types.Type, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if t, ok := cur.Symbols[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// FileNode owns every top-level definition parsed from one source file, plus an identifying hash of the
// file's absolute path used to key per-file maps during LLIR generation.
type FileNode struct {
	Path        string
	PathHash    uint32
	Definitions []Definition
}

// DepNode is one node in the per-file dependency graph that drives generation order: Depends lists the
// other files this file's definitions call into or otherwise reference. Generation walks the graph
// leaves-first so that a callee's module exists before its caller's call sites are lowered against it.
type DepNode struct {
	File    *FileNode
	Depends []*DepNode
}

// Walk calls visit once for every DepNode reachable from root, leaves (files with no further dependencies)
// first, visiting each node exactly once even if it is reachable by more than one path.
func Walk(root *DepNode, visit func(*DepNode)) {
	visited := map[*DepNode]bool{}
	var walk func(*DepNode)
	walk = func(n *DepNode) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		for _, dep := range n.Depends {
			walk(dep)
		}
		visit(n)
	}
	walk(root)
}
