package ast

import "flintc/internal/types"

// Param is one formal parameter of a function or entity constructor.
type Param struct {
	Name string
	Type *types.Type
}

// FunctionDef is a `def` definition: name, parameters, return type(s), and a body scope.
type FunctionDef struct {
	Name       string
	Aligned    bool
	Const      bool
	Params     []Param
	Returns    []*types.Type // more than one element for a grouped return type
	Body       *Scope
	Line       int
}

func (*FunctionDef) definitionNode() {}

// DataDef is a `data` definition: an ordered field list, optionally `shared`/`immutable`/`aligned`.
type DataDef struct {
	Name      string
	Shared    bool
	Immutable bool
	Aligned   bool
	Fields    []Param
	Line      int
}

func (*DataDef) definitionNode() {}

// EntityLink describes one `link` relation inside an entity body: `a.b -> c.d;`.
type EntityLink struct {
	From, To []string // dotted reference path segments
}

// EntityDef is an `entity` definition: an optional extends list, an embedded data block, function
// signatures it must satisfy (its `func` requirements), links, and constructors.
type EntityDef struct {
	Name         string
	Extends      []Param
	DataFields   []Param
	FuncRequires []Param
	Links        []EntityLink
	Constructors [][]Param
	Line         int
}

func (*EntityDef) definitionNode() {}

// FuncDef is a `func` definition: a named function-shape requirement an entity or variant can be checked
// against (distinct from FunctionDef, which is a concrete implementation).
type FuncDef struct {
	Name     string
	Requires []Param
	Line     int
}

func (*FuncDef) definitionNode() {}

// ErrorSetDef is an `error` definition: a named set of error members, optionally extending a parent set.
type ErrorSetDef struct {
	Name    string
	Parent  string // empty if this set has no parent
	Members []string
	Line    int
}

func (*ErrorSetDef) definitionNode() {}

// EnumDef is an `enum` definition: a named ordered set of variant labels with no payload.
type EnumDef struct {
	Name   string
	Values []string
	Line   int
}

func (*EnumDef) definitionNode() {}

// VariantDef is a `variant` definition: a named sum type with a payload type per tag.
type VariantDef struct {
	Name string
	Tags map[string]*types.Type
	Line int
}

func (*VariantDef) definitionNode() {}

// TestDef is a `test` definition: a named test body, optionally annotated `test_should_fail`.
type TestDef struct {
	Name            string
	Body            *Scope
	ShouldFail      bool
	Line            int
}

func (*TestDef) definitionNode() {}

// UseDef is a `use` import: either a quoted file path or a dotted module path.
type UseDef struct {
	Path    string
	Dotted  []string
	Line    int
}

func (*UseDef) definitionNode() {}
