// Package parser builds the abstract syntax tree from the classified token stream. Constructs are
// recognised by the signature engine's token-pattern vocabulary: each source line is matched against the
// definition and statement signatures, then taken apart into its AST node; blocks are delimited by
// indentation under a colon-terminated header line.
package parser

import (
	"flintc/internal/ast"
	"flintc/internal/diag"
	"flintc/internal/signature"
	"flintc/internal/token"
	"flintc/internal/types"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// line is one source line: its number, indentation depth, and content tokens with the indentation
// stripped.
type line struct {
	no     int
	indent int
	toks   []token.Token
}

// parser carries the state of one file's parse.
type parser struct {
	path  string
	lines []line
	idx   int

	scopeSeq int
	callSeq  int

	namedTypes map[string]*types.Type      // data types by name, from the pre-scan
	funcs      map[string]*ast.FunctionDef // function headers by name, from the pre-scan

	errs []error

	pendingShouldFail bool
}

// ---------------------
// ----- Functions -----
// ---------------------

// Parse builds the file node for the token stream of one source file. All user errors found are returned
// together; a non-empty error list means no AST is produced.
func Parse(path string, tokens []token.Token) (*ast.FileNode, []error) {
	p := &parser{
		path:       path,
		lines:      splitLines(tokens),
		namedTypes: make(map[string]*types.Type, 8),
		funcs:      make(map[string]*ast.FunctionDef, 8),
	}
	p.prescan()

	file := &ast.FileNode{Path: path, PathHash: types.HashName(path)}
	for p.idx < len(p.lines) {
		l := p.lines[p.idx]
		if l.indent != 0 {
			p.errorf(l, "unexpected indentation at top level")
			p.idx++
			continue
		}
		if def := p.parseDefinition(l); def != nil {
			file.Definitions = append(file.Definitions, def)
		}
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return file, nil
}

// splitLines groups the token stream by source line, measuring each line's indentation with the signature
// engine's line-scoped queries.
func splitLines(tokens []token.Token) []line {
	var out []line
	i := 0
	for i < len(tokens) {
		no := tokens[i].Line
		r, _ := signature.GetTokensLineRange(tokens[i:], no)
		lo, hi := i+r.Lo, i+r.Hi
		indent, _ := signature.GetLeadingIndents(tokens[i:], no)
		content := tokens[lo+indent : hi]
		if len(content) > 0 {
			out = append(out, line{no: no, indent: indent, toks: content})
		}
		i = hi
	}
	return out
}

// errorf records a positioned user error against line l.
func (p *parser) errorf(l line, format string, args ...interface{}) {
	col := 0
	if len(l.toks) > 0 {
		col = l.toks[0].Col
	}
	p.errs = append(p.errs, diag.Userf(p.path, l.no, col, format, args...))
}

// newScope allocates a scope with the next unique id.
func (p *parser) newScope(parent *ast.Scope) *ast.Scope {
	p.scopeSeq++
	return ast.NewScope(p.scopeSeq, parent)
}

// nextCallID hands out the per-function monotonically increasing call id.
func (p *parser) nextCallID() int {
	p.callSeq++
	return p.callSeq
}

// ---------------------------
// ----- Pre-scan ------------
// ---------------------------

// prescan walks the top-level lines once, collecting function headers and data definitions so that later
// parses can resolve named types and infer call result types regardless of declaration order.
func (p *parser) prescan() {
	for i := 0; i < len(p.lines); i++ {
		l := p.lines[i]
		if l.indent != 0 {
			continue
		}
		switch {
		case signature.TokensMatch(l.toks, signature.FunctionDefinition):
			if def := p.parseFunctionHeader(l); def != nil {
				p.funcs[def.Name] = def
			}
		case signature.TokensMatch(l.toks, signature.DataDefinition):
			name, node := p.prescanData(i)
			if node != nil {
				p.namedTypes[name] = types.NewDataType(node)
			}
		}
	}
	p.errs = nil // the real parse reports errors; the pre-scan stays silent
}

// prescanData reads a data definition's field block starting at header line i.
func (p *parser) prescanData(i int) (string, *types.DataNode) {
	l := p.lines[i]
	name := ""
	for _, t := range l.toks {
		if t.Kind == token.Identifier {
			name = t.Lexeme
			break
		}
	}
	if name == "" {
		return "", nil
	}
	node := &types.DataNode{Name: name, FileHash: types.HashName(p.path)}
	for j := i + 1; j < len(p.lines) && p.lines[j].indent > l.indent; j++ {
		toks := p.lines[j].toks
		if len(toks) >= 3 && toks[1].Kind == token.Identifier {
			if t := p.tokenType(toks[0]); t != nil {
				node.Fields = append(node.Fields, types.Field{Name: toks[1].Lexeme, Type: t})
			}
		}
	}
	return name, node
}

// tokenType resolves a single type token: a primitive keyword or a named data type.
func (p *parser) tokenType(t token.Token) *types.Type {
	switch t.Kind {
	case token.I32, token.I64, token.U32, token.U64, token.F32, token.F64, token.Flint,
		token.Str, token.Char, token.Bool:
		return types.Prim(t.Kind.String())
	case token.Identifier:
		if named, ok := p.namedTypes[t.Lexeme]; ok {
			return named
		}
	}
	return nil
}
