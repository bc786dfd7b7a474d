package parser

import (
	"flintc/internal/ast"
	"flintc/internal/signature"
	"flintc/internal/token"
	"flintc/internal/types"
)

// Statement parsing. Each line inside a block is matched against the statement signature vocabulary;
// headers ending in a colon recurse into a nested scope.

// parseBlock parses every line indented deeper than parentIndent into scope.
func (p *parser) parseBlock(scope *ast.Scope, parentIndent int) {
	blockIndent := parentIndent + 1
	for p.idx < len(p.lines) {
		l := p.lines[p.idx]
		if l.indent <= parentIndent {
			return
		}
		if l.indent > blockIndent {
			p.errorf(l, "unexpected indentation")
			p.idx++
			continue
		}
		if stmt := p.parseStatement(scope, l); stmt != nil {
			scope.Statements = append(scope.Statements, stmt)
		}
	}
}

// parseStatement recognises and parses one statement starting at line l, advancing the line cursor.
func (p *parser) parseStatement(scope *ast.Scope, l line) ast.Statement {
	toks := l.toks
	switch {
	case signature.TokensContain(toks, signature.Of(token.Catch)):
		return p.parseCatch(scope, l)
	case toks[0].Kind == token.Return:
		return p.parseReturn(scope, l)
	case toks[0].Kind == token.Throw:
		return p.parseThrow(l)
	case toks[0].Kind == token.If:
		return p.parseIf(scope, l)
	case toks[0].Kind == token.Else:
		p.errorf(l, "else without a preceding if")
		p.idx++
		p.skipBlock(l.indent)
		return nil
	case toks[0].Kind == token.While:
		return p.parseWhile(scope, l)
	case toks[0].Kind == token.Do:
		return p.parseDoWhile(scope, l)
	case toks[0].Kind == token.Parallel:
		return p.parseEnhancedFor(scope, l, true)
	case signature.TokensMatch(toks, signature.EnhancedForLoop):
		return p.parseEnhancedFor(scope, l, false)
	case toks[0].Kind == token.For:
		return p.parseFor(scope, l)
	case toks[0].Kind == token.Break:
		p.idx++
		return &ast.BreakStmt{Line: l.no}
	case toks[0].Kind == token.Continue:
		p.idx++
		return &ast.ContinueStmt{Line: l.no}
	case toks[0].Kind == token.LeftParen && signature.TokensContain(toks,
		signature.Of(token.RightParen, "((", token.ColonEqual, ")|(", token.Equal, "))")):
		return p.parseGroupAssign(scope, l)
	case signature.TokensContain(toks, signature.DeclarationInferred) && toks[0].Kind == token.Identifier &&
		len(toks) > 1 && toks[1].Kind == token.ColonEqual:
		return p.parseInferredDecl(scope, l)
	case p.looksLikeTypedDecl(toks):
		return p.parseTypedDecl(scope, l)
	case p.looksLikeArrayAssign(toks):
		return p.parseArrayAssign(scope, l)
	case p.looksLikeAssign(toks):
		return p.parseAssign(scope, l)
	case len(toks) >= 2 && toks[0].Kind == token.Identifier &&
		(toks[1].Kind == token.Increment || toks[1].Kind == token.Decrement):
		return p.parseUnaryOpStmt(scope, l)
	case len(toks) >= 2 && toks[0].Kind == token.Identifier && toks[1].Kind == token.LeftParen:
		return p.parseCallStmt(scope, l)
	default:
		p.errorf(l, "unrecognised statement")
		p.idx++
		return nil
	}
}

// looksLikeTypedDecl reports whether the line opens with a type token followed by a fresh name.
func (p *parser) looksLikeTypedDecl(toks []token.Token) bool {
	if len(toks) < 3 {
		return false
	}
	if p.tokenType(toks[0]) == nil {
		return false
	}
	if toks[1].Kind != token.Identifier {
		return false
	}
	return toks[2].Kind == token.Equal || toks[2].Kind == token.Semicolon
}

// looksLikeAssign reports a plain or field assignment: an lvalue path followed by '='.
func (p *parser) looksLikeAssign(toks []token.Token) bool {
	if len(toks) == 0 || toks[0].Kind != token.Identifier {
		return false
	}
	i := 1
	for i+1 < len(toks) && toks[i].Kind == token.Dot && toks[i+1].Kind == token.Identifier {
		i += 2
	}
	return i < len(toks) && toks[i].Kind == token.Equal
}

// looksLikeArrayAssign reports `name[expr] = expr;`.
func (p *parser) looksLikeArrayAssign(toks []token.Token) bool {
	return len(toks) > 3 && toks[0].Kind == token.Identifier && toks[1].Kind == token.LeftBracket &&
		signature.TokensContain(toks, signature.Of(token.RightBracket, token.Equal))
}

// stripSemicolon drops a trailing semicolon, reporting its absence.
func (p *parser) stripSemicolon(l line, toks []token.Token) []token.Token {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.Semicolon {
		p.errorf(l, "missing ';'")
		return toks
	}
	return toks[:len(toks)-1]
}

// headerExpr extracts the expression between the head keyword and the trailing colon of a header line.
func (p *parser) headerExpr(l line, skip int) []token.Token {
	toks := l.toks
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.Colon {
		p.errorf(l, "missing ':'")
		return nil
	}
	return toks[skip : len(toks)-1]
}

// parseReturn parses `return;`, `return expr;` or `return (a, b);`.
func (p *parser) parseReturn(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks[1:])
	stmt := &ast.ReturnStmt{Line: l.no}
	if len(toks) > 0 {
		e := p.parseExprTokens(scope, l, toks)
		if grp, ok := e.(*ast.GroupExpr); ok {
			stmt.Values = grp.Elements
		} else if e != nil {
			stmt.Values = []ast.Expression{e}
		}
	}
	return stmt
}

// parseThrow parses `throw Set.Member;`.
func (p *parser) parseThrow(l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks[1:])
	if len(toks) != 3 || toks[0].Kind != token.Identifier || toks[1].Kind != token.Dot ||
		toks[2].Kind != token.Identifier {
		p.errorf(l, "throw expects an error set member, e.g. throw ErrIO.NotFound")
		return nil
	}
	return &ast.ThrowStmt{ErrorSet: toks[0].Lexeme, Member: toks[2].Lexeme, Line: l.no}
}

// parseIf parses an if / else if / else chain.
func (p *parser) parseIf(scope *ast.Scope, l line) ast.Statement {
	stmt := &ast.IfStmt{Line: l.no}

	cond := p.parseExprTokens(scope, l, p.headerExpr(l, 1))
	p.idx++
	body := p.newScope(scope)
	p.parseBlock(body, l.indent)
	stmt.Arms = append(stmt.Arms, ast.IfArm{Cond: cond, Body: body})

	for p.idx < len(p.lines) {
		nl := p.lines[p.idx]
		if nl.indent != l.indent || len(nl.toks) == 0 || nl.toks[0].Kind != token.Else {
			break
		}
		if signature.TokensMatch(nl.toks, signature.ElseIfStatement) {
			cond := p.parseExprTokens(scope, nl, p.headerExpr(nl, 2))
			p.idx++
			armBody := p.newScope(scope)
			p.parseBlock(armBody, nl.indent)
			stmt.Arms = append(stmt.Arms, ast.IfArm{Cond: cond, Body: armBody})
			continue
		}
		// Plain else: no condition, always last.
		p.idx++
		armBody := p.newScope(scope)
		p.parseBlock(armBody, nl.indent)
		stmt.Arms = append(stmt.Arms, ast.IfArm{Body: armBody})
		break
	}
	return stmt
}

// parseWhile parses `while cond:` plus body.
func (p *parser) parseWhile(scope *ast.Scope, l line) ast.Statement {
	cond := p.parseExprTokens(scope, l, p.headerExpr(l, 1))
	p.idx++
	body := p.newScope(scope)
	p.parseBlock(body, l.indent)
	return &ast.WhileStmt{Cond: cond, Body: body, Line: l.no}
}

// parseDoWhile parses `do:` plus body plus a trailing `while cond;` line.
func (p *parser) parseDoWhile(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	body := p.newScope(scope)
	p.parseBlock(body, l.indent)
	if p.idx >= len(p.lines) || p.lines[p.idx].toks[0].Kind != token.While {
		p.errorf(l, "do block must be followed by `while cond;`")
		return nil
	}
	wl := p.lines[p.idx]
	p.idx++
	cond := p.parseExprTokens(body, wl, p.stripSemicolon(wl, wl.toks[1:]))
	return &ast.DoWhileStmt{Body: body, Cond: cond, Line: l.no}
}

// parseFor parses the classic three-part loop `for init; cond; post:`.
func (p *parser) parseFor(scope *ast.Scope, l line) ast.Statement {
	header := p.headerExpr(l, 1)
	parts := splitOn(header, token.Semicolon)
	if len(parts) != 3 {
		p.errorf(l, "for loop expects `for init; cond; post:`")
		p.idx++
		p.skipBlock(l.indent)
		return nil
	}
	p.idx++
	body := p.newScope(scope)
	stmt := &ast.ForStmt{Body: body, Line: l.no}
	if len(parts[0]) > 0 {
		stmt.Init = p.parseSimpleStatement(body, l, parts[0])
	}
	stmt.Cond = p.parseExprTokens(body, l, parts[1])
	if len(parts[2]) > 0 {
		stmt.Post = p.parseSimpleStatement(body, l, parts[2])
	}
	p.parseBlock(body, l.indent)
	return stmt
}

// parseSimpleStatement parses a one-line statement fragment (loop init/post) with no trailing semicolon.
func (p *parser) parseSimpleStatement(scope *ast.Scope, l line, toks []token.Token) ast.Statement {
	switch {
	case len(toks) >= 2 && p.tokenType(toks[0]) != nil && toks[1].Kind == token.Identifier:
		t := p.tokenType(toks[0])
		scope.Symbols[toks[1].Lexeme] = t
		stmt := &ast.DeclStmt{Name: toks[1].Lexeme, Type: t, Line: l.no}
		if len(toks) > 3 && toks[2].Kind == token.Equal {
			stmt.Init = p.parseExprTokens(scope, l, toks[3:])
		}
		return stmt
	case len(toks) >= 2 && toks[0].Kind == token.Identifier && toks[1].Kind == token.ColonEqual:
		init := p.parseExprTokens(scope, l, toks[2:])
		t := p.inferType(scope, init)
		scope.Symbols[toks[0].Lexeme] = t
		return &ast.DeclStmt{Name: toks[0].Lexeme, Type: t, Init: init, Line: l.no}
	case len(toks) == 2 && toks[0].Kind == token.Identifier &&
		(toks[1].Kind == token.Increment || toks[1].Kind == token.Decrement):
		op := "++"
		if toks[1].Kind == token.Decrement {
			op = "--"
		}
		return &ast.UnaryOpStmt{
			Target: &ast.VariableExpr{Name: toks[0].Lexeme, IsReference: true, Line: l.no},
			Op:     op, Line: l.no,
		}
	case len(toks) >= 2 && toks[0].Kind == token.Identifier && toks[1].Kind == token.Equal:
		return &ast.AssignStmt{
			Target: &ast.VariableExpr{Name: toks[0].Lexeme, IsReference: true, Line: l.no},
			Value:  p.parseExprTokens(scope, l, toks[2:]),
			Line:   l.no,
		}
	}
	p.errorf(l, "unrecognised loop clause")
	return nil
}

// splitOn splits a token slice on a separator kind at bracket depth zero.
func splitOn(toks []token.Token, sep token.Kind) [][]token.Token {
	var out [][]token.Token
	depth := 0
	start := 0
	for i, t := range toks {
		switch t.Kind {
		case token.LeftParen, token.LeftBracket, token.LeftBrace:
			depth++
		case token.RightParen, token.RightBracket, token.RightBrace:
			depth--
		case sep:
			if depth == 0 {
				out = append(out, toks[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, toks[start:])
	return out
}

// parseEnhancedFor parses `for idx, elem in container:` (optionally prefixed `parallel`).
func (p *parser) parseEnhancedFor(scope *ast.Scope, l line, parallel bool) ast.Statement {
	toks := l.toks
	skip := 1
	if parallel {
		skip = 2
		if len(toks) < 2 || toks[1].Kind != token.For {
			p.errorf(l, "parallel must prefix a for loop")
			p.idx++
			p.skipBlock(l.indent)
			return nil
		}
	}
	header := p.headerExpr(l, skip)
	if len(header) < 4 || header[1].Kind != token.Comma || header[3].Kind != token.In {
		p.errorf(l, "enhanced for expects `for index, element in container:`")
		p.idx++
		p.skipBlock(l.indent)
		return nil
	}
	name := func(t token.Token) string {
		if t.Kind == token.Underscore {
			return "_"
		}
		return t.Lexeme
	}
	p.idx++
	body := p.newScope(scope)
	stmt := ast.EnhancedForStmt{
		IndexVar: name(header[0]),
		ElemVar:  name(header[2]),
		Iterable: p.parseExprTokens(body, l, header[4:]),
		Body:     body,
		Line:     l.no,
	}
	if stmt.IndexVar != "_" {
		body.Symbols[stmt.IndexVar] = types.U64
	}
	if stmt.ElemVar != "_" {
		elem := p.inferType(body, stmt.Iterable)
		if elem != nil && elem.Variation == types.MultiType {
			elem = elem.Element
		} else if elem != nil && types.Equal(elem, types.Str) {
			elem = types.Prim("char")
		}
		body.Symbols[stmt.ElemVar] = elem
	}
	p.parseBlock(body, l.indent)
	if parallel {
		return &ast.ParallelForStmt{EnhancedForStmt: stmt}
	}
	out := stmt
	return &out
}

// parseCatch parses `call(args) catch err:` plus the handler body.
func (p *parser) parseCatch(scope *ast.Scope, l line) ast.Statement {
	toks := l.toks
	catchIdx := -1
	for i, t := range toks {
		if t.Kind == token.Catch {
			catchIdx = i
		}
	}
	if catchIdx < 1 || toks[len(toks)-1].Kind != token.Colon {
		p.errorf(l, "malformed catch statement")
		p.idx++
		p.skipBlock(l.indent)
		return nil
	}
	callExpr := p.parseExprTokens(scope, l, toks[:catchIdx])
	call, ok := callExpr.(*ast.CallExpr)
	if !ok {
		p.errorf(l, "catch must guard a call")
		p.idx++
		p.skipBlock(l.indent)
		return nil
	}
	errVar := ""
	if catchIdx+2 < len(toks) && toks[catchIdx+1].Kind == token.Identifier {
		errVar = toks[catchIdx+1].Lexeme
	}
	p.idx++
	body := p.newScope(scope)
	if errVar != "" {
		body.Symbols[errVar] = types.I32
	}
	p.parseBlock(body, l.indent)
	return &ast.CatchStmt{
		Call:     &ast.CallStmt{Call: call, Line: l.no},
		ErrorVar: errVar,
		Body:     body,
		Line:     l.no,
	}
}

// parseGroupAssign parses `(a, b) = f();` and `(a, b) := f();`.
func (p *parser) parseGroupAssign(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks)
	closeIdx := -1
	for i, t := range toks {
		if t.Kind == token.RightParen {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 || closeIdx+1 >= len(toks) {
		p.errorf(l, "malformed group assignment")
		return nil
	}
	var names []string
	for _, t := range toks[1:closeIdx] {
		if t.Kind == token.Identifier || t.Kind == token.Underscore {
			name := t.Lexeme
			if t.Kind == token.Underscore {
				name = "_"
			}
			names = append(names, name)
		}
	}
	opTok := toks[closeIdx+1]
	value := p.parseExprTokens(scope, l, toks[closeIdx+2:])
	if opTok.Kind == token.ColonEqual {
		stmt := &ast.GroupDeclStmt{Names: names, Init: value, Line: l.no}
		call, ok := value.(*ast.CallExpr)
		if !ok {
			p.errorf(l, "group declaration expects a multi-valued call")
			return nil
		}
		def, ok := p.funcs[call.Callee]
		if !ok || len(def.Returns) != len(names) {
			p.errorf(l, "group declaration arity mismatch for %s", call.Callee)
			return nil
		}
		stmt.Types = def.Returns
		for i, name := range names {
			if name != "_" {
				scope.Symbols[name] = def.Returns[i]
			}
		}
		return stmt
	}
	targets := make([]ast.Expression, len(names))
	for i, name := range names {
		targets[i] = &ast.VariableExpr{Name: name, IsReference: true, Line: l.no}
	}
	return &ast.GroupAssignStmt{Targets: targets, Value: value, Line: l.no}
}

// parseInferredDecl parses `x := expr;`.
func (p *parser) parseInferredDecl(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks)
	init := p.parseExprTokens(scope, l, toks[2:])
	t := p.inferType(scope, init)
	if t == nil {
		p.errorf(l, "cannot infer the type of %s", toks[0].Lexeme)
		return nil
	}
	scope.Symbols[toks[0].Lexeme] = t
	return &ast.DeclStmt{Name: toks[0].Lexeme, Type: t, Init: init, Line: l.no}
}

// parseTypedDecl parses `T x = expr;` and `T x;`.
func (p *parser) parseTypedDecl(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks)
	t := p.tokenType(toks[0])
	stmt := &ast.DeclStmt{Name: toks[1].Lexeme, Type: t, Line: l.no}
	if len(toks) > 3 && toks[2].Kind == token.Equal {
		stmt.Init = p.parseExprTokens(scope, l, toks[3:])
	}
	scope.Symbols[stmt.Name] = t
	return stmt
}

// parseAssign parses `x = expr;` and `x.f = expr;`.
func (p *parser) parseAssign(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks)
	eq := -1
	for i, t := range toks {
		if t.Kind == token.Equal {
			eq = i
			break
		}
	}
	target := p.parseLValue(scope, l, toks[:eq])
	return &ast.AssignStmt{Target: target, Value: p.parseExprTokens(scope, l, toks[eq+1:]), Line: l.no}
}

// parseLValue builds the assignment-target expression for a variable or dotted field path.
func (p *parser) parseLValue(scope *ast.Scope, l line, toks []token.Token) ast.Expression {
	var target ast.Expression = &ast.VariableExpr{Name: toks[0].Lexeme, IsReference: true, Line: l.no}
	for i := 1; i+1 < len(toks); i += 2 {
		if toks[i].Kind != token.Dot {
			p.errorf(l, "malformed assignment target")
			return target
		}
		target = &ast.DataAccessExpr{Base: target, Field: toks[i+1].Lexeme, Line: l.no}
	}
	return target
}

// parseArrayAssign parses `a[idx] = expr;`.
func (p *parser) parseArrayAssign(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks)
	closeIdx := -1
	for i, t := range toks {
		if t.Kind == token.RightBracket {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 || closeIdx+1 >= len(toks) || toks[closeIdx+1].Kind != token.Equal {
		p.errorf(l, "malformed array assignment")
		return nil
	}
	return &ast.ArrayAssignStmt{
		Array: &ast.VariableExpr{Name: toks[0].Lexeme, IsReference: true, Line: l.no},
		Index: p.parseExprTokens(scope, l, toks[2:closeIdx]),
		Value: p.parseExprTokens(scope, l, toks[closeIdx+2:]),
		Line:  l.no,
	}
}

// parseUnaryOpStmt parses `x++;` and `x--;`.
func (p *parser) parseUnaryOpStmt(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks)
	op := "++"
	if toks[1].Kind == token.Decrement {
		op = "--"
	}
	return &ast.UnaryOpStmt{
		Target: &ast.VariableExpr{Name: toks[0].Lexeme, IsReference: true, Line: l.no},
		Op:     op, Line: l.no,
	}
}

// parseCallStmt parses a call used as a statement.
func (p *parser) parseCallStmt(scope *ast.Scope, l line) ast.Statement {
	p.idx++
	toks := p.stripSemicolon(l, l.toks)
	e := p.parseExprTokens(scope, l, toks)
	call, ok := e.(*ast.CallExpr)
	if !ok {
		p.errorf(l, "expected a call statement")
		return nil
	}
	return &ast.CallStmt{Call: call, Line: l.no}
}
