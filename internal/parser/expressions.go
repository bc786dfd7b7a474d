package parser

import (
	"flintc/internal/apnum"
	"flintc/internal/ast"
	"flintc/internal/signature"
	"flintc/internal/token"
	"flintc/internal/types"
)

// Expression parsing: precedence climbing over a line's token slice. Integer and float literals carry
// their arbitrary-precision values so the lowering pass can fold and range-check them exactly.

// exprParser walks one expression's token slice.
type exprParser struct {
	p     *parser
	l     line
	scope *ast.Scope
	toks  []token.Token
	pos   int
}

// parseExprTokens parses the token slice as one expression, reporting errors against line l.
func (p *parser) parseExprTokens(scope *ast.Scope, l line, toks []token.Token) ast.Expression {
	if len(toks) == 0 {
		p.errorf(l, "expected an expression")
		return nil
	}
	ep := &exprParser{p: p, l: l, scope: scope, toks: toks}
	e := ep.parseBinary(0)
	if ep.pos < len(ep.toks) {
		p.errorf(l, "trailing tokens after expression")
	}
	return e
}

// binaryPrecedence orders the binary operators, loosest first.
func binaryPrecedence(k token.Kind) int {
	switch k {
	case token.Or:
		return 1
	case token.And:
		return 2
	case token.EqualEqual, token.NotEqual, token.Less, token.LessEqual, token.Greater, token.GreaterEqual:
		return 3
	case token.Plus, token.Minus:
		return 4
	case token.Mult, token.Div:
		return 5
	case token.Square:
		return 6
	}
	return 0
}

// operatorSpelling maps a binary operator kind to the spelling the AST carries.
var operatorSpelling = map[token.Kind]string{
	token.Or: "or", token.And: "and",
	token.EqualEqual: "==", token.NotEqual: "!=", token.Less: "<", token.LessEqual: "<=",
	token.Greater: ">", token.GreaterEqual: ">=",
	token.Plus: "+", token.Minus: "-", token.Mult: "*", token.Div: "/", token.Square: "^",
}

func (ep *exprParser) peek() token.Kind {
	if ep.pos >= len(ep.toks) {
		return token.EOF
	}
	return ep.toks[ep.pos].Kind
}

func (ep *exprParser) next() token.Token {
	t := ep.toks[ep.pos]
	ep.pos++
	return t
}

// parseBinary climbs operator precedence starting at minPrec.
func (ep *exprParser) parseBinary(minPrec int) ast.Expression {
	left := ep.parseUnary()
	for {
		prec := binaryPrecedence(ep.peek())
		if prec == 0 || prec < minPrec {
			return left
		}
		op := ep.next()
		right := ep.parseBinary(prec + 1)
		left = &ast.BinaryExpr{Op: operatorSpelling[op.Kind], Left: left, Right: right, Line: op.Line}
	}
}

// parseUnary handles the prefix operators: not and numeric negation. Negation of a literal folds into the
// literal itself.
func (ep *exprParser) parseUnary() ast.Expression {
	switch ep.peek() {
	case token.Not:
		op := ep.next()
		return &ast.UnaryExpr{Op: "not", Operand: ep.parseUnary(), Line: op.Line}
	case token.Minus:
		op := ep.next()
		operand := ep.parseUnary()
		if lit, ok := operand.(*ast.LiteralExpr); ok {
			switch {
			case types.Equal(lit.Type, types.F64) || types.Equal(lit.Type, types.F32):
				lit.Float = lit.Float.Neg()
				return lit
			case lit.Type != nil && lit.Type.Variation == types.Primitive && lit.Type.PrimitiveName[0] == 'i':
				lit.Int = lit.Int.Neg()
				return lit
			}
		}
		return &ast.UnaryExpr{Op: "-", Operand: operand, Line: op.Line}
	}
	return ep.parsePostfix()
}

// parsePostfix parses a primary expression and its trailing member accesses and increment/decrement.
func (ep *exprParser) parsePostfix() ast.Expression {
	e := ep.parsePrimary()
	for {
		switch ep.peek() {
		case token.Dot:
			ep.next()
			if ep.peek() == token.LeftParen {
				// Grouped data access: base.(f1, f2).
				ep.next()
				var fields []string
				for ep.peek() != token.RightParen && ep.peek() != token.EOF {
					t := ep.next()
					if t.Kind == token.Identifier {
						fields = append(fields, t.Lexeme)
					}
				}
				ep.expect(token.RightParen)
				e = &ast.GroupedDataAccessExpr{Base: e, Fields: fields, Line: ep.l.no}
				continue
			}
			field := ep.expect(token.Identifier)
			e = &ast.DataAccessExpr{Base: e, Field: field.Lexeme, Line: ep.l.no}
		case token.Increment:
			ep.next()
			e = &ast.UnaryExpr{Op: "++", Operand: asReference(e), Line: ep.l.no}
		case token.Decrement:
			ep.next()
			e = &ast.UnaryExpr{Op: "--", Operand: asReference(e), Line: ep.l.no}
		default:
			return e
		}
	}
}

// asReference marks a variable operand as an address-of use, required for in-place updates.
func asReference(e ast.Expression) ast.Expression {
	if v, ok := e.(*ast.VariableExpr); ok {
		v.IsReference = true
	}
	return e
}

// expect consumes the next token, reporting a mismatch.
func (ep *exprParser) expect(k token.Kind) token.Token {
	if ep.peek() != k {
		ep.p.errorf(ep.l, "expected %s", k)
		return token.Token{Kind: token.Illegal}
	}
	return ep.next()
}

// parsePrimary parses literals, variables, calls, casts, initializers and parenthesised groups.
func (ep *exprParser) parsePrimary() ast.Expression {
	switch ep.peek() {
	case token.IntValue:
		t := ep.next()
		v := apnum.ParseInt(t.Lexeme)
		return &ast.LiteralExpr{Type: integerLiteralType(v), Int: v, Line: t.Line}
	case token.FloatValue:
		t := ep.next()
		return &ast.LiteralExpr{Type: types.F64, Float: apnum.ParseFloat(t.Lexeme), Line: t.Line}
	case token.StrValue:
		t := ep.next()
		return &ast.LiteralExpr{Type: types.Str, Str: t.Lexeme, Line: t.Line}
	case token.CharValue:
		t := ep.next()
		return &ast.LiteralExpr{Type: types.Prim("char"), Char: t.Lexeme[0], Line: t.Line}
	case token.True, token.False:
		t := ep.next()
		return &ast.LiteralExpr{Type: types.Bool, Bool: t.Kind == token.True, Line: t.Line}
	case token.I32, token.I64, token.U32, token.U64, token.F32, token.F64, token.Flint, token.Str,
		token.Char, token.Bool:
		// Type cast: prim(expr).
		t := ep.next()
		ep.expect(token.LeftParen)
		inner := ep.parseBinary(0)
		ep.expect(token.RightParen)
		return &ast.CastExpr{Type: types.Prim(t.Kind.String()), Operand: inner, Line: t.Line}
	case token.LeftParen:
		t := ep.next()
		elems := []ast.Expression{ep.parseBinary(0)}
		for ep.peek() == token.Comma {
			ep.next()
			elems = append(elems, ep.parseBinary(0))
		}
		ep.expect(token.RightParen)
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.GroupExpr{Elements: elems, Line: t.Line}
	case token.Identifier:
		return ep.parseIdentifier()
	}
	t := ep.next()
	ep.p.errorf(ep.l, "unexpected token %s in expression", t.Kind)
	return nil
}

// parseIdentifier distinguishes variable references, calls and data initializers.
func (ep *exprParser) parseIdentifier() ast.Expression {
	if signature.IsVariableReference(ep.toks, ep.pos) {
		t := ep.next()
		if named, ok := ep.p.namedTypes[t.Lexeme]; ok && ep.peek() == token.LeftBrace {
			return ep.parseInitializer(named, t.Line)
		}
		return &ast.VariableExpr{Name: t.Lexeme, Line: t.Line}
	}
	t := ep.next()
	ep.expect(token.LeftParen)
	call := &ast.CallExpr{
		Callee:  t.Lexeme,
		ScopeID: ep.scope.ID,
		CallID:  ep.p.nextCallID(),
		Line:    t.Line,
	}
	for ep.peek() != token.RightParen && ep.peek() != token.EOF {
		call.Args = append(call.Args, ep.parseBinary(0))
		if ep.peek() == token.Comma {
			ep.next()
		}
	}
	ep.expect(token.RightParen)
	return call
}

// parseInitializer parses `Name{arg, arg}` for a known data type.
func (ep *exprParser) parseInitializer(t *types.Type, lineNo int) ast.Expression {
	ep.expect(token.LeftBrace)
	init := &ast.InitializerExpr{Type: t, Line: lineNo}
	for ep.peek() != token.RightBrace && ep.peek() != token.EOF {
		init.Args = append(init.Args, ep.parseBinary(0))
		if ep.peek() == token.Comma {
			ep.next()
		}
	}
	ep.expect(token.RightBrace)
	return init
}

// integerLiteralType picks the narrowest default type an integer literal lowers to: i32 when it fits,
// otherwise i64, otherwise u64.
func integerLiteralType(v apnum.APInt) *types.Type {
	if _, ok := v.ToI32(); ok {
		return types.I32
	}
	if _, ok := v.ToI64(); ok {
		return types.I64
	}
	if _, ok := v.ToU64(); ok {
		return types.U64
	}
	return types.I64
}

// inferType derives the type of an initializer expression for `:=` declarations.
func (p *parser) inferType(scope *ast.Scope, e ast.Expression) *types.Type {
	switch n := e.(type) {
	case *ast.LiteralExpr:
		return n.Type
	case *ast.VariableExpr:
		if t, ok := scope.Lookup(n.Name); ok {
			return t
		}
	case *ast.CallExpr:
		if def, ok := p.funcs[n.Callee]; ok && len(def.Returns) == 1 {
			return def.Returns[0]
		}
		switch n.Callee {
		case "read_str", "read_file", "get_env":
			return types.Str
		case "file_exists", "is_file":
			return types.Bool
		case "abs", "min", "max", "sin", "cos", "sqrt":
			if len(n.Args) > 0 {
				return p.inferType(scope, n.Args[0])
			}
		}
	case *ast.BinaryExpr:
		if op := n.Op; op == "==" || op == "!=" || op == "<" || op == "<=" || op == ">" || op == ">=" ||
			op == "and" || op == "or" {
			return types.Bool
		}
		return p.inferType(scope, n.Left)
	case *ast.UnaryExpr:
		if n.Op == "not" {
			return types.Bool
		}
		return p.inferType(scope, n.Operand)
	case *ast.CastExpr:
		return n.Type
	case *ast.InitializerExpr:
		return n.Type
	case *ast.DataAccessExpr:
		base := p.inferType(scope, n.Base)
		if base != nil && base.Variation == types.Data {
			for _, f := range base.DataRef.Fields {
				if f.Name == n.Field {
					return f.Type
				}
			}
		}
	}
	return nil
}
