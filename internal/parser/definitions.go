package parser

import (
	"flintc/internal/ast"
	"flintc/internal/signature"
	"flintc/internal/token"
	"flintc/internal/types"
)

// Definition parsing. Each top-level line is matched against the definition signature vocabulary; the
// matching construct then consumes its indented block.

// parseDefinition recognises and parses the definition starting at line l, advancing the line cursor past
// its block.
func (p *parser) parseDefinition(l line) ast.Definition {
	switch {
	case len(l.toks) == 1 && l.toks[0].Kind == token.TestShouldFail:
		p.pendingShouldFail = true
		p.idx++
		return nil
	case signature.TokensMatch(l.toks, signature.UseStatement) ||
		signature.TokensMatch(l.toks, signature.Combine(signature.UseStatement, signature.Of(token.Semicolon))):
		return p.parseUse(l)
	case signature.TokensMatch(l.toks, signature.FunctionDefinition):
		return p.parseFunction(l)
	case signature.TokensMatch(l.toks, signature.DataDefinition):
		return p.parseData(l)
	case signature.TokensMatch(l.toks, signature.ErrorDefinition):
		return p.parseErrorSet(l)
	case signature.TokensMatch(l.toks, signature.EnumDefinition):
		return p.parseEnum(l)
	case signature.TokensMatch(l.toks, signature.TestDefinition):
		return p.parseTest(l)
	case signature.TokensMatch(l.toks, signature.VariantDefinition):
		return p.parseVariant(l)
	case signature.TokensMatch(l.toks, signature.EntityDefinition):
		return p.parseEntity(l)
	default:
		p.errorf(l, "unrecognised top-level construct")
		p.idx++
		p.skipBlock(l.indent)
		return nil
	}
}

// skipBlock consumes the indented block under the current line without parsing it.
func (p *parser) skipBlock(indent int) {
	for p.idx < len(p.lines) && p.lines[p.idx].indent > indent {
		p.idx++
	}
}

// parseUse parses `use "path";` or `use a.b.c;`.
func (p *parser) parseUse(l line) ast.Definition {
	p.idx++
	def := &ast.UseDef{Line: l.no}
	for _, t := range l.toks[1:] {
		switch t.Kind {
		case token.StrValue:
			def.Path = t.Lexeme
		case token.Identifier, token.Flint:
			word := t.Lexeme
			if word == "" {
				word = t.Kind.String()
			}
			def.Dotted = append(def.Dotted, word)
		}
	}
	if def.Path == "" && len(def.Dotted) == 0 {
		p.errorf(l, "use statement names no module")
		return nil
	}
	return def
}

// parseFunctionHeader parses a `def` line into name, parameters and return types, without a body.
func (p *parser) parseFunctionHeader(l line) *ast.FunctionDef {
	toks := l.toks
	def := &ast.FunctionDef{Line: l.no}
	i := 0
	for ; i < len(toks); i++ {
		if toks[i].Kind == token.Aligned {
			def.Aligned = true
		} else if toks[i].Kind == token.Const {
			def.Const = true
		} else {
			break
		}
	}
	if i >= len(toks) || toks[i].Kind != token.Def {
		p.errorf(l, "expected def")
		return nil
	}
	i++
	if i >= len(toks) || toks[i].Kind != token.Identifier {
		p.errorf(l, "expected function name")
		return nil
	}
	def.Name = toks[i].Lexeme
	i++ // name
	i++ // '('
	for i < len(toks) && toks[i].Kind != token.RightParen {
		if toks[i].Kind == token.Comma {
			i++
			continue
		}
		t := p.tokenType(toks[i])
		if t == nil || i+1 >= len(toks) || toks[i+1].Kind != token.Identifier {
			p.errorf(l, "malformed parameter list")
			return nil
		}
		def.Params = append(def.Params, ast.Param{Name: toks[i+1].Lexeme, Type: t})
		i += 2
	}
	i++ // ')'
	if i < len(toks) && toks[i].Kind == token.Arrow {
		i++
		if i < len(toks) && toks[i].Kind == token.LeftParen {
			i++
			for i < len(toks) && toks[i].Kind != token.RightParen {
				if toks[i].Kind != token.Comma {
					if t := p.tokenType(toks[i]); t != nil {
						def.Returns = append(def.Returns, t)
					} else {
						p.errorf(l, "unknown return type %s", toks[i].Kind)
					}
				}
				i++
			}
		} else if i < len(toks) {
			if t := p.tokenType(toks[i]); t != nil {
				def.Returns = append(def.Returns, t)
			} else {
				p.errorf(l, "unknown return type %s", toks[i].Kind)
			}
		}
	}
	return def
}

// parseFunction parses a full function definition: the header line plus its indented body block.
func (p *parser) parseFunction(l line) ast.Definition {
	def := p.parseFunctionHeader(l)
	p.idx++
	if def == nil {
		p.skipBlock(l.indent)
		return nil
	}
	p.callSeq = 0
	body := p.newScope(nil)
	for _, e1 := range def.Params {
		body.Symbols[e1.Name] = e1.Type
	}
	p.parseBlock(body, l.indent)
	def.Body = body
	if header, ok := p.funcs[def.Name]; ok {
		header.Body = body
	}
	return def
}

// parseData parses a data definition: modifier prefixes, the name, and one field per block line.
func (p *parser) parseData(l line) ast.Definition {
	def := &ast.DataDef{Line: l.no}
	for _, t := range l.toks {
		switch t.Kind {
		case token.Shared:
			def.Shared = true
		case token.Immutable:
			def.Immutable = true
		case token.Aligned:
			def.Aligned = true
		case token.Identifier:
			def.Name = t.Lexeme
		}
	}
	p.idx++
	for p.idx < len(p.lines) && p.lines[p.idx].indent > l.indent {
		fl := p.lines[p.idx]
		toks := fl.toks
		if len(toks) < 2 || toks[1].Kind != token.Identifier {
			p.errorf(fl, "malformed data field")
			p.idx++
			continue
		}
		t := p.tokenType(toks[0])
		if t == nil {
			p.errorf(fl, "unknown field type %s", toks[0].Kind)
			p.idx++
			continue
		}
		def.Fields = append(def.Fields, ast.Param{Name: toks[1].Lexeme, Type: t})
		p.idx++
	}
	return def
}

// parseErrorSet parses `error Name:` or `error Name(Parent):` with one member per block line.
func (p *parser) parseErrorSet(l line) ast.Definition {
	def := &ast.ErrorSetDef{Line: l.no}
	for i, t := range l.toks {
		if t.Kind == token.Identifier {
			if def.Name == "" {
				def.Name = t.Lexeme
			} else if i > 0 && l.toks[i-1].Kind == token.LeftParen {
				def.Parent = t.Lexeme
			}
		}
	}
	p.idx++
	for p.idx < len(p.lines) && p.lines[p.idx].indent > l.indent {
		toks := p.lines[p.idx].toks
		if len(toks) > 0 && toks[0].Kind == token.Identifier {
			def.Members = append(def.Members, toks[0].Lexeme)
		}
		p.idx++
	}
	return def
}

// parseEnum parses `enum Name:` with one label per block line.
func (p *parser) parseEnum(l line) ast.Definition {
	def := &ast.EnumDef{Line: l.no}
	for _, t := range l.toks {
		if t.Kind == token.Identifier {
			def.Name = t.Lexeme
			break
		}
	}
	p.idx++
	for p.idx < len(p.lines) && p.lines[p.idx].indent > l.indent {
		toks := p.lines[p.idx].toks
		if len(toks) > 0 && toks[0].Kind == token.Identifier {
			def.Values = append(def.Values, toks[0].Lexeme)
		}
		p.idx++
	}
	return def
}

// parseTest parses `test "name":` plus its body, honoring a preceding #test_should_fail annotation.
func (p *parser) parseTest(l line) ast.Definition {
	def := &ast.TestDef{Line: l.no, ShouldFail: p.pendingShouldFail}
	p.pendingShouldFail = false
	for _, t := range l.toks {
		if t.Kind == token.StrValue {
			def.Name = t.Lexeme
			break
		}
	}
	p.idx++
	p.callSeq = 0
	body := p.newScope(nil)
	p.parseBlock(body, l.indent)
	def.Body = body
	return def
}

// parseVariant parses `variant Name:` with one `Tag(T);` per block line.
func (p *parser) parseVariant(l line) ast.Definition {
	def := &ast.VariantDef{Line: l.no, Tags: map[string]*types.Type{}}
	for _, t := range l.toks {
		if t.Kind == token.Identifier {
			def.Name = t.Lexeme
			break
		}
	}
	p.idx++
	for p.idx < len(p.lines) && p.lines[p.idx].indent > l.indent {
		toks := p.lines[p.idx].toks
		if len(toks) >= 4 && toks[0].Kind == token.Identifier && toks[1].Kind == token.LeftParen {
			if t := p.tokenType(toks[2]); t != nil {
				def.Tags[toks[0].Lexeme] = t
			}
		}
		p.idx++
	}
	return def
}

// parseEntity parses the header of an entity definition and records its block content line by line:
// embedded data fields and function requirements.
func (p *parser) parseEntity(l line) ast.Definition {
	def := &ast.EntityDef{Line: l.no}
	for _, t := range l.toks {
		if t.Kind == token.Identifier {
			def.Name = t.Lexeme
			break
		}
	}
	p.idx++
	for p.idx < len(p.lines) && p.lines[p.idx].indent > l.indent {
		toks := p.lines[p.idx].toks
		if len(toks) >= 2 && toks[1].Kind == token.Identifier {
			if t := p.tokenType(toks[0]); t != nil {
				def.DataFields = append(def.DataFields, ast.Param{Name: toks[1].Lexeme, Type: t})
			}
		}
		p.idx++
	}
	return def
}
