// Package token defines the lexical token kinds emitted by the lexer and consumed by the parser and the
// signature engine. Kinds are small integers so they stringify cheaply into the encoded token stream the
// signature engine matches against.
package token

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

// ---------------------
// ----- Constants -----
// ---------------------

const (
	EOF Kind = iota
	Illegal

	Identifier
	IntValue
	FloatValue
	StrValue
	CharValue

	// Keywords
	Def
	Data
	Entity
	Func
	Error
	Enum
	Variant
	Test
	Use
	Extends
	Requires
	Link
	Return
	Throw
	Catch
	If
	Else
	While
	Do
	For
	Parallel
	In
	Break
	Continue
	True
	False
	Shared
	Immutable
	Aligned
	Const
	Underscore
	TestShouldFail

	// Primitive type keywords
	I32
	I64
	U32
	U64
	F32
	F64
	Flint
	Str
	Char
	Bool

	// Punctuation and operators
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	LeftBracket
	RightBracket
	Comma
	Colon
	ColonEqual
	Semicolon
	Dot
	Arrow
	Equal
	EqualEqual
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	Plus
	Minus
	Mult
	Div
	Square
	Increment
	Decrement
	Not
	And
	Or

	// Indentation marker the lexer emits at the start of an indented line; line-scoped queries measure
	// indentation by counting these.
	Indent
)

// kindNames gives each Kind a short name for debugging output. The signature engine does not use these
// names: its "#<kind>" anchors carry the Kind's numeric value.
var kindNames = map[Kind]string{
	EOF:            "eof",
	Illegal:        "illegal",
	Identifier:     "ident",
	IntValue:       "int_value",
	FloatValue:     "flint_value",
	StrValue:       "str_value",
	CharValue:      "char_value",
	Def:            "def",
	Data:           "data",
	Entity:         "entity",
	Func:           "func",
	Error:          "error",
	Enum:           "enum",
	Variant:        "variant",
	Test:           "test",
	Use:            "use",
	Extends:        "extends",
	Requires:       "requires",
	Link:           "link",
	Return:         "return",
	Throw:          "throw",
	Catch:          "catch",
	If:             "if",
	Else:           "else",
	While:          "while",
	Do:             "do",
	For:            "for",
	Parallel:       "parallel",
	In:             "in",
	Break:          "break",
	Continue:       "continue",
	True:           "true",
	False:          "false",
	Shared:         "shared",
	Immutable:      "immutable",
	Aligned:        "aligned",
	Const:          "const",
	Underscore:     "underscore",
	TestShouldFail: "test_should_fail",
	I32:            "i32",
	I64:            "i64",
	U32:            "u32",
	U64:            "u64",
	F32:            "f32",
	F64:            "f64",
	Flint:          "flint",
	Str:            "str",
	Char:           "char",
	Bool:           "bool",
	LeftParen:      "lparen",
	RightParen:     "rparen",
	LeftBrace:      "lbrace",
	RightBrace:     "rbrace",
	LeftBracket:    "lbracket",
	RightBracket:   "rbracket",
	Comma:          "comma",
	Colon:          "colon",
	ColonEqual:     "colon_equal",
	Semicolon:      "semicolon",
	Dot:            "dot",
	Arrow:          "arrow",
	Equal:          "equal",
	EqualEqual:     "equal_equal",
	NotEqual:       "not_equal",
	Less:           "less",
	LessEqual:      "less_equal",
	Greater:        "greater",
	GreaterEqual:   "greater_equal",
	Plus:           "plus",
	Minus:          "minus",
	Mult:           "mult",
	Div:            "div",
	Square:         "square",
	Increment:      "increment",
	Decrement:      "decrement",
	Not:            "not",
	And:            "and",
	Or:             "or",
	Indent:         "indent",
}

// String returns the short name used in debugging output.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Keywords maps every reserved word to its Kind. It is a literal table, written out separately from
// kindNames.
var Keywords = map[string]Kind{
	"def": Def, "data": Data, "entity": Entity, "func": Func, "error": Error, "enum": Enum,
	"variant": Variant, "test": Test, "use": Use, "extends": Extends, "requires": Requires, "link": Link,
	"return": Return, "throw": Throw, "catch": Catch, "if": If, "else": Else, "while": While, "do": Do,
	"for": For, "parallel": Parallel, "in": In, "break": Break, "continue": Continue, "true": True,
	"false": False, "shared": Shared, "immutable": Immutable, "aligned": Aligned, "const": Const,
	"_": Underscore, "test_should_fail": TestShouldFail, "not": Not, "and": And, "or": Or,
	"i32": I32, "i64": I64, "u32": U32, "u64": U64, "f32": F32, "f64": F64, "flint": Flint, "str": Str,
	"char": Char, "bool": Bool,
}

// Token is a single lexeme classified by the lexer: a kind plus its source text and position.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Col    int
}

// String renders t for human-readable diagnostics, not for the signature engine (see Stringify in the
// signature package for that encoding).
func (t Token) String() string {
	if t.Lexeme == "" {
		return fmt.Sprintf("%s (%d:%d)", t.Kind, t.Line, t.Col)
	}
	return fmt.Sprintf("%s(%q) (%d:%d)", t.Kind, t.Lexeme, t.Line, t.Col)
}
