package lexer

import (
	"testing"

	"flintc/internal/token"
)

func kinds(ts []token.Token) []token.Kind {
	out := make([]token.Kind, len(ts))
	for i, t := range ts {
		out[i] = t.Kind
	}
	return out
}

func TestLexFunctionHeader(t *testing.T) {
	ts, err := Lex("def add(i32 a, i32 b) -> i32:\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Kind{
		token.Def, token.Identifier, token.LeftParen, token.I32, token.Identifier, token.Comma,
		token.I32, token.Identifier, token.RightParen, token.Arrow, token.I32, token.Colon,
	}
	got := kinds(ts)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v (stream %v)", i, got[i], want[i], got)
		}
	}
	if ts[1].Lexeme != "add" {
		t.Fatalf("identifier lexeme = %q, want add", ts[1].Lexeme)
	}
}

func TestLexIndentation(t *testing.T) {
	ts, err := Lex("while x:\n        x = x - 1;\n")
	if err != nil {
		t.Fatal(err)
	}
	indents := 0
	for _, tok := range ts {
		if tok.Kind == token.Indent {
			indents++
		}
	}
	if indents != 2 {
		t.Fatalf("got %d indent tokens, want 2", indents)
	}
	if ts[0].Kind != token.While {
		t.Fatalf("first token = %v, want while", ts[0].Kind)
	}
}

func TestLexLiteralsAndComments(t *testing.T) {
	src := "x := 12.5; // trailing\ns := \"a\\nb\"; c := 'q'; /* block\ncomment */ y := 170141183460469231731687303715884105727;\n"
	ts, err := Lex(src)
	if err != nil {
		t.Fatal(err)
	}
	var floats, strs, chars, ints int
	for _, tok := range ts {
		switch tok.Kind {
		case token.FloatValue:
			floats++
		case token.StrValue:
			strs++
			if tok.Lexeme != "a\nb" {
				t.Fatalf("string lexeme = %q", tok.Lexeme)
			}
		case token.CharValue:
			chars++
		case token.IntValue:
			ints++
			if tok.Lexeme != "170141183460469231731687303715884105727" {
				t.Fatalf("integer lexeme = %q", tok.Lexeme)
			}
		}
	}
	if floats != 1 || strs != 1 || chars != 1 || ints != 1 {
		t.Fatalf("literal counts: %d floats, %d strs, %d chars, %d ints", floats, strs, chars, ints)
	}
}

func TestLexKeywordOperators(t *testing.T) {
	ts, err := Lex("if not a and b or c:\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Kind{
		token.If, token.Not, token.Identifier, token.And, token.Identifier, token.Or,
		token.Identifier, token.Colon,
	}
	got := kinds(ts)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexErrors(t *testing.T) {
	if _, err := Lex("x = \"unterminated\n"); err == nil {
		t.Fatal("unterminated string should fail")
	}
	if _, err := Lex("x = 'ab';\n"); err == nil {
		t.Fatal("two-rune char literal should fail")
	}
}

func TestLexLineNumbers(t *testing.T) {
	ts, err := Lex("a\nbb\nccc\n")
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []int{1, 2, 3} {
		if ts[i].Line != want {
			t.Fatalf("token %d on line %d, want %d", i, ts[i].Line, want)
		}
	}
}
