package signature

import (
	"testing"

	"flintc/internal/token"
)

func tok(k token.Kind, lexeme string, line int) token.Token {
	return token.Token{Kind: k, Lexeme: lexeme, Line: line}
}

func TestStringifyRoundTrip(t *testing.T) {
	toks := []token.Token{
		tok(token.Def, "", 1),
		tok(token.Identifier, "add", 1),
	}
	got := Stringify(toks)
	if got != "#7 #2(add)" {
		t.Fatalf("Stringify = %q", got)
	}
}

func TestTokensMatchSimpleSequence(t *testing.T) {
	toks := []token.Token{tok(token.Identifier, "x", 1), tok(token.Equal, "", 1)}
	if !TokensMatch(toks, Assignment) {
		t.Fatalf("expected Assignment to match identifier = ")
	}
}

func TestTokensMatchImpliesContain(t *testing.T) {
	toks := []token.Token{tok(token.Identifier, "x", 1), tok(token.Equal, "", 1)}
	if TokensMatch(toks, Assignment) && !TokensContain(toks, Assignment) {
		t.Fatal("tokens_match must imply tokens_contain")
	}
}

func TestEnhancedForLoopMatchRange(t *testing.T) {
	// for i, x in xs: ... body ...
	toks := []token.Token{
		tok(token.For, "", 1), tok(token.Identifier, "i", 1), tok(token.Comma, "", 1),
		tok(token.Identifier, "x", 1), tok(token.In, "", 1), tok(token.Identifier, "xs", 1),
		tok(token.Colon, "", 1),
		tok(token.Identifier, "body", 2),
	}
	ranges := GetMatchRanges(toks, EnhancedForLoop)
	if len(ranges) != 1 {
		t.Fatalf("expected exactly one match range, got %d", len(ranges))
	}
	if ranges[0].Lo != 0 || ranges[0].Hi != 7 {
		t.Fatalf("expected range [0,7) covering 'for ... :', got [%d,%d)", ranges[0].Lo, ranges[0].Hi)
	}
}

func TestMatchRangesNonOverlappingIncreasing(t *testing.T) {
	toks := []token.Token{
		tok(token.Identifier, "a", 1), tok(token.Equal, "", 1),
		tok(token.Identifier, "b", 2), tok(token.Equal, "", 2),
	}
	ranges := GetMatchRanges(toks, Assignment)
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Lo < ranges[i-1].Hi {
			t.Fatalf("ranges overlap or are out of order: %v", ranges)
		}
		if ranges[i].Lo <= ranges[i-1].Lo {
			t.Fatalf("ranges not strictly increasing by start index: %v", ranges)
		}
	}
}

func TestBalancedRangeExtraction(t *testing.T) {
	// ( a ( b ) c )
	toks := []token.Token{
		tok(token.LeftParen, "", 1), tok(token.Identifier, "a", 1),
		tok(token.LeftParen, "", 1), tok(token.Identifier, "b", 1), tok(token.RightParen, "", 1),
		tok(token.Identifier, "c", 1), tok(token.RightParen, "", 1),
	}
	r, ok := BalancedRangeExtraction(toks, Of(token.LeftParen), Of(token.RightParen))
	if !ok {
		t.Fatal("expected a balanced region")
	}
	if r.Lo != 0 || r.Hi != 7 {
		t.Fatalf("expected [0,7), got [%d,%d)", r.Lo, r.Hi)
	}
}

func TestBalancedRangeExtractionUnbalanced(t *testing.T) {
	toks := []token.Token{tok(token.LeftParen, "", 1), tok(token.Identifier, "a", 1)}
	_, ok := BalancedRangeExtraction(toks, Of(token.LeftParen), Of(token.RightParen))
	if ok {
		t.Fatal("unbalanced input should not produce a match")
	}
}

func TestGetTokensLineRange(t *testing.T) {
	toks := []token.Token{
		tok(token.Identifier, "a", 1), tok(token.Equal, "", 1),
		tok(token.Identifier, "b", 2),
	}
	r, ok := GetTokensLineRange(toks, 1)
	if !ok || r.Lo != 0 || r.Hi != 2 {
		t.Fatalf("expected [0,2) for line 1, got ok=%v [%d,%d)", ok, r.Lo, r.Hi)
	}
}

func TestIsVariableReference(t *testing.T) {
	toks := []token.Token{tok(token.Identifier, "x", 1), tok(token.LeftParen, "", 1)}
	if IsVariableReference(toks, 0) {
		t.Fatal("identifier followed by '(' is a call, not a variable reference")
	}
	toks2 := []token.Token{tok(token.Identifier, "x", 1), tok(token.Equal, "", 1)}
	if !IsVariableReference(toks2, 0) {
		t.Fatal("identifier not followed by '(' should be a variable reference")
	}
}
