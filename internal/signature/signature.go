// Package signature implements the token-pattern matching facility used by the parser to recognize
// language constructs: definitions, statements and expressions are all described declaratively as ordered
// sequences of token kinds and free-form regex fragments, then matched against the stringified token
// stream produced by the lexer.
package signature

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flintc/internal/token"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Elem is one element of a Signature: either a token Kind to match, or a literal regex fragment spliced
// in verbatim (grouping parens, quantifiers, alternation bars and the like).
type Elem struct {
	kind    token.Kind
	literal string
	isKind  bool
}

// Signature is an ordered sequence of Elem that compiles to a single regular expression over the
// stringified token stream.
type Signature []Elem

// Range is a half-open token index range [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// ---------------------------
// ----- Elem constructors -----
// ---------------------------

// K wraps a token kind as a signature element.
func K(k token.Kind) Elem { return Elem{kind: k, isKind: true} }

// Lit wraps a literal regex fragment as a signature element.
func Lit(s string) Elem { return Elem{literal: s} }

// Of builds a Signature from a mix of token.Kind and string arguments, mirroring the teacher's style of
// writing signatures as an initializer list of mixed-type fragments.
func Of(parts ...interface{}) Signature {
	sig := make(Signature, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case token.Kind:
			sig = append(sig, K(v))
		case string:
			sig = append(sig, Lit(v))
		case Elem:
			sig = append(sig, v)
		case Signature:
			sig = append(sig, v...)
		default:
			panic(fmt.Sprintf("signature: unsupported element type %T", p))
		}
	}
	return sig
}

// Combine concatenates any number of signatures (and/or raw parts accepted by Of) into one.
func Combine(sigs ...Signature) Signature {
	out := Signature{}
	for _, s := range sigs {
		out = append(out, s...)
	}
	return out
}

// -----------------------------
// ----- Token stringification -----
// -----------------------------

// kindAnchorLiteral is the textual anchor a Kind is rendered as inside the stringified token stream, with
// no trailing lexeme group: "#<kind>".
func kindAnchorLiteral(k token.Kind) string {
	return "#" + strconv.Itoa(int(k))
}

// kindAnchor is the regex fragment matching a single occurrence of Kind k in the stringified token stream:
// the numeric anchor, a trailing \b so "#5" can never accidentally match inside "#50", an optional
// captured-lexeme group, and an optional trailing separator space so consecutive anchors in a Signature
// (which regexString concatenates directly, with no space of their own) still line up against the
// space-joined subject text Stringify produces.
func kindAnchor(k token.Kind) string {
	return regexp.QuoteMeta(kindAnchorLiteral(k)) + `\b(?:\([^)]*\))? ?`
}

// Stringify renders a token list as a single whitespace-separated encoded string: each token becomes
// "#<kind>" or, when it carries a lexeme, "#<kind>(<lexeme>)".
func Stringify(tokens []token.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Lexeme == "" {
			parts[i] = kindAnchorLiteral(t.Kind)
		} else {
			parts[i] = kindAnchorLiteral(t.Kind) + "(" + t.Lexeme + ")"
		}
	}
	return strings.Join(parts, " ")
}

// tokenOffsets returns, for a stringified token stream built by Stringify, the byte offset each token
// starts at, so that a byte range found by the regex engine can be converted back to a token index range.
func tokenOffsets(tokens []token.Token) []int {
	offsets := make([]int, len(tokens)+1)
	pos := 0
	for i, t := range tokens {
		offsets[i] = pos
		seg := kindAnchorLiteral(t.Kind)
		if t.Lexeme != "" {
			seg += "(" + t.Lexeme + ")"
		}
		pos += len(seg)
		if i != len(tokens)-1 {
			pos++ // separating space
		}
	}
	offsets[len(tokens)] = pos
	return offsets
}

// byteToTokenIndex maps a byte offset in the stringified form back to the token index it falls in, or the
// count of tokens if the offset is at (or past) the end of the stream.
func byteToTokenIndex(offsets []int, b int) int {
	for i := 0; i < len(offsets)-1; i++ {
		if b <= offsets[i] {
			return i
		}
	}
	return len(offsets) - 1
}

// -----------------------------
// ----- Regex compilation -----
// -----------------------------

// regexString lowers a Signature to the regular expression fragment it represents: token kinds become
// kindAnchor fragments (matching with or without a captured lexeme), free-form fragments are
// inserted verbatim since they are themselves already valid regex syntax by construction.
func regexString(sig Signature) string {
	sb := strings.Builder{}
	// Elements concatenate directly, mirroring how the original builds a regex string by plain
	// concatenation: grouping literals like "((" or ")*" must sit flush against their neighbours. A kind
	// anchor is self-delimiting (see kindAnchor) so it never needs an explicit separating space to avoid
	// matching a different, longer kind number.
	for _, e := range sig {
		if e.isKind {
			sb.WriteString(kindAnchor(e.kind))
		} else {
			sb.WriteString(e.literal)
		}
	}
	return sb.String()
}

// compile builds an anchored or unanchored *regexp.Regexp for sig. Anchored forms are used by
// TokensMatch; unanchored by TokensContain and the range-finding operations.
func compile(sig Signature, anchored bool) *regexp.Regexp {
	pattern := regexString(sig)
	if anchored {
		pattern = "^" + pattern + "$"
	}
	return regexp.MustCompile(pattern)
}

// ---------------------------
// ----- Public operations -----
// ---------------------------

// TokensContain reports whether sig matches any substring of the stringified form of tokens.
func TokensContain(tokens []token.Token, sig Signature) bool {
	return compile(sig, false).MatchString(Stringify(tokens))
}

// TokensMatch reports whether sig matches the entire stringified form of tokens.
func TokensMatch(tokens []token.Token, sig Signature) bool {
	return compile(sig, true).MatchString(Stringify(tokens))
}

// TokensContainInRange restricts TokensContain to the half-open token index range r.
func TokensContainInRange(tokens []token.Token, sig Signature, r Range) bool {
	return TokensContain(tokens[r.Lo:r.Hi], sig)
}

// GetMatchRanges returns every non-overlapping match of sig against tokens, in strictly increasing order
// of start index.
func GetMatchRanges(tokens []token.Token, sig Signature) []Range {
	return getMatchRangesIn(tokens, sig, Range{0, len(tokens)})
}

// GetMatchRangesInRange restricts GetMatchRanges to r.
func GetMatchRangesInRange(tokens []token.Token, sig Signature, r Range) []Range {
	return getMatchRangesIn(tokens, sig, r)
}

func getMatchRangesIn(tokens []token.Token, sig Signature, r Range) []Range {
	sub := tokens[r.Lo:r.Hi]
	offsets := tokenOffsets(sub)
	str := Stringify(sub)
	re := compile(sig, false)

	var ranges []Range
	for _, loc := range re.FindAllStringIndex(str, -1) {
		lo := byteToTokenIndex(offsets, loc[0])
		hi := byteToTokenIndex(offsets, loc[1])
		if loc[1] > offsets[hi] {
			hi++
		}
		ranges = append(ranges, Range{r.Lo + lo, r.Lo + hi})
	}
	return ranges
}

// GetNextMatchRange returns the first match range of sig against tokens, and whether one was found.
func GetNextMatchRange(tokens []token.Token, sig Signature) (Range, bool) {
	ranges := GetMatchRanges(tokens, sig)
	if len(ranges) == 0 {
		return Range{}, false
	}
	return ranges[0], true
}

// GetTokensLineRange returns the half-open token range whose source tokens all fall on the given line.
func GetTokensLineRange(tokens []token.Token, line int) (Range, bool) {
	lo := -1
	hi := -1
	for i, t := range tokens {
		if t.Line == line {
			if lo == -1 {
				lo = i
			}
			hi = i + 1
		} else if lo != -1 {
			break
		}
	}
	if lo == -1 {
		return Range{}, false
	}
	return Range{lo, hi}, true
}

// GetLineTokenIndices is a semantic alias for GetTokensLineRange used by callers that want to read "token
// indices" rather than "token range".
func GetLineTokenIndices(tokens []token.Token, line int) (Range, bool) {
	return GetTokensLineRange(tokens, line)
}

// GetLeadingIndents counts the leading Indent tokens on the given source line.
func GetLeadingIndents(tokens []token.Token, line int) (int, bool) {
	r, ok := GetTokensLineRange(tokens, line)
	if !ok {
		return 0, false
	}
	count := 0
	for i := r.Lo; i < r.Hi; i++ {
		if tokens[i].Kind != token.Indent {
			break
		}
		count++
	}
	return count, true
}

// BalancedRangeExtraction scans tokens linearly maintaining a depth counter: inc matches increment the
// depth, dec matches decrement it. It returns the half-open range of the first balanced region (from the
// first inc match to the dec match that brings depth back to zero), or false if unbalanced or absent. This
// is independent of the regex-based matching above: it is a pure linear scan.
func BalancedRangeExtraction(tokens []token.Token, inc, dec Signature) (Range, bool) {
	ranges := balancedRangesVec(tokens, inc, dec, true)
	if len(ranges) == 0 {
		return Range{}, false
	}
	return ranges[0], true
}

// BalancedRangeExtractionVec returns every top-level balanced region found by the same scan as
// BalancedRangeExtraction.
func BalancedRangeExtractionVec(tokens []token.Token, inc, dec Signature) []Range {
	return balancedRangesVec(tokens, inc, dec, false)
}

func balancedRangesVec(tokens []token.Token, inc, dec Signature, firstOnly bool) []Range {
	incRe := compile(inc, false)
	decRe := compile(dec, false)

	var ranges []Range
	depth := 0
	start := -1
	for i := range tokens {
		single := []token.Token{tokens[i]}
		str := Stringify(single)
		switch {
		case incRe.MatchString(str):
			if depth == 0 {
				start = i
			}
			depth++
		case decRe.MatchString(str):
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					ranges = append(ranges, Range{start, i + 1})
					start = -1
					if firstOnly {
						return ranges
					}
				}
			}
		}
	}
	return ranges
}

// MatchUntilSignature expands to a meta-signature matching a non-greedy run of tokens terminated by sig:
// it consumes tokens lazily until sig itself matches, sig included. Go's regexp engine (RE2) has no
// lookahead, so unlike a backtracking engine this cannot stop just short of sig without consuming it;
// callers that keep matching past the terminator chain their next element directly after it, as ForLoop
// in vocabulary.go does with its three clauses.
func MatchUntilSignature(sig Signature) Signature {
	wildcard := Lit(`(?:\S+ ?)*?`)
	return append(Signature{wildcard}, sig...)
}
