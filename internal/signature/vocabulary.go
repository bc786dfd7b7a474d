package signature

import "flintc/internal/token"

// Basic building blocks, combined below into the full construct vocabulary the parser queries against.

var (
	TypePrim = Of("((", token.I32, ")|(", token.I64, ")|(", token.U32, ")|(", token.U64, ")|(", token.F32,
		")|(", token.F64, ")|(", token.Flint, ")|(", token.Str, ")|(", token.Char, ")|(", token.Bool, "))")

	Literal = Of("((", token.StrValue, ")|(", token.IntValue, ")|(", token.FloatValue, ")|(", token.CharValue,
		")|(", token.True, ")|(", token.False, "))")

	Type = Combine(Of("("), TypePrim, Of("|(", token.Identifier, "))"))

	OperationalBinop = Of("((", token.Plus, ")|(", token.Minus, ")|(", token.Mult, ")|(", token.Div, ")|(",
		token.Square, "))")

	RelationalBinop = Of("((", token.EqualEqual, ")|(", token.NotEqual, ")|(", token.Less, ")|(",
		token.LessEqual, ")|(", token.Greater, ")|(", token.GreaterEqual, "))")

	BooleanBinop = Of("((", token.And, ")|(", token.Or, "))")

	BinaryOperator = Combine(Of("("), OperationalBinop, Of("|"), RelationalBinop, Of("|"), BooleanBinop, Of(")"))

	UnaryOperator = Of("((", token.Increment, ")|(", token.Decrement, ")|(", token.Not, "))")

	Reference = Of(token.Identifier, "(", token.Colon, token.Colon, token.Identifier, ")+")

	Args = Combine(Type, Of(token.Identifier, "(", token.Comma), Type, Of(token.Identifier, ")*"))

	NoPrimArgs = Of(token.Identifier, token.Identifier, "(", token.Comma, token.Identifier, token.Identifier, ")*")

	Group = Combine(Of(token.LeftParen), Type, Of("(", token.Comma), Type, Of(")*", token.RightParen))
)

// Definitions.

var (
	UseStatement = Of(token.Use, "((", token.StrValue, ")|(((", token.Identifier, ")|(", token.Flint,
		"))(", token.Dot, token.Identifier, ")*))")

	FunctionDefinition = Combine(
		Of("(", token.Aligned, ")?", "(", token.Const, ")?", token.Def, token.Identifier, token.LeftParen, "("),
		Args,
		Of(")?", token.RightParen, "((", token.Arrow), Group, Of(token.Colon, ")|(", token.Arrow), Type,
		Of(token.Colon, ")|(", token.Colon, "))"),
	)

	DataDefinition = Of("((", token.Shared, ")|(", token.Immutable, "))?(", token.Aligned, ")?", token.Data,
		token.Identifier, token.Colon)

	FuncDefinition = Combine(
		Of(token.Func, token.Identifier, "(", token.Requires, token.LeftParen), NoPrimArgs,
		Of(token.RightParen, ")?", token.Colon),
	)

	ErrorDefinition = Of(token.Error, token.Identifier, "(", token.LeftParen, token.Identifier, token.RightParen,
		")?", token.Colon)

	EnumDefinition    = Of(token.Enum, token.Identifier, token.Colon)
	VariantDefinition = Of(token.Variant, token.Identifier, token.Colon)
	TestDefinition    = Of(token.Test, token.StrValue, token.Colon)

	EntityDefinition = Combine(
		Of(token.Entity, token.Identifier, "(", token.Extends, token.LeftParen), NoPrimArgs,
		Of(token.RightParen, ")?", token.Colon),
	)
)

// Statements.

var (
	DeclarationWithoutInitializer = Combine(Type, Of(token.Identifier, token.Semicolon))
	DeclarationExplicit           = Combine(Type, Of(token.Identifier, token.Equal))
	DeclarationInferred           = Of(token.Identifier, token.ColonEqual)
	Assignment                    = Of(token.Identifier, token.Equal)

	ForLoop = Combine(
		Of(token.For), MatchUntilSignature(Of(token.Semicolon)), MatchUntilSignature(Of(token.Semicolon)),
		MatchUntilSignature(Of(token.Colon)),
	)

	EnhancedForLoop = Combine(
		Of(token.For, "((", token.Underscore, ")|(", token.Identifier, "))", token.Comma, "((", token.Underscore,
			")|(", token.Identifier, "))", token.In),
		MatchUntilSignature(Of(token.Colon)),
	)

	ParForLoop = Combine(Of(token.Parallel), EnhancedForLoop)
	WhileLoop  = Combine(Of(token.While), MatchUntilSignature(Of(token.Colon)))
	IfStatement     = Combine(Of(token.If), MatchUntilSignature(Of(token.Colon)))
	ElseIfStatement = Combine(Of(token.Else, token.If), MatchUntilSignature(Of(token.Colon)))
	ElseStatement   = Combine(Of(token.Else), MatchUntilSignature(Of(token.Colon)))
	ReturnStatement = Combine(Of(token.Return), MatchUntilSignature(Of(token.Semicolon)))
	ThrowStatement  = Combine(Of(token.Throw), MatchUntilSignature(Of(token.Semicolon)))
)

// Expressions.

var (
	AnyToken = Of(`#\S+ ?`)

	Expression = Combine(Of("("), AnyToken, Of(")*"))

	FunctionCall = Combine(Of(token.Identifier, token.LeftParen, "("), Expression, Of(")?", token.RightParen))

	TypeCast = Combine(TypePrim, Of(token.LeftParen, "("), Expression, Of(")", token.RightParen))

	BinOpExpr = Combine(Expression, BinaryOperator, Expression)

	UnaryOpExpr = Combine(Of("(("), Expression, UnaryOperator, Of(")|("), UnaryOperator, Expression, Of("))"))

	LiteralExpr = Combine(
		Of("(("), Literal, Of("("), BinaryOperator, Literal, Of(")*)|("), UnaryOperator, Literal,
		Of(")|("), Literal, UnaryOperator, Of("))"),
	)

	// VariableExpr matches a bare identifier. Distinguishing it from the start of a function call requires
	// a negative lookahead ("identifier not followed by '('"), which RE2 cannot express; callers needing
	// that distinction use IsVariableReference instead of matching this signature directly.
	VariableExpr = Of(token.Identifier)

	CatchStatement = Combine(FunctionCall, Of(token.Catch, "(", token.Identifier, ")?", token.Colon))
)

// IsVariableReference reports whether the token at idx is an identifier that is not the start of a
// function call, i.e. is not immediately followed by '('. This replaces the negative-lookahead form of
// VariableExpr that a backtracking regex engine could express directly.
func IsVariableReference(tokens []token.Token, idx int) bool {
	if idx < 0 || idx >= len(tokens) || tokens[idx].Kind != token.Identifier {
		return false
	}
	return idx+1 >= len(tokens) || tokens[idx+1].Kind != token.LeftParen
}
