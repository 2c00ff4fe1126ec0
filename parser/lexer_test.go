package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lex(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := NewLexer(src).Tokens()
	require.NoError(t, err)
	return toks
}

func TestLexerOperators(t *testing.T) {
	toks := lex(t, "a == b != c <= d >= e && f || !g -> =>")
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{
		IDENT, EQ, IDENT, NEQ, IDENT, LTE, IDENT, GTE, IDENT,
		AND, IDENT, OR, BANG, IDENT, ARROW, FATARROW, EOF,
	}, types)
}

func TestLexerKeywordsVsIdents(t *testing.T) {
	toks := lex(t, "agent tool fn let if else while for in match try catch return break continue true false null agents")
	assert.Equal(t, KwAgent, toks[0].Type)
	assert.Equal(t, KwTool, toks[1].Type)
	assert.Equal(t, KwFn, toks[2].Type)
	assert.Equal(t, KwLet, toks[3].Type)
	assert.Equal(t, KwTrue, toks[15].Type)
	assert.Equal(t, KwNull, toks[17].Type)
	// not a keyword, just looks like one
	assert.Equal(t, IDENT, toks[18].Type)
	assert.Equal(t, "agents", toks[18].Lexeme)
}

func TestLexerComments(t *testing.T) {
	toks := lex(t, "let x = 1 // trailing\n# whole line\nlet y = 2")
	var idents []string
	for _, tok := range toks {
		if tok.Type == IDENT {
			idents = append(idents, tok.Lexeme)
		}
	}
	assert.Equal(t, []string{"x", "y"}, idents)
}

func TestLexerNumbers(t *testing.T) {
	toks := lex(t, "0 42 3.14")
	assert.Equal(t, "0", toks[0].Lexeme)
	assert.Equal(t, "42", toks[1].Lexeme)
	assert.Equal(t, "3.14", toks[2].Lexeme)
	for _, tok := range toks[:3] {
		assert.Equal(t, NUMBER, tok.Type)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	toks := lex(t, `"a\nb\t\"c\" \{not interp}"`)
	require.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "a\nb\t\"c\" {not interp}", toks[0].Lexeme)
}

func TestLexerStringInterpolation(t *testing.T) {
	toks := lex(t, `"hello {name}, you are { age + 1 }"`)
	require.Equal(t, STRING, toks[0].Type)
	parts := toks[0].Parts
	require.Len(t, parts, 5)
	assert.Equal(t, "hello ", parts[0].Text)
	assert.True(t, parts[1].IsExpr)
	assert.Equal(t, "name", parts[1].Expr)
	assert.Equal(t, ", you are ", parts[2].Text)
	assert.Equal(t, "age + 1", parts[3].Expr)
	assert.Equal(t, "", parts[4].Text)
}

func TestLexerTripleQuoteDedent(t *testing.T) {
	src := "\"\"\"\n    You are a poet.\n    Keep it short.\n    \"\"\""
	toks := lex(t, src)
	require.Equal(t, STRING, toks[0].Type)
	assert.Equal(t, "You are a poet.\nKeep it short.", toks[0].Lexeme)
}

func TestLexerUnterminatedString(t *testing.T) {
	_, err := NewLexer(`"never closed`).Tokens()
	require.Error(t, err)
	serr := &SyntaxError{}
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "closing quote", serr.Expected)
}

func TestLexerIllegalRune(t *testing.T) {
	_, err := NewLexer("let x = 1 ~").Tokens()
	require.Error(t, err)
	serr := &SyntaxError{}
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Line)
	assert.Equal(t, 11, serr.Column)
}

func TestLexerPositions(t *testing.T) {
	toks := lex(t, "let x = 1\nlet y = 2")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 1, toks[0].Column)
	// second let
	assert.Equal(t, 2, toks[4].Line)
	assert.Equal(t, 1, toks[4].Column)
}

func TestLexerUnderscore(t *testing.T) {
	toks := lex(t, "_ _name")
	assert.Equal(t, UNDERSCORE, toks[0].Type)
	assert.Equal(t, IDENT, toks[1].Type)
	assert.Equal(t, "_name", toks[1].Lexeme)
}
