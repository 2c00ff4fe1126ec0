package parser

import "fmt"

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	ILLEGAL

	// Punctuation
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	COLON    // :
	COMMA    // ,
	DOT      // .
	ARROW    // ->
	FATARROW // =>

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	ASSIGN  // =
	EQ      // ==
	NEQ     // !=
	LT      // <
	LTE     // <=
	GT      // >
	GTE     // >=
	AND     // &&
	OR      // ||
	BANG    // !

	// Literals and identifiers
	IDENT
	STRING // plain segment of a string literal
	NUMBER
	UNDERSCORE // `_`, wildcard in match patterns

	// Keywords
	KwAgent
	KwTool
	KwFn
	KwStruct
	KwEnum
	KwParallel
	KwLet
	KwIf
	KwElse
	KwWhile
	KwFor
	KwIn
	KwTry
	KwCatch
	KwMatch
	KwReturn
	KwBreak
	KwContinue
	KwTrue
	KwFalse
	KwNull
)

var keywords = map[string]TokenType{
	"agent":    KwAgent,
	"tool":     KwTool,
	"fn":       KwFn,
	"struct":   KwStruct,
	"enum":     KwEnum,
	"parallel": KwParallel,
	"let":      KwLet,
	"if":       KwIf,
	"else":     KwElse,
	"while":    KwWhile,
	"for":      KwFor,
	"in":       KwIn,
	"try":      KwTry,
	"catch":    KwCatch,
	"match":    KwMatch,
	"return":   KwReturn,
	"break":    KwBreak,
	"continue": KwContinue,
	"true":     KwTrue,
	"false":    KwFalse,
	"null":     KwNull,
}

var tokenNames = map[TokenType]string{
	EOF:        "end of input",
	ILLEGAL:    "illegal token",
	LPAREN:     "'('",
	RPAREN:     "')'",
	LBRACKET:   "'['",
	RBRACKET:   "']'",
	LBRACE:     "'{'",
	RBRACE:     "'}'",
	COLON:      "':'",
	COMMA:      "','",
	DOT:        "'.'",
	ARROW:      "'->'",
	FATARROW:   "'=>'",
	PLUS:       "'+'",
	MINUS:      "'-'",
	STAR:       "'*'",
	SLASH:      "'/'",
	PERCENT:    "'%'",
	ASSIGN:     "'='",
	EQ:         "'=='",
	NEQ:        "'!='",
	LT:         "'<'",
	LTE:        "'<='",
	GT:         "'>'",
	GTE:        "'>='",
	AND:        "'&&'",
	OR:         "'||'",
	BANG:       "'!'",
	IDENT:      "identifier",
	STRING:     "string literal",
	NUMBER:     "number literal",
	UNDERSCORE: "'_'",
}

func (t TokenType) String() string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	for kw, tt := range keywords {
		if tt == t {
			return fmt.Sprintf("'%s'", kw)
		}
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a lexical token carrying its raw text and source position.
type Token struct {
	Type   TokenType
	Lexeme string
	// Parts carries the decoded segments of a string literal, alternating
	// raw text and interpolation expressions (as source text). Nil for
	// non-string tokens.
	Parts  []StringSegment
	Line   int
	Column int
}

// StringSegment is a decoded piece of a string literal: raw text, or the
// source of an embedded {expr}.
type StringSegment struct {
	Text   string
	Expr   string
	IsExpr bool
	Line   int
	Column int
}
