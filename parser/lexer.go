package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes Strand source text. It operates on Unicode scalar values
// and tracks line/column positions for diagnostics.
type Lexer struct {
	src    string
	offset int // byte offset of the current rune
	line   int
	column int
}

// NewLexer returns a lexer over the given source text.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, column: 1}
}

// Tokens lexes the whole input. The returned slice always ends with an EOF
// token. The first ILLEGAL token stops the scan.
func (l *Lexer) Tokens() ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == ILLEGAL {
			return toks, nil
		}
	}
}

func (l *Lexer) peek() rune {
	if l.offset >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.offset:])
	return r
}

func (l *Lexer) peekAt(n int) rune {
	off := l.offset
	for i := 0; i < n; i++ {
		if off >= len(l.src) {
			return 0
		}
		_, w := utf8.DecodeRuneInString(l.src[off:])
		off += w
	}
	if off >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[off:])
	return r
}

func (l *Lexer) advance() rune {
	if l.offset >= len(l.src) {
		return 0
	}
	r, w := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += w
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *Lexer) skipSpaceAndComments() {
	for {
		r := l.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '/' && l.peekAt(1) == '/':
			for l.peek() != '\n' && l.peek() != 0 {
				l.advance()
			}
		case r == '#':
			for l.peek() != '\n' && l.peek() != 0 {
				l.advance()
			}
		default:
			return
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.skipSpaceAndComments()

	line, col := l.line, l.column
	r := l.peek()
	if r == 0 {
		return Token{Type: EOF, Line: line, Column: col}, nil
	}

	switch {
	case r == '"':
		return l.lexString(line, col)
	case unicode.IsDigit(r):
		return l.lexNumber(line, col), nil
	case r == '_' && !isIdentPart(l.peekAt(1)):
		l.advance()
		return Token{Type: UNDERSCORE, Lexeme: "_", Line: line, Column: col}, nil
	case isIdentStart(r):
		return l.lexIdent(line, col), nil
	}

	l.advance()
	mk := func(t TokenType, lex string) Token {
		return Token{Type: t, Lexeme: lex, Line: line, Column: col}
	}

	switch r {
	case '(':
		return mk(LPAREN, "("), nil
	case ')':
		return mk(RPAREN, ")"), nil
	case '[':
		return mk(LBRACKET, "["), nil
	case ']':
		return mk(RBRACKET, "]"), nil
	case '{':
		return mk(LBRACE, "{"), nil
	case '}':
		return mk(RBRACE, "}"), nil
	case ':':
		return mk(COLON, ":"), nil
	case ',':
		return mk(COMMA, ","), nil
	case '.':
		return mk(DOT, "."), nil
	case '+':
		return mk(PLUS, "+"), nil
	case '*':
		return mk(STAR, "*"), nil
	case '/':
		return mk(SLASH, "/"), nil
	case '%':
		return mk(PERCENT, "%"), nil
	case '-':
		if l.peek() == '>' {
			l.advance()
			return mk(ARROW, "->"), nil
		}
		return mk(MINUS, "-"), nil
	case '=':
		if l.peek() == '=' {
			l.advance()
			return mk(EQ, "=="), nil
		}
		if l.peek() == '>' {
			l.advance()
			return mk(FATARROW, "=>"), nil
		}
		return mk(ASSIGN, "="), nil
	case '!':
		if l.peek() == '=' {
			l.advance()
			return mk(NEQ, "!="), nil
		}
		return mk(BANG, "!"), nil
	case '<':
		if l.peek() == '=' {
			l.advance()
			return mk(LTE, "<="), nil
		}
		return mk(LT, "<"), nil
	case '>':
		if l.peek() == '=' {
			l.advance()
			return mk(GTE, ">="), nil
		}
		return mk(GT, ">"), nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return mk(AND, "&&"), nil
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return mk(OR, "||"), nil
		}
	}

	return Token{Type: ILLEGAL, Lexeme: string(r), Line: line, Column: col},
		&SyntaxError{Line: line, Column: col, Expected: "a token", Found: "'" + string(r) + "'"}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) lexIdent(line, col int) Token {
	start := l.offset
	for isIdentPart(l.peek()) {
		l.advance()
	}
	word := l.src[start:l.offset]
	if kw, ok := keywords[word]; ok {
		return Token{Type: kw, Lexeme: word, Line: line, Column: col}
	}
	return Token{Type: IDENT, Lexeme: word, Line: line, Column: col}
}

func (l *Lexer) lexNumber(line, col int) Token {
	start := l.offset
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	return Token{Type: NUMBER, Lexeme: l.src[start:l.offset], Line: line, Column: col}
}

// lexString handles normal `"..."` and multiline `"""..."""` literals,
// decoding escapes and splitting out `{name}` interpolations.
func (l *Lexer) lexString(line, col int) (Token, error) {
	l.advance() // opening quote
	triple := false
	if l.peek() == '"' && l.peekAt(1) == '"' {
		l.advance()
		l.advance()
		triple = true
	} else if l.peek() == '"' {
		// empty string
		l.advance()
		return Token{Type: STRING, Lexeme: "", Parts: []StringSegment{{Text: "", Line: line, Column: col}}, Line: line, Column: col}, nil
	}

	var parts []StringSegment
	var text strings.Builder
	flushText := func() {
		parts = append(parts, StringSegment{Text: text.String(), Line: line, Column: col})
		text.Reset()
	}

	for {
		r := l.peek()
		if r == 0 {
			return Token{}, &SyntaxError{Line: l.line, Column: l.column, Expected: "closing quote", Found: "end of input"}
		}
		if !triple && r == '\n' {
			return Token{}, &SyntaxError{Line: l.line, Column: l.column, Expected: "closing quote", Found: "newline"}
		}
		if r == '"' {
			if !triple {
				l.advance()
				break
			}
			if l.peekAt(1) == '"' && l.peekAt(2) == '"' {
				l.advance()
				l.advance()
				l.advance()
				break
			}
			text.WriteRune(l.advance())
			continue
		}
		if r == '\\' {
			l.advance()
			switch esc := l.advance(); esc {
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case 'r':
				text.WriteByte('\r')
			case '"':
				text.WriteByte('"')
			case '\\':
				text.WriteByte('\\')
			case '{':
				text.WriteByte('{')
			default:
				text.WriteByte('\\')
				text.WriteRune(esc)
			}
			continue
		}
		if r == '{' {
			exprLine, exprCol := l.line, l.column
			l.advance()
			var expr strings.Builder
			depth := 1
			for depth > 0 {
				c := l.peek()
				if c == 0 {
					return Token{}, &SyntaxError{Line: l.line, Column: l.column, Expected: "'}'", Found: "end of input"}
				}
				if c == '{' {
					depth++
				}
				if c == '}' {
					depth--
					if depth == 0 {
						l.advance()
						break
					}
				}
				expr.WriteRune(l.advance())
			}
			flushText()
			parts = append(parts, StringSegment{Expr: strings.TrimSpace(expr.String()), IsExpr: true, Line: exprLine, Column: exprCol})
			continue
		}
		text.WriteRune(l.advance())
	}

	flushText()
	raw := assembleRaw(parts)
	if triple {
		parts = dedentParts(parts)
		raw = assembleRaw(parts)
	}
	return Token{Type: STRING, Lexeme: raw, Parts: parts, Line: line, Column: col}, nil
}

func assembleRaw(parts []StringSegment) string {
	var b strings.Builder
	for _, p := range parts {
		if p.IsExpr {
			b.WriteByte('{')
			b.WriteString(p.Expr)
			b.WriteByte('}')
		} else {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// dedentParts trims the common leading whitespace of a triple-quoted string
// along with its first and last blank lines, so prompts can be indented with
// the surrounding code.
func dedentParts(parts []StringSegment) []StringSegment {
	if len(parts) == 0 {
		return parts
	}
	// Only text segments participate in indentation; measure on full text.
	full := assembleRaw(parts)
	lines := strings.Split(full, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	indent := -1
	for _, ln := range lines {
		trimmed := strings.TrimLeft(ln, " \t")
		if trimmed == "" {
			continue
		}
		n := len(ln) - len(trimmed)
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 && len(lines) > 0 {
		indent = 0
	}

	// Rebuild parts by re-lexing the dedented text; interpolation markers in
	// text were preserved by assembleRaw so splitting again is safe.
	var b strings.Builder
	for i, ln := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if len(ln) >= indent {
			b.WriteString(ln[indent:])
		} else {
			b.WriteString(strings.TrimLeft(ln, " \t"))
		}
	}
	return splitInterpolations(b.String(), parts[0].Line, parts[0].Column)
}

func splitInterpolations(s string, line, col int) []StringSegment {
	var parts []StringSegment
	var text strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '{' {
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				text.WriteByte(s[i])
				i++
				continue
			}
			parts = append(parts, StringSegment{Text: text.String(), Line: line, Column: col})
			text.Reset()
			parts = append(parts, StringSegment{Expr: strings.TrimSpace(s[i+1 : i+end]), IsExpr: true, Line: line, Column: col})
			i += end + 1
			continue
		}
		text.WriteByte(s[i])
		i++
	}
	parts = append(parts, StringSegment{Text: text.String(), Line: line, Column: col})
	return parts
}
