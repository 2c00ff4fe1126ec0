package parser

import (
	"fmt"
	"strconv"

	"github.com/strandlang/strand/ast"
)

// Parse turns Strand source text into a validated program. It fails fast on
// the first syntax error and rejects duplicate top-level names of the same
// declaration kind.
func Parse(source string) (*ast.Program, error) {
	toks, err := NewLexer(source).Tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: toks}
	return p.parseProgram()
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) cur() Token { return p.tokens[p.pos] }
func (p *parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(t TokenType) bool { return p.cur().Type == t }

func (p *parser) accept(t TokenType) (Token, bool) {
	if p.at(t) {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *parser) expect(t TokenType) (Token, error) {
	if p.at(t) {
		return p.advance(), nil
	}
	return Token{}, p.errExpected(t.String())
}

func (p *parser) errExpected(what string) error {
	c := p.cur()
	found := c.Type.String()
	if c.Type == IDENT || c.Type == NUMBER {
		found = fmt.Sprintf("'%s'", c.Lexeme)
	}
	return &SyntaxError{Line: c.Line, Column: c.Column, Expected: what, Found: found}
}

func (p *parser) posOf(t Token) ast.Pos { return ast.Pos{Line: t.Line, Column: t.Column} }

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	seen := map[string]string{} // "kind name" -> kind, duplicate detection
	for !p.at(EOF) {
		stmt, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		if kind, name := declKey(stmt); kind != "" {
			key := kind + " " + name
			if _, dup := seen[key]; dup {
				c := p.cur()
				return nil, &SyntaxError{
					Line: c.Line, Column: c.Column,
					Expected: fmt.Sprintf("unique %s name", kind),
					Found:    fmt.Sprintf("duplicate %s '%s'", kind, name),
				}
			}
			seen[key] = kind
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func declKey(s ast.Statement) (kind, name string) {
	switch d := s.(type) {
	case *ast.AgentDecl:
		return "agent", d.Name
	case *ast.ToolDecl:
		return "tool", d.Name
	case *ast.FnDecl:
		return "fn", d.Name
	case *ast.StructDecl:
		return "struct", d.Name
	case *ast.EnumDecl:
		return "enum", d.Name
	case *ast.ParallelDecl:
		return "parallel", d.Name
	}
	return "", ""
}

func (p *parser) parseTopLevel() (ast.Statement, error) {
	switch p.cur().Type {
	case KwAgent:
		return p.parseAgentDecl()
	case KwTool:
		return p.parseToolDecl()
	case KwFn:
		return p.parseFnDecl()
	case KwStruct:
		return p.parseStructDecl()
	case KwEnum:
		return p.parseEnumDecl()
	case KwParallel:
		return p.parseParallelDecl()
	default:
		return p.parseStatement()
	}
}

// --- declarations ---

func (p *parser) parseAgentDecl() (ast.Statement, error) {
	kw := p.advance()
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(LBRACE); err != nil {
		return nil, err
	}

	decl := &ast.AgentDecl{Name: name.Lexeme, MaxSteps: 0, OutputRetries: -1, Position: p.posOf(kw)}
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errExpected("'}'")
		}
		// `use a, b` is shorthand for tools.
		if p.at(IDENT) && p.cur().Lexeme == "use" && p.peek().Type == IDENT {
			p.advance()
			for {
				t, err := p.expect(IDENT)
				if err != nil {
					return nil, err
				}
				decl.Tools = append(decl.Tools, t.Lexeme)
				if _, ok := p.accept(COMMA); !ok {
					break
				}
			}
			continue
		}

		field, err := p.expect(IDENT)
		if err != nil {
			return nil, p.errExpected("agent field or '}'")
		}
		if _, err = p.expect(COLON); err != nil {
			return nil, err
		}
		if err := p.parseAgentField(decl, field); err != nil {
			return nil, err
		}
		p.accept(COMMA)
	}
	p.advance() // RBRACE

	if decl.SystemPrompt == nil {
		return nil, &SyntaxError{
			Line: kw.Line, Column: kw.Column,
			Expected: "a systemPrompt field in agent '" + decl.Name + "'",
			Found:    "none",
		}
	}
	return decl, nil
}

func (p *parser) parseAgentField(decl *ast.AgentDecl, field Token) error {
	switch field.Lexeme {
	case "systemPrompt", "prompt":
		expr, err := p.parseExpression()
		if err != nil {
			return err
		}
		decl.SystemPrompt = expr
	case "userPrompt":
		expr, err := p.parseExpression()
		if err != nil {
			return err
		}
		decl.UserPrompt = expr
	case "model":
		s, err := p.parseStaticString("model")
		if err != nil {
			return err
		}
		decl.Model = s
	case "provider":
		s, err := p.parseStaticString("provider")
		if err != nil {
			return err
		}
		decl.Provider = s
	case "retryPrompt":
		s, err := p.parseStaticString("retryPrompt")
		if err != nil {
			return err
		}
		decl.RetryPrompt = s
	case "outputInstructions":
		s, err := p.parseStaticString("outputInstructions")
		if err != nil {
			return err
		}
		decl.OutputInstructions = s
	case "maxSteps":
		n, err := p.parseIntLit("maxSteps")
		if err != nil {
			return err
		}
		decl.MaxSteps = n
	case "outputRetries":
		n, err := p.parseIntLit("outputRetries")
		if err != nil {
			return err
		}
		decl.OutputRetries = n
	case "tools":
		if _, err := p.expect(LBRACKET); err != nil {
			return err
		}
		for !p.at(RBRACKET) {
			t, err := p.expect(IDENT)
			if err != nil {
				return err
			}
			decl.Tools = append(decl.Tools, t.Lexeme)
			if _, ok := p.accept(COMMA); !ok {
				break
			}
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return err
		}
	case "output":
		schema, err := p.parseOutputSchema()
		if err != nil {
			return err
		}
		decl.Output = schema
	case "knowledge":
		kb, err := p.parseKnowledgeBinding()
		if err != nil {
			return err
		}
		decl.Knowledge = kb
	default:
		return &SyntaxError{
			Line: field.Line, Column: field.Column,
			Expected: "an agent field (systemPrompt, userPrompt, model, provider, tools, maxSteps, output, outputRetries, retryPrompt, knowledge)",
			Found:    "'" + field.Lexeme + "'",
		}
	}
	return nil
}

func (p *parser) parseStaticString(field string) (string, error) {
	tok, err := p.expect(STRING)
	if err != nil {
		return "", err
	}
	for _, part := range tok.Parts {
		if part.IsExpr {
			return "", &SyntaxError{
				Line: tok.Line, Column: tok.Column,
				Expected: "a plain string for " + field,
				Found:    "an interpolated string",
			}
		}
	}
	return tok.Lexeme, nil
}

func (p *parser) parseIntLit(field string) (int, error) {
	tok, err := p.expect(NUMBER)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil || f != float64(int(f)) || f < 0 {
		return 0, &SyntaxError{
			Line: tok.Line, Column: tok.Column,
			Expected: "a non-negative integer for " + field,
			Found:    "'" + tok.Lexeme + "'",
		}
	}
	return int(f), nil
}

func (p *parser) parseOutputSchema() (*ast.OutputSchema, error) {
	pos := p.posOf(p.cur())
	if name, ok := p.accept(IDENT); ok {
		return &ast.OutputSchema{StructName: name.Lexeme, Position: pos}, nil
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, p.errExpected("a struct name or an inline field list")
	}
	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	return &ast.OutputSchema{Fields: fields, Position: pos}, nil
}

// parseFieldList parses `name: type` pairs up to and including the closing
// brace, used by struct bodies and inline output schemas.
func (p *parser) parseFieldList() ([]ast.StructField, error) {
	var fields []ast.StructField
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errExpected("'}'")
		}
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(COLON); err != nil {
			return nil, err
		}
		tr, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructField{Name: name.Lexeme, Type: tr, Position: p.posOf(name)})
		p.accept(COMMA)
	}
	p.advance() // RBRACE
	return fields, nil
}

func (p *parser) parseKnowledgeBinding() (*ast.KnowledgeBinding, error) {
	open, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	kb := &ast.KnowledgeBinding{Position: p.posOf(open)}
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errExpected("'}'")
		}
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(COLON); err != nil {
			return nil, err
		}
		switch name.Lexeme {
		case "source":
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			kb.Source = expr
		case "chunkLimit":
			n, err := p.parseIntLit("chunkLimit")
			if err != nil {
				return nil, err
			}
			kb.ChunkLimit = n
		case "scoreThreshold":
			tok, err := p.expect(NUMBER)
			if err != nil {
				return nil, err
			}
			f, err := strconv.ParseFloat(tok.Lexeme, 64)
			if err != nil {
				return nil, p.errExpected("a number for scoreThreshold")
			}
			kb.ScoreThreshold = f
		default:
			return nil, &SyntaxError{
				Line: name.Line, Column: name.Column,
				Expected: "source, chunkLimit, or scoreThreshold",
				Found:    "'" + name.Lexeme + "'",
			}
		}
		p.accept(COMMA)
	}
	p.advance()
	if kb.Source == nil {
		return nil, &SyntaxError{
			Line: open.Line, Column: open.Column,
			Expected: "a 'source' field in the knowledge binding",
			Found:    "none",
		}
	}
	return kb, nil
}

func (p *parser) parseToolDecl() (ast.Statement, error) {
	kw := p.advance()
	name, params, ret, body, err := p.parseCallableDecl()
	if err != nil {
		return nil, err
	}
	return &ast.ToolDecl{Name: name, Params: params, ReturnType: ret, Body: body, Position: p.posOf(kw)}, nil
}

func (p *parser) parseFnDecl() (ast.Statement, error) {
	kw := p.advance()
	name, params, ret, body, err := p.parseCallableDecl()
	if err != nil {
		return nil, err
	}
	return &ast.FnDecl{Name: name, Params: params, ReturnType: ret, Body: body, Position: p.posOf(kw)}, nil
}

func (p *parser) parseCallableDecl() (string, []ast.Param, *ast.TypeRef, *ast.Block, error) {
	name, err := p.expect(IDENT)
	if err != nil {
		return "", nil, nil, nil, err
	}
	if _, err = p.expect(LPAREN); err != nil {
		return "", nil, nil, nil, err
	}
	var params []ast.Param
	for !p.at(RPAREN) {
		pn, err := p.expect(IDENT)
		if err != nil {
			return "", nil, nil, nil, err
		}
		var tr *ast.TypeRef
		if _, ok := p.accept(COLON); ok {
			tr, err = p.parseTypeRef()
			if err != nil {
				return "", nil, nil, nil, err
			}
		}
		params = append(params, ast.Param{Name: pn.Lexeme, Type: tr, Position: p.posOf(pn)})
		if _, ok := p.accept(COMMA); !ok {
			break
		}
	}
	if _, err = p.expect(RPAREN); err != nil {
		return "", nil, nil, nil, err
	}
	var ret *ast.TypeRef
	if _, ok := p.accept(ARROW); ok {
		ret, err = p.parseTypeRef()
		if err != nil {
			return "", nil, nil, nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return "", nil, nil, nil, err
	}
	return name.Lexeme, params, ret, body, nil
}

func (p *parser) parseStructDecl() (ast.Statement, error) {
	kw := p.advance()
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(LBRACE); err != nil {
		return nil, err
	}
	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	return &ast.StructDecl{Name: name.Lexeme, Fields: fields, Position: p.posOf(kw)}, nil
}

func (p *parser) parseEnumDecl() (ast.Statement, error) {
	kw := p.advance()
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(LBRACE); err != nil {
		return nil, err
	}
	decl := &ast.EnumDecl{Name: name.Lexeme, Position: p.posOf(kw)}
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errExpected("'}'")
		}
		vn, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		variant := ast.EnumVariant{Name: vn.Lexeme, Position: p.posOf(vn)}
		if _, ok := p.accept(LPAREN); ok {
			for !p.at(RPAREN) {
				// Either `name: type` or an anonymous `type`.
				if p.at(IDENT) && p.peek().Type == COLON {
					fn := p.advance()
					p.advance() // COLON
					tr, err := p.parseTypeRef()
					if err != nil {
						return nil, err
					}
					variant.Fields = append(variant.Fields, ast.EnumField{Name: fn.Lexeme, Type: tr})
				} else {
					tr, err := p.parseTypeRef()
					if err != nil {
						return nil, err
					}
					variant.Fields = append(variant.Fields, ast.EnumField{Type: tr})
				}
				if _, ok := p.accept(COMMA); !ok {
					break
				}
			}
			if _, err = p.expect(RPAREN); err != nil {
				return nil, err
			}
		}
		decl.Variants = append(decl.Variants, variant)
		p.accept(COMMA)
	}
	p.advance()
	return decl, nil
}

func (p *parser) parseParallelDecl() (ast.Statement, error) {
	kw := p.advance()
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(LBRACE); err != nil {
		return nil, err
	}
	decl := &ast.ParallelDecl{Name: name.Lexeme, TimeoutMS: 60_000, Position: p.posOf(kw)}
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errExpected("'}'")
		}
		field, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(COLON); err != nil {
			return nil, err
		}
		switch field.Lexeme {
		case "agents":
			if _, err := p.expect(LBRACKET); err != nil {
				return nil, err
			}
			for !p.at(RBRACKET) {
				expr, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				decl.Agents = append(decl.Agents, expr)
				if _, ok := p.accept(COMMA); !ok {
					break
				}
			}
			if _, err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
		case "timeout":
			n, err := p.parseIntLit("timeout")
			if err != nil {
				return nil, err
			}
			decl.TimeoutMS = int64(n)
		default:
			return nil, &SyntaxError{
				Line: field.Line, Column: field.Column,
				Expected: "agents or timeout",
				Found:    "'" + field.Lexeme + "'",
			}
		}
		p.accept(COMMA)
	}
	p.advance()
	if len(decl.Agents) == 0 {
		return nil, &SyntaxError{
			Line: kw.Line, Column: kw.Column,
			Expected: "an 'agents' list in parallel '" + decl.Name + "'",
			Found:    "none",
		}
	}
	return decl, nil
}

// --- types ---

func (p *parser) parseTypeRef() (*ast.TypeRef, error) {
	pos := p.posOf(p.cur())
	var base *ast.TypeRef
	if _, ok := p.accept(LBRACE); ok {
		fields, err := p.parseFieldList()
		if err != nil {
			return nil, err
		}
		base = &ast.TypeRef{Kind: ast.TypeInline, Fields: fields, Position: pos}
	} else {
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, p.errExpected("a type")
		}
		if kind, ok := ast.BuiltinType(name.Lexeme); ok {
			base = &ast.TypeRef{Kind: kind, Position: pos}
		} else {
			base = &ast.TypeRef{Kind: ast.TypeNamed, Name: name.Lexeme, Position: pos}
		}
	}
	for p.at(LBRACKET) && p.peek().Type == RBRACKET {
		p.advance()
		p.advance()
		base = &ast.TypeRef{Kind: ast.TypeArrayOf, Elem: base, Position: pos}
	}
	return base, nil
}

// --- statements ---

func (p *parser) parseBlock() (*ast.Block, error) {
	open, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	block := &ast.Block{Position: p.posOf(open)}
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errExpected("'}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	p.advance()
	return block, nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Type {
	case KwLet:
		kw := p.advance()
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(ASSIGN); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.LetStmt{Name: name.Lexeme, Value: value, Position: p.posOf(kw)}, nil

	case KwIf:
		return p.parseIf()

	case KwWhile:
		kw := p.advance()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Condition: cond, Body: body, Position: p.posOf(kw)}, nil

	case KwFor:
		kw := p.advance()
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(KwIn); err != nil {
			return nil, err
		}
		iterable, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ForInStmt{Name: name.Lexeme, Iterable: iterable, Body: body, Position: p.posOf(kw)}, nil

	case KwTry:
		kw := p.advance()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(KwCatch); err != nil {
			return nil, err
		}
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		catch, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.TryStmt{Body: body, CatchName: name.Lexeme, Catch: catch, Position: p.posOf(kw)}, nil

	case KwReturn:
		kw := p.advance()
		// A bare return is followed by '}' or another statement keyword.
		if p.at(RBRACE) || p.at(EOF) {
			return &ast.ReturnStmt{Position: p.posOf(kw)}, nil
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Value: value, Position: p.posOf(kw)}, nil

	case KwBreak:
		kw := p.advance()
		return &ast.BreakStmt{Position: p.posOf(kw)}, nil

	case KwContinue:
		kw := p.advance()
		return &ast.ContinueStmt{Position: p.posOf(kw)}, nil
	}

	// Assignment or expression statement.
	if p.at(IDENT) && p.peek().Type == ASSIGN {
		name := p.advance()
		p.advance() // ASSIGN
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{Name: name.Lexeme, Value: value, Position: p.posOf(name)}, nil
	}

	pos := p.posOf(p.cur())
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStmt{Expr: expr, Position: pos}, nil
}

func (p *parser) parseIf() (ast.Statement, error) {
	kw := p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Condition: cond, Then: then, Position: p.posOf(kw)}
	if _, ok := p.accept(KwElse); ok {
		if p.at(KwIf) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Else = elseIf
		} else {
			blk, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			stmt.Else = blk
		}
	}
	return stmt, nil
}

// --- expressions, precedence climbing ---

func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(OR) {
		op := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "||", Left: left, Right: right, Position: p.posOf(op)}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(AND) {
		op := p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "&&", Left: left, Right: right, Position: p.posOf(op)}
	}
	return left, nil
}

func (p *parser) parseEquality() (ast.Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(EQ) || p.at(NEQ) {
		op := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Lexeme, Left: left, Right: right, Position: p.posOf(op)}
	}
	return left, nil
}

func (p *parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(LT) || p.at(LTE) || p.at(GT) || p.at(GTE) {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Lexeme, Left: left, Right: right, Position: p.posOf(op)}
	}
	return left, nil
}

func (p *parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(PLUS) || p.at(MINUS) {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Lexeme, Left: left, Right: right, Position: p.posOf(op)}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(STAR) || p.at(SLASH) || p.at(PERCENT) {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op.Lexeme, Left: left, Right: right, Position: p.posOf(op)}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expression, error) {
	if p.at(BANG) || p.at(MINUS) {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op.Lexeme, Operand: operand, Position: p.posOf(op)}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Type {
		case DOT:
			p.advance()
			member, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			if p.at(LPAREN) {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				expr = &ast.MethodCallExpr{Receiver: expr, Method: member.Lexeme, Args: args, Position: p.posOf(member)}
			} else {
				expr = &ast.MemberExpr{Receiver: expr, Member: member.Lexeme, Position: p.posOf(member)}
			}
		case LPAREN:
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{Callee: expr, Args: args, Position: expr.Pos()}
		case LBRACKET:
			open := p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err = p.expect(RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{Receiver: expr, Index: index, Position: p.posOf(open)}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseArgs() ([]ast.Expression, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.at(RPAREN) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if _, ok := p.accept(COMMA); !ok {
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	tok := p.cur()
	switch tok.Type {
	case STRING:
		p.advance()
		return p.stringLit(tok)
	case NUMBER:
		p.advance()
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &SyntaxError{Line: tok.Line, Column: tok.Column, Expected: "a number", Found: "'" + tok.Lexeme + "'"}
		}
		return &ast.NumberLit{Value: f, Position: p.posOf(tok)}, nil
	case KwTrue, KwFalse:
		p.advance()
		return &ast.BoolLit{Value: tok.Type == KwTrue, Position: p.posOf(tok)}, nil
	case KwNull:
		p.advance()
		return &ast.NullLit{Position: p.posOf(tok)}, nil
	case IDENT:
		p.advance()
		return &ast.Ident{Name: tok.Lexeme, Position: p.posOf(tok)}, nil
	case KwMatch:
		return p.parseMatch()
	case LBRACKET:
		p.advance()
		lit := &ast.ArrayLit{Position: p.posOf(tok)}
		for !p.at(RBRACKET) {
			el, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, el)
			if _, ok := p.accept(COMMA); !ok {
				break
			}
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return lit, nil
	case LBRACE:
		p.advance()
		lit := &ast.ObjectLit{Position: p.posOf(tok)}
		for !p.at(RBRACE) {
			var key string
			switch {
			case p.at(IDENT):
				key = p.advance().Lexeme
			case p.at(STRING):
				k := p.advance()
				key = k.Lexeme
			default:
				return nil, p.errExpected("an object key")
			}
			if _, err := p.expect(COLON); err != nil {
				return nil, err
			}
			val, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			lit.Keys = append(lit.Keys, key)
			lit.Values = append(lit.Values, val)
			if _, ok := p.accept(COMMA); !ok {
				break
			}
		}
		if _, err := p.expect(RBRACE); err != nil {
			return nil, err
		}
		return lit, nil
	case LPAREN:
		if p.isLambda() {
			return p.parseLambda()
		}
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.errExpected("an expression")
}

// isLambda looks ahead from a '(' for `(ident, ...) =>`.
func (p *parser) isLambda() bool {
	i := p.pos + 1
	at := func(j int) Token {
		if j < len(p.tokens) {
			return p.tokens[j]
		}
		return p.tokens[len(p.tokens)-1]
	}
	if at(i).Type == RPAREN {
		return at(i+1).Type == FATARROW
	}
	for {
		if at(i).Type != IDENT {
			return false
		}
		i++
		switch at(i).Type {
		case COMMA:
			i++
		case RPAREN:
			return at(i+1).Type == FATARROW
		default:
			return false
		}
	}
}

func (p *parser) parseLambda() (ast.Expression, error) {
	open := p.advance() // LPAREN
	var params []string
	for !p.at(RPAREN) {
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, name.Lexeme)
		if _, ok := p.accept(COMMA); !ok {
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(FATARROW); err != nil {
		return nil, err
	}
	lambda := &ast.LambdaExpr{Params: params, Position: p.posOf(open)}
	if p.at(LBRACE) {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		lambda.Body = body
	} else {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		lambda.Expr = expr
	}
	return lambda, nil
}

func (p *parser) parseMatch() (ast.Expression, error) {
	kw := p.advance()
	subject, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err = p.expect(LBRACE); err != nil {
		return nil, err
	}
	expr := &ast.MatchExpr{Subject: subject, Position: p.posOf(kw)}
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errExpected("'}'")
		}
		pattern, err := p.parseMatchPattern()
		if err != nil {
			return nil, err
		}
		if _, err = p.expect(FATARROW); err != nil {
			return nil, err
		}
		arm := ast.MatchArm{Pattern: pattern, Position: pattern.Position}
		if p.at(LBRACE) {
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			arm.Body = body
		} else {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			arm.Expr = e
		}
		expr.Arms = append(expr.Arms, arm)
		p.accept(COMMA)
	}
	p.advance()
	if len(expr.Arms) == 0 {
		return nil, &SyntaxError{Line: kw.Line, Column: kw.Column, Expected: "at least one match arm", Found: "none"}
	}
	return expr, nil
}

func (p *parser) parseMatchPattern() (ast.MatchPattern, error) {
	tok := p.cur()
	pos := p.posOf(tok)
	switch tok.Type {
	case UNDERSCORE:
		p.advance()
		return ast.MatchPattern{Wildcard: true, Position: pos}, nil
	case IDENT:
		// Enum.Variant or Enum.Variant(bind, ...); a plain identifier is not
		// a valid pattern, scrutinee values are matched by literals.
		enum := p.advance()
		if _, err := p.expect(DOT); err != nil {
			return ast.MatchPattern{}, p.errExpected("'.' after enum name in pattern")
		}
		variant, err := p.expect(IDENT)
		if err != nil {
			return ast.MatchPattern{}, err
		}
		pat := ast.MatchPattern{EnumName: enum.Lexeme, Variant: variant.Lexeme, Position: pos}
		if _, ok := p.accept(LPAREN); ok {
			for !p.at(RPAREN) {
				b, err := p.expect(IDENT)
				if err != nil {
					return ast.MatchPattern{}, err
				}
				pat.Bindings = append(pat.Bindings, b.Lexeme)
				if _, ok := p.accept(COMMA); !ok {
					break
				}
			}
			if _, err = p.expect(RPAREN); err != nil {
				return ast.MatchPattern{}, err
			}
		}
		return pat, nil
	case STRING:
		p.advance()
		lit, err := p.stringLit(tok)
		if err != nil {
			return ast.MatchPattern{}, err
		}
		return ast.MatchPattern{Literal: lit, Position: pos}, nil
	case NUMBER:
		p.advance()
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return ast.MatchPattern{}, p.errExpected("a number")
		}
		return ast.MatchPattern{Literal: &ast.NumberLit{Value: f, Position: pos}, Position: pos}, nil
	case KwTrue, KwFalse:
		p.advance()
		return ast.MatchPattern{Literal: &ast.BoolLit{Value: tok.Type == KwTrue, Position: pos}, Position: pos}, nil
	case KwNull:
		p.advance()
		return ast.MatchPattern{Literal: &ast.NullLit{Position: pos}, Position: pos}, nil
	}
	return ast.MatchPattern{}, p.errExpected("a match pattern")
}

// stringLit converts a lexed string token into an AST literal, parsing any
// interpolated expressions.
func (p *parser) stringLit(tok Token) (ast.Expression, error) {
	lit := &ast.StringLit{Position: p.posOf(tok)}
	for _, seg := range tok.Parts {
		if !seg.IsExpr {
			if seg.Text != "" || len(tok.Parts) == 1 {
				lit.Parts = append(lit.Parts, ast.StringPart{Text: seg.Text})
			}
			continue
		}
		sub, err := Parse(seg.Expr)
		if err != nil {
			return nil, &SyntaxError{Line: seg.Line, Column: seg.Column, Expected: "an interpolation expression", Found: "'" + seg.Expr + "'"}
		}
		if len(sub.Statements) != 1 {
			return nil, &SyntaxError{Line: seg.Line, Column: seg.Column, Expected: "a single interpolation expression", Found: "'" + seg.Expr + "'"}
		}
		es, ok := sub.Statements[0].(*ast.ExpressionStmt)
		if !ok {
			return nil, &SyntaxError{Line: seg.Line, Column: seg.Column, Expected: "an interpolation expression", Found: "a statement"}
		}
		lit.Parts = append(lit.Parts, ast.StringPart{Expr: es.Expr})
	}
	return lit, nil
}
