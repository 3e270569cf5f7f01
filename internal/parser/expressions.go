package parser

import (
	"math/big"
	"strings"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/token"
)

// Binary operator precedence, low to high.
const (
	LOWEST = iota
	OR
	AND
	EQUALS      // = <>
	LESSGREATER // < <= > >=
	CONCAT      // &
	SUM         // + -
	PRODUCT     // * / %
	POWER       // ^
)

var precedences = map[token.TokenType]int{
	token.OR:       OR,
	token.AND:      AND,
	token.ASSIGN:   EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.LT_EQ:    LESSGREATER,
	token.GT:       LESSGREATER,
	token.GT_EQ:    LESSGREATER,
	token.AMP:      CONCAT,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.CARET:    POWER,
}

// parseExpression is a precedence climb: parse a unary operand, then fold
// in binary operators of at least minPrec. ^ is right-associative.
func (p *Parser) parseExpression(minPrec int) ast.Expression {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		prec, ok := precedences[p.peekToken.Type]
		if !ok || prec < minPrec {
			return left
		}
		p.nextToken()
		opTok := p.curToken
		nextPrec := prec + 1
		if opTok.Type == token.CARET {
			nextPrec = prec // right-associative
		}
		p.nextToken()
		right := p.parseExpression(nextPrec)
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpression{Token: opTok, Operator: strings.ToLower(opTok.Lexeme), Left: left, Right: right}
	}
}

// parseUnary handles the prefix operators, which bind tighter than every
// binary operator.
func (p *Parser) parseUnary() ast.Expression {
	switch p.curToken.Type {
	case token.NOT, token.MINUS, token.AWAIT:
		tok := p.curToken
		op := strings.ToLower(tok.Lexeme)
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpression{Token: tok, Operator: op, Operand: operand}
	default:
		return p.parsePostfix(p.parseAtom())
	}
}

// parsePostfix folds member access and call suffixes, left-associatively.
func (p *Parser) parsePostfix(left ast.Expression) ast.Expression {
	if left == nil {
		return nil
	}
	for {
		switch p.peekToken.Type {
		case token.DOT:
			p.nextToken()
			dotTok := p.curToken
			if !p.expectPeek(token.IDENT) {
				return nil
			}
			left = &ast.AccessExpression{Token: dotTok, Object: left, Member: p.parseIdentifier()}
		case token.LPAREN:
			p.nextToken()
			call := &ast.InvokeExpression{Token: p.curToken, Callee: left}
			call.Arguments = p.parseCallArguments()
			left = call
		default:
			return left
		}
	}
}

func (p *Parser) parseCallArguments() []ast.Expression {
	var args []ast.Expression
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}
	p.nextToken()
	if arg := p.parseExpression(LOWEST); arg != nil {
		args = append(args, arg)
	}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		if arg := p.parseExpression(LOWEST); arg != nil {
			args = append(args, arg)
		}
	}
	if !p.expectPeek(token.RPAREN) {
		return args
	}
	return args
}

func (p *Parser) parseAtom() ast.Expression {
	switch p.curToken.Type {
	case token.NUMBER:
		return p.parseNumberLiteral()
	case token.STRING:
		return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.TRUE, token.FALSE:
		return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
	case token.IDENT:
		return p.parseIdentifier()
	case token.LPAREN:
		p.nextToken()
		expr := p.parseExpression(LOWEST)
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return expr
	case token.LBRACE:
		return p.parseBlock()
	case token.IF, token.LIST, token.OBJECT, token.WHERE:
		return p.parseMacro()
	default:
		p.curError("expected expression, got %s", describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseNumberLiteral() *ast.NumberLiteral {
	value, ok := new(big.Rat).SetString(p.curToken.Lexeme)
	if !ok {
		p.curError("malformed number literal %s", p.curToken.Lexeme)
		return nil
	}
	return &ast.NumberLiteral{Token: p.curToken, Value: value}
}

// parseBlock parses { e1, e2, ... }: at least one expression, value of the
// last one.
func (p *Parser) parseBlock() ast.Expression {
	block := &ast.BlockExpression{Token: p.curToken}
	p.nextToken()
	if expr := p.parseExpression(LOWEST); expr != nil {
		block.Expressions = append(block.Expressions, expr)
	}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		if expr := p.parseExpression(LOWEST); expr != nil {
			block.Expressions = append(block.Expressions, expr)
		}
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	if len(block.Expressions) == 0 {
		p.curError("block requires at least one expression")
		return nil
	}
	return block
}

func (p *Parser) parseMacro() ast.Expression {
	macro := &ast.MacroExpression{Token: p.curToken}
	switch p.curToken.Type {
	case token.IF:
		macro.Name = ast.MacroIf
	case token.LIST:
		macro.Name = ast.MacroList
	case token.OBJECT:
		macro.Name = ast.MacroObject
	case token.WHERE:
		macro.Name = ast.MacroWhere
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
	} else {
		p.nextToken()
		if arg := p.parseMacroArg(); arg != nil {
			macro.Args = append(macro.Args, arg)
		}
		for p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.nextToken()
			if arg := p.parseMacroArg(); arg != nil {
				macro.Args = append(macro.Args, arg)
			}
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
	}
	p.checkMacroArgs(macro)
	return macro
}

// parseMacroArg parses either `name = expr` or a plain expression. An
// identifier directly followed by = is taken as an argument name, so a
// top-level equality comparison inside a macro needs parentheses.
func (p *Parser) parseMacroArg() *ast.MacroArg {
	arg := &ast.MacroArg{Token: p.curToken}
	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
		arg.Name = p.parseIdentifier()
		p.nextToken() // onto =
		p.nextToken()
	}
	arg.Value = p.parseExpression(LOWEST)
	if arg.Value == nil {
		return nil
	}
	return arg
}

// checkMacroArgs enforces the per-macro shape: IF and LIST are positional,
// OBJECT is named-only, WHERE leads with `result = expr`.
func (p *Parser) checkMacroArgs(macro *ast.MacroExpression) {
	fail := func(tok token.Token, format string, args ...interface{}) {
		p.errors = append(p.errors, diagnostics.NewError(diagnostics.P003, tok, format, args...))
	}
	switch macro.Name {
	case ast.MacroIf:
		if len(macro.Args) != 3 {
			fail(macro.Token, "if requires exactly 3 arguments, got %d", len(macro.Args))
		}
		for _, a := range macro.Args {
			if a.Name != nil {
				fail(a.Token, "if takes positional arguments only")
			}
		}
	case ast.MacroList:
		for _, a := range macro.Args {
			if a.Name != nil {
				fail(a.Token, "list takes positional arguments only")
			}
		}
	case ast.MacroObject:
		for _, a := range macro.Args {
			if a.Name == nil {
				fail(a.Token, "object takes named arguments only")
			}
		}
	case ast.MacroWhere:
		if len(macro.Args) == 0 || macro.Args[0].Name == nil || !strings.EqualFold(macro.Args[0].Name.Value, "result") {
			fail(macro.Token, "where requires a leading result = expression argument")
			return
		}
		for _, a := range macro.Args[1:] {
			if a.Name != nil {
				fail(a.Token, "where conditions and branches are positional")
			}
		}
	}
}
