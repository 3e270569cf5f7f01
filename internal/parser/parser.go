package parser

import (
	"strings"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/token"
)

// Parser consumes a token stream with one token of lookahead and produces
// an ast.Program. It records diagnostics instead of panicking; the
// resulting tree may be partial when errors are present.
type Parser struct {
	tokens []token.Token
	pos    int

	curToken  token.Token
	peekToken token.Token

	errors []*diagnostics.DiagnosticError
}

func New(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}
	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) Errors() []*diagnostics.DiagnosticError { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.pos < len(p.tokens) {
		p.peekToken = p.tokens[p.pos]
		p.pos++
	} else {
		p.peekToken = token.Token{Type: token.EOF, Line: p.curToken.Line, Column: p.curToken.Column}
	}
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances when the next token matches, otherwise records P001.
func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(expected token.TokenType) {
	p.errors = append(p.errors, diagnostics.NewError(diagnostics.P001, p.peekToken,
		"expected %s, got %s", expected, describe(p.peekToken)))
}

func (p *Parser) curError(format string, args ...interface{}) {
	p.errors = append(p.errors, diagnostics.NewError(diagnostics.P001, p.curToken, format, args...))
}

func describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end of input"
	}
	return string(tok.Type) + " " + strings.TrimSpace(tok.Lexeme)
}

// ParseProgram parses the whole token stream:
//
//	program := (argument | constant | module)*
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.ARGUMENT:
			if decl := p.parseArgumentDecl(); decl != nil {
				program.Arguments = append(program.Arguments, decl)
			}
		case token.CONSTANT:
			if decl := p.parseConstantDecl(); decl != nil {
				program.Constants = append(program.Constants, decl)
			}
		case token.MODULE:
			if mod := p.parseModule(); mod != nil {
				program.Modules = append(program.Modules, mod)
			}
		default:
			p.curError("expected argument, constant or module declaration, got %s", describe(p.curToken))
			p.nextToken()
			continue
		}
		p.nextToken()
	}

	return program
}

func (p *Parser) parseArgumentDecl() *ast.ArgumentDecl {
	decl := &ast.ArgumentDecl{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	decl.Name = p.parseIdentifier()
	return decl
}

func (p *Parser) parseConstantDecl() *ast.ConstantDecl {
	decl := &ast.ConstantDecl{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	decl.Name = p.parseIdentifier()
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	decl.Value = p.parseLiteral()
	return decl
}

// parseLiteral restricts constant bodies to signed numbers, strings and
// booleans. Richer constants come from the host side.
func (p *Parser) parseLiteral() ast.Expression {
	switch p.curToken.Type {
	case token.NUMBER:
		return p.parseNumberLiteral()
	case token.STRING:
		return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.TRUE, token.FALSE:
		return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
	case token.MINUS:
		tok := p.curToken
		if !p.expectPeek(token.NUMBER) {
			return nil
		}
		num := p.parseNumberLiteral()
		if num == nil {
			return nil
		}
		num.Value.Neg(num.Value)
		num.Token = tok
		return num
	default:
		p.curError("expected literal, got %s", describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseModule() *ast.Module {
	mod := &ast.Module{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	mod.Name = p.parseIdentifier()
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.IMPORT:
			if imp := p.parseImport(); imp != nil {
				mod.Imports = append(mod.Imports, imp)
			}
		case token.EXPORT, token.IDENT:
			if f := p.parseFormula(); f != nil {
				mod.Formulas = append(mod.Formulas, f)
			}
		default:
			p.curError("expected import or formula, got %s", describe(p.curToken))
		}
		p.nextToken()
	}

	if !p.curTokenIs(token.RBRACE) {
		p.curError("expected } to close module %s", mod.Name.Value)
		return mod
	}
	return mod
}

// parseImport handles the four import forms:
//
//	import argument x [as y]
//	import constant k [as y]
//	import module m [as y]
//	import f from m [as y]
func (p *Parser) parseImport() *ast.Import {
	imp := &ast.Import{Token: p.curToken}

	switch p.peekToken.Type {
	case token.ARGUMENT, token.CONSTANT, token.MODULE:
		kindTok := p.peekToken.Type
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		switch kindTok {
		case token.ARGUMENT:
			imp.Kind = ast.ImportArgument
		case token.CONSTANT:
			imp.Kind = ast.ImportConstant
		case token.MODULE:
			imp.Kind = ast.ImportModule
		}
		imp.Path = []string{p.curToken.Literal}
	case token.IDENT:
		p.nextToken()
		name := p.curToken.Literal
		if !p.expectPeek(token.FROM) {
			return nil
		}
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		imp.Kind = ast.ImportFormula
		imp.Path = []string{p.curToken.Literal, name}
	default:
		p.peekError(token.IDENT)
		return nil
	}

	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		imp.Alias = p.parseIdentifier()
	}
	return imp
}

func (p *Parser) parseFormula() *ast.Formula {
	f := &ast.Formula{}
	if p.curTokenIs(token.EXPORT) {
		f.Exported = true
		if !p.expectPeek(token.IDENT) {
			return nil
		}
	}
	f.Token = p.curToken
	f.Name = p.parseIdentifier()
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	f.Body = p.parseExpression(LOWEST)
	return f
}

func (p *Parser) parseIdentifier() *ast.Identifier {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}
