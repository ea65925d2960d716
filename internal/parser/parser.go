// Package parser implements the recursive-descent, precedence-climbing
// parser that turns a lexer.Token stream into an *ast.Stmt tree.
//
// Grounded on src/parse.c's operator-table-driven get_infix_op/get_prefix_op/
// get_prec scheme: rather than one function per precedence level (as a
// textbook Pratt parser would), a single table maps token types to binding
// powers and the expression parser loops against it. Scope ids are not
// assigned here — that is internal/symbol's job (spec §6.3); the parser
// only produces the raw tree spec §6.2 describes as the compiler's input.
package parser

import (
	"fmt"

	"oak/internal/ast"
	"oak/internal/errors"
	"oak/internal/lexer"
)

type Parser struct {
	tokens  []lexer.Token
	current int
	file    string
	lines   []string
	Errors  []errors.Diagnostic
}

func New(file string, source string, tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens, file: file, lines: splitLines(source)}
}

func splitLines(src string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			lines = append(lines, src[start:i])
			start = i + 1
		}
	}
	lines = append(lines, src[start:])
	return lines
}

// Parse runs to EOF, returning every top-level statement.
func (p *Parser) Parse() []*ast.Stmt {
	var stmts []*ast.Stmt
	for !p.check(lexer.TokEOF) {
		s := p.declaration()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

func (p *Parser) pos() ast.Pos {
	t := p.peek()
	src := ""
	if t.Line-1 >= 0 && t.Line-1 < len(p.lines) {
		src = p.lines[t.Line-1]
	}
	return ast.Pos{File: p.file, Line: t.Line, Column: t.Column, Len: len(t.Lexeme), Source: src}
}

func (p *Parser) posAt(t lexer.Token) ast.Pos {
	src := ""
	if t.Line-1 >= 0 && t.Line-1 < len(p.lines) {
		src = p.lines[t.Line-1]
	}
	return ast.Pos{File: p.file, Line: t.Line, Column: t.Column, Len: len(t.Lexeme), Source: src}
}

func (p *Parser) error(format string, args ...interface{}) {
	p.Errors = append(p.Errors, errors.Diagnostic{
		Loc: p.pos().Loc(), Sev: errors.Fatal, Message: fmt.Sprintf(format, args...),
	})
}

func (p *Parser) peek() lexer.Token  { return p.tokens[p.current] }
func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}
func (p *Parser) isAtEnd() bool { return p.peek().Type == lexer.TokEOF }

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return t == lexer.TokEOF
	}
	return p.peek().Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType, context string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.error("expected %s %s, found %q", t, context, p.peek().Lexeme)
	return p.advance()
}

// expectTerminator mirrors oak's expect_terminator: a statement ends at `;`,
// at a closing `}` (not consumed), or when the previous token already ended
// a source line.
func (p *Parser) expectTerminator() {
	if p.check(lexer.TokSemicolon) {
		p.advance()
		return
	}
	if p.check(lexer.TokRBrace) || p.isAtEnd() {
		return
	}
	if p.peek().Line > p.previous().Line {
		return
	}
	p.error("expected statement terminator, found %q", p.peek().Lexeme)
}

func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == lexer.TokSemicolon {
			return
		}
		switch p.peek().Type {
		case lexer.TokVar, lexer.TokFn, lexer.TokIf, lexer.TokWhile, lexer.TokFor,
			lexer.TokReturn, lexer.TokDie, lexer.TokEnum:
			return
		}
		p.advance()
	}
}
