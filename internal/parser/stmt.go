package parser

import (
	"oak/internal/ast"
	"oak/internal/lexer"
)

func (p *Parser) declaration() *ast.Stmt {
	s := p.statement()
	return s
}

func (p *Parser) statement() *ast.Stmt {
	tok := p.peek()
	var s *ast.Stmt
	switch tok.Type {
	case lexer.TokVar:
		s = p.varDecl()
	case lexer.TokLBrace:
		s = p.blockStmt()
	case lexer.TokIf:
		s = p.ifStmt()
	case lexer.TokWhile:
		s = p.whileStmt()
	case lexer.TokDo:
		s = p.doWhileStmt()
	case lexer.TokFor:
		s = p.forStmt()
	case lexer.TokLast:
		p.advance()
		s = &ast.Stmt{Kind: ast.StmtLast, Pos: p.posAt(tok)}
		p.withTrailingWhen(s)
		p.expectTerminator()
		return s
	case lexer.TokNext:
		p.advance()
		s = &ast.Stmt{Kind: ast.StmtNext, Pos: p.posAt(tok)}
		p.withTrailingWhen(s)
		p.expectTerminator()
		return s
	case lexer.TokGoto:
		p.advance()
		name := p.expect(lexer.TokIdent, "as goto target").Lexeme
		s = &ast.Stmt{Kind: ast.StmtGoto, Pos: p.posAt(tok), Name: name}
		p.withTrailingWhen(s)
		p.expectTerminator()
		return s
	case lexer.TokFn:
		s = p.funcDecl()
	case lexer.TokEnum:
		s = p.enumDecl()
	case lexer.TokDie:
		p.advance()
		e := p.Expression()
		s = &ast.Stmt{Kind: ast.StmtDie, Pos: p.posAt(tok), Expr: e}
		p.withTrailingWhen(s)
		p.expectTerminator()
		return s
	case lexer.TokPrint, lexer.TokPrintln:
		s = p.printStmt()
	case lexer.TokReturn:
		p.advance()
		var e *ast.Expr
		if !p.check(lexer.TokSemicolon) && !p.check(lexer.TokRBrace) && p.peek().Line == tok.Line {
			e = p.Expression()
		}
		s = &ast.Stmt{Kind: ast.StmtReturn, Pos: p.posAt(tok), Expr: e}
		p.withTrailingWhen(s)
		p.expectTerminator()
		return s
	default:
		// label: an IDENT directly followed by ':' is only recognized at
		// statement position (so it never collides with ternary/table syntax).
		if tok.Type == lexer.TokIdent && p.tokens[p.current+1].Type == lexer.TokColon {
			p.advance()
			p.advance()
			return &ast.Stmt{Kind: ast.StmtLabel, Pos: p.posAt(tok), Name: tok.Lexeme}
		}
		e := p.Expression()
		s = &ast.Stmt{Kind: ast.StmtExpr, Pos: p.posAt(tok), Expr: e}
		p.withTrailingWhen(s)
		p.expectTerminator()
		return s
	}
	return s
}

// withTrailingWhen parses the statement-modifier form `stmt when cond`,
// matching ast.Stmt's When field (spec §6.2: "statements carry ... an
// optional when condition").
func (p *Parser) withTrailingWhen(s *ast.Stmt) {
	if p.check(lexer.TokIdent) && p.peek().Lexeme == "when" {
		p.advance()
		s.When = p.Expression()
	}
}

func (p *Parser) varDecl() *ast.Stmt {
	tok := p.advance() // 'var'
	name := p.expect(lexer.TokIdent, "as variable name").Lexeme
	s := &ast.Stmt{Kind: ast.StmtVarDecl, Pos: p.posAt(tok), Name: name}
	if p.match(lexer.TokEq) {
		s.Expr = p.Expression()
	}
	p.withTrailingWhen(s)
	p.expectTerminator()
	return s
}

func (p *Parser) blockStmt() *ast.Stmt {
	tok := p.peek()
	body := p.block()
	return &ast.Stmt{Kind: ast.StmtBlock, Pos: p.posAt(tok), Body: body}
}

// block parses a brace-delimited statement list, assuming the opening `{`
// has not yet been consumed.
func (p *Parser) block() []*ast.Stmt {
	p.expect(lexer.TokLBrace, "to open block")
	var stmts []*ast.Stmt
	for !p.check(lexer.TokRBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
	}
	p.expect(lexer.TokRBrace, "to close block")
	return stmts
}

// bodyOrSingle parses either a brace block or a single statement (optionally
// introduced by ':', as in `for x = xs: stmt`), matching the teacher and
// oak's tolerance for braceless control-flow bodies.
func (p *Parser) bodyOrSingle() []*ast.Stmt {
	if p.check(lexer.TokLBrace) {
		return p.block()
	}
	p.match(lexer.TokColon)
	return []*ast.Stmt{p.declaration()}
}

func (p *Parser) ifStmt() *ast.Stmt {
	tok := p.advance() // 'if'
	cond := p.Expression()
	then := p.bodyOrSingle()
	s := &ast.Stmt{Kind: ast.StmtIf, Pos: p.posAt(tok), Cond: cond, Body: then}
	if p.match(lexer.TokElse) {
		if p.check(lexer.TokIf) {
			s.Init = p.ifStmt()
		} else {
			elseBody := p.bodyOrSingle()
			s.Init = &ast.Stmt{Kind: ast.StmtBlock, Pos: p.posAt(p.previous()), Body: elseBody}
		}
	}
	return s
}

func (p *Parser) whileStmt() *ast.Stmt {
	tok := p.advance() // 'while'
	cond := p.Expression()
	body := p.bodyOrSingle()
	return &ast.Stmt{Kind: ast.StmtWhile, Pos: p.posAt(tok), Cond: cond, Body: body}
}

func (p *Parser) doWhileStmt() *ast.Stmt {
	tok := p.advance() // 'do'
	body := p.bodyOrSingle()
	p.expect(lexer.TokWhile, "to close do-while body")
	cond := p.Expression()
	s := &ast.Stmt{Kind: ast.StmtDoWhile, Pos: p.posAt(tok), Cond: cond, Body: body}
	p.expectTerminator()
	return s
}

// forStmt dispatches among the four `for` shapes spec.md names: classic
// C-style, `for var x = iterable`, and the two regex-driven forms.
func (p *Parser) forStmt() *ast.Stmt {
	tok := p.advance() // 'for'

	if p.check(lexer.TokRegex) {
		lit := p.primary()
		body := p.bodyOrSingle()
		return &ast.Stmt{Kind: ast.StmtForRegex, Pos: p.posAt(tok), RegexLit: lit, Body: body}
	}

	// `for lhs ~= /re/` : the bound target is matched against the regex each
	// iteration, one match per pass (the `=~` form spec.md names; this
	// lexer spells it with the same `~=` token used for substitution-assign,
	// disambiguated here by statement position).
	if p.check(lexer.TokIdent) && p.tokens[p.current+1].Type == lexer.TokTildeEq {
		lhs := p.postfix()
		p.advance() // '~='
		lit := p.primary()
		body := p.bodyOrSingle()
		return &ast.Stmt{Kind: ast.StmtForRegex, Pos: p.posAt(tok), RegexLit: lit, LHS: lhs, Body: body}
	}

	if p.check(lexer.TokVar) || (p.check(lexer.TokIdent) && p.tokens[p.current+1].Type == lexer.TokEq) {
		implicit := false
		var name string
		if p.match(lexer.TokVar) {
			name = p.expect(lexer.TokIdent, "as loop variable").Lexeme
		} else {
			name = p.advance().Lexeme
			if name == "_" {
				implicit = true
			}
		}
		p.expect(lexer.TokEq, "after for-loop variable")
		rhs := p.Expression()
		body := p.bodyOrSingle()
		return &ast.Stmt{
			Kind: ast.StmtForIn, Pos: p.posAt(tok), IterVar: name, ImplicitVar: implicit,
			Iter: rhs, Body: body,
		}
	}

	// classic C-style: for (init; cond; step) body  -- or braceless
	// `for init; cond; step: body` (bodyOrSingle takes the ':').
	paren := p.match(lexer.TokLParen)
	var initStmt *ast.Stmt
	if !p.check(lexer.TokSemicolon) {
		initStmt = p.simpleStmtNoTerm()
	}
	p.expect(lexer.TokSemicolon, "after for-loop initializer")
	var cond *ast.Expr
	if !p.check(lexer.TokSemicolon) {
		cond = p.Expression()
	}
	p.expect(lexer.TokSemicolon, "after for-loop condition")
	var step *ast.Expr
	if !p.check(lexer.TokLBrace) && !p.check(lexer.TokRParen) {
		step = p.Expression()
	}
	if paren {
		p.expect(lexer.TokRParen, "to close for-loop clauses")
	}
	body := p.bodyOrSingle()
	return &ast.Stmt{Kind: ast.StmtForClassic, Pos: p.posAt(tok), Init: initStmt, Cond: cond, Step: step, Body: body}
}

// simpleStmtNoTerm parses a var-decl or expression statement without
// consuming a trailing terminator, for use inside for(;;) clauses.
func (p *Parser) simpleStmtNoTerm() *ast.Stmt {
	tok := p.peek()
	if p.check(lexer.TokVar) {
		p.advance()
		name := p.expect(lexer.TokIdent, "as variable name").Lexeme
		s := &ast.Stmt{Kind: ast.StmtVarDecl, Pos: p.posAt(tok), Name: name}
		if p.match(lexer.TokEq) {
			s.Expr = p.Expression()
		}
		return s
	}
	e := p.Expression()
	return &ast.Stmt{Kind: ast.StmtExpr, Pos: p.posAt(tok), Expr: e}
}

func (p *Parser) funcDecl() *ast.Stmt {
	tok := p.advance() // 'fn'
	name := p.expect(lexer.TokIdent, "as function name").Lexeme
	p.expect(lexer.TokLParen, "to open parameter list")
	params := p.paramList()
	s := &ast.Stmt{Kind: ast.StmtFuncDecl, Pos: p.posAt(tok), Name: name, Args: params}
	if p.match(lexer.TokArrow) || p.match(lexer.TokEq) {
		s.FnExprBody = p.assignment()
		p.expectTerminator()
		return s
	}
	s.FnBody = p.block()
	return s
}

func (p *Parser) enumDecl() *ast.Stmt {
	tok := p.advance() // 'enum'
	p.expect(lexer.TokLBrace, "to open enum body")
	var members []ast.EnumMember
	for !p.check(lexer.TokRBrace) && !p.isAtEnd() {
		name := p.expect(lexer.TokIdent, "as enum member name").Lexeme
		var val *ast.Expr
		if p.match(lexer.TokEq) {
			val = p.assignment()
		}
		members = append(members, ast.EnumMember{Name: name, Value: val})
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRBrace, "to close enum body")
	return &ast.Stmt{Kind: ast.StmtEnumDecl, Pos: p.posAt(tok), EnumMembers: members}
}

func (p *Parser) printStmt() *ast.Stmt {
	tok := p.advance() // 'print' or 'println'
	println := tok.Type == lexer.TokPrintln
	var args []*ast.Expr
	if !p.check(lexer.TokSemicolon) && !p.check(lexer.TokRBrace) && p.peek().Line == tok.Line {
		args = append(args, p.assignment())
		for p.match(lexer.TokComma) {
			args = append(args, p.assignment())
		}
	}
	s := &ast.Stmt{Kind: ast.StmtPrint, Pos: p.posAt(tok), PrintArgs: args, Println: println}
	p.withTrailingWhen(s)
	p.expectTerminator()
	return s
}
