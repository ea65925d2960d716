package parser

import (
	"strconv"

	"oak/internal/ast"
	"oak/internal/lexer"
)

// precedence levels, lowest to highest. Mirrors the operator table driving
// oak's get_prec/get_infix_op rather than one recursive function per level.
type prec int

const (
	precNone prec = iota
	precAssign
	precTernary
	precRange
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precPower
	precUnary
	precPostfix
)

var binPrec = map[lexer.TokenType]prec{
	lexer.TokPipePipe: precOr,
	lexer.TokAmpAmp:   precAnd,
	lexer.TokPipe:     precBitOr,
	lexer.TokCaret:    precBitXor,
	lexer.TokAmp:      precBitAnd,
	lexer.TokEqEq:     precEquality,
	lexer.TokBangEq:   precEquality,
	lexer.TokLt:       precRelational,
	lexer.TokGt:       precRelational,
	lexer.TokLe:       precRelational,
	lexer.TokGe:       precRelational,
	lexer.TokLShift:   precShift,
	lexer.TokRShift:   precShift,
	lexer.TokPlus:     precAdditive,
	lexer.TokMinus:    precAdditive,
	lexer.TokStar:     precMultiplicative,
	lexer.TokSlash:    precMultiplicative,
	lexer.TokPercent:  precMultiplicative,
	lexer.TokStarStar: precPower,
}

var rightAssoc = map[lexer.TokenType]bool{
	lexer.TokStarStar: true,
}

func (p *Parser) Expression() *ast.Expr {
	return p.assignment()
}

func (p *Parser) assignment() *ast.Expr {
	lhs := p.ternary()
	if p.match(lexer.TokEq) {
		tok := p.previous()
		rhs := p.assignment()
		switch lhs.Kind {
		case ast.ExprIndex, ast.ExprMember:
			return &ast.Expr{Kind: ast.ExprIndexAssign, Pos: p.posAt(tok), A: lhs.A, B: lhs.B, C: rhs}
		case ast.ExprIdent:
			return &ast.Expr{Kind: ast.ExprAssign, Pos: p.posAt(tok), A: lhs, B: rhs}
		default:
			p.error("invalid assignment target")
			return lhs
		}
	}
	if p.match(lexer.TokTildeEq) {
		// `lhs ~= /re/"sub"` desugars to a call-shaped assign handled by the
		// compiler as a SUBST target; represented here as an assign whose
		// value is the regex literal itself, with Op carrying the marker.
		tok := p.previous()
		rhs := p.ternary()
		return &ast.Expr{Kind: ast.ExprAssign, Pos: p.posAt(tok), Op: "~=", A: lhs, B: rhs}
	}
	return lhs
}

func (p *Parser) ternary() *ast.Expr {
	cond := p.rangeExpr()
	if p.match(lexer.TokQuestion) {
		tok := p.previous()
		then := p.assignment()
		p.expect(lexer.TokColon, "in ternary expression")
		els := p.assignment()
		return &ast.Expr{Kind: ast.ExprTernary, Pos: p.posAt(tok), A: cond, B: then, C: els}
	}
	return cond
}

func (p *Parser) rangeExpr() *ast.Expr {
	lo := p.binary(precOr)
	if p.match(lexer.TokDotDot) {
		tok := p.previous()
		hi := p.binary(precOr)
		var step *ast.Expr
		if p.match(lexer.TokColon) {
			step = p.binary(precOr)
		}
		return &ast.Expr{Kind: ast.ExprRange, Pos: p.posAt(tok), A: lo, B: hi, C: step}
	}
	return lo
}

// binary implements precedence climbing from the given minimum level up
// through precPower, bottoming out at unary/postfix/primary.
func (p *Parser) binary(min prec) *ast.Expr {
	left := p.unary()
	for {
		op := p.peek().Type
		opPrec, ok := binPrec[op]
		if !ok || opPrec < min {
			return left
		}
		tok := p.advance()
		nextMin := opPrec + 1
		if rightAssoc[op] {
			nextMin = opPrec
		}
		right := p.binary(nextMin)
		kind := ast.ExprBinary
		if op == lexer.TokAmpAmp || op == lexer.TokPipePipe {
			kind = ast.ExprLogical
		}
		left = &ast.Expr{Kind: kind, Pos: p.posAt(tok), Op: string(op), A: left, B: right}
	}
}

func (p *Parser) unary() *ast.Expr {
	if p.match(lexer.TokBang, lexer.TokMinus, lexer.TokPlus) {
		tok := p.previous()
		operand := p.unary()
		return &ast.Expr{Kind: ast.ExprUnary, Pos: p.posAt(tok), Op: string(tok.Type), A: operand}
	}
	return p.postfix()
}

func (p *Parser) postfix() *ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(lexer.TokLParen):
			expr = p.finishCall(expr)
		case p.match(lexer.TokLBracket):
			expr = p.finishIndex(expr)
		case p.match(lexer.TokDot):
			tok := p.advance()
			key := &ast.Expr{Kind: ast.ExprString, Pos: p.posAt(tok), Str: tok.Lexeme}
			expr = &ast.Expr{Kind: ast.ExprMember, Pos: p.posAt(tok), A: expr, B: key}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee *ast.Expr) *ast.Expr {
	tok := p.previous()
	var args []*ast.Expr
	if !p.check(lexer.TokRParen) {
		for {
			args = append(args, p.assignment())
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	p.expect(lexer.TokRParen, "to close call arguments")
	return &ast.Expr{Kind: ast.ExprCall, Pos: p.posAt(tok), A: callee, List: args}
}

func (p *Parser) finishIndex(target *ast.Expr) *ast.Expr {
	tok := p.previous()
	if p.check(lexer.TokColon) {
		return p.finishSlice(target, nil, tok)
	}
	first := p.assignment()
	if p.match(lexer.TokColon) {
		return p.finishSlice(target, first, tok)
	}
	p.expect(lexer.TokRBracket, "to close index")
	return &ast.Expr{Kind: ast.ExprIndex, Pos: p.posAt(tok), A: target, B: first}
}

func (p *Parser) finishSlice(target, lo *ast.Expr, tok lexer.Token) *ast.Expr {
	var hi, step *ast.Expr
	if !p.check(lexer.TokColon) && !p.check(lexer.TokRBracket) {
		hi = p.assignment()
	}
	if p.match(lexer.TokColon) {
		if !p.check(lexer.TokRBracket) {
			step = p.assignment()
		}
	}
	p.expect(lexer.TokRBracket, "to close slice")
	return &ast.Expr{Kind: ast.ExprSlice, Pos: p.posAt(tok), A: target, B: lo, C: hi, D: step}
}

func (p *Parser) primary() *ast.Expr {
	tok := p.peek()
	switch tok.Type {
	case lexer.TokInt:
		p.advance()
		n, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		return &ast.Expr{Kind: ast.ExprInt, Pos: p.posAt(tok), Int: n}
	case lexer.TokFloat:
		p.advance()
		f, _ := strconv.ParseFloat(tok.Lexeme, 64)
		return &ast.Expr{Kind: ast.ExprFloat, Pos: p.posAt(tok), Float: f}
	case lexer.TokTrue:
		p.advance()
		return &ast.Expr{Kind: ast.ExprBool, Pos: p.posAt(tok), Bool: true}
	case lexer.TokFalse:
		p.advance()
		return &ast.Expr{Kind: ast.ExprBool, Pos: p.posAt(tok), Bool: false}
	case lexer.TokNil:
		p.advance()
		return &ast.Expr{Kind: ast.ExprNil, Pos: p.posAt(tok)}
	case lexer.TokString:
		p.advance()
		kind := ast.ExprString
		if tok.IsInterpolatable {
			kind = ast.ExprInterpString
		}
		return &ast.Expr{Kind: kind, Pos: p.posAt(tok), Str: tok.Lexeme}
	case lexer.TokRegex:
		p.advance()
		return &ast.Expr{Kind: ast.ExprRegex, Pos: p.posAt(tok), Str: tok.Lexeme, Flags: tok.RegexFlags, RegexSub: tok.RegexSub}
	case lexer.TokIdent:
		p.advance()
		return &ast.Expr{Kind: ast.ExprIdent, Pos: p.posAt(tok), Str: tok.Lexeme}
	case lexer.TokLParen:
		p.advance()
		e := p.Expression()
		p.expect(lexer.TokRParen, "to close grouping")
		return e
	case lexer.TokLBracket:
		return p.arrayOrComprehension()
	case lexer.TokLBrace:
		return p.table()
	case lexer.TokFn:
		return p.funcLiteral()
	case lexer.TokEval:
		p.advance()
		p.expect(lexer.TokLParen, "after eval")
		src := p.Expression()
		p.expect(lexer.TokRParen, "to close eval")
		return &ast.Expr{Kind: ast.ExprEval, Pos: p.posAt(tok), A: src}
	case lexer.TokMatch:
		return p.matchExpr()
	default:
		p.error("unexpected token %q in expression", tok.Lexeme)
		p.advance()
		return &ast.Expr{Kind: ast.ExprNil, Pos: p.posAt(tok)}
	}
}

// arrayOrComprehension parses `[ e1, e2, ... ]` or `[ expr for x = iter if cond ]`.
func (p *Parser) arrayOrComprehension() *ast.Expr {
	tok := p.advance() // '['
	if p.check(lexer.TokRBracket) {
		p.advance()
		return &ast.Expr{Kind: ast.ExprArray, Pos: p.posAt(tok)}
	}
	first := p.assignment()
	if p.match(lexer.TokFor) {
		var varName string
		if p.check(lexer.TokIdent) {
			varName = p.advance().Lexeme
		} else {
			p.expect(lexer.TokIdent, "as comprehension loop variable")
		}
		p.expect(lexer.TokEq, "after comprehension loop variable")
		iter := p.Expression()
		var cond *ast.Expr
		if p.match(lexer.TokIf) {
			cond = p.Expression()
		}
		p.expect(lexer.TokRBracket, "to close comprehension")
		return &ast.Expr{
			Kind: ast.ExprComprehension, Pos: p.posAt(tok),
			CompVar: varName, CompIter: iter, CompCond: cond, CompBody: first,
		}
	}
	items := []*ast.Expr{first}
	for p.match(lexer.TokComma) {
		if p.check(lexer.TokRBracket) {
			break
		}
		items = append(items, p.assignment())
	}
	p.expect(lexer.TokRBracket, "to close array literal")
	return &ast.Expr{Kind: ast.ExprArray, Pos: p.posAt(tok), List: items}
}

// table parses `{ a = 1, b = 2 }`, mirroring oak's parse_table: keys are bare
// identifiers or string literals, each optionally given a value (a bare key
// with no `=` defaults to nil, matching enum-like shorthand use).
func (p *Parser) table() *ast.Expr {
	tok := p.advance() // '{'
	var keys []string
	var vals []*ast.Expr
	for !p.check(lexer.TokRBrace) && !p.isAtEnd() {
		var key string
		if p.check(lexer.TokString) {
			key = p.advance().Lexeme
		} else {
			key = p.expect(lexer.TokIdent, "as table key").Lexeme
		}
		var val *ast.Expr
		if p.match(lexer.TokEq) {
			val = p.assignment()
		} else {
			val = &ast.Expr{Kind: ast.ExprNil, Pos: p.posAt(tok)}
		}
		keys = append(keys, key)
		vals = append(vals, val)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRBrace, "to close table literal")
	return &ast.Expr{Kind: ast.ExprTable, Pos: p.posAt(tok), Keys: keys, Vals: vals}
}

func (p *Parser) funcLiteral() *ast.Expr {
	tok := p.advance() // 'fn'
	var params []ast.Param
	if p.match(lexer.TokLParen) {
		params = p.paramList()
	}
	if p.match(lexer.TokArrow) {
		body := p.assignment()
		return &ast.Expr{Kind: ast.ExprFunc, Pos: p.posAt(tok), Params: params, ExprBody: body}
	}
	if p.match(lexer.TokEq) {
		body := p.assignment()
		return &ast.Expr{Kind: ast.ExprFunc, Pos: p.posAt(tok), Params: params, ExprBody: body}
	}
	p.expect(lexer.TokLBrace, "to open function body")
	body := p.block()
	return &ast.Expr{Kind: ast.ExprFunc, Pos: p.posAt(tok), Params: params, Body: body}
}

func (p *Parser) paramList() []ast.Param {
	var params []ast.Param
	for !p.check(lexer.TokRParen) && !p.isAtEnd() {
		name := p.expect(lexer.TokIdent, "as parameter name").Lexeme
		var def *ast.Expr
		if p.match(lexer.TokEq) {
			def = p.assignment()
		}
		params = append(params, ast.Param{Name: name, Default: def})
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRParen, "to close parameter list")
	return params
}

// matchExpr parses `match subject { pattern: body ... else: body }`.
func (p *Parser) matchExpr() *ast.Expr {
	tok := p.advance() // 'match'
	subject := p.Expression()
	p.expect(lexer.TokLBrace, "to open match body")
	var arms []ast.MatchArm
	for !p.check(lexer.TokRBrace) && !p.isAtEnd() {
		var pattern *ast.Expr
		isRegex := false
		if p.check(lexer.TokElse) || (p.check(lexer.TokIdent) && p.peek().Lexeme == "_") {
			p.advance()
		} else {
			pattern = p.assignment()
			isRegex = pattern.Kind == ast.ExprRegex
		}
		p.expect(lexer.TokColon, "after match pattern")
		body := p.assignment()
		arms = append(arms, ast.MatchArm{Pattern: pattern, IsRegex: isRegex, Body: body})
		p.match(lexer.TokComma)
	}
	p.expect(lexer.TokRBrace, "to close match body")
	return &ast.Expr{Kind: ast.ExprMatch, Pos: p.posAt(tok), A: subject, Arms: arms}
}
