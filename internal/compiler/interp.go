package compiler

import (
	"oak/internal/ast"
	"oak/internal/bytecode"
	"oak/internal/lexer"
	"oak/internal/parser"
	"oak/internal/symbol"
	"oak/internal/value"
)

// interpPart is one literal-or-expression chunk of an interpolated string.
type interpPart struct {
	literal string
	expr    *ast.Expr
}

// splitInterp scans raw (the decoded string body, `$` markers still
// literal) into alternating literal/expression parts. `$name` reads a
// maximal identifier; `${...}` reads a balanced-brace expression source.
func splitInterp(raw string) []interpPart {
	var parts []interpPart
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			parts = append(parts, interpPart{literal: string(lit)})
			lit = nil
		}
	}
	i := 0
	for i < len(raw) {
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			flush()
			depth := 1
			j := i + 2
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth == 0 {
					break
				}
				j++
			}
			parts = append(parts, interpPart{literal: "\x00expr\x00" + raw[i+2:j]})
			i = j + 1
			continue
		}
		if raw[i] == '$' && i+1 < len(raw) && isIdentStart(raw[i+1]) {
			flush()
			j := i + 1
			for j < len(raw) && isIdentCont(raw[j]) {
				j++
			}
			parts = append(parts, interpPart{literal: "\x00ident\x00" + raw[i+1:j]})
			i = j
			continue
		}
		lit = append(lit, raw[i])
		i++
	}
	flush()
	return parts
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isIdentStart(b) || (b >= '0' && b <= '9') }

// compileInterp lowers an interpolated string literal into an INTERP
// instruction over a contiguous block of stringified-part registers.
func (c *Compiler) compileInterp(e *ast.Expr) int {
	raw := splitInterp(e.Str)
	scope := c.resolver.ScopeByID(e.Scope)

	base := c.regNext
	for range raw {
		c.newTemp()
	}

	for i, p := range raw {
		slot := base + i
		switch {
		case len(p.literal) > 6 && p.literal[:6] == "\x00expr\x00":
			src := p.literal[6:]
			expr := c.parseInterpFragment(src, e.Pos)
			c.resolveInterpExpr(expr, scope)
			v := c.compileExpr(expr)
			c.emitMove(slot, v, e.Pos)
		case len(p.literal) > 7 && p.literal[:7] == "\x00ident\x00":
			name := p.literal[7:]
			sym := scope.Resolve(name)
			if sym == nil {
				c.error(e.Pos, "undeclared identifier '%s' in string interpolation", name)
				c.emit(bytecode.Instr{Op: bytecode.MOVC, B: slot, C: c.addConst(value.NilValue()), Pos: e.Pos})
				continue
			}
			c.emitMove(slot, c.regForSymbol(sym), e.Pos)
		default:
			c.emit(bytecode.Instr{Op: bytecode.MOVC, B: slot, C: c.addConst(c.heap.NewString(p.literal)), Pos: e.Pos})
		}
	}

	dst := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.INTERP, E: dst, F: base, G: len(raw), H: e.Scope, Pos: e.Pos})
	return dst
}

func (c *Compiler) parseInterpFragment(src string, pos ast.Pos) *ast.Expr {
	toks := lexer.NewScanner(src).ScanTokens()
	p := parser.New(pos.File, src, toks)
	return p.Expression()
}

// resolveInterpExpr is a minimal standalone resolver for fragments parsed
// out of an interpolated string at compile time, covering the expression
// shapes such fragments realistically take (identifiers, member/index
// chains, calls, arithmetic). It mirrors symbol.Resolver.resolveExpr's
// structural walk but resolves directly against scope without mutating
// the main resolver's state.
func (c *Compiler) resolveInterpExpr(e *ast.Expr, scope *symbol.Scope) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		if sym := scope.Resolve(e.Str); sym != nil {
			e.Sym = sym
		} else {
			c.error(e.Pos, "undeclared identifier '%s' in string interpolation", e.Str)
		}
	case ast.ExprCall:
		c.resolveInterpExpr(e.A, scope)
		for _, a := range e.List {
			c.resolveInterpExpr(a, scope)
		}
	default:
		for _, child := range []*ast.Expr{e.A, e.B, e.C, e.D} {
			c.resolveInterpExpr(child, scope)
		}
		for _, child := range e.List {
			c.resolveInterpExpr(child, scope)
		}
	}
}
