package compiler

import (
	"oak/internal/ast"
	"oak/internal/bytecode"
	"oak/internal/regex"
	"oak/internal/value"
)

// compileExpr lowers e and returns the register holding its result. Most
// cases allocate a fresh temp register for the result; identifier reads
// return the symbol's own register directly (no copy) so a chain of pure
// reads never wastes a register.
func (c *Compiler) compileExpr(e *ast.Expr) int {
	switch e.Kind {
	case ast.ExprNil:
		return c.loadConst(value.NilValue(), e.Pos)
	case ast.ExprInt:
		return c.loadConst(value.IntValue(e.Int), e.Pos)
	case ast.ExprFloat:
		return c.loadConst(value.FloatValue(e.Float), e.Pos)
	case ast.ExprBool:
		return c.loadConst(value.BoolValue(e.Bool), e.Pos)
	case ast.ExprString:
		return c.loadConst(c.heap.NewString(e.Str), e.Pos)
	case ast.ExprInterpString:
		return c.compileInterp(e)
	case ast.ExprIdent:
		// Enum members and declared functions have no register of their
		// own: an enum loads its int constant, a function loads the Fn
		// constant compileFuncDecl recorded in sym.Address.
		if e.Sym.Type == ast.SymEnum {
			return c.loadConst(value.IntValue(e.Sym.EnumValue), e.Pos)
		}
		if e.Sym.Type == ast.SymFn {
			r := c.newTemp()
			c.emit(bytecode.Instr{Op: bytecode.COPYC, B: r, C: e.Sym.Address, Pos: e.Pos})
			return r
		}
		return c.regForSymbol(e.Sym)
	case ast.ExprRegex:
		return c.compileRegexLiteral(e)
	case ast.ExprArray:
		return c.compileArrayLit(e)
	case ast.ExprTable:
		return c.compileTableLit(e)
	case ast.ExprFunc:
		return c.compileFuncLiteral(e)
	case ast.ExprUnary:
		return c.compileUnary(e)
	case ast.ExprBinary:
		return c.compileBinary(e)
	case ast.ExprLogical:
		return c.compileLogical(e)
	case ast.ExprTernary:
		return c.compileTernary(e)
	case ast.ExprAssign:
		return c.compileAssign(e)
	case ast.ExprIndexAssign:
		return c.compileIndexAssign(e)
	case ast.ExprCall:
		return c.compileCall(e)
	case ast.ExprIndex:
		return c.compileIndex(e.A, e.B, e.Pos)
	case ast.ExprMember:
		return c.compileIndex(e.A, e.B, e.Pos)
	case ast.ExprSlice:
		return c.compileSlice(e)
	case ast.ExprRange:
		return c.compileRange(e)
	case ast.ExprMatch:
		return c.compileMatch(e)
	case ast.ExprComprehension:
		return c.compileComprehension(e)
	case ast.ExprEval:
		return c.compileEval(e)
	}
	return c.loadConst(value.NilValue(), e.Pos)
}

func (c *Compiler) loadConst(v value.Value, pos ast.Pos) int {
	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.MOVC, B: r, C: c.addConst(v), Pos: pos})
	return r
}

// compileRegexLiteral compiles the pattern once into a regex.Program,
// wraps it in a RegexObj constant template, and COPYCs a fresh mutable
// instance (own match cursor) on every evaluation — see value.DeepCopy's
// Regex case.
func (c *Compiler) compileRegexLiteral(e *ast.Expr) int {
	prog, err := regex.Compile(e.Str, e.Flags)
	if err != nil {
		c.error(e.Pos, "invalid regex literal: %s", err)
	}
	ro := value.RegexObj{Pattern: e.Str, Flags: e.Flags, Replacement: e.RegexSub, HasSub: e.RegexSub != "", Compiled: prog}
	tmpl := c.heap.NewRegex(ro)
	idx := c.addConst(tmpl)
	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.COPYC, B: r, C: idx, Pos: e.Pos})
	return r
}

func (c *Compiler) compileArrayLit(e *ast.Expr) int {
	tmpl := c.heap.NewArray()
	idx := c.addConst(tmpl)
	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.COPYC, B: r, C: idx, Pos: e.Pos})
	for _, el := range e.List {
		v := c.compileExpr(el)
		c.emit(bytecode.Instr{Op: bytecode.APUSH, E: r, F: v, Pos: e.Pos})
	}
	return r
}

func (c *Compiler) compileTableLit(e *ast.Expr) int {
	tmpl := c.heap.NewTable()
	idx := c.addConst(tmpl)
	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.COPYC, B: r, C: idx, Pos: e.Pos})
	for i, key := range e.Keys {
		keyReg := c.loadConst(c.heap.NewString(key), e.Pos)
		valReg := c.compileExpr(e.Vals[i])
		c.emit(bytecode.Instr{Op: bytecode.ASET, E: r, F: keyReg, G: valReg, Pos: e.Pos})
	}
	return r
}

func (c *Compiler) compileUnary(e *ast.Expr) int {
	a := c.compileExpr(e.A)
	r := c.newTemp()
	switch e.Op {
	case "-":
		c.emit(bytecode.Instr{Op: bytecode.NEG, B: r, C: a, Pos: e.Pos})
	case "!":
		c.emit(bytecode.Instr{Op: bytecode.FLIP, B: r, C: a, Pos: e.Pos})
	case "+":
		c.emitMove(r, a, e.Pos)
	}
	return r
}

var binOps = map[string]bytecode.Op{
	"+": bytecode.ADD, "-": bytecode.SUB, "*": bytecode.MUL, "/": bytecode.DIV,
	"%": bytecode.MOD, "**": bytecode.POW,
	"<<": bytecode.SLEFT, ">>": bytecode.SRIGHT,
	"&": bytecode.BAND, "|": bytecode.BOR, "^": bytecode.XOR,
	"<": bytecode.LESS, ">": bytecode.MORE, "<=": bytecode.LEQ, ">=": bytecode.GEQ,
	"==": bytecode.CMP,
}

func (c *Compiler) compileBinary(e *ast.Expr) int {
	l := c.compileExpr(e.A)
	rr := c.compileExpr(e.B)
	r := c.newTemp()
	if e.Op == "!=" {
		c.emit(bytecode.Instr{Op: bytecode.CMP, E: r, F: l, G: rr, Pos: e.Pos})
		c.emit(bytecode.Instr{Op: bytecode.FLIP, B: r, C: r, Pos: e.Pos})
		return r
	}
	op, ok := binOps[e.Op]
	if !ok {
		op = bytecode.ADD
	}
	c.emit(bytecode.Instr{Op: op, E: r, F: l, G: rr, Pos: e.Pos})
	return r
}

// compileLogical lowers short-circuit && / || without evaluating the
// right-hand side unless needed.
func (c *Compiler) compileLogical(e *ast.Expr) int {
	l := c.compileExpr(e.A)
	r := c.newTemp()
	c.emitMove(r, l, e.Pos)
	if e.Op == "&&" {
		skip := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: r, Pos: e.Pos})
		rv := c.compileExpr(e.B)
		c.emitMove(r, rv, e.Pos)
		c.patchJumpD(skip, c.here())
	} else { // "||"
		skip := c.emit(bytecode.Instr{Op: bytecode.COND, E: r, Pos: e.Pos})
		rv := c.compileExpr(e.B)
		c.emitMove(r, rv, e.Pos)
		c.patchJumpD(skip, c.here())
	}
	return r
}

func (c *Compiler) compileTernary(e *ast.Expr) int {
	cond := c.compileExpr(e.A)
	r := c.newTemp()
	jumpElse := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: cond, Pos: e.Pos})
	thenV := c.compileExpr(e.B)
	c.emitMove(r, thenV, e.Pos)
	jumpEnd := c.emit(bytecode.Instr{Op: bytecode.JMP, Pos: e.Pos})
	c.patchJumpD(jumpElse, c.here())
	elseV := c.compileExpr(e.C)
	c.emitMove(r, elseV, e.Pos)
	c.patchJumpD(jumpEnd, c.here())
	return r
}

// compileStoreTo stores valReg into the lvalue lhs, which is either an
// identifier (register move) or an index/member expression (ASET).
func (c *Compiler) compileStoreTo(lhs *ast.Expr, valReg int, pos ast.Pos) {
	switch lhs.Kind {
	case ast.ExprIdent:
		dst := c.regForSymbol(lhs.Sym)
		c.emit(bytecode.Instr{Op: bytecode.COPY, B: dst, C: valReg, Pos: pos})
	case ast.ExprIndex, ast.ExprMember:
		obj := c.compileExpr(lhs.A)
		idx := c.compileExpr(lhs.B)
		c.emit(bytecode.Instr{Op: bytecode.ASET, E: obj, F: idx, G: valReg, Pos: pos})
	}
}

func (c *Compiler) compileAssign(e *ast.Expr) int {
	if e.Op == "~=" {
		subject := c.compileExpr(e.A)
		re := c.compileExpr(e.B)
		r := c.newTemp()
		c.emit(bytecode.Instr{Op: bytecode.SUBST, E: r, F: re, G: subject, Pos: e.Pos})
		c.compileStoreTo(e.A, r, e.Pos)
		return r
	}
	v := c.compileExpr(e.B)
	c.compileStoreTo(e.A, v, e.Pos)
	return c.regForSymbol(e.A.Sym)
}

func (c *Compiler) compileIndexAssign(e *ast.Expr) int {
	obj := c.compileExpr(e.A)
	idx := c.compileExpr(e.B)
	v := c.compileExpr(e.C)
	c.emit(bytecode.Instr{Op: bytecode.ASET, E: obj, F: idx, G: v, Pos: e.Pos})
	return v
}

func (c *Compiler) compileIndex(objExpr, idxExpr *ast.Expr, pos ast.Pos) int {
	obj := c.compileExpr(objExpr)
	idx := c.compileExpr(idxExpr)
	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.SUBSCR, E: r, F: obj, G: idx, Pos: pos})
	return r
}

func (c *Compiler) compileSlice(e *ast.Expr) int {
	obj := c.compileExpr(e.A)
	var lo, hi, step int
	hasLo, hasHi, hasStep := e.B != nil, e.C != nil, e.D != nil
	if hasLo {
		lo = c.compileExpr(e.B)
	}
	if hasHi {
		hi = c.compileExpr(e.C)
	}
	if hasStep {
		step = c.compileExpr(e.D)
	}
	r := c.newTemp()
	ins := bytecode.Instr{Op: bytecode.SLICE, E: r, F: obj, Pos: e.Pos}
	if hasLo {
		ins.G = lo + 1
	}
	if hasHi {
		ins.H = hi + 1
	}
	if hasStep {
		ins.D = step + 1
	}
	c.emit(ins)
	return r
}

func (c *Compiler) compileRange(e *ast.Expr) int {
	lo := c.compileExpr(e.A)
	hi := c.compileExpr(e.B)
	step := -1
	if e.C != nil {
		step = c.compileExpr(e.C)
	}
	r := c.newTemp()
	ins := bytecode.Instr{Op: bytecode.RANGE, E: r, F: lo, G: hi, Pos: e.Pos}
	if step != -1 {
		ins.H = step + 1
	}
	c.emit(ins)
	return r
}

// compileCall lowers a call: arguments are PUSHed in forward order, CALL
// pops argcount of them (in reverse, via the callee's own POP prologue)
// and writes the actual count into ArgcReg for default-parameter handling.
func (c *Compiler) compileCall(e *ast.Expr) int {
	fn := c.compileExpr(e.A)
	for _, a := range e.List {
		v := c.compileExpr(a)
		c.emit(bytecode.Instr{Op: bytecode.PUSH, A: v, Pos: e.Pos})
	}
	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.CALL, E: fn, F: len(e.List), G: r, Pos: e.Pos})
	return r
}

// compileEval lowers `eval src`: the source text is only known at runtime,
// so all this emits is one EVAL instruction carrying the register holding
// the source string and the calling scope id (H) the VM resolves eval's
// free identifiers against — mirroring compileInterp's lazy-resolution
// approach for the same reason (runtime-only text, compile-time scope).
func (c *Compiler) compileEval(e *ast.Expr) int {
	src := c.compileExpr(e.A)
	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.EVAL, B: r, C: src, H: e.Scope, Pos: e.Pos})
	return r
}

// compileComprehension lowers `[body for x = iter if cond]` as sugar over
// a for-in loop accumulating into a fresh array, matching how compileForIn
// already walks an iterable by index.
func (c *Compiler) compileComprehension(e *ast.Expr) int {
	tmpl := c.heap.NewArray()
	out := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.COPYC, B: out, C: c.addConst(tmpl), Pos: e.Pos})

	iterReg := c.newTemp()
	iv := c.compileExpr(e.CompIter)
	c.emitMove(iterReg, iv, e.Pos)
	idxReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.MOVC, B: idxReg, C: c.addConst(value.IntValue(0)), Pos: e.Pos})
	lenReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.LEN, B: lenReg, C: iterReg, Pos: e.Pos})

	condAddr := c.here()
	condReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.LESS, E: condReg, F: idxReg, G: lenReg, Pos: e.Pos})
	exitJump := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: condReg, Pos: e.Pos})

	varReg := c.compCompVarReg(e)
	elReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.SUBSCR, E: elReg, F: iterReg, G: idxReg, Pos: e.Pos})
	c.emitMove(varReg, elReg, e.Pos)

	if e.CompCond != nil {
		cond := c.compileExpr(e.CompCond)
		skip := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: cond, Pos: e.Pos})
		bodyV := c.compileExpr(e.CompBody)
		c.emit(bytecode.Instr{Op: bytecode.APUSH, E: out, F: bodyV, Pos: e.Pos})
		c.patchJumpD(skip, c.here())
	} else {
		bodyV := c.compileExpr(e.CompBody)
		c.emit(bytecode.Instr{Op: bytecode.APUSH, E: out, F: bodyV, Pos: e.Pos})
	}

	one := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.MOVC, B: one, C: c.addConst(value.IntValue(1)), Pos: e.Pos})
	c.emit(bytecode.Instr{Op: bytecode.ADD, E: idxReg, F: idxReg, G: one, Pos: e.Pos})
	c.emit(bytecode.Instr{Op: bytecode.JMP, D: condAddr, Pos: e.Pos})
	c.patchJumpD(exitJump, c.here())
	return out
}

// compCompVarReg resolves the comprehension's bound variable register. The
// resolver opened a fresh scope for the comprehension and declared the
// variable there; that scope id isn't stored directly on the Expr, so the
// compiler re-derives it from the comprehension body's first identifier
// reference scope when possible, falling back to a dedicated temp when the
// body never mentions the variable by name (e.g. `[1 for _ = xs]`-style
// placeholders are not supported by this grammar, so this path is rare).
func (c *Compiler) compCompVarReg(e *ast.Expr) int {
	if sym := c.findCompVarSym(e.CompBody, e.CompVar); sym != nil {
		return c.regForSymbol(sym)
	}
	if e.CompCond != nil {
		if sym := c.findCompVarSym(e.CompCond, e.CompVar); sym != nil {
			return c.regForSymbol(sym)
		}
	}
	return c.newTemp()
}

func (c *Compiler) findCompVarSym(e *ast.Expr, name string) *ast.Symbol {
	if e == nil {
		return nil
	}
	if e.Kind == ast.ExprIdent && e.Str == name && e.Sym != nil {
		return e.Sym
	}
	for _, child := range []*ast.Expr{e.A, e.B, e.C, e.D} {
		if sym := c.findCompVarSym(child, name); sym != nil {
			return sym
		}
	}
	for _, child := range e.List {
		if sym := c.findCompVarSym(child, name); sym != nil {
			return sym
		}
	}
	return nil
}

// compileMatch lowers a `match subject { pattern: body, ..., else: body }`
// expression as a cascade of equality (or regex MATCH) tests, matching
// spec §4.5's description of match as sugar over chained comparisons —
// oak has no dedicated jump-table opcode for it.
func (c *Compiler) compileMatch(e *ast.Expr) int {
	subject := c.compileExpr(e.A)
	result := c.newTemp()
	var endJumps []int
	for _, arm := range e.Arms {
		if arm.Pattern == nil {
			bodyV := c.compileExpr(arm.Body)
			c.emitMove(result, bodyV, e.Pos)
			continue
		}
		pat := c.compileExpr(arm.Pattern)
		test := c.newTemp()
		if arm.IsRegex {
			c.emit(bytecode.Instr{Op: bytecode.MATCH, E: test, F: pat, G: subject, Pos: e.Pos})
		} else {
			c.emit(bytecode.Instr{Op: bytecode.CMP, E: test, F: subject, G: pat, Pos: e.Pos})
		}
		next := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: test, Pos: e.Pos})
		bodyV := c.compileExpr(arm.Body)
		c.emitMove(result, bodyV, e.Pos)
		endJumps = append(endJumps, c.emit(bytecode.Instr{Op: bytecode.JMP, Pos: e.Pos}))
		c.patchJumpD(next, c.here())
	}
	for _, j := range endJumps {
		c.patchJumpD(j, c.here())
	}
	return result
}
