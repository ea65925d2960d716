package compiler

import (
	"oak/internal/ast"
	"oak/internal/bytecode"
	"oak/internal/value"
)

// compileStmt lowers one statement, honoring its optional trailing `when`
// guard (spec: `stmt when cond` skips stmt entirely if cond is falsy) and
// resetting the temp-register pointer before and after.
func (c *Compiler) compileStmt(s *ast.Stmt) {
	c.resetTemps()

	var skipJump = -1
	if s.When != nil {
		cond := c.compileExpr(s.When)
		skipJump = c.emit(bytecode.Instr{Op: bytecode.NCOND, E: cond, Pos: s.Pos})
		c.resetTemps()
	}

	c.compileStmtBody(s)

	if skipJump != -1 {
		c.patchJumpD(skipJump, c.here())
	}
	c.resetTemps()
}

func (c *Compiler) compileStmtBody(s *ast.Stmt) {
	switch s.Kind {
	case ast.StmtExpr:
		c.compileExpr(s.Expr)

	case ast.StmtVarDecl:
		reg := c.regOf(s.Scope, s.Name)
		if s.Expr != nil {
			v := c.compileExpr(s.Expr)
			c.emit(bytecode.Instr{Op: bytecode.COPY, B: reg, C: v, Pos: s.Pos})
		} else {
			c.emit(bytecode.Instr{Op: bytecode.MOVC, B: reg, C: c.addConst(value.NilValue()), Pos: s.Pos})
		}

	case ast.StmtBlock:
		c.hoistLabels(s.Body)
		for _, st := range s.Body {
			c.compileStmt(st)
		}

	case ast.StmtIf:
		c.compileIf(s)

	case ast.StmtWhile:
		c.compileWhile(s)

	case ast.StmtDoWhile:
		c.compileDoWhile(s)

	case ast.StmtForClassic:
		c.compileForClassic(s)

	case ast.StmtForIn:
		c.compileForIn(s)

	case ast.StmtForRegex:
		c.compileForRegex(s)

	case ast.StmtLast:
		lc := c.currentLoop(s)
		idx := c.emit(bytecode.Instr{Op: bytecode.JMP, Pos: s.Pos})
		if lc != nil {
			lc.lastJumps = append(lc.lastJumps, idx)
		}

	case ast.StmtNext:
		lc := c.currentLoop(s)
		idx := c.emit(bytecode.Instr{Op: bytecode.JMP, Pos: s.Pos})
		if lc != nil {
			lc.nextJumps = append(lc.nextJumps, idx)
		}

	case ast.StmtGoto:
		idx := c.emit(bytecode.Instr{Op: bytecode.JMP, Pos: s.Pos})
		c.gotoPatches = append(c.gotoPatches, gotoPatch{instrIdx: idx, label: s.Name})

	case ast.StmtLabel:
		c.labelAddrs[s.Name] = c.here()

	case ast.StmtFuncDecl:
		c.compileFuncDecl(s)

	case ast.StmtEnumDecl:
		c.compileEnumDecl(s)

	case ast.StmtDie:
		var reg int
		if s.Expr != nil {
			reg = c.compileExpr(s.Expr)
		} else {
			reg = c.newTemp()
			c.emit(bytecode.Instr{Op: bytecode.MOVC, B: reg, C: c.addConst(value.NilValue()), Pos: s.Pos})
		}
		c.emit(bytecode.Instr{Op: bytecode.KILL, A: reg, Pos: s.Pos})

	case ast.StmtPrint:
		c.compilePrint(s)

	case ast.StmtReturn:
		c.compileReturn(s)
	}
}

// emitMove copies src into dst using COPY for heap-kind semantics (spec
// §4.1: assignment deep-copies arrays/tables, matching COPYC's contract
// for literals) — but a freshly evaluated temp register is never aliased
// elsewhere, so a plain MOV suffices for expression results; only
// var-decl initializers and identifier assignment need the copying form
// COPY, which compileStmtBody's StmtVarDecl case and compileStoreTo emit
// directly.
func (c *Compiler) emitMove(dst, src int, pos ast.Pos) {
	if dst == src {
		return
	}
	c.emit(bytecode.Instr{Op: bytecode.MOV, B: dst, C: src, Pos: pos})
}

func (c *Compiler) currentLoop(s *ast.Stmt) *loopCtx {
	if len(c.loopStack) == 0 {
		c.error(s.Pos, "'last'/'next' used outside of a loop")
		return nil
	}
	return c.loopStack[len(c.loopStack)-1]
}

func (c *Compiler) pushLoop() *loopCtx {
	lc := &loopCtx{}
	c.loopStack = append(c.loopStack, lc)
	return lc
}

func (c *Compiler) popLoop() { c.loopStack = c.loopStack[:len(c.loopStack)-1] }

// patchLoopExits patches every "last" jump to exitAddr and every "next"
// jump to nextAddr (the continue target — the condition re-check for
// while/for-in, or the step for classic for).
func (c *Compiler) patchLoopExits(lc *loopCtx, nextAddr, exitAddr int) {
	for _, idx := range lc.nextJumps {
		c.patchJumpD(idx, nextAddr)
	}
	for _, idx := range lc.lastJumps {
		c.patchJumpD(idx, exitAddr)
	}
}

func (c *Compiler) compileIf(s *ast.Stmt) {
	cond := c.compileExpr(s.Cond)
	jumpOverThen := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: cond, Pos: s.Pos})
	c.resetTemps()
	c.hoistLabels(s.Body)
	for _, st := range s.Body {
		c.compileStmt(st)
	}
	if s.Init != nil {
		jumpOverElse := c.emit(bytecode.Instr{Op: bytecode.JMP, Pos: s.Pos})
		c.patchJumpD(jumpOverThen, c.here())
		c.compileStmt(s.Init)
		c.patchJumpD(jumpOverElse, c.here())
	} else {
		c.patchJumpD(jumpOverThen, c.here())
	}
}

func (c *Compiler) compileWhile(s *ast.Stmt) {
	lc := c.pushLoop()
	top := c.here()
	cond := c.compileExpr(s.Cond)
	exitJump := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: cond, Pos: s.Pos})
	c.resetTemps()
	c.hoistLabels(s.Body)
	for _, st := range s.Body {
		c.compileStmt(st)
	}
	c.emit(bytecode.Instr{Op: bytecode.JMP, D: top, Pos: s.Pos})
	exitAddr := c.here()
	c.patchJumpD(exitJump, exitAddr)
	c.patchLoopExits(lc, top, exitAddr)
	c.popLoop()
}

func (c *Compiler) compileDoWhile(s *ast.Stmt) {
	lc := c.pushLoop()
	top := c.here()
	c.hoistLabels(s.Body)
	for _, st := range s.Body {
		c.compileStmt(st)
	}
	condAddr := c.here()
	cond := c.compileExpr(s.Cond)
	c.emit(bytecode.Instr{Op: bytecode.COND, E: cond, D: top, Pos: s.Pos})
	exitAddr := c.here()
	c.patchLoopExits(lc, condAddr, exitAddr)
	c.popLoop()
}

func (c *Compiler) compileForClassic(s *ast.Stmt) {
	if s.Init != nil {
		c.compileStmt(s.Init)
	}
	lc := c.pushLoop()
	condAddr := c.here()
	exitJump := -1
	if s.Cond != nil {
		cond := c.compileExpr(s.Cond)
		exitJump = c.emit(bytecode.Instr{Op: bytecode.NCOND, E: cond, Pos: s.Pos})
		c.resetTemps()
	}
	c.hoistLabels(s.Body)
	for _, st := range s.Body {
		c.compileStmt(st)
	}
	stepAddr := c.here()
	if s.Step != nil {
		c.compileExpr(s.Step)
		c.resetTemps()
	}
	c.emit(bytecode.Instr{Op: bytecode.JMP, D: condAddr, Pos: s.Pos})
	exitAddr := c.here()
	if exitJump != -1 {
		c.patchJumpD(exitJump, exitAddr)
	}
	c.patchLoopExits(lc, stepAddr, exitAddr)
	c.popLoop()
}

// compileForIn lowers `for [var] x = iterable { ... }`. The iterable is
// evaluated once into a register; an index counter (a fresh temp living in
// the loop's own frame slot so it survives across iterations) walks it via
// LEN+SUBSCR, matching spec §4.5's description of for-in as sugar over an
// indexed while loop (oak has no separate iterator protocol/instruction).
func (c *Compiler) compileForIn(s *ast.Stmt) {
	iterReg := c.newTemp()
	iv := c.compileExpr(s.Iter)
	c.emitMove(iterReg, iv, s.Pos)
	idxReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.MOVC, B: idxReg, C: c.addConst(value.IntValue(0)), Pos: s.Pos})
	lenReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.LEN, B: lenReg, C: iterReg, Pos: s.Pos})

	lc := c.pushLoop()
	condAddr := c.here()
	condReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.LESS, E: condReg, F: idxReg, G: lenReg, Pos: s.Pos})
	exitJump := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: condReg, Pos: s.Pos})

	elReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.SUBSCR, E: elReg, F: iterReg, G: idxReg, Pos: s.Pos})
	if !s.ImplicitVar {
		varReg := c.regOf(s.Scope, s.IterVar)
		c.emitMove(varReg, elReg, s.Pos)
	}
	c.emit(bytecode.Instr{Op: bytecode.PUSHIMP, A: elReg, Pos: s.Pos})
	c.resetTempsKeeping(iterReg, idxReg, lenReg)

	c.hoistLabels(s.Body)
	for _, st := range s.Body {
		c.compileStmt(st)
	}
	nextAddr := c.here()
	c.emit(bytecode.Instr{Op: bytecode.POPIMP, Pos: s.Pos})
	one := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.MOVC, B: one, C: c.addConst(value.IntValue(1)), Pos: s.Pos})
	c.emit(bytecode.Instr{Op: bytecode.ADD, E: idxReg, F: idxReg, G: one, Pos: s.Pos})
	c.emit(bytecode.Instr{Op: bytecode.JMP, D: condAddr, Pos: s.Pos})
	// breakAddr: reached only via `last`, pops the implicit-subject stack
	// entry the body's iteration pushed (the normal path pops it at
	// nextAddr above) before falling through to exitAddr.
	breakAddr := c.here()
	c.emit(bytecode.Instr{Op: bytecode.POPIMP, Pos: s.Pos})
	exitAddr := c.here()
	c.patchJumpD(exitJump, exitAddr)
	for _, idx := range lc.nextJumps {
		c.patchJumpD(idx, nextAddr)
	}
	for _, idx := range lc.lastJumps {
		c.patchJumpD(idx, breakAddr)
	}
	c.popLoop()
}

// resetTempsKeeping resets the temp pointer but keeps some registers that
// must stay live across the loop body (used by for-in's iterator/index
// bookkeeping registers, which aren't frame locals but must survive the
// per-statement temp reset).
func (c *Compiler) resetTempsKeeping(regs ...int) {
	max := c.regBase
	for _, r := range regs {
		if r+1 > max {
			max = r + 1
		}
	}
	c.regNext = max
}

// compileForRegex lowers `for /re/ { ... }` and `for lhs ~= /re/ { ... }`
// into a loop driven by the regex continuation cursor (spec §4.4/§4.7's
// "regex object remembers its own match cursor" contract): each iteration
// runs MATCH against the loop's regex object starting from its own
// LastCursor, advancing the cursor as it goes and exiting the loop on the
// first failed match.
func (c *Compiler) compileForRegex(s *ast.Stmt) {
	reReg := c.compileExpr(s.RegexLit)
	subjReg := c.newTemp()
	if s.LHS != nil {
		lv := c.compileExpr(s.LHS)
		c.emitMove(subjReg, lv, s.Pos)
	} else {
		c.emit(bytecode.Instr{Op: bytecode.GETIMP, A: subjReg, Pos: s.Pos})
	}
	c.resetTempsKeeping(reReg, subjReg)

	lc := c.pushLoop()
	condAddr := c.here()
	matchReg := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.MATCH, E: matchReg, F: reReg, G: subjReg, Pos: s.Pos})
	exitJump := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: matchReg, Pos: s.Pos})
	c.resetTempsKeeping(reReg, subjReg)

	c.hoistLabels(s.Body)
	for _, st := range s.Body {
		c.compileStmt(st)
	}
	c.emit(bytecode.Instr{Op: bytecode.JMP, D: condAddr, Pos: s.Pos})
	exitAddr := c.here()
	c.patchJumpD(exitJump, exitAddr)
	c.patchLoopExits(lc, condAddr, exitAddr)
	c.popLoop()
}

func (c *Compiler) compileEnumDecl(s *ast.Stmt) {
	for _, m := range s.EnumMembers {
		sym := c.resolver.GlobalScope.Resolve(m.Name)
		reg := NumReg + sym.Address
		if !c.inFunction {
			reg = sym.Address
		}
		c.emit(bytecode.Instr{Op: bytecode.MOVC, B: reg, C: c.addConst(value.IntValue(sym.EnumValue)), Pos: s.Pos})
	}
}

// compilePrint evaluates each argument and copies it into a contiguous
// temp-register block (an evaluated argument isn't necessarily in a fresh
// temp itself — a bare identifier compiles straight to its own symbol
// register — so PRINT's "E=base, A=argc consecutive registers" contract
// needs the explicit copy, the same pattern compileInterp uses for INTERP).
func (c *Compiler) compilePrint(s *ast.Stmt) {
	vals := make([]int, len(s.PrintArgs))
	for i, a := range s.PrintArgs {
		vals[i] = c.compileExpr(a)
	}
	base := c.regNext
	for range vals {
		c.newTemp()
	}
	for i, v := range vals {
		c.emitMove(base+i, v, s.Pos)
	}
	nl := 0
	if s.Println {
		nl = 1
	}
	c.emit(bytecode.Instr{Op: bytecode.PRINT, A: len(vals), E: base, H: nl, Pos: s.Pos})
}

func (c *Compiler) compileReturn(s *ast.Stmt) {
	if s.Expr != nil {
		reg := c.compileExpr(s.Expr)
		c.emit(bytecode.Instr{Op: bytecode.RET, A: reg, B: 1, Pos: s.Pos})
	} else {
		c.emit(bytecode.Instr{Op: bytecode.RET, B: 0, Pos: s.Pos})
	}
}

// regOf resolves the register a declared name lives in within the scope a
// statement was resolved against.
func (c *Compiler) regOf(scopeID int, name string) int {
	scope := c.resolver.ScopeByID(scopeID)
	sym := scope.Resolve(name)
	return c.regForSymbol(sym)
}

// regForSymbol computes the register (or NumReg+address for a global
// referenced from inside a function) a resolved symbol lives in.
func (c *Compiler) regForSymbol(sym *ast.Symbol) int {
	if sym.Type == ast.SymGlobal && c.inFunction {
		return NumReg + sym.Address
	}
	return sym.Address
}
