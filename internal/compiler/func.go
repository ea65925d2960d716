package compiler

import (
	"oak/internal/ast"
	"oak/internal/bytecode"
	"oak/internal/value"
)

// funcFrame captures everything about the compiler's frame-local state
// that must be saved/restored around compiling a nested function body,
// since functions are compiled inline into the same flat instruction
// stream (spec §4.5: "a JMP over the function body comes first").
type funcFrame struct {
	regBase, regNext, regHigh int
	inFunction                bool
	loopStack                 []*loopCtx
	labelAddrs                map[string]int
	gotoPatches               []gotoPatch
}

func (c *Compiler) save() funcFrame {
	return funcFrame{c.regBase, c.regNext, c.regHigh, c.inFunction, c.loopStack, c.labelAddrs, c.gotoPatches}
}

func (c *Compiler) restore(f funcFrame) {
	c.regBase, c.regNext, c.regHigh = f.regBase, f.regNext, f.regHigh
	c.inFunction = f.inFunction
	c.loopStack = f.loopStack
	c.labelAddrs = f.labelAddrs
	c.gotoPatches = f.gotoPatches
}

// compileFuncBody emits: JMP-over placeholder, POP-param prologue (reverse
// order, matching the caller's forward PUSH order), default-parameter
// materialization gated on ArgcReg, the body itself, and a trailing
// implicit `return nil` if execution falls off the end. Returns the entry
// address and, for each parameter, whether it carries a default.
func (c *Compiler) compileFuncBody(params []ast.Param, body []*ast.Stmt, exprBody *ast.Expr, fnScopeID int, pos ast.Pos) (entry int, defaults []bool) {
	jumpOver := c.emit(bytecode.Instr{Op: bytecode.JMP, Pos: pos})
	entry = c.here()

	fnScope := c.resolver.ScopeByID(fnScopeID)
	saved := c.save()
	c.regBase = fnScope.VarCount()
	c.regNext = c.regBase
	c.regHigh = c.regBase
	c.inFunction = true
	c.loopStack = nil
	c.labelAddrs = map[string]int{}
	c.gotoPatches = nil

	// Pop in reverse order (matching the caller's forward PUSH order), but
	// only for parameters the caller actually supplied: ArgcReg holds the
	// number of arguments pushed, and a param at index >= argc was never
	// pushed, so popping it unconditionally would instead consume a value
	// left on the stack by an unrelated outer call. A skipped param's
	// register keeps its initial Undef value until the default-value pass
	// below fills it in.
	for i := len(params) - 1; i >= 0; i-- {
		sym := fnScope.Resolve(params[i].Name)
		idxReg := c.newTemp()
		c.emit(bytecode.Instr{Op: bytecode.MOVC, B: idxReg, C: c.addConst(value.IntValue(int64(i))), Pos: pos})
		haveReg := c.newTemp()
		c.emit(bytecode.Instr{Op: bytecode.LESS, E: haveReg, F: idxReg, G: ArgcReg, Pos: pos})
		skip := c.emit(bytecode.Instr{Op: bytecode.NCOND, E: haveReg, Pos: pos})
		c.emit(bytecode.Instr{Op: bytecode.POP, A: sym.Address, Pos: pos})
		c.patchJumpD(skip, c.here())
		c.resetTemps()
	}

	defaults = make([]bool, len(params))
	for i, p := range params {
		if p.Default == nil {
			continue
		}
		defaults[i] = true
		sym := fnScope.Resolve(p.Name)
		idxReg := c.newTemp()
		c.emit(bytecode.Instr{Op: bytecode.MOVC, B: idxReg, C: c.addConst(value.IntValue(int64(i))), Pos: pos})
		haveReg := c.newTemp()
		c.emit(bytecode.Instr{Op: bytecode.LESS, E: haveReg, F: idxReg, G: ArgcReg, Pos: pos})
		skip := c.emit(bytecode.Instr{Op: bytecode.COND, E: haveReg, Pos: pos})
		c.resetTemps()
		dv := c.compileExpr(p.Default)
		c.emitMove(sym.Address, dv, pos)
		c.patchJumpD(skip, c.here())
		c.resetTemps()
	}

	if body != nil {
		c.hoistLabels(body)
		for _, st := range body {
			c.compileStmt(st)
		}
		c.emit(bytecode.Instr{Op: bytecode.RET, B: 0, Pos: pos})
	} else {
		v := c.compileExpr(exprBody)
		c.emit(bytecode.Instr{Op: bytecode.RET, A: v, B: 1, Pos: pos})
	}
	c.patchGotos()

	c.restore(saved)
	c.patchJumpD(jumpOver, c.here())
	return entry, defaults
}

// compileFuncDecl lowers `fn name(params) { body }` / `... => expr`.
func (c *Compiler) compileFuncDecl(s *ast.Stmt) {
	sym := c.resolver.ScopeByID(s.Scope).Resolve(s.Name)
	placeholder := c.heap.NewFn(value.FnValue{Entry: -1, Module: c.module, Arity: len(s.Args), Name: s.Name})
	idx := c.addConst(placeholder)
	sym.Address = idx

	entry, defaults := c.compileFuncBody(s.Args, s.FnBody, s.FnExprBody, s.FnScope, s.Pos)
	fv := c.heap.Fn(placeholder.Slot)
	fv.Entry = entry
	fv.Defaults = defaults
}

// compileFuncLiteral lowers an anonymous `fn(params) => expr` / `{ block }`
// expression, returning the register holding the materialized Fn value.
func (c *Compiler) compileFuncLiteral(e *ast.Expr) int {
	placeholder := c.heap.NewFn(value.FnValue{Entry: -1, Module: c.module, Arity: len(e.Params), Name: ""})
	idx := c.addConst(placeholder)

	entry, defaults := c.compileFuncBody(e.Params, e.Body, e.ExprBody, e.FnScope, e.Pos)
	fv := c.heap.Fn(placeholder.Slot)
	fv.Entry = entry
	fv.Defaults = defaults

	r := c.newTemp()
	c.emit(bytecode.Instr{Op: bytecode.MOVC, B: r, C: idx, Pos: e.Pos})
	return r
}
