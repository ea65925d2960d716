// Package compiler lowers a resolved *ast.Stmt tree into a flat
// bytecode.Instr stream plus a constant.Table (spec §4.5/§4.6).
//
// Grounded on _examples/original_source/src/compile.c's single-pass
// tree-walking codegen (no separate IR, no optimization pass beyond
// constant folding of enum initializers already done by the resolver) and
// on the teacher's internal/compregister/compiler.go for the general shape
// of a Go compiler driving a register allocator — but NOT its free-list
// register reuse: spec §4.5 mandates a monotonic high-water-mark
// allocator, reset to the frame's local-variable count at the start of
// each statement, so temporaries are never recycled mid-statement.
package compiler

import (
	"oak/internal/ast"
	"oak/internal/bytecode"
	"oak/internal/constant"
	"oak/internal/errors"
	"oak/internal/symbol"
	"oak/internal/value"
)

// NumReg is NUM_REG (spec §3 "Frame"): registers 0..NumReg-1 address the
// current frame; NumReg+address addresses a module's persistent global
// frame from any nested function frame.
const NumReg = 256

// maxRegister is the compile-time ceiling spec §4.5 names: exceeding 2^15
// distinct registers in one frame is a fatal compile error.
const maxRegister = 1 << 15

// ArgcReg is a reserved register (the top of every frame) CALL writes the
// actual argument count into before jumping to the callee: a function's
// default-parameter prologue reads it to decide which trailing parameters
// still need their default expression evaluated.
const ArgcReg = NumReg - 1

// EvalResultReg is a second reserved register: CompileEvalFragment leaves
// an eval'd source's result value here, mirroring the original's convention
// of pushing eval's result onto the shared operand stack for the VM's eval
// handler to collect (src/vm.c's eval()/find_undef()).
const EvalResultReg = NumReg - 2

type loopCtx struct {
	nextJumps []int // JMP instr indices to patch to the "next" (continue) target
	lastJumps []int // JMP instr indices to patch to the "last" (break) target
}

type gotoPatch struct {
	instrIdx int
	label    string
}

// Compiler compiles one module's statement tree into a single flat
// instruction stream; function literals/declarations are compiled inline
// (a JMP over the body, the body's code right after), matching
// compile.c's treatment of `fn` as just another expression/statement.
type Compiler struct {
	code []bytecode.Instr
	ct   *constant.Table
	heap *value.Heap
	rep  *errors.Reporter

	resolver *symbol.Resolver
	module   int

	regBase int // current frame's local-variable count: temp allocation starts here
	regNext int // next free register in the current frame
	regHigh int // high-water mark seen so far in the current frame

	// globalMaxReg is the largest regHigh seen across every frame compiled
	// in this module (module root plus every nested function), not just the
	// frame currently being compiled — save/restore around a function body
	// resets regHigh to the enclosing frame's value, but every frame's
	// array still needs to be at least this big, since ArgcReg/EvalResultReg
	// are fixed absolute register numbers every frame must have room for.
	globalMaxReg int

	inFunction bool // false while compiling the module root frame

	loopStack []*loopCtx

	labelAddrs  map[string]int
	gotoPatches []gotoPatch
}

// Result is everything a compiled module needs to run.
type Result struct {
	Code      []bytecode.Instr
	Constants *constant.Table
	// MaxReg is the largest register array size any frame (module root or
	// any function) compiled here needs — at least NumReg, since ArgcReg
	// and EvalResultReg are fixed slots near the top of every frame.
	MaxReg int
}

// New creates a compiler for one module. heap is shared across every
// module in a program (constants referencing heap-allocated strings/arrays
// are materialized into it as they're compiled).
func New(module int, resolver *symbol.Resolver, heap *value.Heap, rep *errors.Reporter) *Compiler {
	return &Compiler{
		ct:       constant.New(),
		heap:     heap,
		rep:      rep,
		resolver: resolver,
		module:   module,
	}
}

// Compile lowers an entire module body. root is the scope the resolver
// produced for these statements (Resolver.Resolve's return value).
func (c *Compiler) Compile(stmts []*ast.Stmt, root *symbol.Scope) Result {
	c.regBase = root.VarCount()
	c.regNext = c.regBase
	c.regHigh = c.regBase
	c.labelAddrs = map[string]int{}
	c.hoistLabels(stmts)
	for _, s := range stmts {
		c.compileStmt(s)
	}
	c.emit(bytecode.Instr{Op: bytecode.END})
	c.patchGotos()
	return Result{Code: c.code, Constants: c.ct, MaxReg: c.frameSize()}
}

// CompileEvalFragment compiles the statements produced by parsing a
// runtime `eval` source string, resolved against an existing (usually the
// calling) scope so its free identifiers address the right frame slots.
// Unlike Compile, it exposes a result value: if the last top-level
// statement is a bare (unguarded) expression statement, that expression's
// value is left in EvalResultReg instead of being discarded, so `eval` can
// be used like an expression. Every other statement compiles exactly as it
// would at module scope.
func (c *Compiler) CompileEvalFragment(stmts []*ast.Stmt, root *symbol.Scope) Result {
	c.regBase = root.VarCount()
	c.regNext = c.regBase
	c.regHigh = c.regBase
	c.labelAddrs = map[string]int{}
	c.hoistLabels(stmts)
	c.emit(bytecode.Instr{Op: bytecode.MOVC, B: EvalResultReg, C: c.addConst(value.NilValue())})
	for i, s := range stmts {
		if i == len(stmts)-1 && s.Kind == ast.StmtExpr && s.When == nil {
			c.resetTemps()
			r := c.compileExpr(s.Expr)
			c.emit(bytecode.Instr{Op: bytecode.MOV, B: EvalResultReg, C: r, Pos: s.Pos})
			c.resetTemps()
			continue
		}
		c.compileStmt(s)
	}
	c.emit(bytecode.Instr{Op: bytecode.END})
	c.patchGotos()
	return Result{Code: c.code, Constants: c.ct, MaxReg: c.frameSize()}
}

// frameSize is the register array size every frame this compiler produced
// needs: at least NumReg, since ArgcReg/EvalResultReg are fixed slots near
// the top of the 0..NumReg-1 range every frame reserves regardless of how
// few locals/temps it actually uses.
func (c *Compiler) frameSize() int {
	if c.globalMaxReg > NumReg {
		return c.globalMaxReg
	}
	return NumReg
}

func (c *Compiler) error(pos ast.Pos, format string, args ...interface{}) {
	c.rep.Push(pos.Loc(), errors.Fatal, format, args...)
}

// --- register allocation -------------------------------------------------

// resetTemps drops the temp-register pointer back to the frame's local
// count, matching spec §4.5: "temporaries do not survive past the
// statement that created them".
func (c *Compiler) resetTemps() {
	c.regNext = c.regBase
}

func (c *Compiler) newTemp() int {
	r := c.regNext
	c.regNext++
	if c.regNext > c.regHigh {
		c.regHigh = c.regNext
	}
	if c.regHigh > c.globalMaxReg {
		c.globalMaxReg = c.regHigh
	}
	if c.regHigh >= maxRegister {
		c.error(ast.Pos{}, "frame exceeds maximum register count (%d)", maxRegister)
	}
	return r
}

// --- emission -------------------------------------------------------------

func (c *Compiler) emit(ins bytecode.Instr) int {
	c.code = append(c.code, ins)
	return len(c.code) - 1
}

func (c *Compiler) here() int { return len(c.code) }

func (c *Compiler) patchJumpD(idx int, target int) { c.code[idx].D = target }

func (c *Compiler) addConst(v value.Value) int { return c.ct.Add(v) }

// --- labels / goto ---------------------------------------------------------

// hoistLabels pre-scans a flat statement body for labels so a goto can
// jump forward to one. Labels are only ever siblings within the same
// block in practice (spec §4.5), so this only scans the top level of each
// block as it's compiled — see compileStmt's StmtBlock/function-body cases
// which call hoistLabels again for nested blocks.
func (c *Compiler) hoistLabels(stmts []*ast.Stmt) {
	for _, s := range stmts {
		if s.Kind == ast.StmtLabel {
			c.labelAddrs[s.Name] = -1 // address unknown until compiled; placeholder
		}
	}
}

func (c *Compiler) patchGotos() {
	for _, g := range c.gotoPatches {
		if addr, ok := c.labelAddrs[g.label]; ok && addr >= 0 {
			c.patchJumpD(g.instrIdx, addr)
		} else {
			c.error(ast.Pos{}, "goto to undefined label '%s'", g.label)
		}
	}
	c.gotoPatches = nil
}
