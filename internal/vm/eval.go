package vm

import (
	"oak/internal/bytecode"
	"oak/internal/compiler"
	"oak/internal/errors"
	"oak/internal/lexer"
	"oak/internal/parser"
	"oak/internal/symbol"
	"oak/internal/value"
)

// execEval implements the `eval` primitive (spec §3.9/§4.7): B is the
// destination register, C holds the source-string register, H is the
// compile-time scope id eval's free identifiers should resolve against
// (the calling statement's own scope, per compileEval). It lexes, parses,
// resolves against that scope (reusing its frame, per symbol.Resolver's
// Resolve contract) and compiles into a fresh fragment that shares the
// calling frame's register array, then runs that fragment inline.
//
// Grounded on src/vm.c's eval(): resolving/compiling against the caller's
// live scope rather than a fresh global one is what lets `eval "x = 1"`
// mutate a variable already in scope.
func (vm *VM) execEval(f *frame, ins bytecode.Instr, loc errors.Location) {
	srcVal := vm.getReg(f, ins.C)
	if srcVal.Kind != value.Str {
		vm.fatal(loc, "eval requires a string argument")
		return
	}
	src := vm.Heap.Str(srcVal.Slot)

	scope := f.resolver.ScopeByID(ins.H)
	if scope == nil {
		vm.fatal(loc, "eval: scope is no longer available")
		return
	}

	sc := lexer.NewScanner(src)
	tokens := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		vm.fatal(loc, "eval: %s", sc.Errors[0])
		return
	}

	p := parser.New("eval", src, tokens)
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		for _, d := range p.Errors {
			vm.Rep.Push(d.Loc, d.Sev, "%s", d.Message)
		}
		return
	}

	root := f.resolver.Resolve(stmts, scope)
	if len(f.resolver.Errors) > 0 {
		for _, d := range f.resolver.Errors {
			vm.Rep.Push(d.Loc, d.Sev, "%s", d.Message)
		}
		return
	}

	stackBase := scope.VarCount()

	cc := compiler.New(f.module, f.resolver, vm.Heap, vm.Rep)
	result := cc.CompileEvalFragment(stmts, root)
	if vm.Rep.Fatal() {
		return
	}

	vm.ensureCapacity(f, result.MaxReg)

	sub := &frame{regs: f.regs, module: f.module, code: result.Code, ct: result.Constants, resolver: f.resolver, isModuleRoot: f.isModuleRoot}
	vm.execute(sub)

	if vm.Rep.Fatal() {
		return
	}

	vm.setReg(f, ins.B, vm.getReg(f, compiler.EvalResultReg), loc)

	// Clear every register the fragment could have declared, mirroring the
	// original's post-eval cleanup loop: otherwise a second, unrelated eval
	// sharing the same frame could read a stale value left behind by this
	// one in a register number it never itself declares.
	for i := stackBase; i < compiler.NumReg; i++ {
		if i == ins.B || i == compiler.ArgcReg || i == compiler.EvalResultReg {
			continue
		}
		f.regs[i] = value.UndefValue()
	}
}

// EvalTopLevel compiles and runs src against scope (typically an already
// loaded module's own root scope) directly in moduleID's persistent global
// frame, exactly the way execEval runs a fragment inline against a live
// frame's register array — except there is no running frame to borrow one
// from, since this is called from the CLI, not from inside a CALL. It
// backs spec §6.1's "-e runs as a child evaluated inside [the file]'s root
// scope" composition rule.
func (vm *VM) EvalTopLevel(moduleID int, resolver *symbol.Resolver, scope *symbol.Scope, src string) (value.Value, bool) {
	sc := lexer.NewScanner(src)
	tokens := sc.ScanTokens()
	if len(sc.Errors) > 0 {
		vm.Rep.Push(errors.Location{}, errors.Fatal, "eval: %s", sc.Errors[0])
		return value.NilValue(), false
	}

	p := parser.New("-e", src, tokens)
	stmts := p.Parse()
	if len(p.Errors) > 0 {
		for _, d := range p.Errors {
			vm.Rep.Push(d.Loc, d.Sev, "%s", d.Message)
		}
		return value.NilValue(), false
	}

	root := resolver.Resolve(stmts, scope)
	if len(resolver.Errors) > 0 {
		for _, d := range resolver.Errors {
			vm.Rep.Push(d.Loc, d.Sev, "%s", d.Message)
		}
		return value.NilValue(), false
	}

	cc := compiler.New(moduleID, resolver, vm.Heap, vm.Rep)
	result := cc.CompileEvalFragment(stmts, root)
	if vm.Rep.Fatal() {
		return value.NilValue(), false
	}

	f := &frame{regs: vm.Globals[moduleID], module: moduleID, code: result.Code, ct: result.Constants, resolver: resolver, isModuleRoot: true}
	vm.ensureCapacity(f, result.MaxReg)
	vm.execute(f)
	if vm.Rep.Fatal() {
		return value.NilValue(), false
	}
	return vm.getReg(f, compiler.EvalResultReg), true
}

// ensureCapacity grows f's register array to at least n slots, updating
// vm.Globals when f is the module-root frame so other frames' NumReg+
// global reads keep seeing the same backing array.
func (vm *VM) ensureCapacity(f *frame, n int) {
	if n <= len(f.regs) {
		return
	}
	regs := make([]value.Value, n)
	copy(regs, f.regs)
	for i := len(f.regs); i < n; i++ {
		regs[i] = value.UndefValue()
	}
	f.regs = regs
	if f.isModuleRoot {
		vm.Globals[f.module] = regs
	}
}
