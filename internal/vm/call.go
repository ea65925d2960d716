package vm

import (
	"oak/internal/bytecode"
	"oak/internal/compiler"
	"oak/internal/errors"
	"oak/internal/value"
)

// execCall dispatches bytecode.CALL: E holds the register carrying the Fn
// value, F the argument count the caller PUSHed just before this
// instruction, G the register the return value should land in.
//
// A function's code lives inline in its own module's instruction stream
// (compiler.compileFuncBody emits it as a JMP-over block), so calling a
// function declared in a different module than the caller means running
// against that module's Program rather than the caller's — grounded on
// src/vm.c's INSTR_CALL switching `vm->module` to the callee's before
// jumping to its entry point.
func (vm *VM) execCall(f *frame, ins bytecode.Instr) {
	loc := ins.Pos.Loc()
	fv := vm.getReg(f, ins.E)
	if fv.Kind != value.Fn {
		vm.fatal(loc, "attempt to call a non-function value")
		return
	}
	fn := vm.Heap.Fn(fv.Slot)

	if vm.depth >= maxCallDepth {
		vm.fatal(loc, "call stack exceeded maximum depth (%d)", maxCallDepth)
		return
	}

	p, ok := vm.Programs[fn.Module]
	if !ok {
		vm.fatal(loc, "function '%s' belongs to an unloaded module", fn.Name)
		return
	}

	size := p.MaxReg
	if size < compiler.NumReg {
		size = compiler.NumReg
	}
	regs := make([]value.Value, size)
	for i := range regs {
		regs[i] = value.UndefValue()
	}
	regs[compiler.ArgcReg] = value.IntValue(int64(ins.F))

	callee := &frame{regs: regs, module: fn.Module, code: p.Code, ct: p.Constants, resolver: p.Resolver, ip: fn.Entry}

	vm.depth++
	vm.callStack = append(vm.callStack, errors.StackFrame{
		Function: fn.Name,
		File:     loc.File,
		Line:     loc.Line,
		Column:   loc.Column,
	})

	ret, _ := vm.execute(callee)

	vm.depth--
	vm.callStack = vm.callStack[:len(vm.callStack)-1]

	if !vm.Rep.Fatal() {
		vm.setReg(f, ins.G, ret, loc)
	}
}
