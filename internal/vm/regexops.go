package vm

import (
	"oak/internal/bytecode"
	"oak/internal/errors"
	"oak/internal/regex"
	"oak/internal/value"
)

// execRegex dispatches MATCH/SUBST/SPLIT/GROUP, grounded on src/vm.c's
// INSTR_MATCH/INSTR_SUBST/INSTR_SPLIT/INSTR_GROUP and the regex object's
// continuation-cursor fields (LastSubject/LastCursor/LastMatch), which
// give `for /re/ {...}` its "resume from the last match" behavior.
func (vm *VM) execRegex(f *frame, ins bytecode.Instr, loc errors.Location) {
	switch ins.Op {
	case bytecode.MATCH:
		vm.setReg(f, ins.E, vm.execMatch(f, ins, loc), loc)
	case bytecode.SUBST:
		vm.setReg(f, ins.E, vm.execSubst(f, ins, loc), loc)
	case bytecode.SPLIT:
		vm.setReg(f, ins.B, vm.execSplit(f, ins, loc), loc)
	case bytecode.GROUP:
		vm.setReg(f, ins.B, vm.execGroup(f, ins, loc), loc)
	}
}

func (vm *VM) program(v value.Value, loc errors.Location) (*value.RegexObj, *regex.Program) {
	if v.Kind != value.Regex {
		vm.fatal(loc, "expected a regex value")
		return nil, nil
	}
	ro := vm.Heap.Regex(v.Slot)
	prog, _ := ro.Compiled.(*regex.Program)
	if prog == nil {
		vm.fatal(loc, "regex was not compiled")
		return nil, nil
	}
	return ro, prog
}

// execMatch runs F's regex against G's subject string, resuming from the
// regex object's own LastCursor when the subject is unchanged from the
// previous call (the `for /re/` continuation contract) and resetting the
// cursor to 0 whenever a new subject is supplied.
func (vm *VM) execMatch(f *frame, ins bytecode.Instr, loc errors.Location) value.Value {
	reVal := vm.getReg(f, ins.F)
	subjVal := vm.getReg(f, ins.G)
	ro, prog := vm.program(reVal, loc)
	if prog == nil {
		return value.BoolValue(false)
	}
	if subjVal.Kind != value.Str {
		vm.fatal(loc, "regex match requires a string subject")
		return value.BoolValue(false)
	}
	subject := vm.Heap.Str(subjVal.Slot)

	from := 0
	if ro.LastSubject == subject {
		from = ro.LastCursor
	}

	m, err := prog.Exec(subject, from)
	if err != nil {
		vm.fatal(loc, "%s", err)
		return value.BoolValue(false)
	}
	ro.LastSubject = subject
	if m == nil {
		ro.LastCursor = 0
		ro.LastMatch = nil
		return value.BoolValue(false)
	}
	ro.LastMatch = &value.MatchRecord{Start: m.Start, Length: m.Length, Groups: m.Groups, Named: m.Named}
	if m.Length == 0 {
		ro.LastCursor = m.Start + 1
	} else {
		ro.LastCursor = m.Start + m.Length
	}
	return value.BoolValue(true)
}

// execSubst implements `subject ~= /pattern/replacement/`: simplified to a
// single Filter pass over every match rather than the original's iterative
// per-match eval() re-invocation (src/vm.c's INSTR_SUBST branch keyed on a
// nonzero per-match eval-group count) — that loop re-invoked eval() once
// per match per named capture, a shape the current bytecode has no operand
// to carry, so every substitution here is a literal/`$n`-backreference
// replacement rather than a computed one.
func (vm *VM) execSubst(f *frame, ins bytecode.Instr, loc errors.Location) value.Value {
	reVal := vm.getReg(f, ins.F)
	subjVal := vm.getReg(f, ins.G)
	ro, prog := vm.program(reVal, loc)
	if prog == nil {
		return value.NilValue()
	}
	if !ro.HasSub {
		vm.fatal(loc, "regex has no substitution pattern")
		return value.NilValue()
	}
	if subjVal.Kind != value.Str {
		vm.fatal(loc, "regex substitution requires a string subject")
		return value.NilValue()
	}
	out, err := prog.Filter(vm.Heap.Str(subjVal.Slot), ro.Replacement, "$")
	if err != nil {
		vm.fatal(loc, "%s", err)
		return value.NilValue()
	}
	return vm.Heap.NewString(out)
}

// execSplit is SPLIT: not emitted by any current compiler path, and no
// source-level `split` builtin exists either; kept as a direct
// regex.Program.Split call for completeness.
func (vm *VM) execSplit(f *frame, ins bytecode.Instr, loc errors.Location) value.Value {
	reVal := vm.getReg(f, ins.C)
	subjVal := vm.getReg(f, ins.A)
	_, prog := vm.program(reVal, loc)
	if prog == nil {
		return value.NilValue()
	}
	if subjVal.Kind != value.Str {
		vm.fatal(loc, "split requires a string subject")
		return value.NilValue()
	}
	parts, err := prog.Split(vm.Heap.Str(subjVal.Slot))
	if err != nil {
		vm.fatal(loc, "%s", err)
		return value.NilValue()
	}
	out := vm.Heap.NewArray()
	ao := vm.Heap.Array(out.Slot)
	for _, p := range parts {
		ao.Push(vm.Heap.NewString(p))
	}
	return out
}

// execGroup is GROUP: the nth capture group of a regex's last match, Nil
// if there has been no match yet (INSTR_GROUP). Not emitted by any current
// compiler path — kept for completeness alongside SPLIT.
func (vm *VM) execGroup(f *frame, ins bytecode.Instr, loc errors.Location) value.Value {
	reVal := vm.getReg(f, ins.C)
	idxVal := vm.getReg(f, ins.A)
	ro, _ := vm.program(reVal, loc)
	if ro == nil || ro.LastMatch == nil {
		return value.NilValue()
	}
	if idxVal.Kind != value.Int || idxVal.Int < 0 || int(idxVal.Int) >= len(ro.LastMatch.Groups) {
		return value.NilValue()
	}
	return vm.Heap.NewString(ro.LastMatch.Groups[idxVal.Int])
}
