package vm

import (
	"fmt"

	"oak/internal/bytecode"
	"oak/internal/errors"
	"oak/internal/value"
)

// execBinary dispatches the arithmetic/comparison/bitwise family, all of
// shape E=dest,F=left,G=right. CMP alone uses Value.Equal rather than
// value.Compare, since equality (unlike ordering) is defined across every
// Kind, not just numerics and strings (spec §4.1).
func (vm *VM) execBinary(f *frame, ins bytecode.Instr, loc errors.Location) {
	l := vm.getReg(f, ins.F)
	r := vm.getReg(f, ins.G)

	if ins.Op == bytecode.CMP {
		vm.setReg(f, ins.E, value.BoolValue(l.Equal(vm.Heap, r)), loc)
		return
	}

	if ins.Op == bytecode.LESS || ins.Op == bytecode.MORE || ins.Op == bytecode.LEQ || ins.Op == bytecode.GEQ {
		cmp, err := value.Compare(vm.Heap, l, r)
		if err != nil {
			vm.fatal(loc, "%s", err)
			return
		}
		var b bool
		switch ins.Op {
		case bytecode.LESS:
			b = cmp < 0
		case bytecode.MORE:
			b = cmp > 0
		case bytecode.LEQ:
			b = cmp <= 0
		case bytecode.GEQ:
			b = cmp >= 0
		}
		vm.setReg(f, ins.E, value.BoolValue(b), loc)
		return
	}

	var out value.Value
	var err error
	switch ins.Op {
	case bytecode.ADD:
		out, err = value.Add(vm.Heap, l, r)
	case bytecode.SUB:
		out, err = value.Sub(l, r)
	case bytecode.MUL:
		out, err = value.Mul(l, r)
	case bytecode.DIV:
		out, err = value.Div(l, r)
	case bytecode.MOD:
		out, err = value.Mod(l, r)
	case bytecode.POW:
		out, err = value.Pow(l, r)
	case bytecode.SLEFT:
		out, err = value.ShiftLeft(l, r)
	case bytecode.SRIGHT:
		out, err = value.ShiftRight(l, r)
	case bytecode.BAND:
		out, err = value.BAnd(l, r)
	case bytecode.BOR:
		out, err = value.BOr(l, r)
	case bytecode.XOR:
		out, err = value.XOr(l, r)
	}
	if err != nil {
		vm.fatal(loc, "%s", err)
		return
	}
	vm.setReg(f, ins.E, out, loc)
}

// execUnary dispatches the B=dest,C=src family: NEG/FLIP/TYPE/LEN plus the
// coercions INT/FLOAT/STR and the INC/DEC adjust-in-place operators
// (reserved opcodes no compiler path currently emits, but implemented for
// completeness per src/vm.c's inc_value/dec_value helpers).
func (vm *VM) execUnary(f *frame, ins bytecode.Instr, loc errors.Location) {
	v := vm.getReg(f, ins.C)
	switch ins.Op {
	case bytecode.NEG:
		switch v.Kind {
		case value.Int:
			vm.setReg(f, ins.B, value.IntValue(-v.Int), loc)
		case value.Float:
			vm.setReg(f, ins.B, value.FloatValue(-v.Float), loc)
		default:
			vm.fatal(loc, "cannot negate a %s", v.Kind)
		}
	case bytecode.FLIP:
		vm.setReg(f, ins.B, value.BoolValue(!v.Truthy()), loc)
	case bytecode.TYPE:
		vm.setReg(f, ins.B, vm.Heap.NewString(v.Kind.String()), loc)
	case bytecode.LEN:
		vm.setReg(f, ins.B, value.IntValue(vm.length(v)), loc)
	case bytecode.INT:
		vm.setReg(f, ins.B, vm.toInt(v, loc), loc)
	case bytecode.FLOAT:
		vm.setReg(f, ins.B, vm.toFloat(v, loc), loc)
	case bytecode.STR:
		vm.setReg(f, ins.B, vm.Heap.NewString(value.Stringify(vm.Heap, v)), loc)
	case bytecode.INC:
		vm.setReg(f, ins.B, vm.adjust(v, 1, loc), loc)
	case bytecode.DEC:
		vm.setReg(f, ins.B, vm.adjust(v, -1, loc), loc)
	}
}

func (vm *VM) length(v value.Value) int64 {
	switch v.Kind {
	case value.Str:
		return int64(len([]rune(vm.Heap.Str(v.Slot))))
	case value.Array:
		return int64(len(vm.Heap.Array(v.Slot).Vals))
	case value.Table:
		return int64(len(vm.Heap.Table(v.Slot).Keys()))
	default:
		return 0
	}
}

// toInt/toFloat require a Str argument, matching src/vm.c's INSTR_INT /
// INSTR_FLOAT: converting anything else is a fatal error, not a silent 0.
func (vm *VM) toInt(v value.Value, loc errors.Location) value.Value {
	if v.Kind != value.Str {
		vm.fatal(loc, "int() requires a string argument")
		return value.NilValue()
	}
	var n int64
	_, err := fmt.Sscanf(vm.Heap.Str(v.Slot), "%d", &n)
	if err != nil {
		vm.fatal(loc, "cannot parse '%s' as int", vm.Heap.Str(v.Slot))
		return value.NilValue()
	}
	return value.IntValue(n)
}

func (vm *VM) toFloat(v value.Value, loc errors.Location) value.Value {
	if v.Kind != value.Str {
		vm.fatal(loc, "float() requires a string argument")
		return value.NilValue()
	}
	var n float64
	_, err := fmt.Sscanf(vm.Heap.Str(v.Slot), "%g", &n)
	if err != nil {
		vm.fatal(loc, "cannot parse '%s' as float", vm.Heap.Str(v.Slot))
		return value.NilValue()
	}
	return value.FloatValue(n)
}

func (vm *VM) adjust(v value.Value, delta int64, loc errors.Location) value.Value {
	switch v.Kind {
	case value.Int:
		return value.IntValue(v.Int + delta)
	case value.Float:
		return value.FloatValue(v.Float + float64(delta))
	default:
		vm.fatal(loc, "cannot increment/decrement a %s", v.Kind)
		return value.NilValue()
	}
}
