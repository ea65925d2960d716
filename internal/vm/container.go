package vm

import (
	"oak/internal/bytecode"
	"oak/internal/errors"
	"oak/internal/value"
)

// execContainer dispatches the array/table/string subscript family,
// grounded on src/vm.c's INSTR_SUBSCR/INSTR_ASET/INSTR_APUSH/
// INSTR_PUSHBACK/INSTR_DEREF/INSTR_RANGE: out-of-range reads return Nil
// rather than faulting, ASET auto-vivifies the container kind implied by
// the index's own kind, and APUSH and PUSHBACK (unreachable from this
// compiler, kept for completeness) both deep-copy the pushed value.
func (vm *VM) execContainer(f *frame, ins bytecode.Instr, loc errors.Location) {
	switch ins.Op {
	case bytecode.SUBSCR:
		vm.setReg(f, ins.E, vm.subscript(vm.getReg(f, ins.F), vm.getReg(f, ins.G), loc), loc)
	case bytecode.ASET:
		vm.aset(f, ins.E, vm.getReg(f, ins.F), vm.getReg(f, ins.G), loc)
	case bytecode.APUSH:
		vm.apush(vm.getReg(f, ins.E), vm.getReg(f, ins.F), loc, true)
	case bytecode.PUSHBACK:
		vm.apush(vm.getReg(f, ins.E), vm.getReg(f, ins.F), loc, false)
	case bytecode.DEREF:
		vm.setReg(f, ins.E, vm.deref(f, ins), loc)
	case bytecode.SLICE:
		vm.setReg(f, ins.E, vm.slice(f, ins, loc), loc)
	case bytecode.RANGE:
		vm.setReg(f, ins.E, vm.buildRange(f, ins, loc), loc)
	}
}

func (vm *VM) subscript(obj, idx value.Value, loc errors.Location) value.Value {
	switch obj.Kind {
	case value.Array:
		if idx.Kind != value.Int {
			vm.fatal(loc, "array index must be an int")
			return value.NilValue()
		}
		return vm.Heap.Array(obj.Slot).Get(idx.Int)
	case value.Table:
		if idx.Kind != value.Str {
			vm.fatal(loc, "table key must be a string")
			return value.NilValue()
		}
		return vm.Heap.Table(obj.Slot).Get(vm.Heap.Str(idx.Slot))
	case value.Str:
		if idx.Kind != value.Int {
			vm.fatal(loc, "string index must be an int")
			return value.NilValue()
		}
		runes := []rune(vm.Heap.Str(obj.Slot))
		if idx.Int < 0 || idx.Int >= int64(len(runes)) {
			return value.NilValue()
		}
		return vm.Heap.NewString(string(runes[idx.Int]))
	default:
		vm.fatal(loc, "cannot index a %s", obj.Kind)
		return value.NilValue()
	}
}

// aset writes obj[idx]=v, auto-vivifying an Undef/Nil target register into
// an Array (Int index) or Table (Str index) the way a bare `a[0] = x` on a
// freshly declared variable does in the original.
func (vm *VM) aset(f *frame, objReg int, idx, v value.Value, loc errors.Location) {
	obj := vm.getReg(f, objReg)
	if (obj.Kind == value.Nil || obj.Kind == value.Undef) && idx.Kind == value.Int {
		obj = vm.Heap.NewArray()
		vm.setReg(f, objReg, obj, loc)
	} else if (obj.Kind == value.Nil || obj.Kind == value.Undef) && idx.Kind == value.Str {
		obj = vm.Heap.NewTable()
		vm.setReg(f, objReg, obj, loc)
	}

	switch obj.Kind {
	case value.Array:
		if idx.Kind != value.Int {
			vm.fatal(loc, "array index must be an int")
			return
		}
		vm.Heap.Array(obj.Slot).Set(int(idx.Int), vm.Heap.DeepCopy(v))
	case value.Table:
		if idx.Kind != value.Str {
			vm.fatal(loc, "table key must be a string")
			return
		}
		vm.Heap.Table(obj.Slot).Set(vm.Heap.Str(idx.Slot), vm.Heap.DeepCopy(v))
	default:
		vm.fatal(loc, "cannot assign an index of a %s", obj.Kind)
	}
}

// apush implements both APUSH (typeChecked=true: fatal on a non-Array
// target, matching INSTR_APUSH) and PUSHBACK (typeChecked=false: a
// non-Array target is silently left unchanged instead of being fatal).
func (vm *VM) apush(obj, v value.Value, loc errors.Location, typeChecked bool) {
	if obj.Kind != value.Array {
		if typeChecked {
			vm.fatal(loc, "cannot push onto a %s", obj.Kind)
		}
		return
	}
	vm.Heap.Array(obj.Slot).Push(vm.Heap.DeepCopy(v))
}

// deref is DEREF's chained-index auto-vivification (`a[i][j] = x`): not
// currently emitted by the compiler (nested index-assignment lowers as two
// SUBSCR/ASET steps instead), kept only so the opcode has defined behavior
// if a future codegen path emits it.
func (vm *VM) deref(f *frame, ins bytecode.Instr) value.Value {
	obj := vm.getReg(f, ins.F)
	idx := vm.getReg(f, ins.G)
	if obj.Kind != value.Array {
		return value.NilValue()
	}
	return vm.Heap.Array(obj.Slot).Get(idx.Int)
}

func (vm *VM) slice(f *frame, ins bytecode.Instr, loc errors.Location) value.Value {
	obj := vm.getReg(f, ins.F)
	switch obj.Kind {
	case value.Array:
		a := vm.Heap.Array(obj.Slot)
		lo, hi := vm.sliceBounds(f, ins, len(a.Vals))
		out := vm.Heap.NewArray()
		ao := vm.Heap.Array(out.Slot)
		step := vm.sliceStep(f, ins)
		for i := lo; (step > 0 && i < hi) || (step < 0 && i > hi); i += step {
			if i < 0 || i >= len(a.Vals) {
				break
			}
			ao.Push(a.Vals[i])
		}
		return out
	case value.Str:
		runes := []rune(vm.Heap.Str(obj.Slot))
		lo, hi := vm.sliceBounds(f, ins, len(runes))
		step := vm.sliceStep(f, ins)
		var out []rune
		for i := lo; (step > 0 && i < hi) || (step < 0 && i > hi); i += step {
			if i < 0 || i >= len(runes) {
				break
			}
			out = append(out, runes[i])
		}
		return vm.Heap.NewString(string(out))
	default:
		vm.fatal(loc, "cannot slice a %s", obj.Kind)
		return value.NilValue()
	}
}

// sliceStep reads SLICE's D operand, a 1-based register-index sentinel
// (0 means "no explicit step" per compileSlice): D-1 names the register
// holding the step value, not the value itself.
func (vm *VM) sliceStep(f *frame, ins bytecode.Instr) int {
	if ins.D != 0 {
		return int(vm.getReg(f, ins.D-1).Int)
	}
	return 1
}

// sliceBounds reads SLICE's G/H operands, each a 1-based register-index
// sentinel (per compileSlice: G=loReg+1, H=hiReg+1, 0 meaning absent) —
// not the bound values themselves.
func (vm *VM) sliceBounds(f *frame, ins bytecode.Instr, length int) (lo, hi int) {
	lo, hi = 0, length
	if ins.G != 0 {
		lo = int(vm.getReg(f, ins.G-1).Int)
	}
	if ins.H != 0 {
		hi = int(vm.getReg(f, ins.H-1).Int)
	}
	return lo, hi
}

// buildRange implements `lo .. hi [.. step]`: an Int or Float array walking
// from lo to hi inclusive, direction-checked against the step's sign
// (spec §4.7 / src/vm.c's INSTR_RANGE), collapsing to a single-element
// array when lo == hi.
func (vm *VM) buildRange(f *frame, ins bytecode.Instr, loc errors.Location) value.Value {
	lo := vm.getReg(f, ins.F)
	hi := vm.getReg(f, ins.G)
	out := vm.Heap.NewArray()
	ao := vm.Heap.Array(out.Slot)

	if lo.Kind != value.Int && lo.Kind != value.Float {
		vm.fatal(loc, "range bounds must be numeric")
		return out
	}

	isFloat := lo.Kind == value.Float || hi.Kind == value.Float
	loF, hiF := asF(lo), asF(hi)

	step := 1.0
	if ins.H != 0 {
		s := vm.getReg(f, ins.H-1)
		step = asF(s)
		if s.Kind == value.Float {
			isFloat = true
		}
	}
	if step == 0 {
		step = 1.0
	}
	if hiF < loF && step > 0 {
		step = -step
	}
	if hiF > loF && step < 0 {
		step = -step
	}

	if loF == hiF {
		ao.Push(numVal(loF, isFloat))
		return out
	}

	for v := loF; (step > 0 && v <= hiF) || (step < 0 && v >= hiF); v += step {
		ao.Push(numVal(v, isFloat))
	}
	return out
}

func asF(v value.Value) float64 {
	if v.Kind == value.Float {
		return v.Float
	}
	return float64(v.Int)
}

func numVal(f float64, isFloat bool) value.Value {
	if isFloat {
		return value.FloatValue(f)
	}
	return value.IntValue(int64(f))
}
