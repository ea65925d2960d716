// Package vm executes a compiled bytecode.Instr stream against a shared
// value.Heap (spec §4.7's "register-frame virtual machine").
//
// Grounded on _examples/original_source/src/vm.c's execute()/execute_instr()
// dispatch loop, GETREG/SETREG cross-module-global addressing, and the
// shared vm->stack / vm->imp bookkeeping arrays — but CALL recurses through
// a plain Go function call per nested frame (vm.execute calling itself)
// rather than the original's hand-rolled frame-pointer array, since Go's
// growable goroutine stack makes that the idiomatic equivalent of oak's
// fixed MAX_CALL_DEPTH frame table.
package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"oak/internal/bytecode"
	"oak/internal/compiler"
	"oak/internal/constant"
	"oak/internal/errors"
	"oak/internal/symbol"
	"oak/internal/value"
)

// maxCallDepth bounds recursive execute() nesting, matching oak's
// MAX_CALL_DEPTH guard against runaway/unbounded recursion.
const maxCallDepth = 8192

// Program is everything one compiled module contributes to a running VM:
// its code, constants, the register-array size every frame needs, and the
// resolver that produced it (kept alive so `eval` can resolve fragments
// against any scope this module declared, per SPEC_FULL.md §3.9).
type Program struct {
	ID        int
	Name      string
	Code      []bytecode.Instr
	Constants *constant.Table
	MaxReg    int
	Resolver  *symbol.Resolver
}

// frame is one active call or module body: its own register file plus the
// code/constants/resolver it belongs to (which can differ from the
// caller's, for a cross-module call).
type frame struct {
	regs     []value.Value
	module   int
	code     []bytecode.Instr
	ct       *constant.Table
	resolver *symbol.Resolver
	ip       int

	// isModuleRoot marks a frame whose regs slice IS vm.Globals[module]
	// (aliased, not copied): growing such a frame's register array to fit
	// an eval fragment's temps must also update vm.Globals, or reads of a
	// module global from another frame would see the stale backing array.
	isModuleRoot bool
}

// VM runs one or more compiled Programs against a shared heap. Talkative
// gates PRINT output (the `-s`/silent flag per SPEC_FULL.md §6.1 turns it
// off); Out is where PRINT writes.
type VM struct {
	Heap      *value.Heap
	Rep       *errors.Reporter
	Programs  map[int]*Program
	Globals   map[int][]value.Value
	Stack     []value.Value // shared PUSH/POP operand stack (spec §4.7)
	Imp       []value.Value // implicit-subject stack (PUSHIMP/POPIMP/GETIMP)
	Talkative bool
	Out       io.Writer

	// Trace, when non-nil, receives one line per executed instruction —
	// the `-pv` VM trace (SPEC_FULL.md §3.10/spec §6.1). Left nil costs
	// nothing beyond the one nil check per instruction.
	Trace io.Writer

	callStack []errors.StackFrame
	depth     int
}

// New returns a VM ready to load Programs into. Talkative defaults to true
// (PRINT is active) and Out defaults to stdout; both are overridable
// before Run.
func New(heap *value.Heap, rep *errors.Reporter) *VM {
	return &VM{
		Heap:      heap,
		Rep:       rep,
		Programs:  map[int]*Program{},
		Globals:   map[int][]value.Value{},
		Talkative: true,
		Out:       os.Stdout,
	}
}

// AddModule registers a compiled module and allocates its persistent
// global frame (frame 1 in oak's terms): every register not yet written
// starts Undef, matching spec §3's "a frame's registers start as Undef".
func (vm *VM) AddModule(p *Program) {
	vm.Programs[p.ID] = p
	size := p.MaxReg
	if size < compiler.NumReg {
		size = compiler.NumReg
	}
	regs := make([]value.Value, size)
	for i := range regs {
		regs[i] = value.UndefValue()
	}
	vm.Globals[p.ID] = regs
}

// RunModule executes a module's top-level body from instruction 0. The
// module-root frame's register array IS vm.Globals[id] (not a copy), since
// spec §3 treats top-level declarations as the module's persistent globals
// directly, addressable as NUM_REG+address from any nested function frame.
func (vm *VM) RunModule(id int) {
	p, ok := vm.Programs[id]
	if !ok {
		return
	}
	f := &frame{regs: vm.Globals[id], module: id, code: p.Code, ct: p.Constants, resolver: p.Resolver, isModuleRoot: true}
	vm.execute(f)
}

// getReg reads register r of frame f, routing r >= NumReg to f's own
// module's persistent global frame (spec §3's GETREG macro).
func (vm *VM) getReg(f *frame, r int) value.Value {
	if r >= compiler.NumReg {
		g := vm.Globals[f.module]
		idx := r - compiler.NumReg
		if idx < 0 || idx >= len(g) {
			return value.UndefValue()
		}
		return g[idx]
	}
	if r < 0 || r >= len(f.regs) {
		return value.UndefValue()
	}
	return f.regs[r]
}

// setReg writes register r, raising a fatal diagnostic if the value being
// stored is itself an Err (spec §3: "writing a register of kind Err
// immediately raises a fatal error").
func (vm *VM) setReg(f *frame, r int, v bytecodeValue, pos errors.Location) {
	if v.Kind == value.Err {
		vm.Rep.Push(pos, errors.Fatal, "%s", v.Err)
	}
	if r >= compiler.NumReg {
		g := vm.Globals[f.module]
		idx := r - compiler.NumReg
		if idx >= 0 && idx < len(g) {
			g[idx] = v
		}
		return
	}
	if r >= 0 && r < len(f.regs) {
		f.regs[r] = v
	}
}

// bytecodeValue is an alias kept local to this file purely so setReg's
// signature reads naturally; it is exactly value.Value.
type bytecodeValue = value.Value

func (vm *VM) fatal(pos errors.Location, format string, args ...interface{}) {
	vm.Rep.Push(pos, errors.Fatal, format, args...)
}

// execute runs f until it hits RET, END, or the reporter goes fatal,
// returning the value (if any) a RET instruction produced.
func (vm *VM) execute(f *frame) (value.Value, bool) {
	for {
		if vm.Rep.Fatal() {
			return value.NilValue(), false
		}
		if f.ip < 0 || f.ip >= len(f.code) {
			return value.NilValue(), false
		}
		ins := f.code[f.ip]
		loc := ins.Pos.Loc()

		if vm.Trace != nil {
			fmt.Fprintf(vm.Trace, "[module %d] %04d %s\n", f.module, f.ip, ins.Op)
		}

		switch ins.Op {
		case bytecode.NOP, bytecode.LINE, bytecode.ESCAPE, bytecode.EEND, bytecode.RESETR:
			// no-op in this VM: LINE's effect only matters under the
			// original's interactive debug tracing, never exercised here;
			// ESCAPE/EEND/RESETR are reserved opcodes no compiler path emits.

		case bytecode.END:
			return value.NilValue(), false

		case bytecode.RET:
			if ins.B != 0 {
				return vm.getReg(f, ins.A), true
			}
			return value.NilValue(), false

		case bytecode.MOV:
			vm.setReg(f, ins.B, vm.getReg(f, ins.C), loc)
		case bytecode.COPY:
			vm.setReg(f, ins.B, vm.Heap.DeepCopy(vm.getReg(f, ins.C)), loc)
		case bytecode.MOVC:
			vm.setReg(f, ins.B, f.ct.Get(ins.C), loc)
		case bytecode.COPYC:
			vm.setReg(f, ins.B, vm.Heap.DeepCopy(f.ct.Get(ins.C)), loc)

		case bytecode.JMP:
			f.ip = ins.D
			continue
		case bytecode.COND:
			if vm.getReg(f, ins.E).Truthy() {
				f.ip = ins.D
				continue
			}
		case bytecode.NCOND:
			if !vm.getReg(f, ins.E).Truthy() {
				f.ip = ins.D
				continue
			}

		case bytecode.PUSH:
			vm.Stack = append(vm.Stack, vm.getReg(f, ins.A))
		case bytecode.POP:
			if n := len(vm.Stack); n > 0 {
				v := vm.Stack[n-1]
				vm.Stack = vm.Stack[:n-1]
				vm.setReg(f, ins.A, v, loc)
			}
		case bytecode.POPALL:
			n := len(vm.Stack)
			arr := vm.Heap.NewArray()
			ao := vm.Heap.Array(arr.Slot)
			for i := n - 1; i >= 0; i-- {
				ao.Push(vm.Stack[i])
			}
			vm.Stack = vm.Stack[:0]
			vm.setReg(f, ins.A, arr, loc)

		case bytecode.PUSHIMP:
			vm.Imp = append(vm.Imp, vm.getReg(f, ins.A))
		case bytecode.POPIMP:
			if n := len(vm.Imp); n > 0 {
				vm.Imp = vm.Imp[:n-1]
			}
		case bytecode.GETIMP:
			if n := len(vm.Imp); n > 0 {
				vm.setReg(f, ins.A, vm.Imp[n-1], loc)
			} else {
				vm.fatal(loc, "the implicit variable is not in scope")
			}

		case bytecode.CALL:
			vm.execCall(f, ins)

		case bytecode.KILL:
			v := vm.getReg(f, ins.A)
			msg := value.Stringify(vm.Heap, v)
			if v.Kind == value.Str {
				msg = vm.Heap.Str(v.Slot)
			}
			vm.fatal(loc, "%s", msg)

		case bytecode.PRINT:
			vm.execPrint(f, ins)

		case bytecode.NEG, bytecode.FLIP, bytecode.TYPE, bytecode.LEN, bytecode.INT, bytecode.FLOAT, bytecode.STR, bytecode.INC, bytecode.DEC:
			vm.execUnary(f, ins, loc)

		case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD, bytecode.POW,
			bytecode.SLEFT, bytecode.SRIGHT, bytecode.BAND, bytecode.BOR, bytecode.XOR,
			bytecode.CMP, bytecode.LESS, bytecode.MORE, bytecode.LEQ, bytecode.GEQ:
			vm.execBinary(f, ins, loc)

		case bytecode.SUBSCR, bytecode.ASET, bytecode.APUSH, bytecode.PUSHBACK, bytecode.DEREF, bytecode.SLICE, bytecode.RANGE:
			vm.execContainer(f, ins, loc)

		case bytecode.INTERP:
			vm.execInterp(f, ins, loc)

		case bytecode.MATCH, bytecode.SUBST, bytecode.SPLIT, bytecode.GROUP:
			vm.execRegex(f, ins, loc)

		case bytecode.EVAL:
			vm.execEval(f, ins, loc)

		default:
			vm.fatal(loc, "unimplemented opcode %s", ins.Op)
		}

		f.ip++
	}
}

func (vm *VM) execPrint(f *frame, ins bytecode.Instr) {
	if !vm.Talkative {
		return
	}
	parts := make([]string, ins.A)
	for i := 0; i < ins.A; i++ {
		parts[i] = value.Stringify(vm.Heap, vm.getReg(f, ins.E+i))
	}
	fmt.Fprint(vm.Out, strings.Join(parts, " "))
	if ins.H != 0 {
		fmt.Fprintln(vm.Out)
	}
}

func (vm *VM) execInterp(f *frame, ins bytecode.Instr, loc errors.Location) {
	var sb strings.Builder
	for i := 0; i < ins.G; i++ {
		sb.WriteString(value.Stringify(vm.Heap, vm.getReg(f, ins.F+i)))
	}
	vm.setReg(f, ins.E, vm.Heap.NewString(sb.String()), loc)
}
