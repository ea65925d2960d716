package value

import (
	"fmt"
	"math"
)

// ArithError is returned for type combinations spec §4.1/§7 calls a fatal
// type mismatch (e.g. Bool mixed into arithmetic).
type ArithError struct {
	Op  string
	L,R Kind
}

func (e *ArithError) Error() string {
	return fmt.Sprintf("type mismatch for %s: %s and %s", e.Op, e.L, e.R)
}

// Stringify renders v the way string concatenation and STR need it (spec
// §4.1 "Str + X stringifies X").
func Stringify(h *Heap, v Value) string {
	switch v.Kind {
	case Nil:
		return ""
	case Int:
		return fmt.Sprintf("%d", v.Int)
	case Float:
		return fmt.Sprintf("%g", v.Float)
	case Bool:
		if v.Bool {
			return "true"
		}
		return "false"
	case Str:
		return h.Str(v.Slot)
	case Array:
		a := h.Array(v.Slot)
		s := "["
		for i, e := range a.Vals {
			if i > 0 {
				s += ", "
			}
			s += Stringify(h, e)
		}
		return s + "]"
	case Table:
		return "table"
	case Fn:
		fn := h.Fn(v.Slot)
		if fn.Name != "" {
			return "fn " + fn.Name
		}
		return "fn"
	case Regex:
		return "/" + h.Regex(v.Slot).Pattern + "/"
	default:
		return v.Kind.String()
	}
}

// Add implements spec §4.1's arithmetic-promotion table for `+`.
func Add(h *Heap, l, r Value) (Value, error) {
	if l.Kind == Str {
		if r.Kind == Nil {
			return h.NewString(h.Str(l.Slot)), nil
		}
		return h.NewString(h.Str(l.Slot) + Stringify(h, r)), nil
	}
	if r.Kind == Str {
		return h.NewString(Stringify(h, l) + h.Str(r.Slot)), nil
	}
	if l.Kind == Nil && isNumeric(r.Kind) {
		return r, nil
	}
	if r.Kind == Nil && isNumeric(l.Kind) {
		return l, nil
	}
	return numericOp(l, r, "+",
		func(a, b int64) int64 { return a + b },
		func(a, b float64) float64 { return a + b })
}

func Sub(l, r Value) (Value, error) {
	return numericOp(l, r, "-",
		func(a, b int64) int64 { return a - b },
		func(a, b float64) float64 { return a - b })
}

func Mul(l, r Value) (Value, error) {
	return numericOp(l, r, "*",
		func(a, b int64) int64 { return a * b },
		func(a, b float64) float64 { return a * b })
}

// Div implements integer division-by-zero as fatal, float division as IEEE.
func Div(l, r Value) (Value, error) {
	if l.Kind == Int && r.Kind == Int {
		if r.Int == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return IntValue(l.Int / r.Int), nil
	}
	if !isNumeric(l.Kind) || !isNumeric(r.Kind) {
		return Value{}, &ArithError{Op: "/", L: l.Kind, R: r.Kind}
	}
	return FloatValue(asFloat(l) / asFloat(r)), nil
}

// Mod implements IEEE remainder for Float per spec §4.1.
func Mod(l, r Value) (Value, error) {
	if l.Kind == Int && r.Kind == Int {
		if r.Int == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return IntValue(l.Int % r.Int), nil
	}
	if !isNumeric(l.Kind) || !isNumeric(r.Kind) {
		return Value{}, &ArithError{Op: "%", L: l.Kind, R: r.Kind}
	}
	return FloatValue(math.Remainder(asFloat(l), asFloat(r))), nil
}

func Pow(l, r Value) (Value, error) {
	if l.Kind == Int && r.Kind == Int && r.Int >= 0 {
		result := int64(1)
		base := l.Int
		for e := r.Int; e > 0; e-- {
			result *= base
		}
		return IntValue(result), nil
	}
	if !isNumeric(l.Kind) || !isNumeric(r.Kind) {
		return Value{}, &ArithError{Op: "**", L: l.Kind, R: r.Kind}
	}
	return FloatValue(math.Pow(asFloat(l), asFloat(r))), nil
}

func isNumeric(k Kind) bool { return k == Int || k == Float }

func asFloat(v Value) float64 {
	if v.Kind == Int {
		return float64(v.Int)
	}
	return v.Float
}

func numericOp(l, r Value, op string, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) (Value, error) {
	if !isNumeric(l.Kind) || !isNumeric(r.Kind) {
		return Value{}, &ArithError{Op: op, L: l.Kind, R: r.Kind}
	}
	if l.Kind == Float || r.Kind == Float {
		return FloatValue(floatOp(asFloat(l), asFloat(r))), nil
	}
	return IntValue(intOp(l.Int, r.Int)), nil
}

// Compare implements CMP/LESS/MORE/LEQ/GEQ for numeric and string operands.
func Compare(h *Heap, l, r Value) (int, error) {
	if isNumeric(l.Kind) && isNumeric(r.Kind) {
		lf, rf := asFloat(l), asFloat(r)
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if l.Kind == Str && r.Kind == Str {
		ls, rs := h.Str(l.Slot), h.Str(r.Slot)
		switch {
		case ls < rs:
			return -1, nil
		case ls > rs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, &ArithError{Op: "compare", L: l.Kind, R: r.Kind}
}

// ShiftLeft/ShiftRight/BAnd/BOr/XOr implement spec §4.6's bitwise opcodes,
// defined only over Int operands.
func bitwiseOp(l, r Value, op string, fn func(a, b int64) int64) (Value, error) {
	if l.Kind != Int || r.Kind != Int {
		return Value{}, &ArithError{Op: op, L: l.Kind, R: r.Kind}
	}
	return IntValue(fn(l.Int, r.Int)), nil
}

func ShiftLeft(l, r Value) (Value, error) {
	return bitwiseOp(l, r, "<<", func(a, b int64) int64 { return a << uint(b) })
}
func ShiftRight(l, r Value) (Value, error) {
	return bitwiseOp(l, r, ">>", func(a, b int64) int64 { return a >> uint(b) })
}
func BAnd(l, r Value) (Value, error) { return bitwiseOp(l, r, "&", func(a, b int64) int64 { return a & b }) }
func BOr(l, r Value) (Value, error)  { return bitwiseOp(l, r, "|", func(a, b int64) int64 { return a | b }) }
func XOr(l, r Value) (Value, error)  { return bitwiseOp(l, r, "^", func(a, b int64) int64 { return a ^ b }) }
