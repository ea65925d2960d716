// Package constant implements a module's per-module constant table
// (spec §4.2): an append-only vector of Values referenced by a 16-bit
// index from MOVC/COPYC instructions.
package constant

import "oak/internal/value"

// Table is grounded on _examples/original_source/include/constant.h's
// struct constant_table{val, num, allocated} — a plain growable vector,
// no dedup, no library applicable.
type Table struct {
	vals []value.Value
}

func New() *Table { return &Table{} }

// Add appends v and returns its stable index.
func (t *Table) Add(v value.Value) int {
	t.vals = append(t.vals, v)
	return len(t.vals) - 1
}

func (t *Table) Get(idx int) value.Value { return t.vals[idx] }

func (t *Table) Len() int { return len(t.vals) }
