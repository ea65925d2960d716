// Package value implements the interpreter's tagged Value union and the
// per-kind, bitmap-allocated heap it lives on (spec §3 "Value" / §4.1).
//
// Heap objects (strings, arrays, tables, functions, regexes) are addressed
// by a slot index into a per-kind array, never by a Go pointer embedded in
// Value itself — this is deliberately NOT the teacher's NaN-boxing
// representation (internal/vmregister/value.go): spec.md mandates a
// slot-indexed heap with bitmap free-lists, which is what
// _examples/original_source/src/gc.c and include/value.h/gc.h actually
// implement, so this package follows the original source instead of the
// teacher for this one subsystem.
package value

import (
	"math"
	"math/bits"
)

// Kind tags which arm of Value's payload is active.
type Kind int

const (
	Nil Kind = iota
	Int
	Float
	Bool
	Str
	Array
	Table
	Fn
	Regex
	Undef
	Err
)

func (k Kind) String() string {
	switch k {
	case Nil:
		return "nil"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Str:
		return "str"
	case Array:
		return "array"
	case Table:
		return "table"
	case Fn:
		return "fn"
	case Regex:
		return "regex"
	case Undef:
		return "undef"
	case Err:
		return "err"
	default:
		return "?"
	}
}

// heapKinds lists the Kinds that carry a slot index into Heap rather than
// an inline scalar payload.
func (k Kind) isHeap() bool {
	switch k {
	case Str, Array, Table, Fn, Regex:
		return true
	}
	return false
}

// numHeapKinds sizes the Heap's per-kind slice-of-slices; Kind values index
// directly into it, so this must stay one past the highest heap Kind.
const numHeapKinds = int(Err) + 1

// FnValue is the payload of a Kind == Fn heap slot: a callable entry point,
// matching spec §3's "Fn carries {entry instruction index, declaring module
// id, declared argument count, optional display name}".
type FnValue struct {
	Entry    int
	Module   int
	Arity    int
	Name     string
	Defaults []bool // which trailing parameters have a default expression
}

// Value is a tagged union: numeric/bool kinds carry their payload inline,
// heap kinds carry a Slot index into a Heap.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Slot  int64
	Err   string // Err kind: the diagnostic string surfaced on assignment
}

func NilValue() Value          { return Value{Kind: Nil} }
func UndefValue() Value        { return Value{Kind: Undef} }
func IntValue(n int64) Value   { return Value{Kind: Int, Int: n} }
func FloatValue(f float64) Value { return Value{Kind: Float, Float: f} }
func BoolValue(b bool) Value   { return Value{Kind: Bool, Bool: b} }
func ErrValue(msg string) Value { return Value{Kind: Err, Err: msg} }

// Truthy implements spec §4.1: Bool self, Int/Float nonzero, Str always
// false (preserved source behavior, see DESIGN.md Open Questions), all
// other kinds false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Bool:
		return v.Bool
	case Int:
		return v.Int != 0
	case Float:
		return v.Float != 0
	default:
		return false
	}
}

const floatEpsilon = 1e-3

// Equal implements spec §4.1's equality rule. Str contents are compared
// here; the other heap kinds (Array/Table element-wise, Fn, Regex) are
// deferred to Heap.HeapEqual since they need to dereference slots.
func (v Value) Equal(h *Heap, o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Nil, Undef:
		return true
	case Int:
		return v.Int == o.Int
	case Float:
		if v.Float == o.Float {
			return true
		}
		return math.Abs(v.Float-o.Float) <= floatEpsilon*math.Abs(v.Float)
	case Bool:
		return v.Bool == o.Bool
	case Str:
		return h.Str(v.Slot) == h.Str(o.Slot)
	case Array, Table, Fn, Regex:
		return h.HeapEqual(v, o)
	default:
		return false
	}
}

// --- Heap ---------------------------------------------------------------

// Heap holds the per-kind slot-indexed backing storage and bitmap
// free-lists. Grounded directly on src/gc.c's struct gc / gc_alloc /
// bmp_alloc: allocation scans 64 bits at a time for the first zero bit,
// growing by 64 bits when every word is full.
type Heap struct {
	bitmap [numHeapKinds][]uint64
	cap    [numHeapKinds]int64

	strs    []string
	arrays  []*ArrayObj
	tables  []*TableObj
	fns     []*FnValue
	regexes []*RegexObj

	freeStr    []int64
	freeArray  []int64
	freeTable  []int64
	freeFn     []int64
	freeRegex  []int64
}

// ArrayObj is the backing storage for a heap-allocated array (spec §4.3).
type ArrayObj struct {
	Vals []Value
}

// TableObj is the backing storage for a heap-allocated string-keyed map
// (spec §4.3): 32 fixed buckets, djb2 hash, insertion order within bucket.
type TableObj struct {
	Buckets [32]tableBucket
}

type tableBucket struct {
	hashes []uint32
	keys   []string
	vals   []Value
}

// RegexObj wraps a compiled pattern plus the VM-visible continuation state
// spec §4.7 describes ("last regex object, last subject, last match
// cursor").
type RegexObj struct {
	Pattern     string
	Flags       string
	Replacement string
	HasSub      bool
	Compiled    interface{} // *regex.Program, set by internal/regex to avoid an import cycle
	LastSubject string
	LastCursor  int
	LastMatch   *MatchRecord
}

// MatchRecord is one regex match: start offset, byte length, and captured
// group texts (group 0 is the whole match).
type MatchRecord struct {
	Start  int
	Length int
	Groups []string
	Named  map[string]string
}

func NewHeap() *Heap {
	return &Heap{}
}

func bmpAlloc(bmp []uint64) int64 {
	for i, word := range bmp {
		if word == ^uint64(0) {
			continue
		}
		pos := bits.TrailingZeros64(^word)
		bmp[i] |= 1 << uint(pos)
		return int64(i)*64 + int64(pos)
	}
	return -1
}

// alloc returns a fresh slot for kind k, growing the bitmap and backing
// array by 64 slots if none is free.
func (h *Heap) alloc(k Kind) int64 {
	idx := bmpAlloc(h.bitmap[k])
	if idx != -1 {
		return idx
	}
	h.bitmap[k] = append(h.bitmap[k], 0)
	h.cap[k] += 64
	switch k {
	case Str:
		h.strs = append(h.strs, make([]string, 64)...)
	case Array:
		h.arrays = append(h.arrays, make([]*ArrayObj, 64)...)
	case Table:
		h.tables = append(h.tables, make([]*TableObj, 64)...)
	case Fn:
		h.fns = append(h.fns, make([]*FnValue, 64)...)
	case Regex:
		h.regexes = append(h.regexes, make([]*RegexObj, 64)...)
	}
	idx = bmpAlloc(h.bitmap[k])
	return idx
}

// Free clears the live bit for a slot. Per spec §4.1, the VM's visible
// contract is "no object is freed before the last reference"; this
// interpreter performs no intermediate reachability pass and frees only at
// shutdown (Sweep), so Free is only ever called from Sweep.
func (h *Heap) free(k Kind, slot int64) {
	word := slot / 64
	pos := uint(slot % 64)
	h.bitmap[k][word] &^= 1 << pos
}

// live reports whether slot is currently allocated for kind k.
func (h *Heap) live(k Kind, slot int64) bool {
	word := slot / 64
	pos := uint(slot % 64)
	if int(word) >= len(h.bitmap[k]) {
		return false
	}
	return h.bitmap[k][word]&(1<<pos) != 0
}

// Sweep frees every live slot, matching oak's free_gc "final pass" at
// process shutdown (spec §4.1 "Release").
func (h *Heap) Sweep() {
	for k := Kind(0); k < Kind(numHeapKinds); k++ {
		if !k.isHeap() {
			continue
		}
		for slot := int64(0); slot < h.cap[k]; slot++ {
			if h.live(k, slot) {
				h.free(k, slot)
			}
		}
	}
}

// Stats backs the `-pg` GC diagnostic dump (SPEC_FULL.md §3.1).
type HeapStats struct {
	Kind     Kind
	LiveBits int
	Capacity int64
}

func (h *Heap) Stats() []HeapStats {
	var out []HeapStats
	for k := Kind(0); k < Kind(numHeapKinds); k++ {
		if !k.isHeap() {
			continue
		}
		live := 0
		for slot := int64(0); slot < h.cap[k]; slot++ {
			if h.live(k, slot) {
				live++
			}
		}
		out = append(out, HeapStats{Kind: k, LiveBits: live, Capacity: h.cap[k]})
	}
	return out
}

// --- Strings --------------------------------------------------------------

func (h *Heap) NewString(s string) Value {
	slot := h.alloc(Str)
	h.strs[slot] = s
	return Value{Kind: Str, Slot: slot}
}

func (h *Heap) Str(slot int64) string { return h.strs[slot] }

func (h *Heap) SetStr(slot int64, s string) { h.strs[slot] = s }

// --- Arrays -----------------------------------------------------------

const arrayInitialCap = 16

func (h *Heap) NewArray() Value {
	slot := h.alloc(Array)
	h.arrays[slot] = &ArrayObj{}
	return Value{Kind: Array, Slot: slot}
}

func (h *Heap) Array(slot int64) *ArrayObj { return h.arrays[slot] }

// Push implements spec §4.3's amortized-doubling append.
func (a *ArrayObj) Push(v Value) {
	a.Vals = append(a.Vals, v)
}

// GrowTo guarantees len(a.Vals) >= n, filling new slots with Nil.
func (a *ArrayObj) GrowTo(n int) {
	for len(a.Vals) < n {
		a.Vals = append(a.Vals, NilValue())
	}
}

// Insert grows capacity as needed and shifts the suffix right by one.
func (a *ArrayObj) Insert(idx int, v Value) {
	a.GrowTo(idx)
	a.Vals = append(a.Vals, NilValue())
	copy(a.Vals[idx+1:], a.Vals[idx:])
	a.Vals[idx] = v
}

// Pop removes and returns the last element (oak's array_pop). No
// source-level builtin calls it (SPEC_FULL.md §3.3).
func (a *ArrayObj) Pop() Value {
	if len(a.Vals) == 0 {
		return NilValue()
	}
	v := a.Vals[len(a.Vals)-1]
	a.Vals = a.Vals[:len(a.Vals)-1]
	return v
}

// RemoveAt deletes the element at idx, shifting the suffix left.
func (a *ArrayObj) RemoveAt(idx int) Value {
	if idx < 0 || idx >= len(a.Vals) {
		return NilValue()
	}
	v := a.Vals[idx]
	a.Vals = append(a.Vals[:idx], a.Vals[idx+1:]...)
	return v
}

// Get implements spec §4.7's array-subscript boundary behavior: Int index
// out of range returns Nil, never faults.
func (a *ArrayObj) Get(idx int64) Value {
	if idx < 0 || idx >= int64(len(a.Vals)) {
		return NilValue()
	}
	return a.Vals[idx]
}

// Set writes idx, growing the array with Nil padding if idx is beyond the
// current length (ASET's auto-vivifying assignment, spec §4.7).
func (a *ArrayObj) Set(idx int, v Value) {
	if idx < 0 {
		return
	}
	a.GrowTo(idx + 1)
	a.Vals[idx] = v
}

// --- Tables -------------------------------------------------------------

func (h *Heap) NewTable() Value {
	slot := h.alloc(Table)
	h.tables[slot] = &TableObj{}
	return Value{Kind: Table, Slot: slot}
}

func (h *Heap) Table(slot int64) *TableObj { return h.tables[slot] }

// djb2 matches src/table.c's hash function exactly (seed 5381, *33 + c).
func djb2(key string) uint32 {
	var hash uint32 = 5381
	for i := 0; i < len(key); i++ {
		hash = hash*33 + uint32(key[i])
	}
	return hash
}

func (t *TableObj) bucketIndex(key string) uint32 { return djb2(key) % 32 }

// Set overwrites an equal-hash entry within its bucket, or appends.
func (t *TableObj) Set(key string, v Value) {
	h := djb2(key)
	b := &t.Buckets[h%32]
	for i, hh := range b.hashes {
		if hh == h && b.keys[i] == key {
			b.vals[i] = v
			return
		}
	}
	b.hashes = append(b.hashes, h)
	b.keys = append(b.keys, key)
	b.vals = append(b.vals, v)
}

// Get returns Nil if the key is absent (spec §4.7 table-subscript rule).
func (t *TableObj) Get(key string) Value {
	h := djb2(key)
	b := &t.Buckets[h%32]
	for i, hh := range b.hashes {
		if hh == h && b.keys[i] == key {
			return b.vals[i]
		}
	}
	return NilValue()
}

// Delete removes key from its bucket if present (oak's table-bucket
// removal). No source-level builtin calls it (SPEC_FULL.md §3.3).
func (t *TableObj) Delete(key string) bool {
	h := djb2(key)
	b := &t.Buckets[h%32]
	for i, hh := range b.hashes {
		if hh == h && b.keys[i] == key {
			b.hashes = append(b.hashes[:i], b.hashes[i+1:]...)
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			b.vals = append(b.vals[:i], b.vals[i+1:]...)
			return true
		}
	}
	return false
}

// Keys walks buckets 0..31, entries within each bucket in insertion order
// (spec §4.3: "insertion-order preserving per bucket only").
func (t *TableObj) Keys() []string {
	var out []string
	for i := range t.Buckets {
		out = append(out, t.Buckets[i].keys...)
	}
	return out
}

func (t *TableObj) Values() []Value {
	var out []Value
	for i := range t.Buckets {
		out = append(out, t.Buckets[i].vals...)
	}
	return out
}

// --- Functions & regexes --------------------------------------------------

func (h *Heap) NewFn(f FnValue) Value {
	slot := h.alloc(Fn)
	cp := f
	h.fns[slot] = &cp
	return Value{Kind: Fn, Slot: slot}
}

func (h *Heap) Fn(slot int64) *FnValue { return h.fns[slot] }

func (h *Heap) NewRegex(r RegexObj) Value {
	slot := h.alloc(Regex)
	cp := r
	h.regexes[slot] = &cp
	return Value{Kind: Regex, Slot: slot}
}

func (h *Heap) Regex(slot int64) *RegexObj { return h.regexes[slot] }

// --- Deep copy (spec §4.6 COPYC/COPY) ------------------------------------

// DeepCopy clones heap-kind values into fresh slots; scalar kinds are
// returned unchanged (they are copied by value already).
func (h *Heap) DeepCopy(v Value) Value {
	switch v.Kind {
	case Str:
		return h.NewString(h.Str(v.Slot))
	case Array:
		src := h.Array(v.Slot)
		dst := h.NewArray()
		dstObj := h.Array(dst.Slot)
		for _, e := range src.Vals {
			dstObj.Vals = append(dstObj.Vals, h.DeepCopy(e))
		}
		return dst
	case Table:
		src := h.Table(v.Slot)
		dst := h.NewTable()
		dstObj := h.Table(dst.Slot)
		for i := range src.Buckets {
			for j, k := range src.Buckets[i].keys {
				dstObj.Set(k, h.DeepCopy(src.Buckets[i].vals[j]))
			}
		}
		return dst
	case Regex:
		src := h.Regex(v.Slot)
		fresh := *src
		fresh.LastCursor = 0
		fresh.LastMatch = nil
		fresh.LastSubject = ""
		return h.NewRegex(fresh)
	default:
		return v
	}
}

// HeapEqual implements cross-slot structural equality for heap kinds.
func (h *Heap) HeapEqual(a, b Value) bool {
	switch a.Kind {
	case Array:
		av, bv := h.Array(a.Slot), h.Array(b.Slot)
		if len(av.Vals) != len(bv.Vals) {
			return false
		}
		for i := range av.Vals {
			if !av.Vals[i].Equal(h, bv.Vals[i]) {
				return false
			}
		}
		return true
	case Table:
		at, bt := h.Table(a.Slot), h.Table(b.Slot)
		ak, bk := at.Keys(), bt.Keys()
		if len(ak) != len(bk) {
			return false
		}
		for _, k := range ak {
			if !at.Get(k).Equal(h, bt.Get(k)) {
				return false
			}
		}
		return true
	case Fn:
		return a.Slot == b.Slot
	case Regex:
		return a.Slot == b.Slot
	default:
		return false
	}
}

// TypeName implements the TYPE opcode (spec §4.6).
func TypeName(v Value) string { return v.Kind.String() }
