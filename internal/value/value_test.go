package value

import "testing"

func TestHeapAllocGrowsByWord(t *testing.T) {
	h := NewHeap()
	var slots []Value
	for i := 0; i < 70; i++ {
		slots = append(slots, h.NewString("x"))
	}
	if h.cap[Str] != 128 {
		t.Fatalf("expected capacity to grow to 128 after 70 allocations, got %d", h.cap[Str])
	}
	for _, s := range slots {
		if !h.live(Str, s.Slot) {
			t.Fatalf("slot %d should be live", s.Slot)
		}
	}
}

func TestHeapFreeThenReallocReusesSlot(t *testing.T) {
	h := NewHeap()
	a := h.NewString("a")
	h.free(Str, a.Slot)
	b := h.NewString("b")
	if b.Slot != a.Slot {
		t.Fatalf("expected freed slot %d to be reused, got %d", a.Slot, b.Slot)
	}
}

func TestArraySubscriptBoundary(t *testing.T) {
	h := NewHeap()
	arr := h.NewArray()
	obj := h.Array(arr.Slot)
	obj.Push(IntValue(10))
	obj.Push(IntValue(20))
	if got := obj.Get(-1); got.Kind != Nil {
		t.Fatalf("expected Nil for negative index, got %#v", got)
	}
	if got := obj.Get(5); got.Kind != Nil {
		t.Fatalf("expected Nil for out-of-range index, got %#v", got)
	}
	if got := obj.Get(1); got.Int != 20 {
		t.Fatalf("expected 20, got %#v", got)
	}
}

func TestTableSetGetDjb2Bucketing(t *testing.T) {
	h := NewHeap()
	tbl := h.NewTable()
	obj := h.Table(tbl.Slot)
	obj.Set("a", IntValue(1))
	obj.Set("b", IntValue(2))
	if got := obj.Get("a"); got.Int != 1 {
		t.Fatalf("expected 1, got %#v", got)
	}
	if got := obj.Get("missing"); got.Kind != Nil {
		t.Fatalf("expected Nil for missing key, got %#v", got)
	}
	obj.Set("a", IntValue(99))
	if got := obj.Get("a"); got.Int != 99 {
		t.Fatalf("expected overwrite to 99, got %#v", got)
	}
}

func TestTableDelete(t *testing.T) {
	h := NewHeap()
	tbl := h.NewTable()
	obj := h.Table(tbl.Slot)
	obj.Set("k", IntValue(1))
	if !obj.Delete("k") {
		t.Fatalf("expected delete to report found")
	}
	if got := obj.Get("k"); got.Kind != Nil {
		t.Fatalf("expected Nil after delete, got %#v", got)
	}
}

func TestStringTruthinessAlwaysFalse(t *testing.T) {
	h := NewHeap()
	s := h.NewString("nonempty")
	if s.Truthy() {
		t.Fatalf("string values must never be truthy, per spec")
	}
}

func TestIntFloatEquality(t *testing.T) {
	h := NewHeap()
	a := FloatValue(1.0000001)
	b := FloatValue(1.0000002)
	if !a.Equal(h, b) {
		t.Fatalf("expected floats within epsilon to compare equal")
	}
	if IntValue(1).Equal(h, FloatValue(1)) {
		t.Fatalf("Int and Float of equal magnitude must not cross-compare equal (different kinds)")
	}
}

func TestArithPromotion(t *testing.T) {
	h := NewHeap()
	v, err := Add(h, IntValue(2), FloatValue(3.5))
	if err != nil || v.Kind != Float || v.Float != 5.5 {
		t.Fatalf("expected float promotion to 5.5, got %#v, err %v", v, err)
	}
	v, err = Add(h, IntValue(2), IntValue(3))
	if err != nil || v.Kind != Int || v.Int != 5 {
		t.Fatalf("expected int 5, got %#v, err %v", v, err)
	}
}

func TestDivisionByZeroIntFatal(t *testing.T) {
	_, err := Div(IntValue(1), IntValue(0))
	if err == nil {
		t.Fatalf("expected division by zero error")
	}
}

func TestStringConcatWithNilCopies(t *testing.T) {
	h := NewHeap()
	s := h.NewString("hi")
	v, err := Add(h, s, NilValue())
	if err != nil || h.Str(v.Slot) != "hi" {
		t.Fatalf("expected Str+Nil to copy the string, got %#v, err %v", v, err)
	}
}

func TestDeepCopyArrayIsIndependent(t *testing.T) {
	h := NewHeap()
	orig := h.NewArray()
	h.Array(orig.Slot).Push(IntValue(1))
	cp := h.DeepCopy(orig)
	h.Array(cp.Slot).Push(IntValue(2))
	if len(h.Array(orig.Slot).Vals) != 1 {
		t.Fatalf("mutating the copy must not mutate the original")
	}
}
