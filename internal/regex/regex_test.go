package regex

import "testing"

func TestSimpleLiteralMatch(t *testing.T) {
	p, err := Compile("foo", "")
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.Exec("xxfooyy", 0)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Start != 2 || m.Length != 3 {
		t.Fatalf("expected match at 2,3 got %#v", m)
	}
}

func TestGreedyPlusSubstitution(t *testing.T) {
	p, err := Compile("o+", "")
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Filter("foo", "0", "$")
	if err != nil {
		t.Fatal(err)
	}
	if out != "f0" {
		t.Fatalf("expected f0, got %q", out)
	}
}

func TestCharClassAndQuantifier(t *testing.T) {
	p, err := Compile("[a-z]+", "")
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.Exec("123abc456", 0)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Groups[0] != "abc" {
		t.Fatalf("expected abc, got %#v", m)
	}
}

func TestCapturingGroups(t *testing.T) {
	p, err := Compile(`(\d+)-(\d+)`, "")
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.Exec("12-34", 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Groups[1] != "12" || m.Groups[2] != "34" {
		t.Fatalf("expected groups 12,34, got %#v", m.Groups)
	}
}

func TestNamedGroup(t *testing.T) {
	p, err := Compile(`(?<year>\d{4})-(?<month>\d{2})`, "")
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.Exec("2026-07", 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Named["year"] != "2026" || m.Named["month"] != "07" {
		t.Fatalf("expected named groups, got %#v", m.Named)
	}
}

func TestAlternation(t *testing.T) {
	p, err := Compile("cat|dog", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"cat", "dog"} {
		m, err := p.Exec(s, 0)
		if err != nil || m == nil || m.Groups[0] != s {
			t.Fatalf("expected match for %q, got %#v, err %v", s, m, err)
		}
	}
}

func TestCaseInsensitiveFlag(t *testing.T) {
	p, err := Compile("FOO", "i")
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.Exec("a foo b", 0)
	if err != nil || m == nil {
		t.Fatalf("expected case-insensitive match, got %#v, err %v", m, err)
	}
}

func TestBackreference(t *testing.T) {
	p, err := Compile(`(\w+) \1`, "")
	if err != nil {
		t.Fatal(err)
	}
	m, err := p.Exec("hello hello world", 0)
	if err != nil || m == nil || m.Groups[0] != "hello hello" {
		t.Fatalf("expected backreference match, got %#v, err %v", m, err)
	}
}

func TestSplit(t *testing.T) {
	p, err := Compile(`,\s*`, "")
	if err != nil {
		t.Fatal(err)
	}
	parts, err := p.Split("a, b,c")
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 3 || parts[0] != "a" || parts[1] != "b" || parts[2] != "c" {
		t.Fatalf("unexpected split result: %#v", parts)
	}
}

func TestGlobalExecAll(t *testing.T) {
	p, err := Compile(`\d+`, "g")
	if err != nil {
		t.Fatal(err)
	}
	matches, err := p.ExecAll("a1 b22 c333")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
}

func TestTooManyGroupsRejected(t *testing.T) {
	pattern := ""
	for i := 0; i < MaxGroups+1; i++ {
		pattern += "(a)"
	}
	_, err := Compile(pattern, "")
	if err == nil {
		t.Fatalf("expected too-many-groups compile error")
	}
	ce, ok := err.(*CompileError)
	if !ok || ce.Kind != ErrTooManyGroups {
		t.Fatalf("expected ErrTooManyGroups, got %#v", err)
	}
}

func TestWordBoundary(t *testing.T) {
	p, err := Compile(`\bcat\b`, "")
	if err != nil {
		t.Fatal(err)
	}
	m, _ := p.Exec("concatenate cat scatter", 0)
	if m == nil || m.Start != 12 {
		t.Fatalf("expected word-bounded match at 12, got %#v", m)
	}
}
