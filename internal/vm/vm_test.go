package vm

import (
	"bytes"
	"strings"
	"testing"

	"oak/internal/compiler"
	"oak/internal/errors"
	"oak/internal/lexer"
	"oak/internal/parser"
	"oak/internal/symbol"
	"oak/internal/value"
)

// run lexes, parses, resolves and compiles src as module 0, executes it,
// and returns whatever it printed plus the reporter for assertions —
// mirrors parser_test.go's parse(t, src) helper, extended end to end.
func run(t *testing.T, src string) (string, *VM) {
	t.Helper()
	sc := lexer.NewScanner(src)
	toks := sc.ScanTokens()
	if len(sc.Errors) != 0 {
		t.Fatalf("lex errors: %v", sc.Errors)
	}
	p := parser.New("test", src, toks)
	stmts := p.Parse()
	if len(p.Errors) != 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}

	heap := value.NewHeap()
	rep := errors.NewReporter()
	res := symbol.New(0)
	root := res.Resolve(stmts, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("resolve errors: %v", res.Errors)
	}

	cc := compiler.New(0, res, heap, rep)
	result := cc.Compile(stmts, root)
	if rep.Fatal() {
		var sb strings.Builder
		rep.Write(&sb)
		t.Fatalf("compile errors: %s", sb.String())
	}

	m := New(heap, rep)
	var out bytes.Buffer
	m.Out = &out
	m.AddModule(&Program{ID: 0, Name: "test", Code: result.Code, Constants: result.Constants, MaxReg: result.MaxReg, Resolver: res})
	m.RunModule(0)

	if rep.Fatal() {
		var sb strings.Builder
		rep.Write(&sb)
		t.Fatalf("runtime error: %s", sb.String())
	}
	return out.String(), m
}

func TestArithmeticPrint(t *testing.T) {
	out, _ := run(t, `println 2 + 3 * 4`)
	if out != "14\n" {
		t.Fatalf("got %q", out)
	}
}

func TestVarAssignAndIf(t *testing.T) {
	out, _ := run(t, `
var x = 10
if x > 5 {
	println "big"
} else {
	println "small"
}
`)
	if out != "big\n" {
		t.Fatalf("got %q", out)
	}
}

func TestWhileLoop(t *testing.T) {
	out, _ := run(t, `
var i = 0
var sum = 0
while i < 5 {
	sum = sum + i
	i = i + 1
}
println sum
`)
	if out != "10\n" {
		t.Fatalf("got %q", out)
	}
}

func TestFunctionCallReturnsValue(t *testing.T) {
	out, _ := run(t, `
fn add(a, b) {
	return a + b
}
println add(3, 4)
`)
	if out != "7\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRecursiveFunction(t *testing.T) {
	out, _ := run(t, `
fn fact(n) {
	if n <= 1 {
		return 1
	}
	return n * fact(n - 1)
}
println fact(5)
`)
	if out != "120\n" {
		t.Fatalf("got %q", out)
	}
}

func TestArrayIndexAndPush(t *testing.T) {
	out, _ := run(t, `
var a = [1, 2, 3]
a[3] = 4
println a[0], a[3]
`)
	if out != "1 4\n" {
		t.Fatalf("got %q", out)
	}
}

func TestTableIndexAutoVivify(t *testing.T) {
	out, _ := run(t, `
var t
t["x"] = 1
println t["x"]
`)
	if out != "1\n" {
		t.Fatalf("got %q", out)
	}
}

func TestStringInterpolation(t *testing.T) {
	out, _ := run(t, `
var name = "world"
println "hello {name}"
`)
	if out != "hello world\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRangeExpr(t *testing.T) {
	out, _ := run(t, `
for var x = 1 .. 3 {
	print x, ","
}
`)
	if out != "1,2,3," {
		t.Fatalf("got %q", out)
	}
}

func TestSliceExpr(t *testing.T) {
	out, _ := run(t, `
var a = [10, 20, 30, 40]
println a[1:3]
`)
	if !strings.Contains(out, "20") || !strings.Contains(out, "30") {
		t.Fatalf("got %q", out)
	}
}

func TestRegexMatch(t *testing.T) {
	out, _ := run(t, `
println match "hello" {
	/l+/: "matched",
	else: "no match"
}
`)
	if out != "matched\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRegexSubst(t *testing.T) {
	out, _ := run(t, `
var s = "foo bar"
s ~= /o+/"0"
println s
`)
	if out != "f0 bar\n" {
		t.Fatalf("got %q", out)
	}
}

func TestForRegexLoopsOverMatches(t *testing.T) {
	out, _ := run(t, `
var s = "foo boo"
var n = 0
for s ~= /o/ {
	n = n + 1
}
println n
`)
	if out != "4\n" {
		t.Fatalf("got %q", out)
	}
}

func TestEvalExpression(t *testing.T) {
	out, _ := run(t, `
var x = 10
println eval("x + 5")
`)
	if out != "15\n" {
		t.Fatalf("got %q", out)
	}
}

func TestEvalMutatesCallingScope(t *testing.T) {
	out, _ := run(t, `
var x = 1
eval("x = 99")
println x
`)
	if out != "99\n" {
		t.Fatalf("got %q", out)
	}
}

func TestDieRaisesFatal(t *testing.T) {
	_, m := runAllowFatal(t, `die "boom"`)
	if !m.Rep.Fatal() {
		t.Fatalf("expected a fatal diagnostic")
	}
}

// TestEvalTopLevelMutatesModuleGlobal exercises the CLI's "-e runs as a
// child of the file's root scope" composition path directly against a
// module that has already finished running (mirroring cmd/oak calling
// EvalTopLevel after RunModule has returned, not from inside a frame).
func TestEvalTopLevelMutatesModuleGlobal(t *testing.T) {
	src := `var x = 1`
	sc := lexer.NewScanner(src)
	toks := sc.ScanTokens()
	p := parser.New("test", src, toks)
	stmts := p.Parse()

	heap := value.NewHeap()
	rep := errors.NewReporter()
	res := symbol.New(0)
	root := res.Resolve(stmts, nil)

	cc := compiler.New(0, res, heap, rep)
	result := cc.Compile(stmts, root)

	m := New(heap, rep)
	var out bytes.Buffer
	m.Out = &out
	m.AddModule(&Program{ID: 0, Name: "test", Code: result.Code, Constants: result.Constants, MaxReg: result.MaxReg, Resolver: res})
	m.RunModule(0)
	if rep.Fatal() {
		t.Fatalf("unexpected fatal running the file module")
	}

	if _, ok := m.EvalTopLevel(0, res, root, "x = 99"); !ok {
		t.Fatalf("EvalTopLevel failed: %v", rep.Diagnostics())
	}

	sym := root.Resolve("x")
	if sym == nil {
		t.Fatalf("expected a resolvable symbol for x")
	}
	got := m.Globals[0][sym.Address]
	if got.Kind != value.Int || got.Int != 99 {
		t.Fatalf("expected x == 99 after EvalTopLevel, got %+v", got)
	}
}

// runAllowFatal is run's sibling for tests that deliberately trigger a
// fatal diagnostic instead of treating it as a test failure.
func runAllowFatal(t *testing.T, src string) (string, *VM) {
	t.Helper()
	sc := lexer.NewScanner(src)
	toks := sc.ScanTokens()
	if len(sc.Errors) != 0 {
		t.Fatalf("lex errors: %v", sc.Errors)
	}
	p := parser.New("test", src, toks)
	stmts := p.Parse()
	if len(p.Errors) != 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}

	heap := value.NewHeap()
	rep := errors.NewReporter()
	res := symbol.New(0)
	root := res.Resolve(stmts, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("resolve errors: %v", res.Errors)
	}

	cc := compiler.New(0, res, heap, rep)
	result := cc.Compile(stmts, root)

	m := New(heap, rep)
	var out bytes.Buffer
	m.Out = &out
	m.AddModule(&Program{ID: 0, Name: "test", Code: result.Code, Constants: result.Constants, MaxReg: result.MaxReg, Resolver: res})
	m.RunModule(0)
	return out.String(), m
}
