package diag

import (
	"bytes"
	"strings"
	"testing"

	"oak/internal/ast"
	"oak/internal/compiler"
	"oak/internal/errors"
	"oak/internal/lexer"
	"oak/internal/parser"
	"oak/internal/symbol"
	"oak/internal/value"
)

func compileModule(t *testing.T, src string) ([]*ast.Stmt, []lexer.Token, *symbol.Resolver, *compiler.Result, *value.Heap) {
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
	return stmts, toks, res, result, heap
}

func TestPrintInput(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Flags{Input: true})
	p.PrintInput("test", "var x = 1")
	if !strings.Contains(buf.String(), "var x = 1") {
		t.Fatalf("expected source text in output, got %q", buf.String())
	}
}

func TestPrintTokens(t *testing.T) {
	_, toks, _, _, _ := compileModule(t, `var x = 1`)
	var buf bytes.Buffer
	p := New(&buf, Flags{Tokens: true})
	p.PrintTokens("test", toks)
	if buf.Len() == 0 {
		t.Fatalf("expected token dump output")
	}
}

func TestPrintAST(t *testing.T) {
	stmts, _, _, _, _ := compileModule(t, `
var x = 1
if x > 0 {
	println x
}
`)
	var buf bytes.Buffer
	p := New(&buf, Flags{AST: true})
	p.PrintAST("test", stmts)
	out := buf.String()
	if !strings.Contains(out, "VarDecl") || !strings.Contains(out, "If") {
		t.Fatalf("expected VarDecl/If nodes in AST dump, got %q", out)
	}
}

func TestPrintSymbols(t *testing.T) {
	_, _, res, _, _ := compileModule(t, `var x = 1`)
	var buf bytes.Buffer
	p := New(&buf, Flags{Symbols: true})
	p.PrintSymbols("test", res)
	if !strings.Contains(buf.String(), "x") {
		t.Fatalf("expected symbol 'x' in dump, got %q", buf.String())
	}
}

func TestPrintCode(t *testing.T) {
	_, _, _, result, heap := compileModule(t, `println 1 + 2`)
	var buf bytes.Buffer
	p := New(&buf, Flags{Code: true})
	p.PrintCode("test", heap, result.Code, result.Constants)
	if !strings.Contains(buf.String(), "PRINT") {
		t.Fatalf("expected PRINT opcode in code dump, got %q", buf.String())
	}
}

func TestPrintGC(t *testing.T) {
	heap := value.NewHeap()
	heap.NewArray()
	var buf bytes.Buffer
	p := New(&buf, Flags{GC: true})
	p.PrintGC("test", heap)
	if buf.Len() == 0 {
		t.Fatalf("expected GC dump output")
	}
}

func TestFlagsDisabledAreNoop(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Flags{})
	p.PrintInput("test", "anything")
	p.PrintGC("test", value.NewHeap())
	if buf.Len() != 0 {
		t.Fatalf("expected no output with all flags disabled, got %q", buf.String())
	}
}

func TestAnyReportsWhetherAnyFlagSet(t *testing.T) {
	if (Flags{}).Any() {
		t.Fatalf("expected Any() false for zero Flags")
	}
	if !(Flags{Code: true}).Any() {
		t.Fatalf("expected Any() true when one flag is set")
	}
	if !All().Any() {
		t.Fatalf("expected All() to report Any() true")
	}
}
