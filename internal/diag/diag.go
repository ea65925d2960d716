// Package diag implements the `-pi/-pt/-pa/-ps/-pc/-pg/-pv` compiler-stage
// dumps spec §6.1 names: one method per flag, each writing to the Printer's
// Out (stderr, per the CLI) and each a no-op unless its flag is set. The
// teacher and the rest of the pack use no logging framework anywhere in
// their actually-compiled code (debug output is plain fmt.Fprint* to a
// writer), so this package follows suit rather than introducing one.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"oak/internal/ast"
	"oak/internal/bytecode"
	"oak/internal/constant"
	"oak/internal/lexer"
	"oak/internal/symbol"
	"oak/internal/value"
)

// Flags selects which dumps are active, one bool per spec §6.1 `-p*` flag.
type Flags struct {
	Input   bool // -pi
	Tokens  bool // -pt
	AST     bool // -pa
	Symbols bool // -ps
	Code    bool // -pc
	GC      bool // -pg
	VM      bool // -pv
}

// All sets every flag, matching the CLI's `-p` ("print all of the above").
func All() Flags {
	return Flags{Input: true, Tokens: true, AST: true, Symbols: true, Code: true, GC: true, VM: true}
}

// Any reports whether at least one dump is requested, so a caller can skip
// building inputs (e.g. re-rendering source) this Printer will never use.
func (f Flags) Any() bool {
	return f.Input || f.Tokens || f.AST || f.Symbols || f.Code || f.GC || f.VM
}

// Printer writes the requested dumps to Out, each prefixed with a
// `=== stage: module ===` banner so a multi-module run's output stays
// readable.
type Printer struct {
	Flags
	Out io.Writer
}

func New(out io.Writer, f Flags) *Printer {
	return &Printer{Flags: f, Out: out}
}

func (p *Printer) banner(stage, module string) {
	fmt.Fprintf(p.Out, "=== %s: %s ===\n", stage, module)
}

// PrintInput dumps a module's raw source text (-pi).
func (p *Printer) PrintInput(module, src string) {
	if !p.Input {
		return
	}
	p.banner("input", module)
	fmt.Fprintln(p.Out, src)
}

// PrintTokens dumps a module's scanned token stream (-pt).
func (p *Printer) PrintTokens(module string, toks []lexer.Token) {
	if !p.Tokens {
		return
	}
	p.banner("tokens", module)
	for _, t := range toks {
		fmt.Fprintln(p.Out, t.String())
	}
}

// PrintAST dumps a module's parsed statement tree (-pa), indented two
// spaces per nesting level.
func (p *Printer) PrintAST(module string, stmts []*ast.Stmt) {
	if !p.AST {
		return
	}
	p.banner("ast", module)
	for _, s := range stmts {
		dumpStmt(p.Out, s, 0)
	}
}

// PrintSymbols dumps every scope a resolver created (-ps), walked by scope
// id rather than as a parent-to-child tree: symbol.Scope only records its
// own Parent, not its children, so ids 0..NumScopes()-1 is the only total
// order available short of re-walking the AST.
func (p *Printer) PrintSymbols(module string, res *symbol.Resolver) {
	if !p.Symbols {
		return
	}
	p.banner("symbols", module)
	for id := 0; id < res.NumScopes(); id++ {
		s := res.ScopeByID(id)
		if s == nil {
			continue
		}
		parent := -1
		if s.Parent != nil {
			parent = s.Parent.ID
		}
		fmt.Fprintf(p.Out, "scope %d (parent %d, module %d):\n", s.ID, parent, s.Module())
		for name, sym := range s.Symbols {
			fmt.Fprintf(p.Out, "  %-16s type=%-10s address=%d\n", name, symTypeName(sym.Type), sym.Address)
		}
	}
}

// PrintCode dumps a module's compiled instructions and constant table
// (-pc), using Op.String() and Stringify rather than reinventing either.
func (p *Printer) PrintCode(module string, heap *value.Heap, code []bytecode.Instr, ct *constant.Table) {
	if !p.Code {
		return
	}
	p.banner("code", module)
	for i, ins := range code {
		fmt.Fprintf(p.Out, "%4d  %-7s A=%d B=%d C=%d D=%d E=%d F=%d G=%d H=%d\n",
			i, ins.Op, ins.A, ins.B, ins.C, ins.D, ins.E, ins.F, ins.G, ins.H)
	}
	fmt.Fprintf(p.Out, "--- constants (%d) ---\n", ct.Len())
	for i := 0; i < ct.Len(); i++ {
		fmt.Fprintf(p.Out, "%4d  %s\n", i, value.Stringify(heap, ct.Get(i)))
	}
}

// PrintGC dumps per-kind heap occupancy (-pg), built directly on
// value.Heap.Stats() (SPEC_FULL.md §3.1's purpose-built accessor) and
// humanize for the live/capacity slot counts a raw integer would make hard
// to scan (no byte counts are printed).
func (p *Printer) PrintGC(module string, heap *value.Heap) {
	if !p.GC {
		return
	}
	p.banner("gc", module)
	for _, s := range heap.Stats() {
		fmt.Fprintf(p.Out, "%-8s live=%-10s capacity=%s\n",
			s.Kind, humanize.Comma(int64(s.LiveBits)), humanize.Comma(s.Capacity))
	}
}

func symTypeName(t ast.SymbolType) string {
	switch t {
	case ast.SymVar:
		return "var"
	case ast.SymGlobal:
		return "global"
	case ast.SymArgument:
		return "argument"
	case ast.SymFn:
		return "fn"
	case ast.SymBlock:
		return "block"
	case ast.SymModule:
		return "module"
	case ast.SymImported:
		return "imported"
	case ast.SymLabel:
		return "label"
	case ast.SymEnum:
		return "enum"
	default:
		return "unknown"
	}
}

func indent(w io.Writer, depth int) {
	fmt.Fprint(w, strings.Repeat("  ", depth))
}
