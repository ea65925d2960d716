// cmd/oak is the single executable spec §6.1 describes: a flat flag set,
// no subcommands, exit 0 on success and 1 on any fatal error or invalid
// argument. Grounded on cmd/sentra/main.go's manual flag dispatch and
// direct lexer/parser/compiler/vm wiring, scaled to oak's much smaller
// command surface (the teacher's subcommand tree, REPL, LSP, package
// manager, and build pipeline have no SPEC_FULL.md counterpart — this
// CLI only ever does one thing: load and optionally run a program).
package main

import (
	"fmt"
	"os"
	"strings"

	"oak/internal/cli"
	"oak/internal/diag"
	"oak/internal/errors"
	"oak/internal/module"
	"oak/internal/value"
	"oak/internal/vm"
)

func main() {
	opts, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "oak: %v\n", err)
		os.Exit(1)
	}

	heap := value.NewHeap()
	rep := errors.NewReporter()
	loader := module.NewLoader(heap, rep)
	printer := diag.New(os.Stderr, opts.Print)
	m := vm.New(heap, rep)
	if opts.Suppress {
		m.Talkative = false
	}
	if opts.Print.VM {
		m.Trace = os.Stderr
	}

	var fileModule *module.Module
	if opts.File != "" {
		fileModule, err = loader.Load(opts.File, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "oak: %v\n", err)
			os.Exit(1)
		}
		dump(printer, fileModule, heap)

		if !opts.NoExec {
			m.AddModule(fileModule.Program)
			m.RunModule(fileModule.Program.ID)
			if reportFatal(rep) {
				os.Exit(1)
			}
		}
	}

	if opts.EvalSrc != "" {
		if opts.File != "" {
			if !opts.NoExec {
				// Spec §6.1: "the file is run first, then -e runs as a
				// child evaluated inside that file's root scope."
				m.EvalTopLevel(fileModule.Program.ID, fileModule.Program.Resolver,
					fileModule.Program.Resolver.GlobalScope, opts.EvalSrc)
				if reportFatal(rep) {
					os.Exit(1)
				}
			}
		} else {
			evalModule, err := loader.LoadSource(evalModuleName(), opts.EvalSrc, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "oak: %v\n", err)
				os.Exit(1)
			}
			dump(printer, evalModule, heap)
			if !opts.NoExec {
				m.AddModule(evalModule.Program)
				m.RunModule(evalModule.Program.ID)
				if reportFatal(rep) {
					os.Exit(1)
				}
			}
		}
	}

	printer.PrintGC("oak", heap)
}

func evalModuleName() string { return "-e" }

// dump runs every requested -p* pipeline-stage print for one loaded
// module; -pg (GC) is printed once at the very end of main instead, since
// it reflects the heap's final state rather than any one module's.
func dump(p *diag.Printer, m *module.Module, heap *value.Heap) {
	p.PrintInput(m.Name, m.Source)
	p.PrintTokens(m.Name, m.Tokens)
	p.PrintAST(m.Name, m.Stmts)
	p.PrintSymbols(m.Name, m.Program.Resolver)
	p.PrintCode(m.Name, heap, m.Program.Code, m.Program.Constants)
}

// reportFatal writes every diagnostic accumulated since the last call to
// stderr, clears the reporter (so a later stage doesn't reprint the same
// diagnostics), and reports whether a fatal one occurred.
func reportFatal(rep *errors.Reporter) bool {
	if len(rep.Diagnostics()) == 0 {
		return false
	}
	var sb strings.Builder
	rep.Write(&sb)
	fmt.Fprint(os.Stderr, sb.String())
	fatal := rep.Fatal()
	rep.Clear()
	return fatal
}
