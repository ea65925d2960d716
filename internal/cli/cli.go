// Package cli parses the oak command line (spec §6.1): a flat flag set,
// no subcommands, grounded on the teacher's own manual os.Args dispatch
// style (cmd/sentra/main.go) but scaled down to the much smaller flag
// table this language actually specifies.
package cli

import (
	"fmt"

	"oak/internal/diag"
)

// Options is the parsed command line.
type Options struct {
	EvalSrc  string // -e <src>
	File     string // positional argument, if any
	Print    diag.Flags
	NoExec   bool // -d: load but do not execute
	Suppress bool // -np: suppress normal program output
}

// ParseArgs parses args (os.Args[1:]) into Options, matching spec §6.1:
// at most one positional file argument, at most one `-e`, and at least
// one of `-e`/file required.
func ParseArgs(args []string) (*Options, error) {
	var opts Options
	haveEval := false

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-e":
			if haveEval {
				return nil, fmt.Errorf("-e given more than once")
			}
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("-e requires a source argument")
			}
			opts.EvalSrc = args[i]
			haveEval = true
		case "-pi":
			opts.Print.Input = true
		case "-pt":
			opts.Print.Tokens = true
		case "-pa":
			opts.Print.AST = true
		case "-ps":
			opts.Print.Symbols = true
		case "-pc":
			opts.Print.Code = true
		case "-pg":
			opts.Print.GC = true
		case "-pv":
			opts.Print.VM = true
		case "-p":
			opts.Print = diag.All()
		case "-d":
			opts.NoExec = true
		case "-np":
			opts.Suppress = true
		default:
			if len(a) > 0 && a[0] == '-' {
				return nil, fmt.Errorf("unrecognized flag %q", a)
			}
			if opts.File != "" {
				return nil, fmt.Errorf("at most one file argument is allowed (got %q and %q)", opts.File, a)
			}
			opts.File = a
		}
	}

	if opts.File == "" && opts.EvalSrc == "" {
		return nil, fmt.Errorf("no input: provide a file or -e <src>")
	}
	return &opts, nil
}
