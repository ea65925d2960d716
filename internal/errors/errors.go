// Package errors implements the interpreter's diagnostic reporter.
//
// Diagnostics are collected rather than thrown: every compile or runtime
// fault calls Reporter.Push and execution keeps going until the caller
// notices r.Fatal() is set. This mirrors the reporter/error_push pattern
// the language was distilled from (oak's struct reporter) instead of using
// Go panics for user-facing control flow.
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Severity is the level at which a diagnostic was raised.
type Severity int

const (
	Note Severity = iota
	Warning
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Fatal:
		return "killed"
	default:
		return "error"
	}
}

// Location pins a diagnostic to a byte range of a source file.
type Location struct {
	File   string
	Line   int
	Column int
	Len    int
	Source string // the full line of source the diagnostic occurred on
}

// Diagnostic is a single collected error, warning, or note.
type Diagnostic struct {
	Loc     Location
	Sev     Severity
	Message string
}

// StackFrame describes one call-stack entry for a fatal error's trace.
type StackFrame struct {
	Function string
	File     string
	Line     int
	Column   int
	Args     int
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n", d.Loc.File, d.Loc.Line, d.Loc.Column, d.Sev, d.Message)

	if d.Loc.Source != "" {
		col := d.Loc.Column - 1
		if col < 0 {
			col = 0
		}
		sb.WriteString("\t" + d.Loc.Source + "\n\t")
		for i := 0; i < col; i++ {
			if col < len(d.Loc.Source) && d.Loc.Source[i] == '\t' {
				sb.WriteByte('\t')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('^')
		length := d.Loc.Len
		if length < 1 {
			length = 1
		}
		for i := 1; i < length; i++ {
			sb.WriteByte('~')
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Reporter accumulates diagnostics for one interpreter invocation.
//
// Matches the oak reporter contract: Push never panics, Fatal reports
// whether any fatal diagnostic has been pushed, and the VM checks that
// flag after every instruction (see internal/vm).
type Reporter struct {
	diags   []Diagnostic
	pending bool
	fatal   bool
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Push records a diagnostic at the given severity.
func (r *Reporter) Push(loc Location, sev Severity, format string, args ...interface{}) {
	r.diags = append(r.diags, Diagnostic{Loc: loc, Sev: sev, Message: fmt.Sprintf(format, args...)})
	r.pending = true
	if sev == Fatal {
		r.fatal = true
	}
}

// Pending reports whether any diagnostic has been pushed since the last Clear.
func (r *Reporter) Pending() bool { return r.pending }

// Fatal reports whether a fatal diagnostic has been pushed.
func (r *Reporter) Fatal() bool { return r.fatal }

// Diagnostics returns all collected diagnostics in push order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }

// Clear empties the reporter, resetting pending/fatal.
func (r *Reporter) Clear() {
	r.diags = nil
	r.pending = false
	r.fatal = false
}

// Write formats every collected diagnostic to sb in push order.
func (r *Reporter) Write(sb *strings.Builder) {
	for _, d := range r.diags {
		sb.WriteString(d.String())
	}
}

// WriteStackTrace renders up to the ten innermost frames of a call stack,
// matching oak's stacktrace() in src/vm.c (it truncates beyond 10 frames
// rather than flooding stderr on deep recursion errors).
func WriteStackTrace(sb *strings.Builder, frames []StackFrame) {
	sb.WriteString("Stack trace:\n")
	depth := 0
	if len(frames) > 10 {
		depth = len(frames) - 10
	}
	for i := len(frames) - 1; i >= depth; i-- {
		f := frames[i]
		argWord := "s"
		if f.Args == 1 {
			argWord = ""
		}
		fmt.Fprintf(sb, "\t%2d: <`%s' : %d argument%s> %s:%d:%d\n",
			i, f.Function, f.Args, argWord, f.File, f.Line, f.Column)
	}
	if depth != 0 {
		sb.WriteString("\t--- truncated ---\n")
	}
}

// Wrap attaches a stack-carrying cause to an internal plumbing error (module
// loading, file I/O) without changing the user-visible diagnostic format
// produced by Diagnostic.String.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(err, message)
}
