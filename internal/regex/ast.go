// Package regex implements the embedded PCRE-subset engine (spec §4.4),
// grounded on _examples/original_source/include/ktre.h's feature set:
// a pattern is parsed into a node tree, then matched by a recursive
// backtracking walk over that tree, bounded by a per-start-position step
// cap of MaxThread*1000 (see DESIGN.md for the exact scope this package
// implements vs. the full ktre surface).
package regex

import "fmt"

// ErrorKind mirrors ktre's KTRE_ERROR_* taxonomy (spec §7 "Regex errors").
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrTooManyGroups
	ErrStackOverflow
	ErrCallOverflow
	ErrOutOfMemory
)

// CompileError carries a byte offset into the pattern, matching ktre's
// typed-error-with-source-index contract.
type CompileError struct {
	Kind ErrorKind
	Pos  int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("regex: %s at offset %d", e.Msg, e.Pos)
}

// ExecError is the typed error for matcher-limit failures. The matcher in
// this package never returns one: an attempt that exceeds the step cap
// fails as a non-match.
type ExecError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ExecError) Error() string { return "regex: " + e.Msg }

const (
	MaxThread    = 200
	MaxGroups    = 100
	MaxCallDepth = 100
	MemCap       = 1_000_000
)

// node is the parsed-pattern AST, walked directly by the matcher (vm.go).
type nodeKind int

const (
	nChar nodeKind = iota
	nAny
	nClass
	nConcat
	nAlt
	nStar
	nPlus
	nQuest
	nRepeat // {n,m}
	nGroup
	nBackref
	nBOL
	nEOL
	nWordBoundary
	nLookahead
	nLookbehind
	nAtomic
)

type class struct {
	negate bool
	ranges [][2]rune
	preset []byte // 'd','D','w','W','s','S' predicate shorthands
}

type node struct {
	kind nodeKind

	ch    rune
	cls   *class
	kids  []*node // nConcat, nAlt: children; nGroup/quantifiers: single child in kids[0]

	min, max int  // nRepeat
	greedy   bool // quantifiers

	groupIdx  int    // nGroup: 1-based capture index, 0 for non-capturing
	groupName string // nGroup: named group, "" if unnamed

	backrefIdx  int
	backrefName string

	negLook bool // nLookahead/nLookbehind: negative form
	wbNeg   bool // nWordBoundary: \B vs \b
}
