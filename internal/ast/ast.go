// Package ast defines the syntax tree the compiler (internal/compiler)
// consumes. Per the language's design, statements carry a scope id and an
// optional `when` condition, and expressions carry a source token, an
// expression-kind tag, and kind-specific children — this mirrors oak's
// struct statement / struct expression (src/tree.c, include/tree.h).
//
// The lexer and parser that produce this tree are treated as external
// collaborators: only the shape consumed by the compiler is specified
// here, not a particular concrete grammar implementation.
package ast

import "oak/internal/errors"

// Pos is the source location a node originated from; compiled instructions
// carry it through for diagnostics but it is never read by execution.
type Pos struct {
	File   string
	Line   int
	Column int
	Len    int
	Source string
}

func (p Pos) Loc() errors.Location {
	return errors.Location{File: p.File, Line: p.Line, Column: p.Column, Len: p.Len, Source: p.Source}
}

// ExprKind tags the shape of an Expr's children.
type ExprKind int

const (
	ExprNil ExprKind = iota
	ExprInt
	ExprFloat
	ExprBool
	ExprString
	ExprInterpString // a string literal containing `$`-interpolation
	ExprIdent
	ExprArray
	ExprTable
	ExprRegex
	ExprFunc // anonymous/lambda function literal
	ExprUnary
	ExprBinary
	ExprLogical // && / || (short-circuit)
	ExprTernary
	ExprAssign
	ExprIndexAssign // a[b] = c / a.b = c
	ExprCall
	ExprIndex  // a[b]
	ExprMember // a.b
	ExprSlice  // a[b:c:d]
	ExprRange  // a .. b
	ExprMatch
	ExprComprehension // [expr for x = iterable if cond]
	ExprEval
)

// Expr is one node of an expression tree.
type Expr struct {
	Kind ExprKind
	Pos  Pos

	// Scope is set for ExprInterpString (the lexical scope id its
	// `$name`/`${expr}` fragments should be resolved against, since those
	// fragments are parsed lazily by the compiler rather than up front) and
	// for ExprEval (the scope `eval`'s runtime-only source should resolve
	// free identifiers against).
	Scope int

	// Literal payloads
	Int    int64
	Float  float64
	Bool   bool
	Str    string // string literal body, regex pattern, identifier name
	Flags  string // regex flags string: characters from i/x/g/m/c
	RegexSub string // regex literal's inline substitution replacement, if any

	// Structural children — which are populated depends on Kind.
	A, B, C, D *Expr   // operator children (unary:A; binary/logical/ternary/range/slice: A,B,C,D; assign: A=target,B=value)
	List        []*Expr // array elements, call args, interpolation parts
	Keys        []string
	Vals        []*Expr // table literal values (paired with Keys)
	Op          string  // operator spelling: "+", "==", "&&", ...

	// Function literal
	Params   []Param
	Body     []*Stmt
	ExprBody *Expr // expression-bodied function: `fn f(x) = x*2`
	FnScope  int   // scope id of the function's own frame (set by the resolver)

	// match
	Arms []MatchArm

	// comprehension
	CompVar   string
	CompIter  *Expr
	CompCond  *Expr
	CompBody  *Expr

	// Symbol reference resolved by the symbol table (nil until resolved).
	Sym *Symbol
}

// Param is one function parameter, with an optional default-value expression.
type Param struct {
	Name    string
	Default *Expr
}

// MatchArm is one `pattern: body` arm of a match expression. Pattern is nil
// for the wildcard arm (`else:` / `_:`).
type MatchArm struct {
	Pattern *Expr
	IsRegex bool
	Body    *Expr
}

// StmtKind tags the shape of a Stmt's children.
type StmtKind int

const (
	StmtExpr StmtKind = iota
	StmtVarDecl
	StmtBlock
	StmtIf
	StmtWhile
	StmtDoWhile
	StmtForClassic   // for (init; cond; step)
	StmtForIn        // for var x = iterable / for x = iterable
	StmtForRegex     // for /re/ ... or for lhs =~ /re/
	StmtLast
	StmtNext
	StmtGoto
	StmtLabel
	StmtFuncDecl
	StmtEnumDecl
	StmtDie
	StmtPrint
	StmtReturn
)

// Stmt is one node of a statement tree.
type Stmt struct {
	Kind  StmtKind
	Pos   Pos
	Scope int  // lexical scope id assigned by the resolver
	When  *Expr // optional `when` guard condition; nil if absent

	Expr  *Expr   // StmtExpr, StmtDie, StmtReturn, StmtLabel(name in Name)
	Name  string  // var name / goto-label name / function name
	Args  []Param // function parameters (StmtFuncDecl)
	FnBody    []*Stmt
	FnExprBody *Expr
	FnScope    int // scope id of the function's own frame (set by the resolver)

	Init *Stmt // classic for: init statement
	Cond *Expr
	Step *Expr
	Body []*Stmt

	IterVar  string
	Iter     *Expr
	ImplicitVar bool // true when the loop has no explicit bound variable (`_`)

	RegexLit *Expr // the compiled-at-compile-time regex literal for StmtForRegex
	LHS      *Expr // `lhs =~ /re/` target, nil for bare `for /re/`

	EnumMembers []EnumMember

	PrintArgs []*Expr
	Println   bool

	List []*Expr // general purpose expression list (StmtPrint fallback, etc.)
}

// EnumMember is one `NAME [= constexpr]` entry of an enum declaration.
type EnumMember struct {
	Name  string
	Value *Expr // nil unless an initializer was given
}

// Symbol describes an identifier resolved by the symbol table (§6.3).
type SymbolType int

const (
	SymVar SymbolType = iota
	SymGlobal
	SymArgument
	SymFn
	SymBlock
	SymModule
	SymImported
	SymLabel
	SymEnum
)

type Symbol struct {
	Name    string
	Type    SymbolType
	Address int
	Scope   int
	Module  int
	Parent  *Symbol

	// loop bookkeeping, used by last/next resolution
	NextAddr int
	LastAddr int

	EnumValue int64 // for SymEnum
}
