// Package symbol implements the lexical symbol resolver spec §6.3
// describes: it walks a parsed *ast.Stmt tree, assigns scope ids and
// frame-local addresses, and resolves every identifier reference to the
// ast.Symbol it names.
//
// Grounded on _examples/original_source/include/symbol.h's struct symbol /
// struct symbolizer: a symbol carries {name, type, address, scope, module,
// parent, next, last}; resolve(sym, name) walks upward through parents,
// find_from_scope(root, id) finds the symbol owning a given scope id. A
// function's body frame only sees its own locals/arguments plus the
// module's globals — oak has no true lexical closures over an enclosing
// function's locals, only module-root globals (addressed NUM_REG+address
// from any nested frame, per spec §3 "Frame").
package symbol

import (
	"fmt"

	"oak/internal/ast"
	"oak/internal/errors"
)

// Scope is one lexical scope: a block shares its enclosing frame's address
// counter; a function or the module root opens a fresh one.
type Scope struct {
	ID      int
	Parent  *Scope
	Symbols map[string]*ast.Symbol
	Frame   *frame

	// loop bookkeeping: non-nil while resolving a loop body, used to wire
	// last/next addresses onto the symbols those statements reference.
	LoopSym *ast.Symbol
}

type frame struct {
	module   int
	varCount int
	isModule bool
}

// VarCount returns the number of local addresses (variables/arguments)
// declared in this scope's frame — the compiler's register high-water
// mark starts here, since addresses 0..VarCount-1 are already claimed by
// declared locals.
func (s *Scope) VarCount() int { return s.Frame.varCount }

// IsModuleFrame reports whether this scope's frame is a module root frame
// (as opposed to a function's own frame).
func (s *Scope) IsModuleFrame() bool { return s.Frame.isModule }

// Module returns the module id this scope's frame belongs to.
func (s *Scope) Module() int { return s.Frame.module }

// SameFrame reports whether two scopes share the same underlying frame
// (i.e. belong to the same function/module body, just nested blocks).
func SameFrame(a, b *Scope) bool { return a.Frame == b.Frame }

// Resolve is the exported form of resolve, for the compiler's lazy
// interpolation-part resolution.
func (s *Scope) Resolve(name string) *ast.Symbol { return s.resolve(name) }

// Resolver is the entry point; one Resolver handles one module at a time
// but can be reused across eval-compiled child modules sharing the same
// globals (the parentScope parameter to Resolve models that).
type Resolver struct {
	nextScopeID int
	module      int
	Errors      []errors.Diagnostic

	// GlobalScope is the module's root scope, exposed so import/eval can
	// resolve names against it directly (SPEC_FULL.md §3.9).
	GlobalScope *Scope

	// scopes indexes every scope created by this resolver by id, so the
	// compiler can re-resolve ad hoc fragments (string interpolation parts
	// parsed lazily from a literal's text) against the exact lexical scope
	// a statement or expression was recorded against.
	scopes map[int]*Scope
}

func New(module int) *Resolver {
	return &Resolver{module: module, scopes: map[int]*Scope{}}
}

// ScopeByID returns the scope created with the given id, or nil.
func (r *Resolver) ScopeByID(id int) *Scope { return r.scopes[id] }

// NumScopes returns how many scopes this resolver has created, so a caller
// can walk every scope by id (0..NumScopes()-1) — used by the `-ps` symbol
// table dump, since Scope records only its Parent, not its children.
func (r *Resolver) NumScopes() int { return len(r.scopes) }

func (r *Resolver) error(pos ast.Pos, format string, args ...interface{}) {
	r.Errors = append(r.Errors, errors.Diagnostic{
		Loc: pos.Loc(), Sev: errors.Fatal, Message: fmt.Sprintf(format, args...),
	})
}

func (r *Resolver) newScope(parent *Scope, fr *frame) *Scope {
	s := &Scope{ID: r.nextScopeID, Parent: parent, Symbols: map[string]*ast.Symbol{}, Frame: fr}
	r.nextScopeID++
	r.scopes[s.ID] = s
	return s
}

// Resolve symbolizes a top-level module body (or, for `eval`, a fragment
// resolved against parentScope — nil for an ordinary module). It mutates
// every ast.Expr's Sym field and every ast.Stmt's Scope field in place.
func (r *Resolver) Resolve(stmts []*ast.Stmt, parentScope *Scope) *Scope {
	fr := &frame{module: r.module, isModule: true}
	var parent *Scope
	if parentScope != nil {
		parent = parentScope
		fr = parentScope.Frame
	}
	root := r.newScope(parent, fr)
	r.GlobalScope = root
	r.resolveBlock(stmts, root)
	return root
}

// resolve walks upward through Parent looking for name, matching
// symbol.c's resolve(): a plain linear walk, no module-boundary skip here
// (import/eval wire cross-module lookups by chaining Parent directly to
// the target module's global scope — SPEC_FULL.md §3.9).
func (s *Scope) resolve(name string) *ast.Symbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// findFromScope finds the symbol that owns the given scope id, walking
// upward — used by last/next to find the nearest enclosing loop symbol.
func (s *Scope) findFromScope(id int) *ast.Symbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.ID == id && cur.LoopSym != nil {
			return cur.LoopSym
		}
	}
	return nil
}

func (r *Resolver) declare(scope *Scope, name string, typ ast.SymbolType, pos ast.Pos) *ast.Symbol {
	sym := &ast.Symbol{Name: name, Type: typ, Scope: scope.ID, Module: scope.Frame.module}
	switch typ {
	case ast.SymVar, ast.SymArgument:
		sym.Address = scope.Frame.varCount
		scope.Frame.varCount++
	case ast.SymGlobal:
		sym.Address = scope.Frame.varCount
		scope.Frame.varCount++
	}
	scope.Symbols[name] = sym
	return sym
}

func (r *Resolver) resolveBlock(stmts []*ast.Stmt, scope *Scope) {
	for _, s := range stmts {
		r.resolveStmt(s, scope)
	}
}

func (r *Resolver) resolveStmt(s *ast.Stmt, scope *Scope) {
	s.Scope = scope.ID
	if s.When != nil {
		r.resolveExpr(s.When, scope)
	}
	switch s.Kind {
	case ast.StmtExpr, ast.StmtDie, ast.StmtReturn:
		if s.Expr != nil {
			r.resolveExpr(s.Expr, scope)
		}

	case ast.StmtVarDecl:
		if s.Expr != nil {
			r.resolveExpr(s.Expr, scope)
		}
		typ := ast.SymVar
		if scope.Frame.isModule && scope == r.GlobalScope {
			typ = ast.SymGlobal
		}
		r.declare(scope, s.Name, typ, s.Pos)

	case ast.StmtBlock:
		inner := r.newScope(scope, scope.Frame)
		r.resolveBlock(s.Body, inner)

	case ast.StmtIf:
		r.resolveExpr(s.Cond, scope)
		inner := r.newScope(scope, scope.Frame)
		r.resolveBlock(s.Body, inner)
		if s.Init != nil { // else / else-if branch, stashed on Init
			r.resolveStmt(s.Init, scope)
		}

	case ast.StmtWhile:
		r.resolveExpr(s.Cond, scope)
		inner := r.newScope(scope, scope.Frame)
		loopSym := &ast.Symbol{Name: "<loop>", Type: ast.SymBlock, Scope: inner.ID, Module: scope.Frame.module}
		inner.LoopSym = loopSym
		r.resolveBlock(s.Body, inner)

	case ast.StmtDoWhile:
		inner := r.newScope(scope, scope.Frame)
		loopSym := &ast.Symbol{Name: "<loop>", Type: ast.SymBlock, Scope: inner.ID, Module: scope.Frame.module}
		inner.LoopSym = loopSym
		r.resolveBlock(s.Body, inner)
		r.resolveExpr(s.Cond, scope)

	case ast.StmtForClassic:
		outer := r.newScope(scope, scope.Frame)
		if s.Init != nil {
			r.resolveStmt(s.Init, outer)
		}
		if s.Cond != nil {
			r.resolveExpr(s.Cond, outer)
		}
		if s.Step != nil {
			r.resolveExpr(s.Step, outer)
		}
		inner := r.newScope(outer, scope.Frame)
		loopSym := &ast.Symbol{Name: "<loop>", Type: ast.SymBlock, Scope: inner.ID, Module: scope.Frame.module}
		inner.LoopSym = loopSym
		r.resolveBlock(s.Body, inner)

	case ast.StmtForIn:
		r.resolveExpr(s.Iter, scope)
		inner := r.newScope(scope, scope.Frame)
		loopSym := &ast.Symbol{Name: "<loop>", Type: ast.SymBlock, Scope: inner.ID, Module: scope.Frame.module}
		inner.LoopSym = loopSym
		if !s.ImplicitVar {
			r.declare(inner, s.IterVar, ast.SymVar, s.Pos)
		}
		r.resolveBlock(s.Body, inner)

	case ast.StmtForRegex:
		r.resolveExpr(s.RegexLit, scope)
		if s.LHS != nil {
			r.resolveExpr(s.LHS, scope)
		}
		inner := r.newScope(scope, scope.Frame)
		loopSym := &ast.Symbol{Name: "<loop>", Type: ast.SymBlock, Scope: inner.ID, Module: scope.Frame.module}
		inner.LoopSym = loopSym
		r.resolveBlock(s.Body, inner)

	case ast.StmtLast, ast.StmtNext:
		var sym *ast.Symbol
		for cur := scope; cur != nil; cur = cur.Parent {
			if cur.LoopSym != nil {
				sym = cur.LoopSym
				break
			}
		}
		if sym == nil {
			word := "next"
			if s.Kind == ast.StmtLast {
				word = "last"
			}
			r.error(s.Pos, "'%s' used outside of a loop", word)
		}

	case ast.StmtGoto:
		// Label resolution is deferred to the compiler's back-patch pass
		// (spec §4.5): labels may appear after their goto within the same
		// function, so no lookup happens here beyond the scope walk.

	case ast.StmtLabel:
		r.declare(scope, s.Name, ast.SymLabel, s.Pos)

	case ast.StmtFuncDecl:
		r.declare(scope, s.Name, ast.SymFn, s.Pos)
		fnScope := r.resolveFuncBody(s.Args, s.FnBody, s.FnExprBody, scope)
		s.FnScope = fnScope.ID

	case ast.StmtEnumDecl:
		nextVal := int64(0)
		for i := range s.EnumMembers {
			m := &s.EnumMembers[i]
			if m.Value != nil {
				r.resolveExpr(m.Value, scope)
			}
			if m.Value != nil && m.Value.Kind == ast.ExprInt {
				nextVal = m.Value.Int
			}
			r.declareEnum(scope, m.Name, nextVal)
			nextVal++
		}

	case ast.StmtPrint:
		for _, e := range s.PrintArgs {
			r.resolveExpr(e, scope)
		}
	}
}

func (r *Resolver) declareEnum(scope *Scope, name string, val int64) *ast.Symbol {
	sym := &ast.Symbol{Name: name, Type: ast.SymEnum, Scope: scope.ID, Module: scope.Frame.module, EnumValue: val}
	scope.Symbols[name] = sym
	return sym
}

// resolveFuncBody opens a fresh frame rooted at the module's global scope:
// functions see their own params/locals and the module's globals, never an
// enclosing function's locals (spec §3 Frame model).
func (r *Resolver) resolveFuncBody(params []ast.Param, body []*ast.Stmt, exprBody *ast.Expr, enclosing *Scope) *Scope {
	globalRoot := r.GlobalScope
	fnFrame := &frame{module: enclosing.Frame.module}
	fnScope := r.newScope(globalRoot, fnFrame)
	for _, p := range params {
		if p.Default != nil {
			r.resolveExpr(p.Default, enclosing)
		}
		r.declare(fnScope, p.Name, ast.SymArgument, ast.Pos{})
	}
	if exprBody != nil {
		r.resolveExpr(exprBody, fnScope)
		return fnScope
	}
	r.resolveBlock(body, fnScope)
	return fnScope
}

func (r *Resolver) resolveExpr(e *ast.Expr, scope *Scope) {
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprIdent:
		sym := scope.resolve(e.Str)
		if sym == nil {
			r.error(e.Pos, "undeclared identifier '%s'", e.Str)
			return
		}
		e.Sym = sym

	case ast.ExprUnary:
		r.resolveExpr(e.A, scope)
	case ast.ExprBinary, ast.ExprLogical:
		r.resolveExpr(e.A, scope)
		r.resolveExpr(e.B, scope)
	case ast.ExprTernary, ast.ExprRange:
		r.resolveExpr(e.A, scope)
		r.resolveExpr(e.B, scope)
		r.resolveExpr(e.C, scope)
		r.resolveExpr(e.D, scope)
	case ast.ExprAssign:
		r.resolveExpr(e.A, scope)
		r.resolveExpr(e.B, scope)
	case ast.ExprIndexAssign:
		r.resolveExpr(e.A, scope)
		r.resolveExpr(e.B, scope)
		r.resolveExpr(e.C, scope)
	case ast.ExprCall:
		r.resolveExpr(e.A, scope)
		for _, a := range e.List {
			r.resolveExpr(a, scope)
		}
	case ast.ExprIndex, ast.ExprMember:
		r.resolveExpr(e.A, scope)
		r.resolveExpr(e.B, scope)
	case ast.ExprSlice:
		r.resolveExpr(e.A, scope)
		r.resolveExpr(e.B, scope)
		r.resolveExpr(e.C, scope)
		r.resolveExpr(e.D, scope)
	case ast.ExprArray:
		for _, el := range e.List {
			r.resolveExpr(el, scope)
		}
	case ast.ExprTable:
		for _, v := range e.Vals {
			r.resolveExpr(v, scope)
		}
	case ast.ExprFunc:
		fnScope := r.resolveFuncBody(e.Params, e.Body, e.ExprBody, scope)
		e.FnScope = fnScope.ID
	case ast.ExprMatch:
		r.resolveExpr(e.A, scope)
		for _, arm := range e.Arms {
			if arm.Pattern != nil {
				r.resolveExpr(arm.Pattern, scope)
			}
			r.resolveExpr(arm.Body, scope)
		}
	case ast.ExprComprehension:
		inner := r.newScope(scope, scope.Frame)
		r.resolveExpr(e.CompIter, scope)
		r.declare(inner, e.CompVar, ast.SymVar, e.Pos)
		if e.CompCond != nil {
			r.resolveExpr(e.CompCond, inner)
		}
		r.resolveExpr(e.CompBody, inner)
	case ast.ExprEval:
		r.resolveExpr(e.A, scope)
		// the evaluated source is only known at runtime, so record the
		// calling scope id the same way ExprInterpString does: eval's
		// free identifiers resolve against the scope it was written in.
		e.Scope = scope.ID
	case ast.ExprInterpString:
		// interpolation parts are re-parsed and resolved lazily by the
		// compiler (spec §4.5/§9); only the scope id is recorded here so
		// the compiler can resolve `$name`/`${expr}` fragments against the
		// exact lexical scope this literal appeared in.
		e.Scope = scope.ID
	}
}
