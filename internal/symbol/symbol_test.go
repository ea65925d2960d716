package symbol

import (
	"testing"

	"oak/internal/ast"
)

func ident(name string) *ast.Expr { return &ast.Expr{Kind: ast.ExprIdent, Str: name} }

func TestResolveLocalVar(t *testing.T) {
	stmts := []*ast.Stmt{
		{Kind: ast.StmtVarDecl, Name: "x", Expr: &ast.Expr{Kind: ast.ExprInt, Int: 1}},
		{Kind: ast.StmtExpr, Expr: ident("x")},
	}
	r := New(0)
	r.Resolve(stmts, nil)
	if len(r.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	ref := stmts[1].Expr
	if ref.Sym == nil || ref.Sym.Name != "x" {
		t.Fatalf("expected x to resolve, got %#v", ref.Sym)
	}
	if ref.Sym.Type != ast.SymGlobal {
		t.Fatalf("expected module-level var to resolve as global, got %v", ref.Sym.Type)
	}
}

func TestUndeclaredIdentifierReportsError(t *testing.T) {
	stmts := []*ast.Stmt{
		{Kind: ast.StmtExpr, Expr: ident("nope")},
	}
	r := New(0)
	r.Resolve(stmts, nil)
	if len(r.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(r.Errors))
	}
}

func TestFunctionParamsDoNotLeakToCaller(t *testing.T) {
	fn := &ast.Stmt{
		Kind: ast.StmtFuncDecl, Name: "f",
		Args:   []ast.Param{{Name: "a"}},
		FnBody: []*ast.Stmt{{Kind: ast.StmtExpr, Expr: ident("a")}},
	}
	useOutside := &ast.Stmt{Kind: ast.StmtExpr, Expr: ident("a")}
	r := New(0)
	r.Resolve([]*ast.Stmt{fn, useOutside}, nil)
	if len(r.Errors) != 1 {
		t.Fatalf("expected exactly one undeclared-identifier error for outer use of 'a', got %d: %v", len(r.Errors), r.Errors)
	}
}

func TestLastOutsideLoopIsError(t *testing.T) {
	stmts := []*ast.Stmt{{Kind: ast.StmtLast}}
	r := New(0)
	r.Resolve(stmts, nil)
	if len(r.Errors) != 1 {
		t.Fatalf("expected error for last outside loop, got %v", r.Errors)
	}
}

func TestLastInsideWhileResolves(t *testing.T) {
	stmts := []*ast.Stmt{
		{Kind: ast.StmtWhile, Cond: &ast.Expr{Kind: ast.ExprBool, Bool: true}, Body: []*ast.Stmt{
			{Kind: ast.StmtLast},
		}},
	}
	r := New(0)
	r.Resolve(stmts, nil)
	if len(r.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
}

func TestEnumMembersGetIncreasingValues(t *testing.T) {
	stmts := []*ast.Stmt{
		{Kind: ast.StmtEnumDecl, EnumMembers: []ast.EnumMember{
			{Name: "A"},
			{Name: "B", Value: &ast.Expr{Kind: ast.ExprInt, Int: 3}},
			{Name: "C"},
		}},
		{Kind: ast.StmtExpr, Expr: ident("C")},
	}
	r := New(0)
	r.Resolve(stmts, nil)
	if len(r.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	c := stmts[1].Expr.Sym
	if c == nil || c.EnumValue != 4 {
		t.Fatalf("expected C == 4 (after B=3), got %#v", c)
	}
}
