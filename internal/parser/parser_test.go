package parser

import (
	"testing"

	"oak/internal/ast"
	"oak/internal/lexer"
)

func parse(t *testing.T, src string) []*ast.Stmt {
	t.Helper()
	sc := lexer.NewScanner(src)
	toks := sc.ScanTokens()
	if len(sc.Errors) != 0 {
		t.Fatalf("lex errors: %v", sc.Errors)
	}
	p := New("test", src, toks)
	stmts := p.Parse()
	if len(p.Errors) != 0 {
		t.Fatalf("parse errors: %v", p.Errors)
	}
	return stmts
}

func TestPrintlnArithmetic(t *testing.T) {
	stmts := parse(t, `println 2 + 3 * 4`)
	if len(stmts) != 1 || stmts[0].Kind != ast.StmtPrint {
		t.Fatalf("expected one print statement, got %#v", stmts)
	}
	if len(stmts[0].PrintArgs) != 1 {
		t.Fatalf("expected one print arg")
	}
	e := stmts[0].PrintArgs[0]
	if e.Kind != ast.ExprBinary || e.Op != "+" {
		t.Fatalf("expected top-level +, got %#v", e)
	}
	if e.B.Kind != ast.ExprBinary || e.B.Op != "*" {
		t.Fatalf("expected * to bind tighter than +, got %#v", e.B)
	}
}

func TestRegexSubstAssign(t *testing.T) {
	stmts := parse(t, `var s = "foo"; s ~= /o+/"0"; println s`)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	if stmts[0].Kind != ast.StmtVarDecl || stmts[0].Name != "s" {
		t.Fatalf("expected var decl, got %#v", stmts[0])
	}
	assign := stmts[1].Expr
	if assign.Kind != ast.ExprAssign || assign.Op != "~=" {
		t.Fatalf("expected ~= assign, got %#v", assign)
	}
	if assign.B.Kind != ast.ExprRegex || assign.B.RegexSub != "0" {
		t.Fatalf("expected regex literal with substitution, got %#v", assign.B)
	}
}

func TestForInArray(t *testing.T) {
	stmts := parse(t, `for var x = [10, 20, 30]: print x, ","`)
	if len(stmts) != 1 || stmts[0].Kind != ast.StmtForIn {
		t.Fatalf("expected for-in statement, got %#v", stmts)
	}
	f := stmts[0]
	if f.IterVar != "x" || f.Iter.Kind != ast.ExprArray || len(f.Iter.List) != 3 {
		t.Fatalf("unexpected for-in shape: %#v", f)
	}
}

func TestTableLiteralAndMember(t *testing.T) {
	stmts := parse(t, `var t = {a = 1, b = 2}; println t.a + t.b`)
	if stmts[0].Expr.Kind != ast.ExprTable || len(stmts[0].Expr.Keys) != 2 {
		t.Fatalf("expected 2-key table literal, got %#v", stmts[0].Expr)
	}
	printExpr := stmts[1].PrintArgs[0]
	if printExpr.Kind != ast.ExprBinary || printExpr.A.Kind != ast.ExprMember {
		t.Fatalf("expected member access on lhs of +, got %#v", printExpr)
	}
}

func TestFuncLiteralDefaultParam(t *testing.T) {
	stmts := parse(t, `fn f(x = 5) = x * 2; println f(), f(7)`)
	if stmts[0].Kind != ast.StmtFuncDecl || len(stmts[0].Args) != 1 {
		t.Fatalf("expected func decl with one param, got %#v", stmts[0])
	}
	if stmts[0].Args[0].Default == nil {
		t.Fatalf("expected default value on parameter x")
	}
	if stmts[0].FnExprBody == nil {
		t.Fatalf("expected expression body for f")
	}
}

func TestEvalCall(t *testing.T) {
	stmts := parse(t, `println eval("1 + 2 + 3")`)
	arg := stmts[0].PrintArgs[0]
	if arg.Kind != ast.ExprEval {
		t.Fatalf("expected eval expression, got %#v", arg)
	}
}

func TestRangeComprehensionLikeLoop(t *testing.T) {
	stmts := parse(t, `var a = []; for x = 0..2: push(a, x); println join(a, "-")`)
	forStmt := stmts[1]
	if forStmt.Kind != ast.StmtForIn || forStmt.Iter.Kind != ast.ExprRange {
		t.Fatalf("expected for-in over a range, got %#v", forStmt)
	}
}

func TestDieStatement(t *testing.T) {
	stmts := parse(t, `die "boom"`)
	if stmts[0].Kind != ast.StmtDie || stmts[0].Expr.Str != "boom" {
		t.Fatalf("expected die statement with message, got %#v", stmts[0])
	}
}

func TestIfElseChain(t *testing.T) {
	stmts := parse(t, `
		if x < 0 {
			println "neg"
		} else if x == 0 {
			println "zero"
		} else {
			println "pos"
		}
	`)
	if stmts[0].Kind != ast.StmtIf {
		t.Fatalf("expected if statement")
	}
	elseIf := stmts[0].Init
	if elseIf == nil || elseIf.Kind != ast.StmtIf {
		t.Fatalf("expected else-if chained as nested if, got %#v", elseIf)
	}
}

func TestWhileLastNext(t *testing.T) {
	stmts := parse(t, `
		while true {
			next when x == 1
			last
		}
	`)
	body := stmts[0].Body
	if len(body) != 2 {
		t.Fatalf("expected 2 statements in while body, got %d", len(body))
	}
	if body[0].Kind != ast.StmtNext || body[0].When == nil {
		t.Fatalf("expected guarded next, got %#v", body[0])
	}
	if body[1].Kind != ast.StmtLast {
		t.Fatalf("expected last, got %#v", body[1])
	}
}

func TestEnumDecl(t *testing.T) {
	stmts := parse(t, `enum { A, B = 3, C }`)
	if stmts[0].Kind != ast.StmtEnumDecl || len(stmts[0].EnumMembers) != 3 {
		t.Fatalf("expected 3 enum members, got %#v", stmts[0])
	}
	if stmts[0].EnumMembers[1].Value == nil {
		t.Fatalf("expected explicit initializer on B")
	}
}

func TestMatchExpression(t *testing.T) {
	stmts := parse(t, `
		var r = match x {
			1: "one",
			2: "two",
			else: "other"
		};
	`)
	m := stmts[0].Expr
	if m.Kind != ast.ExprMatch || len(m.Arms) != 3 {
		t.Fatalf("expected 3 match arms, got %#v", m)
	}
	if m.Arms[2].Pattern != nil {
		t.Fatalf("expected wildcard arm to have a nil pattern")
	}
}

func TestSliceAndIndex(t *testing.T) {
	stmts := parse(t, `var a = b[1:3]; var c = b[0]`)
	if stmts[0].Expr.Kind != ast.ExprSlice {
		t.Fatalf("expected slice expr, got %#v", stmts[0].Expr)
	}
	if stmts[1].Expr.Kind != ast.ExprIndex {
		t.Fatalf("expected index expr, got %#v", stmts[1].Expr)
	}
}

func TestRegexForLoop(t *testing.T) {
	stmts := parse(t, `for /[a-z]+/g { println group(0) }`)
	if stmts[0].Kind != ast.StmtForRegex || stmts[0].RegexLit == nil {
		t.Fatalf("expected for-regex statement, got %#v", stmts[0])
	}
}

func TestComprehension(t *testing.T) {
	stmts := parse(t, `var a = [x * 2 for x = items if x > 0]`)
	e := stmts[0].Expr
	if e.Kind != ast.ExprComprehension || e.CompVar != "x" {
		t.Fatalf("expected comprehension, got %#v", e)
	}
	if e.CompCond == nil {
		t.Fatalf("expected comprehension condition")
	}
}
