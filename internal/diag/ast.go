package diag

import (
	"fmt"
	"io"

	"oak/internal/ast"
)

// dumpStmt and dumpExpr are a minimal, indentation-based AST printer —
// oak has no ast.Stmt/Expr String() method of its own (nothing but this
// diagnostic needs one), so -pa gets a small purpose-built walker instead
// of a general pretty-printer.
func dumpStmt(w io.Writer, s *ast.Stmt, depth int) {
	if s == nil {
		return
	}
	indent(w, depth)
	fmt.Fprintf(w, "%s", stmtKindName(s.Kind))
	if s.Name != "" {
		fmt.Fprintf(w, " %q", s.Name)
	}
	fmt.Fprintln(w)

	if s.When != nil {
		indent(w, depth+1)
		fmt.Fprintln(w, "when:")
		dumpExpr(w, s.When, depth+2)
	}
	if s.Expr != nil {
		dumpExpr(w, s.Expr, depth+1)
	}
	if s.Init != nil {
		dumpStmt(w, s.Init, depth+1)
	}
	if s.Cond != nil {
		dumpExpr(w, s.Cond, depth+1)
	}
	if s.Step != nil {
		dumpExpr(w, s.Step, depth+1)
	}
	if s.Iter != nil {
		dumpExpr(w, s.Iter, depth+1)
	}
	if s.RegexLit != nil {
		dumpExpr(w, s.RegexLit, depth+1)
	}
	if s.LHS != nil {
		dumpExpr(w, s.LHS, depth+1)
	}
	for _, a := range s.PrintArgs {
		dumpExpr(w, a, depth+1)
	}
	for _, e := range s.List {
		dumpExpr(w, e, depth+1)
	}
	for _, m := range s.EnumMembers {
		indent(w, depth+1)
		fmt.Fprintf(w, "enum member %s\n", m.Name)
		if m.Value != nil {
			dumpExpr(w, m.Value, depth+2)
		}
	}
	for _, b := range s.Body {
		dumpStmt(w, b, depth+1)
	}
	for _, b := range s.FnBody {
		dumpStmt(w, b, depth+1)
	}
	if s.FnExprBody != nil {
		dumpExpr(w, s.FnExprBody, depth+1)
	}
}

func dumpExpr(w io.Writer, e *ast.Expr, depth int) {
	if e == nil {
		return
	}
	indent(w, depth)
	fmt.Fprintf(w, "%s", exprKindName(e.Kind))
	switch e.Kind {
	case ast.ExprInt:
		fmt.Fprintf(w, " %d", e.Int)
	case ast.ExprFloat:
		fmt.Fprintf(w, " %g", e.Float)
	case ast.ExprBool:
		fmt.Fprintf(w, " %t", e.Bool)
	case ast.ExprString, ast.ExprInterpString, ast.ExprIdent:
		fmt.Fprintf(w, " %q", e.Str)
	case ast.ExprRegex:
		fmt.Fprintf(w, " /%s/%s", e.Str, e.Flags)
	case ast.ExprBinary, ast.ExprLogical:
		fmt.Fprintf(w, " %q", e.Op)
	}
	fmt.Fprintln(w)

	for _, child := range []*ast.Expr{e.A, e.B, e.C, e.D} {
		dumpExpr(w, child, depth+1)
	}
	for _, el := range e.List {
		dumpExpr(w, el, depth+1)
	}
	for i, v := range e.Vals {
		indent(w, depth+1)
		if i < len(e.Keys) {
			fmt.Fprintf(w, "%s:\n", e.Keys[i])
		}
		dumpExpr(w, v, depth+2)
	}
	for _, p := range e.Params {
		indent(w, depth+1)
		fmt.Fprintf(w, "param %s\n", p.Name)
		if p.Default != nil {
			dumpExpr(w, p.Default, depth+2)
		}
	}
	for _, b := range e.Body {
		dumpStmt(w, b, depth+1)
	}
	if e.ExprBody != nil {
		dumpExpr(w, e.ExprBody, depth+1)
	}
	for _, arm := range e.Arms {
		indent(w, depth+1)
		if arm.Pattern == nil {
			fmt.Fprintln(w, "else:")
		} else {
			fmt.Fprintln(w, "arm:")
			dumpExpr(w, arm.Pattern, depth+2)
		}
		dumpExpr(w, arm.Body, depth+2)
	}
	if e.CompIter != nil {
		indent(w, depth+1)
		fmt.Fprintf(w, "for %s in:\n", e.CompVar)
		dumpExpr(w, e.CompIter, depth+2)
	}
	if e.CompCond != nil {
		dumpExpr(w, e.CompCond, depth+1)
	}
	if e.CompBody != nil {
		dumpExpr(w, e.CompBody, depth+1)
	}
}

func stmtKindName(k ast.StmtKind) string {
	switch k {
	case ast.StmtExpr:
		return "Expr"
	case ast.StmtVarDecl:
		return "VarDecl"
	case ast.StmtBlock:
		return "Block"
	case ast.StmtIf:
		return "If"
	case ast.StmtWhile:
		return "While"
	case ast.StmtDoWhile:
		return "DoWhile"
	case ast.StmtForClassic:
		return "ForClassic"
	case ast.StmtForIn:
		return "ForIn"
	case ast.StmtForRegex:
		return "ForRegex"
	case ast.StmtLast:
		return "Last"
	case ast.StmtNext:
		return "Next"
	case ast.StmtGoto:
		return "Goto"
	case ast.StmtLabel:
		return "Label"
	case ast.StmtFuncDecl:
		return "FuncDecl"
	case ast.StmtEnumDecl:
		return "EnumDecl"
	case ast.StmtDie:
		return "Die"
	case ast.StmtPrint:
		return "Print"
	case ast.StmtReturn:
		return "Return"
	default:
		return "Unknown"
	}
}

func exprKindName(k ast.ExprKind) string {
	switch k {
	case ast.ExprNil:
		return "Nil"
	case ast.ExprInt:
		return "Int"
	case ast.ExprFloat:
		return "Float"
	case ast.ExprBool:
		return "Bool"
	case ast.ExprString:
		return "String"
	case ast.ExprInterpString:
		return "InterpString"
	case ast.ExprIdent:
		return "Ident"
	case ast.ExprArray:
		return "Array"
	case ast.ExprTable:
		return "Table"
	case ast.ExprRegex:
		return "Regex"
	case ast.ExprFunc:
		return "Func"
	case ast.ExprUnary:
		return "Unary"
	case ast.ExprBinary:
		return "Binary"
	case ast.ExprLogical:
		return "Logical"
	case ast.ExprTernary:
		return "Ternary"
	case ast.ExprAssign:
		return "Assign"
	case ast.ExprIndexAssign:
		return "IndexAssign"
	case ast.ExprCall:
		return "Call"
	case ast.ExprIndex:
		return "Index"
	case ast.ExprMember:
		return "Member"
	case ast.ExprSlice:
		return "Slice"
	case ast.ExprRange:
		return "Range"
	case ast.ExprMatch:
		return "Match"
	case ast.ExprComprehension:
		return "Comprehension"
	case ast.ExprEval:
		return "Eval"
	default:
		return "Unknown"
	}
}
