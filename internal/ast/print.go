package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Dump renders the tree in an indented one-node-per-line form, used by
// the CLI's parse command.
func Dump(p *Program) string {
	var b strings.Builder
	b.WriteString("Program\n")
	for _, stmt := range p.Statements {
		dumpStmt(&b, stmt, 1)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func dumpStmt(b *strings.Builder, stmt Statement, depth int) {
	indent(b, depth)
	switch s := stmt.(type) {
	case *Assign:
		fmt.Fprintf(b, "Assign %s =%s\n", s.Name, s.TypeTag)
		dumpExpr(b, s.Value, depth+1)
	case *IndexAssign:
		fmt.Fprintf(b, "IndexAssign %s\n", s.Name)
		dumpExpr(b, s.Index, depth+1)
		dumpExpr(b, s.Value, depth+1)
	case *Append:
		fmt.Fprintf(b, "Append %s\n", s.Name)
		dumpExpr(b, s.Value, depth+1)
	case *Remove:
		fmt.Fprintf(b, "Remove %s\n", s.Name)
		dumpExpr(b, s.Index, depth+1)
	case *ExpressionStatement:
		b.WriteString("ExpressionStatement\n")
		dumpExpr(b, s.Expr, depth+1)
	case *If:
		b.WriteString("If\n")
		dumpExpr(b, s.Condition, depth+1)
		dumpBlock(b, "Then", s.Then, depth+1)
		if s.Else != nil {
			indent(b, depth+1)
			b.WriteString("Else\n")
			dumpStmt(b, s.Else, depth+2)
		}
	case *While:
		b.WriteString("While\n")
		dumpExpr(b, s.Condition, depth+1)
		dumpBlock(b, "Body", s.Body, depth+1)
		if s.Else != nil {
			dumpBlock(b, "Else", s.Else, depth+1)
		}
	case *For:
		fmt.Fprintf(b, "For %s\n", s.Var)
		dumpExpr(b, s.Iterable, depth+1)
		dumpBlock(b, "Body", s.Body, depth+1)
		if s.Else != nil {
			dumpBlock(b, "Else", s.Else, depth+1)
		}
	case *Match:
		b.WriteString("Match\n")
		dumpExpr(b, s.Expr, depth+1)
		for _, cs := range s.Cases {
			indent(b, depth+1)
			b.WriteString("Case\n")
			dumpExpr(b, cs.Literal, depth+2)
			dumpBlock(b, "Body", cs.Body, depth+2)
		}
		if s.Else != nil {
			dumpBlock(b, "Else", s.Else, depth+1)
		}
	case *Stop:
		b.WriteString("Stop\n")
	case *Continue:
		b.WriteString("Continue\n")
	case *FuncDef:
		fmt.Fprintf(b, "FuncDef %s", s.Name)
		if s.ReturnType != "" {
			fmt.Fprintf(b, " =%s", s.ReturnType)
		}
		b.WriteByte('\n')
		for _, p := range s.Params {
			indent(b, depth+1)
			fmt.Fprintf(b, "Param %s =%s\n", p.Name, p.TypeTag)
			if p.Default != nil {
				dumpExpr(b, p.Default, depth+2)
			}
		}
		dumpBlock(b, "Body", s.Body, depth+1)
	case *Return:
		b.WriteString("Return\n")
		if s.Value != nil {
			dumpExpr(b, s.Value, depth+1)
		}
	case *Import:
		fmt.Fprintf(b, "Import %q", s.Path)
		if s.Alias != "" {
			fmt.Fprintf(b, " as %s", s.Alias)
		}
		b.WriteByte('\n')
	case *Export:
		fmt.Fprintf(b, "Export %s\n", s.Name)
	case *Trace:
		fmt.Fprintf(b, "Trace %v\n", s.Enabled)
	case *Block:
		b.WriteString("Block\n")
		for _, inner := range s.Statements {
			dumpStmt(b, inner, depth+1)
		}
	default:
		fmt.Fprintf(b, "%T\n", stmt)
	}
}

func dumpBlock(b *strings.Builder, label string, block *Block, depth int) {
	indent(b, depth)
	b.WriteString(label)
	b.WriteByte('\n')
	for _, stmt := range block.Statements {
		dumpStmt(b, stmt, depth+1)
	}
}

func dumpExpr(b *strings.Builder, expr Expression, depth int) {
	indent(b, depth)
	switch e := expr.(type) {
	case *IntLiteral:
		fmt.Fprintf(b, "Int %d\n", e.Value)
	case *FloatLiteral:
		fmt.Fprintf(b, "Float %s\n", strconv.FormatFloat(e.Value, 'g', -1, 64))
	case *StringLiteral:
		fmt.Fprintf(b, "String %q\n", e.Value)
	case *BoolLiteral:
		fmt.Fprintf(b, "Bool %v\n", e.Value)
	case *Ident:
		fmt.Fprintf(b, "Ident %s\n", e.Name)
	case *Binary:
		fmt.Fprintf(b, "Binary %s\n", e.Op)
		dumpExpr(b, e.Left, depth+1)
		dumpExpr(b, e.Right, depth+1)
	case *Unary:
		fmt.Fprintf(b, "Unary %s\n", e.Op)
		dumpExpr(b, e.Expr, depth+1)
	case *CompareChain:
		fmt.Fprintf(b, "CompareChain %s\n", strings.Join(e.Ops, " "))
		dumpExpr(b, e.First, depth+1)
		for _, r := range e.Rest {
			dumpExpr(b, r, depth+1)
		}
	case *Call:
		fmt.Fprintf(b, "Call %s\n", e.Name)
		for _, a := range e.Args {
			if a.Name != "" {
				indent(b, depth+1)
				fmt.Fprintf(b, "Named %s\n", a.Name)
				dumpExpr(b, a.Value, depth+2)
			} else {
				dumpExpr(b, a.Value, depth+1)
			}
		}
	case *ListLiteral:
		b.WriteString("List\n")
		for _, item := range e.Items {
			dumpExpr(b, item, depth+1)
		}
	case *DictLiteral:
		b.WriteString("Dict\n")
		for _, pair := range e.Pairs {
			indent(b, depth+1)
			fmt.Fprintf(b, "Key %q\n", pair.Key.Value)
			dumpExpr(b, pair.Value, depth+2)
		}
	case *Index:
		fmt.Fprintf(b, "Index %s\n", e.Name)
		dumpExpr(b, e.Key, depth+1)
	default:
		fmt.Fprintf(b, "%T\n", expr)
	}
}
