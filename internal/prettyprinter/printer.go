// Package prettyprinter renders an AST back to canonical source text.
// parse(Print(ast)) reproduces a structurally equal tree.
package prettyprinter

import (
	"fmt"
	"strings"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/eval"
)

func Print(program *ast.Program) string {
	var sb strings.Builder
	for _, arg := range program.Arguments {
		fmt.Fprintf(&sb, "argument %s\n", identifier(arg.Name))
	}
	for _, c := range program.Constants {
		fmt.Fprintf(&sb, "constant %s = %s\n", identifier(c.Name), Expr(c.Value))
	}
	for _, mod := range program.Modules {
		fmt.Fprintf(&sb, "module %s {\n", identifier(mod.Name))
		for _, imp := range mod.Imports {
			sb.WriteString("  " + importDecl(imp) + "\n")
		}
		for _, f := range mod.Formulas {
			if f.Exported {
				sb.WriteString("  export ")
			} else {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "%s = %s\n", identifier(f.Name), Expr(f.Body))
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

func importDecl(imp *ast.Import) string {
	var s string
	switch imp.Kind {
	case ast.ImportArgument:
		s = "import argument " + quoteName(imp.Path[0])
	case ast.ImportConstant:
		s = "import constant " + quoteName(imp.Path[0])
	case ast.ImportModule:
		s = "import module " + quoteName(imp.Path[0])
	case ast.ImportFormula:
		s = "import " + quoteName(imp.Path[1]) + " from " + quoteName(imp.Path[0])
	}
	if imp.Alias != nil {
		s += " as " + identifier(imp.Alias)
	}
	return s
}

// Expr renders an expression fully parenthesized where nesting occurs, so
// no precedence analysis is needed for the round trip.
func Expr(expr ast.Expression) string {
	switch node := expr.(type) {
	case *ast.NumberLiteral:
		return eval.FormatNumber(node.Value)
	case *ast.StringLiteral:
		return quoteString(node.Value)
	case *ast.BooleanLiteral:
		if node.Value {
			return "true"
		}
		return "false"
	case *ast.Identifier:
		return identifier(node)
	case *ast.AccessExpression:
		return Expr(node.Object) + "." + identifier(node.Member)
	case *ast.InvokeExpression:
		args := make([]string, len(node.Arguments))
		for i, a := range node.Arguments {
			args[i] = Expr(a)
		}
		return Expr(node.Callee) + "(" + strings.Join(args, ", ") + ")"
	case *ast.BinaryExpression:
		return "(" + Expr(node.Left) + " " + node.Operator + " " + Expr(node.Right) + ")"
	case *ast.UnaryExpression:
		if node.Operator == "-" {
			return "(-" + Expr(node.Operand) + ")"
		}
		return "(" + node.Operator + " " + Expr(node.Operand) + ")"
	case *ast.BlockExpression:
		parts := make([]string, len(node.Expressions))
		for i, e := range node.Expressions {
			parts[i] = Expr(e)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *ast.MacroExpression:
		args := make([]string, len(node.Args))
		for i, a := range node.Args {
			if a.Name != nil {
				args[i] = identifier(a.Name) + " = " + Expr(a.Value)
			} else {
				args[i] = Expr(a.Value)
			}
		}
		return strings.ToLower(string(node.Name)) + "(" + strings.Join(args, ", ") + ")"
	default:
		return fmt.Sprintf("<%T>", expr)
	}
}

func identifier(ident *ast.Identifier) string {
	return quoteName(ident.Value)
}

// quoteName emits the quoted-identifier form whenever the plain form would
// not survive lexing (keywords, punctuation, leading digits).
func quoteName(name string) string {
	if isPlainIdent(name) {
		return name
	}
	return "'" + name + "'"
}

func isPlainIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z'):
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return !isKeyword(name)
}

func isKeyword(name string) bool {
	switch strings.ToLower(name) {
	case "argument", "constant", "module", "import", "from", "as", "export",
		"true", "false", "if", "list", "object", "where", "await", "not", "and", "or":
		return true
	}
	return false
}

func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
