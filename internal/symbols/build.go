package symbols

import (
	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/diagnostics"
)

// Build populates a Registry from a parsed program. Duplicate names within
// a scope are reported as C002 and the first declaration wins.
func Build(program *ast.Program) (*Registry, []*diagnostics.DiagnosticError) {
	registry := NewRegistry()
	var errs []*diagnostics.DiagnosticError

	dup := func(node ast.Node, format string, args ...interface{}) {
		errs = append(errs, diagnostics.NewError(diagnostics.C002, node.GetToken(), format, args...))
	}

	for _, arg := range program.Arguments {
		if registry.DeclareArgument(arg.Name.Value, arg) == nil {
			dup(arg, "duplicate argument %s", arg.Name.Value)
		}
	}
	for _, c := range program.Constants {
		if registry.DeclareConstant(c.Name.Value, c) == nil {
			dup(c, "duplicate constant %s", c.Name.Value)
		}
	}

	for _, mod := range program.Modules {
		ms := registry.DeclareModule(mod.Name.Value, mod)
		if ms == nil {
			dup(mod, "duplicate module %s", mod.Name.Value)
			continue
		}
		for _, imp := range mod.Imports {
			if registry.DeclareLocal(ms, imp.LocalName(), ImportSymbol, imp) == nil {
				dup(imp, "duplicate name %s in module %s", imp.LocalName(), mod.Name.Value)
			}
		}
		for _, f := range mod.Formulas {
			if registry.DeclareLocal(ms, f.Name.Value, FormulaSymbol, f) == nil {
				dup(f, "duplicate name %s in module %s", f.Name.Value, mod.Name.Value)
			}
		}
	}

	return registry, errs
}
