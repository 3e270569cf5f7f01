package runtime

import (
	"strings"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/depgraph"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/eval"
	"github.com/funvibe/cascade/internal/planner"
	"github.com/funvibe/cascade/internal/symbols"
	"github.com/funvibe/cascade/internal/token"
)

// CompileError aggregates the diagnostics of a rejected program. Compile
// is single-shot: any error rejects the program in full.
type CompileError struct {
	Diagnostics []*diagnostics.DiagnosticError
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	for i, d := range e.Diagnostics {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.Error())
	}
	return sb.String()
}

// Options carries host-side program inputs: constants bound at compile
// time, including Function and Pending values the source text cannot
// express.
type Options struct {
	Constants map[string]eval.Object
}

// compiledStep pairs a planner step with its emitted body and the
// bookkeeping its post-actions need.
type compiledStep struct {
	step *planner.Step
	run  evalFunc
	slot int

	exported    bool
	module      string
	name        string
	exportsSlot int
}

// Executable is a compiled program. It is immutable and safe for
// concurrent Call invocations; all per-call state lives in the callState.
type Executable struct {
	Program  *ast.Program
	Registry *symbols.Registry
	Plan     *planner.Plan
	Warnings []*diagnostics.DiagnosticError

	steps     []*compiledStep // by step id
	groups    [][]*compiledStep
	constants map[int]eval.Object // slot -> compile-time value
	argOrder  []*symbols.Symbol
	slotCount int
}

// Compile turns a parsed program into an Executable. The error, when
// non-nil, is a *CompileError listing every diagnostic.
func Compile(program *ast.Program, opts *Options) (*Executable, error) {
	registry, errs := symbols.Build(program)

	if opts != nil {
		for name := range opts.Constants {
			if registry.DeclareConstant(name, nil) == nil {
				errs = append(errs, diagnostics.NewError(diagnostics.C002, token.Token{},
					"duplicate constant %s", name))
			}
		}
	}
	if len(errs) > 0 {
		return nil, &CompileError{Diagnostics: errs}
	}

	table, cycleErrs := depgraph.Build(program, registry)
	if len(cycleErrs) > 0 {
		return nil, &CompileError{Diagnostics: cycleErrs}
	}

	constants := compileConstants(program, registry, opts)
	isPending := func(name string) bool {
		sym, ok := registry.Constants.Resolve(name)
		if !ok {
			return false
		}
		_, pending := constants[sym.Slot].(*eval.Pending)
		return pending
	}

	plan, warnings := planner.Build(table, isPending)

	exe := &Executable{
		Program:   program,
		Registry:  registry,
		Plan:      plan,
		Warnings:  warnings,
		constants: constants,
		argOrder:  registry.Arguments.Symbols(),
		slotCount: registry.SlotCount(),
	}

	exe.steps = make([]*compiledStep, len(plan.Steps))
	for _, group := range plan.Groups {
		var compiled []*compiledStep
		for _, step := range group.Steps {
			cs := exe.compileStep(step)
			exe.steps[step.ID] = cs
			compiled = append(compiled, cs)
		}
		exe.groups = append(exe.groups, compiled)
	}

	return exe, nil
}

func (e *Executable) compileStep(step *planner.Step) *compiledStep {
	cs := &compiledStep{step: step, slot: step.Symbol.Slot}

	ms, _ := e.Registry.Module(step.Symbol.Module)

	if f := step.Formula(); f != nil {
		cs.module = step.Symbol.Module
		cs.name = f.Name.Value
		cs.exported = f.Exported
		if ms != nil {
			cs.exportsSlot = ms.Exports.Slot
		}

		body := f.Body
		// The planner owns tail awaits: the emitted body is the operand
		// and the driver settles the resulting Pending at the barrier.
		if unary, ok := body.(*ast.UnaryExpression); ok && unary.Operator == "await" {
			body = unary.Operand
		}
		em := &emitter{registry: e.Registry, scope: ms}
		if body == nil {
			err := eval.NewError(eval.Internal, "formula %s has no body", cs.name)
			cs.run = func(st *callState) eval.Object { return err }
		} else {
			cs.run = em.emit(body)
		}
		return cs
	}

	imp := step.Import()
	cs.module = step.Symbol.Module
	cs.name = imp.LocalName()
	cs.run = e.compileImport(imp)
	return cs
}

// compileImport resolves the import target once; a missing target compiles
// into a step producing Error{UnresolvedIdentifier} when evaluated.
func (e *Executable) compileImport(imp *ast.Import) evalFunc {
	unresolved := func(path string) evalFunc {
		err := eval.NewError(eval.UnresolvedIdentifier, "unresolved import %s", path)
		return func(st *callState) eval.Object { return err }
	}
	readSlot := func(slot int) evalFunc {
		return func(st *callState) eval.Object {
			if v := st.slots[slot]; v != nil {
				return v
			}
			return eval.NewError(eval.Internal, "import target slot not populated")
		}
	}

	switch imp.Kind {
	case ast.ImportArgument:
		sym, ok := e.Registry.Arguments.Resolve(imp.Path[0])
		if !ok {
			return unresolved(imp.Path[0])
		}
		return readSlot(sym.Slot)
	case ast.ImportConstant:
		sym, ok := e.Registry.Constants.Resolve(imp.Path[0])
		if !ok {
			return unresolved(imp.Path[0])
		}
		return readSlot(sym.Slot)
	case ast.ImportModule:
		ms, ok := e.Registry.Module(imp.Path[0])
		if !ok {
			return unresolved(imp.Path[0])
		}
		return readSlot(ms.Exports.Slot)
	case ast.ImportFormula:
		ms, ok := e.Registry.Module(imp.Path[0])
		if !ok {
			return unresolved(imp.Path[0] + "." + imp.Path[1])
		}
		sym, ok := ms.Resolve(imp.Path[1])
		if !ok || sym.Kind != symbols.FormulaSymbol {
			return unresolved(imp.Path[0] + "." + imp.Path[1])
		}
		return readSlot(sym.Slot)
	}
	return unresolved(imp.LocalName())
}

// compileConstants evaluates the textual literal constants and merges the
// host-provided ones into the slot -> value seed map.
func compileConstants(program *ast.Program, registry *symbols.Registry, opts *Options) map[int]eval.Object {
	constants := make(map[int]eval.Object)

	for _, decl := range program.Constants {
		sym, ok := registry.Constants.Resolve(decl.Name.Value)
		if !ok {
			continue
		}
		constants[sym.Slot] = literalValue(decl.Value)
	}
	if opts != nil {
		for name, value := range opts.Constants {
			if sym, ok := registry.Constants.Resolve(name); ok {
				constants[sym.Slot] = value
			}
		}
	}
	return constants
}

func literalValue(expr ast.Expression) eval.Object {
	switch lit := expr.(type) {
	case *ast.NumberLiteral:
		return &eval.Number{Value: lit.Value}
	case *ast.StringLiteral:
		return &eval.String{Value: lit.Value}
	case *ast.BooleanLiteral:
		return eval.NativeBoolToBooleanObject(lit.Value)
	default:
		return eval.NewError(eval.Internal, "constant body is not a literal")
	}
}
