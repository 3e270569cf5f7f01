package planner

import (
	"sort"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/depgraph"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/symbols"
)

type StepKind int

const (
	Sync StepKind = iota
	Async
)

func (k StepKind) String() string {
	if k == Async {
		return "async"
	}
	return "sync"
}

// Step is the unit of runtime work for one declaration. IDs are assigned
// from the flattened group order, so every dependency id is smaller than
// the step's own id.
type Step struct {
	ID           int
	Kind         StepKind
	Symbol       *symbols.Symbol
	Dependencies []int // step ids, strictly increasing, all < ID
}

// Formula returns the declaring formula node, or nil for an import step.
func (s *Step) Formula() *ast.Formula {
	f, _ := s.Symbol.Node.(*ast.Formula)
	return f
}

// Import returns the declaring import node, or nil for a formula step.
func (s *Step) Import() *ast.Import {
	imp, _ := s.Symbol.Node.(*ast.Import)
	return imp
}

// Group is one barrier of steps with no dependencies between members;
// they are safe to execute in parallel.
type Group struct {
	Steps []*Step
}

// Plan is the ordered group sequence plus a flat id-indexed step view.
type Plan struct {
	Groups []*Group
	Steps  []*Step
}

func (p *Plan) StepCount() int { return len(p.Steps) }

// Build assigns steps to the layers of the table's minimal partial order:
// a step lands in the layer immediately after the highest layer among its
// dependencies. isPendingConstant classifies imports of deferred host
// constants as Async; a formula is Async when its body awaits in tail
// position. Mid-expression awaits are reported as W001 warnings and
// otherwise evaluate as identity.
func Build(table *depgraph.Table, isPendingConstant func(name string) bool) (*Plan, []*diagnostics.DiagnosticError) {
	plan := &Plan{}
	var warnings []*diagnostics.DiagnosticError

	stepOf := make([]int, table.Len())
	for _, layer := range table.MinimalPartialOrder() {
		group := &Group{}
		for _, vertexID := range layer {
			vertex := table.Vertex(vertexID)
			step := &Step{
				ID:     len(plan.Steps),
				Symbol: vertex.Symbol,
			}
			stepOf[vertexID] = step.ID
			for _, dep := range table.Dependencies(vertexID) {
				step.Dependencies = append(step.Dependencies, stepOf[dep])
			}
			sort.Ints(step.Dependencies)
			step.Kind, warnings = classify(step, isPendingConstant, warnings)
			plan.Steps = append(plan.Steps, step)
			group.Steps = append(group.Steps, step)
		}
		plan.Groups = append(plan.Groups, group)
	}

	return plan, warnings
}

// classify decides Sync/Async from the declaration itself. Depending on an
// Async step does not make a step Async: the group barrier already settled
// the dependency's value.
func classify(step *Step, isPendingConstant func(string) bool, warnings []*diagnostics.DiagnosticError) (StepKind, []*diagnostics.DiagnosticError) {
	if imp := step.Import(); imp != nil {
		if imp.Kind == ast.ImportConstant && isPendingConstant != nil && isPendingConstant(imp.Path[0]) {
			return Async, warnings
		}
		return Sync, warnings
	}

	f := step.Formula()
	if f == nil || f.Body == nil {
		return Sync, warnings
	}

	kind := Sync
	if unary, ok := f.Body.(*ast.UnaryExpression); ok && unary.Operator == "await" {
		kind = Async
	}
	return kind, append(warnings, innerAwaitWarnings(f)...)
}

// innerAwaitWarnings flags every await that is not the formula's top-level
// expression.
func innerAwaitWarnings(f *ast.Formula) []*diagnostics.DiagnosticError {
	var warnings []*diagnostics.DiagnosticError

	body := f.Body
	if unary, ok := body.(*ast.UnaryExpression); ok && unary.Operator == "await" {
		body = unary.Operand
	}

	walker := ast.NewWalker()
	walker.OnEnter(&ast.UnaryExpression{}, func(n ast.Node) {
		unary := n.(*ast.UnaryExpression)
		if unary.Operator == "await" {
			warnings = append(warnings, diagnostics.NewWarning(diagnostics.W001, unary.GetToken(),
				"await outside the tail position of %s evaluates as identity", f.Name.Value))
		}
	})
	walker.Walk(body)
	return warnings
}
