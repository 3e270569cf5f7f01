package depgraph

import (
	"sort"
	"strings"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/symbols"
)

// Vertex is one declaration-level graph node. Only imports and formulas
// are vertices; arguments, constants and module aliases are leaves outside
// the graph.
type Vertex struct {
	ID     int
	Symbol *symbols.Symbol
}

// QualifiedName is module.name, used in cycle reports.
func (v *Vertex) QualifiedName() string {
	return v.Symbol.Module + "." + v.Symbol.Name
}

// Table is the declaration dependency graph: vertices live in an arena
// indexed by a stable id, edges are two adjacency lists over ids.
// dependencies[i] lists what i needs; dependents is the reverse.
type Table struct {
	vertices     []*Vertex
	bySymbol     map[*symbols.Symbol]int
	dependencies [][]int
	dependents   [][]int
}

func (t *Table) Len() int { return len(t.vertices) }

func (t *Table) Vertex(id int) *Vertex { return t.vertices[id] }

// VertexFor returns the vertex id of a declaration symbol.
func (t *Table) VertexFor(sym *symbols.Symbol) (int, bool) {
	id, ok := t.bySymbol[sym]
	return id, ok
}

func (t *Table) Dependencies(id int) []int { return t.dependencies[id] }
func (t *Table) Dependents(id int) []int   { return t.dependents[id] }

func (t *Table) addVertex(sym *symbols.Symbol) int {
	id := len(t.vertices)
	t.vertices = append(t.vertices, &Vertex{ID: id, Symbol: sym})
	t.bySymbol[sym] = id
	t.dependencies = append(t.dependencies, nil)
	t.dependents = append(t.dependents, nil)
	return id
}

func (t *Table) addEdge(from, to int) {
	for _, d := range t.dependencies[from] {
		if d == to {
			return
		}
	}
	t.dependencies[from] = append(t.dependencies[from], to)
	t.dependents[to] = append(t.dependents[to], from)
}

// Build constructs the dependency graph for a program with a tree walk
// over every module, then rejects cycles. Missing import targets are left
// dangling here; they surface as UnresolvedIdentifier at runtime.
func Build(program *ast.Program, registry *symbols.Registry) (*Table, []*diagnostics.DiagnosticError) {
	t := &Table{bySymbol: make(map[*symbols.Symbol]int)}

	// Arena ids follow declaration order: imports then formulas per module.
	for _, ms := range registry.ModuleScopes() {
		for _, sym := range ms.Locals() {
			t.addVertex(sym)
		}
	}

	for _, mod := range program.Modules {
		ms, ok := registry.Module(mod.Name.Value)
		if !ok {
			continue
		}
		t.collectModule(mod, ms, registry)
	}

	return t, t.checkCycles()
}

// collectModule walks one module: entering a formula sets the current
// formula, exiting an identifier inside it adds an edge when the target is
// itself a graph vertex, exiting an import wires it to its target formulas.
func (t *Table) collectModule(mod *ast.Module, ms *symbols.ModuleScope, registry *symbols.Registry) {
	var currentFormula int
	inFormula := false

	// Identifiers that are declaration names or access members, not
	// references; the walker skips them.
	skip := make(map[*ast.Identifier]bool)

	walker := ast.NewWalker()
	walker.OnEnter(&ast.Formula{}, func(n ast.Node) {
		f := n.(*ast.Formula)
		skip[f.Name] = true
		if sym, ok := ms.Resolve(f.Name.Value); ok {
			if id, ok := t.bySymbol[sym]; ok {
				currentFormula = id
				inFormula = true
			}
		}
	})
	walker.OnExit(&ast.Formula{}, func(n ast.Node) {
		inFormula = false
	})
	walker.OnEnter(&ast.AccessExpression{}, func(n ast.Node) {
		skip[n.(*ast.AccessExpression).Member] = true
	})
	walker.OnEnter(&ast.MacroArg{}, func(n ast.Node) {
		if name := n.(*ast.MacroArg).Name; name != nil {
			skip[name] = true
		}
	})
	walker.OnExit(&ast.Identifier{}, func(n ast.Node) {
		ident := n.(*ast.Identifier)
		if !inFormula || skip[ident] {
			return
		}
		sym, ok := registry.Resolve(ms, ident.Value)
		if !ok {
			return
		}
		// Arguments, constants and module aliases resolve but are not
		// vertices; edges are added only between declarations.
		if id, ok := t.bySymbol[sym]; ok {
			t.addEdge(currentFormula, id)
		}
	})
	walker.OnExit(&ast.Import{}, func(n ast.Node) {
		imp := n.(*ast.Import)
		sym, ok := ms.Resolve(imp.LocalName())
		if !ok {
			return
		}
		from, ok := t.bySymbol[sym]
		if !ok {
			return
		}
		t.wireImport(from, imp, registry)
	})

	walker.Walk(mod)
}

func (t *Table) wireImport(from int, imp *ast.Import, registry *symbols.Registry) {
	switch imp.Kind {
	case ast.ImportFormula:
		target, ok := registry.Module(imp.Path[0])
		if !ok {
			return
		}
		sym, ok := target.Resolve(imp.Path[1])
		if !ok || sym.Kind != symbols.FormulaSymbol {
			return
		}
		if to, ok := t.bySymbol[sym]; ok {
			t.addEdge(from, to)
		}
	case ast.ImportModule:
		target, ok := registry.Module(imp.Path[0])
		if !ok {
			return
		}
		for _, sym := range target.Locals() {
			f, ok := sym.Node.(*ast.Formula)
			if !ok || !f.Exported {
				continue
			}
			if to, ok := t.bySymbol[sym]; ok {
				t.addEdge(from, to)
			}
		}
	}
	// Argument and constant imports have no outgoing edges: their targets
	// are leaves.
}

// MinimalPartialOrder peels source vertices (no unresolved dependencies)
// layer by layer. Each peel is one layer; every edge points from a later
// layer's vertex to an earlier one, and the layer count is the length of
// the longest dependency chain, which is minimal for the DAG.
func (t *Table) MinimalPartialOrder() [][]int {
	remaining := make([]int, t.Len())
	for id := range t.dependencies {
		remaining[id] = len(t.dependencies[id])
	}

	var layers [][]int
	var current []int
	for id, n := range remaining {
		if n == 0 {
			current = append(current, id)
		}
	}

	for len(current) > 0 {
		sort.Ints(current)
		layers = append(layers, current)

		var next []int
		for _, id := range current {
			for _, dep := range t.dependents[id] {
				remaining[dep]--
				if remaining[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	// Cyclic vertices never reach in-degree zero; Build rejects them
	// before layering is observable.
	return layers
}

// checkCycles runs Tarjan's strongly-connected-components search and
// reports every component of size > 1 (or a self-loop) as one C003 naming
// its members.
func (t *Table) checkCycles() []*diagnostics.DiagnosticError {
	n := t.Len()
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	counter := 0
	var errs []*diagnostics.DiagnosticError

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range t.dependencies[v] {
			if index[w] == -1 {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
		}

		if lowlink[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 || t.selfLoop(v) {
				errs = append(errs, t.cycleError(scc))
			}
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			strongconnect(v)
		}
	}
	return errs
}

func (t *Table) selfLoop(v int) bool {
	for _, d := range t.dependencies[v] {
		if d == v {
			return true
		}
	}
	return false
}

func (t *Table) cycleError(scc []int) *diagnostics.DiagnosticError {
	sort.Ints(scc)
	names := make([]string, len(scc))
	for i, id := range scc {
		names[i] = t.vertices[id].QualifiedName()
	}
	first := t.vertices[scc[0]]
	return diagnostics.NewError(diagnostics.C003, first.Symbol.Node.GetToken(),
		"dependency cycle: %s", strings.Join(names, " -> "))
}
