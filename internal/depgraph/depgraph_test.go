package depgraph_test

import (
	"strings"
	"testing"

	"github.com/funvibe/cascade/internal/depgraph"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/lexer"
	"github.com/funvibe/cascade/internal/parser"
	"github.com/funvibe/cascade/internal/pipeline"
	"github.com/funvibe/cascade/internal/symbols"
)

func build(t *testing.T, source string) (*depgraph.Table, *symbols.Registry, []*diagnostics.DiagnosticError) {
	t.Helper()
	ctx := &pipeline.PipelineContext{SourceCode: source}
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if len(ctx.Errors) > 0 {
		t.Fatalf("parse errors: %v", ctx.Errors)
	}
	registry, errs := symbols.Build(ctx.Program)
	if len(errs) > 0 {
		t.Fatalf("symbol errors: %v", errs)
	}
	table, cycleErrs := depgraph.Build(ctx.Program, registry)
	return table, registry, cycleErrs
}

func mustBuild(t *testing.T, source string) (*depgraph.Table, *symbols.Registry) {
	t.Helper()
	table, registry, errs := build(t, source)
	if len(errs) > 0 {
		t.Fatalf("unexpected cycle errors: %v", errs)
	}
	return table, registry
}

func vertexOf(t *testing.T, table *depgraph.Table, registry *symbols.Registry, module, name string) int {
	t.Helper()
	ms, ok := registry.Module(module)
	if !ok {
		t.Fatalf("no module %s", module)
	}
	sym, ok := ms.Resolve(name)
	if !ok {
		t.Fatalf("no symbol %s.%s", module, name)
	}
	id, ok := table.VertexFor(sym)
	if !ok {
		t.Fatalf("no vertex for %s.%s", module, name)
	}
	return id
}

func hasDep(table *depgraph.Table, from, to int) bool {
	for _, d := range table.Dependencies(from) {
		if d == to {
			return true
		}
	}
	return false
}

func TestFormulaToFormulaEdges(t *testing.T) {
	table, registry := mustBuild(t, `
module m {
  export a = 2
  export b = a + 3
  export c = b * a
}`)
	a := vertexOf(t, table, registry, "m", "a")
	b := vertexOf(t, table, registry, "m", "b")
	c := vertexOf(t, table, registry, "m", "c")

	if !hasDep(table, b, a) || !hasDep(table, c, b) || !hasDep(table, c, a) {
		t.Fatal("missing formula edges")
	}
	if len(table.Dependencies(a)) != 0 {
		t.Fatalf("a should be a source, deps: %v", table.Dependencies(a))
	}
	if len(table.Dependents(a)) != 2 {
		t.Fatalf("dependents of a: %v", table.Dependents(a))
	}
}

func TestArgumentsAndConstantsAreLeaves(t *testing.T) {
	table, registry := mustBuild(t, `
argument x
constant k = 1
module m {
  f = x + k
}`)
	f := vertexOf(t, table, registry, "m", "f")
	if len(table.Dependencies(f)) != 0 {
		t.Fatalf("argument/constant references must not create edges, got %v", table.Dependencies(f))
	}
}

func TestImportEdges(t *testing.T) {
	table, registry := mustBuild(t, `
module m1 {
  export x = 7
  hidden = 1
  export y = 2
}
module m2 {
  import x from m1
  import module m1 as all
  export z = x + 1
}`)
	x := vertexOf(t, table, registry, "m1", "x")
	y := vertexOf(t, table, registry, "m1", "y")
	hidden := vertexOf(t, table, registry, "m1", "hidden")
	impX := vertexOf(t, table, registry, "m2", "x")
	impAll := vertexOf(t, table, registry, "m2", "all")
	z := vertexOf(t, table, registry, "m2", "z")

	if !hasDep(table, impX, x) {
		t.Fatal("formula import should depend on its target")
	}
	if !hasDep(table, impAll, x) || !hasDep(table, impAll, y) {
		t.Fatal("module import should depend on every exported formula")
	}
	if hasDep(table, impAll, hidden) {
		t.Fatal("module import must not depend on unexported formulas")
	}
	if !hasDep(table, z, impX) {
		t.Fatal("formula should depend on the import it references")
	}
}

func TestMissingImportTargetDangles(t *testing.T) {
	table, registry, errs := build(t, `
module m {
  import ghost from nowhere
  f = ghost + 1
}`)
	if len(errs) > 0 {
		t.Fatalf("missing targets must not fail the build: %v", errs)
	}
	imp := vertexOf(t, table, registry, "m", "ghost")
	if len(table.Dependencies(imp)) != 0 {
		t.Fatalf("dangling import should have no deps, got %v", table.Dependencies(imp))
	}
}

func TestMinimalPartialOrder(t *testing.T) {
	table, registry := mustBuild(t, `
module m {
  export a = 2
  export b = a + 3
  export c = b * a
  export d = 5
}`)
	layers := table.MinimalPartialOrder()
	if len(layers) != 3 {
		t.Fatalf("layer count %d, want 3 (longest chain)", len(layers))
	}

	layerOf := make(map[int]int)
	for i, layer := range layers {
		for _, id := range layer {
			layerOf[id] = i
		}
	}
	a := vertexOf(t, table, registry, "m", "a")
	d := vertexOf(t, table, registry, "m", "d")
	if layerOf[a] != 0 || layerOf[d] != 0 {
		t.Fatal("independent formulas belong to the first layer")
	}

	// Every edge goes from an earlier layer to a later one.
	for id := 0; id < table.Len(); id++ {
		for _, dep := range table.Dependencies(id) {
			if layerOf[dep] >= layerOf[id] {
				t.Fatalf("edge %d->%d does not go forward", id, dep)
			}
		}
	}
}

func TestEmptyProgram(t *testing.T) {
	table, _ := mustBuild(t, "")
	if table.Len() != 0 {
		t.Fatalf("empty program should have no vertices")
	}
	if layers := table.MinimalPartialOrder(); len(layers) != 0 {
		t.Fatalf("empty program should have no layers, got %v", layers)
	}
}

func TestCycleRejection(t *testing.T) {
	_, _, errs := build(t, `
module m {
  a = b
  b = a
}`)
	if len(errs) == 0 {
		t.Fatal("expected a cycle error")
	}
	e := errs[0]
	if e.Code != diagnostics.C003 {
		t.Fatalf("code %s, want C003", e.Code)
	}
	for _, member := range []string{"m.a", "m.b"} {
		if !strings.Contains(e.Message, member) {
			t.Errorf("cycle message should name %s: %s", member, e.Message)
		}
	}
}

func TestSelfReferenceIsACycle(t *testing.T) {
	_, _, errs := build(t, "module m { f = f + 1 }")
	if len(errs) == 0 || errs[0].Code != diagnostics.C003 {
		t.Fatalf("self reference should be rejected, got %v", errs)
	}
}

func TestCrossModuleCycle(t *testing.T) {
	_, _, errs := build(t, `
module m1 {
  import b from m2
  export a = b
}
module m2 {
  import a from m1
  export b = a
}`)
	if len(errs) == 0 {
		t.Fatal("expected cross-module cycle rejection")
	}
}
