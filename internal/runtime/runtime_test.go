package runtime_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/eval"
	"github.com/funvibe/cascade/internal/lexer"
	"github.com/funvibe/cascade/internal/parser"
	"github.com/funvibe/cascade/internal/pipeline"
	"github.com/funvibe/cascade/internal/runtime"
)

func compile(t *testing.T, source string, opts *runtime.Options) (*runtime.Executable, error) {
	t.Helper()
	ctx := &pipeline.PipelineContext{SourceCode: source}
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if diagnostics.HasErrors(ctx.Errors) {
		t.Fatalf("parse errors: %v", ctx.Errors)
	}
	return runtime.Compile(ctx.Program, opts)
}

func mustCompile(t *testing.T, source string, opts *runtime.Options) *runtime.Executable {
	t.Helper()
	exe, err := compile(t, source, opts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return exe
}

func call(t *testing.T, exe *runtime.Executable, args ...eval.Object) *runtime.Result {
	t.Helper()
	result := exe.Call(context.Background(), args)
	if result.Err != nil {
		t.Fatalf("call failed: %v", result.Err)
	}
	return result
}

func exported(t *testing.T, result *runtime.Result, module, formula string) eval.Object {
	t.Helper()
	m, ok := result.Modules[module]
	if !ok {
		t.Fatalf("module %s missing from result: %v", module, result.Modules)
	}
	v, ok := m[formula]
	if !ok {
		t.Fatalf("formula %s.%s missing from result: %v", module, formula, m)
	}
	return v
}

func expectNumber(t *testing.T, obj eval.Object, want string) {
	t.Helper()
	n, ok := obj.(*eval.Number)
	if !ok {
		t.Fatalf("got %s (%s), want number %s", obj.Type(), obj.Inspect(), want)
	}
	if got := eval.FormatNumber(n.Value); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

// Scenario 1: constant export.
func TestConstantExport(t *testing.T) {
	exe := mustCompile(t, `module M { export a = 1 }`, nil)
	result := call(t, exe)
	expectNumber(t, exported(t, result, "M", "a"), "1")
	if len(result.Errors) != 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
}

// Scenario 2: chained formulas across three layers.
func TestChainedFormulas(t *testing.T) {
	exe := mustCompile(t, `
module M {
  export a = 2
  export b = a + 3
  export c = b * a
}`, nil)
	if len(exe.Plan.Groups) != 3 {
		t.Fatalf("planner produced %d layers, want 3", len(exe.Plan.Groups))
	}
	result := call(t, exe)
	expectNumber(t, exported(t, result, "M", "a"), "2")
	expectNumber(t, exported(t, result, "M", "b"), "5")
	expectNumber(t, exported(t, result, "M", "c"), "10")
}

// Scenario 3: a failing formula quarantines its dependents and nothing else.
func TestErrorIsolation(t *testing.T) {
	exe := mustCompile(t, `
module M {
  export a = 1 / 0
  export b = a + 1
  export c = 5
}`, nil)
	result := call(t, exe)

	errA, ok := result.Errors["M.a"]
	if !ok || errA.Kind != eval.MathDomain {
		t.Fatalf("expected MathDomain for M.a, got %v", result.Errors)
	}
	if _, ok := result.Errors["M.b"]; ok {
		t.Fatal("skipped formula must not appear in errors")
	}
	if _, ok := result.Modules["M"]["b"]; ok {
		t.Fatal("skipped formula must not appear in modules")
	}
	if _, ok := result.Modules["M"]["a"]; ok {
		t.Fatal("failing formula must not appear in modules")
	}
	expectNumber(t, exported(t, result, "M", "c"), "5")
}

// Scenario 4: cross-module import.
func TestCrossModuleImport(t *testing.T) {
	exe := mustCompile(t, `
module M1 {
  export x = 7
}
module M2 {
  import x from M1
  export y = x + 1
}`, nil)
	result := call(t, exe)
	expectNumber(t, exported(t, result, "M1", "x"), "7")
	expectNumber(t, exported(t, result, "M2", "y"), "8")
}

// Scenario 5: async barrier. A formula reading a Pending constant settles
// before its dependents run.
func TestAsyncBarrier(t *testing.T) {
	pending := eval.Go(func() eval.Object {
		time.Sleep(10 * time.Millisecond)
		return eval.NumberFromInt(42)
	})
	exe := mustCompile(t, `
module M {
  export a = K
  export b = a + 1
}`, &runtime.Options{Constants: map[string]eval.Object{"K": pending}})

	result := call(t, exe)
	expectNumber(t, exported(t, result, "M", "a"), "42")
	expectNumber(t, exported(t, result, "M", "b"), "43")
}

// Scenario 5 variant: the import-and-await form with an explicitly async step.
func TestAsyncImportAwait(t *testing.T) {
	pending := eval.Go(func() eval.Object {
		time.Sleep(5 * time.Millisecond)
		return eval.NumberFromInt(42)
	})
	exe := mustCompile(t, `
module M {
  import constant K
  export a = await K
  export b = a + 1
}`, &runtime.Options{Constants: map[string]eval.Object{"K": pending}})
	result := call(t, exe)
	expectNumber(t, exported(t, result, "M", "a"), "42")
	expectNumber(t, exported(t, result, "M", "b"), "43")
}

// Scenario 6: cycle rejection.
func TestCycleRejection(t *testing.T) {
	_, err := compile(t, `
module M {
  a = b
  b = a
}`, nil)
	if err == nil {
		t.Fatal("expected compile error")
	}
	ce, ok := err.(*runtime.CompileError)
	if !ok {
		t.Fatalf("want *CompileError, got %T", err)
	}
	msg := ce.Error()
	if !strings.Contains(msg, "M.a") || !strings.Contains(msg, "M.b") {
		t.Fatalf("cycle error should name both formulas: %s", msg)
	}
}

func TestArguments(t *testing.T) {
	exe := mustCompile(t, `
argument rate
argument hours
module M {
  export total = rate * hours
}`, nil)
	result := call(t, exe, eval.NumberFromInt(3), eval.NumberFromInt(5))
	expectNumber(t, exported(t, result, "M", "total"), "15")

	short := exe.Call(context.Background(), nil)
	if short.Err == nil || short.Err.Kind != eval.Internal {
		t.Fatalf("argument mismatch should fail the call, got %v", short.Err)
	}
}

func TestUnresolvedIdentifier(t *testing.T) {
	exe := mustCompile(t, `module M { export f = ghost + 1 }`, nil)
	result := call(t, exe)
	err, ok := result.Errors["M.f"]
	if !ok || err.Kind != eval.UnresolvedIdentifier {
		t.Fatalf("expected UnresolvedIdentifier, got %v", result.Errors)
	}
}

func TestMissingImportSurfacesAtRuntime(t *testing.T) {
	exe := mustCompile(t, `
module M {
  import ghost from nowhere
  export f = ghost + 1
}`, nil)
	result := call(t, exe)
	if _, ok := result.Errors["M.f"]; ok {
		t.Fatal("f should be skipped, not failed")
	}
	if _, ok := result.Modules["M"]["f"]; ok {
		t.Fatal("f should not export")
	}
}

func TestModuleImportAndAccess(t *testing.T) {
	exe := mustCompile(t, `
module M1 {
  export x = 7
  hidden = 99
}
module M2 {
  import module M1 as other
  export y = other.x + 1
  export missing = other.hidden
}`, nil)
	result := call(t, exe)
	expectNumber(t, exported(t, result, "M2", "y"), "8")
	err, ok := result.Errors["M2.missing"]
	if !ok || err.Kind != eval.AccessFailed {
		t.Fatalf("unexported member access should fail with AccessFailed, got %v", result.Errors)
	}
}

func TestMacrosEndToEnd(t *testing.T) {
	exe := mustCompile(t, `
module M {
  export choice = if(2 > 1, "yes", ghost)
  export items = list(1, 2 + 3, "x")
  export rec = object(a = 1, b = "two")
  export band = where(result = 10, (10 < 5), "low", (10 < 50), "mid", "high")
  export fallthrough = where(result = 10, (10 < 5), "low")
}`, nil)
	result := call(t, exe)

	choice := exported(t, result, "M", "choice")
	if choice.(*eval.String).Value != "yes" {
		t.Fatalf("if should pick the then branch lazily, got %v", choice)
	}

	items := exported(t, result, "M", "items").(*eval.List)
	if len(items.Elements) != 3 {
		t.Fatalf("list: %v", items.Inspect())
	}
	expectNumber(t, items.Elements[1], "5")

	rec := exported(t, result, "M", "rec").(*eval.Record)
	if keys := rec.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("record keys: %v", rec.Keys())
	}

	band := exported(t, result, "M", "band")
	if band.(*eval.String).Value != "mid" {
		t.Fatalf("where: %v", band)
	}
	expectNumber(t, exported(t, result, "M", "fallthrough"), "10")
}

func TestDuplicateObjectKey(t *testing.T) {
	exe := mustCompile(t, `module M { export r = object(a = 1, A = 2) }`, nil)
	result := call(t, exe)
	err, ok := result.Errors["M.r"]
	if !ok || err.Kind != eval.DuplicateKey {
		t.Fatalf("expected DuplicateKey, got %v", result.Errors)
	}
}

func TestHostFunctions(t *testing.T) {
	double := &eval.Function{Name: "double", Fn: func(args []eval.Object) eval.Object {
		n := eval.CastNumber(args[0])
		if eval.IsError(n) {
			return n
		}
		return eval.EvalInfixExpression("*", n, eval.NumberFromInt(2))
	}}
	exe := mustCompile(t, `
module M {
  export a = double(21)
  export bad = double(1)(2)
}`, &runtime.Options{Constants: map[string]eval.Object{"double": double}})
	result := call(t, exe)
	expectNumber(t, exported(t, result, "M", "a"), "42")
	err, ok := result.Errors["M.bad"]
	if !ok || err.Kind != eval.InvokeUnsupported {
		t.Fatalf("invoking a number should fail, got %v", result.Errors)
	}
}

func TestTimeout(t *testing.T) {
	never, _ := eval.NewPending()
	exe := mustCompile(t, `
module M {
  import constant K
  export a = await K
}`, &runtime.Options{Constants: map[string]eval.Object{"K": never}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	result := exe.Call(ctx, nil)
	if result.Err == nil || result.Err.Kind != eval.Timeout {
		t.Fatalf("expected timeout bundle, got %+v", result)
	}
}

func TestCallsAreIndependent(t *testing.T) {
	exe := mustCompile(t, `
argument x
module M {
  export y = x * 2
}`, nil)
	first := call(t, exe, eval.NumberFromInt(1))
	second := call(t, exe, eval.NumberFromInt(10))
	expectNumber(t, exported(t, first, "M", "y"), "2")
	expectNumber(t, exported(t, second, "M", "y"), "20")
	if first.ID == second.ID {
		t.Fatal("calls should carry distinct execution ids")
	}
}

// Skip-list invariant: the set of successful steps equals the set reachable
// from inputs without passing through a failing step.
func TestSkipPropagationIsTransitive(t *testing.T) {
	exe := mustCompile(t, `
module M {
  export bad = 1 / 0
  export mid = bad + 1
  export leaf = mid + 1
  export solo = 1
  export fromSolo = solo + 1
}`, nil)
	result := call(t, exe)

	for _, name := range []string{"mid", "leaf"} {
		if _, ok := result.Modules["M"][name]; ok {
			t.Errorf("%s should be skipped", name)
		}
		if _, ok := result.Errors["M."+name]; ok {
			t.Errorf("%s should be skipped, not failed", name)
		}
	}
	expectNumber(t, exported(t, result, "M", "solo"), "1")
	expectNumber(t, exported(t, result, "M", "fromSolo"), "2")
	if len(result.Errors) != 1 {
		t.Fatalf("exactly M.bad should fail: %v", result.Errors)
	}
}

func TestPrivateFormulasFeedExportsSilently(t *testing.T) {
	exe := mustCompile(t, `
module M {
  base = 20
  export double = base * 2 + 2
}`, nil)
	result := call(t, exe)
	expectNumber(t, exported(t, result, "M", "double"), "42")
	if _, ok := result.Modules["M"]["base"]; ok {
		t.Fatal("private formulas must not export")
	}
}
