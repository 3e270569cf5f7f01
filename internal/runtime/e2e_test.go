package runtime_test

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/funvibe/cascade/internal/eval"
)

// Each archive holds a program and the expected bundle: "expect" lists
// module.formula = rendered value lines, "errors" lists module.formula =
// error kind lines.
var e2eArchives = []string{
	`-- program.cas --
argument hours
constant rate = 12.5
module payroll {
  import argument hours as h
  import constant rate
  gross = h * rate
  export total = gross - deductions
  export deductions = gross * 0.1
}
-- args --
40
-- expect --
payroll.total = 450
payroll.deductions = 50
`,
	`-- program.cas --
module shapes {
  export area = if((kind = "circle"), 3 * r * r, r * r)
  r = 10
  kind = "square"
}
module report {
  import area from shapes
  export label = "area=" & area
}
-- expect --
shapes.area = 100
report.label = "area=100"
`,
	`-- program.cas --
module m {
  export ok = 2 ^ 10
  export boom = 1 % 0.5
  export downstream = boom + ok
}
-- expect --
m.ok = 1024
-- errors --
m.boom = MathDomain
`,
}

func TestEndToEndArchives(t *testing.T) {
	for _, raw := range e2eArchives {
		archive := txtar.Parse([]byte(raw))
		files := make(map[string]string)
		for _, f := range archive.Files {
			files[f.Name] = string(f.Data)
		}

		exe := mustCompile(t, files["program.cas"], nil)

		var args []eval.Object
		for _, line := range nonEmptyLines(files["args"]) {
			args = append(args, parseValue(t, line))
		}

		result := exe.Call(context.Background(), args)
		if result.Err != nil {
			t.Fatalf("call: %v", result.Err)
		}

		for _, line := range nonEmptyLines(files["expect"]) {
			key, want := splitExpect(t, line)
			module, formula := splitKey(t, key)
			got := exported(t, result, module, formula)
			if got.Inspect() != want {
				t.Errorf("%s: got %s, want %s", key, got.Inspect(), want)
			}
		}
		for _, line := range nonEmptyLines(files["errors"]) {
			key, kind := splitExpect(t, line)
			err, ok := result.Errors[key]
			if !ok || string(err.Kind) != kind {
				t.Errorf("%s: expected error %s, got %v", key, kind, result.Errors)
			}
		}
		if len(files["errors"]) == 0 && len(result.Errors) != 0 {
			t.Errorf("unexpected errors: %v", result.Errors)
		}
	}
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitExpect(t *testing.T, line string) (string, string) {
	t.Helper()
	parts := strings.SplitN(line, " = ", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed expect line %q", line)
	}
	return parts[0], parts[1]
}

func splitKey(t *testing.T, key string) (string, string) {
	t.Helper()
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		t.Fatalf("malformed key %q", key)
	}
	return parts[0], parts[1]
}

func parseValue(t *testing.T, s string) eval.Object {
	t.Helper()
	n := eval.CastNumber(&eval.String{Value: s})
	if eval.IsError(n) {
		return &eval.String{Value: s}
	}
	return n
}
