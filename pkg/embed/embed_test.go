package cascade

import (
	"context"
	"math/big"
	"strings"
	"testing"
)

func TestBuildCompileCall(t *testing.T) {
	program := NewProgram("billing").
		AddArgument("hours").
		AddConstant("rate", 12.5).
		AddFunction("double", func(args []interface{}) (interface{}, error) {
			n := args[0].(*big.Rat)
			return new(big.Rat).Add(n, n), nil
		}).
		AddModuleSource(`
module payroll {
  import argument hours as h
  import constant rate
  export total = h * rate
  export bonus = double(10)
}`)

	exe, err := program.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	result, err := exe.Call(context.Background(), 8)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result.ID == "" {
		t.Fatal("result should carry an execution id")
	}

	total := result.Modules["payroll"]["total"].(*big.Rat)
	if total.RatString() != "100" {
		t.Fatalf("total: %s", total.RatString())
	}
	bonus := result.Modules["payroll"]["bonus"].(*big.Rat)
	if bonus.RatString() != "20" {
		t.Fatalf("bonus: %s", bonus.RatString())
	}
}

func TestPendingConstant(t *testing.T) {
	program := NewProgram("async").
		AddPending("K", func() (interface{}, error) { return 42, nil }).
		AddModuleSource(`
module m {
  import constant K
  export a = await K
  export b = a + 1
}`)
	exe, err := program.Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := exe.Call(context.Background())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if b := result.Modules["m"]["b"].(*big.Rat); b.RatString() != "43" {
		t.Fatalf("b: %s", b.RatString())
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := NewProgram("bad").AddModuleSource("module m { a = b\n b = a }").Compile()
	if err == nil {
		t.Fatal("cycle should fail the compile")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("error should mention the cycle: %v", err)
	}

	_, err = NewProgram("worse").AddModuleSource("module {").Compile()
	if err == nil {
		t.Fatal("parse errors should fail the compile")
	}
}

func TestErrorsSurfaceInBundle(t *testing.T) {
	exe, err := NewProgram("p").AddModuleSource("module m { export x = 1 / 0 }").Compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	result, err := exe.Call(context.Background())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, ok := result.Errors["m.x"]; !ok {
		t.Fatalf("expected m.x error, got %v", result.Errors)
	}
}

func TestMarshallerRoundTrip(t *testing.T) {
	m := NewMarshaller()
	obj, err := m.ToObject(map[string]interface{}{
		"n":    5,
		"s":    "x",
		"ok":   true,
		"list": []interface{}{1, 2},
	})
	if err != nil {
		t.Fatalf("ToObject: %v", err)
	}
	back := m.FromObject(obj).(map[string]interface{})
	if back["s"].(string) != "x" || back["ok"].(bool) != true {
		t.Fatalf("round trip: %v", back)
	}
	if list := back["list"].([]interface{}); len(list) != 2 {
		t.Fatalf("list: %v", back["list"])
	}
	if _, err := m.ToObject(struct{}{}); err == nil {
		t.Fatal("unsupported types should fail")
	}
}
