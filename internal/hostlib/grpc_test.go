package hostlib

import (
	"testing"

	"github.com/funvibe/cascade/internal/eval"
)

func TestFindMethodDescriptorPathValidation(t *testing.T) {
	if _, err := findMethodDescriptor("no-slash"); err == nil {
		t.Fatal("expected an error for a path without a slash")
	}
	if _, err := findMethodDescriptor("pkg.Service/Missing"); err == nil {
		t.Fatal("expected an error for an unloaded method")
	}
}

func TestInvokeValidatesArguments(t *testing.T) {
	client := &GRPCClient{}
	if out := client.invoke([]eval.Object{&eval.String{Value: "only-one"}}); !eval.IsError(out) {
		t.Fatal("arity mismatch should fail")
	}
	out := client.invoke([]eval.Object{
		&eval.String{Value: "pkg.Service/Do"},
		&eval.String{Value: "not-a-record"},
	})
	err, ok := out.(*eval.Error)
	if !ok || err.Kind != eval.CoercionFailed {
		t.Fatalf("non-record request should fail with CoercionFailed, got %v", out)
	}
}

func TestFromProtoScalar(t *testing.T) {
	if v := fromProtoScalar(int64(7)); eval.FormatNumber(v.(*eval.Number).Value) != "7" {
		t.Fatalf("int64: %v", v)
	}
	if v := fromProtoScalar("x"); v.(*eval.String).Value != "x" {
		t.Fatalf("string: %v", v)
	}
	if v := fromProtoScalar(true); v != eval.TRUE {
		t.Fatalf("bool: %v", v)
	}
}
