package eval

import (
	"math/big"
	"strings"
)

// The coercion table is type-directed: every operator names the variant it
// expects and the operand is cast to it. Casting an Error propagates the
// Error unchanged.

// CastNumber: Number→self, String→invariant-locale parse, Boolean→0/1,
// otherwise CoercionFailed.
func CastNumber(obj Object) Object {
	switch v := obj.(type) {
	case *Number:
		return v
	case *String:
		r, ok := new(big.Rat).SetString(strings.TrimSpace(v.Value))
		if !ok {
			return NewError(CoercionFailed, "cannot convert %q to number", v.Value)
		}
		return &Number{Value: r}
	case *Boolean:
		if v.Value {
			return NumberFromInt(1)
		}
		return NumberFromInt(0)
	case *Error:
		return v
	default:
		return NewError(CoercionFailed, "cannot convert %s to number", obj.Type())
	}
}

// CastString: Number→decimal text, Boolean→"true"/"false", String→self,
// otherwise CoercionFailed.
func CastString(obj Object) Object {
	switch v := obj.(type) {
	case *String:
		return v
	case *Number:
		return &String{Value: FormatNumber(v.Value)}
	case *Boolean:
		if v.Value {
			return &String{Value: "true"}
		}
		return &String{Value: "false"}
	case *Error:
		return v
	default:
		return NewError(CoercionFailed, "cannot convert %s to string", obj.Type())
	}
}

// CastBoolean: Boolean→self, Number→false iff 0, String→case-insensitive
// "true"/"false", otherwise CoercionFailed.
func CastBoolean(obj Object) Object {
	switch v := obj.(type) {
	case *Boolean:
		return v
	case *Number:
		return NativeBoolToBooleanObject(v.Value.Sign() != 0)
	case *String:
		switch strings.ToLower(v.Value) {
		case "true":
			return TRUE
		case "false":
			return FALSE
		default:
			return NewError(CoercionFailed, "cannot convert %q to boolean", v.Value)
		}
	case *Error:
		return v
	default:
		return NewError(CoercionFailed, "cannot convert %s to boolean", obj.Type())
	}
}
