package cascade

import (
	"fmt"
	"math/big"

	"github.com/funvibe/cascade/internal/eval"
)

// Marshaller converts between Go values and formula values.
//
// Go → formula: bool, string, int, int32, int64, float32, float64,
// *big.Rat, map[string]interface{} (keys added in Go map iteration order),
// []interface{}, func([]interface{}) (interface{}, error), and eval.Object
// values as they are. Other types, including the other integer kinds and
// pair slices such as [][2]interface{}, are rejected with an error.
//
// Formula → Go: Boolean→bool, String→string, Number→*big.Rat,
// Record→map[string]interface{}, List→[]interface{}, Error→error.
type Marshaller struct{}

func NewMarshaller() *Marshaller { return &Marshaller{} }

func (m *Marshaller) ToObject(value interface{}) (eval.Object, error) {
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("cannot marshal nil")
	case eval.Object:
		return v, nil
	case bool:
		return eval.NativeBoolToBooleanObject(v), nil
	case string:
		return &eval.String{Value: v}, nil
	case int:
		return eval.NumberFromInt(int64(v)), nil
	case int32:
		return eval.NumberFromInt(int64(v)), nil
	case int64:
		return eval.NumberFromInt(v), nil
	case float32:
		r := new(big.Rat)
		r.SetFloat64(float64(v))
		return &eval.Number{Value: r}, nil
	case float64:
		r := new(big.Rat)
		r.SetFloat64(v)
		return &eval.Number{Value: r}, nil
	case *big.Rat:
		return &eval.Number{Value: v}, nil
	case map[string]interface{}:
		record := eval.NewRecord()
		for key, element := range v {
			obj, err := m.ToObject(element)
			if err != nil {
				return nil, err
			}
			record.Set(key, obj)
		}
		return record, nil
	case []interface{}:
		list := &eval.List{}
		for _, element := range v {
			obj, err := m.ToObject(element)
			if err != nil {
				return nil, err
			}
			list.Elements = append(list.Elements, obj)
		}
		return list, nil
	case func([]interface{}) (interface{}, error):
		return m.wrapFunction("", v), nil
	default:
		return nil, fmt.Errorf("cannot marshal %T", value)
	}
}

func (m *Marshaller) wrapFunction(name string, fn func([]interface{}) (interface{}, error)) *eval.Function {
	return &eval.Function{
		Name: name,
		Fn: func(args []eval.Object) eval.Object {
			in := make([]interface{}, len(args))
			for i, arg := range args {
				in[i] = m.FromObject(arg)
			}
			out, err := fn(in)
			if err != nil {
				return eval.NewError(eval.InvokeUnsupported, "%s: %v", name, err)
			}
			obj, convErr := m.ToObject(out)
			if convErr != nil {
				return eval.NewError(eval.Internal, "%s: %v", name, convErr)
			}
			return obj
		},
	}
}

func (m *Marshaller) FromObject(obj eval.Object) interface{} {
	switch v := obj.(type) {
	case *eval.Boolean:
		return v.Value
	case *eval.String:
		return v.Value
	case *eval.Number:
		return v.Value
	case *eval.Record:
		out := make(map[string]interface{}, v.Len())
		for _, key := range v.Keys() {
			element, _ := v.Get(key)
			out[key] = m.FromObject(element)
		}
		return out
	case *eval.List:
		out := make([]interface{}, len(v.Elements))
		for i, element := range v.Elements {
			out[i] = m.FromObject(element)
		}
		return out
	case *eval.Error:
		return v
	default:
		return obj
	}
}
