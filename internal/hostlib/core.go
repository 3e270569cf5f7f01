// Package hostlib ships the host-provided Function values a program can
// bind as constants: a core set of math and string helpers, a SQLite-backed
// data set and a dynamic gRPC invoker. The language itself has no function
// definitions; everything callable comes from here or from the embedding
// host.
package hostlib

import (
	"math/big"
	"strings"
	"time"

	"github.com/funvibe/cascade/internal/eval"
)

// Core returns the built-in host functions keyed by their conventional
// constant names.
func Core() map[string]eval.Object {
	return map[string]eval.Object{
		"abs":      fn("abs", builtinAbs),
		"min":      fn("min", builtinMin),
		"max":      fn("max", builtinMax),
		"round":    fn("round", builtinRound),
		"length":   fn("length", builtinLength),
		"upper":    fn("upper", builtinUpper),
		"lower":    fn("lower", builtinLower),
		"contains": fn("contains", builtinContains),
		"delay":    fn("delay", builtinDelay),
	}
}

func fn(name string, f func(args []eval.Object) eval.Object) *eval.Function {
	return &eval.Function{Name: name, Fn: f}
}

func argCount(name string, args []eval.Object, want int) *eval.Error {
	if len(args) != want {
		return eval.NewError(eval.InvokeUnsupported, "%s expects %d arguments, got %d", name, want, len(args))
	}
	return nil
}

func number(name string, arg eval.Object) (*eval.Number, *eval.Error) {
	n := eval.CastNumber(arg)
	if err, ok := n.(*eval.Error); ok {
		return nil, err
	}
	return n.(*eval.Number), nil
}

func builtinAbs(args []eval.Object) eval.Object {
	if err := argCount("abs", args, 1); err != nil {
		return err
	}
	n, err := number("abs", args[0])
	if err != nil {
		return err
	}
	return &eval.Number{Value: new(big.Rat).Abs(n.Value)}
}

func builtinMin(args []eval.Object) eval.Object {
	return extremum("min", args, -1)
}

func builtinMax(args []eval.Object) eval.Object {
	return extremum("max", args, 1)
}

func extremum(name string, args []eval.Object, sign int) eval.Object {
	if len(args) == 0 {
		return eval.NewError(eval.InvokeUnsupported, "%s expects at least 1 argument", name)
	}
	best, err := number(name, args[0])
	if err != nil {
		return err
	}
	for _, arg := range args[1:] {
		n, err := number(name, arg)
		if err != nil {
			return err
		}
		if n.Value.Cmp(best.Value) == sign {
			best = n
		}
	}
	return best
}

// builtinRound rounds half away from zero to the nearest integer.
func builtinRound(args []eval.Object) eval.Object {
	if err := argCount("round", args, 1); err != nil {
		return err
	}
	n, err := number("round", args[0])
	if err != nil {
		return err
	}
	half := big.NewRat(1, 2)
	shifted := new(big.Rat).Set(n.Value)
	if n.Value.Sign() >= 0 {
		shifted.Add(shifted, half)
	} else {
		shifted.Sub(shifted, half)
	}
	floor := new(big.Int).Quo(shifted.Num(), shifted.Denom())
	return &eval.Number{Value: new(big.Rat).SetInt(floor)}
}

func builtinLength(args []eval.Object) eval.Object {
	if err := argCount("length", args, 1); err != nil {
		return err
	}
	switch v := args[0].(type) {
	case *eval.String:
		return eval.NumberFromInt(int64(len([]rune(v.Value))))
	case *eval.List:
		return eval.NumberFromInt(int64(len(v.Elements)))
	case *eval.Record:
		return eval.NumberFromInt(int64(v.Len()))
	case *eval.Error:
		return v
	default:
		return eval.NewError(eval.CoercionFailed, "length of %s is undefined", args[0].Type())
	}
}

func builtinUpper(args []eval.Object) eval.Object {
	return mapString("upper", args, strings.ToUpper)
}

func builtinLower(args []eval.Object) eval.Object {
	return mapString("lower", args, strings.ToLower)
}

func mapString(name string, args []eval.Object, f func(string) string) eval.Object {
	if err := argCount(name, args, 1); err != nil {
		return err
	}
	s := eval.CastString(args[0])
	if eval.IsError(s) {
		return s
	}
	return &eval.String{Value: f(s.(*eval.String).Value)}
}

func builtinContains(args []eval.Object) eval.Object {
	if err := argCount("contains", args, 2); err != nil {
		return err
	}
	s := eval.CastString(args[0])
	if eval.IsError(s) {
		return s
	}
	sub := eval.CastString(args[1])
	if eval.IsError(sub) {
		return sub
	}
	return eval.NativeBoolToBooleanObject(strings.Contains(s.(*eval.String).Value, sub.(*eval.String).Value))
}

// builtinDelay returns a Pending that settles to its second argument after
// the given number of milliseconds. Mostly useful for exercising the async
// barrier from tests and examples.
func builtinDelay(args []eval.Object) eval.Object {
	if err := argCount("delay", args, 2); err != nil {
		return err
	}
	n, err := number("delay", args[0])
	if err != nil {
		return err
	}
	ms, _ := new(big.Float).SetRat(n.Value).Int64()
	value := args[1]
	return eval.Go(func() eval.Object {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return value
	})
}
