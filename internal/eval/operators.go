package eval

import (
	"math/big"
)

// EvalInfixExpression dispatches a binary operator over two evaluated
// operands. Operands are coerced to the variant the operator expects;
// an Error operand propagates through the coercion. Equality accepts any
// pair of non-Error operands; an Error operand is returned as is.
func EvalInfixExpression(operator string, left, right Object) Object {
	switch operator {
	case "=":
		if IsError(left) {
			return left
		}
		if IsError(right) {
			return right
		}
		return NativeBoolToBooleanObject(ObjectsEqual(left, right))
	case "<>":
		if IsError(left) {
			return left
		}
		if IsError(right) {
			return right
		}
		return NativeBoolToBooleanObject(!ObjectsEqual(left, right))
	case "+", "-", "*", "/", "%", "^":
		return evalArithmetic(operator, left, right)
	case "<", "<=", ">", ">=":
		return evalComparison(operator, left, right)
	case "&":
		return evalConcat(left, right)
	case "and", "or":
		return evalLogical(operator, left, right)
	default:
		return NewError(Internal, "unknown operator %s", operator)
	}
}

// EvalPrefixExpression dispatches a unary operator. await is handled by
// the planner in tail position and emits as identity elsewhere.
func EvalPrefixExpression(operator string, operand Object) Object {
	switch operator {
	case "-":
		num := CastNumber(operand)
		if IsError(num) {
			return num
		}
		return &Number{Value: new(big.Rat).Neg(num.(*Number).Value)}
	case "not":
		b := CastBoolean(operand)
		if IsError(b) {
			return b
		}
		return NativeBoolToBooleanObject(!b.(*Boolean).Value)
	case "await":
		return operand
	default:
		return NewError(Internal, "unknown operator %s", operator)
	}
}

func evalArithmetic(operator string, left, right Object) Object {
	ln := CastNumber(left)
	if IsError(ln) {
		return ln
	}
	rn := CastNumber(right)
	if IsError(rn) {
		return rn
	}
	a, b := ln.(*Number).Value, rn.(*Number).Value

	switch operator {
	case "+":
		return &Number{Value: new(big.Rat).Add(a, b)}
	case "-":
		return &Number{Value: new(big.Rat).Sub(a, b)}
	case "*":
		return &Number{Value: new(big.Rat).Mul(a, b)}
	case "/":
		if b.Sign() == 0 {
			return NewError(MathDomain, "division by zero")
		}
		return &Number{Value: new(big.Rat).Quo(a, b)}
	case "%":
		return evalRemainder(a, b)
	case "^":
		return evalPower(a, b)
	}
	return NewError(Internal, "unknown arithmetic operator %s", operator)
}

// evalRemainder is defined for integer operands with a non-zero divisor;
// the result takes the dividend's sign, matching Go's %.
func evalRemainder(a, b *big.Rat) Object {
	if !a.IsInt() || !b.IsInt() {
		return NewError(MathDomain, "remainder requires integer operands")
	}
	if b.Sign() == 0 {
		return NewError(MathDomain, "remainder by zero")
	}
	rem := new(big.Int).Rem(a.Num(), b.Num())
	return &Number{Value: new(big.Rat).SetInt(rem)}
}

// evalPower requires an integer exponent. 0^0 and 0^-n are undefined; a
// negative exponent takes the reciprocal of the positive power.
func evalPower(base, exp *big.Rat) Object {
	if !exp.IsInt() {
		return NewError(MathDomain, "exponent must be an integer")
	}
	if base.Sign() == 0 && exp.Sign() <= 0 {
		return NewError(MathDomain, "zero raised to a non-positive power")
	}
	e := new(big.Int).Abs(exp.Num())
	if !e.IsInt64() {
		return NewError(MathDomain, "exponent out of range")
	}
	num := new(big.Int).Exp(base.Num(), e, nil)
	den := new(big.Int).Exp(base.Denom(), e, nil)
	result := new(big.Rat).SetFrac(num, den)
	if exp.Sign() < 0 {
		result.Inv(result)
	}
	return &Number{Value: result}
}

func evalComparison(operator string, left, right Object) Object {
	ln := CastNumber(left)
	if IsError(ln) {
		return ln
	}
	rn := CastNumber(right)
	if IsError(rn) {
		return rn
	}
	cmp := ln.(*Number).Value.Cmp(rn.(*Number).Value)

	switch operator {
	case "<":
		return NativeBoolToBooleanObject(cmp < 0)
	case "<=":
		return NativeBoolToBooleanObject(cmp <= 0)
	case ">":
		return NativeBoolToBooleanObject(cmp > 0)
	case ">=":
		return NativeBoolToBooleanObject(cmp >= 0)
	}
	return NewError(Internal, "unknown comparison operator %s", operator)
}

func evalConcat(left, right Object) Object {
	ls := CastString(left)
	if IsError(ls) {
		return ls
	}
	rs := CastString(right)
	if IsError(rs) {
		return rs
	}
	return &String{Value: ls.(*String).Value + rs.(*String).Value}
}

// evalLogical evaluates eagerly: both operands are already evaluated and
// errors propagate through the boolean coercion rather than short-circuit.
func evalLogical(operator string, left, right Object) Object {
	lb := CastBoolean(left)
	if IsError(lb) {
		return lb
	}
	rb := CastBoolean(right)
	if IsError(rb) {
		return rb
	}
	a, b := lb.(*Boolean).Value, rb.(*Boolean).Value
	if operator == "and" {
		return NativeBoolToBooleanObject(a && b)
	}
	return NativeBoolToBooleanObject(a || b)
}
