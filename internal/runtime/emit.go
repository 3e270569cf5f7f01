package runtime

import (
	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/eval"
	"github.com/funvibe/cascade/internal/symbols"
)

// evalFunc is one emitted expression: a pure function over the call state.
type evalFunc func(st *callState) eval.Object

// callState is the per-call mutable state: one write-once slot per
// declaration plus the skip list.
type callState struct {
	slots []eval.Object
	skip  []bool
}

// emitter compiles expressions of one module into closures. Identifier
// resolution happens here, once; unresolved names compile into steps that
// produce Error{UnresolvedIdentifier} instead of failing the build.
type emitter struct {
	registry *symbols.Registry
	scope    *symbols.ModuleScope
}

func (e *emitter) emit(expr ast.Expression) evalFunc {
	switch node := expr.(type) {
	case *ast.NumberLiteral:
		value := &eval.Number{Value: node.Value}
		return func(st *callState) eval.Object { return value }
	case *ast.StringLiteral:
		value := &eval.String{Value: node.Value}
		return func(st *callState) eval.Object { return value }
	case *ast.BooleanLiteral:
		value := eval.NativeBoolToBooleanObject(node.Value)
		return func(st *callState) eval.Object { return value }
	case *ast.Identifier:
		return e.emitIdentifier(node)
	case *ast.AccessExpression:
		return e.emitAccess(node)
	case *ast.InvokeExpression:
		return e.emitInvoke(node)
	case *ast.BinaryExpression:
		return e.emitBinary(node)
	case *ast.UnaryExpression:
		return e.emitUnary(node)
	case *ast.BlockExpression:
		return e.emitBlock(node)
	case *ast.MacroExpression:
		return e.emitMacro(node)
	default:
		err := eval.NewError(eval.Internal, "cannot emit %T", expr)
		return func(st *callState) eval.Object { return err }
	}
}

func (e *emitter) emitIdentifier(node *ast.Identifier) evalFunc {
	sym := e.registry.TryResolve(e.scope, node.Value)
	if sym == nil {
		err := eval.NewError(eval.UnresolvedIdentifier, "unresolved identifier %s", node.Value)
		return func(st *callState) eval.Object { return err }
	}
	slot := sym.Slot
	return func(st *callState) eval.Object {
		if v := st.slots[slot]; v != nil {
			return v
		}
		return eval.NewError(eval.Internal, "slot for %s not populated", node.Value)
	}
}

func (e *emitter) emitAccess(node *ast.AccessExpression) evalFunc {
	object := e.emit(node.Object)
	member := node.Member.Value
	return func(st *callState) eval.Object {
		value := object(st)
		if eval.IsError(value) {
			return value
		}
		record, ok := value.(*eval.Record)
		if !ok {
			return eval.NewError(eval.AccessUnsupported, "cannot access member %s of %s", member, value.Type())
		}
		v, ok := record.Get(member)
		if !ok {
			return eval.NewError(eval.AccessFailed, "no member %s", member)
		}
		return v
	}
}

func (e *emitter) emitInvoke(node *ast.InvokeExpression) evalFunc {
	callee := e.emit(node.Callee)
	args := make([]evalFunc, len(node.Arguments))
	for i, a := range node.Arguments {
		args[i] = e.emit(a)
	}
	return func(st *callState) eval.Object {
		fv := callee(st)
		if eval.IsError(fv) {
			return fv
		}
		fn, ok := fv.(*eval.Function)
		if !ok {
			return eval.NewError(eval.InvokeUnsupported, "cannot invoke %s", fv.Type())
		}
		values := make([]eval.Object, len(args))
		for i, arg := range args {
			v := arg(st)
			if eval.IsError(v) {
				return v
			}
			values[i] = v
		}
		result := fn.Call(values)
		if result == nil {
			return eval.NewError(eval.Internal, "function %s returned no value", fn.Name)
		}
		return result
	}
}

// emitBinary evaluates both sides, left then right; operators never
// short-circuit, error operands propagate through coercion.
func (e *emitter) emitBinary(node *ast.BinaryExpression) evalFunc {
	left := e.emit(node.Left)
	right := e.emit(node.Right)
	operator := node.Operator
	return func(st *callState) eval.Object {
		lv := left(st)
		rv := right(st)
		return eval.EvalInfixExpression(operator, lv, rv)
	}
}

func (e *emitter) emitUnary(node *ast.UnaryExpression) evalFunc {
	operand := e.emit(node.Operand)
	operator := node.Operator
	return func(st *callState) eval.Object {
		return eval.EvalPrefixExpression(operator, operand(st))
	}
}

func (e *emitter) emitBlock(node *ast.BlockExpression) evalFunc {
	exprs := make([]evalFunc, len(node.Expressions))
	for i, expr := range node.Expressions {
		exprs[i] = e.emit(expr)
	}
	return func(st *callState) eval.Object {
		var last eval.Object
		for _, expr := range exprs {
			last = expr(st)
		}
		return last
	}
}

func (e *emitter) emitMacro(node *ast.MacroExpression) evalFunc {
	switch node.Name {
	case ast.MacroIf:
		return e.emitIf(node)
	case ast.MacroList:
		return e.emitList(node)
	case ast.MacroObject:
		return e.emitObject(node)
	case ast.MacroWhere:
		return e.emitWhere(node)
	}
	err := eval.NewError(eval.Internal, "unknown macro %s", node.Name)
	return func(st *callState) eval.Object { return err }
}

// emitIf evaluates the condition, coerces it to Boolean and evaluates only
// the chosen branch.
func (e *emitter) emitIf(node *ast.MacroExpression) evalFunc {
	if len(node.Args) != 3 {
		err := eval.NewError(eval.Internal, "if requires 3 arguments")
		return func(st *callState) eval.Object { return err }
	}
	cond := e.emit(node.Args[0].Value)
	then := e.emit(node.Args[1].Value)
	alt := e.emit(node.Args[2].Value)
	return func(st *callState) eval.Object {
		c := eval.CastBoolean(cond(st))
		if eval.IsError(c) {
			return c
		}
		if c.(*eval.Boolean).Value {
			return then(st)
		}
		return alt(st)
	}
}

func (e *emitter) emitList(node *ast.MacroExpression) evalFunc {
	elements := make([]evalFunc, len(node.Args))
	for i, a := range node.Args {
		elements[i] = e.emit(a.Value)
	}
	return func(st *callState) eval.Object {
		values := make([]eval.Object, len(elements))
		for i, element := range elements {
			v := element(st)
			if eval.IsError(v) {
				return v
			}
			values[i] = v
		}
		return &eval.List{Elements: values}
	}
}

// emitObject builds a Record with insertion order equal to argument order.
// Duplicate names are a runtime DuplicateKey error.
func (e *emitter) emitObject(node *ast.MacroExpression) evalFunc {
	names := make([]string, len(node.Args))
	values := make([]evalFunc, len(node.Args))
	for i, a := range node.Args {
		if a.Name == nil {
			err := eval.NewError(eval.Internal, "object requires named arguments")
			return func(st *callState) eval.Object { return err }
		}
		names[i] = a.Name.Value
		values[i] = e.emit(a.Value)
	}
	return func(st *callState) eval.Object {
		record := eval.NewRecord()
		for i, value := range values {
			if record.Has(names[i]) {
				return eval.NewError(eval.DuplicateKey, "duplicate key %s", names[i])
			}
			v := value(st)
			if eval.IsError(v) {
				return v
			}
			record.Set(names[i], v)
		}
		return record
	}
}

// emitWhere evaluates the result expression first, then the conditions in
// order; the first truthy condition selects its branch. With no match the
// trailing default wins when present, otherwise the result value itself.
func (e *emitter) emitWhere(node *ast.MacroExpression) evalFunc {
	if len(node.Args) == 0 {
		err := eval.NewError(eval.Internal, "where requires a result argument")
		return func(st *callState) eval.Object { return err }
	}
	result := e.emit(node.Args[0].Value)
	rest := node.Args[1:]

	var conds, branches []evalFunc
	var deflt evalFunc
	for i := 0; i+1 < len(rest); i += 2 {
		conds = append(conds, e.emit(rest[i].Value))
		branches = append(branches, e.emit(rest[i+1].Value))
	}
	if len(rest)%2 == 1 {
		deflt = e.emit(rest[len(rest)-1].Value)
	}

	return func(st *callState) eval.Object {
		rv := result(st)
		if eval.IsError(rv) {
			return rv
		}
		for i, cond := range conds {
			c := eval.CastBoolean(cond(st))
			if eval.IsError(c) {
				return c
			}
			if c.(*eval.Boolean).Value {
				return branches[i](st)
			}
		}
		if deflt != nil {
			return deflt(st)
		}
		return rv
	}
}
