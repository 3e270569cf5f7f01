package ast

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/funvibe/cascade/internal/token"
)

func ident(name string) *Identifier {
	return &Identifier{Token: token.Token{Type: token.IDENT, Lexeme: name, Literal: name}, Value: name}
}

func number(v int64) *NumberLiteral {
	return &NumberLiteral{Value: new(big.Rat).SetInt64(v)}
}

func TestWalkOrder(t *testing.T) {
	// (a + 1) visited as: enter binary, enter a, exit a, enter 1, exit 1, exit binary
	expr := &BinaryExpression{
		Operator: "+",
		Left:     ident("a"),
		Right:    number(1),
	}

	var trace []string
	w := NewWalker()
	w.OnEnter(&BinaryExpression{}, func(n Node) { trace = append(trace, "enter-bin") })
	w.OnExit(&BinaryExpression{}, func(n Node) { trace = append(trace, "exit-bin") })
	w.OnEnter(&Identifier{}, func(n Node) { trace = append(trace, "enter-"+n.(*Identifier).Value) })
	w.OnExit(&Identifier{}, func(n Node) { trace = append(trace, "exit-"+n.(*Identifier).Value) })
	w.OnExit(&NumberLiteral{}, func(n Node) { trace = append(trace, "exit-num") })
	w.Walk(expr)

	want := []string{"enter-bin", "enter-a", "exit-a", "exit-num", "exit-bin"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("trace %v, want %v", trace, want)
	}
}

func TestWalkSkipsNilNodes(t *testing.T) {
	f := &Formula{Name: ident("f"), Body: nil}
	w := NewWalker()
	count := 0
	w.OnEnter(&Identifier{}, func(n Node) { count++ })
	w.Walk(f)
	if count != 1 {
		t.Fatalf("visited %d identifiers, want 1", count)
	}
}

func TestChildrenReverse(t *testing.T) {
	call := &InvokeExpression{
		Callee:    ident("f"),
		Arguments: []Expression{number(1), number(2)},
	}
	fwd := call.Children()
	rev := call.ChildrenReverse()
	if len(fwd) != 3 || len(rev) != 3 {
		t.Fatalf("children: %d / %d", len(fwd), len(rev))
	}
	for i := range fwd {
		if fwd[i] != rev[len(rev)-1-i] {
			t.Fatalf("reverse order mismatch at %d", i)
		}
	}
}
