package ast

import "reflect"

// Walker performs a depth-first traversal with per-variant enter/exit
// callbacks. Order: enter node, visit children left-to-right, exit node.
type Walker struct {
	enter map[reflect.Type]func(Node)
	exit  map[reflect.Type]func(Node)
}

func NewWalker() *Walker {
	return &Walker{
		enter: make(map[reflect.Type]func(Node)),
		exit:  make(map[reflect.Type]func(Node)),
	}
}

// OnEnter registers fn for the variant of proto.
func (w *Walker) OnEnter(proto Node, fn func(Node)) *Walker {
	w.enter[reflect.TypeOf(proto)] = fn
	return w
}

// OnExit registers fn for the variant of proto.
func (w *Walker) OnExit(proto Node, fn func(Node)) *Walker {
	w.exit[reflect.TypeOf(proto)] = fn
	return w
}

func (w *Walker) Walk(n Node) {
	if n == nil || reflect.ValueOf(n).IsNil() {
		return
	}
	t := reflect.TypeOf(n)
	if fn, ok := w.enter[t]; ok {
		fn(n)
	}
	for _, child := range n.Children() {
		w.Walk(child)
	}
	if fn, ok := w.exit[t]; ok {
		fn(n)
	}
}
