package ast

import (
	"github.com/funvibe/cascade/internal/token"
)

// Node is the base interface for all AST nodes. Children are reported in
// source order; ChildrenReverse in the opposite order.
type Node interface {
	GetToken() token.Token
	Children() []Node
	ChildrenReverse() []Node
}

// Expression is a Node that produces a value at runtime.
type Expression interface {
	Node
	expressionNode()
}

func reverse(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

// Program is the root node: named arguments, constants and modules.
type Program struct {
	Name      string
	Arguments []*ArgumentDecl
	Constants []*ConstantDecl
	Modules   []*Module
}

func (p *Program) GetToken() token.Token {
	if len(p.Modules) > 0 {
		return p.Modules[0].GetToken()
	}
	return token.Token{}
}

func (p *Program) Children() []Node {
	var out []Node
	for _, a := range p.Arguments {
		out = append(out, a)
	}
	for _, c := range p.Constants {
		out = append(out, c)
	}
	for _, m := range p.Modules {
		out = append(out, m)
	}
	return out
}

func (p *Program) ChildrenReverse() []Node { return reverse(p.Children()) }

// ArgumentDecl declares an externally supplied slot.
// argument rate
type ArgumentDecl struct {
	Token token.Token // the 'argument' token
	Name  *Identifier
}

func (ad *ArgumentDecl) GetToken() token.Token {
	if ad == nil {
		return token.Token{}
	}
	return ad.Token
}
func (ad *ArgumentDecl) Children() []Node        { return []Node{ad.Name} }
func (ad *ArgumentDecl) ChildrenReverse() []Node { return []Node{ad.Name} }

// ConstantDecl declares a statically bound value.
// constant pi = 3.14159
type ConstantDecl struct {
	Token token.Token // the 'constant' token
	Name  *Identifier
	Value Expression // literal only in source form
}

func (cd *ConstantDecl) GetToken() token.Token {
	if cd == nil {
		return token.Token{}
	}
	return cd.Token
}
func (cd *ConstantDecl) Children() []Node        { return []Node{cd.Name, cd.Value} }
func (cd *ConstantDecl) ChildrenReverse() []Node { return []Node{cd.Value, cd.Name} }

// Module is a named collection of imports and formulas owning one lexical
// scope.
type Module struct {
	Token    token.Token // the 'module' token
	Name     *Identifier
	Imports  []*Import
	Formulas []*Formula
}

func (m *Module) GetToken() token.Token {
	if m == nil {
		return token.Token{}
	}
	return m.Token
}

func (m *Module) Children() []Node {
	out := []Node{Node(m.Name)}
	for _, imp := range m.Imports {
		out = append(out, imp)
	}
	for _, f := range m.Formulas {
		out = append(out, f)
	}
	return out
}

func (m *Module) ChildrenReverse() []Node { return reverse(m.Children()) }

type ImportKind int

const (
	ImportArgument ImportKind = iota
	ImportConstant
	ImportFormula
	ImportModule
)

func (k ImportKind) String() string {
	switch k {
	case ImportArgument:
		return "argument"
	case ImportConstant:
		return "constant"
	case ImportFormula:
		return "formula"
	case ImportModule:
		return "module"
	}
	return "unknown"
}

// Import binds a program-level name into a module scope.
//
//	import argument rate
//	import constant pi as p
//	import total from billing
//	import module billing as b
//
// Path is {name} for argument/constant/module imports and
// {module, formula} for formula imports.
type Import struct {
	Token token.Token // the 'import' token
	Kind  ImportKind
	Path  []string
	Alias *Identifier // optional
}

func (im *Import) GetToken() token.Token {
	if im == nil {
		return token.Token{}
	}
	return im.Token
}

func (im *Import) Children() []Node {
	if im.Alias != nil {
		return []Node{im.Alias}
	}
	return nil
}
func (im *Import) ChildrenReverse() []Node { return im.Children() }

// LocalName is the name the import is visible under inside its module.
func (im *Import) LocalName() string {
	if im.Alias != nil {
		return im.Alias.Value
	}
	return im.Path[len(im.Path)-1]
}

// Formula binds a module-local name to an expression body.
// export total = price * count
type Formula struct {
	Token    token.Token // the name token
	Name     *Identifier
	Exported bool
	Body     Expression
}

func (f *Formula) GetToken() token.Token {
	if f == nil {
		return token.Token{}
	}
	return f.Token
}
func (f *Formula) Children() []Node        { return []Node{f.Name, f.Body} }
func (f *Formula) ChildrenReverse() []Node { return []Node{f.Body, f.Name} }
