package symbols

import (
	"strings"

	"github.com/funvibe/cascade/internal/ast"
)

type SymbolKind int

const (
	ArgumentSymbol SymbolKind = iota
	ConstantSymbol
	ModuleSymbol // a module's exports-object slot
	ImportSymbol
	FormulaSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case ArgumentSymbol:
		return "argument"
	case ConstantSymbol:
		return "constant"
	case ModuleSymbol:
		return "module"
	case ImportSymbol:
		return "import"
	case FormulaSymbol:
		return "formula"
	}
	return "unknown"
}

// Symbol is one named declaration bound to a storage slot. Slots are
// created at compile time and written exactly once per execution.
type Symbol struct {
	Name   string // original casing
	Kind   SymbolKind
	Slot   int
	Module string   // owning module, empty for program-level symbols
	Node   ast.Node // defining node, nil for host-provided declarations
}

// Scope is a unique-name lookup with case-insensitive comparisons.
type Scope struct {
	symbols map[string]*Symbol // keyed by lowercased name
	order   []*Symbol
}

func NewScope() *Scope {
	return &Scope{symbols: make(map[string]*Symbol)}
}

func (s *Scope) declare(sym *Symbol) bool {
	key := strings.ToLower(sym.Name)
	if _, exists := s.symbols[key]; exists {
		return false
	}
	s.symbols[key] = sym
	s.order = append(s.order, sym)
	return true
}

func (s *Scope) Resolve(name string) (*Symbol, bool) {
	sym, ok := s.symbols[strings.ToLower(name)]
	return sym, ok
}

// Symbols returns the scope's symbols in declaration order.
func (s *Scope) Symbols() []*Symbol { return s.order }

// ModuleScope maps a module's local names (imports and formulas) to slots
// and carries the module's own exports-object symbol.
type ModuleScope struct {
	Name    string
	Exports *Symbol
	locals  *Scope
}

// Resolve returns the local symbol for name, or false.
func (m *ModuleScope) Resolve(name string) (*Symbol, bool) {
	return m.locals.Resolve(name)
}

// Locals returns imports and formulas in declaration order.
func (m *ModuleScope) Locals() []*Symbol { return m.locals.Symbols() }

// Registry holds a program's three top-level scopes plus one scope per
// module, and allocates the flat slot space shared by all of them.
type Registry struct {
	nextSlot int

	Arguments *Scope
	Constants *Scope
	Modules   *Scope

	moduleScopes map[string]*ModuleScope // keyed by lowercased module name
	moduleOrder  []*ModuleScope
}

func NewRegistry() *Registry {
	return &Registry{
		Arguments:    NewScope(),
		Constants:    NewScope(),
		Modules:      NewScope(),
		moduleScopes: make(map[string]*ModuleScope),
	}
}

// SlotCount is the number of storage slots an execution must allocate.
func (r *Registry) SlotCount() int { return r.nextSlot }

func (r *Registry) allocSlot() int {
	slot := r.nextSlot
	r.nextSlot++
	return slot
}

// DeclareArgument registers a program argument. Returns nil when the name
// is already taken in the arguments scope.
func (r *Registry) DeclareArgument(name string, node ast.Node) *Symbol {
	sym := &Symbol{Name: name, Kind: ArgumentSymbol, Slot: r.allocSlot(), Node: node}
	if !r.Arguments.declare(sym) {
		r.nextSlot--
		return nil
	}
	return sym
}

// DeclareConstant registers a program constant.
func (r *Registry) DeclareConstant(name string, node ast.Node) *Symbol {
	sym := &Symbol{Name: name, Kind: ConstantSymbol, Slot: r.allocSlot(), Node: node}
	if !r.Constants.declare(sym) {
		r.nextSlot--
		return nil
	}
	return sym
}

// DeclareModule registers a module and creates its exports-object slot and
// local scope.
func (r *Registry) DeclareModule(name string, node ast.Node) *ModuleScope {
	sym := &Symbol{Name: name, Kind: ModuleSymbol, Slot: r.allocSlot(), Node: node}
	if !r.Modules.declare(sym) {
		r.nextSlot--
		return nil
	}
	ms := &ModuleScope{Name: name, Exports: sym, locals: NewScope()}
	r.moduleScopes[strings.ToLower(name)] = ms
	r.moduleOrder = append(r.moduleOrder, ms)
	return ms
}

// DeclareLocal registers an import or formula in a module scope. Name
// collisions across the two collections are rejected alike.
func (r *Registry) DeclareLocal(m *ModuleScope, name string, kind SymbolKind, node ast.Node) *Symbol {
	sym := &Symbol{Name: name, Kind: kind, Slot: r.allocSlot(), Module: m.Name, Node: node}
	if !m.locals.declare(sym) {
		r.nextSlot--
		return nil
	}
	return sym
}

// Module returns the scope for a module name, case-insensitively.
func (r *Registry) Module(name string) (*ModuleScope, bool) {
	ms, ok := r.moduleScopes[strings.ToLower(name)]
	return ms, ok
}

// ModuleScopes returns all module scopes in declaration order.
func (r *Registry) ModuleScopes() []*ModuleScope { return r.moduleOrder }

// Resolve finds the declaration visible under name from inside module m:
// module locals first, then program arguments, constants and module
// aliases. Returns false when nothing is visible.
func (r *Registry) Resolve(m *ModuleScope, name string) (*Symbol, bool) {
	if sym, ok := m.Resolve(name); ok {
		return sym, true
	}
	if sym, ok := r.Arguments.Resolve(name); ok {
		return sym, true
	}
	if sym, ok := r.Constants.Resolve(name); ok {
		return sym, true
	}
	if sym, ok := r.Modules.Resolve(name); ok {
		return sym, true
	}
	return nil, false
}

// TryResolve is Resolve returning nil instead of false-with-nil checks at
// call sites that treat missing names as soft.
func (r *Registry) TryResolve(m *ModuleScope, name string) *Symbol {
	sym, ok := r.Resolve(m, name)
	if !ok {
		return nil
	}
	return sym
}
