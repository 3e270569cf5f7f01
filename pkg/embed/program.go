// Package cascade is the public embedding API: build a program from host
// code, compile it, call it.
package cascade

import (
	"context"
	"fmt"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/eval"
	"github.com/funvibe/cascade/internal/lexer"
	"github.com/funvibe/cascade/internal/parser"
	"github.com/funvibe/cascade/internal/pipeline"
	"github.com/funvibe/cascade/internal/runtime"
)

// Program is the builder façade. Add arguments, constants, host functions
// and module sources, then Compile.
type Program struct {
	name       string
	arguments  []string
	constants  map[string]eval.Object
	sources    []string
	marshaller *Marshaller
	err        error
}

func NewProgram(name string) *Program {
	return &Program{
		name:       name,
		constants:  make(map[string]eval.Object),
		marshaller: NewMarshaller(),
	}
}

// AddArgument declares an externally supplied slot; call order is
// declaration order.
func (p *Program) AddArgument(name string) *Program {
	p.arguments = append(p.arguments, name)
	return p
}

// AddConstant binds a Go value as a program constant.
func (p *Program) AddConstant(name string, value interface{}) *Program {
	obj, err := p.marshaller.ToObject(value)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("constant %s: %w", name, err)
		return p
	}
	p.constants[name] = obj
	return p
}

// AddFunction binds a Go function as a constant the program can invoke.
func (p *Program) AddFunction(name string, fn func(args []interface{}) (interface{}, error)) *Program {
	p.constants[name] = p.marshaller.wrapFunction(name, fn)
	return p
}

// AddPending binds a constant whose value is computed asynchronously. fn
// runs once on its own goroutine; every call shares the settled value.
func (p *Program) AddPending(name string, fn func() (interface{}, error)) *Program {
	m := p.marshaller
	p.constants[name] = eval.Go(func() eval.Object {
		out, err := fn()
		if err != nil {
			return eval.NewError(eval.Internal, "%s: %v", name, err)
		}
		obj, convErr := m.ToObject(out)
		if convErr != nil {
			return eval.NewError(eval.Internal, "%s: %v", name, convErr)
		}
		return obj
	})
	return p
}

// AddModuleSource appends cascade source text (argument, constant and
// module declarations).
func (p *Program) AddModuleSource(source string) *Program {
	p.sources = append(p.sources, source)
	return p
}

// Compile parses the sources, assembles the program and compiles it.
func (p *Program) Compile() (*Executable, error) {
	if p.err != nil {
		return nil, p.err
	}

	program := &ast.Program{Name: p.name}
	for _, name := range p.arguments {
		program.Arguments = append(program.Arguments, &ast.ArgumentDecl{Name: &ast.Identifier{Value: name}})
	}

	var diags []*diagnostics.DiagnosticError
	for _, source := range p.sources {
		ctx := &pipeline.PipelineContext{SourceCode: source}
		ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
		diags = append(diags, ctx.Errors...)
		if ctx.Program != nil {
			program.Arguments = append(program.Arguments, ctx.Program.Arguments...)
			program.Constants = append(program.Constants, ctx.Program.Constants...)
			program.Modules = append(program.Modules, ctx.Program.Modules...)
		}
	}
	if diagnostics.HasErrors(diags) {
		return nil, &runtime.CompileError{Diagnostics: diags}
	}

	exe, err := runtime.Compile(program, &runtime.Options{Constants: p.constants})
	if err != nil {
		return nil, err
	}
	return &Executable{exe: exe, marshaller: p.marshaller}, nil
}

// Executable wraps a compiled program for host calls.
type Executable struct {
	exe        *runtime.Executable
	marshaller *Marshaller
}

// Warnings returns compile warnings as strings.
func (e *Executable) Warnings() []string {
	var out []string
	for _, w := range e.exe.Warnings {
		out = append(out, w.Error())
	}
	return out
}

// Result is the host-facing bundle: exported formula values on success,
// errors keyed "module.formula" on failure.
type Result struct {
	ID      string
	Modules map[string]map[string]interface{}
	Errors  map[string]error
}

// Call evaluates the program with one Go value per declared argument.
func (e *Executable) Call(ctx context.Context, args ...interface{}) (*Result, error) {
	values := make([]eval.Object, len(args))
	for i, arg := range args {
		obj, err := e.marshaller.ToObject(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values[i] = obj
	}

	r := e.exe.Call(ctx, values)
	if r.Err != nil {
		return nil, r.Err
	}

	out := &Result{
		ID:      r.ID.String(),
		Modules: make(map[string]map[string]interface{}),
		Errors:  make(map[string]error),
	}
	for module, formulas := range r.Modules {
		m := make(map[string]interface{}, len(formulas))
		for name, value := range formulas {
			m[name] = e.marshaller.FromObject(value)
		}
		out.Modules[module] = m
	}
	for key, err := range r.Errors {
		out.Errors[key] = err
	}
	return out, nil
}
