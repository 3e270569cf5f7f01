// Package manifest loads YAML program descriptors: the program name, its
// arguments and constants, and the source files or inline sources whose
// module declarations make up the program.
package manifest

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/eval"
	"github.com/funvibe/cascade/internal/lexer"
	"github.com/funvibe/cascade/internal/parser"
	"github.com/funvibe/cascade/internal/pipeline"
)

// Manifest mirrors the cascade.yaml layout.
type Manifest struct {
	// Program is the program name, informational only.
	Program string `yaml:"program"`

	// Arguments declares externally supplied slots, in call order.
	Arguments []string `yaml:"arguments,omitempty"`

	// Constants binds names to scalar values (number, string, bool).
	Constants map[string]yaml.Node `yaml:"constants,omitempty"`

	// Sources lists module source files (relative to the manifest) or
	// inline source snippets.
	Sources []Source `yaml:"sources,omitempty"`
}

type Source struct {
	File   string `yaml:"file,omitempty"`
	Inline string `yaml:"inline,omitempty"`
}

// Load reads a manifest file and assembles the program it describes.
// Diagnostics come from lexing and parsing the sources; err covers
// manifest-level problems (unreadable files, malformed YAML, bad scalars).
func Load(path string) (*ast.Program, map[string]eval.Object, []*diagnostics.DiagnosticError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("manifest: %w", err)
	}
	return parse(data, filepath.Dir(path))
}

// Parse assembles a program from manifest bytes with sources resolved
// against dir.
func Parse(data []byte, dir string) (*ast.Program, map[string]eval.Object, []*diagnostics.DiagnosticError, error) {
	return parse(data, dir)
}

func parse(data []byte, dir string) (*ast.Program, map[string]eval.Object, []*diagnostics.DiagnosticError, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, nil, nil, fmt.Errorf("manifest: %w", err)
	}

	program := &ast.Program{Name: m.Program}
	for _, name := range m.Arguments {
		program.Arguments = append(program.Arguments, &ast.ArgumentDecl{
			Name: &ast.Identifier{Value: name},
		})
	}

	constants := make(map[string]eval.Object)
	for name, node := range m.Constants {
		value, err := scalarValue(&node)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("manifest: constant %s: %w", name, err)
		}
		constants[name] = value
	}

	var diags []*diagnostics.DiagnosticError
	for _, src := range m.Sources {
		source := src.Inline
		file := "<inline>"
		if src.File != "" {
			raw, err := os.ReadFile(filepath.Join(dir, src.File))
			if err != nil {
				return nil, nil, nil, fmt.Errorf("manifest: %w", err)
			}
			source = string(raw)
			file = src.File
		}

		ctx := &pipeline.PipelineContext{FilePath: file, SourceCode: source}
		ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
		diags = append(diags, ctx.Errors...)
		if ctx.Program != nil {
			merge(program, ctx.Program)
		}
	}

	return program, constants, diags, nil
}

// merge folds a parsed source fragment into the assembled program.
func merge(dst, src *ast.Program) {
	dst.Arguments = append(dst.Arguments, src.Arguments...)
	dst.Constants = append(dst.Constants, src.Constants...)
	dst.Modules = append(dst.Modules, src.Modules...)
}

// LoadBindings reads a YAML file mapping argument names to scalar values.
func LoadBindings(path string) (map[string]eval.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bindings: %w", err)
	}
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("bindings: %w", err)
	}
	out := make(map[string]eval.Object, len(raw))
	for name, node := range raw {
		value, err := scalarValue(&node)
		if err != nil {
			return nil, fmt.Errorf("bindings: argument %s: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

func scalarValue(node *yaml.Node) (eval.Object, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("expected a scalar value")
	}
	switch node.Tag {
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, err
		}
		return eval.NativeBoolToBooleanObject(b), nil
	case "!!int", "!!float":
		r, ok := new(big.Rat).SetString(node.Value)
		if !ok {
			return nil, fmt.Errorf("malformed number %q", node.Value)
		}
		return &eval.Number{Value: r}, nil
	default:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return &eval.String{Value: s}, nil
	}
}
