package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/config"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/eval"
	"github.com/funvibe/cascade/internal/hostlib"
	"github.com/funvibe/cascade/internal/lexer"
	"github.com/funvibe/cascade/internal/manifest"
	"github.com/funvibe/cascade/internal/parser"
	"github.com/funvibe/cascade/internal/pipeline"
	"github.com/funvibe/cascade/internal/runtime"
)

var useColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func colorize(code, s string) string {
	if !useColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func green(s string) string { return colorize("32", s) }
func red(s string) string   { return colorize("31", s) }
func dim(s string) string   { return colorize("2", s) }

func main() {
	root := &cobra.Command{
		Use:           "cascade",
		Short:         "cascade formula language compiler and runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(checkCmd(), runCmd(), graphCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error:")+" "+err.Error())
		os.Exit(1)
	}
}

// loadProgram reads a manifest (.yaml) or a plain source file and returns
// the assembled program plus host constants.
func loadProgram(path string) (*ast.Program, map[string]eval.Object, []*diagnostics.DiagnosticError, error) {
	constants := make(map[string]eval.Object)
	for name, value := range hostlib.Core() {
		constants[name] = value
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		program, manifestConstants, diags, err := manifest.Load(path)
		if err != nil {
			return nil, nil, nil, err
		}
		for name, value := range manifestConstants {
			constants[name] = value
		}
		return program, constants, diags, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx := &pipeline.PipelineContext{FilePath: path, SourceCode: string(source)}
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	return ctx.Program, constants, ctx.Errors, nil
}

func compileProgram(path string) (*runtime.Executable, error) {
	program, constants, diags, err := loadProgram(path)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		if d.IsWarning() {
			fmt.Fprintln(os.Stderr, dim(d.Error()))
		}
	}
	if diagnostics.HasErrors(diags) {
		return nil, &runtime.CompileError{Diagnostics: diags}
	}

	exe, err := runtime.Compile(program, &runtime.Options{Constants: constants})
	if err != nil {
		return nil, err
	}
	for _, w := range exe.Warnings {
		fmt.Fprintln(os.Stderr, dim(w.Error()))
	}
	return exe, nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <program" + config.SourceFileExt + "|" + config.ManifestFileName + ">",
		Short: "Compile a program and report diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := compileProgram(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s %d steps in %d groups\n", green("ok:"), exe.Plan.StepCount(), len(exe.Plan.Groups))
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	var bindingsPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <program" + config.SourceFileExt + "|" + config.ManifestFileName + ">",
		Short: "Compile and evaluate a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := compileProgram(args[0])
			if err != nil {
				return err
			}

			bindings := make(map[string]eval.Object)
			if bindingsPath != "" {
				bindings, err = manifest.LoadBindings(bindingsPath)
				if err != nil {
					return err
				}
			}
			callArgs := make([]eval.Object, 0, len(exe.Registry.Arguments.Symbols()))
			for _, sym := range exe.Registry.Arguments.Symbols() {
				value, ok := bindings[strings.ToLower(sym.Name)]
				if !ok {
					value, ok = bindings[sym.Name]
				}
				if !ok {
					return fmt.Errorf("no binding for argument %s", sym.Name)
				}
				callArgs = append(callArgs, value)
			}

			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			result := exe.Call(ctx, callArgs)
			if result.Err != nil {
				return fmt.Errorf("%s", result.Err.Error())
			}
			printResult(result)
			return nil
		},
	}
	cmd.Flags().StringVar(&bindingsPath, "bindings", "", "YAML file mapping argument names to values")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-call timeout (e.g. 5s)")
	return cmd
}

func printResult(result *runtime.Result) {
	fmt.Println(dim("call " + result.ID.String()))

	modules := make([]string, 0, len(result.Modules))
	for name := range result.Modules {
		modules = append(modules, name)
	}
	sort.Strings(modules)
	for _, module := range modules {
		formulas := result.Modules[module]
		names := make([]string, 0, len(formulas))
		for name := range formulas {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s.%s = %s\n", module, name, green(formulas[name].Inspect()))
		}
	}

	keys := make([]string, 0, len(result.Errors))
	for key := range result.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%s: %s\n", key, red(result.Errors[key].Error()))
	}
}

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <program" + config.SourceFileExt + "|" + config.ManifestFileName + ">",
		Short: "Print the execution plan: groups, steps and dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := compileProgram(args[0])
			if err != nil {
				return err
			}
			for i, group := range exe.Plan.Groups {
				fmt.Printf("group %d\n", i)
				for _, step := range group.Steps {
					deps := make([]string, len(step.Dependencies))
					for j, d := range step.Dependencies {
						deps[j] = fmt.Sprintf("%d", d)
					}
					suffix := ""
					if len(deps) > 0 {
						suffix = dim(" <- " + strings.Join(deps, ","))
					}
					fmt.Printf("  [%d] %s %s.%s%s\n", step.ID, step.Kind, step.Symbol.Module, step.Symbol.Name, suffix)
				}
			}
			return nil
		},
	}
}
