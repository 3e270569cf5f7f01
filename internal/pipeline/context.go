package pipeline

import (
	"github.com/funvibe/cascade/internal/ast"
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/token"
)

// PipelineContext carries one compilation unit through the stages.
type PipelineContext struct {
	FilePath   string
	SourceCode string

	TokenStream []token.Token
	Program     *ast.Program

	Errors []*diagnostics.DiagnosticError
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}
