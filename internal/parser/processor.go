package parser

import (
	"github.com/funvibe/cascade/internal/diagnostics"
	"github.com/funvibe/cascade/internal/pipeline"
	"github.com/funvibe/cascade/internal/token"
)

type ParserProcessor struct{}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream == nil {
		// This case should not be hit if the lexer runs first, but as a safeguard:
		err := diagnostics.NewError(diagnostics.P001, token.Token{}, "parser: token stream is nil")
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	p := New(ctx.TokenStream)
	ctx.Program = p.ParseProgram()
	ctx.Errors = append(ctx.Errors, p.Errors()...)

	for _, err := range ctx.Errors {
		if err.File == "" {
			err.File = ctx.FilePath
		}
	}
	return ctx
}
