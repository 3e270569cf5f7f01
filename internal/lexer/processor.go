package lexer

import (
	"github.com/funvibe/cascade/internal/pipeline"
	"github.com/funvibe/cascade/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	l := New(ctx.SourceCode)
	for {
		tok := l.NextToken()
		ctx.TokenStream = append(ctx.TokenStream, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	ctx.Errors = append(ctx.Errors, l.Errors()...)
	for _, err := range ctx.Errors {
		if err.File == "" {
			err.File = ctx.FilePath
		}
	}
	return ctx
}
