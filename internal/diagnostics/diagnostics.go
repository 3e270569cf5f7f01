package diagnostics

import (
	"fmt"

	"github.com/funvibe/cascade/internal/token"
)

type ErrorCode string

// Lexer codes are L***, parser codes P***, compile (semantic) codes C***,
// warnings W***.
const (
	L001 ErrorCode = "L001" // unterminated string
	L002 ErrorCode = "L002" // invalid escape sequence
	L003 ErrorCode = "L003" // unexpected character
	L004 ErrorCode = "L004" // unterminated quoted identifier

	P001 ErrorCode = "P001" // unexpected token
	P002 ErrorCode = "P002" // duplicate name
	P003 ErrorCode = "P003" // bad macro argument

	C001 ErrorCode = "C001" // unknown name
	C002 ErrorCode = "C002" // duplicate name
	C003 ErrorCode = "C003" // dependency cycle

	W001 ErrorCode = "W001" // await outside tail position
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

type DiagnosticError struct {
	Code     ErrorCode
	Severity Severity
	Message  string
	File     string
	Line     int
	Column   int
}

func (d *DiagnosticError) Error() string {
	if d.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Code, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Code, d.Message)
}

func (d *DiagnosticError) IsWarning() bool { return d.Severity == SeverityWarning }

func NewError(code ErrorCode, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

func NewWarning(code ErrorCode, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	d := NewError(code, tok, format, args...)
	d.Severity = SeverityWarning
	return d
}

// HasErrors reports whether the list contains any non-warning diagnostic.
func HasErrors(diags []*DiagnosticError) bool {
	for _, d := range diags {
		if !d.IsWarning() {
			return true
		}
	}
	return false
}
