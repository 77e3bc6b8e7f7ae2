package parser

import (
	"fmt"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/lexer"
)

// Error reports a syntax error with its position in source text.
type Error struct {
	Message string
	Pos     lexer.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("ParseError at %s: %s", e.Pos, e.Message)
}

func newError(pos lexer.Position, format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: pos}
}
