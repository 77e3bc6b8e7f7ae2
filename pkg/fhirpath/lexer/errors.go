package lexer

import "fmt"

// Error reports a lexical error with its position in source text.
type Error struct {
	Message string
	Pos     Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("LexError at %s: %s", e.Pos, e.Message)
}

func newError(pos Position, format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: pos}
}
