// Package lexer tokenizes FHIRPath source text.
package lexer

import "fmt"

// Kind identifies the lexical class of a Token.
type Kind int

const (
	EOF Kind = iota
	Identifier
	DelimitedIdentifier // `like this`
	Integer
	Decimal
	String
	Boolean
	DateLiteral     // @2020-01-01
	DateTimeLiteral // @2020-01-01T10:00:00Z
	TimeLiteral     // @T10:00:00
	ThisVar         // $this
	IndexVar        // $index
	TotalVar        // $total
	NamedVar        // $foo
	ExternalConst   // %foo or %'foo'

	// Punctuation
	Dot
	Comma
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Pipe
	Ampersand
	Bang
	Equal
	NotEqual
	Equivalent
	NotEquivalent
	Less
	Greater
	LessEqual
	GreaterEqual
	Plus
	Minus
	Star
	Slash
	Tilde
	NotTilde

	// Word operators (keywords)
	And
	Or
	Xor
	Implies
	Mod
	Div
	In
	Contains
	Is
	As
)

// Position is a 1-based line/column location in source text.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexical unit of a FHIRPath expression.
type Token struct {
	Kind Kind
	Text string // original source text
	Pos  Position
}

var keywords = map[string]Kind{
	"and":      And,
	"or":       Or,
	"xor":      Xor,
	"implies":  Implies,
	"mod":      Mod,
	"div":      Div,
	"in":       In,
	"contains": Contains,
	"is":       Is,
	"as":       As,
	"true":     Boolean,
	"false":    Boolean,
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Identifier:
		return "Identifier"
	case DelimitedIdentifier:
		return "DelimitedIdentifier"
	case Integer:
		return "Integer"
	case Decimal:
		return "Decimal"
	case String:
		return "String"
	case Boolean:
		return "Boolean"
	case DateLiteral:
		return "DateLiteral"
	case DateTimeLiteral:
		return "DateTimeLiteral"
	case TimeLiteral:
		return "TimeLiteral"
	case ThisVar:
		return "ThisVar"
	case IndexVar:
		return "IndexVar"
	case TotalVar:
		return "TotalVar"
	case NamedVar:
		return "NamedVar"
	case ExternalConst:
		return "ExternalConst"
	default:
		return "Token"
	}
}
