// Package ast defines the FHIRPath abstract syntax tree produced by the parser.
//
// The tree is a closed sum of node kinds; visitors over it (the semantic
// validator, the SQL translator) use a type switch rather than reflection,
// so adding a node kind is a compile-time-checked change everywhere it is
// handled.
package ast

import "github.com/fhir4ds/sqlcompiler/pkg/fhirpath/lexer"

// Node is implemented by every AST node kind.
type Node interface {
	node()
	// Text is the original source text this node was parsed from.
	Text() string
	// Pos is the source position of the node's leading token.
	Pos() lexer.Position
}

// LiteralKind classifies a Literal node's value.
type LiteralKind int

const (
	LiteralNull LiteralKind = iota
	LiteralBoolean
	LiteralInteger
	LiteralDecimal
	LiteralString
	LiteralDate
	LiteralDateTime
	LiteralTime
)

// Literal is a constant value: a string, number, boolean, date/time, or
// the empty collection `{}`.
type Literal struct {
	Kind  LiteralKind
	Value string // decoded value (quotes/escapes removed, @ prefix stripped)
	text  string
	pos   lexer.Position
}

func (*Literal) node()                 {}
func (l *Literal) Text() string        { return l.text }
func (l *Literal) Pos() lexer.Position { return l.pos }

// NewLiteral constructs a Literal, recording both the decoded Value and the
// original source Text.
func NewLiteral(kind LiteralKind, value, text string, pos lexer.Position) *Literal {
	return &Literal{Kind: kind, Value: value, text: text, pos: pos}
}

// Identifier is a bare path step: a member name, or a root resource type
// reference (e.g. `Patient` at the start of an expression).
//
// Target holds the left-hand side of a dot-chain (`a.b` parses to
// Identifier{Name: "b", Target: Identifier{Name: "a"}}) and is nil at the
// root of a path. spec.md §3 describes Identifier as a flat {name} node;
// Target is the minimal enrichment needed to make visit_identifier's
// "push onto parent_path" / "current_table" threading well-defined for a
// tree-walking visitor instead of a token-stream one.
type Identifier struct {
	Name   string
	Target Node
	text   string
	pos    lexer.Position
}

func (*Identifier) node()                 {}
func (i *Identifier) Text() string        { return i.text }
func (i *Identifier) Pos() lexer.Position { return i.pos }

// NewIdentifier constructs an Identifier node.
func NewIdentifier(name string, target Node, text string, pos lexer.Position) *Identifier {
	return &Identifier{Name: name, Target: target, text: text, pos: pos}
}

// Variable is a special-form variable reference: $this, $index, $total, or
// a user-bound $name introduced by where/select/repeat.
type Variable struct {
	Name string // "this", "index", "total", or a bound name
	text string
	pos  lexer.Position
}

func (*Variable) node()                 {}
func (v *Variable) Text() string        { return v.text }
func (v *Variable) Pos() lexer.Position { return v.pos }

// NewVariable constructs a Variable node.
func NewVariable(name, text string, pos lexer.Position) *Variable {
	return &Variable{Name: name, text: text, pos: pos}
}

// FunctionCall is both method-form (`target.fn(args)`) and function-form
// (`fn(args)`, where Target is nil and the translator treats the first
// argument as input per spec.md §4.4's context-vs-argument normalization).
//
// The indexer postfix `expr[i]` is also modeled as a FunctionCall with the
// synthetic Name "[]" and a single Arg (the index expression) — spec.md §3
// does not list a dedicated indexer node kind, and this keeps the AST sum
// free of one; see DESIGN.md.
type FunctionCall struct {
	Name   string
	Target Node // nil for a bare function-form call on the contextual input
	Args   []Node
	text   string
	pos    lexer.Position
}

func (*FunctionCall) node()                 {}
func (f *FunctionCall) Text() string        { return f.text }
func (f *FunctionCall) Pos() lexer.Position { return f.pos }

// NewFunctionCall constructs a FunctionCall node.
func NewFunctionCall(name string, target Node, args []Node, text string, pos lexer.Position) *FunctionCall {
	return &FunctionCall{Name: name, Target: target, Args: args, text: text, pos: pos}
}

// OperatorKind classifies an Operator node.
type OperatorKind int

const (
	OpBinary OperatorKind = iota // + - * / div mod &
	OpUnary                     // unary + - not
	OpComparison                // < > <= >=
	OpEquality                  // = != ~ !~
	OpLogical                   // and or xor implies
	OpUnion                     // |
	OpMembership                // in contains
)

// Operator is a binary or unary operator application. Children has length 1
// for OpUnary, length 2 otherwise.
type Operator struct {
	OperatorText string
	Kind         OperatorKind
	Children     []Node
	text         string
	pos          lexer.Position
}

func (*Operator) node()                 {}
func (o *Operator) Text() string        { return o.text }
func (o *Operator) Pos() lexer.Position { return o.pos }

// NewOperator constructs an Operator node.
func NewOperator(opText string, kind OperatorKind, children []Node, text string, pos lexer.Position) *Operator {
	return &Operator{OperatorText: opText, Kind: kind, Children: children, text: text, pos: pos}
}

// Conditional is an iif(condition, then[, else]) call, modeled as its own
// node kind rather than a FunctionCall. The translator lowers the condition
// and both branches into a single SQL conditional expression; a missing
// else-branch lowers to NULL.
type Conditional struct {
	Children []Node // [condition, then] or [condition, then, else]
	text     string
	pos      lexer.Position
}

func (*Conditional) node()                 {}
func (c *Conditional) Text() string        { return c.text }
func (c *Conditional) Pos() lexer.Position { return c.pos }

// NewConditional constructs a Conditional node.
func NewConditional(children []Node, text string, pos lexer.Position) *Conditional {
	return &Conditional{Children: children, text: text, pos: pos}
}

// AggregationFunction enumerates the closed set of aggregation roots.
type AggregationFunction int

const (
	AggCount AggregationFunction = iota
	AggSum
	AggMin
	AggMax
	AggAvg
	AggAllTrue
	AggAnyTrue
	AggAllFalse
	AggAnyFalse
)

// Aggregation is an aggregation-root function call (count, sum, min, max,
// average, allTrue, anyTrue, allFalse, anyFalse) applied to Target.
type Aggregation struct {
	Function AggregationFunction
	Target   Node
	text     string
	pos      lexer.Position
}

func (*Aggregation) node()                 {}
func (a *Aggregation) Text() string        { return a.text }
func (a *Aggregation) Pos() lexer.Position { return a.pos }

// NewAggregation constructs an Aggregation node.
func NewAggregation(fn AggregationFunction, target Node, text string, pos lexer.Position) *Aggregation {
	return &Aggregation{Function: fn, Target: target, text: text, pos: pos}
}

// TypeOperationKind distinguishes is/as/ofType.
type TypeOperationKind int

const (
	TypeIs TypeOperationKind = iota
	TypeAs
	TypeOfType
)

// TypeOperation is an `is`, `as`, or `ofType` application.
type TypeOperation struct {
	Operation  TypeOperationKind
	Target     Node
	TargetType string
	text       string
	pos        lexer.Position
}

func (*TypeOperation) node()                 {}
func (t *TypeOperation) Text() string        { return t.text }
func (t *TypeOperation) Pos() lexer.Position { return t.pos }

// NewTypeOperation constructs a TypeOperation node.
func NewTypeOperation(op TypeOperationKind, target Node, targetType, text string, pos lexer.Position) *TypeOperation {
	return &TypeOperation{Operation: op, Target: target, TargetType: targetType, text: text, pos: pos}
}
