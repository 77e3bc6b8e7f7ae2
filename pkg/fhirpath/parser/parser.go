// Package parser implements a hand-written lexer-fed, recursive-descent,
// operator-precedence parser for FHIRPath expressions.
//
// Precedence, loosest to tightest (spec.md §4.2):
//
//	implies
//	or / xor
//	and
//	equality            (= != ~ !~)
//	comparison          (< > <= >=)
//	in / contains
//	|
//	additive            (+ - &)
//	multiplicative      (* / div mod)
//	type                (is as)
//	unary               (+ - !)
//	postfix             (member ., index [], call ())
package parser

import (
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/lexer"
)

// FuncCallRef records one function-call site for the semantic validator.
type FuncCallRef struct {
	Name     string
	ArgCount int
	Pos      lexer.Position
}

// PathRef records one maximal dot-chain of plain identifiers (no function
// calls in between) for the semantic validator's path-element checks.
type PathRef struct {
	Components []string
	Pos        lexer.Position
}

// Result is everything the parser hands off to the semantic validator and
// translator: the AST root, the original text, and the flattened lists of
// function calls and identifier paths spec.md §4.3 validates against.
type Result struct {
	Root      ast.Node
	Text      string
	FuncCalls []FuncCallRef
	Paths     []PathRef
}

// Parser is a single-use recursive-descent parser over one token stream.
type Parser struct {
	tokens    []lexer.Token
	pos       int
	funcCalls []FuncCallRef
	paths     []PathRef
}

// Parse lexes and parses a FHIRPath expression into a Result.
func Parse(src string) (*Result, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.EOF) {
		return nil, newError(p.cur().Pos, "unexpected token %q after expression", p.cur().Text)
	}
	return &Result{Root: root, Text: src, FuncCalls: p.funcCalls, Paths: p.paths}, nil
}

func (p *Parser) cur() lexer.Token     { return p.tokens[p.pos] }
func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if t.Kind != lexer.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if !p.at(k) {
		return lexer.Token{}, newError(p.cur().Pos, "expected %s, got %q", what, p.cur().Text)
	}
	return p.advance(), nil
}

// --- precedence levels, loosest to tightest ---

func (p *Parser) parseExpression() (ast.Node, error) { return p.parseImplies() }

func (p *Parser) parseImplies() (ast.Node, error) {
	left, err := p.parseOrXor()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Implies) {
		tok := p.advance()
		right, err := p.parseOrXor()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator("implies", ast.OpLogical, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseOrXor() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Or) || p.at(lexer.Xor) {
		tok := p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator(tok.Text, ast.OpLogical, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.And) {
		tok := p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator("and", ast.OpLogical, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Equal) || p.at(lexer.NotEqual) || p.at(lexer.Equivalent) || p.at(lexer.NotTilde) {
		tok := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator(tok.Text, ast.OpEquality, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Node, error) {
	left, err := p.parseInContains()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Less) || p.at(lexer.Greater) || p.at(lexer.LessEqual) || p.at(lexer.GreaterEqual) {
		tok := p.advance()
		right, err := p.parseInContains()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator(tok.Text, ast.OpComparison, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseInContains() (ast.Node, error) {
	left, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.In) || p.at(lexer.Contains) {
		tok := p.advance()
		right, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator(tok.Text, ast.OpMembership, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseUnion() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Pipe) {
		tok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator("|", ast.OpUnion, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Plus) || p.at(lexer.Minus) || p.at(lexer.Ampersand) {
		tok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator(tok.Text, ast.OpBinary, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Star) || p.at(lexer.Slash) || p.at(lexer.Div) || p.at(lexer.Mod) {
		tok := p.advance()
		right, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperator(tok.Text, ast.OpBinary, []ast.Node{left, right}, tok.Text, tok.Pos)
	}
	return left, nil
}

func (p *Parser) parseTypeExpr() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Is) || p.at(lexer.As) {
		tok := p.advance()
		typeName, err := p.parseTypeSpecifier()
		if err != nil {
			return nil, err
		}
		kind := ast.TypeIs
		if tok.Kind == lexer.As {
			kind = ast.TypeAs
		}
		left = ast.NewTypeOperation(kind, left, typeName, tok.Text+" "+typeName, tok.Pos)
	}
	return left, nil
}

// parseTypeSpecifier consumes a (possibly namespaced) type name: Patient,
// FHIR.Patient, System.Boolean.
func (p *Parser) parseTypeSpecifier() (string, error) {
	tok, err := p.identifierLike()
	if err != nil {
		return "", newError(p.cur().Pos, "expected type name, got %q", p.cur().Text)
	}
	name := tok
	for p.at(lexer.Dot) {
		p.advance()
		next, err := p.identifierLike()
		if err != nil {
			return "", newError(p.cur().Pos, "expected type name component, got %q", p.cur().Text)
		}
		name = name + "." + next
	}
	return name, nil
}

func (p *Parser) identifierLike() (string, error) {
	if p.at(lexer.Identifier) || p.at(lexer.DelimitedIdentifier) {
		return p.advance().Text, nil
	}
	return "", newError(p.cur().Pos, "expected identifier")
}

func (p *Parser) parseUnary() (ast.Node, error) {
	if p.at(lexer.Plus) || p.at(lexer.Minus) || p.at(lexer.Bang) {
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		opText := tok.Text
		if opText == "!" {
			opText = "not"
		}
		return ast.NewOperator(opText, ast.OpUnary, []ast.Node{operand}, tok.Text, tok.Pos), nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(lexer.Dot):
			p.advance()
			node, err = p.parseInvocation(node)
			if err != nil {
				return nil, err
			}
		case p.at(lexer.LBracket):
			tok := p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
				return nil, err
			}
			node = ast.NewFunctionCall("[]", node, []ast.Node{idx}, tok.Text, tok.Pos)
		default:
			return node, nil
		}
	}
}

// parseInvocation parses the member/function name following a '.', chaining
// off of target (the already-parsed left-hand expression).
func (p *Parser) parseInvocation(target ast.Node) (ast.Node, error) {
	tok := p.cur()
	name, err := p.identifierLike()
	if err != nil {
		return nil, newError(tok.Pos, "expected member or function name after '.', got %q", tok.Text)
	}

	if p.at(lexer.LParen) {
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		p.funcCalls = append(p.funcCalls, FuncCallRef{Name: name, ArgCount: len(args), Pos: tok.Pos})
		return p.buildCall(name, target, args, tok), nil
	}

	p.recordPathStep(target, name, tok.Pos)
	return ast.NewIdentifier(name, target, name, tok.Pos), nil
}

// recordPathStep extends the maximal dot-chain of plain identifiers rooted
// at the base of target, or starts a new one if target isn't itself a plain
// identifier chain (e.g. it's a function call result).
func (p *Parser) recordPathStep(target ast.Node, name string, pos lexer.Position) {
	if len(p.paths) > 0 {
		last := &p.paths[len(p.paths)-1]
		if identChainEnd(target, last) {
			last.Components = append(last.Components, name)
			return
		}
	}
	components := []string{name}
	if id, ok := target.(*ast.Identifier); ok {
		components = append(flattenIdentifierChain(id), name)
	}
	p.paths = append(p.paths, PathRef{Components: components, Pos: pos})
}

func flattenIdentifierChain(id *ast.Identifier) []string {
	if id == nil {
		return nil
	}
	var out []string
	if parent, ok := id.Target.(*ast.Identifier); ok {
		out = flattenIdentifierChain(parent)
	}
	return append(out, id.Name)
}

func identChainEnd(target ast.Node, last *PathRef) bool {
	id, ok := target.(*ast.Identifier)
	if !ok {
		return false
	}
	chain := flattenIdentifierChain(id)
	if len(chain) != len(last.Components) {
		return false
	}
	for i := range chain {
		if chain[i] != last.Components[i] {
			return false
		}
	}
	return true
}

func (p *Parser) parseArgList() ([]ast.Node, error) {
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Node
	if !p.at(lexer.RParen) {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(lexer.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

// typeOperationFunctions are built-in names that take a single type-name
// argument and are normalized to ast.TypeOperation regardless of whether
// they were written as is(Type)/as(Type)/ofType(Type) or `X is Type`.
var typeOperationFunctions = map[string]ast.TypeOperationKind{
	"is":     ast.TypeIs,
	"as":     ast.TypeAs,
	"ofType": ast.TypeOfType,
}

var aggregationFunctions = map[string]ast.AggregationFunction{
	"count":    ast.AggCount,
	"sum":      ast.AggSum,
	"min":      ast.AggMin,
	"max":      ast.AggMax,
	"avg":      ast.AggAvg,
	"average":  ast.AggAvg,
	"allTrue":  ast.AggAllTrue,
	"anyTrue":  ast.AggAnyTrue,
	"allFalse": ast.AggAllFalse,
	"anyFalse": ast.AggAnyFalse,
}

func (p *Parser) buildCall(name string, target ast.Node, args []ast.Node, tok lexer.Token) ast.Node {
	if name == "iif" && len(args) >= 2 {
		return ast.NewConditional(args, tok.Text, tok.Pos)
	}
	if kind, ok := typeOperationFunctions[name]; ok && len(args) == 1 {
		if typeName := typeNameFromExpr(args[0]); typeName != "" {
			p.discardTrailingTypeArgumentPath(args[0])
			return ast.NewTypeOperation(kind, target, typeName, tok.Text, tok.Pos)
		}
	}
	if fn, ok := aggregationFunctions[name]; ok && len(args) == 0 {
		return ast.NewAggregation(fn, target, tok.Text, tok.Pos)
	}
	return ast.NewFunctionCall(name, target, args, tok.Text, tok.Pos)
}

// discardTrailingTypeArgumentPath removes the path entry recorded while
// parsing a type-operation's type-name argument (is(T)/as(T)/ofType(T)): that
// argument names a type, not a data navigation step, and must not feed the
// validator's path-element checks.
func (p *Parser) discardTrailingTypeArgumentPath(arg ast.Node) {
	if len(p.paths) == 0 {
		return
	}
	if p.paths[len(p.paths)-1].Pos == arg.Pos() {
		p.paths = p.paths[:len(p.paths)-1]
	}
}

// typeNameFromExpr extracts a dotted type name from an argument expression
// that the parser already parsed as an ordinary identifier chain (is(Type),
// as(Type), ofType(Type) all take their type argument in that position).
func typeNameFromExpr(n ast.Node) string {
	id, ok := n.(*ast.Identifier)
	if !ok {
		return ""
	}
	return strings.Join(flattenIdentifierChain(id), ".")
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Integer:
		p.advance()
		return ast.NewLiteral(ast.LiteralInteger, tok.Text, tok.Text, tok.Pos), nil
	case lexer.Decimal:
		p.advance()
		return ast.NewLiteral(ast.LiteralDecimal, tok.Text, tok.Text, tok.Pos), nil
	case lexer.String:
		p.advance()
		return ast.NewLiteral(ast.LiteralString, tok.Text, "'"+tok.Text+"'", tok.Pos), nil
	case lexer.Boolean:
		p.advance()
		return ast.NewLiteral(ast.LiteralBoolean, tok.Text, tok.Text, tok.Pos), nil
	case lexer.DateLiteral:
		p.advance()
		return ast.NewLiteral(ast.LiteralDate, tok.Text, "@"+tok.Text, tok.Pos), nil
	case lexer.DateTimeLiteral:
		p.advance()
		return ast.NewLiteral(ast.LiteralDateTime, tok.Text, "@"+tok.Text, tok.Pos), nil
	case lexer.TimeLiteral:
		p.advance()
		return ast.NewLiteral(ast.LiteralTime, tok.Text, "@"+tok.Text, tok.Pos), nil
	case lexer.ThisVar:
		p.advance()
		return ast.NewVariable("this", "$this", tok.Pos), nil
	case lexer.IndexVar:
		p.advance()
		return ast.NewVariable("index", "$index", tok.Pos), nil
	case lexer.TotalVar:
		p.advance()
		return ast.NewVariable("total", "$total", tok.Pos), nil
	case lexer.NamedVar:
		p.advance()
		return ast.NewVariable(tok.Text, "$"+tok.Text, tok.Pos), nil
	case lexer.ExternalConst:
		p.advance()
		return ast.NewVariable("%"+tok.Text, "%"+tok.Text, tok.Pos), nil
	case lexer.LParen:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.LBrace:
		return p.parseEmptyCollection()
	case lexer.Identifier, lexer.DelimitedIdentifier:
		name := p.advance().Text
		if p.at(lexer.LParen) {
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			p.funcCalls = append(p.funcCalls, FuncCallRef{Name: name, ArgCount: len(args), Pos: tok.Pos})
			return p.buildCall(name, nil, args, tok), nil
		}
		p.recordPathStep(nil, name, tok.Pos)
		return ast.NewIdentifier(name, nil, name, tok.Pos), nil
	}

	return nil, newError(tok.Pos, "unexpected token %q", tok.Text)
}

func (p *Parser) parseEmptyCollection() (ast.Node, error) {
	tok := p.advance()
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return ast.NewLiteral(ast.LiteralNull, "", tok.Text, tok.Pos), nil
}
