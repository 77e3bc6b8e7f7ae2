package validator

import (
	"strings"
	"unicode"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/lexer"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/parser"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

// FuncCall and PathRef are the parser's collected call-site and path-step
// lists, reused verbatim — the validator has no reason to duplicate them.
type FuncCall = parser.FuncCallRef
type PathRef = parser.PathRef

// Options carries the caller-supplied context Validate checks against. Reg
// is nil-able: supplying nil skips rule 10 (path element validation) since
// there is nothing to validate paths against.
type Options struct {
	ResourceType string
	Reg          registry.TypeRegistry
}

// builtinFunctions is the closed, case-insensitive set of function names the
// translator knows how to lower. Keys are lowercase; values are the
// canonical casing reported in error messages.
var builtinFunctions = buildBuiltinSet(
	"where", "select", "all", "any", "exists", "empty", "count", "distinct",
	"combine", "first", "last", "tail", "skip", "take", "single", "iif",
	"convertsToBoolean", "toBoolean", "convertsToInteger", "toInteger",
	"convertsToDecimal", "toDecimal", "convertsToString", "toString",
	"convertsToQuantity", "toQuantity", "convertsToDate", "toDate",
	"convertsToDateTime", "toDateTime", "convertsToTime", "toTime",
	"startsWith", "endsWith", "contains", "substring", "length", "upper",
	"lower", "matches", "replace", "replaceMatches", "split", "join",
	"indexOf", "toChars", "abs", "ceiling", "exp", "floor", "ln", "log",
	"power", "round", "sqrt", "truncate", "is", "as", "ofType", "conformsTo",
	"now", "today", "exclude", "isDistinct", "intersect", "repeat",
	"aggregate", "extension", "allTrue", "anyTrue", "allFalse", "anyFalse",
	"sum", "average", "subsetOf", "supersetOf",
)

func buildBuiltinSet(names ...string) map[string]string {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = n
	}
	return m
}

// typeChangingFunctionNames suppresses rule 10 (path element validation) for
// every path of an expression once one of these appears anywhere in it:
// once a value has been re-typed by one of these, the registry's static
// element table for the original path no longer applies.
var typeChangingFunctionNames = map[string]bool{
	"oftype": true, "as": true, "astype": true, "convertsto": true,
}

// Validate runs the ten semantic rules in order against a parsed expression,
// short-circuiting and returning on the first violation.
func Validate(text string, root ast.Node, funcCalls []FuncCall, paths []PathRef, opts Options) error {
	if err := checkContextRoot(root, opts); err != nil {
		return err
	}
	if err := checkChoiceAlias(paths); err != nil {
		return err
	}
	if err := checkDigitSuffixedIdentifiers(paths); err != nil {
		return err
	}
	if err := checkPeriodProperty(root); err != nil {
		return err
	}
	if err := checkTimeLiteralTimezone(root); err != nil {
		return err
	}
	if err := checkIncompleteExpression(text); err != nil {
		return err
	}
	if err := checkTemporalComparison(root); err != nil {
		return err
	}
	if err := checkFunctionNames(funcCalls); err != nil {
		return err
	}
	if err := checkLiteralArithmetic(root); err != nil {
		return err
	}
	if err := checkPathElements(funcCalls, paths, opts); err != nil {
		return err
	}
	return nil
}

// walk visits node and every descendant reachable through its child fields.
func walk(node ast.Node, visit func(ast.Node)) {
	if node == nil {
		return
	}
	visit(node)
	switch n := node.(type) {
	case *ast.Identifier:
		walk(n.Target, visit)
	case *ast.FunctionCall:
		walk(n.Target, visit)
		for _, a := range n.Args {
			walk(a, visit)
		}
	case *ast.Operator:
		for _, c := range n.Children {
			walk(c, visit)
		}
	case *ast.Conditional:
		for _, c := range n.Children {
			walk(c, visit)
		}
	case *ast.Aggregation:
		walk(n.Target, visit)
	case *ast.TypeOperation:
		walk(n.Target, visit)
	}
}

// leftmostIdentifier finds the identifier at the root of node's leftmost
// descendant chain — the "absolute root" an expression like
// `Encounter.status` or `Patient.name.where(...)` starts from.
func leftmostIdentifier(node ast.Node) *ast.Identifier {
	switch n := node.(type) {
	case *ast.Identifier:
		if n.Target == nil {
			return n
		}
		return leftmostIdentifier(n.Target)
	case *ast.FunctionCall:
		if n.Target != nil {
			return leftmostIdentifier(n.Target)
		}
		if len(n.Args) > 0 {
			return leftmostIdentifier(n.Args[0])
		}
	case *ast.Operator:
		if len(n.Children) > 0 {
			return leftmostIdentifier(n.Children[0])
		}
	case *ast.Conditional:
		if len(n.Children) > 0 {
			return leftmostIdentifier(n.Children[0])
		}
	case *ast.Aggregation:
		if n.Target != nil {
			return leftmostIdentifier(n.Target)
		}
	case *ast.TypeOperation:
		if n.Target != nil {
			return leftmostIdentifier(n.Target)
		}
	}
	return nil
}

func isUpperFirst(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsUpper(rune(s[0]))
}

// --- Rule 1: context root check ---

func checkContextRoot(root ast.Node, opts Options) error {
	if opts.ResourceType == "" {
		return nil
	}
	id := leftmostIdentifier(root)
	if id == nil || !isUpperFirst(id.Name) {
		return nil
	}
	if id.Name != opts.ResourceType {
		return newViolation(RuleContextRoot, id.Pos(),
			"expression root %q does not match the supplied resource type %q", id.Name, opts.ResourceType)
	}
	return nil
}

// --- Rule 2: choice-alias block ---

func checkChoiceAlias(paths []PathRef) error {
	for _, p := range paths {
		for _, comp := range p.Components {
			if suffix, ok := choiceAliasSuffix(comp); ok {
				return newViolation(RuleChoiceAlias, p.Pos,
					"%q accesses a choice-type alias directly; use as(%s) or ofType(%s) instead", comp, suffix, suffix)
			}
		}
	}
	return nil
}

// choiceAliasSuffix reports whether name looks like `<prefix><Suffix>` for
// one of the registered choice-type suffixes, with a non-empty lowercase
// prefix. The bare generic `.value` is explicitly not an alias.
func choiceAliasSuffix(name string) (string, bool) {
	if name == "value" {
		return "", false
	}
	for _, suffix := range registry.ChoiceSuffixes {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		prefix := strings.TrimSuffix(name, suffix)
		if prefix == "" || !unicode.IsLower(rune(prefix[0])) {
			continue
		}
		return suffix, true
	}
	return "", false
}

// --- Rule 3: digit-suffixed identifiers ---

func checkDigitSuffixedIdentifiers(paths []PathRef) error {
	for _, p := range paths {
		for _, comp := range p.Components {
			if comp == "" {
				continue
			}
			last := comp[len(comp)-1]
			if last >= '0' && last <= '9' {
				return newViolation(RuleDigitSuffixedIdentifier, p.Pos,
					"%q ends in a digit; no FHIR element name does", comp)
			}
		}
	}
	return nil
}

// --- Rule 6: incomplete expressions ---

var trailingBinaryOperator = []string{
	"+", "-", "*", "/", "&", "|", "=", "!=", "~", "!~", "<", ">", "<=", ">=",
}

var trailingWordOperator = []string{
	"and", "or", "xor", "implies", "div", "mod", "in", "contains", "is", "as",
}

func checkIncompleteExpression(text string) error {
	trimmed := strings.TrimRight(text, " \t\n\r")
	if trimmed == "" {
		return newViolation(RuleIncompleteExpression, lexer.Position{Line: 1, Column: 1}, "expression is empty")
	}
	for _, op := range trailingBinaryOperator {
		if strings.HasSuffix(trimmed, op) {
			return newViolation(RuleIncompleteExpression, endPosition(trimmed),
				"expression ends with the bare operator %q", op)
		}
	}
	fields := strings.Fields(trimmed)
	if len(fields) > 0 {
		last := fields[len(fields)-1]
		for _, op := range trailingWordOperator {
			if last == op {
				return newViolation(RuleIncompleteExpression, endPosition(trimmed),
					"expression ends with the bare operator %q", op)
			}
		}
	}
	return nil
}

func endPosition(text string) lexer.Position {
	line := 1 + strings.Count(text, "\n")
	col := len(text) - strings.LastIndex(text, "\n")
	return lexer.Position{Line: line, Column: col}
}

// --- Rule 8: function name validation ---

func checkFunctionNames(funcCalls []FuncCall) error {
	for _, call := range funcCalls {
		key := strings.ToLower(call.Name)
		if _, ok := builtinFunctions[key]; ok {
			continue
		}
		err := newViolation(RuleFunctionName, call.Pos, "unknown function %q", call.Name)
		err.Suggestions = suggestFunctionNames(call.Name)
		return err
	}
	return nil
}

func suggestFunctionNames(name string) []string {
	type candidate struct {
		canonical string
		distance  int
	}
	var candidates []candidate
	for _, canonical := range builtinFunctions {
		d := levenshtein(strings.ToLower(name), strings.ToLower(canonical))
		if d <= 3 {
			candidates = append(candidates, candidate{canonical, d})
		}
	}
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].distance < candidates[j-1].distance; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	var out []string
	for i, c := range candidates {
		if i >= 3 {
			break
		}
		out = append(out, c.canonical)
	}
	return out
}

// --- Rule 9: literal arithmetic ---

var arithmeticOperators = map[string]bool{"+": true, "-": true, "*": true, "/": true}

func checkLiteralArithmetic(root ast.Node) error {
	var found error
	walk(root, func(n ast.Node) {
		if found != nil {
			return
		}
		op, ok := n.(*ast.Operator)
		if !ok || op.Kind != ast.OpBinary || !arithmeticOperators[op.OperatorText] {
			return
		}
		for _, child := range op.Children {
			if lit, ok := child.(*ast.Literal); ok && lit.Kind == ast.LiteralString {
				found = newViolation(RuleLiteralArithmetic, op.Pos(),
					"operator %q cannot be applied to a string literal; use '&' to concatenate", op.OperatorText)
				return
			}
		}
	})
	return found
}

// levenshtein computes the classic edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
