package sqlgen

import (
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

// visitResult is what every visit_* method returns. appended is true when
// the fragment was already pushed onto the translator's fragment list by
// the visit method itself (array navigation does this so the unnest step
// becomes its own CTE); Translate only appends the root result when it
// wasn't already appended this way.
type visitResult struct {
	frag     SQLFragment
	appended bool
}

func scalar(frag SQLFragment) (visitResult, error) { return visitResult{frag: frag}, nil }

// funcLowering lowers one function-call family member. target is already
// normalized (see normalizeCall): method-form and function-form calls both
// arrive with target set and args holding only the explicit extras.
type funcLowering func(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error)

var funcLowerings = map[string]funcLowering{}

// RegisterFunction installs a lowering for a built-in function name. Family
// files call this from their own init().
func RegisterFunction(name string, fn funcLowering) {
	funcLowerings[strings.ToLower(name)] = fn
}

// Translator lowers one AST into a flat SQLFragment list against a single
// dialect and registry. One Translator is used for exactly one Translate
// call; it holds no state that should outlive that call.
type Translator struct {
	dialect   dialect.Dialect
	registry  registry.TypeRegistry
	ctx       *TranslationContext
	fragments []SQLFragment
}

// New constructs a Translator over a dialect and registry. reg may be nil;
// path-typed lowering (array detection, choice-type resolution) then
// degrades to treating every step as scalar.
func New(d dialect.Dialect, reg registry.TypeRegistry) *Translator {
	return &Translator{dialect: d, registry: reg}
}

// Translate resets the translator's context and fragment list, lowers root,
// and returns every fragment emitted, in emission order, with the final
// fragment last.
func (t *Translator) Translate(root ast.Node, resourceType string) ([]SQLFragment, error) {
	t.ctx = newContext(resourceType)
	t.fragments = nil

	res, err := t.translate(root)
	if err != nil {
		return nil, err
	}
	if !res.appended {
		if !res.frag.Valid() {
			return nil, translationErrorf(root.Text(), "lowering produced an empty fragment")
		}
		t.fragments = append(t.fragments, res.frag)
	}
	return t.fragments, nil
}

func (t *Translator) translate(node ast.Node) (visitResult, error) {
	switch n := node.(type) {
	case nil:
		return visitResult{}, translationErrorf("", "cannot translate a nil node")
	case *ast.Literal:
		return t.visitLiteral(n)
	case *ast.Identifier:
		return t.visitIdentifier(n)
	case *ast.Variable:
		return t.visitVariable(n)
	case *ast.FunctionCall:
		return t.visitFunctionCall(n)
	case *ast.Operator:
		return t.visitOperator(n)
	case *ast.Conditional:
		return t.visitConditional(n)
	case *ast.Aggregation:
		return t.visitAggregation(n)
	case *ast.TypeOperation:
		return t.visitTypeOperation(n)
	default:
		return visitResult{}, translationErrorf(node.Text(), "unknown AST node kind %T", node)
	}
}

// --- literal ---

func (t *Translator) visitLiteral(lit *ast.Literal) (visitResult, error) {
	switch lit.Kind {
	case ast.LiteralNull:
		return scalar(NewFragment("NULL", t.ctx.CurrentTable))
	case ast.LiteralBoolean:
		if lit.Value == "true" {
			return scalar(NewFragment("TRUE", t.ctx.CurrentTable))
		}
		return scalar(NewFragment("FALSE", t.ctx.CurrentTable))
	case ast.LiteralInteger, ast.LiteralDecimal:
		return scalar(NewFragment(lit.Value, t.ctx.CurrentTable))
	case ast.LiteralString:
		return scalar(NewFragment(quoteSQLString(lit.Value), t.ctx.CurrentTable))
	case ast.LiteralDate:
		expr, err := t.dialect.GenerateDateLiteral(lit.Value)
		if err != nil {
			return visitResult{}, translationErrorf(lit.Text(), "%s", err)
		}
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	case ast.LiteralDateTime:
		expr, err := t.dialect.GenerateDateTimeLiteral(lit.Value)
		if err != nil {
			return visitResult{}, translationErrorf(lit.Text(), "%s", err)
		}
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	case ast.LiteralTime:
		expr, err := t.dialect.GenerateDateTimeLiteral(lit.Value)
		if err != nil {
			return visitResult{}, translationErrorf(lit.Text(), "%s", err)
		}
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	default:
		return visitResult{}, translationErrorf(lit.Text(), "unknown literal kind %d", lit.Kind)
	}
}

func quoteSQLString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// --- identifier / path navigation ---

func (t *Translator) visitIdentifier(id *ast.Identifier) (visitResult, error) {
	if id.Target != nil {
		if _, err := t.translate(id.Target); err != nil {
			return visitResult{}, err
		}
	}
	if id.Target == nil && id.Name == t.ctx.ResourceType {
		return scalar(NewFragment(t.ctx.CurrentTable, t.ctx.CurrentTable))
	}

	isArray := t.registry != nil && t.registry.IsArrayElement(t.ctx.CurrentType, id.Name)
	elemType, hasType := "", false
	if t.registry != nil {
		elemType, hasType = t.registry.GetElementType(t.ctx.CurrentType, id.Name)
		// A `<name>[x]` choice element keeps CurrentType on its owner, so a
		// following as() can expand the element into its variants.
		if _, isChoice := t.registry.ExpandChoiceElement(t.ctx.CurrentType, id.Name); isChoice {
			hasType = false
		}
	}

	if !isArray {
		t.ctx.ParentPath = append(t.ctx.ParentPath, id.Name)
		path := "$." + t.ctx.JoinedPath()
		frag := NewFragment(t.dialect.ExtractJSONField(t.ctx.CurrentTable, path), t.ctx.CurrentTable)
		frag = frag.WithMeta(MetaSourcePath, path)
		if hasType {
			t.ctx.CurrentType = t.registry.GetCanonicalName(elemType)
		}
		return scalar(frag)
	}

	t.ctx.ParentPath = append(t.ctx.ParentPath, id.Name)
	arrayPath := "$." + t.ctx.JoinedPath() + "[*]"
	alias := t.ctx.UniqueAlias(id.Name + "_item")
	level := len(t.ctx.ParentPath)

	lateral := t.dialect.GenerateLateralUnnest(t.ctx.CurrentTable, t.dialect.ExtractJSONObject(t.ctx.CurrentTable, arrayPath), alias)
	frag := NewFragment(lateral, t.ctx.CurrentTable)
	frag.RequiresUnnest = true
	frag = frag.
		WithMeta(MetaArrayColumn, arrayPath).
		WithMeta(MetaResultAlias, alias).
		WithMeta(MetaIDColumn, t.ctx.CurrentTable+".id").
		WithMeta(MetaSourcePath, arrayPath).
		WithMeta(MetaUnnestLevel, level).
		WithMeta(MetaProjectionExpression, alias+".unnest")

	t.fragments = append(t.fragments, frag)
	t.ctx.CurrentTable = alias
	t.ctx.ParentPath = nil
	if hasType {
		t.ctx.CurrentType = t.registry.GetCanonicalName(elemType)
	}
	return visitResult{frag: frag, appended: true}, nil
}

func (t *Translator) visitVariable(v *ast.Variable) (visitResult, error) {
	binding, ok := t.ctx.Variables[v.Name]
	if !ok {
		return visitResult{}, translationErrorf(v.Text(), "unbound variable %q", v.Name)
	}
	return scalar(NewFragment(binding.SQLAlias, t.ctx.CurrentTable))
}

// --- operator ---

func (t *Translator) visitOperator(op *ast.Operator) (visitResult, error) {
	if op.Kind == ast.OpUnary {
		operand, err := t.translate(op.Children[0])
		if err != nil {
			return visitResult{}, err
		}
		switch op.OperatorText {
		case "-":
			return scalar(NewFragment("(-"+operand.frag.Expression+")", t.ctx.CurrentTable))
		case "not", "!":
			return scalar(NewFragment("(NOT "+operand.frag.Expression+")", t.ctx.CurrentTable))
		case "+":
			return scalar(operand.frag)
		default:
			return visitResult{}, translationErrorf(op.Text(), "unknown unary operator %q", op.OperatorText)
		}
	}

	if len(op.Children) != 2 {
		return visitResult{}, translationErrorf(op.Text(), "operator %q requires two operands", op.OperatorText)
	}
	left, err := t.translate(op.Children[0])
	if err != nil {
		return visitResult{}, err
	}
	right, err := t.translate(op.Children[1])
	if err != nil {
		return visitResult{}, err
	}
	l, r := left.frag.Expression, right.frag.Expression

	switch op.Kind {
	case ast.OpComparison, ast.OpEquality:
		expr, err := t.dialect.GenerateComparison(l, op.OperatorText, r)
		if err != nil {
			return visitResult{}, translationErrorf(op.Text(), "%s", err)
		}
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	case ast.OpLogical:
		return t.visitLogicalOperator(op, l, r)
	case ast.OpUnion:
		frag := NewFragment("(SELECT * FROM ("+l+") u1 UNION ALL SELECT * FROM ("+r+") u2)", t.ctx.CurrentTable)
		frag = frag.WithMeta(MetaIsCollection, true)
		return scalar(frag)
	case ast.OpMembership:
		switch op.OperatorText {
		case "in":
			return scalar(NewFragment("("+l+" IN "+r+")", t.ctx.CurrentTable))
		case "contains":
			return scalar(NewFragment("("+r+" IN "+l+")", t.ctx.CurrentTable))
		}
		return visitResult{}, translationErrorf(op.Text(), "unknown membership operator %q", op.OperatorText)
	case ast.OpBinary:
		return t.visitBinaryOperator(op, l, r)
	default:
		return visitResult{}, translationErrorf(op.Text(), "unknown operator kind")
	}
}

func (t *Translator) visitLogicalOperator(op *ast.Operator, l, r string) (visitResult, error) {
	switch op.OperatorText {
	case "and", "or":
		expr, err := t.dialect.GenerateLogicalCombine(l, op.OperatorText, r)
		if err != nil {
			return visitResult{}, translationErrorf(op.Text(), "%s", err)
		}
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	case "xor":
		expr := "((" + l + " AND NOT " + r + ") OR (NOT " + l + " AND " + r + "))"
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	case "implies":
		expr := "((NOT " + l + ") OR " + r + ")"
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	default:
		return visitResult{}, translationErrorf(op.Text(), "unknown logical operator %q", op.OperatorText)
	}
}

func (t *Translator) visitBinaryOperator(op *ast.Operator, l, r string) (visitResult, error) {
	switch op.OperatorText {
	case "+", "-", "*":
		return scalar(NewFragment("("+l+" "+op.OperatorText+" "+r+")", t.ctx.CurrentTable))
	case "&":
		lStr := "COALESCE(" + t.dialect.TryCast(l, "TEXT") + ", '')"
		rStr := "COALESCE(" + t.dialect.TryCast(r, "TEXT") + ", '')"
		return scalar(NewFragment(t.dialect.StringConcat(lStr, rStr), t.ctx.CurrentTable))
	case "/":
		expr := "(" + l + " / NULLIF(" + r + ", 0))"
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	case "div":
		expr := "CAST((" + l + " / NULLIF(" + r + ", 0)) AS INTEGER)"
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	case "mod":
		expr := "(" + l + " % NULLIF(" + r + ", 0))"
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	default:
		return visitResult{}, translationErrorf(op.Text(), "unknown binary operator %q", op.OperatorText)
	}
}

// --- conditional ---

func (t *Translator) visitConditional(c *ast.Conditional) (visitResult, error) {
	if len(c.Children) < 2 {
		return visitResult{}, translationErrorf(c.Text(), "iif requires at least a condition and a then-branch")
	}
	cond, err := t.translate(c.Children[0])
	if err != nil {
		return visitResult{}, err
	}
	then, err := t.translate(c.Children[1])
	if err != nil {
		return visitResult{}, err
	}
	elseExpr := "NULL"
	if len(c.Children) > 2 {
		elseRes, err := t.translate(c.Children[2])
		if err != nil {
			return visitResult{}, err
		}
		elseExpr = elseRes.frag.Expression
	}
	expr := t.dialect.GenerateConditionalExpression(cond.frag.Expression, then.frag.Expression, elseExpr)
	frag := NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaFunction, "iif")
	return scalar(frag)
}

// --- aggregation root ---

var aggregationNames = map[ast.AggregationFunction]string{
	ast.AggCount:    "count",
	ast.AggSum:      "sum",
	ast.AggMin:      "min",
	ast.AggMax:      "max",
	ast.AggAvg:      "avg",
	ast.AggAllTrue:  "allTrue",
	ast.AggAnyTrue:  "anyTrue",
	ast.AggAllFalse: "allFalse",
	ast.AggAnyFalse: "anyFalse",
}

func (t *Translator) visitAggregation(a *ast.Aggregation) (visitResult, error) {
	target, err := t.translate(a.Target)
	if err != nil {
		return visitResult{}, err
	}
	name, ok := aggregationNames[a.Function]
	if !ok {
		return visitResult{}, translationErrorf(a.Text(), "unknown aggregation function")
	}
	expr, err := t.dialect.GenerateAggregateFunction(name, target.frag.Expression, false, "")
	if err != nil {
		return visitResult{}, translationErrorf(a.Text(), "%s", err)
	}
	frag := NewFragment(expr, t.ctx.CurrentTable)
	frag.IsAggregate = true
	frag = frag.WithMeta(MetaFunction, name)
	return scalar(frag)
}

// --- function call normalization ---

// normalizeCall applies the method-form/function-form rule from §4.4's
// "context-vs-argument semantics": a function-form call fn(arg0, arg1, …)
// treats arg0 as the input and the rest as explicit arguments, exactly like
// the method form arg0.fn(arg1, …).
func normalizeCall(call *ast.FunctionCall) (ast.Node, []ast.Node) {
	if call.Target != nil {
		return call.Target, call.Args
	}
	if len(call.Args) == 0 {
		return nil, nil
	}
	return call.Args[0], call.Args[1:]
}

func (t *Translator) visitFunctionCall(call *ast.FunctionCall) (visitResult, error) {
	target, args := normalizeCall(call)
	lowering, ok := funcLowerings[strings.ToLower(call.Name)]
	if !ok {
		return visitResult{}, translationErrorf(call.Text(), "no lowering registered for function %q", call.Name)
	}
	return lowering(t, target, args, call)
}

// translateTarget lowers a function call's target, defaulting to the
// current contextual expression when the call is a bare function-form call
// with nothing to normalize into a target (e.g. today(), now()).
func (t *Translator) translateTarget(target ast.Node) (SQLFragment, error) {
	if target == nil {
		return NewFragment(t.ctx.CurrentTable, t.ctx.CurrentTable), nil
	}
	res, err := t.translate(target)
	if err != nil {
		return SQLFragment{}, err
	}
	return res.frag, nil
}
