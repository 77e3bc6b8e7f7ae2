package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/parser"
)

func parse(t *testing.T, src string) ast.Node {
	t.Helper()
	res, err := parser.Parse(src)
	require.NoError(t, err)
	return res.Root
}

func TestParseRootIdentifier(t *testing.T) {
	root := parse(t, "Patient")
	id, ok := root.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "Patient", id.Name)
	require.Nil(t, id.Target)
}

func TestParsePathChainNestsTargets(t *testing.T) {
	root := parse(t, "Patient.name.family")
	family, ok := root.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "family", family.Name)
	name, ok := family.Target.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "name", name.Name)
	patient, ok := name.Target.(*ast.Identifier)
	require.True(t, ok)
	require.Equal(t, "Patient", patient.Name)
	require.Nil(t, patient.Target)
}

func TestParseMethodCallBecomesFunctionCallWithTarget(t *testing.T) {
	root := parse(t, "Patient.name.first()")
	call, ok := root.(*ast.FunctionCall)
	require.True(t, ok)
	require.Equal(t, "first", call.Name)
	require.NotNil(t, call.Target)
	require.Empty(t, call.Args)
}

func TestParseFunctionFormIifBecomesConditional(t *testing.T) {
	root := parse(t, "iif(Patient.active, 'y', 'n')")
	cond, ok := root.(*ast.Conditional)
	require.True(t, ok)
	require.Len(t, cond.Children, 3)
}

func TestParseAggregationFunctionsRequireNoArgs(t *testing.T) {
	root := parse(t, "Patient.name.count()")
	agg, ok := root.(*ast.Aggregation)
	require.True(t, ok)
	require.Equal(t, ast.AggCount, agg.Function)
}

func TestParseAggregationNameWithArgsStaysFunctionCall(t *testing.T) {
	// count is only an Aggregation node when called with zero arguments;
	// called with an argument it falls back to a plain FunctionCall rather
	// than panicking.
	root := parse(t, "Patient.name.count(1)")
	_, ok := root.(*ast.Aggregation)
	require.False(t, ok)
}

func TestParseTypeOperationIs(t *testing.T) {
	root := parse(t, "Patient.active.is(Boolean)")
	op, ok := root.(*ast.TypeOperation)
	require.True(t, ok)
	require.Equal(t, ast.TypeIs, op.Operation)
	require.Equal(t, "Boolean", op.TargetType)
}

func TestParseTypeOperationAsInfixForm(t *testing.T) {
	root := parse(t, "Observation.value as Quantity")
	op, ok := root.(*ast.TypeOperation)
	require.True(t, ok)
	require.Equal(t, ast.TypeAs, op.Operation)
	require.Equal(t, "Quantity", op.TargetType)
}

func TestParseTypeOperationOfType(t *testing.T) {
	root := parse(t, "Observation.value.ofType(Quantity)")
	op, ok := root.(*ast.TypeOperation)
	require.True(t, ok)
	require.Equal(t, ast.TypeOfType, op.Operation)
}

func TestParseUnaryMinusIsOperatorNode(t *testing.T) {
	root := parse(t, "-5")
	op, ok := root.(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, ast.OpUnary, op.Kind)
	require.Len(t, op.Children, 1)
}

func TestParseUnaryBangIsOperatorNode(t *testing.T) {
	root := parse(t, "!Patient.active")
	op, ok := root.(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, ast.OpUnary, op.Kind)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	root := parse(t, "1 + 2 * 3")
	op, ok := root.(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, "+", op.OperatorText)
	require.Len(t, op.Children, 2)
	rhs, ok := op.Children[1].(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, "*", rhs.OperatorText)
}

func TestParseComparisonOperator(t *testing.T) {
	root := parse(t, "5 < 10")
	op, ok := root.(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, ast.OpComparison, op.Kind)
}

func TestParseEqualityOperator(t *testing.T) {
	root := parse(t, "Patient.active = true")
	op, ok := root.(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, ast.OpEquality, op.Kind)
}

func TestParseLogicalOperators(t *testing.T) {
	for _, expr := range []string{"true and false", "true or false", "true xor false", "false implies true"} {
		root := parse(t, expr)
		op, ok := root.(*ast.Operator)
		require.True(t, ok, expr)
		require.Equal(t, ast.OpLogical, op.Kind, expr)
	}
}

func TestParseMembershipOperators(t *testing.T) {
	root := parse(t, "5 in Patient.name")
	op, ok := root.(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, ast.OpMembership, op.Kind)
}

func TestParseUnionOperator(t *testing.T) {
	root := parse(t, "Patient.name | Patient.telecom")
	op, ok := root.(*ast.Operator)
	require.True(t, ok)
	require.Equal(t, ast.OpUnion, op.Kind)
}

func TestParseStringLiteralDecodesEscapes(t *testing.T) {
	root := parse(t, `'it''s here'`)
	lit, ok := root.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, ast.LiteralString, lit.Kind)
	require.Equal(t, "it's here", lit.Value)
}

func TestParseDateLiteralStripsAtPrefix(t *testing.T) {
	root := parse(t, "@2014-03-12")
	lit, ok := root.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, ast.LiteralDate, lit.Kind)
	require.Equal(t, "2014-03-12", lit.Value)
}

func TestParseThisVariable(t *testing.T) {
	root := parse(t, "Patient.name.where($this.use = 'official')")
	call, ok := root.(*ast.FunctionCall)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
}

func TestParseIndexerBecomesSyntheticFunctionCall(t *testing.T) {
	root := parse(t, "Patient.name[0]")
	call, ok := root.(*ast.FunctionCall)
	require.True(t, ok)
	require.Equal(t, "[]", call.Name)
	require.Len(t, call.Args, 1)
}

func TestParseCollectsFuncCallsAndPaths(t *testing.T) {
	res, err := parser.Parse("Patient.name.where(use = 'official').family")
	require.NoError(t, err)
	require.NotEmpty(t, res.FuncCalls)
	require.NotEmpty(t, res.Paths)
}

func TestParseEmptyCollectionLiteral(t *testing.T) {
	root := parse(t, "{}")
	lit, ok := root.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, ast.LiteralNull, lit.Kind)
}

func TestParseUnexpectedTokenIsError(t *testing.T) {
	_, err := parser.Parse("Patient.")
	require.Error(t, err)
}

func TestParseUnclosedParenIsError(t *testing.T) {
	_, err := parser.Parse("Patient.name.where(use = 'official'")
	require.Error(t, err)
}
