package validator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/parser"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/validator"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

func mustParse(t *testing.T, expr string) *parser.Result {
	t.Helper()
	res, err := parser.Parse(expr)
	require.NoError(t, err, "expression %q must parse", expr)
	return res
}

func validate(t *testing.T, expr string, opts validator.Options) error {
	t.Helper()
	res := mustParse(t, expr)
	return validator.Validate(res.Text, res.Root, res.FuncCalls, res.Paths, opts)
}

func newReg(t *testing.T) registry.TypeRegistry {
	t.Helper()
	r, err := registry.NewDefaultRegistry()
	require.NoError(t, err)
	return r
}

func TestContextRootRule(t *testing.T) {
	require.NoError(t, validate(t, "Patient.name.given", validator.Options{ResourceType: "Patient"}))

	err := validate(t, "Encounter.status", validator.Options{ResourceType: "Patient"})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleContextRoot, ve.Rule)
}

func TestChoiceAliasRule(t *testing.T) {
	require.NoError(t, validate(t, "Observation.value.empty()", validator.Options{}))

	err := validate(t, "Observation.valueQuantity.value", validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleChoiceAlias, ve.Rule)
}

func TestDigitSuffixedIdentifierRule(t *testing.T) {
	require.NoError(t, validate(t, "Patient.name.given", validator.Options{}))

	err := validate(t, "Patient.given1", validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleDigitSuffixedIdentifier, ve.Rule)
}

func TestPeriodPropertyRule(t *testing.T) {
	require.NoError(t, validate(t, "Encounter.period.as(Period).start", validator.Options{}))

	err := validate(t, "Encounter.period.as(Period).value", validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RulePeriodProperty, ve.Rule)
}

func TestTimeLiteralTimezoneRule(t *testing.T) {
	require.NoError(t, validate(t, "@T10:00:00 = @T10:00:00", validator.Options{}))

	err := validate(t, "@T10:00:00Z = @T10:00:00Z", validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleTimeLiteralTimezone, ve.Rule)
}

func TestIncompleteExpressionRule(t *testing.T) {
	res := mustParse(t, "1 + 1")
	require.NoError(t, validator.Validate(res.Text, res.Root, res.FuncCalls, res.Paths, validator.Options{}))

	err := validator.Validate("Patient.name +", nil, nil, nil, validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleIncompleteExpression, ve.Rule)
}

func TestTemporalComparisonRule(t *testing.T) {
	require.NoError(t, validate(t, "@2020-01-01 = @2020-01-02", validator.Options{}))

	err := validate(t, "@T10:00:00 = @2020-01-01", validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleTemporalComparison, ve.Rule)
}

func TestFunctionNameRule(t *testing.T) {
	require.NoError(t, validate(t, "Patient.name.exists()", validator.Options{}))

	err := validate(t, "Patient.name.existz()", validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleFunctionName, ve.Rule)
	require.Contains(t, ve.Suggestions, "exists")
}

func TestLiteralArithmeticRule(t *testing.T) {
	require.NoError(t, validate(t, "1 + 2", validator.Options{}))

	err := validate(t, "'a' + 'b'", validator.Options{})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RuleLiteralArithmetic, ve.Rule)
}

func TestPathElementRule(t *testing.T) {
	reg := newReg(t)

	require.NoError(t, validate(t, "Patient.name.given", validator.Options{Reg: reg}))

	err := validate(t, "Patient.bogusField", validator.Options{Reg: reg})
	require.Error(t, err)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, validator.RulePathElement, ve.Rule)
}

func TestPathElementRuleSkippedForTypeChangingFunctions(t *testing.T) {
	reg := newReg(t)
	// bogusField would normally fail rule 10, but the ofType() call elsewhere
	// in the expression disables path-element checking for the whole thing.
	require.NoError(t, validate(t, "Patient.bogusField.exists() or Patient.name.ofType(HumanName)", validator.Options{Reg: reg}))
}

func TestPathElementRulePassesThroughBackboneElement(t *testing.T) {
	reg := newReg(t)
	require.NoError(t, validate(t, "Patient.contact.anythingAtAll", validator.Options{Reg: reg}))
}
