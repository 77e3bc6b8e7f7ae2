package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect/jsondialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/parser"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/sqlgen"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

func translate(t *testing.T, expr, resourceType string) []sqlgen.SQLFragment {
	t.Helper()
	res, err := parser.Parse(expr)
	require.NoError(t, err)
	reg, err := registry.NewDefaultRegistry()
	require.NoError(t, err)
	tr := sqlgen.New(jsondialect.New(), reg)
	frags, err := tr.Translate(res.Root, resourceType)
	require.NoError(t, err)
	return frags
}

func TestTranslateRootResourceReference(t *testing.T) {
	frags := translate(t, "Patient", "Patient")
	require.Len(t, frags, 1)
	require.Equal(t, "resource", frags[0].Expression)
}

func TestTranslateScalarElement(t *testing.T) {
	frags := translate(t, "Patient.active", "Patient")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "$.active")
}

func TestTranslateArrayElementMarksUnnest(t *testing.T) {
	frags := translate(t, "Patient.name", "Patient")
	require.True(t, frags[len(frags)-1].RequiresUnnest)
	require.Equal(t, "name_item", frags[len(frags)-1].Metadata[sqlgen.MetaResultAlias])
}

func TestTranslateNestedArrayNavigation(t *testing.T) {
	frags := translate(t, "Patient.name.given", "Patient")
	require.GreaterOrEqual(t, len(frags), 2)
	last := frags[len(frags)-1]
	require.True(t, last.RequiresUnnest)
	require.Contains(t, last.Metadata[sqlgen.MetaArrayColumn], "given")
}

func TestTranslateStringLiteral(t *testing.T) {
	frags := translate(t, "'it''s'", "Patient")
	require.Equal(t, "'it''s'", frags[0].Expression)
}

func TestTranslateBooleanLiteral(t *testing.T) {
	frags := translate(t, "true", "Patient")
	require.Equal(t, "TRUE", frags[0].Expression)
}

func TestTranslateArithmetic(t *testing.T) {
	frags := translate(t, "1 + 2", "Patient")
	require.Equal(t, "(1 + 2)", frags[0].Expression)
}

func TestTranslateDivisionGuardsZero(t *testing.T) {
	frags := translate(t, "1 / 0", "Patient")
	require.Contains(t, frags[0].Expression, "NULLIF")
}

func TestTranslateExistsWithoutPredicate(t *testing.T) {
	frags := translate(t, "Patient.name.exists()", "Patient")
	last := frags[len(frags)-1]
	require.NotEmpty(t, last.Expression)
}

func TestTranslateWhereBindsThis(t *testing.T) {
	frags := translate(t, "Patient.name.where($this.use = 'official')", "Patient")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "official")
}

func TestTranslateIif(t *testing.T) {
	frags := translate(t, "iif(Patient.active, 'y', 'n')", "Patient")
	last := frags[len(frags)-1]
	require.Equal(t, "iif", last.Metadata[sqlgen.MetaFunction])
}

func TestTranslateCountAggregation(t *testing.T) {
	frags := translate(t, "Patient.name.count()", "Patient")
	last := frags[len(frags)-1]
	require.True(t, last.IsAggregate)
}

func TestTranslateTypeIs(t *testing.T) {
	frags := translate(t, "Patient.active.is(Boolean)", "Patient")
	last := frags[len(frags)-1]
	require.NotEmpty(t, last.Expression)
}

func TestTranslateFunctionFormNormalizesToMethodForm(t *testing.T) {
	methodForm := translate(t, "Patient.name.first()", "Patient")
	functionForm := translate(t, "first(Patient.name)", "Patient")
	require.NotEmpty(t, methodForm)
	require.Equal(t, methodForm, functionForm)
}

func TestTranslateUnaryNot(t *testing.T) {
	frags := translate(t, "!Patient.active", "Patient")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "NOT")
}

func TestTranslateHighBoundaryUsesYearPrecisionForYearLiteral(t *testing.T) {
	frags := translate(t, "@2014.highBoundary()", "Patient")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "INTERVAL '1 year'")
}

func TestTranslateLowBoundaryTruncatesPartialLiteral(t *testing.T) {
	frags := translate(t, "@2014-03.lowBoundary()", "Patient")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "DATE_TRUNC('month'")
}

func TestTranslateComplexAsGuardsOnDiscriminatorFields(t *testing.T) {
	frags := translate(t, "Observation.value as Quantity", "Observation")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "valueQuantity.value")
	require.NotContains(t, last.Expression, "json_extract(resource, '$.valueQuantity') IS NOT NULL")
}

func TestTranslatePowerEmitsDomainGuard(t *testing.T) {
	frags := translate(t, "Patient.multipleBirthInteger.power(2)", "Patient")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "WHEN")
	require.Contains(t, last.Expression, "THEN 1")
	require.Contains(t, last.Expression, "pow(")
}

func TestTranslateIndexerProjectsNthElement(t *testing.T) {
	frags := translate(t, "Patient.name[0]", "Patient")
	last := frags[len(frags)-1]
	require.Contains(t, last.Expression, "ORDER BY v.ord ASC")
	require.Contains(t, last.Expression, "OFFSET 0")
	require.Contains(t, last.Expression, "LIMIT 1")
}
