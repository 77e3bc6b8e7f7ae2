package fhirpath_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect/jsondialect"
	"github.com/fhir4ds/sqlcompiler/pkg/dialect/jsonbdialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

func newRegistry(t *testing.T) registry.TypeRegistry {
	t.Helper()
	reg, err := registry.NewDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func TestCompileProducesWithSelectSQL(t *testing.T) {
	reg := newRegistry(t)
	result, err := fhirpath.Compile("Patient.name.given", fhirpath.CompileContext{ResourceType: "Patient"}, jsondialect.New(), reg)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result.SQL, "WITH"))
	require.Contains(t, result.SQL, "SELECT * FROM "+result.Dependencies[len(result.Dependencies)-1])
	require.NotEmpty(t, result.Fragments)
}

func TestCompileRunsAgainstBothDialects(t *testing.T) {
	reg := newRegistry(t)
	ctx := fhirpath.CompileContext{ResourceType: "Patient"}

	jsonResult, err := fhirpath.Compile("Patient.active", ctx, jsondialect.New(), reg)
	require.NoError(t, err)

	jsonbResult, err := fhirpath.Compile("Patient.active", ctx, jsonbdialect.New(), reg)
	require.NoError(t, err)

	require.NotEqual(t, jsonResult.SQL, jsonbResult.SQL)
}

func TestCompileRejectsEmptyExpression(t *testing.T) {
	_, err := fhirpath.Compile("", fhirpath.CompileContext{ResourceType: "Patient"}, jsondialect.New(), newRegistry(t))
	require.Error(t, err)
}

func TestCompileRejectsMissingResourceType(t *testing.T) {
	_, err := fhirpath.Compile("Patient.active", fhirpath.CompileContext{}, jsondialect.New(), newRegistry(t))
	require.Error(t, err)
}

func TestCompileRejectsMismatchedRootResource(t *testing.T) {
	_, err := fhirpath.Compile("Observation.status", fhirpath.CompileContext{ResourceType: "Patient"}, jsondialect.New(), newRegistry(t))
	require.Error(t, err)
}

func TestCompileRejectsUnknownFunction(t *testing.T) {
	_, err := fhirpath.Compile("Patient.name.frobnicate()", fhirpath.CompileContext{ResourceType: "Patient"}, jsondialect.New(), newRegistry(t))
	require.Error(t, err)
}

func TestMustCompilePanicsOnError(t *testing.T) {
	require.Panics(t, func() {
		fhirpath.MustCompile("", fhirpath.CompileContext{ResourceType: "Patient"}, jsondialect.New(), newRegistry(t))
	})
}

func TestMustCompileReturnsResultOnSuccess(t *testing.T) {
	result := fhirpath.MustCompile("Patient.active", fhirpath.CompileContext{ResourceType: "Patient"}, jsondialect.New(), newRegistry(t))
	require.NotEmpty(t, result.SQL)
}
