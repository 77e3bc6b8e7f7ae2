package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

func newRegistry(t *testing.T) *registry.DefaultRegistry {
	t.Helper()
	r, err := registry.NewDefaultRegistry()
	require.NoError(t, err)
	return r
}

func TestIsRegisteredType(t *testing.T) {
	r := newRegistry(t)
	require.True(t, r.IsRegisteredType("Patient"))
	require.True(t, r.IsRegisteredType("HumanName"))
	require.True(t, r.IsRegisteredType("boolean"))
	require.False(t, r.IsRegisteredType("NotAType"))
}

func TestProfileAliasCanonicalizesToQuantity(t *testing.T) {
	r := newRegistry(t)
	require.Equal(t, "Quantity", r.GetCanonicalName("Age"))
	require.Equal(t, "Quantity", r.GetCanonicalName("Duration"))
	require.Equal(t, "boolean", r.GetCanonicalName("System.Boolean"))
}

func TestGetElementTypeWalksBaseType(t *testing.T) {
	r := newRegistry(t)
	typ, ok := r.GetElementType("Patient", "id")
	require.True(t, ok)
	require.Equal(t, "id", typ)

	typ, ok = r.GetElementType("Patient", "extension")
	require.True(t, ok)
	require.Equal(t, "Extension", typ)
}

func TestGetElementTypeDirect(t *testing.T) {
	r := newRegistry(t)
	typ, ok := r.GetElementType("Patient", "name")
	require.True(t, ok)
	require.Equal(t, "HumanName", typ)
	require.True(t, r.IsArrayElement("Patient", "name"))
	require.False(t, r.IsArrayElement("Patient", "birthDate"))
}

func TestChoiceElementResolution(t *testing.T) {
	r := newRegistry(t)

	typ, ok := r.GetElementType("Observation", "valueQuantity")
	require.True(t, ok)
	require.Equal(t, "Quantity", typ)

	typ, ok = r.GetElementType("Observation", "valueString")
	require.True(t, ok)
	require.Equal(t, "string", typ)

	_, ok = r.GetElementType("Observation", "valueBogus")
	require.False(t, ok)
}

func TestExpandChoiceElement(t *testing.T) {
	r := newRegistry(t)
	variants, ok := r.ExpandChoiceElement("Observation", "value")
	require.True(t, ok)
	require.Contains(t, variants, "valueQuantity")
	require.Contains(t, variants, "valueString")
	require.Equal(t, len(registry.ChoiceSuffixes), len(variants))

	_, ok = r.ExpandChoiceElement("Observation", "status")
	require.False(t, ok)
}

func TestDiscriminatorFields(t *testing.T) {
	r := newRegistry(t)
	require.Equal(t, []string{"value"}, r.DiscriminatorFields("Quantity"))
	require.Equal(t, []string{"coding"}, r.DiscriminatorFields("CodeableConcept"))
	require.Equal(t, []string{"numerator", "denominator"}, r.DiscriminatorFields("Ratio"))
}

func TestCategoryOf(t *testing.T) {
	r := newRegistry(t)
	cat, ok := r.CategoryOf("Patient")
	require.True(t, ok)
	require.Equal(t, registry.CategoryResource, cat)

	cat, ok = r.CategoryOf("Quantity")
	require.True(t, ok)
	require.Equal(t, registry.CategoryComplex, cat)

	cat, ok = r.CategoryOf("boolean")
	require.True(t, ok)
	require.Equal(t, registry.CategoryPrimitive, cat)
}

func TestGetAllTypeNamesIncludesFixtureEntries(t *testing.T) {
	r := newRegistry(t)
	names := r.GetAllTypeNames()
	require.Contains(t, names, "Patient")
	require.Contains(t, names, "Observation")
	require.Contains(t, names, "Quantity")
}
