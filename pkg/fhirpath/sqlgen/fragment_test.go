package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/sqlgen"
)

func TestFragmentValidRejectsEmptyExpression(t *testing.T) {
	f := sqlgen.NewFragment("   ", "resource")
	require.False(t, f.Valid())
}

func TestFragmentValidRejectsUnnestAndAggregateTogether(t *testing.T) {
	f := sqlgen.NewFragment("count(*)", "resource")
	f.RequiresUnnest = true
	f.IsAggregate = true
	require.False(t, f.Valid())
}

func TestFragmentValidAcceptsOrdinaryFragment(t *testing.T) {
	f := sqlgen.NewFragment("json_extract(resource, '$.active')", "resource")
	require.True(t, f.Valid())
}

func TestFragmentWithMetaIsChainable(t *testing.T) {
	f := sqlgen.NewFragment("x", "resource").
		WithMeta(sqlgen.MetaResultAlias, "name_item").
		WithMeta(sqlgen.MetaFunction, "where")
	require.Equal(t, "name_item", f.Metadata[sqlgen.MetaResultAlias])
	require.Equal(t, "where", f.Metadata[sqlgen.MetaFunction])
}

func TestFragmentWithMetaOnZeroValueInitializesMap(t *testing.T) {
	var f sqlgen.SQLFragment
	f = f.WithMeta(sqlgen.MetaMode, "complex")
	require.Equal(t, "complex", f.Metadata[sqlgen.MetaMode])
}

func TestFragmentAddDependencyDedupsAndPreservesOrder(t *testing.T) {
	f := sqlgen.NewFragment("x", "resource").
		AddDependency("cte_1").
		AddDependency("cte_2").
		AddDependency("cte_1")
	require.Equal(t, []string{"cte_1", "cte_2"}, f.Dependencies)
}

func TestFragmentAddDependencyIgnoresEmptyName(t *testing.T) {
	f := sqlgen.NewFragment("x", "resource").AddDependency("")
	require.Empty(t, f.Dependencies)
}
