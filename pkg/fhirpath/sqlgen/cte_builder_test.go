package sqlgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/sqlgen"
)

func TestBuildCTEsScalarChain(t *testing.T) {
	frags := []sqlgen.SQLFragment{
		sqlgen.NewFragment("json_extract(resource, '$.status')", "resource"),
	}
	ctes, err := sqlgen.BuildCTEs(frags)
	require.NoError(t, err)
	require.Len(t, ctes, 1)
	require.Equal(t, "cte_1", ctes[0].Name)
	require.Contains(t, ctes[0].Query, "FROM resource")
	require.Empty(t, ctes[0].DependsOn)
}

func TestBuildCTEsInheritsPreviousSourceTable(t *testing.T) {
	frags := []sqlgen.SQLFragment{
		sqlgen.NewFragment("json_extract(resource, '$.name')", "resource"),
		sqlgen.NewFragment("json_extract(cte_1.value, '$.family')", ""),
	}
	ctes, err := sqlgen.BuildCTEs(frags)
	require.NoError(t, err)
	require.Len(t, ctes, 2)
	require.Equal(t, "cte_2", ctes[1].Name)
	require.Contains(t, ctes[1].Query, "FROM cte_1")
	require.Equal(t, []string{"cte_1"}, ctes[1].DependsOn)
}

func TestBuildCTEsUnnestRequiresMetadata(t *testing.T) {
	frag := sqlgen.NewFragment("json_each(json_extract(resource, '$.name'))", "resource")
	frag.RequiresUnnest = true
	_, err := sqlgen.BuildCTEs([]sqlgen.SQLFragment{frag})
	require.Error(t, err)
}

func TestBuildCTEsUnnestRendersLateralClause(t *testing.T) {
	frag := sqlgen.NewFragment("json_each(json_extract(resource, '$.name')) AS name_item", "resource")
	frag.RequiresUnnest = true
	frag = frag.
		WithMeta(sqlgen.MetaArrayColumn, "$.name[*]").
		WithMeta(sqlgen.MetaResultAlias, "name_item").
		WithMeta(sqlgen.MetaIDColumn, "resource.id")

	ctes, err := sqlgen.BuildCTEs([]sqlgen.SQLFragment{frag})
	require.NoError(t, err)
	require.Contains(t, ctes[0].Query, "resource.id")
	require.Contains(t, ctes[0].Query, "name_item")
	require.Contains(t, ctes[0].Query, "FROM resource, json_each")
}

func TestBuildCTEsEmptyFragmentListIsError(t *testing.T) {
	_, err := sqlgen.BuildCTEs(nil)
	require.Error(t, err)
}

func TestBuildCTEsMissingSourceTableIsError(t *testing.T) {
	_, err := sqlgen.BuildCTEs([]sqlgen.SQLFragment{sqlgen.NewFragment("1 + 1", "")})
	require.Error(t, err)
}
