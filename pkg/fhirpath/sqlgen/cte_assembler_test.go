package sqlgen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/sqlgen"
)

func TestAssembleSQLOrdersByDependency(t *testing.T) {
	ctes := []sqlgen.CTE{
		{Name: "cte_2", Query: "SELECT * FROM cte_1", DependsOn: []string{"cte_1"}},
		{Name: "cte_1", Query: "SELECT id FROM resource"},
	}
	sql, err := sqlgen.AssembleSQL(ctes)
	require.NoError(t, err)
	require.Less(t, strings.Index(sql, "cte_1 AS"), strings.Index(sql, "cte_2 AS"))
	require.Contains(t, sql, "SELECT * FROM cte_2;")
}

func TestAssembleSQLPreservesInputOrderAmongIndependentNodes(t *testing.T) {
	ctes := []sqlgen.CTE{
		{Name: "cte_a", Query: "SELECT 1"},
		{Name: "cte_b", Query: "SELECT 2"},
	}
	sql, err := sqlgen.AssembleSQL(ctes)
	require.NoError(t, err)
	require.Less(t, strings.Index(sql, "cte_a AS"), strings.Index(sql, "cte_b AS"))
}

func TestAssembleSQLDuplicateNameIsError(t *testing.T) {
	ctes := []sqlgen.CTE{
		{Name: "cte_1", Query: "SELECT 1"},
		{Name: "cte_1", Query: "SELECT 2"},
	}
	_, err := sqlgen.AssembleSQL(ctes)
	require.Error(t, err)
}

func TestAssembleSQLMissingDependencyIsError(t *testing.T) {
	ctes := []sqlgen.CTE{
		{Name: "cte_1", Query: "SELECT * FROM cte_missing", DependsOn: []string{"cte_missing"}},
	}
	_, err := sqlgen.AssembleSQL(ctes)
	require.Error(t, err)
}

func TestAssembleSQLCycleIsError(t *testing.T) {
	ctes := []sqlgen.CTE{
		{Name: "cte_1", Query: "SELECT 1", DependsOn: []string{"cte_2"}},
		{Name: "cte_2", Query: "SELECT 2", DependsOn: []string{"cte_1"}},
	}
	_, err := sqlgen.AssembleSQL(ctes)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle detected")
}

func TestAssembleSQLEmptyListIsError(t *testing.T) {
	_, err := sqlgen.AssembleSQL(nil)
	require.Error(t, err)
}
