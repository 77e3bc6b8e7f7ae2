package sqlgen

import (
	"strconv"
	"strings"
)

// BuildCTEs converts an ordered fragment list into ordered CTE records. Each
// fragment becomes exactly one CTE, named cte_1, cte_2, … in fragment
// order; a fragment's source table is the previous CTE's name when one
// exists, otherwise the fragment's own SourceTable.
func BuildCTEs(fragments []SQLFragment) ([]CTE, error) {
	if len(fragments) == 0 {
		return nil, buildErrorf("fragment list is empty")
	}
	ctes := make([]CTE, 0, len(fragments))
	var previousName string

	for i, frag := range fragments {
		if strings.TrimSpace(frag.Expression) == "" {
			return nil, buildErrorf("fragment %d has an empty expression body", i)
		}

		sourceTable := previousName
		if sourceTable == "" {
			sourceTable = frag.SourceTable
		}
		if sourceTable == "" {
			return nil, buildErrorf("fragment %d has no source table and no preceding CTE to inherit one from", i)
		}

		name := "cte_" + strconv.Itoa(i+1)
		query, err := renderCTEQuery(frag, sourceTable)
		if err != nil {
			return nil, err
		}

		dependsOn := dedupPreserveOrder(append(append([]string{}, optionalPrevious(previousName)...), frag.Dependencies...))

		fragCopy := frag
		ctes = append(ctes, CTE{
			Name:           name,
			Query:          query,
			DependsOn:      dependsOn,
			RequiresUnnest: frag.RequiresUnnest,
			SourceFragment: &fragCopy,
			Metadata:       copyMetadata(frag.Metadata),
		})
		previousName = name
	}
	return ctes, nil
}

func optionalPrevious(name string) []string {
	if name == "" {
		return nil
	}
	return []string{name}
}

func renderCTEQuery(frag SQLFragment, sourceTable string) (string, error) {
	if frag.RequiresUnnest {
		arrayColumn, _ := frag.Metadata[MetaArrayColumn].(string)
		resultAlias, _ := frag.Metadata[MetaResultAlias].(string)
		if arrayColumn == "" || resultAlias == "" {
			return "", buildErrorf("unnest fragment is missing %q or %q metadata", MetaArrayColumn, MetaResultAlias)
		}
		if looksLikeSelect(frag.Expression) {
			return frag.Expression, nil
		}
		idColumn, _ := frag.Metadata[MetaIDColumn].(string)
		if idColumn == "" {
			idColumn = sourceTable + ".id"
		}
		projection, _ := frag.Metadata[MetaProjectionExpression].(string)
		if projection == "" {
			projection = resultAlias + ".unnest"
		}
		return "SELECT " + idColumn + ", " + projection + " AS " + resultAlias +
			" FROM " + sourceTable + ", " + frag.Expression, nil
	}

	resultAlias, _ := frag.Metadata[MetaResultAlias].(string)
	if resultAlias == "" {
		resultAlias = "value"
	}
	idColumn, _ := frag.Metadata[MetaIDColumn].(string)
	if idColumn == "" {
		idColumn = sourceTable + ".id"
	}
	return "SELECT " + idColumn + " AS id, " + frag.Expression + " AS " + resultAlias +
		", ROW_NUMBER() OVER () AS ord FROM " + sourceTable, nil
}

func looksLikeSelect(expr string) bool {
	trimmed := strings.TrimSpace(expr)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "select")
}
