package sqlgen

import "strings"

// Metadata keys are contractual: both BuildCTEs and the function dispatch
// table read and write these exact strings, so they are typed constants
// rather than ad-hoc literals scattered across the lowering functions.
const (
	MetaArrayColumn          = "array_column"
	MetaResultAlias          = "result_alias"
	MetaIDColumn             = "id_column"
	MetaProjectionExpression = "projection_expression"
	MetaSourcePath           = "source_path"
	MetaUnnestLevel          = "unnest_level"
	MetaFunction             = "function"
	MetaResultType           = "result_type"
	MetaVariantProperty      = "variant_property"
	MetaDiscriminatorFields  = "discriminator_fields"
	MetaIsCollection         = "is_collection"
	MetaMode                 = "mode"
)

// SQLFragment is one lowered sub-expression: a scalar expression, an array
// expression, or a full SELECT, plus the bookkeeping BuildCTEs needs to wrap
// it into a named CTE.
type SQLFragment struct {
	Expression     string
	SourceTable    string
	Dependencies   []string
	RequiresUnnest bool
	IsAggregate    bool
	Metadata       map[string]any
}

// NewFragment constructs a fragment with an initialized metadata map.
func NewFragment(expression, sourceTable string) SQLFragment {
	return SQLFragment{
		Expression:  expression,
		SourceTable: sourceTable,
		Metadata:    map[string]any{},
	}
}

// WithMeta sets a metadata key and returns the fragment for chaining.
func (f SQLFragment) WithMeta(key string, value any) SQLFragment {
	if f.Metadata == nil {
		f.Metadata = map[string]any{}
	}
	f.Metadata[key] = value
	return f
}

// AddDependency appends a CTE name to Dependencies, preserving insertion
// order and skipping duplicates.
func (f SQLFragment) AddDependency(name string) SQLFragment {
	if name == "" {
		return f
	}
	for _, d := range f.Dependencies {
		if d == name {
			return f
		}
	}
	f.Dependencies = append(f.Dependencies, name)
	return f
}

// Valid reports whether the fragment satisfies the data-model invariants:
// non-blank expression, and requires_unnest/is_aggregate are mutually
// exclusive.
func (f SQLFragment) Valid() bool {
	if strings.TrimSpace(f.Expression) == "" {
		return false
	}
	if f.RequiresUnnest && f.IsAggregate {
		return false
	}
	return true
}

// CTE is one named query block in the final WITH chain.
type CTE struct {
	Name           string
	Query          string
	DependsOn      []string
	RequiresUnnest bool
	SourceFragment *SQLFragment
	Metadata       map[string]any
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func dedupPreserveOrder(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
