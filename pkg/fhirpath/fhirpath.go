// Package fhirpath compiles FHIRPath expressions ahead of query time into
// dependency-ordered SQL common table expressions. It does not evaluate
// FHIRPath against resource data at runtime; Compile produces SQL text that
// an external engine executes.
package fhirpath

import (
	"github.com/fhir4ds/sqlcompiler/pkg/dialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/sqlgen"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

// CompileContext carries the caller-supplied context a compilation is
// checked and lowered against.
type CompileContext struct {
	// ResourceType is the FHIR resource the expression's root identifier
	// must match (spec rule: "the root identifier, if present, must equal
	// the resource type").
	ResourceType string
}

// CompileResult is the output of a successful Compile: the rendered SQL
// text, the dependency-ordered CTE names it's built from, and the
// intermediate fragments the translator produced (useful for tooling and
// tests; most callers only need SQL).
type CompileResult struct {
	SQL          string
	Dependencies []string
	Fragments    []sqlgen.SQLFragment
}

// Compile parses, validates, and translates a FHIRPath expression into SQL
// against the supplied dialect and type registry. reg may be nil, which
// disables path-element validation (rule 10) and choice-type resolution;
// most callers should pass a real registry.
func Compile(expr string, ctx CompileContext, d dialect.Dialect, reg registry.TypeRegistry) (*CompileResult, error) {
	return compile(expr, ctx, d, reg)
}

// MustCompile is like Compile but panics on error. Intended for package
// init-time compilation of expressions known to be valid at build time.
func MustCompile(expr string, ctx CompileContext, d dialect.Dialect, reg registry.TypeRegistry) *CompileResult {
	result, err := Compile(expr, ctx, d, reg)
	if err != nil {
		panic(err)
	}
	return result
}
