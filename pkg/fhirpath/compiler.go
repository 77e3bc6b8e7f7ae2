package fhirpath

import (
	"fmt"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/parser"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/sqlgen"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/validator"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

// compile runs the full lex -> parse -> validate -> translate -> build ->
// assemble pipeline and returns on the first phase that fails. It never
// accumulates errors across phases, matching the "report one failure at a
// time" propagation policy a later phase would have nothing useful to add
// to anyway.
func compile(expr string, ctx CompileContext, d dialect.Dialect, reg registry.TypeRegistry) (*CompileResult, error) {
	if expr == "" {
		return nil, fmt.Errorf("fhirpath: empty expression")
	}
	if ctx.ResourceType == "" {
		return nil, fmt.Errorf("fhirpath: CompileContext.ResourceType is required")
	}
	if d == nil {
		return nil, fmt.Errorf("fhirpath: dialect is required")
	}

	parsed, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}

	opts := validator.Options{ResourceType: ctx.ResourceType, Reg: reg}
	if err := validator.Validate(expr, parsed.Root, parsed.FuncCalls, parsed.Paths, opts); err != nil {
		return nil, err
	}

	translator := sqlgen.New(d, reg)
	fragments, err := translator.Translate(parsed.Root, ctx.ResourceType)
	if err != nil {
		return nil, err
	}

	ctes, err := sqlgen.BuildCTEs(fragments)
	if err != nil {
		return nil, err
	}

	sql, err := sqlgen.AssembleSQL(ctes)
	if err != nil {
		return nil, err
	}

	dependencies := make([]string, len(ctes))
	for i, c := range ctes {
		dependencies[i] = c.Name
	}

	return &CompileResult{
		SQL:          sql,
		Dependencies: dependencies,
		Fragments:    fragments,
	}, nil
}
