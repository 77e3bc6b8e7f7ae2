// Package fhirpath compiles a FHIRPath expression to SQL.
//
// Unlike a FHIRPath runtime, this package never evaluates an expression
// against resource data — Compile lexes, parses, semantically validates,
// and lowers the expression into a dependency-ordered chain of SQL common
// table expressions (CTEs) plus a final SELECT. The caller executes the
// resulting SQL text against its own JSON or JSONB document engine through
// the dialect.Dialect it supplied.
//
// Usage:
//
//	result, err := fhirpath.Compile("name.given.first()",
//	    fhirpath.CompileContext{ResourceType: "Patient"},
//	    jsondialect.New(), reg)
package fhirpath
