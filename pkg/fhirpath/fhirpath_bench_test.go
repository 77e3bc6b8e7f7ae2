package fhirpath_test

import (
	"testing"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect/jsondialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath"
	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

// BenchmarkCompile exercises a representative expression set through the
// full pipeline so perf regressions show up in go test -bench, without
// asserting a time bound.
func BenchmarkCompile(b *testing.B) {
	reg, err := registry.NewDefaultRegistry()
	if err != nil {
		b.Fatal(err)
	}
	d := jsondialect.New()
	ctx := fhirpath.CompileContext{ResourceType: "Patient"}
	exprs := []string{
		"Patient.name.given",
		"Patient.name.where(use = 'official').family",
		"Patient.active and Patient.gender = 'male'",
		"Patient.name.given.first()",
		"Patient.telecom.count() >= 1",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		expr := exprs[i%len(exprs)]
		if _, err := fhirpath.Compile(expr, ctx, d, reg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileCached(b *testing.B) {
	reg, err := registry.NewDefaultRegistry()
	if err != nil {
		b.Fatal(err)
	}
	cache := fhirpath.NewCompileCache(100)
	d := jsondialect.New()
	ctx := fhirpath.CompileContext{ResourceType: "Patient"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cache.Get("Patient.name.given.first()", ctx, d, reg); err != nil {
			b.Fatal(err)
		}
	}
}
