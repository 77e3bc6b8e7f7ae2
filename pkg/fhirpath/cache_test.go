package fhirpath_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect/jsondialect"
	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath"
)

func TestCompileCacheReturnsCachedResultOnSecondGet(t *testing.T) {
	reg := newRegistry(t)
	cache := fhirpath.NewCompileCache(10)
	ctx := fhirpath.CompileContext{ResourceType: "Patient"}
	d := jsondialect.New()

	first, err := cache.Get("Patient.name.given", ctx, d, reg)
	require.NoError(t, err)

	second, err := cache.Get("Patient.name.given", ctx, d, reg)
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, cache.Size())
	require.Equal(t, int64(1), cache.Stats().Hits)
	require.Equal(t, int64(1), cache.Stats().Misses)
}

func TestCompileCacheEvictsLeastRecentlyUsed(t *testing.T) {
	reg := newRegistry(t)
	cache := fhirpath.NewCompileCache(1)
	ctx := fhirpath.CompileContext{ResourceType: "Patient"}
	d := jsondialect.New()

	_, err := cache.Get("Patient.active", ctx, d, reg)
	require.NoError(t, err)
	_, err = cache.Get("Patient.gender", ctx, d, reg)
	require.NoError(t, err)

	require.Equal(t, 1, cache.Size())
}

func TestCompileCacheClear(t *testing.T) {
	reg := newRegistry(t)
	cache := fhirpath.NewCompileCache(10)
	ctx := fhirpath.CompileContext{ResourceType: "Patient"}
	_, err := cache.Get("Patient.active", ctx, jsondialect.New(), reg)
	require.NoError(t, err)

	cache.Clear()
	require.Equal(t, 0, cache.Size())
}

func TestCompileCachePropagatesCompileError(t *testing.T) {
	reg := newRegistry(t)
	cache := fhirpath.NewCompileCache(10)
	_, err := cache.Get("", fhirpath.CompileContext{ResourceType: "Patient"}, jsondialect.New(), reg)
	require.Error(t, err)
	require.Equal(t, 0, cache.Size())
}
