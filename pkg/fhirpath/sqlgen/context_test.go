package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewContextDefaultsCurrentTableAndType(t *testing.T) {
	ctx := newContext("Patient")
	require.Equal(t, "Patient", ctx.ResourceType)
	require.Equal(t, "Patient", ctx.CurrentType)
	require.Equal(t, "resource", ctx.CurrentTable)
	require.Empty(t, ctx.ParentPath)
}

func TestPushPathRestoresPreviousDepthOnPop(t *testing.T) {
	ctx := newContext("Patient")
	pop1 := ctx.PushPath("name")
	pop2 := ctx.PushPath("given")
	require.Equal(t, "name.given", ctx.JoinedPath())
	pop2()
	require.Equal(t, "name", ctx.JoinedPath())
	pop1()
	require.Empty(t, ctx.ParentPath)
}

func TestNextCTENameIncrementsMonotonically(t *testing.T) {
	ctx := newContext("Patient")
	require.Equal(t, "cte_1", ctx.NextCTEName())
	require.Equal(t, "cte_2", ctx.NextCTEName())
	require.Equal(t, "cte_3", ctx.NextCTEName())
}

func TestUniqueAliasSuffixesOnCollision(t *testing.T) {
	ctx := newContext("Patient")
	first := ctx.UniqueAlias("name")
	second := ctx.UniqueAlias("name")
	third := ctx.UniqueAlias("name")
	require.Equal(t, "name", first)
	require.Equal(t, "name_2", second)
	require.Equal(t, "name_3", third)
}

func TestBindVariableRestoresPriorBindingOnUnwind(t *testing.T) {
	ctx := newContext("Patient")
	outer := VariableBinding{SQLAlias: "outer_alias"}
	unbindOuter := ctx.BindVariable("this", outer)

	inner := VariableBinding{SQLAlias: "inner_alias"}
	unbindInner := ctx.BindVariable("this", inner)
	require.Equal(t, inner, ctx.Variables["this"])

	unbindInner()
	require.Equal(t, outer, ctx.Variables["this"])

	unbindOuter()
	_, ok := ctx.Variables["this"]
	require.False(t, ok)
}

func TestBindVariableRemovesBindingThatDidNotExistBefore(t *testing.T) {
	ctx := newContext("Patient")
	unbind := ctx.BindVariable("index", VariableBinding{SQLAlias: "idx"})
	require.Contains(t, ctx.Variables, "index")
	unbind()
	require.NotContains(t, ctx.Variables, "index")
}
