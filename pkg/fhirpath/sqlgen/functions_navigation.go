package sqlgen

import "github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"

func init() {
	RegisterFunction("extension", lowerExtension)
	RegisterFunction("conformsTo", lowerConformsTo)
	RegisterFunction("aggregate", lowerAggregateFn)
	RegisterFunction("repeat", lowerRepeat)
}

// lowerExtension filters the contextual .extension[*] array down to entries
// whose .url matches the supplied argument; the result is itself a
// collection subject to further dereference by the caller.
func lowerExtension(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "extension() takes exactly one url argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	url, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	extensions := t.dialect.ExtractJSONObject(targetFrag.Expression, "$.extension[*]")
	pred, err := t.dialect.GenerateComparison(t.dialect.ExtractJSONField(t.ctx.CurrentTable+".value", "$.url"), "=", url.frag.Expression)
	if err != nil {
		return visitResult{}, translationErrorf(call.Text(), "%s", err)
	}
	expr := t.dialect.GenerateWhereClauseFilter(extensions, pred)
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerConformsTo(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "conformsTo() takes exactly one profile url argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	url, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	profiles := t.dialect.ExtractJSONObject(targetFrag.Expression, "$.meta.profile[*]")
	expr := t.dialect.GenerateExistsCheck(t.dialect.GenerateWhereClauseFilter(profiles, t.ctx.CurrentTable+".value = "+url.frag.Expression), true)
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

// lowerAggregateFn implements aggregate(expr, init): a window-function
// accumulation where $total binds to the running accumulator and $this to
// the current element, with the final row's value as the result.
func lowerAggregateFn(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) < 1 || len(args) > 2 {
		return visitResult{}, translationErrorf(call.Text(), "aggregate() takes one accumulator expression and an optional initial value")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	initExpr := "NULL"
	if len(args) == 2 {
		initRes, err := t.translate(args[1])
		if err != nil {
			return visitResult{}, err
		}
		initExpr = initRes.frag.Expression
	}

	restoreThis := t.ctx.BindVariable("this", VariableBinding{SQLAlias: "acc.value"})
	restoreTotal := t.ctx.BindVariable("total", VariableBinding{SQLAlias: "acc.running"})
	accRes, err := t.translate(args[0])
	restoreTotal()
	restoreThis()
	if err != nil {
		return visitResult{}, err
	}

	expr := "(SELECT LAST_VALUE(acc.running) OVER (ORDER BY acc.ord) FROM " +
		"(SELECT v.value, v.ord, COALESCE(LAG(" + accRes.frag.Expression + ") OVER (ORDER BY v.ord), " + initExpr + ") AS running " +
		"FROM (" + targetFrag.Expression + ") v) acc LIMIT 1)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaFunction, "aggregate"))
}

// lowerRepeat emits a recursive CTE bounded to 100 iterations, matching the
// soft recursion guard documented for repeat(). The recursive step is a
// UNION ALL with no per-level dedup, so an element already seen is expanded
// again on each level until the depth bound stops it; only the DISTINCT in
// the final aggregate removes the repeats.
func lowerRepeat(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "repeat() takes exactly one projection argument")
	}
	targetFrag, projFrag, err := t.lowerLambda(target, args[0])
	if err != nil {
		return visitResult{}, err
	}
	name := t.ctx.NextCTEName() + "_repeat"
	expr := "(WITH RECURSIVE " + name + "(value, depth) AS (" +
		"SELECT v.value, 0 FROM (" + targetFrag.Expression + ") v " +
		"UNION ALL " +
		"SELECT (" + projFrag.Expression + "), r.depth + 1 FROM " + name + " r WHERE r.depth < 100" +
		") SELECT " + t.dialect.AggregateToJSONArray("DISTINCT "+name+".value") + " FROM " + name + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}
