package sqlgen

import "github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"

func init() {
	RegisterFunction("exists", lowerExists)
	RegisterFunction("empty", lowerEmpty)
	RegisterFunction("count", lowerCount)
	RegisterFunction("where", lowerWhere)
	RegisterFunction("select", lowerSelect)
	RegisterFunction("all", lowerAll)
	RegisterFunction("any", lowerExists)
	RegisterFunction("first", lowerFirst)
	RegisterFunction("last", lowerLast)
	RegisterFunction("tail", lowerTail)
	RegisterFunction("skip", lowerSkip)
	RegisterFunction("take", lowerTake)
	RegisterFunction("single", lowerSingle)
	RegisterFunction("distinct", lowerDistinct)
	RegisterFunction("isDistinct", lowerIsDistinct)
	RegisterFunction("combine", lowerCombine)
	RegisterFunction("exclude", lowerExclude)
	RegisterFunction("intersect", lowerIntersect)
	RegisterFunction("subsetOf", lowerSubsetOf)
	RegisterFunction("supersetOf", lowerSupersetOf)
	RegisterFunction("[]", lowerIndexer)
}

// lowerLambda lowers target, binds $this to the row the lambda body ranges
// over, lowers body under that binding, and restores the previous binding
// (if any) before returning — the scope-guard pattern BindVariable's doc
// comment describes.
func (t *Translator) lowerLambda(target, body ast.Node) (SQLFragment, SQLFragment, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return SQLFragment{}, SQLFragment{}, err
	}
	restore := t.ctx.BindVariable("this", VariableBinding{SQLAlias: t.ctx.CurrentTable + ".value"})
	defer restore()
	bodyRes, err := t.translate(body)
	if err != nil {
		return SQLFragment{}, SQLFragment{}, err
	}
	return targetFrag, bodyRes.frag, nil
}

func lowerExists(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) == 0 {
		targetFrag, err := t.translateTarget(target)
		if err != nil {
			return visitResult{}, err
		}
		return scalar(NewFragment(t.dialect.GenerateExistsCheck(targetFrag.Expression, true), t.ctx.CurrentTable))
	}
	targetFrag, predFrag, err := t.lowerLambda(target, args[0])
	if err != nil {
		return visitResult{}, err
	}
	filtered := t.dialect.GenerateWhereClauseFilter(targetFrag.Expression, predFrag.Expression)
	return scalar(NewFragment(t.dialect.GenerateExistsCheck(filtered, true), t.ctx.CurrentTable))
}

func lowerEmpty(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := "(NOT " + t.dialect.GenerateExistsCheck(targetFrag.Expression, true) + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerCount(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr, err := t.dialect.GenerateAggregateFunction("count", targetFrag.Expression, false, "")
	if err != nil {
		return visitResult{}, translationErrorf(call.Text(), "%s", err)
	}
	frag := NewFragment(expr, t.ctx.CurrentTable)
	frag.IsAggregate = true
	return scalar(frag.WithMeta(MetaFunction, "count"))
}

func lowerWhere(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "where() takes exactly one predicate argument")
	}
	targetFrag, predFrag, err := t.lowerLambda(target, args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := t.dialect.GenerateWhereClauseFilter(targetFrag.Expression, predFrag.Expression)
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerSelect(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "select() takes exactly one projection argument")
	}
	targetFrag, projFrag, err := t.lowerLambda(target, args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := t.dialect.GenerateSelectTransformation(targetFrag.Expression, projFrag.Expression)
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerAll(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "all() takes exactly one predicate argument")
	}
	targetFrag, predFrag, err := t.lowerLambda(target, args[0])
	if err != nil {
		return visitResult{}, err
	}
	negated := t.dialect.GenerateWhereClauseFilter(targetFrag.Expression, "(NOT "+predFrag.Expression+")")
	expr := "(NOT " + t.dialect.GenerateExistsCheck(negated, true) + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerFirst(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT v.* FROM (" + targetFrag.Expression + ") v ORDER BY v.ord ASC LIMIT 1)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerLast(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT v.* FROM (" + targetFrag.Expression + ") v ORDER BY v.ord DESC LIMIT 1)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerTail(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT v.* FROM (" + targetFrag.Expression + ") v ORDER BY v.ord ASC OFFSET 1)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerSkip(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "skip() takes exactly one count argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	n, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT v.* FROM (" + targetFrag.Expression + ") v ORDER BY v.ord ASC OFFSET " + n.frag.Expression + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerTake(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "take() takes exactly one count argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	n, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT v.* FROM (" + targetFrag.Expression + ") v ORDER BY v.ord ASC LIMIT " + n.frag.Expression + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerSingle(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT CASE WHEN COUNT(*) = 1 THEN MIN(v.value) ELSE NULL END FROM (" + targetFrag.Expression + ") v)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

// lowerIndexer lowers the postfix expr[i] form parsePostfix builds as a
// synthetic "[]" call: the single argument is the zero-based index, and
// FHIRPath says an out-of-range index returns empty rather than erroring,
// which LIMIT 1 OFFSET i already gives us for free.
func lowerIndexer(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "indexer requires exactly one index argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	idx, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT v.* FROM (" + targetFrag.Expression + ") v ORDER BY v.ord ASC LIMIT 1 OFFSET " + idx.frag.Expression + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerDistinct(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := t.dialect.AggregateToJSONArray("DISTINCT " + targetFrag.Expression)
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerIsDistinct(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT COUNT(*) = COUNT(DISTINCT v.value) FROM (" + targetFrag.Expression + ") v)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerCombine(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "combine() takes exactly one other-collection argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	other, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := t.dialect.GenerateCollectionCombine(targetFrag.Expression, other.frag.Expression)
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerExclude(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "exclude() takes exactly one other-collection argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	other, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := t.dialect.GenerateCollectionExclude(targetFrag.Expression, other.frag.Expression)
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerIntersect(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "intersect() takes exactly one other-collection argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	other, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := "(SELECT v.* FROM (" + targetFrag.Expression + ") v WHERE v.value IN (SELECT o.value FROM (" + other.frag.Expression + ") o))"
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerSubsetOf(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "subsetOf() takes exactly one other-collection argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	other, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := "(NOT EXISTS (SELECT 1 FROM (" + targetFrag.Expression + ") v WHERE v.value NOT IN (SELECT o.value FROM (" + other.frag.Expression + ") o)))"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerSupersetOf(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "supersetOf() takes exactly one other-collection argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	other, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr := "(NOT EXISTS (SELECT 1 FROM (" + other.frag.Expression + ") o WHERE o.value NOT IN (SELECT v.value FROM (" + targetFrag.Expression + ") v)))"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}
