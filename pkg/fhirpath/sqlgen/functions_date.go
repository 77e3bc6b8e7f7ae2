package sqlgen

import (
	"regexp"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
)

func init() {
	RegisterFunction("now", lowerNow)
	RegisterFunction("today", lowerToday)
	RegisterFunction("highBoundary", lowerHighBoundary)
	RegisterFunction("lowBoundary", lowerLowBoundary)
}

func lowerNow(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 0 {
		return visitResult{}, translationErrorf(call.Text(), "now() takes no arguments")
	}
	return scalar(NewFragment(t.dialect.GenerateCurrentTimestamp(), t.ctx.CurrentTable))
}

func lowerToday(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 0 {
		return visitResult{}, translationErrorf(call.Text(), "today() takes no arguments")
	}
	return scalar(NewFragment(t.dialect.GenerateCurrentDate(), t.ctx.CurrentTable))
}

// temporalPrecisionUnit is the unit highBoundary/lowBoundary widen or
// truncate to. The registry's element fixture carries no per-element
// declared precision, so the only source of precision narrower than
// "second" is a literal date/dateTime target's own text — partial literals
// like "2014" or "2014-03" are widened per their own precision, following
// the year/month/day distinction in the original temporal parser; anything
// else (a path navigation result) falls back to second precision, since
// stored values are assumed fully-specified timestamps.
const temporalPrecisionUnit = "second"

var (
	yearPrecisionPattern  = regexp.MustCompile(`^\d{4}$`)
	monthPrecisionPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	dayPrecisionPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// literalTemporalPrecision returns the INTERVAL unit a literal date or
// dateTime's own text implies, or "" if node isn't a date/dateTime literal.
func literalTemporalPrecision(node ast.Node) string {
	lit, ok := node.(*ast.Literal)
	if !ok || (lit.Kind != ast.LiteralDate && lit.Kind != ast.LiteralDateTime) {
		return ""
	}
	switch {
	case yearPrecisionPattern.MatchString(lit.Value):
		return "year"
	case monthPrecisionPattern.MatchString(lit.Value):
		return "month"
	case dayPrecisionPattern.MatchString(lit.Value):
		return "day"
	default:
		return ""
	}
}

func boundaryUnit(target ast.Node) string {
	if unit := literalTemporalPrecision(target); unit != "" {
		return unit
	}
	return temporalPrecisionUnit
}

func lowerHighBoundary(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	unit := boundaryUnit(target)
	expr := "(" + targetFrag.Expression + " + INTERVAL '1 " + unit + "' - INTERVAL '1 microsecond')"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerLowBoundary(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	unit := boundaryUnit(target)
	if unit == temporalPrecisionUnit {
		return scalar(NewFragment(targetFrag.Expression, t.ctx.CurrentTable))
	}
	expr := "DATE_TRUNC('" + unit + "', " + targetFrag.Expression + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}
