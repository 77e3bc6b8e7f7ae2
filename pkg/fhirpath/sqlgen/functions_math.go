package sqlgen

import "github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"

func init() {
	RegisterFunction("abs", lowerMathUnary("abs"))
	RegisterFunction("ceiling", lowerMathUnary("ceiling"))
	RegisterFunction("exp", lowerMathUnary("exp"))
	RegisterFunction("floor", lowerMathUnary("floor"))
	RegisterFunction("ln", lowerMathUnary("ln"))
	RegisterFunction("sqrt", lowerMathUnary("sqrt"))
	RegisterFunction("truncate", lowerMathUnary("truncate"))
	RegisterFunction("round", lowerRound)
	RegisterFunction("log", lowerLog)
	RegisterFunction("power", lowerPower)
}

// lowerMathUnary builds a lowering for a math function that takes only the
// implicit target as input, wrapping the dialect's finiteness check so
// NaN/infinity results collapse to NULL per §4.4's math family rule.
func lowerMathUnary(name string) funcLowering {
	return func(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
		if len(args) != 0 {
			return visitResult{}, translationErrorf(call.Text(), "%s() takes no arguments", name)
		}
		targetFrag, err := t.translateTarget(target)
		if err != nil {
			return visitResult{}, err
		}
		expr, err := t.dialect.GenerateMathFunction(name, targetFrag.Expression)
		if err != nil {
			return visitResult{}, translationErrorf(call.Text(), "%s", err)
		}
		return scalar(NewFragment(finiteOrNull(t, expr), t.ctx.CurrentTable))
	}
}

func finiteOrNull(t *Translator, expr string) string {
	return "(CASE WHEN " + t.dialect.IsFinite(expr) + " THEN " + expr + " ELSE NULL END)"
}

func lowerRound(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) > 1 {
		return visitResult{}, translationErrorf(call.Text(), "round() takes zero or one precision argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	mathArgs := []string{targetFrag.Expression}
	if len(args) == 1 {
		precision, err := t.translate(args[0])
		if err != nil {
			return visitResult{}, err
		}
		mathArgs = append(mathArgs, precision.frag.Expression)
	}
	expr, err := t.dialect.GenerateMathFunction("round", mathArgs...)
	if err != nil {
		return visitResult{}, translationErrorf(call.Text(), "%s", err)
	}
	return scalar(NewFragment(finiteOrNull(t, expr), t.ctx.CurrentTable))
}

func lowerLog(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "log() takes exactly one base argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	base, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr, err := t.dialect.GenerateMathFunction("log", targetFrag.Expression, base.frag.Expression)
	if err != nil {
		return visitResult{}, translationErrorf(call.Text(), "%s", err)
	}
	return scalar(NewFragment(finiteOrNull(t, expr), t.ctx.CurrentTable))
}

func lowerPower(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 1 {
		return visitResult{}, translationErrorf(call.Text(), "power() takes exactly one exponent argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	exp, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	expr, err := t.dialect.GenerateMathFunction("power", targetFrag.Expression, exp.frag.Expression)
	if err != nil {
		return visitResult{}, translationErrorf(call.Text(), "%s", err)
	}
	return scalar(NewFragment(finiteOrNull(t, expr), t.ctx.CurrentTable))
}
