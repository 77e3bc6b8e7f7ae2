package sqlgen

import (
	"regexp"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
)

func init() {
	RegisterFunction("startsWith", lowerStartsWith)
	RegisterFunction("endsWith", lowerEndsWith)
	RegisterFunction("contains", lowerStringContains)
	RegisterFunction("matches", lowerMatches)
	RegisterFunction("replace", lowerReplace)
	RegisterFunction("replaceMatches", lowerReplaceMatches)
	RegisterFunction("substring", lowerSubstring)
	RegisterFunction("length", lowerLength)
	RegisterFunction("upper", lowerUpper)
	RegisterFunction("lower", lowerLower)
	RegisterFunction("indexOf", lowerIndexOf)
	RegisterFunction("split", lowerSplit)
	RegisterFunction("join", lowerJoin)
	RegisterFunction("toChars", lowerToChars)
}

func lowerOneStringArg(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall, name string) (SQLFragment, SQLFragment, error) {
	if len(args) != 1 {
		return SQLFragment{}, SQLFragment{}, translationErrorf(call.Text(), "%s() takes exactly one argument", name)
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return SQLFragment{}, SQLFragment{}, err
	}
	argRes, err := t.translate(args[0])
	if err != nil {
		return SQLFragment{}, SQLFragment{}, err
	}
	return targetFrag, argRes.frag, nil
}

func lowerStartsWith(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, argFrag, err := lowerOneStringArg(t, target, args, call, "startsWith")
	if err != nil {
		return visitResult{}, err
	}
	expr := "(" + targetFrag.Expression + " LIKE " + argFrag.Expression + " || '%')"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerEndsWith(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, argFrag, err := lowerOneStringArg(t, target, args, call, "endsWith")
	if err != nil {
		return visitResult{}, err
	}
	expr := "(" + targetFrag.Expression + " LIKE '%' || " + argFrag.Expression + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerStringContains(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, argFrag, err := lowerOneStringArg(t, target, args, call, "contains")
	if err != nil {
		return visitResult{}, err
	}
	expr := "(" + targetFrag.Expression + " LIKE '%' || " + argFrag.Expression + " || '%')"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerMatches(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, argFrag, err := lowerOneStringArg(t, target, args, call, "matches")
	if err != nil {
		return visitResult{}, err
	}
	expr, err := t.dialect.GenerateComparison(targetFrag.Expression, "~", argFrag.Expression)
	if err != nil {
		return visitResult{}, translationErrorf(call.Text(), "%s", err)
	}
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerReplace(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 2 {
		return visitResult{}, translationErrorf(call.Text(), "replace() takes exactly two arguments")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	pattern, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	substitution, err := t.translate(args[1])
	if err != nil {
		return visitResult{}, err
	}
	expr := "REPLACE(" + targetFrag.Expression + ", " + pattern.frag.Expression + ", " + substitution.frag.Expression + ")"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

var fhirpathBackref = regexp.MustCompile(`\$(\d)`)

// lowerReplaceMatches emits REGEXP_REPLACE with the global 'g' flag; the
// numbered backreferences ($1, $2, …) FHIRPath allows in the substitution
// are rewritten to the \1, \2, … form both reference dialects'
// REGEXP_REPLACE uses.
func lowerReplaceMatches(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) != 2 {
		return visitResult{}, translationErrorf(call.Text(), "replaceMatches() takes exactly two arguments")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	pattern, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	substitution, err := t.translate(args[1])
	if err != nil {
		return visitResult{}, err
	}
	subst := fhirpathBackref.ReplaceAllString(substitution.frag.Expression, `\${1}`)
	expr := "REGEXP_REPLACE(" + targetFrag.Expression + ", " + pattern.frag.Expression + ", " + subst + ", 'g')"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

// lowerSubstring converts FHIRPath's 0-based start to SQL's 1-based
// SUBSTRING and guards an out-of-range start with a CASE rather than
// relying on engine-specific clamping behavior.
func lowerSubstring(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) < 1 || len(args) > 2 {
		return visitResult{}, translationErrorf(call.Text(), "substring() takes one or two arguments")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	start, err := t.translate(args[0])
	if err != nil {
		return visitResult{}, err
	}
	length := ""
	if len(args) == 2 {
		lengthRes, err := t.translate(args[1])
		if err != nil {
			return visitResult{}, err
		}
		length = lengthRes.frag.Expression
	}
	sqlStart := "(" + start.frag.Expression + " + 1)"
	sub := t.dialect.Substring(targetFrag.Expression, sqlStart, length)
	expr := "(CASE WHEN " + start.frag.Expression + " < 0 THEN '' ELSE " + sub + " END)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerLength(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	return scalar(NewFragment("LENGTH("+targetFrag.Expression+")", t.ctx.CurrentTable))
}

func lowerUpper(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	return scalar(NewFragment("UPPER("+targetFrag.Expression+")", t.ctx.CurrentTable))
}

func lowerLower(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	return scalar(NewFragment("LOWER("+targetFrag.Expression+")", t.ctx.CurrentTable))
}

// lowerIndexOf subtracts 1 from the SQL 1-based POSITION return so a
// not-found result (SQL 0) maps to FHIRPath's -1.
func lowerIndexOf(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, argFrag, err := lowerOneStringArg(t, target, args, call, "indexOf")
	if err != nil {
		return visitResult{}, err
	}
	expr := "(POSITION(" + argFrag.Expression + " IN " + targetFrag.Expression + ") - 1)"
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerSplit(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, argFrag, err := lowerOneStringArg(t, target, args, call, "split")
	if err != nil {
		return visitResult{}, err
	}
	expr := t.dialect.SplitString(targetFrag.Expression, argFrag.Expression)
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}

func lowerJoin(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	if len(args) > 1 {
		return visitResult{}, translationErrorf(call.Text(), "join() takes zero or one separator argument")
	}
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	sep := "''"
	if len(args) == 1 {
		sepRes, err := t.translate(args[0])
		if err != nil {
			return visitResult{}, err
		}
		sep = sepRes.frag.Expression
	}
	expr := t.dialect.GenerateStringJoin(targetFrag.Expression, sep, true)
	return scalar(NewFragment(expr, t.ctx.CurrentTable))
}

func lowerToChars(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
	targetFrag, err := t.translateTarget(target)
	if err != nil {
		return visitResult{}, err
	}
	expr := t.dialect.AggregateToJSONArray("SUBSTRING(" + targetFrag.Expression + " FROM gs.i FOR 1)")
	return scalar(NewFragment(expr, t.ctx.CurrentTable).WithMeta(MetaIsCollection, true))
}
