package validator

import (
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
)

// --- Rule 4: Period property restriction ---

func checkPeriodProperty(root ast.Node) error {
	var found error
	walk(root, func(n ast.Node) {
		if found != nil {
			return
		}
		id, ok := n.(*ast.Identifier)
		if !ok {
			return
		}
		typeOp, ok := id.Target.(*ast.TypeOperation)
		if !ok || typeOp.Operation != ast.TypeAs || typeOp.TargetType != "Period" {
			return
		}
		if id.Name != "start" && id.Name != "end" {
			found = newViolation(RulePeriodProperty, id.Pos(),
				"Period values may only be dereferenced through 'start' or 'end', got %q", id.Name)
		}
	})
	return found
}

// --- Rule 5: time literal timezone ---

func checkTimeLiteralTimezone(root ast.Node) error {
	var found error
	walk(root, func(n ast.Node) {
		if found != nil {
			return
		}
		lit, ok := n.(*ast.Literal)
		if !ok || lit.Kind != ast.LiteralTime {
			return
		}
		body := strings.TrimPrefix(lit.Value, "T")
		if strings.ContainsAny(body, "Z+") || strings.Contains(body, "-") {
			found = newViolation(RuleTimeLiteralTimezone, lit.Pos(),
				"time literal %q must not carry a timezone; use an @YYYY-...T... dateTime literal instead", lit.Text())
		}
	})
	return found
}

// --- Rule 7: temporal comparison compatibility ---

var comparisonOperatorKinds = map[ast.OperatorKind]bool{
	ast.OpComparison: true,
	ast.OpEquality:   true,
}

func checkTemporalComparison(root ast.Node) error {
	var found error
	walk(root, func(n ast.Node) {
		if found != nil {
			return
		}
		op, ok := n.(*ast.Operator)
		if !ok || !comparisonOperatorKinds[op.Kind] || len(op.Children) != 2 {
			return
		}
		left, leftOK := temporalLiteralKind(op.Children[0])
		right, rightOK := temporalLiteralKind(op.Children[1])
		if !leftOK || !rightOK {
			return
		}
		if isTimeDateMismatch(left, right) {
			found = newViolation(RuleTemporalComparison, op.Pos(),
				"cannot compare a time value with a date/dateTime value using %q", op.OperatorText)
		}
	})
	return found
}

func temporalLiteralKind(n ast.Node) (ast.LiteralKind, bool) {
	lit, ok := n.(*ast.Literal)
	if !ok {
		return 0, false
	}
	switch lit.Kind {
	case ast.LiteralTime, ast.LiteralDate, ast.LiteralDateTime:
		return lit.Kind, true
	default:
		return 0, false
	}
}

func isTimeDateMismatch(a, b ast.LiteralKind) bool {
	isTime := func(k ast.LiteralKind) bool { return k == ast.LiteralTime }
	isDateLike := func(k ast.LiteralKind) bool { return k == ast.LiteralDate || k == ast.LiteralDateTime }
	return (isTime(a) && isDateLike(b)) || (isTime(b) && isDateLike(a))
}
