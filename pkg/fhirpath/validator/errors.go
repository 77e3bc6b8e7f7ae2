package validator

import (
	"fmt"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/lexer"
)

// Rule identifies which of the ten validation rules produced an error.
type Rule int

const (
	RuleContextRoot Rule = iota + 1
	RuleChoiceAlias
	RuleDigitSuffixedIdentifier
	RulePeriodProperty
	RuleTimeLiteralTimezone
	RuleIncompleteExpression
	RuleTemporalComparison
	RuleFunctionName
	RuleLiteralArithmetic
	RulePathElement
)

func (r Rule) String() string {
	switch r {
	case RuleContextRoot:
		return "ContextRoot"
	case RuleChoiceAlias:
		return "ChoiceAlias"
	case RuleDigitSuffixedIdentifier:
		return "DigitSuffixedIdentifier"
	case RulePeriodProperty:
		return "PeriodProperty"
	case RuleTimeLiteralTimezone:
		return "TimeLiteralTimezone"
	case RuleIncompleteExpression:
		return "IncompleteExpression"
	case RuleTemporalComparison:
		return "TemporalComparison"
	case RuleFunctionName:
		return "FunctionName"
	case RuleLiteralArithmetic:
		return "LiteralArithmetic"
	case RulePathElement:
		return "PathElement"
	default:
		return "Unknown"
	}
}

// ValidationError reports one rule violation, with optional spelling
// suggestions for unknown function names and path elements.
type ValidationError struct {
	Rule        Rule
	Message     string
	Position    lexer.Position
	Suggestions []string
}

func (e *ValidationError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("%s at %s: %s (did you mean %v?)", e.Rule, e.Position, e.Message, e.Suggestions)
	}
	return fmt.Sprintf("%s at %s: %s", e.Rule, e.Position, e.Message)
}

func newViolation(rule Rule, pos lexer.Position, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...), Position: pos}
}
