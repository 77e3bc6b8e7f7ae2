package sqlgen

import (
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
)

// conversionTargets maps each toX/convertsToX pair to the FHIR primitive
// name the dialect's type codegen understands.
var conversionTargets = map[string]string{
	"toBoolean": "boolean", "convertsToBoolean": "boolean",
	"toInteger": "integer", "convertsToInteger": "integer",
	"toDecimal": "decimal", "convertsToDecimal": "decimal",
	"toString": "string", "convertsToString": "string",
	"toQuantity": "Quantity", "convertsToQuantity": "Quantity",
	"toDate": "date", "convertsToDate": "date",
	"toDateTime": "dateTime", "convertsToDateTime": "dateTime",
	"toTime": "time", "convertsToTime": "time",
}

func init() {
	for name, fhirType := range conversionTargets {
		RegisterFunction(name, lowerConversion(name, fhirType))
	}
}

func lowerConversion(name, fhirType string) funcLowering {
	converts := strings.HasPrefix(name, "convertsTo")
	return func(t *Translator, target ast.Node, args []ast.Node, call *ast.FunctionCall) (visitResult, error) {
		if len(args) != 0 {
			return visitResult{}, translationErrorf(call.Text(), "%s() takes no arguments", name)
		}
		targetFrag, err := t.translateTarget(target)
		if err != nil {
			return visitResult{}, err
		}
		cast, err := t.dialect.GenerateTypeCast(targetFrag.Expression, fhirType)
		if err != nil {
			return visitResult{}, translationErrorf(call.Text(), "%s", err)
		}
		if converts {
			return scalar(NewFragment("("+cast+" IS NOT NULL)", t.ctx.CurrentTable))
		}
		return scalar(NewFragment(cast, t.ctx.CurrentTable))
	}
}
