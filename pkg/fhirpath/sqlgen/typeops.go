package sqlgen

import (
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/fhirpath/ast"
)

// profileAliases canonicalize to Quantity per spec.md §3's profile-alias
// list, and System.Boolean canonicalizes to the bare primitive name.
var profileAliases = map[string]string{
	"Age": "Quantity", "Duration": "Quantity", "Count": "Quantity", "Distance": "Quantity",
	"System.Boolean": "boolean", "System.String": "string", "System.Integer": "integer",
	"System.Decimal": "decimal", "System.Date": "date", "System.DateTime": "dateTime", "System.Time": "time",
}

func canonicalTargetType(t string) string {
	if alias, ok := profileAliases[t]; ok {
		return alias
	}
	if lower := strings.ToLower(t); knownPrimitives[lower] {
		return lower
	}
	return t
}

// visitTypeOperation implements §4.5: is/as/ofType.
func (t *Translator) visitTypeOperation(op *ast.TypeOperation) (visitResult, error) {
	target, err := t.translate(op.Target)
	if err != nil {
		return visitResult{}, err
	}
	targetType := canonicalTargetType(op.TargetType)
	if t.registry != nil && !t.registry.IsRegisteredType(targetType) && !isKnownPrimitive(targetType) {
		return visitResult{}, translationErrorf(op.Text(), "unknown FHIR type %q", op.TargetType)
	}

	switch op.Operation {
	case ast.TypeIs:
		expr, err := t.dialect.GenerateTypeCheck(target.frag.Expression, targetType)
		if err != nil {
			return visitResult{}, translationErrorf(op.Text(), "%s", err)
		}
		return scalar(NewFragment(expr, t.ctx.CurrentTable))

	case ast.TypeAs:
		return t.visitTypeAs(op, target.frag, targetType)

	case ast.TypeOfType:
		if isKnownPrimitive(targetType) {
			expr := t.dialect.GenerateCollectionTypeFilter(target.frag.Expression, targetType)
			return scalar(NewFragment(expr, t.ctx.CurrentTable))
		}
		return scalar(NewFragment(t.dialect.EmptyJSONArray(), t.ctx.CurrentTable))

	default:
		return visitResult{}, translationErrorf(op.Text(), "unknown type operation")
	}
}

func (t *Translator) visitTypeAs(op *ast.TypeOperation, target SQLFragment, targetType string) (visitResult, error) {
	if isKnownPrimitive(targetType) {
		expr, err := t.dialect.GenerateTypeCast(target.Expression, targetType)
		if err != nil {
			return visitResult{}, translationErrorf(op.Text(), "%s", err)
		}
		return scalar(NewFragment(expr, t.ctx.CurrentTable))
	}

	// Complex target type against a choice-type parent: rewrite the path to
	// the aliased variant and guard on the registry's discriminator fields.
	if t.registry != nil && len(t.ctx.ParentPath) > 0 {
		prefix := t.ctx.ParentPath[len(t.ctx.ParentPath)-1]
		if variants, ok := t.registry.ExpandChoiceElement(t.ctx.CurrentType, prefix); ok {
			variant := variantMatching(variants, targetType)
			if variant != "" {
				return t.lowerChoiceCast(target, prefix, variant, targetType)
			}
		}
	}

	// Resource type or otherwise impossible cast.
	t.ctx.ParentPath = nil
	frag := NewFragment("NULL", t.ctx.CurrentTable).WithMeta(MetaMode, "null")
	return scalar(frag)
}

// discriminatorGuard checks presence of a choice-type variant the way §4.5
// describes it: by its declared discriminator fields (e.g. Quantity's
// "value", Ratio's "numerator"/"denominator"), not by the whole variant
// object, since a variant object can exist with every discriminator field
// null. Falls back to whole-object presence when the registry has no
// discriminators on file for targetType.
func (t *Translator) discriminatorGuard(variantPath string, fields []string) string {
	if len(fields) == 0 {
		return t.dialect.CheckJSONExists(t.ctx.CurrentTable, variantPath)
	}
	checks := make([]string, len(fields))
	for i, field := range fields {
		checks[i] = t.dialect.CheckJSONExists(t.ctx.CurrentTable, variantPath+"."+field)
	}
	return "(" + strings.Join(checks, " AND ") + ")"
}

func variantMatching(variants []string, targetType string) string {
	for _, v := range variants {
		if strings.HasSuffix(v, targetType) {
			return v
		}
	}
	return ""
}

func (t *Translator) lowerChoiceCast(target SQLFragment, prefix, variant, targetType string) (visitResult, error) {
	path := t.ctx.ParentPath[:len(t.ctx.ParentPath)-1]
	variantPath := "$." + strings.Join(append(append([]string{}, path...), variant), ".")
	extraction := t.dialect.ExtractJSONField(t.ctx.CurrentTable, variantPath)

	var fields []string
	if t.registry != nil {
		fields = t.registry.DiscriminatorFields(targetType)
	}
	guard := t.discriminatorGuard(variantPath, fields)

	expr := "(CASE WHEN " + guard + " THEN " + extraction + " ELSE NULL END)"
	frag := NewFragment(expr, t.ctx.CurrentTable).
		WithMeta(MetaMode, "complex").
		WithMeta(MetaVariantProperty, variant).
		WithMeta(MetaDiscriminatorFields, fields)

	t.ctx.ParentPath = append(append([]string{}, path...), variant)
	return scalar(frag)
}

var knownPrimitives = map[string]bool{
	"string": true, "integer": true, "integer64": true, "decimal": true, "boolean": true,
	"date": true, "dateTime": true, "time": true, "instant": true, "code": true, "id": true,
	"uri": true, "url": true, "canonical": true, "base64Binary": true, "oid": true, "uuid": true,
	"markdown": true, "positiveInt": true, "unsignedInt": true,
}

func isKnownPrimitive(name string) bool {
	return knownPrimitives[name] || knownPrimitives[strings.ToLower(name)]
}
