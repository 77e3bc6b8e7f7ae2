// Package jsonbdialect implements dialect.Dialect against a PostgreSQL
// `jsonb` storage engine: the `->`/`->>` operator family,
// `jsonb_array_elements` for LATERAL unnesting, and `jsonb_agg` for
// collection reassembly.
package jsonbdialect

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect"
)

// Dialect is stateless and safe for concurrent use.
type Dialect struct{}

// New returns a ready-to-use JSONB-document Dialect.
func New() *Dialect { return &Dialect{} }

func (Dialect) Name() string { return "jsonb" }

// jsonbPath converts a `$.a.b[*]`-style path into Postgres `#>` array-path
// syntax. The array `[*]` suffix, if present, is stripped — callers handling
// array navigation use UnnestJSONArray/GenerateLateralUnnest instead.
func jsonbPath(path string) string {
	trimmed := strings.TrimPrefix(path, "$.")
	trimmed = strings.TrimSuffix(trimmed, "[*]")
	segments := strings.Split(trimmed, ".")
	for i, s := range segments {
		segments[i] = "'" + s + "'"
	}
	return "{" + strings.Join(segments, ",") + "}"
}

func (Dialect) ExtractJSONField(col, path string) string {
	return fmt.Sprintf("(%s #>> '%s')", col, jsonbPath(path))
}

func (Dialect) ExtractJSONObject(col, path string) string {
	return fmt.Sprintf("(%s #> '%s')", col, jsonbPath(path))
}

func (Dialect) CheckJSONExists(col, path string) string {
	return fmt.Sprintf("((%s #> '%s') IS NOT NULL)", col, jsonbPath(path))
}

func (Dialect) GetJSONType(expr string) string {
	return fmt.Sprintf("jsonb_typeof(%s)", expr)
}

func (Dialect) GetJSONArrayLength(expr, path string) string {
	if path == "" {
		return fmt.Sprintf("jsonb_array_length(%s)", expr)
	}
	return fmt.Sprintf("jsonb_array_length(%s #> '%s')", expr, jsonbPath(path))
}

func (Dialect) UnnestJSONArray(col, path, alias string) string {
	return fmt.Sprintf("jsonb_array_elements(%s #> '%s') AS %s", col, jsonbPath(path), alias)
}

// GenerateLateralUnnest renders the LATERAL clause a CTE builder splices
// into `SELECT <id_column>, <projection> FROM <source>, <lateral clause>`.
func (Dialect) GenerateLateralUnnest(sourceTable, arrayExpr, alias string) string {
	return fmt.Sprintf("LATERAL jsonb_array_elements(%s) AS %s(value)", arrayExpr, alias)
}

func (Dialect) IterateJSONArray(col, path string) string {
	return fmt.Sprintf("jsonb_array_elements(%s #> '%s')", col, jsonbPath(path))
}

func (Dialect) AggregateToJSONArray(expr string) string {
	return fmt.Sprintf("jsonb_agg(%s)", expr)
}

func (Dialect) CreateJSONArray(parts ...string) string {
	return fmt.Sprintf("jsonb_build_array(%s)", strings.Join(parts, ", "))
}

func (Dialect) CreateJSONObject(pairs ...string) string {
	return fmt.Sprintf("jsonb_build_object(%s)", strings.Join(pairs, ", "))
}

func (Dialect) WrapJSONArray(expr string) string {
	return fmt.Sprintf("jsonb_build_array(%s)", expr)
}

func (Dialect) EmptyJSONArray() string { return "'[]'::jsonb" }

func (Dialect) IsJSONArray(expr string) string {
	return fmt.Sprintf("(jsonb_typeof(%s) = 'array')", expr)
}

func (Dialect) EnumerateJSONArray(arrayExpr, valueAlias, indexAlias string) string {
	return fmt.Sprintf(
		"ROWS FROM (jsonb_array_elements(%s)) WITH ORDINALITY AS %s(%s, %s)",
		arrayExpr, valueAlias, valueAlias, indexAlias,
	)
}

func (Dialect) SerializeJSONValue(expr string) string {
	return fmt.Sprintf("to_jsonb(%s)", expr)
}

func (Dialect) StringConcat(a, b string) string {
	return fmt.Sprintf("(COALESCE(%s, '') || COALESCE(%s, ''))", a, b)
}

// Substring takes a FHIRPath 0-based start already converted to SQL's
// 1-based convention by the caller.
func (Dialect) Substring(expr, start, length string) string {
	if length == "" {
		return fmt.Sprintf("substring(%s FROM %s)", expr, start)
	}
	return fmt.Sprintf("substring(%s FROM %s FOR %s)", expr, start, length)
}

func (Dialect) SplitString(expr, sep string) string {
	return fmt.Sprintf("string_to_array(%s, %s)", expr, sep)
}

func (Dialect) TryCast(expr, sqlType string) string {
	return fmt.Sprintf("(CASE WHEN %s IS NULL THEN NULL ELSE %s::%s END)", expr, expr, sqlType)
}

func (Dialect) CastToTimestamp(expr string) string { return fmt.Sprintf("(%s::timestamp)", expr) }
func (Dialect) CastToTime(expr string) string      { return fmt.Sprintf("(%s::time)", expr) }
func (Dialect) CastToDouble(expr string) string    { return fmt.Sprintf("(%s::double precision)", expr) }

func (Dialect) IsFinite(expr string) string {
	return fmt.Sprintf("(%s = %s AND %s <> 'Infinity'::double precision AND %s <> '-Infinity'::double precision)", expr, expr, expr, expr)
}

func (Dialect) GenerateCurrentTimestamp() string { return "CURRENT_TIMESTAMP" }
func (Dialect) GenerateCurrentDate() string      { return "CURRENT_DATE" }

func (Dialect) GenerateDateDiff(unit, a, b string) string {
	return fmt.Sprintf("EXTRACT(%s FROM (%s - %s))", strings.ToUpper(unit), a, b)
}

func (Dialect) GenerateDateLiteral(text string) (string, error) {
	return fmt.Sprintf("DATE '%s'", text), nil
}

func (Dialect) GenerateDateTimeLiteral(text string) (string, error) {
	return fmt.Sprintf("TIMESTAMPTZ '%s'", text), nil
}

var aggregateFunctionNames = map[string]string{
	"count": "count", "sum": "sum", "min": "min", "max": "max", "avg": "avg", "average": "avg",
}

func (Dialect) GenerateAggregateFunction(name, expr string, distinct bool, filter string) (string, error) {
	fn, ok := aggregateFunctionNames[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("jsonbdialect: unknown aggregate function %q", name)
	}
	inner := expr
	if distinct {
		inner = "DISTINCT " + inner
	}
	call := fmt.Sprintf("%s(%s)", fn, inner)
	if filter != "" {
		call += fmt.Sprintf(" FILTER (WHERE %s)", filter)
	}
	return call, nil
}

func (Dialect) GenerateTypeCheck(expr, fhirType string) (string, error) {
	pattern, isTemporal := dialect.TemporalPatterns[fhirType]
	switch {
	case fhirType == "boolean":
		return fmt.Sprintf("(%s IS NOT NULL AND %s IN ('true', 'false'))", expr, expr), nil
	case isTemporal:
		return fmt.Sprintf("(%s IS NOT NULL AND %s ~ '%s')", expr, expr, pattern), nil
	case fhirType == "integer" || fhirType == "integer64" || fhirType == "positiveInt" || fhirType == "unsignedInt":
		return fmt.Sprintf("(%s IS NOT NULL AND %s ~ '^-?[0-9]+$')", expr, expr), nil
	case fhirType == "decimal":
		return fmt.Sprintf("(%s IS NOT NULL AND %s ~ '^-?[0-9]+(\\.[0-9]+)?$')", expr, expr), nil
	case fhirType == "Quantity" || fhirType == "string" || dialect.LeafURILikeTypes[fhirType]:
		return fmt.Sprintf("(%s IS NOT NULL)", expr), nil
	}
	return "", fmt.Errorf("jsonbdialect: unknown FHIR type %q", fhirType)
}

func (Dialect) GenerateTypeCast(expr, fhirType string) (string, error) {
	pattern, isTemporal := dialect.TemporalPatterns[fhirType]
	switch {
	case fhirType == "boolean":
		return fmt.Sprintf("(CASE WHEN %s IN ('true', 'false') THEN %s::boolean ELSE NULL END)", expr, expr), nil
	case isTemporal:
		return fmt.Sprintf("(CASE WHEN %s ~ '%s' THEN %s ELSE NULL END)", expr, pattern, expr), nil
	case fhirType == "integer" || fhirType == "integer64" || fhirType == "positiveInt" || fhirType == "unsignedInt":
		return fmt.Sprintf("(CASE WHEN %s ~ '^-?[0-9]+$' THEN %s::bigint ELSE NULL END)", expr, expr), nil
	case fhirType == "decimal":
		return fmt.Sprintf("(CASE WHEN %s ~ '^-?[0-9]+(\\.[0-9]+)?$' THEN %s::numeric ELSE NULL END)", expr, expr), nil
	case fhirType == "string" || dialect.LeafURILikeTypes[fhirType]:
		return fmt.Sprintf("(%s::text)", expr), nil
	}
	return "", fmt.Errorf("jsonbdialect: unknown FHIR type %q", fhirType)
}

func (Dialect) GenerateCollectionTypeFilter(arrayExpr, fhirType string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem) FROM jsonb_array_elements(%s) AS elem WHERE jsonb_typeof(elem) = '%s')",
		arrayExpr, jsonbTypeTagFor(fhirType),
	)
}

var comparisonOperators = map[string]bool{
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true, "~": true, "!~": true,
}

func (Dialect) GenerateComparison(left, op, right string) (string, error) {
	if !comparisonOperators[op] {
		return "", fmt.Errorf("jsonbdialect: unknown comparison operator %q", op)
	}
	sqlOp := op
	if op == "~" {
		sqlOp = "="
	} else if op == "!~" {
		sqlOp = "!="
	}
	return fmt.Sprintf("(%s %s %s)", left, sqlOp, right), nil
}

func (Dialect) GenerateLogicalCombine(a, op, b string) (string, error) {
	switch op {
	case "and":
		return fmt.Sprintf("(%s AND %s)", a, b), nil
	case "or":
		return fmt.Sprintf("(%s OR %s)", a, b), nil
	}
	return "", fmt.Errorf("jsonbdialect: unknown logical operator %q", op)
}

func (Dialect) GenerateConditionalExpression(cond, thenExpr, elseExpr string) string {
	if elseExpr == "" {
		return fmt.Sprintf("CASE WHEN %s THEN %s END", cond, thenExpr)
	}
	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", cond, thenExpr, elseExpr)
}

func (Dialect) GenerateExistsCheck(expr string, isCollection bool) string {
	if isCollection {
		return fmt.Sprintf("(jsonb_array_length(%s) > 0)", expr)
	}
	return fmt.Sprintf("(%s IS NOT NULL)", expr)
}

func (Dialect) GenerateWhereClauseFilter(collection, predicate string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem) FROM jsonb_array_elements(%s) AS elem WHERE %s)",
		collection, predicate,
	)
}

func (Dialect) GenerateSelectTransformation(collection, projection string) string {
	return fmt.Sprintf("(SELECT jsonb_agg(%s) FROM jsonb_array_elements(%s) AS elem)", projection, collection)
}

func (Dialect) GenerateCollectionCombine(a, b string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem) FROM (SELECT elem FROM jsonb_array_elements(%s) AS elem "+
			"UNION ALL SELECT elem FROM jsonb_array_elements(%s) AS elem) combined)",
		a, b,
	)
}

func (Dialect) GenerateCollectionExclude(collection, values string) string {
	return fmt.Sprintf(
		"(SELECT jsonb_agg(elem) FROM jsonb_array_elements(%s) AS elem "+
			"WHERE elem NOT IN (SELECT jsonb_array_elements(%s)))",
		collection, values,
	)
}

func (Dialect) GenerateStringJoin(collection, sep string, isJSON bool) string {
	if isJSON {
		return fmt.Sprintf(
			"(SELECT string_agg(elem #>> '{}', %s) FROM jsonb_array_elements(%s) AS elem)",
			sep, collection,
		)
	}
	return fmt.Sprintf("array_to_string(%s, %s)", collection, sep)
}

func jsonbTypeTagFor(fhirType string) string {
	switch fhirType {
	case "boolean":
		return "boolean"
	case "integer", "integer64", "decimal", "positiveInt", "unsignedInt":
		return "number"
	default:
		return "string"
	}
}

var mathFunctionNames = map[string]string{
	"sqrt": "sqrt", "ln": "ln", "log": "log", "exp": "exp", "abs": "abs",
	"ceiling": "ceil", "floor": "floor", "round": "round", "truncate": "trunc", "power": "power",
}

func (Dialect) GenerateMathFunction(name string, args ...string) (string, error) {
	fn, ok := mathFunctionNames[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("jsonbdialect: unknown math function %q", name)
	}
	return mathWithDomainGuard(fn, name, args...)
}

func mathWithDomainGuard(fn, name string, args ...string) (string, error) {
	switch name {
	case "sqrt", "ln":
		if len(args) != 1 {
			return "", fmt.Errorf("jsonbdialect: %s expects 1 argument, got %d", name, len(args))
		}
		return fmt.Sprintf("(CASE WHEN %s < 0 THEN NULL ELSE %s(%s) END)", args[0], fn, args[0]), nil
	case "log":
		if len(args) != 2 {
			return "", fmt.Errorf("jsonbdialect: log expects 2 arguments, got %d", len(args))
		}
		return fmt.Sprintf(
			"(CASE WHEN %s <= 0 OR %s <= 0 OR %s = 1 THEN NULL ELSE ln(%s) / ln(%s) END)",
			args[0], args[1], args[1], args[0], args[1],
		), nil
	case "power":
		if len(args) != 2 {
			return "", fmt.Errorf("jsonbdialect: power expects 2 arguments, got %d", len(args))
		}
		base, exp := args[0], args[1]
		return fmt.Sprintf(
			"(CASE WHEN %s = 0 AND %s = 0 THEN 1 WHEN %s = 0 AND %s < 0 THEN NULL "+
				"WHEN %s < 0 AND %s <> floor(%s) THEN NULL ELSE power(%s, %s) END)",
			base, exp, base, exp, base, exp, exp, base, exp,
		), nil
	default:
		joined := strings.Join(args, ", ")
		return fmt.Sprintf("%s(%s)", fn, joined), nil
	}
}
