// Package jsondialect implements dialect.Dialect against a SQLite/DuckDB
// style JSON-document engine: `json_extract`, `json_each`, and scalar
// casts, per the representative SQL fragments named in the translator
// specification (`json_extract(resource, '$.birthDate')`,
// `json_extract(name_item, '$.given[*]')`).
package jsondialect

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/dialect"
)

// Dialect is stateless and safe for concurrent use.
type Dialect struct{}

// New returns a ready-to-use JSON-document Dialect.
func New() *Dialect { return &Dialect{} }

func (Dialect) Name() string { return "json" }

func (Dialect) ExtractJSONField(col, path string) string {
	return fmt.Sprintf("json_extract_string(%s, '%s')", col, path)
}

func (Dialect) ExtractJSONObject(col, path string) string {
	return fmt.Sprintf("json_extract(%s, '%s')", col, path)
}

func (Dialect) CheckJSONExists(col, path string) string {
	return fmt.Sprintf("(json_extract(%s, '%s') IS NOT NULL)", col, path)
}

func (Dialect) GetJSONType(expr string) string {
	return fmt.Sprintf("json_type(%s)", expr)
}

func (Dialect) GetJSONArrayLength(expr, path string) string {
	if path == "" {
		return fmt.Sprintf("json_array_length(%s)", expr)
	}
	return fmt.Sprintf("json_array_length(%s, '%s')", expr, path)
}

func (Dialect) UnnestJSONArray(col, path, alias string) string {
	return fmt.Sprintf("json_each(%s, '%s') AS %s", col, path, alias)
}

// GenerateLateralUnnest renders the LATERAL clause a CTE builder splices
// into `SELECT <id_column>, <projection> FROM <source>, <lateral clause>`.
func (Dialect) GenerateLateralUnnest(sourceTable, arrayExpr, alias string) string {
	return fmt.Sprintf("json_each(%s) AS %s", arrayExpr, alias)
}

func (Dialect) IterateJSONArray(col, path string) string {
	return fmt.Sprintf("json_each(%s, '%s')", col, path)
}

func (Dialect) AggregateToJSONArray(expr string) string {
	return fmt.Sprintf("json_group_array(%s)", expr)
}

func (Dialect) CreateJSONArray(parts ...string) string {
	return fmt.Sprintf("json_array(%s)", strings.Join(parts, ", "))
}

func (Dialect) CreateJSONObject(pairs ...string) string {
	return fmt.Sprintf("json_object(%s)", strings.Join(pairs, ", "))
}

func (Dialect) WrapJSONArray(expr string) string {
	return fmt.Sprintf("json_array(%s)", expr)
}

func (Dialect) EmptyJSONArray() string { return "json_array()" }

func (Dialect) IsJSONArray(expr string) string {
	return fmt.Sprintf("(json_type(%s) = 'ARRAY')", expr)
}

func (Dialect) EnumerateJSONArray(arrayExpr, valueAlias, indexAlias string) string {
	return fmt.Sprintf("json_each(%s) AS %s(%s, %s)", arrayExpr, valueAlias, indexAlias, valueAlias)
}

func (Dialect) SerializeJSONValue(expr string) string {
	return fmt.Sprintf("json_quote(%s)", expr)
}

func (Dialect) StringConcat(a, b string) string {
	return fmt.Sprintf("(COALESCE(%s, '') || COALESCE(%s, ''))", a, b)
}

// Substring takes a FHIRPath 0-based start already converted to SQL's
// 1-based convention by the caller.
func (Dialect) Substring(expr, start, length string) string {
	if length == "" {
		return fmt.Sprintf("substr(%s, %s)", expr, start)
	}
	return fmt.Sprintf("substr(%s, %s, %s)", expr, start, length)
}

func (Dialect) SplitString(expr, sep string) string {
	return fmt.Sprintf("str_split(%s, %s)", expr, sep)
}

func (Dialect) TryCast(expr, sqlType string) string {
	return fmt.Sprintf("TRY_CAST(%s AS %s)", expr, sqlType)
}

func (Dialect) CastToTimestamp(expr string) string { return fmt.Sprintf("CAST(%s AS TIMESTAMP)", expr) }
func (Dialect) CastToTime(expr string) string      { return fmt.Sprintf("CAST(%s AS TIME)", expr) }
func (Dialect) CastToDouble(expr string) string    { return fmt.Sprintf("CAST(%s AS DOUBLE)", expr) }

func (Dialect) IsFinite(expr string) string {
	return fmt.Sprintf("(NOT isnan(%s) AND NOT isinf(%s))", expr, expr)
}

func (Dialect) GenerateCurrentTimestamp() string { return "CURRENT_TIMESTAMP" }
func (Dialect) GenerateCurrentDate() string      { return "CURRENT_DATE" }

func (Dialect) GenerateDateDiff(unit, a, b string) string {
	return fmt.Sprintf("date_diff('%s', %s, %s)", unit, b, a)
}

func (Dialect) GenerateDateLiteral(text string) (string, error) {
	return fmt.Sprintf("DATE '%s'", text), nil
}

func (Dialect) GenerateDateTimeLiteral(text string) (string, error) {
	return fmt.Sprintf("TIMESTAMP '%s'", text), nil
}

func (Dialect) GenerateAggregateFunction(name, expr string, distinct bool, filter string) (string, error) {
	fn, ok := aggregateFunctionNames[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("jsondialect: unknown aggregate function %q", name)
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

var aggregateFunctionNames = map[string]string{
	"count": "COUNT", "sum": "SUM", "min": "MIN", "max": "MAX", "avg": "AVG", "average": "AVG",
}

func (Dialect) GenerateTypeCheck(expr, fhirType string) (string, error) {
	pattern, isTemporal := dialect.TemporalPatterns[fhirType]
	switch {
	case fhirType == "boolean":
		return fmt.Sprintf("(%s IS NOT NULL AND %s IN ('true', 'false'))", expr, expr), nil
	case isTemporal:
		return fmt.Sprintf("(%s IS NOT NULL AND regexp_matches(%s, '%s'))", expr, expr, pattern), nil
	case fhirType == "integer" || fhirType == "integer64" || fhirType == "positiveInt" || fhirType == "unsignedInt":
		return fmt.Sprintf("(%s IS NOT NULL AND TRY_CAST(%s AS BIGINT) IS NOT NULL)", expr, expr), nil
	case fhirType == "decimal":
		return fmt.Sprintf("(%s IS NOT NULL AND TRY_CAST(%s AS DOUBLE) IS NOT NULL)", expr, expr), nil
	case fhirType == "Quantity" || fhirType == "string" || dialect.LeafURILikeTypes[fhirType]:
		return fmt.Sprintf("(%s IS NOT NULL)", expr), nil
	}
	return "", fmt.Errorf("jsondialect: unknown FHIR type %q", fhirType)
}

func (Dialect) GenerateTypeCast(expr, fhirType string) (string, error) {
	pattern, isTemporal := dialect.TemporalPatterns[fhirType]
	switch {
	case fhirType == "boolean":
		return fmt.Sprintf("CASE WHEN %s IN ('true', 'false') THEN CAST(%s AS BOOLEAN) ELSE NULL END", expr, expr), nil
	case isTemporal:
		return fmt.Sprintf("CASE WHEN regexp_matches(%s, '%s') THEN %s ELSE NULL END", expr, pattern, expr), nil
	case fhirType == "integer" || fhirType == "integer64" || fhirType == "positiveInt" || fhirType == "unsignedInt":
		return fmt.Sprintf("TRY_CAST(%s AS BIGINT)", expr), nil
	case fhirType == "decimal":
		return fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", expr), nil
	case fhirType == "string" || dialect.LeafURILikeTypes[fhirType]:
		return fmt.Sprintf("CAST(%s AS VARCHAR)", expr), nil
	}
	return "", fmt.Errorf("jsondialect: unknown FHIR type %q", fhirType)
}

func (Dialect) GenerateCollectionTypeFilter(arrayExpr, fhirType string) string {
	return fmt.Sprintf(
		"(SELECT json_group_array(value) FROM json_each(%s) WHERE json_type(value) = '%s')",
		arrayExpr, jsonTypeTagFor(fhirType),
	)
}

func (Dialect) GenerateComparison(left, op, right string) (string, error) {
	if !comparisonOperators[op] {
		return "", fmt.Errorf("jsondialect: unknown comparison operator %q", op)
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

var comparisonOperators = map[string]bool{
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true, "~": true, "!~": true,
}

func (Dialect) GenerateLogicalCombine(a, op, b string) (string, error) {
	switch op {
	case "and":
		return fmt.Sprintf("(%s AND %s)", a, b), nil
	case "or":
		return fmt.Sprintf("(%s OR %s)", a, b), nil
	}
	return "", fmt.Errorf("jsondialect: unknown logical operator %q", op)
}

func (Dialect) GenerateConditionalExpression(cond, thenExpr, elseExpr string) string {
	if elseExpr == "" {
		return fmt.Sprintf("CASE WHEN %s THEN %s END", cond, thenExpr)
	}
	return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", cond, thenExpr, elseExpr)
}

func (Dialect) GenerateExistsCheck(expr string, isCollection bool) string {
	if isCollection {
		return fmt.Sprintf("(json_array_length(%s) > 0)", expr)
	}
	return fmt.Sprintf("(%s IS NOT NULL)", expr)
}

func (Dialect) GenerateWhereClauseFilter(collection, predicate string) string {
	return fmt.Sprintf("(SELECT json_group_array(value) FROM json_each(%s) WHERE %s)", collection, predicate)
}

func (Dialect) GenerateSelectTransformation(collection, projection string) string {
	return fmt.Sprintf("(SELECT json_group_array(%s) FROM json_each(%s))", projection, collection)
}

func (Dialect) GenerateCollectionCombine(a, b string) string {
	return fmt.Sprintf("(SELECT json_group_array(value) FROM (SELECT value FROM json_each(%s) UNION ALL SELECT value FROM json_each(%s)))", a, b)
}

func (Dialect) GenerateCollectionExclude(collection, values string) string {
	return fmt.Sprintf(
		"(SELECT json_group_array(value) FROM json_each(%s) WHERE value NOT IN (SELECT value FROM json_each(%s)))",
		collection, values,
	)
}

func (Dialect) GenerateStringJoin(collection, sep string, isJSON bool) string {
	if isJSON {
		return fmt.Sprintf("(SELECT string_agg(value, %s) FROM json_each(%s))", sep, collection)
	}
	return fmt.Sprintf("array_to_string(%s, %s)", collection, sep)
}

func jsonTypeTagFor(fhirType string) string {
	switch fhirType {
	case "boolean":
		return "BOOLEAN"
	case "integer", "integer64", "decimal", "positiveInt", "unsignedInt":
		return "UBIGINT"
	default:
		return "VARCHAR"
	}
}

func (Dialect) GenerateMathFunction(name string, args ...string) (string, error) {
	fn, ok := mathFunctionNames[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("jsondialect: unknown math function %q", name)
	}
	return mathWithDomainGuard(fn, name, args...)
}

var mathFunctionNames = map[string]string{
	"sqrt": "sqrt", "ln": "ln", "log": "log", "exp": "exp", "abs": "abs",
	"ceiling": "ceil", "floor": "floor", "round": "round", "truncate": "trunc", "power": "pow",
}

func mathWithDomainGuard(fn, name string, args ...string) (string, error) {
	switch name {
	case "sqrt", "ln":
		if len(args) != 1 {
			return "", fmt.Errorf("jsondialect: %s expects 1 argument, got %d", name, len(args))
		}
		return fmt.Sprintf("CASE WHEN %s < 0 THEN NULL ELSE %s(%s) END", args[0], fn, args[0]), nil
	case "log":
		if len(args) != 2 {
			return "", fmt.Errorf("jsondialect: log expects 2 arguments, got %d", len(args))
		}
		return fmt.Sprintf(
			"CASE WHEN %s <= 0 OR %s <= 0 OR %s = 1 THEN NULL ELSE ln(%s) / ln(%s) END",
			args[0], args[1], args[1], args[0], args[1],
		), nil
	case "power":
		if len(args) != 2 {
			return "", fmt.Errorf("jsondialect: power expects 2 arguments, got %d", len(args))
		}
		base, exp := args[0], args[1]
		return fmt.Sprintf(
			"CASE WHEN %s = 0 AND %s = 0 THEN 1 WHEN %s = 0 AND %s < 0 THEN NULL "+
				"WHEN %s < 0 AND %s <> CAST(%s AS BIGINT) THEN NULL ELSE pow(%s, %s) END",
			base, exp, base, exp, base, exp, exp, base, exp,
		), nil
	default:
		joined := strings.Join(args, ", ")
		return fmt.Sprintf("%s(%s)", fn, joined), nil
	}
}
