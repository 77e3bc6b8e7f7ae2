// Package dialect defines the capability interface the SQL translator uses
// to emit engine-specific syntax. The translator never writes a JSON
// function literally; every piece of dialect-variant SQL text is produced
// through this interface so the same translation logic drives both a
// JSON-document engine and a JSONB-document engine.
package dialect

// Dialect encapsulates every piece of SQL syntax that differs between
// storage engines. Every method is a pure, side-effect-free function of its
// string arguments; implementations hold no mutable state and are safe for
// concurrent use. Methods return an error only where the operation can
// legitimately fail on the caller's input (an unknown math function name,
// an unrecognized FHIR type) — everything else returns a bare string.
type Dialect interface {
	// Name identifies the dialect for diagnostics ("json", "jsonb").
	Name() string

	// --- JSON ---
	ExtractJSONField(col, path string) string
	ExtractJSONObject(col, path string) string
	CheckJSONExists(col, path string) string
	GetJSONType(expr string) string
	GetJSONArrayLength(expr, path string) string
	UnnestJSONArray(col, path, alias string) string
	GenerateLateralUnnest(sourceTable, arrayExpr, alias string) string
	IterateJSONArray(col, path string) string
	AggregateToJSONArray(expr string) string
	CreateJSONArray(parts ...string) string
	CreateJSONObject(pairs ...string) string
	WrapJSONArray(expr string) string
	EmptyJSONArray() string
	IsJSONArray(expr string) string
	EnumerateJSONArray(arrayExpr, valueAlias, indexAlias string) string
	SerializeJSONValue(expr string) string

	// --- Scalar ---
	StringConcat(a, b string) string
	Substring(expr, start, length string) string
	SplitString(expr, sep string) string
	TryCast(expr, sqlType string) string
	CastToTimestamp(expr string) string
	CastToTime(expr string) string
	CastToDouble(expr string) string
	IsFinite(expr string) string

	// --- Math ---
	GenerateMathFunction(name string, args ...string) (string, error)

	// --- Dates ---
	GenerateCurrentTimestamp() string
	GenerateCurrentDate() string
	GenerateDateDiff(unit, a, b string) string
	GenerateDateLiteral(text string) (string, error)
	GenerateDateTimeLiteral(text string) (string, error)

	// --- Aggregation ---
	GenerateAggregateFunction(name, expr string, distinct bool, filter string) (string, error)

	// --- Type codegen ---
	GenerateTypeCheck(expr, fhirType string) (string, error)
	GenerateTypeCast(expr, fhirType string) (string, error)
	GenerateCollectionTypeFilter(arrayExpr, fhirType string) string

	// --- Comparison, logical, conditional ---
	GenerateComparison(left, op, right string) (string, error)
	GenerateLogicalCombine(a, op, b string) (string, error)
	GenerateConditionalExpression(cond, thenExpr, elseExpr string) string

	// --- Control ---
	GenerateExistsCheck(expr string, isCollection bool) string
	GenerateWhereClauseFilter(collection, predicate string) string
	GenerateSelectTransformation(collection, projection string) string
	GenerateCollectionCombine(a, b string) string
	GenerateCollectionExclude(collection, values string) string
	GenerateStringJoin(collection, sep string, isJSON bool) string
}
