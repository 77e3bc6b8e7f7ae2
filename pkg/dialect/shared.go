package dialect

// MathFunctionNames is the closed set both reference dialects recognize for
// generate_math_function.
var MathFunctionNames = map[string]bool{
	"sqrt": true, "ln": true, "log": true, "exp": true, "abs": true,
	"ceiling": true, "floor": true, "round": true, "truncate": true, "power": true,
}

// TemporalPatterns holds the regex literal (SQL-embeddable source, no
// surrounding delimiters) used to shape-validate a FHIR temporal string
// before a type-check or type-cast accepts it.
var TemporalPatterns = map[string]string{
	"date":     `^[0-9]{4}(-[0-9]{2}(-[0-9]{2})?)?$`,
	"dateTime": `^[0-9]{4}(-[0-9]{2}(-[0-9]{2}(T[0-9]{2}:[0-9]{2}(:[0-9]{2}(\.[0-9]+)?)?(Z|[+-][0-9]{2}:[0-9]{2})?)?)?)?$`,
	"time":     `^[0-9]{2}:[0-9]{2}(:[0-9]{2}(\.[0-9]+)?)?$`,
	"instant":  `^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})$`,
}

// KnownScalarTypes is the set of FHIR primitive and complex types both
// reference dialects accept in generate_type_check / generate_type_cast.
// Resource-category names are also valid is/as targets (a containment
// check on the registry) but are resolved by the translator, not here.
var KnownScalarTypes = map[string]bool{
	"boolean": true, "integer": true, "integer64": true, "decimal": true, "string": true,
	"uri": true, "url": true, "canonical": true, "code": true, "id": true, "oid": true,
	"uuid": true, "markdown": true, "base64Binary": true, "instant": true,
	"date": true, "dateTime": true, "time": true, "positiveInt": true, "unsignedInt": true,
	"Quantity": true,
}

// LeafURILikeTypes are the string-shaped primitive types with no additional
// shape validation beyond "not null" once cast to text.
var LeafURILikeTypes = map[string]bool{
	"uri": true, "url": true, "canonical": true, "code": true, "id": true,
	"oid": true, "uuid": true, "markdown": true, "base64Binary": true,
}
