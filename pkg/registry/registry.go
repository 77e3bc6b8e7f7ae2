// Package registry defines the read-only FHIR type lookup the compiler
// consumes: canonical name resolution, element typing, array-vs-scalar
// classification, and value[x] choice-type expansion. It never loads
// StructureDefinitions; DefaultRegistry is a fixture-backed stand-in
// sufficient to drive path validation and type codegen.
package registry

// Category classifies a registered FHIR type name.
type Category int

const (
	CategoryPrimitive Category = iota
	CategoryComplex
	CategoryResource
)

func (c Category) String() string {
	switch c {
	case CategoryPrimitive:
		return "primitive"
	case CategoryComplex:
		return "complex"
	case CategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

// ChoiceSuffixes is the fixed, priority-ordered list of type suffixes tried
// when resolving a `<prefix>[x]` polymorphic element (e.g. `value` on
// Observation resolves to `valueQuantity`, `valueString`, …). Primitive
// suffixes are tried before complex ones, matching the original resolver's
// ordering.
var ChoiceSuffixes = []string{
	"Boolean", "Integer", "Integer64", "Decimal", "String", "Code", "Id", "Uri", "Url", "Canonical",
	"Base64Binary", "Instant", "Date", "DateTime", "Time", "Oid", "Uuid", "Markdown", "PositiveInt", "UnsignedInt",
	"Quantity", "CodeableConcept", "Coding", "Range", "Period", "Ratio", "RatioRange",
	"Identifier", "Reference", "Attachment", "HumanName", "Address", "ContactPoint",
	"Timing", "Signature", "Annotation", "SampledData", "Age", "Distance", "Duration",
	"Count", "Money", "MoneyQuantity", "SimpleQuantity",
}

// suffixCanonicalType maps each choice suffix to the canonical type name its
// variant carries. Primitive suffixes map to their lowercase primitive name;
// complex suffixes map to themselves, except profile aliases that collapse
// to Quantity.
var suffixCanonicalType = map[string]string{
	"Boolean": "boolean", "Integer": "integer", "Integer64": "integer64", "Decimal": "decimal",
	"String": "string", "Code": "code", "Id": "id", "Uri": "uri", "Url": "url", "Canonical": "canonical",
	"Base64Binary": "base64Binary", "Instant": "instant", "Date": "date", "DateTime": "dateTime",
	"Time": "time", "Oid": "oid", "Uuid": "uuid", "Markdown": "markdown",
	"PositiveInt": "positiveInt", "UnsignedInt": "unsignedInt",
	"Quantity": "Quantity", "CodeableConcept": "CodeableConcept", "Coding": "Coding",
	"Range": "Range", "Period": "Period", "Ratio": "Ratio", "RatioRange": "RatioRange",
	"Identifier": "Identifier", "Reference": "Reference", "Attachment": "Attachment",
	"HumanName": "HumanName", "Address": "Address", "ContactPoint": "ContactPoint",
	"Timing": "Timing", "Signature": "Signature", "Annotation": "Annotation", "SampledData": "SampledData",
	"Age": "Quantity", "Distance": "Quantity", "Duration": "Quantity", "Count": "Quantity",
	"Money": "Money", "MoneyQuantity": "Quantity", "SimpleQuantity": "Quantity",
}

// TypeRegistry is the read-only FHIR type lookup the translator and
// validator consult. Implementations must be safe for concurrent use.
type TypeRegistry interface {
	IsRegisteredType(name string) bool
	GetCanonicalName(name string) string
	GetElementType(typeName, element string) (string, bool)
	GetElementNames(typeName string) []string
	IsArrayElement(typeName, element string) bool
	GetAllTypeNames() []string
	// ExpandChoiceElement reports, for a `<prefix>[x]` element declared on
	// typeName, every suffixed variant name in ChoiceSuffixes priority
	// order. ok is false if prefix is not declared as a choice element.
	ExpandChoiceElement(typeName, prefix string) (variants []string, ok bool)
	// DiscriminatorFields returns the registry-declared fields used to
	// detect which choice variant is present for a complex type (e.g.
	// Quantity -> ["value"]).
	DiscriminatorFields(typeName string) []string
	// CategoryOf reports a registered type's classification.
	CategoryOf(typeName string) (Category, bool)
}
