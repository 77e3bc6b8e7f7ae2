package registry

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/buger/jsonparser"

	"github.com/fhir4ds/sqlcompiler/pkg/common"
)

//go:embed fixtures/elements.json
var elementsFixture []byte

type typeDef struct {
	category       Category
	baseType       string
	discriminators []string
	elements       map[string]elementDef
}

type elementDef struct {
	typeName string
	isArray  bool
	isChoice bool // declared as "<name>[x]"
}

// DefaultRegistry is a small in-memory TypeRegistry backed by an embedded
// JSON fixture covering a representative slice of FHIR R4 resources and
// datatypes. It is read-only after construction and safe for concurrent use.
type DefaultRegistry struct {
	mu             sync.RWMutex
	types          map[string]typeDef
	profileAliases map[string]string
	allNames       []string
}

// NewDefaultRegistry parses the embedded fixture once and returns a
// ready-to-use registry.
func NewDefaultRegistry() (*DefaultRegistry, error) {
	r := &DefaultRegistry{
		types:          make(map[string]typeDef),
		profileAliases: make(map[string]string),
	}
	if err := r.load(elementsFixture); err != nil {
		return nil, common.WrapPath("registry: loading embedded fixture", err)
	}
	return r, nil
}

func (r *DefaultRegistry) load(data []byte) error {
	typesRaw, _, _, err := jsonparser.Get(data, "types")
	if err != nil {
		return fmt.Errorf("missing \"types\" object: %w", err)
	}
	err = jsonparser.ObjectEach(typesRaw, func(key []byte, value []byte, _ jsonparser.ValueType, _ int) error {
		name := string(key)
		td, err := parseTypeDef(value)
		if err != nil {
			return fmt.Errorf("type %q: %w", name, err)
		}
		r.types[name] = td
		r.allNames = append(r.allNames, name)
		return nil
	})
	if err != nil {
		return err
	}

	if aliasesRaw, _, _, err := jsonparser.Get(data, "profileAliases"); err == nil {
		err = jsonparser.ObjectEach(aliasesRaw, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
			r.profileAliases[string(key)] = string(value)
			return nil
		})
		if err != nil {
			return err
		}
	}

	// The fixture's own "choiceSuffixes" array documents the same priority
	// order as the package-level ChoiceSuffixes and is not re-parsed here;
	// the latter is the single source of truth so order can't drift
	// between registry instances sharing the process.

	return nil
}

func parseTypeDef(raw []byte) (typeDef, error) {
	td := typeDef{elements: make(map[string]elementDef)}

	catStr, err := jsonparser.GetString(raw, "category")
	if err != nil {
		return td, fmt.Errorf("missing category: %w", err)
	}
	switch catStr {
	case "primitive":
		td.category = CategoryPrimitive
	case "complex":
		td.category = CategoryComplex
	case "resource":
		td.category = CategoryResource
	default:
		return td, fmt.Errorf("unknown category %q", catStr)
	}

	if base, err := jsonparser.GetString(raw, "baseType"); err == nil {
		td.baseType = base
	}

	if discRaw, _, _, err := jsonparser.Get(raw, "discriminators"); err == nil {
		_, err := jsonparser.ArrayEach(discRaw, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
			td.discriminators = append(td.discriminators, string(value))
		})
		if err != nil {
			return td, err
		}
	}

	elementsRaw, _, _, err := jsonparser.Get(raw, "elements")
	if err != nil {
		return td, fmt.Errorf("missing elements: %w", err)
	}
	err = jsonparser.ObjectEach(elementsRaw, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
		rawName := string(key)
		name := strings.TrimSuffix(rawName, "[x]")
		isChoice := name != rawName

		elemType, err := jsonparser.GetString(value, "type")
		if err != nil {
			return fmt.Errorf("element %q missing type: %w", rawName, err)
		}
		isArray, _ := jsonparser.GetBoolean(value, "array")

		td.elements[name] = elementDef{typeName: elemType, isArray: isArray, isChoice: isChoice}
		return nil
	})
	return td, err
}

func (r *DefaultRegistry) resolve(name string) (typeDef, bool) {
	name = r.GetCanonicalName(name)
	td, ok := r.types[name]
	return td, ok
}

// lookupElement walks the baseType chain until it finds element, or fails.
func (r *DefaultRegistry) lookupElement(typeName, element string) (elementDef, bool) {
	seen := map[string]bool{}
	for typeName != "" && !seen[typeName] {
		seen[typeName] = true
		td, ok := r.resolve(typeName)
		if !ok {
			return elementDef{}, false
		}
		if ed, ok := td.elements[element]; ok {
			return ed, true
		}
		typeName = td.baseType
	}
	return elementDef{}, false
}

func (r *DefaultRegistry) IsRegisteredType(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.resolve(name)
	return ok
}

func (r *DefaultRegistry) GetCanonicalName(name string) string {
	if canon, ok := r.profileAliases[name]; ok {
		return canon
	}
	if name == "System.Boolean" {
		return "boolean"
	}
	if strings.HasPrefix(name, "FHIR.") {
		return strings.TrimPrefix(name, "FHIR.")
	}
	if strings.HasPrefix(name, "System.") {
		return strings.TrimPrefix(name, "System.")
	}
	return name
}

func (r *DefaultRegistry) GetElementType(typeName, element string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ed, ok := r.lookupElement(typeName, element); ok {
		return ed.typeName, true
	}

	// Choice-suffix resolution: `valueQuantity` on a type declaring `value[x]`.
	for _, suffix := range ChoiceSuffixes {
		if !strings.HasSuffix(element, suffix) {
			continue
		}
		prefix := strings.TrimSuffix(element, suffix)
		if prefix == "" {
			continue
		}
		if ed, ok := r.lookupElement(typeName, prefix); ok && ed.isChoice {
			if canon, ok := suffixCanonicalType[suffix]; ok {
				return canon, true
			}
		}
	}
	return "", false
}

func (r *DefaultRegistry) GetElementNames(typeName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	var names []string
	name := typeName
	visited := map[string]bool{}
	for name != "" && !visited[name] {
		visited[name] = true
		td, ok := r.resolve(name)
		if !ok {
			break
		}
		for elem := range td.elements {
			if !seen[elem] {
				seen[elem] = true
				names = append(names, elem)
			}
		}
		name = td.baseType
	}
	return names
}

func (r *DefaultRegistry) IsArrayElement(typeName, element string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ed, ok := r.lookupElement(typeName, element)
	return ok && ed.isArray
}

func (r *DefaultRegistry) GetAllTypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.allNames))
	copy(out, r.allNames)
	return out
}

func (r *DefaultRegistry) ExpandChoiceElement(typeName, prefix string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ed, ok := r.lookupElement(typeName, prefix)
	if !ok || !ed.isChoice {
		return nil, false
	}
	variants := make([]string, len(ChoiceSuffixes))
	for i, suffix := range ChoiceSuffixes {
		variants[i] = prefix + suffix
	}
	return variants, true
}

func (r *DefaultRegistry) DiscriminatorFields(typeName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	td, ok := r.resolve(typeName)
	if !ok {
		return nil
	}
	out := make([]string, len(td.discriminators))
	copy(out, td.discriminators)
	return out
}

func (r *DefaultRegistry) CategoryOf(typeName string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	td, ok := r.resolve(typeName)
	if !ok {
		return 0, false
	}
	return td.category, true
}
