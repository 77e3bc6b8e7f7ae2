package validator

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/sqlcompiler/pkg/registry"
)

// --- Rule 10: path element validation ---

// checkPathElements walks every collected dot-chain whose root resolves to a
// registered type and verifies each subsequent step is a declared element.
// Chains that don't start at a recognizable root (a lambda-local path
// inside a where()/select() predicate, say) cannot be resolved against the
// registry without full type-flow inference and are left to the translator.
func checkPathElements(funcCalls []FuncCall, paths []PathRef, opts Options) error {
	if opts.Reg == nil {
		return nil
	}
	for _, call := range funcCalls {
		if typeChangingFunctionNames[strings.ToLower(call.Name)] {
			return nil
		}
	}
	for _, p := range paths {
		if err := checkPathRef(p, opts.Reg); err != nil {
			return err
		}
	}
	return nil
}

func checkPathRef(p PathRef, reg registry.TypeRegistry) error {
	if len(p.Components) == 0 {
		return nil
	}
	root := p.Components[0]
	if !isUpperFirst(root) || !reg.IsRegisteredType(root) {
		return nil
	}
	currentType := reg.GetCanonicalName(root)
	for _, comp := range p.Components[1:] {
		if comp == "" || strings.EqualFold(comp, "true") || strings.EqualFold(comp, "false") {
			continue
		}
		if currentType == "BackboneElement" {
			return nil
		}
		elemType, ok := reg.GetElementType(currentType, comp)
		if !ok {
			return &ValidationError{
				Rule:        RulePathElement,
				Message:     fmt.Sprintf("%q is not a known element of %s", comp, currentType),
				Position:    p.Pos,
				Suggestions: suggestElementNames(comp, reg.GetElementNames(currentType)),
			}
		}
		currentType = reg.GetCanonicalName(elemType)
	}
	return nil
}

func suggestElementNames(name string, candidates []string) []string {
	type scored struct {
		name     string
		distance int
	}
	var scoredNames []scored
	for _, c := range candidates {
		d := levenshtein(strings.ToLower(name), strings.ToLower(c))
		if d <= 3 {
			scoredNames = append(scoredNames, scored{c, d})
		}
	}
	for i := 1; i < len(scoredNames); i++ {
		for j := i; j > 0 && scoredNames[j].distance < scoredNames[j-1].distance; j-- {
			scoredNames[j], scoredNames[j-1] = scoredNames[j-1], scoredNames[j]
		}
	}
	var out []string
	for i, s := range scoredNames {
		if i >= 3 {
			break
		}
		out = append(out, s.name)
	}
	return out
}
