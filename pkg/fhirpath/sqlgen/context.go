package sqlgen

import (
	"strconv"
	"strings"
)

// VariableBinding records what a FHIRPath variable ($this, $index, $total,
// or a user-bound lambda parameter) resolves to in the SQL currently being
// built.
type VariableBinding struct {
	SQLAlias     string
	DeclaredType string
	ArrayAlias   string
}

// TranslationContext is mutable scratch state for a single translate() call.
// It is never shared across goroutines; Translator resets it at the start
// of every top-level Translate.
type TranslationContext struct {
	ResourceType string
	CurrentTable string
	// CurrentType is the registry type name of the row currently addressed
	// by CurrentTable — what the next identifier step's element lookup is
	// resolved against. It starts at ResourceType and advances as path
	// steps descend into complex-typed elements.
	CurrentType string
	ParentPath  []string
	Variables   map[string]VariableBinding
	cteCounter  int
	usedAliases map[string]bool
}

func newContext(resourceType string) *TranslationContext {
	return &TranslationContext{
		ResourceType: resourceType,
		CurrentTable: "resource",
		CurrentType:  resourceType,
		Variables:    map[string]VariableBinding{},
		usedAliases:  map[string]bool{},
	}
}

// PushPath appends name to ParentPath and returns a function that restores
// the previous length — Go has no destructors, so callers bracket a path
// push with `defer ctx.PushPath(name)()`.
func (c *TranslationContext) PushPath(name string) func() {
	c.ParentPath = append(c.ParentPath, name)
	depth := len(c.ParentPath)
	return func() {
		c.ParentPath = c.ParentPath[:depth-1]
	}
}

// JoinedPath renders ParentPath as a dotted JSON path body (no leading `$.`).
func (c *TranslationContext) JoinedPath() string {
	return strings.Join(c.ParentPath, ".")
}

// NextCTEName returns the next cte_N name and advances the counter.
func (c *TranslationContext) NextCTEName() string {
	c.cteCounter++
	return cteNameFor(c.cteCounter)
}

func cteNameFor(n int) string {
	return "cte_" + strconv.Itoa(n)
}

// UniqueAlias appends a numeric suffix to base until the result has not
// been handed out before by this context, matching visit_identifier's
// "made unique against prior aliases" requirement.
func (c *TranslationContext) UniqueAlias(base string) string {
	if c.usedAliases == nil {
		c.usedAliases = map[string]bool{}
	}
	candidate := base
	for i := 2; c.usedAliases[candidate]; i++ {
		candidate = base + "_" + strconv.Itoa(i)
	}
	c.usedAliases[candidate] = true
	return candidate
}

// BindVariable installs a binding for the duration of the caller's scope;
// the returned function restores whatever was bound before (or removes the
// binding entirely), following the same scope-guard shape as PushPath.
func (c *TranslationContext) BindVariable(name string, binding VariableBinding) func() {
	prev, had := c.Variables[name]
	c.Variables[name] = binding
	return func() {
		if had {
			c.Variables[name] = prev
		} else {
			delete(c.Variables, name)
		}
	}
}
