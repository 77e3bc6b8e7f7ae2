package sqlgen

import "strings"

// AssembleSQL orders ctes by dependency (stable Kahn-style, preserving
// input order among independent candidates) and renders one SQL string: a
// WITH chain followed by a final `SELECT * FROM <last>;`.
func AssembleSQL(ctes []CTE) (string, error) {
	if len(ctes) == 0 {
		return "", assemblyErrorf("CTE list is empty")
	}

	byName := make(map[string]CTE, len(ctes))
	for _, c := range ctes {
		if _, dup := byName[c.Name]; dup {
			return "", assemblyErrorf("duplicate CTE name %q", c.Name)
		}
		byName[c.Name] = c
	}
	for _, c := range ctes {
		for _, dep := range c.DependsOn {
			if dep == c.Name {
				continue // self-reference, permitted for recursive CTEs
			}
			if _, ok := byName[dep]; !ok {
				return "", assemblyErrorf("CTE %q depends on unknown CTE %q", c.Name, dep)
			}
		}
	}

	ordered, err := topoOrder(ctes)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("WITH\n")
	for i, c := range ordered {
		b.WriteString("  ")
		b.WriteString(c.Name)
		b.WriteString(" AS (\n")
		b.WriteString(indentQuery(c.Query))
		b.WriteString("\n  )")
		if i < len(ordered)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("SELECT * FROM ")
	b.WriteString(ordered[len(ordered)-1].Name)
	b.WriteString(";\n")
	return b.String(), nil
}

func indentQuery(query string) string {
	lines := strings.Split(strings.TrimSpace(query), "\n")
	for i, l := range lines {
		lines[i] = "    " + strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

// topoOrder runs a stable Kahn's algorithm over ctes: at each step it pulls
// every currently-ready node (all dependencies already emitted) in input
// order, so ties always resolve to the original fragment-emission order.
func topoOrder(ctes []CTE) ([]CTE, error) {
	index := make(map[string]int, len(ctes))
	for i, c := range ctes {
		index[c.Name] = i
	}
	emitted := make([]bool, len(ctes))
	result := make([]CTE, 0, len(ctes))

	ready := func(c CTE) bool {
		for _, dep := range c.DependsOn {
			if dep == c.Name {
				continue
			}
			if !emitted[index[dep]] {
				return false
			}
		}
		return true
	}

	for len(result) < len(ctes) {
		progressed := false
		for i, c := range ctes {
			if emitted[i] || !ready(c) {
				continue
			}
			emitted[i] = true
			result = append(result, c)
			progressed = true
		}
		if !progressed {
			cyclePath := findSmallestCycle(ctes, emitted)
			return nil, assemblyErrorf("cycle detected: %s", strings.Join(cyclePath, " -> "))
		}
	}
	return result, nil
}

// findSmallestCycle runs a DFS from the first unemitted node and returns
// the first repeated-node path it finds, trimmed to just the cycle.
func findSmallestCycle(ctes []CTE, emitted []bool) []string {
	byName := make(map[string]CTE, len(ctes))
	for _, c := range ctes {
		byName[c.Name] = c
	}
	var start string
	for i, c := range ctes {
		if !emitted[i] {
			start = c.Name
			break
		}
	}

	visited := map[string]int{} // name -> position in path
	var path []string
	var walk func(name string) []string
	walk = func(name string) []string {
		if pos, seen := visited[name]; seen {
			cycle := append([]string{}, path[pos:]...)
			return append(cycle, name)
		}
		visited[name] = len(path)
		path = append(path, name)
		for _, dep := range byName[name].DependsOn {
			if dep == name {
				continue
			}
			if found := walk(dep); found != nil {
				return found
			}
		}
		path = path[:len(path)-1]
		delete(visited, name)
		return nil
	}
	if cycle := walk(start); cycle != nil {
		return cycle
	}
	return []string{start}
}
