package schema

import "sort"

// dependencyOrder arranges tables so that every table appears after the
// tables its foreign keys reference. Tables with no ordering constraint
// keep their catalog order. References to tables outside the export and
// self-references impose no constraint, and a reference cycle is broken
// at the back edge, so the result is always a complete permutation.
func dependencyOrder(tables []Table) []Table {
	index := make(map[string]int, len(tables))
	for i := range tables {
		index[tables[i].Name] = i
	}

	deps := make([][]int, len(tables))
	for i := range tables {
		seen := make(map[int]bool)
		for _, fk := range tables[i].ForeignKeys {
			j, ok := index[fk.References.Table]
			if !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			deps[i] = append(deps[i], j)
		}
		sort.Ints(deps[i])
	}

	ordered := make([]Table, 0, len(tables))
	emitted := make([]bool, len(tables))
	onPath := make([]bool, len(tables))

	var visit func(i int)
	visit = func(i int) {
		if emitted[i] || onPath[i] {
			return
		}
		onPath[i] = true
		for _, j := range deps[i] {
			visit(j)
		}
		onPath[i] = false
		emitted[i] = true
		ordered = append(ordered, tables[i])
	}

	for i := range tables {
		visit(i)
	}
	return ordered
}
