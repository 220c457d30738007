package magicapi

// Stats aggregates one tree snapshot for reporting.
type Stats struct {
	TotalResources int            // every node with a backend id
	Endpoints      int            // nodes with an HTTP method
	OtherResources int            // everything else (groups, functions, tasks, datasources)
	ByMethod       map[string]int // endpoint count per HTTP method
}

// ComputeStats walks every section of a snapshot and tallies resource
// counts. Same explicit-stack walk as FindByPath, with the same cycle guard.
func ComputeStats(tree *Tree) Stats {
	stats := Stats{ByMethod: make(map[string]int)}

	for _, kind := range tree.SectionKinds() {
		root := tree.Sections[kind]

		visited := make(map[string]bool)
		stack := []*Node{&root}

		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if node.ID != "" {
				if visited[node.ID] {
					continue
				}

				visited[node.ID] = true
				stats.TotalResources++

				if node.Method != "" {
					stats.Endpoints++
					stats.ByMethod[node.Method]++
				} else {
					stats.OtherResources++
				}
			}

			for i := len(node.Children) - 1; i >= 0; i-- {
				stack = append(stack, &node.Children[i])
			}
		}
	}

	return stats
}
