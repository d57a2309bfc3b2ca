package schedule

// depGraph is the dependency graph over one batch of work items. Adjacency
// lists preserve declaration order so every walk is deterministic for a
// fixed input.
type depGraph struct {
	nodes []Ref
	index map[Ref]int
	succ  map[Ref][]Ref
	pred  map[Ref][]Ref
}

// buildGraph indexes items and resolves their dependency references.
// References to identities absent from the batch are collected as dangling
// and excluded from the graph rather than failing the build.
func buildGraph(items []WorkItem) (*depGraph, []DanglingRef) {
	g := &depGraph{
		index: make(map[Ref]int, len(items)),
		succ:  make(map[Ref][]Ref),
		pred:  make(map[Ref][]Ref),
	}
	for _, it := range items {
		g.index[it.Ref] = len(g.nodes)
		g.nodes = append(g.nodes, it.Ref)
	}
	var dangling []DanglingRef
	for _, it := range items {
		for _, dep := range it.DependsOn {
			if _, ok := g.index[dep]; !ok {
				dangling = append(dangling, DanglingRef{From: it.Ref, To: dep})
				continue
			}
			g.succ[dep] = append(g.succ[dep], it.Ref)
			g.pred[it.Ref] = append(g.pred[it.Ref], dep)
		}
	}
	return g, dangling
}

// detectCycles runs a three-color depth-first search. Hitting a gray node
// confirms a cycle; every node on the active stack from that node onward is
// recorded as a cycle member. The search continues so disjoint cycles are
// all reported.
func (g *depGraph) detectCycles() (bool, map[Ref]bool) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[Ref]int, len(g.nodes))
	members := make(map[Ref]bool)
	var stack []Ref

	var dfs func(n Ref)
	dfs = func(n Ref) {
		color[n] = gray
		stack = append(stack, n)
		for _, next := range g.succ[n] {
			switch color[next] {
			case gray:
				for i := len(stack) - 1; i >= 0; i-- {
					members[stack[i]] = true
					if stack[i] == next {
						break
					}
				}
			case white:
				dfs(next)
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
	}
	for _, n := range g.nodes {
		if color[n] == white {
			dfs(n)
		}
	}
	return len(members) > 0, members
}

// topoOrder returns a linear ordering consistent with all edges, breaking
// ties by input position. When no node is free the remaining cycle members
// are released in input order and relaxation resumes, so tasks downstream
// of a cycle still order after their cyclic predecessors.
func (g *depGraph) topoOrder(cycleMembers map[Ref]bool) []Ref {
	indeg := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		indeg[i] = len(g.pred[n])
	}
	done := make([]bool, len(g.nodes))
	order := make([]Ref, 0, len(g.nodes))
	release := func(i int) {
		done[i] = true
		order = append(order, g.nodes[i])
		for _, s := range g.succ[g.nodes[i]] {
			indeg[g.index[s]]--
		}
	}
	for len(order) < len(g.nodes) {
		picked := -1
		for i := range g.nodes {
			if !done[i] && indeg[i] == 0 {
				picked = i
				break
			}
		}
		if picked >= 0 {
			release(picked)
			continue
		}
		progressed := false
		for i, n := range g.nodes {
			if !done[i] && cycleMembers[n] {
				release(i)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	for i, n := range g.nodes {
		if !done[i] {
			order = append(order, n)
		}
	}
	return order
}
