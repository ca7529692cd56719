package depgraph

import "sort"

// InCycle reports whether path can reach itself.
func (g *Graph) InCycle(path string) bool {
	if g.trustTool {
		for e := range g.annotated {
			if e.From == path || e.To == path {
				return true
			}
		}
		return false
	}
	g.computeSCC()
	id, ok := g.sccID[path]
	if !ok {
		return false
	}
	return g.sccSize[id] > 1 || g.selfLoop[path]
}

// SameCycle reports whether the edge from→to lies on a cycle, that is
// both endpoints belong to one strongly connected component that is a cycle.
func (g *Graph) SameCycle(from, to string) bool {
	if g.trustTool {
		return g.annotated[Edge{From: from, To: to}]
	}
	if _, ok := g.edges[Edge{From: from, To: to}]; !ok {
		return false
	}
	if from == to {
		return true
	}
	g.computeSCC()
	a, okA := g.sccID[from]
	b, okB := g.sccID[to]
	return okA && okB && a == b
}

// CycleMembers returns every module on a cycle, sorted by path.
func (g *Graph) CycleMembers() []string {
	var out []string
	for p := range g.modules {
		if g.InCycle(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Cycles returns the strongly connected components that form cycles,
// each sorted by path, ordered by their first member.
func (g *Graph) Cycles() [][]string {
	g.computeSCC()
	byID := make(map[int][]string)
	for p, id := range g.sccID {
		if g.sccSize[id] > 1 || g.selfLoop[p] {
			byID[id] = append(byID[id], p)
		}
	}
	out := make([][]string, 0, len(byID))
	for _, members := range byID {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// computeSCC runs Tarjan's algorithm iteratively so deep import chains
// cannot overflow the goroutine stack.
func (g *Graph) computeSCC() {
	if g.sccDone {
		return
	}

	g.sccID = make(map[string]int, len(g.modules))
	g.sccSize = make(map[int]int)
	g.selfLoop = make(map[string]bool)

	index := make(map[string]int, len(g.modules))
	low := make(map[string]int, len(g.modules))
	onStack := make(map[string]bool)
	var stack []string
	next, comp := 0, 0

	type frame struct {
		node string
		i    int
	}

	nodes := make([]string, 0, len(g.modules))
	for p := range g.modules {
		nodes = append(nodes, p)
	}
	sort.Strings(nodes)

	for _, start := range nodes {
		if _, seen := index[start]; seen {
			continue
		}

		work := []frame{{node: start}}
		index[start], low[start] = next, next
		next++
		stack = append(stack, start)
		onStack[start] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			succ := g.succ[top.node]

			if top.i < len(succ) {
				w := succ[top.i]
				top.i++
				if w == top.node {
					g.selfLoop[w] = true
				}
				if _, seen := index[w]; !seen {
					index[w], low[w] = next, next
					next++
					stack = append(stack, w)
					onStack[w] = true
					work = append(work, frame{node: w})
				} else if onStack[w] && index[w] < low[top.node] {
					low[top.node] = index[w]
				}
				continue
			}

			v := top.node
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].node
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}

			if low[v] == index[v] {
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					g.sccID[w] = comp
					g.sccSize[comp]++
					if w == v {
						break
					}
				}
				comp++
			}
		}
	}
	g.sccDone = true
}
