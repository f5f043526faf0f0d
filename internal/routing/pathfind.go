package routing

import "container/heap"

// Path is a sequence of edges from one node to another in a ScoredGraph.
type Path struct {
	Edges []ScoredEdge
	Cost  float64
}

type pqItem struct {
	node NodeID
	cost float64
	path []ScoredEdge
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)         { *pq = append(*pq, x.(*pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// dijkstra finds the minimum-cost path from start to goal, skipping any
// node in excludedNodes and any edge whose from/to node pair is in
// excludedEdges (used by Yen's algorithm to force alternatives).
func dijkstra(g *ScoredGraph, start, goal NodeID, excludedNodes map[NodeID]bool, excludedEdges map[edgeKey]bool) (Path, bool) {
	if start == goal {
		return Path{}, true
	}

	dist := map[NodeID]float64{start: 0}
	pq := &priorityQueue{{node: start, cost: 0}}
	heap.Init(pq)
	visited := make(map[NodeID]bool)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		if visited[item.node] {
			continue
		}
		visited[item.node] = true
		if item.node == goal {
			return Path{Edges: item.path, Cost: item.cost}, true
		}
		for _, e := range g.Out[item.node] {
			if excludedNodes[e.To] || visited[e.To] {
				continue
			}
			if excludedEdges[keyOf(e)] {
				continue
			}
			nc := item.cost + e.Weight
			if best, ok := dist[e.To]; ok && best <= nc {
				continue
			}
			dist[e.To] = nc
			path := make([]ScoredEdge, len(item.path)+1)
			copy(path, item.path)
			path[len(item.path)] = e
			heap.Push(pq, &pqItem{node: e.To, cost: nc, path: path})
		}
	}
	return Path{}, false
}

type edgeKey struct {
	from, to NodeID
}

func keyOf(e ScoredEdge) edgeKey { return edgeKey{e.From, e.To} }

// KShortestSimplePaths runs Yen's algorithm for up to k+1 loopless paths
// (the shortest plus up to k alternatives) from start to goal, sorted
// ascending by cost. The first result (if any) is the
// plain shortest path; k==0 returns just that one.
func KShortestSimplePaths(g *ScoredGraph, start, goal NodeID, k int) []Path {
	first, ok := dijkstra(g, start, goal, nil, nil)
	if !ok {
		return nil
	}
	paths := []Path{first}
	if k <= 0 {
		return paths
	}

	var candidates []Path
	seen := map[string]bool{pathKey(first): true}

	for len(paths) <= k {
		last := paths[len(paths)-1]
		for i := range last.Edges {
			spurNode := last.Edges[i].From
			rootEdges := last.Edges[:i]

			excludedNodes := make(map[NodeID]bool)
			for _, e := range rootEdges {
				excludedNodes[e.From] = true
			}
			excludedEdges := make(map[edgeKey]bool)
			for _, p := range paths {
				if samePrefix(p.Edges, rootEdges) && len(p.Edges) > i {
					excludedEdges[keyOf(p.Edges[i])] = true
				}
			}

			spurPath, ok := dijkstra(g, spurNode, goal, excludedNodes, excludedEdges)
			if !ok {
				continue
			}
			total := make([]ScoredEdge, 0, len(rootEdges)+len(spurPath.Edges))
			total = append(total, rootEdges...)
			total = append(total, spurPath.Edges...)
			cost := pathCost(rootEdges) + spurPath.Cost

			candidate := Path{Edges: total, Cost: cost}
			key := pathKey(candidate)
			if seen[key] || hasRepeatedNode(total) {
				continue
			}
			seen[key] = true
			candidates = insertSorted(candidates, candidate)
		}

		if len(candidates) == 0 {
			break
		}
		next := candidates[0]
		candidates = candidates[1:]
		paths = append(paths, next)
	}

	if len(paths) > k+1 {
		paths = paths[:k+1]
	}
	return paths
}

func pathCost(edges []ScoredEdge) float64 {
	var total float64
	for _, e := range edges {
		total += e.Weight
	}
	return total
}

func samePrefix(a, b []ScoredEdge) bool {
	if len(a) < len(b) {
		return false
	}
	for i := range b {
		if a[i].From != b[i].From || a[i].To != b[i].To {
			return false
		}
	}
	return true
}

func hasRepeatedNode(edges []ScoredEdge) bool {
	seen := make(map[NodeID]bool)
	if len(edges) == 0 {
		return false
	}
	seen[edges[0].From] = true
	for _, e := range edges {
		if seen[e.To] {
			return true
		}
		seen[e.To] = true
	}
	return false
}

func pathKey(p Path) string {
	s := ""
	for _, e := range p.Edges {
		s += string(e.From) + ">" + string(e.To) + "|"
	}
	return s
}

func insertSorted(candidates []Path, p Path) []Path {
	idx := len(candidates)
	for i, c := range candidates {
		if p.Cost < c.Cost {
			idx = i
			break
		}
	}
	candidates = append(candidates, Path{})
	copy(candidates[idx+1:], candidates[idx:])
	candidates[idx] = p
	return candidates
}
