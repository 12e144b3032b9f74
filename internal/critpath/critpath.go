// Package critpath computes the critical path of a global task graph: the
// longest weighted path from any root to any leaf, where a node's weight is
// its in-task compute time.
package critpath

import (
	"container/heap"
	"fmt"

	"tracereplay/internal/errs"
	"tracereplay/internal/graph"
)

// Path is one critical-path result: the node sequence and its total weight.
type Path struct {
	Nodes  []graph.NodeID
	Length uint64
}

// Compute finds the longest root-to-leaf path over g, where edges are
// intra-process successors unioned with cross-process send_to_recv edges.
// A cycle (which should never occur in a well-formed trace) is reported as
// errs.CycleDetectedError rather than silently truncating the traversal.
func Compute(g *graph.Graph) (*Path, error) {
	order, ids, index := topoOrder(g)
	if len(order) != len(g.Nodes) {
		return nil, &errs.CycleDetectedError{Path: witness(g, ids, index)}
	}

	dist := make(map[graph.NodeID]int64, len(ids))
	pred := make(map[graph.NodeID]graph.NodeID, len(ids))
	hasPred := make(map[graph.NodeID]bool, len(ids))

	for _, id := range ids {
		dist[id] = -1 // unreached
	}
	for _, id := range g.Roots {
		if n, ok := g.Nodes[id]; ok {
			dist[id] = int64(n.Time())
		}
	}

	for _, i := range order {
		u := ids[i]
		if dist[u] < 0 {
			continue
		}
		for _, v := range successorsOf(g, u) {
			n, ok := g.Nodes[v]
			if !ok {
				continue
			}
			cand := dist[u] + int64(n.Time())
			if cand > dist[v] {
				dist[v] = cand
				pred[v] = u
				hasPred[v] = true
			}
		}
	}

	var bestLeaf graph.NodeID
	best := int64(-1)
	found := false
	for _, id := range g.Leaves {
		if d, ok := dist[id]; ok && d > best {
			best = d
			bestLeaf = id
			found = true
		}
	}
	if !found {
		return &Path{}, nil
	}

	var nodes []graph.NodeID
	cur := bestLeaf
	nodes = append(nodes, cur)
	for hasPred[cur] {
		cur = pred[cur]
		nodes = append(nodes, cur)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	return &Path{Nodes: nodes, Length: uint64(best)}, nil
}

func successorsOf(g *graph.Graph, id graph.NodeID) []graph.NodeID {
	var out []graph.NodeID
	if n, ok := g.Nodes[id]; ok {
		out = append(out, n.Successors...)
	}
	out = append(out, g.SendToRecv[id]...)
	return out
}

// topoOrder runs Kahn's algorithm over g's nodes, ids[i] giving the NodeID
// for topological index i, using a min-heap over indices (assigned in
// sorted NodeID order) so the order is deterministic between runs.
func topoOrder(g *graph.Graph) (order []int, ids []graph.NodeID, index map[graph.NodeID]int) {
	ids = make([]graph.NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sortNodeIDs(ids)

	index = make(map[graph.NodeID]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	indeg := make([]int, len(ids))
	adj := make([][]int, len(ids))
	for i, id := range ids {
		for _, v := range successorsOf(g, id) {
			j, ok := index[v]
			if !ok {
				continue
			}
			adj[i] = append(adj[i], j)
			indeg[j]++
		}
	}

	h := &intHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(h, i)
		}
	}
	order = make([]int, 0, len(ids))
	for h.Len() > 0 {
		i := heap.Pop(h).(int)
		order = append(order, i)
		for _, j := range adj[i] {
			indeg[j]--
			if indeg[j] == 0 {
				heap.Push(h, j)
			}
		}
	}
	return order, ids, index
}

func sortNodeIDs(ids []graph.NodeID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && less(ids[j], ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func less(a, b graph.NodeID) bool {
	if a.Pid != b.Pid {
		return a.Pid < b.Pid
	}
	return a.UID < b.UID
}

// witness walks a colored DFS to extract one concrete cycle for the error
// message, mirroring the deterministic-witness approach used elsewhere in
// this codebase for acyclicity checks.
func witness(g *graph.Graph, ids []graph.NodeID, index map[graph.NodeID]int) []string {
	const white, gray, black = 0, 1, 2
	color := make([]int, len(ids))
	parent := make([]int, len(ids))
	for i := range parent {
		parent[i] = -1
	}
	var cycle []int

	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range successorsOf(g, ids[u]) {
			j, ok := index[v]
			if !ok {
				continue
			}
			switch color[j] {
			case white:
				parent[j] = u
				if dfs(j) {
					return true
				}
			case gray:
				cycle = append(cycle, j)
				cur := u
				for cur != -1 && cur != j {
					cycle = append(cycle, cur)
					cur = parent[cur]
				}
				cycle = append(cycle, j)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range ids {
		if color[i] == white && dfs(i) {
			break
		}
	}
	if len(cycle) == 0 {
		return nil
	}
	out := make([]string, len(cycle))
	for i, idx := range cycle {
		id := ids[idx]
		out[len(cycle)-1-i] = fmt.Sprintf("pid=%d uid=%d", id.Pid, id.UID)
	}
	return out
}

type intHeap []int

func (h intHeap) Len() int            { return len(h) }
func (h intHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}
