// Package graph assembles per-process task graphs produced by replay into a
// single global DAG, matching point-to-point sends to receives across
// process boundaries.
package graph

import (
	"sort"

	"tracereplay/internal/rankmap"
	"tracereplay/internal/record"
	"tracereplay/internal/replay"
)

// NodeID identifies a task globally: its owning process plus its uid within
// that process.
type NodeID struct {
	Pid uint32
	UID uint32
}

// Node is one task, with its timing and intra-process edges resolved.
type Node struct {
	ID              NodeID
	Label           string
	CreateTimestamp uint64
	DeleteTimestamp uint64
	ClassFlags      replay.ClassFlags
	Predecessors    []NodeID
	Successors      []NodeID
}

// Time is the node's in-task duration, the weight used by the critical path
// stage.
func (n Node) Time() uint64 {
	if n.DeleteTimestamp > n.CreateTimestamp {
		return n.DeleteTimestamp - n.CreateTimestamp
	}
	return 0
}

// Graph is the global view: every process's nodes, unioned, plus the
// cross-process edges discovered by matching communication records.
type Graph struct {
	Nodes map[NodeID]*Node

	// SendToRecv and RecvToSend hold the cross-process edges produced by
	// matching. They are kept apart from Node.Successors/Predecessors, which
	// hold intra-process edges only; the critical path stage, the global
	// root/leaf finalization, the arc count and the DOT sink read them
	// alongside the intra-process edges.
	SendToRecv map[NodeID][]NodeID
	RecvToSend map[NodeID][]NodeID

	// UnmatchedSends and UnmatchedRecvs are retained for diagnostics: a
	// send or recv whose counterpart's process was not captured in the
	// trace, or whose count simply differs, is not an error.
	UnmatchedSends []NodeID
	UnmatchedRecvs []NodeID

	Roots  []NodeID
	Leaves []NodeID
}

type commKey struct {
	Comm, Src, Dst, Count, Dtype, Tag uint32
}

type commBucket struct {
	sends []NodeID
	recvs []NodeID
}

// Build merges per-process replay results into a Graph. rm resolves the
// (pid, comm) <-> rank bindings needed to key the communications index;
// Build does not mutate it.
func Build(results []*replay.ProcessResult, rm *rankmap.RankMap) *Graph {
	g := &Graph{
		Nodes:      make(map[NodeID]*Node),
		SendToRecv: make(map[NodeID][]NodeID),
		RecvToSend: make(map[NodeID][]NodeID),
	}

	procRoots := make(map[NodeID]bool)
	procLeaves := make(map[NodeID]bool)

	for _, res := range results {
		if res == nil {
			continue
		}
		for uid, h := range res.Tasks {
			if h.Create.ParentUID == record.InitialParentUID {
				continue
			}
			if len(res.Schedules[uid]) == 0 {
				continue
			}
			id := NodeID{Pid: res.Pid, UID: uid}
			n := &Node{
				ID:              id,
				Label:           h.Create.Label,
				CreateTimestamp: h.CreateTimestamp,
				ClassFlags:      res.ClassFlags[uid],
			}
			if h.Delete != nil {
				n.DeleteTimestamp = h.DeleteTimestamp
			}
			g.Nodes[id] = n
		}
		for out, ins := range res.Successors {
			outID := NodeID{Pid: res.Pid, UID: out}
			outNode, ok := g.Nodes[outID]
			if !ok {
				continue
			}
			for _, in := range ins {
				inID := NodeID{Pid: res.Pid, UID: in}
				inNode, ok := g.Nodes[inID]
				if !ok {
					continue
				}
				outNode.Successors = append(outNode.Successors, inID)
				inNode.Predecessors = append(inNode.Predecessors, outID)
			}
		}
	}

	for id, n := range g.Nodes {
		if len(n.Predecessors) == 0 {
			procRoots[id] = true
		}
		if len(n.Successors) == 0 {
			procLeaves[id] = true
		}
	}

	buckets := make(map[commKey]*commBucket)
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, send := range res.Sends {
			srcRank, ok := rm.Rank(res.Pid, send.Comm)
			if !ok {
				continue
			}
			k := commKey{Comm: send.Comm, Src: srcRank, Dst: send.Dst, Count: send.Count, Dtype: send.Dtype, Tag: send.Tag}
			b, ok := buckets[k]
			if !ok {
				b = &commBucket{}
				buckets[k] = b
			}
			b.sends = append(b.sends, NodeID{Pid: res.Pid, UID: send.UID})
		}
		for _, recv := range res.Recvs {
			dstRank, ok := rm.Rank(res.Pid, recv.Comm)
			if !ok {
				continue
			}
			k := commKey{Comm: recv.Comm, Src: recv.Src, Dst: dstRank, Count: recv.Count, Dtype: recv.Dtype, Tag: recv.Tag}
			b, ok := buckets[k]
			if !ok {
				b = &commBucket{}
				buckets[k] = b
			}
			b.recvs = append(b.recvs, NodeID{Pid: res.Pid, UID: recv.UID})
		}
	}

	keys := make([]commKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		switch {
		case a.Comm != b.Comm:
			return a.Comm < b.Comm
		case a.Src != b.Src:
			return a.Src < b.Src
		case a.Dst != b.Dst:
			return a.Dst < b.Dst
		case a.Count != b.Count:
			return a.Count < b.Count
		case a.Dtype != b.Dtype:
			return a.Dtype < b.Dtype
		default:
			return a.Tag < b.Tag
		}
	})

	for _, k := range keys {
		b := buckets[k]
		n := len(b.sends)
		if len(b.recvs) < n {
			n = len(b.recvs)
		}
		for i := 0; i < n; i++ {
			s, r := b.sends[i], b.recvs[i]
			g.SendToRecv[s] = append(g.SendToRecv[s], r)
			g.RecvToSend[r] = append(g.RecvToSend[r], s)
		}
		g.UnmatchedSends = append(g.UnmatchedSends, b.sends[n:]...)
		g.UnmatchedRecvs = append(g.UnmatchedRecvs, b.recvs[n:]...)
	}

	for id := range procLeaves {
		if _, matched := g.SendToRecv[id]; !matched {
			g.Leaves = append(g.Leaves, id)
		}
	}
	for id := range procRoots {
		if _, matched := g.RecvToSend[id]; !matched {
			g.Roots = append(g.Roots, id)
		}
	}
	sort.Slice(g.Leaves, func(i, j int) bool { return less(g.Leaves[i], g.Leaves[j]) })
	sort.Slice(g.Roots, func(i, j int) bool { return less(g.Roots[i], g.Roots[j]) })

	return g
}

func less(a, b NodeID) bool {
	if a.Pid != b.Pid {
		return a.Pid < b.Pid
	}
	return a.UID < b.UID
}
