package critpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tracereplay/internal/graph"
)

func node(pid, uid uint32, created, deleted uint64) *graph.Node {
	return &graph.Node{ID: graph.NodeID{Pid: pid, UID: uid}, CreateTimestamp: created, DeleteTimestamp: deleted}
}

// A straight chain root -> mid -> leaf sums every node's time along the
// single available path.
func TestCompute_LinearChain(t *testing.T) {
	root := node(0, 1, 0, 10)
	mid := node(0, 2, 10, 25)
	leaf := node(0, 3, 25, 30)
	root.Successors = []graph.NodeID{mid.ID}
	mid.Successors = []graph.NodeID{leaf.ID}

	g := &graph.Graph{
		Nodes: map[graph.NodeID]*graph.Node{root.ID: root, mid.ID: mid, leaf.ID: leaf},
		Roots: []graph.NodeID{root.ID}, Leaves: []graph.NodeID{leaf.ID},
	}

	path, err := Compute(g)
	require.NoError(t, err)
	require.Equal(t, uint64(10+15+5), path.Length)
	require.Equal(t, []graph.NodeID{root.ID, mid.ID, leaf.ID}, path.Nodes)
}

// Between two branches from a shared root, the critical path follows the
// heavier branch.
func TestCompute_PicksLongerBranch(t *testing.T) {
	root := node(0, 1, 0, 5)
	short := node(0, 2, 5, 10)
	long := node(0, 3, 5, 40)
	root.Successors = []graph.NodeID{short.ID, long.ID}

	g := &graph.Graph{
		Nodes: map[graph.NodeID]*graph.Node{root.ID: root, short.ID: short, long.ID: long},
		Roots: []graph.NodeID{root.ID}, Leaves: []graph.NodeID{short.ID, long.ID},
	}

	path, err := Compute(g)
	require.NoError(t, err)
	require.Equal(t, long.ID, path.Nodes[len(path.Nodes)-1])
}

// A cross-process send_to_recv edge extends the path through the matched
// receive node.
func TestCompute_FollowsSendToRecvEdge(t *testing.T) {
	sender := node(0, 1, 0, 10)
	receiver := node(1, 1, 50, 70)

	g := &graph.Graph{
		Nodes:      map[graph.NodeID]*graph.Node{sender.ID: sender, receiver.ID: receiver},
		Roots:      []graph.NodeID{sender.ID},
		Leaves:     []graph.NodeID{receiver.ID},
		SendToRecv: map[graph.NodeID][]graph.NodeID{sender.ID: {receiver.ID}},
	}

	path, err := Compute(g)
	require.NoError(t, err)
	require.Equal(t, uint64(10+20), path.Length)
	require.Equal(t, []graph.NodeID{sender.ID, receiver.ID}, path.Nodes)
}

// A cycle in the successor graph is reported, never silently truncated.
func TestCompute_DetectsCycle(t *testing.T) {
	a := node(0, 1, 0, 5)
	b := node(0, 2, 5, 10)
	a.Successors = []graph.NodeID{b.ID}
	b.Successors = []graph.NodeID{a.ID}

	g := &graph.Graph{
		Nodes: map[graph.NodeID]*graph.Node{a.ID: a, b.ID: b},
		Roots: []graph.NodeID{a.ID}, Leaves: []graph.NodeID{b.ID},
	}

	_, err := Compute(g)
	require.Error(t, err)
}
