package sinks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tracereplay/internal/dispatch"
	"tracereplay/internal/graph"
)

func TestDotSink_RendersNodesAndCrossProcessEdges(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run")

	g := &graph.Graph{
		Nodes: map[graph.NodeID]*graph.Node{
			{Pid: 0, UID: 1}: {ID: graph.NodeID{Pid: 0, UID: 1}, Label: "send", Successors: nil},
			{Pid: 1, UID: 1}: {ID: graph.NodeID{Pid: 1, UID: 1}, Label: "recv"},
		},
		SendToRecv: map[graph.NodeID][]graph.NodeID{
			{Pid: 0, UID: 1}: {{Pid: 1, UID: 1}},
		},
	}

	sink := &DotSink{Report: &Report{Graph: g}}
	require.NoError(t, sink.OnEnd(dispatch.Config{OutputPrefix: prefix}))

	data, err := os.ReadFile(prefix + ".dot")
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, "p0u1")
	require.Contains(t, out, "p1u1")
	require.Contains(t, out, "dashed")
}

func TestDotSink_NilReportIsNoop(t *testing.T) {
	sink := &DotSink{}
	require.NoError(t, sink.OnEnd(dispatch.Config{OutputPrefix: filepath.Join(t.TempDir(), "run")}))
	require.Equal(t, []string{"stats"}, sink.DependsOn())
}
