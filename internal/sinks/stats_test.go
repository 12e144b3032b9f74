package sinks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tracereplay/internal/critpath"
	"tracereplay/internal/dispatch"
	"tracereplay/internal/graph"
	"tracereplay/internal/record"
	"tracereplay/internal/replay"
)

func sampleReport() *Report {
	g := &graph.Graph{
		Nodes: map[graph.NodeID]*graph.Node{
			{Pid: 0, UID: 1}: {ID: graph.NodeID{Pid: 0, UID: 1}, Label: "A", CreateTimestamp: 0, DeleteTimestamp: 10},
			{Pid: 0, UID: 2}: {ID: graph.NodeID{Pid: 0, UID: 2}, Label: "B", CreateTimestamp: 10, DeleteTimestamp: 25, Predecessors: []graph.NodeID{{Pid: 0, UID: 1}}},
		},
		SendToRecv: map[graph.NodeID][]graph.NodeID{},
	}
	g.Nodes[graph.NodeID{Pid: 0, UID: 1}].Successors = []graph.NodeID{{Pid: 0, UID: 2}}

	pr := &replay.ProcessResult{
		Pid:           0,
		Tasks:         map[uint32]*replay.TaskHandle{1: {Create: record.Create{Label: "A"}}, 2: {Create: record.Create{Label: "B"}}},
		Granularities: map[uint32][]uint64{1: {0, 10}, 2: {10, 25}},
		Schedules:     map[uint32][]record.Schedule{1: {{}}, 2: {{}}},
		Successors:    map[uint32][]uint32{1: {2}},
		InTask:        25,
		OutTask:       5,
		IdleTime:      2,
		Overhead:      3,
		ComputeTime:   25,
		ProcessTotal:  30,
	}

	path := &critpath.Path{Nodes: []graph.NodeID{{Pid: 0, UID: 1}, {Pid: 0, UID: 2}}, Length: 25}

	return &Report{
		Results: []*replay.ProcessResult{pr},
		Graph:   g,
		Path:    path,
		Banlist: map[string]bool{},
	}
}

func TestStatsSink_WritesSummaryDocument(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run")

	sink := &StatsSink{Report: sampleReport()}
	require.NoError(t, sink.OnEnd(dispatch.Config{OutputPrefix: prefix}))

	data, err := os.ReadFile(prefix + "-stats.json")
	require.NoError(t, err)

	var doc statsDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, 1, doc.About.Processes)
	require.Equal(t, 2, doc.Graph.Tasks)
	require.Equal(t, 1, doc.Graph.Arcs)
	require.Equal(t, 1, doc.Scheduling.P)
}

func TestStatsSink_NilReportIsNoop(t *testing.T) {
	sink := &StatsSink{}
	require.NoError(t, sink.OnEnd(dispatch.Config{OutputPrefix: filepath.Join(t.TempDir(), "run")}))
}
