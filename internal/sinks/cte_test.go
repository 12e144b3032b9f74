package sinks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tracereplay/internal/dispatch"
)

func TestCTESink_EmitsDurationAndFlowEvents(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run")

	sink := &CTESink{Options: CTEOptions{Schedule: true, Creation: true, Dependencies: true, Communications: true}}
	require.NoError(t, sink.OnStart(dispatch.Config{}))

	require.NoError(t, sink.OnTaskCreate(dispatch.TaskCreateEvent{Pid: 0, UID: 1, Label: "A", Timestamp: 0}))
	require.NoError(t, sink.OnTaskCreate(dispatch.TaskCreateEvent{Pid: 0, UID: 2, Label: "B", Timestamp: 1000}))
	require.NoError(t, sink.OnTaskDependency(dispatch.TaskDependencyEvent{Pid: 0, OutUID: 1, InUID: 2, Timestamp: 1000}))
	require.NoError(t, sink.OnTaskStarted(dispatch.TaskStartedEvent{Pid: 0, UID: 1, Tid: 0, Timestamp: 1000}))
	require.NoError(t, sink.OnTaskCommunication(dispatch.TaskCommunicationEvent{Pid: 0, UID: 1, Kind: "send", Timestamp: 2000}))
	require.NoError(t, sink.OnTaskCompleted(dispatch.TaskCompletedEvent{Pid: 0, UID: 1, Tid: 0, Timestamp: 5000}))

	require.NoError(t, sink.OnEnd(dispatch.Config{OutputPrefix: prefix}))

	data, err := os.ReadFile(prefix + ".json")
	require.NoError(t, err)

	var doc cteDoc
	require.NoError(t, json.Unmarshal(data, &doc))

	var foundX, foundFlow, foundInstant, foundMeta bool
	for _, ev := range doc.TraceEvents {
		switch ev.Ph {
		case "X":
			foundX = true
			require.Equal(t, 4000.0, ev.Dur)
		case "s", "t":
			foundFlow = true
		case "i":
			foundInstant = true
		case "M":
			foundMeta = true
		}
	}
	require.True(t, foundX)
	require.True(t, foundFlow)
	require.True(t, foundInstant)
	require.True(t, foundMeta)
}

func TestCTESink_SuppressesDisabledCategories(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run")

	sink := &CTESink{Options: CTEOptions{}}
	require.NoError(t, sink.OnStart(dispatch.Config{}))
	require.NoError(t, sink.OnTaskCreate(dispatch.TaskCreateEvent{Pid: 0, UID: 1, Label: "A", Timestamp: 0}))
	require.NoError(t, sink.OnTaskDependency(dispatch.TaskDependencyEvent{Pid: 0, OutUID: 1, InUID: 2, Timestamp: 0}))
	require.NoError(t, sink.OnTaskStarted(dispatch.TaskStartedEvent{Pid: 0, UID: 1, Timestamp: 0}))
	require.NoError(t, sink.OnTaskCompleted(dispatch.TaskCompletedEvent{Pid: 0, UID: 1, Timestamp: 10}))
	require.NoError(t, sink.OnTaskCommunication(dispatch.TaskCommunicationEvent{Pid: 0, UID: 1, Kind: "send", Timestamp: 5}))
	require.NoError(t, sink.OnEnd(dispatch.Config{OutputPrefix: prefix}))

	data, err := os.ReadFile(prefix + ".json")
	require.NoError(t, err)
	var doc cteDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Empty(t, doc.TraceEvents)
}
