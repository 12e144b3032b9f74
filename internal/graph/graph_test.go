package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tracereplay/internal/rankmap"
	"tracereplay/internal/record"
	"tracereplay/internal/replay"
)

func task(uid uint32, label string, created, deleted uint64) *replay.TaskHandle {
	return &replay.TaskHandle{
		Create:          record.Create{UID: uid, Label: label},
		CreateTimestamp: created,
		Delete:          &record.Delete{UID: uid},
		DeleteTimestamp: deleted,
	}
}

func oneSchedule(uid uint32) map[uint32][]record.Schedule {
	return map[uint32][]record.Schedule{uid: {{UID: uid}}}
}

// Matching send/recv pairs across two processes produce a cross-process
// edge keyed purely on the communication signature, per scenario S4.
func TestBuild_MatchesCrossProcessSendRecv(t *testing.T) {
	rm := rankmap.New()
	rm.Observe(0, []record.Record{{Pid: 0, Payload: record.Rank{Comm: 0, Rank: 0}}})
	rm.Observe(1, []record.Record{{Pid: 1, Payload: record.Rank{Comm: 0, Rank: 1}}})

	results := []*replay.ProcessResult{
		{
			Pid:       0,
			Tasks:     map[uint32]*replay.TaskHandle{10: task(10, "send", 50, 55)},
			Schedules: oneSchedule(10),
			Sends:     []record.Send{{UID: 10, Count: 1, Dtype: 3, Dst: 1, Tag: 7, Comm: 0}},
		},
		{
			Pid:       1,
			Tasks:     map[uint32]*replay.TaskHandle{20: task(20, "recv", 120, 125)},
			Schedules: oneSchedule(20),
			Recvs:     []record.Recv{{UID: 20, Count: 1, Dtype: 3, Src: 0, Tag: 7, Comm: 0}},
		},
	}

	g := Build(results, rm)

	sendID := NodeID{Pid: 0, UID: 10}
	recvID := NodeID{Pid: 1, UID: 20}
	require.Equal(t, []NodeID{recvID}, g.SendToRecv[sendID])
	require.Equal(t, []NodeID{sendID}, g.RecvToSend[recvID])
	require.Empty(t, g.UnmatchedSends)
	require.Empty(t, g.UnmatchedRecvs)
}

// A root that receives a cross-process send is no longer a global root, and
// a leaf that sends is no longer a global leaf.
func TestBuild_FinalizesRootsAndLeaves(t *testing.T) {
	rm := rankmap.New()
	rm.Observe(0, []record.Record{{Pid: 0, Payload: record.Rank{Comm: 0, Rank: 0}}})
	rm.Observe(1, []record.Record{{Pid: 1, Payload: record.Rank{Comm: 0, Rank: 1}}})

	results := []*replay.ProcessResult{
		{
			Pid:       0,
			Tasks:     map[uint32]*replay.TaskHandle{10: task(10, "send", 50, 55)},
			Schedules: oneSchedule(10),
			Sends:     []record.Send{{UID: 10, Count: 1, Dtype: 3, Dst: 1, Tag: 7, Comm: 0}},
		},
		{
			Pid:       1,
			Tasks:     map[uint32]*replay.TaskHandle{20: task(20, "recv", 120, 125)},
			Schedules: oneSchedule(20),
			Recvs:     []record.Recv{{UID: 20, Count: 1, Dtype: 3, Src: 0, Tag: 7, Comm: 0}},
		},
	}

	g := Build(results, rm)
	require.NotContains(t, g.Leaves, NodeID{Pid: 0, UID: 10})
	require.NotContains(t, g.Roots, NodeID{Pid: 1, UID: 20})
}

// An unmatched send (its process's counterpart was never traced) is
// tolerated, not an error, and surfaces only as a diagnostic.
func TestBuild_UnmatchedSendIsTolerated(t *testing.T) {
	rm := rankmap.New()
	rm.Observe(0, []record.Record{{Pid: 0, Payload: record.Rank{Comm: 0, Rank: 0}}})

	results := []*replay.ProcessResult{
		{
			Pid:       0,
			Tasks:     map[uint32]*replay.TaskHandle{10: task(10, "send", 50, 55)},
			Schedules: oneSchedule(10),
			Sends:     []record.Send{{UID: 10, Count: 1, Dtype: 3, Dst: 1, Tag: 7, Comm: 0}},
		},
	}

	g := Build(results, rm)
	require.Equal(t, []NodeID{{Pid: 0, UID: 10}}, g.UnmatchedSends)
	require.Contains(t, g.Leaves, NodeID{Pid: 0, UID: 10})
}

// A task with no Schedule entries (the bootstrap/initial task, or a
// cancelled task that never ran) never becomes a graph node.
func TestBuild_SkipsTasksWithoutSchedules(t *testing.T) {
	rm := rankmap.New()
	rm.Observe(0, []record.Record{{Pid: 0, Payload: record.Rank{Comm: 0, Rank: 0}}})

	results := []*replay.ProcessResult{
		{
			Pid:   0,
			Tasks: map[uint32]*replay.TaskHandle{10: task(10, "never-ran", 0, 0)},
		},
	}

	g := Build(results, rm)
	require.Empty(t, g.Nodes)
}

// The bootstrap task (its Create.ParentUID is the initial-task sentinel)
// never becomes a graph node even if it was scheduled.
func TestBuild_SkipsInitialTask(t *testing.T) {
	rm := rankmap.New()
	rm.Observe(0, []record.Record{{Pid: 0, Payload: record.Rank{Comm: 0, Rank: 0}}})

	h := task(1, "bootstrap", 0, 100)
	h.Create.ParentUID = record.InitialParentUID

	results := []*replay.ProcessResult{
		{
			Pid:       0,
			Tasks:     map[uint32]*replay.TaskHandle{1: h},
			Schedules: oneSchedule(1),
		},
	}

	g := Build(results, rm)
	require.Empty(t, g.Nodes)
}
