// Package replay implements the per-process scheduling replay: a
// single-threaded deterministic state machine driven by the sorted record
// stream produced by the repair stage.
package replay

import "tracereplay/internal/record"

// ClassFlags records which communication kinds a task issued, as observed
// during replay. It lives in a side-map rather than on the Create payload
// itself, keeping decoded records immutable.
type ClassFlags struct {
	Send      bool
	Recv      bool
	Allreduce bool
}

// TaskHandle is the authoritative per-task record pair: the Create that
// bore it and, once observed, the Delete that finalized it.
type TaskHandle struct {
	Create          record.Create
	CreateTimestamp uint64
	Delete          *record.Delete
	DeleteTimestamp uint64
}

// AsynchronyEntry tracks one blocking interval of a task.
type AsynchronyEntry struct {
	BlockedAt   uint64
	UnblockedAt uint64
	Overlap     uint64
	Idle        uint64
}

// BlockedDelta is one entry of the blocked_tasks_over_time log, driven by
// Schedule BLOCKING/UNBLOCKED status transitions (not the raw Blocked/
// Unblocked record kind, which is mirrored separately into BlockedRecords).
type BlockedDelta struct {
	Timestamp uint64
	Delta     int
}

// Readiness aggregates the wait-before-run latency observed whenever a task
// leaves the ready queue to start or resume.
type Readiness struct {
	Max            uint64
	AvgAccumulator uint64
	NSchedules     uint64
}

// Average returns the mean readiness latency, or 0 if no sample was taken.
func (r Readiness) Average() float64 {
	if r.NSchedules == 0 {
		return 0
	}
	return float64(r.AvgAccumulator) / float64(r.NSchedules)
}

// ProcessResult is everything the replay of one process produces, consumed
// by the graph builder and the statistics sinks.
type ProcessResult struct {
	Pid uint32

	Tasks        map[uint32]*TaskHandle
	Schedules    map[uint32][]record.Schedule
	Successors   map[uint32][]uint32
	ClassFlags   map[uint32]ClassFlags
	Granularities map[uint32][]uint64

	Sends      []record.Send
	Recvs      []record.Recv
	Allreduces []record.Allreduce

	BlockedDeltas  []BlockedDelta
	BlockedRecords []record.Record

	AsynchronyCompleted map[uint32][]AsynchronyEntry

	Readiness Readiness

	T0, Tf  uint64
	Threads int

	ProcessTotal  uint64
	InTask        uint64
	OutTask       uint64
	IdleTime      uint64
	Overhead      uint64
	ComputeTime   uint64
	SendTime      uint64
	RecvTime      uint64
	AllreduceTime uint64
}
