package dispatch

// Config is the run configuration visible to sinks at on_start/on_end. It is
// read-only from a sink's perspective.
type Config struct {
	InputDir       string
	OutputPrefix   string
	GranularityBan map[string]bool
}

// TaskCreateEvent announces a task's birth.
type TaskCreateEvent struct {
	Pid       uint32
	UID       uint32
	Label     string
	ParentUID uint32
	Timestamp uint64
}

// TaskDeleteEvent announces a task's finalization.
type TaskDeleteEvent struct {
	Pid       uint32
	UID       uint32
	Cancelled bool
	Timestamp uint64
}

// TaskDependencyEvent announces a predecessor -> successor edge.
type TaskDependencyEvent struct {
	Pid       uint32
	OutUID    uint32
	InUID     uint32
	Timestamp uint64
}

// TaskReadyEvent announces a task joining the ready queue.
type TaskReadyEvent struct {
	Pid       uint32
	UID       uint32
	Timestamp uint64
}

// TaskStartedEvent announces a task's first (or resumed) run on a thread.
type TaskStartedEvent struct {
	Pid        uint32
	UID        uint32
	Tid        uint32
	ScheduleID uint32
	Timestamp  uint64
}

// TaskCompletedEvent announces a task run's normal completion.
type TaskCompletedEvent struct {
	Pid       uint32
	UID       uint32
	Tid       uint32
	Timestamp uint64
}

// TaskBlockedEvent announces a task entering a blocking wait.
type TaskBlockedEvent struct {
	Pid       uint32
	UID       uint32
	Tid       uint32
	Timestamp uint64
}

// TaskUnblockedEvent announces a task leaving a blocking wait.
type TaskUnblockedEvent struct {
	Pid       uint32
	UID       uint32
	Tid       uint32
	Timestamp uint64
}

// TaskPausedEvent announces a schedule pair closing without completion
// (i.e. BLOCKING without a terminal delete).
type TaskPausedEvent struct {
	Pid       uint32
	UID       uint32
	Tid       uint32
	Timestamp uint64
}

// TaskResumedEvent announces a task resuming after an actual block.
type TaskResumedEvent struct {
	Pid       uint32
	UID       uint32
	Tid       uint32
	Timestamp uint64
}

// TaskCommunicationEvent announces a task issuing a point-to-point or
// collective communication operation. Kind is one of "send", "recv",
// "allreduce".
type TaskCommunicationEvent struct {
	Pid       uint32
	UID       uint32
	Kind      string
	Timestamp uint64
}
