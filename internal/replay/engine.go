package replay

import (
	"sort"

	"go.uber.org/zap"

	"tracereplay/internal/dispatch"
	"tracereplay/internal/errs"
	"tracereplay/internal/record"
)

// state is the mutable machinery of one process's replay. It is discarded
// once Run returns a ProcessResult; nothing here is safe to share across
// processes, which is what lets RunAll run one state per goroutine.
type state struct {
	pid uint32
	log *zap.Logger
	out *dispatch.Dispatcher

	ready        map[uint32]bool
	readyAt      map[uint32]uint64
	predecessors map[uint32]int
	successors   map[uint32][]uint32
	tasks        map[uint32]*TaskHandle
	schedules    map[uint32][]record.Schedule
	classFlags   map[uint32]ClassFlags
	granularities map[uint32][]uint64

	bind map[uint32][]uint32 // tid -> stack of uids currently running on it

	pending   map[uint32]*AsynchronyEntry
	completed map[uint32][]AsynchronyEntry

	blockedDeltas  []BlockedDelta
	blockedRecords []record.Record

	sends      []record.Send
	recvs      []record.Recv
	allreduces []record.Allreduce

	readiness Readiness

	lastStartTs map[uint32]uint64 // uid -> ts of the schedule that started its current run

	scheduleTsByTid map[uint32][]uint64

	threads  map[uint32]bool
	idleTime uint64
	t0, tf   uint64
	seen     bool
}

// Run replays the sorted, repaired records of a single process and returns
// its accumulated ProcessResult. out may be nil, in which case lifecycle
// events are computed but not broadcast (useful for tests).
func Run(pid uint32, records []record.Record, out *dispatch.Dispatcher, log *zap.Logger) (*ProcessResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &state{
		pid:             pid,
		log:             log,
		out:             out,
		ready:           make(map[uint32]bool),
		readyAt:         make(map[uint32]uint64),
		predecessors:    make(map[uint32]int),
		successors:      make(map[uint32][]uint32),
		tasks:           make(map[uint32]*TaskHandle),
		schedules:       make(map[uint32][]record.Schedule),
		classFlags:      make(map[uint32]ClassFlags),
		granularities:   make(map[uint32][]uint64),
		bind:            make(map[uint32][]uint32),
		pending:         make(map[uint32]*AsynchronyEntry),
		completed:       make(map[uint32][]AsynchronyEntry),
		lastStartTs:     make(map[uint32]uint64),
		scheduleTsByTid: make(map[uint32][]uint64),
		threads:         make(map[uint32]bool),
	}

	for _, r := range records {
		if r.Kind() == record.KindSchedule {
			s.scheduleTsByTid[r.Tid] = append(s.scheduleTsByTid[r.Tid], r.Timestamp)
		}
	}
	for tid := range s.scheduleTsByTid {
		sort.Slice(s.scheduleTsByTid[tid], func(i, j int) bool { return s.scheduleTsByTid[tid][i] < s.scheduleTsByTid[tid][j] })
	}

	for _, r := range records {
		s.observe(r)
		if err := s.dispatch(r); err != nil {
			return nil, err
		}
	}

	return s.finish()
}

func (s *state) observe(r record.Record) {
	s.threads[r.Tid] = true
	if !s.seen || r.Timestamp < s.t0 {
		s.t0 = r.Timestamp
	}
	if !s.seen || r.Timestamp > s.tf {
		s.tf = r.Timestamp
	}
	s.seen = true
}

func (s *state) dispatch(r record.Record) error {
	switch p := r.Payload.(type) {
	case record.Create:
		return s.onCreate(r, p)
	case record.Delete:
		return s.onDelete(r, p)
	case record.Dependency:
		return s.onDependency(r, p)
	case record.Schedule:
		return s.onSchedule(r, p)
	case record.Send:
		flags := s.classFlags[p.UID]
		flags.Send = true
		s.classFlags[p.UID] = flags
		s.sends = append(s.sends, p)
		if s.out != nil {
			return s.out.BroadcastTaskCommunication(dispatch.TaskCommunicationEvent{Pid: s.pid, UID: p.UID, Kind: "send", Timestamp: r.Timestamp})
		}
	case record.Recv:
		flags := s.classFlags[p.UID]
		flags.Recv = true
		s.classFlags[p.UID] = flags
		s.recvs = append(s.recvs, p)
		if s.out != nil {
			return s.out.BroadcastTaskCommunication(dispatch.TaskCommunicationEvent{Pid: s.pid, UID: p.UID, Kind: "recv", Timestamp: r.Timestamp})
		}
	case record.Allreduce:
		flags := s.classFlags[p.UID]
		flags.Allreduce = true
		s.classFlags[p.UID] = flags
		s.allreduces = append(s.allreduces, p)
		if s.out != nil {
			return s.out.BroadcastTaskCommunication(dispatch.TaskCommunicationEvent{Pid: s.pid, UID: p.UID, Kind: "allreduce", Timestamp: r.Timestamp})
		}
	case record.Blocked:
		s.blockedRecords = append(s.blockedRecords, r)
		if s.out != nil {
			return s.out.BroadcastTaskBlocked(dispatch.TaskBlockedEvent{Pid: s.pid, UID: p.UID, Tid: r.Tid, Timestamp: r.Timestamp})
		}
	case record.Unblocked:
		s.blockedRecords = append(s.blockedRecords, r)
		if s.out != nil {
			return s.out.BroadcastTaskUnblocked(dispatch.TaskUnblockedEvent{Pid: s.pid, UID: p.UID, Tid: r.Tid, Timestamp: r.Timestamp})
		}
	case record.Rank, record.Ignore:
		// Rank bindings are consumed by internal/rankmap before replay; Begin/End
		// markers carry no task-graph information.
	}
	return nil
}

func (s *state) onCreate(r record.Record, c record.Create) error {
	s.tasks[c.UID] = &TaskHandle{Create: c, CreateTimestamp: r.Timestamp}
	if _, ok := s.predecessors[c.UID]; !ok {
		s.predecessors[c.UID] = 0
	}
	if c.Props&record.PropInitial == 0 && s.predecessors[c.UID] == 0 {
		s.ready[c.UID] = true
		s.readyAt[c.UID] = r.Timestamp
		if s.out != nil {
			if err := s.out.BroadcastTaskReady(dispatch.TaskReadyEvent{Pid: s.pid, UID: c.UID, Timestamp: r.Timestamp}); err != nil {
				return err
			}
		}
	}
	if s.out == nil {
		return nil
	}
	return s.out.BroadcastTaskCreate(dispatch.TaskCreateEvent{
		Pid: s.pid, UID: c.UID, Label: c.Label, ParentUID: c.ParentUID, Timestamp: r.Timestamp,
	})
}

func (s *state) onDelete(r record.Record, d record.Delete) error {
	if h, ok := s.tasks[d.UID]; ok {
		h.Delete = &d
		h.DeleteTimestamp = r.Timestamp
	}
	cancelled := d.Statuses&record.StatusCancelled != 0
	if cancelled {
		delete(s.ready, d.UID)
		delete(s.pending, d.UID)
	}
	if s.out == nil {
		return nil
	}
	return s.out.BroadcastTaskDelete(dispatch.TaskDeleteEvent{Pid: s.pid, UID: d.UID, Cancelled: cancelled, Timestamp: r.Timestamp})
}

func (s *state) onDependency(r record.Record, dep record.Dependency) error {
	s.successors[dep.OutUID] = append(s.successors[dep.OutUID], dep.InUID)
	s.predecessors[dep.InUID]--
	becameReady := false
	if s.predecessors[dep.InUID] <= 0 {
		s.predecessors[dep.InUID] = 0
		if !s.ready[dep.InUID] {
			s.ready[dep.InUID] = true
			s.readyAt[dep.InUID] = r.Timestamp
			becameReady = true
		}
	}
	if s.out == nil {
		return nil
	}
	if err := s.out.BroadcastTaskDependency(dispatch.TaskDependencyEvent{
		Pid: s.pid, OutUID: dep.OutUID, InUID: dep.InUID, Timestamp: r.Timestamp,
	}); err != nil {
		return err
	}
	if becameReady {
		return s.out.BroadcastTaskReady(dispatch.TaskReadyEvent{Pid: s.pid, UID: dep.InUID, Timestamp: r.Timestamp})
	}
	return nil
}

func (s *state) onSchedule(r record.Record, sch record.Schedule) error {
	s.schedules[sch.UID] = append(s.schedules[sch.UID], sch)
	s.granularities[sch.UID] = append(s.granularities[sch.UID], r.Timestamp)

	switch {
	case sch.Statuses&record.StatusCompleted != 0:
		return s.onCompleted(r, sch)
	case sch.Statuses&record.StatusUnblocked != 0:
		return s.onUnblocked(r, sch)
	case sch.Statuses&record.StatusBlocking != 0:
		return s.onBlocking(r, sch)
	default:
		return s.onStartOrResume(r, sch)
	}
}

func (s *state) popBind(tid, uid uint32) {
	stack := s.bind[tid]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == uid {
			s.bind[tid] = append(stack[:i], stack[i+1:]...)
			return
		}
	}
}

func (s *state) pushBind(tid, uid uint32) {
	s.bind[tid] = append(s.bind[tid], uid)
}

func (s *state) onCompleted(r record.Record, sch record.Schedule) error {
	s.popBind(r.Tid, sch.UID)
	start := s.lastStartTs[sch.UID]
	for _, p := range s.pending {
		from := p.BlockedAt
		if start > from {
			from = start
		}
		if r.Timestamp > from {
			p.Overlap += r.Timestamp - from
		}
	}
	s.maybeAccountIdle(r)
	if s.out == nil {
		return nil
	}
	return s.out.BroadcastTaskCompleted(dispatch.TaskCompletedEvent{Pid: s.pid, UID: sch.UID, Tid: r.Tid, Timestamp: r.Timestamp})
}

func (s *state) onUnblocked(r record.Record, sch record.Schedule) error {
	s.updateReadiness(sch.UID, r.Timestamp)
	s.pushBind(r.Tid, sch.UID)
	s.lastStartTs[sch.UID] = r.Timestamp
	if entry, ok := s.pending[sch.UID]; ok {
		entry.UnblockedAt = r.Timestamp
		s.completed[sch.UID] = append(s.completed[sch.UID], *entry)
		delete(s.pending, sch.UID)
		s.blockedDeltas = append(s.blockedDeltas, BlockedDelta{Timestamp: r.Timestamp, Delta: -1})
	}
	if s.out == nil {
		return nil
	}
	return s.out.BroadcastTaskResumed(dispatch.TaskResumedEvent{Pid: s.pid, UID: sch.UID, Tid: r.Tid, Timestamp: r.Timestamp})
}

func (s *state) onBlocking(r record.Record, sch record.Schedule) error {
	s.popBind(r.Tid, sch.UID)
	s.pending[sch.UID] = &AsynchronyEntry{BlockedAt: r.Timestamp}
	s.blockedDeltas = append(s.blockedDeltas, BlockedDelta{Timestamp: r.Timestamp, Delta: 1})
	s.maybeAccountIdle(r)
	if s.out == nil {
		return nil
	}
	return s.out.BroadcastTaskPaused(dispatch.TaskPausedEvent{Pid: s.pid, UID: sch.UID, Tid: r.Tid, Timestamp: r.Timestamp})
}

func (s *state) onStartOrResume(r record.Record, sch record.Schedule) error {
	if s.ready[sch.UID] {
		delete(s.ready, sch.UID)
		s.updateReadiness(sch.UID, r.Timestamp)
	}
	s.pushBind(r.Tid, sch.UID)
	s.lastStartTs[sch.UID] = r.Timestamp
	if s.out == nil {
		return nil
	}
	return s.out.BroadcastTaskStarted(dispatch.TaskStartedEvent{Pid: s.pid, UID: sch.UID, Tid: r.Tid, ScheduleID: sch.ScheduleID, Timestamp: r.Timestamp})
}

func (s *state) updateReadiness(uid uint32, now uint64) {
	at, ok := s.readyAt[uid]
	if !ok || now < at {
		return
	}
	wait := now - at
	if wait > s.readiness.Max {
		s.readiness.Max = wait
	}
	s.readiness.AvgAccumulator += wait
	s.readiness.NSchedules++
	delete(s.readyAt, uid)
}

// maybeAccountIdle implements "after COMPLETED or BLOCKING without
// UNBLOCKED: if the ready queue is now empty, the thread idles until its
// next scheduled task (or end of trace)".
func (s *state) maybeAccountIdle(r record.Record) {
	if len(s.ready) != 0 {
		return
	}
	next := s.nextScheduleOnTid(r.Tid, r.Timestamp)
	if next <= r.Timestamp {
		return
	}
	idle := next - r.Timestamp
	s.idleTime += idle
	for _, p := range s.pending {
		p.Idle += idle
	}
}

func (s *state) nextScheduleOnTid(tid uint32, after uint64) uint64 {
	ts := s.scheduleTsByTid[tid]
	i := sort.Search(len(ts), func(i int) bool { return ts[i] > after })
	if i == len(ts) {
		return s.tf
	}
	return ts[i]
}

func (s *state) finish() (*ProcessResult, error) {
	for uid, n := range s.predecessors {
		if n != 0 {
			return nil, &errs.TraceInconsistentError{Pid: s.pid, Uid: uid, Invariant: "predecessor count did not reach zero"}
		}
	}
	if len(s.ready) != 0 {
		for uid := range s.ready {
			return nil, &errs.TraceInconsistentError{Pid: s.pid, Uid: uid, Invariant: "task remained ready at end of trace"}
		}
	}
	if len(s.pending) != 0 {
		for uid := range s.pending {
			return nil, &errs.TraceInconsistentError{Pid: s.pid, Uid: uid, Invariant: "task remained blocked at end of trace"}
		}
	}
	for uid, scheds := range s.schedules {
		if len(scheds)%2 != 0 && !s.cancelled(uid) {
			return nil, &errs.TraceInconsistentError{Pid: s.pid, Uid: uid, Invariant: "odd number of schedule records"}
		}
	}

	res := &ProcessResult{
		Pid:                 s.pid,
		Tasks:               s.tasks,
		Schedules:           s.schedules,
		Successors:          s.successors,
		ClassFlags:          s.classFlags,
		Granularities:       s.granularities,
		BlockedDeltas:       s.blockedDeltas,
		BlockedRecords:      s.blockedRecords,
		Sends:               s.sends,
		Recvs:               s.recvs,
		Allreduces:          s.allreduces,
		AsynchronyCompleted: s.completed,
		Readiness:           s.readiness,
		T0:                  s.t0,
		Tf:                  s.tf,
		Threads:             len(s.threads),
		IdleTime:            s.idleTime,
	}
	s.summarize(res)
	return res, nil
}

func (s *state) cancelled(uid uint32) bool {
	h, ok := s.tasks[uid]
	return ok && h.Delete != nil && h.Delete.Statuses&record.StatusCancelled != 0
}

func (s *state) summarize(res *ProcessResult) {
	if res.Threads == 0 {
		res.Threads = 1
	}
	res.ProcessTotal = (res.Tf - res.T0) * uint64(res.Threads)

	var inTask uint64
	for uid, scheds := range s.schedules {
		var dur uint64
		for i := 0; i+1 < len(scheds); i += 2 {
			startTs := s.granularities[uid][i]
			endTs := s.granularities[uid][i+1]
			if endTs > startTs {
				dur += endTs - startTs
			}
		}
		inTask += dur
		flags := s.classFlags[uid]
		switch {
		case flags.Send:
			res.SendTime += dur
		case flags.Recv:
			res.RecvTime += dur
		case flags.Allreduce:
			res.AllreduceTime += dur
		default:
			res.ComputeTime += dur
		}
	}
	res.InTask = inTask
	if res.ProcessTotal > inTask {
		res.OutTask = res.ProcessTotal - inTask
	}
	if res.OutTask > res.IdleTime {
		res.Overhead = res.OutTask - res.IdleTime
	}
}
