package sinks

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"tracereplay/internal/dispatch"
)

// RecordsSink dumps every lifecycle event observed during replay, one line
// per event, to <prefix>-records.txt. Its output is meant for human
// inspection while debugging a trace, not for machine consumption.
//
// Per-process replay runs on its own goroutine (§5), so this sink keeps one
// buffer per pid behind a mutex and concatenates them in ascending pid order
// at on_end — output is identical regardless of which goroutine's events
// happen to arrive first.
type RecordsSink struct {
	dispatch.NopSink

	mu  sync.Mutex
	buf map[uint32]*bytes.Buffer
}

func (s *RecordsSink) Name() string { return "records" }

func (s *RecordsSink) OnStart(dispatch.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = make(map[uint32]*bytes.Buffer)
	return nil
}

func (s *RecordsSink) line(pid uint32) *bytes.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buf[pid]
	if !ok {
		b = &bytes.Buffer{}
		s.buf[pid] = b
	}
	return b
}

func (s *RecordsSink) OnTaskCreate(ev dispatch.TaskCreateEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tCREATE\tuid=%d label=%q parent=%d\n", ev.Timestamp, ev.Pid, ev.UID, ev.Label, ev.ParentUID)
	return nil
}

func (s *RecordsSink) OnTaskDelete(ev dispatch.TaskDeleteEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tDELETE\tuid=%d cancelled=%v\n", ev.Timestamp, ev.Pid, ev.UID, ev.Cancelled)
	return nil
}

func (s *RecordsSink) OnTaskDependency(ev dispatch.TaskDependencyEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tDEPENDENCY\tout=%d in=%d\n", ev.Timestamp, ev.Pid, ev.OutUID, ev.InUID)
	return nil
}

func (s *RecordsSink) OnTaskReady(ev dispatch.TaskReadyEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tREADY\tuid=%d\n", ev.Timestamp, ev.Pid, ev.UID)
	return nil
}

func (s *RecordsSink) OnTaskStarted(ev dispatch.TaskStartedEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tSTART\tuid=%d tid=%d sched=%d\n", ev.Timestamp, ev.Pid, ev.UID, ev.Tid, ev.ScheduleID)
	return nil
}

func (s *RecordsSink) OnTaskCompleted(ev dispatch.TaskCompletedEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tCOMPLETE\tuid=%d tid=%d\n", ev.Timestamp, ev.Pid, ev.UID, ev.Tid)
	return nil
}

func (s *RecordsSink) OnTaskPaused(ev dispatch.TaskPausedEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tPAUSE\tuid=%d tid=%d\n", ev.Timestamp, ev.Pid, ev.UID, ev.Tid)
	return nil
}

func (s *RecordsSink) OnTaskResumed(ev dispatch.TaskResumedEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tRESUME\tuid=%d tid=%d\n", ev.Timestamp, ev.Pid, ev.UID, ev.Tid)
	return nil
}

func (s *RecordsSink) OnTaskBlocked(ev dispatch.TaskBlockedEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tBLOCKED\tuid=%d tid=%d\n", ev.Timestamp, ev.Pid, ev.UID, ev.Tid)
	return nil
}

func (s *RecordsSink) OnTaskUnblocked(ev dispatch.TaskUnblockedEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\tUNBLOCKED\tuid=%d tid=%d\n", ev.Timestamp, ev.Pid, ev.UID, ev.Tid)
	return nil
}

func (s *RecordsSink) OnTaskCommunication(ev dispatch.TaskCommunicationEvent) error {
	fmt.Fprintf(s.line(ev.Pid), "%d\t%d\t%s\tuid=%d\n", ev.Timestamp, ev.Pid, ev.Kind, ev.UID)
	return nil
}

func (s *RecordsSink) OnEnd(cfg dispatch.Config) error {
	s.mu.Lock()
	pids := make([]uint32, 0, len(s.buf))
	for pid := range s.buf {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	var out bytes.Buffer
	for _, pid := range pids {
		out.Write(s.buf[pid].Bytes())
	}
	s.mu.Unlock()

	return writeFileAtomic(cfg.OutputPrefix+"-records.txt", out.Bytes())
}
