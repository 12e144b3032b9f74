package sinks

import (
	"encoding/json"
	"fmt"

	"tracereplay/internal/dispatch"
)

// CTEOptions toggles which lifecycle events contribute to the Chrome trace
// document, carried over from the legacy trace_to_cte tool's detail flags.
type CTEOptions struct {
	Schedule      bool
	Creation      bool
	Dependencies  bool
	Communications bool
	Color         bool
}

type cteEvent struct {
	Name string         `json:"name"`
	Ph   string         `json:"ph"`
	Ts   float64        `json:"ts"`
	Dur  float64        `json:"dur,omitempty"`
	Pid  uint32         `json:"pid"`
	Tid  uint32         `json:"tid"`
	ID   string         `json:"id,omitempty"`
	Cat  string          `json:"cat,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

type cteDoc struct {
	TraceEvents []cteEvent `json:"traceEvents"`
}

type openInterval struct {
	ts  uint64
	tid uint32
}

// CTESink builds the Chrome trace-format document consumed by chrome://tracing
// and compatible viewers.
type CTESink struct {
	dispatch.NopSink
	Options CTEOptions

	labels map[nodeKey]string
	open   map[nodeKey]openInterval
	events []cteEvent
}

type nodeKey struct {
	Pid uint32
	UID uint32
}

func (s *CTESink) Name() string        { return "cte" }
func (s *CTESink) DependsOn() []string { return nil }

func (s *CTESink) OnStart(dispatch.Config) error {
	s.labels = make(map[nodeKey]string)
	s.open = make(map[nodeKey]openInterval)
	return nil
}

func (s *CTESink) OnTaskCreate(ev dispatch.TaskCreateEvent) error {
	k := nodeKey{ev.Pid, ev.UID}
	s.labels[k] = ev.Label
	if !s.Options.Creation {
		return nil
	}
	args := map[string]any{"parent_uid": ev.ParentUID}
	s.events = append(s.events, cteEvent{
		Name: ev.Label, Ph: "M", Ts: micros(ev.Timestamp), Pid: ev.Pid, Tid: 0, Args: args,
	})
	return nil
}

func (s *CTESink) OnTaskDependency(ev dispatch.TaskDependencyEvent) error {
	if !s.Options.Dependencies {
		return nil
	}
	id := fmt.Sprintf("%d-%d-%d", ev.Pid, ev.OutUID, ev.InUID)
	s.events = append(s.events,
		cteEvent{Name: "dependency", Ph: "s", Ts: micros(ev.Timestamp), Pid: ev.Pid, Tid: 0, ID: id, Cat: "dependency"},
		cteEvent{Name: "dependency", Ph: "t", Ts: micros(ev.Timestamp), Pid: ev.Pid, Tid: 0, ID: id, Cat: "dependency"},
	)
	return nil
}

func (s *CTESink) OnTaskStarted(ev dispatch.TaskStartedEvent) error {
	if !s.Options.Schedule {
		return nil
	}
	s.open[nodeKey{ev.Pid, ev.UID}] = openInterval{ts: ev.Timestamp, tid: ev.Tid}
	return nil
}

func (s *CTESink) OnTaskResumed(ev dispatch.TaskResumedEvent) error {
	if !s.Options.Schedule {
		return nil
	}
	s.open[nodeKey{ev.Pid, ev.UID}] = openInterval{ts: ev.Timestamp, tid: ev.Tid}
	return nil
}

func (s *CTESink) OnTaskCompleted(ev dispatch.TaskCompletedEvent) error {
	return s.closeInterval(ev.Pid, ev.UID, ev.Tid, ev.Timestamp)
}

func (s *CTESink) OnTaskPaused(ev dispatch.TaskPausedEvent) error {
	return s.closeInterval(ev.Pid, ev.UID, ev.Tid, ev.Timestamp)
}

func (s *CTESink) closeInterval(pid, uid, tid uint32, ts uint64) error {
	if !s.Options.Schedule {
		return nil
	}
	k := nodeKey{pid, uid}
	iv, ok := s.open[k]
	if !ok {
		return nil
	}
	delete(s.open, k)

	var dur float64
	if ts > iv.ts {
		dur = micros(ts - iv.ts)
	}
	var args map[string]any
	if s.Options.Color {
		args = map[string]any{"label": s.labels[k]}
	}
	s.events = append(s.events, cteEvent{
		Name: s.labels[k], Ph: "X", Ts: micros(iv.ts), Dur: dur, Pid: pid, Tid: tid, Args: args,
	})
	return nil
}

func (s *CTESink) OnTaskCommunication(ev dispatch.TaskCommunicationEvent) error {
	if !s.Options.Communications {
		return nil
	}
	s.events = append(s.events, cteEvent{
		Name: ev.Kind, Ph: "i", Ts: micros(ev.Timestamp), Pid: ev.Pid, Tid: 0, Cat: "communication",
	})
	return nil
}

func (s *CTESink) OnEnd(cfg dispatch.Config) error {
	data, err := json.Marshal(cteDoc{TraceEvents: s.events})
	if err != nil {
		return err
	}
	return writeFileAtomic(cfg.OutputPrefix+".json", data)
}

// micros converts a trace timestamp, already in microseconds, to the
// float64 Chrome Trace Event format expects for "ts"/"dur". No scaling is
// applied: the native unit is microseconds, not nanoseconds.
func micros(ts uint64) float64 { return float64(ts) }
