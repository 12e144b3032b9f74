// Package dispatch broadcasts replay lifecycle events to registered
// observers (sinks), in an order derived from each sink's declared
// dependencies rather than registration order.
package dispatch

// Sink is the capability set a pass may subscribe to. Implementations embed
// NopSink and override only the hooks they need — mirroring a minimal,
// inert-by-default observer interface.
//
// A sink must not mutate replay state; any per-sink bookkeeping belongs in
// fields the sink owns, not in the event payloads it receives.
type Sink interface {
	Name() string
	DependsOn() []string

	OnStart(cfg Config) error
	OnProcessInspectionStart(pid uint32) error
	OnProcessInspectionEnd(pid uint32) error
	OnTaskCreate(ev TaskCreateEvent) error
	OnTaskDelete(ev TaskDeleteEvent) error
	OnTaskDependency(ev TaskDependencyEvent) error
	OnTaskReady(ev TaskReadyEvent) error
	OnTaskStarted(ev TaskStartedEvent) error
	OnTaskCompleted(ev TaskCompletedEvent) error
	OnTaskBlocked(ev TaskBlockedEvent) error
	OnTaskUnblocked(ev TaskUnblockedEvent) error
	OnTaskPaused(ev TaskPausedEvent) error
	OnTaskResumed(ev TaskResumedEvent) error
	OnTaskCommunication(ev TaskCommunicationEvent) error
	OnEnd(cfg Config) error
}

// NopSink implements every Sink hook as a no-op. Embed it to subscribe to a
// subset of events without writing boilerplate for the rest.
type NopSink struct{}

func (NopSink) Name() string               { return "" }
func (NopSink) DependsOn() []string        { return nil }
func (NopSink) OnStart(Config) error       { return nil }
func (NopSink) OnProcessInspectionStart(uint32) error { return nil }
func (NopSink) OnProcessInspectionEnd(uint32) error   { return nil }
func (NopSink) OnTaskCreate(TaskCreateEvent) error         { return nil }
func (NopSink) OnTaskDelete(TaskDeleteEvent) error         { return nil }
func (NopSink) OnTaskDependency(TaskDependencyEvent) error { return nil }
func (NopSink) OnTaskReady(TaskReadyEvent) error           { return nil }
func (NopSink) OnTaskStarted(TaskStartedEvent) error       { return nil }
func (NopSink) OnTaskCompleted(TaskCompletedEvent) error   { return nil }
func (NopSink) OnTaskBlocked(TaskBlockedEvent) error       { return nil }
func (NopSink) OnTaskUnblocked(TaskUnblockedEvent) error   { return nil }
func (NopSink) OnTaskPaused(TaskPausedEvent) error         { return nil }
func (NopSink) OnTaskResumed(TaskResumedEvent) error       { return nil }
func (NopSink) OnTaskCommunication(TaskCommunicationEvent) error { return nil }
func (NopSink) OnEnd(Config) error                         { return nil }
