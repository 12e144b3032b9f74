package dispatch

import (
	"container/heap"
	"fmt"
	"sort"
)

// Dispatcher holds a set of registered sinks and broadcasts lifecycle
// events to them in dependency order. Replacing registration-list order
// with an explicit dependency graph (each sink names the sinks it must run
// after) removes the precedence coupling the original tool had.
type Dispatcher struct {
	sinks   []Sink
	byName  map[string]int
	ordered []int // indices into sinks, in broadcast order
}

// New builds a Dispatcher from sinks, resolving broadcast order by
// topologically sorting each sink's DependsOn() declarations. A sink with
// no dependents or dependencies keeps its relative registration position
// among other zero-dependency sinks (ties are broken by registration
// index, via a min-heap over indices, so the order is deterministic).
func New(sinks ...Sink) (*Dispatcher, error) {
	d := &Dispatcher{sinks: sinks, byName: make(map[string]int, len(sinks))}
	for i, s := range sinks {
		if s.Name() == "" {
			return nil, fmt.Errorf("sink at index %d has an empty name", i)
		}
		if _, dup := d.byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate sink name %q", s.Name())
		}
		d.byName[s.Name()] = i
	}

	indeg := make([]int, len(sinks))
	adj := make([][]int, len(sinks)) // adj[dep] -> sinks that depend on dep
	for i, s := range sinks {
		for _, depName := range s.DependsOn() {
			depIdx, ok := d.byName[depName]
			if !ok {
				return nil, fmt.Errorf("sink %q depends on unknown sink %q", s.Name(), depName)
			}
			adj[depIdx] = append(adj[depIdx], i)
			indeg[i]++
		}
	}

	h := &intHeap{}
	for i, deg := range indeg {
		if deg == 0 {
			heap.Push(h, i)
		}
	}
	order := make([]int, 0, len(sinks))
	for h.Len() > 0 {
		i := heap.Pop(h).(int)
		order = append(order, i)
		neighbors := append([]int(nil), adj[i]...)
		sort.Ints(neighbors)
		for _, n := range neighbors {
			indeg[n]--
			if indeg[n] == 0 {
				heap.Push(h, n)
			}
		}
	}
	if len(order) != len(sinks) {
		return nil, fmt.Errorf("sink dependency graph has a cycle")
	}
	d.ordered = order
	return d, nil
}

type intHeap []int

func (h intHeap) Len() int            { return len(h) }
func (h intHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func (d *Dispatcher) each(f func(Sink) error) error {
	for _, idx := range d.ordered {
		if err := f(d.sinks[idx]); err != nil {
			return fmt.Errorf("sink %q: %w", d.sinks[idx].Name(), err)
		}
	}
	return nil
}

func (d *Dispatcher) BroadcastStart(cfg Config) error { return d.each(func(s Sink) error { return s.OnStart(cfg) }) }
func (d *Dispatcher) BroadcastEnd(cfg Config) error   { return d.each(func(s Sink) error { return s.OnEnd(cfg) }) }
func (d *Dispatcher) BroadcastProcessInspectionStart(pid uint32) error {
	return d.each(func(s Sink) error { return s.OnProcessInspectionStart(pid) })
}
func (d *Dispatcher) BroadcastProcessInspectionEnd(pid uint32) error {
	return d.each(func(s Sink) error { return s.OnProcessInspectionEnd(pid) })
}
func (d *Dispatcher) BroadcastTaskCreate(ev TaskCreateEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskCreate(ev) })
}
func (d *Dispatcher) BroadcastTaskDelete(ev TaskDeleteEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskDelete(ev) })
}
func (d *Dispatcher) BroadcastTaskDependency(ev TaskDependencyEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskDependency(ev) })
}
func (d *Dispatcher) BroadcastTaskReady(ev TaskReadyEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskReady(ev) })
}
func (d *Dispatcher) BroadcastTaskStarted(ev TaskStartedEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskStarted(ev) })
}
func (d *Dispatcher) BroadcastTaskCompleted(ev TaskCompletedEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskCompleted(ev) })
}
func (d *Dispatcher) BroadcastTaskBlocked(ev TaskBlockedEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskBlocked(ev) })
}
func (d *Dispatcher) BroadcastTaskUnblocked(ev TaskUnblockedEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskUnblocked(ev) })
}
func (d *Dispatcher) BroadcastTaskPaused(ev TaskPausedEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskPaused(ev) })
}
func (d *Dispatcher) BroadcastTaskResumed(ev TaskResumedEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskResumed(ev) })
}
func (d *Dispatcher) BroadcastTaskCommunication(ev TaskCommunicationEvent) error {
	return d.each(func(s Sink) error { return s.OnTaskCommunication(ev) })
}
