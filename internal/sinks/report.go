// Package sinks implements the dispatcher observers that turn a finished
// replay (plus the graph and critical path built from it) into on-disk
// artifacts.
package sinks

import (
	"sort"

	"tracereplay/internal/critpath"
	"tracereplay/internal/graph"
	"tracereplay/internal/replay"
)

// ReportReceiver is implemented by sinks whose output can only be computed
// once the whole pipeline has finished (stats, blocked, DOT). The driver
// calls SetReport on every registered sink that implements this interface
// once the Report is assembled, before broadcasting on_end.
type ReportReceiver interface {
	SetReport(*Report)
}

// Report is the finished pipeline output that the heavier sinks (stats, DOT)
// render from. Lifecycle events alone cannot produce it: graph construction
// and critical-path relaxation only complete after every process has been
// replayed, so the driver builds one Report and hands it to sinks that ask
// for it before broadcasting on_end.
type Report struct {
	Results []*replay.ProcessResult
	Graph   *graph.Graph
	Path    *critpath.Path
	Banlist map[string]bool
}

// TaskCount returns the number of graph nodes.
func (r *Report) TaskCount() int { return len(r.Graph.Nodes) }

// ArcCount returns the number of intra-process successor edges plus
// cross-process send_to_recv edges.
func (r *Report) ArcCount() int {
	n := 0
	for _, node := range r.Graph.Nodes {
		n += len(node.Successors)
	}
	for _, targets := range r.Graph.SendToRecv {
		n += len(targets)
	}
	return n
}

// GranularityByLabel returns, per label, the mean duration (seconds) of one
// schedule pair (one run), skipping labels present in the banlist.
func (r *Report) GranularityByLabel() map[string]float64 {
	sums := make(map[string]uint64)
	counts := make(map[string]uint64)
	for _, res := range r.Results {
		for uid, h := range res.Tasks {
			label := h.Create.Label
			if r.Banlist[label] {
				continue
			}
			ts := res.Granularities[uid]
			for i := 0; i+1 < len(ts); i += 2 {
				sums[label] += ts[i+1] - ts[i]
				counts[label]++
			}
		}
	}
	out := make(map[string]float64, len(sums))
	for label, sum := range sums {
		if counts[label] == 0 {
			continue
		}
		out[label] = seconds(sum / counts[label])
	}
	return out
}

// TotalWork is T1: the sum of node compute times across every process.
func (r *Report) TotalWork() uint64 {
	var total uint64
	for _, n := range r.Graph.Nodes {
		total += n.Time()
	}
	return total
}

// Makespan is Tp: the largest per-process total elapsed time.
func (r *Report) Makespan() uint64 {
	var max uint64
	for _, res := range r.Results {
		if res.ProcessTotal > max {
			max = res.ProcessTotal
		}
	}
	return max
}

// CriticalPathLength is Too.
func (r *Report) CriticalPathLength() uint64 {
	if r.Path == nil {
		return 0
	}
	return r.Path.Length
}

// LowerBound is max(T1/P, Too), the Blumofe-Leiserson scheduling bound.
func (r *Report) LowerBound() float64 {
	p := float64(len(r.Results))
	if p == 0 {
		return 0
	}
	t1OverP := float64(r.TotalWork()) / p
	too := float64(r.CriticalPathLength())
	if t1OverP > too {
		return t1OverP
	}
	return too
}

// Speedup is T1/Tp.
func (r *Report) Speedup() float64 {
	tp := r.Makespan()
	if tp == 0 {
		return 0
	}
	return float64(r.TotalWork()) / float64(tp)
}

// RecordCount returns the total number of records replayed across every
// process: every task's schedule count plus its create/delete plus the
// dependency edges that reference it, a close approximation to the raw
// on-disk record count suitable for the stats report's `records` field.
func (r *Report) RecordCount() int {
	n := 0
	for _, res := range r.Results {
		for _, scheds := range res.Schedules {
			n += len(scheds)
		}
		n += len(res.Tasks) * 2
		for _, succ := range res.Successors {
			n += len(succ)
		}
		n += len(res.Sends) + len(res.Recvs) + len(res.Allreduces)
		n += len(res.BlockedRecords)
	}
	return n
}

func seconds(microseconds uint64) float64 {
	return roundTo6(float64(microseconds) / 1e6)
}

func roundTo6(v float64) float64 {
	const scale = 1e6
	return float64(int64(v*scale+0.5)) / scale
}

// sortedPids returns the pids in r in ascending order, useful wherever a
// sink needs a deterministic per-process iteration order.
func sortedPids(results []*replay.ProcessResult) []uint32 {
	pids := make([]uint32, 0, len(results))
	for _, res := range results {
		pids = append(pids, res.Pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}
