package sinks

import (
	"encoding/json"

	"tracereplay/internal/dispatch"
)

// StatsSink builds the <prefix>-stats.json document. It does not derive its
// numbers from individual lifecycle events: graph and critical-path data are
// only final once every process has replayed, so it reads a Report the
// driver attaches once the whole pipeline has run and writes on on_end.
type StatsSink struct {
	dispatch.NopSink
	Report *Report
}

func (s *StatsSink) Name() string              { return "stats" }
func (s *StatsSink) SetReport(r *Report)       { s.Report = r }

type statsDoc struct {
	About   statsAbout   `json:"about"`
	Records int          `json:"records"`
	Graph   statsGraph   `json:"graph"`
	Time    statsTime    `json:"time"`
	Scheduling statsSched `json:"scheduling"`
}

type statsAbout struct {
	Processes int `json:"processes"`
}

type statsGraph struct {
	Tasks       int                `json:"tasks"`
	Arcs        int                `json:"arcs"`
	Granularity map[string]float64 `json:"granularity"`
}

type statsTime struct {
	Flat       statsFlat       `json:"flat"`
	Proportion statsProportion `json:"proportion"`
}

type statsFlat struct {
	InTask    float64 `json:"in_task"`
	OutTask   float64 `json:"out_task"`
	Idle      float64 `json:"idle"`
	Overhead  float64 `json:"overhead"`
	Compute   float64 `json:"compute"`
	Send      float64 `json:"send"`
	Recv      float64 `json:"recv"`
	Allreduce float64 `json:"allreduce"`
}

type statsProportion struct {
	InTask   float64 `json:"in_task"`
	OutTask  float64 `json:"out_task"`
	Idle     float64 `json:"idle"`
	Overhead float64 `json:"overhead"`
}

type statsSched struct {
	T1         float64 `json:"t1"`
	Too        float64 `json:"too"`
	P          int     `json:"p"`
	Tp         float64 `json:"tp"`
	LowerBound float64 `json:"lower_bound"`
	Speedup    float64 `json:"speedup"`
}

func (s *StatsSink) OnEnd(cfg dispatch.Config) error {
	if s.Report == nil {
		return nil
	}
	r := s.Report

	var inTask, outTask, idle, overhead, compute, send, recv, allreduce uint64
	for _, res := range r.Results {
		inTask += res.InTask
		outTask += res.OutTask
		idle += res.IdleTime
		overhead += res.Overhead
		compute += res.ComputeTime
		send += res.SendTime
		recv += res.RecvTime
		allreduce += res.AllreduceTime
	}
	total := inTask + outTask
	prop := func(part uint64) float64 {
		if total == 0 {
			return 0
		}
		return roundTo6(float64(part) / float64(total) * 100)
	}

	doc := statsDoc{
		About:   statsAbout{Processes: len(r.Results)},
		Records: r.RecordCount(),
		Graph: statsGraph{
			Tasks:       r.TaskCount(),
			Arcs:        r.ArcCount(),
			Granularity: r.GranularityByLabel(),
		},
		Time: statsTime{
			Flat: statsFlat{
				InTask: seconds(inTask), OutTask: seconds(outTask),
				Idle: seconds(idle), Overhead: seconds(overhead),
				Compute: seconds(compute), Send: seconds(send),
				Recv: seconds(recv), Allreduce: seconds(allreduce),
			},
			Proportion: statsProportion{
				InTask: prop(inTask), OutTask: prop(outTask),
				Idle: prop(idle), Overhead: prop(overhead),
			},
		},
		Scheduling: statsSched{
			T1:         seconds(r.TotalWork()),
			Too:        seconds(r.CriticalPathLength()),
			P:          len(r.Results),
			Tp:         seconds(r.Makespan()),
			LowerBound: roundTo6(r.LowerBound() / 1e6),
			Speedup:    roundTo6(r.Speedup()),
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(cfg.OutputPrefix+"-stats.json", data)
}
