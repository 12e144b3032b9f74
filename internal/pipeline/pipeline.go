// Package pipeline wires the record codec, repair stage, rank map, replay
// engine, graph builder, critical path, and pass dispatcher into a single
// end-to-end run over a trace directory.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"tracereplay/internal/critpath"
	"tracereplay/internal/dispatch"
	"tracereplay/internal/errs"
	"tracereplay/internal/graph"
	"tracereplay/internal/rankmap"
	"tracereplay/internal/record"
	"tracereplay/internal/repair"
	"tracereplay/internal/replay"
	"tracereplay/internal/sinks"
)

// Config is everything the driver needs to run one pipeline pass.
type Config struct {
	InputDir       string
	OutputPrefix   string
	Parallelism    int
	GranularityBan map[string]bool
	// CacheDir, when non-empty, roots a content-addressed decode cache that
	// LoadDir consults and populates, skipping re-decode of unchanged trace
	// files across runs. Empty disables the cache entirely.
	CacheDir string
	Sinks    []dispatch.Sink
	Logger   *zap.Logger
}

// Result is the pipeline's in-memory output, returned alongside whatever
// artifacts the registered sinks wrote to disk.
type Result struct {
	Results []*replay.ProcessResult
	Graph   *graph.Graph
	Path    *critpath.Path
	Report  *sinks.Report
}

// Run executes one full pipeline pass: load, rank, repair, replay, build the
// global graph, compute the critical path, then broadcast on_end to every
// registered sink with the finished Report attached.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dispatcher, err := dispatch.New(cfg.Sinks...)
	if err != nil {
		return nil, err
	}

	var cache *record.DecodeCache
	if cfg.CacheDir != "" {
		cache = record.NewDecodeCache(cfg.CacheDir)
	}

	log.Info("loading trace directory", zap.String("dir", cfg.InputDir), zap.Bool("cache_enabled", cache != nil))
	store, err := record.LoadDir(cfg.InputDir, cache)
	if err != nil {
		return nil, err
	}

	for _, s := range cfg.Sinks {
		if p, ok := s.(*sinks.ProgressSink); ok {
			p.Total = len(store.Pids())
		}
	}

	dcfg := dispatch.Config{InputDir: cfg.InputDir, OutputPrefix: cfg.OutputPrefix, GranularityBan: cfg.GranularityBan}
	if err := dispatcher.BroadcastStart(dcfg); err != nil {
		return nil, err
	}

	rm := rankmap.New()
	for _, pid := range store.Pids() {
		rm.Observe(pid, store.Records(pid))
	}

	for _, pid := range store.Pids() {
		repaired := repair.Process(store.Records(pid), log)
		store.SetRecords(pid, repaired)
	}

	log.Info("replaying processes", zap.Int("count", len(store.Pids())), zap.Int("parallelism", cfg.Parallelism))
	results, err := replay.RunAll(ctx, store, dispatcher, log, cfg.Parallelism)
	if err != nil {
		return nil, err
	}

	log.Info("building global graph")
	g := graph.Build(results, rm)
	if len(g.UnmatchedSends) > 0 || len(g.UnmatchedRecvs) > 0 {
		log.Warn("unmatched point-to-point communications",
			zap.Error(&errs.PartialCommunicationWarning{Msg: "sends or recvs without a counterpart"}),
			zap.Int("unmatched_sends", len(g.UnmatchedSends)),
			zap.Int("unmatched_recvs", len(g.UnmatchedRecvs)))
	}

	log.Info("computing critical path")
	path, err := critpath.Compute(g)
	if err != nil {
		return nil, err
	}

	report := &sinks.Report{
		Results: results,
		Graph:   g,
		Path:    path,
		Banlist: cfg.GranularityBan,
	}
	for _, s := range cfg.Sinks {
		if rr, ok := s.(sinks.ReportReceiver); ok {
			rr.SetReport(report)
		}
	}

	if err := dispatcher.BroadcastEnd(dcfg); err != nil {
		return nil, err
	}

	return &Result{Results: results, Graph: g, Path: path, Report: report}, nil
}
