package sinks

import (
	"github.com/schollz/progressbar/v3"

	"tracereplay/internal/dispatch"
)

// ProgressSink drives a terminal progress indicator across the per-process
// replay phase, advancing once per on_process_inspection_end regardless of
// which worker-pool goroutine reports it.
type ProgressSink struct {
	dispatch.NopSink
	Total int

	bar *progressbar.ProgressBar
}

func (s *ProgressSink) Name() string { return "progress" }

func (s *ProgressSink) OnStart(dispatch.Config) error {
	s.bar = progressbar.NewOptions(s.Total,
		progressbar.OptionSetDescription("replaying processes"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return nil
}

func (s *ProgressSink) OnProcessInspectionEnd(uint32) error {
	if s.bar == nil {
		return nil
	}
	return s.bar.Add(1)
}

func (s *ProgressSink) OnEnd(dispatch.Config) error {
	if s.bar == nil {
		return nil
	}
	return s.bar.Finish()
}
