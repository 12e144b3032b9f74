package sinks

import (
	"bytes"
	"fmt"

	"tracereplay/internal/dispatch"
)

// BlockedSink dumps the per-process blocked/unblocked delta log to
// <prefix>-blocked.txt, one "pid time (un)blocked" line per delta, carried
// over from the legacy trace_stats tool's --blocked flag. It reads the
// finished Report rather than individual lifecycle events, since the delta
// log it renders is already fully accumulated per process by replay.
type BlockedSink struct {
	dispatch.NopSink
	Report *Report
}

func (s *BlockedSink) Name() string        { return "blocked" }
func (s *BlockedSink) SetReport(r *Report) { s.Report = r }

func (s *BlockedSink) OnEnd(cfg dispatch.Config) error {
	if s.Report == nil {
		return nil
	}
	var buf bytes.Buffer
	for _, pid := range sortedPids(s.Report.Results) {
		for _, res := range s.Report.Results {
			if res.Pid != pid {
				continue
			}
			for _, d := range res.BlockedDeltas {
				word := "blocked"
				if d.Delta < 0 {
					word = "unblocked"
				}
				fmt.Fprintf(&buf, "%d %d %s\n", pid, d.Timestamp, word)
			}
		}
	}
	return writeFileAtomic(cfg.OutputPrefix+"-blocked.txt", buf.Bytes())
}
