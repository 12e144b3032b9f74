package replay

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"tracereplay/internal/dispatch"
	"tracereplay/internal/record"
)

// RunAll replays every process in store, bounded to parallelism concurrent
// workers. Per-process replay has no cross-process data dependency (the
// graph builder matches sends to receives afterward), so this is an
// embarrassingly-parallel worker pool, not a staged scheduler: work items go
// in, results come out, and the caller re-imposes pid order once every
// worker has finished.
//
// out is broadcast to from whichever goroutine happens to be replaying the
// pid that produced the event; callers relying on per-sink mutable state
// must make their sinks safe for concurrent use, or set parallelism to 1.
func RunAll(ctx context.Context, store *record.Store, out *dispatch.Dispatcher, log *zap.Logger, parallelism int) ([]*ProcessResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	pids := store.Pids()
	if len(pids) == 0 {
		return nil, nil
	}
	if parallelism > len(pids) {
		parallelism = len(pids)
	}

	type workItem struct {
		pid     uint32
		records []record.Record
	}
	type workResult struct {
		pid uint32
		res *ProcessResult
		err error
	}

	workCh := make(chan workItem, len(pids))
	doneCh := make(chan workResult, len(pids))

	var wg sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				select {
				case <-ctx.Done():
					doneCh <- workResult{pid: w.pid, err: ctx.Err()}
					continue
				default:
				}
				if out != nil {
					if err := out.BroadcastProcessInspectionStart(w.pid); err != nil {
						doneCh <- workResult{pid: w.pid, err: err}
						continue
					}
				}
				res, err := Run(w.pid, w.records, out, log)
				if err == nil && out != nil {
					err = out.BroadcastProcessInspectionEnd(w.pid)
				}
				doneCh <- workResult{pid: w.pid, res: res, err: err}
			}
		}()
	}

	for _, pid := range pids {
		workCh <- workItem{pid: pid, records: store.Records(pid)}
	}
	close(workCh)
	wg.Wait()
	close(doneCh)

	byPid := make(map[uint32]*ProcessResult, len(pids))
	for wr := range doneCh {
		if wr.err != nil {
			return nil, fmt.Errorf("replaying pid %d: %w", wr.pid, wr.err)
		}
		byPid[wr.pid] = wr.res
	}

	ordered := append([]uint32(nil), pids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	results := make([]*ProcessResult, 0, len(ordered))
	for _, pid := range ordered {
		results = append(results, byPid[pid])
	}
	return results, nil
}
