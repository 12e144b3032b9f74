package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tracereplay/internal/dispatch"
	"tracereplay/internal/errs"
	"tracereplay/internal/pipeline"
	"tracereplay/internal/sinks"
)

// Result is what Run/Execute produce: the exit code the process should
// return, plus the pipeline's in-memory output when the run got far enough
// to produce one.
type Result struct {
	ExitCode int
	Pipeline *pipeline.Result
}

// Run is the black-box entrypoint: parse args, then execute.
func Run(ctx context.Context, args []string) (Result, error) {
	inv, err := ParseInvocation(args)
	if err != nil {
		if ie, ok := err.(*InvocationError); ok && ie.ExitCode == ExitSuccess {
			fmt.Println(ie.Message)
			return Result{ExitCode: ExitSuccess}, nil
		}
		return Result{ExitCode: ExitCode(err)}, err
	}
	return Execute(ctx, inv)
}

// Execute maps a canonical Invocation to a pipeline run, translating
// pipeline failures into the documented exit-code ladder. A panic anywhere
// in the pipeline is converted into ExitInternalError rather than crashing
// the process.
func Execute(ctx context.Context, inv Invocation) (res Result, execErr error) {
	res.ExitCode = ExitInternalError

	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			res.Pipeline = nil
			execErr = fmt.Errorf("panic: %v", r)
		}
	}()

	log := buildLogger(inv.Verbose)
	defer log.Sync() //nolint:errcheck

	sinkList := buildSinks(inv)

	pr, err := pipeline.Run(ctx, pipeline.Config{
		InputDir:       inv.InputDir,
		OutputPrefix:   inv.OutputPrefix,
		Parallelism:    inv.Parallelism,
		GranularityBan: inv.Banlist,
		CacheDir:       inv.CacheDir,
		Sinks:          sinkList,
		Logger:         log,
	})
	if err != nil {
		res.ExitCode = exitCodeForPipelineError(err)
		return res, err
	}

	res.ExitCode = ExitSuccess
	res.Pipeline = pr
	return res, nil
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func buildSinks(inv Invocation) []dispatch.Sink {
	sinkList := []dispatch.Sink{
		&sinks.StatsSink{},
		&sinks.CTESink{Options: sinks.CTEOptions{
			Schedule:      inv.CTE.Schedule,
			Creation:      inv.CTE.Creation,
			Dependencies:  inv.CTE.Dependencies,
			Communications: inv.CTE.Communications,
			Color:         inv.CTE.Color,
		}},
	}
	if inv.Records {
		sinkList = append(sinkList, &sinks.RecordsSink{})
	}
	if inv.Blocked {
		sinkList = append(sinkList, &sinks.BlockedSink{})
	}
	if inv.Dot {
		sinkList = append(sinkList, &sinks.DotSink{})
	}
	if inv.Progress {
		sinkList = append(sinkList, &sinks.ProgressSink{})
	}
	return sinkList
}

// exitCodeForPipelineError classifies a pipeline failure. Invocation-time
// configuration mistakes are caught by ParseInvocation before the pipeline
// ever runs; anything that fails once the pipeline is underway — including
// an I/O fault reading the trace directory — is an internal error.
func exitCodeForPipelineError(err error) int {
	var inconsistent *errs.TraceInconsistentError
	if errors.As(err, &inconsistent) {
		return ExitTraceInconsistent
	}
	if errors.Is(err, errs.ErrTraceInconsistent) {
		return ExitTraceInconsistent
	}
	return ExitInternalError
}
