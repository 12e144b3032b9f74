// Package cli parses the driver's command-line surface into a canonical
// Invocation and executes the pipeline, translating pipeline failures into
// the tool's exit-code ladder.
package cli

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
)

// Exit codes, per the driver's documented ladder.
const (
	ExitSuccess           = 0
	ExitInvalidInvocation = 1
	ExitTraceInconsistent = 2
	ExitInternalError     = 3
)

// CTEOptions mirrors the legacy trace_to_cte detail toggles.
type CTEOptions struct {
	Schedule      bool
	Creation      bool
	Dependencies  bool
	Communications bool
	Color         bool
}

// Invocation is the fully canonicalized, validated description of one run.
type Invocation struct {
	InputDir     string
	OutputPrefix string
	Progress     bool
	Parallelism  int
	CTE          CTEOptions
	Records      bool
	Blocked      bool
	Dot          bool
	Banlist      map[string]bool
	CacheDir     string
	Verbose      bool
}

// InvocationError carries the exit code a parse failure should produce.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string { return e.Message }

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses args (excluding argv[0]) into a canonical
// Invocation. It does not read environment variables or the process
// working directory beyond what pflag itself requires to print usage.
func ParseInvocation(args []string) (Invocation, error) {
	fs := pflag.NewFlagSet("tracereplay", pflag.ContinueOnError)
	fs.SetOutput(stderrDiscard{})

	input := fs.StringP("input", "i", "traces", "trace directory")
	output := fs.StringP("output", "o", "traces", "output prefix")
	progress := fs.BoolP("progress", "p", false, "enable terminal progress display")
	parallelism := fs.IntP("parallelism", "j", runtime.GOMAXPROCS(0), "process-replay worker pool size")
	schedule := fs.BoolP("schedule", "s", false, "include schedule intervals in the CTE document")
	creation := fs.BoolP("creation", "c", false, "include task-creation metadata in the CTE document")
	dependencies := fs.BoolP("dependencies", "d", false, "include dependency flow arrows in the CTE document")
	communications := fs.BoolP("communications", "a", false, "include communication instants in the CTE document")
	color := fs.Bool("color", false, "attach each task's label as an argument to CTE duration events")
	records := fs.BoolP("records", "r", false, "emit <prefix>-records.txt")
	blocked := fs.BoolP("blocked", "b", false, "emit <prefix>-blocked.txt")
	dot := fs.BoolP("dot", "g", false, "emit <prefix>.dot")
	banlist := fs.String("banlist", "", "comma-separated labels excluded from granularity aggregation")
	cacheDir := fs.String("cache-dir", "", "enable the content-addressed decode cache, rooted at this directory")
	verbose := fs.BoolP("verbose", "v", false, "raise log level")
	help := fs.BoolP("help", "h", false, "show usage")

	if err := fs.Parse(args); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if *help {
		return Invocation{}, &InvocationError{ExitCode: ExitSuccess, Message: fs.FlagUsages()}
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	if strings.TrimSpace(*input) == "" {
		return Invocation{}, invalidInvocationf("--input must not be empty")
	}
	if strings.TrimSpace(*output) == "" {
		return Invocation{}, invalidInvocationf("--output must not be empty")
	}
	if *parallelism <= 0 {
		return Invocation{}, invalidInvocationf("--parallelism must be positive (got %d)", *parallelism)
	}

	ban := make(map[string]bool)
	for _, label := range strings.Split(*banlist, ",") {
		label = strings.TrimSpace(label)
		if label != "" {
			ban[label] = true
		}
	}

	return Invocation{
		InputDir:     filepath.Clean(*input),
		OutputPrefix: filepath.Clean(*output),
		Progress:     *progress,
		Parallelism:  *parallelism,
		CTE: CTEOptions{
			Schedule:      *schedule,
			Creation:      *creation,
			Dependencies:  *dependencies,
			Communications: *communications,
			Color:         *color,
		},
		Records:  *records,
		Blocked:  *blocked,
		Dot:      *dot,
		Banlist:  ban,
		CacheDir: strings.TrimSpace(*cacheDir),
		Verbose:  *verbose,
	}, nil
}

// ExitCode extracts a semantic exit code from a ParseInvocation or Execute
// error. Errors of unrecognized shape map to ExitInternalError.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if ie, ok := err.(*InvocationError); ok {
		return ie.ExitCode
	}
	return exitCodeForPipelineError(err)
}

type stderrDiscard struct{}

func (stderrDiscard) Write(p []byte) (int, error) { return len(p), nil }
