package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tracereplay/internal/record"
)

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	records := []record.Record{
		{Pid: 0, Tid: 0, Timestamp: 100, Payload: record.Create{UID: 1, Props: record.PropInitial, Label: "T"}},
		{Pid: 0, Tid: 0, Timestamp: 110, Payload: record.Schedule{UID: 1, ScheduleID: 1}},
		{Pid: 0, Tid: 0, Timestamp: 200, Payload: record.Schedule{UID: 1, ScheduleID: 1, Statuses: record.StatusCompleted}},
		{Pid: 0, Tid: 0, Timestamp: 210, Payload: record.Delete{UID: 1}},
	}
	f, err := os.Create(filepath.Join(dir, "trace.bin"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, record.EncodeFile(f, record.FileHeader{Magic: record.WantMagic, Version: 1, Pid: 0, Tid: 0}, records))
}

func TestExecute_SuccessfulRunWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	prefix := filepath.Join(t.TempDir(), "run")

	res, err := Execute(context.Background(), Invocation{
		InputDir:     dir,
		OutputPrefix: prefix,
		Parallelism:  1,
		Records:      true,
		Blocked:      true,
		Dot:          true,
	})
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, res.ExitCode)

	for _, suffix := range []string{"-stats.json", ".json", "-records.txt", "-blocked.txt", ".dot"} {
		_, err := os.Stat(prefix + suffix)
		require.NoError(t, err, "expected artifact %s", suffix)
	}
}

func TestExecute_MissingInputDirIsInternalError(t *testing.T) {
	res, err := Execute(context.Background(), Invocation{
		InputDir:     filepath.Join(t.TempDir(), "does-not-exist"),
		OutputPrefix: filepath.Join(t.TempDir(), "run"),
		Parallelism:  1,
	})
	require.Error(t, err)
	require.Equal(t, ExitInternalError, res.ExitCode)
}

func TestRun_ParsesAndExecutes(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)
	prefix := filepath.Join(t.TempDir(), "run")

	res, err := Run(context.Background(), []string{"-i", dir, "-o", prefix, "-j", "1"})
	require.NoError(t, err)
	require.Equal(t, ExitSuccess, res.ExitCode)
}
