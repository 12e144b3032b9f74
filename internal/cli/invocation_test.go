package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInvocation_Defaults(t *testing.T) {
	inv, err := ParseInvocation(nil)
	require.NoError(t, err)
	require.Equal(t, "traces", inv.InputDir)
	require.Equal(t, "traces", inv.OutputPrefix)
	require.False(t, inv.Progress)
	require.Greater(t, inv.Parallelism, 0)
	require.Empty(t, inv.Banlist)
	require.Empty(t, inv.CacheDir)
}

func TestParseInvocation_AppliesFlags(t *testing.T) {
	inv, err := ParseInvocation([]string{
		"-i", "/tmp/traces",
		"-o", "/tmp/out",
		"-p",
		"-j", "4",
		"-s", "-c", "-d", "-a", "--color",
		"-r", "-b", "-g",
		"--banlist", "noise, idle",
		"--cache-dir", "/tmp/cache",
		"-v",
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/traces", inv.InputDir)
	require.Equal(t, "/tmp/out", inv.OutputPrefix)
	require.True(t, inv.Progress)
	require.Equal(t, 4, inv.Parallelism)
	require.True(t, inv.CTE.Schedule)
	require.True(t, inv.CTE.Creation)
	require.True(t, inv.CTE.Dependencies)
	require.True(t, inv.CTE.Communications)
	require.True(t, inv.CTE.Color)
	require.True(t, inv.Records)
	require.True(t, inv.Blocked)
	require.True(t, inv.Dot)
	require.True(t, inv.Verbose)
	require.Equal(t, map[string]bool{"noise": true, "idle": true}, inv.Banlist)
	require.Equal(t, "/tmp/cache", inv.CacheDir)
}

func TestParseInvocation_RejectsBadParallelism(t *testing.T) {
	_, err := ParseInvocation([]string{"-j", "0"})
	require.Error(t, err)
	require.Equal(t, ExitInvalidInvocation, ExitCode(err))
}

func TestParseInvocation_RejectsPositionalArgs(t *testing.T) {
	_, err := ParseInvocation([]string{"extra"})
	require.Error(t, err)
	require.Equal(t, ExitInvalidInvocation, ExitCode(err))
}

func TestParseInvocation_RejectsUnknownFlag(t *testing.T) {
	_, err := ParseInvocation([]string{"--nonexistent"})
	require.Error(t, err)
	require.Equal(t, ExitInvalidInvocation, ExitCode(err))
}

func TestParseInvocation_HelpReturnsSuccessCode(t *testing.T) {
	_, err := ParseInvocation([]string{"-h"})
	require.Error(t, err)
	ie, ok := err.(*InvocationError)
	require.True(t, ok)
	require.Equal(t, ExitSuccess, ie.ExitCode)
}
