package rankmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tracereplay/internal/record"
)

func TestRankMap_FirstObservationWins(t *testing.T) {
	m := New()
	m.Observe(0, []record.Record{{Payload: record.Rank{Comm: 0, Rank: 3}}})
	m.Observe(0, []record.Record{{Payload: record.Rank{Comm: 0, Rank: 9}}})

	rank, ok := m.Rank(0, 0)
	require.True(t, ok)
	require.Equal(t, uint32(3), rank)

	pid, ok := m.Pid(0, 3)
	require.True(t, ok)
	require.Equal(t, uint32(0), pid)
}

func TestRankMap_UnknownLookup(t *testing.T) {
	m := New()
	_, ok := m.Rank(5, 0)
	require.False(t, ok)
	_, ok = m.Pid(0, 5)
	require.False(t, ok)
}
