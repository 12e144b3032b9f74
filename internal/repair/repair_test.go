package repair

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tracereplay/internal/record"
)

func create(uid, persistentUID uint32, props uint32, ts uint64, label string) record.Record {
	return record.Record{Timestamp: ts, Payload: record.Create{UID: uid, PersistentUID: persistentUID, Props: props, Label: label}}
}

func dep(out, in uint32, ts uint64) record.Record {
	return record.Record{Timestamp: ts, Payload: record.Dependency{OutUID: out, InUID: in}}
}

func TestPassA_PersistentSelfLoopDropped(t *testing.T) {
	// S5: two Creates sharing persistent_uid=9 (uids 10, 20), both PERSISTENT.
	// Dependency(out=20, in=10) rewrites to in=20, a self-loop, and is dropped.
	records := []record.Record{
		create(10, 9, record.PropPersistent, 0, "A"),
		create(20, 9, record.PropPersistent, 1, "A"),
		dep(20, 10, 5),
	}
	log := zap.NewNop()
	out := passA(records, log)

	for _, r := range out {
		_, isDep := r.Payload.(record.Dependency)
		require.False(t, isDep, "self-loop dependency should have been dropped")
	}
}

func TestPassA_RewritesToNextReuse(t *testing.T) {
	records := []record.Record{
		create(10, 9, record.PropPersistent, 0, "A"),
		create(20, 9, record.PropPersistent, 1, "A"),
		create(30, 9, record.PropPersistent, 2, "A"),
		create(15, 7, record.PropPersistent, 3, "B"),
		dep(15, 10, 5),
	}
	out := passA(records, zap.NewNop())

	var found record.Dependency
	for _, r := range out {
		if d, ok := r.Payload.(record.Dependency); ok {
			found = d
		}
	}
	require.Equal(t, uint32(15), found.OutUID)
	require.Equal(t, uint32(20), found.InUID)
}

func TestPassA_Idempotent(t *testing.T) {
	records := []record.Record{
		create(10, 9, record.PropPersistent, 0, "A"),
		create(20, 9, record.PropPersistent, 1, "A"),
		create(30, 9, record.PropPersistent, 2, "A"),
		create(15, 7, record.PropPersistent, 3, "B"),
		dep(15, 10, 5),
	}
	once := passA(records, zap.NewNop())
	twice := passA(once, zap.NewNop())
	require.Equal(t, once, twice)
}

func TestPassB_BackShiftsCreateTimestamp(t *testing.T) {
	// S6: Create(uid=5, ts=500) but a Schedule(uid=5, ts=480) exists.
	records := []record.Record{
		create(5, 0, 0, 500, "T"),
		{Timestamp: 480, Payload: record.Schedule{UID: 5}},
	}
	out := passB(records)
	require.Equal(t, uint64(480), out[0].Timestamp)
}

func TestSort_CanonicalOrderAndStability(t *testing.T) {
	records := []record.Record{
		{Timestamp: 100, Payload: record.Delete{}},
		{Timestamp: 100, Payload: record.Rank{}},
		{Timestamp: 100, Payload: record.Create{UID: 1}},
		{Timestamp: 100, Payload: record.Dependency{}},
	}
	Sort(records)
	require.Equal(t, record.KindRank, records[0].Kind())
	require.Equal(t, record.KindCreate, records[1].Kind())
	require.Equal(t, record.KindDependency, records[2].Kind())
	require.Equal(t, record.KindDelete, records[3].Kind())
}

func TestSort_Idempotent(t *testing.T) {
	records := []record.Record{
		{Timestamp: 50, Payload: record.Schedule{ScheduleID: 2}},
		{Timestamp: 50, Payload: record.Schedule{ScheduleID: 1}},
		{Timestamp: 10, Payload: record.Rank{}},
	}
	Sort(records)
	once := append([]record.Record(nil), records...)
	Sort(records)
	require.Equal(t, once, records)
}
