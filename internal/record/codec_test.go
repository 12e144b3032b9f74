package record

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRecords() []Record {
	return []Record{
		{Pid: 0, Tid: 0, Timestamp: 100, Payload: Create{UID: 1, PersistentUID: 0, Props: PropExplicit, Statuses: 0, Label: "T", Color: 7, ParentUID: InitialParentUID, OMPPriority: 0}},
		{Pid: 0, Tid: 0, Timestamp: 110, Payload: Schedule{UID: 1, Priority: 0, Props: 0, ScheduleID: 1, Statuses: 0, HW: [4]uint64{1, 2, 3, 4}}},
		{Pid: 0, Tid: 0, Timestamp: 200, Payload: Schedule{UID: 1, Priority: 0, Props: 0, ScheduleID: 1, Statuses: StatusCompleted}},
		{Pid: 0, Tid: 0, Timestamp: 210, Payload: Delete{UID: 1}},
		{Pid: 0, Tid: 0, Timestamp: 50, Payload: Dependency{OutUID: 1, InUID: 2}},
		{Pid: 0, Tid: 0, Timestamp: 60, Payload: Send{UID: 1, Count: 1, Dtype: 3, Dst: 1, Tag: 7, Comm: 0, Completed: 1}},
		{Pid: 0, Tid: 0, Timestamp: 60, Payload: Recv{UID: 1, Count: 1, Dtype: 3, Src: 0, Tag: 7, Comm: 0, Completed: 1}},
		{Pid: 0, Tid: 0, Timestamp: 60, Payload: Allreduce{UID: 1, Count: 1, Dtype: 3, Op: 2, Comm: 0, Completed: 1}},
		{Pid: 0, Tid: 0, Timestamp: 10, Payload: Rank{Comm: 0, Rank: 3}},
		{Pid: 0, Tid: 0, Timestamp: 140, Payload: Blocked{UID: 1}},
		{Pid: 0, Tid: 0, Timestamp: 170, Payload: Unblocked{UID: 1}},
		{Pid: 0, Tid: 0, Timestamp: 5, Payload: Ignore{}},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	fh := FileHeader{Magic: WantMagic, Version: 1, Pid: 0, Tid: 0}
	for _, rec := range sampleRecords() {
		t.Run(rec.Kind().String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeFile(&buf, fh, []Record{rec}))

			gotHeader, gotRecords, err := DecodeFile(&buf)
			require.NoError(t, err)
			require.Equal(t, fh, gotHeader)
			require.Len(t, gotRecords, 1)

			got := gotRecords[0]
			require.Equal(t, rec.Pid, got.Pid)
			require.Equal(t, rec.Tid, got.Tid)
			require.Equal(t, rec.Timestamp, got.Timestamp)
			require.Equal(t, rec.Payload, got.Payload)
		})
	}
}

func TestCodecRoundTrip_WholeFile(t *testing.T) {
	fh := FileHeader{Magic: WantMagic, Version: 1, Pid: 3, Tid: 2}
	records := sampleRecords()
	for i := range records {
		records[i].Pid = fh.Pid
		records[i].Tid = fh.Tid
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeFile(&buf, fh, records))

	gotHeader, gotRecords, err := DecodeFile(&buf)
	require.NoError(t, err)
	require.Equal(t, fh, gotHeader)
	require.Equal(t, records, gotRecords)
}

func TestDecodeFile_BadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("nope")
	buf.Write(make([]byte, 12))
	_, _, err := DecodeFile(&buf)
	require.Error(t, err)
	require.ErrorContains(t, err, "bad file magic")
}

func TestDecodeFile_ShortRead(t *testing.T) {
	fh := FileHeader{Magic: WantMagic, Version: 1, Pid: 0, Tid: 0}
	var buf bytes.Buffer
	require.NoError(t, EncodeFile(&buf, fh, sampleRecords()[:1]))
	truncated := buf.Bytes()[:buf.Len()-4]
	_, _, err := DecodeFile(bytes.NewReader(truncated))
	require.Error(t, err)
}

func TestDecodeFile_UnknownKind(t *testing.T) {
	fh := FileHeader{Magic: WantMagic, Version: 1, Pid: 0, Tid: 0}
	var buf bytes.Buffer
	require.NoError(t, EncodeFile(&buf, fh, nil))
	// Append a generic header advertising an unknown kind.
	bad := make([]byte, 16)
	bad[8] = 0xFF
	buf.Write(bad)
	_, _, err := DecodeFile(&buf)
	require.Error(t, err)
	require.ErrorContains(t, err, "unknown record kind")
}

func TestDecodeCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewDecodeCache(dir)
	data := []byte("pretend-trace-file-bytes")
	records := sampleRecords()

	_, hit, err := cache.Lookup(data)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.Store(data, records))

	got, hit, err := cache.Lookup(data)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, records, got)
}
