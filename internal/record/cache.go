package record

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tracereplay/internal/errs"
)

// DecodeCache is a content-addressed, on-disk cache of decoded record
// slices, keyed by the sha256 of the raw trace file bytes. It is the
// decoder's opt-in defense against repeatedly re-parsing large trace
// directories across iterative analysis runs.
//
// Layout, mirroring a content-addressed build cache:
//
//	{Dir}/{hash[0:2]}/{hash}/records.json
//
// Entries are written to a temp file and renamed into place, so a process
// killed mid-write never leaves a corrupt entry for a future run to trip on.
type DecodeCache struct {
	Dir string
}

// NewDecodeCache returns a cache rooted at dir. dir is created lazily on
// first Store.
func NewDecodeCache(dir string) *DecodeCache {
	return &DecodeCache{Dir: dir}
}

// wireRecord is the cache's on-disk record representation: flat fields
// covering the union of all payload kinds, tagged by Kind. This is
// deliberately distinct from Record/Payload, which favor a typed interface
// over the wire format's flatness.
type wireRecord struct {
	Pid       uint32   `json:"pid"`
	Tid       uint32   `json:"tid"`
	Timestamp uint64   `json:"timestamp"`
	Reserved  uint32   `json:"reserved"`
	Kind      Kind     `json:"kind"`
	U32       [8]uint32 `json:"u32"`
	HW        [4]uint64 `json:"hw,omitempty"`
	Label     string   `json:"label,omitempty"`
}

func toWire(r Record) wireRecord {
	w := wireRecord{Pid: r.Pid, Tid: r.Tid, Timestamp: r.Timestamp, Reserved: r.Reserved, Kind: r.Kind()}
	switch p := r.Payload.(type) {
	case Ignore:
	case Dependency:
		w.U32[0], w.U32[1] = p.OutUID, p.InUID
	case Schedule:
		w.U32[0], w.U32[1], w.U32[2], w.U32[3], w.U32[4] = p.UID, p.Priority, p.Props, p.ScheduleID, p.Statuses
		w.HW = p.HW
	case Create:
		w.U32[0], w.U32[1], w.U32[2], w.U32[3] = p.UID, p.PersistentUID, p.Props, p.Statuses
		w.U32[4], w.U32[5], w.U32[6] = p.Color, p.ParentUID, p.OMPPriority
		w.Label = p.Label
	case Delete:
		w.U32[0], w.U32[1], w.U32[2], w.U32[3] = p.UID, p.Priority, p.Props, p.Statuses
	case Send:
		w.U32[0], w.U32[1], w.U32[2], w.U32[3], w.U32[4], w.U32[5], w.U32[6] = p.UID, p.Count, p.Dtype, p.Dst, p.Tag, p.Comm, p.Completed
	case Recv:
		w.U32[0], w.U32[1], w.U32[2], w.U32[3], w.U32[4], w.U32[5], w.U32[6] = p.UID, p.Count, p.Dtype, p.Src, p.Tag, p.Comm, p.Completed
	case Allreduce:
		w.U32[0], w.U32[1], w.U32[2], w.U32[3], w.U32[4], w.U32[5] = p.UID, p.Count, p.Dtype, p.Op, p.Comm, p.Completed
	case Rank:
		w.U32[0], w.U32[1] = p.Comm, p.Rank
	case Blocked:
		w.U32[0] = p.UID
	case Unblocked:
		w.U32[0] = p.UID
	}
	return w
}

func fromWire(w wireRecord) (Record, error) {
	r := Record{Pid: w.Pid, Tid: w.Tid, Timestamp: w.Timestamp, Reserved: w.Reserved}
	switch w.Kind {
	case KindBegin, KindEnd:
		r.Payload = Ignore{}
	case KindDependency:
		r.Payload = Dependency{OutUID: w.U32[0], InUID: w.U32[1]}
	case KindSchedule:
		r.Payload = Schedule{UID: w.U32[0], Priority: w.U32[1], Props: w.U32[2], ScheduleID: w.U32[3], Statuses: w.U32[4], HW: w.HW}
	case KindCreate:
		r.Payload = Create{UID: w.U32[0], PersistentUID: w.U32[1], Props: w.U32[2], Statuses: w.U32[3], Label: w.Label, Color: w.U32[4], ParentUID: w.U32[5], OMPPriority: w.U32[6]}
	case KindDelete:
		r.Payload = Delete{UID: w.U32[0], Priority: w.U32[1], Props: w.U32[2], Statuses: w.U32[3]}
	case KindSend:
		r.Payload = Send{UID: w.U32[0], Count: w.U32[1], Dtype: w.U32[2], Dst: w.U32[3], Tag: w.U32[4], Comm: w.U32[5], Completed: w.U32[6]}
	case KindRecv:
		r.Payload = Recv{UID: w.U32[0], Count: w.U32[1], Dtype: w.U32[2], Src: w.U32[3], Tag: w.U32[4], Comm: w.U32[5], Completed: w.U32[6]}
	case KindAllreduce:
		r.Payload = Allreduce{UID: w.U32[0], Count: w.U32[1], Dtype: w.U32[2], Op: w.U32[3], Comm: w.U32[4], Completed: w.U32[5]}
	case KindRank:
		r.Payload = Rank{Comm: w.U32[0], Rank: w.U32[1]}
	case KindBlocked:
		r.Payload = Blocked{UID: w.U32[0]}
	case KindUnblocked:
		r.Payload = Unblocked{UID: w.U32[0]}
	default:
		return Record{}, errs.UnknownKindErrorf("cached kind=%d", uint32(w.Kind))
	}
	return r, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c *DecodeCache) entryPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(c.Dir, hash, "records.json")
	}
	return filepath.Join(c.Dir, hash[:2], hash, "records.json")
}

// Lookup returns the cached decode of fileBytes, if present.
func (c *DecodeCache) Lookup(fileBytes []byte) (records []Record, hit bool, err error) {
	path := c.entryPath(contentHash(fileBytes))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errs.IOErrorf("reading decode cache entry: %v", err)
	}
	var wire []wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, false, errs.IOErrorf("parsing decode cache entry: %v", err)
	}
	records = make([]Record, 0, len(wire))
	for _, w := range wire {
		rec, err := fromWire(w)
		if err != nil {
			return nil, false, err
		}
		records = append(records, rec)
	}
	return records, true, nil
}

// Store commits the decode of fileBytes into the cache.
func (c *DecodeCache) Store(fileBytes []byte, records []Record) error {
	wire := make([]wireRecord, len(records))
	for i, r := range records {
		wire[i] = toWire(r)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshaling decode cache entry: %w", err)
	}

	path := c.entryPath(contentHash(fileBytes))
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.IOErrorf("creating decode cache dir: %v", err)
	}
	tmp, err := os.CreateTemp(dir, "records.json.tmp.*")
	if err != nil {
		return errs.IOErrorf("creating decode cache temp file: %v", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		return errs.IOErrorf("writing decode cache entry: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.IOErrorf("closing decode cache entry: %v", err)
	}
	return os.Rename(tmpName, path)
}
