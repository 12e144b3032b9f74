package record

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"tracereplay/internal/errs"
)

// Store groups decoded records by owning process. It is populated at load
// time; afterwards only SetRecords changes it, replacing a process's slice
// wholesale. It does not interpret payloads.
type Store struct {
	byPid map[uint32][]Record
	pids  []uint32
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{byPid: make(map[uint32][]Record)}
}

// Add appends records to the store, grouped by their Pid. Order within a
// pid is preserved as given; callers that read multiple files for the same
// pid must pass them in a deterministic order (LoadDir sorts file paths).
func (s *Store) Add(records []Record) {
	for _, r := range records {
		if _, ok := s.byPid[r.Pid]; !ok {
			s.pids = append(s.pids, r.Pid)
		}
		s.byPid[r.Pid] = append(s.byPid[r.Pid], r)
	}
}

// Pids returns the set of known process ids in ascending order.
func (s *Store) Pids() []uint32 {
	out := append([]uint32(nil), s.pids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Records returns the record slice for a process: as loaded, or as last
// installed by SetRecords.
func (s *Store) Records(pid uint32) []Record {
	return s.byPid[pid]
}

// SetRecords replaces the record slice for a process; used by the repair
// stage to install the canonicalized, sorted sequence in place.
func (s *Store) SetRecords(pid uint32, records []Record) {
	if _, ok := s.byPid[pid]; !ok {
		s.pids = append(s.pids, pid)
	}
	s.byPid[pid] = records
}

// LoadDir discovers trace files under dir (non-recursive extension filter is
// intentionally absent: every regular file is attempted, since the on-disk
// naming convention is not authoritative) and decodes each into the store.
// Files are visited in lexical path order so that per-process file-merge
// order is deterministic regardless of filesystem iteration order.
func LoadDir(dir string, cache *DecodeCache) (*Store, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errs.IOErrorf("walking %s: %v", dir, err)
	}
	sort.Strings(paths)

	store := NewStore()
	for _, p := range paths {
		records, err := decodeOneFile(p, cache)
		if err != nil {
			return nil, err
		}
		store.Add(records)
	}
	return store, nil
}

func decodeOneFile(path string, cache *DecodeCache) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IOErrorf("reading %s: %v", path, err)
	}

	if cache != nil {
		if records, hit, err := cache.Lookup(data); err != nil {
			return nil, err
		} else if hit {
			return records, nil
		}
	}

	_, records, err := DecodeFile(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if cache != nil {
		_ = cache.Store(data, records)
	}
	return records, nil
}
