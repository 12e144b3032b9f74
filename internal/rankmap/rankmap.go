// Package rankmap translates between process id and (communicator, rank)
// pairs, built from the Rank records observed during loading.
package rankmap

import "tracereplay/internal/record"

// RankMap holds the two bijections described for the rank translation
// stage. First observation for a given (pid, comm) wins; later records are
// ignored, matching the append-only, read-after-load usage pattern.
type RankMap struct {
	p2c2r map[uint32]map[uint32]uint32 // pid -> comm -> rank
	c2r2p map[uint32]map[uint32]uint32 // comm -> rank -> pid
}

// New builds an empty RankMap.
func New() *RankMap {
	return &RankMap{
		p2c2r: make(map[uint32]map[uint32]uint32),
		c2r2p: make(map[uint32]map[uint32]uint32),
	}
}

// Observe records one process's Rank records; records need not be sorted
// (the pipeline calls it on each process's as-loaded records, before repair).
func (m *RankMap) Observe(pid uint32, records []record.Record) {
	for _, r := range records {
		rk, ok := r.Payload.(record.Rank)
		if !ok {
			continue
		}
		m.bind(pid, rk.Comm, rk.Rank)
	}
}

func (m *RankMap) bind(pid, comm, rank uint32) {
	if _, ok := m.p2c2r[pid]; !ok {
		m.p2c2r[pid] = make(map[uint32]uint32)
	}
	if _, exists := m.p2c2r[pid][comm]; exists {
		return
	}
	m.p2c2r[pid][comm] = rank

	if _, ok := m.c2r2p[comm]; !ok {
		m.c2r2p[comm] = make(map[uint32]uint32)
	}
	if _, exists := m.c2r2p[comm][rank]; !exists {
		m.c2r2p[comm][rank] = pid
	}
}

// Rank returns the rank of pid within comm.
func (m *RankMap) Rank(pid, comm uint32) (uint32, bool) {
	r, ok := m.p2c2r[pid][comm]
	return r, ok
}

// Pid returns the process owning rank within comm.
func (m *RankMap) Pid(comm, rank uint32) (uint32, bool) {
	p, ok := m.c2r2p[comm][rank]
	return p, ok
}
