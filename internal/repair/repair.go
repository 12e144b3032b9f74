// Package repair implements the two-pass causality correction and canonical
// sort described for the trace repair stage: persistent-task dependency
// rewriting, creation-timestamp back-shift, and a stable sort into replay
// order.
package repair

import (
	"sort"

	"go.uber.org/zap"

	"tracereplay/internal/record"
)

// Process repairs and sorts one process's record stream in place semantics:
// it returns a new slice; it never mutates the input slice's backing array; but
// retains every record. log receives warnings for dropped self-loop
// dependencies (the Pass A open question, resolved per design notes).
func Process(records []record.Record, log *zap.Logger) []record.Record {
	out := passA(records, log)
	out = passB(out)
	Sort(out)
	return out
}

// passA rewrites persistent-task dependency successors.
//
// Interpretation: for a Dependency(out_uid, in_uid) where both endpoints are
// PERSISTENT and in_uid < out_uid, the true successor is whichever uid
// occupies the position right after in_uid within in_uid's persistent-id
// group (sorted by discovery/creation order), regardless of out_uid's value.
// This mirrors uid_to_persistent_uid/persistent_uid_to_uids in the original
// implementation: the rewrite target is group[index(in_uid)+1], not a
// search keyed on out_uid. Re-running passA on already-repaired output is a
// no-op because the rewritten in_uid is always the group's last member or
// beyond in_uid's original position, so the applicability check (in_uid <
// out_uid within the same group) no longer finds a next entry to rewrite to.
func passA(records []record.Record, log *zap.Logger) []record.Record {
	props := make(map[uint32]uint32)
	persistentUID := make(map[uint32]uint32)
	groups := make(map[uint32][]uint32)

	for _, r := range records {
		c, ok := r.Payload.(record.Create)
		if !ok {
			continue
		}
		props[c.UID] = c.Props
		persistentUID[c.UID] = c.PersistentUID
		if c.Props&record.PropPersistent != 0 && c.PersistentUID != 0 {
			groups[c.PersistentUID] = append(groups[c.PersistentUID], c.UID)
		}
	}

	isPersistent := func(uid uint32) bool { return props[uid]&record.PropPersistent != 0 }

	// indexInGroup maps each uid to its position within its own persistent
	// group, in discovery order, exactly as uid_to_persistent_uid does.
	indexInGroup := make(map[uint32]int)
	for _, group := range groups {
		for i, uid := range group {
			indexInGroup[uid] = i
		}
	}

	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		dep, ok := r.Payload.(record.Dependency)
		if !ok {
			out = append(out, r)
			continue
		}
		if !isPersistent(dep.OutUID) || !isPersistent(dep.InUID) || dep.InUID >= dep.OutUID {
			out = append(out, r)
			continue
		}

		group := groups[persistentUID[dep.InUID]]
		idx, ok := indexInGroup[dep.InUID]
		if !ok || idx+1 >= len(group) {
			out = append(out, r)
			continue
		}
		target := group[idx+1]
		if target == dep.OutUID {
			if log != nil {
				log.Warn("dropping persistent-task self-loop dependency",
					zap.Uint32("out_uid", dep.OutUID),
					zap.Uint32("in_uid", dep.InUID),
					zap.Uint32("persistent_uid", persistentUID[dep.InUID]))
			}
			continue
		}
		r.Payload = record.Dependency{OutUID: dep.OutUID, InUID: target}
		out = append(out, r)
	}
	return out
}

// passB moves each Create's timestamp back to the earliest timestamp among
// events referencing that task, excluding Rank and Ignore records.
func passB(records []record.Record) []record.Record {
	earliest := make(map[uint32]uint64)
	note := func(uid uint32, ts uint64) {
		if cur, ok := earliest[uid]; !ok || ts < cur {
			earliest[uid] = ts
		}
	}

	for _, r := range records {
		switch p := r.Payload.(type) {
		case record.Create:
			note(p.UID, r.Timestamp)
		case record.Dependency:
			note(p.OutUID, r.Timestamp)
			note(p.InUID, r.Timestamp)
		case record.Schedule:
			note(p.UID, r.Timestamp)
		case record.Delete:
			note(p.UID, r.Timestamp)
		case record.Send:
			note(p.UID, r.Timestamp)
		case record.Recv:
			note(p.UID, r.Timestamp)
		case record.Allreduce:
			note(p.UID, r.Timestamp)
		case record.Blocked:
			note(p.UID, r.Timestamp)
		case record.Unblocked:
			note(p.UID, r.Timestamp)
		}
	}

	out := make([]record.Record, len(records))
	copy(out, records)
	for i, r := range out {
		c, ok := r.Payload.(record.Create)
		if !ok {
			continue
		}
		if min, ok := earliest[c.UID]; ok && min < r.Timestamp {
			out[i].Timestamp = min
		}
	}
	return out
}

// Sort orders records by the canonical replay key: (timestamp, kind-order,
// schedule_id). It is a stable sort, so the documented tie-break order
// among equal-timestamp records of the same kind is the input order.
func Sort(records []record.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		ao, bo := record.KindOrder(a.Kind()), record.KindOrder(b.Kind())
		if ao != bo {
			return ao < bo
		}
		return scheduleID(a) < scheduleID(b)
	})
}

func scheduleID(r record.Record) uint32 {
	if s, ok := r.Payload.(record.Schedule); ok {
		return s.ScheduleID
	}
	return 0
}
