package sitedata

import "slices"

// RepairReport lists the drift found between indexes, records and scalar shards.
// Entries are shard keys, e.g. "products/p9".
type RepairReport struct {
	// DanglingIDs are index entries whose record is missing or unreadable
	DanglingIDs []string `json:"danglingIds"`
	// OrphanIDs are records that no index references
	OrphanIDs []string `json:"orphanIds"`
	// LegacyScalars are scalar shards stored JSON-encoded by older versions
	LegacyScalars []string `json:"legacyScalars"`
	// UnreadableShards are section shards that could not be read or decoded and were
	// replaced by defaults
	UnreadableShards []string `json:"unreadableShards"`
	// Repaired is set by Repair once the drift has been fixed
	Repaired bool `json:"repaired"`
}

func newReport() RepairReport {
	return RepairReport{
		DanglingIDs:      []string{},
		OrphanIDs:        []string{},
		LegacyScalars:    []string{},
		UnreadableShards: []string{},
	}
}

// IsClean reports whether no drift was found
func (r RepairReport) IsClean() bool {
	return len(r.DanglingIDs) == 0 && len(r.OrphanIDs) == 0 &&
		len(r.LegacyScalars) == 0 && len(r.UnreadableShards) == 0
}

func (r *RepairReport) merge(other RepairReport) {
	r.DanglingIDs = append(r.DanglingIDs, other.DanglingIDs...)
	r.OrphanIDs = append(r.OrphanIDs, other.OrphanIDs...)
	r.LegacyScalars = append(r.LegacyScalars, other.LegacyScalars...)
	r.UnreadableShards = append(r.UnreadableShards, other.UnreadableShards...)
}

func (r *RepairReport) sort() {
	slices.Sort(r.DanglingIDs)
	slices.Sort(r.OrphanIDs)
	slices.Sort(r.LegacyScalars)
	slices.Sort(r.UnreadableShards)
}
