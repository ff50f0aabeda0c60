// Package reconcile computes the minimal set of create, delete and update
// operations that converges the Zabbix host inventory onto the GLPI source
// snapshot.
package reconcile

import (
	"context"
	"sort"
	"time"

	"f0oster/zbxsync/snapshot"
)

// CompositeSeparator joins interface-derived sub-names inside legacy
// composite host names.
const CompositeSeparator = "---"

// PartitionError records a source partition with no usable counterpart in
// the target system. Its records contribute nothing to the plan.
type PartitionError struct {
	Partition string
	Names     []string
}

// Plan is the computed reconciliation output. The three name sets are
// disjoint and the plan is immutable once built.
type Plan struct {
	ToCreate []string
	ToDelete []string
	ToUpdate []string

	// Moved is the subset of ToUpdate reclassified by move resolution.
	// Moves are applied regardless of the staleness filter.
	Moved []string

	PartitionErrors []PartitionError
}

// IsEmpty reports whether the plan requires no operations.
func (p *Plan) IsEmpty() bool {
	return len(p.ToCreate) == 0 && len(p.ToDelete) == 0 && len(p.ToUpdate) == 0
}

// MembersFunc lists the target host names currently assigned to a proxy.
type MembersFunc func(ctx context.Context, proxyID string) ([]string, error)

// ExpandFunc re-expands one source record into its current per-interface
// host records.
type ExpandFunc func(ctx context.Context, rec snapshot.SourceRecord) ([]snapshot.SourceRecord, error)

// Inputs carries everything plan building needs. Both snapshots are fully
// materialized before any mutating call happens.
type Inputs struct {
	Source   *snapshot.Snapshot
	ProxyIDs map[string]string
	Members  MembersFunc
	Expand   ExpandFunc

	// Marker is the last successful sync time; the zero value forces
	// first-run semantics (every shared host is an update candidate).
	Marker time.Time
}

// nameSet is the working representation of the candidate sets.
type nameSet map[string]struct{}

func (s nameSet) add(name string)      { s[name] = struct{}{} }
func (s nameSet) remove(name string)   { delete(s, name) }
func (s nameSet) has(name string) bool { _, ok := s[name]; return ok }

func (s nameSet) sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
