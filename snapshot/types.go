package snapshot

import (
	"sort"
	"time"

	"f0oster/zbxsync/diff"
)

// SourceRecord is one inventory item read from GLPI, or one of its derived
// per-interface records after expansion.
type SourceRecord struct {
	// ID is the GLPI equipment id. Derived records share their parent's ID.
	ID int

	// Name is the host name this record is known by. For derived records it
	// is the interface's network name; in a freshly captured snapshot it
	// equals ParentName.
	Name string

	// ParentName is the GLPI equipment name.
	ParentName string

	// Partition is the monitoring-proxy assignment, prefixed the way Zabbix
	// names its proxies.
	Partition string

	// LastModified is the GLPI date_mod for the equipment.
	LastModified time.Time

	Attributes diff.Attributes

	// MultiInterface marks records derived from equipment exposing more
	// than one usable network interface.
	MultiInterface bool
}

// TargetRecord is one host already present in Zabbix.
type TargetRecord struct {
	Name string

	// HostID is the Zabbix-native host id.
	HostID string

	// InterfaceID is the id of the host's main interface, needed for
	// partial address and DNS updates.
	InterfaceID string

	Attributes diff.Attributes
}

// Snapshot is an immutable name-to-record mapping of the source inventory,
// grouped by partition. Captured once per run before any mutation.
type Snapshot struct {
	records    map[string]SourceRecord
	partitions map[string][]string
	takenAt    time.Time
}

// New builds a Snapshot from captured records. Later records with a
// duplicate name are dropped; source names are unique within a run.
func New(records []SourceRecord) *Snapshot {
	s := &Snapshot{
		records:    make(map[string]SourceRecord, len(records)),
		partitions: make(map[string][]string),
		takenAt:    time.Now(),
	}
	for _, rec := range records {
		if _, exists := s.records[rec.Name]; exists {
			continue
		}
		s.records[rec.Name] = rec
		s.partitions[rec.Partition] = append(s.partitions[rec.Partition], rec.Name)
	}
	for _, names := range s.partitions {
		sort.Strings(names)
	}
	return s
}

// Record returns the record for a name.
func (s *Snapshot) Record(name string) (SourceRecord, bool) {
	rec, ok := s.records[name]
	return rec, ok
}

// Partitions returns every partition present in the snapshot, sorted.
func (s *Snapshot) Partitions() []string {
	out := make([]string, 0, len(s.partitions))
	for p := range s.partitions {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PartitionNames returns the host names captured for one partition.
func (s *Snapshot) PartitionNames(partition string) []string {
	return s.partitions[partition]
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// TakenAt returns the capture time.
func (s *Snapshot) TakenAt() time.Time {
	return s.takenAt
}
