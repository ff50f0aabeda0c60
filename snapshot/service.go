package snapshot

import (
	"time"
)

// ProxyPrefix is prepended to a GLPI network name to form the matching
// Zabbix proxy name.
const ProxyPrefix = "zbx-"

// Equipment is the subset of a GLPI inventory row needed to capture a
// source snapshot.
type Equipment struct {
	ID         int
	Name       string
	Network    string
	DateMod    time.Time
	IsTemplate bool
	IsDeleted  bool
}

// BuildSource captures a source snapshot from a GLPI equipment listing.
// Templates, deleted equipment and equipment outside the network allow-list
// are excluded; the remaining records are grouped by their proxy partition.
func BuildSource(items []Equipment, allowedNetworks []string) *Snapshot {
	allowed := make(map[string]struct{}, len(allowedNetworks))
	for _, network := range allowedNetworks {
		allowed[network] = struct{}{}
	}

	records := make([]SourceRecord, 0, len(items))
	for _, item := range items {
		if item.IsTemplate || item.IsDeleted {
			continue
		}
		if _, ok := allowed[item.Network]; !ok {
			continue
		}
		records = append(records, SourceRecord{
			ID:           item.ID,
			Name:         item.Name,
			ParentName:   item.Name,
			Partition:    ProxyPrefix + item.Network,
			LastModified: item.DateMod,
		})
	}

	snap := New(records)

	// Every allowed network contributes a partition even when no equipment
	// currently belongs to it, so stale target hosts still get deleted.
	for _, network := range allowedNetworks {
		partition := ProxyPrefix + network
		if _, ok := snap.partitions[partition]; !ok {
			snap.partitions[partition] = nil
		}
	}

	return snap
}
