package glpi

import (
	"strings"
	"time"

	"f0oster/zbxsync/diff"
	"f0oster/zbxsync/errors"
	"f0oster/zbxsync/logging"
	"f0oster/zbxsync/snapshot"
)

// Port groupings that carry host-facing interfaces. Other port types
// (aggregates, unnamed ports) never become Zabbix hosts.
var portKinds = []string{"NetworkPortAlias", "NetworkPortEthernet"}

// expandDetail derives host records from an equipment item, one per usable
// interface. An item with no usable interface is a validation failure: the
// caller skips it with a warning instead of aborting the run.
func expandDetail(detail equipmentDetail) ([]snapshot.SourceRecord, error) {
	group, subGroup := splitGroup(detail.GroupsID.String())

	modified, err := time.Parse(DateLayout, detail.DateMod)
	if err != nil {
		modified = time.Time{}
	}

	base := snapshot.SourceRecord{
		ID:           detail.ID,
		ParentName:   detail.Name,
		Partition:    snapshot.ProxyPrefix + detail.NetworksID.String(),
		LastModified: modified,
	}

	var records []snapshot.SourceRecord
	for _, kind := range portKinds {
		for _, port := range detail.Ports[kind] {
			if port.NetworkName == nil {
				continue
			}

			netName := port.NetworkName.Name.String()
			var ip string
			if len(port.NetworkName.IPAddresses) > 0 {
				ip = port.NetworkName.IPAddresses[0].Name.String()
			}
			if netName == "" || ip == "" {
				logging.Default().Debug().
					Str("equipment", detail.Name).
					Str("interface", netName).
					Msg("skipping interface with missing address data")
				continue
			}

			domain := port.NetworkName.FQDN.FQDN.String()
			rec := base
			rec.Name = netName
			rec.Attributes = diff.Attributes{
				diff.IPAddress: ip,
				diff.DNSName:   netName + "." + domain,
				diff.HostGroup: group,
				diff.SubGroup:  subGroup,
				diff.Template:  detail.DomainsID.String(),
				diff.Proxy:     rec.Partition,
			}
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, errors.NewValidationError(detail.Name, "no usable network ports")
	}

	if len(records) > 1 {
		for i := range records {
			records[i].MultiInterface = true
		}
	}

	return records, nil
}

// splitGroup extracts group and sub-group from GLPI's "parent > child"
// notation. Flat groups are their own sub-group.
func splitGroup(groups string) (string, string) {
	if !strings.Contains(groups, ">") {
		return groups, groups
	}
	parts := strings.SplitN(groups, ">", 2)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}
