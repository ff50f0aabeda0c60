package zabbix

import (
	"context"
	"fmt"
	"strings"

	"f0oster/zbxsync/diff"
	"f0oster/zbxsync/errors"
	"f0oster/zbxsync/snapshot"
)

// Interface types and ports per the Zabbix host.create schema.
const (
	agentInterfaceType = 1
	snmpInterfaceType  = 2
	agentPort          = "10050"
	snmpPort           = "161"
)

// Target adapts the client and its lookup tables to the operations the
// apply orchestrator drives.
type Target struct {
	client  *Client
	lookups Lookups
}

// NewTarget builds a Target around an authenticated client.
func NewTarget(client *Client, lookups Lookups) *Target {
	return &Target{client: client, lookups: lookups}
}

// ResolveIDs maps host names to Zabbix host ids.
func (t *Target) ResolveIDs(ctx context.Context, names []string) (map[string]string, error) {
	return t.client.HostIDs(ctx, names)
}

// Delete removes hosts by id.
func (t *Target) Delete(ctx context.Context, ids []string) (int, error) {
	return t.client.DeleteHosts(ctx, ids)
}

// Record fetches the current target-side state of one host.
func (t *Target) Record(ctx context.Context, name string) (snapshot.TargetRecord, error) {
	return t.client.HostDetail(ctx, name, t.lookups.Proxies)
}

// Create builds host parameters from a source record and creates the host.
// UPS equipment gets an SNMP interface, everything else a Zabbix agent
// interface, matching how the templates expect to reach them.
func (t *Target) Create(ctx context.Context, rec snapshot.SourceRecord) (string, error) {
	group := rec.Attributes[diff.HostGroup]
	groupID, ok := t.lookups.Groups[group]
	if !ok {
		return "", errors.NewLookupError("group", group)
	}
	template := rec.Attributes[diff.Template]
	templateID, ok := t.lookups.Templates[template]
	if !ok {
		return "", errors.NewLookupError("template", template)
	}
	proxyID, ok := t.lookups.Proxies[rec.Partition]
	if !ok {
		return "", errors.NewLookupError("proxy", rec.Partition)
	}

	params := hostCreateParams{
		Host:          rec.Name,
		Groups:        []groupRef{{GroupID: groupID}},
		Templates:     []templateRef{{TemplateID: templateID}},
		ProxyHostID:   proxyID,
		InventoryMode: -1,
	}

	if strings.Contains(group, "ups") {
		params.Interfaces = []hostInterface{{
			Type:  snmpInterfaceType,
			Main:  1,
			UseIP: 1,
			IP:    rec.Attributes[diff.IPAddress],
			DNS:   rec.Attributes[diff.DNSName],
			Port:  snmpPort,
			Bulk:  "0",
		}}
		params.Macros = []macro{{Macro: "{$SNMP_COMMUNITY}", Value: "public"}}
	} else {
		params.Interfaces = []hostInterface{{
			Type:  agentInterfaceType,
			Main:  1,
			UseIP: 1,
			IP:    rec.Attributes[diff.IPAddress],
			DNS:   rec.Attributes[diff.DNSName],
			Port:  agentPort,
		}}
	}

	return t.client.createHost(ctx, params)
}

// UpdateAttribute issues the partial update call matching one changed
// attribute category. Interface-level attributes go through
// hostinterface.update, host-level ones through host.update.
func (t *Target) UpdateAttribute(ctx context.Context, tgt snapshot.TargetRecord, category diff.Category, value string) error {
	switch category {
	case diff.IPAddress:
		return t.client.UpdateInterfaceIP(ctx, tgt.InterfaceID, value)
	case diff.DNSName:
		return t.client.UpdateInterfaceDNS(ctx, tgt.InterfaceID, value)
	case diff.HostGroup:
		groupID, ok := t.lookups.Groups[value]
		if !ok {
			return errors.NewLookupError("group", value)
		}
		return t.client.UpdateHostGroup(ctx, tgt.HostID, groupID)
	case diff.Template:
		templateID, ok := t.lookups.Templates[value]
		if !ok {
			return errors.NewLookupError("template", value)
		}
		return t.client.UpdateHostTemplate(ctx, tgt.HostID, templateID)
	case diff.Proxy:
		proxyID, ok := t.lookups.Proxies[value]
		if !ok {
			return errors.NewLookupError("proxy", value)
		}
		return t.client.UpdateHostProxy(ctx, tgt.HostID, proxyID)
	default:
		return fmt.Errorf("attribute category %q has no target-side update", category)
	}
}
