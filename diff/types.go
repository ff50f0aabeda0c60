package diff

// Category names one comparable attribute of a host. The differ operates
// over this fixed enumeration, not arbitrary keys.
type Category string

const (
	// IPAddress is the address of the host's main interface.
	IPAddress Category = "ip_addr"
	// DNSName is the fully qualified name of the host's main interface.
	DNSName Category = "dns_name"
	// HostGroup is the owning group classification.
	HostGroup Category = "group"
	// SubGroup is the child part of a "parent > child" group string.
	SubGroup Category = "sub_group"
	// Template is the monitoring-template classification (GLPI domain).
	Template Category = "template"
	// Proxy is the monitoring-proxy (partition) assignment.
	Proxy Category = "proxy"
)

// Categories returns the enumeration in its canonical order.
func Categories() []Category {
	return []Category{IPAddress, DNSName, HostGroup, SubGroup, Template, Proxy}
}

// Attributes maps attribute categories to their semantic values. Absent
// categories are treated as missing, never as empty strings with meaning.
type Attributes map[Category]string

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Result classifies every category across two records into four disjoint
// groups.
type Result struct {
	Added     []Category // present only in the source record
	Removed   []Category // present only in the target record
	Changed   []Category // present in both with differing values
	Unchanged []Category // present in both with equal values
}

// HasChanges reports whether any category differs between the two records.
func (r Result) HasChanges() bool {
	return len(r.Changed) > 0
}
