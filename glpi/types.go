package glpi

import (
	"bytes"
	"encoding/json"
)

// DateLayout is the timestamp format GLPI uses for date_mod.
const DateLayout = "2006-01-02 15:04:05"

// flexString decodes a JSON value that GLPI serves inconsistently: dropdown
// fields come back as names (strings) when expanded but as numeric ids when
// not, and unset fields as 0 or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

func (f flexString) String() string {
	return string(f)
}

// flexBool decodes GLPI's 0/1 flags, tolerating booleans and strings.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", `"1"`, "true":
		*f = true
	default:
		*f = false
	}
	return nil
}

// equipmentRow is one row of the networkequipment listing.
type equipmentRow struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	NetworksID flexString `json:"networks_id"`
	DateMod    string     `json:"date_mod"`
	IsTemplate flexBool   `json:"is_template"`
	IsDeleted  flexBool   `json:"is_deleted"`
}

// equipmentDetail is one networkequipment item fetched with its ports.
type equipmentDetail struct {
	ID         int                      `json:"id"`
	Name       string                   `json:"name"`
	GroupsID   flexString               `json:"groups_id"`
	DomainsID  flexString               `json:"domains_id"`
	NetworksID flexString               `json:"networks_id"`
	DateMod    string                   `json:"date_mod"`
	Ports      map[string][]networkPort `json:"_networkports"`
}

type networkPort struct {
	NetworkName *networkName `json:"NetworkName"`
}

type networkName struct {
	Name        flexString  `json:"name"`
	FQDN        fqdnRef     `json:"FQDN"`
	IPAddresses []ipAddress `json:"IPAddress"`
}

type fqdnRef struct {
	FQDN flexString `json:"fqdn"`
}

type ipAddress struct {
	Name flexString `json:"name"`
}
