package zabbix

import (
	"encoding/json"
	"fmt"
)

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	Auth    string `json:"auth,omitempty"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *RPCError) Error() string {
	if e.Data == "" {
		return fmt.Sprintf("zabbix error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("zabbix error %d: %s, %s", e.Code, e.Message, e.Data)
}

type hostRow struct {
	HostID string `json:"hostid"`
	Host   string `json:"host"`
}

type groupRow struct {
	GroupID string `json:"groupid"`
	Name    string `json:"name"`
}

type templateRow struct {
	TemplateID string `json:"templateid"`
	Host       string `json:"host"`
}

type groupRef struct {
	GroupID string `json:"groupid"`
}

type templateRef struct {
	TemplateID string `json:"templateid"`
}

type hostInterface struct {
	Type  int    `json:"type"`
	Main  int    `json:"main"`
	UseIP int    `json:"useip"`
	IP    string `json:"ip"`
	DNS   string `json:"dns"`
	Port  string `json:"port"`
	Bulk  string `json:"bulk,omitempty"`
}

type macro struct {
	Macro string `json:"macro"`
	Value string `json:"value"`
}

type hostCreateParams struct {
	Host          string          `json:"host"`
	Interfaces    []hostInterface `json:"interfaces"`
	Macros        []macro         `json:"macros,omitempty"`
	Groups        []groupRef      `json:"groups"`
	Templates     []templateRef   `json:"templates"`
	ProxyHostID   string          `json:"proxy_hostid"`
	InventoryMode int             `json:"inventory_mode"`
}

type hostDetailRow struct {
	HostID      string `json:"hostid"`
	Name        string `json:"name"`
	ProxyHostID string `json:"proxy_hostid"`
	Groups      []struct {
		Name string `json:"name"`
	} `json:"groups"`
	ParentTemplates []struct {
		Name string `json:"name"`
	} `json:"parentTemplates"`
	Interfaces []struct {
		InterfaceID string `json:"interfaceid"`
		IP          string `json:"ip"`
		DNS         string `json:"dns"`
		Port        string `json:"port"`
	} `json:"interfaces"`
}
