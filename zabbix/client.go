// Package zabbix implements the target-system collaborator: a JSON-RPC
// client for the Zabbix API exposing the finite set of operations the sync
// needs. Every operation is a named method with typed parameters.
package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"f0oster/zbxsync/diff"
	"f0oster/zbxsync/errors"
	"f0oster/zbxsync/logging"
	"f0oster/zbxsync/snapshot"
)

// Client talks to a Zabbix JSON-RPC endpoint.
type Client struct {
	url        string
	auth       string
	nextID     atomic.Int64
	httpClient *http.Client
}

// NewClient builds a client for the given Zabbix base URL (omitting
// /api_jsonrpc.php).
func NewClient(serverURL string) *Client {
	return &Client{
		url:        strings.TrimRight(serverURL, "/") + "/api_jsonrpc.php",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Login authenticates and stores the auth token for subsequent calls.
func (c *Client) Login(ctx context.Context, user, password string) error {
	c.auth = ""
	result, err := c.call(ctx, "user.login", map[string]string{
		"user":     user,
		"password": password,
	})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return &errors.APIError{System: "zabbix", StatusCode: 401, Message: rpcErr.Message, Err: err}
		}
		return err
	}

	var token string
	if err := json.Unmarshal(result, &token); err != nil {
		return fmt.Errorf("decoding auth token: %w", err)
	}
	c.auth = token
	return nil
}

// ProxyIDs returns the proxy name to id mapping.
func (c *Client) ProxyIDs(ctx context.Context) (map[string]string, error) {
	result, err := c.call(ctx, "host.get", map[string]any{
		"proxy_hosts": "true",
		"output":      []string{"hostid", "host"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching proxies: %w", err)
	}
	var rows []hostRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("decoding proxies: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Host] = row.HostID
	}
	return out, nil
}

// GroupIDs returns the host-group name to id mapping.
func (c *Client) GroupIDs(ctx context.Context) (map[string]string, error) {
	result, err := c.call(ctx, "hostgroup.get", map[string]any{
		"output": []string{"groupid", "name"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching host groups: %w", err)
	}
	var rows []groupRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("decoding host groups: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.GroupID
	}
	return out, nil
}

// TemplateIDs returns the template name to id mapping.
func (c *Client) TemplateIDs(ctx context.Context) (map[string]string, error) {
	result, err := c.call(ctx, "template.get", map[string]any{
		"output": []string{"templateid", "host"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching templates: %w", err)
	}
	var rows []templateRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("decoding templates: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Host] = row.TemplateID
	}
	return out, nil
}

// HostNamesByProxy returns the names of every host monitored through one
// proxy.
func (c *Client) HostNamesByProxy(ctx context.Context, proxyID string) ([]string, error) {
	result, err := c.call(ctx, "host.get", map[string]any{
		"proxyids": proxyID,
		"output":   []string{"host"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetching hosts for proxy %s: %w", proxyID, err)
	}
	var rows []hostRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("decoding hosts for proxy %s: %w", proxyID, err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Host)
	}
	return names, nil
}

// HostIDs resolves host names to ids. An empty name list performs no call:
// an unfiltered host.get would return every host in the system.
func (c *Client) HostIDs(ctx context.Context, names []string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}
	result, err := c.call(ctx, "host.get", map[string]any{
		"output": []string{"hostid", "host"},
		"filter": map[string]any{"host": names},
	})
	if err != nil {
		return nil, fmt.Errorf("resolving host ids: %w", err)
	}
	var rows []hostRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, fmt.Errorf("decoding host ids: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Host] = row.HostID
	}
	return out, nil
}

// DeleteHosts removes hosts by id in one call. An empty id list performs no
// call at all: host.delete treats an empty filter as "no filter" and would
// delete everything.
func (c *Client) DeleteHosts(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := c.mutate(ctx, "host.delete", ids)
	if err != nil {
		return 0, err
	}
	var deleted struct {
		HostIDs []string `json:"hostids"`
	}
	if err := json.Unmarshal(result, &deleted); err != nil {
		return 0, fmt.Errorf("decoding delete response: %w", err)
	}
	return len(deleted.HostIDs), nil
}

// CreateHost creates one host and returns its new id.
func (c *Client) createHost(ctx context.Context, params hostCreateParams) (string, error) {
	result, err := c.mutate(ctx, "host.create", params)
	if err != nil {
		return "", err
	}
	var created struct {
		HostIDs []string `json:"hostids"`
	}
	if err := json.Unmarshal(result, &created); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}
	if len(created.HostIDs) == 0 {
		return "", fmt.Errorf("host.create returned no id")
	}
	return created.HostIDs[0], nil
}

// HostDetail fetches one host with the references needed for partial
// updates. The proxies mapping translates the host's proxy id back to its
// name for comparison.
func (c *Client) HostDetail(ctx context.Context, name string, proxies map[string]string) (snapshot.TargetRecord, error) {
	result, err := c.call(ctx, "host.get", map[string]any{
		"selectParentTemplates": []string{"name"},
		"selectGroups":          []string{"name"},
		"selectInterfaces":      []string{"dns", "port", "ip", "interfaceid"},
		"filter":                map[string]any{"host": name},
		"output":                []string{"name", "proxy_hostid"},
	})
	if err != nil {
		return snapshot.TargetRecord{}, err
	}
	var rows []hostDetailRow
	if err := json.Unmarshal(result, &rows); err != nil {
		return snapshot.TargetRecord{}, fmt.Errorf("decoding host %s: %w", name, err)
	}
	if len(rows) == 0 {
		return snapshot.TargetRecord{}, errors.NewLookupError("host", name)
	}

	row := rows[0]
	record := snapshot.TargetRecord{
		Name:       row.Name,
		HostID:     row.HostID,
		Attributes: diff.Attributes{},
	}

	if len(row.Interfaces) > 0 {
		record.InterfaceID = row.Interfaces[0].InterfaceID
		record.Attributes[diff.IPAddress] = row.Interfaces[0].IP
		record.Attributes[diff.DNSName] = row.Interfaces[0].DNS
	}
	if len(row.Groups) > 0 {
		record.Attributes[diff.HostGroup] = row.Groups[0].Name
	}
	if len(row.ParentTemplates) > 0 {
		record.Attributes[diff.Template] = row.ParentTemplates[0].Name
	}

	proxyName, ok := proxyNameByID(proxies, row.ProxyHostID)
	if ok {
		record.Attributes[diff.Proxy] = proxyName
	} else {
		logging.Default().Warn().
			Str("host", name).
			Str("proxy_hostid", row.ProxyHostID).
			Msg("host proxy id has no known proxy name, proxy comparison skipped")
	}

	return record, nil
}

// UpdateHostProxy reassigns a host to another proxy.
func (c *Client) UpdateHostProxy(ctx context.Context, hostID, proxyID string) error {
	_, err := c.mutate(ctx, "host.update", map[string]any{
		"hostid":       hostID,
		"proxy_hostid": proxyID,
	})
	return err
}

// UpdateHostGroup replaces a host's group assignment.
func (c *Client) UpdateHostGroup(ctx context.Context, hostID, groupID string) error {
	_, err := c.mutate(ctx, "host.update", map[string]any{
		"hostid": hostID,
		"groups": []groupRef{{GroupID: groupID}},
	})
	return err
}

// UpdateHostTemplate replaces a host's template assignment.
func (c *Client) UpdateHostTemplate(ctx context.Context, hostID, templateID string) error {
	_, err := c.mutate(ctx, "host.update", map[string]any{
		"hostid":    hostID,
		"templates": []templateRef{{TemplateID: templateID}},
	})
	return err
}

// UpdateInterfaceIP changes the address of one host interface.
func (c *Client) UpdateInterfaceIP(ctx context.Context, interfaceID, ip string) error {
	_, err := c.mutate(ctx, "hostinterface.update", map[string]any{
		"interfaceid": interfaceID,
		"ip":          ip,
	})
	return err
}

// UpdateInterfaceDNS changes the DNS name of one host interface.
func (c *Client) UpdateInterfaceDNS(ctx context.Context, interfaceID, dns string) error {
	_, err := c.mutate(ctx, "hostinterface.update", map[string]any{
		"interfaceid": interfaceID,
		"dns":         dns,
	})
	return err
}

func proxyNameByID(proxies map[string]string, proxyID string) (string, bool) {
	for name, id := range proxies {
		if id == proxyID {
			return name, true
		}
	}
	return "", false
}

// call performs one JSON-RPC exchange for read and session methods.
// Transport failures and 5xx responses are retried; RPC-level errors are
// returned as *RPCError.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := c.encodeRequest(method, params)
	if err != nil {
		return nil, err
	}

	operation := func() ([]byte, error) {
		body, retryable, err := c.exchange(ctx, method, payload)
		if err != nil && !retryable {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3))
	if err != nil {
		return nil, err
	}
	return decodeResult(method, body)
}

// mutate performs a single-attempt JSON-RPC exchange. Mutating methods are
// never re-sent: a create or delete whose response was lost may already
// have been applied on the server.
func (c *Client) mutate(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := c.encodeRequest(method, params)
	if err != nil {
		return nil, err
	}
	body, _, err := c.exchange(ctx, method, payload)
	if err != nil {
		return nil, err
	}
	return decodeResult(method, body)
}

func (c *Client) encodeRequest(method string, params any) ([]byte, error) {
	if params == nil {
		params = map[string]any{}
	}
	request := rpcRequest{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}
	if c.auth != "" && method != "user.login" && method != "apiinfo.version" {
		request.Auth = c.auth
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}
	return payload, nil
}

// exchange does one HTTP round trip. The second return reports whether the
// failure is transient enough for callers that retry.
func (c *Client) exchange(ctx context.Context, method string, payload []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, &errors.APIError{System: "zabbix", Message: method + " failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &errors.APIError{System: "zabbix", Message: "reading response", Err: err}
	}
	if resp.StatusCode >= 500 {
		return nil, true, errors.NewAPIError("zabbix", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, errors.NewAPIError("zabbix", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return body, false, nil
}

func decodeResult(method string, body []byte) (json.RawMessage, error) {
	var response rpcResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	return response.Result, nil
}
