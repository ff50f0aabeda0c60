// Package glpi implements the source-system collaborator: a client for the
// GLPI REST API that captures the network-equipment inventory and expands
// individual items into their per-interface host records.
package glpi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"f0oster/zbxsync/errors"
	"f0oster/zbxsync/logging"
	"f0oster/zbxsync/snapshot"
)

// Client talks to a GLPI REST endpoint (the apirest.php URL).
type Client struct {
	baseURL      string
	appToken     string
	userToken    string
	sessionToken string
	httpClient   *http.Client
}

// NewClient builds a GLPI client. The session is established separately via
// InitSession.
func NewClient(baseURL, appToken, userToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appToken:   appToken,
		userToken:  userToken,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// InitSession opens an API session and stores the session token.
func (c *Client) InitSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/initSession", nil)
	if err != nil {
		return fmt.Errorf("building init session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "user_token "+c.userToken)
	req.Header.Set("App-Token", c.appToken)

	body, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	var payload struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("decoding init session response: %w", err)
	}
	if payload.SessionToken == "" {
		return errors.NewAPIError("glpi", 401, "empty session token")
	}

	c.sessionToken = payload.SessionToken
	logging.Default().Debug().Msg("glpi session established")
	return nil
}

// KillSession closes the API session. Safe to call with no open session.
func (c *Client) KillSession(ctx context.Context) error {
	if c.sessionToken == "" {
		return nil
	}
	req, err := c.newSessionRequest(ctx, "/killSession", nil)
	if err != nil {
		return err
	}
	if _, err := c.roundTrip(ctx, req); err != nil {
		return err
	}
	c.sessionToken = ""
	return nil
}

// ListEquipment fetches every network-equipment row, ready for snapshotting.
func (c *Client) ListEquipment(ctx context.Context) ([]snapshot.Equipment, error) {
	params := url.Values{}
	params.Set("range", "0-99999")
	params.Set("expand_dropdowns", "true")

	body, err := c.get(ctx, "/networkequipment/", params)
	if err != nil {
		return nil, err
	}

	var rows []equipmentRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decoding equipment listing: %w", err)
	}

	items := make([]snapshot.Equipment, 0, len(rows))
	for _, row := range rows {
		modified, err := time.Parse(DateLayout, row.DateMod)
		if err != nil {
			logging.Default().Warn().
				Str("host", row.Name).
				Str("date_mod", row.DateMod).
				Msg("unparseable modification time, record will never pass the staleness filter")
		}
		items = append(items, snapshot.Equipment{
			ID:         row.ID,
			Name:       row.Name,
			Network:    row.NetworksID.String(),
			DateMod:    modified,
			IsTemplate: bool(row.IsTemplate),
			IsDeleted:  bool(row.IsDeleted),
		})
	}
	return items, nil
}

// Expand fetches one equipment item with its ports and derives its host
// records, one per usable network interface.
func (c *Client) Expand(ctx context.Context, rec snapshot.SourceRecord) ([]snapshot.SourceRecord, error) {
	params := url.Values{}
	params.Set("expand_dropdowns", "true")
	params.Set("with_networkports", "true")

	body, err := c.get(ctx, "/networkequipment/"+strconv.Itoa(rec.ID), params)
	if err != nil {
		return nil, err
	}

	var detail equipmentDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("decoding equipment %d: %w", rec.ID, err)
	}

	return expandDetail(detail)
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := c.newSessionRequest(ctx, path, params)
	if err != nil {
		return nil, err
	}
	return c.roundTrip(ctx, req)
}

func (c *Client) newSessionRequest(ctx context.Context, path string, params url.Values) (*http.Request, error) {
	full := c.baseURL + path
	if len(params) > 0 {
		full += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Session-Token", c.sessionToken)
	req.Header.Set("App-Token", c.appToken)
	return req, nil
}

// roundTrip executes a request with retry on transport failures and 5xx
// responses. Auth and client errors are permanent.
func (c *Client) roundTrip(ctx context.Context, req *http.Request) ([]byte, error) {
	operation := func() ([]byte, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &errors.APIError{System: "glpi", Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &errors.APIError{System: "glpi", Message: "reading response", Err: err}
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, backoff.Permanent(errors.NewAPIError("glpi", resp.StatusCode, truncate(body)))
		case resp.StatusCode >= 500:
			return nil, errors.NewAPIError("glpi", resp.StatusCode, truncate(body))
		default:
			return nil, backoff.Permanent(errors.NewAPIError("glpi", resp.StatusCode, truncate(body)))
		}
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3))
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
