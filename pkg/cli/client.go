package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a thin HTTP client for the grid API.
type Client struct {
	host string
	http *http.Client
}

// NewClient creates a client for the given host (scheme + authority).
func NewClient(host string) *Client {
	return &Client{
		host: strings.TrimRight(host, "/"),
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// TableResult is the row window returned by the table endpoints.
type TableResult struct {
	Rows  []map[string]any `json:"rows"`
	Total int64            `json:"total"`
}

// FacetResult is the facet payload for any kind.
type FacetResult struct {
	Kind    string        `json:"kind"`
	Options []FacetOption `json:"options"`
	HasMore bool          `json:"hasMore"`
	Min     any           `json:"min"`
	Max     any           `json:"max"`
	Total   int64         `json:"total"`
}

// FacetOption is one unique-value entry.
type FacetOption struct {
	Value    any   `json:"value"`
	Count    int64 `json:"count"`
	Selected bool  `json:"selected"`
}

// SelectionResult reflects a selection's published state.
type SelectionResult struct {
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	Predicate string `json:"predicate"`
	Value     any    `json:"value"`
}

// Query submits a table state and returns the fresh window.
func (c *Client) Query(ctx context.Context, tableName string, state any) (*TableResult, error) {
	var out TableResult
	err := c.do(ctx, http.MethodPost, "/api/tables/"+url.PathEscape(tableName)+"/query", state, &out)
	return &out, err
}

// Facet fetches facet metadata for one column.
func (c *Client) Facet(ctx context.Context, tableName, column string, params url.Values) (*FacetResult, error) {
	path := "/api/tables/" + url.PathEscape(tableName) + "/facets/" + url.PathEscape(column)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out FacetResult
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return &out, err
}

// Publish pushes one source's values to a shared selection.
func (c *Client) Publish(ctx context.Context, name string, req any) (*SelectionResult, error) {
	var out SelectionResult
	err := c.do(ctx, http.MethodPost, "/api/selections/"+url.PathEscape(name), req, &out)
	return &out, err
}

// Reset clears a shared selection.
func (c *Client) Reset(ctx context.Context, name string) (*SelectionResult, error) {
	var out SelectionResult
	err := c.do(ctx, http.MethodDelete, "/api/selections/"+url.PathEscape(name), nil, &out)
	return &out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
