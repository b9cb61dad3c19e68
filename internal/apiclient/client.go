// Package apiclient talks to the dashboard API on behalf of the watch console.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnauthorized is returned when the API rejects the session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyPayload is returned for a 2xx response without a JSON body.
	ErrEmptyPayload = errors.New("empty payload")
)

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dashboard api status=%d", e.Code)
	}
	return fmt.Sprintf("dashboard api status=%d: %s", e.Code, e.Message)
}

// Row is a loosely typed record. Numbers decode as json.Number.
type Row map[string]any

// SummaryPayload is the store-danger-summary response.
type SummaryPayload struct {
	Date            string         `json:"date"`
	StoreCount      *int           `json:"store_count,omitempty"`
	StoreCountTotal *int           `json:"store_count_total,omitempty"`
	StoreCountQuery *int           `json:"store_count_query,omitempty"`
	StatusCounts    map[string]int `json:"status_counts,omitempty"`
	Results         []Row          `json:"results"`
	AgingResults    []Row          `json:"aging_results"`
}

// InventoryPayload is the inventory-by-status response.
type InventoryPayload struct {
	Count      int          `json:"count"`
	TotalCount *int         `json:"total_count,omitempty"`
	TotalQty   *json.Number `json:"total_qty,omitempty"`
	TotalValue *json.Number `json:"total_value,omitempty"`
	Limited    bool         `json:"limited"`
	Results    []Row        `json:"results"`
}

// SearchPayload is the inventory search response.
type SearchPayload struct {
	Count   int   `json:"count"`
	Results []Row `json:"results"`
}

// HealthPayload is the /health response.
type HealthPayload struct {
	Status      string `json:"status"`
	App         string `json:"app"`
	Environment string `json:"environment"`
	Time        string `json:"time"`
}

// SummaryQuery filters the store summary. Status is a comma-joined tag list.
type SummaryQuery struct {
	Query  string
	Status string
}

// InventoryQuery selects inventory by status.
type InventoryQuery struct {
	Status  string
	Query   string
	StoreID string
	Limit   int
}

// SearchQuery is a manual inventory search.
type SearchQuery struct {
	Query     string
	StoreID   string
	AlertOnly bool
}

// Client performs read-only calls against the dashboard API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Summary(ctx context.Context, q SummaryQuery) (*SummaryPayload, error) {
	params := url.Values{}
	setIf(params, "query", q.Query)
	setIf(params, "status", q.Status)

	var out SummaryPayload
	if err := c.get(ctx, "/dashboard/store-danger-summary", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) InventoryByStatus(ctx context.Context, q InventoryQuery) (*InventoryPayload, error) {
	params := url.Values{}
	setIf(params, "status", q.Status)
	setIf(params, "query", q.Query)
	setIf(params, "store_id", q.StoreID)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out InventoryPayload
	if err := c.get(ctx, "/dashboard/inventory-by-status", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchInventory(ctx context.Context, q SearchQuery) (*SearchPayload, error) {
	params := url.Values{}
	setIf(params, "query", q.Query)
	setIf(params, "store_id", q.StoreID)
	if q.AlertOnly {
		params.Set("alert_only", "true")
	}

	var out SearchPayload
	if err := c.get(ctx, "/search/inventory", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*HealthPayload, error) {
	var out HealthPayload
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(blob)}
	}

	blob, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}
	blob = bytes.TrimSpace(blob)
	if len(blob) == 0 || bytes.Equal(blob, []byte("null")) {
		return fmt.Errorf("%s: %w", path, ErrEmptyPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// errorMessage extracts "error" or "detail" from a JSON error body.
func errorMessage(blob []byte) string {
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(blob, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(blob))
}

func setIf(params url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		params.Set(key, v)
	}
}
