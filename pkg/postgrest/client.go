// Package postgrest is a small PostgREST (Supabase REST) client used by the
// dashboard's Supabase repository and the community data sources.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by Single when no row matches.
var ErrNotFound = errors.New("postgrest: row not found")

// Config configures the client.
type Config struct {
	// URL is the project URL; "/rest/v1" is appended.
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// Client talks to a PostgREST endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New builds a client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgrest: url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("postgrest: api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/") + "/rest/v1",
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// From starts a query against a table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, params: url.Values{}}
}

// Query accumulates filters for one request.
type Query struct {
	client *Client
	table  string
	params url.Values
}

// Select sets the column list.
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq adds an equality filter.
func (q *Query) Eq(column string, value any) *Query {
	return q.filter(column, "eq", value)
}

// Gte adds a greater-than-or-equal filter.
func (q *Query) Gte(column string, value any) *Query {
	return q.filter(column, "gte", value)
}

// Lte adds a less-than-or-equal filter.
func (q *Query) Lte(column string, value any) *Query {
	return q.filter(column, "lte", value)
}

// Order appends an ordering term.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "asc"
	if !ascending {
		dir = "desc"
	}
	term := column + "." + dir
	if existing := q.params.Get("order"); existing != "" {
		term = existing + "," + term
	}
	q.params.Set("order", term)
	return q
}

// Limit caps the result size. Non-positive values are ignored.
func (q *Query) Limit(n int) *Query {
	if n > 0 {
		q.params.Set("limit", strconv.Itoa(n))
	}
	return q
}

func (q *Query) filter(column, op string, value any) *Query {
	q.params.Add(column, op+"."+formatValue(value))
	return q
}

// Rows decodes every matching row into target (a pointer to a slice).
func (q *Query) Rows(ctx context.Context, target any) error {
	return q.client.do(ctx, http.MethodGet, q.path(), nil, nil, target)
}

// Single decodes the first matching row into target. It returns ErrNotFound
// when nothing matches.
func (q *Query) Single(ctx context.Context, target any) error {
	q.Limit(1)
	var rows []json.RawMessage
	if err := q.Rows(ctx, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(rows[0], target); err != nil {
		return fmt.Errorf("postgrest: decode row: %w", err)
	}
	return nil
}

// Insert posts rows and decodes the representation into target when non-nil.
func (q *Query) Insert(ctx context.Context, rows any, target any) error {
	headers := map[string]string{"Prefer": "return=representation"}
	if target == nil {
		headers["Prefer"] = "return=minimal"
	}
	return q.client.do(ctx, http.MethodPost, q.path(), headers, rows, target)
}

// Upsert merges rows on the given conflict columns.
func (q *Query) Upsert(ctx context.Context, rows any, onConflict string) error {
	if onConflict != "" {
		q.params.Set("on_conflict", onConflict)
	}
	headers := map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}
	return q.client.do(ctx, http.MethodPost, q.path(), headers, rows, nil)
}

// Delete removes the rows matching the filters.
func (q *Query) Delete(ctx context.Context) error {
	return q.client.do(ctx, http.MethodDelete, q.path(), nil, nil, nil)
}

func (q *Query) path() string {
	path := "/" + url.PathEscape(q.table)
	if len(q.params) > 0 {
		path += "?" + q.params.Encode()
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, payload any, target any) error {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("postgrest: encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("postgrest: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("postgrest: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return &Error{Status: resp.StatusCode, Body: buf.String()}
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("postgrest: decode response: %w", err)
	}
	return nil
}

// Error is a non-2xx PostgREST response.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("postgrest: remote error %d: %s", e.Status, e.Body)
}

func formatValue(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
