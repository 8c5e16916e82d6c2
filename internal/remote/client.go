// Package remote is a thin client over the hosted backend's row API and
// object storage. It carries no retry logic; callers wrap operations in
// the retry policy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds connection settings for the hosted backend.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client issues row-level CRUD against the backend's REST surface and
// blob operations against its storage endpoint.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     *zap.Logger
}

// APIError is a structured failure returned by the backend. Code carries
// the backend's error code (Postgres SQLSTATE for constraint violations).
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote: status %d code %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

// Backend error codes for constraint violations (Postgres SQLSTATE).
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
)

func New(cfg Config, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("remote: invalid base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
		log:     log.Named("remote.client"),
	}, nil
}

// Filter restricts row operations to matching columns. Values render as
// equality predicates; use In for set membership.
type Filter map[string]string

// Eq renders an equality predicate value.
func Eq(v any) string { return fmt.Sprintf("eq.%v", v) }

// In renders a set-membership predicate value.
func In(values ...string) string {
	return fmt.Sprintf("in.(%s)", strings.Join(values, ","))
}

func (f Filter) encode() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := url.Values{}
	for _, k := range keys {
		q.Set(k, f[k])
	}
	return q.Encode()
}

// Select fetches all rows matching filter into dest (a pointer to a slice).
func (c *Client) Select(ctx context.Context, table string, filter Filter, dest any) error {
	body, err := c.do(ctx, http.MethodGet, c.rowURL(table, filter), nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("remote: decode %s rows: %w", table, err)
	}
	return nil
}

// Insert creates a new row.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	_, err := c.do(ctx, http.MethodPost, c.rowURL(table, nil), row, map[string]string{
		"Prefer": "return=minimal",
	})
	return err
}

// Upsert inserts the row or replaces the existing one with the same
// primary key.
func (c *Client) Upsert(ctx context.Context, table string, row any) error {
	_, err := c.do(ctx, http.MethodPost, c.rowURL(table, nil), row, map[string]string{
		"Prefer": "resolution=merge-duplicates,return=minimal",
	})
	return err
}

// Update patches all rows matching filter.
func (c *Client) Update(ctx context.Context, table string, patch any, filter Filter) error {
	_, err := c.do(ctx, http.MethodPatch, c.rowURL(table, filter), patch, map[string]string{
		"Prefer": "return=minimal",
	})
	return err
}

// Delete removes all rows matching filter.
func (c *Client) Delete(ctx context.Context, table string, filter Filter) error {
	_, err := c.do(ctx, http.MethodDelete, c.rowURL(table, filter), nil, nil)
	return err
}

func (c *Client) rowURL(table string, filter Filter) string {
	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if q := filter.encode(); q != "" {
		u += "?" + q
	}
	return u
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload any, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("remote: encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("remote: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.apiError(resp.StatusCode, raw)
	}
	return raw, nil
}

func (c *Client) apiError(status int, raw []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(status)
		}
		apiErr.Message = msg
	}
	c.log.Warn("backend rejected request",
		zap.Int("status", status),
		zap.String("code", apiErr.Code),
	)
	return apiErr
}
