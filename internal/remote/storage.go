package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UploadObject stores a blob under bucket/path. Uploads overwrite any
// existing object at the same path.
func (c *Client) UploadObject(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, strings.TrimLeft(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("remote: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("remote: upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp.StatusCode, raw)
	}
	return nil
}

// CreateSignedURL asks the backend for a time-limited read URL for a
// private blob.
func (c *Client) CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	u := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", c.baseURL, bucket, strings.TrimLeft(path, "/"))

	body, err := c.do(ctx, http.MethodPost, u, map[string]any{
		"expiresIn": int(ttl.Seconds()),
	}, nil)
	if err != nil {
		return "", err
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(body, &signed); err != nil {
		return "", fmt.Errorf("remote: decode signed URL: %w", err)
	}
	if signed.SignedURL == "" {
		return "", fmt.Errorf("remote: backend returned empty signed URL")
	}
	return c.baseURL + "/storage/v1" + signed.SignedURL, nil
}
