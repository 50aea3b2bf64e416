// Package docclient is a thin authenticated HTTP+JSON client for a single
// Documentum REST Services endpoint. It decodes responses into generic maps;
// shaping them into stable records is the bridge package's job.
package docclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// MediaType is the vendor media type Documentum REST Services speaks.
const MediaType = "application/vnd.emc.documentum+json"

// maxResponseBytes caps how much of a backend response is read into memory.
const maxResponseBytes = 16 << 20

// Client issues authenticated requests against one REST endpoint.
// It is safe for concurrent use; every session owns exactly one Client.
type Client struct {
	endpoint string
	auth     string
	http     *http.Client
}

// New creates a client for the given endpoint with basic-auth credentials.
// The endpoint must already be normalized (no trailing slash).
func New(endpoint, username, password string) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &Client{
		endpoint: endpoint,
		auth:     "Basic " + creds,
		http:     &http.Client{},
	}
}

// Endpoint returns the normalized base URL this client talks to.
func (c *Client) Endpoint() string { return c.endpoint }

// StatusError is a non-2xx backend response. The body is retained so callers
// can inspect backend error phrases (DQL disabled, aggregate failures).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Get issues a GET and decodes the JSON response into a generic map.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST with a JSON body and decodes the response.
func (c *Client) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.do(ctx, http.MethodPost, path, nil, body)
}

// Delete issues a DELETE; the response body, if any, is discarded.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) error {
	_, err := c.do(ctx, http.MethodDelete, path, query, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", MediaType+", application/json")
	if body != nil {
		req.Header.Set("Content-Type", MediaType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response body: %w", err)
	}
	return decoded, nil
}
