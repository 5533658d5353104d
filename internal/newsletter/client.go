// Package newsletter talks to the third-party newsletter provider.
package newsletter

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

// Client pushes subscribers to the provider's list.
type Client struct {
	endpoint string
	listID   string
	apiKey   string
	http     *http.Client
}

// NewClient creates a Client. An empty endpoint disables syncing.
func NewClient(endpoint, listID, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		listID:   listID,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether a provider endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

type subscribeRequest struct {
	Email  string `json:"email"`
	ListID string `json:"listId,omitempty"`
	Source string `json:"source,omitempty"`
}

// StatusError is returned when the provider answers with a non-2xx code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("newsletter provider returned %d: %s", e.StatusCode, e.Body)
}

// Subscribe adds email to the configured list.
func (c *Client) Subscribe(ctx context.Context, email, source string) error {
	if !c.Enabled() {
		return fmt.Errorf("newsletter provider not configured")
	}
	body, err := json.Marshal(subscribeRequest{Email: email, ListID: c.listID, Source: source})
	if err != nil {
		return fmt.Errorf("encode subscribe request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", email, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read at most 4KB of the error body.
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
