package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxFeedBytes bounds the body read from a feed endpoint.
const maxFeedBytes = 32 << 20

// httpSource fetches a feed over HTTP. Options: url, headers (object or
// JSON string), format ("json", the default, or "csv"), data_path,
// delimiter and has_header.
type httpSource struct {
	client *http.Client
}

func init() { RegisterSource(httpSource{client: &http.Client{Timeout: 30 * time.Second}}) }

func (httpSource) Type() string { return "http" }

func (s httpSource) Read(ctx context.Context, cfg SourceConfig) (<-chan Record, <-chan error) {
	return readAll(ctx, func() ([]Record, error) { return s.fetch(ctx, cfg) })
}

func (s httpSource) fetch(ctx context.Context, cfg SourceConfig) ([]Record, error) {
	url := cfg.string("url")
	if url == "" {
		return nil, fmt.Errorf("http feed: url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	headers, err := headerMap(cfg["headers"])
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body := io.LimitReader(resp.Body, maxFeedBytes)
	if strings.EqualFold(cfg.string("format"), "csv") {
		return parseCSV(body, cfg)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return parseJSON(data, cfg.string("data_path"))
}

func headerMap(v any) (map[string]string, error) {
	out := map[string]string{}
	switch h := v.(type) {
	case nil:
	case map[string]any:
		for k, val := range h {
			out[k] = fmt.Sprint(val)
		}
	case map[string]string:
		return h, nil
	case string:
		if h == "" {
			break
		}
		if err := json.Unmarshal([]byte(h), &out); err != nil {
			return nil, fmt.Errorf("parse headers: %w", err)
		}
	default:
		return nil, fmt.Errorf("headers must be an object, got %T", v)
	}
	return out, nil
}
