package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

const maxResponseSizeBytes = 2 << 20

var _ contractx.MemoryStore = (*Client)(nil)

type ClientConfig struct {
	URL     string        `envconfig:"URL" required:"true"`
	Token   string        `envconfig:"TOKEN"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"8s"`
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client talks to the semantic memory service over its REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success bool         `json:"success"`
	Results []wireRecord `json:"results"`
	Error   string       `json:"error"`
}

type wireRecord struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

type saveRequest struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type saveResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("memory service url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid memory service url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	c := &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) Health(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSizeBytes))
	return resp.StatusCode == http.StatusOK
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]contractx.MemoryRecord, error) {
	if limit <= 0 {
		limit = 3
	}
	var out searchResponse
	if err := c.post(ctx, "/api/memory/search", searchRequest{Query: query, Limit: limit}, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", contractx.ErrMemoryUnavailable, out.Error)
	}

	records := make([]contractx.MemoryRecord, 0, len(out.Results))
	for _, r := range out.Results {
		records = append(records, toRecord(r))
	}
	return records, nil
}

func (c *Client) Save(ctx context.Context, content string, metadata map[string]any) (bool, error) {
	var out saveResponse
	if err := c.post(ctx, "/api/memory/save", saveRequest{Content: content, Metadata: metadata}, &out); err != nil {
		return false, err
	}
	if out.Error != "" {
		return false, fmt.Errorf("%w: %s", contractx.ErrMemoryUnavailable, out.Error)
	}
	return out.Success, nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal memory request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrMemoryUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read memory response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", contractx.ErrMemoryUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode memory response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build memory request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func toRecord(r wireRecord) contractx.MemoryRecord {
	rec := contractx.MemoryRecord{Content: r.Content, Confidence: r.Score}
	if v, ok := r.Metadata["entity_type"].(string); ok {
		rec.EntityType = contractx.EntityType(v)
	}
	if v, ok := r.Metadata["confidence"].(float64); ok {
		rec.Confidence = v
	}
	if v, ok := r.Metadata["source_tool"].(string); ok {
		rec.SourceTool = v
	}
	if v, ok := r.Metadata["timestamp"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			rec.Timestamp = ts
		}
	}
	return rec
}
