package nitter

import (
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

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

const maxResponseSizeBytes = 4 << 20

var _ contractx.ContentRetriever = (*Client)(nil)

type Config struct {
	URL             string        `envconfig:"URL" split_words:"true" default:"http://localhost:8000"`
	DefaultLocation string        `envconfig:"DEFAULT_LOCATION" split_words:"true" default:"guatemala"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client talks to the social-content extraction service.
type Client struct {
	baseURL         string
	defaultLocation string
	httpClient      *http.Client
}

type tweetPayload struct {
	TweetID  string `json:"tweet_id"`
	Usuario  string `json:"usuario"`
	Texto    string `json:"texto"`
	Fecha    string `json:"fecha"`
	Likes    int    `json:"likes"`
	Retweets int    `json:"retweets"`
	Replies  int    `json:"replies"`
	Enlace   string `json:"enlace"`
}

type listResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Tweets  []tweetPayload `json:"tweets"`
}

func New(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("content service url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid content service url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:         baseURL,
		defaultLocation: strings.TrimSpace(cfg.DefaultLocation),
		httpClient:      &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) FetchByQuery(ctx context.Context, query string, location string, limit int) ([]contractx.ContentItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("content query is empty")
	}
	if strings.TrimSpace(location) == "" {
		location = c.defaultLocation
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("location", location)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	return c.list(ctx, "/api/nitter_context", params)
}

func (c *Client) FetchByHandle(ctx context.Context, handle string, limit int) ([]contractx.ContentItem, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil, errors.New("handle is empty")
	}

	params := url.Values{}
	params.Set("username", handle)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))
	params.Set("include_retweets", "false")
	params.Set("include_replies", "false")

	return c.list(ctx, "/api/nitter_profile/", params)
}

func (c *Client) list(ctx context.Context, path string, params url.Values) ([]contractx.ContentItem, error) {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute content request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read content response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("content service status=%d body=%s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed listResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode content response: %w", err)
	}
	if parsed.Status != "success" {
		msg := strings.TrimSpace(parsed.Message)
		if msg == "" {
			msg = "no content found"
		}
		return nil, errors.New(msg)
	}

	items := make([]contractx.ContentItem, 0, len(parsed.Tweets))
	for _, t := range parsed.Tweets {
		items = append(items, contractx.ContentItem{
			Author:    t.Usuario,
			Text:      strings.TrimSpace(t.Texto),
			Timestamp: parseDate(t.Fecha),
			Likes:     t.Likes,
			Retweets:  t.Retweets,
			Replies:   t.Replies,
			URL:       t.Enlace,
		})
	}
	return items, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"Jan 2, 2006 · 3:04 PM MST",
	"2006-01-02",
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > 50:
		return 50
	default:
		return limit
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
