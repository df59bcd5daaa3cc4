package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/umputun/grcnews/pkg/domain"
)

// DefaultNewsDataEndpoint is the NewsData.io latest news endpoint
const DefaultNewsDataEndpoint = "https://newsdata.io/api/1/news"

// ErrMissingAPIKey is returned when the NewsData client has no API key
var ErrMissingAPIKey = errors.New("newsdata api key is missing")

const maxResponseSize = 10 << 20

// NewsData searches articles with the NewsData.io API
type NewsData struct {
	endpoint string
	apiKey   string
	client   *http.Client
	now      func() time.Time
}

// NewsDataParams configures NewsData client
type NewsDataParams struct {
	Endpoint string // DefaultNewsDataEndpoint if empty
	APIKey   string
	Timeout  time.Duration
}

// NewNewsData makes NewsData client
func NewNewsData(p NewsDataParams) (*NewsData, error) {
	if p.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if p.Endpoint == "" {
		p.Endpoint = DefaultNewsDataEndpoint
	}
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
	return &NewsData{
		endpoint: p.Endpoint,
		apiKey:   p.APIKey,
		client:   &http.Client{Timeout: p.Timeout},
		now:      time.Now,
	}, nil
}

// newsDataResponse is the envelope of NewsData.io responses.
// Results is an array on success and an error object otherwise.
type newsDataResponse struct {
	Status  string          `json:"status"`
	Results json.RawMessage `json:"results"`
}

type newsDataItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type newsDataError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Search runs a single keyword query. Any failure returns nil articles and an error, a successful
// response with an empty results array returns an empty slice and no error.
func (n *NewsData) Search(ctx context.Context, req Request) ([]domain.Article, error) {
	q := url.Values{}
	q.Set("apikey", n.apiKey)
	q.Set("q", req.Keyword)
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	if req.Category != "" {
		q.Set("category", req.Category)
	}

	reqURL := n.endpoint + "?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request for %q: %w", req.Keyword, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Keyword, redactKey(err, n.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response for %q: %w", req.Keyword, err)
	}

	var env newsDataResponse
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("search %q: unexpected status code %d", req.Keyword, resp.StatusCode)
		}
		return nil, fmt.Errorf("decode response for %q: %w", req.Keyword, err)
	}

	if env.Status != "success" {
		return nil, fmt.Errorf("search %q failed with status %q (code %d): %s",
			req.Keyword, env.Status, resp.StatusCode, errorMessage(env.Results))
	}

	var items []newsDataItem
	if len(env.Results) > 0 && string(env.Results) != "null" {
		if err := json.Unmarshal(env.Results, &items); err != nil {
			return nil, fmt.Errorf("decode results for %q: %w", req.Keyword, err)
		}
	}

	hits := make([]hit, 0, len(items))
	for _, it := range items {
		hits = append(hits, hit{Title: it.Title, Description: it.Description, Link: it.Link})
	}
	return toArticles(req, hits, n.now), nil
}

// errorMessage extracts the reason from a failed response results field
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "no error message"
	}
	var e newsDataError
	if err := json.Unmarshal(raw, &e); err == nil && e.Message != "" {
		if e.Code != "" {
			return e.Code + ": " + e.Message
		}
		return e.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

// redactKey hides api key from transport errors, url.Error includes the full request url
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "****"))
}
