package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/grcnews/pkg/domain"
)

// DefaultRSSEndpoint is Google News RSS search, {q} and {language} are replaced with query values
const DefaultRSSEndpoint = "https://news.google.com/rss/search?q={q}&hl={language}"

// RSS searches articles with an RSS search endpoint. It has no notion of categories.
type RSS struct {
	endpoint string
	parser   *gofeed.Parser
	timeout  time.Duration
	now      func() time.Time
}

// NewRSS makes RSS search client, endpoint is a template with {q} and {language} placeholders
func NewRSS(endpoint string, timeout time.Duration) *RSS {
	if endpoint == "" {
		endpoint = DefaultRSSEndpoint
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &RSS{endpoint: endpoint, parser: parser, timeout: timeout, now: time.Now}
}

// Search runs a single keyword query
func (r *RSS) Search(ctx context.Context, req Request) ([]domain.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	feedURL := strings.NewReplacer(
		"{q}", url.QueryEscape(req.Keyword),
		"{language}", url.QueryEscape(req.Language),
	).Replace(r.endpoint)

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Keyword, err)
	}

	hits := make([]hit, 0, len(feed.Items))
	for _, item := range feed.Items {
		hits = append(hits, hit{Title: item.Title, Description: item.Description, Link: item.Link})
	}
	return toArticles(req, hits, r.now), nil
}
