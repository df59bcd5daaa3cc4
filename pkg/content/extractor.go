package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html/charset"

	"github.com/umputun/grcnews/pkg/domain"
)

const maxPageSize = 5 << 20

// HTTPExtractor fetches article pages and extracts their content using trafilatura
type HTTPExtractor struct {
	client           *http.Client
	userAgent        string
	summarySentences int
	maxKeywords      int
}

// Params configures HTTPExtractor
type Params struct {
	Timeout          time.Duration
	UserAgent        string
	SummarySentences int
	MaxKeywords      int
}

// NewHTTPExtractor creates a new content extractor
func NewHTTPExtractor(p Params) *HTTPExtractor {
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
	if p.UserAgent == "" {
		p.UserAgent = "Mozilla/5.0 (compatible; GRCNews/1.0)"
	}
	if p.SummarySentences == 0 {
		p.SummarySentences = 5
	}
	if p.MaxKeywords == 0 {
		p.MaxKeywords = 10
	}
	return &HTTPExtractor{
		client:           &http.Client{Timeout: p.Timeout},
		userAgent:        p.UserAgent,
		summarySentences: p.SummarySentences,
		maxKeywords:      p.MaxKeywords,
	}
}

// Extract retrieves the page at urlStr and extracts title, authors, publish date and text,
// then builds keywords and summary from the text. No retries, one attempt per call.
func (e *HTTPExtractor) Extract(ctx context.Context, urlStr string) (*domain.ExtractedContent, error) {
	// validate URL
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %s", urlStr)
	}

	page, err := e.fetch(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	// configure trafilatura options
	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		ExcludeTables:   false,
		IncludeImages:   false,
		IncludeLinks:    false,
		Deduplicate:     true,
		OriginalURL:     parsedURL,
	}

	result, err := trafilatura.Extract(bytes.NewReader(page), opts)
	if err != nil {
		return nil, fmt.Errorf("extract content from %s: %w", urlStr, err)
	}
	if result == nil {
		return nil, fmt.Errorf("no content extracted from %s", urlStr)
	}

	meta := readMeta(page)

	res := &domain.ExtractedContent{
		Title:       firstNonEmpty(result.Metadata.Title, meta.title),
		Authors:     splitAuthors(firstNonEmpty(result.Metadata.Author, meta.author)),
		Text:        strings.TrimSpace(result.ContentText),
		PublishDate: result.Metadata.Date,
		URL:         urlStr,
	}
	if res.PublishDate.IsZero() {
		res.PublishDate = meta.published
	}

	if res.Text != "" {
		res.Keywords = Keywords(res.Title+"\n"+res.Text, e.maxKeywords)
	}
	if len(res.Keywords) == 0 {
		res.Keywords = dedupe(append(append(meta.keywords, result.Metadata.Tags...), result.Metadata.Categories...))
	}

	res.Summary = Summarize(res.Title, res.Text, e.summarySentences)
	if res.Summary == "" {
		res.Summary = firstNonEmpty(result.Metadata.Description, meta.description)
	}

	return res, nil
}

// fetch downloads the page and converts it to utf-8
func (e *HTTPExtractor) fetch(ctx context.Context, urlStr string) ([]byte, error) {
	// create request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	addBrowserHeaders(req)
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch URL %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, urlStr)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect charset of %s: %w", urlStr, err)
	}
	page, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", urlStr, err)
	}
	return page, nil
}

// pageMeta holds values from html meta tags, used where trafilatura finds nothing
type pageMeta struct {
	title       string
	author      string
	description string
	keywords    []string
	published   time.Time
}

func readMeta(page []byte) pageMeta {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return pageMeta{}
	}

	attr := func(selectors ...string) string {
		for _, sel := range selectors {
			if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
				return v
			}
		}
		return ""
	}

	res := pageMeta{
		title:       firstNonEmpty(attr(`meta[property="og:title"]`), strings.TrimSpace(doc.Find("title").First().Text())),
		author:      attr(`meta[name="author"]`, `meta[property="article:author"]`),
		description: attr(`meta[name="description"]`, `meta[property="og:description"]`),
	}

	for _, sel := range []string{`meta[name="keywords"]`, `meta[name="news_keywords"]`} {
		for _, kw := range strings.Split(attr(sel), ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				res.keywords = append(res.keywords, kw)
			}
		}
	}
	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
			res.keywords = append(res.keywords, v)
		}
	})

	if ts := attr(`meta[property="article:published_time"]`, `meta[name="pubdate"]`); ts != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", domain.DateLayout} {
			if t, err := time.Parse(layout, ts); err == nil {
				res.published = t
				break
			}
		}
	}
	return res
}

// splitAuthors splits a joined author string, dropping "by" prefixes and duplicates
func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' || r == '|' })
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 3 && strings.EqualFold(p[:3], "by ") {
			p = strings.TrimSpace(p[3:])
		}
		if p != "" {
			res = append(res, p)
		}
	}
	return dedupe(res)
}

func dedupe(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(vals))
	res := make([]string, 0, len(vals))
	for _, v := range vals {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		res = append(res, v)
	}
	return res
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
