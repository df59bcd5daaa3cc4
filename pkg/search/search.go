// Package search queries news search services and maps hits to articles
package search

import (
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/grcnews/pkg/domain"
)

// Request describes a single keyword search
type Request struct {
	Keyword  string
	Category string
	Language string
	Date     time.Time // stamped into every article, the client clock is used if zero
}

// hit is a provider-neutral search result item
type hit struct {
	Title       string
	Description string
	Link        string
}

var textPolicy = bluemonday.StrictPolicy()

// plainText removes markup from search result fields, some providers return html snippets
func plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// toArticles maps hits to articles, keeping incomplete hits for later validity filtering
func toArticles(req Request, hits []hit, now func() time.Time) []domain.Article {
	date := req.Date
	if date.IsZero() {
		date = now()
	}
	stamp := date.Format(domain.DateLayout)

	res := make([]domain.Article, 0, len(hits))
	for _, h := range hits {
		res = append(res, domain.Article{
			ID:          uuid.NewString(),
			Date:        stamp,
			Keyword:     req.Keyword,
			Headline:    plainText(h.Title),
			Description: plainText(h.Description),
			URL:         strings.TrimSpace(h.Link),
		})
	}
	return res
}
