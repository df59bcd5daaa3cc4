package domain

import (
	"strings"
	"time"
)

// NotFound is rendered in place of extracted fields the page did not provide
const NotFound = "Not Found"

// DateLayout is the format of Article.Date
const DateLayout = "2006-01-02"

// Article represents a single news search hit
type Article struct {
	ID          string // join key between the article and its analysis
	Date        string // date the search was performed, not the publish date
	Keyword     string
	Headline    string
	Description string
	URL         string
}

// Valid reports whether all persisted fields are set
func (a Article) Valid() bool {
	return a.Date != "" && a.Keyword != "" && a.Headline != "" && a.Description != "" && a.URL != ""
}

// Row returns the article as an article dataset row
func (a Article) Row() []string {
	return []string{a.Date, a.Keyword, a.Headline, a.Description, a.URL}
}

// ExtractedContent represents parsed content of the page behind an article.
// Empty values mean the page did not provide the field, use Rendered to get the
// serialized form with NotFound sentinels.
type ExtractedContent struct {
	Title       string
	Authors     []string
	Keywords    []string
	Summary     string
	Text        string
	PublishDate time.Time
	URL         string
}

// Rendered returns a copy with absent scalar fields set to NotFound and nil lists set to empty ones
func (c ExtractedContent) Rendered() ExtractedContent {
	res := ExtractedContent{
		Title:       orNotFound(c.Title),
		Authors:     append([]string{}, c.Authors...),
		Keywords:    append([]string{}, c.Keywords...),
		Summary:     orNotFound(c.Summary),
		Text:        orNotFound(c.Text),
		PublishDate: c.PublishDate,
		URL:         c.URL,
	}
	return res
}

// PublishDateString returns the publish date in ISO-8601 or NotFound
func (c ExtractedContent) PublishDateString() string {
	if c.PublishDate.IsZero() {
		return NotFound
	}
	return c.PublishDate.Format(time.RFC3339)
}

// AnalysisResult represents the rating tool output for one article
type AnalysisResult struct {
	OneSentenceSummary      string
	Labels                  string
	Rating                  string
	RatingExplanation       []string
	QualityScore            string
	QualityScoreExplanation []string
}

// RatedRecord is the final joined row of an article and its analysis
type RatedRecord struct {
	Article
	OneSentenceSummary      string
	Labels                  string
	Rating                  string
	RatingExplanation       string
	QualityScore            string
	QualityScoreExplanation string
}

// explanationSeparator joins list-valued analysis fields
const explanationSeparator = "; "

// NewRatedRecord joins article with analysis, nil analysis leaves analysis fields empty
func NewRatedRecord(a Article, res *AnalysisResult) RatedRecord {
	rec := RatedRecord{Article: a}
	if res == nil {
		return rec
	}
	rec.OneSentenceSummary = res.OneSentenceSummary
	rec.Labels = res.Labels
	rec.Rating = res.Rating
	rec.RatingExplanation = strings.Join(res.RatingExplanation, explanationSeparator)
	rec.QualityScore = res.QualityScore
	rec.QualityScoreExplanation = strings.Join(res.QualityScoreExplanation, explanationSeparator)
	return rec
}

// Row returns the record as a rated dataset row
func (r RatedRecord) Row() []string {
	return append(r.Article.Row(), r.OneSentenceSummary, r.Labels, r.Rating,
		r.RatingExplanation, r.QualityScore, r.QualityScoreExplanation)
}

func orNotFound(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotFound
	}
	return s
}

// RunStats summarizes a pipeline run
type RunStats struct {
	Keywords  int // keywords searched
	Articles  int // articles returned by search
	Valid     int // articles passing validity check
	Extracted int // articles with extracted content
	Analyzed  int // articles with analysis result
	Rated     int // records in rated dataset
}
