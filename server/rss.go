package server

import (
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/umputun/grcnews/pkg/domain"
)

// rss represents the root RSS 2.0 element
type rss struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	Channel *rssChannel `xml:"channel"`
}

type rssChannel struct {
	XMLName       xml.Name   `xml:"channel"`
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *atomLink  `xml:"http://www.w3.org/2005/Atom link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Categories  []string `xml:"category"`
}

// rssHandler serves rated articles of the latest run as RSS feed.
// GET /rss?min_score=N keeps articles with quality score of at least N.
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	minScore := -1.0
	if v := r.URL.Query().Get("min_score"); v != "" {
		score, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid min_score %q", v), http.StatusBadRequest)
			return
		}
		minScore = score
	}

	runs, err := s.archive.Runs(r.Context(), 1)
	if err != nil {
		log.Printf("[ERROR] failed to get runs for RSS: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	var records []domain.RatedRecord
	if len(runs) > 0 {
		if records, err = s.archive.Rated(r.Context(), runs[0].ID); err != nil {
			log.Printf("[ERROR] failed to get rated articles for RSS: %v", err)
			http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
			return
		}
	}

	feed, err := s.generateRSS(filterByScore(records, minScore), minScore)
	if err != nil {
		log.Printf("[ERROR] failed to generate RSS feed: %v", err)
		http.Error(w, "Failed to generate RSS feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(feed)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// filterByScore keeps records with numeric quality score >= minScore, negative minScore keeps all
func filterByScore(records []domain.RatedRecord, minScore float64) []domain.RatedRecord {
	if minScore < 0 {
		return records
	}
	res := make([]domain.RatedRecord, 0, len(records))
	for _, rec := range records {
		score, err := strconv.ParseFloat(strings.TrimSpace(rec.QualityScore), 64)
		if err != nil || score < minScore {
			continue
		}
		res = append(res, rec)
	}
	return res
}

func (s *Server) generateRSS(records []domain.RatedRecord, minScore float64) (string, error) {
	baseURL := strings.TrimRight(s.BaseURL, "/")
	title, desc := "GRC News", "Rated GRC news articles of the latest run"
	if minScore >= 0 {
		title = fmt.Sprintf("GRC News (Quality ≥ %s)", strconv.FormatFloat(minScore, 'f', -1, 64))
		desc = fmt.Sprintf("Rated GRC news articles of the latest run with quality score ≥ %s",
			strconv.FormatFloat(minScore, 'f', -1, 64))
	}

	items := make([]*rssItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toRSSItem(rec))
	}

	feed := &rss{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &rssChannel{
			Title:         title,
			Link:          baseURL + "/",
			Description:   desc,
			AtomLink:      &atomLink{Href: baseURL + "/rss", Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: time.Now().Format(time.RFC1123Z),
			Items:         items,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}
	return xml.Header + string(output), nil
}

func toRSSItem(rec domain.RatedRecord) *rssItem {
	title := rec.Headline
	if rec.QualityScore != "" {
		title = fmt.Sprintf("[%s] %s", rec.QualityScore, rec.Headline)
	}

	var parts []string
	if rec.Rating != "" {
		parts = append(parts, "Rating: "+rec.Rating)
	}
	if rec.OneSentenceSummary != "" {
		parts = append(parts, rec.OneSentenceSummary)
	} else {
		parts = append(parts, rec.Description)
	}

	var categories []string
	for _, l := range strings.Split(rec.Labels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			categories = append(categories, l)
		}
	}

	item := &rssItem{
		Title:       title,
		Link:        rec.URL,
		GUID:        rec.ID,
		Description: strings.Join(parts, "\n\n"),
		Categories:  categories,
	}
	if d, err := time.Parse(domain.DateLayout, rec.Date); err == nil {
		item.PubDate = d.Format(time.RFC1123Z)
	}
	return item
}
