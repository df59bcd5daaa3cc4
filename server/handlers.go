package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/rest"

	"github.com/umputun/grcnews/pkg/dataset"
	"github.com/umputun/grcnews/pkg/domain"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// runResponse is archived run in api responses
type runResponse struct {
	ID         int64      `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Keywords   string     `json:"keywords"`
	Articles   int        `json:"articles"`
	Extracted  int        `json:"extracted"`
	Analyzed   int        `json:"analyzed"`
	Rated      int        `json:"rated"`
}

// ratedResponse is rated article in api responses, keys follow the rated dataset header
type ratedResponse struct {
	ID                      string `json:"id"`
	Date                    string `json:"date"`
	Keyword                 string `json:"keyword"`
	Title                   string `json:"title"`
	Description             string `json:"description"`
	URL                     string `json:"url"`
	OneSentenceSummary      string `json:"one-sentence-summary"`
	Labels                  string `json:"labels"`
	Rating                  string `json:"rating"`
	RatingExplanation       string `json:"rating-explanation"`
	QualityScore            string `json:"quality-score"`
	QualityScoreExplanation string `json:"quality-score-explanation"`
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	rest.RenderJSON(w, rest.JSON{"status": "ok", "version": s.Version, "time": time.Now().UTC()})
}

// runsHandler returns recent runs, newest first. GET /api/v1/runs?limit=N
func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			renderError(w, fmt.Errorf("invalid limit %q", l), http.StatusBadRequest)
			return
		}
		limit = min(v, maxRunsLimit)
	}

	runs, err := s.archive.Runs(r.Context(), limit)
	if err != nil {
		log.Printf("[ERROR] failed to get runs: %v", err)
		renderError(w, errors.New("failed to get runs"), http.StatusInternalServerError)
		return
	}

	res := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		res = append(res, runResponse{ID: run.ID, StartedAt: run.StartedAt, FinishedAt: run.FinishedAt,
			Keywords: run.Keywords, Articles: run.Articles, Extracted: run.Extracted, Analyzed: run.Analyzed, Rated: run.Rated})
	}
	rest.RenderJSON(w, res)
}

// ratedHandler returns rated articles of a run. GET /api/v1/runs/{id}/rated
func (s *Server) ratedHandler(w http.ResponseWriter, r *http.Request) {
	records, ok := s.runRecords(w, r)
	if !ok {
		return
	}
	res := make([]ratedResponse, 0, len(records))
	for _, rec := range records {
		res = append(res, toRatedResponse(rec))
	}
	rest.RenderJSON(w, res)
}

// ratedCSVHandler returns rated dataset of a run. GET /api/v1/runs/{id}/rated.csv
func (s *Server) ratedCSVHandler(w http.ResponseWriter, r *http.Request) {
	records, ok := s.runRecords(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=grcdata_rated_%s.csv", r.PathValue("id")))
	if err := dataset.EncodeRated(w, records); err != nil {
		log.Printf("[ERROR] failed to write rated csv: %v", err)
	}
}

// runRecords loads records of the run in path, writes error response if it can't
func (s *Server) runRecords(w http.ResponseWriter, r *http.Request) ([]domain.RatedRecord, bool) {
	runID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || runID < 1 {
		renderError(w, fmt.Errorf("invalid run id %q", r.PathValue("id")), http.StatusBadRequest)
		return nil, false
	}

	records, err := s.archive.Rated(r.Context(), runID)
	if err != nil {
		log.Printf("[ERROR] failed to get rated articles for run %d: %v", runID, err)
		renderError(w, errors.New("failed to get rated articles"), http.StatusInternalServerError)
		return nil, false
	}
	return records, true
}

func toRatedResponse(rec domain.RatedRecord) ratedResponse {
	return ratedResponse{
		ID:                      rec.ID,
		Date:                    rec.Date,
		Keyword:                 rec.Keyword,
		Title:                   rec.Headline,
		Description:             rec.Description,
		URL:                     rec.URL,
		OneSentenceSummary:      rec.OneSentenceSummary,
		Labels:                  rec.Labels,
		Rating:                  rec.Rating,
		RatingExplanation:       rec.RatingExplanation,
		QualityScore:            rec.QualityScore,
		QualityScoreExplanation: rec.QualityScoreExplanation,
	}
}
