package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/umputun/grcnews/pkg/domain"
)

// RatedHeader is the header of the rated dataset
var RatedHeader = []string{
	"date", "keyword", "title", "description", "url",
	"one-sentence-summary", "labels", "rating",
	"rating-explanation", "quality-score", "quality-score-explanation",
}

// BuildRated joins articles with their analyses, keyed by article ID.
// Invalid articles are skipped, every other article yields exactly one record in input order,
// with empty analysis fields if there is no analysis for it.
func BuildRated(articles []domain.Article, analyses map[string]*domain.AnalysisResult) []domain.RatedRecord {
	res := make([]domain.RatedRecord, 0, len(articles))
	for _, a := range articles {
		if !a.Valid() {
			continue
		}
		res = append(res, domain.NewRatedRecord(a, analyses[a.ID]))
	}
	return res
}

// WriteRated overwrites the rated dataset at path
func WriteRated(records []domain.RatedRecord, path string) error {
	fh, err := os.Create(path) //nolint:gosec // path comes from config
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeRated(fh, records); err != nil {
		_ = fh.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// EncodeRated writes header and records as csv to w
func EncodeRated(w io.Writer, records []domain.RatedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RatedHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return fmt.Errorf("write record %s: %w", rec.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
