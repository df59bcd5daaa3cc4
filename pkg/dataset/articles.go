package dataset

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/umputun/grcnews/pkg/domain"
)

// ArticlesHeader is the header of the article dataset
var ArticlesHeader = []string{"date", "keyword", "title", "description", "url"}

// AppendArticles appends valid articles to the article dataset at path.
// The header is written only when the file is missing or empty, existing rows are never touched.
func AppendArticles(articles []domain.Article, path string) (int, error) {
	writeHeader := false
	st, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		writeHeader = true
	case err != nil:
		return 0, fmt.Errorf("stat %s: %w", path, err)
	case st.Size() == 0:
		writeHeader = true
	}

	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // dataset is not sensitive
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}

	w := csv.NewWriter(fh)
	if writeHeader {
		if err := w.Write(ArticlesHeader); err != nil {
			_ = fh.Close()
			return 0, fmt.Errorf("write header to %s: %w", path, err)
		}
	}

	written := 0
	for _, a := range articles {
		if !a.Valid() {
			continue
		}
		if err := w.Write(a.Row()); err != nil {
			_ = fh.Close()
			return written, fmt.Errorf("write article to %s: %w", path, err)
		}
		written++
	}

	if err := flushClose(w, fh); err != nil {
		return written, fmt.Errorf("write %s: %w", path, err)
	}
	return written, nil
}

// WriteURLs replaces the url list at path with one url per valid article
func WriteURLs(articles []domain.Article, path string) (int, error) {
	fh, err := os.Create(path) //nolint:gosec // path comes from config
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(fh)
	written := 0
	for _, a := range articles {
		if !a.Valid() {
			continue
		}
		if err := w.Write([]string{a.URL}); err != nil {
			_ = fh.Close()
			return written, fmt.Errorf("write url to %s: %w", path, err)
		}
		written++
	}

	if err := flushClose(w, fh); err != nil {
		return written, fmt.Errorf("write %s: %w", path, err)
	}
	return written, nil
}

func flushClose(w *csv.Writer, fh *os.File) error {
	w.Flush()
	if err := w.Error(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}
