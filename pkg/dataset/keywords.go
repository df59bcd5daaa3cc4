// Package dataset implements the CSV files of a run: the keyword list, the append-only
// article dataset, the url list and the rated dataset.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// ErrNoKeywords is returned when the keyword source has no usable values
var ErrNoKeywords = errors.New("no keywords found")

// ReadKeywords loads search terms from the first column of a CSV file.
// Values are percent-decoded and trimmed, empty ones are skipped.
func ReadKeywords(path string) ([]string, error) {
	fh, err := os.Open(path) //nolint:gosec // path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("open keywords %s: %w", path, err)
	}
	defer fh.Close()

	keywords, err := parseKeywords(fh)
	if err != nil {
		return nil, fmt.Errorf("read keywords %s: %w", path, err)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoKeywords)
	}
	return keywords, nil
}

func parseKeywords(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may carry extra columns, only the first one is used
	reader.LazyQuotes = true    // bare quotes are kept as part of the keyword

	var res []string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		kw := rec[0]
		if decoded, decErr := url.PathUnescape(kw); decErr == nil {
			kw = decoded
		}
		if kw = strings.TrimSpace(kw); kw != "" {
			res = append(res, kw)
		}
	}
	return res, nil
}
