// Package analysis rates extracted articles with an external label-and-rate tool.
// Two implementations are provided: Fabric runs the fabric command line tool,
// OpenAI calls an OpenAI-compatible chat completion API with the same rating instructions.
package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/umputun/grcnews/pkg/domain"
)

// ErrNoJSON is returned when the tool output has no JSON object
var ErrNoJSON = errors.New("no json object found in response")

// FormatBlock renders the content as the plain-text input of the rating tool
func FormatBlock(c *domain.ExtractedContent) string {
	r := c.Rendered()
	authors := domain.NotFound
	if len(r.Authors) > 0 {
		authors = strings.Join(r.Authors, ", ")
	}

	var sb strings.Builder
	sb.WriteString("Title: " + r.Title + "\n")
	sb.WriteString("Authors: " + authors + "\n")
	sb.WriteString("Keywords: " + strings.Join(r.Keywords, ", ") + "\n")
	sb.WriteString("Summary: " + r.Summary + "\n")
	sb.WriteString("URL: " + r.URL + "\n")
	return sb.String()
}

// ParseResult decodes the rating tool output. The JSON object may be wrapped in markdown
// fences or prose, the first complete object is used.
func ParseResult(raw []byte) (*domain.AnalysisResult, error) {
	obj, err := findObject(raw)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OneSentenceSummary      flexString `json:"one-sentence-summary"`
		Labels                  flexLabels `json:"labels"`
		Rating                  flexString `json:"rating"`
		RatingExplanation       flexList   `json:"rating-explanation"`
		QualityScore            flexString `json:"quality-score"`
		QualityScoreExplanation flexList   `json:"quality-score-explanation"`
	}
	if err := json.Unmarshal(obj, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse json response: %w", err)
	}

	return &domain.AnalysisResult{
		OneSentenceSummary:      string(resp.OneSentenceSummary),
		Labels:                  string(resp.Labels),
		Rating:                  string(resp.Rating),
		RatingExplanation:       resp.RatingExplanation,
		QualityScore:            string(resp.QualityScore),
		QualityScoreExplanation: resp.QualityScoreExplanation,
	}, nil
}

// findObject returns the first '{' candidate of raw decoding as a JSON object.
// Braces in surrounding prose are skipped, the error of the first candidate is reported if none decodes.
func findObject(raw []byte) (json.RawMessage, error) {
	var firstErr error
	for i := 0; i < len(raw); i++ {
		idx := bytes.IndexByte(raw[i:], '{')
		if idx == -1 {
			break
		}
		i += idx
		var obj json.RawMessage
		err := json.NewDecoder(bytes.NewReader(raw[i:])).Decode(&obj)
		if err == nil {
			return obj, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		return nil, ErrNoJSON
	}
	return nil, fmt.Errorf("failed to parse json response: %w", firstErr)
}

// flexString accepts a JSON string, number or bool
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s, err := scalarString(data)
	if err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

// flexLabels accepts a string or a list of strings, lists are joined with ", "
type flexLabels string

func (f *flexLabels) UnmarshalJSON(data []byte) error {
	var list flexList
	if err := list.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexLabels(strings.Join(list, ", "))
	return nil
}

// flexList accepts a list of scalars or a single scalar
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		s, err := scalarString(data)
		if err != nil {
			return err
		}
		if s == "" {
			*f = nil
			return nil
		}
		*f = flexList{s}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	res := make([]string, 0, len(items))
	for _, it := range items {
		s, err := scalarString(it)
		if err != nil {
			return err
		}
		if s != "" {
			res = append(res, s)
		}
	}
	*f = res
	return nil
}

// scalarString renders a JSON scalar as text, numbers keep their shortest form
func scalarString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case '{', '[':
		return "", fmt.Errorf("unexpected json value %s", string(data))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
}
