// Package pipeline runs one pass of the news pipeline: search every keyword, persist found
// articles, extract and analyze each of them, and write the rated dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/grcnews/pkg/dataset"
	"github.com/umputun/grcnews/pkg/domain"
	"github.com/umputun/grcnews/pkg/search"
)

//go:generate moq -out mocks/searcher.go -pkg mocks -skip-ensure -fmt goimports . Searcher
//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor
//go:generate moq -out mocks/analyzer.go -pkg mocks -skip-ensure -fmt goimports . Analyzer
//go:generate moq -out mocks/archiver.go -pkg mocks -skip-ensure -fmt goimports . Archiver

// ErrNoArticles is returned when no keyword yielded any article
var ErrNoArticles = errors.New("no articles found for any keywords")

// Searcher finds articles for a keyword
type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]domain.Article, error)
}

// Extractor fetches and parses the page behind an article
type Extractor interface {
	Extract(ctx context.Context, url string) (*domain.ExtractedContent, error)
}

// Analyzer rates extracted content
type Analyzer interface {
	Analyze(ctx context.Context, c *domain.ExtractedContent) (*domain.AnalysisResult, error)
}

// Archiver keeps history of runs
type Archiver interface {
	StartRun(ctx context.Context, keywords []string) (int64, error)
	SaveRated(ctx context.Context, runID int64, records []domain.RatedRecord) error
	FinishRun(ctx context.Context, runID int64, stats domain.RunStats) error
}

// reentrant is implemented by analyzers safe for concurrent use
type reentrant interface {
	Reentrant() bool
}

// Files are dataset paths
type Files struct {
	Articles string
	URLs     string
	Rated    string
}

// Params defines pipeline dependencies and settings
type Params struct {
	Searcher  Searcher
	Extractor Extractor
	Analyzer  Analyzer
	Archiver  Archiver // optional
	Logger    lgr.L    // defaults to lgr.Std
	Files     Files
	Category  string
	Language  string
	Workers   int              // concurrent article processors, 1 if not set
	Now       func() time.Time // defaults to time.Now
}

// Pipeline is one configured news pipeline
type Pipeline struct {
	Params
	analyzeMu sync.Mutex // serializes analyzers not safe for concurrent use
}

// New makes pipeline with defaults applied
func New(p Params) *Pipeline {
	if p.Logger == nil {
		p.Logger = lgr.Std
	}
	if p.Workers < 1 {
		p.Workers = 1
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Pipeline{Params: p}
}

// Run executes the pipeline for keywords. Failures of single keywords, articles and
// dataset writes are logged and skipped, the only error is ErrNoArticles.
func (p *Pipeline) Run(ctx context.Context, keywords []string) (domain.RunStats, error) {
	stats := domain.RunStats{Keywords: len(keywords)}
	p.Logger.Logf("[INFO] starting run for %d keywords", len(keywords))

	runID := p.startRun(ctx, keywords)
	defer p.finishRun(ctx, runID, &stats)

	articles := p.searchAll(ctx, keywords)
	stats.Articles = len(articles)
	if len(articles) == 0 {
		p.Logger.Logf("[ERROR] no articles found for any keywords")
		return stats, ErrNoArticles
	}

	for _, a := range articles {
		if a.Valid() {
			stats.Valid++
		}
	}

	if n, err := dataset.AppendArticles(articles, p.Files.Articles); err != nil {
		p.Logger.Logf("[ERROR] failed to save articles to %s: %v", p.Files.Articles, err)
	} else {
		p.Logger.Logf("[INFO] saved %d articles to %s", n, p.Files.Articles)
	}
	if n, err := dataset.WriteURLs(articles, p.Files.URLs); err != nil {
		p.Logger.Logf("[ERROR] failed to save urls to %s: %v", p.Files.URLs, err)
	} else {
		p.Logger.Logf("[INFO] saved %d urls to %s", n, p.Files.URLs)
	}

	analyses, extracted := p.processAll(ctx, articles)
	stats.Extracted = extracted
	stats.Analyzed = len(analyses)

	records := dataset.BuildRated(articles, analyses)
	stats.Rated = len(records)
	if err := dataset.WriteRated(records, p.Files.Rated); err != nil {
		p.Logger.Logf("[ERROR] failed to save rated articles to %s: %v", p.Files.Rated, err)
	} else {
		p.Logger.Logf("[INFO] saved %d rated articles to %s", len(records), p.Files.Rated)
	}
	p.saveRated(ctx, runID, records)

	p.Logger.Logf("[INFO] run completed, keywords: %d, articles: %d, valid: %d, extracted: %d, analyzed: %d, rated: %d",
		stats.Keywords, stats.Articles, stats.Valid, stats.Extracted, stats.Analyzed, stats.Rated)
	return stats, nil
}

// searchAll searches keywords one by one with a single run date,
// articles are returned in keyword order
func (p *Pipeline) searchAll(ctx context.Context, keywords []string) []domain.Article {
	req := search.Request{Category: p.Category, Language: p.Language, Date: p.Now()}
	var res []domain.Article
	for _, kw := range keywords {
		if ctx.Err() != nil {
			p.Logger.Logf("[WARN] search interrupted: %v", ctx.Err())
			break
		}
		req.Keyword = kw
		p.Logger.Logf("[INFO] searching for articles about: %s", kw)
		articles, err := p.Searcher.Search(ctx, req)
		if err != nil {
			p.Logger.Logf("[WARN] search for '%s' failed: %v", kw, err)
		}
		if len(articles) == 0 {
			p.Logger.Logf("[WARN] no articles found for '%s'", kw)
			continue
		}
		p.Logger.Logf("[INFO] found %d articles for '%s'", len(articles), kw)
		res = append(res, articles...)
	}
	return res
}

// processAll extracts and analyzes valid articles with up to Workers in flight.
// Results are keyed by article ID, missing key means no analysis.
func (p *Pipeline) processAll(ctx context.Context, articles []domain.Article) (map[string]*domain.AnalysisResult, int) {
	var mu sync.Mutex
	analyses := make(map[string]*domain.AnalysisResult, len(articles))
	extracted := 0

	g := errgroup.Group{}
	g.SetLimit(p.Workers)
	for _, a := range articles {
		if !a.Valid() {
			p.Logger.Logf("[DEBUG] skip invalid article %q", a.URL)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil // canceled, nothing new is dispatched
			}
			c, res := p.process(ctx, a)
			mu.Lock()
			defer mu.Unlock()
			if c != nil {
				extracted++
			}
			if res != nil {
				analyses[a.ID] = res
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	if ctx.Err() != nil {
		p.Logger.Logf("[WARN] processing interrupted: %v", ctx.Err())
	}

	return analyses, extracted
}

// process extracts and analyzes one article, failed extraction skips analysis
func (p *Pipeline) process(ctx context.Context, a domain.Article) (*domain.ExtractedContent, *domain.AnalysisResult) {
	p.Logger.Logf("[INFO] processing: %s", a.URL)
	c, err := p.Extractor.Extract(ctx, a.URL)
	if err != nil {
		p.Logger.Logf("[WARN] failed to extract content from %s: %v", a.URL, err)
		return nil, nil
	}

	res, err := p.analyze(ctx, c)
	if err != nil {
		p.Logger.Logf("[WARN] failed to analyze %s: %v", a.URL, err)
		return c, nil
	}
	p.Logger.Logf("[DEBUG] analyzed %s, rating: %q, quality score: %q", a.URL, res.Rating, res.QualityScore)
	return c, res
}

func (p *Pipeline) analyze(ctx context.Context, c *domain.ExtractedContent) (*domain.AnalysisResult, error) {
	if r, ok := p.Analyzer.(reentrant); !ok || !r.Reentrant() {
		p.analyzeMu.Lock()
		defer p.analyzeMu.Unlock()
	}
	res, err := p.Analyzer.Analyze(ctx, c)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("empty analysis for %s", c.URL)
	}
	return res, nil
}

// startRun registers the run in archive, zero id means no archiving for this run
func (p *Pipeline) startRun(ctx context.Context, keywords []string) int64 {
	if p.Archiver == nil {
		return 0
	}
	runID, err := p.Archiver.StartRun(ctx, keywords)
	if err != nil {
		p.Logger.Logf("[ERROR] failed to start run in archive: %v", err)
		return 0
	}
	return runID
}

func (p *Pipeline) saveRated(ctx context.Context, runID int64, records []domain.RatedRecord) {
	if p.Archiver == nil || runID == 0 {
		return
	}
	if err := p.Archiver.SaveRated(context.WithoutCancel(ctx), runID, records); err != nil {
		p.Logger.Logf("[ERROR] failed to archive %d rated articles: %v", len(records), err)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, runID int64, stats *domain.RunStats) {
	if p.Archiver == nil || runID == 0 {
		return
	}
	// canceled run is archived too
	if err := p.Archiver.FinishRun(context.WithoutCancel(ctx), runID, *stats); err != nil {
		p.Logger.Logf("[ERROR] failed to finish run %d in archive: %v", runID, err)
	}
}
