// Package history archives pipeline runs and their rated records in SQLite.
// The CSV datasets are overwritten each run, the archive keeps every run.
package history

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/umputun/grcnews/pkg/domain"
)

//go:embed schema.sql
var schema string

// Store is SQLite-backed run archive
type Store struct {
	db *sqlx.DB
}

// Config represents database configuration
type Config struct {
	DSN          string
	MaxOpenConns int
}

// Run is an archived pipeline run
type Run struct {
	ID         int64      `db:"id"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Keywords   string     `db:"keywords"`
	Articles   int        `db:"articles"`
	Extracted  int        `db:"extracted"`
	Analyzed   int        `db:"analyzed"`
	Rated      int        `db:"rated"`
}

// ratedRow is rated_articles table row
type ratedRow struct {
	RunID                   int64  `db:"run_id"`
	ArticleID               string `db:"article_id"`
	Date                    string `db:"date"`
	Keyword                 string `db:"keyword"`
	Title                   string `db:"title"`
	Description             string `db:"description"`
	URL                     string `db:"url"`
	OneSentenceSummary      string `db:"one_sentence_summary"`
	Labels                  string `db:"labels"`
	Rating                  string `db:"rating"`
	RatingExplanation       string `db:"rating_explanation"`
	QualityScore            string `db:"quality_score"`
	QualityScoreExplanation string `db:"quality_score_explanation"`
}

// New opens the archive and makes sure schema exists
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:grcnews.db?cache=shared&mode=rwc"
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000", // 5 second timeout for locks
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the beginning of a run and returns its id
func (s *Store) StartRun(ctx context.Context, keywords []string) (int64, error) {
	var runID int64
	err := s.retry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "INSERT INTO runs (started_at, keywords) VALUES (?, ?)",
			time.Now().UTC(), strings.Join(keywords, ", "))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if runID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("get run id: %w", err)
		}
		return nil
	})
	return runID, err
}

// SaveRated stores rated records of a run in a single transaction.
// Saving the same article twice for a run replaces the previous record.
func (s *Store) SaveRated(ctx context.Context, runID int64, records []domain.RatedRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO rated_articles (run_id, article_id, date, keyword, title, description, url,
			one_sentence_summary, labels, rating, rating_explanation, quality_score, quality_score_explanation)
		VALUES (:run_id, :article_id, :date, :keyword, :title, :description, :url,
			:one_sentence_summary, :labels, :rating, :rating_explanation, :quality_score, :quality_score_explanation)
		ON CONFLICT(run_id, article_id) DO UPDATE SET
			one_sentence_summary = excluded.one_sentence_summary, labels = excluded.labels, rating = excluded.rating,
			rating_explanation = excluded.rating_explanation, quality_score = excluded.quality_score,
			quality_score_explanation = excluded.quality_score_explanation`

	err := s.retry(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		for _, rec := range records {
			if _, err := tx.NamedExecContext(ctx, query, toRow(runID, rec)); err != nil {
				return fmt.Errorf("insert rated article %s: %w", rec.URL, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
	return err
}

// FinishRun stores run counters and finish time
func (s *Store) FinishRun(ctx context.Context, runID int64, stats domain.RunStats) error {
	err := s.retry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at = ?, articles = ?, extracted = ?, analyzed = ?, rated = ?
			WHERE id = ?`, time.Now().UTC(), stats.Articles, stats.Extracted, stats.Analyzed, stats.Rated, runID)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		return nil
	})
	return err
}

// Runs returns the most recent runs, newest first
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, "SELECT * FROM runs ORDER BY id DESC LIMIT ?", limit); err != nil {
		return nil, fmt.Errorf("get runs: %w", err)
	}
	return runs, nil
}

// Rated returns rated records archived for a run, in insertion order
func (s *Store) Rated(ctx context.Context, runID int64) ([]domain.RatedRecord, error) {
	var rows []ratedRow
	err := s.db.SelectContext(ctx, &rows, `SELECT run_id, article_id, date, keyword, title, description, url,
			one_sentence_summary, labels, rating, rating_explanation, quality_score, quality_score_explanation
		FROM rated_articles WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("get rated articles: %w", err)
	}

	res := make([]domain.RatedRecord, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.RatedRecord{
			Article: domain.Article{ID: r.ArticleID, Date: r.Date, Keyword: r.Keyword,
				Headline: r.Title, Description: r.Description, URL: r.URL},
			OneSentenceSummary:      r.OneSentenceSummary,
			Labels:                  r.Labels,
			Rating:                  r.Rating,
			RatingExplanation:       r.RatingExplanation,
			QualityScore:            r.QualityScore,
			QualityScoreExplanation: r.QualityScoreExplanation,
		})
	}
	return res, nil
}

// retry repeats fn with backoff while it fails on SQLite lock errors,
// any other error stops retrying and is returned as is
func (s *Store) retry(ctx context.Context, fn func() error) error {
	var critical error
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		err := fn()
		if err == nil || isLockError(err) {
			return err // repeater will retry lock errors
		}
		critical = err
		return nil
	})
	if critical != nil {
		return critical
	}
	return err
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}

func toRow(runID int64, rec domain.RatedRecord) ratedRow {
	return ratedRow{
		RunID:                   runID,
		ArticleID:               rec.ID,
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
