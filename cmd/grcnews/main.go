package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/subosito/gotenv"

	"github.com/umputun/grcnews/pkg/analysis"
	"github.com/umputun/grcnews/pkg/config"
	"github.com/umputun/grcnews/pkg/content"
	"github.com/umputun/grcnews/pkg/dataset"
	"github.com/umputun/grcnews/pkg/history"
	"github.com/umputun/grcnews/pkg/pipeline"
	"github.com/umputun/grcnews/pkg/search"
	"github.com/umputun/grcnews/server"
)

// Opts with all CLI options
type Opts struct {
	Config  string `short:"c" long:"config" env:"CONFIG" description:"configuration file"`
	EnvFile string `long:"env-file" env:"ENV_FILE" default:".env" description:"file with environment variables"`
	APIKey  string `long:"api-key" env:"NEWSDATA_API_KEY" description:"NewsData.io API key"`
	Workers int    `short:"w" long:"workers" env:"WORKERS" description:"articles processed concurrently"`

	Files struct {
		Keywords string `long:"keywords" env:"KEYWORDS" description:"keyword list"`
		Articles string `long:"articles" env:"ARTICLES" description:"article dataset, appended"`
		URLs     string `long:"urls" env:"URLS" description:"url list, overwritten"`
		Rated    string `long:"rated" env:"RATED" description:"rated dataset, overwritten"`
	} `group:"files" namespace:"file" env-namespace:"FILE"`

	Runs   int    `long:"runs" description:"show last N archived runs and exit"`
	Listen string `long:"listen" env:"LISTEN" description:"serve run archive on this address instead of running the pipeline"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	envErr := loadEnv(&opts)
	setupLog(opts.Debug, opts.NoColor, opts.APIKey)
	if envErr != nil {
		log.Printf("[WARN] %v", envErr)
	}

	log.Printf("[INFO] starting grcnews version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
	log.Print("[INFO] completed")
}

// loadEnv loads env file without overriding variables already set.
// flags parser reads env before the file is loaded, so the api key is picked up here.
func loadEnv(opts *Opts) error {
	if opts.EnvFile != "" {
		if err := gotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("NEWSDATA_API_KEY")
	}
	return nil
}

func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cfg, opts)
	// keys may come from the config file, mask them too
	setupLog(opts.Debug, opts.NoColor, cfg.Search.APIKey, cfg.Analysis.OpenAI.APIKey)

	if opts.Runs > 0 {
		return showRuns(ctx, cfg, opts.Runs)
	}
	if opts.Listen != "" {
		return serveArchive(ctx, cfg, opts)
	}

	keywords, err := dataset.ReadKeywords(cfg.Files.Keywords)
	if err != nil {
		return fmt.Errorf("failed to read keywords: %w", err)
	}
	log.Printf("[INFO] loaded %d keywords from %s", len(keywords), cfg.Files.Keywords)

	searcher, err := makeSearcher(cfg)
	if err != nil {
		return fmt.Errorf("failed to make search client: %w", err)
	}
	analyzer, err := makeAnalyzer(cfg)
	if err != nil {
		return fmt.Errorf("failed to make analyzer: %w", err)
	}

	params := pipeline.Params{
		Searcher: searcher,
		Extractor: content.NewHTTPExtractor(content.Params{
			Timeout:          cfg.Extraction.Timeout,
			UserAgent:        cfg.Extraction.UserAgent,
			SummarySentences: cfg.Extraction.SummarySentences,
			MaxKeywords:      cfg.Extraction.MaxKeywords,
		}),
		Analyzer: analyzer,
		Logger:   lgr.Std,
		Files: pipeline.Files{
			Articles: cfg.Files.Articles,
			URLs:     cfg.Files.URLs,
			Rated:    cfg.Files.Rated,
		},
		Category: cfg.Search.Category,
		Language: cfg.Search.Language,
		Workers:  cfg.Workers,
	}

	if cfg.History.Enabled {
		store, err := history.New(ctx, history.Config{DSN: cfg.History.DSN})
		if err != nil {
			log.Printf("[ERROR] failed to open run archive, runs are not archived: %v", err)
		} else {
			defer store.Close()
			params.Archiver = store
		}
	}

	if _, err := pipeline.New(params).Run(ctx, keywords); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// applyOverrides sets values passed on command line over the config file ones
func applyOverrides(cfg *config.Config, opts Opts) {
	if opts.APIKey != "" {
		cfg.Search.APIKey = opts.APIKey
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.Files.Keywords != "" {
		cfg.Files.Keywords = opts.Files.Keywords
	}
	if opts.Files.Articles != "" {
		cfg.Files.Articles = opts.Files.Articles
	}
	if opts.Files.URLs != "" {
		cfg.Files.URLs = opts.Files.URLs
	}
	if opts.Files.Rated != "" {
		cfg.Files.Rated = opts.Files.Rated
	}
}

func makeSearcher(cfg *config.Config) (pipeline.Searcher, error) {
	switch cfg.Search.Provider {
	case config.SearchRSS:
		log.Printf("[DEBUG] using rss search")
		return search.NewRSS(cfg.Search.Endpoint, cfg.Search.Timeout), nil
	default:
		log.Printf("[DEBUG] using newsdata search")
		nd, err := search.NewNewsData(search.NewsDataParams{
			Endpoint: cfg.Search.Endpoint,
			APIKey:   cfg.Search.APIKey,
			Timeout:  cfg.Search.Timeout,
		})
		if err != nil {
			if errors.Is(err, search.ErrMissingAPIKey) {
				return nil, fmt.Errorf("%w, set NEWSDATA_API_KEY in environment or .env file", err)
			}
			return nil, err
		}
		return nd, nil
	}
}

func makeAnalyzer(cfg *config.Config) (pipeline.Analyzer, error) {
	switch cfg.Analysis.Provider {
	case config.AnalysisOpenAI:
		oc := cfg.Analysis.OpenAI
		if oc.APIKey == "" {
			return nil, errors.New("openai api key is missing")
		}
		log.Printf("[DEBUG] using openai analyzer, model %s", oc.Model)
		return analysis.NewOpenAI(analysis.OpenAIParams{
			Endpoint:     oc.Endpoint,
			APIKey:       oc.APIKey,
			Model:        oc.Model,
			Temperature:  deref(oc.Temperature),
			MaxTokens:    oc.MaxTokens,
			SystemPrompt: oc.SystemPrompt,
			UseJSONMode:  oc.UseJSONMode,
			Timeout:      cfg.Analysis.Timeout,
		}), nil
	default:
		log.Printf("[DEBUG] using fabric analyzer, pattern %s", cfg.Analysis.Fabric.Pattern)
		return analysis.NewFabric(analysis.FabricParams{
			Command: cfg.Analysis.Fabric.Command,
			Pattern: cfg.Analysis.Fabric.Pattern,
			Timeout: cfg.Analysis.Timeout,
		}), nil
	}
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

// showRuns prints archived runs, newest first
func showRuns(ctx context.Context, cfg *config.Config, limit int) error {
	store, err := history.New(ctx, history.Config{DSN: cfg.History.DSN})
	if err != nil {
		return fmt.Errorf("failed to open run archive: %w", err)
	}
	defer store.Close()

	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to get runs: %w", err)
	}
	for _, r := range runs {
		finished := "unfinished"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("#%d %s (%s) keywords: %s, articles: %d, extracted: %d, analyzed: %d, rated: %d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), finished, r.Keywords, r.Articles, r.Extracted, r.Analyzed, r.Rated)
	}
	return nil
}

// serveArchive runs http server with archived runs until ctx is canceled
func serveArchive(ctx context.Context, cfg *config.Config, opts Opts) error {
	store, err := history.New(ctx, history.Config{DSN: cfg.History.DSN})
	if err != nil {
		return fmt.Errorf("failed to open run archive: %w", err)
	}
	defer store.Close()

	srv := server.New(server.Config{Listen: opts.Listen, Version: revision, Debug: opts.Debug}, store)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if noColor {
		color.NoColor = true
	} else {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	var nonEmpty []string
	for _, s := range secs {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
