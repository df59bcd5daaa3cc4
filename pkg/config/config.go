package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// supported search providers
const (
	SearchNewsData = "newsdata"
	SearchRSS      = "rss"
)

// supported analysis providers
const (
	AnalysisFabric = "fabric"
	AnalysisOpenAI = "openai"
)

// Config holds the application configuration
type Config struct {
	Files      FilesConfig      `yaml:"files" json:"files" jsonschema:"description=Dataset file locations"`
	Search     SearchConfig     `yaml:"search" json:"search" jsonschema:"description=News search configuration"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Content extraction configuration"`
	Analysis   AnalysisConfig   `yaml:"analysis" json:"analysis" jsonschema:"description=Article analysis configuration"`
	History    HistoryConfig    `yaml:"history" json:"history" jsonschema:"description=Run archive configuration"`
	Workers    int              `yaml:"workers" json:"workers" jsonschema:"default=1,minimum=1,description=Articles processed concurrently"`
}

// FilesConfig holds dataset locations
type FilesConfig struct {
	Keywords string `yaml:"keywords" json:"keywords" jsonschema:"default=keywords.csv,description=Keyword list"`
	Articles string `yaml:"articles" json:"articles" jsonschema:"default=grcdata.csv,description=Append-only article dataset"`
	URLs     string `yaml:"urls" json:"urls" jsonschema:"default=urls.csv,description=URL list, overwritten each run"`
	Rated    string `yaml:"rated" json:"rated" jsonschema:"default=grcdata_rated.csv,description=Rated dataset, overwritten each run"`
}

// SearchConfig holds news search settings
type SearchConfig struct {
	Provider string        `yaml:"provider" json:"provider" jsonschema:"default=newsdata,enum=newsdata,enum=rss,description=Search provider"`
	Endpoint string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=Search API endpoint (provider default if empty)"`
	APIKey   string        `yaml:"api_key" json:"api_key" jsonschema:"description=NewsData.io API key (can use environment variable)"`
	Category string        `yaml:"category" json:"category" jsonschema:"default=technology,description=News category"`
	Language string        `yaml:"language" json:"language" jsonschema:"default=en,description=News language"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Search request timeout"`
}

// ExtractionConfig holds content extraction settings
type ExtractionConfig struct {
	Timeout          time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per article"`
	UserAgent        string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Mozilla/5.0 (compatible; GRCNews/1.0),description=User agent for HTTP requests"`
	SummarySentences int           `yaml:"summary_sentences" json:"summary_sentences" jsonschema:"default=5,minimum=1,description=Sentences in generated summary"`
	MaxKeywords      int           `yaml:"max_keywords" json:"max_keywords" jsonschema:"default=10,minimum=1,description=Keywords extracted from article text"`
}

// AnalysisConfig holds settings of the rating tool
type AnalysisConfig struct {
	Provider string        `yaml:"provider" json:"provider" jsonschema:"default=fabric,enum=fabric,enum=openai,description=Analysis provider"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Analysis timeout per article"`
	Fabric   FabricConfig  `yaml:"fabric" json:"fabric" jsonschema:"description=Fabric command settings"`
	OpenAI   OpenAIConfig  `yaml:"openai" json:"openai" jsonschema:"description=OpenAI-compatible API settings"`
}

// FabricConfig holds fabric command settings
type FabricConfig struct {
	Command string `yaml:"command" json:"command" jsonschema:"default=fabric,description=Fabric executable"`
	Pattern string `yaml:"pattern" json:"pattern" jsonschema:"default=label_and_rate,description=Fabric pattern used for rating"`
}

// OpenAIConfig holds OpenAI-compatible API settings
type OpenAIConfig struct {
	Endpoint     string  `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey       string  `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string  `yaml:"model" json:"model" jsonschema:"default=gpt-4o-mini,description=Model name"`
	Temperature  *float64 `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens    int     `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=1000,description=Maximum tokens in response"`
	SystemPrompt string  `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt (optional)"`
	UseJSONMode  bool    `yaml:"use_json_mode" json:"use_json_mode" jsonschema:"default=false,description=Use JSON response format (not all models support this)"`
}

// HistoryConfig holds run archive settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Archive rated records to SQLite"`
	DSN     string `yaml:"dsn" json:"dsn" jsonschema:"default=file:grcnews.db?cache=shared&mode=rwc,description=Database connection string"`
}

// Load reads configuration from a YAML file, empty path gives the defaults
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// expand environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults fills all unset values
func (c *Config) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = 1
	}

	// set defaults for files
	if c.Files.Keywords == "" {
		c.Files.Keywords = "keywords.csv"
	}
	if c.Files.Articles == "" {
		c.Files.Articles = "grcdata.csv"
	}
	if c.Files.URLs == "" {
		c.Files.URLs = "urls.csv"
	}
	if c.Files.Rated == "" {
		c.Files.Rated = "grcdata_rated.csv"
	}

	// set defaults for search
	if c.Search.Provider == "" {
		c.Search.Provider = SearchNewsData
	}
	if c.Search.Category == "" {
		c.Search.Category = "technology"
	}
	if c.Search.Language == "" {
		c.Search.Language = "en"
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = 30 * time.Second
	}

	// set defaults for extraction
	if c.Extraction.Timeout == 0 {
		c.Extraction.Timeout = 30 * time.Second
	}
	if c.Extraction.UserAgent == "" {
		c.Extraction.UserAgent = "Mozilla/5.0 (compatible; GRCNews/1.0)"
	}
	if c.Extraction.SummarySentences == 0 {
		c.Extraction.SummarySentences = 5
	}
	if c.Extraction.MaxKeywords == 0 {
		c.Extraction.MaxKeywords = 10
	}

	// set defaults for analysis
	if c.Analysis.Provider == "" {
		c.Analysis.Provider = AnalysisFabric
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 30 * time.Second
	}
	if c.Analysis.Fabric.Command == "" {
		c.Analysis.Fabric.Command = "fabric"
	}
	if c.Analysis.Fabric.Pattern == "" {
		c.Analysis.Fabric.Pattern = "label_and_rate"
	}
	if c.Analysis.OpenAI.Model == "" {
		c.Analysis.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Analysis.OpenAI.Temperature == nil {
		temperature := 0.3
		c.Analysis.OpenAI.Temperature = &temperature
	}
	if c.Analysis.OpenAI.MaxTokens == 0 {
		c.Analysis.OpenAI.MaxTokens = 1000
	}

	// set defaults for history
	if c.History.DSN == "" {
		c.History.DSN = "file:grcnews.db?cache=shared&mode=rwc"
	}
}

// Validate checks configuration for correctness. Credentials are not checked here,
// they may come from the environment after the file is loaded.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	switch c.Search.Provider {
	case SearchNewsData, SearchRSS:
	default:
		return fmt.Errorf("unknown search provider %q", c.Search.Provider)
	}
	if c.Search.Timeout < time.Second {
		return fmt.Errorf("search timeout must be at least 1 second")
	}

	if c.Extraction.Timeout < time.Second {
		return fmt.Errorf("extraction timeout must be at least 1 second")
	}
	if c.Extraction.SummarySentences < 1 {
		return fmt.Errorf("extraction summary_sentences must be at least 1")
	}
	if c.Extraction.MaxKeywords < 1 {
		return fmt.Errorf("extraction max_keywords must be at least 1")
	}

	switch c.Analysis.Provider {
	case AnalysisFabric:
	case AnalysisOpenAI:
		if t := c.Analysis.OpenAI.Temperature; t != nil && (*t < 0 || *t > 2) {
			return fmt.Errorf("analysis.openai.temperature must be between 0 and 2")
		}
	default:
		return fmt.Errorf("unknown analysis provider %q", c.Analysis.Provider)
	}
	if c.Analysis.Timeout < time.Second {
		return fmt.Errorf("analysis timeout must be at least 1 second")
	}

	return nil
}
