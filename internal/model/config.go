package model

import "time"

// Config is the complete application configuration
type Config struct {
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Vector     VectorConfig     `yaml:"vector" mapstructure:"vector"`
	API        APIConfig        `yaml:"api" mapstructure:"api"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
}

// RulesConfig controls where rule packs are loaded from
type RulesConfig struct {
	// Dir is an optional directory of <framework>_rules.json files that
	// override the embedded defaults
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LLMConfig holds LLM provider settings
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds, per call
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
	// RequestsPerSecond caps calls to the provider across concurrent rules
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// NoEvidencePolicy decides the verdict for a rule with no relevant segments
type NoEvidencePolicy string

const (
	// NoEvidenceFail marks mandatory rules non_compliant and optional rules
	// not_applicable when no relevant segment exists
	NoEvidenceFail NoEvidencePolicy = "fail"
	// NoEvidenceReview marks every such rule needs_review instead
	NoEvidenceReview NoEvidencePolicy = "review"
)

// ValidationConfig controls the orchestrator
type ValidationConfig struct {
	Workers          int              `yaml:"workers" mapstructure:"workers"`                       // Concurrent per-rule LLM calls
	PromptBudget     int              `yaml:"prompt_budget" mapstructure:"prompt_budget"`           // Max characters of segment text per prompt
	MaxSegments      int              `yaml:"max_segments" mapstructure:"max_segments"`             // Relevance filter output bound
	SimilarityTopK   int              `yaml:"similarity_top_k" mapstructure:"similarity_top_k"`     // Embedding matches unioned per rule
	NoEvidencePolicy NoEvidencePolicy `yaml:"no_evidence_policy" mapstructure:"no_evidence_policy"` // fail or review
}

// CacheConfig controls verdict caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// StoreConfig locates the run/document database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite file path
}

// VectorConfig controls optional embedding search
type VectorConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	PostgresURL string `yaml:"postgres_url" mapstructure:"postgres_url"`
	OllamaHost  string `yaml:"ollama_host" mapstructure:"ollama_host"`
	EmbedModel  string `yaml:"embed_model" mapstructure:"embed_model"`
	Dimensions  int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// APIConfig controls the HTTP server
type APIConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig controls CLI report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Timeout:           60,
			MaxTokens:         1000,
			Temperature:       0.2,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Validation: ValidationConfig{
			Workers:          4,
			PromptBudget:     8000,
			MaxSegments:      5,
			SimilarityTopK:   3,
			NoEvidencePolicy: NoEvidenceFail,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "layered",
			Dir:     defaultCacheDir(),
			TTL:     24 * time.Hour,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		Vector: VectorConfig{
			Enabled:    false,
			OllamaHost: "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
			Dimensions: 768,
		},
		API: APIConfig{
			Addr: ":8080",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
