// Package config handles configuration loading for graintel.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GRAINTEL_LLM_MODEL.
const EnvPrefix = "GRAINTEL"

// Config represents the complete application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"      yaml:"llm"`
	Sources  SourcesConfig  `mapstructure:"sources"  yaml:"sources"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Backtest BacktestConfig `mapstructure:"backtest" yaml:"backtest"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// LLMConfig holds the enrichment model configuration.
type LLMConfig struct {
	Primary     string  `mapstructure:"primary"      yaml:"primary"` // "openai" (any OpenAI-compatible API), "ollama" or "offline"
	APIKey      string  `mapstructure:"api_key"      yaml:"api_key"`
	BaseURL     string  `mapstructure:"base_url"     yaml:"base_url"`
	OllamaURL   string  `mapstructure:"ollama_url"   yaml:"ollama_url"`
	Model       string  `mapstructure:"model"        yaml:"model"`
	OllamaModel string  `mapstructure:"ollama_model" yaml:"ollama_model"`
	Temperature float64 `mapstructure:"temperature"  yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"   yaml:"max_tokens"`
	TimeoutSec  int     `mapstructure:"timeout_sec"  yaml:"timeout_sec"`
	Concurrency int     `mapstructure:"concurrency"  yaml:"concurrency"`
	RPM         int     `mapstructure:"rpm"          yaml:"rpm"` // requests per minute, 0 = unlimited
}

// SourcesConfig locates the news catalog and selects from it.
type SourcesConfig struct {
	Catalog    string   `mapstructure:"catalog"     yaml:"catalog"`
	Groups     []string `mapstructure:"groups"      yaml:"groups"`
	MaxSources int      `mapstructure:"max_sources" yaml:"max_sources"`
}

// PipelineConfig holds the daily run settings.
type PipelineConfig struct {
	DataDir        string `mapstructure:"data_dir"        yaml:"data_dir"`    // signals CSVs
	ReportDir      string `mapstructure:"report_dir"      yaml:"report_dir"`  // markdown + html
	FigureDir      string `mapstructure:"figure_dir"      yaml:"figure_dir"`  // svg charts
	MaxAgeDays     int    `mapstructure:"max_age_days"    yaml:"max_age_days"`
	FetchWorkers   int    `mapstructure:"fetch_workers"   yaml:"fetch_workers"`
	ScoreWorkers   int    `mapstructure:"score_workers"   yaml:"score_workers"`
	FetchTimeoutMS int    `mapstructure:"fetch_timeout_ms" yaml:"fetch_timeout_ms"`
	Schedule       string `mapstructure:"schedule"        yaml:"schedule"` // cron spec for `daily --schedule`
	ExportPDF      bool   `mapstructure:"export_pdf"      yaml:"export_pdf"` // needs wkhtmltopdf or chromium
}

// BacktestConfig holds backtest settings.
type BacktestConfig struct {
	ForwardDays int    `mapstructure:"forward_days" yaml:"forward_days"`
	SummaryPath string `mapstructure:"summary_path" yaml:"summary_path"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.graintel/config.yaml (home directory)
//  3. /etc/graintel/config.yaml (system)
//
// Environment variables override config file values.
// Format: GRAINTEL_<SECTION>_<KEY>, e.g., GRAINTEL_PIPELINE_DATA_DIR
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".graintel"))
	v.AddConfigPath("/etc/graintel")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults: Groq's OpenAI-compatible endpoint
	v.SetDefault("llm.primary", "openai")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.ollama_url", "")
	v.SetDefault("llm.ollama_model", "llama3.1:8b")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout_sec", 120)
	v.SetDefault("llm.concurrency", 2)
	v.SetDefault("llm.rpm", 30)

	// Sources defaults
	v.SetDefault("sources.catalog", "configs/sources.yaml")
	v.SetDefault("sources.groups", []string{"grains"})
	v.SetDefault("sources.max_sources", 5)

	// Pipeline defaults
	v.SetDefault("pipeline.data_dir", "data/processed")
	v.SetDefault("pipeline.report_dir", "reports")
	v.SetDefault("pipeline.figure_dir", "figures")
	v.SetDefault("pipeline.max_age_days", 180)
	v.SetDefault("pipeline.fetch_workers", 4)
	v.SetDefault("pipeline.score_workers", 0) // GOMAXPROCS
	v.SetDefault("pipeline.fetch_timeout_ms", 8000)
	v.SetDefault("pipeline.schedule", "0 7 * * *")
	v.SetDefault("pipeline.export_pdf", false)

	// Backtest defaults
	v.SetDefault("backtest.forward_days", 5)
	v.SetDefault("backtest.summary_path", "data/backtest_summary.json")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// GROQ_API_KEY is honoured when no GRAINTEL key is set.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("GRAINTEL_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
