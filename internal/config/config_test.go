package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GRAINTEL_LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearKeyEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// LLM defaults
	if cfg.LLM.Primary != "openai" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "openai")
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("LLM.Model: got %q, want %q", cfg.LLM.Model, "llama-3.1-8b-instant")
	}
	if cfg.LLM.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("LLM.BaseURL: got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("LLM.Temperature: got %f, want 0.2", cfg.LLM.Temperature)
	}
	if cfg.LLM.TimeoutSec != 120 {
		t.Errorf("LLM.TimeoutSec: got %d, want 120", cfg.LLM.TimeoutSec)
	}

	// Sources defaults
	if cfg.Sources.Catalog != "configs/sources.yaml" {
		t.Errorf("Sources.Catalog: got %q", cfg.Sources.Catalog)
	}
	if len(cfg.Sources.Groups) != 1 || cfg.Sources.Groups[0] != "grains" {
		t.Errorf("Sources.Groups: got %v, want [grains]", cfg.Sources.Groups)
	}
	if cfg.Sources.MaxSources != 5 {
		t.Errorf("Sources.MaxSources: got %d, want 5", cfg.Sources.MaxSources)
	}

	// Pipeline defaults
	if cfg.Pipeline.DataDir != "data/processed" {
		t.Errorf("Pipeline.DataDir: got %q", cfg.Pipeline.DataDir)
	}
	if cfg.Pipeline.MaxAgeDays != 180 {
		t.Errorf("Pipeline.MaxAgeDays: got %d, want 180", cfg.Pipeline.MaxAgeDays)
	}
	if cfg.Pipeline.FetchTimeoutMS != 8000 {
		t.Errorf("Pipeline.FetchTimeoutMS: got %d, want 8000", cfg.Pipeline.FetchTimeoutMS)
	}

	// Backtest defaults
	if cfg.Backtest.ForwardDays != 5 {
		t.Errorf("Backtest.ForwardDays: got %d, want 5", cfg.Backtest.ForwardDays)
	}
	if cfg.Backtest.SummaryPath != "data/backtest_summary.json" {
		t.Errorf("Backtest.SummaryPath: got %q", cfg.Backtest.SummaryPath)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
llm:
  primary: "ollama"
  ollama_url: "http://gpu-box:11434"
  ollama_model: "qwen2.5:7b"
  temperature: 0.0
sources:
  catalog: "/etc/graintel/sources.yaml"
  groups: ["grains", "macro"]
  max_sources: 0
pipeline:
  data_dir: "/var/lib/graintel"
  max_age_days: 30
backtest:
  forward_days: 10
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	clearKeyEnv(t)

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.LLM.Primary != "ollama" {
		t.Errorf("LLM.Primary: got %q, want %q", cfg.LLM.Primary, "ollama")
	}
	if cfg.LLM.OllamaURL != "http://gpu-box:11434" {
		t.Errorf("LLM.OllamaURL: got %q", cfg.LLM.OllamaURL)
	}
	if cfg.LLM.Temperature != 0 {
		t.Errorf("LLM.Temperature: got %f, want 0", cfg.LLM.Temperature)
	}
	if len(cfg.Sources.Groups) != 2 || cfg.Sources.Groups[1] != "macro" {
		t.Errorf("Sources.Groups: got %v", cfg.Sources.Groups)
	}
	if cfg.Sources.MaxSources != 0 {
		t.Errorf("Sources.MaxSources: got %d, want 0", cfg.Sources.MaxSources)
	}
	if cfg.Pipeline.DataDir != "/var/lib/graintel" {
		t.Errorf("Pipeline.DataDir: got %q", cfg.Pipeline.DataDir)
	}
	if cfg.Pipeline.MaxAgeDays != 30 {
		t.Errorf("Pipeline.MaxAgeDays: got %d, want 30", cfg.Pipeline.MaxAgeDays)
	}
	// untouched keys keep their defaults
	if cfg.Pipeline.ReportDir != "reports" {
		t.Errorf("Pipeline.ReportDir: got %q, want %q", cfg.Pipeline.ReportDir, "reports")
	}
	if cfg.Backtest.ForwardDays != 10 {
		t.Errorf("Backtest.ForwardDays: got %d, want 10", cfg.Backtest.ForwardDays)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("pipeline:\n  max_age_days: 30\n"), 0644); err != nil {
		t.Fatal(err)
	}
	clearKeyEnv(t)
	t.Setenv("GRAINTEL_PIPELINE_MAX_AGE_DAYS", "7")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Pipeline.MaxAgeDays != 7 {
		t.Errorf("Pipeline.MaxAgeDays: got %d, want 7", cfg.Pipeline.MaxAgeDays)
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-groq-key-123456")

	cfg := &Config{}
	overrideFromEnv(cfg)
	if cfg.LLM.APIKey != "gsk-groq-key-123456" {
		t.Errorf("APIKey: got %q", cfg.LLM.APIKey)
	}

	// the prefixed variable wins
	t.Setenv("GRAINTEL_LLM_API_KEY", "gsk-graintel-key-789")
	overrideFromEnv(cfg)
	if cfg.LLM.APIKey != "gsk-graintel-key-789" {
		t.Errorf("APIKey: got %q", cfg.LLM.APIKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{
		LLM: LLMConfig{APIKey: "from-config"},
	}
	overrideFromEnv(cfg)

	// Should retain the original value when env is not set
	if cfg.LLM.APIKey != "from-config" {
		t.Errorf("APIKey should stay as 'from-config' when env is unset, got %q", cfg.LLM.APIKey)
	}
}

// ── maskKey ──

func TestMaskKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
		{"123456789", "123...789"},
		{"gsk_abcdef1234567890xyz", "gsk...xyz"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys / checkKey ──

func TestCheckAPIKeysEmpty(t *testing.T) {
	clearKeyEnv(t)

	statuses := CheckAPIKeys(&Config{})
	if len(statuses) != 1 {
		t.Fatalf("CheckAPIKeys: got %d statuses, want 1", len(statuses))
	}
	if statuses[0].IsSet {
		t.Error("key should not be set")
	}
	if statuses[0].Source != KeySourceNone {
		t.Errorf("source: got %q, want %q", statuses[0].Source, KeySourceNone)
	}
}

func TestCheckAPIKeysFromConfig(t *testing.T) {
	clearKeyEnv(t)

	cfg := &Config{LLM: LLMConfig{APIKey: "gsk-test-very-long-key-value"}}
	s := CheckAPIKeys(cfg)[0]
	if !s.IsSet {
		t.Error("key should be set")
	}
	if s.Source != KeySourceConfig {
		t.Errorf("Source: got %q, want %q", s.Source, KeySourceConfig)
	}
	if s.Masked != "gsk...lue" {
		t.Errorf("Masked: got %q, want %q", s.Masked, "gsk...lue")
	}
}

func TestCheckKeySourceDetection(t *testing.T) {
	t.Setenv("TEST_VAR_A", "")
	t.Setenv("TEST_VAR_B", "")

	s := checkKey("Test", "", "TEST_VAR_A", "TEST_VAR_B")
	if s.Source != KeySourceNone || s.IsSet {
		t.Errorf("empty value: got %+v", s)
	}

	s = checkKey("Test", "config-value-long-enough", "TEST_VAR_A", "TEST_VAR_B")
	if s.Source != KeySourceConfig {
		t.Errorf("config value: got source %q, want %q", s.Source, KeySourceConfig)
	}

	// any of the listed variables marks the key as env-sourced
	t.Setenv("TEST_VAR_B", "env-value-long-enough")
	s = checkKey("Test", "env-value-long-enough", "TEST_VAR_A", "TEST_VAR_B")
	if s.Source != KeySourceEnv {
		t.Errorf("env value: got source %q, want %q", s.Source, KeySourceEnv)
	}
}

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() should not return empty string")
	}
}
