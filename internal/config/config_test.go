package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML, "yaml")
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Mining.MaxItemsetSize != 3 {
		t.Errorf("expected max itemset size 3, got %d", cfg.Mining.MaxItemsetSize)
	}
	if cfg.Mining.MinSupport != 0.03 {
		t.Errorf("expected min support 0.03, got %v", cfg.Mining.MinSupport)
	}
	if len(cfg.Rules) != 3 {
		t.Fatalf("expected 3 rule reports, got %d", len(cfg.Rules))
	}
	if cfg.Rules[0].Metric != "lift" || cfg.Rules[0].MinThreshold != 1 {
		t.Errorf("unexpected first rule report: %+v", cfg.Rules[0])
	}
	if cfg.Report.TopN != 20 {
		t.Errorf("expected top_n 20, got %d", cfg.Report.TopN)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
mining:
  min_support: 0.1
report:
  format: json
`)
	cfg, err := parse(data, "yaml")
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Mining.MinSupport != 0.1 {
		t.Errorf("expected min support 0.1, got %v", cfg.Mining.MinSupport)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("expected format json, got %q", cfg.Report.Format)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Mining.MaxItemsetSize != 3 {
		t.Errorf("expected default max size, got %d", cfg.Mining.MaxItemsetSize)
	}
	if len(cfg.Rules) != 3 {
		t.Errorf("expected default rule reports, got %d", len(cfg.Rules))
	}
}

func TestParseRulesReplaceDefaults(t *testing.T) {
	data := []byte(`
rules:
  - metric: leverage
    min_threshold: 0.01
`)
	cfg, err := parse(data, "yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Metric != "leverage" {
		t.Errorf("expected a single leverage report, got %+v", cfg.Rules)
	}
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
[mining]
max_itemset_size = 2
min_support = 0.2

[[rules]]
metric = "confidence"
min_threshold = 0.5

[logging]
format = "json"
`)
	cfg, err := parse(data, "toml")
	if err != nil {
		t.Fatalf("failed to parse toml: %v", err)
	}
	if cfg.Mining.MaxItemsetSize != 2 || cfg.Mining.MinSupport != 0.2 {
		t.Errorf("unexpected mining section: %+v", cfg.Mining)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].MinThreshold != 0.5 {
		t.Errorf("unexpected rules: %+v", cfg.Rules)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("unexpected logging section: %+v", cfg.Logging)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := parse([]byte("mining: ["), "yaml"); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Input.Database.Query == "" {
		t.Error("expected database query to be populated from file")
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Mining.MinSupport != 0.03 {
		t.Errorf("expected default min support, got %v", cfg.Mining.MinSupport)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BASKETMINER_MINING_MIN_SUPPORT", "0.25")
	t.Setenv("BASKETMINER_MINING_MAX_ITEMSET_SIZE", "4")
	t.Setenv("BASKETMINER_REPORT_FORMAT", "json")
	t.Setenv("BASKETMINER_INPUT_S3_USE_PATH_STYLE", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if cfg.Mining.MinSupport != 0.25 {
		t.Errorf("expected min support 0.25, got %v", cfg.Mining.MinSupport)
	}
	if cfg.Mining.MaxItemsetSize != 4 {
		t.Errorf("expected max size 4, got %d", cfg.Mining.MaxItemsetSize)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("expected json format, got %q", cfg.Report.Format)
	}
	if !cfg.Input.S3.UsePathStyle {
		t.Error("expected path-style S3 addressing")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"support zero":   func(c *Config) { c.Mining.MinSupport = 0 },
		"support > 1":    func(c *Config) { c.Mining.MinSupport = 1.5 },
		"size zero":      func(c *Config) { c.Mining.MaxItemsetSize = 0 },
		"unknown metric": func(c *Config) { c.Rules = []RuleReport{{Metric: "zest"}} },
		"bad format":     func(c *Config) { c.Report.Format = "html" },
		"bad debounce":   func(c *Config) { c.Watch.Debounce = "soon" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaults()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDebounceDuration(t *testing.T) {
	cfg := defaults()
	d, err := cfg.DebounceDuration()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", d)
	}
}

func TestDelimiterRune(t *testing.T) {
	cfg := defaults()
	if r := cfg.DelimiterRune(); r != ',' {
		t.Errorf("expected comma, got %q", r)
	}
	cfg.Input.Delimiter = "tab"
	if r := cfg.DelimiterRune(); r != '\t' {
		t.Errorf("expected tab, got %q", r)
	}
	cfg.Input.Delimiter = ";"
	if r := cfg.DelimiterRune(); r != ';' {
		t.Errorf("expected semicolon, got %q", r)
	}
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[report]\ntop_n = 5\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	got, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != path {
		t.Errorf("expected %s, got %s", path, got)
	}

	cfg, err := Load(got)
	if err != nil {
		t.Fatalf("failed to load toml: %v", err)
	}
	if cfg.Report.TopN != 5 {
		t.Errorf("expected top_n 5, got %d", cfg.Report.TopN)
	}

	if _, err := ResolveConfigPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if got := cfg.GetDataDir(); got != "/custom/path" {
		t.Errorf("expected /custom/path, got %s", got)
	}
	if got := cfg.StorePath(); got != filepath.Join("/custom/path", "basketminer.db") {
		t.Errorf("unexpected store path %s", got)
	}
}
