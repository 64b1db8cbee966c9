package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/BasketMiner/internal/rules"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// EnvPrefix prefixes environment overrides, e.g. BASKETMINER_MINING_MIN_SUPPORT.
const EnvPrefix = "BASKETMINER"

type Config struct {
	Mining  Mining       `yaml:"mining" toml:"mining"`
	Rules   []RuleReport `yaml:"rules" toml:"rules"`
	Report  Report       `yaml:"report" toml:"report"`
	Input   Input        `yaml:"input" toml:"input"`
	Watch   Watch        `yaml:"watch" toml:"watch"`
	Metrics Metrics      `yaml:"metrics" toml:"metrics"`
	Output  Output       `yaml:"output" toml:"output"`
	Logging Logging      `yaml:"logging" toml:"logging"`
}

type Mining struct {
	MaxItemsetSize int     `yaml:"max_itemset_size" toml:"max_itemset_size"`
	MinSupport     float64 `yaml:"min_support" toml:"min_support"`
	Workers        int     `yaml:"workers" toml:"workers"`
}

type RuleReport struct {
	Metric       string  `yaml:"metric" toml:"metric"`
	MinThreshold float64 `yaml:"min_threshold" toml:"min_threshold"`
}

type Report struct {
	TopN   int    `yaml:"top_n" toml:"top_n"`
	Format string `yaml:"format" toml:"format"`
}

type Input struct {
	Delimiter string   `yaml:"delimiter" toml:"delimiter"`
	S3        S3       `yaml:"s3" toml:"s3"`
	Database  Database `yaml:"database" toml:"database"`
}

type S3 struct {
	Region       string `yaml:"region" toml:"region"`
	Endpoint     string `yaml:"endpoint" toml:"endpoint"`
	Profile      string `yaml:"profile" toml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style" toml:"use_path_style"`
}

type Database struct {
	Query string `yaml:"query" toml:"query"`
}

type Watch struct {
	Dir      string `yaml:"dir" toml:"dir"`
	Debounce string `yaml:"debounce" toml:"debounce"`
}

type Metrics struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

type Output struct {
	DataDir string `yaml:"data_dir" toml:"data_dir"`
	History bool   `yaml:"history" toml:"history"`
}

type Logging struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// ConfigDir returns the XDG config directory for basketminer.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "basketminer")
}

// DataDir returns the XDG data directory for basketminer.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "basketminer")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/basketminer/config.{yaml,toml} > ./config.{yaml,toml}.
// An empty path with a nil error means no file exists and the embedded
// defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, dir := range []string{ConfigDir(), "."} {
		for _, name := range []string{"config.yaml", "config.toml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", nil
}

// Load reads and parses a config file, then applies environment overrides.
// An empty path loads the embedded defaults.
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg, err = parse(DefaultConfigYAML, "yaml")
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		cfg, err = parse(data, formatOf(path))
	}
	if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

func defaults() *Config {
	return &Config{
		Mining: Mining{MaxItemsetSize: 3, MinSupport: 0.03},
		Rules: []RuleReport{
			{Metric: "lift", MinThreshold: 1},
			{Metric: "support", MinThreshold: 0.03},
			{Metric: "confidence", MinThreshold: 0.03},
		},
		Report:  Report{TopN: 20, Format: "text"},
		Input:   Input{Delimiter: ",", Database: Database{Query: "SELECT * FROM transactions"}},
		Watch:   Watch{Debounce: "500ms"},
		Output:  Output{History: true},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// parse parses YAML or TOML bytes into a Config, applying defaults.
func parse(data []byte, format string) (*Config, error) {
	cfg := defaults()
	defaultRules := cfg.Rules
	cfg.Rules = nil

	var err error
	switch format {
	case "toml":
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = defaultRules
	}
	return cfg, nil
}

// applyEnv overrides scalar settings from BASKETMINER_<SECTION>_<KEY>
// environment variables.
func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	strs := map[string]*string{
		"report.format":        &cfg.Report.Format,
		"input.delimiter":      &cfg.Input.Delimiter,
		"input.s3.region":      &cfg.Input.S3.Region,
		"input.s3.endpoint":    &cfg.Input.S3.Endpoint,
		"input.s3.profile":     &cfg.Input.S3.Profile,
		"input.database.query": &cfg.Input.Database.Query,
		"watch.dir":            &cfg.Watch.Dir,
		"watch.debounce":       &cfg.Watch.Debounce,
		"metrics.textfile":     &cfg.Metrics.Textfile,
		"output.data_dir":      &cfg.Output.DataDir,
		"logging.level":        &cfg.Logging.Level,
		"logging.format":       &cfg.Logging.Format,
	}
	ints := map[string]*int{
		"mining.max_itemset_size": &cfg.Mining.MaxItemsetSize,
		"mining.workers":          &cfg.Mining.Workers,
		"report.top_n":            &cfg.Report.TopN,
	}
	floats := map[string]*float64{
		"mining.min_support": &cfg.Mining.MinSupport,
	}
	bools := map[string]*bool{
		"input.s3.use_path_style": &cfg.Input.S3.UsePathStyle,
		"output.history":          &cfg.Output.History,
	}

	bind := func(key string) (bool, error) {
		if err := v.BindEnv(key); err != nil {
			return false, fmt.Errorf("binding %s: %w", key, err)
		}
		return v.IsSet(key), nil
	}

	for key, dst := range strs {
		set, err := bind(key)
		if err != nil {
			return err
		}
		if set {
			*dst = v.GetString(key)
		}
	}
	for key, dst := range ints {
		set, err := bind(key)
		if err != nil {
			return err
		}
		if set {
			*dst = v.GetInt(key)
		}
	}
	for key, dst := range floats {
		set, err := bind(key)
		if err != nil {
			return err
		}
		if set {
			*dst = v.GetFloat64(key)
		}
	}
	for key, dst := range bools {
		set, err := bind(key)
		if err != nil {
			return err
		}
		if set {
			*dst = v.GetBool(key)
		}
	}
	return nil
}

// Validate rejects settings no run can use.
func (c *Config) Validate() error {
	if c.Mining.MinSupport <= 0 || c.Mining.MinSupport > 1 {
		return fmt.Errorf("mining.min_support must be in (0, 1], got %v", c.Mining.MinSupport)
	}
	if c.Mining.MaxItemsetSize < 1 {
		return fmt.Errorf("mining.max_itemset_size must be at least 1, got %d", c.Mining.MaxItemsetSize)
	}
	for i, r := range c.Rules {
		if _, err := rules.ParseMetric(r.Metric); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	switch c.Report.Format {
	case "text", "json":
	default:
		return fmt.Errorf("report.format must be text or json, got %q", c.Report.Format)
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	return nil
}

// DebounceDuration parses watch.debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	return d, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// StorePath returns the run history database path.
func (c *Config) StorePath() string {
	return filepath.Join(c.GetDataDir(), "basketminer.db")
}

// DelimiterRune returns the configured column separator, or 0 when unset.
func (c *Config) DelimiterRune() rune {
	switch c.Input.Delimiter {
	case "":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	return []rune(c.Input.Delimiter)[0]
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
