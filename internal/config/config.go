package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the poultryqa retrieval configuration.
type Config struct {
	Ops        OpsConfig        `yaml:"ops"`
	Partitions PartitionsConfig `yaml:"partitions"`
	Encoder    EncoderConfig    `yaml:"encoder"`
	Cache      CacheConfig      `yaml:"cache"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Ranker     RankerConfig     `yaml:"ranker"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// OpsConfig holds the diagnostics listener settings (/healthz, /metrics).
// Port 0 disables the listener.
type OpsConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// PartitionsConfig holds on-disk partition resolution settings.
// Location precedence: Overrides[id] -> RootDir/<id> -> FallbackDirs/<id>.
type PartitionsConfig struct {
	RootDir      string            `yaml:"root_dir"`
	Overrides    map[string]string `yaml:"overrides"`
	FallbackDirs []string          `yaml:"fallback_dirs"`
	Generic      string            `yaml:"generic"` // generic/default partition id
}

// EncoderConfig holds settings for the three encoding backends.
type EncoderConfig struct {
	Remote  RemoteEncoderConfig  `yaml:"remote"`
	Neural  NeuralEncoderConfig  `yaml:"neural"`
	Lexical LexicalEncoderConfig `yaml:"lexical"`
}

// RemoteEncoderConfig holds OpenAI-compatible embedding API settings.
// An empty APIKey disables the remote backend without failing startup.
type RemoteEncoderConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// NeuralEncoderConfig holds local ONNX sentence-encoder settings.
type NeuralEncoderConfig struct {
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	MaxTokens     int    `yaml:"max_tokens"`
}

// LexicalEncoderConfig holds the deterministic fallback settings.
type LexicalEncoderConfig struct {
	Dimensions int `yaml:"dimensions"` // used when the partition declares none
}

// CacheConfig holds the optional query-embedding cache settings.
// Empty Addrs disables the cache.
type CacheConfig struct {
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	KeyPrefix string   `yaml:"key_prefix"`
	TTLSec    int      `yaml:"ttl_sec"`
}

// ClassifierConfig holds domain-classification tunables. The divisor and
// dampening values are heuristic policy, kept configurable on purpose.
type ClassifierConfig struct {
	ScoreDivisor  float64 `yaml:"score_divisor"`  // confidence = min(score/divisor, 1)
	AmbiguityGap  float64 `yaml:"ambiguity_gap"`  // top-two gap below this dampens
	AmbiguityDamp float64 `yaml:"ambiguity_damp"` // multiplier applied on ambiguity
}

// RetrievalConfig holds partition-ordering and search-width policy.
type RetrievalConfig struct {
	HighConfidence   float64 `yaml:"high_confidence"`
	LowConfidence    float64 `yaml:"low_confidence"`
	WideConfidence   float64 `yaml:"wide_confidence"` // above this the search widens
	WideMultiplier   int     `yaml:"wide_multiplier"`
	NarrowMultiplier int     `yaml:"narrow_multiplier"`
	MinSearchWidth   int     `yaml:"min_search_width"`
}

// RankerConfig holds re-ranking bonus magnitudes. Heuristic policy, tunable.
type RankerConfig struct {
	DecayRate           float64 `yaml:"decay_rate"`
	StructuredBonus     float64 `yaml:"structured_bonus"`
	TableMetaBonus      float64 `yaml:"table_meta_bonus"`
	DomainMetaBonus     float64 `yaml:"domain_meta_bonus"`
	NumericPatternBonus float64 `yaml:"numeric_pattern_bonus"`
	OverlapBonusCap     float64 `yaml:"overlap_bonus_cap"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Ops.ReadTimeoutSec <= 0 {
		c.Ops.ReadTimeoutSec = 10
	}
	if c.Ops.WriteTimeoutSec <= 0 {
		c.Ops.WriteTimeoutSec = 10
	}
	if c.Ops.ShutdownSec <= 0 {
		c.Ops.ShutdownSec = 10
	}
	if c.Partitions.RootDir == "" {
		c.Partitions.RootDir = "data/partitions"
	}
	if len(c.Partitions.FallbackDirs) == 0 {
		c.Partitions.FallbackDirs = []string{
			"partitions",
			filepath.Join("..", "data", "partitions"),
			"/var/lib/poultryqa/partitions",
		}
	}
	if c.Partitions.Generic == "" {
		c.Partitions.Generic = "general"
	}
	if c.Encoder.Remote.Model == "" {
		c.Encoder.Remote.Model = "text-embedding-3-small"
	}
	if c.Encoder.Neural.MaxTokens <= 0 {
		c.Encoder.Neural.MaxTokens = 256
	}
	if c.Encoder.Lexical.Dimensions <= 0 {
		c.Encoder.Lexical.Dimensions = 384
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "poultryqa:"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Classifier.ScoreDivisor <= 0 {
		c.Classifier.ScoreDivisor = 10
	}
	if c.Classifier.AmbiguityGap <= 0 {
		c.Classifier.AmbiguityGap = 2
	}
	if c.Classifier.AmbiguityDamp <= 0 {
		c.Classifier.AmbiguityDamp = 0.6
	}
	if c.Retrieval.HighConfidence <= 0 {
		c.Retrieval.HighConfidence = 0.7
	}
	if c.Retrieval.LowConfidence <= 0 {
		c.Retrieval.LowConfidence = 0.3
	}
	if c.Retrieval.WideConfidence <= 0 {
		c.Retrieval.WideConfidence = 0.5
	}
	if c.Retrieval.WideMultiplier <= 0 {
		c.Retrieval.WideMultiplier = 3
	}
	if c.Retrieval.NarrowMultiplier <= 0 {
		c.Retrieval.NarrowMultiplier = 2
	}
	if c.Retrieval.MinSearchWidth <= 0 {
		c.Retrieval.MinSearchWidth = 10
	}
	if c.Ranker.DecayRate <= 0 {
		c.Ranker.DecayRate = 1.5
	}
	if c.Ranker.StructuredBonus <= 0 {
		c.Ranker.StructuredBonus = 0.2
	}
	if c.Ranker.TableMetaBonus <= 0 {
		c.Ranker.TableMetaBonus = 0.15
	}
	if c.Ranker.DomainMetaBonus <= 0 {
		c.Ranker.DomainMetaBonus = 0.1
	}
	if c.Ranker.NumericPatternBonus <= 0 {
		c.Ranker.NumericPatternBonus = 0.05
	}
	if c.Ranker.OverlapBonusCap <= 0 {
		c.Ranker.OverlapBonusCap = 0.15
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Ops.Port < 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops.port must be between 0 and 65535, got %d", c.Ops.Port)
	}
	if c.Retrieval.HighConfidence > 1 {
		return fmt.Errorf("retrieval.high_confidence must be <= 1, got %g", c.Retrieval.HighConfidence)
	}
	if c.Retrieval.LowConfidence >= c.Retrieval.HighConfidence {
		return fmt.Errorf(
			"retrieval.low_confidence %g must be below high_confidence %g",
			c.Retrieval.LowConfidence, c.Retrieval.HighConfidence,
		)
	}
	if c.Classifier.AmbiguityDamp > 1 {
		return fmt.Errorf("classifier.ambiguity_damp must be <= 1, got %g", c.Classifier.AmbiguityDamp)
	}
	for _, b := range []struct {
		name string
		val  float64
	}{
		{"ranker.structured_bonus", c.Ranker.StructuredBonus},
		{"ranker.table_meta_bonus", c.Ranker.TableMetaBonus},
		{"ranker.domain_meta_bonus", c.Ranker.DomainMetaBonus},
		{"ranker.numeric_pattern_bonus", c.Ranker.NumericPatternBonus},
		{"ranker.overlap_bonus_cap", c.Ranker.OverlapBonusCap},
	} {
		if b.val > 1 {
			return fmt.Errorf("%s must be <= 1, got %g", b.name, b.val)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
