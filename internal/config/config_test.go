package config

import (
	"strings"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Partitions.Generic != "general" {
		t.Errorf("generic partition %q, want general", cfg.Partitions.Generic)
	}
	if cfg.Classifier.ScoreDivisor != 10 {
		t.Errorf("score divisor %v, want 10", cfg.Classifier.ScoreDivisor)
	}
	if cfg.Retrieval.HighConfidence != 0.7 || cfg.Retrieval.LowConfidence != 0.3 {
		t.Errorf("confidence tiers (%v, %v), want (0.7, 0.3)",
			cfg.Retrieval.HighConfidence, cfg.Retrieval.LowConfidence)
	}
	if cfg.Retrieval.MinSearchWidth != 10 {
		t.Errorf("min search width %d, want 10", cfg.Retrieval.MinSearchWidth)
	}
	if cfg.Ranker.DecayRate != 1.5 {
		t.Errorf("decay rate %v, want 1.5", cfg.Ranker.DecayRate)
	}
	if cfg.Encoder.Lexical.Dimensions != 384 {
		t.Errorf("lexical dims %d, want 384", cfg.Encoder.Lexical.Dimensions)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Classifier.ScoreDivisor = 20
	cfg.Retrieval.WideMultiplier = 5
	cfg.ApplyDefaults()

	if cfg.Classifier.ScoreDivisor != 20 {
		t.Errorf("explicit score divisor overwritten: %v", cfg.Classifier.ScoreDivisor)
	}
	if cfg.Retrieval.WideMultiplier != 5 {
		t.Errorf("explicit wide multiplier overwritten: %d", cfg.Retrieval.WideMultiplier)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults pass", func(*Config) {}, ""},
		{"bad ops port", func(c *Config) { c.Ops.Port = 70000 }, "ops.port"},
		{"inverted tiers", func(c *Config) { c.Retrieval.LowConfidence = 0.9 }, "low_confidence"},
		{"damp above one", func(c *Config) { c.Classifier.AmbiguityDamp = 1.5 }, "ambiguity_damp"},
		{"bonus above one", func(c *Config) { c.Ranker.StructuredBonus = 2 }, "structured_bonus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PQA_TEST_KEY", "secret")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "api_key: ${PQA_TEST_KEY}", "api_key: secret"},
		{"unset with default", "model: ${PQA_TEST_UNSET:-fallback}", "model: fallback"},
		{"set beats default", "api_key: ${PQA_TEST_KEY:-fallback}", "api_key: secret"},
		{"unset without default", "key: ${PQA_TEST_UNSET}", "key: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("local config must load: %v", err)
	}
	if cfg.Partitions.Generic == "" {
		t.Error("defaults not applied on load")
	}
}
