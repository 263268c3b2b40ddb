// Package config loads per-service settings from a YAML file with
// environment overrides. Secrets (DATABASE_URL) stay environment-only.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Peers struct {
	Registry  string `yaml:"registry"`
	Agreement string `yaml:"agreement"`
	Asset     string `yaml:"asset"`
	Reward    string `yaml:"reward"`
}

type Service struct {
	Port           int     `yaml:"port"`
	RateLimitRPS   float64 `yaml:"rateLimitRPS"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
	WebhookURL     string  `yaml:"webhookURL"`
	// WebhookSecret signs outbound event deliveries. Environment-only.
	WebhookSecret string `yaml:"-"`
	Peers         Peers  `yaml:"peers"`
}

// Load merges, in increasing precedence: defaults, the YAML file at path
// (skipped when missing), then environment variables.
func Load(path string, defaults Service) Service {
	cfg := defaults

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var parsed Service
			if err := yaml.Unmarshal(data, &parsed); err == nil {
				merge(&cfg, parsed)
			}
		}
	}
	applyEnv(&cfg)
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}
	return cfg
}

func merge(dst *Service, src Service) {
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.RateLimitRPS != 0 {
		dst.RateLimitRPS = src.RateLimitRPS
	}
	if src.RateLimitBurst != 0 {
		dst.RateLimitBurst = src.RateLimitBurst
	}
	if src.WebhookURL != "" {
		dst.WebhookURL = src.WebhookURL
	}
	if src.Peers.Registry != "" {
		dst.Peers.Registry = src.Peers.Registry
	}
	if src.Peers.Agreement != "" {
		dst.Peers.Agreement = src.Peers.Agreement
	}
	if src.Peers.Asset != "" {
		dst.Peers.Asset = src.Peers.Asset
	}
	if src.Peers.Reward != "" {
		dst.Peers.Reward = src.Peers.Reward
	}
}

func applyEnv(cfg *Service) {
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("REGISTRY_BASE_URL"); v != "" {
		cfg.Peers.Registry = v
	}
	if v := os.Getenv("AGREEMENT_BASE_URL"); v != "" {
		cfg.Peers.Agreement = v
	}
	if v := os.Getenv("ASSET_BASE_URL"); v != "" {
		cfg.Peers.Asset = v
	}
	if v := os.Getenv("REWARD_BASE_URL"); v != "" {
		cfg.Peers.Reward = v
	}
}
