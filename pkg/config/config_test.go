package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "port: 9090\npeers:\n  agreement: http://agreement:8082\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := Load(path, Service{Port: 8080, Peers: Peers{Agreement: "http://localhost:8082", Reward: "http://localhost:8085"}})
	if cfg.Port != 9090 {
		t.Fatalf("file port not applied: %d", cfg.Port)
	}
	if cfg.Peers.Agreement != "http://agreement:8082" {
		t.Fatalf("file peer not applied: %s", cfg.Peers.Agreement)
	}
	if cfg.Peers.Reward != "http://localhost:8085" {
		t.Fatalf("default peer lost: %s", cfg.Peers.Reward)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		t.Fatalf("rate limit defaults not applied")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SERVICE_PORT", "7000")
	t.Setenv("AGREEMENT_BASE_URL", "http://env-agreement")

	cfg := Load("", Service{Port: 8080})
	if cfg.Port != 7000 {
		t.Fatalf("env port not applied: %d", cfg.Port)
	}
	if cfg.Peers.Agreement != "http://env-agreement" {
		t.Fatalf("env peer not applied: %s", cfg.Peers.Agreement)
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg := Load("/does/not/exist.yaml", Service{Port: 8081})
	if cfg.Port != 8081 {
		t.Fatalf("defaults lost: %d", cfg.Port)
	}
}
