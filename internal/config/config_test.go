package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Model != defaultModel {
		t.Errorf("expected default model %q, got %q", defaultModel, cfg.Model)
	}
	if cfg.Endpoint != defaultEndpoint {
		t.Errorf("expected default endpoint, got %q", cfg.Endpoint)
	}
	if cfg.PacingDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms pacing delay, got %v", cfg.PacingDelay)
	}
	if cfg.TopP != 0.9 || cfg.Temperature != 0.7 || cfg.MaxTokens != 2000 {
		t.Errorf("unexpected sampling defaults: %+v", cfg)
	}
	if cfg.Server.Addr != ":3001" {
		t.Errorf("expected :3001, got %q", cfg.Server.Addr)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("expected file backend, got %q", cfg.Store.Backend)
	}
	if filepath.Dir(cfg.Store.Path) != Dir() {
		t.Errorf("expected sqlite path under %s, got %s", Dir(), cfg.Store.Path)
	}
}

func TestLoad_ModelFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LIVEDIT_MODEL", "llama3.1:latest")
	t.Setenv("LIVEDIT_SERVER_ADDR", ":9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Model != "llama3.1:latest" {
		t.Errorf("expected model from env, got: %s", cfg.Model)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected nested key from env, got: %s", cfg.Server.Addr)
	}
}

func TestLoad_FromFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	data := "model: mistral\nendpoint: http://gpu-box:11434/\npacing_delay: 50ms\nstore:\n  backend: sqlite\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "mistral" {
		t.Errorf("expected mistral, got %q", cfg.Model)
	}
	if cfg.Endpoint != "http://gpu-box:11434" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Endpoint)
	}
	if cfg.PacingDelay != 50*time.Millisecond {
		t.Errorf("expected 50ms, got %v", cfg.PacingDelay)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.Store.Backend)
	}
}

func TestSetModel_Persists(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := SetModel("qwen2.5-coder:7b"); err != nil {
		t.Fatalf("SetModel failed: %v", err)
	}
	if err := SetEndpoint("http://127.0.0.1:11434/"); err != nil {
		t.Fatalf("SetEndpoint failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "qwen2.5-coder:7b" {
		t.Errorf("expected persisted model, got %q", cfg.Model)
	}
	if cfg.Endpoint != "http://127.0.0.1:11434" {
		t.Errorf("expected persisted endpoint, got %q", cfg.Endpoint)
	}
}
