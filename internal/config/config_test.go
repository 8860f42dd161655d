package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.SQLitePath != "fotofindr.db" {
		t.Errorf("unexpected sqlite path %q", cfg.Database.SQLitePath)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Embedding.Dim != 512 {
		t.Errorf("expected embedding dim 512, got %d", cfg.Embedding.Dim)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PIPELINE_WORKERS", "2")
	t.Setenv("DATABASE_URL", "postgres://localhost/fotofindr")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Database.URL != "postgres://localhost/fotofindr" {
		t.Errorf("unexpected database url %q", cfg.Database.URL)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "99999")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestEnvIntFallback(t *testing.T) {
	t.Setenv("PIPELINE_QUEUE_SIZE", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.QueueSize != 256 {
		t.Errorf("expected fallback 256, got %d", cfg.Pipeline.QueueSize)
	}
}

func TestScreenResolutions(t *testing.T) {
	resolutions, err := ScreenResolutions()
	if err != nil {
		t.Fatalf("ScreenResolutions failed: %v", err)
	}
	if len(resolutions) == 0 {
		t.Fatal("expected at least one known resolution")
	}

	found := false
	for _, r := range resolutions {
		if r.Width == 1170 && r.Height == 2532 {
			found = true
		}
	}
	if !found {
		t.Error("expected 1170x2532 in the embedded list")
	}
}
