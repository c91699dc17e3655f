package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.ModelName != "distilbert-sst2" {
		t.Errorf("ModelName = %q, want distilbert-sst2", cfg.ModelName)
	}
	if cfg.MaxSeqLen != 512 {
		t.Errorf("MaxSeqLen = %d, want 512", cfg.MaxSeqLen)
	}
	if cfg.PoolSize != 2 {
		t.Errorf("PoolSize = %d, want 2", cfg.PoolSize)
	}
	if cfg.NatsURL != "" {
		t.Errorf("NatsURL = %q, want empty (NATS off by default)", cfg.NatsURL)
	}
	if cfg.AckWait != 30*time.Second {
		t.Errorf("AckWait = %v, want 30s", cfg.AckWait)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MAX_SEQ_LEN", "128")
	t.Setenv("SESSION_POOL_SIZE", "4")
	t.Setenv("ACK_WAIT", "5s")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.MaxSeqLen != 128 {
		t.Errorf("MaxSeqLen = %d, want 128", cfg.MaxSeqLen)
	}
	if cfg.PoolSize != 4 {
		t.Errorf("PoolSize = %d, want 4", cfg.PoolSize)
	}
	if cfg.AckWait != 5*time.Second {
		t.Errorf("AckWait = %v, want 5s", cfg.AckWait)
	}
	if cfg.NatsURL != "nats://localhost:4222" {
		t.Errorf("NatsURL = %q", cfg.NatsURL)
	}
}

func TestLoadInvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("MAX_SEQ_LEN", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxSeqLen != 512 {
		t.Errorf("MaxSeqLen = %d, want default 512", cfg.MaxSeqLen)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# comment\nMODEL_NAME=custom-model\n\nMODEL_DIR = /opt/models/custom\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("MODEL_NAME")
		os.Unsetenv("MODEL_DIR")
	})

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ModelName != "custom-model" {
		t.Errorf("ModelName = %q, want custom-model", cfg.ModelName)
	}
	if cfg.ModelDir != "/opt/models/custom" {
		t.Errorf("ModelDir = %q, want /opt/models/custom", cfg.ModelDir)
	}
}

func TestLoadMissingEnvFileIsNotFatal(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("Load with missing env file: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
}
