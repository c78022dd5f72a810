package models

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	cfg, err := LoadConfig(writeConfig(t, "database_url: postgres://x\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerAddr != ":5050" {
		t.Fatalf("server_addr=%q", cfg.ServerAddr)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("max_upload_bytes=%d", cfg.MaxUploadBytes)
	}
	if len(cfg.AllowedExtensions) != 4 {
		t.Fatalf("allowed_extensions=%v", cfg.AllowedExtensions)
	}
	if cfg.KafkaEnabled() {
		t.Fatalf("kafka should be disabled without a broker")
	}
	if cfg.Version != DefaultVersion {
		t.Fatalf("version=%q", cfg.Version)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://env")
	cfg, err := LoadConfig(writeConfig(t, "server_addr: \":1\"\ndatabase_url: postgres://file\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerAddr != ":9090" || cfg.DatabaseURL != "postgres://env" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadConfigNormalizesExtensions(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "allowed_extensions: [\".PNG\", \"Jpg\"]\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AllowedExtensions[0] != "png" || cfg.AllowedExtensions[1] != "jpg" {
		t.Fatalf("extensions=%v", cfg.AllowedExtensions)
	}
}

func TestLoadConfigRejectsNegativeCap(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "max_upload_bytes: -1\n")); err == nil {
		t.Fatalf("expected error for negative cap")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
