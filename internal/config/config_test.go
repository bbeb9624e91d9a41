package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Records.Dir == "" {
		t.Error("expected a default records dir")
	}

	if cfg.Similarity.Threshold != 0.7 {
		t.Errorf("expected default similarity threshold 0.7, got %v", cfg.Similarity.Threshold)
	}

	if cfg.Query.Limit != 10 {
		t.Errorf("expected default query limit 10, got %d", cfg.Query.Limit)
	}
}

func TestDBPathDefaultsIntoRecordsDir(t *testing.T) {
	cfg := &Config{Records: RecordsConfig{Dir: "/tmp/records"}}

	if got := cfg.DBPath(); got != filepath.Join("/tmp/records", "index.db") {
		t.Errorf("expected db path inside records dir, got %q", got)
	}

	cfg.Records.DBPath = "/elsewhere/index.db"
	if got := cfg.DBPath(); got != "/elsewhere/index.db" {
		t.Errorf("expected explicit db path to win, got %q", got)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `records:
  dir: /data/learning
similarity:
  threshold: 0.85
query:
  limit: 25
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Records.Dir != "/data/learning" {
		t.Errorf("expected records dir '/data/learning', got %q", cfg.Records.Dir)
	}

	if cfg.Similarity.Threshold != 0.85 {
		t.Errorf("expected threshold 0.85, got %v", cfg.Similarity.Threshold)
	}

	if cfg.Query.Limit != 25 {
		t.Errorf("expected limit 25, got %d", cfg.Query.Limit)
	}
}

func TestLoadFromPathKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `records:
  dir: /data/learning
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Similarity.Threshold != 0.7 {
		t.Errorf("expected default threshold when unset, got %v", cfg.Similarity.Threshold)
	}

	if cfg.Query.Limit != 10 {
		t.Errorf("expected default limit when unset, got %d", cfg.Query.Limit)
	}
}

func TestLoadFromPathExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("CLDEV_TEST_HOME", "/srv/cldev")

	content := `records:
  dir: ${CLDEV_TEST_HOME}/records
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Records.Dir != "/srv/cldev/records" {
		t.Errorf("expected expanded records dir, got %q", cfg.Records.Dir)
	}
}
