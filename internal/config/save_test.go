package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := ExampleConfig()
	cfg.DBPath = "runs.db"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Config file contains invalid JSON: %v", err)
	}
	if loaded != *cfg {
		t.Errorf("saved config = %+v, want %+v", loaded, *cfg)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "config.json")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Config file was not created: %s", path)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Workers = 0
	if err := Save(cfg, path); err == nil {
		t.Fatal("expected error saving zero workers")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid config was written to disk")
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	projectPath := filepath.Join(tmpDir, "project.json")

	cfg := DefaultConfig()
	cfg.Workers = 9
	cfg.BaseCost = 0
	if err := Save(cfg, projectPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(filepath.Join(tmpDir, "missing.json"), projectPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Workers != 9 || loaded.BaseCost != 0 {
		t.Errorf("loaded = %+v", loaded)
	}
}
