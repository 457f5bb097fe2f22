package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(empty): %v", err)
	}
	if cfg.Model == "" || cfg.BaseURL == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !cfg.ChaptersEnabled {
		t.Fatalf("chapters disabled by default")
	}
	if cfg.ChapterMinBatch != 1 {
		t.Fatalf("ChapterMinBatch = %d, want 1", cfg.ChapterMinBatch)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	want := DefaultConfig()
	want.APIKey = "k"
	want.Model = "other-model"
	want.ChapterMinBatch = 2

	if err := SaveConfig(want, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.APIKey != "k" || got.Model != "other-model" || got.ChapterMinBatch != 2 {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadConfig(missing): %v", err)
	}
	if cfg.Model != DefaultConfig().Model {
		t.Fatalf("missing file did not fall back to defaults")
	}
}

func TestLoadConfigRepairsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("model: \"\"\nmax_tokens: 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Model == "" || cfg.MaxTokens <= 0 {
		t.Fatalf("zero values not repaired: %+v", cfg)
	}
}
