package app

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`

	// ChaptersEnabled turns the topic timeline off entirely when false.
	ChaptersEnabled bool `yaml:"chapters_enabled"`
	// ChapterMinBatch is the smallest thread tail worth classifying.
	ChapterMinBatch int `yaml:"chapter_min_batch"`

	LogFile string `yaml:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:         "https://api.minimax.io/anthropic/v1/messages",
		Model:           "minimax-m2.1",
		MaxTokens:       4096,
		ChaptersEnabled: true,
		ChapterMinBatch: 1,
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Model == "" {
		cfg.Model = "minimax-m2.1"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.minimax.io/anthropic/v1/messages"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.ChapterMinBatch <= 0 {
		cfg.ChapterMinBatch = 1
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "arbor", "config.yml")
}
