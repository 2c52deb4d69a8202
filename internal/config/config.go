package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"quizroom/internal/domain"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		ReadTimeout    string   `yaml:"readTimeout"`
		WriteTimeout   string   `yaml:"writeTimeout"`
		TrustedProxies []string `yaml:"trustedProxies"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Limits struct {
		JoinPerMinute int `yaml:"joinPerMinute"`
		JoinBurst     int `yaml:"joinBurst"`
	} `yaml:"limits"`
	Seed struct {
		Path string `yaml:"path"`
	} `yaml:"seed"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Limits.JoinPerMinute = 30
	cfg.Limits.JoinBurst = 10
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Seed is a file of quizzes authored at startup.
type Seed struct {
	Quizzes []domain.QuizDraft `yaml:"quizzes"`
}

// LoadSeed reads and validates a seed file. Every quiz is normalized so a bad
// entry is reported before the server starts.
func LoadSeed(path string) ([]domain.QuizDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, draft := range seed.Quizzes {
		if _, err := draft.Normalize(); err != nil {
			return nil, fmt.Errorf("quiz %d (%q): %w", i+1, draft.Title, err)
		}
	}
	return seed.Quizzes, nil
}
