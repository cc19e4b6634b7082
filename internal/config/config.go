package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port                int              `json:"port"`
	LogConfig           logger.LogConfig `json:"log_config"`
	DB                  DatabaseConfig   `json:"db"`
	Github              GithubConfig     `json:"github"`
	AI                  AIConfig         `json:"ai"`
	AuthCache           AuthCacheConfig  `json:"auth_cache"`
	Jobs                JobsConfig       `json:"jobs"`
	APIKeyStarThreshold int              `json:"api_key_star_threshold"`
	AllowedOrigins      []string         `json:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type GithubConfig struct {
	BaseURL       string `json:"base_url"`
	PerPage       int    `json:"per_page"`
	StarThreshold int    `json:"star_threshold"`
}

type AIConfig struct {
	Provider  string `json:"provider"`
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	BaseURL   string `json:"base_url"`
}

type AuthCacheConfig struct {
	Size       int `json:"size"`
	TTLMinutes int `json:"ttl_minutes"`
}

type JobsConfig struct {
	BatchSize         int    `json:"batch_size"`
	StaleAfterMinutes int    `json:"stale_after_minutes"`
	ReaperSpec        string `json:"reaper_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8001
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.DB.DSN == "" && (cfg.DB.Host == "" || cfg.DB.DBName == "" || cfg.DB.User == "") {
		return nil, fmt.Errorf("db.dsn or db.host/db.user/db.db_name is required")
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.Github.BaseURL == "" {
		cfg.Github.BaseURL = "https://api.github.com"
	}
	if cfg.Github.PerPage == 0 {
		cfg.Github.PerPage = 100
	}
	if cfg.Github.StarThreshold == 0 {
		cfg.Github.StarThreshold = 100
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.AI.Dimension <= 0 {
		return nil, fmt.Errorf("ai.dimension is required")
	}
	if cfg.AuthCache.Size == 0 {
		cfg.AuthCache.Size = 10000
	}
	if cfg.AuthCache.TTLMinutes == 0 {
		cfg.AuthCache.TTLMinutes = 60
	}
	if cfg.Jobs.BatchSize == 0 {
		cfg.Jobs.BatchSize = 50
	}
	if cfg.Jobs.StaleAfterMinutes == 0 {
		cfg.Jobs.StaleAfterMinutes = 120
	}
	if cfg.Jobs.ReaperSpec == "" {
		cfg.Jobs.ReaperSpec = "*/30 * * * *"
	}
	if cfg.APIKeyStarThreshold == 0 {
		cfg.APIKeyStarThreshold = 5000
	}
	return &cfg, nil
}
