package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken  string        `yaml:"discord_token"`
	OwnerID       string        `yaml:"owner_id"`
	DatabasePath  string        `yaml:"database_path"`
	LogLevel      string        `yaml:"log_level"`
	RetentionDays int           `yaml:"retention_days"`
	Health        HealthConfig  `yaml:"health"`
	Silence       SilenceConfig `yaml:"silence"`
	Mute          MuteConfig    `yaml:"mute"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type SilenceConfig struct {
	Enabled          bool `yaml:"enabled"`
	ThresholdSeconds int  `yaml:"threshold_seconds"`
	CheckSeconds     int  `yaml:"check_seconds"`
}

type MuteConfig struct {
	DefaultSeconds int `yaml:"default_seconds"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:  "/data/reaper.db",
		LogLevel:      "info",
		RetentionDays: 14,
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Silence:       SilenceConfig{Enabled: true, ThresholdSeconds: 300, CheckSeconds: 60},
		Mute:          MuteConfig{DefaultSeconds: 60},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.OwnerID == "" {
		return Config{}, errors.New("OWNER_ID is required")
	}
	if cfg.Silence.ThresholdSeconds <= 0 {
		cfg.Silence.ThresholdSeconds = 300
	}
	if cfg.Silence.CheckSeconds <= 0 {
		cfg.Silence.CheckSeconds = 60
	}
	if cfg.Mute.DefaultSeconds <= 0 {
		cfg.Mute.DefaultSeconds = 60
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.OwnerID = envString("OWNER_ID", cfg.OwnerID)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Silence.Enabled = envBool("SILENCE_ENABLED", cfg.Silence.Enabled)
	cfg.Silence.ThresholdSeconds = envInt("SILENCE_THRESHOLD_SECONDS", cfg.Silence.ThresholdSeconds)
	cfg.Silence.CheckSeconds = envInt("SILENCE_CHECK_SECONDS", cfg.Silence.CheckSeconds)
	cfg.Mute.DefaultSeconds = envInt("MUTE_DEFAULT_SECONDS", cfg.Mute.DefaultSeconds)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
