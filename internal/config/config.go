// Package config loads process configuration from the environment, with a
// .env file as an optional local override.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the static deployment configuration consumed at bootstrap.
type Config struct {
	Port      string
	DataDir   string
	ModelPath string

	// SurfaceThreshold is the minimum top confidence for a classification
	// to be persisted as an artifact record.
	SurfaceThreshold float64
	// MapRefreshMs is the dashboard poll interval handed to observers via
	// the settings endpoint.
	MapRefreshMs      int
	SensorSensitivity int
	VideoRecording    bool
	AutoSaveArtifacts bool
	GPSEnabled        bool
	RecordReadings    bool

	// RateLimitPerMin bounds classify-endpoint calls per client IP.
	RateLimitPerMin int
}

// Load reads .env (if present) then the environment, applying defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("no .env file loaded", "error", err)
	}

	return Config{
		Port:              getEnvOrDefault("PORT", "8000"),
		DataDir:           getEnvOrDefault("DATA_DIR", "./data"),
		ModelPath:         getEnvOrDefault("MODEL_PATH", "./data/material_classifier.json"),
		SurfaceThreshold:  getEnvFloat("SURFACE_THRESHOLD", 0.8),
		MapRefreshMs:      getEnvInt("MAP_REFRESH_MS", 1000),
		SensorSensitivity: getEnvInt("SENSOR_SENSITIVITY", 75),
		VideoRecording:    getEnvBool("VIDEO_RECORDING", false),
		AutoSaveArtifacts: getEnvBool("AUTO_SAVE_ARTIFACTS", true),
		GPSEnabled:        getEnvBool("GPS_ENABLED", true),
		RecordReadings:    getEnvBool("RECORD_READINGS", true),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MIN", 120),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("invalid integer in environment, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		slog.Warn("invalid float in environment, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		slog.Warn("invalid boolean in environment, using default", "key", key, "default", defaultValue)
	}
	return defaultValue
}
