package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr           string
	DBURL              string
	APIToken           string
	Migrate            bool
	Environment        string
	SprintDurationDays int
	BufferPercentage   float64
}

func Load() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBURL:              getEnv("DB_URL", "postgres://postgres:postgres@db:5432/sprint_planner?sslmode=disable"),
		APIToken:           getEnv("API_TOKEN", "planner-secret"),
		Migrate:            getEnv("RUN_MIGRATIONS", "true") == "true",
		Environment:        getEnv("ENVIRONMENT", "local"),
		SprintDurationDays: getEnvInt("SPRINT_DURATION_DAYS", 10),
		BufferPercentage:   getEnvFloat("CAPACITY_BUFFER_PCT", 20),
	}
}

func getEnv(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func getEnvInt(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
