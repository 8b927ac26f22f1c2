package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GitHub   GitHubConfig
	Criteria CriteriaConfig
	Delays   DelayConfig
	Output   OutputConfig
	Email    EmailConfig
}

type GitHubConfig struct {
	Token      string
	BaseURL    string
	GraphQLURL string
}

type CriteriaConfig struct {
	MinRepoContributions   int
	MinYearlyContributions int
	MinStars               int
}

type DelayConfig struct {
	Request       time.Duration
	Contributor   time.Duration
	Repository    time.Duration
	QuotaCooldown time.Duration
}

type OutputConfig struct {
	Filename string
	ScanDir  string
	LogsDir  string
}

type EmailConfig struct {
	FakePatterns []string
}

// Load loads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		GitHub: GitHubConfig{
			Token:      getEnv("GITHUB_TOKEN", ""),
			BaseURL:    getEnv("GITHUB_BASE_URL", "https://api.github.com"),
			GraphQLURL: getEnv("GITHUB_GRAPHQL_URL", "https://api.github.com/graphql"),
		},
		Criteria: CriteriaConfig{
			MinRepoContributions:   getEnvAsInt("MIN_REPO_CONTRIBUTIONS", 100),
			MinYearlyContributions: getEnvAsInt("MIN_YEARLY_CONTRIBUTIONS", 400),
			MinStars:               getEnvAsInt("MIN_STARS", 0),
		},
		Delays: DelayConfig{
			Request:       getEnvAsDuration("REQUEST_DELAY_MS", 100) * time.Millisecond,
			Contributor:   getEnvAsDuration("CONTRIBUTOR_DELAY_MS", 1100) * time.Millisecond,
			Repository:    getEnvAsDuration("REPO_DELAY_MS", 1000) * time.Millisecond,
			QuotaCooldown: getEnvAsDuration("QUOTA_COOLDOWN_SECONDS", 300) * time.Second,
		},
		Output: OutputConfig{
			Filename: getEnv("OUTPUT_FILE", "github_contributors_results.xlsx"),
			ScanDir:  getEnv("SCAN_DIR", ""),
			LogsDir:  getEnv("LOGS_DIR", "logs"),
		},
		Email: EmailConfig{
			FakePatterns: getEnvAsList("FAKE_EMAIL_PATTERNS", []string{
				"noreply",
				"no-reply",
				"donotreply",
				"users.noreply.github.com",
				"localhost",
				"example.com",
				"test.com",
			}),
		},
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a unit count for durations
func getEnvAsDuration(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue))
}

// getEnvAsList gets a comma-separated environment variable or returns a default value
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
