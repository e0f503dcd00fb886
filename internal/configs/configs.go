/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, storage paths, and
the Gemini and Speech-to-Text service settings.
*/
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Storage Settings
	DataDir     string
	FoodDBPath  string
	FoodDataCSV string

	// Gemini LLM Settings
	GeminiAPIKey     string
	GeminiModel      string
	GeminiEmbedModel string

	// Speech-to-Text Settings
	SpeechLanguage   string
	SpeechSampleRate int
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type
// conversions and validation. It returns a pointer to the AppConfig struct and any
// error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Port
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	// AllowedOrigins
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Storage Settings ---
	// DataDir holds the user records and, by default, the food knowledge base.
	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	cfg.FoodDBPath = os.Getenv("FOOD_DB_PATH")
	if cfg.FoodDBPath == "" {
		cfg.FoodDBPath = filepath.Join(cfg.DataDir, "food.db")
	}

	cfg.FoodDataCSV = os.Getenv("FOOD_DATA_CSV")
	if cfg.FoodDataCSV == "" {
		cfg.FoodDataCSV = "cleaned_food_data.csv"
	}

	// --- Gemini LLM Settings ---
	// GeminiAPIKey has no default: the coach, the image analysis, and the
	// knowledge-base embeddings all depend on it.
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required for the Gemini API connection")
	}

	cfg.GeminiModel = os.Getenv("GEMINI_MODEL")
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-1.5-flash"
	}

	cfg.GeminiEmbedModel = os.Getenv("GEMINI_EMBED_MODEL")
	if cfg.GeminiEmbedModel == "" {
		cfg.GeminiEmbedModel = "text-embedding-004"
	}

	// --- Speech-to-Text Settings ---
	cfg.SpeechLanguage = os.Getenv("SPEECH_LANGUAGE")
	if cfg.SpeechLanguage == "" {
		cfg.SpeechLanguage = "en-US"
	}

	rateStr := os.Getenv("SPEECH_SAMPLE_RATE")
	if rateStr == "" {
		rateStr = "16000"
	}
	sampleRate, err := strconv.Atoi(rateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SPEECH_SAMPLE_RATE environment variable: %w", err)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("SPEECH_SAMPLE_RATE must be positive, got %d", sampleRate)
	}
	cfg.SpeechSampleRate = sampleRate

	return cfg, nil
}
