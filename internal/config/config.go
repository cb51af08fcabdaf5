package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned by Validate when the search API key or
// the search engine id is not configured.
var ErrMissingCredentials = errors.New("API Key or Search Engine ID not found. Please check your .env file.")

const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

type Config struct {
	Port     int
	Password string // empty disables the login gate

	GoogleAPIKey   string
	SearchEngineID string
	SearchAPIURL   string
	WikipediaURL   string
	SearchResults  int
	SearchRate     float64 // requests per second, 0 = unlimited
	HTTPTimeout    time.Duration

	DetectorBackend   string
	ModelPath         string
	LabelsPath        string
	InferenceURL      string
	DefaultConfidence float64

	MaxUploadBytes int64
	PreviewSide    int
	LogDirectory   string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvAsInt("PORT", 8080),
		Password: getEnv("APP_PASSWORD", ""),

		GoogleAPIKey:   getEnv("GOOGLE_API_KEY", ""),
		SearchEngineID: getEnv("SEARCH_ENGINE_ID", ""),
		SearchAPIURL:   getEnv("SEARCH_API_URL", "https://www.googleapis.com/customsearch/v1"),
		WikipediaURL:   getEnv("WIKIPEDIA_API_URL", "https://en.wikipedia.org/w/api.php"),
		SearchResults:  getEnvAsInt("SEARCH_RESULTS", 3),
		SearchRate:     getEnvAsFloat("SEARCH_RATE_PER_SEC", 0),
		HTTPTimeout:    getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),

		DetectorBackend:   getEnv("DETECTOR_BACKEND", BackendONNX),
		ModelPath:         getEnv("MODEL_PATH", filepath.Join(".", "model", "last.onnx")),
		LabelsPath:        getEnv("LABELS_PATH", filepath.Join(".", "model", "labels.txt")),
		InferenceURL:      getEnv("INFERENCE_URL", "http://localhost:5000/predict"),
		DefaultConfidence: getEnvAsFloat("DEFAULT_CONFIDENCE", 0.1),

		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) << 20,
		PreviewSide:    getEnvAsInt("PREVIEW_SIDE", 800),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// Validate reports configuration that makes startup impossible.
func (c *Config) Validate() error {
	if c.GoogleAPIKey == "" || c.SearchEngineID == "" {
		return ErrMissingCredentials
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
