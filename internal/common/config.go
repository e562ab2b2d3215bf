package common

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Routing   RoutingConfig   `yaml:"routing"`
	OCR       OCRConfig       `yaml:"ocr"`
	Inference InferenceConfig `yaml:"inference"`
	Batch     BatchConfig     `yaml:"batch"`
	Export    ExportConfig    `yaml:"export"`
}

// DatabaseConfig holds job-store configuration. When DSN is empty the
// SQLite store at SQLitePath is used instead of Postgres.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// RoutingConfig holds the page-routing thresholds.
type RoutingConfig struct {
	TextMinChars     int     `yaml:"text_min_chars"`     // pages with fewer chars are scan pages
	GraphMaxChars    int     `yaml:"graph_max_chars"`    // graph pages carry very little text
	MinPatternFields int     `yaml:"min_pattern_fields"` // pattern matches needed to resolve a page free
	NumericTolerance float64 `yaml:"numeric_tolerance"`  // absolute agreement tolerance between sources
}

// OCRConfig holds local-recognition configuration.
type OCRConfig struct {
	Tesseract           string  `yaml:"tesseract"`
	Pdftotext           string  `yaml:"pdftotext"`
	Pdftoppm            string  `yaml:"pdftoppm"`
	Language            string  `yaml:"language"`
	DPI                 int     `yaml:"dpi"`
	PSM                 int     `yaml:"psm"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"` // below this, recognized text is discarded
}

// InferenceConfig holds external-inference configuration.
type InferenceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// BatchConfig holds document-pool configuration.
type BatchConfig struct {
	Workers         int           `yaml:"workers"`
	DocumentTimeout time.Duration `yaml:"document_timeout"`
}

// ExportConfig holds workbook-output configuration.
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// LoadConfig loads configuration from environment variables. When path is
// non-empty the YAML file is applied on top of the environment defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", "./medextract.db"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Routing: RoutingConfig{
			TextMinChars:     getEnvAsInt("TEXT_MIN_CHARS", 100),
			GraphMaxChars:    getEnvAsInt("GRAPH_MAX_CHARS", 200),
			MinPatternFields: getEnvAsInt("MIN_PATTERN_FIELDS", 3),
			NumericTolerance: getEnvAsFloat("NUMERIC_TOLERANCE", 0.1),
		},
		OCR: OCRConfig{
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			Pdftotext:           getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:            getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Language:            getEnv("OCR_LANG", "eng"),
			DPI:                 getEnvAsInt("OCR_DPI", 200),
			PSM:                 getEnvAsInt("OCR_PSM", 6),
			ConfidenceThreshold: getEnvAsFloat("OCR_CONFIDENCE_THRESHOLD", 0.8),
		},
		Inference: InferenceConfig{
			BaseURL:           getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:            getEnv("OPENAI_API_KEY", ""),
			Model:             getEnv("OPENAI_MODEL", "gpt-4o"),
			Temperature:       0.0,
			Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 120*time.Second),
			MaxRetries:        getEnvAsInt("AI_MAX_RETRIES", 1),
			RequestsPerMinute: getEnvAsInt("AI_REQUESTS_PER_MINUTE", 150),
		},
		Batch: BatchConfig{
			Workers:         getEnvAsInt("MAX_WORKERS", 5),
			DocumentTimeout: getEnvAsDuration("DOCUMENT_TIMEOUT", 10*time.Minute),
		},
		Export: ExportConfig{
			OutputDir: getEnv("OUTPUT_DIR", "./output"),
		},
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, WrapError(err, "read config file")
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, WrapError(err, "parse config file")
		}
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Inference.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Routing.MinPatternFields <= 0 {
		return NewAppError("CONFIG_ERROR", "MIN_PATTERN_FIELDS must be positive", ErrInvalidInput)
	}
	if c.OCR.ConfidenceThreshold < 0 || c.OCR.ConfidenceThreshold > 1 {
		return NewAppError("CONFIG_ERROR", "OCR_CONFIDENCE_THRESHOLD must be in [0,1]", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "MAX_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
