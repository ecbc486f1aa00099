package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"report-tables/models"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	LogLevel   string
	ServerPort string

	CSVOutputDir   string
	DisplayPercent bool
	VocabularyFile string

	MaxConcurrency  int
	MaxRetries      int
	FetchTimeoutSec int
	CacheEntries    int
	MaxUploadMB     int

	PDFPassword string
	PDFValidate bool
	ChromeBin   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		CSVOutputDir:   getEnv("CSV_OUTPUT_DIR", "./output"),
		DisplayPercent: getEnvBool("DISPLAY_PERCENT", false),
		VocabularyFile: getEnv("VOCABULARY_FILE", ""),

		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 3),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		FetchTimeoutSec: getEnvInt("FETCH_TIMEOUT_SEC", 30),
		CacheEntries:    getEnvInt("CACHE_ENTRIES", 16),
		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", 32),

		PDFPassword: getEnv("PDF_PASSWORD", ""),
		PDFValidate: getEnvBool("PDF_VALIDATE", false),
		ChromeBin:   getEnv("CHROME_BIN", ""),

		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "reports"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "reports"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}
}

// PostgresEnabled reports whether the optional Postgres export sink is configured.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// vocabularyFile is the on-disk shape of VOCABULARY_FILE.
type vocabularyFile struct {
	TimeAxisPatterns []string `yaml:"time_axis_patterns"`
	YearMin          int      `yaml:"year_min"`
	YearMax          int      `yaml:"year_max"`
}

// LoadVocabulary reads a YAML vocabulary file. An empty path yields the
// built-in vocabulary; fields left out of the file keep their defaults.
func LoadVocabulary(path string) (models.Vocabulary, error) {
	vocab := models.DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return vocab, fmt.Errorf("config: read vocabulary %q: %w", path, err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes vocabulary YAML on top of the defaults.
func ParseVocabulary(data []byte) (models.Vocabulary, error) {
	vocab := models.DefaultVocabulary()

	var vf vocabularyFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return vocab, fmt.Errorf("config: parse vocabulary: %w", err)
	}

	if len(vf.TimeAxisPatterns) > 0 {
		patterns := make([]*regexp.Regexp, 0, len(vf.TimeAxisPatterns))
		for _, p := range vf.TimeAxisPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return vocab, fmt.Errorf("config: time axis pattern %q: %w", p, err)
			}
			patterns = append(patterns, re)
		}
		vocab.TimeAxisPatterns = patterns
	}
	if vf.YearMin != 0 {
		vocab.YearMin = vf.YearMin
	}
	if vf.YearMax != 0 {
		vocab.YearMax = vf.YearMax
	}
	if vocab.YearMin > vocab.YearMax {
		return vocab, fmt.Errorf("config: year_min %d is after year_max %d", vocab.YearMin, vocab.YearMax)
	}
	return vocab, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
	}
	return fallback
}
