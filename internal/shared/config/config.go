package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. It is built once at process start
// and passed to constructors; nothing reads the environment after Load.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	LogLevel        string

	StoreType   string
	StoreFile   string
	SQLitePath  string
	DatabaseURL string

	UploadDir      string
	MaxUploadBytes int64

	ArchiveStore  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	SSEKMSKeyID   string

	LLMProvider    string
	LLMModel       string
	GeminiAPIKey   string
	GeminiBaseURL  string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMTimeout     time.Duration
	LLMMaxAttempts int
	LLMRetryDelay  time.Duration

	MaxCharsPerChunk   int
	OverlapChars       int
	ExtractConcurrency int
	StrictHashing      bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	storeType := normalizeStoreType(getEnv("STORE_TYPE", ""), os.Getenv("DATABASE_URL"))

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		StoreType:   storeType,
		StoreFile:   getEnv("STORE_FILE", "mock_analyzed_tasks.json"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/compliance.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		UploadDir:      getEnv("UPLOAD_DIR", "./temp"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 25<<20)),

		ArchiveStore:  normalizeArchiveStore(getEnv("ARCHIVE_STORE", "none")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Prefix:      getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:   getEnv("SSE_KMS_KEY_ID", ""),

		LLMProvider:    normalizeProvider(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:       getEnv("LLM_MODEL", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", ""),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		LLMMaxAttempts: getEnvInt("LLM_MAX_ATTEMPTS", 3),
		LLMRetryDelay:  getEnvDuration("LLM_RETRY_DELAY", time.Second),

		MaxCharsPerChunk:   getEnvInt("MAX_CHARS_PER_CHUNK", 8000),
		OverlapChars:       getEnvInt("OVERLAP_CHARS", 1000),
		ExtractConcurrency: getEnvInt("EXTRACT_CONCURRENCY", 1),
		StrictHashing:      getEnvBool("STRICT_HASHING", false),
	}
}

// IsDevLike reports whether the environment tolerates in-memory fallbacks.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

// normalizeStoreType picks postgres when only DATABASE_URL is set.
func normalizeStoreType(raw, databaseURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory":
		return "memory"
	case "file", "json":
		return "file"
	case "sqlite":
		return "sqlite"
	case "postgres", "pg":
		return "postgres"
	}
	if strings.TrimSpace(databaseURL) != "" {
		return "postgres"
	}
	return "sqlite"
}

func normalizeArchiveStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "local":
		return "local"
	default:
		return "none"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "genai", "gemini-sdk":
		return "genai"
	default:
		return "gemini"
	}
}
