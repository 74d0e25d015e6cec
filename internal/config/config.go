package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the OpenAI-compatible completion endpoint.
const (
	DefaultLLMEndpoint    = "https://api.deepseek.com/v1/chat/completions"
	DefaultLLMModel       = "deepseek-chat"
	PlaceholderLLMAPIKey  = "YOUR_DEEPSEEK_API_KEY"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultSettingsFile   = "finsight.env"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds application configuration. It is built once by Load and passed
// explicitly to the components that need it.
type Config struct {
	Env  string
	Port string

	// Database
	DBDriver     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DBSQLitePath string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Completion API
	LLMProvider     string
	LLMEndpoint     string
	LLMAPIKey       string
	LLMModel        string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMTimeout      time.Duration

	// AI features
	InsightCacheTTL time.Duration
	ChatSessionTTL  time.Duration
	AIRateLimit     float64
	AIRateBurst     int
	WorkerPoolSize  int
}

// source resolves keys from the persisted settings file first, then the
// process environment, then the supplied default.
type source struct {
	settings map[string]string
}

func (s source) get(key, defaultValue string) string {
	if value, ok := s.settings[key]; ok && value != "" {
		return value
	}
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) duration(key string, defaultValue time.Duration) time.Duration {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func (s source) float(key string, defaultValue float64) float64 {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %v\n", key, raw, defaultValue)
		return defaultValue
	}
	return f
}

func (s source) integer(key string, defaultValue int) int {
	raw := s.get(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

// Load reads .env into the environment (if present), then resolves every key
// from the settings file named by FINSIGHT_CONFIG_FILE, the environment and
// the built-in defaults, in that order.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	path := os.Getenv("FINSIGHT_CONFIG_FILE")
	if path == "" {
		path = defaultSettingsFile
	}
	return LoadFrom(path)
}

// LoadFrom resolves configuration using path as the persisted settings file.
// A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	settings, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: could not read settings file %s: %v\n", path, err)
		}
		settings = map[string]string{}
	}
	src := source{settings: settings}

	cfg := &Config{
		Env:  src.get("ENV", "development"),
		Port: src.get("PORT", "8080"),

		DBDriver:     src.get("DB_DRIVER", "postgres"),
		DBHost:       src.get("DB_HOST", "localhost"),
		DBPort:       src.get("DB_PORT", "5432"),
		DBUser:       src.get("DB_USER", "finsight"),
		DBPassword:   src.get("DB_PASSWORD", "finsight"),
		DBName:       src.get("DB_NAME", "finsight"),
		DBSSLMode:    src.get("DB_SSLMODE", "disable"),
		DBSQLitePath: src.get("DB_SQLITE_PATH", "finsight.db"),

		JWTSecret:        src.get("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		JWTExpirationDur: src.duration("JWT_EXPIRES_IN", 24*time.Hour),

		LLMProvider:     src.get("LLM_PROVIDER", ProviderOpenAI),
		LLMEndpoint:     src.get("DEEPSEEK_API_URL", DefaultLLMEndpoint),
		LLMAPIKey:       src.get("DEEPSEEK_API_KEY", PlaceholderLLMAPIKey),
		LLMModel:        src.get("DEEPSEEK_MODEL", DefaultLLMModel),
		AnthropicAPIKey: src.get("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  src.get("ANTHROPIC_MODEL", DefaultAnthropicModel),
		LLMTimeout:      src.duration("LLM_TIMEOUT", 0),

		InsightCacheTTL: src.duration("INSIGHT_CACHE_TTL", 30*time.Minute),
		ChatSessionTTL:  src.duration("CHAT_SESSION_TTL", 2*time.Hour),
		AIRateLimit:     src.float("AI_RATE_LIMIT", 1),
		AIRateBurst:     src.integer("AI_RATE_BURST", 5),
		WorkerPoolSize:  src.integer("WORKER_POOL_SIZE", 8),
	}

	return cfg, nil
}

// LLMConfigured reports whether a real completion API key is available for
// the selected provider.
func (c *Config) LLMConfigured() bool {
	if c.LLMProvider == ProviderAnthropic {
		return c.AnthropicAPIKey != ""
	}
	return c.LLMAPIKey != "" && c.LLMAPIKey != PlaceholderLLMAPIKey
}
