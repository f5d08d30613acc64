// Package config provides application configuration with multi-source priority.
//
// Sources, highest to lowest:
//  1. Environment variables (runtime override)
//  2. Config file (~/.lectern/config.yaml or ./config.yaml)
//  3. Defaults
//
// Categories: AI provider/model selection, retrieval tuning (result cap,
// round cap, history window), PostgreSQL connection, document ingestion, and
// the HTTP listen address.
//
// Sensitive values (the database password) are masked in MarshalJSON so a
// Config can be logged safely.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	ErrInvalidProvider     = errors.New("invalid provider")
	ErrInvalidModelName    = errors.New("invalid model name")
	ErrInvalidMaxResults   = errors.New("invalid max results")
	ErrInvalidMaxRounds    = errors.New("invalid max rounds")
	ErrInvalidMaxHistory   = errors.New("invalid max history")
	ErrInvalidQueryTimeout = errors.New("invalid query timeout")
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")
	ErrMissingAPIKey       = errors.New("missing API key")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	// DefaultEmbedderModel is the default Gemini embedding model. Output is
	// truncated to store.VectorDimension dimensions to match the pgvector schema.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultMaxRounds bounds the number of tool-execution rounds the model
	// may chain within a single query.
	DefaultMaxRounds = 2

	// DefaultMaxResults caps the number of chunks a content search returns.
	DefaultMaxResults = 5

	// DefaultMaxHistory is the number of past exchanges kept per session.
	DefaultMaxHistory = 2
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON; update it when adding
// passwords, keys, or tokens.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider" json:"provider"`     // "gemini" (default), "ollama", "openai"
	ModelName     string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Query processing
	MaxRounds    int           `mapstructure:"max_rounds" json:"max_rounds"`       // tool-execution round cap per query
	MaxResults   int           `mapstructure:"max_results" json:"max_results"`     // chunk cap per content search
	MaxHistory   int           `mapstructure:"max_history" json:"max_history"`     // exchanges retained per session
	QueryTimeout time.Duration `mapstructure:"query_timeout" json:"query_timeout"` // wall-clock bound on one query

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Ingestion and serving
	DocsDir    string `mapstructure:"docs_dir" json:"docs_dir"`
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".lectern")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.0)
	viper.SetDefault("max_tokens", 800)

	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("max_rounds", DefaultMaxRounds)
	viper.SetDefault("max_results", DefaultMaxResults)
	viper.SetDefault("max_history", DefaultMaxHistory)
	viper.SetDefault("query_timeout", 2*time.Minute)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "lectern")
	viper.SetDefault("postgres_password", "lectern_dev_password")
	viper.SetDefault("postgres_db_name", "lectern")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("docs_dir", "docs")
	viper.SetDefault("listen_addr", "127.0.0.1:8000")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit provider
// plugins, not via Viper; validation checks their presence per provider.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "LECTERN_PROVIDER")
	mustBind("model_name", "LECTERN_MODEL_NAME")
	mustBind("embedder_model", "LECTERN_EMBEDDER_MODEL")
	mustBind("ollama_host", "LECTERN_OLLAMA_HOST")
	mustBind("max_rounds", "LECTERN_MAX_ROUNDS")
	mustBind("max_results", "LECTERN_MAX_RESULTS")
	mustBind("max_history", "LECTERN_MAX_HISTORY")
	mustBind("docs_dir", "LECTERN_DOCS_DIR")
	mustBind("listen_addr", "LECTERN_LISTEN_ADDR")
	mustBind("postgres_password", "LECTERN_POSTGRES_PASSWORD")
}

// parseDatabaseURL applies DATABASE_URL (if set) over the postgres_* fields.
// The URL form wins because deployment platforms inject it as a single value.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if port := u.Port(); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &c.PostgresPort); err != nil {
			return fmt.Errorf("invalid port %q: %w", port, err)
		}
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.PostgresDBName = name
	}
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.PostgresSSLMode = mode
	}
	return nil
}

// PostgresURL returns the postgres:// URL form of the connection settings,
// as consumed by golang-migrate.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser), url.QueryEscape(c.PostgresPassword),
		c.PostgresHost, c.PostgresPort, c.PostgresDBName, c.PostgresSSLMode)
}

// PostgresConnectionString returns the keyword/value form used by pgxpool.
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDBName, c.PostgresSSLMode)
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash" or "ollama/llama3.3".
// A ModelName that already contains "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return "googleai/" + c.ModelName
	}
}

// maskedValue replaces sensitive data in logged output. Full-width blocks
// avoid accidental substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep two characters on each end for debuggability.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
