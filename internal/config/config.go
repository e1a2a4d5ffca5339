package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Slack    SlackConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	AI       AIConfig
	Canvas   CanvasConfig
	Showcase ShowcaseConfig
	Worker   WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// SlackConfig holds credentials and the frontend/backend channel pairing.
type SlackConfig struct {
	SigningSecret string
	OAuthToken    string
	AppID         string
	TeamID        string
	WorkspaceURL  string
	Channels      ChannelPairs
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis and
// the canvas cache falls back to process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AIConfig points at the chat-completions endpoint.
type AIConfig struct {
	Enabled bool
	BaseURL string
	Model   string
}

// CanvasConfig names the reference documents fed to the assistant.
type CanvasConfig struct {
	FAQFileID   string
	ThemeFileID string
	TTL         time.Duration
}

// ShowcaseConfig points at the project showcase site.
type ShowcaseConfig struct {
	BaseURL string
	Session string
}

// WorkerConfig sizes the detached-task pool.
type WorkerConfig struct {
	Count     int
	QueueSize int
}

// ChannelPairs maps a frontend channel id to its backend channel id.
type ChannelPairs map[string]string

// BackendFor returns the backend channel paired with the given frontend channel.
func (p ChannelPairs) BackendFor(frontend string) (string, bool) {
	backend, ok := p[frontend]
	return backend, ok
}

// IsFrontend reports whether the channel is a configured frontend channel.
func (p ChannelPairs) IsFrontend(channel string) bool {
	_, ok := p[channel]
	return ok
}

// IsBackend reports whether the channel is a configured backend channel.
func (p ChannelPairs) IsBackend(channel string) bool {
	for _, backend := range p {
		if backend == channel {
			return true
		}
	}
	return false
}

// FrontendsFor returns every frontend channel paired with the given backend channel.
func (p ChannelPairs) FrontendsFor(backend string) []string {
	var fronts []string
	for front, b := range p {
		if b == backend {
			fronts = append(fronts, front)
		}
	}
	return fronts
}

// Load reads configuration from environment variables, applying defaults where
// possible. A missing required variable is an error; the caller treats that as
// fatal at startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	signingSecret, err := requireEnv("SLACK_SIGNING_SECRET")
	if err != nil {
		return nil, err
	}
	oauthToken, err := requireEnv("SLACK_OAUTH_TOKEN")
	if err != nil {
		return nil, err
	}
	appID, err := requireEnv("SLACK_APP_ID")
	if err != nil {
		return nil, err
	}
	rawChannels, err := requireEnv("CHANNEL_IDS")
	if err != nil {
		return nil, err
	}
	channels := ChannelPairs{}
	if err := json.Unmarshal([]byte(rawChannels), &channels); err != nil {
		return nil, fmt.Errorf("invalid CHANNEL_IDS: %w", err)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("CHANNEL_IDS maps no channels")
	}
	dsn, err := requireEnv("POSTGRES_DSN")
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("CANVAS_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CANVAS_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "stonepheus"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Slack: SlackConfig{
			SigningSecret: signingSecret,
			OAuthToken:    oauthToken,
			AppID:         appID,
			TeamID:        getEnv("SLACK_TEAM_ID", "T0266FRGM"),
			WorkspaceURL:  getEnv("SLACK_WORKSPACE_URL", "https://hackclub.slack.com"),
			Channels:      channels,
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		AI: AIConfig{
			Enabled: getEnvAsBool("ENABLE_AI", false),
			BaseURL: getEnv("AI_BASE_URL", "https://ai.hackclub.com"),
			Model:   getEnv("AI_MODEL", "openai/gpt-oss-120b"),
		},
		Canvas: CanvasConfig{
			FAQFileID:   getEnv("CANVAS_FAQ_ID", "F099PKQR3UK"),
			ThemeFileID: getEnv("CANVAS_THEME_ID", "F09CNGA3WRM"),
			TTL:         cacheTTL,
		},
		Showcase: ShowcaseConfig{
			BaseURL: getEnv("SHOWCASE_BASE_URL", "https://siege.hackclub.com"),
			Session: os.Getenv("SHOWCASE_SESSION"),
		},
		Worker: WorkerConfig{
			Count:     getEnvAsInt("WORKER_COUNT", 4),
			QueueSize: getEnvAsInt("WORKER_QUEUE_SIZE", 64),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("environment variable %s is not set", key)
	}
	return val, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
