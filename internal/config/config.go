package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	Telemetry TelemetryConfig

	BotToken       string
	BotAPIEndpoint string
	BotPollTimeout int
	BotWorkers     int
	BotSendRate    float64
	BotSendBurst   int

	AdminIDs        []int64
	ChannelID       string
	ChannelUsername string

	GiftConfigPath string
	HTTPAddr       string

	RateLimit RateLimitConfig

	DBType            string
	DBPath            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// TelemetryConfig feeds the logger, the tracer and the OTel meter.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtlpEndpoint  string
	OtlpProtocol  string
	SamplingRatio float64
}

// RateLimitConfig enables the Redis-backed per-user throttle and the poller
// lease that keeps a single replica on getUpdates.
type RateLimitConfig struct {
	Enabled         bool
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	UserRate        float64
	UserBurst       int
	PollerLeaseTTLS int
}

var (
	ErrMissingBotToken = errors.New("missing_bot_token")
	ErrMissingChannel  = errors.New("missing_channel")
)

// DefaultBotAPIEndpoint mirrors tgbotapi.APIEndpoint.
const DefaultBotAPIEndpoint = "https://api.telegram.org/bot%s/%s"

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "giftbot"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtlpEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
			OtlpProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 1),
		},

		BotToken:       strings.TrimSpace(getenv("BOT_TOKEN", "")),
		BotAPIEndpoint: getenv("BOT_API_ENDPOINT", DefaultBotAPIEndpoint),
		BotPollTimeout: getenvInt("BOT_POLL_TIMEOUT", 30),
		BotWorkers:     getenvInt("BOT_WORKERS", 4),
		BotSendRate:    getenvFloat("BOT_SEND_RATE", 25),
		BotSendBurst:   getenvInt("BOT_SEND_BURST", 5),

		AdminIDs:        parseAdminIDs(getenv("ADMIN_IDS", "")),
		ChannelID:       strings.TrimSpace(getenv("CHANNEL_ID", "")),
		ChannelUsername: strings.TrimPrefix(strings.TrimSpace(getenv("CHANNEL_USERNAME", "")), "@"),

		GiftConfigPath: strings.TrimSpace(getenv("GIFT_CONFIG_PATH", "")),
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),

		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:       strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			RedisPassword:   getenv("REDIS_PASSWORD", ""),
			RedisDB:         getenvInt("REDIS_DB", 0),
			UserRate:        getenvFloat("RATE_LIMIT_USER_RATE", 1),
			UserBurst:       getenvInt("RATE_LIMIT_USER_BURST", 5),
			PollerLeaseTTLS: getenvInt("POLLER_LEASE_TTL_SECONDS", 30),
		},

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "sqlite")),
		DBPath:            getenv("DATABASE_PATH", "bot_database.db"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "giftbot"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 4),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
	}
}

// ValidateBot reports settings the bot cannot run without.
func (c Config) ValidateBot() error {
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.ChannelID == "" && c.ChannelUsername == "" {
		return ErrMissingChannel
	}
	return nil
}

// ChannelChat resolves the channel used for membership checks. A numeric
// CHANNEL_ID wins; otherwise the public username is used.
func (c Config) ChannelChat() (chatID int64, username string) {
	if id, err := strconv.ParseInt(c.ChannelID, 10, 64); err == nil && id != 0 {
		return id, ""
	}
	if name := strings.TrimPrefix(c.ChannelID, "@"); name != "" {
		return 0, "@" + name
	}
	return 0, "@" + c.ChannelUsername
}

// ChannelURL is the public link shown to users.
func (c Config) ChannelURL() string {
	name := c.ChannelUsername
	if name == "" {
		name = strings.TrimPrefix(c.ChannelID, "@")
	}
	return "https://t.me/" + name
}

func parseAdminIDs(raw string) []int64 {
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
