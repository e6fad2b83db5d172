package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Upstream  UpstreamConfig
	Dashboard DashboardConfig
	Storage   StorageConfig
	Events    EventsConfig
}

type AppConfig struct {
	Port                string
	Environment         string
	LogFilePath         string
	NotificationLogPath string
	CorsAllowedOrigins  string
}

// UpstreamConfig points at the clinical backend that serves patient history
// and the analysis endpoints.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DashboardConfig struct {
	SessionCeilingSeconds int
	TickInterval          time.Duration
	TabSettleDelay        time.Duration
	TabPersistDebounce    time.Duration
	ToastTTL              time.Duration
}

type StorageConfig struct {
	Driver      string // "memory", "sqlite", "redis" or "postgres"
	SQLitePath  string
	PostgresDSN string
	RedisURL    string
}

type EventsConfig struct {
	Topic   string
	NatsURL string // empty disables the NATS mirror
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:                getEnv("APP_PORT", "3000"),
			Environment:         getEnv("GO_ENV", "development"),
			LogFilePath:         getEnv("LOG_FILE_PATH", "logs/app.log"),
			NotificationLogPath: getEnv("NOTIFICATION_LOG_FILE_PATH", "logs/notification.log"),
			CorsAllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnv("UPSTREAM_BASE_URL", "http://localhost:8000"),
			Timeout: getEnvAsDuration("UPSTREAM_TIMEOUT", 60*time.Second),
		},
		Dashboard: DashboardConfig{
			SessionCeilingSeconds: getEnvAsInt("SESSION_CEILING_SECONDS", 3600),
			TickInterval:          getEnvAsDuration("SESSION_TICK_INTERVAL", time.Second),
			TabSettleDelay:        getEnvAsDuration("TAB_SETTLE_DELAY", 300*time.Millisecond),
			TabPersistDebounce:    getEnvAsDuration("TAB_PERSIST_DEBOUNCE", 300*time.Millisecond),
			ToastTTL:              getEnvAsDuration("TOAST_TTL", 5*time.Second),
		},
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", "sqlite"),
			SQLitePath:  getEnv("SQLITE_PATH", "data/dashboard.db"),
			PostgresDSN: getEnv("DB_CONNECTION_STRING", ""),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Events: EventsConfig{
			Topic:   getEnv("SESSION_EVENTS_TOPIC", "SESSION_EVENTS"),
			NatsURL: getEnv("NATS_URL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("300ms", "1s").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
