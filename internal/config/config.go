package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "siteclock/internal/common/config"
)

// Config siteclock (HTTP API + jobs) configuration
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled    bool
	Database     commoncfg.DatabaseConfig
	RedisEnabled bool
	Redis        commoncfg.RedisConfig
	Log          struct {
		Level  string
		Format string
	}
	App      AppConfig
	Geofence GeofenceConfig
	MQTT     MQTTConfig
	Notify   NotifyConfig
	Daily    DailyReportConfig
	Auth     AuthConfig
}

// AppConfig attendance-wide settings
type AppConfig struct {
	Timezone    string // IANA name; naive timestamps are read in this zone
	ReportsDir  string
	EventStream string // Redis stream receiving attendance events
}

// GeofenceConfig clock-in position check
type GeofenceConfig struct {
	Enforced      bool
	DefaultRadius float64
}

// MQTTConfig realtime site feed; disabled by default
type MQTTConfig struct {
	Enabled     bool
	Broker      commoncfg.MQTTConfig
	TopicPrefix string
}

// NotifyConfig anomaly webhook
type NotifyConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// DailyReportConfig scheduled hours workbook
type DailyReportConfig struct {
	Enabled bool
	Hour    int
}

// AuthConfig login sessions and the seeded administrator
type AuthConfig struct {
	SessionTTL    time.Duration
	SeedAdmin     bool
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// falls back to in-memory repositories when false
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "siteclock")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.App.Timezone = getEnv("APP_TIMEZONE", "Europe/Rome")
	cfg.App.ReportsDir = getEnv("REPORTS_DIR", "reports")
	cfg.App.EventStream = getEnv("EVENT_STREAM", "attendance:events")

	cfg.Geofence.Enforced = getEnv("GEOFENCE_ENFORCED", "true") == "true"
	cfg.Geofence.DefaultRadius = parseFloat(getEnv("GEOFENCE_RADIUS_METERS", "100"), 100)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.Broker.ClientID = getEnv("MQTT_CLIENT_ID", "siteclock")
	cfg.MQTT.Broker.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Broker.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Broker.QoS = byte(clamp(parseInt(getEnv("MQTT_QOS", "1"), 1), 0, 2))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "siteclock")

	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")
	cfg.Notify.Timeout = time.Duration(parseInt(getEnv("NOTIFY_TIMEOUT_SECONDS", "10"), 10)) * time.Second

	cfg.Daily.Enabled = getEnv("DAILY_REPORT_ENABLED", "false") == "true"
	cfg.Daily.Hour = clamp(parseInt(getEnv("DAILY_REPORT_HOUR", "6"), 6), 0, 23)

	cfg.Auth.SessionTTL = time.Duration(parseInt(getEnv("SESSION_TTL_HOURS", "12"), 12)) * time.Hour
	cfg.Auth.SeedAdmin = getEnv("SEED_ADMIN", "true") == "true"
	cfg.Auth.AdminUsername = getEnv("ADMIN_USERNAME", "admin")
	cfg.Auth.AdminEmail = getEnv("ADMIN_EMAIL", "admin@siteclock.local")
	cfg.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", "admin123")

	return cfg
}

// Location resolves App.Timezone, falling back to time.Local
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
