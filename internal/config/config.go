// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Optional integrations (Redis, RabbitMQ, MQTT, the
// refine service) are disabled when their address is empty.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	LogLevel  string // zap level: debug, info, warn, error
	LogFormat string // "json" or "console"

	InitialBayCount int           // bays created when no snapshot exists
	TickInterval    time.Duration // period of the countdown tick
	AlarmClearAfter time.Duration // how long a bay stays alarming after a completion
	HistoryTZ       *time.Location

	Snapshot SnapshotConfig
	Remote   RemoteConfig
	Broker   BrokerConfig
	Refine   RefineConfig

	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing

	StaffPasswordHash    string // bcrypt hash for the STAFF login
	DirectorPasswordHash string // bcrypt hash for the DIRECTOR login
}

// SnapshotConfig selects the local snapshot store.
type SnapshotConfig struct {
	Driver string // "sqlite" (default) or "mysql"
	Path   string // sqlite file path
	Key    string // row key inside board_snapshots

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string
}

// LoadSnapshotConfig reads only the snapshot store settings.  The snapshot
// maintenance commands use it without requiring the server secrets.
func LoadSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		Driver: strings.ToLower(envStr("SNAPSHOT_DRIVER", "sqlite")),
		Path:   envStr("SNAPSHOT_PATH", "data/board.db"),
		Key:    envStr("SNAPSHOT_KEY", "clinic_state_v1"),
		DBUser: os.Getenv("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: envStr("DB_HOST", "localhost"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: os.Getenv("DB_NAME"),
	}
}

// RemoteConfig controls replication through the shared Redis store.
type RemoteConfig struct {
	Enabled     bool
	StateKey    string
	PushTimeout time.Duration
	EchoWindow  time.Duration
}

// BrokerConfig groups the message brokers: RabbitMQ for discharge events
// and MQTT for the bay-side buzzers.
type BrokerConfig struct {
	RabbitURL     string
	EventsEnabled bool
	EventLogDir   string

	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTPrefix   string
}

// RefineConfig points at the note refinement service.
type RefineConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must(); every missing one is reported in the
// returned error.
func Load() (Config, error) {
	var missing []error
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}

	tz, err := time.LoadLocation(envStr("HISTORY_TZ", "Local"))
	if err != nil {
		missing = append(missing, fmt.Errorf("invalid HISTORY_TZ: %w", err))
		tz = time.Local
	}

	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      envStr("APP_PORT", "8080"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),

		InitialBayCount: envInt("INITIAL_BAY_COUNT", 8),
		TickInterval:    envDur("TICK_INTERVAL", time.Second),
		AlarmClearAfter: envDur("ALARM_CLEAR_AFTER", 5*time.Second),
		HistoryTZ:       tz,

		Snapshot: LoadSnapshotConfig(),
		Remote: RemoteConfig{
			Enabled:     envBool("REMOTE_SYNC_ENABLED", true),
			StateKey:    envStr("REMOTE_STATE_KEY", "clinic_state"),
			PushTimeout: envDur("PUSH_TIMEOUT", 2*time.Second),
			EchoWindow:  envDur("ECHO_SUPPRESS_WINDOW", 100*time.Millisecond),
		},
		Broker: BrokerConfig{
			RabbitURL:     os.Getenv("RABBITMQ_URL"),
			EventsEnabled: envBool("EVENTS_ENABLED", false),
			EventLogDir:   envStr("EVENT_LOG_DIR", "logs"),
			MQTTBroker:    os.Getenv("MQTT_BROKER"),
			MQTTClientID:  envStr("MQTT_CLIENT_ID", "clinic-board"),
			MQTTUsername:  os.Getenv("MQTT_USERNAME"),
			MQTTPassword:  os.Getenv("MQTT_PASSWORD"),
			MQTTPrefix:    envStr("MQTT_TOPIC_PREFIX", "clinic"),
		},
		Refine: RefineConfig{
			BaseURL: os.Getenv("REFINE_BASE_URL"),
			APIKey:  os.Getenv("REFINE_API_KEY"),
			Timeout: envDur("REFINE_TIMEOUT", 10*time.Second),
		},

		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 720),
		BcryptCost:   envInt("BCRYPT_COST", 10),

		StaffPasswordHash:    os.Getenv("STAFF_PASSWORD_HASH"),
		DirectorPasswordHash: os.Getenv("DIRECTOR_PASSWORD_HASH"),
	}

	switch cfg.Snapshot.Driver {
	case "sqlite":
	case "mysql":
		must("DB_USER")
		must("DB_NAME")
	default:
		missing = append(missing, fmt.Errorf("unsupported SNAPSHOT_DRIVER %q", cfg.Snapshot.Driver))
	}
	if cfg.InitialBayCount < 0 {
		missing = append(missing, errors.New("INITIAL_BAY_COUNT must not be negative"))
	}

	return cfg, errors.Join(missing...)
}

// Production reports whether the app runs with APP_ENV=prod.
func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
