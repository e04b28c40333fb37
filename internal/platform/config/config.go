package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	PostgresDSN string
	SQLitePath  string
	BusBrokers  []string

	// TrackedModels are the entity collections kept in sync.
	TrackedModels []string

	ReplicationChunkSize int
	ReplicationAttempts  int
	SweepIntervalSeconds int

	EnableRectifySweep bool
	EnableEventRelay   bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "syncgate"
	}

	var tracked []string
	for _, value := range strings.Split(os.Getenv("TRACKED_MODELS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			tracked = append(tracked, value)
		}
	}
	if len(tracked) == 0 {
		tracked = []string{"Record"}
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "syncgate.db"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("BUS_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	return Config{
		ServiceName:   service,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		SQLitePath:    sqlitePath,
		BusBrokers:    brokers,
		TrackedModels: tracked,

		ReplicationChunkSize: envInt("REPLICATION_CHUNK_SIZE", 0),
		ReplicationAttempts:  envInt("REPLICATION_ATTEMPTS", 3),
		SweepIntervalSeconds: envInt("SWEEP_INTERVAL_SECONDS", 30),

		EnableRectifySweep: envBool("ENABLE_RECTIFY_SWEEP", true),
		EnableEventRelay:   envBool("ENABLE_EVENT_RELAY", true),
	}, nil
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
