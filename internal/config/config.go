package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Allocation AllocationConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Path string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	RunCompleted string
	RunFailed    string
}

type AllocationConfig struct {
	// RunHour is the local hour (0-23) at which the nightly run fires.
	RunHour int
	// LockTTLMinutes bounds the Redis run guard so a crashed run cannot
	// wedge the date forever.
	LockTTLMinutes int
	QRSecret       string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "shuttle.db"),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				RunCompleted: getEnv("KAFKA_TOPIC_RUN_COMPLETED", "allocation-run-completed"),
				RunFailed:    getEnv("KAFKA_TOPIC_RUN_FAILED", "allocation-run-failed"),
			},
		},
		Allocation: AllocationConfig{
			RunHour:        getEnvInt("ALLOCATION_RUN_HOUR", 22),
			LockTTLMinutes: getEnvInt("ALLOCATION_LOCK_TTL_MINUTES", 30),
			QRSecret:       getEnv("QR_SECRET_KEY", "dev-only-secret"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
