// Package config loads service configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all service configuration.
type Config struct {
	Service       ServiceConfig
	Kafka         KafkaConfig
	STT           STTConfig
	Capture       CaptureConfig
	Scheduling    SchedulingConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Catalog       CatalogConfig
	Locale        LocaleConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener settings.
type ServiceConfig struct {
	Principal string
	GRPCPort  string
	HTTPPort  string
	// AllowedOrigins restricts websocket upgrades. Empty allows any origin.
	AllowedOrigins []string
}

// KafkaConfig holds Kafka publisher and consumer settings.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicOutcome     string
	TopicAppointment string
	Principal        string

	ConsumerEnabled  bool
	TopicTranscripts string
	GroupID          string
}

// STTConfig holds speech-to-text settings.
type STTConfig struct {
	Provider       string // mock, google, none
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
}

// CaptureConfig holds capture session guardrails.
type CaptureConfig struct {
	MaxAudioBytes int64
	MaxDuration   time.Duration
	MaxUpdates    int
}

// SchedulingConfig holds commitment settings.
type SchedulingConfig struct {
	DefaultDuration int
	Scope           string // global, office
}

// PostgresConfig holds the record store connection. An empty URL selects the
// in-memory store.
type PostgresConfig struct {
	URL string
}

// RedisConfig holds the distributed lock connection. An empty address selects
// the in-process lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// CatalogConfig points at an optional YAML catalog file.
type CatalogConfig struct {
	File string
}

// LocaleConfig holds the time zone used for "today" and appointment instants.
type LocaleConfig struct {
	Timezone string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-appointment")

	return &Config{
		Service: ServiceConfig{
			Principal:      principal,
			GRPCPort:       envOrDefault("GRPC_PORT", "50051"),
			HTTPPort:       envOrDefault("HTTP_PORT", "8080"),
			AllowedOrigins: envOrDefaultList("HTTP_ALLOWED_ORIGINS", nil),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicOutcome:     envOrDefault("KAFKA_TOPIC_OUTCOME", "voice.outcome"),
			TopicAppointment: envOrDefault("KAFKA_TOPIC_APPOINTMENT", "appointment.lifecycle"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", principal),
			ConsumerEnabled:  envOrDefaultBool("KAFKA_CONSUMER_ENABLED", false),
			TopicTranscripts: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "interaction.transcript.final"),
			GroupID:          envOrDefault("KAFKA_GROUP_ID", "voice-appointment-service"),
		},
		STT: STTConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "es-ES"),
			SampleRateHz:   envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			InterimResults: envOrDefaultBool("STT_INTERIM_RESULTS", true),
			AudioEncoding:  envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
		},
		Capture: CaptureConfig{
			MaxAudioBytes: envOrDefaultInt64("CAPTURE_MAX_AUDIO_BYTES", 5*1024*1024),
			MaxDuration:   envOrDefaultDuration("CAPTURE_MAX_DURATION", 2*time.Minute),
			MaxUpdates:    envOrDefaultInt("CAPTURE_MAX_UPDATES", 500),
		},
		Scheduling: SchedulingConfig{
			DefaultDuration: envOrDefaultInt("SCHEDULING_DEFAULT_DURATION", 30),
			Scope:           envOrDefault("AVAILABILITY_SCOPE", "global"),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       envOrDefaultInt("REDIS_DB", 0),
			LockTTL:  envOrDefaultDuration("REDIS_LOCK_TTL", 10*time.Second),
		},
		Catalog: CatalogConfig{
			File: os.Getenv("CATALOG_FILE"),
		},
		Locale: LocaleConfig{
			Timezone: envOrDefault("LOCALE_TIMEZONE", "UTC"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

// Location resolves the configured time zone, falling back to UTC.
func (c LocaleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.Timezone).Msg("Unknown time zone, using UTC")
		return time.UTC
	}
	return loc
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
