package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT", "LOG_LEVEL", "KAFKA_PRINCIPAL",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
		"STT_INTERIM_RESULTS", "STT_AUDIO_ENCODING",
		"CAPTURE_MAX_AUDIO_BYTES", "CAPTURE_MAX_DURATION", "CAPTURE_MAX_UPDATES",
		"SCHEDULING_DEFAULT_DURATION", "AVAILABILITY_SCOPE", "LOCALE_TIMEZONE",
		"DATABASE_URL", "REDIS_ADDR",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-voice-appointment" {
		t.Errorf("expected default principal 'svc-voice-appointment', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}

	// STT defaults
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "es-ES" {
		t.Errorf("expected default language 'es-ES', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.STT.InterimResults)
	}

	// Capture limits defaults
	if cfg.Capture.MaxAudioBytes != 5*1024*1024 {
		t.Errorf("expected default max audio bytes 5MB, got %d", cfg.Capture.MaxAudioBytes)
	}
	if cfg.Capture.MaxDuration != 2*time.Minute {
		t.Errorf("expected default max duration 2m, got %v", cfg.Capture.MaxDuration)
	}
	if cfg.Capture.MaxUpdates != 500 {
		t.Errorf("expected default max updates 500, got %d", cfg.Capture.MaxUpdates)
	}

	// Scheduling defaults
	if cfg.Scheduling.DefaultDuration != 30 {
		t.Errorf("expected default duration 30, got %d", cfg.Scheduling.DefaultDuration)
	}
	if cfg.Scheduling.Scope != "global" {
		t.Errorf("expected default scope 'global', got %s", cfg.Scheduling.Scope)
	}

	// Stores default to in-process implementations
	if cfg.Postgres.URL != "" || cfg.Redis.Addr != "" {
		t.Errorf("expected no database or redis by default, got %q %q", cfg.Postgres.URL, cfg.Redis.Addr)
	}
	if cfg.Locale.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Locale.Location())
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("STT_LANGUAGE_CODE", "es-MX")
	t.Setenv("STT_SAMPLE_RATE_HZ", "8000")
	t.Setenv("STT_INTERIM_RESULTS", "false")
	t.Setenv("STT_AUDIO_ENCODING", "MULAW")
	t.Setenv("CAPTURE_MAX_AUDIO_BYTES", "10485760")
	t.Setenv("CAPTURE_MAX_DURATION", "10m")
	t.Setenv("CAPTURE_MAX_UPDATES", "1000")
	t.Setenv("SCHEDULING_DEFAULT_DURATION", "45")
	t.Setenv("AVAILABILITY_SCOPE", "office")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LOCALE_TIMEZONE", "America/Bogota")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "es-MX" {
		t.Errorf("expected language 'es-MX', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != false {
		t.Errorf("expected interim results false, got %v", cfg.STT.InterimResults)
	}
	if cfg.STT.AudioEncoding != "MULAW" {
		t.Errorf("expected encoding 'MULAW', got %s", cfg.STT.AudioEncoding)
	}
	if cfg.Capture.MaxAudioBytes != 10485760 {
		t.Errorf("expected max audio bytes 10485760, got %d", cfg.Capture.MaxAudioBytes)
	}
	if cfg.Capture.MaxDuration != 10*time.Minute {
		t.Errorf("expected max duration 10m, got %v", cfg.Capture.MaxDuration)
	}
	if cfg.Capture.MaxUpdates != 1000 {
		t.Errorf("expected max updates 1000, got %d", cfg.Capture.MaxUpdates)
	}
	if cfg.Scheduling.DefaultDuration != 45 {
		t.Errorf("expected default duration 45, got %d", cfg.Scheduling.DefaultDuration)
	}
	if cfg.Scheduling.Scope != "office" {
		t.Errorf("expected scope 'office', got %s", cfg.Scheduling.Scope)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	t.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	t.Setenv("STT_INTERIM_RESULTS", "invalid")
	t.Setenv("CAPTURE_MAX_AUDIO_BYTES", "invalid")
	t.Setenv("CAPTURE_MAX_DURATION", "invalid")
	t.Setenv("CAPTURE_MAX_UPDATES", "invalid")
	t.Setenv("SCHEDULING_DEFAULT_DURATION", "invalid")

	cfg := Load()

	// Should fall back to defaults on parse errors
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != true {
		t.Errorf("expected default interim results on invalid input, got %v", cfg.STT.InterimResults)
	}
	if cfg.Capture.MaxAudioBytes != 5*1024*1024 {
		t.Errorf("expected default max audio bytes on invalid input, got %d", cfg.Capture.MaxAudioBytes)
	}
	if cfg.Capture.MaxDuration != 2*time.Minute {
		t.Errorf("expected default max duration on invalid input, got %v", cfg.Capture.MaxDuration)
	}
	if cfg.Capture.MaxUpdates != 500 {
		t.Errorf("expected default max updates on invalid input, got %d", cfg.Capture.MaxUpdates)
	}
	if cfg.Scheduling.DefaultDuration != 30 {
		t.Errorf("expected default duration on invalid input, got %d", cfg.Scheduling.DefaultDuration)
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "my-service")
	os.Unsetenv("KAFKA_PRINCIPAL")

	cfg := Load()

	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestLocation_UnknownZoneFallsBackToUTC(t *testing.T) {
	loc := LocaleConfig{Timezone: "Mars/Olympus"}.Location()
	if loc != time.UTC {
		t.Errorf("expected UTC, got %v", loc)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultList(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"single", "a", []string{"a"}},
		{"trimmed", " a , b ", []string{"a", "b"}},
		{"only commas", ",,", []string{"def"}},
		{"empty", "", []string{"def"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_LIST_VAR", tt.envValue)

			got := envOrDefaultList("TEST_LIST_VAR", []string{"def"})
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}
