// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServiceConfig holds identity and listener settings.
type ServiceConfig struct {
	Principal         string
	HTTPPort          string
	ObservabilityPort string
}

// BackendConfig holds the upstream assistant endpoints.
type BackendConfig struct {
	// AssistantBaseURL hosts the streaming chat endpoint.
	AssistantBaseURL string
	// APIBaseURL hosts the fallback chat, save-response and chat-history endpoints.
	APIBaseURL       string
	RequestTimeout   time.Duration
	ChunkDelay       time.Duration
	Language         string
	ResponseLanguage string
}

// SpeechConfig holds recognizer settings.
type SpeechConfig struct {
	Provider       string // mock, google
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
}

// SynthesisConfig holds text-to-speech settings.
type SynthesisConfig struct {
	Provider string // none, elevenlabs
	APIKey   string
	VoiceID  string
	ModelID  string
}

// SessionConfig holds active-session store settings.
type SessionConfig struct {
	RedisEnabled bool
	RedisAddr    string
	RedisPrefix  string
	TTL          time.Duration
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicTurn       string
	Principal       string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel string
}

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Backend       BackendConfig
	Speech        SpeechConfig
	Synthesis     SynthesisConfig
	Session       SessionConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// Load reads configuration from the environment, applying defaults.
// A local .env file is loaded first when present.
func Load() *Configuration {
	_ = godotenv.Load()

	return &Configuration{
		Service: ServiceConfig{
			Principal:         envOrDefault("SERVICE_PRINCIPAL", "svc-chat-assistant"),
			HTTPPort:          envOrDefault("HTTP_PORT", "8080"),
			ObservabilityPort: envOrDefault("OBSERVABILITY_PORT", "9090"),
		},
		Backend: BackendConfig{
			AssistantBaseURL: envOrDefault("ASSISTANT_BASE_URL", "http://localhost:5000"),
			APIBaseURL:       envOrDefault("API_BASE_URL", "http://localhost:3000"),
			RequestTimeout:   envDurationOrDefault("BACKEND_REQUEST_TIMEOUT", 60*time.Second),
			ChunkDelay:       envDurationOrDefault("CHUNK_DELAY", 50*time.Millisecond),
			Language:         envOrDefault("CHAT_LANGUAGE", "en"),
			ResponseLanguage: envOrDefault("CHAT_RESPONSE_LANGUAGE", "en"),
		},
		Speech: SpeechConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envIntOrDefault("STT_SAMPLE_RATE_HZ", 16000),
			InterimResults: envBoolOrDefault("STT_INTERIM_RESULTS", true),
		},
		Synthesis: SynthesisConfig{
			Provider: envOrDefault("TTS_PROVIDER", "none"),
			APIKey:   os.Getenv("TTS_API_KEY"),
			VoiceID:  os.Getenv("TTS_VOICE_ID"),
			ModelID:  envOrDefault("TTS_MODEL_ID", "eleven_turbo_v2"),
		},
		Session: SessionConfig{
			RedisEnabled: envBoolOrDefault("REDIS_ENABLED", false),
			RedisAddr:    envOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPrefix:  envOrDefault("REDIS_PREFIX", "chat-assistant:session:"),
			TTL:          envDurationOrDefault("SESSION_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled:         envBoolOrDefault("KAFKA_ENABLED", false),
			Brokers:         envListOrDefault("KAFKA_BROKERS", nil),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "assistant.dictation.final"),
			TopicTurn:       envOrDefault("KAFKA_TOPIC_TURN", "assistant.chat.turn"),
			Principal:       envOrDefault("SERVICE_PRINCIPAL", "svc-chat-assistant"),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envListOrDefault(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
