package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string

	// Database
	DatabaseURL string

	// Identity
	JWTSecret string
	JWTTTL    time.Duration

	// Kafka
	KafkaBrokers       []string
	KafkaConsumerGroup string
	KafkaTopicEvents   string

	// S3/Storage
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	// Content generation
	ContentBackend    string // rest, genai, langchain, openai
	GeminiAPIKey      string
	GeminiAPIEndpoint string // base URL, e.g. https://generativelanguage.googleapis.com/v1beta
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	ContentRPS        float64 // client-side pacing; 0 disables

	// Speech synthesis
	ElevenLabsAPIKey   string
	ElevenLabsEndpoint string
	ElevenLabsModel    string
	VoiceCreative      string
	VoiceAdventurous   string
	VoiceProfessional  string
	VoiceThoughtful    string

	// Avatar video
	TavusAPIKey        string
	TavusEndpoint      string
	AvatarPollInterval time.Duration
	AvatarPollTimeout  time.Duration

	// Vendor HTTP
	VendorHTTPTimeout time.Duration

	// Upload limits
	MaxPortraitSize int64

	// Per-user simulation quota; 0 disables
	SimulationQuota       int
	SimulationQuotaPeriod string // hourly, daily, weekly, monthly
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		KafkaBrokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "shadowtwin-worker"),
		KafkaTopicEvents:   getEnv("KAFKA_TOPIC_EVENTS", "shadowtwin.stage-events.v1"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "shadowtwin-assets"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		ContentBackend:    strings.ToLower(getEnv("CONTENT_BACKEND", "rest")),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIEndpoint: getEnv("GEMINI_API_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		ContentRPS:        getEnvFloat("CONTENT_RPS", 0),

		ElevenLabsAPIKey:   getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsEndpoint: getEnv("ELEVENLABS_ENDPOINT", "https://api.elevenlabs.io/v1/text-to-speech"),
		ElevenLabsModel:    getEnv("ELEVENLABS_MODEL", "eleven_monolingual_v1"),
		VoiceCreative:      getEnv("VOICE_CREATIVE", "EXAVITQu4vr4xnSDxMaL"),
		VoiceAdventurous:   getEnv("VOICE_ADVENTUROUS", "TxGEqnHWrfWFTfGW9XjX"),
		VoiceProfessional:  getEnv("VOICE_PROFESSIONAL", "VR6AewLTigWG4xSOukaG"),
		VoiceThoughtful:    getEnv("VOICE_THOUGHTFUL", "pNInz6obpgDQGcFmaJgB"),

		TavusAPIKey:        getEnv("TAVUS_API_KEY", ""),
		TavusEndpoint:      getEnv("TAVUS_ENDPOINT", "https://tavusapi.com/v2"),
		AvatarPollInterval: clampMinDuration(getEnvDuration("AVATAR_POLL_INTERVAL", 5*time.Second), 100*time.Millisecond),
		AvatarPollTimeout:  getEnvDuration("AVATAR_POLL_TIMEOUT", 5*time.Minute),

		VendorHTTPTimeout: getEnvDuration("VENDOR_HTTP_TIMEOUT", 60*time.Second),

		MaxPortraitSize: getEnvInt64("MAX_PORTRAIT_SIZE", 10*1024*1024), // 10MB

		SimulationQuota:       getEnvInt("SIMULATION_QUOTA", 20),
		SimulationQuotaPeriod: getEnv("SIMULATION_QUOTA_PERIOD", "daily"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// clampMinDuration returns v if v >= min, otherwise min.
func clampMinDuration(v, min time.Duration) time.Duration {
	if v < min {
		return min
	}
	return v
}
