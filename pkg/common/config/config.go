package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers      []string
	KafkaGroupID      string
	ObservationsTopic string
	PredictionsTopic  string

	// Forecasting engine
	EngineBaseURL      string
	EngineTokenURL     string
	EngineClientID     string
	EngineClientSecret string
	EngineTimeout      time.Duration
	EngineMode         string // auto, remote, legacy

	// Forecast limits
	MinHistoryPoints int
	MaxHorizon       int
	MinContext       int
	MaxContext       int
	PatchSize        int

	// Risk prediction
	ReferenceCSVPath   string
	OutcomeColumn      string
	MappingRulesPath   string
	ClassifierArtifact string
	DefaultHorizon     int

	// Result cache
	ResultCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "cardia"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "cardia123"),
		PostgresDB:       getEnv("POSTGRES_DB", "cardia"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:      getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "cardia-platform"),
		ObservationsTopic: getEnv("KAFKA_OBSERVATIONS_TOPIC", "patient-observations"),
		PredictionsTopic:  getEnv("KAFKA_PREDICTIONS_TOPIC", "risk-predictions"),

		EngineBaseURL:      getEnv("ENGINE_BASE_URL", "http://localhost:5001"),
		EngineTokenURL:     getEnv("ENGINE_TOKEN_URL", ""),
		EngineClientID:     getEnv("ENGINE_CLIENT_ID", ""),
		EngineClientSecret: getEnv("ENGINE_CLIENT_SECRET", ""),
		EngineTimeout:      getDuration("ENGINE_TIMEOUT", 60*time.Second),
		EngineMode:         getEnv("ENGINE_MODE", "auto"),

		MinHistoryPoints: getIntEnv("MIN_HISTORY_POINTS", 12),
		MaxHorizon:       getIntEnv("MAX_HORIZON", 256),
		MinContext:       getIntEnv("MIN_CONTEXT", 32),
		MaxContext:       getIntEnv("MAX_CONTEXT", 1024),
		PatchSize:        getIntEnv("PATCH_SIZE", 32),

		ReferenceCSVPath:   getEnv("REFERENCE_CSV_PATH", "diabetes.csv"),
		OutcomeColumn:      getEnv("OUTCOME_COLUMN", "Outcome"),
		MappingRulesPath:   getEnv("MAPPING_RULES_PATH", ""),
		ClassifierArtifact: getEnv("CLASSIFIER_ARTIFACT_DIR", "artifacts"),
		DefaultHorizon:     getIntEnv("DEFAULT_RISK_HORIZON", 15),

		ResultCacheTTL: getDuration("RESULT_CACHE_TTL", 15*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
