package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMongo    = "mongo"
	StorageDynamoDB = "dynamodb"
)

const devJWTSecret = "dev-secret-change-in-production"

// Config is the server configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	StorageBackend string
	MongoURI       string
	MongoDatabase  string
	RedisURI       string

	AWSRegion        string
	SurveysTable     string
	SubmissionsTable string

	JWTSecret     string
	OwnerUsername string
	OwnerPassword string
	OwnerTenantID string

	SessionTTL      time.Duration
	HoneypotField   string
	MinFillDuration time.Duration
	AllowedOrigins  []string

	AI *AIConfig
}

// Load reads the configuration from the environment, after loading an
// optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		StorageBackend: getEnvOrDefault("STORAGE_BACKEND", StorageMongo),
		MongoURI:       getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnvOrDefault("MONGO_DATABASE", "surveyflow"),
		RedisURI:       getEnvOrDefault("REDIS_URI", "redis://localhost:6379"),

		AWSRegion:        getEnvOrDefault("AWS_REGION", "us-east-1"),
		SurveysTable:     getEnvOrDefault("DYNAMODB_SURVEYS_TABLE", "surveyflow-surveys"),
		SubmissionsTable: getEnvOrDefault("DYNAMODB_SUBMISSIONS_TABLE", "surveyflow-submissions"),

		JWTSecret:     getEnvOrDefault("JWT_SECRET", devJWTSecret),
		OwnerUsername: getEnvOrDefault("OWNER_USERNAME", "owner"),
		OwnerPassword: getEnvOrDefault("OWNER_PASSWORD", "owner"),
		OwnerTenantID: getEnvOrDefault("OWNER_TENANT_ID", "demo"),

		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		HoneypotField:   getEnvOrDefault("HONEYPOT_FIELD", "website"),
		MinFillDuration: getEnvDuration("MIN_FILL_DURATION", 2*time.Second),
		AllowedOrigins:  splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		AI: DefaultAIConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that are unsafe or unusable
func (c *Config) Validate() error {
	if c.StorageBackend != StorageMongo && c.StorageBackend != StorageDynamoDB {
		return errors.New("STORAGE_BACKEND must be mongo or dynamodb")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.IsProduction() {
		if c.JWTSecret == devJWTSecret || len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be set to at least 32 characters in production")
		}
		if c.OwnerPassword == "owner" {
			return errors.New("OWNER_PASSWORD must be changed in production")
		}
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
