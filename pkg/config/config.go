package config

import (
	"errors"
	"os"
	"strings"

	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "supersecretjwtkey"

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	RedisURL                string
	JWTSecret               string
	MeiliHost               string
	MeiliMasterKey          string
	CloudinaryURL           string
	CloudinaryFolder        string
	AllowedOrigins          []string
}

// Load reads .env (if any) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DB", "socialgraph"),
		RedisURL:                getEnv("REDIS_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", defaultJWTSecret),
		MeiliHost:               getEnv("MEILISEARCH_HOST", ""),
		MeiliMasterKey:          getEnv("MEILI_MASTER_KEY", ""),
		CloudinaryURL:           getEnv("CLOUDINARY_URL", ""),
		CloudinaryFolder:        getEnv("CLOUDINARY_UPLOAD_FOLDER", "avatars"),
		AllowedOrigins:          splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings that are only acceptable in development.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set when ENV=production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
