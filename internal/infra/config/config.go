package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env        string
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	LLMGatewayURL  string
	LLMAPIKey      string
	EmbeddingModel string
	ChatModel      string

	RetrievalThreshold  float64
	RetrievalMatchCount int
	SessionCapacity     int
	IndexEmbedRPS       float64

	OTLPEndpoint string
}

func Load() *Config {
	return &Config{
		Env:        getEnv("ENV", "development"),
		Port:       getEnv("PORT", "9020"),
		DBHost:     getEnv("DB_HOST", "lexrag-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "lexrag_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "lexrag_password"),
		DBName:     getEnv("DB_NAME", "lexrag_db"),

		LLMGatewayURL:  getEnv("LLM_GATEWAY_URL", "https://api.openai.com"),
		LLMAPIKey:      getSecret("LLM_API_KEY", "LLM_API_KEY_FILE", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ChatModel:      getEnv("CHAT_MODEL", "gpt-4o-mini"),

		RetrievalThreshold:  getEnvFloat("RETRIEVAL_THRESHOLD", 0.72),
		RetrievalMatchCount: getEnvInt("RETRIEVAL_MATCH_COUNT", 12),
		SessionCapacity:     getEnvInt("SESSION_CAPACITY", 512),
		IndexEmbedRPS:       getEnvFloat("INDEX_EMBED_RPS", 8),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// DSN renders the connection string for the pgx pool.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads the value directly from envKey, or from the file
// named by fileEnvKey, so the key can be mounted as a docker secret.
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
