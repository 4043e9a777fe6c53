package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Ai           AIConfig
	Perspectives PerspectivesConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	NatsURL     string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingBaseURL string
	EmbeddingModel   string
	EmbeddingDim     int
	LLMProvider      string // "ollama" or "openai"
	LLMModel         string
	OllamaBaseURL    string
	OpenAIAPIKey     string
}

type PerspectivesConfig struct {
	VectorBackend string // "pgvector" or "qdrant"
	QdrantAddress string
	ArtifactsRoot string // fitted reducers + map thumbnails live under here
	JobTopicName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "app.log"),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:11434"),
			EmbeddingModel:   getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDim:     getEnvAsInt("EMBEDDING_DIM", 768),
			LLMProvider:      getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:         getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		},
		Perspectives: PerspectivesConfig{
			VectorBackend: getEnv("VECTOR_BACKEND", "pgvector"),
			QdrantAddress: getEnv("QDRANT_ADDRESS", "localhost:6334"),
			ArtifactsRoot: getEnv("ARTIFACTS_ROOT", "artifacts"),
			JobTopicName:  getEnv("PERSPECTIVES_JOB_TOPIC_NAME", "PERSPECTIVES_JOB"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
