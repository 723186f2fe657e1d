package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ArkAPIKey    string
	NewsAPIKey   string
	AdminAPIKey  string
	HTTPPort     string
	RealtimeURL  string
	DatabaseURL  string
	ModelsConfig string
	LogLevel     string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		// ARK_API_KEY is preferred; DEEPSEEK_API_KEY is accepted for
		// older deployments. First present wins.
		ArkAPIKey:    firstEnv("ARK_API_KEY", "DEEPSEEK_API_KEY"),
		NewsAPIKey:   getEnv("NEWS_API_KEY", ""),
		AdminAPIKey:  getEnv("ADMIN_API_KEY", ""),
		HTTPPort:     getEnv("HTTP_PORT", "5001"),
		RealtimeURL:  getEnv("REALTIME_URL", "http://localhost:5002"),
		DatabaseURL:  getEnv("DATABASE_URL", "ark_relay.db"),
		ModelsConfig: getEnv("MODELS_CONFIG", "configs/models.yaml"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
	}

	if AppConfig.ArkAPIKey == "" {
		log.Println("Warning: ARK_API_KEY is not set; chat requests will fail until it is configured")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
	}
	return ""
}
