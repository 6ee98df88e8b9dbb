package config

import (
	"os"
	"strconv"
)

type Config struct {
	ListenAddr string
	DBPath     string

	UploadPath     string
	MaxUploadBytes int64

	VisionBackend        string
	OllamaURL            string
	VisionModel          string
	OllamaTimeoutMinutes int
	ContextWindowSize    int
	AnthropicAPIKey      string
	AnthropicModel       string
	PromptsDir           string

	AllowedOrigin string
	LogLevel      string
	LogFile       string
}

func Load() *Config {
	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "/data/receipts.db"),

		UploadPath:     getEnv("UPLOAD_PATH", "/data/uploads"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10*1024*1024),

		VisionBackend:        getEnv("VISION_BACKEND", "ollama"),
		OllamaURL:            getEnv("OLLAMA_URL", "http://localhost:11434"),
		VisionModel:          getEnv("VISION_MODEL", "llama3.2-vision"),
		OllamaTimeoutMinutes: getEnvInt("OLLAMA_TIMEOUT_MINUTES", 5),
		ContextWindowSize:    getEnvInt("CONTEXT_WINDOW_SIZE", 2048),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:       getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		PromptsDir:           getEnv("PROMPTS_DIR", ""),

		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}
