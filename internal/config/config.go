package config

import (
	"fmt"
	"log"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию story-relay. Собирается один раз при старте
// и передается в компоненты явно; чтения окружения в момент запроса нет.
type Config struct {
	// Настройки сервера
	Port           string   `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Настройки AI API
	// Ключ НЕ обязателен при старте: без него сервер поднимается, но каждый
	// запрос генерации завершается 500.
	AIAPIKey      string  `envconfig:"AI_API_KEY"`
	AIBaseURL     string  `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel       string  `envconfig:"AI_MODEL" default:"deepseek/deepseek-chat-v3-0324:free"`
	AITimeout     int     `envconfig:"AI_TIMEOUT" default:"120"`
	AIMaxTokens   int     `envconfig:"AI_MAX_TOKENS" default:"1500"`
	AITemperature float32 `envconfig:"AI_TEMPERATURE" default:"0.8"`

	// Настройки историй
	BiblesDir      string `envconfig:"BIBLES_DIR" default:"bibles"`
	DefaultStoryID string `envconfig:"DEFAULT_STORY_ID" default:"default"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации story-relay: %w", err)
	}

	log.Printf("Конфигурация story-relay загружена:")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  AI BaseURL: %s", cfg.AIBaseURL)
	log.Printf("  AI Model: %s", cfg.AIModel)
	log.Printf("  AI Timeout: %ds", cfg.AITimeout)
	log.Printf("  Bibles Dir: %s", cfg.BiblesDir)
	log.Printf("  Default Story: %s", cfg.DefaultStoryID)
	if cfg.AIAPIKey != "" {
		log.Println("  AI API Key: [ЗАГРУЖЕН]")
	} else {
		log.Println("  AI API Key: [ОТСУТСТВУЕТ — генерация будет возвращать 500]")
	}

	return &cfg, nil
}
