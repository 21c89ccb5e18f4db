// Package ai — клиент completion-API, совместимого с OpenAI (по умолчанию OpenRouter).
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_relay_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_relay_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiTotalTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_relay_ai_total_tokens",
			Help:    "Histogram of total token counts (prompt + completion).",
			Buckets: prometheus.LinearBuckets(500, 500, 20),
		},
		[]string{"model"},
	)
)

// ErrEmptyResponse — API вернул ответ без вариантов или с пустым текстом.
var ErrEmptyResponse = errors.New("пустой ответ от API")

// Config — конфигурация клиента нейросети.
type Config struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	Timeout     int // секунды
	MaxTokens   int
	Temperature float32
}

// UsageInfo — информация об использовании токенов за один запрос.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client — клиент completion-API. Один вызов на ход, без ретраев: любая ошибка
// внешнего вызова терминальна для запроса.
type Client struct {
	client      *openai.Client
	modelName   string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// New создает новый экземпляр клиента нейросети.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("не указан API ключ")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "deepseek/deepseek-chat-v3-0324:free"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.8
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	return &Client{
		client:      openai.NewClientWithConfig(config),
		modelName:   cfg.ModelName,
		timeout:     time.Duration(cfg.Timeout) * time.Second,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// GenerateTurn выполняет один запрос к API с парой system/user промптов и возвращает
// сгенерированный текст вместе с информацией об использовании токенов.
func (c *Client) GenerateTurn(ctx context.Context, systemPrompt, userPrompt string) (string, UsageInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        0.95,
	}

	startTime := time.Now()
	log.Debug().
		Str("model", c.modelName).
		Int("systemPromptBytes", len(systemPrompt)).
		Int("userPromptBytes", len(userPrompt)).
		Msg("Отправка запроса к AI")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(startTime)
	aiRequestDuration.With(prometheus.Labels{"model": c.modelName}).Observe(duration.Seconds())

	if err != nil {
		log.Error().Err(err).Dur("duration", duration).Msg("Ошибка при вызове CreateChatCompletion")
		aiRequestsTotal.With(prometheus.Labels{"model": c.modelName, "status": "error"}).Inc()
		return "", UsageInfo{}, fmt.Errorf("ошибка AI API: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn().Dur("duration", duration).Msg("AI API вернул пустой ответ")
		aiRequestsTotal.With(prometheus.Labels{"model": c.modelName, "status": "error_empty_response"}).Inc()
		return "", UsageInfo{}, ErrEmptyResponse
	}

	usage := UsageInfo{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	// Некоторые OpenAI-совместимые провайдеры не отдают usage — оцениваем сами
	if usage.TotalTokens == 0 {
		usage.PromptTokens = c.estimateTokens(systemPrompt + userPrompt)
		usage.CompletionTokens = c.estimateTokens(resp.Choices[0].Message.Content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.modelName, "status": "success"}).Inc()
	aiTotalTokens.With(prometheus.Labels{"model": c.modelName}).Observe(float64(usage.TotalTokens))

	log.Info().
		Str("model", c.modelName).
		Dur("duration", duration).
		Int("promptTokens", usage.PromptTokens).
		Int("completionTokens", usage.CompletionTokens).
		Msg("Получен ответ от API")

	return resp.Choices[0].Message.Content, usage, nil
}

// estimateTokens оценивает количество токенов в тексте через tiktoken.
func (c *Client) estimateTokens(text string) int {
	tke, err := tiktoken.EncodingForModel(c.modelName)
	if err != nil {
		// Для незнакомых моделей берем энкодинг по умолчанию
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	return len(tke.Encode(text, nil, nil))
}
