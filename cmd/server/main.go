package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"story-relay/internal/bible"
	"story-relay/internal/config"
	"story-relay/internal/handler"
	"story-relay/internal/middleware"
	"story-relay/internal/service"
	"story-relay/internal/session"
	"story-relay/pkg/ai"
	"story-relay/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск Story Relay...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err) // Используем стандартный логгер, т.к. zap еще нет
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Клиент AI: без ключа сервер стартует, но генерация возвращает 500
	var aiClient service.CompletionClient
	if cfg.AIAPIKey != "" {
		client, err := ai.New(ai.Config{
			APIKey:      cfg.AIAPIKey,
			BaseURL:     cfg.AIBaseURL,
			ModelName:   cfg.AIModel,
			Timeout:     cfg.AITimeout,
			MaxTokens:   cfg.AIMaxTokens,
			Temperature: cfg.AITemperature,
		})
		if err != nil {
			zapLogger.Fatal("Не удалось создать AI клиент", zap.Error(err))
		}
		aiClient = client
	} else {
		zapLogger.Warn("AI_API_KEY не задан: /generate будет отвечать 500")
	}

	sessionStore := session.NewStore(zapLogger)
	bibleLoader := bible.NewLoader(cfg.BiblesDir, zapLogger)
	turnService := service.NewTurnService(aiClient, sessionStore, bibleLoader, cfg.DefaultStoryID, zapLogger)
	relayHandler := handler.NewRelayHandler(turnService, zapLogger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ZapLoggingMiddleware(zapLogger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		MaxAge:       12 * time.Hour,
	}))

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	relayHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.AITimeout+30) * time.Second, // ответ ждет внешний AI вызов
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP сервер запускается", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Ошибка HTTP сервера", zap.Error(err))
		}
	}()

	// Graceful shutdown по SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, останавливаем сервер...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Ошибка при остановке сервера", zap.Error(err))
	}
	zapLogger.Info("Сервер остановлен", zap.Int("sessions", sessionStore.Len()))
}
