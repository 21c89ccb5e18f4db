package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"story-relay/internal/bible"
	"story-relay/internal/model"
	"story-relay/internal/service"
	"story-relay/pkg/ai"
)

// maxBodyBytes — жесткий лимит на размер тела /generate. Отдельная, более грубая
// граница — model.MaxTotalInputChars, проверяемая по символам.
const maxBodyBytes = 256 << 10 // 256KB

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Error string `json:"error"`
}

// RelayHandler обрабатывает HTTP запросы story-relay.
type RelayHandler struct {
	service *service.TurnService
	logger  *zap.Logger
}

// NewRelayHandler создает новый RelayHandler.
func NewRelayHandler(s *service.TurnService, logger *zap.Logger) *RelayHandler {
	return &RelayHandler{
		service: s,
		logger:  logger.Named("RelayHandler"),
	}
}

// RegisterRoutes регистрирует маршруты story-relay.
func (h *RelayHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/stories", h.listStories)
	r.POST("/generate", h.generate)
}

// health отвечает {ok: true} независимо от состояния остальных компонентов.
func (h *RelayHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// listStories возвращает идентификаторы историй, доступных на сервере.
func (h *RelayHandler) listStories(c *gin.Context) {
	ids, err := h.service.ListStories()
	if err != nil {
		h.logger.Error("Не удалось получить список историй", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Error: "не удалось получить список историй"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": ids})
}

// generate обрабатывает один нарративный ход.
func (h *RelayHandler) generate(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, APIError{Error: "тело запроса превышает 256KB"})
		return
	}

	// Грубая граница безопасности: проверяется ДО любой пофайловой обрезки
	if utf8.RuneCount(body) > model.MaxTotalInputChars {
		c.JSON(http.StatusRequestEntityTooLarge, APIError{Error: service.ErrInputTooLarge.Error()})
		return
	}

	var req model.TurnRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Error: "некорректный JSON в теле запроса: " + err.Error()})
		return
	}

	resp, err := h.service.PlayTurn(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// respondError отображает ошибки сервиса в HTTP-статусы согласно таксономии:
// клиентские ошибки -> 4xx, все остальное -> 500 без лишних внутренних деталей.
func (h *RelayHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, bible.ErrStoryNotFound):
		c.JSON(http.StatusBadRequest, APIError{Error: err.Error()})
	case errors.Is(err, service.ErrInputTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, APIError{Error: err.Error()})
	case errors.Is(err, service.ErrAPIKeyMissing):
		c.JSON(http.StatusInternalServerError, APIError{Error: err.Error()})
	case errors.Is(err, ai.ErrBadShape):
		// Сырой вывод модели включен в сообщение для диагностики
		c.JSON(http.StatusInternalServerError, APIError{Error: err.Error()})
	default:
		h.logger.Error("Непредвиденная ошибка обработки хода", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Error: "внутренняя ошибка при генерации хода"})
	}
}
