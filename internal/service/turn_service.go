package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"story-relay/internal/bible"
	"story-relay/internal/model"
	"story-relay/internal/prompt"
	"story-relay/internal/session"
	"story-relay/pkg/ai"
)

// Ошибки уровня сервиса. Хендлер отображает их в HTTP-статусы.
var (
	// ErrValidation — клиентская ошибка валидации (400).
	ErrValidation = errors.New("ошибка валидации запроса")
	// ErrInputTooLarge — суммарный размер входа превышает глобальный лимит (413).
	ErrInputTooLarge = errors.New("input too large: суммарный размер входа превышает лимит")
	// ErrAPIKeyMissing — сервер запущен без ключа AI API; фатально для запроса, без ретраев (500).
	ErrAPIKeyMissing = errors.New("AI API ключ не сконфигурирован")
)

// CompletionClient — интерфейс для взаимодействия с completion-API.
// Реализуется pkg/ai.Client; в тестах подменяется моком.
type CompletionClient interface {
	GenerateTurn(ctx context.Context, systemPrompt, userPrompt string) (string, ai.UsageInfo, error)
}

// TurnService оркеструет нарративный ход: валидация -> сессия -> библия ->
// промпт -> AI -> парсинг -> обновление памяти.
type TurnService struct {
	aiClient       CompletionClient
	sessions       *session.Store
	bibles         *bible.Loader
	defaultStoryID string
	logger         *zap.Logger
}

// NewTurnService создает TurnService. aiClient может быть nil — тогда каждый
// ход завершается ErrAPIKeyMissing, но сервер продолжает обслуживать /health.
func NewTurnService(aiClient CompletionClient, sessions *session.Store, bibles *bible.Loader, defaultStoryID string, logger *zap.Logger) *TurnService {
	return &TurnService{
		aiClient:       aiClient,
		sessions:       sessions,
		bibles:         bibles,
		defaultStoryID: defaultStoryID,
		logger:         logger.Named("TurnService"),
	}
}

// PlayTurn обрабатывает один нарративный ход.
//
// Память сессии мутируется только после полностью успешного хода: любая ошибка
// внешнего вызова или парсинга оставляет сессию нетронутой. Сессия удерживается
// под мьютексом на весь ход, поэтому конкурентные ходы по одному session_id
// выполняются последовательно.
func (s *TurnService) PlayTurn(ctx context.Context, req *model.TurnRequest) (*model.TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	req.Clamp()

	if s.aiClient == nil {
		return nil, ErrAPIKeyMissing
	}

	storyID := string(req.StoryID)
	if storyID == "" {
		storyID = s.defaultStoryID
	}
	bibleText, err := s.bibles.Load(storyID)
	if err != nil {
		return nil, err
	}

	sess := s.sessions.GetOrCreate(string(req.SessionID))
	sess.Lock()
	defer sess.Unlock()

	systemPrompt := prompt.BuildSystem(req.IsChoicePoint())
	userPrompt := prompt.BuildUser(bibleText, sess.Stats, req, sess.RecentMemory)

	rawText, usage, err := s.aiClient.GenerateTurn(ctx, systemPrompt, userPrompt)
	if err != nil {
		s.logger.Error("Ошибка генерации хода",
			zap.String("session_id", sess.ID),
			zap.String("event_id", string(req.EventID)),
			zap.Error(err))
		return nil, err
	}

	resp := &model.TurnResponse{
		SessionID: sess.ID,
		Stats:     sess.Stats,
	}

	if req.IsChoicePoint() {
		payload, parseErr := ai.ParseTurnJSON(rawText)
		if parseErr != nil {
			// Память не обновляем: ход не состоялся
			s.logger.Warn("Структурированный ответ модели не распарсился",
				zap.String("session_id", sess.ID),
				zap.Error(parseErr))
			return nil, parseErr
		}
		resp.Text = payload.Text
		resp.Choices = payload.Choices
	} else {
		resp.Text = strings.TrimSpace(rawText)
	}

	sess.AppendTurn(string(req.PlayerInput), resp.Text, resp.Choices)

	s.logger.Info("Ход обработан",
		zap.String("session_id", sess.ID),
		zap.String("scene_type", string(req.SceneType)),
		zap.String("event_id", string(req.EventID)),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Int("memory_len", len([]rune(sess.RecentMemory))))

	return resp, nil
}

// ListStories возвращает идентификаторы историй, для которых есть библии.
func (s *TurnService) ListStories() ([]string, error) {
	return s.bibles.List()
}
