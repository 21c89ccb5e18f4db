package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrBadShape — ответ модели не удалось привести к требуемой JSON-форме
// {"text": string, "choices": [3]string}.
var ErrBadShape = errors.New("ответ модели не соответствует требуемой JSON-форме")

// requiredChoices — ровно столько вариантов обязан содержать структурированный ответ.
const requiredChoices = 3

// TurnPayload — распарсенный структурированный ответ модели для хода-развилки.
type TurnPayload struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

// ParseTurnJSON парсит сырой вывод модели в TurnPayload.
//
// Сначала пробуем распарсить вывод напрямую. Если не вышло — берем срез от первой
// '{' до последней '}' и пробуем еще раз: модели любят обрамлять JSON пояснениями
// и markdown-ограждениями. Это compatibility shim, а не полноценный парсер: если
// модель выдала несколько JSON-блоков, срез по внешним скобкам неоднозначен.
// Ошибка всегда оборачивает ErrBadShape и несет сырой вывод для диагностики.
func ParseTurnJSON(raw string) (*TurnPayload, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: пустой вывод", ErrBadShape)
	}

	var payload TurnPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		// Восстановительный парсинг: внешний {...}-срез
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start == -1 || end == -1 || end <= start {
			log.Warn().Str("raw", truncateForLog(raw)).Msg("В выводе модели не найден JSON-объект")
			return nil, fmt.Errorf("%w: JSON-объект не найден; вывод: %s", ErrBadShape, raw)
		}
		slice := trimmed[start : end+1]
		if err := json.Unmarshal([]byte(slice), &payload); err != nil {
			log.Warn().Err(err).Str("raw", truncateForLog(raw)).Msg("Восстановительный парсинг JSON не удался")
			return nil, fmt.Errorf("%w: %v; вывод: %s", ErrBadShape, err, raw)
		}
	}

	if err := validateShape(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v; вывод: %s", ErrBadShape, err, raw)
	}
	return &payload, nil
}

// validateShape проверяет контракт структурированного ответа.
func validateShape(p *TurnPayload) error {
	if strings.TrimSpace(p.Text) == "" {
		return errors.New("пустое поле text")
	}
	if len(p.Choices) != requiredChoices {
		return fmt.Errorf("ожидалось ровно %d варианта выбора, получено %d", requiredChoices, len(p.Choices))
	}
	for i, ch := range p.Choices {
		if strings.TrimSpace(ch) == "" {
			return fmt.Errorf("пустой вариант выбора №%d", i+1)
		}
	}
	return nil
}

// truncateForLog укорачивает сырой вывод для логов.
func truncateForLog(s string) string {
	const maxLen = 500
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}
