package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Типы сцен, принимаемые сервером.
// narration — псевдоним scene_only, оставлен для совместимости со старыми клиентами.
const (
	SceneTypeSceneOnly   = "scene_only"
	SceneTypeNarration   = "narration"
	SceneTypeChoicePoint = "choice_point"
)

// Лимиты длины полей (в рунах). Поля обрезаются, а не отклоняются.
const (
	MaxWorldSummaryLen = 6000
	MaxEventCardLen    = 5000
	MaxRecentMemoryLen = 4000
	MaxPlayerInputLen  = 2000
	MaxEventIDLen      = 200
	MaxSessionIDLen    = 80
	MaxStoryIDLen      = 80

	// MaxTotalInputChars — грубая верхняя граница на сериализованное тело запроса.
	// Проверяется ДО пополевой обрезки; превышение — это 413, а не тихая обрезка.
	MaxTotalInputChars = 12000
)

// CoercedString — строка, при декодировании JSON принимающая также числа и булевы
// значения, приводя их к строковому представлению. Клиенты исторически присылают
// event_id числом.
type CoercedString string

// UnmarshalJSON реализует json.Unmarshaler.
func (s *CoercedString) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = CoercedString(val)
	case float64:
		// Целые приводим без дробной части
		if val == float64(int64(val)) {
			*s = CoercedString(strconv.FormatInt(int64(val), 10))
		} else {
			*s = CoercedString(strconv.FormatFloat(val, 'f', -1, 64))
		}
	case bool:
		*s = CoercedString(strconv.FormatBool(val))
	default:
		return fmt.Errorf("поле должно быть скаляром, получено %T", v)
	}
	return nil
}

// TurnRequest — входящий запрос на генерацию нарративного хода.
type TurnRequest struct {
	SceneType    CoercedString `json:"scene_type"`
	EventID      CoercedString `json:"event_id"`
	WorldSummary CoercedString `json:"world_summary"`
	EventCard    CoercedString `json:"event_card"`
	// RecentMemory — память, присланная клиентом. Носит рекомендательный характер:
	// авторитетна серверная память сессии, это поле используется только пока она пуста.
	RecentMemory CoercedString `json:"recent_memory"`
	PlayerInput  CoercedString `json:"player_input"`
	SessionID    CoercedString `json:"session_id,omitempty"`
	StoryID      CoercedString `json:"story_id,omitempty"`
}

// PlayerStats — небольшой фиксированный набор числовых счетчиков игрока.
type PlayerStats struct {
	Health     int `json:"health"`
	Reputation int `json:"reputation"`
	Money      int `json:"money"`
}

// DefaultStats возвращает статы нового игрока.
func DefaultStats() PlayerStats {
	return PlayerStats{Health: 100, Reputation: 0, Money: 0}
}

// TurnResponse — ответ сервера на нарративный ход.
// Choices присутствует только для ходов типа choice_point и содержит ровно три строки.
type TurnResponse struct {
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	Choices   []string    `json:"choices,omitempty"`
	Stats     PlayerStats `json:"stats"`
}

// Validate проверяет наличие обязательных полей и допустимость scene_type.
// Возвращает ошибку, называющую первое нарушенное ограничение.
func (r *TurnRequest) Validate() error {
	required := []struct {
		name  string
		value CoercedString
	}{
		{"scene_type", r.SceneType},
		{"event_id", r.EventID},
		{"world_summary", r.WorldSummary},
		{"event_card", r.EventCard},
		{"recent_memory", r.RecentMemory},
		{"player_input", r.PlayerInput},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("отсутствует обязательное поле %q", f.name)
		}
	}

	switch string(r.SceneType) {
	case SceneTypeSceneOnly, SceneTypeNarration, SceneTypeChoicePoint:
	default:
		return fmt.Errorf("недопустимое значение scene_type %q (ожидается %s, %s или %s)",
			r.SceneType, SceneTypeSceneOnly, SceneTypeNarration, SceneTypeChoicePoint)
	}
	return nil
}

// Clamp обрезает все строковые поля до их лимитов. Вызывается после Validate.
func (r *TurnRequest) Clamp() {
	r.WorldSummary = clamp(r.WorldSummary, MaxWorldSummaryLen)
	r.EventCard = clamp(r.EventCard, MaxEventCardLen)
	r.RecentMemory = clamp(r.RecentMemory, MaxRecentMemoryLen)
	r.PlayerInput = clamp(r.PlayerInput, MaxPlayerInputLen)
	r.EventID = clamp(r.EventID, MaxEventIDLen)
	r.SessionID = clamp(r.SessionID, MaxSessionIDLen)
	r.StoryID = clamp(r.StoryID, MaxStoryIDLen)
}

// IsChoicePoint сообщает, требует ли ход структурированного ответа с выборами.
func (r *TurnRequest) IsChoicePoint() bool {
	return string(r.SceneType) == SceneTypeChoicePoint
}

// clamp обрезает строку до limit рун, сохраняя начало.
func clamp(s CoercedString, limit int) CoercedString {
	runes := []rune(string(s))
	if len(runes) <= limit {
		return s
	}
	return CoercedString(runes[:limit])
}

// ClampTail обрезает строку до limit рун, сохраняя КОНЕЦ. Используется для памяти
// сессии: при переполнении тихо выбрасывается самое старое содержимое.
func ClampTail(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[len(runes)-limit:])
}
