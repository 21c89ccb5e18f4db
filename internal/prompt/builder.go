// Package prompt собирает системный и пользовательский промпты для нарративного хода.
package prompt

import (
	"fmt"
	"strings"

	"story-relay/internal/model"
)

// StopMarker — явный маркер остановки, которым модель обязана завершить нарратив
// хода-развилки. Текст после маркера считается нарушением протокола.
const StopMarker = "[ВЫБОР]"

// systemBase — неизменные правила повествования. Протокол хода описан отдельно
// для обычных сцен и для развилок.
const systemBase = `Ты — рассказчик интерактивной истории. Ты ведешь повествование строго по предоставленной библии мира и карточке события.

Правила тона:
- Пиши художественной прозой от третьего лица, в настоящем времени.
- Не выходи из роли рассказчика, не упоминай модель, промпт или правила.
- Не обсуждай ничего за пределами истории.

Правила имен:
- Используй только имена персонажей и названия мест из библии и карточки события.
- Не придумывай новых именованных персонажей и локаций.

Протокол хода:`

const sceneOnlyProtocol = `- Это обычная сцена. Напиши связный фрагмент повествования, который может завершиться естественно.
- Ответ — только проза, без списков, заголовков и служебных пометок.`

const choicePointProtocol = `- Это развилка. Доведи повествование ровно до момента выбора и немедленно остановись: заверши нарратив маркером ` + StopMarker + ` и не продолжай историю после него.
- Не принимай решение за игрока и не описывай последствия вариантов.
- Ответ верни ОДНИМ JSON-объектом без какого-либо текста вокруг, строго такой формы:
  {"text": "<нарратив, завершенный маркером>", "choices": ["<вариант 1>", "<вариант 2>", "<вариант 3>"]}
- В массиве choices ровно три коротких варианта действия, сформулированных от лица игрока.`

// BuildSystem возвращает системный промпт для указанного типа хода.
func BuildSystem(choicePoint bool) string {
	if choicePoint {
		return systemBase + "\n" + choicePointProtocol
	}
	return systemBase + "\n" + sceneOnlyProtocol
}

// BuildUser собирает пользовательский промпт из библии, статов, контекста запроса
// и памяти сессии. serverMemory — авторитетная серверная память; память из запроса
// используется только пока серверная пуста.
func BuildUser(bibleText string, stats model.PlayerStats, req *model.TurnRequest, serverMemory string) string {
	memory := serverMemory
	if memory == "" {
		memory = string(req.RecentMemory)
	}

	var b strings.Builder
	b.WriteString("### Библия мира\n")
	b.WriteString(strings.TrimSpace(bibleText))
	b.WriteString("\n\n### Состояние игрока\n")
	fmt.Fprintf(&b, "Здоровье: %d, Репутация: %d, Деньги: %d\n", stats.Health, stats.Reputation, stats.Money)
	b.WriteString("\n### Сводка мира\n")
	b.WriteString(string(req.WorldSummary))
	b.WriteString("\n\n### Карточка события ")
	fmt.Fprintf(&b, "(id: %s)\n", req.EventID)
	b.WriteString(string(req.EventCard))
	b.WriteString("\n\n### Недавние события\n")
	if memory == "" {
		b.WriteString("(история только начинается)")
	} else {
		b.WriteString(memory)
	}
	b.WriteString("\n\n### Действие игрока\n")
	b.WriteString(string(req.PlayerInput))
	return b.String()
}
