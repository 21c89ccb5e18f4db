package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"story-relay/internal/model"
	"story-relay/internal/prompt"
)

func TestBuildSystem(t *testing.T) {
	t.Run("Scene only asks for plain prose", func(t *testing.T) {
		sys := prompt.BuildSystem(false)
		assert.Contains(t, sys, "обычная сцена")
		assert.NotContains(t, sys, prompt.StopMarker)
		assert.NotContains(t, sys, "choices")
	})

	t.Run("Choice point mandates stop marker and JSON with three choices", func(t *testing.T) {
		sys := prompt.BuildSystem(true)
		assert.Contains(t, sys, prompt.StopMarker)
		assert.Contains(t, sys, `"choices"`)
		assert.Contains(t, sys, "ровно три")
		assert.Contains(t, sys, "не продолжай")
	})

	t.Run("Shared narrative rules present in both modes", func(t *testing.T) {
		for _, choicePoint := range []bool{false, true} {
			sys := prompt.BuildSystem(choicePoint)
			assert.Contains(t, sys, "Правила тона")
			assert.Contains(t, sys, "Правила имен")
		}
	})
}

func TestBuildUser(t *testing.T) {
	req := &model.TurnRequest{
		SceneType:    model.SceneTypeSceneOnly,
		EventID:      "ev-3",
		WorldSummary: "Тракт открыт.",
		EventCard:    "Засада у моста.",
		RecentMemory: "память от клиента",
		PlayerInput:  "Прячусь за телегой.",
	}
	stats := model.PlayerStats{Health: 80, Reputation: 5, Money: 12}

	t.Run("Sections appear in order", func(t *testing.T) {
		p := prompt.BuildUser("Текст библии.", stats, req, "серверная память")
		order := []string{
			"### Библия мира",
			"Текст библии.",
			"### Состояние игрока",
			"Здоровье: 80, Репутация: 5, Деньги: 12",
			"### Сводка мира",
			"Тракт открыт.",
			"### Карточка события",
			"ev-3",
			"Засада у моста.",
			"### Недавние события",
			"### Действие игрока",
			"Прячусь за телегой.",
		}
		last := -1
		for _, part := range order {
			idx := strings.Index(p, part)
			assert.Greaterf(t, idx, last, "секция %q не на месте", part)
			last = idx
		}
	})

	t.Run("Server memory is authoritative", func(t *testing.T) {
		p := prompt.BuildUser("б", stats, req, "серверная память")
		assert.Contains(t, p, "серверная память")
		assert.NotContains(t, p, "память от клиента")
	})

	t.Run("Client memory used while server memory empty", func(t *testing.T) {
		p := prompt.BuildUser("б", stats, req, "")
		assert.Contains(t, p, "память от клиента")
	})

	t.Run("Fresh story placeholder when both memories empty", func(t *testing.T) {
		fresh := *req
		fresh.RecentMemory = ""
		p := prompt.BuildUser("б", stats, &fresh, "")
		assert.Contains(t, p, "история только начинается")
	})
}
