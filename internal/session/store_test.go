package session_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-relay/internal/model"
	"story-relay/internal/session"
)

func TestStoreGetOrCreate(t *testing.T) {
	store := session.NewStore(zap.NewNop())

	t.Run("Lazily creates with defaults", func(t *testing.T) {
		s := store.GetOrCreate("abc")
		require.NotNil(t, s)
		assert.Equal(t, "abc", s.ID)
		assert.Empty(t, s.RecentMemory)
		assert.Equal(t, model.DefaultStats(), s.Stats)
	})

	t.Run("Same id returns same session", func(t *testing.T) {
		first := store.GetOrCreate("abc")
		first.Lock()
		first.RecentMemory = "что-то случилось"
		first.Unlock()

		second := store.GetOrCreate("abc")
		assert.Same(t, first, second)
		assert.Equal(t, "что-то случилось", second.RecentMemory)
	})

	t.Run("Empty id gets a fresh uuid", func(t *testing.T) {
		a := store.GetOrCreate("")
		b := store.GetOrCreate("")
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, b.ID)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestSessionAppendTurn(t *testing.T) {
	t.Run("Appends player input, result and choices", func(t *testing.T) {
		s := session.NewStore(zap.NewNop()).GetOrCreate("s1")
		s.Lock()
		s.AppendTurn("иду к мосту", "У моста тихо.", nil)
		s.AppendTurn("жду засаду", "Из кустов выходят трое.", []string{"бежать", "драться", "говорить"})
		s.Unlock()

		assert.Contains(t, s.RecentMemory, "Игрок: иду к мосту")
		assert.Contains(t, s.RecentMemory, "Итог: У моста тихо.")
		assert.Contains(t, s.RecentMemory, "Варианты: бежать | драться | говорить")
		// Порядок: первый ход раньше второго
		assert.Less(t,
			strings.Index(s.RecentMemory, "иду к мосту"),
			strings.Index(s.RecentMemory, "жду засаду"))
	})

	t.Run("Memory re-clamped keeping the tail", func(t *testing.T) {
		s := session.NewStore(zap.NewNop()).GetOrCreate("s2")
		s.Lock()
		defer s.Unlock()
		for i := 0; i < 20; i++ {
			s.AppendTurn(fmt.Sprintf("ход %d", i), strings.Repeat("н", 400), nil)
		}
		runes := []rune(s.RecentMemory)
		assert.LessOrEqual(t, len(runes), model.MaxRecentMemoryLen)
		// Свежее остается, старое выброшено
		assert.Contains(t, s.RecentMemory, "ход 19")
		assert.NotContains(t, s.RecentMemory, "ход 0\n")
	})
}

// Два конкурентных хода по одному session_id не должны терять обновления памяти.
func TestSessionConcurrentTurns(t *testing.T) {
	store := session.NewStore(zap.NewNop())
	s := store.GetOrCreate("race")

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Lock()
			defer s.Unlock()
			s.AppendTurn(fmt.Sprintf("a%d", n), "ок", nil)
		}(i)
	}
	wg.Wait()

	// Память короткая, клампа не было — все 50 записей на месте
	assert.Equal(t, turns, strings.Count(s.RecentMemory, "Игрок: "))
}

func TestStoreLen(t *testing.T) {
	store := session.NewStore(zap.NewNop())
	assert.Equal(t, 0, store.Len())
	store.GetOrCreate("a")
	store.GetOrCreate("b")
	store.GetOrCreate("a")
	assert.Equal(t, 2, store.Len())
}
