package session

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-relay/internal/model"
)

// Session — состояние одной игровой сессии. Живет только в памяти процесса,
// уничтожается рестартом. Доступ к полям — только под Lock().
type Session struct {
	ID string
	// RecentMemory — накапливаемый текстовый журнал ходов, обрезаемый по хвосту
	// до model.MaxRecentMemoryLen. Суммаризация сознательно не делается.
	RecentMemory string
	Stats        model.PlayerStats

	mu sync.Mutex
}

// Lock захватывает сессию на время обработки хода. Два конкурентных хода по одному
// session_id выполняются строго по очереди, потерянных обновлений памяти не бывает.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock освобождает сессию.
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendTurn дописывает итог хода в память сессии и заново обрезает ее до лимита.
// Вызывается только под Lock() и только после полностью успешного хода.
func (s *Session) AppendTurn(playerInput, resultText string, choices []string) {
	var b strings.Builder
	if s.RecentMemory != "" {
		b.WriteString(s.RecentMemory)
		b.WriteString("\n")
	}
	b.WriteString("Игрок: ")
	b.WriteString(playerInput)
	b.WriteString("\nИтог: ")
	b.WriteString(resultText)
	if len(choices) > 0 {
		b.WriteString("\nВарианты: ")
		b.WriteString(strings.Join(choices, " | "))
	}
	s.RecentMemory = model.ClampTail(b.String(), model.MaxRecentMemoryLen)
}

// Store — процессное хранилище сессий: session_id -> *Session.
// Сама мапа защищена RWMutex, каждая сессия — собственным мьютексом.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewStore создает пустое хранилище сессий.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		logger:   logger.Named("SessionStore"),
	}
}

// GetOrCreate возвращает сессию по id, лениво создавая ее с пустой памятью и
// статами по умолчанию. Пустой id означает новую сессию со свежим UUID.
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	// Перепроверка: сессию могли создать между RUnlock и Lock
	if s, ok = st.sessions[id]; ok {
		return s
	}
	s = &Session{
		ID:    id,
		Stats: model.DefaultStats(),
	}
	st.sessions[id] = s
	st.logger.Debug("Создана новая сессия", zap.String("session_id", id))
	return s
}

// Len возвращает текущее количество сессий (для логов и метрик).
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
