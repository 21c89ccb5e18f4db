// Package bible загружает статические документы лора ("библии") историй.
// Документ читается с диска один раз и считается неизменным до рестарта процесса.
package bible

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrStoryNotFound — библия для указанного story_id отсутствует на диске.
var ErrStoryNotFound = errors.New("библия истории не найдена")

const bibleExt = ".md"

// Loader читает библии из каталога <dir>/<story_id>.md и кэширует их в памяти.
type Loader struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewLoader создает загрузчик библий для указанного каталога.
func NewLoader(dir string, logger *zap.Logger) *Loader {
	return &Loader{
		dir:    dir,
		logger: logger.Named("BibleLoader"),
		cache:  make(map[string]string),
	}
}

// Load возвращает текст библии по story_id. Первый запрос читает файл с диска,
// последующие обслуживаются из кэша.
func (l *Loader) Load(storyID string) (string, error) {
	if storyID == "" {
		return "", fmt.Errorf("%w: пустой story_id", ErrStoryNotFound)
	}
	// story_id — непрозрачный идентификатор, но в путь его подставлять без
	// проверки нельзя
	if strings.ContainsAny(storyID, `/\`) || strings.Contains(storyID, "..") {
		return "", fmt.Errorf("%w: недопустимый story_id %q", ErrStoryNotFound, storyID)
	}

	l.mu.RLock()
	text, ok := l.cache[storyID]
	l.mu.RUnlock()
	if ok {
		return text, nil
	}

	path := filepath.Join(l.dir, storyID+bibleExt)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrStoryNotFound, storyID)
		}
		l.logger.Error("Не удалось прочитать файл библии", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("ошибка чтения библии %s: %w", path, err)
	}

	text = string(content)
	l.mu.Lock()
	l.cache[storyID] = text
	l.mu.Unlock()
	l.logger.Info("Библия загружена", zap.String("story_id", storyID), zap.Int("bytes", len(content)))
	return text, nil
}

// List возвращает идентификаторы историй, доступных в каталоге библий.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога библий %s: %w", l.dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), bibleExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), bibleExt))
	}
	return ids, nil
}
