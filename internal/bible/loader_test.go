package bible_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-relay/internal/bible"
)

func newTestLoader(t *testing.T, files map[string]string) (*bible.Loader, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return bible.NewLoader(dir, zap.NewNop()), dir
}

func TestLoaderLoad(t *testing.T) {
	loader, dir := newTestLoader(t, map[string]string{
		"default.md": "# Библия\nМир после войны.",
		"noir.md":    "# Нуар\nДождь и неон.",
	})

	t.Run("Loads bible by story id", func(t *testing.T) {
		text, err := loader.Load("default")
		require.NoError(t, err)
		assert.Contains(t, text, "Мир после войны")
	})

	t.Run("Second load served from cache", func(t *testing.T) {
		_, err := loader.Load("noir")
		require.NoError(t, err)
		// Файл удален — кэш обязан пережить это
		require.NoError(t, os.Remove(filepath.Join(dir, "noir.md")))
		text, err := loader.Load("noir")
		require.NoError(t, err)
		assert.Contains(t, text, "Дождь и неон")
	})

	t.Run("Unknown story id", func(t *testing.T) {
		_, err := loader.Load("neverwritten")
		assert.ErrorIs(t, err, bible.ErrStoryNotFound)
	})

	t.Run("Empty story id", func(t *testing.T) {
		_, err := loader.Load("")
		assert.ErrorIs(t, err, bible.ErrStoryNotFound)
	})

	t.Run("Path traversal rejected", func(t *testing.T) {
		for _, id := range []string{"../secrets", "a/b", `a\b`, ".."} {
			_, err := loader.Load(id)
			assert.ErrorIs(t, err, bible.ErrStoryNotFound, id)
		}
	})
}

func TestLoaderList(t *testing.T) {
	loader, _ := newTestLoader(t, map[string]string{
		"default.md": "x",
		"noir.md":    "y",
		"notes.txt":  "не библия",
	})

	ids, err := loader.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"default", "noir"}, ids)
}
