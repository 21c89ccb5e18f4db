package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTurnJSON(t *testing.T) {
	t.Run("Direct parse", func(t *testing.T) {
		payload, err := ParseTurnJSON(`{"text":"У моста тихо.","choices":["ждать","идти","кричать"]}`)
		require.NoError(t, err)
		assert.Equal(t, "У моста тихо.", payload.Text)
		assert.Equal(t, []string{"ждать", "идти", "кричать"}, payload.Choices)
	})

	t.Run("Recovery parse extracts outermost braces", func(t *testing.T) {
		raw := "Note: " + `{"text":"A","choices":["a","b","c"]}` + " trailing junk"
		payload, err := ParseTurnJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, "A", payload.Text)
		assert.Len(t, payload.Choices, 3)
	})

	t.Run("Markdown fenced JSON recovered", func(t *testing.T) {
		raw := "```json\n{\"text\":\"Сцена.\",\"choices\":[\"раз\",\"два\",\"три\"]}\n```"
		payload, err := ParseTurnJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, "Сцена.", payload.Text)
	})

	t.Run("Two choices is a bad shape", func(t *testing.T) {
		_, err := ParseTurnJSON(`{"text":"A","choices":["a","b"]}`)
		assert.ErrorIs(t, err, ErrBadShape)
	})

	t.Run("Four choices is a bad shape", func(t *testing.T) {
		_, err := ParseTurnJSON(`{"text":"A","choices":["a","b","c","d"]}`)
		assert.ErrorIs(t, err, ErrBadShape)
	})

	t.Run("Empty text is a bad shape", func(t *testing.T) {
		_, err := ParseTurnJSON(`{"text":"  ","choices":["a","b","c"]}`)
		assert.ErrorIs(t, err, ErrBadShape)
	})

	t.Run("Blank choice is a bad shape", func(t *testing.T) {
		_, err := ParseTurnJSON(`{"text":"A","choices":["a","","c"]}`)
		assert.ErrorIs(t, err, ErrBadShape)
	})

	t.Run("No JSON at all", func(t *testing.T) {
		_, err := ParseTurnJSON("модель решила поболтать прозой")
		assert.ErrorIs(t, err, ErrBadShape)
	})

	t.Run("Empty output", func(t *testing.T) {
		_, err := ParseTurnJSON("   ")
		assert.ErrorIs(t, err, ErrBadShape)
	})

	t.Run("Error carries raw output for diagnosis", func(t *testing.T) {
		raw := `{"text":"A","choices":["a","b"]}`
		_, err := ParseTurnJSON(raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), raw)
	})
}
