package gemini

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/generation"
)

func TestNewGeminiGenerator_Validation(t *testing.T) {
	t.Parallel()

	t.Run("nil logger rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewGeminiGenerator(context.Background(), nil, config.LLMConfig{GeminiAPIKey: "key"})
		assert.Error(t, err)
	})

	t.Run("empty API key rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NewGeminiGenerator(context.Background(), slog.Default(), config.LLMConfig{})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt("weekend flash sale")
	assert.Contains(t, prompt, "weekend flash sale")
}
