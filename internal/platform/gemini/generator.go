package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/generation"
)

const (
	defaultModel   = "gemini-2.0-flash"
	maxAttempts    = 3
	retryBaseDelay = 2 * time.Second
)

// GeminiGenerator implements generation.Generator backed by the Gemini API.
type GeminiGenerator struct {
	logger *slog.Logger
	client *genai.Client
	model  string
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a GeminiGenerator from LLM configuration.
// The API key must be set; callers fall back to the static generator when
// it is empty.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	model := cfg.ModelName
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger: logger.With("component", "gemini_generator"),
		client: client,
		model:  model,
	}, nil
}

// GenerateScript creates campaign copy for the given brief, retrying
// transient provider errors with linear backoff. Safety blocks and
// malformed responses fail immediately.
func (g *GeminiGenerator) GenerateScript(ctx context.Context, brief string, userID string) (string, error) {
	if brief == "" {
		return "", generation.ErrEmptyBrief
	}

	prompt := buildPrompt(brief)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"user_id", userID)

		text, err := g.generateOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return "", err
		}

		g.logger.WarnContext(ctx, "Gemini API call failed",
			"attempt", attempt,
			"error", err)

		if attempt < maxAttempts {
			select {
			case <-time.After(retryBaseDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, lastErr)
}

func (g *GeminiGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}
	return text, nil
}

func buildPrompt(brief string) string {
	return "You are a marketing copywriter for small businesses. " +
		"Write a short, energetic campaign script for the following brief. " +
		"Reply with the script text only.\n\nBrief: " + brief
}
