package generation

import "context"

// Generator produces marketing copy from a campaign brief. Implementations
// wrap an external LLM provider; the static fallback serves environments
// without an API key.
type Generator interface {
	// GenerateScript creates campaign copy for the given brief. The userID
	// is carried for attribution in provider-side logging only.
	GenerateScript(ctx context.Context, brief string, userID string) (string, error)
}

// StaticGenerator returns deterministic template copy. It stands in for the
// LLM provider when no API key is configured, so the pipeline stays
// exercisable in local development.
type StaticGenerator struct{}

// NewStaticGenerator creates a StaticGenerator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

// GenerateScript returns a fixed-format script built from the brief.
func (g *StaticGenerator) GenerateScript(ctx context.Context, brief string, userID string) (string, error) {
	if brief == "" {
		return "", ErrEmptyBrief
	}
	return "Campaign script: " + brief, nil
}

var _ Generator = (*StaticGenerator)(nil)
