package logger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		log, err := Setup(config.ServerConfig{Port: 8080, LogLevel: level})
		require.NoError(t, err, "level %s", level)
		assert.NotNil(t, log)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(config.ServerConfig{Port: 8080, LogLevel: "trace"})
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "test")
	ctx := WithLogger(context.Background(), log)

	assert.Same(t, log, FromContext(ctx))

	// A bare context falls back to the default logger.
	assert.NotNil(t, FromContext(context.Background()))
}
