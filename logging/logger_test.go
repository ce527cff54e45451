package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewater/charter-engine/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestL_AddsRequestFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := logging.WithRequestID(context.Background(), "req-1")
	ctx = logging.WithActor(ctx, "admin")
	logging.L(ctx, base).Info("booking confirmed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "admin", fields["actor"])
}

func TestL_NilBaseIsNop(t *testing.T) {
	assert.NotPanics(t, func() {
		logging.L(context.Background(), nil).Info("dropped")
	})
}

func TestActor_Fallback(t *testing.T) {
	assert.Equal(t, "system", logging.Actor(context.Background(), "system"))
	assert.Equal(t, "ops", logging.Actor(logging.WithActor(context.Background(), "ops"), "system"))
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := logging.New("debug", format)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}

	logger, err := logging.New("not-a-level", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel), "unknown level falls back to info")
}
