package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/recalld/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("disabled config returns no-op instance", func(t *testing.T) {
		tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, tel)

		status := tel.Health()
		assert.True(t, status.Healthy)
		assert.False(t, status.Degraded)
		assert.False(t, tel.IsEnabled())
	})

	t.Run("disabled instance provides working no-op tracer and meter", func(t *testing.T) {
		tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false})
		require.NoError(t, err)

		tracer := tel.Tracer("test")
		_, span := tracer.Start(context.Background(), "op")
		span.End()

		meter := tel.Meter("test")
		counter, err := meter.Int64Counter("test_counter")
		require.NoError(t, err)
		counter.Add(context.Background(), 1)
	})

	t.Run("disabled instance has no logger provider", func(t *testing.T) {
		tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false})
		require.NoError(t, err)
		assert.Nil(t, tel.LoggerProvider())
	})

	t.Run("enabled instance builds a logger provider", func(t *testing.T) {
		tel, err := New(context.Background(), config.TelemetryConfig{
			Enabled:     true,
			ServiceName: "recalld-test",
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			Insecure:    true,
		})
		require.NoError(t, err)
		assert.NotNil(t, tel.LoggerProvider())
		assert.False(t, tel.Health().Degraded)

		// No collector is listening; exporters may report flush errors
		// on shutdown, which is fine here.
		_ = tel.Shutdown(context.Background())
	})

	t.Run("shutdown on disabled instance is safe", func(t *testing.T) {
		tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false})
		require.NoError(t, err)
		assert.NoError(t, tel.Shutdown(context.Background()))
		assert.False(t, tel.Health().Healthy)
	})

	t.Run("force flush on disabled instance is safe", func(t *testing.T) {
		tel, err := New(context.Background(), config.TelemetryConfig{Enabled: false})
		require.NoError(t, err)
		assert.NoError(t, tel.ForceFlush(context.Background()))
	})
}

func TestNilReceiver(t *testing.T) {
	var tel *Telemetry

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.Nil(t, tel.LoggerProvider())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.False(t, tel.IsEnabled())
	assert.True(t, tel.Health().Degraded)
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("collector:4318"))
}
