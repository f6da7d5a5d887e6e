package vectorstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestQdrantConfigApplyDefaults(t *testing.T) {
	cfg := QdrantConfig{Host: "localhost", VectorSize: 384}
	cfg.ApplyDefaults()

	assert.Equal(t, 6334, cfg.Port)
	assert.Equal(t, "memories", cfg.Collection)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.RecoveryTimeout)
}

func TestQdrantClientConfig(t *testing.T) {
	cfg := QdrantConfig{
		Host:   "qdrant.internal",
		UseTLS: true,
		APIKey: "qd-secret",
	}
	cfg.ApplyDefaults()

	cc := cfg.clientConfig()
	assert.Equal(t, "qdrant.internal", cc.Host)
	assert.Equal(t, 6334, cc.Port)
	assert.True(t, cc.UseTLS)
	assert.Equal(t, "qd-secret", cc.APIKey)
}

func TestQdrantConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := QdrantConfig{Host: "localhost", VectorSize: 768}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := QdrantConfig{VectorSize: 768}
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive vector size", func(t *testing.T) {
		cfg := QdrantConfig{Host: "localhost"}
		require.Error(t, cfg.Validate())
	})
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"unavailable", status.Error(grpccodes.Unavailable, "down"), true},
		{"deadline exceeded", status.Error(grpccodes.DeadlineExceeded, "slow"), true},
		{"aborted", status.Error(grpccodes.Aborted, "conflict"), true},
		{"resource exhausted", status.Error(grpccodes.ResourceExhausted, "quota"), true},
		{"invalid argument", status.Error(grpccodes.InvalidArgument, "bad"), false},
		{"not found", status.Error(grpccodes.NotFound, "missing"), false},
		{"unauthenticated", status.Error(grpccodes.Unauthenticated, "who"), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientError(tt.err))
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	store := &QdrantStore{config: QdrantConfig{FailureThreshold: 3, RecoveryTimeout: 30 * time.Second}}

	t.Run("closed until threshold", func(t *testing.T) {
		store.recordFailure()
		store.recordFailure()
		assert.False(t, store.isCircuitOpen())
	})

	t.Run("opens at threshold", func(t *testing.T) {
		store.recordFailure()
		assert.True(t, store.isCircuitOpen())
	})

	t.Run("reset closes circuit", func(t *testing.T) {
		store.resetCircuitBreaker()
		assert.False(t, store.isCircuitOpen())
	})

	t.Run("recovery timeout allows probe", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			store.recordFailure()
		}
		require.True(t, store.isCircuitOpen())

		store.circuitBreaker.mu.Lock()
		store.circuitBreaker.lastFail = time.Now().Add(-time.Minute)
		store.circuitBreaker.mu.Unlock()

		assert.False(t, store.isCircuitOpen())
	})
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, ValidateCollectionName("memories"))
	assert.NoError(t, ValidateCollectionName("test_memories_2"))
	assert.Error(t, ValidateCollectionName(""))
	assert.Error(t, ValidateCollectionName("Has-Caps"))
	assert.Error(t, ValidateCollectionName("spaces here"))
}
