package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/recalld/internal/config"
)

func newTestRedactor(t *testing.T, cfg config.LoggingConfig) *RedactingEncoder {
	t.Helper()
	enc, err := NewRedactingEncoder(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), cfg)
	require.NoError(t, err)
	return enc
}

func encodeFields(t *testing.T, enc *RedactingEncoder, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Now(),
		Message: "test",
	}, fields)
	require.NoError(t, err)
	return buf.String()
}

func TestRedactingEncoder(t *testing.T) {
	t.Run("redacts default sensitive keys", func(t *testing.T) {
		enc := newTestRedactor(t, config.LoggingConfig{Redact: true})
		out := encodeFields(t, enc, zap.String("api_key", "sk-12345"))
		assert.Contains(t, out, "[REDACTED]")
		assert.NotContains(t, out, "sk-12345")
	})

	t.Run("redacts configured extra keys", func(t *testing.T) {
		enc := newTestRedactor(t, config.LoggingConfig{Redact: true, RedactKeys: []string{"ssn"}})
		out := encodeFields(t, enc, zap.String("ssn", "123-45-6789"))
		assert.NotContains(t, out, "123-45-6789")
	})

	t.Run("key matching is case insensitive", func(t *testing.T) {
		enc := newTestRedactor(t, config.LoggingConfig{Redact: true})
		out := encodeFields(t, enc, zap.String("API_KEY", "sk-99"))
		assert.NotContains(t, out, "sk-99")
	})

	t.Run("passes through ordinary fields", func(t *testing.T) {
		enc := newTestRedactor(t, config.LoggingConfig{Redact: true})
		out := encodeFields(t, enc, zap.String("memory_id", "abc-123"))
		assert.Contains(t, out, "abc-123")
	})

	t.Run("redacts values matching configured patterns", func(t *testing.T) {
		enc := newTestRedactor(t, config.LoggingConfig{
			Redact:         true,
			RedactPatterns: []string{`sk-[a-zA-Z0-9]+`},
		})
		out := encodeFields(t, enc, zap.String("detail", "token sk-abc123 leaked"))
		assert.Contains(t, out, "[REDACTED:pattern]")
		assert.NotContains(t, out, "sk-abc123")
	})

	t.Run("pattern matching leaves clean values alone", func(t *testing.T) {
		enc := newTestRedactor(t, config.LoggingConfig{
			Redact:         true,
			RedactPatterns: []string{`sk-[a-zA-Z0-9]+`},
		})
		out := encodeFields(t, enc, zap.String("detail", "nothing sensitive here"))
		assert.Contains(t, out, "nothing sensitive here")
	})

	t.Run("rejects invalid pattern", func(t *testing.T) {
		_, err := NewRedactingEncoder(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			config.LoggingConfig{Redact: true, RedactPatterns: []string{`(`}})
		require.Error(t, err)
	})

	t.Run("rejects oversized pattern", func(t *testing.T) {
		long := make([]byte, maxRedactPatternLen+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err := NewRedactingEncoder(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			config.LoggingConfig{Redact: true, RedactPatterns: []string{string(long)}})
		require.Error(t, err)
	})

	t.Run("no-op when redaction disabled", func(t *testing.T) {
		enc := newTestRedactor(t, config.LoggingConfig{Redact: false})
		out := encodeFields(t, enc, zap.String("api_key", "sk-12345"))
		assert.Contains(t, out, "sk-12345")
	})
}

func TestSecretField(t *testing.T) {
	f := Secret("gemini_key", config.Secret("abcdef"))
	assert.Equal(t, "gemini_key", f.Key)
	assert.Equal(t, "[REDACTED:6]", f.String)
}
