package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer()

	t.Run("positive message scores positive", func(t *testing.T) {
		got := a.Analyze("I am so happy and grateful today, it was wonderful")
		assert.Greater(t, got.Positive, got.Negative)
		assert.Equal(t, EmotionJoy, got.Dominant)
		assert.Equal(t, "positive", got.Label())
	})

	t.Run("negative message scores negative", func(t *testing.T) {
		got := a.Analyze("feeling sad and lonely, I just cried all evening")
		assert.Greater(t, got.Negative, got.Positive)
		assert.Equal(t, EmotionSadness, got.Dominant)
		assert.Equal(t, "negative", got.Label())
	})

	t.Run("anxious message flags fear", func(t *testing.T) {
		got := a.Analyze("so anxious and worried about tomorrow, totally overwhelmed")
		assert.Equal(t, EmotionFear, got.Dominant)
		assert.Greater(t, got.Negative, 0.0)
	})

	t.Run("unmatched message is neutral", func(t *testing.T) {
		got := a.Analyze("the meeting starts at nine")
		assert.Equal(t, EmotionNeutral, got.Dominant)
		assert.Zero(t, got.Positive)
		assert.Zero(t, got.Negative)
		assert.Equal(t, "neutral", got.Label())
	})

	t.Run("empty message is neutral", func(t *testing.T) {
		got := a.Analyze("")
		assert.Equal(t, EmotionNeutral, got.Dominant)
		assert.Equal(t, "neutral", got.Label())
	})

	t.Run("scores stay within 0-5", func(t *testing.T) {
		got := a.Analyze("happy happy happy joy joy wonderful amazing great love")
		assert.LessOrEqual(t, got.Positive, 5.0)
		assert.GreaterOrEqual(t, got.Positive, 0.0)
	})

	t.Run("mixed message keeps both scores", func(t *testing.T) {
		got := a.Analyze("happy about the news but worried about the cost")
		assert.Greater(t, got.Positive, 0.0)
		assert.Greater(t, got.Negative, 0.0)
	})

	t.Run("matching is case insensitive", func(t *testing.T) {
		got := a.Analyze("HAPPY and GRATEFUL")
		assert.Equal(t, EmotionJoy, got.Dominant)
	})

	t.Run("emotion shares sum to one", func(t *testing.T) {
		got := a.Analyze("happy but sad")
		var sum float64
		for _, share := range got.Emotions {
			sum += share
		}
		assert.InDelta(t, 1.0, sum, 0.001)
	})
}
