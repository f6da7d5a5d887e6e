// Package mood scores the emotional tone of a message.
//
// A small emotion lexicon maps words to seven emotion categories. The
// category distribution is collapsed into positive and negative scores
// on a 0-5 scale, which the conversation layer uses to pick a response
// register and to tag stored memories.
package mood

import (
	"strings"
	"unicode"
)

// Emotion categories recognized by the analyzer.
const (
	EmotionJoy      = "joy"
	EmotionSurprise = "surprise"
	EmotionNeutral  = "neutral"
	EmotionSadness  = "sadness"
	EmotionAnger    = "anger"
	EmotionFear     = "fear"
	EmotionDisgust  = "disgust"
)

// Assessment is the result of analyzing a message.
type Assessment struct {
	// Positive is the positive sentiment score, 0-5.
	Positive float64 `json:"positive"`

	// Negative is the negative sentiment score, 0-5.
	Negative float64 `json:"negative"`

	// Dominant is the emotion with the highest share, or "neutral"
	// when no lexicon words matched.
	Dominant string `json:"dominant"`

	// Emotions is the share of matched words per emotion, summing to 1
	// when any word matched.
	Emotions map[string]float64 `json:"emotions,omitempty"`
}

// Label returns a coarse description of the assessment: "positive",
// "negative", or "neutral".
func (a Assessment) Label() string {
	switch {
	case a.Negative > a.Positive && a.Negative >= 1:
		return "negative"
	case a.Positive > a.Negative && a.Positive >= 1:
		return "positive"
	default:
		return "neutral"
	}
}

// Analyzer scores message tone against an emotion lexicon.
type Analyzer struct {
	lexicon map[string]string
}

// NewAnalyzer creates an Analyzer with the built-in lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{lexicon: defaultLexicon}
}

// Weights applied when collapsing emotion shares into positive and
// negative scores. Surprise leans positive but gets less weight than
// joy; disgust counts slightly less than the other negative emotions.
const (
	joyWeight      = 1.2
	surpriseWeight = 0.8
	neutralWeight  = 0.3
	disgustWeight  = 0.8
)

// Analyze scores a message. An empty or unmatched message yields a
// neutral assessment.
func (a *Analyzer) Analyze(message string) Assessment {
	words := splitWords(message)

	counts := make(map[string]int)
	total := 0
	for _, w := range words {
		if emotion, ok := a.lexicon[w]; ok {
			counts[emotion]++
			total++
		}
	}

	if total == 0 {
		return Assessment{Dominant: EmotionNeutral}
	}

	shares := make(map[string]float64, len(counts))
	dominant := EmotionNeutral
	best := 0
	for emotion, count := range counts {
		shares[emotion] = float64(count) / float64(total)
		if count > best {
			best = count
			dominant = emotion
		}
	}

	positive := shares[EmotionJoy]*joyWeight +
		shares[EmotionSurprise]*surpriseWeight +
		shares[EmotionNeutral]*neutralWeight
	negative := shares[EmotionSadness] +
		shares[EmotionAnger] +
		shares[EmotionFear] +
		shares[EmotionDisgust]*disgustWeight

	return Assessment{
		Positive: clampScore(positive * 5),
		Negative: clampScore(negative * 5),
		Dominant: dominant,
		Emotions: shares,
	}
}

func clampScore(v float64) float64 {
	if v > 5 {
		return 5
	}
	if v < 0 {
		return 0
	}
	return v
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
