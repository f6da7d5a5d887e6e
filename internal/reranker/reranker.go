// Package reranker re-orders recall candidates to improve relevance.
package reranker

import (
	"context"
	"errors"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

// Document represents a recall candidate with its similarity score.
type Document struct {
	ID      string
	Content string
	Score   float32
}

// ScoredDocument is a document with its re-ranking score attached.
type ScoredDocument struct {
	Document
	RerankerScore float32 // 0.0-1.0
	OriginalRank  int     // 0-indexed position in the input
}

// Reranker re-ranks documents by query relevance.
type Reranker interface {
	// Rerank returns documents sorted by combined score, limited to topK.
	Rerank(ctx context.Context, query string, docs []Document, topK int) ([]ScoredDocument, error)

	// Close releases any resources held by the reranker.
	Close() error
}
