package reranker

import (
	"context"
	"sort"
	"strings"
)

// SimpleReranker combines the original similarity score with lexical term
// overlap between the query and each document. Semantic similarity keeps
// half the weight so paraphrases are not penalized too hard.
type SimpleReranker struct{}

// NewSimpleReranker creates a SimpleReranker.
func NewSimpleReranker() *SimpleReranker {
	return &SimpleReranker{}
}

// Rerank scores each document as 0.5*original + 0.5*term overlap and
// returns the top K by combined score. When the query produces no tokens
// the original ranking is preserved.
func (r *SimpleReranker) Rerank(ctx context.Context, query string, docs []Document, topK int) ([]ScoredDocument, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if topK <= 0 {
		topK = len(docs)
	}
	if len(docs) == 0 {
		return []ScoredDocument{}, nil
	}

	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return fallbackRank(docs, topK), nil
	}

	type scoredDoc struct {
		doc      ScoredDocument
		combined float32
	}

	scoredDocs := make([]scoredDoc, len(docs))
	for i, doc := range docs {
		overlap := calculateTermOverlap(queryTokens, tokenize(doc.Content))

		const originalWeight = 0.5
		const overlapWeight = 0.5
		combined := float32(originalWeight)*doc.Score + float32(overlapWeight)*overlap

		scoredDocs[i] = scoredDoc{
			doc: ScoredDocument{
				Document:      doc,
				RerankerScore: overlap,
				OriginalRank:  i,
			},
			combined: combined,
		}
	}

	sort.SliceStable(scoredDocs, func(i, j int) bool {
		return scoredDocs[i].combined > scoredDocs[j].combined
	})

	limit := topK
	if limit > len(scoredDocs) {
		limit = len(scoredDocs)
	}

	result := make([]ScoredDocument, limit)
	for i := 0; i < limit; i++ {
		result[i] = scoredDocs[i].doc
	}
	return result, nil
}

// Close is a no-op.
func (r *SimpleReranker) Close() error {
	return nil
}

// tokenize splits text into lowercase terms, dropping stopwords and
// tokens shorter than 3 characters.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !isStopword(token) && len(token) > 2 {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "you": true, "he": true,
	"she": true, "it": true, "we": true, "they": true, "what": true, "which": true,
	"who": true, "when": true, "where": true, "why": true, "how": true,
}

func isStopword(token string) bool {
	return stopwords[token]
}

// calculateTermOverlap returns the fraction of unique query tokens that
// appear in the document.
func calculateTermOverlap(queryTokens, docTokens []string) float32 {
	if len(queryTokens) == 0 {
		return 0.0
	}

	docTokenSet := make(map[string]bool, len(docTokens))
	for _, token := range docTokens {
		docTokenSet[token] = true
	}

	matchCount := 0
	counted := make(map[string]bool, len(queryTokens))
	for _, queryToken := range queryTokens {
		if docTokenSet[queryToken] && !counted[queryToken] {
			matchCount++
			counted[queryToken] = true
		}
	}

	return float32(matchCount) / float32(len(queryTokens))
}

// fallbackRank orders documents by original score when reranking cannot
// proceed.
func fallbackRank(docs []Document, topK int) []ScoredDocument {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	limit := topK
	if limit > len(sorted) {
		limit = len(sorted)
	}

	result := make([]ScoredDocument, limit)
	for i := 0; i < limit; i++ {
		result[i] = ScoredDocument{
			Document:      sorted[i],
			RerankerScore: sorted[i].Score,
			OriginalRank:  i,
		}
	}
	return result
}

var _ Reranker = (*SimpleReranker)(nil)
