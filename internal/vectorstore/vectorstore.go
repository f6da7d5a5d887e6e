// Package vectorstore provides vector index implementations for memory
// recall. Two backends are supported: chromem-go (embedded, default) and
// Qdrant (remote, gRPC).
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates the remote backend is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrCircuitOpen is returned when the circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// collectionNameRe restricts collection names to lowercase alphanumerics
// and underscores, max 64 chars.
var collectionNameRe = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName checks a collection name against naming rules.
func ValidateCollectionName(name string) error {
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q must match [a-z0-9_]{1,64}", ErrInvalidCollectionName, name)
	}
	return nil
}

// Document represents a document to be stored in the vector index.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Content is the text content of the document.
	Content string

	// Metadata contains additional key-value pairs for filtering.
	Metadata map[string]interface{}
}

// SearchResult represents a similarity search hit.
type SearchResult struct {
	// ID is the document identifier.
	ID string

	// Content is the document text content.
	Content string

	// Score is the similarity score (higher = more similar).
	Score float32

	// Metadata contains the document metadata.
	Metadata map[string]interface{}
}

// CollectionInfo contains metadata about a vector collection.
type CollectionInfo struct {
	Name       string `json:"name"`
	PointCount int    `json:"point_count"`
	VectorSize int    `json:"vector_size"`
}

// Embedder generates vector embeddings from text.
//
// Embeddings are dense numerical representations that capture semantic
// meaning, enabling similarity search.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for vector index operations.
//
// Implementations embed documents at insert time and search by embedding
// the query. An empty index returns empty results, never errors.
type Store interface {
	// AddDocuments embeds and stores documents, returning their IDs.
	// Documents without an ID get one assigned.
	AddDocuments(ctx context.Context, docs []Document) ([]string, error)

	// Search returns up to k documents most similar to the query,
	// ordered by similarity score (highest first).
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// SearchWithFilters restricts search to documents whose metadata
	// matches all filter conditions.
	SearchWithFilters(ctx context.Context, query string, k int, filters map[string]interface{}) ([]SearchResult, error)

	// DeleteDocuments deletes documents by their IDs.
	DeleteDocuments(ctx context.Context, ids []string) error

	// CollectionInfo returns metadata about the backing collection.
	CollectionInfo(ctx context.Context) (*CollectionInfo, error)

	// Close releases backend resources.
	Close() error
}
