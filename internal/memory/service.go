package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/reranker"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

var tracer = otel.Tracer("recalld.memory")

// photoPlaceholder is indexed for photo memories stored without a caption.
const photoPlaceholder = "shared a photo"

// Service stores, recalls, lists, and deletes memories.
type Service struct {
	store       vectorstore.Store
	reranker    reranker.Reranker
	catalog     *catalog
	logger      *logging.Logger
	photoDir    string
	maxPhotoKB  int
	defaultTopK int
}

// NewService creates a memory Service. The data and photo directories
// are created if missing.
func NewService(cfg config.MemoryConfig, store vectorstore.Store, rr reranker.Reranker, logger *logging.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if rr == nil {
		rr = reranker.NewSimpleReranker()
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	photoDir := cfg.PhotoDir
	if photoDir == "" {
		photoDir = filepath.Join(cfg.DataDir, "photos")
	}
	if err := os.MkdirAll(photoDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating photo dir: %w", err)
	}

	cat, err := openCatalog(catalogPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}

	defaultTopK := cfg.DefaultTopK
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	maxPhotoKB := cfg.MaxPhotoKB
	if maxPhotoKB <= 0 {
		maxPhotoKB = 4096
	}

	return &Service{
		store:       store,
		reranker:    rr,
		catalog:     cat,
		logger:      logger,
		photoDir:    photoDir,
		maxPhotoKB:  maxPhotoKB,
		defaultTopK: defaultTopK,
	}, nil
}

// Store saves a text memory and indexes it for recall.
// The mood label is kept alongside the memory for context in replies.
func (s *Service) Store(ctx context.Context, content, mood string) (*Memory, error) {
	ctx, span := tracer.Start(ctx, "memory.Service.Store")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	m := Memory{
		ID:        uuid.New().String(),
		Content:   content,
		Kind:      KindText,
		Mood:      mood,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.index(ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("memory_id", m.ID))
	s.logger.Info(ctx, "stored memory",
		zap.String("memory_id", m.ID),
		zap.String("kind", m.Kind),
		zap.Int("content_length", len(content)),
	)
	return &m, nil
}

// StorePhoto saves a photo memory. The image is decoded from base64 and
// written under the photo directory; the caption (or a placeholder) is
// indexed for recall.
func (s *Service) StorePhoto(ctx context.Context, encoded, caption, mood string) (*Memory, error) {
	ctx, span := tracer.Start(ctx, "memory.Service.StorePhoto")
	defer span.End()

	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidPhoto)
	}
	// Tolerate data URI prefixes from browser clients.
	if idx := strings.Index(encoded, ","); idx != -1 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidPhoto)
	}
	if len(data) > s.maxPhotoKB*1024 {
		return nil, fmt.Errorf("%w: image exceeds %d KB", ErrInvalidPhoto, s.maxPhotoKB)
	}

	content := strings.TrimSpace(caption)
	if content == "" {
		content = photoPlaceholder
	}

	id := uuid.New().String()
	photoPath := filepath.Join(s.photoDir, id+photoExtension(data))
	if err := os.WriteFile(photoPath, data, 0o600); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("writing photo: %w", err)
	}

	m := Memory{
		ID:        id,
		Content:   content,
		Kind:      KindPhoto,
		PhotoPath: photoPath,
		Mood:      mood,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.index(ctx, m); err != nil {
		_ = os.Remove(photoPath)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("memory_id", m.ID),
		attribute.Int("photo_bytes", len(data)),
	)
	s.logger.Info(ctx, "stored photo memory",
		zap.String("memory_id", m.ID),
		zap.Int("photo_bytes", len(data)),
	)
	return &m, nil
}

// index adds the memory to the vector store and records it in the
// catalog, rolling back the index entry if the catalog write fails.
func (s *Service) index(ctx context.Context, m Memory) error {
	_, err := s.store.AddDocuments(ctx, []vectorstore.Document{{
		ID:      m.ID,
		Content: m.Content,
		Metadata: map[string]interface{}{
			"kind":       m.Kind,
			"mood":       m.Mood,
			"created_at": m.CreatedAt.Format(time.RFC3339),
		},
	}})
	if err != nil {
		return fmt.Errorf("indexing memory: %w", err)
	}

	if err := s.catalog.put(m); err != nil {
		_ = s.store.DeleteDocuments(ctx, []string{m.ID})
		return err
	}
	return nil
}

// Recall returns up to k memories similar to the query, re-ranked by
// term overlap. An empty query or an empty index returns no results.
func (s *Service) Recall(ctx context.Context, query string, k int) ([]RecallResult, error) {
	ctx, span := tracer.Start(ctx, "memory.Service.Recall")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return []RecallResult{}, nil
	}
	if k <= 0 {
		k = s.defaultTopK
	}
	span.SetAttributes(attribute.Int("k", k))

	if s.catalog.count() == 0 {
		return []RecallResult{}, nil
	}

	// Over-fetch so the reranker has candidates to reorder.
	fetchK := k * 3
	hits, err := s.store.Search(ctx, query, fetchK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	if len(hits) == 0 {
		return []RecallResult{}, nil
	}

	docs := make([]reranker.Document, len(hits))
	for i, h := range hits {
		docs[i] = reranker.Document{ID: h.ID, Content: h.Content, Score: h.Score}
	}

	ranked, err := s.reranker.Rerank(ctx, query, docs, k)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reranking memories: %w", err)
	}

	results := make([]RecallResult, 0, len(ranked))
	for _, r := range ranked {
		m, ok := s.catalog.get(r.ID)
		if !ok {
			// Index can briefly hold entries removed from the catalog.
			continue
		}
		results = append(results, RecallResult{Memory: m, Score: r.Score})
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	s.logger.Debug(ctx, "recalled memories",
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// List returns all memories, newest first.
func (s *Service) List(ctx context.Context) ([]Memory, error) {
	_, span := tracer.Start(ctx, "memory.Service.List")
	defer span.End()

	memories := s.catalog.list()
	span.SetAttributes(attribute.Int("count", len(memories)))
	return memories, nil
}

// Get returns a memory by ID.
func (s *Service) Get(ctx context.Context, id string) (*Memory, error) {
	m, ok := s.catalog.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

// Delete removes a memory from the index, the catalog, and the photo
// directory.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "memory.Service.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("memory_id", id))

	m, err := s.catalog.remove(id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDocuments(ctx, []string{id}); err != nil {
		span.RecordError(err)
		s.logger.Warn(ctx, "failed to remove memory from index",
			zap.String("memory_id", id),
			zap.Error(err),
		)
	}

	if m.PhotoPath != "" {
		if err := os.Remove(m.PhotoPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn(ctx, "failed to remove photo file",
				zap.String("path", m.PhotoPath),
				zap.Error(err),
			)
		}
	}

	s.logger.Info(ctx, "deleted memory", zap.String("memory_id", id))
	return nil
}

// Count returns the number of stored memories.
func (s *Service) Count() int {
	return s.catalog.count()
}

// photoExtension sniffs a file extension from magic bytes, defaulting
// to .jpg.
func photoExtension(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return ".png"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return ".gif"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return ".webp"
	default:
		return ".jpg"
	}
}
