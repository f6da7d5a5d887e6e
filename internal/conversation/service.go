// Package conversation orchestrates chat sessions: it reads the user's
// mood, recalls supportive memories, prompts the language model, and
// persists the exchange.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/llm"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/memory"
	"github.com/fyrsmithlabs/recalld/internal/mood"
)

var tracer = otel.Tracer("recalld.conversation")

// Reply is the outcome of one chat exchange.
type Reply struct {
	SessionID string                `json:"session_id"`
	Content   string                `json:"content"`
	Provider  string                `json:"provider"`
	Mood      mood.Assessment       `json:"mood"`
	Memories  []memory.RecallResult `json:"memories,omitempty"`
}

// Service runs chat sessions.
type Service struct {
	history  *HistoryStore
	memories *memory.Service
	chain    llm.Provider
	analyzer *mood.Analyzer
	logger   *logging.Logger
	config   config.ConversationConfig
}

// NewService creates a conversation service.
func NewService(cfg config.ConversationConfig, history *HistoryStore, memories *memory.Service, chain llm.Provider, logger *logging.Logger) (*Service, error) {
	if history == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if memories == nil {
		return nil, fmt.Errorf("memory service is required")
	}
	if chain == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.RecallTopK <= 0 {
		cfg.RecallTopK = 3
	}
	if cfg.DefaultSession == "" {
		cfg.DefaultSession = "default"
	}

	return &Service{
		history:  history,
		memories: memories,
		chain:    chain,
		analyzer: mood.NewAnalyzer(),
		logger:   logger,
		config:   cfg,
	}, nil
}

// strongPositive is the positive score above which a turn skips memory
// recall: the user is already in good spirits and the reply should just
// meet them there.
const strongPositive = 4.0

func shouldRecall(a mood.Assessment) bool {
	return !(a.Label() == "positive" && a.Positive >= strongPositive)
}

// Chat handles one user message: mood analysis, memory recall, model
// generation, and history persistence.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (*Reply, error) {
	ctx, span := tracer.Start(ctx, "Service.Chat")
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, llm.ErrEmptyPrompt
	}
	if sessionID == "" {
		sessionID = s.config.DefaultSession
	}
	ctx = logging.WithSessionID(ctx, sessionID)

	assessment := s.analyzer.Analyze(message)
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("mood.label", assessment.Label()),
	)

	var recalled []memory.RecallResult
	if shouldRecall(assessment) {
		results, err := s.memories.Recall(ctx, message, s.config.RecallTopK)
		if err != nil {
			// Recall is best effort; the chat still proceeds without it.
			s.logger.Warn(ctx, "memory recall failed", zap.Error(err))
		} else {
			recalled = results
		}
	}

	history, err := s.history.History(ctx, sessionID, s.config.MaxHistory)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	req := buildRequest(history, message, recalled, assessment)
	resp, err := s.chain.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.history.Append(ctx, sessionID, llm.RoleUser, message, assessment.Label()); err != nil {
		s.logger.Warn(ctx, "failed to persist user turn", zap.Error(err))
	}
	if err := s.history.Append(ctx, sessionID, llm.RoleAssistant, resp.Content, ""); err != nil {
		s.logger.Warn(ctx, "failed to persist assistant turn", zap.Error(err))
	}

	s.logger.Info(ctx, "chat exchange completed",
		zap.String("provider", resp.Provider),
		zap.String("mood", assessment.Label()),
		zap.Int("memories_recalled", len(recalled)))
	span.SetStatus(codes.Ok, "success")

	return &Reply{
		SessionID: sessionID,
		Content:   resp.Content,
		Provider:  resp.Provider,
		Mood:      assessment,
		Memories:  recalled,
	}, nil
}

// History returns the retained turns for a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]Turn, error) {
	if sessionID == "" {
		sessionID = s.config.DefaultSession
	}
	return s.history.History(ctx, sessionID, 0)
}

// ClearHistory deletes a session's turns and returns the count removed.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		sessionID = s.config.DefaultSession
	}
	return s.history.Clear(ctx, sessionID)
}

// Close releases the history store and provider chain.
func (s *Service) Close() error {
	err := s.history.Close()
	if cerr := s.chain.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
