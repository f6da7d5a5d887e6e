// Recalld is a supportive memory recall daemon.
//
// It stores the user's happy memories (text and photos), embeds them
// into a vector index, and serves a chat API that recalls relevant
// memories and folds them into a language-model reply.
//
// Configuration is loaded from an optional YAML file plus RECALLD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	recalld
//
//	# Start with a config file
//	recalld -config /etc/recalld/config.yaml
//
//	# Show version information
//	recalld version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/conversation"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	httpserver "github.com/fyrsmithlabs/recalld/internal/http"
	"github.com/fyrsmithlabs/recalld/internal/llm"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/memory"
	"github.com/fyrsmithlabs/recalld/internal/telemetry"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  recalld            Start the recalld daemon\n")
			fmt.Fprintf(os.Stderr, "  recalld version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("recalld\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run initializes all dependencies and blocks until the context is
// cancelled or the server fails:
//  1. Loads and validates configuration
//  2. Starts telemetry and the structured logger
//  3. Builds the embedding provider and vector store
//  4. Wires the memory, LLM, and conversation services
//  5. Starts the HTTP server
//  6. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := logging.New(cfg.Logging, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info(ctx, "starting recalld",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Address()),
		zap.String("vectorstore", cfg.VectorStore.Backend),
		zap.String("embeddings", cfg.Embeddings.Provider),
		zap.String("llm", cfg.LLM.Provider))

	embedder, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("failed to initialize embeddings: %w", err)
	}
	defer func() {
		_ = embedder.Close()
	}()

	store, err := vectorstore.New(cfg.VectorStore, embedder, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	memories, err := memory.NewService(cfg.Memory, store, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize memory service: %w", err)
	}

	chain, err := llm.New(cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize llm providers: %w", err)
	}

	history, err := conversation.NewHistoryStore(cfg.Conversation.DatabasePath, cfg.Conversation.MaxHistory)
	if err != nil {
		return fmt.Errorf("failed to open conversation history: %w", err)
	}

	chat, err := conversation.NewService(cfg.Conversation, history, memories, chain, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize conversation service: %w", err)
	}
	defer func() {
		_ = chat.Close()
	}()

	srv, err := httpserver.NewServer(cfg.Server, memories, chat, logger, version)
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http shutdown failed", zap.Error(err))
	}
	return <-errCh
}
