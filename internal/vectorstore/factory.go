package vectorstore

import (
	"fmt"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/logging"
)

// New creates a Store based on the configured backend.
//
// "chromem" selects the embedded store; "qdrant" connects to a remote
// Qdrant instance over gRPC.
func New(cfg config.VectorStoreConfig, embedder Embedder, logger *logging.Logger) (Store, error) {
	var (
		inner Store
		err   error
	)
	switch cfg.Backend {
	case "chromem":
		inner, err = NewChromemStore(ChromemConfig{
			Path:       cfg.Chromem.Path,
			Compress:   cfg.Chromem.Compress,
			Collection: cfg.Collection,
		}, embedder, logger)
	case "qdrant":
		inner, err = NewQdrantStore(QdrantConfig{
			Host:             cfg.Qdrant.Host,
			Port:             cfg.Qdrant.Port,
			UseTLS:           cfg.Qdrant.UseTLS,
			APIKey:           cfg.Qdrant.APIKey.Value(),
			Collection:       cfg.Collection,
			VectorSize:       cfg.Qdrant.VectorSize,
			MaxRetries:       cfg.Qdrant.MaxRetries,
			RetryBackoff:     cfg.Qdrant.RetryBackoff.Duration(),
			FailureThreshold: cfg.Qdrant.FailureThreshold,
			RecoveryTimeout:  cfg.Qdrant.RecoveryTimeout.Duration(),
		}, embedder, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return newMeasuredStore(inner, cfg.Backend, logger), nil
}
