package assistant

import (
	"fmt"
	"log/slog"

	"github.com/s0ngyang/catai/internal/adapter/gateway"
	"github.com/s0ngyang/catai/internal/adapter/mockassistant"
	"github.com/s0ngyang/catai/internal/adapter/oaiassistant"
	"github.com/s0ngyang/catai/internal/config"
	store "github.com/s0ngyang/catai/internal/repository"
)

// Ensure every backend implements Client.
var (
	_ Client = (*mockassistant.Service)(nil)
	_ Client = (*oaiassistant.Client)(nil)
	_ Client = (*gateway.Client)(nil)
)

// New creates the backend selected by cfg.Backend. The returned close function releases
// backend resources and is never nil.
func New(cfg *config.Config, logger *slog.Logger) (Client, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMock:
		db, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open mock store: %w", err)
		}
		logger.Info("using mock assistant backend", "database", cfg.DatabaseURL)
		return mockassistant.New(db), db.Close, nil

	case config.BackendOpenAI:
		logger.Info("using openai assistant backend", "assistant_id", cfg.AssistantID)
		return oaiassistant.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.AssistantID, cfg.HTTPTimeout), noop, nil

	case config.BackendGateway:
		logger.Info("using gateway assistant backend", "url", cfg.GatewayURL)
		return gateway.NewClient(cfg.GatewayURL, cfg.HTTPTimeout), noop, nil
	}

	return nil, noop, fmt.Errorf("unknown backend %q", cfg.Backend)
}
