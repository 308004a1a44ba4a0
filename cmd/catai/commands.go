package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/s0ngyang/catai/internal/adapter/assistant"
	"github.com/s0ngyang/catai/internal/adapter/catapi"
	"github.com/s0ngyang/catai/internal/adapter/gateway"
	"github.com/s0ngyang/catai/internal/config"
	"github.com/s0ngyang/catai/internal/logging"
	"github.com/s0ngyang/catai/internal/observability"
	"github.com/s0ngyang/catai/internal/policy"
	"github.com/s0ngyang/catai/internal/session"
	"github.com/s0ngyang/catai/internal/tools"
)

type rootOptions struct {
	configPath string
	backend    string
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "catai",
		Short:         "Chat with an assistant that can show you cats",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "",
		"Assistant backend: mock, openai or gateway (overrides CATAI_BACKEND)")

	root.AddCommand(
		buildChatCmd(opts),
		buildServeCmd(opts),
		buildAssistantCmd(opts),
	)
	return root
}

// load resolves the configuration and builds the logger for a command.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if o.configPath != "" {
		if err := cfg.ApplyFile(o.configPath); err != nil {
			return nil, nil, err
		}
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logging.New(os.Stderr, cfg.LogLevel), nil
}

// runtime holds what every session needs, built once per process.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  assistant.Client
	cats    tools.ImageFetcher
	policy  *policy.Engine
	metrics *observability.Metrics
	close   func() error
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	client, closeFn, err := assistant.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy, policy.WithMaxImages(cfg.MaxImages))
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		cats:    imageFetcher(cfg, client),
		policy:  engine,
		metrics: observability.NewMetrics(),
		close:   closeFn,
	}, nil
}

// imageFetcher picks the image provider. A gateway backend fetches through the gateway,
// which holds the provider key.
func imageFetcher(cfg *config.Config, client assistant.Client) tools.ImageFetcher {
	if gw, ok := client.(*gateway.Client); ok {
		return gw
	}
	return catapi.NewClient(cfg.CatAPIURL, cfg.CatAPIKey, cfg.HTTPTimeout)
}

// newSession builds a controller with getCatImage registered and its images routed back
// into the controller's own state.
func (rt *runtime) newSession() *session.Controller {
	ctrl := session.New(rt.client,
		session.WithLogger(rt.logger),
		session.WithMetrics(rt.metrics),
		session.WithPollInterval(rt.cfg.PollInterval),
		session.WithPolicy(rt.policy),
		session.WithUnknownToolPolicy(session.UnknownToolPolicy(rt.cfg.UnknownToolPolicy)),
		session.WithToolTimeout(rt.cfg.ToolTimeout),
	)
	registerSessionTools(ctrl.Registry(), rt.cats, ctrl, rt.cfg.MaxImages)
	return ctrl
}

// registerSessionTools registers every tool a chat session can execute.
func registerSessionTools(r *tools.Registry, fetcher tools.ImageFetcher, sink tools.ImageSink, maxImages int) {
	r.MustRegister(tools.CatImageDefinition(), tools.NewCatImageExecutor(fetcher, sink, maxImages))
}
