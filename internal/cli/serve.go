package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/ysyunhei/internal/bot"
	"github.com/rshade/ysyunhei/internal/config"
	"github.com/rshade/ysyunhei/internal/cooldown"
	"github.com/rshade/ysyunhei/internal/logging"
	"github.com/rshade/ysyunhei/internal/metrics"
	"github.com/rshade/ysyunhei/internal/onebot"
	"github.com/rshade/ysyunhei/internal/render"
	"github.com/rshade/ysyunhei/internal/yunhei"
)

// NewServeCmd creates the serve command, which runs the bot until interrupted.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to OneBot and handle blacklist commands",
		Long: `Connects to the OneBot v11 forward WebSocket at onebot.ws_url and handles
yunhei.add, yunhei.chk (yunhei.cx), yunhei.about and yunhei.sleepwell until
interrupted. When metrics_addr is set, Prometheus metrics are served on
<metrics_addr>/metrics.`,
		Example: `  # Run with the default configuration
  ysyunhei serve

  # Run with an explicit configuration and debug logs
  ysyunhei serve --config /etc/ysyunhei/config.yaml --debug`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, config.GetGlobalConfig())
		},
	}
}

// runServe wires every component from cfg and blocks until ctx is done or a
// component fails.
func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	base := *zerolog.Ctx(ctx)
	log := logging.ComponentLogger(*logging.FromContext(ctx), "serve")
	collector := metrics.NewCollector()

	store, err := cooldown.NewStore(ctx, cooldownOptions(cfg))
	if err != nil {
		return fmt.Errorf("opening cooldown store: %w", err)
	}
	defer func() { _ = store.Close() }()
	gate := cooldown.NewGate(store, base)

	client := onebot.New(onebot.Options{
		URL:         cfg.OneBot.WSURL,
		AccessToken: cfg.OneBot.AccessToken,
		Timeout:     time.Duration(cfg.OneBot.TimeoutSeconds) * time.Second,
		Logger:      base,
	})

	renderer := render.Select(ctx, render.Options{
		AsImage:     cfg.RenderAsImage,
		BrowserPath: cfg.BrowserPath,
		ThemeDate:   cfg.ThemeDate,
		ThemeColor:  cfg.ThemeColor,
	}, base)

	svc := yunhei.NewService(newBlacklistClient(cfg, collector), client, serviceOptions(cfg, gate, collector))
	dispatcher := bot.New(bot.Options{
		Prefix:   cfg.CommandPrefix,
		Handler:  svc,
		Replier:  client,
		Gate:     gate,
		Renderer: renderer,
		Metrics:  collector,
		Logger:   base,
		Audit:    logging.AuditLoggerFromContext(ctx),
	})

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("connecting to onebot: %w", err)
	}
	defer func() { _ = client.Close() }()

	log.Info().
		Str("onebot", cfg.OneBot.WSURL).
		Str("renderer", renderer.Name()).
		Str("cooldown", cfg.Cooldown.Backend).
		Int("admins", len(cfg.AdminQQs)).
		Msg("ysyunhei serving")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx, client.Events())
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
			return collector.Serve(gctx, cfg.MetricsAddr)
		})
	}

	err = g.Wait()
	log.Info().Msg("ysyunhei stopped")
	return err
}
