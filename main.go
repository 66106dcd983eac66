package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autoosone/auto-state/agent/api"
	"github.com/autoosone/auto-state/agent/bridge"
	"github.com/autoosone/auto-state/agent/catalog"
	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/flow"
	llmx "github.com/autoosone/auto-state/agent/llm"
	"github.com/autoosone/auto-state/agent/persist"
	promptx "github.com/autoosone/auto-state/agent/prompt"
	statex "github.com/autoosone/auto-state/agent/state"
	configx "github.com/autoosone/auto-state/pkg/config"
	"github.com/autoosone/auto-state/pkg/database"
	_ "github.com/autoosone/auto-state/pkg/logger/autoload"
	qstashx "github.com/autoosone/auto-state/pkg/qstash"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
)

type AppConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("auto-state stopped")
	}
}

func run() error {
	appCfg := configx.MustNew[AppConfig]("APP")
	dbCfg := configx.MustNew[database.Config]("DB")
	flowCfg := configx.MustNew[flow.Config]("FLOW")
	redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, cat, db, err := openStorage(ctx, *dbCfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("close database")
			}
		}()
	}

	writer, err := persist.NewWriter(gw,
		persist.WithQueueSize(dbCfg.QueueSize),
		persist.WithWriteTimeout(dbCfg.WriteTimeout),
	)
	if err != nil {
		return err
	}

	opts := []flow.Option{}
	if redisCfg.Enabled() {
		store, err := statex.NewUpstashRedisStore(*redisCfg)
		if err != nil {
			return fmt.Errorf("upstash redis: %w", err)
		}
		opts = append(opts, flow.WithSnapshotStore(store))
		log.Info().Msg("snapshots stored in upstash redis")
	}
	if qstashCfg.Enabled() {
		client, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return fmt.Errorf("qstash: %w", err)
		}
		notifier, err := flow.NewQStashNotifier(client, qstashCfg.OrderDestination)
		if err != nil {
			return fmt.Errorf("qstash: %w", err)
		}
		opts = append(opts, flow.WithNotifier(notifier))
		log.Info().Str("destination", qstashCfg.OrderDestination).Msg("order notifications enabled")
	}

	f, err := flow.New(gw, writer, cat, *flowCfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Msg("close flow")
		}
	}()

	serverOpts := []api.Option{}
	if llmCfg.Enabled() {
		chat, err := newChatAgent(ctx, *llmCfg)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, api.WithChatAgent(chat))
		log.Info().Str("model", llmCfg.Model).Msg("chat agent enabled")
	}

	server, err := api.NewServer(f, serverOpts...)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	stop()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStorage picks the durable gateway and catalog for the configured
// driver. The memory driver keeps everything in process.
func openStorage(ctx context.Context, cfg database.Config) (persist.Gateway, contractx.Catalog, *bun.DB, error) {
	if cfg.UsesMemory() {
		log.Warn().Msg("DB_DRIVER=memory, durable records are kept in process only")
		return persist.NewMemoryGateway(), catalog.NewStatic(catalog.DemoInventory()), nil, nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	gw, err := persist.NewBunGateway(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	if err := gw.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("migrate sessions: %w", err)
	}
	cat, err := catalog.NewBunCatalog(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	if err := cat.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("migrate catalog: %w", err)
	}
	if cfg.SeedDemo {
		if err := cat.Seed(ctx, catalog.DemoInventory()); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("seed catalog: %w", err)
		}
		log.Warn().Int("vehicles", len(catalog.DemoInventory())).Msg("demo inventory seeded")
	}
	log.Info().Str("driver", cfg.Driver).Msg("database ready")
	return gw, cat, db, nil
}

func newChatAgent(ctx context.Context, cfg llmx.Config) (*bridge.ChatAgent, error) {
	orCfg := cfg.OpenRouter()
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return bridge.NewChatAgent(ctx, chatModel, promptx.LoadPromptSet().SalesFlow,
		bridge.WithMaxToolRounds(cfg.MaxToolRounds),
		bridge.WithHistoryLimit(cfg.HistoryLimit),
	)
}
