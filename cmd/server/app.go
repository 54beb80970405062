package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nexusplatform/orchestrator/internal/config"
	"github.com/nexusplatform/orchestrator/internal/domain"
	"github.com/nexusplatform/orchestrator/internal/engine"
	"github.com/nexusplatform/orchestrator/internal/events"
	"github.com/nexusplatform/orchestrator/internal/generation"
	"github.com/nexusplatform/orchestrator/internal/health"
	"github.com/nexusplatform/orchestrator/internal/notify"
	"github.com/nexusplatform/orchestrator/internal/platform/gemini"
	"github.com/nexusplatform/orchestrator/internal/platform/kafka"
	"github.com/nexusplatform/orchestrator/internal/platform/postgres"
	"github.com/nexusplatform/orchestrator/internal/platform/redis"
	"github.com/nexusplatform/orchestrator/internal/platform/whatsapp"
	"github.com/nexusplatform/orchestrator/internal/service/billing"
	"github.com/nexusplatform/orchestrator/internal/service/margin"
	"github.com/nexusplatform/orchestrator/internal/service/recovery"
	"github.com/nexusplatform/orchestrator/internal/service/routing"
	"github.com/nexusplatform/orchestrator/internal/service/subscription"
	"github.com/nexusplatform/orchestrator/internal/store"
)

// stores bundles the persistence interfaces the services are built on. One
// construction path fills it from Postgres, the other from memory.
type stores struct {
	credits       store.CreditStore
	subscriptions store.SubscriptionStore
	toolCosts     store.ToolCostStore
	instances     store.InstanceStore
	tasks         store.TaskStore
	status        store.StatusStore
}

// application holds the assembled components and owns their lifecycles.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	redisClient *goredis.Client
	audit       kafka.AuditPublisher

	engine   *engine.Engine
	monitor  *health.Monitor
	balancer *margin.Balancer
	watcher  *recovery.Watcher
	emitter  *events.InMemoryEventEmitter
	subs     *subscription.Manager
	router   *routing.Router
	limiter  redis.RateLimiter

	cancelBackground context.CancelFunc
}

// newApplication wires every component from configuration. An empty database
// URL selects the in-memory stores; the external integrations (LLM, gateway,
// Redis, Kafka, alert webhook) each degrade to a local fallback when left
// unconfigured.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	st, err := app.buildStores(ctx)
	if err != nil {
		return nil, err
	}

	costs, err := seedToolCosts(ctx, st.toolCosts, logger)
	if err != nil {
		return nil, err
	}

	notifier := notify.NewWebhookNotifier(cfg.Alerts.WebhookURL)

	resolver := billing.NewResolver(cfg.Billing, costs)
	app.subs = subscription.NewManager(st.subscriptions, st.credits, resolver, cfg.Billing.RenewalDays, logger)
	gate := billing.NewGate(resolver, st.credits, app.subs, logger)

	generator, err := buildGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	gateway := whatsapp.NewClient(cfg.Gateway)
	var probe health.ProbeFunc
	if cfg.Gateway.BaseURL != "" {
		probe = gateway.Ping
	}
	app.monitor = health.NewMonitor(cfg.Health, probe, st.status, logger)

	app.router = routing.NewRouter(st.instances, notifier, app.monitor, logger)

	app.audit = kafka.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		app.audit = kafka.NewAuditPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("kafka audit publisher enabled", "topic", cfg.Kafka.Topic)
	}

	app.engine = engine.New(cfg.Engine, engine.Deps{
		Gate:      gate,
		Health:    app.monitor,
		Generator: generator,
		Router:    app.router,
		Sender:    gateway,
		TaskStore: st.tasks,
		Audit:     app.audit,
		Logger:    logger,
	})
	app.monitor.SetQueueLen(app.engine.QueueLen)

	app.balancer = margin.NewBalancer(st.toolCosts, resolver, cfg.Billing, cfg.Margin, notifier, logger)

	app.limiter = redis.NoopLimiter{}
	if cfg.Redis.Addr != "" {
		app.redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		window := time.Duration(cfg.Redis.EnqueueWindowMs) * time.Millisecond
		app.limiter = redis.NewRateLimiter(app.redisClient, cfg.Redis.EnqueueLimit, window)
		logger.Info("redis rate limiter enabled",
			"limit", cfg.Redis.EnqueueLimit,
			"window", window)
	}

	// The engine is the sole consumer of task request events. In-process
	// producers like the checkout watcher emit through the emitter; the
	// HTTP task API calls the engine directly because it needs the task
	// id back.
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.engine)
	app.watcher = recovery.NewWatcher(cfg.Recovery, app.emitter, logger)

	return app, nil
}

// buildStores selects the persistence backend from configuration.
func (app *application) buildStores(ctx context.Context) (*stores, error) {
	if app.config.Database.URL == "" {
		app.logger.Info("no database configured, using in-memory stores")
		return &stores{
			credits:       store.NewMemoryCreditStore(),
			subscriptions: store.NewMemorySubscriptionStore(),
			toolCosts:     store.NewMemoryToolCostStore(),
			instances:     store.NewMemoryInstanceStore(),
			tasks:         store.NewMemoryTaskStore(),
			status:        store.NewMemoryStatusStore(),
		}, nil
	}

	db, err := openDatabase(ctx, app.config.Database.URL)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := runMigrations(db, app.logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &stores{
		credits:       postgres.NewPostgresCreditStore(db),
		subscriptions: postgres.NewPostgresSubscriptionStore(db),
		toolCosts:     postgres.NewPostgresToolCostStore(db),
		instances:     postgres.NewPostgresInstanceStore(db),
		tasks:         postgres.NewPostgresTaskStore(db),
		status:        postgres.NewPostgresStatusStore(db),
	}, nil
}

// seedToolCosts loads the cost table, installing the defaults on a fresh
// deployment, and returns the configs for the resolver's first snapshot.
func seedToolCosts(ctx context.Context, costs store.ToolCostStore, logger *slog.Logger) ([]domain.ToolCostConfig, error) {
	existing, err := costs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool costs: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	defaults := domain.DefaultToolCosts()
	for _, cfg := range defaults {
		if err := costs.Put(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to seed tool cost %s: %w", cfg.ToolID, err)
		}
	}
	logger.Info("seeded default tool costs", "count", len(defaults))
	return defaults, nil
}

// buildGenerator selects the script generator. Without an API key the static
// fallback keeps the pipeline runnable in local development.
func buildGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Generator, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Info("no LLM API key configured, using static generator")
		return generation.NewStaticGenerator(), nil
	}
	gen, err := gemini.NewGeminiGenerator(ctx, logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return gen, nil
}

// startBackground launches the scheduler, the health monitor, the margin
// balancer, and the checkout watcher. They all stop when the background
// context is cancelled.
func (app *application) startBackground(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	app.cancelBackground = cancel

	app.engine.Start(ctx)
	go app.monitor.Run(ctx)
	go app.balancer.Run(ctx)
	go app.watcher.Run(ctx)
}

// cleanup releases external resources during shutdown.
func (app *application) cleanup() {
	if app.cancelBackground != nil {
		app.cancelBackground()
	}
	app.engine.Stop()

	if err := app.audit.Close(); err != nil {
		app.logger.Error("failed to close audit publisher", "error", err)
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}
