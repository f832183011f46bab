package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"commune/internal/audit"
	auditkafka "commune/internal/audit/kafka"
	communityhandler "commune/internal/community/handler"
	communityservice "commune/internal/community/service"
	communitystore "commune/internal/community/store"
	"commune/internal/configuration"
	configstore "commune/internal/configuration/store"
	confighandler "commune/internal/configuration/handler"
	confirmationhandler "commune/internal/confirmation/handler"
	confirmationmetrics "commune/internal/confirmation/metrics"
	confirmationservice "commune/internal/confirmation/service"
	confirmationstore "commune/internal/confirmation/store"
	"commune/internal/i18n"
	"commune/internal/mail"
	"commune/internal/platform/config"
	"commune/internal/platform/health"
	"commune/internal/platform/httpserver"
	"commune/internal/platform/logger"
	platformmetrics "commune/internal/platform/metrics"
	platformmiddleware "commune/internal/platform/middleware"
	redisclient "commune/internal/platform/redis"
	ratelimitmetrics "commune/internal/ratelimit/metrics"
	ratelimitmw "commune/internal/ratelimit/middleware"
	ratelimitmodels "commune/internal/ratelimit/models"
	"commune/internal/ratelimit/store/bucket"
	"commune/pkg/platform/middleware/admin"
	"commune/pkg/platform/middleware/locale"
	"commune/pkg/platform/middleware/metadata"
	"commune/pkg/platform/middleware/request"
	"commune/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checks := health.New(2 * time.Second)

	settings, closeDB, err := buildSettings(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeDB()

	sink, closeSink, err := buildAuditSink(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := audit.NewPublisher(1024, log)
	worker := audit.NewWorker(sink, publisher.Events(), log)

	templates, err := mail.LoadTemplates()
	if err != nil {
		return fmt.Errorf("load mail templates: %w", err)
	}
	mailer := mail.New(buildSender(cfg, log), templates,
		mail.WithLogger(log),
		mail.WithMetrics(mail.NewMetrics(reg)),
	)

	confirmationMetrics := confirmationmetrics.New(reg)
	pending := confirmationstore.NewInMemoryStore(
		confirmationstore.WithTTL(cfg.Confirmation.TTL),
		confirmationstore.WithCapacity(cfg.Confirmation.Capacity),
		confirmationstore.WithMetrics(confirmationMetrics),
	)
	translator := i18n.NewTranslator()
	confirmations := confirmationservice.New(pending, settings, mailer, translator,
		confirmationservice.WithLogger(log),
		confirmationservice.WithMetrics(confirmationMetrics),
		confirmationservice.WithAuditPublisher(publisher),
	)

	community := communityservice.New(confirmations, communitystore.NewInMemoryStore(), translator,
		communityservice.WithLogger(log),
		communityservice.WithWelcomeMail(mailer, settings),
	)

	limiter, closeRedis, err := buildRateLimiter(ctx, cfg, log, reg, checks)
	if err != nil {
		return err
	}
	defer closeRedis()

	router := chi.NewRouter()
	router.Use(
		request.RequestID,
		request.Recovery(log),
		request.Logger(log),
		metadata.ClientMetadata,
		requesttime.Middleware,
		locale.Middleware(i18n.Match),
		platformmiddleware.LatencyMiddleware(platformmetrics.New(reg)),
	)
	router.Get("/healthz", health.Live)
	router.Get("/readyz", checks.Ready)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	confirmationhandler.New(confirmations, log,
		confirmationhandler.WithMiddleware(limiter.RateLimit(ratelimitmodels.ScopeConfirm)),
	).Register(router)
	adminGuard := admin.RequireAdminToken(cfg.Server.AdminToken, log)
	if cfg.Server.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin routes reject every request")
	}
	router.Group(func(api chi.Router) {
		api.Use(request.ContentTypeJSON, request.Timeout(10*time.Second))
		communityhandler.New(community, log,
			communityhandler.WithFlowMiddleware(limiter.RateLimit(ratelimitmodels.ScopeStart)),
			communityhandler.WithAdminMiddleware(adminGuard),
		).Register(api)
		confighandler.New(settings, log, adminGuard).Register(api)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		return confirmations.RunCleanup(ctx, cfg.Confirmation.CleanupInterval)
	})
	g.Go(func() error {
		return limiter.RunSweep(ctx, cfg.RateLimit.Window)
	})
	g.Go(func() error {
		log.Info("starting commune", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Info("server stopped", "dropped_audit_events", publisher.Dropped())
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildSettings picks the Postgres settings store when DATABASE_URL is set.
func buildSettings(ctx context.Context, cfg config.Config, log *slog.Logger, checks *health.Checker) (*configuration.Service, func(), error) {
	opts := []configuration.Option{
		configuration.WithLogger(log),
		configuration.WithDefault(configuration.InstanceURL, cfg.Server.InstanceURL),
	}
	if cfg.Database.URL == "" {
		log.Info("using in-memory configuration store")
		return configuration.New(configstore.NewInMemoryStore(), opts...), func() {}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	checks.Add("postgres", pool.Ping)
	store := configstore.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("using postgres configuration store")
	return configuration.New(store, opts...), pool.Close, nil
}

// buildAuditSink streams to Kafka when brokers are configured and logs otherwise.
func buildAuditSink(ctx context.Context, cfg config.Config, log *slog.Logger, checks *health.Checker) (audit.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return audit.NewLogSink(log), func() {}, nil
	}
	sink, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := sink.EnsureTopic(ctx, 3, 1); err != nil {
		sink.Close()
		return nil, nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	checks.Add("kafka", sink.Ping)
	log.Info("streaming audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	return sink, sink.Close, nil
}

func buildSender(cfg config.Config, log *slog.Logger) mail.Sender {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set, mails are only logged")
		return mail.NewLogSender(log)
	}
	return mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
}

// buildRateLimiter uses Redis as the primary window store when configured.
// The in-memory store always serves as fallback.
func buildRateLimiter(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, checks *health.Checker) (*ratelimitmw.Middleware, func(), error) {
	opts := []ratelimitmw.Option{
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithLimit(ratelimitmodels.ScopeStart, ratelimitmodels.Limit{
			RequestsPerWindow: cfg.RateLimit.StartPerWindow,
			Window:            cfg.RateLimit.Window,
		}),
		ratelimitmw.WithLimit(ratelimitmodels.ScopeConfirm, ratelimitmodels.Limit{
			RequestsPerWindow: cfg.RateLimit.ConfirmPerWindow,
			Window:            cfg.RateLimit.Window,
		}),
	}

	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return ratelimitmw.New(bucket.NewInMemoryBucketStore(), log, opts...), func() {}, nil
	}
	checks.Add("redis", client.Health)
	log.Info("using redis rate limit store")
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}
	return ratelimitmw.New(bucket.NewRedisBucketStore(client), log, opts...), closeFn, nil
}
