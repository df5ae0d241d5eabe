package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	phttp "github.com/Strob0t/PropertyHub/internal/adapter/http"
	phnats "github.com/Strob0t/PropertyHub/internal/adapter/nats"
	"github.com/Strob0t/PropertyHub/internal/adapter/natskv"
	"github.com/Strob0t/PropertyHub/internal/adapter/otel"
	"github.com/Strob0t/PropertyHub/internal/adapter/postgres"
	phredis "github.com/Strob0t/PropertyHub/internal/adapter/redis"
	"github.com/Strob0t/PropertyHub/internal/adapter/ristretto"
	"github.com/Strob0t/PropertyHub/internal/adapter/tiered"
	"github.com/Strob0t/PropertyHub/internal/adapter/ws"
	"github.com/Strob0t/PropertyHub/internal/config"
	"github.com/Strob0t/PropertyHub/internal/middleware"
	"github.com/Strob0t/PropertyHub/internal/service"
	"github.com/Strob0t/PropertyHub/internal/supervisor"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket gateway and scheduled jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()
			return serve(cmd.Context(), cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, migrate bool) error {
	log.Info("config loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("log_level", cfg.Logging.Level),
		zap.Int32("pg_max_conns", cfg.Postgres.MaxConns),
	)

	shutdownOTEL, err := otel.Init(ctx, cfg.OTEL, log)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(shutdownCtx); err != nil {
			log.Warn("otel shutdown", zap.Error(err))
		}
	}()
	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	if migrate {
		postgres.SetMigrationLogger(log)
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied")
	}
	store := postgres.NewStore(pool)

	rdb, err := phredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	breaker := phredis.NewBreaker(cfg.Breaker, log)
	liveness := phredis.NewLiveness(rdb, breaker)
	presence := phredis.NewPresence(rdb, breaker, cfg.Realtime.PresenceTTL)

	queue, err := phnats.Connect(ctx, cfg.NATS.URL, log)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() {
		if err := queue.Drain(); err != nil {
			log.Warn("nats drain", zap.Error(err))
		}
	}()

	identityKV, err := queue.KeyValue(ctx, cfg.Cache.KVBucket, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("identity cache bucket: %w", err)
	}
	idemKV, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}
	l1, err := ristretto.New(cfg.Cache.L1MaxCost)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	snapshots := tiered.New(l1, natskv.New(identityKV), cfg.Cache.TTL)

	// --- Services ---

	hub := ws.NewHub(uuid.NewString(), queue, cfg.Realtime.WriteTimeout, log)

	tokens := service.NewTokenService(store, liveness, snapshots, queue, cfg.Auth, metrics, log)
	tokens.SetSnapshotTTL(cfg.Cache.TTL)
	authSvc := service.NewAuthService(store, tokens, cfg.Auth, log)
	notifications := service.NewNotificationService(store, hub, log)
	conversations := service.NewConversationService(store, hub, log)
	maintenance := service.NewMaintenanceService(store, conversations, notifications, metrics, log)
	billing := service.NewBillingService(store, metrics, log)
	subscriptions := service.NewSubscriptionService(store, tokens, metrics, log)

	if err := subscriptions.SeedPlans(ctx, cfg.Billing.PlansFile); err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	if _, err := authSvc.EnsureSuperAdmin(ctx, cfg.Auth.SuperAdminMail, cfg.Auth.SuperAdminPass); err != nil {
		return fmt.Errorf("superadmin: %w", err)
	}

	scheduler := service.NewScheduler(log)
	if err := scheduler.Add("rent-sweep", cfg.Billing.Schedule, service.BillingJob(billing)); err != nil {
		return err
	}
	if err := scheduler.Add("token-prune", cfg.Auth.PruneSchedule, service.TokenPruneJob(tokens)); err != nil {
		return err
	}
	if cfg.Billing.SweepOnStart {
		scheduler.RunNow(ctx)
	}

	handlers := &phttp.Handlers{
		Auth:          authSvc,
		Maintenance:   maintenance,
		Conversations: conversations,
		Billing:       billing,
		Subscriptions: subscriptions,
		Notifications: notifications,
		Notices:       service.NewNoticeService(store),
		Properties:    service.NewPropertyService(store, tokens),
		Staff:         service.NewStaffService(store, tokens, cfg.Auth, log),
		Reports:       service.NewReportService(store),
		Support:       service.NewSupportService(store, notifications, log),
		Feedback:      service.NewFeedbackService(store, notifications, log),
		Dashboard:     service.NewDashboardService(store),
		Clients:       service.NewClientService(store, tokens, log),
		Users:         store,
		Presence:      presence,
		Session:       phttp.Session{TTL: cfg.Auth.TokenTTL, CookieSecure: cfg.Server.CookieSecure},
		Ready: readiness(map[string]func(context.Context) error{
			"postgres": store.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"nats": func(context.Context) error {
				if !queue.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			},
		}),
		Log:           log,
	}

	// --- HTTP ---

	r := chi.NewRouter()
	r.Use(otel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(phttp.Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(phttp.SecurityHeaders)
	r.Use(phttp.CORS(cfg.Server.CORSOrigins))

	realtime := ws.NewHandler(hub, tokens, conversations, presence, cfg.Realtime.OriginPatterns, log)
	realtime.SetHeartbeat(presence.TTL() / 3)

	phttp.MountRoutes(r, handlers, phttp.Routes{
		Tokens:    tokens,
		RateLimit: cfg.RateLimit,
		Responses: natskv.New(idemKV),
		Realtime:  realtime,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(log, cfg.Server.ShutdownTimeout)
	tree.AddBackground(ws.NewRelay(hub, queue, log))
	tree.AddBackground(scheduler)
	tree.AddAPI(supervisor.NewHTTPService(srv, cfg.Server.ShutdownTimeout))

	log.Info("starting server", zap.String("addr", srv.Addr))
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// readiness runs every named check concurrently and fails on the first error.
func readiness(checks map[string]func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for name, check := range checks {
			g.Go(func() error {
				if err := check(ctx); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				return nil
			})
		}
		return g.Wait()
	}
}
