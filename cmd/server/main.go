package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"health-compass/internal/bot"
	"health-compass/internal/community"
	"health-compass/internal/config"
	"health-compass/internal/health"
	"health-compass/internal/platform/httpx"
	"health-compass/internal/platform/logger"
	"health-compass/internal/platform/maxapi"
	"health-compass/internal/report"
	"health-compass/internal/screening"
	"health-compass/internal/symptom"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	lg, err := logger.New(cfg.AppMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	if cfg.EnvFileMissing {
		lg.Warn(".env file not found, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Infrastructure
	store, closeStore := openHealthStore(ctx, cfg, lg)
	defer closeStore()
	sessions, closeSessions := openSessionStore(ctx, cfg, lg)
	defer closeSessions()

	// 2. Services
	healthSvc := health.NewService(store)
	scheduler := screening.NewScheduler()
	communities := community.NewDirectory()
	engine := symptom.NewEngine(nil)

	// 3. Chat platform
	var maxClient *maxapi.Client
	var chatBot *bot.Bot
	reportSvc := report.NewService(nil, cfg.ReportFontPath, lg)
	if cfg.BotEnabled() {
		maxClient = maxapi.NewClient(cfg.MaxAPIURL, cfg.MaxBotToken, cfg.HTTPClientTimeout)
		reportSvc = report.NewService(maxClient, cfg.ReportFontPath, lg)
		chatBot = bot.New(bot.Deps{
			Sender:      maxClient,
			Health:      healthSvc,
			Engine:      engine,
			Sessions:    sessions,
			Scheduler:   scheduler,
			Communities: communities,
			Reports:     reportSvc,
			Log:         lg,
		})
		registerWebhook(ctx, cfg, maxClient, lg)
	} else {
		lg.Warn("MAX_BOT_TOKEN is not set, bot component disabled")
	}

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(lg))
	r.Use(middleware.Recoverer)
	r.Use(httpx.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]interface{}{
			"status":      "healthy",
			"service":     "Health Compass",
			"bot_enabled": chatBot != nil,
		})
	})
	r.Get("/bot/info", botInfoHandler(maxClient, lg))
	r.Method(http.MethodPost, "/webhook", bot.NewWebhookHandler(chatBot, cfg.WebhookSecret, lg))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", apiInfo)
		health.RegisterRoutes(r, health.NewHandler(healthSvc, lg))
		screening.RegisterRoutes(r, screening.NewHandler(scheduler, healthSvc, lg))
		report.RegisterRoutes(r, report.NewHandler(reportSvc, healthSvc, scheduler, lg))
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server starting", "addr", srv.Addr, "mode", cfg.AppMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		lg.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		lg.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// openHealthStore connects to Postgres and applies migrations when
// DATABASE_URL is set. Without it, or when the database stays unreachable,
// profiles and metrics are kept in memory.
func openHealthStore(ctx context.Context, cfg *config.Config, lg *logger.Logger) (health.Store, func()) {
	if cfg.DatabaseURL == "" {
		lg.Info("DATABASE_URL not set, using in-memory health store")
		return health.NewMemoryStore(), func() {}
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err == nil {
		err = pingWithRetry(ctx, db, dbPingAttempts, dbPingInterval, lg)
	}
	if err != nil {
		lg.Error("could not connect to database, falling back to memory store", "error", err)
		if db != nil {
			db.Close()
		}
		return health.NewMemoryStore(), func() {}
	}
	lg.Info("connected to database")

	m, err := migrate.New(cfg.MigrationsDir, cfg.DatabaseURL)
	if err != nil {
		lg.Error("migration init failed", "error", err)
	} else {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			lg.Error("migration up failed", "error", err)
		} else {
			lg.Info("migrations applied")
		}
		m.Close()
	}

	return health.NewPostgresStore(db), func() { db.Close() }
}

const (
	dbPingAttempts = 10
	dbPingInterval = 2 * time.Second
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// pingWithRetry pings up to attempts times, pausing between attempts only.
func pingWithRetry(ctx context.Context, db pinger, attempts int, interval time.Duration, lg *logger.Logger) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		lg.Info("waiting for database", "attempt", i+1, "error", err)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return err
}

// openSessionStore keeps triage sessions in Redis when REDIS_ADDR is set so
// they survive restarts and expire on their own.
func openSessionStore(ctx context.Context, cfg *config.Config, lg *logger.Logger) (symptom.SessionStore, func()) {
	if cfg.RedisAddr == "" {
		return symptom.NewMemoryStore(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		lg.Error("redis unavailable, triage sessions kept in memory", "addr", cfg.RedisAddr, "error", err)
		client.Close()
		return symptom.NewMemoryStore(), func() {}
	}
	lg.Info("triage sessions stored in redis", "addr", cfg.RedisAddr, "ttl", cfg.TriageSessionTTL.String())
	return symptom.NewRedisStore(client, cfg.TriageSessionTTL), func() { client.Close() }
}

// registerWebhook subscribes the webhook and logs the bot identity. Failures
// are logged; the HTTP API keeps working without them.
func registerWebhook(ctx context.Context, cfg *config.Config, c *maxapi.Client, lg *logger.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 2*cfg.HTTPClientTimeout)
	defer cancel()

	if info, err := c.Me(ctx); err != nil {
		lg.Error("failed to fetch bot info", "error", err)
	} else {
		lg.Info("bot ready", "username", info.Username, "bot_user_id", info.UserID)
	}

	if cfg.WebhookURL == "" {
		lg.Warn("WEBHOOK_URL is not set, updates will not be delivered")
		return
	}
	if err := c.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
		lg.Error("failed to set webhook", "url", cfg.WebhookURL, "error", err)
		return
	}
	lg.Info("webhook registered", "url", cfg.WebhookURL)
}

func botInfoHandler(c *maxapi.Client, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c == nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "Service not ready"})
			return
		}
		info, err := c.Me(r.Context())
		if err != nil {
			lg.Error("bot info failed", "error", err)
			httpx.JSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
			return
		}
		httpx.JSON(w, http.StatusOK, info)
	}
}

func apiInfo(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Health Compass API",
		"status":  "healthy",
		"endpoints": []string{
			"POST /api/profile?user_id=",
			"GET /api/profile/{user_id}",
			"PATCH /api/profile/{user_id}",
			"POST /api/profile/{user_id}/conditions",
			"POST /api/health-metrics?user_id=",
			"GET /api/health-metrics/{user_id}",
			"GET /api/health-summary/{user_id}",
			"GET /api/health-trends/{user_id}",
			"GET /api/screening-schedule/{user_id}",
			"GET /api/health-report/{user_id}",
			"POST /webhook",
		},
	})
}
