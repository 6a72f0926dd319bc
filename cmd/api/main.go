package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadpipe/internal/activity"
	"leadpipe/internal/auth"
	"leadpipe/internal/automation"
	"leadpipe/internal/config"
	"leadpipe/internal/crm"
	"leadpipe/internal/httpapi"
	"leadpipe/internal/leads"
	"leadpipe/internal/messaging"
	"leadpipe/internal/metrics"
	"leadpipe/internal/notify"
	"leadpipe/internal/settings"
	"leadpipe/pkg/logger"
	"leadpipe/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	rootCtx = logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var (
		leadRepo     leads.Repository    = leads.NewMemoryRepo()
		activityRepo activity.Repository = activity.NewMemoryRepo()
		db           *sql.DB
	)
	if cfg.UsesPostgres() {
		db, err = storage.OpenPostgres(rootCtx, cfg.PostgresDSN(), storage.PostgresPool{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		schema := append(append([]string{}, leads.Schema...), activity.Schema...)
		if err := storage.Migrate(rootCtx, db, schema); err != nil {
			log.Error("postgres migrate failed", "err", err)
			os.Exit(1)
		}
		leadRepo = leads.NewPostgresRepo(db)
		activityRepo = activity.NewPostgresRepo(db)
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = storage.OpenRedis(rootCtx, storage.RedisOptions{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	var (
		settingsStore settings.Store    = settings.NewMemoryStore()
		limiter       messaging.Limiter = messaging.NewLocalLimiter(2)
	)
	if rdb != nil {
		settingsStore = settings.NewRedisStore(rdb, "")
		limiter = messaging.NewRedisLimiter(rdb, "", 2, 0)
	}
	settingsSvc := settings.NewService(settingsStore, settings.Settings{
		APIKey:         cfg.WhatsApp.AccessToken,
		Instance:       cfg.WhatsApp.PhoneID,
		SimulationMode: cfg.WhatsApp.SimulationMode,
	})

	catalog := messaging.DefaultCatalog()
	sender := messaging.NewSenderSwitch(
		messaging.NewSimulatedSender(cfg.Simulation.SendDelay),
		messaging.NewWhatsAppSender(messaging.WhatsAppConfig{
			AccessToken: cfg.WhatsApp.AccessToken,
			PhoneID:     cfg.WhatsApp.PhoneID,
			BaseURL:     cfg.WhatsApp.BaseURL,
			Language:    cfg.WhatsApp.Language,
		}, nil).WithCredentials(settingsSvc.Credentials),
		settingsSvc.SimulationMode,
	)

	leadSvc := leads.NewService(leadRepo)
	activitySvc := activity.NewService(activityRepo)
	app := crm.New(crm.Deps{
		Leads:      leadSvc,
		Rules:      automation.NewService(automation.NewMemoryRepo(), catalog),
		Activities: activitySvc,
		Bulk:       messaging.NewBulkSender(leadSvc, activitySvc, sender, catalog).WithLimiter(limiter),
		Sender:     sender,
		Catalog:    catalog,
		Notifier:   notify.New(cfg.Notify.TTL),
		Backend:    crm.NewSimulatedBackend(cfg.Simulation.Latency),
	})

	if cfg.App.SeedDemoData {
		if err := app.Seed(rootCtx, time.Now()); err != nil {
			log.Error("seed failed", "err", err)
			os.Exit(1)
		}
		log.Info("demo data loaded")
	}

	go crm.NewFollowUpWorker(app, cfg.FollowUp.Interval).Run(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())

	registerRoutes(r, httpapi.Handlers{
		Auth:       authManager,
		App:        app,
		Settings:   settingsSvc,
		AllowLogin: !cfg.IsProduction(),
	}, auth.RequireAccessToken(authManager), readiness(db, rdb))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "storage", cfg.Storage.Driver, "redis", cfg.UsesRedis())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// readiness pings whichever stores are configured.
func readiness(db *sql.DB, rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := storage.Ping(ctx, db, 2*time.Second); err != nil {
				return err
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	}
}
