package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"go.uber.org/zap"

	"github.com/Vovarama1992/channel_subs/internal/config"
	"github.com/Vovarama1992/channel_subs/internal/delivery"
	"github.com/Vovarama1992/channel_subs/internal/domain"
	"github.com/Vovarama1992/channel_subs/internal/infra"
	"github.com/Vovarama1992/channel_subs/internal/notificator"
	"github.com/Vovarama1992/channel_subs/internal/ports"
	"github.com/Vovarama1992/channel_subs/internal/telegram"
	"github.com/Vovarama1992/channel_subs/internal/texts"
)

func main() {

	// =========================================================================
	// ENV / DB INIT
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	sugar := baseLogger.Sugar()
	zl := logger.NewZapLogger(sugar)

	dsn := cfg.Database.URL
	if cfg.Database.Driver == infra.DriverSQLite {
		dsn = infra.SQLiteDSN(cfg.Database.File)
	}

	db, err := infra.OpenDB(ctx, cfg.Database.Driver, dsn)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.Database.Driver, err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := infra.Migrate(db, cfg.Database.Driver); err != nil {
			log.Fatalf("migrations: %v", err)
		}
	}

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	s3Client, err := infra.NewS3Client(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("failed to init s3: %v", err)
	}
	if s3Client == nil {
		sugar.Infow("[main] s3 not configured, exports are not archived")
	}

	catalog, err := texts.Load(cfg.AssetsDir)
	if err != nil {
		log.Fatalf("failed to load texts: %v", err)
	}

	api, err := telegram.InitBot(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatalf("failed to init telegram bot: %v", err)
	}

	// =========================================================================
	// REPOSITORIES
	// =========================================================================

	subscriptionRepo := infra.NewSubscriptionRepo(db)
	settingsRepo := infra.NewSettingsRepo(db)

	// =========================================================================
	// NOTIFICATIONS / CHANNEL ACCESS
	// =========================================================================

	notifyInfra := notificator.NewInfra(api, cfg.Telegram.AdminID, cfg.Telegram.PrivateChannelID, sugar)
	notifyService := notificator.NewService(notifyInfra, catalog)

	var gate ports.ChannelGate
	if cfg.Telegram.PrivateChannelID != 0 {
		gate = notifyService
	} else {
		sugar.Warnw("[main] PRIVATE_CHANNEL_ID not set, expired users stay in the channel")
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	subscriptionService := domain.NewSubscriptionService(subscriptionRepo, sugar)
	settingsService := domain.NewSettingsService(settingsRepo, cfg.Telegram.PrivateChannelLink, sugar)
	exportService := domain.NewExportService(subscriptionRepo, s3Client, sugar)
	decisions := notificator.NewDecisions(api, catalog, settingsService, sugar)

	// =========================================================================
	// TELEGRAM BOT
	// =========================================================================

	botApp := &telegram.BotApp{
		SubscriptionService:   subscriptionService,
		SettingsService:       settingsService,
		ExportService:         exportService,
		Notifier:              notifyService,
		Decisions:             decisions,
		Texts:                 catalog,
		AdminID:               cfg.Telegram.AdminID,
		PublicChannelUsername: cfg.Telegram.PublicChannelUsername,
		PrivateChannelID:      cfg.Telegram.PrivateChannelID,
		Log:                   sugar,
	}

	go botApp.Run(ctx, api)

	// =========================================================================
	// BACKGROUND JOBS
	// =========================================================================

	domain.NewExpirySweeper(subscriptionService, notifyService, gate, cfg.SweepInterval, sugar).Start(ctx)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	if cfg.HTTP.AdminToken == "" {
		sugar.Warnw("[main] ADMIN_API_TOKEN not set, admin API rejects all requests")
	}

	r := delivery.NewRouter(
		delivery.NewSubscriptionHandler(subscriptionService, exportService, decisions, zl),
		delivery.NewSettingsHandler(settingsService, zl),
		cfg.HTTP.AdminToken,
	)

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + cfg.HTTP.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + addr,
		Service: "channel_subs",
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}

	sugar.Infow("[main] stopped")
}
