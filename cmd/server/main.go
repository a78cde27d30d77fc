package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/config"
	"github.com/mamadbah2/seedbank/internal/metrics"
	"github.com/mamadbah2/seedbank/internal/repository/mongodb"
	"github.com/mamadbah2/seedbank/internal/repository/sheets"
	"github.com/mamadbah2/seedbank/internal/scheduler"
	"github.com/mamadbah2/seedbank/internal/server/handlers"
	"github.com/mamadbah2/seedbank/internal/server/router"
	commandsvc "github.com/mamadbah2/seedbank/internal/service/commands"
	"github.com/mamadbah2/seedbank/internal/service/inventory"
	"github.com/mamadbah2/seedbank/internal/service/ledger"
	reportingsvc "github.com/mamadbah2/seedbank/internal/service/reporting"
	whatsappsvc "github.com/mamadbah2/seedbank/internal/service/whatsapp"
	"github.com/mamadbah2/seedbank/pkg/clients/qrcode"
	whatsappclient "github.com/mamadbah2/seedbank/pkg/clients/whatsapp"
	"github.com/mamadbah2/seedbank/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	// Volumes go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	location, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Reporting.Timezone), zap.Error(err))
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	sheetsRepo, err := sheets.NewGoogleSheetRepository(startupCtx, cfg.Sheets, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}
	store := sheets.NewRecordStore(sheetsRepo, sheets.SheetNamesFrom(cfg.Sheets), baseLogger.Named("repo.records"))
	if err := store.EnsureLogHeaders(startupCtx); err != nil {
		baseLogger.Fatal("failed to prepare log sheets", zap.Error(err))
	}

	mongoRepo, err := mongodb.NewMongoDBRepository(startupCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	m := metrics.New()
	roles := ledger.Roles(cfg.Ledger.PinRoles)

	locker, closeLocker := newLocker(startupCtx, cfg, baseLogger.Named("ledger.lock"))
	defer closeLocker()

	engine := ledger.NewEngine(store, locker, roles, m, baseLogger.Named("svc.ledger"))
	reportingSvc := reportingsvc.NewService(store, mongoRepo, inventory.DefaultPolicy(), location, m, baseLogger.Named("svc.reporting"))
	reconciler := scheduler.NewArchivingReconciler(engine, mongoRepo, baseLogger.Named("svc.reconcile"))
	qrClient := qrcode.NewClient(cfg.QR, m, baseLogger.Named("client.qrcode"))

	routes := router.Handlers{
		Lots:    handlers.NewLotHandler(engine, reportingSvc, qrClient, baseLogger.Named("handlers.lots")),
		Reports: handlers.NewReportHandler(reportingSvc, reconciler, roles, baseLogger.Named("handlers.reports")),
	}

	var notifier scheduler.Notifier
	if cfg.WhatsApp.Enabled() {
		commandDispatcher := commandsvc.NewService(engine, reportingSvc, baseLogger.Named("svc.commands"))
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc := whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, baseLogger.Named("svc.whatsapp"))
		routes.Webhook = handlers.NewWebhookHandler(messagingSvc, roles, baseLogger.Named("handlers.whatsapp"))
		notifier = messagingSvc
		baseLogger.Info("whatsapp commands enabled")
	} else {
		baseLogger.Warn("whatsapp token missing, chat commands and alert digests disabled")
	}

	r := router.New(routes, m, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, location, reconciler, reportingSvc, notifier, cfg.WhatsApp.AlertRecipient, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// A mutation may wait the full lock timeout before touching the sheet.
		WriteTimeout: cfg.Ledger.LockTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newLocker picks the ledger lock backend. The returned func releases its resources.
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (ledger.Locker, func()) {
	if cfg.Ledger.LockBackend != "redis" {
		log.Info("using in-process ledger lock")
		return ledger.NewMutexLocker(cfg.Ledger.LockTimeout), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	log.Info("using redis ledger lock", zap.String("addr", cfg.Redis.Addr), zap.String("key", cfg.Ledger.LockKey))

	return ledger.NewRedisLocker(client, cfg.Ledger.LockKey, cfg.Ledger.LockTimeout, log), func() {
		if err := client.Close(); err != nil {
			log.Error("failed to close redis client", zap.Error(err))
		}
	}
}
