package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/intakehq/invoice-intake/internal/common"
	"github.com/intakehq/invoice-intake/internal/export"
	"github.com/intakehq/invoice-intake/internal/extract"
	"github.com/intakehq/invoice-intake/internal/media"
	"github.com/intakehq/invoice-intake/internal/notify"
	"github.com/intakehq/invoice-intake/internal/ocr"
	"github.com/intakehq/invoice-intake/internal/pipeline"
	"github.com/intakehq/invoice-intake/internal/repository"
	"github.com/intakehq/invoice-intake/internal/server"
)

func main() {
	// Env + logger
	_ = godotenv.Load()
	initLogger()
	logger := slog.Default()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.HasMessagingCredentials() {
		// webhook requests will be answered with a configuration error
		logger.Warn("twilio credentials not configured")
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// DB pool
	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("creating DB pool", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("DB health failed", "error", err)
		os.Exit(1)
	}
	if err := repository.EnsureSchema(ctx, pool, logger); err != nil {
		logger.Error("DB schema failed", "error", err)
		os.Exit(1)
	}

	// Recognition engine is built once here and injected; its lifecycle is
	// owned by process startup, not module state.
	engine := ocr.NewEngine(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
	}, logger)

	stager := media.NewStager(media.Config{
		ScratchDir: cfg.Media.ScratchDir,
		Timeout:    cfg.Media.DownloadTimeout,
		Username:   cfg.Twilio.AccountSID,
		Password:   cfg.Twilio.AuthToken,
	}, logger)

	messenger := notify.NewMessenger(notify.Config{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.PhoneNumber,
		APIBaseURL: cfg.Twilio.APIBaseURL,
		Timeout:    cfg.Twilio.Timeout,
	}, logger)

	invoices := repository.NewInvoiceRepository(pool, logger)
	intake := pipeline.New(
		stager,
		engine,
		extract.NewExtractor(logger),
		invoices,
		messenger,
		cfg.HasMessagingCredentials(),
		logger,
	)

	srv := server.New(
		intake,
		invoices,
		export.NewService(invoices, logger),
		func(ctx context.Context) error {
			return repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger)
		},
		logger,
	)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}

func initLogger() {
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
