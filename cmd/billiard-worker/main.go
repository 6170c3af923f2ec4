package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"billiard/internal/amqp"
	"billiard/internal/cli"
	"billiard/internal/config"
	"billiard/internal/ledger/google"
	"billiard/internal/services"
	"billiard/internal/storage"
	"billiard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("billiard-worker")

	logger.Info("Starting billiard-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	// The worker reads the same database the server writes.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize SQLite repository", err, "path", cfg.SQLiteDBPath)
	}
	defer repo.Close()

	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	sheets, err := google.NewFromEnv(setupCtx)
	if err != nil {
		setupCancel()
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	if err := sheets.EnsureHeader(setupCtx); err != nil {
		logger.Warn("Failed to write sheet header, continuing", "error", err)
	}
	setupCancel()
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(repo, sheets)
	reconciler := services.NewExportReconciler(repo, sheets, services.ReconcilerConfig{
		Interval:  cfg.ExportInterval,
		BatchSize: cfg.ExportBatchSize,
	})

	ctx := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := reconciler.Stop(shutdownCtx); err != nil {
			logger.Error("Reconciler stop error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.Consume(gctx, exportWorker.HandleEvent)
	})
	g.Go(func() error {
		if err := reconciler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Worker stopped with error", err)
	}
	logger.Info("Worker shutdown complete")
}
