package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlashist/archive-assistant/internal/bootstrap"
	"github.com/atlashist/archive-assistant/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	app, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           app.WorkerMetrics.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()

	handler := func(handlerCtx context.Context, documentID string) error {
		start := time.Now()
		if doc, err := app.Documents.GetByID(handlerCtx, documentID); err == nil {
			app.WorkerMetrics.ObserveQueueLag("worker", start.Sub(doc.CreatedAt))
		}
		app.WorkerMetrics.StartDocument()
		err := app.ProcessUC.ProcessByID(handlerCtx, documentID)
		app.WorkerMetrics.FinishDocument("worker", time.Since(start), err)
		if err != nil {
			slog.Error("document_processing_failed", "document_id", documentID, "error", err)
			return err
		}
		slog.Info("document_processed", "document_id", documentID, "duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	slog.Info("worker_started", "subject", cfg.NATSSubject)
	if err := app.Queue.SubscribeDocumentIngested(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("subscription_failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	slog.Info("worker_stopped")
}
