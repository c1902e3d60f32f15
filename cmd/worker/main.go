package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docverity/docverity/internal/bootstrap"
	"github.com/docverity/docverity/internal/config"
	"github.com/docverity/docverity/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		app.Logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeVerificationSubmitted(ctx, func(handlerCtx context.Context, verificationID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if v, err := app.Repo.GetByID(processCtx, verificationID); err == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(v.CreatedAt))
		}

		workerMetrics.StartVerification()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, verificationID)
		workerMetrics.FinishVerification("worker", time.Since(start), processErr)

		if processErr == nil {
			if v, err := app.Repo.GetByID(processCtx, verificationID); err == nil && v.Result != nil && len(v.Result.DocType) > 0 {
				workerMetrics.RecordDecision("worker", string(v.Result.DocType[0]), v.Result.IsValid)
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
