package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deckhaven/cardsearch/internal/bootstrap"
	"github.com/deckhaven/cardsearch/internal/config"
	"github.com/deckhaven/cardsearch/internal/core/domain"
	"github.com/deckhaven/cardsearch/internal/observability/logging"
	"github.com/deckhaven/cardsearch/internal/observability/metrics"
)

const serviceName = "cardsearch-worker"

const jobTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeJobs(ctx, func(handlerCtx context.Context, jobID string) error {
		jobCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()

		if job, loadErr := app.Jobs.GetByID(jobCtx, jobID); loadErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(job.CreatedAt))
		}

		workerMetrics.StartJob()
		start := time.Now()
		runErr := app.BatchUC.RunJob(jobCtx, jobID)
		workerMetrics.FinishJob(serviceName, jobStatusLabel(runErr), time.Since(start))
		if job, loadErr := app.Jobs.GetByID(jobCtx, jobID); loadErr == nil {
			workerMetrics.AddCards(serviceName, job.ProcessedCards, job.FailedCards)
		}
		return runErr
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func jobStatusLabel(err error) string {
	switch {
	case err == nil:
		return "completed"
	case domain.IsKind(err, domain.ErrRateLimitExceeded):
		return "rate_limited"
	default:
		return "failed"
	}
}
