package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahajseva/seva-gateway/internal/bootstrap"
	"github.com/sahajseva/seva-gateway/internal/config"
	"github.com/sahajseva/seva-gateway/internal/core/domain"
	"github.com/sahajseva/seva-gateway/internal/observability/logging"
	"github.com/sahajseva/seva-gateway/internal/observability/metrics"
)

const serviceName = "seva-gateway-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if app.Queue == nil {
		log.Fatalf("worker requires a message queue, none available at %s", cfg.NATSURL)
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeHistoryEvents(ctx, func(handlerCtx context.Context, entry domain.HistoryEntry) error {
		workerMetrics.StartEvent()
		start := time.Now()
		if entry.TimestampMillis > 0 {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(time.UnixMilli(entry.TimestampMillis)))
		}

		processCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		handleErr := app.ProcessUC.Handle(processCtx, entry)
		workerMetrics.FinishEvent(serviceName, time.Since(start), handleErr)
		return handleErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
