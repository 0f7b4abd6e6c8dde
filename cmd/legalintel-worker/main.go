package main

import (
	"context"
	"errors"
	"time"

	"legalintel/internal/amqp"
	"legalintel/internal/cli"
	"legalintel/internal/config"
	"legalintel/internal/log"
	"legalintel/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting legalintel-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	ingest := worker.NewIngestWorker(repo)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		processed, rejected := ingest.Stats()
		logger.Info("Worker stopping", "processed", processed, "rejected", rejected)
	})

	logger.Info("Consuming event ingest messages",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"db_path", cfg.SQLiteDBPath)

	if err := amqpClient.ConsumeEventIngest(ctx, ingest.HandleIngestMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
}
