package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wishyapp/payments/internal/authorizer"
	"github.com/wishyapp/payments/internal/bootstrap"
	"github.com/wishyapp/payments/internal/domain/checkout"
	"github.com/wishyapp/payments/internal/gateway"
	"github.com/wishyapp/payments/internal/hyperpay"
	"github.com/wishyapp/payments/internal/infrastructure/observability"
	infraRedis "github.com/wishyapp/payments/internal/infrastructure/redis"
	"github.com/wishyapp/payments/internal/repository/postgres"
	"github.com/wishyapp/payments/internal/service"
	"github.com/wishyapp/payments/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "payments-worker", "wishy_payments")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	attemptRepo := postgres.NewAttemptRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	backend := hyperpay.NewClient(cfg.Backend.BaseURL, cfg.Backend.AcceptLanguage,
		hyperpay.WithTimeout(cfg.Backend.Timeout),
		hyperpay.WithLogger(app.Logger))
	producer := infraRedis.NewStreamProducer(app.Redis)

	// The worker only reconciles statuses, so the sheet and gateway wiring
	// stays inert.
	checkoutService := service.NewCheckoutService(
		attemptRepo,
		backend,
		authorizer.NewManager(),
		gateway.NewRegistry(gateway.NewMockSubmitter(cfg.Gateway.Submitter)),
		cfg.Gateway.Submitter,
		authorizer.Config{},
		txManager,
		producer,
		app.Logger,
	)

	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.VerificationStream,
		cfg.Worker.ConsumerGroup,
		cfg.InstanceID,
		cfg.Worker.BatchSize,
		cfg.Worker.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group")
	}

	verifier := &verificationWorker{
		logger:   app.Logger,
		consumer: consumer,
		producer: producer,
		service:  checkoutService,
		redis:    app.Redis,
		metrics:  app.Metrics,
		retryCfg: retry.Config{
			MaxAttempts:  uint(cfg.Checkout.VerifyMaxRetries),
			InitialDelay: cfg.Checkout.VerifyRetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		lockTTL:      cfg.Checkout.LockTTL,
		claimMinIdle: cfg.Worker.ClaimMinIdle,
		batchSize:    cfg.Worker.BatchSize,
	}

	app.Logger.Info().
		Str("stream", infraRedis.VerificationStream).
		Str("group", cfg.Worker.ConsumerGroup).
		Str("consumer", cfg.InstanceID).
		Msg("Worker started, listening for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return verifier.run(gCtx)
	})

	g.Go(func() error {
		return verifier.reclaimStale(gCtx)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

type verificationWorker struct {
	logger   zerolog.Logger
	consumer *infraRedis.StreamConsumer
	producer *infraRedis.StreamProducer
	service  *service.CheckoutService
	redis    *goredis.Client
	metrics  *observability.Metrics

	retryCfg     retry.Config
	lockTTL      time.Duration
	claimMinIdle time.Duration
	batchSize    int64
}

// run consumes verification events until the context is cancelled.
func (w *verificationWorker) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := w.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(1 * time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				w.handle(ctx, msg.ID, msg.Values)
			}
		}
	}
}

// reclaimStale periodically claims messages another consumer read but never
// acked, so a crashed worker does not strand its batch.
func (w *verificationWorker) reclaimStale(ctx context.Context) error {
	if w.claimMinIdle <= 0 {
		return nil
	}

	ticker := time.NewTicker(w.claimMinIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pending, err := w.consumer.Pending(ctx, w.claimMinIdle, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to list pending messages")
			continue
		}
		if len(pending) == 0 {
			continue
		}

		ids := make([]string, 0, len(pending))
		for _, p := range pending {
			ids = append(ids, p.ID)
		}
		messages, err := w.consumer.Claim(ctx, w.claimMinIdle, ids)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to claim stale messages")
			continue
		}
		for _, msg := range messages {
			w.logger.Info().Str("message_id", msg.ID).Msg("Reclaimed stale verification message")
			w.handle(ctx, msg.ID, msg.Values)
		}
	}
}

type verificationPayload struct {
	Status    string `json:"status"`
	AuthToken string `json:"auth_token"`
}

// handle reconciles one attempt against the backend and acks the message.
// Malformed messages are acked and dropped; verification failures go to the
// dead letter stream after the retry budget is spent.
func (w *verificationWorker) handle(ctx context.Context, msgID string, values map[string]any) {
	start := time.Now()

	checkoutID, _ := values["checkout_id"].(string)
	if checkoutID == "" {
		w.logger.Error().Str("message_id", msgID).Msg("Verification message without checkout id")
		w.consumer.Ack(ctx, msgID)
		w.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.VerificationStream, "malformed").Inc()
		return
	}

	var payload verificationPayload
	if raw, ok := values["payload"].(string); ok {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			w.logger.Error().Err(err).Str("checkout_id", checkoutID).Msg("Malformed verification payload")
		}
	}

	lock := infraRedis.NewDistributedLock(w.redis, "checkout:verify:"+checkoutID, w.lockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil || !acquired {
		w.logger.Warn().Str("checkout_id", checkoutID).Msg("Could not acquire lock, leaving message pending")
		return
	}
	defer lock.Release(ctx)

	result, err := retry.DoWithResult(ctx, w.retryCfg, func() (*checkout.StatusResult, error) {
		return w.service.Verify(ctx, checkoutID, payload.AuthToken)
	})
	if err != nil {
		w.logger.Error().Err(err).Str("checkout_id", checkoutID).Msg("Verification failed, sending to DLQ")
		if dlqErr := w.producer.PublishToDLQ(ctx, checkoutID, err.Error(), values); dlqErr != nil {
			w.logger.Error().Err(dlqErr).Str("checkout_id", checkoutID).Msg("Failed to publish to DLQ")
			return
		}
		w.consumer.Ack(ctx, msgID)
		w.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.VerificationStream, "dead_letter").Inc()
		return
	}

	w.recordDrift(payload.Status, result)

	verdict := "failure"
	if result.CombinedSuccess {
		verdict = "success"
	}
	w.metrics.VerificationsTotal.WithLabelValues(verdict).Inc()

	w.consumer.Ack(ctx, msgID)
	w.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.VerificationStream, "success").Inc()
	w.metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.VerificationStream).Observe(time.Since(start).Seconds())

	w.logger.Info().
		Str("checkout_id", checkoutID).
		Bool("combined_success", result.CombinedSuccess).
		Msg("Verification reconciled")
}

// recordDrift counts reconciliations that overturned the gateway outcome.
func (w *verificationWorker) recordDrift(reportedStatus string, result *checkout.StatusResult) {
	switch {
	case reportedStatus == string(checkout.StatusCompleted) && !result.CombinedSuccess:
		w.metrics.VerificationDrift.WithLabelValues("downgrade").Inc()
	case reportedStatus == string(checkout.StatusFailed) && result.CombinedSuccess:
		w.metrics.VerificationDrift.WithLabelValues("upgrade").Inc()
	}
}
