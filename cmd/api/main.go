package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wishyapp/payments/internal/authorizer"
	"github.com/wishyapp/payments/internal/bootstrap"
	"github.com/wishyapp/payments/internal/controller"
	"github.com/wishyapp/payments/internal/domain/checkout"
	"github.com/wishyapp/payments/internal/gateway"
	"github.com/wishyapp/payments/internal/hyperpay"
	infraRedis "github.com/wishyapp/payments/internal/infrastructure/redis"
	"github.com/wishyapp/payments/internal/repository/postgres"
	"github.com/wishyapp/payments/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "payments-api", "wishy_payments")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config
	logger := app.Logger

	attemptRepo := postgres.NewAttemptRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	backend := hyperpay.NewClient(cfg.Backend.BaseURL, cfg.Backend.AcceptLanguage,
		hyperpay.WithTimeout(cfg.Backend.Timeout),
		hyperpay.WithLogger(logger))

	var submitter gateway.Submitter
	switch cfg.Gateway.Mode {
	case "live":
		submitter = gateway.NewOppwaSubmitter(cfg.Gateway.Submitter, cfg.Gateway.BaseURL)
	default:
		submitter = gateway.NewMockSubmitter(cfg.Gateway.Submitter)
	}
	registry := gateway.NewRegistry(submitter)
	logger.Info().
		Str("submitter", submitter.Name()).
		Str("mode", cfg.Gateway.Mode).
		Msg("Gateway registry initialized")

	networks := make([]checkout.Network, 0, len(cfg.Gateway.SupportedNetworks))
	for _, n := range cfg.Gateway.SupportedNetworks {
		networks = append(networks, checkout.Network(n))
	}
	sheet := authorizer.Config{
		MerchantID:        cfg.Gateway.MerchantID,
		SupportedNetworks: networks,
		CountryCode:       cfg.Gateway.CountryCode,
		CurrencyCode:      cfg.Gateway.CurrencyCode,
		SummaryLabel:      cfg.Gateway.SummaryLabel,
		ShopperResultURL:  cfg.Gateway.ShopperResultURL,
	}

	producer := infraRedis.NewStreamProducer(app.Redis)

	checkoutService := service.NewCheckoutService(
		attemptRepo,
		backend,
		authorizer.NewManager(),
		registry,
		cfg.Gateway.Submitter,
		sheet,
		txManager,
		producer,
		logger,
	)

	router := controller.NewRouter(controller.RouterDeps{
		Pool:            app.Pool,
		RedisClient:     app.Redis,
		CheckoutService: checkoutService,
		IdempotencyRepo: idempotencyRepo,
		Metrics:         app.Metrics,
		CORSConfig:      cfg.Server.CORS,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error().Err(err).Msg("HTTP server failed")
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}
