package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maker-systemv1/config"
	"maker-systemv1/internal/engine"
	"maker-systemv1/internal/exchange"
	"maker-systemv1/internal/journal"
	"maker-systemv1/internal/logger"
	"maker-systemv1/internal/metrics"
	"maker-systemv1/internal/model"
	signalstore "maker-systemv1/internal/signal"
	"maker-systemv1/internal/smoother"
	"maker-systemv1/internal/watchdog"
)

func main() {
	// ---- Load config from env ----
	cfg := config.Load()
	log := logger.Init("botmaker", logger.ParseLevel(cfg.LogLevel))
	log.Info("starting", "exchange", cfg.Exchange, "model", cfg.ModelID, "leverage", cfg.Leverage)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Exchange client ----
	adapter, err := exchange.ForID(cfg.Exchange)
	if err != nil {
		log.Error("exchange setup failed", "error", err)
		os.Exit(1)
	}
	client, err := exchange.NewClient(ctx, exchange.ClientConfig{
		Exchange:  cfg.Exchange,
		APIKey:    cfg.ExchangeKey,
		APISecret: cfg.ExchangeSecret,
		Testnet:   cfg.ExchangeTestnet,
	})
	if err != nil {
		log.Error("exchange client init failed", "error", err)
		os.Exit(1)
	}

	// ---- Signal source ----
	var signals model.SignalSource
	if cfg.SignalRedisAddr != "" {
		src, err := signalstore.NewRedisSource(signalstore.RedisConfig{
			Addr:     cfg.SignalRedisAddr,
			Password: cfg.SignalRedisPassword,
		})
		if err != nil {
			log.Error("signal redis init failed", "error", err)
			os.Exit(1)
		}
		defer src.Close()
		signals = src
		log.Info("signal source ready", "addr", cfg.SignalRedisAddr)
	} else {
		log.Warn("SIGNAL_REDIS_ADDR not set, using mock signal source")
		signals = signalstore.NewMock(cfg.ModelID)
	}

	// ---- Unit-position smoother ----
	var smooth model.Smoother = smoother.Null{}
	if cfg.SmootherHalflife > 0 {
		os.MkdirAll("data", 0o755)
		smooth = smoother.New(log, cfg.SmootherHalflife, cfg.SmootherReset, cfg.SmootherStatePath)
		log.Info("smoother ready", "halflife", cfg.SmootherHalflife, "state", cfg.SmootherStatePath)
	}

	// ---- Order journal ----
	os.MkdirAll("data", 0o755)
	jnl, err := journal.New(cfg.JournalPath)
	if err != nil {
		log.Error("journal init failed", "error", err)
		os.Exit(1)
	}
	defer jnl.Close()

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Watchdog ----
	// the first cycle can be slow: markets, positions and signals are
	// all cold
	wd := watchdog.New(log)
	defer wd.Stop()
	wd.Register("cycle", 5*time.Minute, 15*time.Minute)

	// ---- Engine ----
	eng := engine.New(engine.Config{
		Client:   client,
		Adapter:  adapter,
		Signals:  signals,
		Smoother: smooth,
		Journal:  jnl,
		Metrics:  prom,
		Health:   health,
		Logger:   log,
		Leverage: cfg.Leverage,
		ModelID:  cfg.ModelID,
		Ping:     func() { wd.Ping("cycle") },
	})

	go eng.Run(ctx)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	log.Info("shutdown complete")
}
