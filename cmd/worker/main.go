package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"notifier/internal/notify"
	"notifier/internal/notify/broker"
	"notifier/internal/notify/consumer"
	"notifier/internal/notify/dispatcher"
	"notifier/internal/notify/metrics"
	"notifier/internal/notify/tracing"
	"notifier/internal/provider"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse environment variables: %v", err)
	}

	var brokerCfg broker.Config
	if err := env.Parse(&brokerCfg); err != nil {
		log.Fatalf("failed to parse broker config: %v", err)
	}

	var serverCfg metrics.ServerConfig
	if err := env.Parse(&serverCfg); err != nil {
		log.Fatalf("failed to parse ops server config: %v", err)
	}

	var tracingCfg tracing.Config
	if err := env.Parse(&tracingCfg); err != nil {
		log.Fatalf("failed to parse tracing config: %v", err)
	}

	var emailCfg provider.EmailConfig
	if err := env.Parse(&emailCfg); err != nil {
		log.Fatalf("failed to parse email config: %v", err)
	}

	var pushCfg provider.PushConfig
	if err := env.Parse(&pushCfg); err != nil {
		log.Fatalf("failed to parse push config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	registry := metrics.NewRegistry()
	registry.SetSystemInfo("worker", time.Now().Format(time.RFC3339))

	opsServer := metrics.NewServer(serverCfg, registry, logger)

	tracer, tracingCleanup, err := tracing.NewTracer(tracingCfg)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingCleanup(shutdownCtx); err != nil {
			logger.Error("failed to cleanup tracing", zap.Error(err))
		}
	}()

	emailSender, err := provider.NewEmailClient(emailCfg)
	if err != nil {
		// Missing provider credentials are fatal at startup only.
		log.Fatalf("failed to configure email provider: %v", err)
	}

	var pushSender provider.PushSender
	if pushCfg.APIKey != "" {
		pushSender, err = provider.NewPushClient(pushCfg)
		if err != nil {
			log.Fatalf("failed to configure push provider: %v", err)
		}
	} else {
		pushSender = provider.NewNoopPushSender(logger)
	}

	supervisor, err := broker.NewSupervisor(brokerCfg, broker.Dial, registry, logger)
	if err != nil {
		log.Fatalf("failed to create broker supervisor: %v", err)
	}

	baseDispatcher, err := dispatcher.NewDispatcher(notify.DefaultRegistry(), emailSender, pushSender, logger)
	if err != nil {
		log.Fatalf("failed to create dispatcher: %v", err)
	}
	metricsDispatcher := dispatcher.NewMetricsDispatcher(baseDispatcher, registry)
	tracedDispatcher := dispatcher.NewTracedDispatcher(metricsDispatcher, tracer)

	streamConsumer, err := consumer.NewConsumer(supervisor, tracedDispatcher, registry, logger)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return opsServer.Start(gctx)
	})
	g.Go(func() error {
		return supervisor.Run(gctx)
	})
	g.Go(func() error {
		return streamConsumer.Run(gctx)
	})

	logger.Info("notification worker started")

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("worker stopped with error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop ops server", zap.Error(err))
	}

	logger.Info("notification worker stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", level, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	return logger
}
