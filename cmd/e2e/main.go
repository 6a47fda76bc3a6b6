package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
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
	"notifier/internal/notify/publisher"
	"notifier/internal/notify/tracing"
	"notifier/internal/provider"
)

// End-to-end exercise against a live broker: publishes one event of every
// recognized type through the real publisher, then drains both queues with
// the streaming consumer against a capturing provider and reports totals.

type Config struct {
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info"`
	Timeout  time.Duration `env:"E2E_TIMEOUT" envDefault:"30s"`
}

type captureSender struct {
	logger *zap.Logger
	sent   atomic.Int64
}

func (s *captureSender) Send(_ context.Context, msg provider.EmailMessage) error {
	s.sent.Add(1)
	s.logger.Info("captured email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
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

	var tracingCfg tracing.Config
	if err := env.Parse(&tracingCfg); err != nil {
		log.Fatalf("failed to parse tracing config: %v", err)
	}

	config := zap.NewProductionConfig()

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		log.Printf("invalid log level %q, defaulting to info: %v", cfg.LogLevel, err)
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	logger, err := config.Build(zap.AddCaller())
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	registry := metrics.NewRegistry()
	registry.SetSystemInfo("e2e", time.Now().Format(time.RFC3339))

	tracer, tracingCleanup, err := tracing.NewTracer(tracingCfg)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracingCleanup(shutdownCtx); err != nil {
			logger.Error("failed to cleanup tracing", zap.Error(err))
		}
	}()

	supervisor, err := broker.NewSupervisor(brokerCfg, broker.Dial, registry, logger)
	if err != nil {
		log.Fatalf("failed to create broker supervisor: %v", err)
	}

	capture := &captureSender{logger: logger}
	baseDispatcher, err := dispatcher.NewDispatcher(notify.DefaultRegistry(), capture, provider.NewNoopPushSender(logger), logger)
	if err != nil {
		log.Fatalf("failed to create dispatcher: %v", err)
	}
	metricsDispatcher := dispatcher.NewMetricsDispatcher(baseDispatcher, registry)
	tracedDispatcher := dispatcher.NewTracedDispatcher(metricsDispatcher, tracer)

	basePublisher, err := publisher.NewPublisher(supervisor, logger)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	eventPublisher := publisher.NewTracedPublisher(publisher.NewMetricsPublisher(basePublisher, registry), tracer)

	streamConsumer, err := consumer.NewConsumer(supervisor, tracedDispatcher, registry, logger)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	events := sampleEvents()
	now := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Run(gctx)
	})
	g.Go(func() error {
		return streamConsumer.Run(gctx)
	})
	g.Go(func() error {
		for _, e := range events {
			if err := eventPublisher.Publish(gctx, e); err != nil {
				return fmt.Errorf("failed to publish %s: %w", e.RoutingKey, err)
			}
		}
		logger.Info(fmt.Sprintf("published %d events", len(events)))
		return nil
	})
	g.Go(func() error {
		tick := time.NewTicker(100 * time.Millisecond)
		defer tick.Stop()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-tick.C:
				if capture.sent.Load() >= int64(len(events)) {
					logger.Info("all notifications captured, stopping")
					cancel()
					return nil
				}
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("error in goroutine", zap.Error(err))
	}

	fmt.Printf("\n\n E2E COMPLETE IN %.2f seconds: %d/%d notifications captured\n",
		time.Since(now).Seconds(), capture.sent.Load(), len(events))
}

func sampleEvents() []notify.Event {
	types := map[notify.Exchange][]string{
		notify.ExchangeAuth: {
			notify.EventAuthSignup,
			notify.EventAuthLogin,
			notify.EventAuthLogout,
		},
		notify.ExchangePayment: {
			notify.EventPaymentInitialized,
			notify.EventPaymentVerified,
			notify.EventPaymentSuccess,
			notify.EventPaymentClosed,
		},
	}

	var events []notify.Event
	for exchange, routingKeys := range types {
		for i, key := range routingKeys {
			events = append(events, notify.NewEvent(exchange, key, map[string]any{
				"email":  fmt.Sprintf("user-%d@example.com", i+1),
				"userId": fmt.Sprintf("USR-%04d", i+1),
				"plan":   "pro",
			}))
		}
	}

	return events
}
