// main wires the dependencies and supervises the long-running pieces: the
// HTTP server, the retry consumer, the claim-sync poller and the expiry
// scanners. Business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"chaveiro/internal/directory"
	"chaveiro/internal/events"
	keymodels "chaveiro/internal/keys/models"
	keysvc "chaveiro/internal/keys/service"
	claimstore "chaveiro/internal/keys/store/claim"
	keystore "chaveiro/internal/keys/store/key"
	"chaveiro/internal/lock"
	"chaveiro/internal/platform/config"
	"chaveiro/internal/platform/httpserver"
	"chaveiro/internal/platform/logger"
	"chaveiro/internal/platform/metrics"
	"chaveiro/internal/platform/postgres"
	platformredis "chaveiro/internal/platform/redis"
	"chaveiro/internal/reconcile"
	"chaveiro/internal/retry"
	httptransport "chaveiro/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	producer, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
	if err != nil {
		log.Error("kafka unavailable", "error", err)
		os.Exit(1)
	}
	defer producer.Close()
	if err := events.EnsureTopics(ctx, producer, 6, cfg.EventTopic, cfg.RetryTopic, cfg.DeadTopic); err != nil {
		log.Error("ensure topics failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	keys := keystore.NewPostgres(db)
	claims := claimstore.NewPostgres(db)

	gateway, err := directory.New(
		cfg.Directory.BaseURL, cfg.Directory.ISPB, []byte(cfg.Directory.SigningKey),
		cfg.Directory.Timeout, log,
		directory.WithMetrics(m),
	)
	if err != nil {
		log.Error("directory gateway init failed", "error", err)
		os.Exit(1)
	}

	publisher, err := events.NewKafkaPublisher(producer, cfg.EventTopic, log)
	if err != nil {
		log.Error("event publisher init failed", "error", err)
		os.Exit(1)
	}

	// The router marks keys ERROR through the state machine, and the state
	// machine routes failures through the router; the closure breaks the
	// construction cycle.
	var machine *keysvc.Service
	marker := retry.MarkerFunc(func(ctx context.Context, keyID, msg string) (*keymodels.Key, error) {
		return machine.MarkError(ctx, keyID, msg)
	})
	router, err := retry.NewKafkaRouter(producer, cfg.RetryTopic, cfg.DeadTopic, cfg.Retry.MaxAttempts, marker, log, m)
	if err != nil {
		log.Error("retry router init failed", "error", err)
		os.Exit(1)
	}

	machine, err = keysvc.New(keys, claims, gateway, publisher, router, cfg.Directory.ISPB, log, m)
	if err != nil {
		log.Error("state machine init failed", "error", err)
		os.Exit(1)
	}

	locks, err := lock.NewRedis(redisClient.Client, log)
	if err != nil {
		log.Error("lock manager init failed", "error", err)
		os.Exit(1)
	}

	poller, err := reconcile.NewPoller(
		locks, gateway, claims, machine,
		cfg.Directory.ISPB, cfg.Sync.PageSize, cfg.Sync.LookbackDays,
		cfg.Sync.LockLease, cfg.Sync.LockRefresh, log, m,
	)
	if err != nil {
		log.Error("poller init failed", "error", err)
		os.Exit(1)
	}

	consumerClient, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.ConsumerGroup(cfg.Retry.Group),
		kgo.ConsumeTopics(cfg.RetryTopic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		log.Error("retry consumer init failed", "error", err)
		os.Exit(1)
	}
	defer consumerClient.Close()
	consumer := retry.NewConsumer(consumerClient, machine, log)

	health := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Health(ctx)
	}
	handler := httptransport.New(machine, log, health)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting chaveiro", "addr", cfg.Addr, "ispb", cfg.Directory.ISPB)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := consumer.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		err := reconcile.Run(groupCtx, "claim-sync", cfg.Sync.PollInterval, poller, log)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	for _, task := range keysvc.ExpiryTasks() {
		scanner, err := reconcile.NewScanner(
			locks, keys, machine, task,
			cfg.Sync.PendingThreshold, cfg.Sync.ScanBatch,
			cfg.Sync.LockLease, cfg.Sync.LockRefresh, log,
		)
		if err != nil {
			log.Error("scanner init failed", "task", task.Name, "error", err)
			os.Exit(1)
		}
		name := task.Name
		group.Go(func() error {
			err := reconcile.Run(groupCtx, name, cfg.Sync.ScanInterval, scanner, log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
