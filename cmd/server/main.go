package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"foodbridge/internal/audit"
	deliveryhandler "foodbridge/internal/delivery/handler"
	deliveryservice "foodbridge/internal/delivery/service"
	deliverystore "foodbridge/internal/delivery/store"
	donationhandler "foodbridge/internal/donation/handler"
	donationservice "foodbridge/internal/donation/service"
	donationstore "foodbridge/internal/donation/store"
	"foodbridge/internal/donation/sweeper"
	httpapi "foodbridge/internal/http"
	"foodbridge/internal/jwttoken"
	"foodbridge/internal/location"
	matchinghandler "foodbridge/internal/matching/handler"
	matchingservice "foodbridge/internal/matching/service"
	matchingstore "foodbridge/internal/matching/store"
	needhandler "foodbridge/internal/need/handler"
	needservice "foodbridge/internal/need/service"
	needstore "foodbridge/internal/need/store"
	notificationhandler "foodbridge/internal/notification/handler"
	notificationservice "foodbridge/internal/notification/service"
	notificationstore "foodbridge/internal/notification/store"
	"foodbridge/internal/platform/config"
	"foodbridge/internal/platform/httpserver"
	"foodbridge/internal/platform/logger"
	"foodbridge/internal/platform/metrics"
	"foodbridge/internal/platform/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		donations     donationstore.Store
		needs         needstore.Store
		deliveries    deliverystore.Store
		notifications notificationstore.Store
		locations     location.Store
		committer     matchingstore.Committer
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() { _ = db.Close() }()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		donations = donationstore.NewPostgres(db)
		needs = needstore.NewPostgres(db)
		deliveries = deliverystore.NewPostgres(db)
		notifications = notificationstore.NewPostgres(db)
		locations = location.NewPostgres(db)
		committer = matchingstore.NewPostgresCommitter(db)
		log.Info("using postgres stores")
	} else {
		donationMem := donationstore.NewInMemory()
		needMem := needstore.NewInMemory()
		deliveryMem := deliverystore.NewInMemory()
		donations = donationMem
		needs = needMem
		deliveries = deliveryMem
		notifications = notificationstore.NewInMemory()
		locations = location.NewInMemoryStore()
		committer = matchingstore.NewInMemoryCommitter(donationMem, needMem, deliveryMem)
		log.Info("using in-memory stores")
	}

	cache, err := redis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if cache != nil {
		defer func() { _ = cache.Close() }()
		log.Info("unread-count cache enabled")
	}

	var auditPublisher audit.Publisher = audit.NewInMemoryLog()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer func() { _ = kafkaPublisher.Close(context.Background()) }()
		auditPublisher = kafkaPublisher
		log.Info("audit stream enabled", "topic", cfg.AuditTopic)
	}

	notificationSvc := notificationservice.New(notifications, log,
		notificationservice.WithCache(cache),
		notificationservice.WithMetrics(m),
	)
	matchingSvc := matchingservice.New(committer, donations, needs, locations, notificationSvc, log,
		matchingservice.WithMetrics(m),
		matchingservice.WithAuditPublisher(auditPublisher),
	)
	donationSvc := donationservice.New(donations, locations, log,
		donationservice.WithMatcher(matchingSvc),
		donationservice.WithMetrics(m),
		donationservice.WithAuditPublisher(auditPublisher),
	)
	needSvc := needservice.New(needs, locations, log,
		needservice.WithMatcher(matchingSvc),
	)
	deliverySvc := deliveryservice.New(deliveries, donations, notificationSvc, log,
		deliveryservice.WithMetrics(m),
		deliveryservice.WithAuditPublisher(auditPublisher),
	)

	tokens := jwttoken.New(cfg.JWTSigningKey, "foodbridge")

	router := httpapi.NewRouter(httpapi.Handlers{
		Donations:     donationhandler.NewHandler(donationSvc, log),
		Needs:         needhandler.NewHandler(needSvc, log),
		Matching:      matchinghandler.NewHandler(matchingSvc, log),
		Deliveries:    deliveryhandler.NewHandler(deliverySvc, log),
		Notifications: notificationhandler.NewHandler(notificationSvc, log),
		Locations:     location.NewHandler(locations, log),
	}, httpapi.Options{
		Logger:         log,
		Metrics:        m,
		TokenValidator: tokens,
		AdminTokenHash: cfg.AdminTokenHash,
		AdminToken:     cfg.AdminToken,
	})

	if cfg.ExpirySweepSchedule != "" {
		sweep, err := sweeper.New(cfg.ExpirySweepSchedule, donationSvc, log)
		if err != nil {
			return err
		}
		sweep.Start()
		defer sweep.Stop()
		log.Info("expiry sweep enabled", "schedule", cfg.ExpirySweepSchedule)
	}

	apiServer := httpserver.New(cfg.Addr, router)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := httpserver.New(cfg.MetricsAddr, metricsMux)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("api server listening", "addr", cfg.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		log.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown api server: %w", err)
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
