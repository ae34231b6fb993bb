package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crocebianca-ops/fleet-missions-api/internal/adapters/httpapi"
	memchecklistrepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/checklistrepo"
	memmemberrepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/memberrepo"
	memmissionrepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/missionrepo"
	memvehiclerepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/vehiclerepo"
	"github.com/crocebianca-ops/fleet-missions-api/internal/adapters/notifier"
	postgres "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres"
	pgchecklistrepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/checklistrepo"
	pgmemberrepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/memberrepo"
	pgmissionrepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/missionrepo"
	pgvehiclerepo "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres/vehiclerepo"
	"github.com/crocebianca-ops/fleet-missions-api/internal/adapters/redisevents"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/checklists"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/drivers"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/missions"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/vehicles"
	platformclock "github.com/crocebianca-ops/fleet-missions-api/internal/platform/clock"
	"github.com/crocebianca-ops/fleet-missions-api/internal/platform/config"
	"github.com/crocebianca-ops/fleet-missions-api/internal/platform/logging"
	checklistrepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/checklistrepo"
	eventsport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/events"
	memberrepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/memberrepo"
	missionrepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/missionrepo"
	vehiclerepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/vehiclerepo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	clk := platformclock.NewSystemClock()

	var (
		missionRepo   missionrepoport.Repository
		vehicleRepo   vehiclerepoport.Repository
		memberRepo    memberrepoport.Repository
		checklistRepo checklistrepoport.Repository
		cleanup       func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			logger.Fatal("open postgres pool", zap.Error(err))
		}
		cleanup = pool.Close

		missionRepo = pgmissionrepo.NewRepo(pool)
		vehicleRepo = pgvehiclerepo.NewRepo(pool)
		memberRepo = pgmemberrepo.NewRepo(pool)
		checklistRepo = pgchecklistrepo.NewRepo(pool)
	default:
		missionRepo = memmissionrepo.NewRepo()
		vehicleRepo = memvehiclerepo.NewRepo()
		memberRepo = memmemberrepo.NewRepo()
		checklistRepo = memchecklistrepo.NewRepo()
	}

	if cleanup != nil {
		defer cleanup()
	}

	// Events go through the async dispatcher; the sink is Redis when
	// configured, otherwise the process log.
	var sink eventsport.Publisher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()
		sink = redisevents.NewPublisher(rdb, cfg.EventChannel, logger)
	} else {
		sink = notifier.NewLogSink(logger)
	}
	dispatcher := notifier.NewDispatcher(sink, logger)
	defer dispatcher.Close()

	checker := drivers.NewChecker(memberRepo)
	checklistEngine := checklists.NewEngine(checklistRepo)
	missionSvc := missions.NewService(missionRepo, vehicleRepo, memberRepo, checker, checklistEngine, dispatcher, clk)
	vehicleSvc := vehicles.NewService(vehicleRepo)

	api := httpapi.NewServer(missionSvc, vehicleSvc, logger)
	handler := httpapi.NewRouter(api, httpapi.NewDevAuthMiddleware(cfg.DevSubject))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
