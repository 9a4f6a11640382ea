// Package main - точка входа HTTP сервиса Buddy Match Hub.
//
// Сервис принимает запросы о помощи от учеников, подбирает до трёх
// подходящих бадди и ведёт короткий список до выбора одного из них.
// Коуч получает сигналы, когда ученику нужен новый раунд подбора
// или его настроение низкое.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alem-hub/buddy-match-hub/config"
	"github.com/alem-hub/buddy-match-hub/internal/application/command"
	"github.com/alem-hub/buddy-match-hub/internal/application/eventhandler"
	"github.com/alem-hub/buddy-match-hub/internal/application/query"
	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/external/aimatch"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/messaging"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/helprequests"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/matchstate"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/service"
	httpserver "github.com/alem-hub/buddy-match-hub/internal/interface/http"
	"github.com/alem-hub/buddy-match-hub/internal/interface/http/handlers"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer log.Sync()

	log.Info("starting Buddy Match Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("store", string(cfg.Store.Backend)),
		logger.Any("features", cfg.Features.Snapshot()),
	)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	backend, closeBackend, err := openStore(ctx, cfg, health, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	clock := timeutil.SystemClock{}
	ns := cfg.Store.Namespace

	states := matchstate.NewStore(backend, ns, log)
	requests := helprequests.NewRepository(backend, ns, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS И ОБРАБОТЧИКИ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      cfg.Events.Async,
		WorkerPoolSize: cfg.Events.WorkerPoolSize,
		Logger:         log,
	})
	defer func() {
		log.Info("closing event bus...")
		if err := bus.Close(); err != nil {
			log.Warn("event bus close failed", logger.Err(err))
		}
	}()

	var coachLog httpserver.CoachLog
	if cfg.Features.IsEnabled(config.FeatureCoachNotifications) {
		notifier := service.NewCoachNotifier(backend, ns, clock, matching.NewID, log)
		onSignal := eventhandler.NewOnCoachSignalHandler(notifier, cfg.Events.HandlerTimeout, log)
		if err := onSignal.Register(bus); err != nil {
			return fmt.Errorf("failed to register coach signal handler: %w", err)
		}
		coachLog = notifier
	}

	var sessions httpserver.SessionReader
	if cfg.Features.IsEnabled(config.FeatureSessionScheduling) {
		scheduler := service.NewSessionScheduler(backend, requests, ns, clock, matching.NewID, log)
		onSelected := eventhandler.NewOnMatchSelectedHandler(scheduler, cfg.Events.HandlerTimeout, log)
		if err := onSelected.Register(bus); err != nil {
			return fmt.Errorf("failed to register match selected handler: %w", err)
		}
		sessions = scheduler
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. КОМАНДЫ И ЗАПРОСЫ
	// ─────────────────────────────────────────────────────────────────────────
	generator := aimatch.NewGenerator(aimatch.Config{
		Latency:          cfg.Matching.ServiceLatency,
		ConfidenceMin:    cfg.Matching.ConfidenceMin,
		ConfidenceMax:    cfg.Matching.ConfidenceMax,
		LowMoodThreshold: cfg.Matching.LowMoodThreshold,
		MaxSuggestions:   cfg.Matching.MaxSuggestions,
	}, aimatch.WithLogger(log))

	locks := command.NewSupporteeLocks()
	seeder := command.NewSeedMatchesHandler(states, bus, locks, command.SeedMatchesHandlerConfig{
		ClassLevels: cfg.Matching.ClassLevels,
		Clock:       clock,
		Logger:      log,
	})

	deps := httpserver.Dependencies{
		RequestHelp: command.NewRequestHelpHandler(requests, generator, seeder, bus, command.RequestHelpHandlerConfig{
			LowMoodThreshold: cfg.Matching.LowMoodThreshold,
			ServiceRetries:   cfg.Matching.ServiceRetries,
			Clock:            clock,
			Logger:           log,
		}),
		CancelHelpRequest:   command.NewCancelHelpRequestHandler(requests, bus, locks, clock, log),
		CompleteHelpRequest: command.NewCompleteHelpRequestHandler(requests, bus, locks, clock, log),
		SeedMatches:         seeder,
		RespondToMatch:      command.NewRespondToMatchHandler(states, requests, bus, locks, clock, log),
		RejectAllMatches:    command.NewRejectAllMatchesHandler(states, bus, locks, clock, log),
		ClearMatches:        command.NewClearMatchesHandler(states, locks, log),
		GetMatchState:       query.NewGetMatchStateHandler(states),
		GetHelpRequests:     query.NewGetHelpRequestsHandler(requests),
		GetCatalog:          query.NewGetCatalogHandler(),
		CoachLog:            coachLog,
		Sessions:            sessions,
		HealthChecker:       health,
		Logger:              log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		EnableCORS:     cfg.HTTP.EnableCORS,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Version:        cfg.App.Version,
	}, deps)

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("http server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	// Event bus и хранилище закроются через defer
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts).With(logger.String("service", cfg.App.Name))
}

// openStore открывает выбранное key-value хранилище и регистрирует его
// health check. Возвращает функцию закрытия.
func openStore(ctx context.Context, cfg *config.Config, health *handlers.CompositeHealthChecker, log *logger.Logger) (kv.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		log.Info("connecting to Redis...")
		cache, err := redis.NewCache(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			TTL:          cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		health.AddCheck("redis", handlers.NewPingCheck(cache))
		log.Info("redis connection established")

		return cache, func() {
			log.Info("closing redis connection...")
			_ = cache.Close()
		}, nil

	case config.StorePostgres:
		log.Info("connecting to database...")
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.Database.URL
		pgCfg.MaxConns = int32(cfg.Database.MaxConns)
		pgCfg.MinConns = int32(cfg.Database.MinConns)
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		conn, err := postgres.NewConnection(ctx, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if cfg.Database.AutoMigrate {
			log.Info("running database migrations...")
			migrator := postgres.NewMigrator(conn)
			if err := migrator.Migrate(ctx); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}

			if status, err := migrator.Status(ctx); err != nil {
				log.Warn("failed to get migration status", logger.Err(err))
			} else {
				applied := 0
				for _, m := range status {
					if m.IsApplied {
						applied++
					}
				}
				log.Info("migrations completed", logger.Int("applied", applied), logger.Int("total", len(status)))
			}
		}

		health.AddCheck("postgres", handlers.NewPingCheck(conn))
		log.Info("database connection established")

		return postgres.NewKVStore(conn), func() {
			log.Info("closing database connection...")
			conn.Close()
		}, nil

	default:
		log.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		health.AddCheck("memory", func(context.Context) error { return nil })
		return store, func() {}, nil
	}
}
