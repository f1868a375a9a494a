package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/ladder/internal/adapters/cache"
	"github.com/okian/ladder/internal/adapters/http/api"
	"github.com/okian/ladder/internal/adapters/http/swagger"
	"github.com/okian/ladder/internal/adapters/mq/natsjs"
	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/adapters/repository/postgres"
	app "github.com/okian/ladder/internal/app"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> .env -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithOptions(loggerOptions(cfg)...); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "ladder exited with error", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func loggerOptions(cfg *config.Config) []logger.Option {
	opts := []logger.Option{logger.WithLevel(cfg.LogLevel), logger.WithFormat(cfg.LogFormat)}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, true))
	}
	return opts
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	readCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = readCache.Close() }()

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(stores.entries),
		app.WithMatchStore(stores.matches),
		app.WithPlayerDirectory(stores.players),
		app.WithCache(readCache),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithFanoutLimit(cfg.FanoutLimit),
		app.WithIdempotentApply(cfg.IdempotentApply),
		app.WithCacheTTL(cfg.CacheTTL),
		app.WithLimits(cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit),
		app.WithRetentionMonths(cfg.RetentionMonths),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = svc.Stop(stopCtx)
	}()

	if cfg.NATSURL != "" {
		consumer, err := natsjs.Connect(cfg.NATSURL,
			natsjs.WithStream(cfg.NATSStream),
			natsjs.WithDurable(cfg.NATSConsumer),
			natsjs.WithLogger(log.Named("natsjs")),
		)
		if err != nil {
			return err
		}
		// Closed before the service stops so in-flight messages settle first.
		defer func() { _ = consumer.Close() }()
		if err := consumer.Subscribe(ctx, svc); err != nil {
			return err
		}
		log.Info(ctx, "consuming match events", logger.String("url", cfg.NATSURL), logger.String("stream", cfg.NATSStream))
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)
	go svc.RunRetention(ctx, cfg.RetentionInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newMux registers docs and business routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc.Query(), svc, api.WithAdminToken(cfg.AdminToken)).Register(ctx, mux)
	return mux
}

// storeSet bundles the persistence backends chosen by configuration.
type storeSet struct {
	entries repository.Store
	matches repository.MatchStore
	players repository.PlayerDirectory
	close   func()
}

func (s storeSet) Close() {
	if s.close != nil {
		s.close()
	}
}

func openStores(ctx context.Context, cfg *config.Config) (storeSet, error) {
	if strings.ToLower(cfg.StoreDriver) != config.StorePostgres {
		entries := repository.NewMemoryStore()
		return storeSet{
			entries: entries,
			matches: repository.NewMemoryMatchStore(),
			players: repository.NewMemoryPlayerDirectory(),
			close:   func() { _ = entries.Close() },
		}, nil
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return storeSet{}, err
		}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	if err != nil {
		return storeSet{}, err
	}
	logger.Get().Info(ctx, "using postgres store", logger.Bool("autoMigrate", cfg.AutoMigrate))
	return storeSet{
		entries: postgres.NewEntryStore(db),
		matches: postgres.NewMatchStore(db),
		players: postgres.NewPlayerDirectory(db),
		close:   db.Close,
	}, nil
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return cache.Noop{}, nil
	}
	c, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cache.WithPrefix(cfg.CachePrefix))
	if err != nil {
		return nil, err
	}
	logger.Get().Info(ctx, "using redis read cache", logger.String("addr", cfg.RedisAddr), logger.Duration("ttl", cfg.CacheTTL))
	return c, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes queue and store gauges from the service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
