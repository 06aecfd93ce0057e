package main // Entry point package

import (
	"context"   // Cancellation for background workers and shutdown
	"errors"    // Detect the expected server-closed error
	"log"       // Logging library
	"net/http"  // http.ErrServerClosed
	"os"        // Signals
	"os/signal" // Stop on SIGINT/SIGTERM
	"strings"   // Log level parsing
	"sync"      // Track background workers
	"syscall"   // SIGTERM

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Echo's request id, recover and access log
	gommonlog "github.com/labstack/gommon/log"      // Echo logger levels

	"github.com/iliyamo/jenkins-cicd-demo/internal/config"     // Internal config loader
	"github.com/iliyamo/jenkins-cicd-demo/internal/database"   // MySQL connection
	"github.com/iliyamo/jenkins-cicd-demo/internal/handler"    // Greeting and health handlers
	"github.com/iliyamo/jenkins-cicd-demo/internal/middleware" // Rate limit, cache, events
	"github.com/iliyamo/jenkins-cicd-demo/internal/queue"      // RabbitMQ publisher/consumer
	"github.com/iliyamo/jenkins-cicd-demo/internal/repository" // served_requests storage
	"github.com/iliyamo/jenkins-cicd-demo/internal/router"     // Internal router setup
)

// Set with -ldflags "-X main.Version=... -X main.BuildDate=..." by the pipeline.
var (
	Version   = "1.0.0"
	BuildDate = "dev"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err) // Log and exit if server fails
	}
}

// workers tracks background goroutines so shutdown can wait for them before
// the connections they use are closed.
type workers struct{ wg sync.WaitGroup }

func (w *workers) Go(fn func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

// Wait blocks until every worker returned or ctx is done.
func (w *workers) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run owns every resource; its defers run after the workers have stopped.
func run() error {
	cfg := config.Load() // Load environment config
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger.SetLevel(parseLevel(cfg.LogLevel))
	e.Use(echomw.RequestID(), echomw.Recover(), echomw.Logger())

	health := handler.NewHealthHandler(Version, BuildDate, cfg.Env)

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Printf("redis unavailable, rate limiting and caching disabled: %v", err)
	} else {
		defer rdb.Close()
		health.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	var sink queue.Sink
	dbCfg := config.LoadDatabaseConfig()
	if dbCfg.Enabled {
		db, err := database.Open(dbCfg)
		if err != nil {
			log.Printf("mysql unavailable, request log falls back to file: %v", err)
		} else {
			defer db.Close()
			if err := database.EnsureSchema(db, dbCfg.Name); err != nil {
				log.Printf("mysql schema: %v", err)
			}
			health.AddCheck("mysql", db.PingContext)
			sink = repository.NewRequestLogRepo(db)
		}
	}

	var bg workers
	evCfg := config.LoadEventsConfig()
	if evCfg.Enabled {
		pub := queue.NewPublisher(evCfg.URL, evCfg.Queue, evCfg.BufferSize)
		bg.Go(func() { _ = pub.Run(ctx) })
		e.Use(middleware.PublishServed(pub))
		health.AddCheck("rabbitmq", pub.Ping)
		health.AddCounter("events_dropped", pub.Dropped)
		health.AddCounter("events_failed", pub.Failed)
	}
	if evCfg.ConsumerEnabled {
		if sink == nil {
			sink = queue.NewFileSink(evCfg.LogFile)
		}
		bg.Go(func() { _ = queue.StartRequestConsumer(ctx, evCfg.URL, evCfg.Queue, sink) })
	}

	apiMW := []echo.MiddlewareFunc{
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}
	router.RegisterRoutes(e, health) // Register health routes
	router.RegisterAPI(e, apiMW...)  // Register /api/v1 routes
	if cfg.LegacyRoutes {
		router.RegisterLegacy(e, apiMW...)
	}

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }() // Start HTTP server

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
		stop() // Stop the workers too
	case <-ctx.Done():
		log.Printf("shutting down (timeout %s)", cfg.ShutdownTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := bg.Wait(shutdownCtx); err != nil {
		log.Printf("background workers did not stop: %v", err)
	}
	return serveErr
}

func parseLevel(s string) gommonlog.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return gommonlog.DEBUG
	case "warn":
		return gommonlog.WARN
	case "error":
		return gommonlog.ERROR
	case "off":
		return gommonlog.OFF
	}
	return gommonlog.INFO
}
