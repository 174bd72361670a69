package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tower_monitoring/internal/config"
	"tower_monitoring/internal/handlers"
	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/repository"
	"tower_monitoring/internal/server"
	"tower_monitoring/internal/service"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title                       Tower Monitoring API
// @version                     1.0
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	// open every store; any failed health check aborts startup
	startCtx, startCancel := context.WithTimeout(context.Background(), startupTimeout)
	repos, err := repository.Open(startCtx, cfg, log)
	if err != nil {
		startCancel()
		var connErr *repository.ConnectionError
		if errors.As(err, &connErr) {
			log.Fatalw("store unavailable", "store", connErr.Store, "err", connErr.Err)
		}
		log.Fatalw("failed to open stores", "err", err)
	}

	services := service.NewService(repos, cfg, m, log)

	// bring the mirror up to date before any worker writes to it
	if _, err := services.ReconcileAll(startCtx, cfg.Sync.Tables); err != nil {
		log.Warnw("startup reconciliation incomplete", "err", err)
	}
	startCancel()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Sync.Interval > 0 {
		go services.RunPeriodic(ctx, cfg.Sync.Tables, cfg.Sync.Interval)
	}

	if cfg.Scheduler.Autostart {
		if _, err := services.StartAll(ctx); err != nil {
			log.Errorw("scheduler autostart failed", "err", err)
		}
	}

	// start HTTP server
	apiHandler := handlers.NewHandler(services, m, log)
	srv := server.New(cfg.CORS.AllowedOrigins)
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, services, srv, repos, log)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, services *service.Service, srv *server.Server, repos *repository.Repository, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// workers first, so no write races the store shutdown
	services.StopAll()

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	repos.Close()
	_ = log.Sync()
}
