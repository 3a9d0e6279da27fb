package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-order-tracker/catalog"
	"food-order-tracker/config"
	"food-order-tracker/handlers"
	"food-order-tracker/middleware"
	"food-order-tracker/routes"
	"food-order-tracker/scheduler"
	"food-order-tracker/simulator"
	"food-order-tracker/store"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)

	gin.SetMode(cfg.GinMode)

	// Menu catalog
	db, err := config.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	menu := catalog.NewRepository(db)
	ctx := context.Background()
	if err := menu.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	if err := menu.Seed(ctx, catalog.DefaultMenu()); err != nil {
		logger.Error("failed to seed menu", "error", err)
		os.Exit(1)
	}
	logger.Info("menu catalog ready", "dsn", cfg.DatabaseDSN)

	// Orders and their status progression
	orders := store.NewOrderStore(store.WithLogger(logger))
	sim := simulator.New(orders, scheduler.NewTimerScheduler(), cfg.Delays, logger)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS(), middleware.BodyLimit(middleware.DefaultBodyLimit))
	routes.SetupRoutes(r, handlers.New(orders, sim, menu, logger), cfg.Delays)

	// open streams end when the server shuts down
	baseCtx, closeStreams := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(closeStreams)

	go func() {
		logger.Info("server running", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	logger.Info("shutting down")
	sim.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
