package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tmn08/ward-supply/internal/adapter/handler"
	"github.com/tmn08/ward-supply/internal/adapter/storage"
	"github.com/tmn08/ward-supply/internal/core/feed"
	"github.com/tmn08/ward-supply/internal/core/service"
	"github.com/tmn08/ward-supply/internal/logging"
)

const (
	defaultHTTPAddr  = ":8080"
	defaultMySQLDSN  = "root:root@tcp(localhost:3306)/wardsupply?parseTime=true"
	defaultRedisAddr = "localhost:6379"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logging.Logger()

	httpAddr := getenv("HTTP_ADDR", defaultHTTPAddr)
	mysqlDSN := getenv("MYSQL_DSN", defaultMySQLDSN)
	redisAddr := getenv("REDIS_ADDR", defaultRedisAddr)
	requireFullCover := getenvBool("REQUIRE_FULL_COVER", false)

	// MySQL
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Fatal("failed to ping mysql")
	}
	log.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect redis")
	}
	log.Info("connected to redis")

	// Adapters
	inventoryStore := storage.NewMySQLInventory(db)
	ledger := storage.NewMySQLLedger(db)
	bus := storage.NewRedisBus(rdb)

	// Services
	allocator := service.NewAllocationService(inventoryStore, service.AllocationPolicy{
		RequireFullCover: requireFullCover,
	})
	transfers := service.NewTransferService(ledger, inventoryStore, bus, bus)
	inventory := service.NewInventoryService(inventoryStore)
	dashboard := service.NewDashboardService(inventoryStore, ledger)

	// Live task feed: bootstrap from the ledger, then follow the change stream.
	taskFeed := feed.New()
	active, err := transfers.ActiveTasks(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to load active tasks")
	}
	taskFeed.Bootstrap(active)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := taskFeed.Run(ctx, bus); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("task feed stopped")
		}
	}()
	log.WithField("active_tasks", len(active)).Info("task feed running")

	// HTTP server
	httpHandler := handler.NewHTTPHandler(allocator, transfers, inventory, dashboard, taskFeed, bus)
	mux := http.NewServeMux()
	httpHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.WithField("addr", httpAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	cancel()
	wg.Wait()
	log.Info("task feed stopped")

	rdb.Close()
	db.Close()
	log.Info("connections closed")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
