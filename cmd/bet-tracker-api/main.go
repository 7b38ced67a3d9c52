package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker/internal/bet-tracker/cache"
	bhttp "github.com/radieske/bet-tracker/internal/bet-tracker/http"
	kpub "github.com/radieske/bet-tracker/internal/bet-tracker/producer"
	"github.com/radieske/bet-tracker/internal/bet-tracker/repo"
	"github.com/radieske/bet-tracker/internal/bet-tracker/ws"
	sharedcache "github.com/radieske/bet-tracker/internal/shared/cache"
	"github.com/radieske/bet-tracker/internal/shared/config"
	"github.com/radieske/bet-tracker/internal/shared/db"
	"github.com/radieske/bet-tracker/internal/shared/kafka"
	"github.com/radieske/bet-tracker/internal/shared/logger"
	"github.com/radieske/bet-tracker/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres + schema
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.EnsureSchema(ctx, pg); err != nil {
		log.Fatal("postgres schema", zap.Error(err))
	}

	// Redis (cache de respostas + feed)
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (topic bet_changes)
	writer := kafka.NewWriter(cfg.Brokers(), cfg.TopicBetChanges)
	defer writer.Close()

	// Feed WebSocket alimentado pelo canal Redis que o worker publica
	hub := ws.NewHub(log, ws.AllowOrigins(cfg.CORSOrigins))
	ws.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log)

	store := repo.NewPostgres(pg)
	api := bhttp.NewServer(log, store, bhttp.Options{
		Cache:       cache.New(rdb, cfg.CacheTTL),
		Publisher:   kpub.NewKafkaPublisher(writer),
		History:     store,
		Feed:        hub,
		Metrics:     bhttp.NewMetrics(prometheus.DefaultRegisterer),
		CORSOrigins: cfg.CORSOrigins,
	})
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	go func() {
		log.Info("bet-tracker-api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("api server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("bet-tracker-api stopped")
}
