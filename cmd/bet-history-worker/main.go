package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker/internal/bet-history/consumer"
	"github.com/radieske/bet-tracker/internal/bet-history/pubsub"
	"github.com/radieske/bet-tracker/internal/bet-history/repository"
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

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.EnsureSchema(ctx, pg); err != nil {
		log.Fatal("postgres schema", zap.Error(err))
	}

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	// consumer group bet-history
	reader := kafka.NewReader(cfg.Brokers(), cfg.TopicBetChanges, "bet-history")
	defer reader.Close()

	consumed := promauto.NewCounter(prometheus.CounterOpts{Name: "bet_history_messages_consumed_total", Help: "mensagens consumidas"})
	persist := promauto.NewCounter(prometheus.CounterOpts{Name: "bet_history_db_writes_total", Help: "eventos gravados no histórico"})
	dups := promauto.NewCounter(prometheus.CounterOpts{Name: "bet_history_duplicates_total", Help: "eventos reentregues ignorados"})
	errorsBy := promauto.NewCounterVec(prometheus.CounterOpts{Name: "bet_history_errors_total", Help: "erros por estágio"}, []string{"stage"})

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        repository.NewPostgresRepo(pg),
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		OnConsumed:  func() { consumed.Inc() },
		OnPersist:   func() { persist.Inc() },
		OnDuplicate: func() { dups.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		return redisClient.Ping(ctx).Err()
	})
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = metricsSrv.Shutdown(sctx)
	}()

	log.Info("bet-history-worker started", zap.String("topic", cfg.TopicBetChanges))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}
	log.Info("bet-history-worker stopped")
}
