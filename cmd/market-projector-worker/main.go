package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/market-projector/consumer"
	"github.com/radieske/foundersnet-market-poc/internal/market-projector/pubsub"
	"github.com/radieske/foundersnet-market-poc/internal/market-projector/repository"
	sharedcache "github.com/radieske/foundersnet-market-poc/internal/shared/cache"
	"github.com/radieske/foundersnet-market-poc/internal/shared/config"
	"github.com/radieske/foundersnet-market-poc/internal/shared/db"
	"github.com/radieske/foundersnet-market-poc/internal/shared/kafka"
	"github.com/radieske/foundersnet-market-poc/internal/shared/logger"
	"github.com/radieske/foundersnet-market-poc/internal/shared/metrics"
)

func main() {
	cfg, cfgErr := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if cfgErr != nil {
		log.Fatal("invalid config", zap.Error(cfgErr))
	}

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	eventCache := sharedcache.NewEventCache(redisClient, 60*time.Second)
	repo := repository.NewPostgresRepo(pg)

	// Consumer group market-projector em todos os tópicos de mercado
	reader := kafka.NewGroupReader(cfg.Brokers(), cfg.MarketTopics(), "market-projector")
	defer reader.Close()

	// Métricas Prometheus para monitoramento do processamento
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_proj_messages_consumed_total", Help: "mensagens consumidas"})
	cached := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_proj_cache_sets_total", Help: "sets no cache"})
	persist := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_proj_db_writes_total", Help: "escritas em market_activity"})
	broadcast := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_proj_broadcasts_total", Help: "updates enviados ao ws"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "market_proj_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, cached, persist, broadcast, errorsBy)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        repo,
		Cache:       eventCache,
		Broadcaster: pubsub.NewRedisBroadcaster(redisClient),
		Channel:     cfg.RedisPubSubChannel,
		OnConsumed:  func() { consumed.Inc() },
		OnCached:    func() { cached.Inc() },
		OnPersist:   func() { persist.Inc() },
		OnBroadcast: func() { broadcast.Inc() },
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	defer metricsSrv.Close()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("market-projector started", zap.Strings("topics", cfg.MarketTopics()))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("market-projector stopped")
}
