package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	mhttp "github.com/radieske/foundersnet-market-poc/internal/market-service/http"
	kpub "github.com/radieske/foundersnet-market-poc/internal/market-service/producer"
	"github.com/radieske/foundersnet-market-poc/internal/market-service/repo"
	"github.com/radieske/foundersnet-market-poc/internal/market-service/ws"
	"github.com/radieske/foundersnet-market-poc/internal/shared/cache"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/config"
	"github.com/radieske/foundersnet-market-poc/internal/shared/db"
	"github.com/radieske/foundersnet-market-poc/internal/shared/kafka"
	"github.com/radieske/foundersnet-market-poc/internal/shared/logger"
	"github.com/radieske/foundersnet-market-poc/internal/shared/metrics"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/events"
)

func main() {
	cfg, cfgErr := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "market-service"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()
	if cfgErr != nil {
		log.Fatal("invalid config", zap.Error(cfgErr))
	}

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("chain", string(cfg.Chain)))

	// Postgres + migrações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(pg); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}
	log.Info("postgres connected")

	seed, err := chainaddr.ToBase(cfg.Chain, "100")
	if err != nil {
		log.Fatal("seed balance", zap.Error(err))
	}
	repository := repo.NewPostgres(pg, seed)
	if err := repository.SeedAccounts(context.Background(), seedAccounts(cfg.Chain, seed)); err != nil {
		log.Fatal("seed accounts", zap.Error(err))
	}

	// Redis: cache de eventos e Pub/Sub do websocket
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	eventCache := cache.NewEventCache(redisClient, 30*time.Second)

	// Kafka: um writer, tópico por tipo de evento
	writer := kafka.NewWriter(cfg.Brokers())
	defer writer.Close()
	publisher := kpub.NewKafkaPublisher(writer, map[string]string{
		events.TypeEventCreated:  cfg.TopicEventCreated,
		events.TypeBetPlaced:     cfg.TopicBetPlaced,
		events.TypeEventResolved: cfg.TopicEventResolved,
		events.TypeBetClaimed:    cfg.TopicBetClaimed,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := ws.NewHub(log, func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub)

	m := mhttp.NewMetrics()
	prometheus.MustRegister(m.Collectors()...)

	api := &mhttp.API{
		Log:          log,
		Store:        repository,
		Cache:        eventCache,
		Publisher:    publisher,
		Metrics:      m,
		WS:           hub.HandleWS,
		Chain:        cfg.Chain,
		AdminAddress: cfg.AdminAddress,
		Network:      string(cfg.Chain) + "-demo",
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": repository.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("market-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("market-service stopped")
}

// seedAccounts usa as contas LocalNet na Algorand e as contas demo nas demais chains
func seedAccounts(chain chainaddr.Chain, balance decimal.Decimal) []repo.Account {
	fixtures := accounts.DemoAccounts()
	if chain == chainaddr.Algorand {
		fixtures = accounts.LocalNetAccounts()
	}
	out := make([]repo.Account, 0, len(fixtures))
	for _, a := range fixtures {
		out = append(out, repo.Account{Address: a.Address, Name: a.DisplayName, Balance: balance})
	}
	return out
}
