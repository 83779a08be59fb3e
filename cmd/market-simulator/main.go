package main

import (
	"context"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/client/backend"
	simulator "github.com/radieske/foundersnet-market-poc/internal/market-simulator"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/config"
	"github.com/radieske/foundersnet-market-poc/internal/shared/logger"
	"github.com/radieske/foundersnet-market-poc/internal/shared/metrics"
)

var (
	// Métricas Prometheus do tráfego simulado
	betsPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_sim_bets_placed_total",
		Help: "Apostas simuladas aceitas",
	})
	eventsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_sim_events_created_total",
		Help: "Eventos criados pelo simulador",
	})
	simErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "market_sim_errors_total",
		Help: "Chamadas rejeitadas ou com falha",
	})
)

func main() {
	cfg, cfgErr := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "market-simulator"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if cfgErr != nil {
		log.Fatal("invalid config", zap.Error(cfgErr))
	}

	prometheus.MustRegister(betsPlaced, eventsCreated, simErrors)

	client := backend.New(cfg.MarketURL, 5*time.Second)

	// Apostadores: contas do modo demo que não são admin
	fixtures := accounts.DemoAccounts()
	if cfg.Chain == chainaddr.Algorand {
		fixtures = accounts.LocalNetAccounts()
	}
	var bettors []string
	for _, a := range fixtures {
		if a.Role != accounts.RoleAdmin {
			bettors = append(bettors, a.Address)
		}
	}

	minStake, err := chainaddr.ToBase(cfg.Chain, "0.1")
	if err != nil {
		log.Fatal("stake range", zap.Error(err))
	}
	maxStake, err := chainaddr.ToBase(cfg.Chain, "2")
	if err != nil {
		log.Fatal("stake range", zap.Error(err))
	}

	sim := &simulator.Simulator{
		Log:      log,
		Backend:  client,
		Admin:    cfg.AdminAddress,
		Bettors:  bettors,
		MinStake: minStake,
		MaxStake: maxStake,
		Duration: 10 * time.Minute,
		Interval: 3 * time.Second,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		OnBet:    betsPlaced.Inc,
		OnEvent:  eventsCreated.Inc,
		OnError:  simErrors.Inc,
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"market-service": func(ctx context.Context) error {
			_, err := client.Health(ctx)
			return err
		},
	})
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("market simulator running",
		zap.String("target", cfg.MarketURL),
		zap.Int("bettors", len(bettors)),
	)
	sim.Run(ctx)
	log.Info("market simulator stopped")
}
