package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/shared/config"
	"github.com/radieske/foundersnet-market-poc/internal/shared/logger"
	"github.com/radieske/foundersnet-market-poc/internal/shared/metrics"
)

func rp(log *zap.Logger, to string) *httputil.ReverseProxy {
	u, err := url.Parse(to)
	if err != nil || u.Host == "" {
		log.Fatal("invalid MARKET_URL", zap.String("url", to), zap.Error(err))
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed", zap.String("path", r.URL.Path), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"market-service unavailable"}`))
	}
	return p
}

func main() {
	cfg, cfgErr := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()
	if cfgErr != nil {
		log.Fatal("invalid config", zap.Error(cfgErr))
	}

	market := rp(log, cfg.MarketURL)

	mux := http.NewServeMux()

	// REST (ex.: /api/events -> market-service/api/events)
	mux.Handle("/api/", market)

	// websocket de atualizações; o ReverseProxy repassa o Upgrade
	mux.Handle("/ws", market)

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, map[string]metrics.HealthFunc{
		"market-service": func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.MarketURL+"/api/health", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health returned %d", resp.StatusCode)
			}
			return nil
		},
	})

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: withCORS(mux), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("api-gateway listening", zap.String("addr", srv.Addr), zap.String("upstream", cfg.MarketURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("gateway failed", zap.Error(err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("api-gateway stopped")
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
