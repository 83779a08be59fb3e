package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/client/backend"
	"github.com/radieske/foundersnet-market-poc/internal/client/balance"
	"github.com/radieske/foundersnet-market-poc/internal/client/ledger"
	"github.com/radieske/foundersnet-market-poc/internal/client/session"
	"github.com/radieske/foundersnet-market-poc/internal/client/storage"
	"github.com/radieske/foundersnet-market-poc/internal/client/wallet"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/config"
	"github.com/radieske/foundersnet-market-poc/internal/shared/logger"
)

// app junta as dependências do cliente para a vida de um comando
type app struct {
	cfg      config.ClientConfig
	log      *zap.Logger
	store    *storage.Badger
	registry *accounts.Registry
	balances *balance.Cache
	backend  *backend.Client
	provider wallet.Provider
	session  *session.Session
	out      io.Writer
}

func newApp(ctx context.Context, out io.Writer) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	log, err := logger.New("market-cli", cfg.Env)
	if err != nil {
		return nil, err
	}

	store, err := storage.OpenBadger(storage.Options{Path: cfg.StateDir, InMemory: cfg.InMemory})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, store: store, out: out}

	preset, err := loadPreset(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	if a.registry, err = accounts.NewRegistry(log, store, preset); err != nil {
		a.close()
		return nil, err
	}

	a.backend = backend.New(cfg.BackendURL, 10*time.Second)
	if a.provider, err = wallet.New(ctx, log, cfg, a.backend); err != nil {
		a.close()
		return nil, err
	}
	a.balances = balance.New(log, a.registry, a.provider)

	a.session = session.New(session.Deps{
		Log:          log,
		Registry:     a.registry,
		Balances:     a.balances,
		Ledger:       ledger.New(store, storage.KeyWalletBets),
		Provider:     a.provider,
		Reader:       a.backend,
		Notifier:     noticePrinter{w: out},
		Chain:        cfg.Chain,
		AdminAddress: cfg.AdminAddress,
	})
	if err := a.session.Start(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// loadPreset escolhe entre o arquivo YAML e as contas embutidas. As contas
// embutidas só valem para a chain delas (demo: Solana, localnet: Algorand).
func loadPreset(cfg config.ClientConfig) (accounts.Preset, error) {
	key := storage.KeyDemoAccount
	if cfg.AccountSet == "localnet" {
		key = storage.KeyLocalNetAccount
	}
	if cfg.AccountsFile != "" {
		p, err := accounts.LoadFile(cfg.AccountsFile, cfg.Chain, key)
		if err != nil {
			return accounts.Preset{}, apperr.Config("ACCOUNTS_FILE", "%v", err)
		}
		return p, nil
	}

	p := accounts.DemoPreset()
	if cfg.AccountSet == "localnet" {
		p = accounts.LocalNetPreset()
	}
	if err := p.Validate(cfg.Chain); err != nil {
		return accounts.Preset{}, apperr.Config("ACCOUNT_SET",
			"built-in %s accounts do not match CHAIN=%s (set ACCOUNTS_FILE): %v", cfg.AccountSet, cfg.Chain, err)
	}
	return p, nil
}

func (a *app) close() {
	if a.provider != nil {
		a.provider.Disconnect()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close storage", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
