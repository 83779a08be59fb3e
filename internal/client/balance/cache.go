// Package balance guarda o saldo por conta, atualizado sob demanda a partir do backend.
package balance

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
)

// Source busca o saldo atual de um endereço (REST do backend demo ou RPC da chain)
type Source interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Lookup resolve id de conta para a conta cadastrada
type Lookup interface {
	Get(id string) (accounts.Account, error)
}

type entry struct {
	value   decimal.Decimal
	have    bool
	issued  uint64 // última requisição disparada
	applied uint64 // requisição mais recente já aplicada
}

// Cache é pass-through sem eviction; o tamanho é limitado pela lista fixa de contas.
type Cache struct {
	log    *zap.Logger
	lookup Lookup

	mu     sync.Mutex
	source Source
	slots  map[string]*entry
}

func New(log *zap.Logger, lookup Lookup, src Source) *Cache {
	return &Cache{log: log, lookup: lookup, source: src, slots: make(map[string]*entry)}
}

// Refresh busca o saldo da conta. Em falha o valor em cache não muda e o erro volta como NetworkError.
// Uma resposta mais antiga que outra já aplicada é descartada.
func (c *Cache) Refresh(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acc, err := c.lookup.Get(accountID)
	if err != nil {
		return decimal.Zero, err
	}

	c.mu.Lock()
	e := c.slot(accountID)
	e.issued++
	seq := e.issued
	src := c.source
	c.mu.Unlock()

	if src == nil {
		return c.Cached(accountID), apperr.Network("balance.refresh", apperr.ErrNotConnected)
	}

	v, err := src.Balance(ctx, acc.Address)
	if err != nil {
		c.log.Warn("balance refresh failed", zap.String("account", accountID), zap.Error(err))
		if apperr.KindOf(err) == "" {
			err = apperr.Network("balance.refresh", err)
		}
		return c.Cached(accountID), err
	}
	if v.IsNegative() {
		v = decimal.Zero
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq > e.applied {
		e.applied = seq
		e.value = v
		e.have = true
	} else {
		c.log.Debug("discarding stale balance", zap.String("account", accountID), zap.Uint64("seq", seq))
	}
	return e.value, nil
}

// Cached devolve o último saldo conhecido, ou o saldo inicial da conta se nunca atualizado
func (c *Cache) Cached(accountID string) decimal.Decimal {
	c.mu.Lock()
	e, ok := c.slots[accountID]
	if ok && e.have {
		v := e.value
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	acc, err := c.lookup.Get(accountID)
	if err != nil || acc.Balance.IsNegative() {
		return decimal.Zero
	}
	return acc.Balance
}

func (c *Cache) slot(id string) *entry {
	e, ok := c.slots[id]
	if !ok {
		e = &entry{}
		c.slots[id] = e
	}
	return e
}
