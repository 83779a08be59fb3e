// Package accounts mantém o conjunto fixo de contas demo/teste e a conta ativa.
package accounts

import (
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/storage"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
)

// Registry é a tabela de contas indexada por id. A conta ativa é persistida no Store.
type Registry struct {
	log   *zap.Logger
	store storage.Store
	key   string

	mu       sync.RWMutex
	list     []Account
	byID     map[string]int
	activeID string
}

// NewRegistry restaura a conta ativa persistida; ids desconhecidos caem no padrão do preset.
func NewRegistry(log *zap.Logger, store storage.Store, p Preset) (*Registry, error) {
	if len(p.Accounts) == 0 {
		return nil, apperr.Config("accounts", "no accounts configured")
	}
	r := &Registry{
		log:   log,
		store: store,
		key:   p.StorageKey,
		list:  append([]Account(nil), p.Accounts...),
		byID:  make(map[string]int, len(p.Accounts)),
	}
	for i, a := range r.list {
		if _, dup := r.byID[a.ID]; dup {
			return nil, apperr.Config("accounts", "duplicate account id %q", a.ID)
		}
		r.byID[a.ID] = i
	}

	r.activeID = p.DefaultID
	if _, ok := r.byID[r.activeID]; !ok {
		r.activeID = r.list[0].ID
	}

	if store != nil && r.key != "" {
		saved, found, err := store.GetString(r.key)
		switch {
		case err != nil:
			log.Warn("could not read active account", zap.String("key", r.key), zap.Error(err))
		case found:
			if _, ok := r.byID[saved]; ok {
				r.activeID = saved
			} else {
				log.Info("ignoring unknown persisted account", zap.String("id", saved))
			}
		}
	}
	return r, nil
}

// ListAccounts devolve uma cópia na ordem de cadastro
func (r *Registry) ListAccounts() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Account(nil), r.list...)
}

func (r *Registry) Get(id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return Account{}, apperr.NotFound("account", id)
	}
	return r.list[i], nil
}

// ByAddress procura a conta pelo endereço (comparação exata)
func (r *Registry) ByAddress(addr string) (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.list {
		if a.Address == addr {
			return a, true
		}
	}
	return Account{}, false
}

func (r *Registry) Active() Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list[r.byID[r.activeID]]
}

// SwitchActive troca a conta ativa. Id ausente devolve NotFound sem alterar nada.
// Falha ao persistir só é logada: a troca vale para a sessão corrente.
func (r *Registry) SwitchActive(id string) (Account, error) {
	r.mu.Lock()
	i, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return Account{}, apperr.NotFound("account", id)
	}
	r.activeID = id
	acc := r.list[i]
	r.mu.Unlock()

	if r.store != nil && r.key != "" {
		if err := r.store.SetString(r.key, id); err != nil {
			r.log.Warn("could not persist active account", zap.String("id", id), zap.Error(err))
		}
	}
	r.log.Info("active account switched", zap.String("id", id), zap.String("address", acc.Address))
	return acc, nil
}
