// Package ledger registra a escolha (SIM/NÃO) de cada carteira por evento no modo demo.
package ledger

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/radieske/foundersnet-market-poc/internal/client/storage"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
)

type Choice string

const (
	Yes Choice = "YES"
	No  Choice = "NO"
)

// ParseChoice aceita yes/no/sim/nao em qualquer caixa
func ParseChoice(s string) (Choice, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "SIM", "TRUE":
		return Yes, nil
	case "NO", "N", "NAO", "NÃO", "FALSE":
		return No, nil
	case "":
		return "", apperr.Validation("ledger.choice", "outcome must be selected")
	default:
		return "", apperr.Validation("ledger.choice", "invalid outcome %q", s)
	}
}

func ChoiceOf(outcome bool) Choice {
	if outcome {
		return Yes
	}
	return No
}

func (c Choice) Bool() bool { return c == Yes }

type Stats struct {
	Total int `json:"totalBets"`
	Yes   int `json:"yesBets"`
	No    int `json:"noBets"`
}

// EventBet é uma entrada do ledger para um evento
type EventBet struct {
	Wallet string `json:"wallet"`
	Choice Choice `json:"choice"`
}

// Ledger é o índice endereço -> evento -> escolha. Cada instância é isolada.
type Ledger struct {
	mu    sync.RWMutex
	bets  map[string]map[int64]Choice
	store storage.Store
	key   string
}

// New cria um ledger vazio. Com store != nil, Snapshot/Restore usam a chave key.
func New(store storage.Store, key string) *Ledger {
	if key == "" {
		key = storage.KeyWalletBets
	}
	return &Ledger{bets: make(map[string]map[int64]Choice), store: store, key: key}
}

// RecordBet sobrescreve a escolha anterior sem erro. Devolve a escolha anterior
// e se ela existia, para quem chama poder avisar sobre a troca.
func (l *Ledger) RecordBet(address string, eventID int64, choice Choice) (prev Choice, replaced bool, err error) {
	if choice != Yes && choice != No {
		return "", false, apperr.Validation("ledger.record", "invalid outcome %q", choice)
	}
	if address == "" {
		return "", false, apperr.Validation("ledger.record", "address is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.bets[address]
	if !ok {
		m = make(map[int64]Choice)
		l.bets[address] = m
	}
	prev, replaced = m[eventID]
	m[eventID] = choice
	return prev, replaced, nil
}

func (l *Ledger) HasBet(address string, eventID int64) bool {
	_, ok := l.ChoiceFor(address, eventID)
	return ok
}

func (l *Ledger) ChoiceFor(address string, eventID int64) (Choice, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.bets[address][eventID]
	return c, ok
}

// StatsFor percorre uma única vez as apostas da carteira
func (l *Ledger) StatsFor(address string) Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var st Stats
	for _, c := range l.bets[address] {
		st.Total++
		if c == Yes {
			st.Yes++
		} else {
			st.No++
		}
	}
	return st
}

// BetsForEvent lista as carteiras que apostaram no evento, ordenadas por endereço
func (l *Ledger) BetsForEvent(eventID int64) []EventBet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []EventBet
	for w, m := range l.bets {
		if c, ok := m[eventID]; ok {
			out = append(out, EventBet{Wallet: w, Choice: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wallet < out[j].Wallet })
	return out
}

// Snapshot grava o ledger inteiro como JSON no storage durável
func (l *Ledger) Snapshot() error {
	if l.store == nil {
		return nil
	}
	l.mu.RLock()
	b, err := json.Marshal(l.bets)
	l.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "ledger: marshal")
	}
	return l.store.SetString(l.key, string(b))
}

// Restore substitui o conteúdo em memória pelo último snapshot, se houver
func (l *Ledger) Restore() error {
	if l.store == nil {
		return nil
	}
	raw, found, err := l.store.GetString(l.key)
	if err != nil || !found || raw == "" {
		return err
	}
	bets := make(map[string]map[int64]Choice)
	if err := json.Unmarshal([]byte(raw), &bets); err != nil {
		return errors.Wrap(err, "ledger: unmarshal snapshot")
	}
	l.mu.Lock()
	l.bets = bets
	l.mu.Unlock()
	return nil
}
