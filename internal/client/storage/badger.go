// Package storage é o armazenamento durável do cliente, equivalente ao
// localStorage do navegador: chaves string com valores string.
package storage

import (
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// Store é o contrato usado pelos componentes do cliente
type Store interface {
	GetString(key string) (string, bool, error)
	SetString(key, val string) error
}

// Chaves conhecidas
const (
	KeyDemoAccount     = "foundersnet:demoAccount"
	KeyLocalNetAccount = "localnet_active_account"
	KeyWalletBets      = "foundersnet:walletBets"
)

type Options struct {
	Path     string
	InMemory bool
}

// Badger implementa Store sobre um badger.DB local
type Badger struct {
	db *badger.DB
}

func OpenBadger(opts Options) (*Badger, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" && !opts.InMemory {
		return nil, errors.New("storage: path is required")
	}
	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrap(err, "storage: open badger")
	}
	return &Badger{db: db}, nil
}

func (s *Badger) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Badger) GetString(key string) (string, bool, error) {
	k, err := normKey(key)
	if err != nil {
		return "", false, err
	}
	var (
		out   string
		found bool
	)
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "storage: get %s", key)
	}
	return out, found, nil
}

func (s *Badger) SetString(key, val string) error {
	k, err := normKey(key)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, []byte(val))
	})
	return errors.Wrapf(err, "storage: set %s", key)
}

func normKey(key string) ([]byte, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, errors.New("storage: key is empty")
	}
	return []byte(k), nil
}
