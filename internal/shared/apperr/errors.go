// Package apperr define a taxonomia de erros compartilhada entre cliente e serviços.
// Cada erro carrega um Kind que decide como a falha é exibida ao usuário.
// Nenhum erro é repetido automaticamente: todos encerram a ação que os originou.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindValidation Kind = "validation" // rejeitado localmente antes de qualquer chamada de rede
	KindWallet     Kind = "wallet"     // carteira desconectada, usuário recusou, conflito de sessão
	KindNetwork    Kind = "network"    // falha de fetch/RPC; cache fica como estava
	KindConfig     Kind = "config"     // variável obrigatória ausente; fatal no startup
	KindNotFound   Kind = "not_found"
)

// Motivos de WalletError
var (
	ErrNotConnected    = errors.New("wallet not connected")
	ErrUserRejected    = errors.New("user rejected request")
	ErrSessionConflict = errors.New("wallet session conflict")
)

// Error é o erro tipado devolvido pelas operações do domínio
type Error struct {
	Kind Kind
	Op   string // operação que falhou, ex: "balance.refresh"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause permite que errors.Cause atravesse o wrapper
func (e *Error) Cause() error { return e.Err }

func newErr(kind Kind, op string, err error) error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op, format string, args ...any) error {
	return newErr(KindValidation, op, errors.Errorf(format, args...))
}

func Wallet(op string, err error) error { return newErr(KindWallet, op, err) }

func Network(op string, err error) error { return newErr(KindNetwork, op, err) }

func Config(key, format string, args ...any) error {
	return newErr(KindConfig, key, errors.Errorf(format, args...))
}

func NotFound(what, id string) error {
	return newErr(KindNotFound, what, errors.Errorf("%s %q not found", what, id))
}

// KindOf retorna o Kind do primeiro *Error na cadeia, ou "" se não houver
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }
