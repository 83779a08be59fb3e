// Package wallet abstrai o provider de carteira escolhido no startup.
// Os providers são variantes mutuamente exclusivas da mesma capacidade:
// conectar uma conta, assinar e enviar apostas, resgates e ações de admin.
package wallet

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/config"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

// Receipt é o resultado de uma ação enviada pelo provider.
// TxRef é o id da aposta (demo) ou o hash da transação (evm).
type Receipt struct {
	TxRef   string
	Bet     *market.Bet
	Event   *market.Event
	Payout  decimal.Decimal
	Balance *decimal.Decimal // saldo informado pelo backend, quando houver
}

type Provider interface {
	Name() string
	Connect(ctx context.Context, acc accounts.Account) error
	Disconnect()
	Address() string
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	PlaceBet(ctx context.Context, eventID int64, outcome bool, amount decimal.Decimal) (Receipt, error)
	Claim(ctx context.Context, eventID int64, betIDs []string) (Receipt, error)
	CreateEvent(ctx context.Context, name string, endTime int64) (Receipt, error)
	ResolveEvent(ctx context.Context, eventID int64, outcome bool) (Receipt, error)
}

// New escolhe a implementação a partir da configuração do cliente
func New(ctx context.Context, log *zap.Logger, cfg config.ClientConfig, be DemoBackend) (Provider, error) {
	switch cfg.WalletProvider {
	case config.ProviderDemo:
		return NewDemo(log, be), nil
	case config.ProviderEVM:
		p, err := DialEVM(ctx, log, EVMOptions{
			RPCURL:          cfg.EVMRPCURL,
			ContractAddress: cfg.EVMContractAddress,
			PrivateKeyHex:   cfg.EVMPrivateKey,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, apperr.Config("WALLET_PROVIDER", "unknown wallet provider %q", cfg.WalletProvider)
	}
}
