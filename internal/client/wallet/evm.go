package wallet

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
)

// EthClient é o subconjunto de *ethclient.Client usado pelo provider
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	Close()
}

type EVMOptions struct {
	RPCURL          string
	ContractAddress string
	PrivateKeyHex   string
	ReceiptTimeout  time.Duration // padrão 120s
	PollInterval    time.Duration // padrão 2s
}

// EVM envia as transações direto ao contrato PredictionMarket via JSON-RPC
type EVM struct {
	log      *zap.Logger
	client   EthClient
	abi      abi.ABI
	contract common.Address
	key      *ecdsa.PrivateKey
	signer   common.Address

	receiptTimeout time.Duration
	pollInterval   time.Duration

	mu        sync.RWMutex
	connected bool
}

func DialEVM(ctx context.Context, log *zap.Logger, opts EVMOptions) (*EVM, error) {
	client, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, apperr.Network("evm.dial", errors.Wrap(err, "failed to connect to RPC"))
	}
	p, err := NewEVM(log, client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return p, nil
}

func NewEVM(log *zap.Logger, client EthClient, opts EVMOptions) (*EVM, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, apperr.Config("EVM_PRIVATE_KEY", "invalid private key")
	}
	if !common.IsHexAddress(opts.ContractAddress) {
		return nil, apperr.Config("EVM_CONTRACT_ADDRESS", "invalid contract address %q", opts.ContractAddress)
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 120 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &EVM{
		log:            log,
		client:         client,
		abi:            predictionMarketABI(),
		contract:       common.HexToAddress(opts.ContractAddress),
		key:            key,
		signer:         crypto.PubkeyToAddress(key.PublicKey),
		receiptTimeout: opts.ReceiptTimeout,
		pollInterval:   opts.PollInterval,
	}, nil
}

func (e *EVM) Name() string { return "evm" }

// Connect só aceita a conta cuja chave está configurada; qualquer outra é conflito de sessão
func (e *EVM) Connect(_ context.Context, acc accounts.Account) error {
	if !chainaddr.Equal(chainaddr.EVM, acc.Address, e.signer.Hex()) {
		e.log.Warn("wallet session conflict",
			zap.String("requested", acc.Address), zap.String("signer", e.signer.Hex()))
		return apperr.Wallet("evm.connect", errors.Wrapf(apperr.ErrSessionConflict,
			"signer is %s, account is %s", e.signer.Hex(), acc.Address))
	}
	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	return nil
}

func (e *EVM) Disconnect() {
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()
}

func (e *EVM) Address() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.connected {
		return ""
	}
	return e.signer.Hex()
}

// Close encerra a conexão RPC
func (e *EVM) Close() { e.client.Close() }

func (e *EVM) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, apperr.Validation("evm.balance", "invalid address %q", address)
	}
	wei, err := e.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, apperr.Network("evm.balance", err)
	}
	return decimal.NewFromBigInt(wei, 0), nil
}

func (e *EVM) PlaceBet(ctx context.Context, eventID int64, outcome bool, amount decimal.Decimal) (Receipt, error) {
	data, err := e.abi.Pack("placeBet", big.NewInt(eventID), outcome)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "failed to pack placeBet")
	}
	return e.transact(ctx, "evm.place_bet", amount.BigInt(), data)
}

// Claim resgata aposta por aposta; o contrato não agrega por evento
func (e *EVM) Claim(ctx context.Context, eventID int64, betIDs []string) (Receipt, error) {
	if len(betIDs) == 0 {
		return Receipt{}, apperr.Validation("evm.claim", "no claimable bets on event %d", eventID)
	}
	var last Receipt
	for _, id := range betIDs {
		n, ok := new(big.Int).SetString(id, 10)
		if !ok {
			return last, apperr.Validation("evm.claim", "invalid bet id %q", id)
		}
		data, err := e.abi.Pack("claimWinnings", n)
		if err != nil {
			return last, errors.Wrap(err, "failed to pack claimWinnings")
		}
		if last, err = e.transact(ctx, "evm.claim", big.NewInt(0), data); err != nil {
			return last, err
		}
	}
	return last, nil
}

func (e *EVM) CreateEvent(ctx context.Context, name string, endTime int64) (Receipt, error) {
	data, err := e.abi.Pack("createEvent", name, big.NewInt(endTime))
	if err != nil {
		return Receipt{}, errors.Wrap(err, "failed to pack createEvent")
	}
	return e.transact(ctx, "evm.create_event", big.NewInt(0), data)
}

func (e *EVM) ResolveEvent(ctx context.Context, eventID int64, outcome bool) (Receipt, error) {
	data, err := e.abi.Pack("resolveEvent", big.NewInt(eventID), outcome)
	if err != nil {
		return Receipt{}, errors.Wrap(err, "failed to pack resolveEvent")
	}
	return e.transact(ctx, "evm.resolve_event", big.NewInt(0), data)
}

// transact monta, assina, envia e aguarda o recibo de uma chamada ao contrato
func (e *EVM) transact(ctx context.Context, op string, value *big.Int, data []byte) (Receipt, error) {
	if e.Address() == "" {
		return Receipt{}, apperr.Wallet(op, apperr.ErrNotConnected)
	}

	chainID, err := e.client.ChainID(ctx)
	if err != nil {
		return Receipt{}, apperr.Network(op, errors.Wrap(err, "failed to get chain ID"))
	}
	nonce, err := e.client.PendingNonceAt(ctx, e.signer)
	if err != nil {
		return Receipt{}, apperr.Network(op, errors.Wrap(err, "failed to get nonce"))
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return Receipt{}, apperr.Network(op, errors.Wrap(err, "failed to get gas price"))
	}
	gas, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.signer,
		To:    &e.contract,
		Value: value,
		Data:  data,
	})
	if err != nil {
		// estimate falha quando o contrato reverteria (evento fechado, não-admin...)
		return Receipt{}, apperr.Wallet(op, errors.Wrap(err, "transaction would revert"))
	}
	// margem de 20%
	gas = gas * 120 / 100

	// comando interrompido (Ctrl-C) antes da assinatura: nada foi enviado
	if ctx.Err() != nil {
		return Receipt{}, apperr.Wallet(op, errors.Wrap(apperr.ErrUserRejected, "cancelled before signing"))
	}

	tx := types.NewTransaction(nonce, e.contract, value, gas, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), e.key)
	if err != nil {
		return Receipt{}, apperr.Wallet(op, errors.Wrap(err, "failed to sign transaction"))
	}
	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return Receipt{}, apperr.Network(op, errors.Wrap(err, "failed to send transaction"))
	}
	e.log.Info("transaction sent", zap.String("op", op), zap.String("tx", signed.Hash().Hex()))

	rcpt, err := e.waitForReceipt(ctx, signed.Hash())
	if err != nil {
		return Receipt{TxRef: signed.Hash().Hex()}, apperr.Network(op, err)
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return Receipt{TxRef: signed.Hash().Hex()}, apperr.Wallet(op, errors.Errorf("transaction reverted: %s", signed.Hash().Hex()))
	}
	return Receipt{TxRef: signed.Hash().Hex()}, nil
}

func (e *EVM) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.receiptTimeout)
	defer cancel()

	t := time.NewTicker(e.pollInterval)
	defer t.Stop()
	for {
		rcpt, err := e.client.TransactionReceipt(timeoutCtx, txHash)
		if err == nil {
			return rcpt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			e.log.Debug("receipt lookup failed", zap.String("tx", txHash.Hex()), zap.Error(err))
		}
		select {
		case <-timeoutCtx.Done():
			return nil, errors.Errorf("timeout waiting for transaction receipt: %s", txHash.Hex())
		case <-t.C:
		}
	}
}
