package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
)

const contractAddr = "0x766e60Be7043976EFdD9bE349dd198667d247c76"

type fakeEth struct {
	mu          sync.Mutex
	sent        []*types.Transaction
	misses      int // quantas consultas de recibo devolvem NotFound antes do sucesso
	status      uint64
	estimateErr error
	balance     *big.Int
}

func (f *fakeEth) ChainID(context.Context) (*big.Int, error) { return big.NewInt(80002), nil }
func (f *fakeEth) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}
func (f *fakeEth) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}
func (f *fakeEth) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, f.estimateErr
}
func (f *fakeEth) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}
func (f *fakeEth) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.misses > 0 {
		f.misses--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.status}, nil
}
func (f *fakeEth) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if f.balance == nil {
		return nil, errors.New("rpc down")
	}
	return f.balance, nil
}
func (f *fakeEth) Close() {}

func newEVM(t *testing.T, eth *fakeEth) (*EVM, accounts.Account) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	p, err := NewEVM(zap.NewNop(), eth, EVMOptions{
		ContractAddress: contractAddr,
		PrivateKeyHex:   "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
		ReceiptTimeout:  time.Second,
		PollInterval:    5 * time.Millisecond,
	})
	require.NoError(t, err)
	acc := accounts.Account{ID: "me", Address: crypto.PubkeyToAddress(key.PublicKey).Hex(), Role: accounts.RoleBettor}
	return p, acc
}

func TestEVMConfigErrors(t *testing.T) {
	_, err := NewEVM(zap.NewNop(), &fakeEth{}, EVMOptions{ContractAddress: contractAddr, PrivateKeyHex: "zz"})
	assert.True(t, apperr.Is(err, apperr.KindConfig))

	key, _ := crypto.GenerateKey()
	_, err = NewEVM(zap.NewNop(), &fakeEth{}, EVMOptions{ContractAddress: "nope", PrivateKeyHex: hex.EncodeToString(crypto.FromECDSA(key))})
	assert.True(t, apperr.Is(err, apperr.KindConfig))
}

func TestEVMConnectSessionConflict(t *testing.T) {
	p, _ := newEVM(t, &fakeEth{status: 1})

	err := p.Connect(context.Background(), accounts.Account{Address: "0x3c0973dc78549E824E49e41CBBAEe73502c5fC91"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindWallet))
	assert.ErrorIs(t, err, apperr.ErrSessionConflict)
	assert.Empty(t, p.Address())
}

func TestEVMPlaceBetSignsPayableCall(t *testing.T) {
	eth := &fakeEth{status: types.ReceiptStatusSuccessful, misses: 2}
	p, acc := newEVM(t, eth)
	signer := acc.Address
	// endereço em minúsculas continua sendo a mesma conta
	acc.Address = strings.ToLower(acc.Address)
	require.NoError(t, p.Connect(context.Background(), acc))

	amount := decimal.RequireFromString("10000000000000000") // 0.01
	r, err := p.PlaceBet(context.Background(), 4, true, amount)
	require.NoError(t, err)

	require.Len(t, eth.sent, 1)
	tx := eth.sent[0]
	assert.Equal(t, r.TxRef, tx.Hash().Hex())
	assert.Equal(t, 0, tx.Value().Cmp(amount.BigInt()))
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, common.HexToAddress(contractAddr), *tx.To())

	method := p.abi.Methods["placeBet"]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, int64(4), args[0].(*big.Int).Int64())
	assert.Equal(t, true, args[1])

	from, err := types.Sender(types.NewEIP155Signer(big.NewInt(80002)), tx)
	require.NoError(t, err)
	assert.Equal(t, signer, from.Hex())
}

func TestEVMNotConnected(t *testing.T) {
	p, _ := newEVM(t, &fakeEth{status: 1})
	_, err := p.ResolveEvent(context.Background(), 1, true)
	assert.ErrorIs(t, err, apperr.ErrNotConnected)
}

func TestEVMRevertedTransaction(t *testing.T) {
	eth := &fakeEth{status: types.ReceiptStatusFailed}
	p, acc := newEVM(t, eth)
	require.NoError(t, p.Connect(context.Background(), acc))

	r, err := p.CreateEvent(context.Background(), "Launch?", 1_900_000_000)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindWallet))
	assert.NotEmpty(t, r.TxRef)
}

func TestEVMEstimateFailureIsWalletError(t *testing.T) {
	eth := &fakeEth{status: 1, estimateErr: errors.New("execution reverted: event closed")}
	p, acc := newEVM(t, eth)
	require.NoError(t, p.Connect(context.Background(), acc))

	_, err := p.PlaceBet(context.Background(), 1, false, decimal.NewFromInt(1))
	assert.True(t, apperr.Is(err, apperr.KindWallet))
	assert.Empty(t, eth.sent)
}

func TestEVMCancelledBeforeSigning(t *testing.T) {
	eth := &fakeEth{status: 1}
	p, acc := newEVM(t, eth)
	require.NoError(t, p.Connect(context.Background(), acc))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.PlaceBet(ctx, 1, true, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindWallet))
	assert.ErrorIs(t, err, apperr.ErrUserRejected)
	assert.Empty(t, eth.sent)
}

func TestEVMReceiptTimeout(t *testing.T) {
	eth := &fakeEth{status: 1, misses: 1 << 30}
	p, acc := newEVM(t, eth)
	p.receiptTimeout = 30 * time.Millisecond
	require.NoError(t, p.Connect(context.Background(), acc))

	_, err := p.ResolveEvent(context.Background(), 1, false)
	assert.True(t, apperr.Is(err, apperr.KindNetwork))
}

func TestEVMClaimEachBet(t *testing.T) {
	eth := &fakeEth{status: 1}
	p, acc := newEVM(t, eth)
	require.NoError(t, p.Connect(context.Background(), acc))

	_, err := p.Claim(context.Background(), 1, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = p.Claim(context.Background(), 1, []string{"3", "8"})
	require.NoError(t, err)
	require.Len(t, eth.sent, 2)
	assert.Equal(t, p.abi.Methods["claimWinnings"].ID, eth.sent[1].Data()[:4])
	assert.Equal(t, uint64(1), eth.sent[1].Nonce())
}

func TestEVMBalance(t *testing.T) {
	p, acc := newEVM(t, &fakeEth{balance: big.NewInt(5)})
	v, err := p.Balance(context.Background(), acc.Address)
	require.NoError(t, err)
	assert.Equal(t, "5", v.String())

	p, _ = newEVM(t, &fakeEth{})
	_, err = p.Balance(context.Background(), acc.Address)
	assert.True(t, apperr.Is(err, apperr.KindNetwork))

	_, err = p.Balance(context.Background(), "bad")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
