package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/foundersnet-market-poc/internal/client/accounts"
	"github.com/radieske/foundersnet-market-poc/internal/client/ledger"
	"github.com/radieske/foundersnet-market-poc/internal/client/session"
	"github.com/radieske/foundersnet-market-poc/internal/client/storage"
	"github.com/radieske/foundersnet-market-poc/internal/eventview"
	"github.com/radieske/foundersnet-market-poc/internal/shared/apperr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
	"github.com/radieske/foundersnet-market-poc/internal/shared/config"
	"github.com/radieske/foundersnet-market-poc/pkg/contracts/market"
)

func sol(v string) decimal.Decimal {
	d, _ := chainaddr.ToBase(chainaddr.Solana, v)
	return d
}

func TestRenderBoard(t *testing.T) {
	b := session.Board{
		Account:      accounts.DemoAccounts()[1],
		Balance:      sol("90"),
		PreviewStake: sol("10"),
		Rows: []session.Row{
			{
				Event:     market.Event{ID: 1, Name: "Will it rain?", TotalYesAmount: sol("40"), TotalNoAmount: sol("30")},
				Status:    eventview.StatusOpen,
				YesPct:    decimal.RequireFromString("57.14"),
				NoPct:     decimal.RequireFromString("42.86"),
				TimeLeft:  90 * time.Minute,
				YesReturn: sol("16"),
				NoReturn:  sol("20"),
				Choice:    ledger.Yes,
			},
			{
				Event:  market.Event{ID: 3, Name: "Done deal", Resolved: true, Outcome: false},
				Status: eventview.StatusResolved,
				YesPct: decimal.NewFromInt(50),
				NoPct:  decimal.NewFromInt(50),
			},
		},
	}

	out := renderBoard(b, chainaddr.Solana)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "90 SOL")
	assert.Contains(t, out, "Will it rain?")
	assert.Contains(t, out, "57.14%")
	assert.Contains(t, out, "1h30m0s")
	assert.Contains(t, out, "YES 16 SOL / NO 20 SOL")
	assert.Contains(t, out, "your bet: YES")
	assert.Contains(t, out, "outcome NO")
}

func TestRenderBoard_EmptyAndStaleBalance(t *testing.T) {
	out := renderBoard(session.Board{Account: accounts.DemoAccounts()[0], BalanceErr: errors.New("timeout")}, chainaddr.Solana)
	assert.Contains(t, out, "balance may be stale")
	assert.Contains(t, out, "no events yet")
}

func TestRenderAccounts_MarksActiveAndAdmin(t *testing.T) {
	list := accounts.DemoAccounts()
	out := renderAccounts(list, "bob", func(string) decimal.Decimal { return sol("100") }, chainaddr.Solana)
	assert.Contains(t, out, "* Bob")
	assert.Contains(t, out, "(admin)")
	assert.Contains(t, out, "100 SOL")
	assert.Contains(t, out, list[3].Address)
}

func TestNoticePrinter(t *testing.T) {
	var buf bytes.Buffer
	noticePrinter{w: &buf}.Notify(session.Notice{Level: session.LevelSuccess, Title: "Bet placed", Message: "10 SOL on YES"})
	assert.Contains(t, buf.String(), "[Bet placed] 10 SOL on YES")
}

func TestFormatLeft(t *testing.T) {
	assert.Equal(t, "0s", formatLeft(-time.Second))
	assert.Equal(t, "45s", formatLeft(45*time.Second+300*time.Millisecond))
	assert.Equal(t, "2h5m0s", formatLeft(2*time.Hour+5*time.Minute+10*time.Second))
	assert.Equal(t, "3d4h", formatLeft(76*time.Hour))
}

func TestParseEventIDAndExitCode(t *testing.T) {
	id, err := parseEventID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = parseEventID("0")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(apperr.Config("ADMIN_ADDRESS", "missing")))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestRenderEventBets_NamesKnownWallets(t *testing.T) {
	alice := accounts.DemoAccounts()[1]
	byAddress := func(addr string) (accounts.Account, bool) {
		if addr == alice.Address {
			return alice, true
		}
		return accounts.Account{}, false
	}

	out := renderEventBets(3, []ledger.EventBet{
		{Wallet: "0xstranger", Choice: ledger.No},
		{Wallet: alice.Address, Choice: ledger.Yes},
	}, byAddress)
	assert.Contains(t, out, "Bets on event #3")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "0xstranger")
	assert.NotContains(t, out, alice.Address)

	empty := renderEventBets(4, nil, byAddress)
	assert.Contains(t, empty, "no bets recorded")
}

func TestLoadPreset(t *testing.T) {
	p, err := loadPreset(config.ClientConfig{AccountSet: "localnet", Chain: chainaddr.Algorand})
	require.NoError(t, err)
	assert.Equal(t, storage.KeyLocalNetAccount, p.StorageKey)

	p, err = loadPreset(config.ClientConfig{AccountSet: "demo", Chain: chainaddr.Solana})
	require.NoError(t, err)
	assert.Equal(t, storage.KeyDemoAccount, p.StorageKey)
	assert.Equal(t, "admin", p.DefaultID)
}

func TestLoadPresetRejectsAccountsFromAnotherChain(t *testing.T) {
	_, err := loadPreset(config.ClientConfig{AccountSet: "demo", Chain: chainaddr.EVM})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConfig))
	assert.Contains(t, err.Error(), "ACCOUNTS_FILE")
	assert.Equal(t, 2, exitCode(err))

	_, err = loadPreset(config.ClientConfig{AccountSet: "localnet", Chain: chainaddr.Solana})
	assert.True(t, apperr.Is(err, apperr.KindConfig))
}

func TestLoadPresetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`default: dev
accounts:
  - id: dev
    name: Dev
    address: "0x3c0973dc78549E824E49e41CBBAEe73502c5fC91"
    role: admin
`), 0o600))

	p, err := loadPreset(config.ClientConfig{AccountSet: "demo", Chain: chainaddr.EVM, AccountsFile: path})
	require.NoError(t, err)
	assert.Equal(t, "dev", p.DefaultID)

	_, err = loadPreset(config.ClientConfig{AccountSet: "demo", Chain: chainaddr.Solana, AccountsFile: path})
	assert.True(t, apperr.Is(err, apperr.KindConfig))
}
