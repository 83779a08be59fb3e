package accounts

import (
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/radieske/foundersnet-market-poc/internal/client/storage"
	"github.com/radieske/foundersnet-market-poc/internal/shared/chainaddr"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleBettor Role = "bettor"
)

// Account é uma conta demo/teste. Balance é o saldo inicial na unidade base da chain;
// o saldo corrente fica no BalanceCache.
type Account struct {
	ID          string          `yaml:"id"`
	DisplayName string          `yaml:"name"`
	Address     string          `yaml:"address"`
	Role        Role            `yaml:"role"`
	Balance     decimal.Decimal `yaml:"-"`
}

// hundredSOL é o saldo inicial demo em lamports (1 SOL = 1e9 lamports)
var hundredSOL = decimal.NewFromInt(100).Shift(9)

// DemoAccounts são as contas do modo demo (Solana)
func DemoAccounts() []Account {
	return []Account{
		{ID: "admin", DisplayName: "Admin", Address: "3Nv4rUUkigbtqYJomNvRSKiBRLUMPaxdqWdvFU2777uT", Role: RoleAdmin, Balance: hundredSOL},
		{ID: "alice", DisplayName: "Alice", Address: "HJo4gHiC3pMShSM5HYTwynb31FXMe2ocTVzUDX9kpHv7", Role: RoleBettor, Balance: hundredSOL},
		{ID: "bob", DisplayName: "Bob", Address: "DfzBqu6oYMng4qqR9CjJwQmMFXyTdhzVyFNsYrvLEr5b", Role: RoleBettor, Balance: hundredSOL},
		{ID: "charlie", DisplayName: "Charlie", Address: "FBEqV7ytYEfrW8FQdpfNGLVD5DGEZVzm2maq1A5aDrdU", Role: RoleBettor, Balance: hundredSOL},
	}
}

// LocalNetAccounts são as contas pré-financiadas da LocalNet Algorand.
// O id é o próprio endereço, que é o valor persistido em localnet_active_account.
func LocalNetAccounts() []Account {
	list := []Account{
		{DisplayName: "Admin Account", Address: "3ZH2LWCKKRU5BCAIJIIOOGJUQYUZSYLTJP6TKDGPI4JIHN2QINRDWPBDNM", Role: RoleAdmin},
		{DisplayName: "Alice (User 1)", Address: "FTEY5MBG3DADIXW53H7ZBPWAZLSHXSWLSPOV5AXDOZHM45S4T4JSJDOQLE", Role: RoleBettor},
		{DisplayName: "Bob (User 2)", Address: "3IUCKSO5IH2IPGSBL4ZZXH7FEGQDCI7254ASQIBFQDPK7I7CTWOC3IP6WU", Role: RoleBettor},
		{DisplayName: "Charlie (User 3)", Address: "YF4DZ24IGBWZT6NXVKWAAESG25UZFMYCTFF5EZHHLVRYA2ADBD2MSJVESY", Role: RoleBettor},
	}
	for i := range list {
		list[i].ID = list[i].Address
	}
	return list
}

// Preset agrupa lista de contas, chave de persistência e conta padrão
type Preset struct {
	Accounts   []Account
	StorageKey string
	DefaultID  string
}

// DemoPreset: padrão é o admin
func DemoPreset() Preset {
	return Preset{Accounts: DemoAccounts(), StorageKey: storage.KeyDemoAccount, DefaultID: "admin"}
}

// LocalNetPreset: padrão é a Alice, nunca o admin
func LocalNetPreset() Preset {
	list := LocalNetAccounts()
	return Preset{Accounts: list, StorageKey: storage.KeyLocalNetAccount, DefaultID: list[1].ID}
}

// Validate confere os endereços do preset contra a chain configurada
func (p Preset) Validate(chain chainaddr.Chain) error {
	for _, a := range p.Accounts {
		if err := chainaddr.Validate(chain, a.Address); err != nil {
			return errors.Wrapf(err, "account %s", a.ID)
		}
	}
	return nil
}

type fileAccount struct {
	Account `yaml:",inline"`
	Balance string `yaml:"balance"`
}

type accountsFile struct {
	DefaultID string        `yaml:"default"`
	Accounts  []fileAccount `yaml:"accounts"`
}

// LoadFile lê contas de um YAML e valida os endereços para a chain
func LoadFile(path string, chain chainaddr.Chain, storageKey string) (Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, errors.Wrap(err, "read accounts file")
	}
	var f accountsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Preset{}, errors.Wrap(err, "parse accounts file")
	}
	if len(f.Accounts) == 0 {
		return Preset{}, errors.New("accounts file has no accounts")
	}

	out := Preset{StorageKey: storageKey, DefaultID: f.DefaultID}
	for _, fa := range f.Accounts {
		a := fa.Account
		if a.ID == "" {
			a.ID = a.Address
		}
		if a.Role == "" {
			a.Role = RoleBettor
		}
		if a.Role != RoleAdmin && a.Role != RoleBettor {
			return Preset{}, errors.Errorf("account %s: unknown role %q", a.ID, a.Role)
		}
		if err := chainaddr.Validate(chain, a.Address); err != nil {
			return Preset{}, errors.Wrapf(err, "account %s", a.ID)
		}
		if fa.Balance != "" {
			if a.Balance, err = decimal.NewFromString(fa.Balance); err != nil {
				return Preset{}, errors.Wrapf(err, "account %s balance", a.ID)
			}
		}
		out.Accounts = append(out.Accounts, a)
	}
	if out.DefaultID == "" {
		out.DefaultID = out.Accounts[0].ID
	}
	return out, nil
}
