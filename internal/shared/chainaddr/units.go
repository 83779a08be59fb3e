package chainaddr

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ToBase converte um valor digitado na moeda nativa (ex: "0.5" SOL) para a unidade base
func ToBase(chain Chain, display string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(display))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", display)
	}
	base := d.Shift(Decimals[chain])
	if !base.Equal(base.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimals", display, Decimals[chain])
	}
	return base, nil
}

// FromBase converte da unidade base para a moeda nativa
func FromBase(chain Chain, base decimal.Decimal) decimal.Decimal {
	return base.Shift(-Decimals[chain])
}

// Format exibe um valor em unidade base como "1.5 SOL"
func Format(chain Chain, base decimal.Decimal) string {
	return FromBase(chain, base).String() + " " + Symbol[chain]
}
