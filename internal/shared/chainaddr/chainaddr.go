// Package chainaddr valida e compara endereços nos três formatos suportados:
// hex (EVM), base32 (Algorand) e base58 (Solana).
package chainaddr

import (
	"crypto/sha512"
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
)

type Chain string

const (
	EVM      Chain = "evm"
	Algorand Chain = "algorand"
	Solana   Chain = "solana"
)

// Decimals é a quantidade de casas da unidade base de cada chain (wei, microalgo, lamport)
var Decimals = map[Chain]int32{
	EVM:      18,
	Algorand: 6,
	Solana:   9,
}

// Symbol da moeda nativa exibida ao usuário
var Symbol = map[Chain]string{
	EVM:      "ETH",
	Algorand: "ALGO",
	Solana:   "SOL",
}

func ParseChain(s string) (Chain, error) {
	switch c := Chain(strings.ToLower(strings.TrimSpace(s))); c {
	case EVM, Algorand, Solana:
		return c, nil
	case "ethereum", "polygon":
		return EVM, nil
	default:
		return "", fmt.Errorf("unsupported chain %q", s)
	}
}

const algorandAddressLen = 58

var algorandEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Validate verifica o formato do endereço para a chain informada
func Validate(chain Chain, addr string) error {
	switch chain {
	case EVM:
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid hex address %q", addr)
		}
	case Algorand:
		if len(addr) != algorandAddressLen {
			return fmt.Errorf("algorand address must have %d characters", algorandAddressLen)
		}
		raw, err := algorandEncoding.DecodeString(addr)
		if err != nil || len(raw) != 36 {
			return fmt.Errorf("invalid base32 address %q", addr)
		}
		// checksum: últimos 4 bytes do sha512/256 da chave pública
		sum := sha512.Sum512_256(raw[:32])
		if string(sum[28:]) != string(raw[32:]) {
			return fmt.Errorf("bad checksum in address %q", addr)
		}
	case Solana:
		if raw := base58.Decode(addr); len(raw) != 32 {
			return fmt.Errorf("invalid base58 address %q", addr)
		}
	default:
		return fmt.Errorf("unsupported chain %q", chain)
	}
	return nil
}

// Normalize devolve a forma canônica usada nas comparações.
// Hex ignora caixa; base32 da Algorand é sempre maiúsculo; base58 é sensível à caixa.
func Normalize(chain Chain, addr string) string {
	addr = strings.TrimSpace(addr)
	switch chain {
	case EVM:
		if common.IsHexAddress(addr) {
			return strings.ToLower(common.HexToAddress(addr).Hex())
		}
		return strings.ToLower(addr)
	case Algorand:
		return strings.ToUpper(addr)
	default:
		return addr
	}
}

// Equal compara dois endereços respeitando as regras de caixa de cada chain
func Equal(chain Chain, a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return Normalize(chain, a) == Normalize(chain, b)
}
