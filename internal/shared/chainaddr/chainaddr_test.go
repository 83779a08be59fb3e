package chainaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evmAdmin    = "0x3c0973dc78549E824E49e41CBBAEe73502c5fC91"
	solanaAdmin = "3Nv4rUUkigbtqYJomNvRSKiBRLUMPaxdqWdvFU2777uT"
)

func TestParseChain(t *testing.T) {
	for in, want := range map[string]Chain{"evm": EVM, "Polygon": EVM, "ALGORAND": Algorand, " solana ": Solana} {
		got, err := ParseChain(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseChain("bitcoin")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(EVM, evmAdmin))
	assert.Error(t, Validate(EVM, "0xAdmin123"))

	assert.NoError(t, Validate(Solana, solanaAdmin))
	assert.Error(t, Validate(Solana, "not-base58-0OIl"))

	assert.Error(t, Validate(Algorand, "SHORT"))
	assert.Error(t, Validate(Algorand, "3ZH2LWCKKRU5BCAIJIIOOGJUQYUZSYLTJP6TKDGPI4JIHN2QINRDWPBDNA"))
}

func TestEqualIsChainAware(t *testing.T) {
	// hex ignora caixa
	assert.True(t, Equal(EVM, evmAdmin, "0x3C0973DC78549E824E49E41CBBAEE73502C5FC91"))
	// base58 não
	assert.False(t, Equal(Solana, solanaAdmin, "3nv4rUUkigbtqYJomNvRSKiBRLUMPaxdqWdvFU2777uT"))
	assert.True(t, Equal(Solana, solanaAdmin, " "+solanaAdmin))
	// base32 é canônico em maiúsculas
	assert.True(t, Equal(Algorand, "fTEY5MBG", "FTEY5MBG"))
	assert.False(t, Equal(EVM, "", ""))
}
