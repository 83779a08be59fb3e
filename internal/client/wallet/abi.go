package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Subconjunto de escrita do contrato PredictionMarket
const predictionMarketABIJSON = `[
	{"type":"function","name":"createEvent","stateMutability":"nonpayable",
	 "inputs":[{"name":"name","type":"string"},{"name":"endTime","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"placeBet","stateMutability":"payable",
	 "inputs":[{"name":"eventId","type":"uint256"},{"name":"outcome","type":"bool"}],"outputs":[]},
	{"type":"function","name":"resolveEvent","stateMutability":"nonpayable",
	 "inputs":[{"name":"eventId","type":"uint256"},{"name":"outcome","type":"bool"}],"outputs":[]},
	{"type":"function","name":"claimWinnings","stateMutability":"nonpayable",
	 "inputs":[{"name":"betId","type":"uint256"}],"outputs":[]}
]`

func predictionMarketABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(predictionMarketABIJSON))
	if err != nil {
		panic("failed to parse PredictionMarket ABI: " + err.Error())
	}
	return parsed
}
