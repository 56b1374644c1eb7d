package publish

import (
	"fmt"
	"strings"

	"garden-volume-watch/internal/comparison"
	"garden-volume-watch/internal/domain"
)

// chainNames maps chain identifiers to display names. Testnets read as their mainnet.
var chainNames = map[string]string{
	"bitcoin":          "Bitcoin",
	"bitcoin_testnet":  "Bitcoin",
	"ethereum":         "Ethereum",
	"ethereum_sepolia": "Ethereum",
	"arbitrum":         "Arbitrum",
	"arbitrum_sepolia": "Arbitrum",
	"base":             "Base",
	"base_sepolia":     "Base",
	"optimism":         "Optimism",
	"polygon":          "Polygon",
	"bera":             "Berachain",
	"unichain":         "Unichain",
	"hyperliquid":      "Hyperliquid",
	"solana":           "Solana",
	"solana_testnet":   "Solana",
	"starknet":         "StarkNet",
	"starknet_sepolia": "StarkNet",
	"bnbchain":         "BNB Chain",
	"citrea_testnet":   "Citrea",
	"monad_testnet":    "Monad",
	"corn":             "Corn",
	"botanix":          "Botanix",
}

// FormatChainName returns the display name for a chain identifier,
// or the identifier itself when unknown.
func FormatChainName(chain string) string {
	if name, ok := chainNames[strings.ToLower(chain)]; ok {
		return name
	}
	return chain
}

// FormatCurrency renders a USD amount with a B/M/K suffix above a thousand
// ("$1.25M", "$12.30K") and as a plain dollar amount below.
// Suffixed values drop the sign.
func FormatCurrency(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", abs/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", abs/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.2fK", abs/1e3)
	}
	return comparison.FormatUSD(v)
}

// FormatMessage builds the alert text posted for a high-volume outcome.
func FormatMessage(o *domain.NormalizedOutcome) string {
	return fmt.Sprintf("🚨 High Swap Alert! 🚨\n\n%.2f USD from %s to %s\n\n#DeFi #Crypto #CrossChain",
		o.VolumeUSD, FormatChainName(o.SourceChain), FormatChainName(o.DestinationChain))
}
