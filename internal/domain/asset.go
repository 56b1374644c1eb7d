package domain

import "strings"

// AssetConfig describes one asset supported on a chain.
// Corresponds to an entry of assetConfig in the network catalog response.
type AssetConfig struct {
	Name              string `json:"name"`
	Decimals          int    `json:"decimals"`
	Symbol            string `json:"symbol"`
	Logo              string `json:"logo,omitempty"`
	TokenAddress      string `json:"tokenAddress"`
	AtomicSwapAddress string `json:"atomicSwapAddress"`
	MinAmount         string `json:"min_amount,omitempty"`
	MaxAmount         string `json:"max_amount,omitempty"`

	// Chain is filled in by the catalog loader; the API nests assets under the chain key.
	Chain string `json:"-"`
}

// NetworkInfo describes one chain in the network catalog.
type NetworkInfo struct {
	ChainID     string        `json:"chainId"`
	NetworkLogo string        `json:"networkLogo,omitempty"`
	Explorer    string        `json:"explorer,omitempty"`
	NetworkType string        `json:"networkType,omitempty"`
	Name        string        `json:"name"`
	AssetConfig []AssetConfig `json:"assetConfig"`
	Identifier  string        `json:"identifier,omitempty"`
}

// NetworkCatalog maps chain identifier to its network info.
// Loaded once per poll cycle and treated as immutable while a batch converts.
type NetworkCatalog map[string]NetworkInfo

// Asset is the canonical descriptor of one leg's asset, resolved from the catalog.
type Asset struct {
	Chain             string
	Symbol            string
	Name              string
	Decimals          int
	TokenAddress      string
	AtomicSwapAddress string
}

// Chain identifiers used across the feed and the provider mapping tables.
const (
	ChainBitcoin         = "bitcoin"
	ChainBitcoinTestnet  = "bitcoin_testnet"
	ChainBitcoinRegtest  = "bitcoin_regtest"
	ChainEthereum        = "ethereum"
	ChainArbitrum        = "arbitrum"
	ChainBase            = "base"
	ChainBerachain       = "bera"
	ChainUnichain        = "unichain"
	ChainHyperliquid     = "hyperliquid"
	ChainSolana          = "solana"
	ChainStarknet        = "starknet"
	ChainEthereumSepolia = "ethereum_sepolia"
	ChainArbitrumSepolia = "arbitrum_sepolia"
	ChainBaseSepolia     = "base_sepolia"
)

// IsBitcoinChain reports whether chain is a Bitcoin network.
// Bitcoin legs dominate settlement time because of block confirmation.
func IsBitcoinChain(chain string) bool {
	c := strings.ToLower(chain)
	return c == "btc" || c == ChainBitcoin || strings.HasPrefix(c, ChainBitcoin+"_")
}

// IsSolanaChain reports whether chain is a Solana network.
func IsSolanaChain(chain string) bool {
	c := strings.ToLower(chain)
	return c == ChainSolana || strings.HasPrefix(c, ChainSolana+"_")
}

// IsTestnetChain reports whether chain names a test network.
func IsTestnetChain(chain string) bool {
	c := strings.ToLower(chain)
	return strings.HasSuffix(c, "_testnet") || strings.HasSuffix(c, "_sepolia") ||
		strings.HasSuffix(c, "_regtest") || strings.HasSuffix(c, "_localnet")
}
