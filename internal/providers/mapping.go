package providers

import (
	"strings"

	"garden-volume-watch/internal/domain"
)

// MappingStatus is the outcome of a mapping lookup.
type MappingStatus int

const (
	MappingUnsupported MappingStatus = iota
	MappingSupported
)

func (s MappingStatus) String() string {
	if s == MappingSupported {
		return "supported"
	}
	return "unsupported"
}

// Route is a provider's identifier for one asset.
//
// Relay: Chain is the numeric chain id, Asset the currency address.
// Thor: Chain is the THORChain chain code, Asset the full asset string.
// Chainflip: Chain and Asset are the chain and asset names of the quote API.
type Route struct {
	Chain string
	Asset string
}

// MappingTable maps provider and chain:SYMBOL to the provider route.
type MappingTable map[domain.Provider]map[string]Route

// mappingKey builds the case-insensitive key for chain and symbol.
func mappingKey(chain, symbol string) string {
	return strings.ToLower(strings.TrimSpace(chain)) + ":" + strings.ToUpper(strings.TrimSpace(symbol))
}

// Lookup returns the provider route for asset. The status is MappingUnsupported
// when the provider or the asset has no entry.
func (t MappingTable) Lookup(p domain.Provider, asset domain.Asset) (Route, MappingStatus) {
	routes, ok := t[p]
	if !ok {
		return Route{}, MappingUnsupported
	}
	r, ok := routes[mappingKey(asset.Chain, asset.Symbol)]
	if !ok {
		return Route{}, MappingUnsupported
	}
	return r, MappingSupported
}

// Pair looks up both sides of a swap.
func (t MappingTable) Pair(p domain.Provider, src, dst domain.Asset) (Route, Route, MappingStatus) {
	s, ok := t.Lookup(p, src)
	if ok != MappingSupported {
		return Route{}, Route{}, MappingUnsupported
	}
	d, ok := t.Lookup(p, dst)
	if ok != MappingSupported {
		return Route{}, Route{}, MappingUnsupported
	}
	return s, d, MappingSupported
}

// Lookup resolves asset against the default mapping table.
func Lookup(p domain.Provider, asset domain.Asset) (Route, MappingStatus) {
	return defaultMappings.Lookup(p, asset)
}

// Relay chain ids and placeholder accounts used when no real user is known.
const (
	RelayBTCMainnetChainID = "8253038"
	RelayBTCTestnetChainID = "9092725"
	RelayBTCCurrency       = "bc1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"
	RelayNativeCurrency    = "0x0000000000000000000000000000000000000000"

	EVMDeadAddress        = "0x000000000000000000000000000000000000dEaD"
	BTCMainnetPlaceholder = "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"
	BTCTestnetPlaceholder = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
)

var defaultMappings = MappingTable{
	domain.ProviderRelay: {
		mappingKey(domain.ChainBitcoin, "BTC"):        {Chain: RelayBTCMainnetChainID, Asset: RelayBTCCurrency},
		mappingKey(domain.ChainBitcoinTestnet, "BTC"): {Chain: RelayBTCTestnetChainID, Asset: RelayBTCCurrency},
		mappingKey(domain.ChainEthereum, "ETH"):       {Chain: "1", Asset: RelayNativeCurrency},
		mappingKey(domain.ChainEthereum, "WBTC"):      {Chain: "1", Asset: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"},
		mappingKey(domain.ChainEthereum, "CBBTC"):     {Chain: "1", Asset: "0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf"},
		mappingKey(domain.ChainEthereum, "USDC"):      {Chain: "1", Asset: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
		mappingKey(domain.ChainEthereum, "USDT"):      {Chain: "1", Asset: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
		mappingKey(domain.ChainArbitrum, "ETH"):       {Chain: "42161", Asset: RelayNativeCurrency},
		mappingKey(domain.ChainArbitrum, "WBTC"):      {Chain: "42161", Asset: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"},
		mappingKey(domain.ChainArbitrum, "USDC"):      {Chain: "42161", Asset: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"},
		mappingKey(domain.ChainBase, "ETH"):           {Chain: "8453", Asset: RelayNativeCurrency},
		mappingKey(domain.ChainBase, "CBBTC"):         {Chain: "8453", Asset: "0xcbB7C0000aB88B473b1f5aFd9ef808440eed33Bf"},
		mappingKey(domain.ChainBase, "USDC"):          {Chain: "8453", Asset: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"},
		mappingKey(domain.ChainUnichain, "ETH"):       {Chain: "130", Asset: RelayNativeCurrency},
		mappingKey(domain.ChainBerachain, "BERA"):     {Chain: "80094", Asset: RelayNativeCurrency},
	},
	domain.ProviderThorSwap: {
		mappingKey(domain.ChainBitcoin, "BTC"):    {Chain: "BTC", Asset: "BTC.BTC"},
		mappingKey(domain.ChainEthereum, "ETH"):   {Chain: "ETH", Asset: "ETH.ETH"},
		mappingKey(domain.ChainEthereum, "WBTC"):  {Chain: "ETH", Asset: "ETH.WBTC-0X2260FAC5E5542A773AA44FBCFEDF7C193BC2C599"},
		mappingKey(domain.ChainEthereum, "USDC"):  {Chain: "ETH", Asset: "ETH.USDC-0XA0B86991C6218B36C1D19D4A2E9EB0CE3606EB48"},
		mappingKey(domain.ChainEthereum, "USDT"):  {Chain: "ETH", Asset: "ETH.USDT-0XDAC17F958D2EE523A2206206994597C13D831EC7"},
		mappingKey(domain.ChainEthereum, "CBBTC"): {Chain: "ETH", Asset: "ETH.CBBTC-0XCBB7C0000AB88B473B1F5AFD9EF808440EED33BF"},
		mappingKey(domain.ChainBase, "ETH"):       {Chain: "BASE", Asset: "BASE.ETH"},
		mappingKey(domain.ChainBase, "CBBTC"):     {Chain: "BASE", Asset: "BASE.CBBTC-0XCBB7C0000AB88B473B1F5AFD9EF808440EED33BF"},
		mappingKey(domain.ChainBase, "USDC"):      {Chain: "BASE", Asset: "BASE.USDC-0X833589FCD6EDB6E08F4C7C32D4F71B54BDA02913"},
	},
	domain.ProviderChainflip: {
		mappingKey(domain.ChainBitcoin, "BTC"):   {Chain: "Bitcoin", Asset: "BTC"},
		mappingKey(domain.ChainEthereum, "ETH"):  {Chain: "Ethereum", Asset: "ETH"},
		mappingKey(domain.ChainEthereum, "USDC"): {Chain: "Ethereum", Asset: "USDC"},
		mappingKey(domain.ChainEthereum, "USDT"): {Chain: "Ethereum", Asset: "USDT"},
		mappingKey(domain.ChainEthereum, "FLIP"): {Chain: "Ethereum", Asset: "FLIP"},
		mappingKey(domain.ChainArbitrum, "ETH"):  {Chain: "Arbitrum", Asset: "ETH"},
		mappingKey(domain.ChainArbitrum, "USDC"): {Chain: "Arbitrum", Asset: "USDC"},
		mappingKey(domain.ChainSolana, "SOL"):    {Chain: "Solana", Asset: "SOL"},
		mappingKey(domain.ChainSolana, "USDC"):   {Chain: "Solana", Asset: "USDC"},
	},
}

// DefaultMappings returns a copy of the built-in mapping table.
func DefaultMappings() MappingTable {
	out := make(MappingTable, len(defaultMappings))
	for p, routes := range defaultMappings {
		cp := make(map[string]Route, len(routes))
		for k, v := range routes {
			cp[k] = v
		}
		out[p] = cp
	}
	return out
}

// Add registers a route for provider p, replacing any existing one.
func (t MappingTable) Add(p domain.Provider, chain, symbol string, r Route) {
	if t[p] == nil {
		t[p] = make(map[string]Route)
	}
	t[p][mappingKey(chain, symbol)] = r
}
