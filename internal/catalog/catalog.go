// Package catalog resolves asset references against the network asset catalog.
package catalog

import (
	"strings"

	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/observability"
)

// DefaultDecimals is used when a chain or asset is missing from the catalog.
const DefaultDecimals = 8

// Options configures a Catalog.
type Options struct {
	Logger *zap.Logger
	// MatchSymbol enables the secondary match on symbol and token address
	// when no atomic swap address matches.
	MatchSymbol bool
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{MatchSymbol: true}
}

type chainIndex struct {
	bySwap   map[string]domain.AssetConfig
	bySymbol map[string]domain.AssetConfig
	byToken  map[string]domain.AssetConfig
}

// Catalog is a read-only snapshot of a NetworkCatalog, indexed for lookups.
// Safe for concurrent readers.
type Catalog struct {
	networks domain.NetworkCatalog
	chains   map[string]*chainIndex
	opts     Options
	log      *zap.Logger
}

// New indexes networks. The snapshot must not be modified afterwards.
func New(networks domain.NetworkCatalog, opts Options) *Catalog {
	c := &Catalog{
		networks: networks,
		chains:   make(map[string]*chainIndex, len(networks)),
		opts:     opts,
		log:      logging.OrNop(opts.Logger).Named("catalog"),
	}
	for chain, info := range networks {
		idx := &chainIndex{
			bySwap:   make(map[string]domain.AssetConfig, len(info.AssetConfig)),
			bySymbol: make(map[string]domain.AssetConfig, len(info.AssetConfig)),
			byToken:  make(map[string]domain.AssetConfig, len(info.AssetConfig)),
		}
		for _, a := range info.AssetConfig {
			a.Chain = chain
			if a.AtomicSwapAddress != "" {
				idx.bySwap[refKey(a.AtomicSwapAddress)] = a
			}
			if a.Symbol != "" {
				if _, dup := idx.bySymbol[refKey(a.Symbol)]; !dup {
					idx.bySymbol[refKey(a.Symbol)] = a
				}
			}
			if a.TokenAddress != "" {
				if _, dup := idx.byToken[refKey(a.TokenAddress)]; !dup {
					idx.byToken[refKey(a.TokenAddress)] = a
				}
			}
		}
		c.chains[chainKey(chain)] = idx
	}
	return c
}

func chainKey(chain string) string {
	return strings.ToLower(strings.TrimSpace(chain))
}

// HasChain reports whether chain is present in the snapshot.
func (c *Catalog) HasChain(chain string) bool {
	_, ok := c.chains[chainKey(chain)]
	return ok
}

// Networks returns the underlying snapshot.
func (c *Catalog) Networks() domain.NetworkCatalog {
	return c.networks
}

// Lookup finds the asset config for ref on chain. The atomic swap address
// is matched first, then symbol and token address when enabled.
func (c *Catalog) Lookup(chain, ref string) (domain.AssetConfig, bool) {
	idx, ok := c.chains[chainKey(chain)]
	if !ok {
		return domain.AssetConfig{}, false
	}
	key := refKey(ref)
	if a, ok := idx.bySwap[key]; ok {
		return a, true
	}
	if !c.opts.MatchSymbol {
		return domain.AssetConfig{}, false
	}
	if a, ok := idx.bySymbol[key]; ok {
		return a, true
	}
	if a, ok := idx.byToken[key]; ok {
		return a, true
	}
	return domain.AssetConfig{}, false
}

// Decimals returns the decimals of ref on chain, or DefaultDecimals on a miss.
// A miss is logged and counted; it may produce wrong quantities for non-8-decimal assets.
func (c *Catalog) Decimals(chain, ref string) int {
	if a, ok := c.Lookup(chain, ref); ok {
		return a.Decimals
	}
	c.log.Warn("asset not in catalog, using default decimals",
		zap.String("chain", chain),
		zap.String("asset", ref),
		zap.Int("decimals", DefaultDecimals),
	)
	observability.RecordCatalogMiss(chain)
	return DefaultDecimals
}

// ResolveAsset builds the canonical descriptor for ref on chain.
func (c *Catalog) ResolveAsset(chain, ref string) (domain.Asset, bool) {
	a, ok := c.Lookup(chain, ref)
	if !ok {
		return domain.Asset{}, false
	}
	return domain.Asset{
		Chain:             chain,
		Symbol:            a.Symbol,
		Name:              a.Name,
		Decimals:          a.Decimals,
		TokenAddress:      NormalizeRef(a.TokenAddress),
		AtomicSwapAddress: NormalizeRef(a.AtomicSwapAddress),
	}, true
}

// SyntheticAsset builds a descriptor from the raw reference when the catalog
// has no entry. The reference doubles as symbol and token address.
func (c *Catalog) SyntheticAsset(chain, ref string) domain.Asset {
	norm := NormalizeRef(ref)
	return domain.Asset{
		Chain:             chain,
		Symbol:            norm,
		Name:              norm,
		Decimals:          c.Decimals(chain, ref),
		TokenAddress:      norm,
		AtomicSwapAddress: norm,
	}
}
