package conversion

import (
	"strings"

	"garden-volume-watch/internal/domain"
)

// Default settlement time estimates in seconds.
const (
	DefaultBitcoinSeconds = 600
	DefaultFastSeconds    = 30
)

// GardenTimeTable maps chain to the expected own settlement time in seconds.
// Chains without an entry use the "default" key.
type GardenTimeTable map[string]float64

// DefaultGardenTimes returns the built-in estimates: Bitcoin ~10m, others ~30s.
func DefaultGardenTimes() GardenTimeTable {
	return GardenTimeTable{
		domain.ChainBitcoin: DefaultBitcoinSeconds,
		"btc":               DefaultBitcoinSeconds,
		"default":           DefaultFastSeconds,
	}
}

// Seconds returns the estimate for chain.
func (t GardenTimeTable) Seconds(chain string) float64 {
	c := strings.ToLower(strings.TrimSpace(chain))
	if v, ok := t[c]; ok {
		return v
	}
	if domain.IsBitcoinChain(c) {
		if v, ok := t[domain.ChainBitcoin]; ok {
			return v
		}
	}
	if v, ok := t["default"]; ok {
		return v
	}
	return DefaultFastSeconds
}
