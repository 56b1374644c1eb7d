package providers

import (
	"slices"

	"go.uber.org/zap"

	"garden-volume-watch/internal/config"
	"garden-volume-watch/internal/domain"
)

// FromConfig builds the enabled adapters in the default order
// (Chainflip, Thor, Relay). The result is never nil, so disabling every
// provider yields an empty set rather than the defaults.
func FromConfig(cfg *config.Config, log *zap.Logger) []Provider {
	pc := cfg.Providers
	common := []Option{WithTimeout(pc.Timeout), WithLogger(log)}

	out := []Provider{}
	if cfg.ProviderEnabled(string(domain.ProviderChainflip)) {
		out = append(out, NewChainflip(slices.Concat(common, endpoint(pc.Chainflip))...))
	}
	if cfg.ProviderEnabled(string(domain.ProviderThorSwap)) {
		opts := slices.Concat(common, endpoint(pc.Thor.ProviderConfig))
		opts = append(opts, WithAPIKey(pc.Thor.APIKey), WithAffiliate(pc.Thor.Affiliate, pc.Thor.AffiliateFeeBps))
		out = append(out, NewThor(opts...))
	}
	if cfg.ProviderEnabled(string(domain.ProviderRelay)) {
		opts := slices.Concat(common, endpoint(pc.Relay.ProviderConfig))
		if pc.Relay.BitcoinSwapTime > 0 {
			opts = append(opts, WithBitcoinSwapTime(pc.Relay.BitcoinSwapTime))
		}
		out = append(out, NewRelay(opts...))
	}
	return out
}

func endpoint(pc config.ProviderConfig) []Option {
	var opts []Option
	if pc.URL != "" {
		opts = append(opts, WithBaseURL(pc.URL))
	}
	if pc.RateLimit > 0 {
		opts = append(opts, WithRateLimit(pc.RateLimit, pc.Burst))
	}
	return opts
}
