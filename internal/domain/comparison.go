package domain

// Provider names a competitor routing service.
type Provider string

// Competitor providers, in the stable order used for tie-breaks.
const (
	ProviderChainflip Provider = "chainflip"
	ProviderThorSwap  Provider = "thorswap"
	ProviderRelay     Provider = "relay"
)

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}

// ComparisonMetric is a competitor's quoted fee (USD) and settlement time (seconds).
// The zero value is the "no usable quote" sentinel.
type ComparisonMetric struct {
	Provider Provider `json:"provider"`
	Fee      float64  `json:"fee"`
	Time     float64  `json:"time"`
}

// Valid reports whether the metric is a usable quote.
// A non-positive fee or time is treated as unavailable, never as a free quote.
func (m ComparisonMetric) Valid() bool {
	return m.Fee > 0 && m.Time > 0
}

// NoQuote returns the sentinel metric for provider p.
func NoQuote(p Provider) ComparisonMetric {
	return ComparisonMetric{Provider: p}
}
