// Package providers quotes competitor routing services for a swap and reduces
// each answer to a fee (USD) and settlement time (seconds).
package providers

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
)

// ErrUnsupportedPair is returned when either asset has no provider mapping.
var ErrUnsupportedPair = errors.New("unsupported asset pair")

// ErrIncompleteQuote is returned when a response lacks the fields needed for fee or time.
var ErrIncompleteQuote = errors.New("incomplete quote")

// QuoteRequest describes the swap to quote.
type QuoteRequest struct {
	Src    domain.Asset
	Dst    domain.Asset
	Amount float64 // real source quantity

	// Settlement prices, used by providers that quote amounts without USD values.
	SrcPriceUSD float64
	DstPriceUSD float64
}

// Provider quotes one competitor. Quote never fails: any error resolves to
// the no-quote sentinel for that provider.
type Provider interface {
	Name() domain.Provider
	Quote(ctx context.Context, req QuoteRequest) domain.ComparisonMetric
}

// quoter is implemented by each adapter; fetch reports the reason a quote failed.
type quoter interface {
	fetch(ctx context.Context, req QuoteRequest) (domain.ComparisonMetric, error)
}

// quoteOrSentinel runs q and converts failures to the sentinel with a warning.
func quoteOrSentinel(ctx context.Context, name domain.Provider, log *zap.Logger, q quoter, req QuoteRequest) domain.ComparisonMetric {
	m, err := q.fetch(ctx, req)
	if err != nil {
		level := log.Warn
		if errors.Is(err, ErrUnsupportedPair) {
			level = log.Debug
		}
		level("quote unavailable",
			zap.String("provider", name.String()),
			zap.String("src", req.Src.Chain+":"+req.Src.Symbol),
			zap.String("dst", req.Dst.Chain+":"+req.Dst.Symbol),
			zap.Error(err),
		)
		return domain.NoQuote(name)
	}
	m.Provider = name
	return m
}

// Defaults returns the three competitor adapters in tie-break order:
// Chainflip, Thor, Relay.
func Defaults(opts ...Option) []Provider {
	return []Provider{
		NewChainflip(opts...),
		NewThor(opts...),
		NewRelay(opts...),
	}
}
