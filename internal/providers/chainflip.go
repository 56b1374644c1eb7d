package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/units"
)

// DefaultChainflipURL is the Chainflip swap service base URL.
const DefaultChainflipURL = "https://chainflip-swap.chainflip.io"

// Chainflip quotes swaps through the Chainflip swap service.
type Chainflip struct {
	s    *settings
	http *jsonClient
	log  *zap.Logger
}

var _ Provider = (*Chainflip)(nil)

// NewChainflip creates a Chainflip adapter.
func NewChainflip(opts ...Option) *Chainflip {
	s := newSettings(DefaultChainflipURL, opts)
	return &Chainflip{s: s, http: s.jsonClient(), log: s.log.Named("chainflip")}
}

// Name returns the provider name.
func (c *Chainflip) Name() domain.Provider {
	return domain.ProviderChainflip
}

// Quote returns Chainflip's fee and time, or the sentinel.
func (c *Chainflip) Quote(ctx context.Context, req QuoteRequest) domain.ComparisonMetric {
	return quoteOrSentinel(ctx, c.Name(), c.log, c, req)
}

type chainflipQuote struct {
	Type                     string              `json:"type"`
	EgressAmount             decimal.NullDecimal `json:"egressAmount"`
	EstimatedDurationSeconds *float64            `json:"estimatedDurationSeconds"`
}

// pickChainflipQuote prefers the REGULAR quote over DCA variants.
func pickChainflipQuote(quotes []chainflipQuote) *chainflipQuote {
	if len(quotes) == 0 {
		return nil
	}
	for i := range quotes {
		if strings.EqualFold(quotes[i].Type, "REGULAR") {
			return &quotes[i]
		}
	}
	return &quotes[0]
}

func (c *Chainflip) fetch(ctx context.Context, req QuoteRequest) (domain.ComparisonMetric, error) {
	src, dst, status := c.s.mappings.Pair(domain.ProviderChainflip, req.Src, req.Dst)
	if status != MappingSupported {
		return domain.ComparisonMetric{}, ErrUnsupportedPair
	}

	amount, err := units.ToMinorUnits(req.Amount, req.Src.Decimals)
	if err != nil {
		return domain.ComparisonMetric{}, fmt.Errorf("source amount: %w", err)
	}

	q := url.Values{}
	q.Set("amount", amount)
	q.Set("srcChain", src.Chain)
	q.Set("srcAsset", src.Asset)
	q.Set("destChain", dst.Chain)
	q.Set("destAsset", dst.Asset)
	endpoint := strings.TrimRight(c.s.baseURL, "/") + "/v2/quote?" + q.Encode()

	var quotes []chainflipQuote
	if err := c.http.get(ctx, endpoint, nil, &quotes); err != nil {
		return domain.ComparisonMetric{}, err
	}

	quote := pickChainflipQuote(quotes)
	if quote == nil {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no quotes", ErrIncompleteQuote)
	}
	if quote.EstimatedDurationSeconds == nil {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no duration", ErrIncompleteQuote)
	}
	if !quote.EgressAmount.Valid {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no egress amount", ErrIncompleteQuote)
	}

	egress, err := units.ToReal(quote.EgressAmount.Decimal, req.Dst.Decimals)
	if err != nil {
		return domain.ComparisonMetric{}, fmt.Errorf("egress amount: %w", err)
	}
	in := decimal.NewFromFloat(req.Amount).Mul(decimal.NewFromFloat(req.SrcPriceUSD))
	out := egress.Mul(decimal.NewFromFloat(req.DstPriceUSD))
	fee := in.Sub(out).InexactFloat64()

	c.log.Debug("chainflip quote",
		zap.String("type", quote.Type),
		zap.String("egress_amount", quote.EgressAmount.Decimal.String()),
		zap.Float64("fee_usd", fee),
	)
	return domain.ComparisonMetric{Fee: fee, Time: *quote.EstimatedDurationSeconds}, nil
}
