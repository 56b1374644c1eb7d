package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
)

// DefaultThorURL is the THORSwap aggregator quote endpoint.
const DefaultThorURL = "https://api.thorswap.net/aggregator/tokens/quote"

// Thor quotes swaps through the THORSwap aggregator restricted to THORChain routes.
type Thor struct {
	s    *settings
	http *jsonClient
	log  *zap.Logger
}

var _ Provider = (*Thor)(nil)

// NewThor creates a THORSwap adapter.
func NewThor(opts ...Option) *Thor {
	s := newSettings(DefaultThorURL, opts)
	return &Thor{s: s, http: s.jsonClient(), log: s.log.Named("thor")}
}

// Name returns the provider name.
func (t *Thor) Name() domain.Provider {
	return domain.ProviderThorSwap
}

// Quote returns THORSwap's fee and time, or the sentinel.
func (t *Thor) Quote(ctx context.Context, req QuoteRequest) domain.ComparisonMetric {
	return quoteOrSentinel(ctx, t.Name(), t.log, t, req)
}

type thorQuoteRequest struct {
	SellAsset          string  `json:"sellAsset"`
	BuyAsset           string  `json:"buyAsset"`
	SellAmount         string  `json:"sellAmount"`
	SourceAddress      string  `json:"sourceAddress"`
	DestinationAddress string  `json:"destinationAddress"`
	Affiliate          string  `json:"affiliate,omitempty"`
	AffiliateFee       int     `json:"affiliateFee"`
	Slippage           float64 `json:"slippage"`
	IncludeTx          bool    `json:"includeTx"`
	CfBoost            bool    `json:"cfBoost"`
	Provider           string  `json:"provider"`
}

type thorAssetMeta struct {
	Asset string              `json:"asset"`
	Price decimal.NullDecimal `json:"price"`
}

type thorRoute struct {
	ExpectedBuyAmount decimal.NullDecimal `json:"expectedBuyAmount"`
	EstimatedTime     *struct {
		Total float64 `json:"total"`
	} `json:"estimatedTime"`
	Meta struct {
		Assets []thorAssetMeta `json:"assets"`
	} `json:"meta"`
}

type thorQuoteResponse struct {
	Routes []thorRoute `json:"routes"`
}

// bestThorRoute returns the route with the highest expected output; ties keep
// the first. Routes without an expected output are ignored.
func bestThorRoute(routes []thorRoute) *thorRoute {
	var best *thorRoute
	for i := range routes {
		if !routes[i].ExpectedBuyAmount.Valid {
			continue
		}
		if best == nil || routes[i].ExpectedBuyAmount.Decimal.GreaterThan(best.ExpectedBuyAmount.Decimal) {
			best = &routes[i]
		}
	}
	return best
}

// price returns the USD price the route quotes for asset.
func (r *thorRoute) price(asset string) (decimal.Decimal, bool) {
	for _, m := range r.Meta.Assets {
		if strings.EqualFold(m.Asset, asset) && m.Price.Valid {
			return m.Price.Decimal, true
		}
	}
	return decimal.Decimal{}, false
}

func (t *Thor) fetch(ctx context.Context, req QuoteRequest) (domain.ComparisonMetric, error) {
	sell, buy, status := t.s.mappings.Pair(domain.ProviderThorSwap, req.Src, req.Dst)
	if status != MappingSupported {
		return domain.ComparisonMetric{}, ErrUnsupportedPair
	}

	amount := decimal.NewFromFloat(req.Amount)
	body := thorQuoteRequest{
		SellAsset:    sell.Asset,
		BuyAsset:     buy.Asset,
		SellAmount:   amount.String(),
		Affiliate:    t.s.affiliate,
		AffiliateFee: t.s.affiliateFeeBps,
		Slippage:     t.s.slippagePercent,
		IncludeTx:    true,
		CfBoost:      false,
		Provider:     "THORCHAIN",
	}
	headers := map[string]string{"X-Version": "2"}
	if t.s.apiKey != "" {
		headers["X-Api-Key"] = t.s.apiKey
	}

	var resp thorQuoteResponse
	if err := t.http.post(ctx, t.s.baseURL, body, headers, &resp); err != nil {
		return domain.ComparisonMetric{}, err
	}

	best := bestThorRoute(resp.Routes)
	if best == nil {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no routes", ErrIncompleteQuote)
	}
	if best.EstimatedTime == nil {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no estimated time", ErrIncompleteQuote)
	}

	sellPrice, ok := best.price(sell.Asset)
	if !ok {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no price for %s", ErrIncompleteQuote, sell.Asset)
	}
	buyPrice, ok := best.price(buy.Asset)
	if !ok {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no price for %s", ErrIncompleteQuote, buy.Asset)
	}

	in := amount.Mul(sellPrice)
	out := best.ExpectedBuyAmount.Decimal.Mul(buyPrice)
	fee := in.Sub(out).InexactFloat64()

	t.log.Debug("thor quote",
		zap.String("expected_buy_amount", best.ExpectedBuyAmount.Decimal.String()),
		zap.Float64("fee_usd", fee),
		zap.Float64("time_seconds", best.EstimatedTime.Total),
	)
	return domain.ComparisonMetric{Fee: fee, Time: best.EstimatedTime.Total}, nil
}
