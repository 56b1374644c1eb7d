package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/units"
)

// Relay defaults.
const (
	DefaultRelayURL = "https://api.relay.link/quote"

	// DefaultRelayBitcoinSwapTime replaces Relay's quoted time whenever a Bitcoin
	// leg is involved; block confirmations dominate the routing estimate.
	DefaultRelayBitcoinSwapTime = 1200
)

// Relay quotes swaps through the Relay bridge API.
type Relay struct {
	s    *settings
	http *jsonClient
	log  *zap.Logger
}

var _ Provider = (*Relay)(nil)

// NewRelay creates a Relay adapter.
func NewRelay(opts ...Option) *Relay {
	s := newSettings(DefaultRelayURL, opts)
	return &Relay{s: s, http: s.jsonClient(), log: s.log.Named("relay")}
}

// Name returns the provider name.
func (r *Relay) Name() domain.Provider {
	return domain.ProviderRelay
}

// Quote returns Relay's fee and time, or the sentinel.
func (r *Relay) Quote(ctx context.Context, req QuoteRequest) domain.ComparisonMetric {
	return quoteOrSentinel(ctx, r.Name(), r.log, r, req)
}

type relayQuoteRequest struct {
	User                string `json:"user"`
	OriginChainID       string `json:"originChainId"`
	DestinationChainID  string `json:"destinationChainId"`
	OriginCurrency      string `json:"originCurrency"`
	DestinationCurrency string `json:"destinationCurrency"`
	Recipient           string `json:"recipient"`
	Amount              string `json:"amount"`
	TradeType           string `json:"tradeType"`
}

type relayCurrencyAmount struct {
	Amount          string              `json:"amount"`
	AmountFormatted string              `json:"amountFormatted"`
	AmountUsd       decimal.NullDecimal `json:"amountUsd"`
}

type relayQuoteResponse struct {
	Fees    map[string]interface{} `json:"fees"`
	Details *struct {
		CurrencyIn   *relayCurrencyAmount `json:"currencyIn"`
		CurrencyOut  *relayCurrencyAmount `json:"currencyOut"`
		TimeEstimate *float64             `json:"timeEstimate"`
	} `json:"details"`
}

// placeholderAccount returns the account Relay is asked to quote for on a chain.
func (r *Relay) placeholderAccount(chainID string) string {
	switch chainID {
	case RelayBTCMainnetChainID:
		return r.s.btcMainnetSender
	case RelayBTCTestnetChainID:
		return r.s.btcTestnetSender
	default:
		return EVMDeadAddress
	}
}

func (r *Relay) fetch(ctx context.Context, req QuoteRequest) (domain.ComparisonMetric, error) {
	src, dst, status := r.s.mappings.Pair(domain.ProviderRelay, req.Src, req.Dst)
	if status != MappingSupported {
		return domain.ComparisonMetric{}, ErrUnsupportedPair
	}

	amount, err := units.ToMinorUnits(req.Amount, req.Src.Decimals)
	if err != nil {
		return domain.ComparisonMetric{}, fmt.Errorf("source amount: %w", err)
	}

	body := relayQuoteRequest{
		User:                r.placeholderAccount(src.Chain),
		OriginChainID:       src.Chain,
		DestinationChainID:  dst.Chain,
		OriginCurrency:      src.Asset,
		DestinationCurrency: dst.Asset,
		Recipient:           r.placeholderAccount(dst.Chain),
		Amount:              amount,
		TradeType:           "EXACT_INPUT",
	}

	var resp relayQuoteResponse
	if err := r.http.post(ctx, strings.TrimRight(r.s.baseURL, "/"), body, nil, &resp); err != nil {
		return domain.ComparisonMetric{}, err
	}

	if resp.Fees == nil {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no fees", ErrIncompleteQuote)
	}
	d := resp.Details
	if d == nil || d.CurrencyIn == nil || d.CurrencyOut == nil {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no currency details", ErrIncompleteQuote)
	}

	if !d.CurrencyIn.AmountUsd.Valid || !d.CurrencyOut.AmountUsd.Valid {
		return domain.ComparisonMetric{}, fmt.Errorf("%w: no usd amounts", ErrIncompleteQuote)
	}

	fee := d.CurrencyIn.AmountUsd.Decimal.Sub(d.CurrencyOut.AmountUsd.Decimal).InexactFloat64()

	var seconds float64
	if d.TimeEstimate != nil {
		seconds = *d.TimeEstimate
	}
	if domain.IsBitcoinChain(req.Src.Chain) || domain.IsBitcoinChain(req.Dst.Chain) {
		seconds = r.s.bitcoinSwapTime
	}

	r.log.Debug("relay quote",
		zap.Float64("fee_usd", fee),
		zap.Float64("time_seconds", seconds),
	)
	return domain.ComparisonMetric{Fee: fee, Time: seconds}, nil
}
