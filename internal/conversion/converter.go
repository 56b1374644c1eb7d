// Package conversion turns matched settlement orders into normalized outcomes
// with USD volume, own fee and the competitor comparison.
package conversion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"garden-volume-watch/internal/comparison"
	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/observability"
	"garden-volume-watch/internal/units"
)

// Rejection reasons, used as metric labels.
const (
	ReasonIncomplete         = "incomplete"
	ReasonBadAmount          = "bad_amount"
	ReasonUnknownSourceChain = "unknown_source_chain"
	ReasonUnknownDestChain   = "unknown_destination_chain"
	ReasonUnknownDestAsset   = "unknown_destination_asset"
	ReasonPanic              = "panic"
)

// FeeModel selects how the own fee is computed.
type FeeModel int

const (
	// FeeModelUSD values both legs at their settlement prices.
	FeeModelUSD FeeModel = iota
	// FeeModelAmountDelta subtracts raw real quantities, ignoring prices.
	// Only meaningful when both legs are the same asset.
	FeeModelAmountDelta
)

// ParseFeeModel parses "usd" or "amount_delta".
func ParseFeeModel(s string) (FeeModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "usd":
		return FeeModelUSD, nil
	case "amount_delta":
		return FeeModelAmountDelta, nil
	default:
		return 0, fmt.Errorf("unknown fee model %q", s)
	}
}

func (m FeeModel) String() string {
	if m == FeeModelAmountDelta {
		return "amount_delta"
	}
	return "usd"
}

// Resolver is the catalog view the converter needs.
type Resolver interface {
	HasChain(chain string) bool
	Decimals(chain, ref string) int
	ResolveAsset(chain, ref string) (domain.Asset, bool)
	SyntheticAsset(chain, ref string) domain.Asset
}

// Comparer compares a swap against competitors.
type Comparer interface {
	Compare(ctx context.Context, req comparison.Request) comparison.Result
}

// Options configures a Converter.
type Options struct {
	Comparer   Comparer
	FeeModel   FeeModel
	GardenTime GardenTimeTable
	Logger     *zap.Logger
}

// Converter converts matched orders against one catalog snapshot.
type Converter struct {
	resolver Resolver
	comparer Comparer
	feeModel FeeModel
	times    GardenTimeTable
	log      *zap.Logger
}

// New creates a Converter bound to resolver.
func New(resolver Resolver, opts Options) *Converter {
	times := opts.GardenTime
	if times == nil {
		times = DefaultGardenTimes()
	}
	return &Converter{
		resolver: resolver,
		comparer: opts.Comparer,
		feeModel: opts.FeeModel,
		times:    times,
		log:      logging.OrNop(opts.Logger).Named("conversion"),
	}
}

// Convert builds the normalized outcome for order. ok is false when the order
// cannot be converted; the reason is logged and counted.
func (c *Converter) Convert(ctx context.Context, order *domain.MatchedOrder) (out *domain.NormalizedOutcome, ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.reject(order, ReasonPanic, zap.String("panic", fmt.Sprint(r)))
			out, ok = nil, false
		}
	}()

	out, reason := c.convert(ctx, order)
	if reason != "" {
		c.reject(order, reason)
		return nil, false
	}
	observability.RecordOrderConverted(time.Since(start).Seconds())
	return out, true
}

func (c *Converter) reject(order *domain.MatchedOrder, reason string, fields ...zap.Field) {
	id := ""
	if order != nil {
		id = order.OrderID()
	}
	c.log.Info("order not convertible",
		append([]zap.Field{zap.String("order_id", id), zap.String("reason", reason)}, fields...)...,
	)
	observability.RecordOrderRejected(reason)
}

func (c *Converter) convert(ctx context.Context, order *domain.MatchedOrder) (*domain.NormalizedOutcome, string) {
	if order == nil || !order.Completed() {
		return nil, ReasonIncomplete
	}
	co := order.CreateOrder

	if !c.resolver.HasChain(co.SourceChain) {
		return nil, ReasonUnknownSourceChain
	}
	if !c.resolver.HasChain(co.DestinationChain) {
		return nil, ReasonUnknownDestChain
	}

	srcDecimals := c.resolver.Decimals(co.SourceChain, co.SourceAsset)
	dstDecimals := c.resolver.Decimals(co.DestinationChain, co.DestinationAsset)

	srcAmount, err := units.ToRealQuantity(order.SourceSwap.Amount, srcDecimals)
	if err != nil {
		return nil, ReasonBadAmount
	}
	dstAmount, err := units.ToRealQuantity(order.DestinationSwap.Amount, dstDecimals)
	if err != nil {
		return nil, ReasonBadAmount
	}

	inPrice := co.AdditionalData.InputTokenPrice
	outPrice := co.AdditionalData.OutputTokenPrice

	volume := srcAmount*inPrice + dstAmount*outPrice
	gardenFee := c.gardenFee(srcAmount, dstAmount, inPrice, outPrice)

	dst, ok := c.resolver.ResolveAsset(co.DestinationChain, co.DestinationAsset)
	if !ok {
		return nil, ReasonUnknownDestAsset
	}
	src, ok := c.resolver.ResolveAsset(co.SourceChain, co.SourceAsset)
	if !ok {
		src = c.resolver.SyntheticAsset(co.SourceChain, co.SourceAsset)
	}

	gardenTime := c.times.Seconds(co.SourceChain)

	out := &domain.NormalizedOutcome{
		OrderID:               co.CreateID,
		SourceChain:           co.SourceChain,
		DestinationChain:      co.DestinationChain,
		SourceAsset:           co.SourceAsset,
		DestinationAsset:      co.DestinationAsset,
		SourceAmount:          srcAmount,
		DestinationAmount:     dstAmount,
		SourceSwapAmount:      order.SourceSwap.Amount,
		DestinationSwapAmount: order.DestinationSwap.Amount,
		InputTokenPrice:       inPrice,
		OutputTokenPrice:      outPrice,
		VolumeUSD:             volume,
		GardenFeeUSD:          gardenFee,
		GardenTimeSeconds:     gardenTime,
		CreatedAt:             order.CreatedAt.UTC(),
		Timestamp:             order.CreatedAt.UTC().Format(time.RFC3339),
	}

	if c.comparer != nil {
		res := c.comparer.Compare(ctx, comparison.Request{
			Src:               src,
			Dst:               dst,
			Amount:            srcAmount,
			SrcPriceUSD:       inPrice,
			DstPriceUSD:       outPrice,
			GardenFeeUSD:      gardenFee,
			GardenTimeSeconds: gardenTime,
		})
		applyComparison(out, res)
	}

	return out, ""
}

func (c *Converter) gardenFee(srcAmount, dstAmount, inPrice, outPrice float64) float64 {
	if c.feeModel == FeeModelAmountDelta {
		return srcAmount - dstAmount
	}
	return srcAmount*inPrice - dstAmount*outPrice
}

func applyComparison(out *domain.NormalizedOutcome, res comparison.Result) {
	out.FeeSavedUSD = res.FeeSavedUSD
	out.TimeSavedSeconds = res.TimeSavedSeconds
	out.TimeSavedDisplay = res.TimeSavedDisplay
	out.CompetitorMaxFeeDisplay = res.CompetitorMaxFeeDisplay
	out.CompetitorMaxTimeDisplay = res.CompetitorMaxTimeDisplay
	if res.Neutral() {
		return
	}
	out.CompetitorMaxFeeUSD = res.MaxFee.Fee
	out.CompetitorMaxTimeSeconds = res.MaxTime.Time
	out.MaxFeeProvider = res.MaxFee.Provider
	out.MaxTimeProvider = res.MaxTime.Provider
}

// ConvertBatch converts orders with at most concurrency conversions in flight.
// The result keeps input order and omits unconvertible orders.
func (c *Converter) ConvertBatch(ctx context.Context, orders []domain.MatchedOrder, concurrency int) []*domain.NormalizedOutcome {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]*domain.NormalizedOutcome, len(orders))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range orders {
		g.Go(func() error {
			if out, ok := c.Convert(ctx, &orders[i]); ok {
				results[i] = out
			}
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make([]*domain.NormalizedOutcome, 0, len(results))
	for _, out := range results {
		if out != nil {
			outcomes = append(outcomes, out)
		}
	}
	return outcomes
}
