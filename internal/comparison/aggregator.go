// Package comparison fans a swap out to competitor providers and reduces their
// quotes to the worst-case alternative fee and time.
package comparison

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/observability"
	"garden-volume-watch/internal/providers"
)

// DefaultProviderTimeout bounds a single provider quote.
const DefaultProviderTimeout = 10 * time.Second

// Request describes the swap being compared.
type Request struct {
	Src               domain.Asset
	Dst               domain.Asset
	Amount            float64 // real source quantity
	SrcPriceUSD       float64
	DstPriceUSD       float64
	GardenFeeUSD      float64
	GardenTimeSeconds float64
}

// Result is the reduced comparison. The zero value is the neutral result.
type Result struct {
	CompetitorMaxFeeDisplay  string
	CompetitorMaxTimeDisplay string
	FeeSavedUSD              float64
	TimeSavedSeconds         float64
	TimeSavedDisplay         string

	MaxFee  domain.ComparisonMetric
	MaxTime domain.ComparisonMetric
	// Metrics holds every provider answer, sentinels included, in provider order.
	Metrics []domain.ComparisonMetric
}

// Neutral reports whether no competitor produced a usable quote.
func (r Result) Neutral() bool {
	return !r.MaxFee.Valid()
}

// Options configures an Aggregator.
type Options struct {
	// Providers in tie-break order. Nil means Chainflip, Thor, Relay; an
	// empty non-nil slice means no competitors are quoted.
	Providers []providers.Provider
	// Timeout bounds each provider call. Zero means DefaultProviderTimeout.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Aggregator compares a swap against competitor providers.
type Aggregator struct {
	providers []providers.Provider
	timeout   time.Duration
	log       *zap.Logger
}

// New creates an Aggregator.
func New(opts Options) *Aggregator {
	ps := opts.Providers
	if ps == nil {
		ps = providers.Defaults(providers.WithLogger(opts.Logger))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Aggregator{
		providers: ps,
		timeout:   timeout,
		log:       logging.OrNop(opts.Logger).Named("comparison"),
	}
}

// Compare quotes all providers concurrently and reduces the valid answers.
// It never fails: when no provider answers usefully the neutral result is returned.
func (a *Aggregator) Compare(ctx context.Context, req Request) Result {
	metrics := a.collect(ctx, providers.QuoteRequest{
		Src:         req.Src,
		Dst:         req.Dst,
		Amount:      req.Amount,
		SrcPriceUSD: req.SrcPriceUSD,
		DstPriceUSD: req.DstPriceUSD,
	})

	maxFee, maxTime, ok := Reduce(metrics)
	if !ok {
		a.log.Warn("no valid comparison services for swap",
			zap.String("src", req.Src.Chain+":"+req.Src.Symbol),
			zap.String("dst", req.Dst.Chain+":"+req.Dst.Symbol),
		)
		observability.RecordNeutralComparison()
		return Result{Metrics: metrics}
	}

	feeSaved := maxFee.Fee - req.GardenFeeUSD
	timeSaved := maxTime.Time - req.GardenTimeSeconds

	return Result{
		CompetitorMaxFeeDisplay:  FormatUSD(maxFee.Fee),
		CompetitorMaxTimeDisplay: FormatDuration(maxTime.Time),
		FeeSavedUSD:              feeSaved,
		TimeSavedSeconds:         timeSaved,
		TimeSavedDisplay:         FormatDurationDiff(timeSaved),
		MaxFee:                   maxFee,
		MaxTime:                  maxTime,
		Metrics:                  metrics,
	}
}

// collect runs every provider and waits for all of them to settle.
func (a *Aggregator) collect(ctx context.Context, req providers.QuoteRequest) []domain.ComparisonMetric {
	metrics := make([]domain.ComparisonMetric, len(a.providers))

	var g errgroup.Group
	for i, p := range a.providers {
		g.Go(func() error {
			metrics[i] = a.quote(ctx, p, req)
			return nil
		})
	}
	_ = g.Wait()

	return metrics
}

func (a *Aggregator) quote(ctx context.Context, p providers.Provider, req providers.QuoteRequest) (m domain.ComparisonMetric) {
	name := p.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("provider panicked",
				zap.String("provider", name.String()),
				zap.String("panic", fmt.Sprint(r)),
			)
			m = domain.NoQuote(name)
		}
		status := "ok"
		if !m.Valid() {
			status = "no_quote"
		}
		observability.RecordProviderQuote(name.String(), status, time.Since(start).Seconds())
	}()

	qctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	m = p.Quote(qctx, req)
	m.Provider = name
	return m
}

// Reduce picks the highest fee and the longest time among valid metrics,
// independently. Ties keep the first metric in input order. ok is false
// when no metric is valid.
func Reduce(metrics []domain.ComparisonMetric) (maxFee, maxTime domain.ComparisonMetric, ok bool) {
	for _, m := range metrics {
		if !m.Valid() {
			continue
		}
		if !ok {
			maxFee, maxTime, ok = m, m, true
			continue
		}
		if m.Fee > maxFee.Fee {
			maxFee = m
		}
		if m.Time > maxTime.Time {
			maxTime = m
		}
	}
	return maxFee, maxTime, ok
}
