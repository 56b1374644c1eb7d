package conversion

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden-volume-watch/internal/catalog"
	"garden-volume-watch/internal/comparison"
	"garden-volume-watch/internal/domain"
)

const fixturePrice = 103281.95450855308

func testCatalog() *catalog.Catalog {
	return catalog.New(domain.NetworkCatalog{
		"bitcoin": {
			ChainID: "bitcoin",
			Name:    "Bitcoin",
			AssetConfig: []domain.AssetConfig{
				{Symbol: "BTC", Name: "Bitcoin", Decimals: 8, TokenAddress: "primary", AtomicSwapAddress: "primary"},
			},
		},
		"ethereum": {
			ChainID: "1",
			Name:    "Ethereum",
			AssetConfig: []domain.AssetConfig{
				{
					Symbol:            "WBTC",
					Name:              "Wrapped Bitcoin",
					Decimals:          8,
					TokenAddress:      "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599",
					AtomicSwapAddress: "0x795dcb58d1cd4789169d5f938ea05e17eceb68ca",
				},
			},
		},
		"arbitrum": {ChainID: "42161", Name: "Arbitrum"},
	}, catalog.DefaultOptions())
}

func fixtureOrder() domain.MatchedOrder {
	created := time.Date(2025, 5, 21, 10, 4, 12, 0, time.UTC)
	return domain.MatchedOrder{
		CreatedAt: created,
		SourceSwap: domain.SwapLeg{
			SwapID:       "source-swap",
			Chain:        "bitcoin",
			Asset:        "primary",
			Amount:       "12000",
			RedeemTxHash: "9d1a5f2c",
		},
		DestinationSwap: domain.SwapLeg{
			SwapID:       "destination-swap",
			Chain:        "ethereum",
			Asset:        "0x795dcb58d1cd4789169d5f938ea05e17eceb68ca",
			Amount:       "11964",
			RedeemTxHash: "0x7be3f1",
		},
		CreateOrder: domain.CreateOrder{
			CreateID:          "bd4d1c86a9e4c5d3e0f1b2a3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3",
			SourceChain:       "bitcoin",
			DestinationChain:  "ethereum",
			SourceAsset:       "primary",
			DestinationAsset:  "0x795dcb58d1cd4789169d5f938ea05e17eceb68ca",
			SourceAmount:      "12000",
			DestinationAmount: "11964",
			AdditionalData: domain.OrderAdditionalData{
				InputTokenPrice:  fixturePrice,
				OutputTokenPrice: fixturePrice,
			},
			CreatedAt: created,
		},
	}
}

type recordingComparer struct {
	result comparison.Result
	calls  atomic.Int32
	last   atomic.Pointer[comparison.Request]
}

func (r *recordingComparer) Compare(_ context.Context, req comparison.Request) comparison.Result {
	r.calls.Add(1)
	r.last.Store(&req)
	return r.result
}

func TestConvert_FixtureVolume(t *testing.T) {
	cmp := &recordingComparer{}
	conv := New(testCatalog(), Options{Comparer: cmp})

	order := fixtureOrder()
	out, ok := conv.Convert(context.Background(), &order)
	require.True(t, ok)
	require.NotNil(t, out)

	assert.InDelta(t, 0.00012, out.SourceAmount, 1e-12)
	assert.InDelta(t, 0.00011964, out.DestinationAmount, 1e-12)
	assert.InDelta(t, 24.75, out.VolumeUSD, 0.01)
	assert.InDelta(t, 0.00000036*fixturePrice, out.GardenFeeUSD, 1e-9)
	assert.Equal(t, 600.0, out.GardenTimeSeconds)
	assert.Equal(t, "12000", out.SourceSwapAmount)
	assert.Equal(t, "2025-05-21T10:04:12Z", out.Timestamp)
	assert.Equal(t, order.OrderID(), out.OrderID)

	require.Equal(t, int32(1), cmp.calls.Load())
	req := cmp.last.Load()
	assert.Equal(t, "BTC", req.Src.Symbol)
	assert.Equal(t, "WBTC", req.Dst.Symbol)
	assert.InDelta(t, 0.00012, req.Amount, 1e-12)
	assert.Equal(t, fixturePrice, req.SrcPriceUSD)
}

func TestConvert_AmountDeltaFeeModel(t *testing.T) {
	conv := New(testCatalog(), Options{FeeModel: FeeModelAmountDelta})

	order := fixtureOrder()
	out, ok := conv.Convert(context.Background(), &order)
	require.True(t, ok)
	assert.InDelta(t, 0.00000036, out.GardenFeeUSD, 1e-12)
}

func TestConvert_AppliesComparison(t *testing.T) {
	cmp := &recordingComparer{result: comparison.Result{
		CompetitorMaxFeeDisplay:  "$12.00",
		CompetitorMaxTimeDisplay: "20m 0s",
		FeeSavedUSD:              11.96,
		TimeSavedSeconds:         600,
		TimeSavedDisplay:         "10m 0s",
		MaxFee:                   domain.ComparisonMetric{Provider: domain.ProviderThorSwap, Fee: 12, Time: 900},
		MaxTime:                  domain.ComparisonMetric{Provider: domain.ProviderRelay, Fee: 5, Time: 1200},
	}}
	conv := New(testCatalog(), Options{Comparer: cmp})

	order := fixtureOrder()
	out, ok := conv.Convert(context.Background(), &order)
	require.True(t, ok)

	assert.Equal(t, 11.96, out.FeeSavedUSD)
	assert.Equal(t, "10m 0s", out.TimeSavedDisplay)
	assert.Equal(t, 12.0, out.CompetitorMaxFeeUSD)
	assert.Equal(t, 1200.0, out.CompetitorMaxTimeSeconds)
	assert.Equal(t, domain.ProviderThorSwap, out.MaxFeeProvider)
	assert.Equal(t, domain.ProviderRelay, out.MaxTimeProvider)
	assert.True(t, out.HasSavings())
}

func TestConvert_NeutralComparison(t *testing.T) {
	conv := New(testCatalog(), Options{Comparer: &recordingComparer{}})

	order := fixtureOrder()
	out, ok := conv.Convert(context.Background(), &order)
	require.True(t, ok)
	assert.Zero(t, out.FeeSavedUSD)
	assert.Empty(t, out.CompetitorMaxFeeDisplay)
	assert.Empty(t, string(out.MaxFeeProvider))
	assert.False(t, out.HasSavings())
}

func TestConvert_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *domain.MatchedOrder)
	}{
		{"source not redeemed", func(o *domain.MatchedOrder) { o.SourceSwap.RedeemTxHash = "" }},
		{"destination not redeemed", func(o *domain.MatchedOrder) { o.DestinationSwap.RedeemTxHash = "" }},
		{"unknown source chain", func(o *domain.MatchedOrder) { o.CreateOrder.SourceChain = "litecoin" }},
		{"unknown destination chain", func(o *domain.MatchedOrder) { o.CreateOrder.DestinationChain = "starknet" }},
		{"unknown destination asset", func(o *domain.MatchedOrder) {
			o.CreateOrder.DestinationAsset = "0x0000000000000000000000000000000000000001"
		}},
		{"bad amount", func(o *domain.MatchedOrder) { o.SourceSwap.Amount = "twelve" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := &recordingComparer{}
			conv := New(testCatalog(), Options{Comparer: cmp})

			order := fixtureOrder()
			tt.mutate(&order)
			out, ok := conv.Convert(context.Background(), &order)
			assert.False(t, ok)
			assert.Nil(t, out)
			assert.Zero(t, cmp.calls.Load())
		})
	}
}

func TestConvert_SyntheticSourceAsset(t *testing.T) {
	cmp := &recordingComparer{}
	conv := New(testCatalog(), Options{Comparer: cmp})

	order := fixtureOrder()
	order.CreateOrder.SourceChain = "arbitrum"
	order.CreateOrder.SourceAsset = "0xaf88d065e77c8cc2239327c5edb3a432268e5831"
	order.SourceSwap.Amount = "25000000"

	out, ok := conv.Convert(context.Background(), &order)
	require.True(t, ok)
	// arbitrum has no asset entries, so the default 8 decimals apply
	assert.InDelta(t, 0.25, out.SourceAmount, 1e-12)
	assert.Equal(t, 30.0, out.GardenTimeSeconds)

	req := cmp.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, catalog.DefaultDecimals, req.Src.Decimals)
	assert.Equal(t, "arbitrum", req.Src.Chain)
}

type panickyComparer struct{}

func (panickyComparer) Compare(context.Context, comparison.Request) comparison.Result {
	panic("comparison blew up")
}

func TestConvert_PanicIsRejection(t *testing.T) {
	conv := New(testCatalog(), Options{Comparer: panickyComparer{}})
	order := fixtureOrder()
	out, ok := conv.Convert(context.Background(), &order)
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestConvertBatch_MatchesSequential(t *testing.T) {
	conv := New(testCatalog(), Options{})

	var orders []domain.MatchedOrder
	for i := 0; i < 20; i++ {
		o := fixtureOrder()
		o.CreateOrder.CreateID = fmt.Sprintf("order-%02d", i)
		o.SourceSwap.Amount = fmt.Sprintf("%d", 10000+i*1000)
		if i%5 == 0 {
			o.DestinationSwap.RedeemTxHash = ""
		}
		orders = append(orders, o)
	}

	var sequential []*domain.NormalizedOutcome
	for i := range orders {
		if out, ok := conv.Convert(context.Background(), &orders[i]); ok {
			sequential = append(sequential, out)
		}
	}

	parallel := conv.ConvertBatch(context.Background(), orders, 4)
	require.Len(t, parallel, 16)
	assert.Equal(t, sequential, parallel)
}

func TestGardenTimeTable(t *testing.T) {
	times := DefaultGardenTimes()
	assert.Equal(t, 600.0, times.Seconds("bitcoin"))
	assert.Equal(t, 600.0, times.Seconds("BTC"))
	assert.Equal(t, 600.0, times.Seconds("bitcoin_testnet"))
	assert.Equal(t, 30.0, times.Seconds("ethereum"))

	custom := GardenTimeTable{"solana": 5}
	assert.Equal(t, 5.0, custom.Seconds("solana"))
	assert.Equal(t, float64(DefaultFastSeconds), custom.Seconds("base"))
}

func TestParseFeeModel(t *testing.T) {
	m, err := ParseFeeModel("amount_delta")
	require.NoError(t, err)
	assert.Equal(t, FeeModelAmountDelta, m)

	m, err = ParseFeeModel("")
	require.NoError(t, err)
	assert.Equal(t, FeeModelUSD, m)

	_, err = ParseFeeModel("bps")
	assert.Error(t, err)
}
