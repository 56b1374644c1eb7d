package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden-volume-watch/internal/config"
	"garden-volume-watch/internal/domain"
)

var (
	btc   = domain.Asset{Chain: "bitcoin", Symbol: "BTC", Decimals: 8}
	wbtc  = domain.Asset{Chain: "ethereum", Symbol: "WBTC", Decimals: 8}
	eth   = domain.Asset{Chain: "ethereum", Symbol: "ETH", Decimals: 18}
	usdc  = domain.Asset{Chain: "arbitrum", Symbol: "USDC", Decimals: 6}
	stark = domain.Asset{Chain: "starknet", Symbol: "STRK", Decimals: 18}
)

func jsonHandler(t *testing.T, status int, body interface{}, inspect func(r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if s, ok := body.(string); ok {
			_, _ = w.Write([]byte(s))
			return
		}
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}
}

func TestMappingTable_Lookup(t *testing.T) {
	r, status := Lookup(domain.ProviderThorSwap, btc)
	assert.Equal(t, MappingSupported, status)
	assert.Equal(t, "BTC.BTC", r.Asset)

	r, status = Lookup(domain.ProviderChainflip, domain.Asset{Chain: "Ethereum", Symbol: "usdc"})
	assert.Equal(t, MappingSupported, status)
	assert.Equal(t, Route{Chain: "Ethereum", Asset: "USDC"}, r)

	_, status = Lookup(domain.ProviderRelay, stark)
	assert.Equal(t, MappingUnsupported, status)

	_, status = Lookup(domain.Provider("unknown"), btc)
	assert.Equal(t, MappingUnsupported, status)
}

func TestMappingTable_DefaultsAreCopies(t *testing.T) {
	m := DefaultMappings()
	m.Add(domain.ProviderRelay, "starknet", "STRK", Route{Chain: "23448594291968334", Asset: "0x1"})

	_, status := m.Lookup(domain.ProviderRelay, stark)
	assert.Equal(t, MappingSupported, status)

	_, status = Lookup(domain.ProviderRelay, stark)
	assert.Equal(t, MappingUnsupported, status)
}

func TestRelay_Quote(t *testing.T) {
	var got relayQuoteRequest
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]interface{}{
		"fees": map[string]interface{}{"gas": map[string]interface{}{"amountUsd": "1.2"}},
		"details": map[string]interface{}{
			"currencyIn":   map[string]interface{}{"amountUsd": "1000.50"},
			"currencyOut":  map[string]interface{}{"amountUsd": "990.25"},
			"timeEstimate": 14,
		},
	}, func(r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	relay := NewRelay(WithBaseURL(srv.URL))
	m := relay.Quote(context.Background(), QuoteRequest{Src: eth, Dst: usdc, Amount: 0.5})

	assert.Equal(t, domain.ProviderRelay, m.Provider)
	assert.InDelta(t, 10.25, m.Fee, 1e-9)
	assert.Equal(t, 14.0, m.Time)

	assert.Equal(t, "1", got.OriginChainID)
	assert.Equal(t, "42161", got.DestinationChainID)
	assert.Equal(t, "500000000000000000", got.Amount)
	assert.Equal(t, "EXACT_INPUT", got.TradeType)
	assert.Equal(t, EVMDeadAddress, got.User)
	assert.Equal(t, EVMDeadAddress, got.Recipient)
}

func TestRelay_BitcoinTimeOverride(t *testing.T) {
	var got relayQuoteRequest
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]interface{}{
		"fees": map[string]interface{}{},
		"details": map[string]interface{}{
			"currencyIn":   map[string]interface{}{"amountUsd": 100},
			"currencyOut":  map[string]interface{}{"amountUsd": 98},
			"timeEstimate": 30,
		},
	}, func(r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	relay := NewRelay(WithBaseURL(srv.URL))
	m := relay.Quote(context.Background(), QuoteRequest{Src: btc, Dst: wbtc, Amount: 0.001})
	assert.Equal(t, float64(DefaultRelayBitcoinSwapTime), m.Time)
	assert.InDelta(t, 2.0, m.Fee, 1e-9)
	assert.Equal(t, BTCMainnetPlaceholder, got.User)
	assert.Equal(t, EVMDeadAddress, got.Recipient)
	assert.Equal(t, "100000", got.Amount)

	custom := NewRelay(WithBaseURL(srv.URL), WithBitcoinSwapTime(900))
	m = custom.Quote(context.Background(), QuoteRequest{Src: wbtc, Dst: btc, Amount: 0.001})
	assert.Equal(t, 900.0, m.Time)
	assert.Equal(t, BTCMainnetPlaceholder, got.Recipient)
}

func TestRelay_SentinelCases(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
	}{
		{"missing fees", http.StatusOK, map[string]interface{}{"details": map[string]interface{}{}}},
		{"missing details", http.StatusOK, map[string]interface{}{"fees": map[string]interface{}{}}},
		{"missing output usd", http.StatusOK, map[string]interface{}{
			"fees": map[string]interface{}{},
			"details": map[string]interface{}{
				"currencyIn":   map[string]interface{}{"amountUsd": "2000"},
				"currencyOut":  map[string]interface{}{"amount": "1990000"},
				"timeEstimate": 30,
			},
		}},
		{"null input usd", http.StatusOK, map[string]interface{}{
			"fees": map[string]interface{}{},
			"details": map[string]interface{}{
				"currencyIn":   map[string]interface{}{"amountUsd": nil},
				"currencyOut":  map[string]interface{}{"amountUsd": "1990"},
				"timeEstimate": 30,
			},
		}},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`},
		{"malformed json", http.StatusOK, `{"fees":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(t, tt.status, tt.body, nil))
			defer srv.Close()

			m := NewRelay(WithBaseURL(srv.URL)).Quote(context.Background(), QuoteRequest{Src: eth, Dst: usdc, Amount: 1})
			assert.False(t, m.Valid())
			assert.Equal(t, domain.NoQuote(domain.ProviderRelay), m)
		})
	}
}

func TestRelay_UnsupportedPairMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	m := NewRelay(WithBaseURL(srv.URL)).Quote(context.Background(), QuoteRequest{Src: stark, Dst: eth, Amount: 1})
	assert.False(t, m.Valid())
	assert.Equal(t, int32(0), calls.Load())
}

func TestThor_Quote_SelectsBestRoute(t *testing.T) {
	var got thorQuoteRequest
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]interface{}{
		"routes": []map[string]interface{}{
			{
				"expectedBuyAmount": "0.0195",
				"estimatedTime":     map[string]interface{}{"total": 900},
				"meta": map[string]interface{}{"assets": []map[string]interface{}{
					{"asset": "BTC.BTC", "price": 100000},
					{"asset": "ETH.WBTC-0X2260FAC5E5542A773AA44FBCFEDF7C193BC2C599", "price": 99900},
				}},
			},
			{
				"expectedBuyAmount": "0.0198",
				"estimatedTime":     map[string]interface{}{"total": 1500},
				"meta": map[string]interface{}{"assets": []map[string]interface{}{
					{"asset": "BTC.BTC", "price": 100000},
					{"asset": "ETH.WBTC-0X2260FAC5E5542A773AA44FBCFEDF7C193BC2C599", "price": 100000},
				}},
			},
		},
	}, func(r *http.Request) {
		assert.Equal(t, "2", r.Header.Get("X-Version"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	thor := NewThor(WithBaseURL(srv.URL), WithAPIKey("secret"))
	m := thor.Quote(context.Background(), QuoteRequest{Src: btc, Dst: wbtc, Amount: 0.02})

	// 0.02*100000 - 0.0198*100000
	assert.InDelta(t, 20.0, m.Fee, 1e-9)
	assert.Equal(t, 1500.0, m.Time)
	assert.Equal(t, "BTC.BTC", got.SellAsset)
	assert.Equal(t, "0.02", got.SellAmount)
	assert.Equal(t, "THORCHAIN", got.Provider)
	assert.False(t, got.CfBoost)
}

func TestThor_NoRoutes(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]interface{}{"routes": []interface{}{}}, nil))
	defer srv.Close()

	m := NewThor(WithBaseURL(srv.URL)).Quote(context.Background(), QuoteRequest{Src: btc, Dst: eth, Amount: 1})
	assert.Equal(t, domain.NoQuote(domain.ProviderThorSwap), m)
}

func TestThor_MissingOutputGivesSentinel(t *testing.T) {
	prices := func(assets ...string) []map[string]interface{} {
		var out []map[string]interface{}
		for _, a := range assets {
			out = append(out, map[string]interface{}{"asset": a, "price": 100000})
		}
		return out
	}
	tests := []struct {
		name  string
		route map[string]interface{}
	}{
		{"missing buy price", map[string]interface{}{
			"expectedBuyAmount": "0.0198",
			"estimatedTime":     map[string]interface{}{"total": 900},
			"meta":              map[string]interface{}{"assets": prices("BTC.BTC")},
		}},
		{"missing sell price", map[string]interface{}{
			"expectedBuyAmount": "0.0198",
			"estimatedTime":     map[string]interface{}{"total": 900},
			"meta":              map[string]interface{}{"assets": prices("ETH.WBTC-0X2260FAC5E5542A773AA44FBCFEDF7C193BC2C599")},
		}},
		{"missing expected buy amount", map[string]interface{}{
			"estimatedTime": map[string]interface{}{"total": 900},
			"meta":          map[string]interface{}{"assets": prices("BTC.BTC", "ETH.WBTC-0X2260FAC5E5542A773AA44FBCFEDF7C193BC2C599")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]interface{}{
				"routes": []map[string]interface{}{tt.route},
			}, nil))
			defer srv.Close()

			m := NewThor(WithBaseURL(srv.URL)).Quote(context.Background(), QuoteRequest{Src: btc, Dst: wbtc, Amount: 0.02})
			assert.False(t, m.Valid())
			assert.Equal(t, domain.NoQuote(domain.ProviderThorSwap), m)
		})
	}
}

func TestBestThorRoute_SkipsRoutesWithoutOutput(t *testing.T) {
	routes := []thorRoute{
		{},
		{ExpectedBuyAmount: decimal.NewNullDecimal(decimal.RequireFromString("0.5"))},
		{ExpectedBuyAmount: decimal.NewNullDecimal(decimal.RequireFromString("0.4"))},
	}
	best := bestThorRoute(routes)
	require.NotNil(t, best)
	assert.Equal(t, "0.5", best.ExpectedBuyAmount.Decimal.String())
	assert.Nil(t, bestThorRoute([]thorRoute{{}}))
}

func TestChainflip_Quote(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, []map[string]interface{}{
		{"type": "DCA", "egressAmount": "30000000", "estimatedDurationSeconds": 3600},
		{"type": "REGULAR", "egressAmount": "29000000", "estimatedDurationSeconds": 720},
	}, func(r *http.Request) {
		assert.Equal(t, "/v2/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Bitcoin", q.Get("srcChain"))
		assert.Equal(t, "BTC", q.Get("srcAsset"))
		assert.Equal(t, "Ethereum", q.Get("destChain"))
		assert.Equal(t, "ETH", q.Get("destAsset"))
		assert.Equal(t, "1000000", q.Get("amount"))
	}))
	defer srv.Close()

	ethQuote := domain.Asset{Chain: "ethereum", Symbol: "ETH", Decimals: 8}
	cf := NewChainflip(WithBaseURL(srv.URL))
	m := cf.Quote(context.Background(), QuoteRequest{
		Src:         btc,
		Dst:         ethQuote,
		Amount:      0.01,
		SrcPriceUSD: 100000,
		DstPriceUSD: 3000,
	})

	// 0.01*100000 - 0.29*3000
	assert.InDelta(t, 130.0, m.Fee, 1e-9)
	assert.Equal(t, 720.0, m.Time)
}

func TestChainflip_MissingEgressGivesSentinel(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, http.StatusOK, []map[string]interface{}{
		{"type": "REGULAR", "estimatedDurationSeconds": 720},
	}, nil))
	defer srv.Close()

	m := NewChainflip(WithBaseURL(srv.URL)).Quote(context.Background(), QuoteRequest{
		Src:         btc,
		Dst:         eth,
		Amount:      0.02,
		SrcPriceUSD: 100000,
		DstPriceUSD: 3000,
	})
	assert.False(t, m.Valid())
	assert.Equal(t, domain.NoQuote(domain.ProviderChainflip), m)
}

func TestChainflip_FirstQuoteFallback(t *testing.T) {
	got := pickChainflipQuote([]chainflipQuote{{Type: "DCA"}, {Type: "BOOST"}})
	require.NotNil(t, got)
	assert.Equal(t, "DCA", got.Type)
	assert.Nil(t, pickChainflipQuote(nil))
}

func TestQuote_RespectsContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	m := NewChainflip(WithBaseURL(srv.URL)).Quote(ctx, QuoteRequest{Src: btc, Dst: eth, Amount: 1})
	assert.False(t, m.Valid())
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeout_DoesNotMutateSharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	for _, opts := range [][]Option{
		{WithHTTPClient(shared), WithTimeout(3 * time.Second)},
		{WithTimeout(3 * time.Second), WithHTTPClient(shared)},
	} {
		s := newSettings(DefaultRelayURL, opts)
		assert.Equal(t, 3*time.Second, s.client.Timeout)
		assert.NotSame(t, shared, s.client)
	}
	assert.Equal(t, time.Minute, shared.Timeout)

	s := newSettings(DefaultRelayURL, []Option{WithHTTPClient(shared), WithTimeout(0)})
	assert.Same(t, shared, s.client)
	assert.Equal(t, DefaultTimeout, newSettings(DefaultRelayURL, nil).client.Timeout)
}

func TestDefaults_Order(t *testing.T) {
	ps := Defaults()
	require.Len(t, ps, 3)
	assert.Equal(t, domain.ProviderChainflip, ps[0].Name())
	assert.Equal(t, domain.ProviderThorSwap, ps[1].Name())
	assert.Equal(t, domain.ProviderRelay, ps[2].Name())
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	all := FromConfig(cfg, nil)
	require.Len(t, all, 3)
	assert.Equal(t, domain.ProviderChainflip, all[0].Name())
	assert.Equal(t, domain.ProviderThorSwap, all[1].Name())
	assert.Equal(t, domain.ProviderRelay, all[2].Name())

	cfg.Providers.Disabled = []string{"thorswap"}
	some := FromConfig(cfg, nil)
	require.Len(t, some, 2)
	assert.Equal(t, domain.ProviderRelay, some[1].Name())

	cfg.Providers.Disabled = []string{"chainflip", "thorswap", "relay"}
	none := FromConfig(cfg, nil)
	require.NotNil(t, none)
	assert.Empty(t, none)
}
