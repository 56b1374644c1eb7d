package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"garden-volume-watch/internal/logging"
)

// Default configuration values.
const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// ErrUnexpectedStatus is returned for non-2xx provider responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// settings holds the configuration shared by all adapters.
// Adapter-specific fields are ignored by the adapters that do not use them.
type settings struct {
	baseURL          string
	client           *http.Client
	timeout          time.Duration
	limiter          *rate.Limiter
	log              *zap.Logger
	mappings         MappingTable
	apiKey           string
	bitcoinSwapTime  float64
	affiliate        string
	affiliateFeeBps  int
	slippagePercent  float64
	btcMainnetSender string
	btcTestnetSender string
}

// Option configures a provider adapter.
type Option func(*settings)

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		s.baseURL = u
	}
}

// WithTimeout sets the HTTP client timeout. It applies to a copy of the
// client, so a client passed with WithHTTPClient is left untouched.
// A non-positive d keeps the client's own timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.client = client
	}
}

// WithRateLimit bounds outgoing requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

// WithMappings replaces the asset mapping table.
func WithMappings(t MappingTable) Option {
	return func(s *settings) {
		s.mappings = t
	}
}

// WithAPIKey sets the API key sent by providers that require one.
func WithAPIKey(key string) Option {
	return func(s *settings) {
		s.apiKey = key
	}
}

// WithBitcoinSwapTime overrides the settlement time reported for Bitcoin legs (Relay).
func WithBitcoinSwapTime(seconds float64) Option {
	return func(s *settings) {
		s.bitcoinSwapTime = seconds
	}
}

// WithAffiliate sets the affiliate tag and fee in basis points (Thor).
func WithAffiliate(tag string, feeBps int) Option {
	return func(s *settings) {
		s.affiliate = tag
		s.affiliateFeeBps = feeBps
	}
}

func newSettings(defaultURL string, opts []Option) *settings {
	s := &settings{
		baseURL:          defaultURL,
		client:           &http.Client{Timeout: DefaultTimeout},
		mappings:         DefaultMappings(),
		bitcoinSwapTime:  DefaultRelayBitcoinSwapTime,
		affiliate:        "t",
		affiliateFeeBps:  50,
		slippagePercent:  3,
		btcMainnetSender: BTCMainnetPlaceholder,
		btcTestnetSender: BTCTestnetPlaceholder,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout > 0 {
		c := *s.client
		c.Timeout = s.timeout
		s.client = &c
	}
	s.log = logging.OrNop(s.log)
	return s
}

// jsonClient performs single-shot JSON requests. Failed calls are not retried;
// a failed quote degrades to the no-quote sentinel for that comparison only.
type jsonClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

func (s *settings) jsonClient() *jsonClient {
	return &jsonClient{client: s.client, limiter: s.limiter}
}

func (c *jsonClient) post(ctx context.Context, url string, body interface{}, headers map[string]string, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, bytes.NewReader(payload), headers, out)
}

func (c *jsonClient) get(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	return c.do(ctx, http.MethodGet, url, nil, headers, out)
}

func (c *jsonClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, truncate(respBody, 256))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
