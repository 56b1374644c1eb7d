// Package feed fetches the network asset catalog and matched orders.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 16 << 20
)

// ErrUnexpectedStatus is returned for non-200 responses.
var ErrUnexpectedStatus = errors.New("unexpected status")

// ErrMalformedPage is returned when the orders payload has no recognizable shape.
var ErrMalformedPage = errors.New("malformed orders page")

// ReasonMalformedRecord labels order records dropped because they did not decode.
const ReasonMalformedRecord = "malformed_record"

// Client fetches catalog and orders over HTTP.
type Client struct {
	catalogURL string
	ordersURL  string
	client     *http.Client
	timeout    time.Duration
	log        *zap.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout on a copy of the client.
// A non-positive d keeps the client's own timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a feed client.
func NewClient(catalogURL, ordersURL string, opts ...ClientOption) *Client {
	c := &Client{
		catalogURL: catalogURL,
		ordersURL:  ordersURL,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.client
		hc.Timeout = c.timeout
		c.client = &hc
	}
	c.log = logging.OrNop(c.log).Named("feed")
	return c
}

// get fetches url and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, endpoint, u string) ([]byte, error) {
	start := time.Now()
	body, err := c.doGet(ctx, u)
	observability.RecordFeedCall(endpoint, time.Since(start).Seconds(), err)
	return body, err
}

func (c *Client) doGet(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}
	return body, nil
}

// Catalog fetches the network asset catalog.
func (c *Client) Catalog(ctx context.Context) (domain.NetworkCatalog, error) {
	body, err := c.get(ctx, "catalog", c.catalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	networks, err := DecodeCatalog(body)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	assets := 0
	for chain, info := range networks {
		assets += len(info.AssetConfig)
		c.log.Debug("network loaded",
			zap.String("chain", chain),
			zap.Int("assets", len(info.AssetConfig)),
		)
	}
	c.log.Info("catalog loaded",
		zap.Int("networks", len(networks)),
		zap.Int("assets", assets),
	)
	return networks, nil
}

// DecodeCatalog parses a catalog body. It accepts the bare chain map or a {"result": {...}} wrapper.
func DecodeCatalog(body []byte) (domain.NetworkCatalog, error) {
	var wrapped struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Result) > 0 && wrapped.Result[0] == '{' {
		body = wrapped.Result
	}
	var networks domain.NetworkCatalog
	if err := json.Unmarshal(body, &networks); err != nil {
		return nil, err
	}
	for chain, info := range networks {
		for i := range info.AssetConfig {
			info.AssetConfig[i].Chain = chain
		}
	}
	return networks, nil
}

// Page is one normalized page of matched orders.
type Page struct {
	Orders     []domain.MatchedOrder
	Page       int
	PerPage    int
	TotalPages int
	TotalItems int
	// Skipped lists records on the page that could not be decoded.
	Skipped []SkippedRecord
}

// SkippedRecord is an order record dropped while decoding a page.
type SkippedRecord struct {
	Index int
	Err   error
}

// MatchedOrders fetches one page of matched orders.
func (c *Client) MatchedOrders(ctx context.Context, page, perPage int) (*Page, error) {
	u, err := url.Parse(c.ordersURL)
	if err != nil {
		return nil, fmt.Errorf("parse orders url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, "orders", u.String())
	if err != nil {
		return nil, fmt.Errorf("fetch matched orders: %w", err)
	}

	p, err := DecodePage(body)
	if err != nil {
		return nil, err
	}
	if p.Page == 0 {
		p.Page = page
	}
	if p.PerPage == 0 {
		p.PerPage = perPage
	}
	for _, sk := range p.Skipped {
		c.log.Warn("skipping undecodable order record",
			zap.Int("page", p.Page),
			zap.Int("index", sk.Index),
			zap.Error(sk.Err),
		)
		observability.RecordOrderRejected(ReasonMalformedRecord)
	}
	observability.RecordOrdersFetched(len(p.Orders))
	return p, nil
}
