// Package watcher runs the poll loop.
// One cycle: fetch catalog → fetch orders → convert → select → render → publish → mark.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garden-volume-watch/internal/catalog"
	"garden-volume-watch/internal/conversion"
	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/feed"
	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/observability"
	"garden-volume-watch/internal/publish"
	"garden-volume-watch/internal/selection"
	"garden-volume-watch/internal/storage"
)

// Feed is the source of catalog snapshots and matched orders.
type Feed interface {
	Catalog(ctx context.Context) (domain.NetworkCatalog, error)
	MatchedOrders(ctx context.Context, page, perPage int) (*feed.Page, error)
}

// Options configures a Watcher.
type Options struct {
	// Required
	Feed      Feed
	Comparer  conversion.Comparer
	Processed storage.ProcessedOrderStore
	Renderer  publish.Renderer
	Publisher publish.Publisher

	// Optional history sinks
	Outcomes  storage.OutcomeStore
	Analytics storage.OutcomeAnalyticsStore

	PollInterval    time.Duration
	Page            int
	PageSize        int
	OrdersPerPoll   int
	VolumeThreshold float64
	Concurrency     int
	FeeModel        conversion.FeeModel
	GardenTime      conversion.GardenTimeTable
	RequireSavings  bool

	Logger *zap.Logger
	Now    func() time.Time
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	CycleID   string        `json:"cycle_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Fetched   int           `json:"fetched"`
	// AlreadyProcessed counts fetched orders skipped before conversion.
	AlreadyProcessed int `json:"already_processed"`
	Converted        int `json:"converted"`
	Selected         int `json:"selected"`
	Skipped          int `json:"skipped"`
	Published        int `json:"published"`
	Failed           int `json:"failed"`
}

// Status is a snapshot of the watcher state.
type Status struct {
	Running        bool         `json:"running"`
	Cycles         int          `json:"cycles"`
	FailedCycles   int          `json:"failed_cycles"`
	LastCycle      *CycleResult `json:"last_cycle,omitempty"`
	LastError      string       `json:"last_error,omitempty"`
	LastSuccessAt  time.Time    `json:"last_success_at,omitempty"`
	ProcessedCount int          `json:"processed_count"`
}

// Watcher polls the feed and publishes high-volume outcomes.
type Watcher struct {
	opts Options
	log  *zap.Logger

	mu            sync.Mutex
	running       bool
	cycles        int
	failedCycles  int
	lastCycle     *CycleResult
	lastErr       error
	lastSuccessAt time.Time
}

// New creates a Watcher, filling unset tunables with defaults.
func New(opts Options) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Second
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1
	}
	if opts.OrdersPerPoll <= 0 {
		opts.OrdersPerPoll = 5
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Watcher{
		opts: opts,
		log:  logging.OrNop(opts.Logger).Named("watcher"),
	}
}

// ErrCycleRunning is returned when a cycle is requested while one is in flight.
var ErrCycleRunning = errors.New("cycle already running")

// Run executes a cycle immediately and then every PollInterval until ctx is done.
// Cycle errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("starting watcher",
		zap.Duration("interval", w.opts.PollInterval),
		zap.Float64("threshold_usd", w.opts.VolumeThreshold),
		zap.Int("orders_per_poll", w.opts.OrdersPerPoll),
	)

	w.tick(ctx)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	if _, err := w.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.log.Error("cycle failed", zap.Error(err))
	}
}

// RunCycle executes one poll cycle. Transport failures (catalog, feed, dedup
// store load) abort the cycle. Per-outcome render or publish failures are
// counted and leave the order unmarked so it is retried next cycle.
func (w *Watcher) RunCycle(ctx context.Context) (*CycleResult, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, ErrCycleRunning
	}
	w.running = true
	w.mu.Unlock()

	res := &CycleResult{CycleID: uuid.NewString(), StartedAt: w.opts.Now()}
	start := time.Now()
	err := w.runCycle(ctx, res)
	res.Duration = time.Since(start)

	w.mu.Lock()
	w.running = false
	w.cycles++
	w.lastCycle = res
	w.lastErr = err
	if err != nil {
		w.failedCycles++
	} else {
		w.lastSuccessAt = w.opts.Now()
	}
	w.mu.Unlock()

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordCycle(status, res.Duration.Seconds(), w.opts.Now().Unix())

	if err != nil {
		return res, err
	}
	w.log.Info("cycle completed",
		zap.String("cycle_id", res.CycleID),
		zap.Duration("duration", res.Duration),
		zap.Int("fetched", res.Fetched),
		zap.Int("already_processed", res.AlreadyProcessed),
		zap.Int("converted", res.Converted),
		zap.Int("selected", res.Selected),
		zap.Int("published", res.Published),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (w *Watcher) runCycle(ctx context.Context, res *CycleResult) error {
	log := w.log.With(zap.String("cycle_id", res.CycleID))

	networks, err := w.opts.Feed.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	cat := catalog.New(networks, catalog.Options{Logger: w.opts.Logger, MatchSymbol: true})
	conv := conversion.New(cat, conversion.Options{
		Comparer:   w.opts.Comparer,
		FeeModel:   w.opts.FeeModel,
		GardenTime: w.opts.GardenTime,
		Logger:     w.opts.Logger,
	})

	page, err := w.opts.Feed.MatchedOrders(ctx, w.opts.Page, w.opts.PageSize)
	if err != nil {
		return fmt.Errorf("fetch orders: %w", err)
	}
	res.Fetched = len(page.Orders)

	ids, err := w.opts.Processed.LoadProcessed(ctx)
	if err != nil {
		return fmt.Errorf("load processed orders: %w", err)
	}
	seen := selection.NewSeenSet(ids...)

	// Published orders are never quoted again.
	pending := make([]domain.MatchedOrder, 0, len(page.Orders))
	for _, o := range page.Orders {
		if seen.Has(o.OrderID()) {
			res.AlreadyProcessed++
			continue
		}
		pending = append(pending, o)
	}

	outcomes := conv.ConvertBatch(ctx, pending, w.opts.Concurrency)
	res.Converted = len(outcomes)

	top := selection.Top(selection.Select(outcomes, w.opts.VolumeThreshold, seen), w.opts.OrdersPerPoll)
	res.Selected = len(top)
	observability.RecordSelected(len(top))

	var published []*domain.NormalizedOutcome
	for _, o := range top {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.opts.RequireSavings && !o.HasSavings() {
			log.Debug("skipping outcome without savings",
				zap.String("order_id", o.OrderID),
				zap.Float64("fee_saved_usd", o.FeeSavedUSD),
			)
			res.Skipped++
			continue
		}
		if err := w.process(ctx, log, o); err != nil {
			log.Error("publish failed", zap.String("order_id", o.OrderID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Published++
		published = append(published, o)
	}

	if w.opts.Analytics != nil && len(published) > 0 {
		if err := w.opts.Analytics.InsertBulk(ctx, published); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			log.Warn("analytics insert failed", zap.Error(err))
		}
	}
	return nil
}

// process renders and publishes one outcome, then marks it processed.
// The mark happens only after a successful publish.
func (w *Watcher) process(ctx context.Context, log *zap.Logger, o *domain.NormalizedOutcome) error {
	path, err := w.opts.Renderer.Render(ctx, o)
	if err != nil {
		observability.RecordPublish("render_error", o.VolumeUSD)
		return fmt.Errorf("render: %w", err)
	}

	postID, err := w.opts.Publisher.Publish(ctx, publish.NewPost(o, path))
	if err != nil {
		observability.RecordPublish("error", o.VolumeUSD)
		return fmt.Errorf("publish: %w", err)
	}
	observability.RecordPublish("ok", o.VolumeUSD)
	log.Info("published outcome",
		zap.String("order_id", o.OrderID),
		zap.String("post_id", postID),
		zap.Float64("volume_usd", o.VolumeUSD),
	)

	if err := w.opts.Processed.MarkProcessed(ctx, o.OrderID, w.opts.Now()); err != nil {
		// Published but not marked: the order may be announced again after a restart.
		log.Error("mark processed failed", zap.String("order_id", o.OrderID), zap.Error(err))
	}
	if w.opts.Outcomes != nil {
		if err := w.opts.Outcomes.Insert(ctx, o); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			log.Warn("outcome insert failed", zap.String("order_id", o.OrderID), zap.Error(err))
		}
	}
	return nil
}

// Status returns a snapshot of the watcher state.
func (w *Watcher) Status(ctx context.Context) Status {
	w.mu.Lock()
	st := Status{
		Running:       w.running,
		Cycles:        w.cycles,
		FailedCycles:  w.failedCycles,
		LastCycle:     w.lastCycle,
		LastSuccessAt: w.lastSuccessAt,
	}
	if w.lastErr != nil {
		st.LastError = w.lastErr.Error()
	}
	w.mu.Unlock()

	if n, err := w.opts.Processed.Count(ctx); err == nil {
		st.ProcessedCount = n
	}
	return st
}

// Healthy reports whether a cycle succeeded within three poll intervals.
// A watcher that has not completed its first cycle yet is healthy.
func (w *Watcher) Healthy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cycles == 0 {
		return true
	}
	if w.lastSuccessAt.IsZero() {
		return false
	}
	return w.opts.Now().Sub(w.lastSuccessAt) <= 3*w.opts.PollInterval
}
