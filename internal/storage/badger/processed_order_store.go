// Package badger provides an embedded on-disk dedup store for single-node deployments.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"garden-volume-watch/internal/observability"
	"garden-volume-watch/internal/storage"
)

const processedKeyPrefix = "processed_order_"

// ProcessedOrderStore is a Badger implementation of storage.ProcessedOrderStore.
// Each id is stored under processed_order_<id> with the mark time (unix millis) as value.
type ProcessedOrderStore struct {
	db *badger.DB
}

// Open opens (or creates) the store at dir. An empty dir opens an in-memory database.
func Open(dir string, logger *zap.Logger) (*ProcessedOrderStore, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(&zapLogger{log: logger.Sugar()}).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &ProcessedOrderStore{db: db}, nil
}

// Close closes the underlying database.
func (s *ProcessedOrderStore) Close() error {
	return s.db.Close()
}

// MarkProcessed records orderID. Repeat marks keep the first timestamp.
func (s *ProcessedOrderStore) MarkProcessed(_ context.Context, orderID string, at time.Time) (err error) {
	if orderID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("mark_processed", start, err) }(time.Now())

	key := []byte(processedKeyPrefix + orderID)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, []byte(strconv.FormatInt(at.UnixMilli(), 10)))
	})
}

// IsProcessed reports whether orderID was marked.
func (s *ProcessedOrderStore) IsProcessed(_ context.Context, orderID string) (ok bool, err error) {
	if orderID == "" {
		return false, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("is_processed", start, err) }(time.Now())

	err = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(processedKeyPrefix + orderID))
		if err == nil {
			ok = true
			return nil
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	return ok, err
}

// LoadProcessed returns all marked ids ordered by mark time ASC.
func (s *ProcessedOrderStore) LoadProcessed(_ context.Context) (ids []string, err error) {
	defer func(start time.Time) { observe("load_processed", start, err) }(time.Now())

	type entry struct {
		id string
		at int64
	}
	var entries []entry
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(processedKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), processedKeyPrefix)
			err := item.Value(func(v []byte) error {
				at, err := strconv.ParseInt(string(v), 10, 64)
				if err != nil {
					return fmt.Errorf("decode mark time for %s: %w", id, err)
				}
				entries = append(entries, entry{id: id, at: at})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Iteration is key-ordered, so a stable sort keeps ids ordered within one millisecond
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at < entries[j].at })
	ids = make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

// Count returns the number of marked ids.
func (s *ProcessedOrderStore) Count(_ context.Context) (n int, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(processedKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func observe(op string, start time.Time, err error) {
	observability.RecordDBQuery("badger", op, time.Since(start).Seconds(), err)
}

// zapLogger adapts a zap logger to badger.Logger.
type zapLogger struct {
	log *zap.SugaredLogger
}

func (l *zapLogger) Errorf(msg string, args ...any)   { l.log.Errorf(strings.TrimSpace(msg), args...) }
func (l *zapLogger) Warningf(msg string, args ...any) { l.log.Warnf(strings.TrimSpace(msg), args...) }
func (l *zapLogger) Infof(msg string, args ...any)    { l.log.Infof(strings.TrimSpace(msg), args...) }
func (l *zapLogger) Debugf(msg string, args ...any)   { l.log.Debugf(strings.TrimSpace(msg), args...) }

// Verify interface compliance
var _ storage.ProcessedOrderStore = (*ProcessedOrderStore)(nil)
