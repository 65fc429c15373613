package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/logging"
)

var (
	recordPrefix = []byte("rec:")
	indexPrefix  = []byte("idx:")
)

// BadgerStore keeps each record under rec:<id> and a time index entry under
// idx:<inverted nanos><id>, so a forward scan of the index is newest first.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
	logger    *logging.Logger
	stopGC    chan struct{}
	now       func() time.Time
}

var _ HistoryStore = (*BadgerStore)(nil)

func NewBadgerStore(cfg config.HistoryConfig, logger *logging.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	opts := badger.DefaultOptions(cfg.DataPath)
	if cfg.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	store := &BadgerStore{
		db:        db,
		retention: cfg.Retention,
		logger:    logger,
		stopGC:    make(chan struct{}),
		now:       time.Now,
	}

	if cfg.ValueLogGC && !cfg.InMemory && cfg.GCInterval > 0 {
		go store.runGC(cfg.GCInterval)
	}

	return store, nil
}

func recordKey(id string) []byte {
	return append(append([]byte{}, recordPrefix...), id...)
}

func indexKey(createdAt time.Time, id string) []byte {
	key := make([]byte, 0, len(indexPrefix)+8+len(id))
	key = append(key, indexPrefix...)
	key = binary.BigEndian.AppendUint64(key, math.MaxUint64-uint64(createdAt.UnixNano()))
	return append(key, id...)
}

func (s *BadgerStore) entry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if s.retention > 0 {
		e = e.WithTTL(s.retention)
	}
	return e
}

func (s *BadgerStore) Save(ctx context.Context, record *Record) (err error) {
	if record == nil {
		return errors.New("record is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now().UTC()
	}

	start := time.Now()
	defer func() { s.logger.StoreOperation(ctx, "save", record.ID, time.Since(start), err) }()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(s.entry(recordKey(record.ID), data)); err != nil {
			return err
		}
		return txn.SetEntry(s.entry(indexKey(record.CreatedAt, record.ID), []byte(record.ID)))
	})
}

func (s *BadgerStore) Get(ctx context.Context, id string) (record *Record, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if !errors.Is(err, ErrRecordNotFound) {
			s.logger.StoreOperation(ctx, "get", id, time.Since(start), err)
		}
	}()

	err = s.db.View(func(txn *badger.Txn) error {
		record, err = readRecord(txn, id)
		return err
	})
	return record, err
}

func readRecord(txn *badger.Txn, id string) (*Record, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	var record Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return &record, nil
}

func (s *BadgerStore) List(ctx context.Context, limit int) ([]RecordSummary, error) {
	summaries := []RecordSummary{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(indexPrefix); it.ValidForPrefix(indexPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(summaries) >= limit {
				break
			}

			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := readRecord(txn, string(id))
			if errors.Is(err, ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			summaries = append(summaries, record.Summarize())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	defer func() { s.logger.StoreOperation(ctx, "delete", id, time.Since(start), err) }()

	return s.db.Update(func(txn *badger.Txn) error {
		record, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(recordKey(id)); err != nil {
			return err
		}
		return txn.Delete(indexKey(record.CreatedAt, id))
	})
}

func (s *BadgerStore) Stats(ctx context.Context) (Stats, error) {
	lsmSize, vlogSize := s.db.Size()
	stats := Stats{
		LSMSize:   lsmSize,
		VLogSize:  vlogSize,
		TotalSize: lsmSize + vlogSize,
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(indexPrefix); it.ValidForPrefix(indexPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Records++
		}
		return nil
	})
	return stats, err
}

func (s *BadgerStore) Close() error {
	select {
	case <-s.stopGC:
	default:
		close(s.stopGC)
	}
	return s.db.Close()
}

func (s *BadgerStore) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rewrites := 0
			for s.db.RunValueLogGC(0.7) == nil {
				rewrites++
			}
			s.logger.Debug("BadgerDB garbage collection completed", "rewrites", rewrites)
		case <-s.stopGC:
			return
		}
	}
}
