package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v3"
	"github.com/evanofslack/adsmutate/internal/metrics"
)

const runPrefix = "run:"

// Journal keeps a record of every workflow run, including the resource
// names committed by runs that stopped part way.
type Journal interface {
	Record(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	// List returns up to limit runs, newest first. A limit of zero returns
	// every run.
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

type badgerJournal struct {
	db      *badger.DB
	metrics *metrics.Metrics
}

func New(path string, metrics *metrics.Metrics) (Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &badgerJournal{db: db, metrics: metrics}, nil
}

// NewInMemory opens a journal that lives only as long as the process.
func NewInMemory(metrics *metrics.Metrics) (Journal, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger db: %w", err)
	}
	return &badgerJournal{db: db, metrics: metrics}, nil
}

func (j *badgerJournal) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		j.metrics.IncJournalRequest("create", false)
		return errors.New("run id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		j.metrics.IncJournalRequest("create", false)
		return fmt.Errorf("encode run: %w", err)
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runPrefix+run.ID), data)
	})
	j.metrics.IncJournalRequest("create", err == nil)
	return err
}

func (j *badgerJournal) Get(ctx context.Context, id string) (Run, error) {
	var run Run
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	j.metrics.IncJournalRequest("read", err == nil || errors.Is(err, ErrNotFound))
	return run, err
}

func (j *badgerJournal) List(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run

	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var run Run
				if err := json.Unmarshal(val, &run); err != nil {
					return err
				}
				runs = append(runs, run)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	j.metrics.IncJournalRequest("list", err == nil)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(a, b int) bool {
		return runs[a].StartedAt.After(runs[b].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (j *badgerJournal) Close() error {
	return j.db.Close()
}
