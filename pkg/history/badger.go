package history

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const gamePrefix = "game/"

// BadgerStore is a badger-backed Store. Documents are JSON values under a
// monotonic "game/<seq>" key, so iteration order is insertion order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens a store at the given directory. An empty path opens an
// in-memory store, used under test.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	seq, err := db.GetSequence([]byte("seq/game"), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open history sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

func (s *BadgerStore) Put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	n, err := s.seq.Next()
	if err != nil {
		return err
	}
	key := []byte(fmt.Sprintf("%v%020d", gamePrefix, n))

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) List(ctx context.Context, limit int) ([]Record, error) {
	var ret []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(gamePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				ret = append(ret, rec)
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

	// Keys ascend in insertion order; newest first.
	for i, j := 0, len(ret)-1; i < j; i, j = i+1, j-1 {
		ret[i], ret[j] = ret[j], ret[i]
	}
	if limit > 0 && len(ret) > limit {
		ret = ret[:limit]
	}
	return ret, nil
}

func (s *BadgerStore) Close() error {
	if s.seq != nil {
		_ = s.seq.Release()
	}
	return s.db.Close()
}
