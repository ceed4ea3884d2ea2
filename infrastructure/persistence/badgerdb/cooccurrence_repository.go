package badgerdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// CoOccurrenceRepository stores tag co-occurrence counts with the same
// primary-plus-index layout as edges. Increment is a read-modify-write in a
// single transaction; the aggregator serializes callers per pair key.
type CoOccurrenceRepository struct {
	store *Store
}

// NewCoOccurrenceRepository creates a Badger-backed co-occurrence repository.
func NewCoOccurrenceRepository(store *Store) *CoOccurrenceRepository {
	return &CoOccurrenceRepository{store: store}
}

var _ ports.CoOccurrenceRepository = (*CoOccurrenceRepository)(nil)

func coOccKey(pair relationship.CanonicalPair) []byte {
	return []byte(prefixCoOcc + pair.Key())
}

func coOccIndexKey(member string, pair relationship.CanonicalPair) []byte {
	return []byte(prefixCoOccIndex + member + "#" + pair.Key())
}

// Increment adds one to the pair's count, creating the record on first use.
func (r *CoOccurrenceRepository) Increment(ctx context.Context, pair relationship.CanonicalPair, now time.Time) error {
	if err := apperrors.FromContext(ctx, "increment co-occurrence"); err != nil {
		return err
	}

	err := r.store.db.Update(func(txn *badger.Txn) error {
		record := &relationship.TagCoOccurrencePair{Pair: pair}
		raw, err := get(txn, coOccKey(pair))
		if err != nil {
			return err
		}
		if raw != nil {
			if err := json.Unmarshal(raw, record); err != nil {
				return err
			}
		}

		record.Count++
		record.UpdatedAt = now

		updated, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := txn.Set(coOccKey(pair), updated); err != nil {
			return err
		}
		if err := txn.Set(coOccIndexKey(pair.First, pair), nil); err != nil {
			return err
		}
		return txn.Set(coOccIndexKey(pair.Second, pair), nil)
	})
	if err != nil {
		return apperrors.NewStorageError("increment co-occurrence", err)
	}
	return nil
}

// Get returns the pair's count record, or (nil, nil) when the tags have
// never co-occurred.
func (r *CoOccurrenceRepository) Get(ctx context.Context, pair relationship.CanonicalPair) (*relationship.TagCoOccurrencePair, error) {
	if err := apperrors.FromContext(ctx, "get co-occurrence"); err != nil {
		return nil, err
	}

	var record *relationship.TagCoOccurrencePair
	err := r.store.db.View(func(txn *badger.Txn) error {
		raw, err := get(txn, coOccKey(pair))
		if err != nil || raw == nil {
			return err
		}
		record = &relationship.TagCoOccurrencePair{}
		return json.Unmarshal(raw, record)
	})
	if err != nil {
		return nil, apperrors.NewStorageError("get co-occurrence", err)
	}
	return record, nil
}

// ListByTag returns every co-occurrence record whose pair contains tagID.
func (r *CoOccurrenceRepository) ListByTag(ctx context.Context, tagID string) ([]*relationship.TagCoOccurrencePair, error) {
	if err := apperrors.FromContext(ctx, "list co-occurrences"); err != nil {
		return nil, err
	}

	prefix := []byte(prefixCoOccIndex + tagID + "#")
	var records []*relationship.TagCoOccurrencePair

	err := r.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			canonicalKey := string(it.Item().Key()[len(prefix):])
			raw, err := get(txn, []byte(prefixCoOcc+canonicalKey))
			if err != nil {
				return err
			}
			if raw == nil {
				continue
			}
			record := &relationship.TagCoOccurrencePair{}
			if err := json.Unmarshal(raw, record); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("list co-occurrences", err)
	}
	return records, nil
}
