package badgerdb

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// CuratedTagRepository stores curated tag relationships. The primary record
// is keyed by the (tag1, tag2, type) upsert key; a secondary pointer maps
// the row ID back to that key so lookups and deletes by ID stay cheap.
type CuratedTagRepository struct {
	store *Store
}

// NewCuratedTagRepository creates a Badger-backed curated repository.
func NewCuratedTagRepository(store *Store) *CuratedTagRepository {
	return &CuratedTagRepository{store: store}
}

var _ ports.CuratedTagRepository = (*CuratedTagRepository)(nil)

func curatedKey(upsertKey string) []byte {
	return []byte(prefixCurated + upsertKey)
}

func curatedIDKey(id string) []byte {
	return []byte(prefixCuratedByID + id)
}

// Upsert creates or replaces the relationship for rel's upsert key. On
// replace the stored ID and CreatedAt survive; only strength and UpdatedAt
// move. Returns the stored row.
func (r *CuratedTagRepository) Upsert(ctx context.Context, rel *relationship.CuratedTagRelationship) (*relationship.CuratedTagRelationship, error) {
	if err := apperrors.FromContext(ctx, "upsert curated relationship"); err != nil {
		return nil, err
	}

	stored := *rel
	err := r.store.db.Update(func(txn *badger.Txn) error {
		raw, err := get(txn, curatedKey(rel.UpsertKey()))
		if err != nil {
			return err
		}
		if raw != nil {
			existing := &relationship.CuratedTagRelationship{}
			if err := json.Unmarshal(raw, existing); err != nil {
				return err
			}
			stored.ID = existing.ID
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.ID = uuid.New().String()
		}

		updated, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		if err := txn.Set(curatedKey(stored.UpsertKey()), updated); err != nil {
			return err
		}
		return txn.Set(curatedIDKey(stored.ID), []byte(stored.UpsertKey()))
	})
	if err != nil {
		return nil, apperrors.NewStorageError("upsert curated relationship", err)
	}
	return &stored, nil
}

// GetByID returns the relationship with the given ID, or (nil, nil).
func (r *CuratedTagRepository) GetByID(ctx context.Context, id string) (*relationship.CuratedTagRelationship, error) {
	if err := apperrors.FromContext(ctx, "get curated relationship"); err != nil {
		return nil, err
	}

	var rel *relationship.CuratedTagRelationship
	err := r.store.db.View(func(txn *badger.Txn) error {
		pointer, err := get(txn, curatedIDKey(id))
		if err != nil || pointer == nil {
			return err
		}
		raw, err := get(txn, curatedKey(string(pointer)))
		if err != nil || raw == nil {
			return err
		}
		rel = &relationship.CuratedTagRelationship{}
		return json.Unmarshal(raw, rel)
	})
	if err != nil {
		return nil, apperrors.NewStorageError("get curated relationship", err)
	}
	return rel, nil
}

// Delete removes the relationship and its ID pointer. Deleting an unknown
// ID is a no-op here; the service layer decides whether that is NotFound.
func (r *CuratedTagRepository) Delete(ctx context.Context, id string) error {
	if err := apperrors.FromContext(ctx, "delete curated relationship"); err != nil {
		return err
	}

	err := r.store.db.Update(func(txn *badger.Txn) error {
		pointer, err := get(txn, curatedIDKey(id))
		if err != nil || pointer == nil {
			return err
		}
		if err := txn.Delete(curatedKey(string(pointer))); err != nil {
			return err
		}
		return txn.Delete(curatedIDKey(id))
	})
	if err != nil {
		return apperrors.NewStorageError("delete curated relationship", err)
	}
	return nil
}

// List returns relationships matching the filter, strongest first. The
// curated table is admin-sized, so filtering happens in memory after a full
// prefix scan.
func (r *CuratedTagRepository) List(ctx context.Context, filter ports.CuratedTagFilter) ([]*relationship.CuratedTagRelationship, error) {
	if err := apperrors.FromContext(ctx, "list curated relationships"); err != nil {
		return nil, err
	}

	prefix := []byte(prefixCurated)
	var rels []*relationship.CuratedTagRelationship

	err := r.store.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rel := &relationship.CuratedTagRelationship{}
			if err := json.Unmarshal(raw, rel); err != nil {
				return err
			}
			if !matchesFilter(rel, filter) {
				continue
			}
			rels = append(rels, rel)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("list curated relationships", err)
	}

	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Strength != rels[j].Strength {
			return rels[i].Strength > rels[j].Strength
		}
		return rels[i].UpsertKey() < rels[j].UpsertKey()
	})
	if filter.Limit > 0 && len(rels) > filter.Limit {
		rels = rels[:filter.Limit]
	}
	return rels, nil
}

func matchesFilter(rel *relationship.CuratedTagRelationship, filter ports.CuratedTagFilter) bool {
	if filter.TagID != "" && rel.Tag1 != filter.TagID && rel.Tag2 != filter.TagID {
		return false
	}
	if filter.Type != "" && rel.Type != filter.Type {
		return false
	}
	if rel.Strength < filter.MinStrength {
		return false
	}
	return true
}
