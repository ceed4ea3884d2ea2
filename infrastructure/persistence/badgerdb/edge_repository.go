package badgerdb

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// EdgeRepository stores aggregated edges. Each edge is one primary record
// plus two index entries, one per member, so ListByMember is a single
// prefix scan regardless of which side of the pair is queried.
type EdgeRepository struct {
	store *Store
}

// NewEdgeRepository creates a Badger-backed edge repository.
func NewEdgeRepository(store *Store) *EdgeRepository {
	return &EdgeRepository{store: store}
}

var _ ports.EdgeRepository = (*EdgeRepository)(nil)

func edgeKey(pair relationship.CanonicalPair) []byte {
	return []byte(prefixEdge + pair.Key())
}

func edgeIndexKey(member string, pair relationship.CanonicalPair) []byte {
	return []byte(prefixEdgeIndex + member + "#" + pair.Key())
}

// Get returns the edge for a pair, or (nil, nil) when none exists.
func (r *EdgeRepository) Get(ctx context.Context, pair relationship.CanonicalPair) (*relationship.RelationshipEdge, error) {
	if err := apperrors.FromContext(ctx, "get edge"); err != nil {
		return nil, err
	}

	var edge *relationship.RelationshipEdge
	err := r.store.db.View(func(txn *badger.Txn) error {
		raw, err := get(txn, edgeKey(pair))
		if err != nil || raw == nil {
			return err
		}
		edge = &relationship.RelationshipEdge{}
		return json.Unmarshal(raw, edge)
	})
	if err != nil {
		return nil, apperrors.NewStorageError("get edge", err)
	}
	return edge, nil
}

// Put writes the edge and both member index entries in one transaction.
func (r *EdgeRepository) Put(ctx context.Context, edge *relationship.RelationshipEdge) error {
	if err := apperrors.FromContext(ctx, "put edge"); err != nil {
		return err
	}

	raw, err := json.Marshal(edge)
	if err != nil {
		return apperrors.NewInternalError("marshal edge", err)
	}

	err = r.store.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(edgeKey(edge.Pair), raw); err != nil {
			return err
		}
		if err := txn.Set(edgeIndexKey(edge.Pair.First, edge.Pair), nil); err != nil {
			return err
		}
		return txn.Set(edgeIndexKey(edge.Pair.Second, edge.Pair), nil)
	})
	if err != nil {
		return apperrors.NewStorageError("put edge", err)
	}
	return nil
}

// ListByMember returns every edge whose pair contains contentID. The index
// scan collects canonical keys, then each primary record is read in the
// same transaction.
func (r *EdgeRepository) ListByMember(ctx context.Context, contentID string) ([]*relationship.RelationshipEdge, error) {
	if err := apperrors.FromContext(ctx, "list edges"); err != nil {
		return nil, err
	}

	prefix := []byte(prefixEdgeIndex + contentID + "#")
	var edges []*relationship.RelationshipEdge

	err := r.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			canonicalKey := string(it.Item().Key()[len(prefix):])
			raw, err := get(txn, []byte(prefixEdge+canonicalKey))
			if err != nil {
				return err
			}
			if raw == nil {
				// Index entry without a record; skip rather than fail the scan.
				continue
			}
			edge := &relationship.RelationshipEdge{}
			if err := json.Unmarshal(raw, edge); err != nil {
				return err
			}
			edges = append(edges, edge)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("list edges", err)
	}
	return edges, nil
}
