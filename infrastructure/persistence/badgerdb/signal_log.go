package badgerdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	"github.com/pmacom/fivethirtynews-relate/domain/relationship"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// SignalLog is the append-only audit trail. Keys embed a zero-padded
// occurrence timestamp so lexicographic key order is chronological order;
// the signal ID suffix keeps same-nanosecond appends from colliding.
type SignalLog struct {
	store *Store
}

// NewSignalLog creates a Badger-backed signal log.
func NewSignalLog(store *Store) *SignalLog {
	return &SignalLog{store: store}
}

var _ ports.SignalLog = (*SignalLog)(nil)

func signalKey(event *relationship.SignalEvent) []byte {
	return []byte(fmt.Sprintf("%s%020d#%s", prefixSignal, event.OccurredAt.UnixNano(), event.ID))
}

// Append writes one signal. Existing entries are never touched.
func (l *SignalLog) Append(ctx context.Context, event *relationship.SignalEvent) error {
	if err := apperrors.FromContext(ctx, "append signal"); err != nil {
		return err
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewInternalError("marshal signal", err)
	}

	err = l.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(signalKey(event), raw)
	})
	if err != nil {
		return apperrors.NewStorageError("append signal", err)
	}
	return nil
}

// ListRecent returns up to limit signals, newest first.
func (l *SignalLog) ListRecent(ctx context.Context, limit int) ([]*relationship.SignalEvent, error) {
	if err := apperrors.FromContext(ctx, "list signals"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*relationship.SignalEvent{}, nil
	}

	prefix := []byte(prefixSignal)
	events := make([]*relationship.SignalEvent, 0, limit)

	err := l.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts just past the prefix range.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			event := &relationship.SignalEvent{}
			if err := json.Unmarshal(raw, event); err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("list signals", err)
	}
	return events, nil
}
