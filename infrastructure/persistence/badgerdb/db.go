// Package badgerdb implements the storage ports on an embedded Badger
// key-value store. It is the default backend: a single process owns the
// graph and no external database is required.
package badgerdb

import (
	"go.uber.org/zap"

	"github.com/dgraph-io/badger/v4"

	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// Key prefixes. Primary records hold JSON values; idx entries are empty and
// exist only so prefix scans can find records by a single pair member.
const (
	prefixEdge        = "edge#"
	prefixEdgeIndex   = "eidx#"
	prefixSignal      = "sig#"
	prefixCoOcc       = "cooc#"
	prefixCoOccIndex  = "cidx#"
	prefixCurated     = "tagrel#"
	prefixCuratedByID = "tagrelid#"
)

// Config holds the Badger store settings.
type Config struct {
	// Path is the data directory. Ignored when InMemory is set.
	Path string
	// InMemory runs the store without touching disk. Used in tests.
	InMemory bool
}

// Store wraps one Badger database shared by all repositories.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens or creates the database at cfg.Path.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.NewStorageError("open badger", err)
	}

	logger.Info("badger store opened",
		zap.String("path", cfg.Path),
		zap.Bool("inMemory", cfg.InMemory),
	)
	return &Store{db: db, logger: logger}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return apperrors.NewStorageError("close badger", err)
	}
	return nil
}

// get reads one key inside txn, returning (nil, nil) when absent.
func get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
