package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a goleveldb-backed KV store, generalized from the
// teacher's bitcoin/db.go NewLevelDB helper: an empty path opens an
// in-memory store, otherwise a file-backed one.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a goleveldb database at path. If path is
// empty, an in-memory store is used instead.
func NewLevelDB(path string, compactOnInit bool) (*LevelDB, error) {
	if path == "" {
		mem := storage.NewMemStorage()
		db, err := leveldb.Open(mem, nil)
		if err != nil {
			return nil, fmt.Errorf("store: open in-memory leveldb: %w", err)
		}
		return &LevelDB{db: db}, nil
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open leveldb %s: %w", path, err)
	}

	if compactOnInit {
		log.Info().Str("path", path).Msg("compacting wallet leveldb...")
		if err := db.CompactRange(util.Range{}); err != nil {
			return nil, fmt.Errorf("store: compact leveldb %s: %w", path, err)
		}
		log.Info().Str("path", path).Msg("wallet leveldb compacted")
	}

	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(_ context.Context, key string) ([]byte, error) {
	v, err := l.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	return v, nil
}

func (l *LevelDB) Put(_ context.Context, key string, value []byte) error {
	if err := l.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

func (l *LevelDB) Delete(_ context.Context, key string) error {
	if err := l.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

func (l *LevelDB) ScanPrefix(_ context.Context, prefix string) ([]Entry, error) {
	iter := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var entries []Entry
	for iter.Next() {
		key := string(iter.Key())
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		entries = append(entries, Entry{Key: key, Value: value})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("store: scan prefix %s: %w", prefix, err)
	}
	return entries, nil
}

func (l *LevelDB) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("store: close leveldb: %w", err)
	}
	return nil
}
