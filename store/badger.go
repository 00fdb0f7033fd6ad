package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/katalvlaran/dspace/designspace"
)

// prefix namespaces every key written by the archive.
const prefix = "dspace/"

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = fmt.Errorf("store: key not found: %w", designspace.ErrNotFound)

	// ErrEmptyKey is returned for an empty key.
	ErrEmptyKey = errors.New("store: empty key")

	// ErrConfig is returned by Open for a config without Path or InMemory.
	ErrConfig = errors.New("store: path is required for a persistent archive")
)

// Config holds the settings of a Badger archive.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM.
	InMemory bool
	// SyncWrites flushes every write before returning.
	SyncWrites bool
	// Logger receives BadgerDB's own messages. Nil silences them.
	Logger *slog.Logger
}

// InMemoryConfig returns a Config for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(format string, args ...any) { b.l.Error(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(fmt.Sprintf(format, args...))
}
func (b badgerLogger) Infof(format string, args ...any)  { b.l.Info(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Debugf(format string, args ...any) { b.l.Debug(fmt.Sprintf(format, args...)) }

// Badger is an Archive over one BadgerDB database. It is safe for
// concurrent use.
type Badger struct {
	db *badger.DB
}

var _ designspace.Archive = (*Badger)(nil)

// Open opens or creates the archive described by cfg.
func Open(cfg Config) (*Badger, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path == "":
		return nil, ErrConfig
	default:
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("Open(%s): %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{l: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}

	return &Badger{db: db}, nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

func dbKey(key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	return []byte(prefix + key), nil
}

// Put stores data under key, replacing any previous value.
func (b *Badger) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := dbKey(key)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, data)
	})
}

// Get returns a copy of the value under key.
func (b *Badger) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := dbKey(key)
	if err != nil {
		return nil, err
	}

	var out []byte
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("Get(%q): %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get(%q): %w", key, err)
	}

	return out, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Badger) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := dbKey(key)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

// List returns the keys starting with keyPrefix in ascending order.
func (b *Badger) List(ctx context.Context, keyPrefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix + keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("List(%q): %w", keyPrefix, err)
	}
	sort.Strings(keys)

	return keys, nil
}
