// Package history records treediff runs in a Badger database so earlier
// results can be listed and inspected.
//
// Key layout:
//
//	r:<unix nano, 8 bytes big-endian><uuid>  -> JSON Run
//	i:<uuid>                                 -> r: key of the run
//	m:__schema__                             -> JSON schema record
//
// Run keys sort by time, so a reverse prefix scan lists newest first.
package history

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jamesainslie/treediff/pkg/treediff/logging"
)

const (
	prefixRun     = "r:"
	prefixID      = "i:"
	schemaKey     = "m:__schema__"
	tsLen         = 8
	schemaVersion = 1
)

// MaxStoredPaths caps the number of missing paths kept per run.
const MaxStoredPaths = 10000

// ErrNotFound is returned when no run has the requested ID.
var ErrNotFound = errors.New("run not found")

// Run is one recorded diff.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`

	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Exclude []string `json:"exclude,omitempty"`

	SourceEntries int   `json:"source_entries"`
	TargetEntries int   `json:"target_entries"`
	Missing       int   `json:"missing"`
	Skipped       int64 `json:"skipped"`
	Excluded      int64 `json:"excluded"`
	Workers       int   `json:"workers"`

	Duration time.Duration `json:"duration"`

	// Paths holds up to MaxStoredPaths of the missing paths.
	Paths     []string `json:"paths,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}

type schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the run history backed by Badger.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(schemaKey))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(schema{Version: schemaVersion, UpdatedAt: s.now().UTC()})
		if err != nil {
			return err
		}
		return txn.Set([]byte(schemaKey), data)
	})
}

func runKey(at time.Time, id string) []byte {
	key := make([]byte, 0, len(prefixRun)+tsLen+len(id))
	key = append(key, prefixRun...)
	key = binary.BigEndian.AppendUint64(key, uint64(at.UnixNano()))
	return append(key, id...)
}

// Record stores run, assigning a new ID and, if unset, a start time. The
// stored run is returned.
func (s *Store) Record(run Run) (Run, error) {
	run.ID = uuid.NewString()
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.StartedAt = run.StartedAt.UTC()

	if len(run.Paths) > MaxStoredPaths {
		run.Paths = run.Paths[:MaxStoredPaths]
		run.Truncated = true
	}

	data, err := json.Marshal(run)
	if err != nil {
		return Run{}, err
	}

	key := runKey(run.StartedAt, run.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixID+run.ID), key)
	})
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}

	logging.Get("history").Debug("run recorded", "id", run.ID, "missing", run.Missing)
	return run, nil
}

// Get returns the run with the given ID.
func (s *Store) Get(id string) (*Run, error) {
	var run Run

	err := s.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get([]byte(prefixID + id))
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first. A limit of 0 or less returns
// every run. Stored paths are omitted.
func (s *Store) List(limit int) ([]Run, error) {
	var runs []Run

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixRun)
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRun)
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var run Run
				if err := json.Unmarshal(val, &run); err != nil {
					return err
				}
				run.Paths = nil
				runs = append(runs, run)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return runs, err
}

// Prune deletes runs that started more than olderThan ago and reports how
// many were removed.
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	cutoff := runKey(s.now().Add(-olderThan), "")
	prefix := []byte(prefixRun)

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key[:len(cutoff)]) >= string(cutoff) {
				break
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		id := string(key[len(prefixRun)+tsLen:])
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
		if err := wb.Delete([]byte(prefixID + id)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}

	logging.Get("history").Info("history pruned", "removed", len(stale))
	return len(stale), nil
}
