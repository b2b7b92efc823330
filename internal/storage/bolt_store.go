package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	runBucket        = "runs"
	expiryValueBytes = 8
	startedKeyBytes  = 8
)

var errBucketMissing = errors.New("run bucket missing")

// boltStore implements a Store backed by BoltDB.
//
// Keys are the big-endian start time in nanoseconds followed by the run id so
// a cursor walks runs in start order. Values carry an expiry prefix followed by
// the JSON encoded RunRecord.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	pruned          atomic.Int64
	runTTL          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		runTTL:          opts.RunTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SaveRun persists the run, replacing any earlier record with the same key.
func (b *boltStore) SaveRun(run RunRecord) error {
	if b == nil || b.db == nil {
		return nil
	}
	if run.ID == "" {
		return errors.New("run id is required")
	}

	now := b.now()
	if err := b.pruneIfDue(now); err != nil {
		return err
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	value := make([]byte, expiryValueBytes+len(payload))
	binary.BigEndian.PutUint64(value, uint64(now.Add(b.runTTL).Unix()))
	copy(value[expiryValueBytes:], payload)

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put(runKey(run), value)
	})
}

// RecentRuns returns up to limit unexpired runs, newest first. A limit <= 0
// returns every stored run.
func (b *boltStore) RecentRuns(limit int) ([]RunRecord, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	now := b.now()
	if err := b.pruneIfDue(now); err != nil {
		return nil, err
	}

	var runs []RunRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return errBucketMissing
		}

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			if !live(v, now) {
				continue
			}
			var run RunRecord
			if err := json.Unmarshal(v[expiryValueBytes:], &run); err != nil {
				return fmt.Errorf("decode run %x: %w", k, err)
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

func runKey(run RunRecord) []byte {
	key := make([]byte, startedKeyBytes, startedKeyBytes+len(run.ID))
	binary.BigEndian.PutUint64(key, uint64(run.StartedAt.UnixNano()))
	return append(key, run.ID...)
}

// due reports whether a prune pass is owed at now.
func (b *boltStore) due(now time.Time) bool {
	return now.Sub(time.Unix(b.lastCleanup.Load(), 0)) >= b.cleanupInterval
}

// pruneIfDue deletes expired runs at most once per cleanup interval.
func (b *boltStore) pruneIfDue(now time.Time) error {
	if b == nil || b.db == nil || !b.due(now) {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()
	if !b.due(now) {
		return nil
	}

	var pruned int
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(runBucket))
		if bucket == nil {
			return errBucketMissing
		}
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if live(v, now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return fmt.Errorf("prune run %x: %w", k, err)
			}
			pruned++
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.lastCleanup.Store(now.Unix())
	b.pruned.Add(int64(pruned))
	return nil
}

// live reports whether a stored value has not yet expired.
func live(value []byte, now time.Time) bool {
	expiry, ok := decodeExpiry(value)
	return ok && expiry.After(now)
}

// decodeExpiry reads the expiry prefix of a stored value.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
