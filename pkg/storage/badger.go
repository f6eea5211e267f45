// Package storage keeps named, versioned classifier snapshots in BadgerDB.
//
// Snapshot blobs are content addressed by their BLAKE3 digest, so saving an
// unchanged classifier twice stores its bytes once.
package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"lukechampine.com/blake3"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
	"github.com/ThomasFarrenkopf/pellet/pkg/classifier"
	"github.com/ThomasFarrenkopf/pellet/pkg/pool"
)

// Key prefixes for BadgerDB storage organization
const (
	prefixBlob = byte(0x01) // blob:digest -> snapshot bytes
	prefixRef  = byte(0x02) // ref:name:0x00:version -> JSON(SnapshotInfo)
	prefixHead = byte(0x03) // head:name -> latest version
)

// SnapshotStore persists classifier snapshots.
//
// Key Structure:
//   - Blobs: 0x01 + hex digest -> zstd compressed snapshot
//   - Refs: 0x02 + name + 0x00 + big-endian version -> JSON(SnapshotInfo)
//   - Heads: 0x03 + name -> big-endian latest version
//
// Example:
//
//	store, err := storage.Open(storage.Options{DataDir: "./data"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	info, err := store.Save(ctx, "nightly", c)
type SnapshotStore struct {
	db     *badger.DB
	log    *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// Options configures the store.
type Options struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool

	// Logger receives BadgerDB's warnings and errors. Nil keeps it quiet.
	Logger *slog.Logger
}

// Open opens or creates a store.
func Open(opts Options) (*SnapshotStore, error) {
	if !opts.InMemory && opts.DataDir == "" {
		return nil, fmt.Errorf("%w: data directory required", ErrInvalidOptions)
	}
	dir := opts.DataDir
	if opts.InMemory {
		dir = ""
	}
	badgerOpts := badger.DefaultOptions(dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites)

	log := opts.Logger
	if log != nil {
		badgerOpts = badgerOpts.WithLogger(badgerLogger{log: log.With("component", "badger")})
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
		log = slog.New(slog.DiscardHandler)
	}

	// Snapshots are small and written rarely.
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(8 << 20).
		WithIndexCacheSize(4 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &SnapshotStore{db: db, log: log}, nil
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*SnapshotStore, error) {
	return Open(Options{InMemory: true})
}

// ============================================================================
// Key encoding helpers
// ============================================================================

func blobKey(digest string) []byte {
	return append([]byte{prefixBlob}, digest...)
}

func refPrefix(name string) []byte {
	key := append([]byte{prefixRef}, name...)
	return append(key, 0x00)
}

func refKey(name string, version uint64) []byte {
	return binary.BigEndian.AppendUint64(refPrefix(name), version)
}

func headKey(name string) []byte {
	return append([]byte{prefixHead}, name...)
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func checkName(name string) error {
	if name == "" || len(name) > 128 || bytes.IndexByte([]byte(name), 0x00) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (s *SnapshotStore) check(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStorageClosed
	}
	return ctx.Err()
}

// ============================================================================
// Snapshot operations
// ============================================================================

// Put stores data as the next version of name.
func (s *SnapshotStore) Put(ctx context.Context, name string, data []byte) (SnapshotInfo, error) {
	if err := checkName(name); err != nil {
		return SnapshotInfo{}, err
	}
	if len(data) == 0 {
		return SnapshotInfo{}, ErrInvalidData
	}
	if err := s.check(ctx); err != nil {
		return SnapshotInfo{}, err
	}

	info := SnapshotInfo{
		Name:      name,
		Digest:    Digest(data),
		Size:      len(data),
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		latest, err := headVersion(txn, name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		info.Version = latest + 1

		if _, err := txn.Get(blobKey(info.Digest)); errors.Is(err, badger.ErrKeyNotFound) {
			if err := txn.Set(blobKey(info.Digest), data); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		ref, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot info: %w", err)
		}
		if err := txn.Set(refKey(name, info.Version), ref); err != nil {
			return err
		}
		return txn.Set(headKey(name), binary.BigEndian.AppendUint64(nil, info.Version))
	})
	if err != nil {
		return SnapshotInfo{}, err
	}
	s.log.Debug("snapshot stored", "name", name, "version", info.Version, "digest", info.Digest, "bytes", info.Size)
	return info, nil
}

// Get returns a stored snapshot. Version 0 selects the latest one. The blob
// is checked against its digest.
func (s *SnapshotStore) Get(ctx context.Context, name string, version uint64) (SnapshotInfo, []byte, error) {
	if err := checkName(name); err != nil {
		return SnapshotInfo{}, nil, err
	}
	if err := s.check(ctx); err != nil {
		return SnapshotInfo{}, nil, err
	}

	var (
		info SnapshotInfo
		data []byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		if version == 0 {
			latest, err := headVersion(txn, name)
			if err != nil {
				return err
			}
			version = latest
		}
		item, err := txn.Get(refKey(name, version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		}); err != nil {
			return fmt.Errorf("failed to decode snapshot info: %w", err)
		}

		blob, err := txn.Get(blobKey(info.Digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: blob %s missing", ErrCorrupt, info.Digest)
		}
		if err != nil {
			return err
		}
		data, err = blob.ValueCopy(nil)
		return err
	})
	if err != nil {
		return SnapshotInfo{}, nil, err
	}
	if Digest(data) != info.Digest {
		return SnapshotInfo{}, nil, fmt.Errorf("%w: %s version %d digest mismatch", ErrCorrupt, name, info.Version)
	}
	return info, data, nil
}

func headVersion(txn *badger.Txn, name string) (uint64, error) {
	item, err := txn.Get(headKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var v uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("%w: head of %s", ErrCorrupt, name)
		}
		v = binary.BigEndian.Uint64(val)
		return nil
	})
	return v, err
}

// Versions returns every stored version of name, oldest first.
func (s *SnapshotStore) Versions(ctx context.Context, name string) ([]SnapshotInfo, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.scan(ctx, refPrefix(name))
}

// List returns every stored version of every snapshot, ordered by name and
// version.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	infos, err := s.scan(ctx, []byte{prefixRef})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].Version < infos[j].Version
	})
	return infos, nil
}

func (s *SnapshotStore) scan(ctx context.Context, prefix []byte) ([]SnapshotInfo, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var infos []SnapshotInfo
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var info SnapshotInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return fmt.Errorf("failed to decode snapshot info: %w", err)
			}
			infos = append(infos, info)
		}
		return nil
	})
	return infos, err
}

// Delete removes every version of name and the blobs no other snapshot
// refers to.
func (s *SnapshotStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.check(ctx); err != nil {
		return err
	}
	versions, err := s.Versions(ctx, name)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return ErrNotFound
	}
	others, err := s.List(ctx)
	if err != nil {
		return err
	}
	inUse := make(map[string]bool)
	for _, info := range others {
		if info.Name != name {
			inUse[info.Digest] = true
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, info := range versions {
			if err := txn.Delete(refKey(name, info.Version)); err != nil {
				return err
			}
			if !inUse[info.Digest] {
				if err := txn.Delete(blobKey(info.Digest)); err != nil {
					return err
				}
				inUse[info.Digest] = true
			}
		}
		return txn.Delete(headKey(name))
	})
	if err == nil {
		s.log.Debug("snapshot deleted", "name", name, "versions", len(versions))
	}
	return err
}

// Save stores the state of c as the next version of name.
func (s *SnapshotStore) Save(ctx context.Context, name string, c *classifier.Classifier) (SnapshotInfo, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := c.Save(buf); err != nil {
		return SnapshotInfo{}, err
	}
	return s.Put(ctx, name, buf.Bytes())
}

// Load restores a classifier from a stored snapshot over ont (see
// classifier.Load). Version 0 selects the latest one.
func (s *SnapshotStore) Load(ctx context.Context, name string, version uint64, ont *axiom.Ontology, cfg classifier.Config) (*classifier.Classifier, SnapshotInfo, error) {
	info, data, err := s.Get(ctx, name, version)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	c, err := classifier.Load(ctx, bytes.NewReader(data), ont, cfg)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	return c, info, nil
}

// Close closes the store.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// badgerLogger forwards BadgerDB's printf logging to slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
