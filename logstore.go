// Package logstore is a sqlite-backed, append-only log message store:
// dense monotonic ids, a paged in-memory cache, an observable ordered
// collection view, pruning by count or age, and online compaction.
package logstore

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gplg/logstore/internal/accessor"
	"github.com/gplg/logstore/internal/cache"
	"github.com/gplg/logstore/internal/cleanup"
	"github.com/gplg/logstore/internal/collection"
	"github.com/gplg/logstore/internal/logging"
	"github.com/gplg/logstore/internal/snapshot"
)

// Store is the façade: it exclusively owns one Accessor and one Cache,
// serialises every operation behind a single mutex, and exposes a
// Collection view over the same data.
type Store struct {
	mu sync.Mutex

	acc   accessor.Accessor
	cache *cache.Cache
	coll  *collection.Collection

	opts       Options
	path       string
	autoDelete bool
	closed     bool

	log zerolog.Logger
}

// Open opens or creates a store at path. An existing file's stored
// schema version selects the Accessor variant, ignoring opts.Purpose;
// a new file is created using opts.Purpose. opts.WriteMode is applied
// on every open, new or existing — durability is an operational choice
// of this process, not a fact persisted in the file.
func Open(path string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	acc, err := accessor.Open(path, purposeToAccessor(opts.Purpose), modeToAccessor(opts.WriteMode))
	if err != nil {
		return nil, err
	}

	s := &Store{
		acc:  acc,
		opts: opts,
		path: path,
		log:  logging.WithComponent("logstore"),
	}
	s.cache = cache.New(acc, opts.MaxCachePageCount, opts.PageCapacity)
	s.coll = collection.New(&collectionAdapter{s}, opts.CopySliceSize)

	s.log.Info().Str("path", path).Str("purpose", opts.Purpose.String()).
		Str("mode", opts.WriteMode.String()).Msg("store opened")
	return s, nil
}

// OpenTemp opens a new temporary store inside dir, named per the
// auto-delete marker convention. Before creating its own file it
// best-effort removes any marked files already in dir left behind by
// a process that crashed before disposing its own temporary store.
func OpenTemp(dir string, opts Options) (*Store, error) {
	cleanup.ScanAndClean(dir)
	path := filepath.Join(dir, cleanup.NewName(true))
	s, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	s.autoDelete = true
	return s, nil
}

// Close disposes the store: closes prepared commands and the
// connection, clears the cache, and — if the store was opened via
// OpenTemp — best-effort deletes its own file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.acc.Close()
	s.cache.Reset()
	if s.autoDelete {
		cleanup.DeleteIfMarked(s.path)
	}
	s.log.Info().Str("path", s.path).Msg("store closed")
	return err
}

func (s *Store) checkOpen(op string) error {
	if s.closed {
		return newDisposedError(op)
	}
	return nil
}

// Append writes a single message, assigning it the next id.
func (s *Store) Append(msg LogMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("append"); err != nil {
		return err
	}
	return s.coll.Append(msg)
}

// AppendMany writes msgs in one transaction, assigning consecutive ids.
func (s *Store) AppendMany(msgs []LogMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("append-many"); err != nil {
		return err
	}
	return s.coll.AppendMany(msgs)
}

// Read returns up to count consecutive messages starting at fromID.
func (s *Store) Read(fromID int64, count int) ([]LogMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("read"); err != nil {
		return nil, err
	}
	return s.acc.Read(fromID, count)
}

// ReadFunc streams up to count consecutive messages starting at
// fromID to fn, stopping early if fn returns false.
func (s *Store) ReadFunc(fromID int64, count int, fn func(LogMessage) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("read"); err != nil {
		return err
	}
	return s.acc.ReadFunc(fromID, count, fn)
}

// Clear empties the message table, and the dictionary tables too when
// messagesOnly is false.
func (s *Store) Clear(messagesOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("clear"); err != nil {
		return err
	}
	if err := s.acc.Clear(messagesOnly); err != nil {
		return err
	}
	s.cache.Reset()
	return nil
}

// Prune removes a prefix of the id range so that at most maxCount
// messages remain (when maxCount >= 0) and every remaining message has
// a timestamp at or after minTimestampUTC (when non-zero).
func (s *Store) Prune(maxCount int64, minTimestampUTC time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("prune"); err != nil {
		return err
	}
	if err := s.acc.Prune(maxCount, minTimestampUTC); err != nil {
		return err
	}
	s.cache.OnMessagesRemoved()
	return nil
}

// Vacuum compacts the store's own file in place.
func (s *Store) Vacuum() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("vacuum"); err != nil {
		return err
	}
	return s.acc.Vacuum()
}

// Snapshot writes an independent, compacted copy of the store to path.
// With onProgress nil, it uses the atomic, non-cancellable VACUUM INTO
// strategy. With onProgress set, it copies page by page, reporting
// progress and honouring cancellation (onProgress returning false
// deletes the partial file and Snapshot returns a backup-cancelled
// error).
func (s *Store) Snapshot(path string, onProgress func(fraction float64, bytesCopied int64, retried bool) bool) error {
	return s.SnapshotContext(context.Background(), path, onProgress)
}

// SnapshotContext is Snapshot with a caller-supplied context, whose
// cancellation additionally aborts a page-by-page backup in progress.
func (s *Store) SnapshotContext(ctx context.Context, path string, onProgress func(fraction float64, bytesCopied int64, retried bool) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("snapshot"); err != nil {
		return err
	}
	if onProgress == nil {
		return snapshot.VacuumInto(s.acc.DB(), path)
	}
	return snapshot.BackupWithProgress(ctx, s.acc.DB(), path, snapshot.Progress(onProgress))
}

// Names returns the sorted distinct names in the given dictionary.
// With usedOnly set, only names still referenced by a surviving
// message are returned.
func (s *Store) Names(kind NameKind, usedOnly bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen("get-names"); err != nil {
		return nil, err
	}
	return s.acc.GetNames(nameKindToAccessor(kind), usedOnly)
}

// OldestID returns the smallest id present, or -1 if the store is empty.
func (s *Store) OldestID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.OldestID()
}

// NewestID returns the largest id present, or -1 if the store is empty.
func (s *Store) NewestID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.NewestID()
}

// Count returns the current message count.
func (s *Store) Count() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Count()
}

// Collection returns the observable ordered view over this store.
func (s *Store) Collection() *collection.Collection {
	return s.coll
}

func purposeToAccessor(p Purpose) accessor.Purpose {
	if p == PurposeAnalysis {
		return accessor.PurposeAnalysis
	}
	return accessor.PurposeRecording
}

func modeToAccessor(m WriteMode) accessor.Mode {
	if m == ModeFast {
		return accessor.ModeFast
	}
	return accessor.ModeRobust
}

func nameKindToAccessor(k NameKind) accessor.NameKind {
	switch k {
	case NameKindApplication:
		return accessor.NameKindApplication
	case NameKindWriter:
		return accessor.NameKindWriter
	case NameKindLevel:
		return accessor.NameKindLevel
	case NameKindTag:
		return accessor.NameKindTag
	default:
		return accessor.NameKindProcess
	}
}

func newDisposedError(op string) error {
	return &Error{Op: op, Kind: KindDisposed}
}
