package snapshots

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const (
	defaultJournalDir   = "./data/wal"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	snapshotKey         = "quote_snapshot"
)

// WALStore journals every fetched quote snapshot so it can be streamed to clients.
type WALStore struct {
	wal *gowal.Wal
	l   *zap.Logger
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed journal under the provided directory.
func NewWALStore(dir string, l *zap.Logger) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create journal dir")
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "quotes_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init quote snapshot WAL")
	}

	return &WALStore{wal: wal, l: l}, nil
}

// Append writes the snapshot to the journal.
func (s *WALStore) Append(snapshot domain.QuoteSnapshot) error {
	if s == nil || s.wal == nil {
		return errors.New("quote snapshot journal is not initialized")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal quote snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	return s.wal.Write(nextIndex, snapshotKey, payload)
}

// SnapshotsAfter returns journaled snapshots written after the provided journal
// index, oldest first. Records that fail their checksum or cannot be decoded
// are logged and skipped.
func (s *WALStore) SnapshotsAfter(index uint64) ([]domain.QuoteSnapshotRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("quote snapshot journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]domain.QuoteSnapshotRecord, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			s.l.Error("failed to read quote snapshot", zap.Uint64("index", idx), zap.Error(err))
			continue
		}
		if key != snapshotKey {
			continue
		}
		var snapshot domain.QuoteSnapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			s.l.Error("failed to decode quote snapshot", zap.Uint64("index", idx), zap.Error(err))
			continue
		}
		records = append(records, domain.QuoteSnapshotRecord{
			Index:    idx,
			Snapshot: snapshot,
		})
	}

	return records, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("quote snapshot journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
