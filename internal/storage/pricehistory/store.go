// Package pricehistory persists a retention-bounded per-symbol price history
// in a single JSON document so it survives process restarts.
package pricehistory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const (
	// DefaultRetention rolling window kept on disk.
	DefaultRetention = 30 * 24 * time.Hour
	// DefaultFileName history document name inside the data dir.
	DefaultFileName = "price_history.json"
)

// InitState outcome of opening the store.
type InitState string

const (
	// InitReady an existing document was read successfully.
	InitReady InitState = "ready"
	// InitCreated no document existed, an empty one was written.
	InitCreated InitState = "created"
	// InitDegraded the document could not be prepared, the store runs on empty state.
	InitDegraded InitState = "degraded"
)

// InitStatus describes how the store came up. Err is set only for InitDegraded.
type InitStatus struct {
	State InitState
	Err   error
}

// OK reports whether the store is backed by a usable document.
func (s InitStatus) OK() bool {
	return s.State != InitDegraded
}

type document struct {
	Data       map[domain.Symbol][]storedPoint `json:"data"`
	LastUpdate *string                         `json:"lastUpdate"`
}

type storedPoint struct {
	Timestamp string      `json:"timestamp"`
	Price     json.Number `json:"price"`
}

func emptyDocument() *document {
	return &document{Data: make(map[domain.Symbol][]storedPoint)}
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source used for retention and read windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) Option {
	return func(s *Store) {
		s.retention = d
	}
}

// Store durable history of observed prices.
//
// Every Append is a full read-modify-write of the document. All access goes
// through mu so concurrent appends cannot lose each other's points.
type Store struct {
	path      string
	l         *zap.Logger
	now       func() time.Time
	retention time.Duration

	mu       sync.Mutex
	fallback *document
}

// Open prepares the history document at path. It never fails hard: problems
// are logged and reported through InitStatus while the store keeps working
// on in-memory state.
func Open(path string, l *zap.Logger, opts ...Option) (*Store, InitStatus) {
	s := &Store{
		path:      path,
		l:         l,
		now:       time.Now,
		retention: DefaultRetention,
		fallback:  emptyDocument(),
	}
	for _, opt := range opts {
		opt(s)
	}

	status := s.init()
	if !status.OK() {
		s.l.Error("price history is degraded, continuing with empty state",
			zap.String("path", s.path), zap.Error(status.Err))
	}

	return s, status
}

func (s *Store) init() InitStatus {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return InitStatus{State: InitDegraded, Err: errors.Wrap(err, "create price history dir")}
	}

	if _, err := os.Stat(s.path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return InitStatus{State: InitDegraded, Err: errors.Wrap(err, "stat price history")}
		}
		if err := s.write(emptyDocument()); err != nil {
			return InitStatus{State: InitDegraded, Err: err}
		}
		return InitStatus{State: InitCreated}
	}

	doc, err := s.load()
	if err != nil {
		return InitStatus{State: InitDegraded, Err: err}
	}
	s.fallback = doc

	return InitStatus{State: InitReady}
}

// Append adds one point per symbol at the given instant, prunes points that
// fell out of the retention window and bumps lastUpdate. Appends are not
// deduplicated. Persistence errors are logged and returned, callers are
// not expected to act on them.
//
// A document that exists but cannot be read is never overwritten: the point
// is kept in memory until the file is repaired or removed.
func (s *Store) Append(snapshot map[domain.Symbol]decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, loadErr := s.load()
	if loadErr != nil {
		doc = s.fallback
	}

	at = domain.NormalizeTime(at)
	cutoff := s.now().Add(-s.retention)
	stamp := domain.FormatTimestamp(at)

	for _, symbol := range sortedSymbols(snapshot) {
		points := append(doc.Data[symbol], storedPoint{
			Timestamp: stamp,
			Price:     json.Number(snapshot[symbol].String()),
		})
		doc.Data[symbol] = prune(points, cutoff)
	}
	doc.LastUpdate = &stamp

	s.fallback = doc

	if loadErr != nil && s.exists() {
		s.l.Warn("price history on disk is unreadable, keeping append in memory",
			zap.String("path", s.path), zap.Error(loadErr))
		return loadErr
	}

	if err := s.write(doc); err != nil {
		s.l.Error("failed to save price history", zap.Error(err))
		return err
	}

	return nil
}

// Read reconstructs a historical result for tf from persisted points only.
// Every listed symbol gets an entry for every timestamp in the window,
// absent where it has no point at exactly that instant.
func (s *Store) Read(tf domain.Timeframe, symbols []domain.Symbol) (*domain.HistoricalResult, error) {
	s.mu.Lock()
	doc, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	start := s.now().Add(-tf.Window())
	builder := domain.NewResultBuilder(tf)

	for symbol, points := range doc.Data {
		for _, p := range points {
			ts, err := domain.ParseTimestamp(p.Timestamp)
			if err != nil {
				return nil, errors.Wrap(domain.ErrPersistence, err.Error())
			}
			if !ts.After(start) {
				continue
			}
			builder.AddTimestamp(ts)

			if !contains(symbols, symbol) {
				continue
			}
			price, err := decimal.NewFromString(p.Price.String())
			if err != nil {
				return nil, errors.Wrapf(domain.ErrPersistence, "decode price of %s: %s", symbol, err)
			}
			builder.Add(symbol, ts, price)
		}
	}

	builder.Fill(symbols)

	return builder.Build(), nil
}

// LastUpdate returns the instant of the latest append.
func (s *Store) LastUpdate() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		doc = s.fallback
	}
	if doc.LastUpdate == nil {
		return time.Time{}, false
	}
	ts, err := domain.ParseTimestamp(*doc.LastUpdate)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Path returns the location of the history document.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (*document, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrPersistence, "read price history: %s", err)
	}

	doc := emptyDocument()
	if err := json.Unmarshal(payload, doc); err != nil {
		return nil, errors.Wrapf(domain.ErrPersistence, "decode price history: %s", err)
	}
	if doc.Data == nil {
		doc.Data = make(map[domain.Symbol][]storedPoint)
	}

	return doc, nil
}

// write persists the document atomically via temp file.
func (s *Store) write(doc *document) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode price history")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write price history temp file")
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist price history")
	}

	return nil
}

func (s *Store) exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func prune(points []storedPoint, cutoff time.Time) []storedPoint {
	kept := points[:0]
	for _, p := range points {
		ts, err := domain.ParseTimestamp(p.Timestamp)
		if err != nil || !ts.After(cutoff) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func sortedSymbols(snapshot map[domain.Symbol]decimal.Decimal) []domain.Symbol {
	symbols := make([]domain.Symbol, 0, len(snapshot))
	for symbol := range snapshot {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}

func contains(symbols []domain.Symbol, symbol domain.Symbol) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
