package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
)

// MaxHistory bounds the stored query history.
const MaxHistory = 50

// HistoryEntry records one observed set of queries.
type HistoryEntry struct {
	Timestamp     time.Time      `json:"timestamp"`
	Source        string         `json:"source"`
	Queries       []string       `json:"queries"`
	OriginalQuery string         `json:"originalQuery,omitempty"`
	Mode          string         `json:"mode,omitempty"`
	Error         string         `json:"error,omitempty"`
	Event         *capture.Event `json:"event,omitempty"`
}

// State wraps a Store with the typed accessors used by the rest of the
// service.
type State struct {
	store Store

	// serialises read-modify-write of the history list
	historyMu sync.Mutex
}

// NewState creates typed accessors over store.
func NewState(store Store) *State {
	return &State{store: store}
}

// Store returns the underlying store.
func (s *State) Store() Store {
	return s.store
}

// History returns stored entries, newest first.
func (s *State) History(ctx context.Context) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := s.store.Get(ctx, Local, KeyHistory, &entries)
	if errors.Is(err, ErrNotFound) {
		return []HistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// AppendHistory prepends entry and truncates to MaxHistory.
func (s *State) AppendHistory(ctx context.Context, entry HistoryEntry) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	entries, err := s.History(ctx)
	if err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	entries = append([]HistoryEntry{entry}, entries...)
	if len(entries) > MaxHistory {
		entries = entries[:MaxHistory]
	}
	return s.store.Set(ctx, Local, KeyHistory, entries)
}

// ClearHistory removes all history entries.
func (s *State) ClearHistory(ctx context.Context) error {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	return s.store.Delete(ctx, Local, KeyHistory)
}

// LoadBatch decodes the persisted batch run into dest. It reports false
// when no run is stored.
func (s *State) LoadBatch(ctx context.Context, dest interface{}) (bool, error) {
	err := s.store.Get(ctx, Local, KeyBatchState, dest)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveBatch persists the batch run.
func (s *State) SaveBatch(ctx context.Context, run interface{}) error {
	return s.store.Set(ctx, Local, KeyBatchState, run)
}

// ClearBatch removes the persisted batch run.
func (s *State) ClearBatch(ctx context.Context) error {
	return s.store.Delete(ctx, Local, KeyBatchState)
}
