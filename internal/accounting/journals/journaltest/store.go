// Package journaltest provides an in-memory journals.Repository for tests.
package journaltest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

var _ journals.Repository = (*Store)(nil)

// Store keeps entries in memory. Transactions are serialized and only
// committed when the callback succeeds.
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	state  state
	lineID int64

	// DropLastLine simulates a storage fault that loses one written line.
	DropLastLine bool
}

type state struct {
	nextID  int64
	entries map[int64]journals.JournalEntry
	lines   map[int64][]journals.JournalLine
}

func (s state) clone() state {
	out := state{
		nextID:  s.nextID,
		entries: make(map[int64]journals.JournalEntry, len(s.entries)),
		lines:   make(map[int64][]journals.JournalLine, len(s.lines)),
	}
	for id, e := range s.entries {
		out.entries[id] = e
	}
	for id, l := range s.lines {
		out.lines[id] = append([]journals.JournalLine(nil), l...)
	}
	return out
}

// New returns an empty store.
func New() *Store {
	return &Store{state: state{entries: map[int64]journals.JournalEntry{}, lines: map[int64][]journals.JournalLine{}}}
}

// Entries returns every stored entry, deleted ones included, ordered by id.
func (s *Store) Entries() []journals.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]journals.JournalEntry, 0, len(s.state.entries))
	for id, e := range s.state.entries {
		e.Lines = append([]journals.JournalLine(nil), s.state.lines[id]...)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Live returns entries that are not soft-deleted.
func (s *Store) Live() []journals.JournalEntry {
	var out []journals.JournalEntry
	for _, e := range s.Entries() {
		if e.DeletedAt == nil {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) List(_ context.Context, filter journals.ListFilter) ([]journals.JournalEntry, error) {
	var out []journals.JournalEntry
	for _, e := range s.Live() {
		if filter.SourceType != "" && e.SourceType != filter.SourceType {
			continue
		}
		e.Lines = nil
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) FindBySource(_ context.Context, sourceType journals.SourceType, sourceID int64) (journals.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.state.liveBySource(sourceType, sourceID); ok {
		return e, nil
	}
	return journals.JournalEntry{}, shared.ErrJournalNotFound
}

func (s state) liveBySource(sourceType journals.SourceType, sourceID int64) (journals.JournalEntry, bool) {
	for _, e := range s.entries {
		if e.SourceType == sourceType && e.SourceID == sourceID && e.DeletedAt == nil {
			return e, true
		}
	}
	return journals.JournalEntry{}, false
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	working := s.state.clone()
	s.mu.Unlock()
	tx := &txStore{store: s, state: working}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()
	return nil
}

type txStore struct {
	store *Store
	state state
}

func (t *txStore) FindLiveBySourceForUpdate(_ context.Context, sourceType journals.SourceType, sourceID int64) (journals.JournalEntry, error) {
	if e, ok := t.state.liveBySource(sourceType, sourceID); ok {
		return e, nil
	}
	return journals.JournalEntry{}, shared.ErrJournalNotFound
}

func (t *txStore) InsertJournalEntry(_ context.Context, in journals.PostingInput) (journals.JournalEntry, error) {
	if _, ok := t.state.liveBySource(in.SourceType, in.SourceID); ok {
		return journals.JournalEntry{}, shared.ErrSourceConflict
	}
	t.state.nextID++
	entry := journals.JournalEntry{
		ID:         t.state.nextID,
		EntryDate:  in.EntryDate,
		EntryType:  in.EntryType,
		SourceType: in.SourceType,
		SourceID:   in.SourceID,
		Memo:       in.Memo,
		CreatedAt:  time.Now(),
	}
	t.state.entries[entry.ID] = entry
	return entry, nil
}

func (t *txStore) InsertJournalLines(_ context.Context, entryID int64, lines []journals.PostingLineInput) error {
	if t.store.DropLastLine && len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	for _, line := range lines {
		t.store.lineID++
		t.state.lines[entryID] = append(t.state.lines[entryID], journals.JournalLine{
			ID:             t.store.lineID,
			JournalEntryID: entryID,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Memo:           line.Memo,
		})
	}
	return nil
}

func (t *txStore) LineTotals(_ context.Context, entryID int64) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := journals.Totals(t.state.lines[entryID])
	return debit, credit, nil
}

func (t *txStore) MarkPosted(_ context.Context, entryID int64, at time.Time) error {
	e, ok := t.state.entries[entryID]
	if !ok || e.DeletedAt != nil {
		return shared.ErrJournalNotFound
	}
	e.Posted = true
	e.PostedAt = &at
	t.state.entries[entryID] = e
	return nil
}

func (t *txStore) SoftDelete(_ context.Context, entryID int64, at time.Time) error {
	e, ok := t.state.entries[entryID]
	if !ok || e.DeletedAt != nil {
		return shared.ErrJournalNotFound
	}
	e.DeletedAt = &at
	t.state.entries[entryID] = e
	return nil
}

func (t *txStore) GetJournalWithLines(_ context.Context, entryID int64) (journals.JournalEntry, []journals.JournalLine, error) {
	e, ok := t.state.entries[entryID]
	if !ok {
		return journals.JournalEntry{}, nil, shared.ErrJournalNotFound
	}
	return e, append([]journals.JournalLine(nil), t.state.lines[entryID]...), nil
}
