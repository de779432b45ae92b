package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

type PeriodGuard interface {
	EnsureDateOpen(ctx context.Context, date time.Time) error
}

// AccountChecker confirms that a line account may receive postings.
type AccountChecker interface {
	Account(id int64) (accounts.Account, error)
}

type Service struct {
	repo     Repository
	accounts AccountChecker
	audit    AuditPort
	guard    PeriodGuard
	now      func() time.Time
}

func NewService(repo Repository, checker AccountChecker, audit AuditPort, guard PeriodGuard) *Service {
	return &Service{repo: repo, accounts: checker, audit: audit, guard: guard, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

// FindBySource returns the live entry for a source or ErrJournalNotFound.
func (s *Service) FindBySource(ctx context.Context, sourceType SourceType, sourceID int64) (JournalEntry, error) {
	return s.repo.FindBySource(ctx, sourceType, sourceID)
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		e, lines, err := tx.GetJournalWithLines(ctx, id)
		if err != nil {
			return err
		}
		e.Lines = lines
		entry = e
		return nil
	})
	return entry, err
}

// PostJournal writes a balanced entry and flips it to posted atomically.
// The persisted line totals are re-read and compared before the flip.
func (s *Service) PostJournal(ctx context.Context, input PostingInput) (JournalEntry, error) {
	input, err := s.prepare(ctx, input)
	if err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err = s.insertPosted(ctx, tx, input)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, input.ActorID, "journal.post", entry, nil)
	return entry, nil
}

// ReplaceBySource soft-deletes the live entry for the input's source and
// posts input in the same transaction. When input is rejected the previous
// entry stays live. A source with no live entry is simply posted.
func (s *Service) ReplaceBySource(ctx context.Context, input PostingInput) (JournalEntry, error) {
	input, err := s.prepare(ctx, input)
	if err != nil {
		return JournalEntry{}, err
	}
	var entry, removed JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.FindLiveBySourceForUpdate(ctx, input.SourceType, input.SourceID)
		switch {
		case err == nil:
			at := s.now()
			if err := tx.SoftDelete(ctx, current.ID, at); err != nil {
				return err
			}
			current.DeletedAt = &at
			removed = current
		case !errors.Is(err, shared.ErrJournalNotFound):
			return err
		}
		entry, err = s.insertPosted(ctx, tx, input)
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if removed.ID != 0 {
		s.record(ctx, input.ActorID, "journal.remove", removed, map[string]any{"replaced_by": entry.ID})
	}
	s.record(ctx, input.ActorID, "journal.post", entry, nil)
	return entry, nil
}

// prepare validates input and its accounts and checks the period guard.
func (s *Service) prepare(ctx context.Context, input PostingInput) (PostingInput, error) {
	if err := input.Validate(); err != nil {
		return PostingInput{}, err
	}
	input = input.Normalize()
	if s.accounts != nil {
		for idx, line := range input.Lines {
			if _, err := s.accounts.Account(line.AccountID); err != nil {
				return PostingInput{}, fmt.Errorf("line %d: %w", idx, err)
			}
		}
	}
	if s.guard != nil {
		if err := s.guard.EnsureDateOpen(ctx, input.EntryDate); err != nil {
			return PostingInput{}, err
		}
	}
	return input, nil
}

func (s *Service) insertPosted(ctx context.Context, tx TxRepository, input PostingInput) (JournalEntry, error) {
	inserted, err := tx.InsertJournalEntry(ctx, input)
	if err != nil {
		if errors.Is(err, shared.ErrSourceConflict) {
			return JournalEntry{}, shared.ErrSourceAlreadyLinked
		}
		return JournalEntry{}, err
	}
	if err := tx.InsertJournalLines(ctx, inserted.ID, input.Lines); err != nil {
		return JournalEntry{}, err
	}
	debit, credit, err := tx.LineTotals(ctx, inserted.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	if !shared.Equal2(debit, credit) {
		return JournalEntry{}, fmt.Errorf("%w: persisted debit %s credit %s", shared.ErrUnbalanced, debit.StringFixed(2), credit.StringFixed(2))
	}
	postedAt := s.now()
	if err := tx.MarkPosted(ctx, inserted.ID, postedAt); err != nil {
		return JournalEntry{}, err
	}
	inserted.Posted = true
	inserted.PostedAt = &postedAt
	inserted.Lines = toJournalLines(inserted.ID, input.Lines)
	return inserted, nil
}

// RemoveBySource soft-deletes the live entry for a source so it can be
// posted again. Missing entries are not an error.
func (s *Service) RemoveBySource(ctx context.Context, sourceType SourceType, sourceID int64) (JournalEntry, error) {
	var removed JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.FindLiveBySourceForUpdate(ctx, sourceType, sourceID)
		if err != nil {
			return err
		}
		at := s.now()
		if err := tx.SoftDelete(ctx, current.ID, at); err != nil {
			return err
		}
		current.DeletedAt = &at
		removed = current
		return nil
	})
	if errors.Is(err, shared.ErrJournalNotFound) {
		return JournalEntry{}, nil
	}
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, 0, "journal.remove", removed, nil)
	return removed, nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entry JournalEntry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["entry_type"] = string(entry.EntryType)
	meta["source_type"] = string(entry.SourceType)
	meta["source_id"] = entry.SourceID
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func toJournalLines(entryID int64, lines []PostingLineInput) []JournalLine {
	result := make([]JournalLine, len(lines))
	for i, line := range lines {
		result[i] = JournalLine{
			JournalEntryID: entryID,
			AccountID:      line.AccountID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			Memo:           line.Memo,
		}
	}
	return result
}
