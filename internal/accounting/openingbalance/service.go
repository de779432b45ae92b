// Package openingbalance implements the draft to finalized workflow for
// starting account balances.
package openingbalance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// Poster posts a finalized batch and returns the journal entry id.
type Poster interface {
	PostOpeningBalanceBatch(ctx context.Context, batchID int64) (int64, error)
}

type AccountChecker interface {
	Account(id int64) (accounts.Account, error)
}

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

type Service struct {
	repo     Repository
	poster   Poster
	accounts AccountChecker
	audit    AuditPort
	now      func() time.Time
}

func NewService(repo Repository, poster Poster, checker AccountChecker, audit AuditPort) *Service {
	return &Service{repo: repo, poster: poster, accounts: checker, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) CreateBatch(ctx context.Context, asOf time.Time, memo string) (Batch, error) {
	if asOf.IsZero() {
		return Batch{}, errors.New("opening balance: as of date required")
	}
	var batch Batch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.CreateBatch(ctx, asOf, memo)
		batch = b
		return err
	})
	return batch, err
}

func (s *Service) GetBatch(ctx context.Context, id int64) (Batch, error) {
	return s.repo.GetBatch(ctx, id)
}

func (s *Service) checkLine(in LineInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if s.accounts != nil {
		if _, err := s.accounts.Account(in.AccountID); err != nil {
			return err
		}
	}
	return nil
}

// editDraft runs fn against a batch locked for update, refusing edits once
// the batch is finalized.
func (s *Service) editDraft(ctx context.Context, batchID int64, fn func(context.Context, TxRepository) error) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.Status != StatusDraft {
			return fmt.Errorf("%w: batch %d", shared.ErrBatchFinalized, batchID)
		}
		return fn(ctx, tx)
	})
}

func (s *Service) AddLine(ctx context.Context, batchID int64, in LineInput) (Line, error) {
	if err := s.checkLine(in); err != nil {
		return Line{}, err
	}
	var line Line
	err := s.editDraft(ctx, batchID, func(ctx context.Context, tx TxRepository) error {
		l, err := tx.InsertLine(ctx, batchID, in.normalize())
		line = l
		return err
	})
	return line, err
}

func (s *Service) UpdateLine(ctx context.Context, batchID, lineID int64, in LineInput) (Line, error) {
	if err := s.checkLine(in); err != nil {
		return Line{}, err
	}
	var line Line
	err := s.editDraft(ctx, batchID, func(ctx context.Context, tx TxRepository) error {
		l, err := tx.UpdateLine(ctx, batchID, lineID, in.normalize())
		line = l
		return err
	})
	return line, err
}

func (s *Service) DeleteLine(ctx context.Context, batchID, lineID int64) error {
	return s.editDraft(ctx, batchID, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteLine(ctx, batchID, lineID)
	})
}

// Finalize locks the batch, checks it and posts it. A posting failure puts
// the batch back to draft. Finalizing a finalized batch returns it, posting
// first when an earlier attempt stopped before the entry id was stored.
func (s *Service) Finalize(ctx context.Context, batchID int64) (Batch, error) {
	var batch Batch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		lines, err := tx.ListLines(ctx, batchID)
		if err != nil {
			return err
		}
		b.Lines = lines
		if b.Status == StatusFinalized {
			batch = b
			return nil
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: batch %d", shared.ErrBatchEmpty, batchID)
		}
		if diff := Difference(lines); !diff.IsZero() {
			return fmt.Errorf("%w: batch %d off by %s", shared.ErrBatchUnbalanced, batchID, diff.StringFixed(2))
		}
		at := s.now()
		if err := tx.SetStatus(ctx, batchID, StatusFinalized, &at); err != nil {
			return err
		}
		b.Status = StatusFinalized
		b.FinalizedAt = &at
		batch = b
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	if batch.JournalEntryID != nil {
		return batch, nil
	}

	entryID, err := s.poster.PostOpeningBalanceBatch(ctx, batchID)
	if err != nil {
		if rerr := s.revertToDraft(ctx, batchID); rerr != nil {
			return Batch{}, errors.Join(fmt.Errorf("opening balance: post batch %d: %w", batchID, err), rerr)
		}
		return Batch{}, fmt.Errorf("opening balance: post batch %d: %w", batchID, err)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SetJournalEntry(ctx, batchID, entryID)
	})
	if err != nil {
		return Batch{}, err
	}
	batch.JournalEntryID = &entryID
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			Action:   "opening_balance.finalize",
			Entity:   "opening_balance_batch",
			EntityID: fmt.Sprintf("%d", batchID),
			Meta:     map[string]any{"journal_entry_id": entryID, "lines": len(batch.Lines)},
			At:       s.now(),
		})
	}
	return batch, nil
}

func (s *Service) revertToDraft(ctx context.Context, batchID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if b.Status != StatusFinalized || b.JournalEntryID != nil {
			return nil
		}
		return tx.SetStatus(ctx, batchID, StatusDraft, nil)
	})
}
