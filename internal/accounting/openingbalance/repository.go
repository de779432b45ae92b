package openingbalance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Repository persists opening balance batches.
type Repository interface {
	GetBatch(ctx context.Context, id int64) (Batch, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes statements that run inside a transaction.
type TxRepository interface {
	CreateBatch(ctx context.Context, asOf time.Time, memo string) (Batch, error)
	GetBatchForUpdate(ctx context.Context, id int64) (Batch, error)
	ListLines(ctx context.Context, batchID int64) ([]Line, error)
	InsertLine(ctx context.Context, batchID int64, in LineInput) (Line, error)
	UpdateLine(ctx context.Context, batchID, lineID int64, in LineInput) (Line, error)
	DeleteLine(ctx context.Context, batchID, lineID int64) error
	SetStatus(ctx context.Context, id int64, status BatchStatus, finalizedAt *time.Time) error
	SetJournalEntry(ctx context.Context, id int64, entryID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const batchColumns = `id, as_of_date, memo, status, journal_entry_id, finalized_at, created_at, updated_at`

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanBatch(row pgx.Row) (Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.AsOfDate, &b.Memo, &b.Status, &b.JournalEntryID, &b.FinalizedAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, shared.ErrBatchNotFound
	}
	return b, err
}

func listLines(ctx context.Context, q queryer, batchID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, batch_id, account_id, debit, credit, memo
FROM opening_balance_lines WHERE batch_id = $1 ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.BatchID, &l.AccountID, &l.Debit, &l.Credit, &l.Memo); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) GetBatch(ctx context.Context, id int64) (Batch, error) {
	b, err := scanBatch(r.db.QueryRow(ctx, `SELECT `+batchColumns+` FROM opening_balance_batches WHERE id = $1`, id))
	if err != nil {
		return Batch{}, err
	}
	b.Lines, err = listLines(ctx, r.db, id)
	return b, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) CreateBatch(ctx context.Context, asOf time.Time, memo string) (Batch, error) {
	return scanBatch(r.tx.QueryRow(ctx, `INSERT INTO opening_balance_batches (as_of_date, memo, status)
VALUES ($1, $2, 'draft') RETURNING `+batchColumns, asOf, memo))
}

func (r *txRepository) GetBatchForUpdate(ctx context.Context, id int64) (Batch, error) {
	return scanBatch(r.tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM opening_balance_batches WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) ListLines(ctx context.Context, batchID int64) ([]Line, error) {
	return listLines(ctx, r.tx, batchID)
}

func (r *txRepository) InsertLine(ctx context.Context, batchID int64, in LineInput) (Line, error) {
	l := Line{BatchID: batchID, AccountID: in.AccountID, Debit: in.Debit, Credit: in.Credit, Memo: in.Memo}
	err := r.tx.QueryRow(ctx, `INSERT INTO opening_balance_lines (batch_id, account_id, debit, credit, memo)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, batchID, in.AccountID, in.Debit, in.Credit, in.Memo).Scan(&l.ID)
	return l, err
}

func (r *txRepository) UpdateLine(ctx context.Context, batchID, lineID int64, in LineInput) (Line, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE opening_balance_lines SET account_id = $3, debit = $4, credit = $5, memo = $6
WHERE id = $2 AND batch_id = $1`, batchID, lineID, in.AccountID, in.Debit, in.Credit, in.Memo)
	if err != nil {
		return Line{}, err
	}
	if tag.RowsAffected() == 0 {
		return Line{}, shared.ErrBatchLineNotFound
	}
	return Line{ID: lineID, BatchID: batchID, AccountID: in.AccountID, Debit: in.Debit, Credit: in.Credit, Memo: in.Memo}, nil
}

func (r *txRepository) DeleteLine(ctx context.Context, batchID, lineID int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM opening_balance_lines WHERE id = $2 AND batch_id = $1`, batchID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrBatchLineNotFound
	}
	return nil
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status BatchStatus, finalizedAt *time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE opening_balance_batches SET status = $2, finalized_at = $3, updated_at = NOW() WHERE id = $1`, id, string(status), finalizedAt)
	return err
}

func (r *txRepository) SetJournalEntry(ctx context.Context, id int64, entryID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE opening_balance_batches SET journal_entry_id = $2, updated_at = NOW() WHERE id = $1`, id, entryID)
	return err
}
