package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

const sourceKeyConstraint = "uq_journal_entries_source"

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
	FindBySource(ctx context.Context, sourceType SourceType, sourceID int64) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	FindLiveBySourceForUpdate(ctx context.Context, sourceType SourceType, sourceID int64) (JournalEntry, error)
	InsertJournalEntry(ctx context.Context, in PostingInput) (JournalEntry, error)
	InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
	LineTotals(ctx context.Context, entryID int64) (debit, credit decimal.Decimal, err error)
	MarkPosted(ctx context.Context, entryID int64, at time.Time) error
	SoftDelete(ctx context.Context, entryID int64, at time.Time) error
	GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, entry_date, entry_type, source_type, source_id, memo, posted, posted_at, deleted_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.EntryDate, &e.EntryType, &e.SourceType, &e.SourceID, &e.Memo, &e.Posted, &e.PostedAt, &e.DeletedAt, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return e, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE deleted_at IS NULL`
	args := []any{}
	if filter.SourceType != "" {
		args = append(args, string(filter.SourceType))
		query += fmt.Sprintf(` AND source_type = $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY entry_date DESC, id DESC LIMIT $%d`, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) FindBySource(ctx context.Context, sourceType SourceType, sourceID int64) (JournalEntry, error) {
	row := r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE source_type = $1 AND source_id = $2 AND deleted_at IS NULL`, string(sourceType), sourceID)
	return scanEntry(row)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) FindLiveBySourceForUpdate(ctx context.Context, sourceType SourceType, sourceID int64) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE source_type = $1 AND source_id = $2 AND deleted_at IS NULL FOR UPDATE`, string(sourceType), sourceID)
	return scanEntry(row)
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, in PostingInput) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_date, entry_type, source_type, source_id, memo, posted, posted_at)
VALUES ($1, $2, $3, $4, $5, FALSE, NULL)
RETURNING `+entryColumns, in.EntryDate, string(in.EntryType), string(in.SourceType), in.SourceID, in.Memo)
	entry, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == sourceKeyConstraint {
			return JournalEntry{}, shared.ErrSourceConflict
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(`INSERT INTO journal_entry_lines (journal_entry_id, account_id, debit, credit, memo)
VALUES ($1, $2, $3, $4, $5)`, entryID, line.AccountID, line.Debit, line.Credit, line.Memo)
	}
	br := r.tx.SendBatch(ctx, batch)
	for range lines {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func (r *txRepository) LineTotals(ctx context.Context, entryID int64) (decimal.Decimal, decimal.Decimal, error) {
	var debit, credit decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(debit), 0), COALESCE(SUM(credit), 0)
FROM journal_entry_lines WHERE journal_entry_id = $1`, entryID).Scan(&debit, &credit)
	return debit, credit, err
}

func (r *txRepository) MarkPosted(ctx context.Context, entryID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE journal_entries SET posted = TRUE, posted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, entryID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) SoftDelete(ctx context.Context, entryID int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE journal_entries SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, entryID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = $1`, entryID))
	if err != nil {
		return JournalEntry{}, nil, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, journal_entry_id, account_id, debit, credit, memo
FROM journal_entry_lines WHERE journal_entry_id = $1 ORDER BY id`, entryID)
	if err != nil {
		return JournalEntry{}, nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.JournalEntryID, &l.AccountID, &l.Debit, &l.Credit, &l.Memo); err != nil {
			return JournalEntry{}, nil, err
		}
		lines = append(lines, l)
	}
	return entry, lines, rows.Err()
}
