package integrity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the totals the checker compares.
type Repository interface {
	EntryTotals(ctx context.Context) ([]EntryTotals, error)
	InvoiceTotals(ctx context.Context) ([]InvoiceTotals, error)
	BillTotals(ctx context.Context) ([]BillTotals, error)
	MemoTotals(ctx context.Context) ([]MemoTotals, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) EntryTotals(ctx context.Context) ([]EntryTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT je.id, je.posted, je.posted_at,
		COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0), je.source_type, je.source_id
		FROM journal_entries je
		LEFT JOIN journal_entry_lines jl ON jl.journal_entry_id = je.id
		WHERE je.deleted_at IS NULL
		GROUP BY je.id
		ORDER BY je.id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EntryTotals, error) {
		var e EntryTotals
		err := row.Scan(&e.ID, &e.Posted, &e.PostedAt, &e.DebitSum, &e.CreditSum, &e.SourceType, &e.SourceID)
		return e, err
	})
}

func (r *repository) InvoiceTotals(ctx context.Context) ([]InvoiceTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.total, i.payment_status, i.balance_due,
		COALESCE((SELECT SUM(amount) FROM payment_allocations WHERE invoice_id = i.id), 0),
		COALESCE((SELECT SUM(amount) FROM credit_memo_applications WHERE invoice_id = i.id), 0)
		FROM invoices i
		WHERE i.deleted_at IS NULL AND i.status <> 'void'
		ORDER BY i.id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (InvoiceTotals, error) {
		var t InvoiceTotals
		err := row.Scan(&t.ID, &t.Total, &t.StoredStatus, &t.StoredBalance, &t.Paid, &t.Credits)
		return t, err
	})
}

func (r *repository) BillTotals(ctx context.Context) ([]BillTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.id, b.amount, b.payment_status,
		COALESCE((SELECT SUM(amount) FROM ap_payments WHERE bill_id = b.id), 0)
		FROM ap_bills b
		WHERE b.deleted_at IS NULL AND b.status <> 'void'
		ORDER BY b.id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (BillTotals, error) {
		var t BillTotals
		err := row.Scan(&t.ID, &t.Amount, &t.StoredStatus, &t.Paid)
		return t, err
	})
}

func (r *repository) MemoTotals(ctx context.Context) ([]MemoTotals, error) {
	rows, err := r.pool.Query(ctx, `SELECT m.id, m.status,
		COALESCE((SELECT SUM(amount) FROM credit_memo_applications WHERE credit_memo_id = m.id), 0)
		FROM credit_memos m
		WHERE m.deleted_at IS NULL
		ORDER BY m.id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (MemoTotals, error) {
		var t MemoTotals
		err := row.Scan(&t.ID, &t.StoredStatus, &t.Applied)
		return t, err
	})
}
