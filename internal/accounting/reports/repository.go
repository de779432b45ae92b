package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates posted journal lines.
type Repository interface {
	AccountBalances(ctx context.Context, asOf time.Time) ([]AccountBalance, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// AccountBalances sums lines of live posted entries dated on or before asOf.
func (r *repository) AccountBalances(ctx context.Context, asOf time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT coa.id, coa.account_number, coa.name, coa.account_type,
	COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)
FROM journal_entry_lines jl
JOIN journal_entries je ON je.id = jl.journal_entry_id
JOIN chart_of_accounts coa ON coa.id = jl.account_id
WHERE je.posted AND je.deleted_at IS NULL AND je.entry_date <= $1
GROUP BY coa.id, coa.account_number, coa.name, coa.account_type
ORDER BY coa.account_number`, asOf)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AccountBalance, error) {
		var b AccountBalance
		err := row.Scan(&b.AccountID, &b.Number, &b.Name, &b.Type, &b.Debit, &b.Credit)
		return b, err
	})
}
