package accounts

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	List(ctx context.Context) ([]Account, error)
	Seed(ctx context.Context, chart []SeedAccount) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, account_number, name, account_type, normal_balance, is_deleted, created_at, updated_at
FROM chart_of_accounts ORDER BY account_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		err := rows.Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.NormalBalance, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Seed inserts missing chart entries and reports how many were created.
func (r *repository) Seed(ctx context.Context, chart []SeedAccount) (int, error) {
	created := 0
	for _, acc := range chart {
		cmd, err := r.db.Exec(ctx, `INSERT INTO chart_of_accounts (account_number, name, account_type, normal_balance)
VALUES ($1,$2,$3,$4) ON CONFLICT (account_number) DO NOTHING`, acc.Number, acc.Name, acc.Type, acc.NormalBalance)
		if err != nil {
			return created, err
		}
		created += int(cmd.RowsAffected())
	}
	return created, nil
}
