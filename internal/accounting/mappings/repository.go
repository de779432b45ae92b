package mappings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	RevenueAccount(ctx context.Context, category string) (int64, bool, error)
	ListRevenue(ctx context.Context) ([]RevenueMapping, error)
	UpsertRevenue(ctx context.Context, category string, accountID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// RevenueAccount resolves the revenue account mapped to category. found is false
// when the category has no mapping and the caller should use the default.
func (r *repository) RevenueAccount(ctx context.Context, category string) (int64, bool, error) {
	key := NormalizeCategory(category)
	if key == "" {
		return 0, false, nil
	}
	var accountID int64
	err := r.db.QueryRow(ctx, `SELECT account_id FROM revenue_category_mappings WHERE category=$1`, key).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return accountID, true, nil
}

func (r *repository) ListRevenue(ctx context.Context) ([]RevenueMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT category, account_id, created_at, updated_at FROM revenue_category_mappings ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RevenueMapping
	for rows.Next() {
		var m RevenueMapping
		if err := rows.Scan(&m.Category, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) UpsertRevenue(ctx context.Context, category string, accountID int64) error {
	key := NormalizeCategory(category)
	if key == "" || accountID == 0 {
		return errors.New("mappings: category and account required")
	}
	_, err := r.db.Exec(ctx, `INSERT INTO revenue_category_mappings (category, account_id) VALUES ($1,$2)
ON CONFLICT (category) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`, key, accountID)
	return err
}
