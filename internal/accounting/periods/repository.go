package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPeriodNotFound indicates no period covers the date.
var ErrPeriodNotFound = errors.New("periods: no period covers date")

type Repository interface {
	FindByDate(ctx context.Context, date time.Time) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// FindByDate returns the earliest period whose window contains date, whatever its status.
func (r *repository) FindByDate(ctx context.Context, date time.Time) (Period, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, start_date, end_date, status
FROM accounting_periods
WHERE $1::date BETWEEN start_date AND end_date
ORDER BY start_date
LIMIT 1`, date)
	if err != nil {
		return Period{}, fmt.Errorf("periods: find by date: %w", err)
	}
	period, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Period])
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrPeriodNotFound
	}
	if err != nil {
		return Period{}, fmt.Errorf("periods: find by date: %w", err)
	}
	return period, nil
}
