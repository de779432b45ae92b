package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Guard blocks postings dated inside a locked period. Dates outside any
// configured period are accepted.
type Guard struct {
	repo Repository
}

func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo}
}

// EnsureDateOpen returns shared.ErrPeriodLocked when date belongs to a locked period.
func (g *Guard) EnsureDateOpen(ctx context.Context, date time.Time) error {
	if g == nil || g.repo == nil {
		return nil
	}
	period, err := g.repo.FindByDate(ctx, date)
	if err != nil {
		if errors.Is(err, ErrPeriodNotFound) {
			return nil
		}
		return err
	}
	if period.Covers(date) && !period.AcceptsPostings() {
		return fmt.Errorf("%w: %s", shared.ErrPeriodLocked, period.Code)
	}
	return nil
}
