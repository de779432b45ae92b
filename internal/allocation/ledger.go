package allocation

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Kind names the allocation row types.
type Kind string

const (
	KindPaymentAllocation Kind = "payment_allocation"
	KindCreditApplication Kind = "credit_application"
	KindAPPayment         Kind = "ap_payment"
)

// LedgerHook is told about committed allocation writes.
type LedgerHook interface {
	Created(ctx context.Context, kind Kind, id int64) error
	Changed(ctx context.Context, kind Kind, id int64) error
	Removed(ctx context.Context, kind Kind, id int64) error
}

// Poster is the posting engine surface LedgerSync drives.
type Poster interface {
	Post(ctx context.Context, sourceType journals.SourceType, sourceID int64) (int64, error)
	Repost(ctx context.Context, sourceType journals.SourceType, sourceID int64) (int64, error)
	Unpost(ctx context.Context, sourceType journals.SourceType, sourceID int64) error
}

// LedgerSync keeps journal entries in step with allocation rows. Credit
// applications have no posting recipe and are ignored.
type LedgerSync struct {
	poster Poster
}

func NewLedgerSync(poster Poster) *LedgerSync {
	return &LedgerSync{poster: poster}
}

func sourceFor(kind Kind) (journals.SourceType, bool) {
	switch kind {
	case KindPaymentAllocation:
		return journals.SourcePaymentAllocation, true
	case KindAPPayment:
		return journals.SourceAPPayment, true
	default:
		return "", false
	}
}

func ignoreNothing(err error) error {
	if errors.Is(err, shared.ErrNothingToPost) {
		return nil
	}
	return err
}

func (l *LedgerSync) Created(ctx context.Context, kind Kind, id int64) error {
	st, ok := sourceFor(kind)
	if !ok {
		return nil
	}
	_, err := l.poster.Post(ctx, st, id)
	return ignoreNothing(err)
}

func (l *LedgerSync) Changed(ctx context.Context, kind Kind, id int64) error {
	st, ok := sourceFor(kind)
	if !ok {
		return nil
	}
	_, err := l.poster.Repost(ctx, st, id)
	return ignoreNothing(err)
}

func (l *LedgerSync) Removed(ctx context.Context, kind Kind, id int64) error {
	st, ok := sourceFor(kind)
	if !ok {
		return nil
	}
	return l.poster.Unpost(ctx, st, id)
}
