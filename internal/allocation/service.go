// Package allocation applies payments, credit memos and vendor payments to
// their parent documents. Every write locks the parents, re-reads totals,
// enforces limits, writes the row and recomputes parent statuses inside
// one transaction.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// RejectionObserver counts refused writes by reason.
type RejectionObserver interface {
	ObserveAllocationRejected(kind, reason string)
}

// IdempotencyPort records processed request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

type Service struct {
	repo        Repository
	hook        LedgerHook
	audit       AuditPort
	idempotency IdempotencyPort
	observer    RejectionObserver
	now         func() time.Time
}

func NewService(repo Repository, hook LedgerHook, audit AuditPort) *Service {
	return &Service{repo: repo, hook: hook, audit: audit, now: time.Now}
}

func (s *Service) WithObserver(o RejectionObserver) *Service {
	s.observer = o
	return s
}

func (s *Service) WithIdempotency(store IdempotencyPort) *Service {
	s.idempotency = store
	return s
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type change int

const (
	created change = iota
	changed
	removed
)

var actions = map[change]string{created: "create", changed: "update", removed: "delete"}

// applyAllocation runs fn in one transaction and, after commit, notifies
// the ledger hook. A hook failure leaves the write committed and is
// returned as *LedgerPostError. A non-empty key is claimed before the
// transaction and released if it fails.
func (s *Service) applyAllocation(ctx context.Context, kind Kind, c change, key string, fn func(context.Context, TxRepository) (int64, error)) error {
	insertedKey := false
	module := "allocation:" + string(kind)
	if key != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, module); err != nil {
			return err
		}
		insertedKey = true
	}
	var rowID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := fn(ctx, tx)
		rowID = id
		return err
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key, module)
		}
		if errors.Is(err, ErrAllocationRejected) && s.observer != nil {
			s.observer.ObserveAllocationRejected(string(kind), rejectionReason(err))
		}
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			Action:   fmt.Sprintf("%s.%s", kind, actions[c]),
			Entity:   string(kind),
			EntityID: fmt.Sprintf("%d", rowID),
			At:       s.now(),
		})
	}
	if s.hook == nil {
		return nil
	}
	var hookErr error
	switch c {
	case created:
		hookErr = s.hook.Created(ctx, kind, rowID)
	case changed:
		hookErr = s.hook.Changed(ctx, kind, rowID)
	case removed:
		hookErr = s.hook.Removed(ctx, kind, rowID)
	}
	if hookErr != nil {
		return wrapLedgerPostError(hookErr)
	}
	return nil
}

func rejectionReason(err error) string {
	for _, candidate := range []struct {
		err    error
		reason string
	}{
		{ErrNonPositiveAmount, "non_positive_amount"},
		{ErrExceedsInvoiceBalance, "invoice_balance"},
		{ErrExceedsSourceRemaining, "source_remaining"},
		{ErrExceedsBillBalance, "bill_balance"},
		{ErrCreditMemoNotApplicable, "memo_not_applicable"},
		{ErrParentUnavailable, "parent_unavailable"},
	} {
		if errors.Is(err, candidate.err) {
			return candidate.reason
		}
	}
	return "other"
}

// lockInvoiceSide locks the invoice and reads its totals without the
// excluded rows.
func lockInvoiceSide(ctx context.Context, tx TxRepository, invoiceID int64, exclude Exclude) (InvoiceSnapshot, error) {
	inv, err := tx.LockInvoice(ctx, invoiceID)
	if err != nil {
		return InvoiceSnapshot{}, err
	}
	payments, credits, err := tx.InvoiceTotals(ctx, invoiceID, exclude)
	if err != nil {
		return InvoiceSnapshot{}, err
	}
	return InvoiceSnapshot{Invoice: inv, OtherPayments: payments, OtherCredits: credits}, nil
}

func (s *Service) writePaymentAllocation(ctx context.Context, tx TxRepository, invoiceID, paymentID, replacing int64, amount decimal.Decimal,
	write func() (PaymentAllocation, error), res *Result[PaymentAllocation]) error {
	snap, err := lockInvoiceSide(ctx, tx, invoiceID, Exclude{PaymentAllocationID: replacing})
	if err != nil {
		return err
	}
	payment, err := tx.LockPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	allocated, err := tx.PaymentAllocated(ctx, paymentID, replacing)
	if err != nil {
		return err
	}
	source := SourceSnapshot{Amount: payment.Amount, OtherAllocated: allocated, Deleted: payment.DeletedAt != nil}
	if err := CheckPaymentAllocation(amount, snap, source); err != nil {
		return err
	}
	row, err := write()
	if err != nil {
		return err
	}
	inv := snap.Invoice.Recompute(snap.OtherPayments.Add(row.Amount), snap.OtherCredits)
	if err := tx.SaveInvoiceDerived(ctx, inv); err != nil {
		return err
	}
	*res = Result[PaymentAllocation]{Row: row, Invoice: &inv}
	return nil
}

func (s *Service) CreatePaymentAllocation(ctx context.Context, in PaymentAllocationInput) (Result[PaymentAllocation], error) {
	in.Amount = shared.Round2(in.Amount)
	var res Result[PaymentAllocation]
	err := s.applyAllocation(ctx, KindPaymentAllocation, created, in.IdempotencyKey, func(ctx context.Context, tx TxRepository) (int64, error) {
		err := s.writePaymentAllocation(ctx, tx, in.InvoiceID, in.PaymentID, 0, in.Amount, func() (PaymentAllocation, error) {
			return tx.InsertPaymentAllocation(ctx, in)
		}, &res)
		return res.Row.ID, err
	})
	return res, err
}

func (s *Service) UpdatePaymentAllocation(ctx context.Context, id int64, amount decimal.Decimal) (Result[PaymentAllocation], error) {
	amount = shared.Round2(amount)
	var res Result[PaymentAllocation]
	err := s.applyAllocation(ctx, KindPaymentAllocation, changed, "", func(ctx context.Context, tx TxRepository) (int64, error) {
		current, err := tx.GetPaymentAllocation(ctx, id)
		if err != nil {
			return 0, err
		}
		err = s.writePaymentAllocation(ctx, tx, current.InvoiceID, current.PaymentID, id, amount, func() (PaymentAllocation, error) {
			return tx.UpdatePaymentAllocation(ctx, id, amount)
		}, &res)
		return id, err
	})
	return res, err
}

func (s *Service) DeletePaymentAllocation(ctx context.Context, id int64) (Result[PaymentAllocation], error) {
	var res Result[PaymentAllocation]
	err := s.applyAllocation(ctx, KindPaymentAllocation, removed, "", func(ctx context.Context, tx TxRepository) (int64, error) {
		current, err := tx.GetPaymentAllocation(ctx, id)
		if err != nil {
			return 0, err
		}
		snap, err := lockInvoiceSide(ctx, tx, current.InvoiceID, Exclude{PaymentAllocationID: id})
		if err != nil {
			return 0, err
		}
		if _, err := tx.LockPayment(ctx, current.PaymentID); err != nil {
			return 0, err
		}
		if err := tx.DeletePaymentAllocation(ctx, id); err != nil {
			return 0, err
		}
		inv := snap.Invoice.Recompute(snap.OtherPayments, snap.OtherCredits)
		if err := tx.SaveInvoiceDerived(ctx, inv); err != nil {
			return 0, err
		}
		res = Result[PaymentAllocation]{Row: current, Invoice: &inv}
		return id, nil
	})
	return res, err
}

func (s *Service) writeCreditApplication(ctx context.Context, tx TxRepository, invoiceID, memoID, replacing int64, amount decimal.Decimal,
	write func() (CreditApplication, error), res *Result[CreditApplication]) error {
	snap, err := lockInvoiceSide(ctx, tx, invoiceID, Exclude{CreditApplicationID: replacing})
	if err != nil {
		return err
	}
	memo, err := tx.LockCreditMemo(ctx, memoID)
	if err != nil {
		return err
	}
	applied, err := tx.MemoApplied(ctx, memoID, replacing)
	if err != nil {
		return err
	}
	source := SourceSnapshot{Amount: memo.Amount, OtherAllocated: applied, Deleted: memo.DeletedAt != nil}
	if err := CheckCreditApplication(amount, snap, source, memo.Status); err != nil {
		return err
	}
	row, err := write()
	if err != nil {
		return err
	}
	inv := snap.Invoice.Recompute(snap.OtherPayments, snap.OtherCredits.Add(row.Amount))
	if err := tx.SaveInvoiceDerived(ctx, inv); err != nil {
		return err
	}
	memo = memo.Recompute(applied.Add(row.Amount))
	if err := tx.SaveMemoDerived(ctx, memo); err != nil {
		return err
	}
	*res = Result[CreditApplication]{Row: row, Invoice: &inv, Memo: &memo}
	return nil
}

func (s *Service) CreateCreditApplication(ctx context.Context, in CreditApplicationInput) (Result[CreditApplication], error) {
	in.Amount = shared.Round2(in.Amount)
	var res Result[CreditApplication]
	err := s.applyAllocation(ctx, KindCreditApplication, created, in.IdempotencyKey, func(ctx context.Context, tx TxRepository) (int64, error) {
		err := s.writeCreditApplication(ctx, tx, in.InvoiceID, in.CreditMemoID, 0, in.Amount, func() (CreditApplication, error) {
			return tx.InsertCreditApplication(ctx, in)
		}, &res)
		return res.Row.ID, err
	})
	return res, err
}

func (s *Service) UpdateCreditApplication(ctx context.Context, id int64, amount decimal.Decimal) (Result[CreditApplication], error) {
	amount = shared.Round2(amount)
	var res Result[CreditApplication]
	err := s.applyAllocation(ctx, KindCreditApplication, changed, "", func(ctx context.Context, tx TxRepository) (int64, error) {
		current, err := tx.GetCreditApplication(ctx, id)
		if err != nil {
			return 0, err
		}
		err = s.writeCreditApplication(ctx, tx, current.InvoiceID, current.CreditMemoID, id, amount, func() (CreditApplication, error) {
			return tx.UpdateCreditApplication(ctx, id, amount)
		}, &res)
		return id, err
	})
	return res, err
}

func (s *Service) DeleteCreditApplication(ctx context.Context, id int64) (Result[CreditApplication], error) {
	var res Result[CreditApplication]
	err := s.applyAllocation(ctx, KindCreditApplication, removed, "", func(ctx context.Context, tx TxRepository) (int64, error) {
		current, err := tx.GetCreditApplication(ctx, id)
		if err != nil {
			return 0, err
		}
		snap, err := lockInvoiceSide(ctx, tx, current.InvoiceID, Exclude{CreditApplicationID: id})
		if err != nil {
			return 0, err
		}
		memo, err := tx.LockCreditMemo(ctx, current.CreditMemoID)
		if err != nil {
			return 0, err
		}
		applied, err := tx.MemoApplied(ctx, current.CreditMemoID, id)
		if err != nil {
			return 0, err
		}
		if err := tx.DeleteCreditApplication(ctx, id); err != nil {
			return 0, err
		}
		inv := snap.Invoice.Recompute(snap.OtherPayments, snap.OtherCredits)
		if err := tx.SaveInvoiceDerived(ctx, inv); err != nil {
			return 0, err
		}
		memo = memo.Recompute(applied)
		if err := tx.SaveMemoDerived(ctx, memo); err != nil {
			return 0, err
		}
		res = Result[CreditApplication]{Row: current, Invoice: &inv, Memo: &memo}
		return id, nil
	})
	return res, err
}

func (s *Service) writeAPPayment(ctx context.Context, tx TxRepository, billID, replacing int64, amount decimal.Decimal,
	write func() (APPayment, error), res *Result[APPayment]) error {
	bill, err := tx.LockBill(ctx, billID)
	if err != nil {
		return err
	}
	paid, err := tx.BillPaid(ctx, billID, replacing)
	if err != nil {
		return err
	}
	if err := CheckAPPayment(amount, BillSnapshot{Bill: bill, OtherPaid: paid}); err != nil {
		return err
	}
	row, err := write()
	if err != nil {
		return err
	}
	bill = bill.Recompute(paid.Add(row.Amount))
	if err := tx.SaveBillDerived(ctx, bill); err != nil {
		return err
	}
	*res = Result[APPayment]{Row: row, Bill: &bill}
	return nil
}

func (s *Service) CreateAPPayment(ctx context.Context, in APPaymentInput) (Result[APPayment], error) {
	in.Amount = shared.Round2(in.Amount)
	if in.PaidAt.IsZero() {
		in.PaidAt = s.now()
	}
	var res Result[APPayment]
	err := s.applyAllocation(ctx, KindAPPayment, created, in.IdempotencyKey, func(ctx context.Context, tx TxRepository) (int64, error) {
		err := s.writeAPPayment(ctx, tx, in.BillID, 0, in.Amount, func() (APPayment, error) {
			return tx.InsertAPPayment(ctx, in)
		}, &res)
		return res.Row.ID, err
	})
	return res, err
}

// UpdateAPPayment changes the amount, date or bank account of a payment.
// The bill it settles is fixed.
func (s *Service) UpdateAPPayment(ctx context.Context, id int64, in APPaymentInput) (Result[APPayment], error) {
	in.Amount = shared.Round2(in.Amount)
	var res Result[APPayment]
	err := s.applyAllocation(ctx, KindAPPayment, changed, "", func(ctx context.Context, tx TxRepository) (int64, error) {
		current, err := tx.GetAPPayment(ctx, id)
		if err != nil {
			return 0, err
		}
		in.BillID = current.BillID
		if in.PaidAt.IsZero() {
			in.PaidAt = current.PaidAt
		}
		if in.BankAccountID == nil {
			in.BankAccountID = current.BankAccountID
		}
		err = s.writeAPPayment(ctx, tx, current.BillID, id, in.Amount, func() (APPayment, error) {
			return tx.UpdateAPPayment(ctx, id, in)
		}, &res)
		return id, err
	})
	return res, err
}

func (s *Service) DeleteAPPayment(ctx context.Context, id int64) (Result[APPayment], error) {
	var res Result[APPayment]
	err := s.applyAllocation(ctx, KindAPPayment, removed, "", func(ctx context.Context, tx TxRepository) (int64, error) {
		current, err := tx.GetAPPayment(ctx, id)
		if err != nil {
			return 0, err
		}
		bill, err := tx.LockBill(ctx, current.BillID)
		if err != nil {
			return 0, err
		}
		paid, err := tx.BillPaid(ctx, current.BillID, id)
		if err != nil {
			return 0, err
		}
		if err := tx.DeleteAPPayment(ctx, id); err != nil {
			return 0, err
		}
		bill = bill.Recompute(paid)
		if err := tx.SaveBillDerived(ctx, bill); err != nil {
			return 0, err
		}
		res = Result[APPayment]{Row: current, Bill: &bill}
		return id, nil
	})
	return res, err
}
