package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-gl/internal/shared"
)

type hookCall struct {
	change string
	kind   Kind
	id     int64
}

type hookSpy struct {
	mu    sync.Mutex
	calls []hookCall
	err   error
}

func (h *hookSpy) record(change string, kind Kind, id int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, hookCall{change: change, kind: kind, id: id})
	return h.err
}

func (h *hookSpy) Created(_ context.Context, kind Kind, id int64) error {
	return h.record("created", kind, id)
}

func (h *hookSpy) Changed(_ context.Context, kind Kind, id int64) error {
	return h.record("changed", kind, id)
}

func (h *hookSpy) Removed(_ context.Context, kind Kind, id int64) error {
	return h.record("removed", kind, id)
}

type auditSpy struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditSpy) Record(_ context.Context, log internalShared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, log.Action)
	return nil
}

type rejectionSpy struct {
	mu      sync.Mutex
	reasons []string
}

func (r *rejectionSpy) ObserveAllocationRejected(kind, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, kind+":"+reason)
}

type keyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func (k *keyStore) CheckAndInsert(_ context.Context, key, module string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[module+"/"+key]; ok {
		return internalShared.ErrIdempotencyConflict
	}
	k.keys[module+"/"+key] = module
	return nil
}

func (k *keyStore) Delete(_ context.Context, key, module string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, module+"/"+key)
	return nil
}

type fixture struct {
	repo     *memoryRepo
	hook     *hookSpy
	audit    *auditSpy
	rejected *rejectionSpy
	keys     *keyStore
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemoryRepo(),
		hook:     &hookSpy{},
		audit:    &auditSpy{},
		rejected: &rejectionSpy{},
		keys:     &keyStore{keys: map[string]string{}},
	}
	f.service = NewService(f.repo, f.hook, f.audit).WithObserver(f.rejected).WithIdempotency(f.keys)
	f.service.WithNow(func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) })
	return f
}

func TestPaymentAllocationSettlesInvoice(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	f.repo.addPayment(10, "106")
	f.repo.addPayment(11, "50")
	ctx := context.Background()

	res, err := f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("106")})
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, res.Invoice.PaymentStatus)
	require.True(t, res.Invoice.BalanceDue.IsZero())

	_, err = f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 11, InvoiceID: 1, Amount: d("1")})
	require.ErrorIs(t, err, ErrExceedsInvoiceBalance)

	inv := f.repo.invoice(1)
	require.True(t, inv.AmountPaid.Equal(d("106")))
	require.Equal(t, PaymentPaid, inv.PaymentStatus)
	require.Equal(t, 1, f.repo.allocationCount())
	require.Equal(t, []hookCall{{change: "created", kind: KindPaymentAllocation, id: res.Row.ID}}, f.hook.calls)
	require.Equal(t, []string{"payment_allocation:invoice_balance"}, f.rejected.reasons)
	require.Equal(t, []string{"payment_allocation.create"}, f.audit.actions)
}

func TestPaymentSplitAcrossInvoices(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "60", InvoiceSent)
	f.repo.addInvoice(2, "60", InvoiceSent)
	f.repo.addPayment(10, "100")
	ctx := context.Background()

	_, err := f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("60")})
	require.NoError(t, err)
	_, err = f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 2, Amount: d("41")})
	require.ErrorIs(t, err, ErrExceedsSourceRemaining)

	res, err := f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 2, Amount: d("40")})
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, res.Invoice.PaymentStatus)
	require.True(t, res.Invoice.BalanceDue.Equal(d("20")))
}

func TestUpdatePaymentAllocationExcludesItself(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	f.repo.addPayment(10, "106")
	ctx := context.Background()

	res, err := f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("100")})
	require.NoError(t, err)

	updated, err := f.service.UpdatePaymentAllocation(ctx, res.Row.ID, d("106"))
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, updated.Invoice.PaymentStatus)

	_, err = f.service.UpdatePaymentAllocation(ctx, res.Row.ID, d("106.01"))
	require.ErrorIs(t, err, ErrAllocationRejected)
	require.True(t, f.repo.invoice(1).AmountPaid.Equal(d("106")))

	removed, err := f.service.DeletePaymentAllocation(ctx, res.Row.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentUnpaid, removed.Invoice.PaymentStatus)
	require.True(t, f.repo.invoice(1).BalanceDue.Equal(d("106")))
	require.Zero(t, f.repo.allocationCount())

	_, err = f.service.DeletePaymentAllocation(ctx, res.Row.ID)
	require.ErrorIs(t, err, ErrAllocationNotFound)

	require.Len(t, f.hook.calls, 3)
	require.Equal(t, "changed", f.hook.calls[1].change)
	require.Equal(t, "removed", f.hook.calls[2].change)
}

func TestAllocationToVoidOrMissingInvoice(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceVoid)
	f.repo.addPayment(10, "106")
	ctx := context.Background()

	_, err := f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("10")})
	require.ErrorIs(t, err, ErrParentUnavailable)

	_, err = f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 2, Amount: d("10")})
	require.ErrorIs(t, err, ErrParentNotFound)
	require.Empty(t, f.hook.calls)
}

func TestBillPaymentsProgressToPaid(t *testing.T) {
	f := newFixture(t)
	f.repo.addBill(5, "100")
	ctx := context.Background()

	first, err := f.service.CreateAPPayment(ctx, APPaymentInput{BillID: 5, Amount: d("60")})
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, first.Bill.PaymentStatus)
	require.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), first.Row.PaidAt)

	_, err = f.service.CreateAPPayment(ctx, APPaymentInput{BillID: 5, Amount: d("50")})
	require.ErrorIs(t, err, ErrExceedsBillBalance)
	require.Equal(t, PaymentPartial, f.repo.bill(5).PaymentStatus)

	second, err := f.service.CreateAPPayment(ctx, APPaymentInput{BillID: 5, Amount: d("40")})
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, second.Bill.PaymentStatus)
	require.True(t, f.repo.bill(5).AmountPaid.Equal(d("100")))

	paidAt := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	updated, err := f.service.UpdateAPPayment(ctx, second.Row.ID, APPaymentInput{Amount: d("30"), PaidAt: paidAt})
	require.NoError(t, err)
	require.Equal(t, PaymentPartial, updated.Bill.PaymentStatus)
	require.Equal(t, paidAt, updated.Row.PaidAt)
	require.Equal(t, int64(5), updated.Row.BillID)

	_, err = f.service.DeleteAPPayment(ctx, first.Row.ID)
	require.NoError(t, err)
	require.True(t, f.repo.bill(5).AmountPaid.Equal(d("30")))
}

func TestCreditMemoLargerThanInvoice(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	f.repo.addMemo(20, "500", MemoIssued)
	ctx := context.Background()

	_, err := f.service.CreateCreditApplication(ctx, CreditApplicationInput{CreditMemoID: 20, InvoiceID: 1, Amount: d("500")})
	require.ErrorIs(t, err, ErrExceedsInvoiceBalance)
	require.Equal(t, MemoIssued, f.repo.memo(20).Status)

	res, err := f.service.CreateCreditApplication(ctx, CreditApplicationInput{CreditMemoID: 20, InvoiceID: 1, Amount: d("106")})
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, res.Invoice.PaymentStatus)
	require.Equal(t, MemoApplied, res.Memo.Status)
	require.True(t, res.Memo.AppliedTotal.Equal(d("106")))

	removed, err := f.service.DeleteCreditApplication(ctx, res.Row.ID)
	require.NoError(t, err)
	require.Equal(t, MemoIssued, removed.Memo.Status)
	require.Equal(t, PaymentUnpaid, removed.Invoice.PaymentStatus)
}

func TestUpdateCreditApplicationExcludesItself(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	f.repo.addMemo(20, "106", MemoIssued)
	ctx := context.Background()

	res, err := f.service.CreateCreditApplication(ctx, CreditApplicationInput{CreditMemoID: 20, InvoiceID: 1, Amount: d("106")})
	require.NoError(t, err)
	require.Equal(t, MemoApplied, res.Memo.Status)

	// Both the invoice and the memo are exhausted, so this only passes when
	// the row being replaced is left out of both totals.
	same, err := f.service.UpdateCreditApplication(ctx, res.Row.ID, d("106"))
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, same.Invoice.PaymentStatus)
	require.True(t, same.Memo.AppliedTotal.Equal(d("106")))

	_, err = f.service.UpdateCreditApplication(ctx, res.Row.ID, d("106.01"))
	require.ErrorIs(t, err, ErrAllocationRejected)
	require.True(t, f.repo.invoice(1).CreditApplied.Equal(d("106")))
	require.True(t, f.repo.memo(20).AppliedTotal.Equal(d("106")))

	shrunk, err := f.service.UpdateCreditApplication(ctx, res.Row.ID, d("40"))
	require.NoError(t, err)
	require.Equal(t, PaymentUnpaid, shrunk.Invoice.PaymentStatus)
	require.True(t, shrunk.Invoice.CreditApplied.Equal(d("40")))
	require.True(t, shrunk.Invoice.BalanceDue.Equal(d("66")))
	require.Equal(t, MemoApplied, shrunk.Memo.Status)
	require.True(t, shrunk.Memo.AppliedTotal.Equal(d("40")))
	require.Equal(t, int64(20), shrunk.Row.CreditMemoID)

	removed, err := f.service.DeleteCreditApplication(ctx, res.Row.ID)
	require.NoError(t, err)
	require.Equal(t, MemoIssued, removed.Memo.Status)
	require.True(t, removed.Memo.AppliedTotal.IsZero())
	require.Equal(t, MemoIssued, f.repo.memo(20).Status)
	require.True(t, f.repo.invoice(1).BalanceDue.Equal(d("106")))

	_, err = f.service.UpdateCreditApplication(ctx, res.Row.ID, d("10"))
	require.ErrorIs(t, err, ErrAllocationNotFound)
}

func TestCreditApplicationRequiresIssuedMemo(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	f.repo.addMemo(20, "50", MemoDraft)

	_, err := f.service.CreateCreditApplication(context.Background(), CreditApplicationInput{CreditMemoID: 20, InvoiceID: 1, Amount: d("10")})
	require.ErrorIs(t, err, ErrCreditMemoNotApplicable)
	require.Equal(t, []string{"credit_application:memo_not_applicable"}, f.rejected.reasons)
}

func TestConcurrentAllocationsNeverOverApply(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	for id := int64(10); id < 20; id++ {
		f.repo.addPayment(id, "20")
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for id := int64(10); id < 20; id++ {
		wg.Add(1)
		go func(paymentID int64) {
			defer wg.Done()
			_, err := f.service.CreatePaymentAllocation(context.Background(), PaymentAllocationInput{PaymentID: paymentID, InvoiceID: 1, Amount: d("20")})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	accepted, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrExceedsInvoiceBalance):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 5, accepted)
	require.Equal(t, 5, rejected)
	inv := f.repo.invoice(1)
	require.True(t, inv.AmountPaid.Equal(d("100")))
	require.True(t, inv.BalanceDue.Equal(d("6")))
	require.Equal(t, PaymentPartial, inv.PaymentStatus)
}

func TestLedgerFailureKeepsAllocation(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	f.repo.addPayment(10, "106")
	f.hook.err = shared.ErrPeriodLocked

	res, err := f.service.CreatePaymentAllocation(context.Background(), PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("106")})
	var ledgerErr *LedgerPostError
	require.ErrorAs(t, err, &ledgerErr)
	require.True(t, ledgerErr.Retryable)
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
	require.NotZero(t, res.Row.ID)
	require.Equal(t, 1, f.repo.allocationCount())
	require.Equal(t, PaymentPaid, f.repo.invoice(1).PaymentStatus)

	f.hook.err = errors.New("connection reset")
	_, err = f.service.DeletePaymentAllocation(context.Background(), res.Row.ID)
	require.ErrorAs(t, err, &ledgerErr)
	require.False(t, ledgerErr.Retryable)
	require.Contains(t, ledgerErr.Message, "connection reset")
}

func TestIdempotencyKeyReleasedOnRejection(t *testing.T) {
	f := newFixture(t)
	f.repo.addInvoice(1, "106", InvoiceSent)
	f.repo.addPayment(10, "106")
	ctx := context.Background()
	key := "0f8fad5b-d9cb-469f-a165-70867728950e"

	_, err := f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("200"), IdempotencyKey: key})
	require.ErrorIs(t, err, ErrAllocationRejected)

	_, err = f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("50"), IdempotencyKey: key})
	require.NoError(t, err)
	require.Contains(t, f.keys.keys, "allocation:payment_allocation/"+key)

	_, err = f.service.CreatePaymentAllocation(ctx, PaymentAllocationInput{PaymentID: 10, InvoiceID: 1, Amount: d("50"), IdempotencyKey: key})
	require.ErrorIs(t, err, internalShared.ErrIdempotencyConflict)
	require.Equal(t, 1, f.repo.allocationCount())
}
