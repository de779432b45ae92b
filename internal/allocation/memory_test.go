package allocation

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type memoryState struct {
	invoices    map[int64]Invoice
	payments    map[int64]Payment
	memos       map[int64]CreditMemo
	bills       map[int64]Bill
	allocations map[int64]PaymentAllocation
	credits     map[int64]CreditApplication
	apPayments  map[int64]APPayment
	nextID      int64
}

func (s memoryState) clone() memoryState {
	return memoryState{
		invoices:    maps.Clone(s.invoices),
		payments:    maps.Clone(s.payments),
		memos:       maps.Clone(s.memos),
		bills:       maps.Clone(s.bills),
		allocations: maps.Clone(s.allocations),
		credits:     maps.Clone(s.credits),
		apPayments:  maps.Clone(s.apPayments),
		nextID:      s.nextID,
	}
}

// memoryRepo serializes transactions, which is at least as strict as the
// parent row locks taken by the postgres repository.
type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		invoices:    map[int64]Invoice{},
		payments:    map[int64]Payment{},
		memos:       map[int64]CreditMemo{},
		bills:       map[int64]Bill{},
		allocations: map[int64]PaymentAllocation{},
		credits:     map[int64]CreditApplication{},
		apPayments:  map[int64]APPayment{},
		nextID:      100,
	}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{state: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *memoryRepo) invoice(id int64) Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.invoices[id]
}

func (m *memoryRepo) bill(id int64) Bill {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.bills[id]
}

func (m *memoryRepo) memo(id int64) CreditMemo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.memos[id]
}

func (m *memoryRepo) allocationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.allocations)
}

func (m *memoryRepo) addInvoice(id int64, total string, status InvoiceStatus) {
	inv := Invoice{ID: id, Number: fmt.Sprintf("INV-%d", id), Status: status, Total: decimal.RequireFromString(total)}
	m.state.invoices[id] = inv.Recompute(decimal.Zero, decimal.Zero)
}

func (m *memoryRepo) addPayment(id int64, amount string) {
	m.state.payments[id] = Payment{ID: id, Amount: decimal.RequireFromString(amount)}
}

func (m *memoryRepo) addMemo(id int64, amount string, status CreditMemoStatus) {
	m.state.memos[id] = CreditMemo{ID: id, Number: fmt.Sprintf("CM-%d", id), Amount: decimal.RequireFromString(amount), Status: status}
}

func (m *memoryRepo) addBill(id int64, amount string) {
	bill := Bill{ID: id, Number: fmt.Sprintf("BILL-%d", id), Amount: decimal.RequireFromString(amount), Status: BillOpen}
	m.state.bills[id] = bill.Recompute(decimal.Zero)
}

var _ TxRepository = (*memoryTx)(nil)

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) id() int64 {
	t.state.nextID++
	return t.state.nextID
}

func (t *memoryTx) LockInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := t.state.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: invoice %d", ErrParentNotFound, id)
	}
	return inv, nil
}

func (t *memoryTx) LockPayment(_ context.Context, id int64) (Payment, error) {
	p, ok := t.state.payments[id]
	if !ok {
		return Payment{}, fmt.Errorf("%w: payment %d", ErrParentNotFound, id)
	}
	return p, nil
}

func (t *memoryTx) LockCreditMemo(_ context.Context, id int64) (CreditMemo, error) {
	memo, ok := t.state.memos[id]
	if !ok {
		return CreditMemo{}, fmt.Errorf("%w: credit memo %d", ErrParentNotFound, id)
	}
	return memo, nil
}

func (t *memoryTx) LockBill(_ context.Context, id int64) (Bill, error) {
	bill, ok := t.state.bills[id]
	if !ok {
		return Bill{}, fmt.Errorf("%w: bill %d", ErrParentNotFound, id)
	}
	return bill, nil
}

func (t *memoryTx) GetPaymentAllocation(_ context.Context, id int64) (PaymentAllocation, error) {
	row, ok := t.state.allocations[id]
	if !ok {
		return PaymentAllocation{}, fmt.Errorf("%w: payment allocation %d", ErrAllocationNotFound, id)
	}
	return row, nil
}

func (t *memoryTx) GetCreditApplication(_ context.Context, id int64) (CreditApplication, error) {
	row, ok := t.state.credits[id]
	if !ok {
		return CreditApplication{}, fmt.Errorf("%w: credit application %d", ErrAllocationNotFound, id)
	}
	return row, nil
}

func (t *memoryTx) GetAPPayment(_ context.Context, id int64) (APPayment, error) {
	row, ok := t.state.apPayments[id]
	if !ok {
		return APPayment{}, fmt.Errorf("%w: ap payment %d", ErrAllocationNotFound, id)
	}
	return row, nil
}

func (t *memoryTx) InvoiceTotals(_ context.Context, invoiceID int64, exclude Exclude) (decimal.Decimal, decimal.Decimal, error) {
	payments, credits := decimal.Zero, decimal.Zero
	for id, row := range t.state.allocations {
		if row.InvoiceID == invoiceID && id != exclude.PaymentAllocationID {
			payments = payments.Add(row.Amount)
		}
	}
	for id, row := range t.state.credits {
		if row.InvoiceID == invoiceID && id != exclude.CreditApplicationID {
			credits = credits.Add(row.Amount)
		}
	}
	return payments, credits, nil
}

func (t *memoryTx) PaymentAllocated(_ context.Context, paymentID int64, exclude int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for id, row := range t.state.allocations {
		if row.PaymentID == paymentID && id != exclude {
			total = total.Add(row.Amount)
		}
	}
	return total, nil
}

func (t *memoryTx) MemoApplied(_ context.Context, memoID int64, exclude int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for id, row := range t.state.credits {
		if row.CreditMemoID == memoID && id != exclude {
			total = total.Add(row.Amount)
		}
	}
	return total, nil
}

func (t *memoryTx) BillPaid(_ context.Context, billID int64, exclude int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for id, row := range t.state.apPayments {
		if row.BillID == billID && id != exclude {
			total = total.Add(row.Amount)
		}
	}
	return total, nil
}

func (t *memoryTx) InsertPaymentAllocation(_ context.Context, in PaymentAllocationInput) (PaymentAllocation, error) {
	row := PaymentAllocation{ID: t.id(), PaymentID: in.PaymentID, InvoiceID: in.InvoiceID, Amount: in.Amount}
	t.state.allocations[row.ID] = row
	return row, nil
}

func (t *memoryTx) UpdatePaymentAllocation(ctx context.Context, id int64, amount decimal.Decimal) (PaymentAllocation, error) {
	row, err := t.GetPaymentAllocation(ctx, id)
	if err != nil {
		return row, err
	}
	row.Amount = amount
	t.state.allocations[id] = row
	return row, nil
}

func (t *memoryTx) DeletePaymentAllocation(_ context.Context, id int64) error {
	delete(t.state.allocations, id)
	return nil
}

func (t *memoryTx) InsertCreditApplication(_ context.Context, in CreditApplicationInput) (CreditApplication, error) {
	row := CreditApplication{ID: t.id(), CreditMemoID: in.CreditMemoID, InvoiceID: in.InvoiceID, Amount: in.Amount}
	t.state.credits[row.ID] = row
	return row, nil
}

func (t *memoryTx) UpdateCreditApplication(ctx context.Context, id int64, amount decimal.Decimal) (CreditApplication, error) {
	row, err := t.GetCreditApplication(ctx, id)
	if err != nil {
		return row, err
	}
	row.Amount = amount
	t.state.credits[id] = row
	return row, nil
}

func (t *memoryTx) DeleteCreditApplication(_ context.Context, id int64) error {
	delete(t.state.credits, id)
	return nil
}

func (t *memoryTx) InsertAPPayment(_ context.Context, in APPaymentInput) (APPayment, error) {
	row := APPayment{ID: t.id(), BillID: in.BillID, Amount: in.Amount, PaidAt: in.PaidAt, BankAccountID: in.BankAccountID}
	t.state.apPayments[row.ID] = row
	return row, nil
}

func (t *memoryTx) UpdateAPPayment(ctx context.Context, id int64, in APPaymentInput) (APPayment, error) {
	row, err := t.GetAPPayment(ctx, id)
	if err != nil {
		return row, err
	}
	row.Amount = in.Amount
	row.PaidAt = in.PaidAt
	row.BankAccountID = in.BankAccountID
	row.UpdatedAt = time.Now()
	t.state.apPayments[id] = row
	return row, nil
}

func (t *memoryTx) DeleteAPPayment(_ context.Context, id int64) error {
	delete(t.state.apPayments, id)
	return nil
}

func (t *memoryTx) SaveInvoiceDerived(_ context.Context, inv Invoice) error {
	t.state.invoices[inv.ID] = inv
	return nil
}

func (t *memoryTx) SaveBillDerived(_ context.Context, bill Bill) error {
	t.state.bills[bill.ID] = bill
	return nil
}

func (t *memoryTx) SaveMemoDerived(_ context.Context, memo CreditMemo) error {
	t.state.memos[memo.ID] = memo
	return nil
}
