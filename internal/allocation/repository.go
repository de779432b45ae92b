package allocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository opens allocation transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the statements of one allocation transaction.
// Lock* methods take row locks that are held until commit.
type TxRepository interface {
	LockInvoice(ctx context.Context, id int64) (Invoice, error)
	LockPayment(ctx context.Context, id int64) (Payment, error)
	LockCreditMemo(ctx context.Context, id int64) (CreditMemo, error)
	LockBill(ctx context.Context, id int64) (Bill, error)

	GetPaymentAllocation(ctx context.Context, id int64) (PaymentAllocation, error)
	GetCreditApplication(ctx context.Context, id int64) (CreditApplication, error)
	GetAPPayment(ctx context.Context, id int64) (APPayment, error)

	InvoiceTotals(ctx context.Context, invoiceID int64, exclude Exclude) (payments, credits decimal.Decimal, err error)
	PaymentAllocated(ctx context.Context, paymentID int64, excludeAllocationID int64) (decimal.Decimal, error)
	MemoApplied(ctx context.Context, memoID int64, excludeApplicationID int64) (decimal.Decimal, error)
	BillPaid(ctx context.Context, billID int64, excludePaymentID int64) (decimal.Decimal, error)

	InsertPaymentAllocation(ctx context.Context, in PaymentAllocationInput) (PaymentAllocation, error)
	UpdatePaymentAllocation(ctx context.Context, id int64, amount decimal.Decimal) (PaymentAllocation, error)
	DeletePaymentAllocation(ctx context.Context, id int64) error
	InsertCreditApplication(ctx context.Context, in CreditApplicationInput) (CreditApplication, error)
	UpdateCreditApplication(ctx context.Context, id int64, amount decimal.Decimal) (CreditApplication, error)
	DeleteCreditApplication(ctx context.Context, id int64) error
	InsertAPPayment(ctx context.Context, in APPaymentInput) (APPayment, error)
	UpdateAPPayment(ctx context.Context, id int64, in APPaymentInput) (APPayment, error)
	DeleteAPPayment(ctx context.Context, id int64) error

	SaveInvoiceDerived(ctx context.Context, inv Invoice) error
	SaveBillDerived(ctx context.Context, bill Bill) error
	SaveMemoDerived(ctx context.Context, memo CreditMemo) error
}

// Exclude names allocation rows left out of invoice totals.
type Exclude struct {
	PaymentAllocationID int64
	CreditApplicationID int64
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// WithTx runs at read committed so statements issued after a parent lock
// see every row committed by the previous holder of that lock.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func missing(kind error, what string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", kind, what, id)
	}
	return err
}

func (r *txRepository) LockInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.tx.QueryRow(ctx, `SELECT id, invoice_number, status, payment_status, total, amount_paid, credit_applied, balance_due, deleted_at
FROM invoices WHERE id = $1 FOR UPDATE`, id).
		Scan(&inv.ID, &inv.Number, &inv.Status, &inv.PaymentStatus, &inv.Total, &inv.AmountPaid, &inv.CreditApplied, &inv.BalanceDue, &inv.DeletedAt)
	return inv, missing(ErrParentNotFound, "invoice", id, err)
}

func (r *txRepository) LockPayment(ctx context.Context, id int64) (Payment, error) {
	var p Payment
	err := r.tx.QueryRow(ctx, `SELECT id, amount, deleted_at FROM payments WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Amount, &p.DeletedAt)
	return p, missing(ErrParentNotFound, "payment", id, err)
}

func (r *txRepository) LockCreditMemo(ctx context.Context, id int64) (CreditMemo, error) {
	var m CreditMemo
	err := r.tx.QueryRow(ctx, `SELECT id, memo_number, amount, applied_total, status, deleted_at FROM credit_memos WHERE id = $1 FOR UPDATE`, id).
		Scan(&m.ID, &m.Number, &m.Amount, &m.AppliedTotal, &m.Status, &m.DeletedAt)
	return m, missing(ErrParentNotFound, "credit memo", id, err)
}

func (r *txRepository) LockBill(ctx context.Context, id int64) (Bill, error) {
	var b Bill
	err := r.tx.QueryRow(ctx, `SELECT id, bill_number, amount, amount_paid, status, payment_status, deleted_at FROM ap_bills WHERE id = $1 FOR UPDATE`, id).
		Scan(&b.ID, &b.Number, &b.Amount, &b.AmountPaid, &b.Status, &b.PaymentStatus, &b.DeletedAt)
	return b, missing(ErrParentNotFound, "bill", id, err)
}

func (r *txRepository) GetPaymentAllocation(ctx context.Context, id int64) (PaymentAllocation, error) {
	var a PaymentAllocation
	err := r.tx.QueryRow(ctx, `SELECT id, payment_id, invoice_id, amount, created_at, updated_at FROM payment_allocations WHERE id = $1`, id).
		Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.Amount, &a.CreatedAt, &a.UpdatedAt)
	return a, missing(ErrAllocationNotFound, "payment allocation", id, err)
}

func (r *txRepository) GetCreditApplication(ctx context.Context, id int64) (CreditApplication, error) {
	var a CreditApplication
	err := r.tx.QueryRow(ctx, `SELECT id, credit_memo_id, invoice_id, amount, created_at, updated_at FROM credit_memo_applications WHERE id = $1`, id).
		Scan(&a.ID, &a.CreditMemoID, &a.InvoiceID, &a.Amount, &a.CreatedAt, &a.UpdatedAt)
	return a, missing(ErrAllocationNotFound, "credit application", id, err)
}

func (r *txRepository) GetAPPayment(ctx context.Context, id int64) (APPayment, error) {
	var p APPayment
	err := r.tx.QueryRow(ctx, `SELECT id, bill_id, amount, paid_at, bank_account_id, created_at, updated_at FROM ap_payments WHERE id = $1`, id).
		Scan(&p.ID, &p.BillID, &p.Amount, &p.PaidAt, &p.BankAccountID, &p.CreatedAt, &p.UpdatedAt)
	return p, missing(ErrAllocationNotFound, "ap payment", id, err)
}

func (r *txRepository) InvoiceTotals(ctx context.Context, invoiceID int64, exclude Exclude) (decimal.Decimal, decimal.Decimal, error) {
	var payments, credits decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT
  (SELECT COALESCE(SUM(amount), 0) FROM payment_allocations WHERE invoice_id = $1 AND id <> $2),
  (SELECT COALESCE(SUM(amount), 0) FROM credit_memo_applications WHERE invoice_id = $1 AND id <> $3)`,
		invoiceID, exclude.PaymentAllocationID, exclude.CreditApplicationID).Scan(&payments, &credits)
	return payments, credits, err
}

func (r *txRepository) sum(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.tx.QueryRow(ctx, query, args...).Scan(&total)
	return total, err
}

func (r *txRepository) PaymentAllocated(ctx context.Context, paymentID int64, excludeAllocationID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payment_allocations WHERE payment_id = $1 AND id <> $2`, paymentID, excludeAllocationID)
}

func (r *txRepository) MemoApplied(ctx context.Context, memoID int64, excludeApplicationID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM credit_memo_applications WHERE credit_memo_id = $1 AND id <> $2`, memoID, excludeApplicationID)
}

func (r *txRepository) BillPaid(ctx context.Context, billID int64, excludePaymentID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM ap_payments WHERE bill_id = $1 AND id <> $2`, billID, excludePaymentID)
}

func (r *txRepository) InsertPaymentAllocation(ctx context.Context, in PaymentAllocationInput) (PaymentAllocation, error) {
	var a PaymentAllocation
	err := r.tx.QueryRow(ctx, `INSERT INTO payment_allocations (payment_id, invoice_id, amount) VALUES ($1, $2, $3)
RETURNING id, payment_id, invoice_id, amount, created_at, updated_at`, in.PaymentID, in.InvoiceID, in.Amount).
		Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.Amount, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *txRepository) UpdatePaymentAllocation(ctx context.Context, id int64, amount decimal.Decimal) (PaymentAllocation, error) {
	var a PaymentAllocation
	err := r.tx.QueryRow(ctx, `UPDATE payment_allocations SET amount = $2, updated_at = NOW() WHERE id = $1
RETURNING id, payment_id, invoice_id, amount, created_at, updated_at`, id, amount).
		Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.Amount, &a.CreatedAt, &a.UpdatedAt)
	return a, missing(ErrAllocationNotFound, "payment allocation", id, err)
}

func (r *txRepository) exec(ctx context.Context, what string, id int64, query string, args ...any) error {
	tag, err := r.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %d", ErrAllocationNotFound, what, id)
	}
	return nil
}

func (r *txRepository) DeletePaymentAllocation(ctx context.Context, id int64) error {
	return r.exec(ctx, "payment allocation", id, `DELETE FROM payment_allocations WHERE id = $1`, id)
}

func (r *txRepository) InsertCreditApplication(ctx context.Context, in CreditApplicationInput) (CreditApplication, error) {
	var a CreditApplication
	err := r.tx.QueryRow(ctx, `INSERT INTO credit_memo_applications (credit_memo_id, invoice_id, amount) VALUES ($1, $2, $3)
RETURNING id, credit_memo_id, invoice_id, amount, created_at, updated_at`, in.CreditMemoID, in.InvoiceID, in.Amount).
		Scan(&a.ID, &a.CreditMemoID, &a.InvoiceID, &a.Amount, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *txRepository) UpdateCreditApplication(ctx context.Context, id int64, amount decimal.Decimal) (CreditApplication, error) {
	var a CreditApplication
	err := r.tx.QueryRow(ctx, `UPDATE credit_memo_applications SET amount = $2, updated_at = NOW() WHERE id = $1
RETURNING id, credit_memo_id, invoice_id, amount, created_at, updated_at`, id, amount).
		Scan(&a.ID, &a.CreditMemoID, &a.InvoiceID, &a.Amount, &a.CreatedAt, &a.UpdatedAt)
	return a, missing(ErrAllocationNotFound, "credit application", id, err)
}

func (r *txRepository) DeleteCreditApplication(ctx context.Context, id int64) error {
	return r.exec(ctx, "credit application", id, `DELETE FROM credit_memo_applications WHERE id = $1`, id)
}

func (r *txRepository) InsertAPPayment(ctx context.Context, in APPaymentInput) (APPayment, error) {
	var p APPayment
	err := r.tx.QueryRow(ctx, `INSERT INTO ap_payments (bill_id, amount, paid_at, bank_account_id) VALUES ($1, $2, $3, $4)
RETURNING id, bill_id, amount, paid_at, bank_account_id, created_at, updated_at`, in.BillID, in.Amount, in.PaidAt, in.BankAccountID).
		Scan(&p.ID, &p.BillID, &p.Amount, &p.PaidAt, &p.BankAccountID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *txRepository) UpdateAPPayment(ctx context.Context, id int64, in APPaymentInput) (APPayment, error) {
	var p APPayment
	err := r.tx.QueryRow(ctx, `UPDATE ap_payments SET amount = $2, paid_at = $3, bank_account_id = $4, updated_at = NOW() WHERE id = $1
RETURNING id, bill_id, amount, paid_at, bank_account_id, created_at, updated_at`, id, in.Amount, in.PaidAt, in.BankAccountID).
		Scan(&p.ID, &p.BillID, &p.Amount, &p.PaidAt, &p.BankAccountID, &p.CreatedAt, &p.UpdatedAt)
	return p, missing(ErrAllocationNotFound, "ap payment", id, err)
}

func (r *txRepository) DeleteAPPayment(ctx context.Context, id int64) error {
	return r.exec(ctx, "ap payment", id, `DELETE FROM ap_payments WHERE id = $1`, id)
}

func (r *txRepository) SaveInvoiceDerived(ctx context.Context, inv Invoice) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET amount_paid = $2, credit_applied = $3, balance_due = $4, payment_status = $5, updated_at = NOW()
WHERE id = $1`, inv.ID, inv.AmountPaid, inv.CreditApplied, inv.BalanceDue, string(inv.PaymentStatus))
	return err
}

func (r *txRepository) SaveBillDerived(ctx context.Context, bill Bill) error {
	_, err := r.tx.Exec(ctx, `UPDATE ap_bills SET amount_paid = $2, payment_status = $3, updated_at = NOW() WHERE id = $1`,
		bill.ID, bill.AmountPaid, string(bill.PaymentStatus))
	return err
}

func (r *txRepository) SaveMemoDerived(ctx context.Context, memo CreditMemo) error {
	_, err := r.tx.Exec(ctx, `UPDATE credit_memos SET applied_total = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		memo.ID, memo.AppliedTotal, string(memo.Status))
	return err
}
