package posting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// Repository reads posting source documents from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the document loader.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func notFound(kind string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", shared.ErrSourceNotFound, kind, id)
	}
	return err
}

func (r *Repository) Invoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `SELECT id, invoice_number, issue_date, status, total, tax_amount
FROM invoices WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&inv.ID, &inv.Number, &inv.IssueDate, &inv.Status, &inv.Total, &inv.TaxAmount)
	if err != nil {
		return Invoice{}, notFound("invoice", id, err)
	}
	rows, err := r.pool.Query(ctx, `SELECT category, amount FROM invoice_line_items WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceLine
		if err := rows.Scan(&line.Category, &line.Amount); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, rows.Err()
}

func (r *Repository) PaymentAllocation(ctx context.Context, id int64) (PaymentAllocation, error) {
	var pa PaymentAllocation
	err := r.pool.QueryRow(ctx, `SELECT pa.id, pa.payment_id, pa.invoice_id, pa.amount, p.received_at, COALESCE(b.chart_account_id, 0)
FROM payment_allocations pa
JOIN payments p ON p.id = pa.payment_id AND p.deleted_at IS NULL
LEFT JOIN bank_accounts b ON b.id = p.bank_account_id AND b.deleted_at IS NULL
WHERE pa.id = $1`, id).
		Scan(&pa.ID, &pa.PaymentID, &pa.InvoiceID, &pa.Amount, &pa.ReceivedAt, &pa.CashAccountID)
	if err != nil {
		return PaymentAllocation{}, notFound("payment allocation", id, err)
	}
	return pa, nil
}

func (r *Repository) APBill(ctx context.Context, id int64) (APBill, error) {
	var bill APBill
	err := r.pool.QueryRow(ctx, `SELECT id, bill_number, bill_date, amount, COALESCE(expense_account_id, 0)
FROM ap_bills WHERE id = $1 AND deleted_at IS NULL AND status <> 'void'`, id).
		Scan(&bill.ID, &bill.Number, &bill.BillDate, &bill.Amount, &bill.ExpenseAccountID)
	if err != nil {
		return APBill{}, notFound("ap bill", id, err)
	}
	return bill, nil
}

func (r *Repository) APPayment(ctx context.Context, id int64) (APPayment, error) {
	var p APPayment
	err := r.pool.QueryRow(ctx, `SELECT ap.id, ap.bill_id, ap.amount, ap.paid_at, COALESCE(b.chart_account_id, 0)
FROM ap_payments ap
LEFT JOIN bank_accounts b ON b.id = ap.bank_account_id AND b.deleted_at IS NULL
WHERE ap.id = $1`, id).
		Scan(&p.ID, &p.BillID, &p.Amount, &p.PaidAt, &p.CashAccountID)
	if err != nil {
		return APPayment{}, notFound("ap payment", id, err)
	}
	return p, nil
}

func (r *Repository) JobExpense(ctx context.Context, id int64) (JobExpense, error) {
	var e JobExpense
	err := r.pool.QueryRow(ctx, `SELECT je.id, je.job_id, je.expense_type, je.description, je.amount, je.expense_date, COALESCE(b.chart_account_id, 0)
FROM job_expenses je
LEFT JOIN bank_accounts b ON b.id = je.bank_account_id AND b.deleted_at IS NULL
WHERE je.id = $1 AND je.deleted_at IS NULL`, id).
		Scan(&e.ID, &e.JobID, &e.ExpenseType, &e.Description, &e.Amount, &e.ExpenseDate, &e.CashAccountID)
	if err != nil {
		return JobExpense{}, notFound("job expense", id, err)
	}
	return e, nil
}

func (r *Repository) GeneralExpense(ctx context.Context, id int64) (GeneralExpense, error) {
	var e GeneralExpense
	err := r.pool.QueryRow(ctx, `SELECT ge.id, COALESCE(ge.account_id, 0), ge.description, ge.amount, ge.expense_date, COALESCE(b.chart_account_id, 0)
FROM general_expenses ge
LEFT JOIN bank_accounts b ON b.id = ge.bank_account_id AND b.deleted_at IS NULL
WHERE ge.id = $1 AND ge.deleted_at IS NULL`, id).
		Scan(&e.ID, &e.AccountID, &e.Description, &e.Amount, &e.ExpenseDate, &e.CashAccountID)
	if err != nil {
		return GeneralExpense{}, notFound("general expense", id, err)
	}
	return e, nil
}

func (r *Repository) PayrollPeriod(ctx context.Context, id int64) (PayrollPeriod, error) {
	var p PayrollPeriod
	err := r.pool.QueryRow(ctx, `SELECT pp.id, pp.status, pp.pay_date, COALESCE(SUM(pe.gross_pay), 0)
FROM payroll_periods pp
LEFT JOIN payroll_entries pe ON pe.payroll_period_id = pp.id
WHERE pp.id = $1 AND pp.deleted_at IS NULL
GROUP BY pp.id, pp.status, pp.pay_date`, id).
		Scan(&p.ID, &p.Status, &p.PayDate, &p.GrossTotal)
	if err != nil {
		return PayrollPeriod{}, notFound("payroll period", id, err)
	}
	return p, nil
}

func (r *Repository) OpeningBalanceBatch(ctx context.Context, id int64) (OpeningBalanceBatch, error) {
	var b OpeningBalanceBatch
	err := r.pool.QueryRow(ctx, `SELECT id, status, as_of_date, memo FROM opening_balance_batches WHERE id = $1`, id).
		Scan(&b.ID, &b.Status, &b.AsOfDate, &b.Memo)
	if err != nil {
		return OpeningBalanceBatch{}, notFound("opening balance batch", id, err)
	}
	rows, err := r.pool.Query(ctx, `SELECT account_id, debit, credit, memo FROM opening_balance_lines WHERE batch_id = $1 ORDER BY id`, id)
	if err != nil {
		return OpeningBalanceBatch{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line OpeningBalanceLine
		if err := rows.Scan(&line.AccountID, &line.Debit, &line.Credit, &line.Memo); err != nil {
			return OpeningBalanceBatch{}, err
		}
		b.Lines = append(b.Lines, line)
	}
	return b, rows.Err()
}
