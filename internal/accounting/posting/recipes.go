package posting

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
)

// accountNet accumulates a signed balance per account, debit positive.
// Accounts keep their first-seen order so built entries are stable.
type accountNet struct {
	order []int64
	net   map[int64]decimal.Decimal
}

func newAccountNet() *accountNet {
	return &accountNet{net: map[int64]decimal.Decimal{}}
}

func (a *accountNet) add(accountID int64, signed decimal.Decimal) {
	if _, ok := a.net[accountID]; !ok {
		a.order = append(a.order, accountID)
		a.net[accountID] = decimal.Zero
	}
	a.net[accountID] = a.net[accountID].Add(signed)
}

func (a *accountNet) lines(memo string) []journals.PostingLineInput {
	var out []journals.PostingLineInput
	for _, id := range a.order {
		amount := shared.Round2(a.net[id])
		switch {
		case amount.IsPositive():
			out = append(out, journals.Debit(id, amount, memo))
		case amount.IsNegative():
			out = append(out, journals.Credit(id, amount.Neg(), memo))
		}
	}
	return out
}

// cashAccount prefers the bank account's chart account over default cash.
func (e *Engine) cashAccount(linked int64) (int64, error) {
	if linked != 0 {
		if _, err := e.chart.Account(linked); err == nil {
			return linked, nil
		}
	}
	return e.chart.Resolve(accounts.RoleCash)
}

func (e *Engine) explicitOrRole(accountID int64, role accounts.Role) (int64, error) {
	if accountID != 0 {
		if _, err := e.chart.Account(accountID); err != nil {
			return 0, err
		}
		return accountID, nil
	}
	return e.chart.Resolve(role)
}

func entry(st journals.SourceType, id int64, memo string, lines ...journals.PostingLineInput) journals.PostingInput {
	return journals.PostingInput{
		EntryType:  st.EntryType(),
		SourceType: st,
		SourceID:   id,
		Memo:       memo,
		Lines:      lines,
	}
}

func (e *Engine) buildInvoice(ctx context.Context, id int64) (journals.PostingInput, error) {
	inv, err := e.docs.Invoice(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	if inv.Status == InvoiceStatusDraft || inv.Status == InvoiceStatusVoid {
		return journals.PostingInput{}, fmt.Errorf("%w: invoice %d is %s", shared.ErrSourceNotPostable, id, inv.Status)
	}
	total := shared.Round2(inv.Total)
	if !total.IsPositive() {
		return journals.PostingInput{}, fmt.Errorf("%w: invoice %d total is zero", shared.ErrNothingToPost, id)
	}
	ar, err := e.chart.Resolve(accounts.RoleAccountsReceivable)
	if err != nil {
		return journals.PostingInput{}, err
	}
	defaultRevenue, err := e.chart.Resolve(accounts.RoleRevenue)
	if err != nil {
		return journals.PostingInput{}, err
	}
	tax := shared.Round2(inv.TaxAmount)
	var taxAccount int64
	if tax.IsPositive() {
		if taxAccount, err = e.chart.Resolve(accounts.RoleSalesTaxPayable); err != nil {
			return journals.PostingInput{}, err
		}
	}

	memo := fmt.Sprintf("Invoice %s", inv.Number)
	credits := newAccountNet()
	for _, line := range inv.Lines {
		account := defaultRevenue
		if e.revenue != nil && line.Category != "" {
			mapped, found, err := e.revenue.RevenueAccount(ctx, mappings.NormalizeCategory(line.Category))
			if err != nil {
				return journals.PostingInput{}, err
			}
			if found {
				if _, err := e.chart.Account(mapped); err == nil {
					account = mapped
				}
			}
		}
		credits.add(account, line.Amount.Neg())
	}
	if tax.IsPositive() {
		credits.add(taxAccount, tax.Neg())
	}
	in := entry(journals.SourceInvoice, id, memo, journals.Debit(ar, total, memo))
	in.Lines = append(in.Lines, credits.lines(memo)...)
	in.EntryDate = inv.IssueDate
	return in, nil
}

func (e *Engine) buildPaymentAllocation(ctx context.Context, id int64) (journals.PostingInput, error) {
	pa, err := e.docs.PaymentAllocation(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	amount := shared.Round2(pa.Amount)
	if !amount.IsPositive() {
		return journals.PostingInput{}, fmt.Errorf("%w: payment allocation %d", shared.ErrNothingToPost, id)
	}
	cash, err := e.cashAccount(pa.CashAccountID)
	if err != nil {
		return journals.PostingInput{}, err
	}
	ar, err := e.chart.Resolve(accounts.RoleAccountsReceivable)
	if err != nil {
		return journals.PostingInput{}, err
	}
	memo := fmt.Sprintf("Payment %d applied to invoice %d", pa.PaymentID, pa.InvoiceID)
	in := entry(journals.SourcePaymentAllocation, id, memo,
		journals.Debit(cash, amount, memo),
		journals.Credit(ar, amount, memo),
	)
	in.EntryDate = pa.ReceivedAt
	return in, nil
}

func (e *Engine) buildAPBill(ctx context.Context, id int64) (journals.PostingInput, error) {
	bill, err := e.docs.APBill(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	amount := shared.Round2(bill.Amount)
	if !amount.IsPositive() {
		return journals.PostingInput{}, fmt.Errorf("%w: ap bill %d", shared.ErrNothingToPost, id)
	}
	expense, err := e.explicitOrRole(bill.ExpenseAccountID, accounts.RoleOtherExpense)
	if err != nil {
		return journals.PostingInput{}, err
	}
	ap, err := e.chart.Resolve(accounts.RoleAccountsPayable)
	if err != nil {
		return journals.PostingInput{}, err
	}
	memo := fmt.Sprintf("Bill %s", bill.Number)
	in := entry(journals.SourceAPBill, id, memo,
		journals.Debit(expense, amount, memo),
		journals.Credit(ap, amount, memo),
	)
	in.EntryDate = bill.BillDate
	return in, nil
}

func (e *Engine) buildAPPayment(ctx context.Context, id int64) (journals.PostingInput, error) {
	p, err := e.docs.APPayment(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	amount := shared.Round2(p.Amount)
	if !amount.IsPositive() {
		return journals.PostingInput{}, fmt.Errorf("%w: ap payment %d", shared.ErrNothingToPost, id)
	}
	ap, err := e.chart.Resolve(accounts.RoleAccountsPayable)
	if err != nil {
		return journals.PostingInput{}, err
	}
	cash, err := e.cashAccount(p.CashAccountID)
	if err != nil {
		return journals.PostingInput{}, err
	}
	memo := fmt.Sprintf("Payment on bill %d", p.BillID)
	in := entry(journals.SourceAPPayment, id, memo,
		journals.Debit(ap, amount, memo),
		journals.Credit(cash, amount, memo),
	)
	in.EntryDate = p.PaidAt
	return in, nil
}

func (e *Engine) buildJobExpense(ctx context.Context, id int64) (journals.PostingInput, error) {
	exp, err := e.docs.JobExpense(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	amount := shared.Round2(exp.Amount)
	if !amount.IsPositive() {
		return journals.PostingInput{}, fmt.Errorf("%w: job expense %d", shared.ErrNothingToPost, id)
	}
	cogs, err := e.chart.Resolve(mappings.COGSRole(exp.ExpenseType))
	if err != nil {
		return journals.PostingInput{}, err
	}
	cash, err := e.cashAccount(exp.CashAccountID)
	if err != nil {
		return journals.PostingInput{}, err
	}
	memo := fmt.Sprintf("Job %d %s", exp.JobID, exp.Description)
	in := entry(journals.SourceJobExpense, id, memo,
		journals.Debit(cogs, amount, memo),
		journals.Credit(cash, amount, memo),
	)
	in.EntryDate = exp.ExpenseDate
	return in, nil
}

func (e *Engine) buildGeneralExpense(ctx context.Context, id int64) (journals.PostingInput, error) {
	exp, err := e.docs.GeneralExpense(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	amount := shared.Round2(exp.Amount)
	if !amount.IsPositive() {
		return journals.PostingInput{}, fmt.Errorf("%w: general expense %d", shared.ErrNothingToPost, id)
	}
	expense, err := e.explicitOrRole(exp.AccountID, accounts.RoleOtherExpense)
	if err != nil {
		return journals.PostingInput{}, err
	}
	cash, err := e.cashAccount(exp.CashAccountID)
	if err != nil {
		return journals.PostingInput{}, err
	}
	memo := exp.Description
	in := entry(journals.SourceGeneralExpense, id, memo,
		journals.Debit(expense, amount, memo),
		journals.Credit(cash, amount, memo),
	)
	in.EntryDate = exp.ExpenseDate
	return in, nil
}

func (e *Engine) buildPayrollPeriod(ctx context.Context, id int64) (journals.PostingInput, error) {
	period, err := e.docs.PayrollPeriod(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	if period.Status != PayrollStatusPaid {
		return journals.PostingInput{}, fmt.Errorf("%w: payroll period %d is %s", shared.ErrSourceNotPostable, id, period.Status)
	}
	gross := shared.Round2(period.GrossTotal)
	if !gross.IsPositive() {
		return journals.PostingInput{}, fmt.Errorf("%w: payroll period %d has no gross pay", shared.ErrNothingToPost, id)
	}
	payroll, err := e.chart.Resolve(accounts.RolePayrollExpense)
	if err != nil {
		return journals.PostingInput{}, err
	}
	cash, err := e.chart.Resolve(accounts.RoleCash)
	if err != nil {
		return journals.PostingInput{}, err
	}
	memo := fmt.Sprintf("Payroll period %d", id)
	in := entry(journals.SourcePayrollPeriod, id, memo,
		journals.Debit(payroll, gross, memo),
		journals.Credit(cash, gross, memo),
	)
	in.EntryDate = period.PayDate
	return in, nil
}

func (e *Engine) buildOpeningBalanceBatch(ctx context.Context, id int64) (journals.PostingInput, error) {
	batch, err := e.docs.OpeningBalanceBatch(ctx, id)
	if err != nil {
		return journals.PostingInput{}, err
	}
	if batch.Status != BatchStatusFinalized {
		return journals.PostingInput{}, fmt.Errorf("%w: opening balance batch %d is %s", shared.ErrSourceNotPostable, id, batch.Status)
	}
	if len(batch.Lines) == 0 {
		return journals.PostingInput{}, fmt.Errorf("%w: opening balance batch %d", shared.ErrBatchEmpty, id)
	}
	memo := batch.Memo
	if memo == "" {
		memo = fmt.Sprintf("Opening balances as of %s", batch.AsOfDate.Format("2006-01-02"))
	}
	in := entry(journals.SourceOpeningBalanceBatch, id, memo)
	for _, line := range batch.Lines {
		in.Lines = append(in.Lines, journals.PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	in.EntryDate = batch.AsOfDate
	return in, nil
}
