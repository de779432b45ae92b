package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-gl/internal/allocation"
)

// ReportStore keeps the most recent report.
type ReportStore interface {
	Save(ctx context.Context, report Report) error
	Latest(ctx context.Context) (Report, error)
}

type Checker struct {
	repo  Repository
	store ReportStore
	now   func() time.Time
}

func NewChecker(repo Repository, store ReportStore) *Checker {
	return &Checker{repo: repo, store: store, now: time.Now}
}

func (c *Checker) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Run scans every live entry and allocatable document and stores the report.
func (c *Checker) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: c.now().UTC(), Findings: []Finding{}}

	entries, err := c.repo.EntryTotals(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("integrity: entries: %w", err)
	}
	report.Checked.Entries = len(entries)
	for _, e := range entries {
		report.Findings = append(report.Findings, checkEntry(e)...)
	}

	invoices, err := c.repo.InvoiceTotals(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("integrity: invoices: %w", err)
	}
	report.Checked.Invoices = len(invoices)
	for _, inv := range invoices {
		if f, ok := checkInvoice(inv); ok {
			report.Findings = append(report.Findings, f)
		}
	}

	bills, err := c.repo.BillTotals(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("integrity: bills: %w", err)
	}
	report.Checked.Bills = len(bills)
	for _, b := range bills {
		expected := allocation.BillPaymentStatus(b.Amount, b.Paid)
		if string(expected) != b.StoredStatus {
			report.Findings = append(report.Findings, Finding{
				Kind: FindingBillStatus, Entity: "ap_bill", EntityID: b.ID,
				Stored: b.StoredStatus, Expected: string(expected),
				Detail: fmt.Sprintf("paid %s of %s", b.Paid.StringFixed(2), b.Amount.StringFixed(2)),
			})
		}
	}

	memos, err := c.repo.MemoTotals(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("integrity: credit memos: %w", err)
	}
	report.Checked.CreditMemos = len(memos)
	for _, m := range memos {
		expected := allocation.MemoStatus(allocation.CreditMemoStatus(m.StoredStatus), m.Applied)
		if string(expected) != m.StoredStatus {
			report.Findings = append(report.Findings, Finding{
				Kind: FindingMemoStatus, Entity: "credit_memo", EntityID: m.ID,
				Stored: m.StoredStatus, Expected: string(expected),
				Detail: fmt.Sprintf("applied %s", m.Applied.StringFixed(2)),
			})
		}
	}

	report.FinishedAt = c.now().UTC()
	if c.store != nil {
		if err := c.store.Save(ctx, report); err != nil {
			return report, fmt.Errorf("integrity: save report: %w", err)
		}
	}
	return report, nil
}

// Latest returns the most recently stored report.
func (c *Checker) Latest(ctx context.Context) (Report, error) {
	if c.store == nil {
		return Report{}, ErrNoReport
	}
	return c.store.Latest(ctx)
}

func checkEntry(e EntryTotals) []Finding {
	var out []Finding
	if e.Posted != (e.PostedAt != nil) {
		out = append(out, Finding{
			Kind: FindingPostedFlag, Entity: "journal_entry", EntityID: e.ID,
			Detail: fmt.Sprintf("posted=%t posted_at set=%t", e.Posted, e.PostedAt != nil),
		})
	}
	if e.Posted && !shared.Equal2(e.DebitSum, e.CreditSum) {
		out = append(out, Finding{
			Kind: FindingUnbalancedEntry, Entity: "journal_entry", EntityID: e.ID,
			Detail: fmt.Sprintf("%s %d: debit %s credit %s", e.SourceType, e.SourceID, e.DebitSum.StringFixed(2), e.CreditSum.StringFixed(2)),
		})
	}
	return out
}

func checkInvoice(inv InvoiceTotals) (Finding, bool) {
	expected := allocation.InvoicePaymentStatus(inv.Total, inv.Paid, inv.Credits)
	balance := shared.Round2(inv.Total.Sub(inv.Paid).Sub(inv.Credits))
	if string(expected) == inv.StoredStatus && shared.Equal2(balance, inv.StoredBalance) {
		return Finding{}, false
	}
	return Finding{
		Kind: FindingInvoiceStatus, Entity: "invoice", EntityID: inv.ID,
		Stored: inv.StoredStatus, Expected: string(expected),
		Detail: fmt.Sprintf("balance stored %s expected %s", inv.StoredBalance.StringFixed(2), balance.StringFixed(2)),
	}, true
}
