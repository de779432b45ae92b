package perf

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-gl/internal/allocation"
)

func BenchmarkCheckPaymentAllocation(b *testing.B) {
	inv := allocation.InvoiceSnapshot{
		Invoice:       allocation.Invoice{ID: 1, Status: allocation.InvoiceSent, Total: decimal.RequireFromString("1060.00")},
		OtherPayments: decimal.RequireFromString("500.00"),
		OtherCredits:  decimal.RequireFromString("60.00"),
	}
	payment := allocation.SourceSnapshot{Amount: decimal.RequireFromString("800.00"), OtherAllocated: decimal.RequireFromString("100.00")}
	amount := decimal.RequireFromString("499.99")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := allocation.CheckPaymentAllocation(amount, inv, payment); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInvoicePaymentStatus(b *testing.B) {
	total := decimal.RequireFromString("106.00")
	paid := decimal.RequireFromString("40.00")
	credits := decimal.RequireFromString("6.00")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if allocation.InvoicePaymentStatus(total, paid, credits) != allocation.PaymentPartial {
			b.Fatal("unexpected status")
		}
	}
}

func BenchmarkPostingInputValidate(b *testing.B) {
	in := journals.PostingInput{
		EntryDate:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		EntryType:  journals.SourceInvoice.EntryType(),
		SourceType: journals.SourceInvoice,
		SourceID:   42,
	}
	in.Lines = append(in.Lines, journals.Debit(1, decimal.RequireFromString("1060.00"), "receivable"))
	for i := 0; i < 20; i++ {
		in.Lines = append(in.Lines, journals.Credit(int64(10+i), decimal.RequireFromString("50.00"), "revenue"))
	}
	in.Lines = append(in.Lines, journals.Credit(2, decimal.RequireFromString("60.00"), "tax"))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := in.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildTrialBalance(b *testing.B) {
	balances := make([]reports.AccountBalance, 0, 500)
	for i := 0; i < 500; i++ {
		amount := decimal.NewFromInt(int64(100 + i))
		bal := reports.AccountBalance{AccountID: int64(i + 1), Number: strconv.Itoa(1000 + i*10), Debit: amount, Credit: decimal.Zero}
		if i%2 == 1 {
			bal.Debit, bal.Credit = decimal.Zero, decimal.NewFromInt(int64(100+i-1))
		}
		balances = append(balances, bal)
	}
	asOf := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tb := reports.BuildTrialBalance(asOf, balances)
		if len(tb.Groups) == 0 {
			b.Fatal("no groups")
		}
	}
}
