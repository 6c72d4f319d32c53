package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"
)

func TestLedgerCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := []TransactionInput{
		{Type: "gift", Category: "X", Amount: dec("1")},
		{Type: "income", Category: "", Amount: dec("1")},
		{Type: "income", Category: "Sales", Amount: dec("0")},
		{Type: "expense", Category: "Seeds", Amount: dec("5"), Date: "2024-13-01"},
	}
	for _, in := range bad {
		if _, err := f.ledger.Create(ctx, "u", in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Create(%+v) err=%v", in, err)
		}
	}

	tx, err := f.ledger.Create(ctx, "u", TransactionInput{Type: " Expense ", Category: "Seeds", Amount: dec("12.345")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.Type != domain.TxExpense || !tx.Amount.Equal(dec("12.35")) || len(tx.Date) != 10 || tx.OrderID != nil {
		t.Fatalf("created %+v", tx)
	}

	if err := f.ledger.Delete(ctx, "other", tx.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := f.ledger.Delete(ctx, "u", tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestLedgerList_FilterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, flt := range []repo.TransactionFilter{
		{From: "yesterday"},
		{To: "2024-02-30"},
		{From: "2024-05-01", To: "2024-04-01"},
		{Type: "refund"},
	} {
		if _, err := f.ledger.List(ctx, "u", flt); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("List(%+v) err=%v", flt, err)
		}
	}
}

func TestLedgerSummary_MonthsAndCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entries := []TransactionInput{
		{Type: "income", Category: "Produce Sales", Amount: dec("1000"), Date: "2024-01-15"},
		{Type: "income", Category: "Produce Sales", Amount: dec("500"), Date: "2024-03-02"},
		{Type: "income", Category: "Rental", Amount: dec("700"), Date: "2024-03-20"},
		{Type: "expense", Category: "Seeds", Amount: dec("200"), Date: "2024-03-05"},
		{Type: "expense", Category: "Fertilizer", Amount: dec("300"), Date: "2024-12-31"},
		{Type: "income", Category: "Produce Sales", Amount: dec("999"), Date: "2023-12-31"},
	}
	for _, in := range entries {
		if _, err := f.ledger.Create(ctx, "u", in); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	s, err := f.ledger.Summary(ctx, "u", 2024)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(s.Monthly) != 12 || s.Monthly[0].Month != 1 || s.Monthly[11].Month != 12 {
		t.Fatalf("months %+v", s.Monthly)
	}
	if !s.TotalIncome.Equal(dec("2200")) || !s.TotalExpense.Equal(dec("500")) || !s.Net.Equal(dec("1700")) {
		t.Fatalf("totals %s %s %s", s.TotalIncome, s.TotalExpense, s.Net)
	}
	if !s.Monthly[2].Income.Equal(dec("1200")) || !s.Monthly[2].Expense.Equal(dec("200")) || !s.Monthly[1].Income.IsZero() {
		t.Fatalf("march/feb %+v %+v", s.Monthly[2], s.Monthly[1])
	}
	if len(s.IncomeByCategory) != 2 || s.IncomeByCategory[0].Category != "Produce Sales" || !s.IncomeByCategory[0].Total.Equal(dec("1500")) {
		t.Fatalf("income categories %+v", s.IncomeByCategory)
	}
	if len(s.ExpenseByCategory) != 2 || s.ExpenseByCategory[0].Category != "Fertilizer" {
		t.Fatalf("expense categories %+v", s.ExpenseByCategory)
	}

	if _, err := f.ledger.Summary(ctx, "u", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad year: %v", err)
	}
}

func TestLedgerStatement_PDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.ledger.Create(ctx, "u", TransactionInput{Type: "income", Category: "Sales", Amount: dec("10"), Date: "2024-06-01"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	pdf, err := f.ledger.Statement(ctx, "u", "2024-01-01", "2024-12-31")
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
	if _, err := f.ledger.Statement(ctx, "u", "2024-12-31", "2024-01-01"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("inverted range: %v", err)
	}
}
