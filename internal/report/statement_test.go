package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anidigital/harvest-hub/internal/domain"
)

func TestStatement_Totals(t *testing.T) {
	st := Statement{Entries: []domain.Transaction{
		{Type: domain.TxIncome, Amount: decimal.RequireFromString("1000.50")},
		{Type: domain.TxExpense, Amount: decimal.RequireFromString("250.25")},
		{Type: domain.TxIncome, Amount: decimal.RequireFromString("49.50")},
	}}
	in, out, net := st.Totals()
	if in.String() != "1050" || out.String() != "250.25" || net.String() != "799.75" {
		t.Fatalf("totals = %s %s %s", in, out, net)
	}
}

func TestAmount_GroupsThousands(t *testing.T) {
	cases := map[string]string{
		"0":         "PHP 0.00",
		"1250.5":    "PHP 1,250.50",
		"1234567.8": "PHP 1,234,567.80",
		"-99.999":   "PHP -100.00",
	}
	for in, want := range cases {
		if got := Amount(decimal.RequireFromString(in)); got != want {
			t.Errorf("Amount(%s) = %q; want %q", in, got, want)
		}
	}
}

func TestRenderBytes_ProducesPDF(t *testing.T) {
	st := Statement{
		Owner:       "Maria Santos",
		From:        "2024-01-01",
		To:          "2024-12-31",
		GeneratedAt: time.Date(2024, 12, 31, 8, 0, 0, 0, time.UTC),
		Entries: []domain.Transaction{
			{Date: "2024-03-01", Type: domain.TxIncome, Category: "Produce Sales", Amount: decimal.NewFromInt(500), Description: "Sold 5 kg of Tomatoes"},
			{Date: "2024-03-02", Type: domain.TxExpense, Category: "Fertilizer", Amount: decimal.NewFromInt(120), Description: "A very long description that will certainly need to be clipped in the table"},
		},
	}
	out, err := RenderBytes(st)
	if err != nil {
		t.Fatalf("RenderBytes: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out[:8])
	}

	empty, err := RenderBytes(Statement{})
	if err != nil || !bytes.HasPrefix(empty, []byte("%PDF-")) {
		t.Fatalf("empty statement should still render: %v", err)
	}
}
