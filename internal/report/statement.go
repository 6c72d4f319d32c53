// Package report renders bookkeeping statements as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// Statement is the input of a PDF ledger statement.
type Statement struct {
	Owner       string
	From        string // YYYY-MM-DD, empty for "beginning"
	To          string // YYYY-MM-DD, empty for "today"
	GeneratedAt time.Time
	Entries     []domain.Transaction
}

// Totals sums income and expense entries.
func (s Statement) Totals() (income, expense, net decimal.Decimal) {
	for _, e := range s.Entries {
		switch e.Type {
		case domain.TxIncome:
			income = income.Add(e.Amount)
		case domain.TxExpense:
			expense = expense.Add(e.Amount)
		}
	}
	return income, expense, income.Sub(expense)
}

// Amount formats d with thousands separators and two decimals, e.g.
// "PHP 1,250.50". The core PDF fonts have no peso glyph.
func Amount(d decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	return "PHP " + p.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

var (
	colWidths = []float64{26, 22, 42, 62, 38}
	headers   = []string{"Date", "Type", "Category", "Description", "Amount"}
)

// Render writes the statement as a PDF to w.
func Render(w io.Writer, st Statement) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Harvest Hub statement", true)
	pdf.SetAuthor("Harvest Hub", true)
	if !st.GeneratedAt.IsZero() {
		pdf.SetCreationDate(st.GeneratedAt)
	}
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Financial Statement", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if st.Owner != "" {
		pdf.CellFormat(0, 6, tr("Account: "+st.Owner), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Period: "+period(st.From, st.To), "", 1, "L", false, 0, "")
	if !st.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 6, "Generated: "+st.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(226, 240, 217)
	for i, h := range headers {
		align := "L"
		if i == len(headers)-1 {
			align = "R"
		}
		pdf.CellFormat(colWidths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	if len(st.Entries) == 0 {
		pdf.CellFormat(sum(colWidths), 8, "No transactions in this period.", "1", 1, "C", false, 0, "")
	}
	for _, e := range st.Entries {
		cells := []string{e.Date, e.Type, tr(clip(e.Category, 24)), tr(clip(e.Description, 38)), Amount(e.Amount)}
		for i, c := range cells {
			align := "L"
			if i == len(cells)-1 {
				align = "R"
			}
			pdf.CellFormat(colWidths[i], 7, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	income, expense, net := st.Totals()
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	label := sum(colWidths[:4])
	for _, row := range [][2]string{
		{"Total income", Amount(income)},
		{"Total expense", Amount(expense)},
		{"Net", Amount(net)},
	} {
		pdf.CellFormat(label, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 7, row[1], "", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render statement: %w", err)
	}
	return pdf.Output(w)
}

// RenderBytes renders the statement into memory.
func RenderBytes(st Statement) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func period(from, to string) string {
	if from == "" {
		from = "beginning"
	}
	if to == "" {
		to = "today"
	}
	return from + " to " + to
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func sum(xs []float64) float64 {
	var t float64
	for _, x := range xs {
		t += x
	}
	return t
}
