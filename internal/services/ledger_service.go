// Package services – LedgerService
//
// LedgerService is the bookkeeping side of the app: manual income and
// expense entries, the yearly summary behind the finance dashboard
// (monthly totals plus per-category breakdowns) and PDF statements.

package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/report"
	"github.com/anidigital/harvest-hub/internal/repo"
	"github.com/anidigital/harvest-hub/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TransactionInput is a manual ledger entry. An empty Date means today.
type TransactionInput struct {
	Type        string
	Category    string
	Amount      decimal.Decimal
	Description string
	Date        string
}

// MonthTotals is one month of the yearly summary.
type MonthTotals struct {
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// CategoryTotal is the sum of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// FinanceSummary aggregates a user's ledger for one calendar year.
type FinanceSummary struct {
	Year              int             `json:"year"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpense      decimal.Decimal `json:"total_expense"`
	Net               decimal.Decimal `json:"net"`
	Monthly           []MonthTotals   `json:"monthly"`
	IncomeByCategory  []CategoryTotal `json:"income_by_category"`
	ExpenseByCategory []CategoryTotal `json:"expense_by_category"`
}

// LedgerService manages bookkeeping entries.
type LedgerService struct {
	DB *gorm.DB
}

// List returns userID's entries matching f, newest date first.
func (s *LedgerService) List(ctx context.Context, userID string, f repo.TransactionFilter) ([]domain.Transaction, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("from", f.From),
			attribute.String("to", f.To),
		),
	)
	defer span.End()

	if err := validateFilter(f); err != nil {
		return nil, err
	}
	return repo.ListTransactions(ctx, s.DB, userID, f)
}

func validateFilter(f repo.TransactionFilter) error {
	if f.From != "" && !utils.ValidDate(f.From) {
		return ErrInvalidInput
	}
	if f.To != "" && !utils.ValidDate(f.To) {
		return ErrInvalidInput
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return ErrInvalidInput
	}
	switch f.Type {
	case "", domain.TxIncome, domain.TxExpense:
		return nil
	}
	return ErrInvalidInput
}

// Create records a manual entry for userID.
func (s *LedgerService) Create(ctx context.Context, userID string, in TransactionInput) (*domain.Transaction, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	t := &domain.Transaction{
		UserID:      userID,
		Type:        strings.ToLower(strings.TrimSpace(in.Type)),
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount.Round(2),
		Description: strings.TrimSpace(in.Description),
		Date:        strings.TrimSpace(in.Date),
	}
	if t.Date == "" {
		t.Date = utils.Today()
	}
	if (t.Type != domain.TxIncome && t.Type != domain.TxExpense) || t.Category == "" || !t.Amount.IsPositive() || !utils.ValidDate(t.Date) {
		return nil, ErrInvalidInput
	}
	if err := repo.CreateTransaction(ctx, s.DB, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes one of userID's entries.
func (s *LedgerService) Delete(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("transaction.id", id),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if err := repo.DeleteTransaction(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}
	return nil
}

// Summary aggregates userID's entries of year into monthly totals and
// per-category breakdowns. All twelve months are always present.
func (s *LedgerService) Summary(ctx context.Context, userID string, year int) (*FinanceSummary, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Summary",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("year", year),
		),
	)
	defer span.End()

	if year < 1900 || year > 9999 {
		return nil, ErrInvalidInput
	}
	y := strconv.Itoa(year)
	entries, err := repo.ListTransactions(ctx, s.DB, userID, repo.TransactionFilter{From: y + "-01-01", To: y + "-12-31"})
	if err != nil {
		return nil, err
	}
	return summarize(year, entries), nil
}

func summarize(year int, entries []domain.Transaction) *FinanceSummary {
	out := &FinanceSummary{Year: year, Monthly: make([]MonthTotals, 12)}
	for i := range out.Monthly {
		out.Monthly[i].Month = i + 1
	}
	income := map[string]decimal.Decimal{}
	expense := map[string]decimal.Decimal{}

	for _, e := range entries {
		if len(e.Date) < 7 {
			continue
		}
		month, err := strconv.Atoi(e.Date[5:7])
		if err != nil || month < 1 || month > 12 {
			continue
		}
		m := &out.Monthly[month-1]
		switch e.Type {
		case domain.TxIncome:
			m.Income = m.Income.Add(e.Amount)
			out.TotalIncome = out.TotalIncome.Add(e.Amount)
			income[e.Category] = income[e.Category].Add(e.Amount)
		case domain.TxExpense:
			m.Expense = m.Expense.Add(e.Amount)
			out.TotalExpense = out.TotalExpense.Add(e.Amount)
			expense[e.Category] = expense[e.Category].Add(e.Amount)
		}
	}
	out.Net = out.TotalIncome.Sub(out.TotalExpense)
	out.IncomeByCategory = categoryTotals(income)
	out.ExpenseByCategory = categoryTotals(expense)
	return out
}

// categoryTotals sorts by total descending, then name.
func categoryTotals(m map[string]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(m))
	for c, t := range m {
		out = append(out, CategoryTotal{Category: c, Total: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Statement renders userID's entries between from and to (inclusive,
// optional) as a PDF.
func (s *LedgerService) Statement(ctx context.Context, userID, from, to string) ([]byte, error) {
	tr := otel.Tracer("services/LedgerService")
	ctx, span := tr.Start(ctx, "Statement",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
	defer span.End()

	f := repo.TransactionFilter{From: from, To: to}
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	entries, err := repo.ListTransactions(ctx, s.DB, userID, f)
	if err != nil {
		return nil, err
	}

	owner := userID
	if p, err := repo.GetProfile(ctx, s.DB, userID); err == nil && p.FullName != "" {
		owner = p.FullName
	}
	pdf, err := report.RenderBytes(report.Statement{
		Owner:       owner,
		From:        from,
		To:          to,
		GeneratedAt: clock(),
		Entries:     entries,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("pdf.bytes", len(pdf)))
	return pdf, nil
}
