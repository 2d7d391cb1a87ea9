package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"

	"github.com/shopspring/decimal"
)

// UncategorizedLabel groups expenses saved without a category.
const UncategorizedLabel = "Uncategorized"

// CategoryTotal is the expense total for one category.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// MonthTotal is income and expense for one calendar month.
type MonthTotal struct {
	Month   string          `json:"month"` // YYYY-MM
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type Summary struct {
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
	ByCategory   []CategoryTotal `json:"byCategory"`
	Monthly      []MonthTotal    `json:"monthly"`
}

// Period narrows a summary to one year or one month. The zero value means
// all time; Month is only honoured together with Year.
type Period struct {
	Year  int
	Month time.Month
}

func (p Period) contains(t time.Time) bool {
	if p.Year == 0 {
		return true
	}
	if t.Year() != p.Year {
		return false
	}
	return p.Month == 0 || t.Month() == p.Month
}

type SummaryService struct {
	store storage.Store
}

func NewSummaryService(store storage.Store) *SummaryService {
	return &SummaryService{store: store}
}

// Summary aggregates the user's transactions within period.
func (s *SummaryService) Summary(ctx context.Context, userID int64, period Period) (*Summary, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return Summarize(txs, period), nil
}

// Summarize is the pure aggregation behind Summary.
func Summarize(txs []models.Transaction, period Period) *Summary {
	sum := &Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		ByCategory:   []CategoryTotal{},
		Monthly:      []MonthTotal{},
	}

	byCategory := map[string]*CategoryTotal{}
	byMonth := map[string]*MonthTotal{}

	for _, t := range txs {
		if !period.contains(t.Date) {
			continue
		}

		key := t.Date.UTC().Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthTotal{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			byMonth[key] = m
		}

		switch t.Type {
		case models.TypeIncome:
			sum.TotalIncome = sum.TotalIncome.Add(t.Amount)
			m.Income = m.Income.Add(t.Amount)
		case models.TypeExpense:
			sum.TotalExpense = sum.TotalExpense.Add(t.Amount)
			m.Expense = m.Expense.Add(t.Amount)

			name := t.Category
			if name == "" {
				name = UncategorizedLabel
			}
			c, ok := byCategory[name]
			if !ok {
				c = &CategoryTotal{Category: name, Total: decimal.Zero}
				byCategory[name] = c
			}
			c.Total = c.Total.Add(t.Amount)
			c.Count++
		}
	}

	sum.Balance = sum.TotalIncome.Sub(sum.TotalExpense)

	for _, c := range byCategory {
		if sum.TotalExpense.IsPositive() {
			c.Percentage, _ = c.Total.Div(sum.TotalExpense).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}
		sum.ByCategory = append(sum.ByCategory, *c)
	}
	slices.SortFunc(sum.ByCategory, func(a, b CategoryTotal) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	for _, m := range byMonth {
		sum.Monthly = append(sum.Monthly, *m)
	}
	slices.SortFunc(sum.Monthly, func(a, b MonthTotal) int {
		return cmp.Compare(a.Month, b.Month)
	})

	return sum
}
