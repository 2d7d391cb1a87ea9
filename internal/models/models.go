package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers (49.99), not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// GoalCategories is the fixed set of budget goal categories.
var GoalCategories = []string{
	"Emergency Fund",
	"Retirement",
	"House",
	"Car",
	"Vacation",
	"Education",
	"Other",
}

// DefaultGoalCategory is used when a goal is created without a category.
const DefaultGoalCategory = "Other"

// IsGoalCategory reports whether c belongs to GoalCategories.
func IsGoalCategory(c string) bool {
	for _, gc := range GoalCategories {
		if gc == c {
			return true
		}
	}
	return false
}

// User represents a user account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Transaction represents a single income or expense owned by one user.
type Transaction struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// BudgetGoal is a savings target owned by one user.
type BudgetGoal struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"userId"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	TargetDate    time.Time       `json:"targetDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Progress returns CurrentAmount/TargetAmount. It is derived on every
// read and never stored.
func (g BudgetGoal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	ratio, _ := g.CurrentAmount.Div(g.TargetAmount).Float64()
	return ratio
}

// MarshalJSON adds the derived progress field.
func (g BudgetGoal) MarshalJSON() ([]byte, error) {
	type goal BudgetGoal
	return json.Marshal(struct {
		goal
		Progress float64 `json:"progress"`
	}{goal(g), g.Progress()})
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
