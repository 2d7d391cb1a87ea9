package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr string
	}{
		{"valid", RegisterRequest{Name: "Ann", Username: "ann@example.com", Password: "secret1"}, ""},
		{"missing name", RegisterRequest{Username: "ann@example.com", Password: "secret1"}, "Name is required"},
		{"short username", RegisterRequest{Name: "Ann", Username: "a@", Password: "secret1"}, "Username must be at least 3 characters"},
		{"username without at", RegisterRequest{Name: "Ann", Username: "annexample", Password: "secret1"}, "Username must contain @"},
		{"short password", RegisterRequest{Name: "Ann", Username: "ann@example.com", Password: "12345"}, "Password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
			assert.Equal(t, tt.wantErr, verr.Message)
		})
	}
}

func TestTransactionInputValidate(t *testing.T) {
	day := Date{Time: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name    string
		in      TransactionInput
		wantErr string
	}{
		{"valid expense", TransactionInput{Amount: dec("49.99"), Type: TypeExpense, Description: "Groceries", Date: day}, ""},
		{"zero amount allowed", TransactionInput{Amount: dec("0"), Type: TypeIncome, Description: "Gift", Date: day}, ""},
		{"missing amount", TransactionInput{Type: TypeExpense, Description: "Groceries", Date: day}, "amount"},
		{"negative amount", TransactionInput{Amount: dec("-1"), Type: TypeExpense, Description: "Groceries", Date: day}, "amount"},
		{"bad type", TransactionInput{Amount: dec("1"), Type: "transfer", Description: "Groceries", Date: day}, "type"},
		{"blank description", TransactionInput{Amount: dec("1"), Type: TypeExpense, Description: "   ", Date: day}, "description"},
		{"missing date", TransactionInput{Amount: dec("1"), Type: TypeExpense, Description: "Groceries"}, "date"},
		{"largest amount", TransactionInput{Amount: dec("999999999999.99"), Type: TypeIncome, Description: "Salary", Date: day}, ""},
		{"amount at limit", TransactionInput{Amount: dec("1000000000000"), Type: TypeIncome, Description: "Salary", Date: day}, "amount"},
		{"amount rounding up to limit", TransactionInput{Amount: dec("999999999999.995"), Type: TypeIncome, Description: "Salary", Date: day}, "amount"},
		{"huge exponent", TransactionInput{Amount: dec("1e20000000"), Type: TypeIncome, Description: "Salary", Date: day}, "amount"},
		{"zero with huge exponent", TransactionInput{Amount: dec("0e20000000"), Type: TypeIncome, Description: "Salary", Date: day}, "amount"},
		{"too many decimal places", TransactionInput{Amount: dec("1e-20000000"), Type: TypeIncome, Description: "Salary", Date: day}, "amount"},
		{"float noise is rounded", TransactionInput{Amount: dec("0.30000000000000004"), Type: TypeIncome, Description: "Salary", Date: day}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantErr, verr.Field)
		})
	}
}

func TestTransactionPatchApply(t *testing.T) {
	tx := Transaction{ID: 7, UserID: 3, Amount: decimal.RequireFromString("10"), Type: TypeExpense, Description: "Lunch"}
	desc := "Dinner"
	p := TransactionPatch{Amount: dec("12.345"), Description: &desc}

	require.NoError(t, p.Validate())
	p.Apply(&tx)

	assert.Equal(t, int64(7), tx.ID)
	assert.Equal(t, int64(3), tx.UserID)
	assert.Equal(t, "12.35", tx.Amount.StringFixed(2))
	assert.Equal(t, "Dinner", tx.Description)
	assert.Equal(t, TypeExpense, tx.Type)
}

func TestBudgetGoalInputDefaultsAndZeroCurrent(t *testing.T) {
	in := BudgetGoalInput{
		Name:         "Car",
		TargetAmount: dec("5000"),
		TargetDate:   Date{Time: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, in.Validate())
	assert.Equal(t, DefaultGoalCategory, in.Category)

	g := in.BudgetGoal(1)
	assert.True(t, g.CurrentAmount.IsZero())
	assert.Equal(t, 0.0, g.Progress())
}

func TestBudgetGoalValidateRejectsUnknownCategory(t *testing.T) {
	in := BudgetGoalInput{Name: "Boat", TargetAmount: dec("10"), Category: "Boat", TargetDate: Date{Time: time.Now()}}
	err := in.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "category", verr.Field)
}

func TestAmountBoundsRejectBeforeRounding(t *testing.T) {
	day := Date{Time: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}

	var in TransactionInput
	require.NoError(t, json.Unmarshal([]byte(`{"amount":1e20000000,"type":"income","description":"x","date":"2024-01-15"}`), &in))

	start := time.Now()
	err := in.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
	assert.Equal(t, "Amount must be less than 1000000000000", verr.Message)
	assert.Less(t, time.Since(start), time.Second)

	p := TransactionPatch{Amount: dec("1e13")}
	assert.Error(t, p.Validate())

	g := BudgetGoalPatch{CurrentAmount: dec("5e15")}
	assert.Error(t, g.Validate())

	ok := TransactionInput{Amount: dec("999999999999.99"), Type: TypeExpense, Description: "x", Date: day}
	require.NoError(t, ok.Validate())
	assert.Equal(t, "999999999999.99", ok.Transaction(1).Amount.StringFixed(2))
}

func TestBudgetGoalTargetBounds(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		wantErr string
	}{
		{"smallest cent", "0.01", ""},
		{"rounds to zero", "0.001", "Target amount must be greater than 0"},
		{"at limit", "1000000000000", "Target amount must be less than 1000000000000"},
		{"huge exponent", "1e500", "Target amount must be less than 1000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := BudgetGoalInput{Name: "Car", TargetAmount: dec(tt.target), TargetDate: Date{Time: time.Now()}}
			err := in.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "targetAmount", verr.Field)
			assert.Equal(t, tt.wantErr, verr.Message)
		})
	}
}

func TestBudgetGoalPatchRejectsNegativeCurrent(t *testing.T) {
	p := BudgetGoalPatch{CurrentAmount: dec("-5")}
	assert.Error(t, p.Validate())
}

func TestBudgetGoalJSONIncludesProgress(t *testing.T) {
	g := BudgetGoal{
		ID:            1,
		Name:          "Car",
		TargetAmount:  decimal.RequireFromString("5000"),
		CurrentAmount: decimal.RequireFromString("500"),
		Category:      "Car",
	}

	b, err := json.Marshal(g)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.InDelta(t, 0.10, out["progress"], 1e-9)
	assert.Equal(t, 500.0, out["currentAmount"])
	assert.Equal(t, 5000.0, out["targetAmount"])
}

func TestDateUnmarshal(t *testing.T) {
	var body struct {
		Date Date `json:"date"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-15"}`), &body))
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), body.Date.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-15T10:30:00+02:00"}`), &body))
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), body.Date.Time)

	err := json.Unmarshal([]byte(`{"date":"15/01/2024"}`), &body)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestUserJSONOmitsPassword(t *testing.T) {
	b, err := json.Marshal(User{ID: 1, Name: "Ann", Username: "ann@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "password")
}
