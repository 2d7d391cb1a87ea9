package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date accepts either a calendar day (2024-01-15) or an RFC3339 timestamp.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// ParseDate parses s with any of the accepted layouts and returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return NewValidationError("date", "Date must be a string")
	}
	if s == "" {
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return NewValidationError("date", "Invalid date format, expected YYYY-MM-DD or RFC3339")
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the registration rules.
func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.TrimSpace(r.Username)
	switch {
	case r.Name == "":
		return NewValidationError("name", "Name is required")
	case len(r.Username) < 3:
		return NewValidationError("username", "Username must be at least 3 characters")
	case !strings.Contains(r.Username, "@"):
		return NewValidationError("username", "Username must contain @")
	case len(r.Password) < 6:
		return NewValidationError("password", "Password must be at least 6 characters")
	}
	return nil
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate only checks presence; wrong values are an auth failure, not a
// validation one.
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return NewValidationError("username", "Username and password are required")
	}
	return nil
}

// TransactionInput is the body of POST /api/transactions.
type TransactionInput struct {
	Amount      *decimal.Decimal `json:"amount"`
	Type        TransactionType  `json:"type"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Date        Date             `json:"date"`
}

// MaxAmount is the smallest amount rejected as out of range. Stored amounts
// have at most 12 integer digits and 2 decimals.
var MaxAmount = decimal.New(1, 12)

// maxAmountPlaces bounds the decimal places accepted before rounding to cents.
const maxAmountPlaces = 20

// checkAmountRange runs before any rounding. The exponent tests come first,
// for zero too, so that no arithmetic is done on scales such as 1e20000000.
func checkAmountRange(field, label string, d decimal.Decimal) error {
	if d.Exponent() < -maxAmountPlaces {
		return NewValidationError(field, label+" has too many decimal places")
	}
	if d.Exponent() >= 12 || d.Abs().Round(2).GreaterThanOrEqual(MaxAmount) {
		return NewValidationError(field, label+" must be less than "+MaxAmount.String())
	}
	return nil
}

func validateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return NewValidationError(field, "Amount must be a non-negative number")
	}
	return checkAmountRange(field, "Amount", d)
}

// Validate checks a new transaction.
func (in *TransactionInput) Validate() error {
	if in.Amount == nil {
		return NewValidationError("amount", "Amount is required")
	}
	if err := validateAmount("amount", *in.Amount); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return NewValidationError("type", `Type must be "income" or "expense"`)
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return NewValidationError("description", "Description is required")
	}
	if in.Date.IsZero() {
		return NewValidationError("date", "Date is required")
	}
	in.Category = strings.TrimSpace(in.Category)
	return nil
}

// Transaction builds the record to persist for userID. Validate must have
// passed first.
func (in *TransactionInput) Transaction(userID int64) *Transaction {
	return &Transaction{
		UserID:      userID,
		Amount:      in.Amount.Round(2),
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date.Time,
	}
}

// TransactionPatch is the body of PATCH /api/transactions/{id}. Nil fields
// are left untouched; id and userId cannot be patched.
type TransactionPatch struct {
	Amount      *decimal.Decimal `json:"amount"`
	Type        *TransactionType `json:"type"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Date        *Date            `json:"date"`
}

// Validate applies the create rules to every provided field.
func (p *TransactionPatch) Validate() error {
	if p.Amount != nil {
		if err := validateAmount("amount", *p.Amount); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return NewValidationError("type", `Type must be "income" or "expense"`)
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return NewValidationError("description", "Description is required")
	}
	if p.Date != nil && p.Date.IsZero() {
		return NewValidationError("date", "Date is required")
	}
	return nil
}

// Apply merges the provided fields into t.
func (p *TransactionPatch) Apply(t *Transaction) {
	if p.Amount != nil {
		t.Amount = p.Amount.Round(2)
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		t.Date = p.Date.Time
	}
}

// BudgetGoalInput is the body of POST /api/budget-goals. A currentAmount
// sent by the client is ignored: new goals always start at zero.
type BudgetGoalInput struct {
	Name         string           `json:"name"`
	TargetAmount *decimal.Decimal `json:"targetAmount"`
	Category     string           `json:"category"`
	Description  string           `json:"description"`
	TargetDate   Date             `json:"targetDate"`
}

func validateTarget(d decimal.Decimal) error {
	if !d.IsPositive() {
		return NewValidationError("targetAmount", "Target amount must be greater than 0")
	}
	if err := checkAmountRange("targetAmount", "Target amount", d); err != nil {
		return err
	}
	// 0.001 would be stored as 0.00.
	if d.Round(2).IsZero() {
		return NewValidationError("targetAmount", "Target amount must be greater than 0")
	}
	return nil
}

func validateGoalCategory(c string) error {
	if !IsGoalCategory(c) {
		return NewValidationError("category", "Category must be one of: "+strings.Join(GoalCategories, ", "))
	}
	return nil
}

// Validate checks a new budget goal.
func (in *BudgetGoalInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return NewValidationError("name", "Name is required")
	}
	if in.TargetAmount == nil {
		return NewValidationError("targetAmount", "Target amount is required")
	}
	if err := validateTarget(*in.TargetAmount); err != nil {
		return err
	}
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = DefaultGoalCategory
	}
	if err := validateGoalCategory(in.Category); err != nil {
		return err
	}
	if in.TargetDate.IsZero() {
		return NewValidationError("targetDate", "Target date is required")
	}
	in.Description = strings.TrimSpace(in.Description)
	return nil
}

// BudgetGoal builds the record to persist for userID with CurrentAmount 0.
func (in *BudgetGoalInput) BudgetGoal(userID int64) *BudgetGoal {
	return &BudgetGoal{
		UserID:        userID,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount.Round(2),
		CurrentAmount: decimal.Zero,
		Category:      in.Category,
		Description:   in.Description,
		TargetDate:    in.TargetDate.Time,
	}
}

// BudgetGoalPatch is the body of PATCH /api/budget-goals/{id}.
type BudgetGoalPatch struct {
	Name          *string          `json:"name"`
	TargetAmount  *decimal.Decimal `json:"targetAmount"`
	CurrentAmount *decimal.Decimal `json:"currentAmount"`
	Category      *string          `json:"category"`
	Description   *string          `json:"description"`
	TargetDate    *Date            `json:"targetDate"`
}

// Validate checks every provided field.
func (p *BudgetGoalPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return NewValidationError("name", "Name is required")
	}
	if p.TargetAmount != nil {
		if err := validateTarget(*p.TargetAmount); err != nil {
			return err
		}
	}
	if p.CurrentAmount != nil {
		if err := validateAmount("currentAmount", *p.CurrentAmount); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := validateGoalCategory(strings.TrimSpace(*p.Category)); err != nil {
			return err
		}
	}
	if p.TargetDate != nil && p.TargetDate.IsZero() {
		return NewValidationError("targetDate", "Target date is required")
	}
	return nil
}

// Apply merges the provided fields into g.
func (p *BudgetGoalPatch) Apply(g *BudgetGoal) {
	if p.Name != nil {
		g.Name = strings.TrimSpace(*p.Name)
	}
	if p.TargetAmount != nil {
		g.TargetAmount = p.TargetAmount.Round(2)
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = p.CurrentAmount.Round(2)
	}
	if p.Category != nil {
		g.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		g.Description = strings.TrimSpace(*p.Description)
	}
	if p.TargetDate != nil {
		g.TargetDate = p.TargetDate.Time
	}
}
