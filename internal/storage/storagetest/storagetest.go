// Package storagetest holds the behaviour every storage.Store must share.
// Backends embed Suite and supply a factory.
package storagetest

import (
	"context"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Suite runs the conformance checks against a fresh store per test.
type Suite struct {
	suite.Suite

	// NewStore returns an empty store. It is called before every test.
	NewStore func() storage.Store

	Store storage.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore must be set")
	s.Store = s.NewStore()
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.Store != nil {
		s.Store.Close()
	}
}

func (s *Suite) createUser(username string) *models.User {
	u, err := s.Store.CreateUser(s.ctx, "Test User", username, "hash")
	s.Require().NoError(err)
	return u
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Suite) newTransaction(userID int64, amount string, typ models.TransactionType, date time.Time) *models.Transaction {
	t := &models.Transaction{
		UserID:      userID,
		Amount:      decimal.RequireFromString(amount),
		Type:        typ,
		Category:    "Food",
		Description: "Groceries",
		Date:        date,
	}
	s.Require().NoError(s.Store.CreateTransaction(s.ctx, t))
	return t
}

func (s *Suite) newGoal(userID int64, name string, target time.Time) *models.BudgetGoal {
	g := &models.BudgetGoal{
		UserID:        userID,
		Name:          name,
		TargetAmount:  decimal.RequireFromString("5000"),
		CurrentAmount: decimal.Zero,
		Category:      "Car",
		TargetDate:    target,
	}
	s.Require().NoError(s.Store.CreateBudgetGoal(s.ctx, g))
	return g
}

func (s *Suite) TestCreateAndGetUser() {
	u := s.createUser("ann@example.com")
	s.NotZero(u.ID)
	s.Equal("Test User", u.Name)
	s.False(u.CreatedAt.IsZero())

	byID, err := s.Store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("ann@example.com", byID.Username)
	s.Equal("hash", byID.PasswordHash)

	byName, err := s.Store.GetUserByUsername(s.ctx, "ann@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byName.ID)

	n, err := s.Store.UserCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *Suite) TestDuplicateUsername() {
	s.createUser("ann@example.com")
	_, err := s.Store.CreateUser(s.ctx, "Other", "ann@example.com", "hash2")
	s.ErrorIs(err, storage.ErrUsernameTaken)
}

func (s *Suite) TestUnknownUser() {
	_, err := s.Store.GetUser(s.ctx, 999)
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.Store.GetUserByUsername(s.ctx, "nobody@example.com")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestSessionLifecycle() {
	u := s.createUser("ann@example.com")
	expires := time.Now().Add(time.Hour)
	s.Require().NoError(s.Store.CreateSession(s.ctx, "tok-1", u.ID, expires))

	info, err := s.Store.GetSession(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal(u.ID, info.User.ID)
	s.WithinDuration(expires, info.ExpiresAt, time.Second)

	later := time.Now().Add(48 * time.Hour)
	s.Require().NoError(s.Store.RenewSession(s.ctx, "tok-1", later))
	info, err = s.Store.GetSession(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.WithinDuration(later, info.ExpiresAt, time.Second)

	s.Require().NoError(s.Store.DeleteSession(s.ctx, "tok-1"))
	_, err = s.Store.GetSession(s.ctx, "tok-1")
	s.ErrorIs(err, storage.ErrNotFound)

	// Deleting twice is not an error.
	s.NoError(s.Store.DeleteSession(s.ctx, "tok-1"))
}

func (s *Suite) TestExpiredSessionsAreInvisibleAndCleaned() {
	u := s.createUser("ann@example.com")
	s.Require().NoError(s.Store.CreateSession(s.ctx, "old", u.ID, time.Now().Add(-time.Minute)))
	s.Require().NoError(s.Store.CreateSession(s.ctx, "new", u.ID, time.Now().Add(time.Hour)))

	_, err := s.Store.GetSession(s.ctx, "old")
	s.ErrorIs(err, storage.ErrNotFound)

	n, err := s.Store.CleanExpiredSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.Store.GetSession(s.ctx, "new")
	s.NoError(err)
}

func (s *Suite) TestTransactionCRUD() {
	u := s.createUser("ann@example.com")
	t := s.newTransaction(u.ID, "49.99", models.TypeExpense, day(2024, 1, 15))
	s.NotZero(t.ID)
	s.False(t.CreatedAt.IsZero())

	got, err := s.Store.GetTransaction(s.ctx, u.ID, t.ID)
	s.Require().NoError(err)
	s.Equal("49.99", got.Amount.StringFixed(2))
	s.Equal(models.TypeExpense, got.Type)
	s.True(day(2024, 1, 15).Equal(got.Date))

	got.Amount = decimal.RequireFromString("60")
	got.Description = "Weekly shop"
	s.Require().NoError(s.Store.UpdateTransaction(s.ctx, got))

	again, err := s.Store.GetTransaction(s.ctx, u.ID, t.ID)
	s.Require().NoError(err)
	s.Equal("60.00", again.Amount.StringFixed(2))
	s.Equal("Weekly shop", again.Description)

	s.Require().NoError(s.Store.DeleteTransaction(s.ctx, u.ID, t.ID))
	_, err = s.Store.GetTransaction(s.ctx, u.ID, t.ID)
	s.ErrorIs(err, storage.ErrNotFound)
	s.ErrorIs(s.Store.DeleteTransaction(s.ctx, u.ID, t.ID), storage.ErrNotFound)
}

// The largest amount validation admits must survive every backend,
// including the numeric(14,2) columns.
func (s *Suite) TestLargestAmountRoundTrips() {
	largest := models.MaxAmount.Sub(decimal.New(1, -2))
	s.Equal("999999999999.99", largest.StringFixed(2))

	u := s.createUser("ann@example.com")
	t := s.newTransaction(u.ID, largest.String(), models.TypeIncome, day(2024, 1, 15))

	got, err := s.Store.GetTransaction(s.ctx, u.ID, t.ID)
	s.Require().NoError(err)
	s.True(largest.Equal(got.Amount), "got %s", got.Amount)

	g := s.newGoal(u.ID, "Big", day(2030, 1, 1))
	g.TargetAmount = largest
	g.CurrentAmount = largest
	s.Require().NoError(s.Store.UpdateBudgetGoal(s.ctx, g))

	goal, err := s.Store.GetBudgetGoal(s.ctx, u.ID, g.ID)
	s.Require().NoError(err)
	s.True(largest.Equal(goal.TargetAmount), "got %s", goal.TargetAmount)
	s.True(largest.Equal(goal.CurrentAmount), "got %s", goal.CurrentAmount)
	s.InDelta(1.0, goal.Progress(), 1e-9)
}

func (s *Suite) TestTransactionsOrderedByDateDesc() {
	u := s.createUser("ann@example.com")
	s.newTransaction(u.ID, "1", models.TypeExpense, day(2024, 1, 10))
	s.newTransaction(u.ID, "2", models.TypeIncome, day(2024, 3, 1))
	s.newTransaction(u.ID, "3", models.TypeExpense, day(2024, 2, 5))

	list, err := s.Store.ListTransactions(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("2", list[0].Amount.StringFixed(0))
	s.Equal("3", list[1].Amount.StringFixed(0))
	s.Equal("1", list[2].Amount.StringFixed(0))
}

func (s *Suite) TestEmptyListsAreNotNil() {
	u := s.createUser("ann@example.com")

	txs, err := s.Store.ListTransactions(s.ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(txs)
	s.Empty(txs)

	goals, err := s.Store.ListBudgetGoals(s.ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(goals)
	s.Empty(goals)
}

func (s *Suite) TestTransactionsAreIsolatedPerUser() {
	ann := s.createUser("ann@example.com")
	bob := s.createUser("bob@example.com")
	t := s.newTransaction(ann.ID, "10", models.TypeExpense, day(2024, 1, 1))

	list, err := s.Store.ListTransactions(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Empty(list)

	_, err = s.Store.GetTransaction(s.ctx, bob.ID, t.ID)
	s.ErrorIs(err, storage.ErrNotFound)

	stolen := *t
	stolen.UserID = bob.ID
	stolen.Description = "mine now"
	s.ErrorIs(s.Store.UpdateTransaction(s.ctx, &stolen), storage.ErrNotFound)
	s.ErrorIs(s.Store.DeleteTransaction(s.ctx, bob.ID, t.ID), storage.ErrNotFound)

	still, err := s.Store.GetTransaction(s.ctx, ann.ID, t.ID)
	s.Require().NoError(err)
	s.Equal("Groceries", still.Description)
}

func (s *Suite) TestBudgetGoalCRUD() {
	u := s.createUser("ann@example.com")
	g := s.newGoal(u.ID, "Car", day(2024, 12, 31))
	s.NotZero(g.ID)

	got, err := s.Store.GetBudgetGoal(s.ctx, u.ID, g.ID)
	s.Require().NoError(err)
	s.True(got.CurrentAmount.IsZero())
	s.Equal("5000.00", got.TargetAmount.StringFixed(2))
	s.Equal(0.0, got.Progress())

	got.CurrentAmount = decimal.RequireFromString("500")
	s.Require().NoError(s.Store.UpdateBudgetGoal(s.ctx, got))

	again, err := s.Store.GetBudgetGoal(s.ctx, u.ID, g.ID)
	s.Require().NoError(err)
	s.InDelta(0.10, again.Progress(), 1e-9)

	s.Require().NoError(s.Store.DeleteBudgetGoal(s.ctx, u.ID, g.ID))
	_, err = s.Store.GetBudgetGoal(s.ctx, u.ID, g.ID)
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *Suite) TestBudgetGoalsOrderedByTargetDate() {
	u := s.createUser("ann@example.com")
	s.newGoal(u.ID, "House", day(2030, 1, 1))
	s.newGoal(u.ID, "Vacation", day(2025, 6, 1))

	list, err := s.Store.ListBudgetGoals(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Vacation", list[0].Name)
	s.Equal("House", list[1].Name)
}

func (s *Suite) TestBudgetGoalsAreIsolatedPerUser() {
	ann := s.createUser("ann@example.com")
	bob := s.createUser("bob@example.com")
	g := s.newGoal(ann.ID, "Car", day(2024, 12, 31))

	_, err := s.Store.GetBudgetGoal(s.ctx, bob.ID, g.ID)
	s.ErrorIs(err, storage.ErrNotFound)
	s.ErrorIs(s.Store.DeleteBudgetGoal(s.ctx, bob.ID, g.ID), storage.ErrNotFound)

	stolen := *g
	stolen.UserID = bob.ID
	s.ErrorIs(s.Store.UpdateBudgetGoal(s.ctx, &stolen), storage.ErrNotFound)
}

func (s *Suite) TestPing() {
	s.NoError(s.Store.Ping(s.ctx))
}
