// Package storage defines the persistence contract shared by every backend
// and provides the SQLite implementation.
//
// Every transaction and budget goal query is scoped by user id. A record
// owned by somebody else is reported exactly like a missing one, with
// ErrNotFound. Stores assign ids and creation timestamps themselves.
package storage

import (
	"context"
	"errors"
	"time"

	"finance-tracker/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the requesting user.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned by CreateUser for a duplicate username.
	ErrUsernameTaken = errors.New("username already exists")
)

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// Store is the persistence capability set the services depend on.
type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, name, username, passwordHash string) (*models.User, error)
	UserCount(ctx context.Context) (int, error)

	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	// GetSession returns the session only while it is unexpired.
	GetSession(ctx context.Context, token string) (*SessionInfo, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
	CleanExpiredSessions(ctx context.Context) (int64, error)

	ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id int64) error

	ListBudgetGoals(ctx context.Context, userID int64) ([]models.BudgetGoal, error)
	GetBudgetGoal(ctx context.Context, userID, id int64) (*models.BudgetGoal, error)
	CreateBudgetGoal(ctx context.Context, g *models.BudgetGoal) error
	UpdateBudgetGoal(ctx context.Context, g *models.BudgetGoal) error
	DeleteBudgetGoal(ctx context.Context, userID, id int64) error

	Ping(ctx context.Context) error
	Close() error
}
