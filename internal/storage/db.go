package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finance-tracker/internal/models"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB is the SQLite implementation of Store.
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// NewDB opens a database connection and runs migrations. path may be
// ":memory:" for a throwaway database.
func NewDB(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers anyway, and an in-memory database only
	// exists on the connection that created it.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateUser creates a new user with the given name, username and password hash.
func (db *DB) CreateUser(ctx context.Context, name, username, passwordHash string) (*models.User, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (name, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		name, username, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUser(ctx, id)
}

const userColumns = "id, name, username, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

// GetSession checks if a session token is valid and returns session details.
func (db *DB) GetSession(ctx context.Context, token string) (*SessionInfo, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.username, u.password_hash, u.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().UTC())

	var u models.User
	var info SessionInfo
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.CreatedAt, &info.LastActivity, &info.ExpiresAt); err != nil {
		return nil, notFound(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	info.User = &u
	info.LastActivity = info.LastActivity.UTC()
	info.ExpiresAt = info.ExpiresAt.UTC()
	return &info, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now().UTC(), expiresAt.UTC(), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = "id, user_id, amount, type, category, description, date, created_at"

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Category, &t.Description, &t.Date, &t.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	t.Date, t.CreatedAt = t.Date.UTC(), t.CreatedAt.UTC()
	return &t, nil
}

// ListTransactions retrieves a user's transactions ordered by date descending.
func (db *DB) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// GetTransaction retrieves a single transaction owned by userID.
func (db *DB) GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	return scanTransaction(db.conn.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND user_id = ?", id, userID))
}

// CreateTransaction inserts t and fills in its ID and CreatedAt.
func (db *DB) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO transactions (user_id, amount, type, category, description, date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		t.UserID, t.Amount, t.Type, t.Category, t.Description, t.Date.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	t.Date = t.Date.UTC()
	t.CreatedAt = now
	return nil
}

// UpdateTransaction overwrites the mutable fields of t. Ownership is part of
// the WHERE clause.
func (db *DB) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	result, err := db.conn.ExecContext(ctx,
		"UPDATE transactions SET amount = ?, type = ?, category = ?, description = ?, date = ? WHERE id = ? AND user_id = ?",
		t.Amount, t.Type, t.Category, t.Description, t.Date.UTC(), t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireAffected(result)
}

// DeleteTransaction removes a transaction owned by userID.
func (db *DB) DeleteTransaction(ctx context.Context, userID, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(result)
}

const goalColumns = "id, user_id, name, target_amount, current_amount, category, description, target_date, created_at"

func scanGoal(row interface{ Scan(...any) error }) (*models.BudgetGoal, error) {
	var g models.BudgetGoal
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.Category, &g.Description, &g.TargetDate, &g.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	g.TargetDate, g.CreatedAt = g.TargetDate.UTC(), g.CreatedAt.UTC()
	return &g, nil
}

// ListBudgetGoals retrieves a user's goals, nearest target date first.
func (db *DB) ListBudgetGoals(ctx context.Context, userID int64) ([]models.BudgetGoal, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM budget_goals WHERE user_id = ? ORDER BY target_date ASC, id ASC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []models.BudgetGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// GetBudgetGoal retrieves a single goal owned by userID.
func (db *DB) GetBudgetGoal(ctx context.Context, userID, id int64) (*models.BudgetGoal, error) {
	return scanGoal(db.conn.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM budget_goals WHERE id = ? AND user_id = ?", id, userID))
}

// CreateBudgetGoal inserts g and fills in its ID and CreatedAt.
func (db *DB) CreateBudgetGoal(ctx context.Context, g *models.BudgetGoal) error {
	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO budget_goals (user_id, name, target_amount, current_amount, category, description, target_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Category, g.Description, g.TargetDate.UTC(), now,
	)
	if err != nil {
		return fmt.Errorf("insert budget goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = id
	g.TargetDate = g.TargetDate.UTC()
	g.CreatedAt = now
	return nil
}

// UpdateBudgetGoal overwrites the mutable fields of g.
func (db *DB) UpdateBudgetGoal(ctx context.Context, g *models.BudgetGoal) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE budget_goals SET name = ?, target_amount = ?, current_amount = ?, category = ?, description = ?, target_date = ?
		WHERE id = ? AND user_id = ?`,
		g.Name, g.TargetAmount, g.CurrentAmount, g.Category, g.Description, g.TargetDate.UTC(), g.ID, g.UserID,
	)
	if err != nil {
		return fmt.Errorf("update budget goal: %w", err)
	}
	return requireAffected(result)
}

// DeleteBudgetGoal removes a goal owned by userID.
func (db *DB) DeleteBudgetGoal(ctx context.Context, userID, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM budget_goals WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete budget goal: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
