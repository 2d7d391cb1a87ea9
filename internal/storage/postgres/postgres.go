// Package postgres implements storage.Store on PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRow struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Username     string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type sessionRow struct {
	Token        string    `gorm:"primaryKey"`
	UserID       int64     `gorm:"not null;index"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	LastActivity time.Time `gorm:"not null"`
	User         userRow   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (sessionRow) TableName() string { return "sessions" }

type transactionRow struct {
	ID          int64           `gorm:"primaryKey"`
	UserID      int64           `gorm:"not null;index:idx_transactions_user_date,priority:1"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Type        string          `gorm:"type:text;not null"`
	Category    string          `gorm:"type:text;not null;default:''"`
	Description string          `gorm:"type:text;not null"`
	Date        time.Time       `gorm:"not null;index:idx_transactions_user_date,priority:2,sort:desc"`
	CreatedAt   time.Time       `gorm:"not null"`
	User        userRow         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (transactionRow) TableName() string { return "transactions" }

type budgetGoalRow struct {
	ID            int64           `gorm:"primaryKey"`
	UserID        int64           `gorm:"not null;index"`
	Name          string          `gorm:"type:text;not null"`
	TargetAmount  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CurrentAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Category      string          `gorm:"type:text;not null"`
	Description   string          `gorm:"type:text;not null;default:''"`
	TargetDate    time.Time       `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null"`
	User          userRow         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (budgetGoalRow) TableName() string { return "budget_goals" }

// Store is the PostgreSQL-backed storage.Store.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, sizes the pool and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&userRow{}, &sessionRow{}, &transactionRow{}, &budgetGoalRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate postgres schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func (r userRow) model() *models.User {
	return &models.User{ID: r.ID, Name: r.Name, Username: r.Username, PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt.UTC()}
}

func (s *Store) CreateUser(ctx context.Context, name, username, passwordHash string) (*models.User, error) {
	row := userRow{Name: name, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, storage.ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return row.model(), nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (s *Store) UserCount(ctx context.Context) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&userRow{}).Count(&n).Error
	return int(n), err
}

func (s *Store) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	row := sessionRow{Token: token, UserID: userID, ExpiresAt: expiresAt.UTC(), LastActivity: time.Now().UTC()}
	return s.db.WithContext(ctx).Omit("User").Create(&row).Error
}

func (s *Store) GetSession(ctx context.Context, token string) (*storage.SessionInfo, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).
		Joins("User").
		Where("sessions.token = ? AND sessions.expires_at > ?", token, time.Now().UTC()).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &storage.SessionInfo{
		User:         row.User.model(),
		LastActivity: row.LastActivity.UTC(),
		ExpiresAt:    row.ExpiresAt.UTC(),
	}, nil
}

func (s *Store) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("token = ?", token).
		Updates(map[string]any{"expires_at": expiresAt.UTC(), "last_activity": time.Now().UTC()}).Error
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&sessionRow{}).Error
}

func (s *Store) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&sessionRow{})
	return res.RowsAffected, res.Error
}

func toTransactionRow(t *models.Transaction) transactionRow {
	return transactionRow{
		ID:          t.ID,
		UserID:      t.UserID,
		Amount:      t.Amount,
		Type:        string(t.Type),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.UTC(),
		CreatedAt:   t.CreatedAt,
	}
}

func (r transactionRow) model() models.Transaction {
	return models.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Type:        models.TransactionType(r.Type),
		Category:    r.Category,
		Description: r.Description,
		Date:        r.Date.UTC(),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func (s *Store) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	var rows []transactionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	var row transactionRow
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	t := row.model()
	return &t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	t.CreatedAt = time.Now().UTC()
	row := toTransactionRow(t)
	row.ID = 0
	if err := s.db.WithContext(ctx).Omit("User").Create(&row).Error; err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID = row.ID
	t.Date = row.Date
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	res := s.db.WithContext(ctx).Model(&transactionRow{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{
			"amount":      t.Amount,
			"type":        string(t.Type),
			"category":    t.Category,
			"description": t.Description,
			"date":        t.Date.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&transactionRow{})
	if res.Error != nil {
		return fmt.Errorf("delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func toGoalRow(g *models.BudgetGoal) budgetGoalRow {
	return budgetGoalRow{
		ID:            g.ID,
		UserID:        g.UserID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount,
		CurrentAmount: g.CurrentAmount,
		Category:      g.Category,
		Description:   g.Description,
		TargetDate:    g.TargetDate.UTC(),
		CreatedAt:     g.CreatedAt,
	}
}

func (r budgetGoalRow) model() models.BudgetGoal {
	return models.BudgetGoal{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		TargetAmount:  r.TargetAmount,
		CurrentAmount: r.CurrentAmount,
		Category:      r.Category,
		Description:   r.Description,
		TargetDate:    r.TargetDate.UTC(),
		CreatedAt:     r.CreatedAt.UTC(),
	}
}

func (s *Store) ListBudgetGoals(ctx context.Context, userID int64) ([]models.BudgetGoal, error) {
	var rows []budgetGoalRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("target_date ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.BudgetGoal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) GetBudgetGoal(ctx context.Context, userID, id int64) (*models.BudgetGoal, error) {
	var row budgetGoalRow
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	g := row.model()
	return &g, nil
}

func (s *Store) CreateBudgetGoal(ctx context.Context, g *models.BudgetGoal) error {
	g.CreatedAt = time.Now().UTC()
	row := toGoalRow(g)
	row.ID = 0
	if err := s.db.WithContext(ctx).Omit("User").Create(&row).Error; err != nil {
		return fmt.Errorf("insert budget goal: %w", err)
	}
	g.ID = row.ID
	g.TargetDate = row.TargetDate
	return nil
}

func (s *Store) UpdateBudgetGoal(ctx context.Context, g *models.BudgetGoal) error {
	res := s.db.WithContext(ctx).Model(&budgetGoalRow{}).
		Where("id = ? AND user_id = ?", g.ID, g.UserID).
		Updates(map[string]any{
			"name":           g.Name,
			"target_amount":  g.TargetAmount,
			"current_amount": g.CurrentAmount,
			"category":       g.Category,
			"description":    g.Description,
			"target_date":    g.TargetDate.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("update budget goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBudgetGoal(ctx context.Context, userID, id int64) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&budgetGoalRow{})
	if res.Error != nil {
		return fmt.Errorf("delete budget goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
