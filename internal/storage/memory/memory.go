// Package memory is a process-local Store used for development and tests.
// Nothing survives a restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"
)

type session struct {
	userID       int64
	expiresAt    time.Time
	lastActivity time.Time
}

// Store keeps every record in maps guarded by a single mutex.
type Store struct {
	mu sync.RWMutex

	nextUserID int64
	nextTxID   int64
	nextGoalID int64

	users        map[int64]models.User
	usersByName  map[string]int64
	sessions     map[string]session
	transactions map[int64]models.Transaction
	goals        map[int64]models.BudgetGoal
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[int64]models.User),
		usersByName:  make(map[string]int64),
		sessions:     make(map[string]session),
		transactions: make(map[int64]models.Transaction),
		goals:        make(map[int64]models.BudgetGoal),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, name, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByName[username]; ok {
		return nil, storage.ErrUsernameTaken
	}
	s.nextUserID++
	u := models.User{
		ID:           s.nextUserID,
		Name:         name,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = u
	s.usersByName[username] = u.ID
	return &u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

func (s *Store) UserCount(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return storage.ErrNotFound
	}
	s.sessions[token] = session{userID: userID, expiresAt: expiresAt, lastActivity: time.Now()}
	return nil
}

func (s *Store) GetSession(_ context.Context, token string) (*storage.SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok || !sess.expiresAt.After(time.Now()) {
		return nil, storage.ErrNotFound
	}
	u, ok := s.users[sess.userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.SessionInfo{User: &u, LastActivity: sess.lastActivity, ExpiresAt: sess.expiresAt}, nil
}

func (s *Store) RenewSession(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	sess.expiresAt = expiresAt
	sess.lastActivity = time.Now()
	s.sessions[token] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) CleanExpiredSessions(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var n int64
	for token, sess := range s.sessions {
		if !sess.expiresAt.After(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Transaction{}
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

func (s *Store) CreateTransaction(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTxID++
	t.ID = s.nextTxID
	t.Date = t.Date.UTC()
	t.CreatedAt = time.Now().UTC()
	s.transactions[t.ID] = *t
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[t.ID]
	if !ok || cur.UserID != t.UserID {
		return storage.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	t.Date = t.Date.UTC()
	s.transactions[t.ID] = *t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListBudgetGoals(_ context.Context, userID int64) ([]models.BudgetGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.BudgetGoal{}
	for _, g := range s.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b models.BudgetGoal) int {
		if c := a.TargetDate.Compare(b.TargetDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) GetBudgetGoal(_ context.Context, userID, id int64) (*models.BudgetGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return &g, nil
}

func (s *Store) CreateBudgetGoal(_ context.Context, g *models.BudgetGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGoalID++
	g.ID = s.nextGoalID
	g.TargetDate = g.TargetDate.UTC()
	g.CreatedAt = time.Now().UTC()
	s.goals[g.ID] = *g
	return nil
}

func (s *Store) UpdateBudgetGoal(_ context.Context, g *models.BudgetGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.goals[g.ID]
	if !ok || cur.UserID != g.UserID {
		return storage.ErrNotFound
	}
	g.CreatedAt = cur.CreatedAt
	g.TargetDate = g.TargetDate.UTC()
	s.goals[g.ID] = *g
	return nil
}

func (s *Store) DeleteBudgetGoal(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[id]
	if !ok || g.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}
