// Package auth owns accounts and server-side sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"finance-tracker/internal/log"
	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"
)

// DefaultSessionDuration is how long a fresh session lives.
const DefaultSessionDuration = 30 * 24 * time.Hour

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming burns one bcrypt comparison so an unknown username costs
// about as much as a wrong password.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("not-a-real-password")
	})
	CheckPassword(password, dummyHash)
}

type Service struct {
	store           storage.Store
	sessionDuration time.Duration
	logger          *log.Logger
}

// NewService returns an auth service. A non-positive duration means
// DefaultSessionDuration.
func NewService(store storage.Store, sessionDuration time.Duration, logger *log.Logger) *Service {
	if sessionDuration <= 0 {
		sessionDuration = DefaultSessionDuration
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{store: store, sessionDuration: sessionDuration, logger: logger.WithComponent(log.ComponentAuth)}
}

// SessionDuration is the lifetime given to new and renewed sessions.
func (s *Service) SessionDuration() time.Duration {
	return s.sessionDuration
}

// CreateUser validates req and stores the account without logging it in.
func (s *Service) CreateUser(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, storage.ErrUsernameTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("look up username: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, req.Name, req.Username, hash)
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Register creates the account and starts a session for it.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.Session, error) {
	user, err := s.CreateUser(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, user.ID, log.FieldOperation, log.OpRegister)
	return user, sess, nil
}

// Login checks credentials and starts a session. Any mismatch is reported
// as models.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			equalizeTiming(req.Password)
			return nil, nil, models.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}
	if !CheckPassword(req.Password, user.PasswordHash) {
		return nil, nil, models.ErrInvalidCredentials
	}

	sess, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID, log.FieldOperation, log.OpLogin)
	return user, sess, nil
}

func (s *Service) startSession(ctx context.Context, userID int64) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	expiresAt := time.Now().Add(s.sessionDuration)
	if err := s.store.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &models.Session{Token: token, UserID: userID, ExpiresAt: expiresAt}, nil
}

// Logout ends the session. Unknown or empty tokens are fine.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CurrentUser resolves a session token.
func (s *Service) CurrentUser(ctx context.Context, token string) (*storage.SessionInfo, error) {
	if token == "" {
		return nil, models.ErrUnauthenticated
	}
	info, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return info, nil
}

// Renew implements rolling sessions: once a session is in the second half
// of its lifetime it gets a full new lifetime. It returns the new expiry
// and true when the session was extended.
func (s *Service) Renew(ctx context.Context, token string, info *storage.SessionInfo) (time.Time, bool, error) {
	now := time.Now()
	if info.ExpiresAt.Sub(now) >= s.sessionDuration/2 {
		return info.ExpiresAt, false, nil
	}

	expiresAt := now.Add(s.sessionDuration)
	if err := s.store.RenewSession(ctx, token, expiresAt); err != nil {
		return info.ExpiresAt, false, fmt.Errorf("renew session: %w", err)
	}
	return expiresAt, true, nil
}

// CleanExpired drops expired sessions and reports how many went.
func (s *Service) CleanExpired(ctx context.Context) (int64, error) {
	n, err := s.store.CleanExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("clean expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Expired sessions removed", "count", n, log.FieldOperation, log.OpCleanup)
	}
	return n, nil
}

// EnsureUser creates the account only when the store has no users yet.
// It returns true when a user was created.
func (s *Service) EnsureUser(ctx context.Context, req models.RegisterRequest) (bool, error) {
	n, err := s.store.UserCount(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}
