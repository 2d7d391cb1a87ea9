package services

import (
	"context"
	"errors"
	"fmt"

	"finance-tracker/internal/events"
	"finance-tracker/internal/log"
	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"
)

type TransactionService struct {
	store  storage.Store
	pub    events.Publisher
	logger *log.Logger
}

func NewTransactionService(store storage.Store, pub events.Publisher, logger *log.Logger) *TransactionService {
	return &TransactionService{store: store, pub: pub, logger: orDiscard(logger).WithComponent(log.ComponentTransaction)}
}

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64) ([]models.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, wrapStore("get transaction", err)
	}
	return t, nil
}

func (s *TransactionService) Create(ctx context.Context, userID int64, in models.TransactionInput) (*models.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	t := in.Transaction(userID)
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.DebugContext(ctx, "Transaction created", log.FieldUserID, userID, log.FieldEntityID, t.ID)
	notify(ctx, s.pub, s.logger, events.New(events.TransactionCreated, userID, t.ID, t))
	return t, nil
}

// Update merges the patch into the stored record.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, p models.TransactionPatch) (*models.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, wrapStore("get transaction", err)
	}

	p.Apply(t)
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return nil, wrapStore("update transaction", err)
	}

	notify(ctx, s.pub, s.logger, events.New(events.TransactionUpdated, userID, t.ID, t))
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return wrapStore("delete transaction", err)
	}
	notify(ctx, s.pub, s.logger, events.New(events.TransactionDeleted, userID, id, nil))
	return nil
}

// wrapStore adds context to unexpected errors but hands ErrNotFound back
// untouched so callers can match it directly.
func wrapStore(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
