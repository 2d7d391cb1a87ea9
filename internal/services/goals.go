package services

import (
	"context"
	"fmt"

	"finance-tracker/internal/events"
	"finance-tracker/internal/log"
	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"
)

type BudgetGoalService struct {
	store  storage.Store
	pub    events.Publisher
	logger *log.Logger
}

func NewBudgetGoalService(store storage.Store, pub events.Publisher, logger *log.Logger) *BudgetGoalService {
	return &BudgetGoalService{store: store, pub: pub, logger: orDiscard(logger).WithComponent(log.ComponentBudgetGoal)}
}

// List returns the user's goals, nearest target date first.
func (s *BudgetGoalService) List(ctx context.Context, userID int64) ([]models.BudgetGoal, error) {
	goals, err := s.store.ListBudgetGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budget goals: %w", err)
	}
	return goals, nil
}

// Create stores a new goal. It always starts with nothing saved.
func (s *BudgetGoalService) Create(ctx context.Context, userID int64, in models.BudgetGoalInput) (*models.BudgetGoal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	g := in.BudgetGoal(userID)
	if err := s.store.CreateBudgetGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("create budget goal: %w", err)
	}

	notify(ctx, s.pub, s.logger, events.New(events.BudgetGoalCreated, userID, g.ID, g))
	return g, nil
}

// Update merges the patch, usually a new cumulative currentAmount.
func (s *BudgetGoalService) Update(ctx context.Context, userID, id int64, p models.BudgetGoalPatch) (*models.BudgetGoal, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g, err := s.store.GetBudgetGoal(ctx, userID, id)
	if err != nil {
		return nil, wrapStore("get budget goal", err)
	}

	p.Apply(g)
	if err := s.store.UpdateBudgetGoal(ctx, g); err != nil {
		return nil, wrapStore("update budget goal", err)
	}

	notify(ctx, s.pub, s.logger, events.New(events.BudgetGoalUpdated, userID, g.ID, g))
	return g, nil
}

func (s *BudgetGoalService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteBudgetGoal(ctx, userID, id); err != nil {
		return wrapStore("delete budget goal", err)
	}
	notify(ctx, s.pub, s.logger, events.New(events.BudgetGoalDeleted, userID, id, nil))
	return nil
}
