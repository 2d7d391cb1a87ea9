// Package events publishes domain events after successful mutations.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Event types. They double as AMQP routing keys.
const (
	TransactionCreated = "transaction.created"
	TransactionUpdated = "transaction.updated"
	TransactionDeleted = "transaction.deleted"
	BudgetGoalCreated  = "budget_goal.created"
	BudgetGoalUpdated  = "budget_goal.updated"
	BudgetGoalDeleted  = "budget_goal.deleted"
)

// Event is one domain change. Payload is the entity after the change and is
// omitted for deletions.
type Event struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"userId"`
	EntityID   int64     `json:"entityId"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload,omitempty"`
}

// New stamps an event with the current time.
func New(typ string, userID, entityID int64, payload any) Event {
	return Event{Type: typ, UserID: userID, EntityID: entityID, OccurredAt: time.Now().UTC(), Payload: payload}
}

// ToJSON encodes the event for the wire.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory for assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what has been published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the type of every recorded event in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
