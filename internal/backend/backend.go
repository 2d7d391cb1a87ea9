// Package backend turns configuration into a ready store and event
// publisher.
package backend

import (
	"fmt"

	"finance-tracker/internal/config"
	"finance-tracker/internal/events"
	"finance-tracker/internal/log"
	"finance-tracker/internal/storage"
	"finance-tracker/internal/storage/memory"
	"finance-tracker/internal/storage/postgres"
)

// Result bundles what the server needs. Cleanup releases everything and is
// safe to call once.
type Result struct {
	Store     storage.Store
	Publisher events.Publisher
	Cleanup   func() error
}

// Open builds the store for cfg.DataBackend and, when AMQP is configured,
// an event publisher. A broker that cannot be reached is logged and
// replaced by a no-op publisher.
func Open(cfg *config.Config, logger *log.Logger) (*Result, error) {
	logger = logger.WithComponent(log.ComponentBackend)

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Initialized storage backend", "backend", cfg.DataBackend)

	var pub events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP publisher, continuing without events", log.FieldError, err.Error())
		} else {
			logger.Info("Initialized AMQP publisher", "exchange", cfg.AMQPExchange)
			pub = amqpPub
		}
	}

	return &Result{
		Store:     store,
		Publisher: pub,
		Cleanup: func() error {
			pubErr := pub.Close()
			if err := store.Close(); err != nil {
				return err
			}
			return pubErr
		},
	}, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		db, err := storage.NewDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return db, nil
	case config.BackendPostgres:
		st, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}
