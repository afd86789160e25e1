// Package storage implements the task store adapters: MongoDB, Azure Tables,
// an in-memory store and a Redis read cache that can wrap any of them.
package storage

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"taskmanager/config"
)

// Open connects the backend selected by cfg.Driver. The returned close
// function releases the underlying connection.
func Open(ctx context.Context, cfg config.Store, logger *log.Logger) (Backend, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	switch cfg.Driver {
	case config.DriverMongo:
		store, client, err := ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo at %s: %w", cfg.MongoURI(), err)
		}
		logger.WithFields(log.Fields{"database": cfg.Database, "collection": cfg.Collection}).Info("connected to MongoDB")
		return store, client.Disconnect, nil
	case config.DriverTables:
		store, err := NewTableStore(cfg.ConnectionString, cfg.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("table store: %w", err)
		}
		logger.WithField("table", cfg.Table).Info("using Azure Table storage")
		return store, noop, nil
	case config.DriverMemory:
		logger.Warn("using in-memory task store; data is lost on restart")
		return NewMemoryStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
