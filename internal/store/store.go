// Package store implements model.SubscriptionStore on SQLite, PostgreSQL and
// process memory.
package store

import (
	"context"
	"fmt"

	"github.com/amishk599/upwatch/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store for driver, connected to dsn.
func Open(ctx context.Context, driver, dsn string) (model.SubscriptionStore, error) {
	switch driver {
	case DriverSQLite, "":
		s, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
