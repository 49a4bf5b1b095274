// Package store provides focused, single-concern data access stores.
//
// Each store owns one domain (tenants, log records, analytics cache,
// retention) and embeds shared helpers (Pool, logger) via the Base struct.
// Stores never import each other.
package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loglens/loglens/internal/dbpool"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}
