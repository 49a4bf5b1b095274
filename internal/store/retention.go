package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// purgeChunkSize bounds each DELETE so retention never holds long row locks
// against live ingest.
const purgeChunkSize = 10000

// RetentionStore deletes records past the retention horizon.
type RetentionStore struct {
	Base
	retention time.Duration
}

// NewRetentionStore creates a RetentionStore keeping records for the given
// number of days.
func NewRetentionStore(base Base, retentionDays int) *RetentionStore {
	return &RetentionStore{
		Base:      base,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// PurgeExpired deletes records ingested before the retention cutoff, in
// chunks. Returns the total rows removed.
func (s *RetentionStore) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)

	var total int64

	for {
		ctx, cancel := withTimeout(ctx)

		tag, err := s.Pool.Exec(ctx,
			`DELETE FROM log_records WHERE ctid IN (
				SELECT ctid FROM log_records WHERE ingested_at < $1 LIMIT $2)`,
			cutoff, purgeChunkSize)

		cancel()

		if err != nil {
			return total, fmt.Errorf("purging expired records: %w", err)
		}

		total += tag.RowsAffected()

		if tag.RowsAffected() < purgeChunkSize {
			return total, nil
		}
	}
}

// Run purges on the given interval until ctx is canceled. Failures are logged
// and retried on the next tick.
func (s *RetentionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.Log.WithError(err).Warn("retention purge failed")

				continue
			}

			if n > 0 {
				s.Log.WithFields(logrus.Fields{"rows": n}).Info("retention purge completed")
			}
		}
	}
}
