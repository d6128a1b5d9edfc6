package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartSoftDeleteCleaner purges, every interval, the resources that were
// soft-deleted more than retention ago. It stops when ctx is done.
func StartSoftDeleteCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				PurgeDeleted(ctx, db, time.Now().Add(-retention), log)
			}
		}
	}()
}

// PurgeDeleted removes the rows soft-deleted before cutoff and returns how
// many were removed. A failing table is logged and skipped.
func PurgeDeleted(ctx context.Context, db *sql.DB, cutoff time.Time, log *zap.Logger) int64 {
	var total int64
	for _, table := range resourceTables {
		res, err := db.ExecContext(ctx, `
            DELETE FROM `+table+`
             WHERE deleted = true
               AND deleted_at < $1
        `, cutoff)
		if err != nil {
			log.Error("failed to clean soft-deleted rows", zap.String("table", table), zap.Error(err))
			continue
		}
		if rows, _ := res.RowsAffected(); rows > 0 {
			log.Info("cleaned soft-deleted rows", zap.String("table", table), zap.Int64("removed", rows))
			total += rows
		}
	}
	return total
}
