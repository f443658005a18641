package metrics

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBStatsCollector collects database connection statistics
type DBStatsCollector struct {
	pgxPool *pgxpool.Pool
	sqlxDB  *sql.DB
	logger  *slog.Logger
	stopCh  chan struct{}
}

// NewDBStatsCollector creates a new database stats collector
func NewDBStatsCollector(pgxPool *pgxpool.Pool, sqlxDB *sql.DB, logger *slog.Logger) *DBStatsCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBStatsCollector{
		pgxPool: pgxPool,
		sqlxDB:  sqlxDB,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting database statistics at regular intervals
func (c *DBStatsCollector) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()

	c.logger.Info("database stats collector started", "interval", interval)
}

// Stop stops the database stats collector
func (c *DBStatsCollector) Stop() {
	close(c.stopCh)
}

// collect gathers database statistics and updates Prometheus metrics.
// The pgx pool carries the auth repositories; the sqlx handle carries the
// document and gallery repositories. Their stats are summed.
func (c *DBStatsCollector) collect() {
	var open, inUse, idle float64

	if c.pgxPool != nil {
		stat := c.pgxPool.Stat()
		open += float64(stat.TotalConns())
		inUse += float64(stat.AcquiredConns())
		idle += float64(stat.IdleConns())
	}

	if c.sqlxDB != nil {
		stats := c.sqlxDB.Stats()
		open += float64(stats.OpenConnections)
		inUse += float64(stats.InUse)
		idle += float64(stats.Idle)
	}

	DBConnectionsOpen.Set(open)
	DBConnectionsInUse.Set(inUse)
	DBConnectionsIdle.Set(idle)
}
