// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"onion-detect/internal/models"
)

const (
	historyTable = "detection_history"
	statsTable   = "app_stats"

	MaxListLimit = 200
)

// Storage is the detection history store. The pgx pool is safe for
// concurrent use, so concurrent detections append without extra locking.
type Storage struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.NewStorage"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	storage := &Storage{pool: pool, db: db}

	if err := storage.ensureSchemaCompatibility(ctx); err != nil {
		storage.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return storage, nil
}

func (s *Storage) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ensureSchemaCompatibility adds columns missing from history tables that
// were created before user_agent and processing_time were tracked.
func (s *Storage) ensureSchemaCompatibility(ctx context.Context) error {
	const op = "storage.ensureSchemaCompatibility"

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM information_schema.columns
		 WHERE table_name = $1 AND column_name IN ('user_agent', 'processing_time')`, historyTable).Scan(&count)
	if err != nil {
		return fmt.Errorf("%s: failed to check schema: %w", op, err)
	}
	if count == 2 {
		return nil
	}

	table := pq.QuoteIdentifier(historyTable)
	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		ALTER TABLE %[1]s ADD COLUMN IF NOT EXISTS user_agent TEXT;
		ALTER TABLE %[1]s ADD COLUMN IF NOT EXISTS processing_time DOUBLE PRECISION;
	`, table))
	if err != nil {
		return fmt.Errorf("%s: failed to add columns: %w", op, err)
	}
	return nil
}

// SaveDetection appends rec and fills in its ID. A zero Timestamp is left to
// the column default.
func (s *Storage) SaveDetection(ctx context.Context, rec *models.HistoryRecord) error {
	const op = "storage.SaveDetection"

	var ts *time.Time
	if !rec.Timestamp.IsZero() {
		ts = &rec.Timestamp
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO detection_history (timestamp, disease, confidence, image_hash, user_agent, ip_address, processing_time)
		 VALUES (COALESCE($1::timestamptz, now()), $2, $3, $4, $5, $6, $7)
		 RETURNING id, timestamp`,
		ts, rec.Disease, rec.Confidence, rec.ImageHash, rec.UserAgent, rec.IPAddress, rec.ProcessingTime,
	).Scan(&rec.ID, &rec.Timestamp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListDetections returns up to limit records, newest first.
func (s *Storage) ListDetections(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	const op = "storage.ListDetections"

	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, timestamp, disease, confidence,
		 COALESCE(image_hash, '') AS image_hash,
		 COALESCE(user_agent, '') AS user_agent,
		 COALESCE(ip_address, '') AS ip_address,
		 COALESCE(processing_time, 0) AS processing_time
		 FROM detection_history ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.HistoryRecord])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

func (s *Storage) Summary(ctx context.Context) (*models.Summary, error) {
	const op = "storage.Summary"

	sum := &models.Summary{DiseaseCounts: make(map[string]int64)}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0) FROM detection_history`,
	).Scan(&sum.TotalDetections, &sum.AvgConfidence)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.pool.Query(ctx, `SELECT disease, COUNT(*) FROM detection_history GROUP BY disease`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var disease string
		var n int64
		if err := rows.Scan(&disease, &n); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sum.DiseaseCounts[disease] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}

// RefreshDailyStats recomputes the app_stats row for the UTC day containing
// day from detection_history.
func (s *Storage) RefreshDailyStats(ctx context.Context, day time.Time) error {
	const op = "storage.RefreshDailyStats"

	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	query := fmt.Sprintf(`
		WITH day AS (
			SELECT disease, confidence, ip_address FROM %[1]s
			WHERE timestamp >= $1 AND timestamp < $2
		)
		INSERT INTO %[2]s (date, total_detections, unique_users, avg_confidence, most_common_disease)
		SELECT $3::date,
			(SELECT COUNT(*) FROM day),
			(SELECT COUNT(DISTINCT ip_address) FROM day),
			COALESCE((SELECT AVG(confidence) FROM day), 0),
			(SELECT disease FROM day GROUP BY disease ORDER BY COUNT(*) DESC, disease LIMIT 1)
		ON CONFLICT (date) DO UPDATE SET
			total_detections = EXCLUDED.total_detections,
			unique_users = EXCLUDED.unique_users,
			avg_confidence = EXCLUDED.avg_confidence,
			most_common_disease = EXCLUDED.most_common_disease`,
		pq.QuoteIdentifier(historyTable), pq.QuoteIdentifier(statsTable))

	if _, err := s.pool.Exec(ctx, query, start, end, start); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListDailyStats returns the most recent days of aggregates, newest first.
func (s *Storage) ListDailyStats(ctx context.Context, days int) ([]models.DailyStats, error) {
	const op = "storage.ListDailyStats"

	if days <= 0 {
		days = 30
	}
	rows, err := s.pool.Query(ctx,
		`SELECT date, total_detections, unique_users, avg_confidence,
		 COALESCE(most_common_disease, '') AS most_common_disease
		 FROM app_stats ORDER BY date DESC LIMIT $1`, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.DailyStats])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
