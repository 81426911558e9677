package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"plancore/api/internal/models"
)

type LoginLogRepository struct {
	pool *pgxpool.Pool
}

func NewLoginLogRepository(pool *pgxpool.Pool) *LoginLogRepository {
	return &LoginLogRepository{pool: pool}
}

// Insert appends one audit record. Rows are never updated or deleted by the
// auth path; only the retention job removes them.
func (r *LoginLogRepository) Insert(ctx context.Context, entry models.LoginLog) error {
	const query = `
		INSERT INTO login_logs (
			id, user_id, username, login_type, ip_address, user_agent, failed_reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Username,
		entry.LoginType,
		entry.IPAddress,
		entry.UserAgent,
		entry.FailedReason,
		entry.CreatedAt,
	)
	return err
}

func (r *LoginLogRepository) List(ctx context.Context, limit int, offset int) ([]models.LoginLog, error) {
	const query = `
		SELECT id, user_id, username, login_type, ip_address, user_agent, failed_reason, created_at
		FROM login_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLoginLogs(rows)
}

// ListOlderThan returns records past the retention cutoff, oldest first, for
// the archive job.
func (r *LoginLogRepository) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.LoginLog, error) {
	const query = `
		SELECT id, user_id, username, login_type, ip_address, user_agent, failed_reason, created_at
		FROM login_logs
		WHERE created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLoginLogs(rows)
}

func (r *LoginLogRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	const query = `DELETE FROM login_logs WHERE id = ANY($1)`
	_, err := r.pool.Exec(ctx, query, ids)
	return err
}

func scanLoginLogs(rows pgx.Rows) ([]models.LoginLog, error) {
	var entries []models.LoginLog
	for rows.Next() {
		var entry models.LoginLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Username,
			&entry.LoginType,
			&entry.IPAddress,
			&entry.UserAgent,
			&entry.FailedReason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
