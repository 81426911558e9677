package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"plancore/api/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `
	u.id, u.username, u.email, u.full_name, u.password_hash, u.role_id,
	u.is_active, u.is_locked, u.failed_login_count,
	u.last_login_at, u.password_changed_at, u.created_at, u.updated_at,
	r.id, r.code, r.name, r.description, r.is_system, r.is_active
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.RoleID,
		&user.IsActive,
		&user.IsLocked,
		&user.FailedLoginCount,
		&user.LastLoginAt,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Role.ID,
		&user.Role.Code,
		&user.Role.Name,
		&user.Role.Description,
		&user.Role.IsSystem,
		&user.Role.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// FindByLogin resolves a user by username or email, with the role joined in.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.username = $1 OR u.email = $1
	`
	return scanUser(r.pool.QueryRow(ctx, query, login))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) List(ctx context.Context, limit int, offset int) ([]models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users u
		JOIN roles r ON r.id = u.role_id
		ORDER BY u.username
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// RecordLoginFailure increments the failure counter and flips the lock flag
// once the counter reaches threshold, as one atomic row update. It returns
// the post-update counter and lock state.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, threshold int) (int, bool, error) {
	const query = `
		UPDATE users
		SET failed_login_count = failed_login_count + 1,
		    is_locked = is_locked OR (failed_login_count + 1 >= $2),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_count, is_locked
	`
	var (
		count  int
		locked bool
	)
	if err := r.pool.QueryRow(ctx, query, id, threshold).Scan(&count, &locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, ErrUserNotFound
		}
		return 0, false, err
	}
	return count, locked, nil
}

// RecordLoginSuccess resets the failure counter and stamps last_login_at.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET failed_login_count = 0, last_login_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Unlock clears the lock flag and the failure counter. Administrative action
// is the only way a lock is lifted.
func (r *UserRepository) Unlock(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET is_locked = FALSE, failed_login_count = 0, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `
		UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
