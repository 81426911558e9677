package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"plancore/api/internal/models"
)

var (
	ErrRoleNotFound = errors.New("role not found")
	ErrSystemRole   = errors.New("system role is protected")
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// ActivePermissionCodesByRole returns the active permission codes currently
// linked to an active role. Called once per authenticated request so that
// permission changes are visible on the very next call.
func (r *RoleRepository) ActivePermissionCodesByRole(ctx context.Context, roleCode string) ([]string, error) {
	const query = `
		SELECT p.code
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN roles ro ON ro.id = rp.role_id
		WHERE ro.code = $1 AND ro.is_active = TRUE AND p.is_active = TRUE
		ORDER BY p.code
	`
	rows, err := r.pool.Query(ctx, query, roleCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func scanRole(row pgx.Row) (models.Role, error) {
	var role models.Role
	if err := row.Scan(
		&role.ID,
		&role.Code,
		&role.Name,
		&role.Description,
		&role.IsSystem,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (models.Role, error) {
	const query = `
		SELECT id, code, name, description, is_system, is_active, created_at, updated_at
		FROM roles WHERE id = $1
	`
	return scanRole(r.pool.QueryRow(ctx, query, id))
}

func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	const query = `
		SELECT id, code, name, description, is_system, is_active, created_at, updated_at
		FROM roles ORDER BY code
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) Create(ctx context.Context, role models.Role) error {
	const query = `
		INSERT INTO roles (id, code, name, description, is_system, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		role.ID,
		role.Code,
		role.Name,
		role.Description,
		role.IsSystem,
		role.IsActive,
	)
	return err
}

// Update renames and toggles a role. System roles keep their code: the code
// is a stable machine key that guards and seeds refer to.
func (r *RoleRepository) Update(ctx context.Context, role models.Role) error {
	existing, err := r.GetByID(ctx, role.ID)
	if err != nil {
		return err
	}
	if existing.IsSystem && existing.Code != role.Code {
		return fmt.Errorf("%w: code cannot change", ErrSystemRole)
	}

	const query = `
		UPDATE roles
		SET code = $2, name = $3, description = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, role.ID, role.Code, role.Name, role.Description, role.IsActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// Delete removes a role and cascades its permission associations. System
// roles are refused.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return fmt.Errorf("%w: cannot delete", ErrSystemRole)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReplacePermissions swaps a role's permission set wholesale: delete all
// associations, insert the selected ones, in one transaction.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if _, err := r.GetByID(ctx, roleID); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, permissionID := range permissionIDs {
		const insert = `
			INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		`
		if _, err := tx.Exec(ctx, insert, roleID, permissionID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *RoleRepository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	const query = `
		SELECT id, code, name, module, is_active, created_at
		FROM permissions ORDER BY module, code
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Module, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

func (r *RoleRepository) PermissionsByRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	const query = `
		SELECT p.id, p.code, p.name, p.module, p.is_active, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.module, p.code
	`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Module, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}
