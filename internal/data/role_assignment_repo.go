package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tallerhub/tallerhub/internal/domain/auth"
)

// RoleAssignmentRepo reads role assignments (usuarios_roles).
type RoleAssignmentRepo struct {
	DB *sql.DB
}

// NewRoleAssignmentRepo creates a new RoleAssignmentRepo.
func NewRoleAssignmentRepo(db *sql.DB) *RoleAssignmentRepo {
	return &RoleAssignmentRepo{DB: db}
}

// GetByUserID returns the assignment for userID or ErrRoleAssignmentNotFound.
func (r *RoleAssignmentRepo) GetByUserID(ctx context.Context, userID string) (*auth.Assignment, error) {
	const query = `SELECT user_id, rol, taller_id::text FROM usuarios_roles WHERE user_id = $1`

	var (
		a      auth.Assignment
		tenant sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&a.UserID, &a.Role, &tenant)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get role assignment: %w", err)
	}
	if tenant.Valid {
		a.TenantID = &tenant.String
	}
	return &a, nil
}

// Upsert creates or replaces an assignment. Used by provisioning tools and tests.
func (r *RoleAssignmentRepo) Upsert(ctx context.Context, a auth.Assignment) error {
	const query = `
		INSERT INTO usuarios_roles (user_id, rol, taller_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET rol = EXCLUDED.rol, taller_id = EXCLUDED.taller_id`

	var tenant any
	if a.TenantID != nil {
		tenant = *a.TenantID
	}
	if _, err := r.DB.ExecContext(ctx, query, a.UserID, a.Role, tenant); err != nil {
		return fmt.Errorf("upsert role assignment: %w", err)
	}
	return nil
}
