package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tallerhub/tallerhub/internal/domain/subscription"
)

// TenantRepo reads and updates subscription fields on talleres.
type TenantRepo struct {
	DB *sql.DB
}

// NewTenantRepo creates a new TenantRepo.
func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{DB: db}
}

// GetSubscription loads the subscription state of a tenant.
func (r *TenantRepo) GetSubscription(ctx context.Context, tenantID string) (*subscription.Record, error) {
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, ErrTenantNotFound
	}

	const query = `
		SELECT id::text, estado_suscripcion, fecha_inicio_prueba, fecha_fin_prueba
		FROM talleres
		WHERE id = $1`

	var (
		rec        subscription.Record
		stored     string
		start, end sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, tenantID).Scan(&rec.TenantID, &stored, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant subscription: %w", err)
	}

	rec.Status, err = subscription.ParseStored(stored)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, err)
	}
	if start.Valid {
		rec.Trial.Start = &start.Time
	}
	if end.Valid {
		rec.Trial.End = &end.Time
	}
	return &rec, nil
}

// MarkExpired moves a trial tenant to expired. Tenants in any other state are left alone.
func (r *TenantRepo) MarkExpired(ctx context.Context, tenantID string) (bool, error) {
	const query = `
		UPDATE talleres
		SET estado_suscripcion = 'expirado', updated_at = now()
		WHERE id = $1 AND estado_suscripcion = 'prueba'`

	res, err := r.DB.ExecContext(ctx, query, tenantID)
	if err != nil {
		return false, fmt.Errorf("expire tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// Activate marks a tenant as paying.
func (r *TenantRepo) Activate(ctx context.Context, tenantID string) error {
	if _, err := uuid.Parse(tenantID); err != nil {
		return ErrTenantNotFound
	}

	const query = `
		UPDATE talleres
		SET estado_suscripcion = 'activo', updated_at = now()
		WHERE id = $1`

	res, err := r.DB.ExecContext(ctx, query, tenantID)
	if err != nil {
		return fmt.Errorf("activate tenant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// ListTrialsEndedBefore returns ids of trial tenants whose window closed before cutoff,
// oldest first.
func (r *TenantRepo) ListTrialsEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id::text
		FROM talleres
		WHERE estado_suscripcion = 'prueba' AND fecha_fin_prueba < $1
		ORDER BY fecha_fin_prueba
		LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list ended trials: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ended trials: %w", err)
	}
	return ids, nil
}

// TenantInput describes a tenant created by signup.
type TenantInput struct {
	Name       string
	Status     subscription.Status
	TrialStart *time.Time
	TrialEnd   *time.Time
}

// Create inserts a tenant and returns its id. Used by provisioning tools and tests.
func (r *TenantRepo) Create(ctx context.Context, in TenantInput) (string, error) {
	const query = `
		INSERT INTO talleres (nombre, estado_suscripcion, fecha_inicio_prueba, fecha_fin_prueba)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text`

	status := in.Status
	if status == "" {
		status = subscription.StatusTrial
	}
	var id string
	if err := r.DB.QueryRowContext(ctx, query, in.Name, status.StoredName(), in.TrialStart, in.TrialEnd).Scan(&id); err != nil {
		return "", fmt.Errorf("create tenant: %w", err)
	}
	return id, nil
}
