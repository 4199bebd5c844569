package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tallerhub/tallerhub/internal/data/pgxutil"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
)

// WorkOrderRepo provides the kanban board's view of ordenes.
type WorkOrderRepo struct {
	DB *sql.DB
}

// NewWorkOrderRepo creates a new WorkOrderRepo.
func NewWorkOrderRepo(db *sql.DB) *WorkOrderRepo {
	return &WorkOrderRepo{DB: db}
}

const workOrderColumns = `id::text, taller_id::text, numero, placa, cliente, descripcion, estado, posicion, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkOrder(row rowScanner) (*kanban.WorkOrder, error) {
	var (
		o      kanban.WorkOrder
		status string
	)
	if err := row.Scan(&o.ID, &o.TenantID, &o.Number, &o.Plate, &o.Customer, &o.Summary, &status, &o.Position, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = kanban.Status(status)
	return &o, nil
}

// ListByTenant returns every order of a tenant ordered by column position.
func (r *WorkOrderRepo) ListByTenant(ctx context.Context, tenantID string) ([]kanban.WorkOrder, error) {
	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, ErrTenantNotFound
	}
	query := `SELECT ` + workOrderColumns + ` FROM ordenes WHERE taller_id = $1 ORDER BY estado, posicion, numero`

	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	var out []kanban.WorkOrder
	for rows.Next() {
		o, err := scanWorkOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work orders: %w", err)
	}
	return out, nil
}

// GetByID returns one order scoped to its tenant.
func (r *WorkOrderRepo) GetByID(ctx context.Context, tenantID, orderID string) (*kanban.WorkOrder, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrWorkOrderNotFound
	}
	query := `SELECT ` + workOrderColumns + ` FROM ordenes WHERE id = $1 AND taller_id = $2`

	o, err := scanWorkOrder(r.DB.QueryRowContext(ctx, query, orderID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get work order: %w", err)
	}
	return o, nil
}

// Move relocates an order to req.To at req.Position, shifting the cards below it.
// The update only applies while the stored status equals req.From; otherwise the
// current row is returned together with ErrWorkOrderConflict.
func (r *WorkOrderRepo) Move(ctx context.Context, req kanban.MoveRequest) (*kanban.WorkOrder, error) {
	var moved *kanban.WorkOrder
	err := pgxutil.WithSQLTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		const shift = `
			UPDATE ordenes
			SET posicion = posicion + 1
			WHERE taller_id = $1 AND estado = $2 AND posicion >= $3 AND id <> $4`
		if _, err := tx.ExecContext(ctx, shift, req.TenantID, string(req.To), req.Position, req.OrderID); err != nil {
			return fmt.Errorf("shift column: %w", err)
		}

		update := `
			UPDATE ordenes
			SET estado = $1, posicion = $2, updated_at = now()
			WHERE id = $3 AND taller_id = $4 AND estado = $5
			RETURNING ` + workOrderColumns
		o, err := scanWorkOrder(tx.QueryRowContext(ctx, update,
			string(req.To), req.Position, req.OrderID, req.TenantID, string(req.From)))
		if err != nil {
			return err
		}
		moved = o
		return nil
	})
	if err == nil {
		return moved, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("move work order: %w", err)
	}

	current, getErr := r.GetByID(ctx, req.TenantID, req.OrderID)
	if getErr != nil {
		return nil, getErr
	}
	return current, ErrWorkOrderConflict
}

// WorkOrderInput describes a new order. Used by provisioning tools and tests.
type WorkOrderInput struct {
	TenantID string
	Number   int64
	Plate    string
	Customer string
	Summary  string
	Status   kanban.Status
}

// Create inserts an order at the bottom of its column.
func (r *WorkOrderRepo) Create(ctx context.Context, in WorkOrderInput) (*kanban.WorkOrder, error) {
	status := in.Status
	if status == "" {
		status = kanban.StatusReception
	}
	query := `
		INSERT INTO ordenes (taller_id, numero, placa, cliente, descripcion, estado, posicion)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(posicion) + 1, 0) FROM ordenes WHERE taller_id = $1 AND estado = $6))
		RETURNING ` + workOrderColumns

	o, err := scanWorkOrder(r.DB.QueryRowContext(ctx, query,
		in.TenantID, in.Number, in.Plate, in.Customer, in.Summary, string(status)))
	if err != nil {
		return nil, fmt.Errorf("create work order: %w", err)
	}
	return o, nil
}
