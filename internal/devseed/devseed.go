// Package devseed populates a development database with a demo shop, its
// staff and a board of work orders.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tallerhub/tallerhub/internal/data"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
)

// Tenants creates shops.
type Tenants interface {
	Create(ctx context.Context, in data.TenantInput) (string, error)
}

// Assignments reads and writes role assignments.
type Assignments interface {
	GetByUserID(ctx context.Context, userID string) (*domainauth.Assignment, error)
	Upsert(ctx context.Context, a domainauth.Assignment) error
}

// Orders creates work orders.
type Orders interface {
	Create(ctx context.Context, in data.WorkOrderInput) (*kanban.WorkOrder, error)
}

// Services bundles the repositories used for seeding.
type Services struct {
	Tenants     Tenants
	Assignments Assignments
	Orders      Orders
}

// NewServices builds seeding repositories over db.
func NewServices(db *sql.DB) Services {
	return Services{
		Tenants:     data.NewTenantRepo(db),
		Assignments: data.NewRoleAssignmentRepo(db),
		Orders:      data.NewWorkOrderRepo(db),
	}
}

// Options control what is seeded.
type Options struct {
	// OwnerID is the user made shop_admin of the demo shop, normally the dev
	// auth identity.
	OwnerID string
	// TrialDays is the remaining trial length of the demo shop.
	TrialDays int
	Now       func() time.Time
}

// staffSeed is an additional user with a fixed role.
type staffSeed struct {
	userID string
	role   domainauth.Role
	scoped bool
}

func defaultStaff() []staffSeed {
	return []staffSeed{
		{userID: "dev-mecanico", role: domainauth.RoleShopWorker, scoped: true},
		{userID: "dev-aseguradora", role: domainauth.RoleInsurer},
		{userID: "dev-super", role: domainauth.RoleSuperAdmin},
	}
}

func defaultOrders() []data.WorkOrderInput {
	return []data.WorkOrderInput{
		{Number: 1001, Plate: "ABC-123", Customer: "María López", Summary: "Cambio de pastillas de freno", Status: kanban.StatusReception},
		{Number: 1002, Plate: "XYZ-987", Customer: "Jorge Ruiz", Summary: "Ruido en suspensión delantera", Status: kanban.StatusDiagnosis},
		{Number: 1003, Plate: "JKL-456", Customer: "Aseguradora Sur", Summary: "Reparación de parachoques", Status: kanban.StatusInRepair},
		{Number: 1004, Plate: "MNO-321", Customer: "Lucía Fernández", Summary: "Revisión de 60.000 km", Status: kanban.StatusQualityCheck},
		{Number: 1005, Plate: "PQR-654", Customer: "Carlos Díaz", Summary: "Alineación y balanceo", Status: kanban.StatusReady},
		{Number: 1006, Plate: "STU-852", Customer: "Ana Torres", Summary: "Cambio de aceite", Status: kanban.StatusDelivered},
	}
}

// Run seeds the demo shop once. When OwnerID already belongs to a shop the
// existing shop is kept and only missing staff assignments are written.
func Run(ctx context.Context, svcs Services, opts Options, logger *slog.Logger) error {
	if opts.OwnerID == "" {
		return errors.New("devseed: owner id is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	tenantID, created, err := ensureTenant(ctx, svcs, opts, now())
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "demo shop ready", "tenant_id", tenantID, "created", created)

	failures := 0
	for _, s := range defaultStaff() {
		a := domainauth.Assignment{UserID: s.userID, Role: s.role.StoredName()}
		if s.scoped {
			a.TenantID = &tenantID
		}
		if err := svcs.Assignments.Upsert(ctx, a); err != nil {
			logger.ErrorContext(ctx, "failed to assign role", "user_id", s.userID, "role", s.role, "error", err)
			failures++
		}
	}

	if created {
		for _, in := range defaultOrders() {
			in.TenantID = tenantID
			if _, err := svcs.Orders.Create(ctx, in); err != nil {
				logger.ErrorContext(ctx, "failed to create work order", "numero", in.Number, "error", err)
				failures++
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func ensureTenant(ctx context.Context, svcs Services, opts Options, now time.Time) (string, bool, error) {
	existing, err := svcs.Assignments.GetByUserID(ctx, opts.OwnerID)
	switch {
	case err == nil && existing.TenantID != nil:
		return *existing.TenantID, false, nil
	case err != nil && !errors.Is(err, data.ErrRoleAssignmentNotFound):
		return "", false, fmt.Errorf("read owner assignment: %w", err)
	}

	days := opts.TrialDays
	if days < 0 {
		days = 0
	}
	start := now.UTC()
	end := start.Add(time.Duration(days) * 24 * time.Hour)
	tenantID, err := svcs.Tenants.Create(ctx, data.TenantInput{
		Name:       "Taller Demo",
		Status:     subscription.StatusTrial,
		TrialStart: &start,
		TrialEnd:   &end,
	})
	if err != nil {
		return "", false, err
	}

	if err := svcs.Assignments.Upsert(ctx, domainauth.Assignment{
		UserID:   opts.OwnerID,
		Role:     domainauth.RoleShopAdmin.StoredName(),
		TenantID: &tenantID,
	}); err != nil {
		return "", false, fmt.Errorf("assign owner: %w", err)
	}
	return tenantID, true, nil
}
