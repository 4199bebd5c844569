package ports

import (
	"context"
	"time"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
)

// RoleAssignmentReader looks up the role-assignment record keyed by user id.
type RoleAssignmentReader interface {
	GetByUserID(ctx context.Context, userID string) (*domainauth.Assignment, error)
}

// TenantStore reads and updates the subscription fields of a tenant (shop).
type TenantStore interface {
	GetSubscription(ctx context.Context, tenantID string) (*subscription.Record, error)
	// MarkExpired moves a trial tenant to expired. It reports whether a row changed.
	MarkExpired(ctx context.Context, tenantID string) (bool, error)
	Activate(ctx context.Context, tenantID string) error
	ListTrialsEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// WorkOrderStore backs the kanban board.
type WorkOrderStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]kanban.WorkOrder, error)
	Move(ctx context.Context, req kanban.MoveRequest) (*kanban.WorkOrder, error)
	GetByID(ctx context.Context, tenantID, orderID string) (*kanban.WorkOrder, error)
}

// ChangePublisher announces a write so live shells re-resolve. Backends whose
// storage emits notifications on its own may discard events.
type ChangePublisher interface {
	Publish(ctx context.Context, ev change.Event) error
}
