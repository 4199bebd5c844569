package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/tallerhub/tallerhub/internal/data"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
	apperrors "github.com/tallerhub/tallerhub/internal/errors"
	"github.com/tallerhub/tallerhub/internal/ports"
)

// KanbanServiceOptions groups dependencies for KanbanService.
type KanbanServiceOptions struct {
	Orders    ports.WorkOrderStore  // Required
	Publisher ports.ChangePublisher // Optional
	Logger    *slog.Logger
}

// KanbanService serves the work-order board of the caller's shop.
type KanbanService struct {
	orders    ports.WorkOrderStore
	publisher ports.ChangePublisher
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewKanbanService constructs a KanbanService.
func NewKanbanService(opts KanbanServiceOptions) (*KanbanService, error) {
	if opts.Orders == nil {
		return nil, errors.New("WorkOrderStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterStructValidation(validateMove, kanban.MoveRequest{})
	return &KanbanService{
		orders:    opts.Orders,
		publisher: opts.Publisher,
		validate:  v,
		logger:    logger.With("component", "kanban_service"),
	}, nil
}

func validateMove(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(kanban.MoveRequest)
	if !ok {
		return
	}
	if req.From != "" && !req.From.Valid() {
		sl.ReportError(req.From, "From", "From", "kanban_status", string(req.From))
	}
	if req.To != "" && !req.To.Valid() {
		sl.ReportError(req.To, "To", "To", "kanban_status", string(req.To))
	}
}

// tenantOf returns the shop the caller works in.
func tenantOf(access domainauth.Access) (string, error) {
	if access.TenantID == nil || *access.TenantID == "" {
		return "", apperrors.Forbidden("no shop assigned to this account")
	}
	return *access.TenantID, nil
}

// Board returns the caller's shop orders grouped by column.
func (s *KanbanService) Board(ctx context.Context, access domainauth.Access) (kanban.Board, error) {
	tenantID, err := tenantOf(access)
	if err != nil {
		return kanban.Board{}, err
	}
	orders, err := s.orders.ListByTenant(ctx, tenantID)
	if err != nil {
		return kanban.Board{}, apperrors.MapDBError(fmt.Errorf("list work orders: %w", err))
	}
	return kanban.BuildBoard(tenantID, orders), nil
}

// Move applies a column change. When the order left the column the caller saw,
// the returned error is a conflict and the order is its current stored state.
func (s *KanbanService) Move(ctx context.Context, access domainauth.Access, req kanban.MoveRequest) (*kanban.WorkOrder, error) {
	tenantID, err := tenantOf(access)
	if err != nil {
		return nil, err
	}
	req.TenantID = tenantID

	if err := s.validate.StructCtx(ctx, req); err != nil {
		return nil, validationError(err)
	}

	order, err := s.orders.Move(ctx, req)
	switch {
	case errors.Is(err, data.ErrWorkOrderConflict):
		s.logger.InfoContext(ctx, "stale kanban move", "order_id", req.OrderID, "from", req.From, "current", statusOf(order))
		return order, apperrors.Wrap(err, apperrors.ErrCodeConflict, "the order was moved by someone else")
	case errors.Is(err, data.ErrWorkOrderNotFound):
		return nil, apperrors.NotFoundf("work order %s not found", req.OrderID)
	case err != nil:
		return nil, apperrors.MapDBError(fmt.Errorf("move work order: %w", err))
	}

	if s.publisher != nil {
		ev := change.Event{Table: change.TableWorkOrders, TenantID: tenantID}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "publish work order change failed", "order_id", req.OrderID, "error", err)
		}
	}
	return order, nil
}

func statusOf(o *kanban.WorkOrder) kanban.Status {
	if o == nil {
		return ""
	}
	return o.Status
}

// validationError converts the first validator failure into an AppError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.ValidationField(fe.Field(), fmt.Sprintf("failed %q check", fe.Tag()))
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid request")
}
