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
	apperrors "github.com/tallerhub/tallerhub/internal/errors"
	"github.com/tallerhub/tallerhub/internal/ports"
)

// ActivateTenantRequest confirms payment for a shop.
type ActivateTenantRequest struct {
	TenantID string `validate:"required,uuid"`
}

// TenantAdminServiceOptions groups dependencies for TenantAdminService.
type TenantAdminServiceOptions struct {
	Tenants   ports.TenantStore     // Required
	Publisher ports.ChangePublisher // Optional
	Logger    *slog.Logger
}

// TenantAdminService holds platform operations on shops.
type TenantAdminService struct {
	tenants   ports.TenantStore
	publisher ports.ChangePublisher
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewTenantAdminService constructs a TenantAdminService.
func NewTenantAdminService(opts TenantAdminServiceOptions) (*TenantAdminService, error) {
	if opts.Tenants == nil {
		return nil, errors.New("TenantStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantAdminService{
		tenants:   opts.Tenants,
		publisher: opts.Publisher,
		validate:  validator.New(),
		logger:    logger.With("component", "tenant_admin"),
	}, nil
}

// Activate marks a shop's subscription as paid. Only super admins may call it.
func (s *TenantAdminService) Activate(ctx context.Context, access domainauth.Access, req ActivateTenantRequest) error {
	if access.RoleOrEmpty() != domainauth.RoleSuperAdmin {
		return apperrors.Forbidden("only platform administrators can activate shops")
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return validationError(err)
	}

	if err := s.tenants.Activate(ctx, req.TenantID); err != nil {
		if errors.Is(err, data.ErrTenantNotFound) {
			return apperrors.NotFoundf("shop %s not found", req.TenantID)
		}
		return fmt.Errorf("activate tenant: %w", err)
	}
	s.logger.InfoContext(ctx, "tenant activated", "tenant_id", req.TenantID)

	if s.publisher != nil {
		ev := change.Event{Table: change.TableTenants, TenantID: req.TenantID}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "publish tenant activation failed", "tenant_id", req.TenantID, "error", err)
		}
	}
	return nil
}
