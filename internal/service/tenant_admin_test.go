package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tallerhub/tallerhub/internal/data"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	apperrors "github.com/tallerhub/tallerhub/internal/errors"
	"github.com/tallerhub/tallerhub/internal/mocks"
)

const shopID = "0b6f1e7a-5d0c-4f9e-8a61-3c2b9d4e5f60"

func newTenantAdmin(t *testing.T) (*TenantAdminService, *mocks.MockTenantStore, *recordingPublisher) {
	t.Helper()
	tenants := mocks.NewMockTenantStore(gomock.NewController(t))
	pub := &recordingPublisher{}
	svc, err := NewTenantAdminService(TenantAdminServiceOptions{Tenants: tenants, Publisher: pub})
	require.NoError(t, err)
	return svc, tenants, pub
}

func TestTenantAdminService_Activate(t *testing.T) {
	super := domainauth.Access{Role: roleRef(domainauth.RoleSuperAdmin)}
	ctx := context.Background()

	t.Run("super admin activates", func(t *testing.T) {
		svc, tenants, pub := newTenantAdmin(t)
		tenants.EXPECT().Activate(gomock.Any(), shopID).Return(nil)

		require.NoError(t, svc.Activate(ctx, super, ActivateTenantRequest{TenantID: shopID}))
		assert.Equal(t, []change.Event{{Table: change.TableTenants, TenantID: shopID}}, pub.Events())
	})

	t.Run("shop admin is forbidden", func(t *testing.T) {
		svc, _, _ := newTenantAdmin(t)
		err := svc.Activate(ctx, shopAccess(domainauth.RoleShopAdmin, shopID), ActivateTenantRequest{TenantID: shopID})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("no role is forbidden", func(t *testing.T) {
		svc, _, _ := newTenantAdmin(t)
		err := svc.Activate(ctx, domainauth.Access{}, ActivateTenantRequest{TenantID: shopID})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("malformed id", func(t *testing.T) {
		svc, _, _ := newTenantAdmin(t)
		err := svc.Activate(ctx, super, ActivateTenantRequest{TenantID: "shop-1"})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		svc, tenants, pub := newTenantAdmin(t)
		tenants.EXPECT().Activate(gomock.Any(), shopID).Return(data.ErrTenantNotFound)

		err := svc.Activate(ctx, super, ActivateTenantRequest{TenantID: shopID})
		assert.True(t, apperrors.IsNotFound(err))
		assert.Empty(t, pub.Events())
	})

	t.Run("publish failure is not fatal", func(t *testing.T) {
		svc, tenants, pub := newTenantAdmin(t)
		pub.err = errors.New("redis down")
		tenants.EXPECT().Activate(gomock.Any(), shopID).Return(nil)

		assert.NoError(t, svc.Activate(ctx, super, ActivateTenantRequest{TenantID: shopID}))
	})
}
