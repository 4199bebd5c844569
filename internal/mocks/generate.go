// Package mocks provides gomock implementations of the service ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	tenants := mocks.NewMockTenantStore(ctrl)
//	tenants.EXPECT().GetSubscription(gomock.Any(), "t1").Return(rec, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=role_assignment_reader_mock.go github.com/tallerhub/tallerhub/internal/ports RoleAssignmentReader
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=tenant_store_mock.go github.com/tallerhub/tallerhub/internal/ports TenantStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=work_order_store_mock.go github.com/tallerhub/tallerhub/internal/ports WorkOrderStore
