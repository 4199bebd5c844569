package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrRoleAssignmentNotFound = errors.New("role assignment not found")
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrWorkOrderNotFound      = errors.New("work order not found")
	// ErrWorkOrderConflict means the order left the column the caller expected.
	ErrWorkOrderConflict = errors.New("work order status changed")
)
