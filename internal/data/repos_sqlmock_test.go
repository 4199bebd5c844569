package data

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
)

const (
	tenantA = "5f0b7a52-4a44-4a4e-9a53-0b8f3e4c2a10"
	orderA  = "a3c1e0f4-2b7d-4c55-8f0e-6d2b9e1f7c33"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestRoleAssignmentRepo_GetByUserID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleAssignmentRepo(db)
	q := regexp.QuoteMeta(`SELECT user_id, rol, taller_id::text FROM usuarios_roles WHERE user_id = $1`)

	mock.ExpectQuery(q).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "rol", "taller_id"}).AddRow("u1", "taller", tenantA))
	a, err := repo.GetByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "taller", a.Role)
	require.NotNil(t, a.TenantID)
	assert.Equal(t, tenantA, *a.TenantID)

	mock.ExpectQuery(q).WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "rol", "taller_id"}).AddRow("u2", "aseguradora", nil))
	a, err = repo.GetByUserID(context.Background(), "u2")
	require.NoError(t, err)
	assert.Nil(t, a.TenantID)

	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRoleAssignmentNotFound)

	mock.ExpectQuery(q).WithArgs("u3").WillReturnError(errors.New("conn refused"))
	_, err = repo.GetByUserID(context.Background(), "u3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRoleAssignmentNotFound)
}

func TestRoleAssignmentRepo_Upsert(t *testing.T) {
	db, mock := newMock(t)
	tenant := tenantA

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usuarios_roles")).
		WithArgs("u1", "admin_taller", tenant).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usuarios_roles")).
		WithArgs("u2", "super_admin", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRoleAssignmentRepo(db)
	require.NoError(t, repo.Upsert(context.Background(), auth.Assignment{UserID: "u1", Role: "admin_taller", TenantID: &tenant}))
	require.NoError(t, repo.Upsert(context.Background(), auth.Assignment{UserID: "u2", Role: "super_admin"}))
}

func TestTenantRepo_GetSubscription(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTenantRepo(db)
	q := regexp.QuoteMeta(`SELECT id::text, estado_suscripcion, fecha_inicio_prueba, fecha_fin_prueba`)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(14 * 24 * time.Hour)

	mock.ExpectQuery(q).WithArgs(tenantA).
		WillReturnRows(sqlmock.NewRows([]string{"id", "estado", "inicio", "fin"}).AddRow(tenantA, "prueba", start, end))
	rec, err := repo.GetSubscription(context.Background(), tenantA)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusTrial, rec.Status)
	require.NotNil(t, rec.Trial.End)
	assert.True(t, end.Equal(*rec.Trial.End))

	mock.ExpectQuery(q).WithArgs(tenantA).
		WillReturnRows(sqlmock.NewRows([]string{"id", "estado", "inicio", "fin"}).AddRow(tenantA, "activo", nil, nil))
	rec, err = repo.GetSubscription(context.Background(), tenantA)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, rec.Status)
	assert.Nil(t, rec.Trial.Start)
	assert.Nil(t, rec.Trial.End)

	mock.ExpectQuery(q).WithArgs(tenantA).
		WillReturnRows(sqlmock.NewRows([]string{"id", "estado", "inicio", "fin"}).AddRow(tenantA, "pagado", nil, nil))
	_, err = repo.GetSubscription(context.Background(), tenantA)
	require.Error(t, err)

	mock.ExpectQuery(q).WithArgs(tenantA).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetSubscription(context.Background(), tenantA)
	assert.ErrorIs(t, err, ErrTenantNotFound)

	// Malformed ids never reach the database.
	_, err = repo.GetSubscription(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestTenantRepo_MarkExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTenantRepo(db)
	q := regexp.QuoteMeta(`WHERE id = $1 AND estado_suscripcion = 'prueba'`)

	mock.ExpectExec(q).WithArgs(tenantA).WillReturnResult(sqlmock.NewResult(0, 1))
	changed, err := repo.MarkExpired(context.Background(), tenantA)
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectExec(q).WithArgs(tenantA).WillReturnResult(sqlmock.NewResult(0, 0))
	changed, err = repo.MarkExpired(context.Background(), tenantA)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestTenantRepo_Activate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTenantRepo(db)
	q := regexp.QuoteMeta(`SET estado_suscripcion = 'activo'`)

	mock.ExpectExec(q).WithArgs(tenantA).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Activate(context.Background(), tenantA))

	mock.ExpectExec(q).WithArgs(tenantA).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Activate(context.Background(), tenantA), ErrTenantNotFound)

	assert.ErrorIs(t, repo.Activate(context.Background(), "x"), ErrTenantNotFound)
}

func TestTenantRepo_ListTrialsEndedBefore(t *testing.T) {
	db, mock := newMock(t)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE estado_suscripcion = 'prueba' AND fecha_fin_prueba < $1`)).
		WithArgs(cutoff, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1").AddRow("t2"))

	ids, err := NewTenantRepo(db).ListTrialsEndedBefore(context.Background(), cutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids)
}

func workOrderRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "taller_id", "numero", "placa", "cliente", "descripcion", "estado", "posicion", "updated_at"}).
		AddRow(orderA, tenantA, int64(42), "ABC-123", "Rosa", "Frenos", status, 0, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
}

func TestWorkOrderRepo_ListByTenant(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM ordenes WHERE taller_id = $1`)).
		WithArgs(tenantA).
		WillReturnRows(workOrderRow("diagnostico"))

	orders, err := NewWorkOrderRepo(db).ListByTenant(context.Background(), tenantA)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, kanban.StatusDiagnosis, orders[0].Status)
	assert.Equal(t, int64(42), orders[0].Number)
	assert.Equal(t, "ABC-123", orders[0].Plate)
}

func TestWorkOrderRepo_MoveApplies(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET posicion = posicion + 1`)).
		WithArgs(tenantA, "en_reparacion", 0, orderA).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SET estado = $1, posicion = $2, updated_at = now()`)).
		WithArgs("en_reparacion", 0, orderA, tenantA, "diagnostico").
		WillReturnRows(workOrderRow("en_reparacion"))
	mock.ExpectCommit()

	o, err := NewWorkOrderRepo(db).Move(context.Background(), kanban.MoveRequest{
		TenantID: tenantA, OrderID: orderA, From: kanban.StatusDiagnosis, To: kanban.StatusInRepair,
	})
	require.NoError(t, err)
	assert.Equal(t, kanban.StatusInRepair, o.Status)
}

func TestWorkOrderRepo_MoveConflictReturnsCurrent(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET posicion = posicion + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SET estado = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM ordenes WHERE id = $1 AND taller_id = $2`)).
		WithArgs(orderA, tenantA).
		WillReturnRows(workOrderRow("listo"))

	o, err := NewWorkOrderRepo(db).Move(context.Background(), kanban.MoveRequest{
		TenantID: tenantA, OrderID: orderA, From: kanban.StatusDiagnosis, To: kanban.StatusInRepair,
	})
	require.ErrorIs(t, err, ErrWorkOrderConflict)
	require.NotNil(t, o)
	assert.Equal(t, kanban.StatusReady, o.Status)
}

func TestWorkOrderRepo_MoveMissingOrder(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SET posicion = posicion + 1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SET estado = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM ordenes WHERE id = $1 AND taller_id = $2`)).
		WillReturnError(sql.ErrNoRows)

	_, err := NewWorkOrderRepo(db).Move(context.Background(), kanban.MoveRequest{
		TenantID: tenantA, OrderID: orderA, From: kanban.StatusDiagnosis, To: kanban.StatusInRepair,
	})
	assert.ErrorIs(t, err, ErrWorkOrderNotFound)
}
