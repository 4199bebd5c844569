package migrate

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("CREATE TABLE b (id INT)")},
		"migrations/0001_a.sql": {Data: []byte("CREATE TABLE a (id INT)")},
		"migrations/README.md":  {Data: []byte("ignored")},
	}
}

func TestRunner_VersionsSorted(t *testing.T) {
	r := NewRunner(nil, WithFS(testFS()))
	versions, err := r.Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a", "0002_b"}, versions)
}

func TestRunner_EmbeddedMigrationsPresent(t *testing.T) {
	versions, err := NewRunner(nil).Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_talleres", "0002_usuarios_roles", "0003_ordenes", "0004_change_notify"}, versions)
}

func TestRunner_ApplySkipsRecorded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// 0001 already applied.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs("0001_a").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	// 0002 pending.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs("0002_b").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")).
		WithArgs("0002_b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := NewRunner(db, WithFS(testFS())).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_b"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_ApplyStopsOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("0001_a").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT)")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := NewRunner(db, WithFS(testFS())).Apply(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec migration 0001_a")
	assert.Empty(t, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}
