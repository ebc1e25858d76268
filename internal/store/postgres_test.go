package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a mock DB and PostgresStore for testing
func newMockDBAndStore(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err, "Failed to create sqlmock")

	store := NewPostgresStore(db)
	require.NotNil(t, store, "Store should not be nil")

	return db, mock, store
}

const cartKey = "fakestore_cart:0b0e6c4e-5d1a-4c57-9c36-1f0b7d3a9e11"

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS storefront.cart_snapshots`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_LoadSnapshot(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	payload := []byte(`[{"id":1,"title":"Backpack","price":109.95,"quantity":2}]`)
	query := regexp.QuoteMeta(`SELECT payload FROM storefront.cart_snapshots WHERE key = $1;`)
	mock.ExpectQuery(query).
		WithArgs(cartKey).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	data, err := store.LoadSnapshot(context.Background(), cartKey)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_LoadSnapshot_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM storefront.cart_snapshots`)).
		WithArgs(cartKey).
		WillReturnError(sql.ErrNoRows)

	data, err := store.LoadSnapshot(context.Background(), cartKey)
	assert.Nil(t, data)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound), "Expected ErrSnapshotNotFound")
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_LoadSnapshot_SchemaMissing(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	pqErr := &pq.Error{Code: "42P01", Message: `relation "storefront.cart_snapshots" does not exist`}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM storefront.cart_snapshots`)).
		WithArgs(cartKey).
		WillReturnError(pqErr)

	_, err := store.LoadSnapshot(context.Background(), cartKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMissing), "Expected ErrSchemaMissing")
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_SaveSnapshot(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	payload := []byte(`[]`)
	query := regexp.QuoteMeta(`
		INSERT INTO storefront.cart_snapshots (key, payload)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = CURRENT_TIMESTAMP;
	`)
	mock.ExpectExec(query).
		WithArgs(cartKey, payload).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveSnapshot(context.Background(), cartKey, payload))
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_SaveSnapshot_DBError(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	dbErr := errors.New("connection reset by peer")
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO storefront.cart_snapshots`)).
		WithArgs(cartKey, sqlmock.AnyArg()).
		WillReturnError(dbErr)

	err := store.SaveSnapshot(context.Background(), cartKey, []byte(`[]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr))
	assert.False(t, errors.Is(err, ErrSchemaMissing))
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestPostgresStore_PingAndClose(t *testing.T) {
	_, mock, store := newMockDBAndStore(t)

	mock.ExpectPing()
	mock.ExpectClose()

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())
	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}
