package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	prev := openDB
	openDB = func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driverName)
		return db, nil
	}
	t.Cleanup(func() {
		openDB = prev
		_ = db.Close()
	})
	return mock
}

func TestConnectAppliesOptions(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectPing()

	db, err := Connect(context.Background(), "postgres://localhost/test", Options{
		MaxOpenConns: 7,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectPingFailure(t *testing.T) {
	mock := withMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err := Connect(context.Background(), "postgres://localhost/test", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping database")
}

func TestConnectEmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "  ", Options{})
	assert.Error(t, err)
}

func TestRunMigrationsNilDB(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil))
}
