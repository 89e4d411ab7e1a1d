package internal_contactstore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rapidaai/outreach/pkg/commons"
	"github.com/rapidaai/outreach/pkg/connectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	l, err := commons.NewApplicationLogger(commons.WithLevel("error"))
	require.NoError(t, err)
	return l
}

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       sqlDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	logger := newTestLogger(t)
	return NewStore(connectors.NewPostgresConnectorWithDB(gdb, logger), logger), mock
}

func TestUpdateStatusCanonicalMatch(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "contact_records"`).
		WithArgs(sqlmock.AnyArg(), StatusContacted, "+15551234567").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := store.UpdateStatus(context.Background(), "555-123-4567", StatusContacted)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "+15551234567", result.Phone)
	assert.Equal(t, StatusContacted, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusFallsBackToLastTenDigits(t *testing.T) {
	store, mock := newMockStore(t)

	// Canonical and plus-stripped forms miss; bare last-10 matches. The
	// reported phone still carries the canonical attempt.
	mock.ExpectExec(`UPDATE "contact_records"`).
		WithArgs(sqlmock.AnyArg(), StatusContacted, "+15551234567").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "contact_records"`).
		WithArgs(sqlmock.AnyArg(), StatusContacted, "15551234567").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "contact_records"`).
		WithArgs(sqlmock.AnyArg(), StatusContacted, "5551234567").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := store.UpdateStatus(context.Background(), "+15551234567", StatusContacted)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "+15551234567", result.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusNoMatchIsSoftFailure(t *testing.T) {
	store, mock := newMockStore(t)

	for _, phone := range []string{"+15551234567", "15551234567", "5551234567"} {
		mock.ExpectExec(`UPDATE "contact_records"`).
			WithArgs(sqlmock.AnyArg(), StatusContacted, phone).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	result, err := store.UpdateStatus(context.Background(), "+15551234567", StatusContacted)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "No records found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusTransportError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "contact_records"`).
		WithArgs(sqlmock.AnyArg(), StatusContacted, "+15551234567").
		WillReturnError(assert.AnError)

	result, err := store.UpdateStatus(context.Background(), "+15551234567", StatusContacted)
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestGetByPhoneNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "contact_records"`).
		WithArgs("+15551234567", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "phone", "status"}))

	record, err := store.GetByPhone(context.Background(), "5551234567")
	require.NoError(t, err)
	assert.Nil(t, record)
}
