package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-slot-reservation/internal/validation"
)

func TestOptions_DSN(t *testing.T) {
	dsn := Options{User: "parking", Pass: "s3cret", Host: "db", Port: "3306", Name: "parking"}.DSN()
	assert.Contains(t, dsn, "parking:s3cret@tcp(db:3306)/parking?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS slots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS bookings").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadEnumTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := regexp.QuoteMeta("SELECT COLUMN_TYPE FROM information_schema.COLUMNS")
	mock.ExpectQuery(q).WithArgs("slots", "status").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_TYPE"}).AddRow("enum('Available','Reserved','Occupied')"))
	mock.ExpectQuery(q).WithArgs("slots", "slot_type").
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_TYPE"}).AddRow("enum('Compact','Regular')"))

	table, err := LoadEnumTable(context.Background(), db, validation.SlotStatus, validation.SlotType)
	require.NoError(t, err)
	assert.Equal(t, []string{"available", "occupied", "reserved"}, table.Values(validation.SlotStatus))
	assert.True(t, table.Contains(validation.SlotType, "Compact"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadEnumTable_MissingColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("COLUMN_TYPE").WillReturnRows(sqlmock.NewRows([]string{"COLUMN_TYPE"}))

	_, err = LoadEnumTable(context.Background(), db, validation.SlotStatus)
	assert.ErrorContains(t, err, "slots.status not found")
}
