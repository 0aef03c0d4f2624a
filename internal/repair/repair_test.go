package repair

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalake-labs/mdlh/internal/testutil"
	"github.com/metalake-labs/mdlh/pkg/meta"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewService(db, testutil.NewTestLogger(t)), mock
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"ANALYTICS"`, quoteIdent("ANALYTICS"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
	assert.Equal(t, `"DB"."GOLD"."ORDERS"`, qualify("DB", "GOLD", "ORDERS"))
}

func TestListSchemas(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`SELECT SCHEMA_NAME FROM "ANALYTICS".INFORMATION_SCHEMA.SCHEMATA`).
		WillReturnRows(sqlmock.NewRows([]string{"SCHEMA_NAME"}).
			AddRow("BRONZE").
			AddRow("GOLD"))

	schemas, err := svc.ListSchemas(context.Background(), "ANALYTICS")
	require.NoError(t, err)
	assert.Equal(t, []string{"BRONZE", "GOLD"}, schemas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStaleTables(t *testing.T) {
	svc, mock := newMockService(t)

	lastAltered := time.Now().UTC().Add(-10 * 24 * time.Hour)
	mock.ExpectQuery(`FROM "ANALYTICS".INFORMATION_SCHEMA.TABLES`).
		WithArgs("GOLD", 7).
		WillReturnRows(sqlmock.NewRows(
			[]string{"TABLE_CATALOG", "TABLE_SCHEMA", "TABLE_NAME", "LAST_ALTERED", "ROW_COUNT"}).
			AddRow("ANALYTICS", "GOLD", "ORDERS", lastAltered, int64(1200)))

	stale, err := svc.FindStaleTables(context.Background(), "ANALYTICS", "GOLD", 7)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	got := stale[0]
	assert.Equal(t, "ORDERS", got.Name)
	assert.Equal(t, int64(1200), got.RowCount)
	assert.Equal(t, 10, got.DaysStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStaleTables_InvalidThreshold(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.FindStaleTables(context.Background(), "DB", "GOLD", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}

func TestRepair_Success(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec(`ALTER ICEBERG TABLE "DB"."GOLD"."ORDERS" REFRESH`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ALTER ICEBERG TABLE "DB"."GOLD"."ORDERS" SET AUTO_REFRESH = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	results := svc.Repair(context.Background(), []meta.StaleTable{
		{Database: "DB", Schema: "GOLD", Name: "ORDERS"},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepair_PartialFailureIsolation(t *testing.T) {
	svc, mock := newMockService(t)

	// First table fails on the refresh statement
	mock.ExpectExec(`ALTER ICEBERG TABLE "DB"."GOLD"."BROKEN" REFRESH`).
		WillReturnError(assert.AnError)
	// Second table still runs and succeeds
	mock.ExpectExec(`ALTER ICEBERG TABLE "DB"."GOLD"."ORDERS" REFRESH`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ALTER ICEBERG TABLE "DB"."GOLD"."ORDERS" SET AUTO_REFRESH = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	results := svc.Repair(context.Background(), []meta.StaleTable{
		{Database: "DB", Schema: "GOLD", Name: "BROKEN"},
		{Database: "DB", Schema: "GOLD", Name: "ORDERS"},
	})

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Message, "refresh metadata")
	assert.True(t, results[1].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepair_FailureOnAutoRefresh(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectExec(`ALTER ICEBERG TABLE "DB"."GOLD"."ORDERS" REFRESH`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`ALTER ICEBERG TABLE "DB"."GOLD"."ORDERS" SET AUTO_REFRESH = TRUE`).
		WillReturnError(assert.AnError)

	results := svc.Repair(context.Background(), []meta.StaleTable{
		{Database: "DB", Schema: "GOLD", Name: "ORDERS"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Message, "auto refresh")
}
