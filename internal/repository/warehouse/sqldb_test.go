package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/vnweather/internal/domain"
)

func newMockSQL(t *testing.T) (*SQLWarehouse, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	w := NewSQL(testCreds)
	w.open = func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "postgres", driverName)
		assert.Equal(t, testCreds.DSN(), dsn)
		return db, nil
	}
	return w, mock
}

const dailySQL = "SELECT * FROM hcmut.gold.fact_vn_weather_daily WHERE ds_location = $1 ORDER BY dt_date_record DESC LIMIT $2"

var dailyProbe = domain.Query{
	ID:       domain.QueryDailyObservations,
	SQL:      dailySQL,
	Args:     []any{"Ha Noi City", 2},
	Location: "Ha Noi City",
	Limit:    2,
}

func TestSQLWarehouse_Query(t *testing.T) {
	w, mock := newMockSQL(t)

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := mock.NewRowsWithColumnDefinition(
		mock.NewColumn("ds_location").OfType("VARCHAR", ""),
		mock.NewColumn("dt_date_record").OfType("TIMESTAMP", time.Time{}),
		mock.NewColumn("nr_temperature_2m_mean").OfType("NUMERIC", []byte{}),
		mock.NewColumn("nr_rain_sum").OfType("FLOAT8", float64(0)),
	).
		AddRow("Ha Noi City", day, []byte("28.45"), 1.5).
		AddRow("Ha Noi City", day.AddDate(0, 0, -1), nil, nil)

	mock.ExpectQuery(dailySQL).WithArgs("Ha Noi City", int64(2)).WillReturnRows(rows)
	mock.ExpectClose()

	table, err := w.Query(context.Background(), dailyProbe)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"ds_location", "dt_date_record", "nr_temperature_2m_mean", "nr_rain_sum"}, table.Columns)
	require.Equal(t, 2, table.Len())

	first := table.Rows[0]
	assert.Equal(t, "Ha Noi City", first["ds_location"])
	assert.Equal(t, domain.NaiveTime{Wall: day}, first["dt_date_record"])
	assert.Equal(t, 28.45, first["nr_temperature_2m_mean"])
	assert.Equal(t, 1.5, first["nr_rain_sum"])

	second := table.Rows[1]
	assert.Nil(t, second["nr_temperature_2m_mean"])
	assert.Nil(t, second["nr_rain_sum"])
}

func TestSQLWarehouse_EmptyResult(t *testing.T) {
	w, mock := newMockSQL(t)

	mock.ExpectQuery(dailySQL).WillReturnRows(sqlmock.NewRows([]string{"ds_location", "dt_date_record"}))
	mock.ExpectClose()

	table, err := w.Query(context.Background(), dailyProbe)
	require.NoError(t, err)
	require.NotNil(t, table)
	assert.True(t, table.Empty())
	assert.Equal(t, []string{"ds_location", "dt_date_record"}, table.Columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWarehouse_Errors(t *testing.T) {
	t.Run("rejected query", func(t *testing.T) {
		w, mock := newMockSQL(t)
		mock.ExpectQuery(dailySQL).WillReturnError(errors.New("TABLE_OR_VIEW_NOT_FOUND"))
		mock.ExpectClose()

		_, err := w.Query(context.Background(), dailyProbe)
		assert.True(t, errors.Is(err, domain.ErrQueryFailed))
		assert.False(t, errors.Is(err, domain.ErrWarehouseUnavailable))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row error", func(t *testing.T) {
		w, mock := newMockSQL(t)
		rows := sqlmock.NewRows([]string{"ds_location"}).
			AddRow("Ha Noi City").
			RowError(0, errors.New("decode failure"))
		mock.ExpectQuery(dailySQL).WillReturnRows(rows)
		mock.ExpectClose()

		_, err := w.Query(context.Background(), dailyProbe)
		assert.True(t, errors.Is(err, domain.ErrQueryFailed))
	})

	t.Run("cancelled context", func(t *testing.T) {
		w, mock := newMockSQL(t)
		mock.ExpectClose()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := w.Query(ctx, dailyProbe)
		assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))
	})

	t.Run("open failure", func(t *testing.T) {
		w := NewSQL(testCreds)
		w.open = func(string, string) (*sql.DB, error) {
			return nil, errors.New("unknown driver")
		}

		_, err := w.Query(context.Background(), dailyProbe)
		assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))
		assert.True(t, errors.Is(w.Health(context.Background()), domain.ErrWarehouseUnavailable))
	})
}

func TestSQLWarehouse_Health(t *testing.T) {
	w, mock := newMockSQL(t)
	mock.ExpectClose()

	assert.NoError(t, w.Health(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCell(t *testing.T) {
	at := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		dbType string
		in     any
		want   any
	}{
		{name: "naive timestamp", dbType: "TIMESTAMP", in: at, want: domain.NaiveTime{Wall: at}},
		{name: "date", dbType: "date", in: at, want: domain.NaiveTime{Wall: at}},
		{name: "aware timestamp", dbType: "TIMESTAMPTZ", in: at, want: at},
		{name: "numeric", dbType: "NUMERIC", in: []byte("12.5"), want: 12.5},
		{name: "bad numeric", dbType: "DECIMAL", in: []byte("x"), want: nil},
		{name: "text bytes", dbType: "TEXT", in: []byte("Ha Noi City"), want: "Ha Noi City"},
		{name: "float32", dbType: "FLOAT4", in: float32(1.5), want: 1.5},
		{name: "int32", dbType: "INT4", in: int32(7), want: int64(7)},
		{name: "null", dbType: "TEXT", in: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlCell(tt.dbType, tt.in))
		})
	}
}
