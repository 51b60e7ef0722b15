package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/vnweather/internal/domain"
)

// 20:30 UTC is already the next calendar day in UTC+7
var demoNow = time.Date(2024, 6, 1, 20, 30, 0, 0, time.UTC)

func demoQuery(id domain.QueryID, limit int) domain.Query {
	return domain.Query{ID: id, Location: "Ha Noi City", Limit: limit}
}

func TestDemoWarehouse_Daily(t *testing.T) {
	d := NewDemo(func() time.Time { return demoNow })

	table, err := d.Query(context.Background(), demoQuery(domain.QueryDailyObservations, 7))
	require.NoError(t, err)
	require.Equal(t, 7, table.Len())
	assert.True(t, table.Has(domain.ColTemperatureMean))
	assert.True(t, table.Has(domain.ColHumidityMean))

	first := table.Rows[0][domain.ColDateRecord].(domain.NaiveTime)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), first.Wall)
	last := table.Rows[6][domain.ColDateRecord].(domain.NaiveTime)
	assert.Equal(t, time.Date(2024, 5, 26, 0, 0, 0, 0, time.UTC), last.Wall)

	for _, row := range table.Rows {
		assert.Equal(t, "Ha Noi City", row[domain.ColLocation])
		mean := row[domain.ColTemperatureMean].(float64)
		assert.Greater(t, row[domain.ColTemperatureMax].(float64), mean)
		assert.Less(t, row[domain.ColTemperatureMin].(float64), mean)
		assert.GreaterOrEqual(t, row[domain.ColRainSum].(float64), 0.0)
	}
}

func TestDemoWarehouse_ForecastHasSupersededRuns(t *testing.T) {
	d := NewDemo(func() time.Time { return demoNow })

	table, err := d.Query(context.Background(), demoQuery(domain.QueryTemperatureForecast, 24))
	require.NoError(t, err)
	require.Equal(t, 48, table.Len())

	runs := map[time.Time]int{}
	targets := map[time.Time]int{}
	for _, row := range table.Rows {
		runs[row[domain.ColModelRunTime].(time.Time)]++
		targets[row[domain.ColForecastTime].(time.Time)]++
	}
	assert.Len(t, runs, 2)
	assert.Len(t, targets, 24)
	assert.Equal(t, 24, runs[time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)])
	for at := range targets {
		assert.True(t, at.After(demoNow))
	}
}

func TestDemoWarehouse_Rain(t *testing.T) {
	d := NewDemo(func() time.Time { return demoNow })

	table, err := d.Query(context.Background(), demoQuery(domain.QueryRainProbability, 5))
	require.NoError(t, err)
	require.Equal(t, 10, table.Len())

	today := table.Rows[0][domain.ColForecastDate].(domain.NaiveTime)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), today.Wall)
	for _, row := range table.Rows {
		p := row[domain.ColRainProbability].(float64)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		label := row[domain.ColRainLabel].(int64)
		assert.Equal(t, p >= 0.5, label == 1)
	}
}

func TestDemoWarehouse_HourlyAndComparison(t *testing.T) {
	d := NewDemo(func() time.Time { return demoNow })
	ctx := context.Background()

	hourly, err := d.Query(ctx, demoQuery(domain.QueryHourlyObservations, 48))
	require.NoError(t, err)
	assert.Equal(t, 48, hourly.Len())
	assert.True(t, hourly.Has(domain.ColRelativeHumidity))
	assert.True(t, hourly.Has(domain.ColWindSpeed10m))

	compared, err := d.Query(ctx, demoQuery(domain.QueryTemperatureComparison, 72))
	require.NoError(t, err)
	require.Equal(t, 72, compared.Len())
	newest := compared.Rows[0][domain.ColComparisonDate].(time.Time)
	oldest := compared.Rows[71][domain.ColComparisonDate].(time.Time)
	assert.True(t, newest.After(oldest))
}

func TestDemoWarehouse_Deterministic(t *testing.T) {
	a := NewDemo(func() time.Time { return demoNow })
	b := NewDemo(func() time.Time { return demoNow })
	q := demoQuery(domain.QueryDailyObservations, 5)

	ta, err := a.Query(context.Background(), q)
	require.NoError(t, err)
	tb, err := b.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, ta, tb)

	other := q
	other.Location = "Da Nang City"
	tc, err := a.Query(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, ta.Rows[0][domain.ColTemperatureMean], tc.Rows[0][domain.ColTemperatureMean])
}

func TestDemoWarehouse_Edges(t *testing.T) {
	d := NewDemo(func() time.Time { return demoNow })

	table, err := d.Query(context.Background(), domain.Query{ID: domain.QueryDailyObservations, Limit: 7})
	require.NoError(t, err)
	assert.True(t, table.Empty())

	table, err = d.Query(context.Background(), demoQuery(domain.QueryDailyObservations, 0))
	require.NoError(t, err)
	assert.True(t, table.Empty())

	_, err = d.Query(context.Background(), demoQuery("unknown", 1))
	assert.True(t, errors.Is(err, domain.ErrQueryFailed))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Query(ctx, demoQuery(domain.QueryDailyObservations, 1))
	assert.True(t, errors.Is(err, domain.ErrWarehouseUnavailable))

	assert.NoError(t, d.Health(context.Background()))
}
